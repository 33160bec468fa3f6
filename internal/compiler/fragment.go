package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/fragwatch/internal/ir"
)

// CompileSource compiles CUE source text into a Document.
// filename is used for error positions only.
func CompileSource(filename string, src []byte) (*ir.Document, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError("cue", err)
	}
	return CompileDocument(v)
}

// CompileFile reads and compiles a CUE fragment document.
func CompileFile(path string) (*ir.Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fragment document: %w", err)
	}
	return CompileSource(path, src)
}

// CompileDocument compiles every fragment under the "fragment" struct of v.
// The result is validated before it is returned.
func CompileDocument(v cue.Value) (*ir.Document, error) {
	fragmentsVal := v.LookupPath(cue.ParsePath("fragment"))
	if !fragmentsVal.Exists() {
		return nil, &CompileError{
			Field:   "fragment",
			Message: "document declares no fragments",
			Pos:     v.Pos(),
		}
	}

	iter, err := fragmentsVal.Fields()
	if err != nil {
		return nil, formatCUEError("fragment", err)
	}

	doc := &ir.Document{}
	for iter.Next() {
		frag, err := CompileFragment(iter.Value())
		if err != nil {
			return nil, err
		}
		doc.Fragments = append(doc.Fragments, *frag)
	}

	if err := Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// CompileFragment compiles one fragment struct. The fragment name is taken
// from the value's last path selector.
func CompileFragment(v cue.Value) (*ir.Fragment, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError("fragment", err)
	}

	frag := &ir.Fragment{}
	if labels := v.Path().Selectors(); len(labels) > 0 {
		frag.Name = labels[len(labels)-1].String()
	}
	field := "fragment." + frag.Name

	onVal := v.LookupPath(cue.ParsePath("on"))
	if !onVal.Exists() {
		return nil, &CompileError{
			Field:   field + ".on",
			Message: "type condition is required",
			Pos:     v.Pos(),
		}
	}
	on, err := onVal.String()
	if err != nil {
		return nil, formatCUEError(field+".on", err)
	}
	frag.TypeCondition = on

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{
			Field:   field + ".fields",
			Message: "fields are required",
			Pos:     v.Pos(),
		}
	}
	frag.Selections, err = compileSelections(field+".fields", fieldsVal)
	if err != nil {
		return nil, err
	}

	return frag, nil
}

// compileSelections compiles a "fields" struct into an ordered SelectionSet.
func compileSelections(path string, v cue.Value) (ir.SelectionSet, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(path, err)
	}

	var set ir.SelectionSet
	for iter.Next() {
		name := iter.Selector().Unquoted()
		fieldPath := path + "." + name
		val := iter.Value()

		switch val.IncompleteKind() {
		case cue.BoolKind:
			selected, err := val.Bool()
			if err != nil {
				return nil, formatCUEError(fieldPath, err)
			}
			if selected {
				set = append(set, ir.Field{Name: name})
			}

		case cue.StructKind:
			f, err := compileField(fieldPath, name, val)
			if err != nil {
				return nil, err
			}
			set = append(set, f)

		default:
			return nil, &CompileError{
				Field:   fieldPath,
				Message: "field must be true, false or a struct with alias, args or fields",
				Pos:     val.Pos(),
			}
		}
	}

	return set, nil
}

func compileField(path, name string, v cue.Value) (ir.Field, error) {
	f := ir.Field{Name: name}

	if aliasVal := v.LookupPath(cue.ParsePath("alias")); aliasVal.Exists() {
		alias, err := aliasVal.String()
		if err != nil {
			return f, formatCUEError(path+".alias", err)
		}
		f.Alias = alias
	}

	if argsVal := v.LookupPath(cue.ParsePath("args")); argsVal.Exists() {
		args, err := compileArgs(path+".args", argsVal)
		if err != nil {
			return f, err
		}
		f.Args = args
	}

	if fieldsVal := v.LookupPath(cue.ParsePath("fields")); fieldsVal.Exists() {
		selections, err := compileSelections(path+".fields", fieldsVal)
		if err != nil {
			return f, err
		}
		if len(selections) == 0 {
			return f, &CompileError{
				Field:   path + ".fields",
				Message: "nested selection must select at least one field",
				Pos:     fieldsVal.Pos(),
			}
		}
		f.Selections = selections
	}

	return f, nil
}

func compileArgs(path string, v cue.Value) (ir.IRObject, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(path, err)
	}

	args := ir.IRObject{}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		val, err := compileArgValue(path+"."+name, iter.Value())
		if err != nil {
			return nil, err
		}
		args[name] = val
	}
	return args, nil
}

// compileArgValue converts a concrete CUE scalar to an IRValue.
func compileArgValue(path string, v cue.Value) (ir.IRValue, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(path, err)
		}
		return ir.IRString(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(path, err)
		}
		return ir.IRInt(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(path, err)
		}
		return ir.IRBool(b), nil
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   path,
			Message: "float arguments are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("argument must be a concrete scalar, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}
