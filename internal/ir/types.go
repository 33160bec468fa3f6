package ir

import (
	"fmt"
	"strings"
)

// Document is a compiled fragment document. Fragments keep source order.
type Document struct {
	Fragments []Fragment `json:"fragments"`
}

// Lookup returns the fragment with the given name.
func (d *Document) Lookup(name string) (*Fragment, bool) {
	if d == nil {
		return nil, false
	}
	for i := range d.Fragments {
		if d.Fragments[i].Name == name {
			return &d.Fragments[i], true
		}
	}
	return nil, false
}

// Names returns the fragment names in source order.
func (d *Document) Names() []string {
	if d == nil {
		return nil
	}
	names := make([]string, len(d.Fragments))
	for i, f := range d.Fragments {
		names[i] = f.Name
	}
	return names
}

// Fragment is a named selection over records of one type.
type Fragment struct {
	Name          string       `json:"name"`
	TypeCondition string       `json:"on"`
	Selections    SelectionSet `json:"selections"`
}

// SelectionSet is an ordered list of fields.
type SelectionSet []Field

// Field selects one stored field of a record.
//
// Args values are either concrete scalars or variable placeholders
// ("$name"). A field with a non-empty Selections follows references.
type Field struct {
	Name       string       `json:"name"`
	Alias      string       `json:"alias,omitempty"`
	Args       IRObject     `json:"args,omitempty"`
	Selections SelectionSet `json:"selections,omitempty"`
}

// ResponseKey is the key the field's value appears under in a result.
func (f Field) ResponseKey() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// StoreKey is the key the field's value is stored under in a record.
// Arguments are resolved against variables first; the key is
// name({canonical args}) when arguments exist, plain name otherwise.
func (f Field) StoreKey(variables IRObject) (string, error) {
	if len(f.Args) == 0 {
		return f.Name, nil
	}
	resolved, err := ResolveArgs(f.Args, variables)
	if err != nil {
		return "", fmt.Errorf("field %q: %w", f.Name, err)
	}
	canonical, err := MarshalCanonical(resolved)
	if err != nil {
		return "", fmt.Errorf("field %q: %w", f.Name, err)
	}
	return f.Name + "(" + string(canonical) + ")", nil
}

// VariablePrefix marks an argument value as a variable reference.
const VariablePrefix = "$"

// VariableName reports the variable an argument value refers to.
func VariableName(v IRValue) (string, bool) {
	s, ok := v.(IRString)
	if !ok || !strings.HasPrefix(string(s), VariablePrefix) || len(s) == len(VariablePrefix) {
		return "", false
	}
	return strings.TrimPrefix(string(s), VariablePrefix), true
}

// ResolveArgs substitutes "$name" argument values from variables.
// A referenced variable that is not defined is an error.
func ResolveArgs(args, variables IRObject) (IRObject, error) {
	out := make(IRObject, len(args))
	for k, v := range args {
		name, ok := VariableName(v)
		if !ok {
			out[k] = v
			continue
		}
		val, found := variables[name]
		if !found {
			return nil, fmt.Errorf("variable %q is not defined", name)
		}
		out[k] = val
	}
	return out, nil
}

// ToIR converts the fragment into an IRObject for hashing.
func (f *Fragment) ToIR() IRObject {
	return IRObject{
		"name":       IRString(f.Name),
		"on":         IRString(f.TypeCondition),
		"selections": f.Selections.toIR(),
	}
}

func (s SelectionSet) toIR() IRArray {
	out := make(IRArray, len(s))
	for i, field := range s {
		obj := IRObject{"name": IRString(field.Name)}
		if field.Alias != "" {
			obj["alias"] = IRString(field.Alias)
		}
		if len(field.Args) > 0 {
			obj["args"] = field.Args
		}
		if len(field.Selections) > 0 {
			obj["selections"] = field.Selections.toIR()
		}
		out[i] = obj
	}
	return out
}
