package compiler

import (
	"fmt"

	"github.com/roach88/fragwatch/internal/ir"
)

// Validate checks structural rules the CUE schema cannot express:
// fragment names and type conditions are set, every selection set selects
// at least one field, and response keys are unique within a selection set.
func Validate(doc *ir.Document) error {
	if doc == nil || len(doc.Fragments) == 0 {
		return &CompileError{Field: "fragment", Message: "document declares no fragments"}
	}

	for _, frag := range doc.Fragments {
		field := "fragment." + frag.Name
		if frag.Name == "" {
			return &CompileError{Field: "fragment", Message: "fragment name is required"}
		}
		if frag.TypeCondition == "" {
			return &CompileError{Field: field + ".on", Message: "type condition must not be empty"}
		}
		if err := validateSelections(field+".fields", frag.Selections); err != nil {
			return err
		}
	}
	return nil
}

func validateSelections(path string, set ir.SelectionSet) error {
	if len(set) == 0 {
		return &CompileError{Field: path, Message: "selection must select at least one field"}
	}

	seen := make(map[string]string, len(set))
	for _, f := range set {
		key := f.ResponseKey()
		if other, ok := seen[key]; ok {
			return &CompileError{
				Field:   path + "." + f.Name,
				Message: fmt.Sprintf("response key %q is already used by field %q", key, other),
			}
		}
		seen[key] = f.Name

		if len(f.Selections) > 0 {
			if err := validateSelections(path+"."+f.Name+".fields", f.Selections); err != nil {
				return err
			}
		}
	}
	return nil
}
