package store

import (
	"fmt"

	"github.com/roach88/fragwatch/internal/ir"
)

// marshalFields converts a field map to canonical JSON TEXT for storage.
// A nil map is stored as "{}".
func marshalFields(fields ir.IRObject) (string, error) {
	if fields == nil {
		fields = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

// unmarshalFields parses stored canonical JSON TEXT back into a field map.
// Always returns a non-nil map for a stored row.
func unmarshalFields(data string) (ir.IRObject, error) {
	obj, err := ir.UnmarshalIRObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	if obj == nil {
		obj = ir.IRObject{}
	}
	return obj, nil
}
