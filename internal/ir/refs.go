package ir

// RefKey is the object key that marks a reference to another record.
const RefKey = "__ref"

// TypenameKey is the field that always resolves to the record's typename.
const TypenameKey = "__typename"

// NewReference builds a reference object pointing at id.
func NewReference(id string) IRObject {
	return IRObject{RefKey: IRString(id)}
}

// ReferenceID reports the id a value points at when it is a reference.
// A reference is an object whose only key is "__ref" with a string value.
func ReferenceID(v IRValue) (string, bool) {
	obj, ok := v.(IRObject)
	if !ok || len(obj) != 1 {
		return "", false
	}
	id, ok := obj[RefKey].(IRString)
	if !ok || id == "" {
		return "", false
	}
	return string(id), true
}
