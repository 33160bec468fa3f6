package fragment

import "github.com/roach88/fragwatch/internal/ir"

// Options describe what a caller wants to observe.
type Options struct {
	// From is the record to read: an id string, or an object the store
	// can identify (a reference, a record, or a typed object).
	From any

	// Document holds the fragment definitions.
	Document *ir.Document

	// FragmentName picks a fragment when Document has several.
	FragmentName string

	Variables ir.IRObject

	// Optimistic includes optimistic layers in reads. nil means true.
	Optimistic *bool

	// ReadOptions are forwarded to the store untouched.
	ir.ReadOptions
}

// Bool returns a pointer to b, for Options.Optimistic.
func Bool(b bool) *bool {
	return &b
}
