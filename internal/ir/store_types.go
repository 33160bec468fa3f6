package ir

// Record is one normalized entity in the store.
type Record struct {
	ID       string   `json:"id"`
	Typename string   `json:"typename"`
	Fields   IRObject `json:"fields"`
	Seq      int64    `json:"seq"` // Logical clock of the last write
}

// ReadOptions are store read semantics that callers pass through
// untouched. The projection layer forwards them without interpreting them.
type ReadOptions struct {
	// ReturnPartialData keeps the partial result of an incomplete diff.
	// When false an incomplete diff carries no result.
	ReturnPartialData bool `json:"return_partial_data,omitempty"`

	// CanonizeResults returns results in canonical form.
	CanonizeResults bool `json:"canonize_results,omitempty"`
}

// DiffOptions is a canonical request for one selection of one record.
type DiffOptions struct {
	ID         string    `json:"id"`
	Fragment   *Fragment `json:"fragment"`
	Variables  IRObject  `json:"variables,omitempty"`
	Optimistic bool      `json:"optimistic"`
	ReadOptions
}

// WatchOptions is a DiffOptions plus watch registration flags.
type WatchOptions struct {
	DiffOptions

	// Immediate delivers the current diff before Watch returns.
	Immediate bool `json:"immediate,omitempty"`
}

// Diff is one point-in-time read of a selection against the store.
//
// Result is nil when the store has nothing to return. Missing is nil when
// the diff is complete.
type Diff struct {
	Result   IRObject       `json:"result,omitempty"`
	Complete bool           `json:"complete"`
	Missing  []MissingError `json:"missing,omitempty"`
}

// MissingError describes selections the store could not resolve.
//
// Missing is a tree keyed by response keys whose leaves are messages, e.g.
// {"author": {"name": "Can't find field 'name' on object Author:1"}}.
type MissingError struct {
	Message string   `json:"message"`
	Path    []string `json:"path,omitempty"`
	Missing IRObject `json:"missing,omitempty"`
}

// Error implements the error interface.
func (e MissingError) Error() string {
	return e.Message
}
