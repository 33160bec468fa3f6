package fragment

import "github.com/roach88/fragwatch/internal/ir"

// Result is one projection of a diff. Results are never modified after
// Project returns them.
//
// A nil Data, Missing or link means the state does not exist: no data, no
// missing information, no earlier result, no complete result in history.
type Result struct {
	Data     ir.IRObject `json:"data"`
	Complete bool        `json:"complete"`
	Missing  ir.IRObject `json:"missing,omitempty"`

	// PreviousResult is the result delivered immediately before this one.
	PreviousResult *Result `json:"-"`

	// LastCompleteResult is this result when it is complete, otherwise the
	// most recent complete ancestor.
	LastCompleteResult *Result `json:"-"`
}

// Project maps a diff onto a new Result chained to prev. prev may be nil
// and is never modified.
func Project(diff ir.Diff, prev *Result) *Result {
	r := &Result{
		Data:     diff.Result,
		Complete: diff.Complete,
	}
	if len(diff.Missing) > 0 {
		r.Missing = MergeMissing(diff.Missing)
	}
	r.PreviousResult = prev

	switch {
	case r.Complete:
		r.LastCompleteResult = r
	case prev == nil:
	case prev.Complete:
		r.LastCompleteResult = prev
	default:
		r.LastCompleteResult = prev.LastCompleteResult
	}
	return r
}

// Depth returns the number of results in the chain ending at r.
func (r *Result) Depth() int {
	n := 0
	for cur := r; cur != nil; cur = cur.PreviousResult {
		n++
	}
	return n
}
