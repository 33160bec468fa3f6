package harness

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/fragwatch/internal/fragment"
	"github.com/roach88/fragwatch/internal/ir"
)

// AssertionError is returned when an expect clause does not match.
type AssertionError struct {
	Where    string // "watch" or "steps[i]"
	Field    string // expect field that failed
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s: expect.%s failed\n", e.Where, e.Field)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// checkExpect evaluates exp against the subscription's current result and
// records every mismatch on the harness result.
func (h *Harness) checkExpect(where string, exp *Expect, delivered int, current *fragment.Result) {
	if exp == nil {
		return
	}
	for _, err := range EvaluateExpect(where, exp, delivered, current, h.indexOf) {
		h.result.AddError(err.Error())
	}
}

// EvaluateExpect returns one AssertionError per failed expect field.
// indexOf maps a result to its trace index (-1 when absent).
func EvaluateExpect(where string, exp *Expect, delivered int, current *fragment.Result, indexOf func(*fragment.Result) int) []error {
	var errs []error
	fail := func(field string, expected, actual any) {
		errs = append(errs, &AssertionError{
			Where:    where,
			Field:    field,
			Expected: format(expected),
			Actual:   format(actual),
		})
	}

	if exp.Delivered != nil && *exp.Delivered != delivered {
		fail("delivered", *exp.Delivered, delivered)
	}

	if current == nil {
		if exp.Complete != nil || exp.Data != nil || exp.Missing != nil || exp.LastComplete != nil {
			fail("result", "a result", "none")
		}
		return errs
	}

	if exp.Complete != nil && *exp.Complete != current.Complete {
		fail("complete", *exp.Complete, current.Complete)
	}

	if exp.NoData && current.Data != nil {
		fail("no_data", "no data", current.Data)
	}

	if exp.Data != nil {
		want, err := ir.ObjectFromMap(exp.Data)
		switch {
		case err != nil:
			fail("data", err.Error(), current.Data)
		case current.Data == nil:
			fail("data", want, "no data")
		case !matchSubset(current.Data, want):
			fail("data", want, current.Data)
		}
	}

	if exp.Missing != nil {
		want, err := ir.ObjectFromMap(exp.Missing)
		switch {
		case err != nil:
			fail("missing", err.Error(), current.Missing)
		case len(want) == 0:
			if current.Missing != nil {
				fail("missing", "no missing tree", current.Missing)
			}
		case !cmp.Equal(want, current.Missing):
			fail("missing", want, current.Missing)
		}
	}

	if exp.LastComplete != nil {
		if got := indexOf(current.LastCompleteResult); got != *exp.LastComplete {
			fail("last_complete", *exp.LastComplete, got)
		}
	}

	return errs
}

// matchSubset reports whether every key of expected is present in actual
// with a matching value. Objects match recursively; arrays must have equal
// length and match element by element; scalars must be equal.
func matchSubset(actual, expected ir.IRValue) bool {
	switch want := expected.(type) {
	case ir.IRObject:
		got, ok := actual.(ir.IRObject)
		if !ok {
			return false
		}
		for k, v := range want {
			gv, ok := got[k]
			if !ok || !matchSubset(gv, v) {
				return false
			}
		}
		return true
	case ir.IRArray:
		got, ok := actual.(ir.IRArray)
		if !ok || len(got) != len(want) {
			return false
		}
		for i := range want {
			if !matchSubset(got[i], want[i]) {
				return false
			}
		}
		return true
	default:
		return cmp.Equal(actual, expected)
	}
}

// format renders a value for error messages, as canonical JSON when it can.
func format(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case ir.IRObject:
		if val == nil {
			return "null"
		}
		if b, err := ir.MarshalCanonical(val); err == nil {
			return string(b)
		}
	}
	return fmt.Sprintf("%v", v)
}
