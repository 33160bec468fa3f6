package fragment

import (
	"fmt"

	"github.com/roach88/fragwatch/internal/ir"
)

// ResolveIdentity returns the store id for from. Strings are ids already
// and pass through unchanged; anything else is identified by the store.
func ResolveIdentity(store Store, from any) (string, error) {
	if id, ok := from.(string); ok {
		if id == "" {
			return "", &RequestError{Code: ErrCodeIdentityUnresolved, Message: "empty id"}
		}
		return id, nil
	}

	id, ok := store.Identify(from)
	if !ok || id == "" {
		return "", &RequestError{
			Code:    ErrCodeIdentityUnresolved,
			Message: fmt.Sprintf("store cannot identify %T", from),
		}
	}
	return id, nil
}

// BuildRequest assembles the canonical diff request for opts.
//
// Equal options always produce deep-equal requests. Variables are copied
// so later changes to the caller's map do not leak into the request.
func BuildRequest(store Store, opts Options) (ir.DiffOptions, error) {
	if opts.From == nil {
		return ir.DiffOptions{}, &RequestError{Code: ErrCodeInvalidOptions, Message: "from is required"}
	}

	id, err := ResolveIdentity(store, opts.From)
	if err != nil {
		return ir.DiffOptions{}, err
	}

	frag, err := store.ResolveFragment(opts.Document, opts.FragmentName)
	if err != nil {
		return ir.DiffOptions{}, &RequestError{
			Code:    ErrCodeFragmentUnresolved,
			Message: fmt.Sprintf("resolve fragment %q", opts.FragmentName),
			Err:     err,
		}
	}

	optimistic := true
	if opts.Optimistic != nil {
		optimistic = *opts.Optimistic
	}

	return ir.DiffOptions{
		ID:          id,
		Fragment:    frag,
		Variables:   opts.Variables.Clone(),
		Optimistic:  optimistic,
		ReadOptions: opts.ReadOptions,
	}, nil
}
