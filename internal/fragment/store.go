package fragment

import (
	"context"

	"github.com/roach88/fragwatch/internal/ir"
)

// Store is the normalized store a subscription reads from.
// Implemented by cache.Cache.
type Store interface {
	// Identify returns the id of an object reference, or false when the
	// store cannot derive a stable id from it.
	Identify(ref any) (string, bool)

	// ResolveFragment picks the named fragment from doc. An empty name
	// selects the only fragment of a single-fragment document.
	ResolveFragment(doc *ir.Document, name string) (*ir.Fragment, error)

	// Diff reads a request against the current store contents.
	Diff(ctx context.Context, opts ir.DiffOptions) (ir.Diff, error)

	// Watch registers callback for changes relevant to opts. With
	// opts.Immediate the current diff is delivered before any change.
	// Callbacks for one watch are never invoked concurrently. The returned
	// cancel function is idempotent.
	Watch(opts ir.WatchOptions, callback func(ir.Diff)) (cancel func(), err error)
}
