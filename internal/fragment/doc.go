// Package fragment projects store diffs into results and keeps them current.
//
// A caller describes what it wants to observe with Options: a record (by
// id or by an object the store can identify), a fragment document, an
// optional fragment name, variables and pass-through read options.
// BuildRequest turns Options into the canonical ir.DiffOptions handed to
// the store. A Subscription reads the request once synchronously, then
// watches the store and re-projects on every delivery that differs from
// the previous one.
//
// Results form a history chain. Every Result links to the Result delivered
// before it and to the most recent complete Result, so a consumer can keep
// rendering the last good data while an incomplete read is filled in.
//
// Subscription lifecycle:
//
//	StateUninitialized --Start--> StateActive --Stop--> StateTornDown
//
// The first watch delivery after Start always replaces the current result,
// even when it equals the synchronous read. Later deliveries that are
// deep-equal to the last accepted diff are suppressed. Deliveries that
// arrive after Stop are discarded.
//
// Binding wraps a Subscription for callers whose inputs change over time:
// Update rebuilds the subscription only when the request key changes.
package fragment
