// Package cache is the normalized record store that fragment subscriptions
// read from and watch.
//
// A Cache sits on top of the SQLite record store and adds the pieces a
// projection layer needs: identity resolution, fragment resolution, diffs of
// a fragment against one record, optimistic layers and watches.
//
// ARCHITECTURE:
//
// Single-Writer Broadcast Loop:
// Writes go straight to SQLite and enqueue a broadcast event carrying the
// ids they touched. Run (or Drain) dequeues events one at a time and, for
// every registered watch whose last diff read one of those ids, computes a
// fresh diff and hands it to the watch callback. This ensures:
// - Deliveries for one watch arrive in the order the writes happened
// - Watches are visited in registration order
// - No two deliveries for the same watch overlap
//
// The loop does not filter equal diffs. Deciding whether a delivery is a
// real change belongs to the subscriber.
//
// Logical Clock:
// Every write is stamped with a seq from Clock.Next(). The clock resumes
// from the highest seq in the store when a Cache is created.
package cache
