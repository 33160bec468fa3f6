// Package store provides SQLite-backed storage for normalized records.
//
// Each record is one row keyed by its canonical identity ("Item:1"). Fields
// are stored as RFC 8785 canonical JSON, so equal field maps always produce
// byte-identical rows.
//
// # Critical Patterns
//
// Logical time:
//   - Every row carries the seq of its last write (logical clock), never a
//     wall-clock timestamp. MaxSeq lets a cache resume its clock.
//
// Deterministic reads:
//   - Multi-row queries use ORDER BY id COLLATE BINARY ASC.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Field merging for normalized writes is the caller's concern; PutRecord
// replaces the stored row.
package store
