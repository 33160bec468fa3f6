// Package ir provides the shared value model and types for fragwatch.
//
// Every other internal package imports ir; ir imports nothing internal. The
// package holds:
//   - the sealed IRValue model used for record fields, variables and results
//   - RFC 8785 canonical JSON, used for storage and for content keys
//   - fragment documents (Document, Fragment, Field)
//   - the store contract types (Record, Diff, MissingError, DiffOptions)
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - nil IRObject means "absent"; an empty IRObject is a present, empty value
//   - references between records are objects of the form {"__ref": "<id>"}
//   - All JSON tags use snake_case
package ir
