// Package compiler turns CUE fragment documents into ir.Document values.
//
// A document declares fragments under the top-level "fragment" struct:
//
//	fragment: ItemFields: {
//		on: "Item"
//		fields: {
//			id:    true
//			text:  true
//			price: {args: {currency: "$currency"}}
//			author: {fields: {name: true}}
//			title: {alias: "heading"}
//		}
//	}
//
// A field is selected with `true` (excluded with `false`), or with a struct
// carrying any of: alias, args, fields. Fields keep declaration order.
// Argument values must be concrete strings, ints, bools or null; strings
// of the form "$name" refer to request variables. Floats are forbidden.
//
// The compiler uses the CUE Go API directly (not a CLI subprocess), so CUE
// unification, defaults and references all work inside documents.
package compiler
