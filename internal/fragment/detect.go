package fragment

import (
	"github.com/google/go-cmp/cmp"

	"github.com/roach88/fragwatch/internal/ir"
)

// Changed reports whether next differs structurally from prev.
// A nil map and an empty map are different values.
func Changed(prev, next ir.Diff) bool {
	return !cmp.Equal(prev, next)
}
