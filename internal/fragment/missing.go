package fragment

import "github.com/roach88/fragwatch/internal/ir"

// MergeMissing deep-merges the missing trees of fragments in order.
//
// Objects at the same path are merged; any other value at an existing path
// is overwritten by the later fragment. Empty input yields nil, so callers
// can tell "no missing information" from an empty tree. The result shares
// no maps with the inputs.
func MergeMissing(fragments []ir.MissingError) ir.IRObject {
	if len(fragments) == 0 {
		return nil
	}
	out := ir.IRObject{}
	for _, f := range fragments {
		mergeTree(out, f.Missing)
	}
	return out
}

// mergeTree merges src into dst. dst is owned by the caller.
func mergeTree(dst, src ir.IRObject) {
	for k, v := range src {
		srcObj, ok := v.(ir.IRObject)
		if !ok {
			dst[k] = ir.Clone(v)
			continue
		}
		if dstObj, ok := dst[k].(ir.IRObject); ok && dstObj != nil {
			mergeTree(dstObj, srcObj)
			continue
		}
		fresh := ir.IRObject{}
		mergeTree(fresh, srcObj)
		dst[k] = fresh
	}
}
