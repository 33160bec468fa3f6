package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/roach88/fragwatch/internal/ir"
)

// Diff reads opts.Fragment against the record opts.ID.
//
// Fields the store cannot resolve are reported in Missing, one
// MissingError per top-level response key, and make the diff incomplete.
// Missing data is not an error; a non-nil error means the request itself
// could not be read (undefined variables, store failure).
func (c *Cache) Diff(ctx context.Context, opts ir.DiffOptions) (ir.Diff, error) {
	d, _, err := c.diff(ctx, opts)
	return d, err
}

// diff returns the diff and the set of record ids it read, including ids
// that were referenced but not found.
func (c *Cache) diff(ctx context.Context, opts ir.DiffOptions) (ir.Diff, map[string]struct{}, error) {
	if opts.Fragment == nil {
		return ir.Diff{}, nil, fmt.Errorf("diff %q: fragment is required", opts.ID)
	}
	if opts.ID == "" {
		return ir.Diff{}, nil, fmt.Errorf("diff: id is required")
	}

	r := &reader{
		ctx:       ctx,
		cache:     c,
		variables: opts.Variables,
		touched:   make(map[string]struct{}),
		records:   make(map[string]*ir.Record),
	}
	if opts.Optimistic {
		c.mu.Lock()
		r.layers = append([]optimisticLayer(nil), c.layers...)
		c.mu.Unlock()
	}

	root, ok, err := r.record(opts.ID)
	if err != nil {
		return ir.Diff{}, nil, err
	}
	if !ok {
		return danglingRootDiff(opts), r.touched, nil
	}

	result, missing, err := r.readSelection(root, opts.Fragment.Selections)
	if err != nil {
		return ir.Diff{}, nil, fmt.Errorf("diff %q: %w", opts.ID, err)
	}

	d := ir.Diff{Result: result, Complete: len(missing) == 0}
	if !d.Complete {
		d.Missing = missingErrors(opts.Fragment.Selections, missing)
		if !opts.ReturnPartialData {
			d.Result = nil
		}
	}

	if opts.CanonizeResults && d.Result != nil {
		if d.Result, err = canonize(d.Result); err != nil {
			return ir.Diff{}, nil, fmt.Errorf("diff %q: %w", opts.ID, err)
		}
	}

	return d, r.touched, nil
}

// danglingRootDiff is the diff of a request whose root record is absent.
// Every selected top-level field is reported missing.
func danglingRootDiff(opts ir.DiffOptions) ir.Diff {
	msg := danglingMessage(opts.ID)
	tree := make(ir.IRObject, len(opts.Fragment.Selections))
	for _, f := range opts.Fragment.Selections {
		tree[f.ResponseKey()] = ir.IRString(msg)
	}
	return ir.Diff{
		Complete: false,
		Missing:  []ir.MissingError{{Message: msg, Missing: tree}},
	}
}

func danglingMessage(id string) string {
	return fmt.Sprintf("Dangling reference to missing %s object", id)
}

// missingErrors splits a missing tree into one MissingError per top-level
// response key, in selection order.
func missingErrors(set ir.SelectionSet, tree ir.IRObject) []ir.MissingError {
	var out []ir.MissingError
	for _, f := range set {
		key := f.ResponseKey()
		sub, ok := tree[key]
		if !ok {
			continue
		}
		msg, path := firstLeaf(sub, []string{key})
		out = append(out, ir.MissingError{
			Message: msg,
			Path:    path,
			Missing: ir.IRObject{key: sub},
		})
	}
	return out
}

// firstLeaf walks a missing subtree to its first message in key order.
func firstLeaf(v ir.IRValue, path []string) (string, []string) {
	obj, ok := v.(ir.IRObject)
	if !ok || len(obj) == 0 {
		if s, ok := v.(ir.IRString); ok {
			return string(s), path
		}
		return "", path
	}
	k := obj.SortedKeys()[0]
	return firstLeaf(obj[k], append(path, k))
}

func canonize(obj ir.IRObject) (ir.IRObject, error) {
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("canonize result: %w", err)
	}
	out, err := ir.UnmarshalIRObject(data)
	if err != nil {
		return nil, fmt.Errorf("canonize result: %w", err)
	}
	return out, nil
}

// reader resolves one diff. Records are read at most once per diff.
type reader struct {
	ctx       context.Context
	cache     *Cache
	variables ir.IRObject
	layers    []optimisticLayer
	touched   map[string]struct{}
	records   map[string]*ir.Record // nil entry marks a missing record
}

// record returns id as seen by this read: the stored record with every
// optimistic layer applied in order.
func (r *reader) record(id string) (*ir.Record, bool, error) {
	r.touched[id] = struct{}{}
	if rec, ok := r.records[id]; ok {
		return rec, rec != nil, nil
	}

	stored, found, err := r.cache.store.ReadRecord(r.ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("read record %q: %w", id, err)
	}

	var rec *ir.Record
	if found {
		rec = &stored
	}
	for _, layer := range r.layers {
		for _, lr := range layer.records {
			if lr.ID != id {
				continue
			}
			if rec == nil {
				rec = &ir.Record{ID: id, Typename: lr.Typename, Fields: ir.IRObject{}}
			}
			merged := mergeRecord(*rec, lr)
			rec = &merged
		}
	}

	r.records[id] = rec
	return rec, rec != nil, nil
}

// readSelection reads set from rec. The missing tree is nil when every
// field resolved.
func (r *reader) readSelection(rec *ir.Record, set ir.SelectionSet) (ir.IRObject, ir.IRObject, error) {
	result := make(ir.IRObject, len(set))
	var missing ir.IRObject

	for _, f := range set {
		key := f.ResponseKey()

		if f.Name == ir.TypenameKey {
			result[key] = ir.IRString(rec.Typename)
			continue
		}

		storeKey, err := f.StoreKey(r.variables)
		if err != nil {
			return nil, nil, err
		}

		v, ok := rec.Fields[storeKey]
		if !ok {
			missing = setMissing(missing, key, ir.IRString(fieldMessage(storeKey, rec)))
			continue
		}

		if len(f.Selections) == 0 {
			result[key] = ir.Clone(v)
			continue
		}

		val, sub, present, err := r.readNested(v, f.Selections)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", key, err)
		}
		if present {
			result[key] = val
		}
		if sub != nil {
			missing = setMissing(missing, key, sub)
		}
	}

	return result, missing, nil
}

// readNested reads a selection below a stored value. present is false when
// the value is a reference to a record that does not exist.
func (r *reader) readNested(v ir.IRValue, set ir.SelectionSet) (ir.IRValue, ir.IRValue, bool, error) {
	switch val := v.(type) {
	case ir.IRNull:
		return val, nil, true, nil

	case ir.IRArray:
		out := make(ir.IRArray, 0, len(val))
		var missing ir.IRObject
		for i, elem := range val {
			ev, sub, present, err := r.readNested(elem, set)
			if err != nil {
				return nil, nil, false, fmt.Errorf("[%d]: %w", i, err)
			}
			// Dangling references are dropped from lists.
			if !present {
				continue
			}
			if sub != nil {
				missing = setMissing(missing, strconv.Itoa(len(out)), sub)
			}
			out = append(out, ev)
		}
		if missing == nil {
			return out, nil, true, nil
		}
		return out, missing, true, nil

	case ir.IRObject:
		if id, ok := ir.ReferenceID(val); ok {
			rec, found, err := r.record(id)
			if err != nil {
				return nil, nil, false, err
			}
			if !found {
				return nil, ir.IRString(danglingMessage(id)), false, nil
			}
			result, missing, err := r.readSelection(rec, set)
			if err != nil {
				return nil, nil, false, err
			}
			return result, nilIfEmpty(missing), true, nil
		}

		embedded := &ir.Record{Fields: val}
		if tn, ok := val[ir.TypenameKey].(ir.IRString); ok {
			embedded.Typename = string(tn)
		}
		result, missing, err := r.readSelection(embedded, set)
		if err != nil {
			return nil, nil, false, err
		}
		return result, nilIfEmpty(missing), true, nil

	default:
		// Scalars under a sub-selection are returned as stored.
		return v, nil, true, nil
	}
}

func fieldMessage(storeKey string, rec *ir.Record) string {
	if rec.ID == "" {
		return fmt.Sprintf("Can't find field '%s' on embedded object", storeKey)
	}
	return fmt.Sprintf("Can't find field '%s' on object %s", storeKey, rec.ID)
}

func setMissing(tree ir.IRObject, key string, v ir.IRValue) ir.IRObject {
	if tree == nil {
		tree = ir.IRObject{}
	}
	tree[key] = v
	return tree
}

// nilIfEmpty keeps a nil missing tree typed as an interface nil.
func nilIfEmpty(tree ir.IRObject) ir.IRValue {
	if tree == nil {
		return nil
	}
	return tree
}
