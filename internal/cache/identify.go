package cache

import (
	"fmt"
	"strings"

	"github.com/roach88/fragwatch/internal/ir"
)

// Identify returns the store id of a reference, a record, or an object
// carrying __typename and its key fields.
//
// Single key fields produce "Typename:value" with string values written
// as-is and other values as canonical JSON. Compound keys produce
// "Typename:{canonical JSON of the key fields}".
func (c *Cache) Identify(ref any) (string, bool) {
	switch v := ref.(type) {
	case ir.Record:
		return v.ID, v.ID != ""
	case *ir.Record:
		if v == nil {
			return "", false
		}
		return v.ID, v.ID != ""
	case ir.IRObject:
		return c.identifyObject(v)
	case map[string]any:
		obj, err := ir.ObjectFromMap(v)
		if err != nil {
			return "", false
		}
		return c.identifyObject(obj)
	default:
		return "", false
	}
}

func (c *Cache) identifyObject(obj ir.IRObject) (string, bool) {
	if id, ok := ir.ReferenceID(obj); ok {
		return id, true
	}

	typename, ok := obj[ir.TypenameKey].(ir.IRString)
	if !ok || typename == "" {
		return "", false
	}

	keys := c.keyFieldsFor(string(typename))
	keyObj := make(ir.IRObject, len(keys))
	for _, k := range keys {
		v, ok := obj[k]
		if !ok {
			return "", false
		}
		if _, isNull := v.(ir.IRNull); isNull {
			return "", false
		}
		keyObj[k] = v
	}

	if len(keys) == 1 {
		v := keyObj[keys[0]]
		if s, ok := v.(ir.IRString); ok {
			if s == "" {
				return "", false
			}
			return string(typename) + ":" + string(s), true
		}
		data, err := ir.MarshalCanonical(v)
		if err != nil {
			return "", false
		}
		return string(typename) + ":" + string(data), true
	}

	data, err := ir.MarshalCanonical(keyObj)
	if err != nil {
		return "", false
	}
	return string(typename) + ":" + string(data), true
}

func (c *Cache) keyFieldsFor(typename string) []string {
	if keys, ok := c.keyFields[typename]; ok && len(keys) > 0 {
		return keys
	}
	return DefaultKeyFields
}

// ResolveFragment picks the fragment to read from doc. An empty name
// selects the only fragment of a single-fragment document.
func (c *Cache) ResolveFragment(doc *ir.Document, name string) (*ir.Fragment, error) {
	if doc == nil || len(doc.Fragments) == 0 {
		return nil, ErrNoDocument
	}

	if name == "" {
		if len(doc.Fragments) > 1 {
			return nil, fmt.Errorf("%w (have %s)", ErrFragmentNameRequired, strings.Join(doc.Names(), ", "))
		}
		return &doc.Fragments[0], nil
	}

	frag, ok := doc.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFragmentNotFound, name)
	}
	return frag, nil
}
