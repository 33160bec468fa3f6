package cache

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fragwatch/internal/ir"
)

func TestDiff_Complete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Write(ctx, item(1, "hello", "Author:1"), author(1, "Ada")))

	d, err := c.Diff(ctx, diffOpts("Item:1", itemFragment()))
	require.NoError(t, err)

	want := ir.Diff{
		Complete: true,
		Result: ir.IRObject{
			"id":     ir.IRInt(1),
			"text":   ir.IRString("hello"),
			"author": ir.IRObject{"name": ir.IRString("Ada")},
		},
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("Diff() mismatch (-want +got):\n%s", diff)
	}
}

func TestDiff_MissingFieldPerTopLevelKey(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Write(ctx,
		ir.Record{ID: "Item:1", Typename: "Item", Fields: ir.IRObject{
			"id":     ir.IRInt(1),
			"author": ir.NewReference("Author:1"),
		}},
		ir.Record{ID: "Author:1", Typename: "Author", Fields: ir.IRObject{"id": ir.IRInt(1)}},
	))

	opts := diffOpts("Item:1", itemFragment())
	opts.ReturnPartialData = true
	d, err := c.Diff(ctx, opts)
	require.NoError(t, err)

	assert.False(t, d.Complete)
	assert.Equal(t, ir.IRObject{"id": ir.IRInt(1), "author": ir.IRObject{}}, d.Result)
	require.Len(t, d.Missing, 2)

	assert.Equal(t, "Can't find field 'text' on object Item:1", d.Missing[0].Message)
	assert.Equal(t, []string{"text"}, d.Missing[0].Path)
	assert.Equal(t, ir.IRObject{"text": ir.IRString("Can't find field 'text' on object Item:1")}, d.Missing[0].Missing)

	assert.Equal(t, "Can't find field 'name' on object Author:1", d.Missing[1].Message)
	assert.Equal(t, []string{"author", "name"}, d.Missing[1].Path)
	assert.Equal(t, ir.IRObject{
		"author": ir.IRObject{"name": ir.IRString("Can't find field 'name' on object Author:1")},
	}, d.Missing[1].Missing)
}

func TestDiff_IncompleteDropsResultWithoutPartialData(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Write(ctx, ir.Record{ID: "Item:1", Typename: "Item", Fields: ir.IRObject{"id": ir.IRInt(1)}}))

	d, err := c.Diff(ctx, diffOpts("Item:1", itemFragment()))
	require.NoError(t, err)
	assert.False(t, d.Complete)
	assert.Nil(t, d.Result)
	assert.NotEmpty(t, d.Missing)
}

func TestDiff_DanglingRoot(t *testing.T) {
	c, _ := newTestCache(t)

	opts := diffOpts("Item:404", itemFragment())
	opts.ReturnPartialData = true
	d, err := c.Diff(context.Background(), opts)
	require.NoError(t, err)

	msg := ir.IRString("Dangling reference to missing Item:404 object")
	assert.False(t, d.Complete)
	assert.Nil(t, d.Result)
	require.Len(t, d.Missing, 1)
	assert.Equal(t, string(msg), d.Missing[0].Message)
	assert.Equal(t, ir.IRObject{"id": msg, "text": msg, "author": msg}, d.Missing[0].Missing)
}

func TestDiff_DanglingNestedReference(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Write(ctx, item(1, "hello", "Author:9")))

	opts := diffOpts("Item:1", itemFragment())
	opts.ReturnPartialData = true
	d, err := c.Diff(ctx, opts)
	require.NoError(t, err)

	assert.False(t, d.Complete)
	assert.Equal(t, ir.IRObject{"id": ir.IRInt(1), "text": ir.IRString("hello")}, d.Result)
	require.Len(t, d.Missing, 1)
	assert.Equal(t, ir.IRObject{"author": ir.IRString("Dangling reference to missing Author:9 object")}, d.Missing[0].Missing)
}

func TestDiff_TypenameAndAlias(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Write(ctx, item(1, "hello", "")))

	frag := &ir.Fragment{Name: "F", TypeCondition: "Item", Selections: ir.SelectionSet{
		{Name: "__typename"},
		{Name: "text", Alias: "body"},
	}}
	d, err := c.Diff(ctx, diffOpts("Item:1", frag))
	require.NoError(t, err)
	assert.True(t, d.Complete)
	assert.Equal(t, ir.IRObject{"__typename": ir.IRString("Item"), "body": ir.IRString("hello")}, d.Result)
}

func TestDiff_ArgumentsAndVariables(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Write(ctx, ir.Record{ID: "Item:1", Typename: "Item", Fields: ir.IRObject{
		`price({"currency":"EUR"})`: ir.IRInt(10),
		`price({"currency":"USD"})`: ir.IRInt(12),
	}}))

	frag := &ir.Fragment{Name: "F", TypeCondition: "Item", Selections: ir.SelectionSet{
		{Name: "price", Args: ir.IRObject{"currency": ir.IRString("$currency")}},
	}}

	opts := diffOpts("Item:1", frag)
	opts.Variables = ir.IRObject{"currency": ir.IRString("USD")}
	d, err := c.Diff(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"price": ir.IRInt(12)}, d.Result)

	opts.Variables = ir.IRObject{"currency": ir.IRString("EUR")}
	d, err = c.Diff(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"price": ir.IRInt(10)}, d.Result)

	opts.Variables = nil
	_, err = c.Diff(ctx, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `variable "currency" is not defined`)
}

func TestDiff_ListsDropDanglingReferences(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Write(ctx,
		ir.Record{ID: "List:1", Typename: "List", Fields: ir.IRObject{
			"items": ir.IRArray{ir.NewReference("Item:1"), ir.NewReference("Item:2"), ir.NewReference("Item:3")},
		}},
		item(1, "one", ""),
		ir.Record{ID: "Item:3", Typename: "Item", Fields: ir.IRObject{"id": ir.IRInt(3)}},
	))

	frag := &ir.Fragment{Name: "L", TypeCondition: "List", Selections: ir.SelectionSet{
		{Name: "items", Selections: ir.SelectionSet{{Name: "text"}}},
	}}
	opts := diffOpts("List:1", frag)
	opts.ReturnPartialData = true
	d, err := c.Diff(ctx, opts)
	require.NoError(t, err)

	assert.False(t, d.Complete)
	assert.Equal(t, ir.IRObject{"items": ir.IRArray{
		ir.IRObject{"text": ir.IRString("one")},
		ir.IRObject{},
	}}, d.Result)
	require.Len(t, d.Missing, 1)
	assert.Equal(t, ir.IRObject{"items": ir.IRObject{
		"1": ir.IRObject{"text": ir.IRString("Can't find field 'text' on object Item:3")},
	}}, d.Missing[0].Missing)
	assert.Equal(t, []string{"items", "1", "text"}, d.Missing[0].Path)
}

func TestDiff_NullAndEmbeddedObjects(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Write(ctx, ir.Record{ID: "Item:1", Typename: "Item", Fields: ir.IRObject{
		"author": ir.IRNull{},
		"meta":   ir.IRObject{"__typename": ir.IRString("Meta"), "tags": ir.IRArray{ir.IRString("a")}},
	}}))

	frag := &ir.Fragment{Name: "F", TypeCondition: "Item", Selections: ir.SelectionSet{
		{Name: "author", Selections: ir.SelectionSet{{Name: "name"}}},
		{Name: "meta", Selections: ir.SelectionSet{{Name: "__typename"}, {Name: "tags"}, {Name: "score"}}},
	}}
	opts := diffOpts("Item:1", frag)
	opts.ReturnPartialData = true
	d, err := c.Diff(ctx, opts)
	require.NoError(t, err)

	assert.False(t, d.Complete)
	assert.Equal(t, ir.IRObject{
		"author": ir.IRNull{},
		"meta":   ir.IRObject{"__typename": ir.IRString("Meta"), "tags": ir.IRArray{ir.IRString("a")}},
	}, d.Result)
	require.Len(t, d.Missing, 1)
	assert.Equal(t, "Can't find field 'score' on embedded object", d.Missing[0].Message)
}

func TestDiff_ResultDoesNotAliasStore(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.RecordOptimistic("l1", ir.Record{ID: "Item:1", Typename: "Item", Fields: ir.IRObject{
		"tags": ir.IRArray{ir.IRString("a")},
	}}))

	frag := &ir.Fragment{Name: "F", TypeCondition: "Item", Selections: ir.SelectionSet{{Name: "tags"}}}
	d, err := c.Diff(ctx, diffOpts("Item:1", frag))
	require.NoError(t, err)
	d.Result["tags"].(ir.IRArray)[0] = ir.IRString("mutated")

	again, err := c.Diff(ctx, diffOpts("Item:1", frag))
	require.NoError(t, err)
	assert.Equal(t, ir.IRArray{ir.IRString("a")}, again.Result["tags"])
}

func TestDiff_CanonizeResults(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.RecordOptimistic("l1", ir.Record{ID: "Item:1", Typename: "Item", Fields: ir.IRObject{
		"text": ir.IRString("cafe\u0301"),
	}}))

	frag := &ir.Fragment{Name: "F", TypeCondition: "Item", Selections: ir.SelectionSet{{Name: "text"}}}
	opts := diffOpts("Item:1", frag)

	d, err := c.Diff(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("cafe\u0301"), d.Result["text"])

	opts.CanonizeResults = true
	d, err = c.Diff(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("caf\u00e9"), d.Result["text"])
}

func TestDiff_OptimisticLayers(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Write(ctx, item(1, "stored", "")))
	require.NoError(t, c.RecordOptimistic("edit", ir.Record{ID: "Item:1", Fields: ir.IRObject{"text": ir.IRString("pending")}}))

	frag := &ir.Fragment{Name: "F", TypeCondition: "Item", Selections: ir.SelectionSet{{Name: "text"}}}

	d, err := c.Diff(ctx, diffOpts("Item:1", frag))
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("pending"), d.Result["text"])

	nonOptimistic := diffOpts("Item:1", frag)
	nonOptimistic.Optimistic = false
	d, err = c.Diff(ctx, nonOptimistic)
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("stored"), d.Result["text"])

	removed, err := c.RemoveOptimistic("edit")
	require.NoError(t, err)
	assert.True(t, removed)

	d, err = c.Diff(ctx, diffOpts("Item:1", frag))
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("stored"), d.Result["text"])

	removed, err = c.RemoveOptimistic("edit")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDiff_OptimisticOnlyRecord(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.RecordOptimistic("new", ir.Record{ID: "Item:5", Typename: "Item", Fields: ir.IRObject{"text": ir.IRString("draft")}}))

	frag := &ir.Fragment{Name: "F", TypeCondition: "Item", Selections: ir.SelectionSet{{Name: "__typename"}, {Name: "text"}}}
	d, err := c.Diff(ctx, diffOpts("Item:5", frag))
	require.NoError(t, err)
	assert.True(t, d.Complete)
	assert.Equal(t, ir.IRObject{"__typename": ir.IRString("Item"), "text": ir.IRString("draft")}, d.Result)
}

func TestDiff_RequiresFragmentAndID(t *testing.T) {
	c, _ := newTestCache(t)

	_, err := c.Diff(context.Background(), ir.DiffOptions{ID: "Item:1"})
	assert.Error(t, err)

	_, err = c.Diff(context.Background(), ir.DiffOptions{Fragment: itemFragment()})
	assert.Error(t, err)
}
