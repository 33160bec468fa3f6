package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fragwatch/internal/ir"
)

const itemDocument = `
fragment: ItemFields: {
	on: "Item"
	fields: {
		id:    true
		text:  true
		draft: false
		price: {args: {currency: "$currency", precision: 2}}
		author: {
			alias: "writer"
			fields: {
				id:   true
				name: true
			}
		}
	}
}

fragment: ItemTitle: {
	on: "Item"
	fields: title: true
}
`

func TestCompileSourceDocument(t *testing.T) {
	doc, err := CompileSource("items.cue", []byte(itemDocument))
	require.NoError(t, err)

	require.Equal(t, []string{"ItemFields", "ItemTitle"}, doc.Names())

	frag := doc.Fragments[0]
	assert.Equal(t, "Item", frag.TypeCondition)
	assert.Equal(t, ir.SelectionSet{
		{Name: "id"},
		{Name: "text"},
		{Name: "price", Args: ir.IRObject{"currency": ir.IRString("$currency"), "precision": ir.IRInt(2)}},
		{Name: "author", Alias: "writer", Selections: ir.SelectionSet{{Name: "id"}, {Name: "name"}}},
	}, frag.Selections)

	assert.Equal(t, ir.SelectionSet{{Name: "title"}}, doc.Fragments[1].Selections)
}

func TestCompileSourceUsesCUEUnification(t *testing.T) {
	src := `
#base: {id: true, __typename: true}
fragment: Author: {
	on: "Author"
	fields: #base & {name: true}
}
`
	doc, err := CompileSource("author.cue", []byte(src))
	require.NoError(t, err)
	assert.Len(t, doc.Fragments[0].Selections, 3)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{
			name:  "no fragments",
			src:   `other: 1`,
			field: "fragment",
		},
		{
			name:  "missing type condition",
			src:   `fragment: A: fields: id: true`,
			field: "fragment.A.on",
		},
		{
			name:  "missing fields",
			src:   `fragment: A: on: "Item"`,
			field: "fragment.A.fields",
		},
		{
			name:  "float argument",
			src:   `fragment: A: {on: "Item", fields: price: args: rate: 1.5}`,
			field: "fragment.A.fields.price.args.rate",
		},
		{
			name:  "non-concrete argument",
			src:   `fragment: A: {on: "Item", fields: price: args: rate: int}`,
			field: "fragment.A.fields.price.args.rate",
		},
		{
			name:  "bad field value",
			src:   `fragment: A: {on: "Item", fields: id: "yes"}`,
			field: "fragment.A.fields.id",
		},
		{
			name:  "duplicate response key",
			src:   `fragment: A: {on: "Item", fields: {id: true, other: {alias: "id"}}}`,
			field: "fragment.A.fields.other",
		},
		{
			name:  "empty nested selection",
			src:   `fragment: A: {on: "Item", fields: author: fields: {name: false}}`,
			field: "fragment.A.fields.author.fields",
		},
		{
			name:  "empty selection",
			src:   `fragment: A: {on: "Item", fields: {id: false}}`,
			field: "fragment.A.fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileSource("bad.cue", []byte(tt.src))
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "expected CompileError, got %T: %v", err, err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileSourceSyntaxError(t *testing.T) {
	_, err := CompileSource("broken.cue", []byte(`fragment: {`))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "cue", ce.Field)
}

func TestCompileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.cue")
	require.NoError(t, os.WriteFile(path, []byte(itemDocument), 0o644))

	doc, err := CompileFile(path)
	require.NoError(t, err)
	assert.Len(t, doc.Fragments, 2)

	_, err = CompileFile(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}

func TestCompileErrorFormatting(t *testing.T) {
	err := &CompileError{Field: "fragment.A", Message: "boom"}
	assert.Equal(t, "fragment.A: boom", err.Error())
}

func TestValidateNilDocument(t *testing.T) {
	assert.Error(t, Validate(nil))
	assert.Error(t, Validate(&ir.Document{Fragments: []ir.Fragment{{Name: "A", Selections: ir.SelectionSet{{Name: "id"}}}}}))
}
