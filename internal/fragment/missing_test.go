package fragment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/fragwatch/internal/ir"
)

func missingFragment(tree ir.IRObject) ir.MissingError {
	return ir.MissingError{Message: "missing", Missing: tree}
}

func TestMergeMissing(t *testing.T) {
	tests := []struct {
		name  string
		input []ir.MissingError
		want  ir.IRObject
	}{
		{
			name:  "nil input is absent",
			input: nil,
			want:  nil,
		},
		{
			name:  "empty input is absent",
			input: []ir.MissingError{},
			want:  nil,
		},
		{
			name: "sibling paths merge",
			input: []ir.MissingError{
				missingFragment(ir.IRObject{"a": ir.IRObject{"b": ir.IRString("x")}}),
				missingFragment(ir.IRObject{"a": ir.IRObject{"c": ir.IRString("y")}}),
			},
			want: ir.IRObject{"a": ir.IRObject{"b": ir.IRString("x"), "c": ir.IRString("y")}},
		},
		{
			name: "later scalar overwrites",
			input: []ir.MissingError{
				missingFragment(ir.IRObject{"a": ir.IRString("first")}),
				missingFragment(ir.IRObject{"a": ir.IRString("second")}),
			},
			want: ir.IRObject{"a": ir.IRString("second")},
		},
		{
			name: "object replaces scalar",
			input: []ir.MissingError{
				missingFragment(ir.IRObject{"a": ir.IRString("first")}),
				missingFragment(ir.IRObject{"a": ir.IRObject{"b": ir.IRString("x")}}),
			},
			want: ir.IRObject{"a": ir.IRObject{"b": ir.IRString("x")}},
		},
		{
			name: "scalar replaces object",
			input: []ir.MissingError{
				missingFragment(ir.IRObject{"a": ir.IRObject{"b": ir.IRString("x")}}),
				missingFragment(ir.IRObject{"a": ir.IRString("second")}),
			},
			want: ir.IRObject{"a": ir.IRString("second")},
		},
		{
			name: "fragments without trees give an empty tree",
			input: []ir.MissingError{
				{Message: "no tree"},
			},
			want: ir.IRObject{},
		},
		{
			name: "nil nested tree",
			input: []ir.MissingError{
				missingFragment(ir.IRObject{"a": ir.IRObject(nil)}),
				missingFragment(ir.IRObject{"a": ir.IRObject{"b": ir.IRString("x")}}),
			},
			want: ir.IRObject{"a": ir.IRObject{"b": ir.IRString("x")}},
		},
		{
			name: "deep merge",
			input: []ir.MissingError{
				missingFragment(ir.IRObject{"a": ir.IRObject{"b": ir.IRObject{"c": ir.IRString("1")}}}),
				missingFragment(ir.IRObject{"a": ir.IRObject{"b": ir.IRObject{"d": ir.IRString("2")}}, "e": ir.IRString("3")}),
			},
			want: ir.IRObject{
				"a": ir.IRObject{"b": ir.IRObject{"c": ir.IRString("1"), "d": ir.IRString("2")}},
				"e": ir.IRString("3"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeMissing(tt.input)
			assert.Equal(t, tt.want, got)
			if tt.want == nil {
				assert.Nil(t, got)
			}
		})
	}
}

func TestMergeMissing_DoesNotMutateInput(t *testing.T) {
	first := ir.IRObject{"a": ir.IRObject{"b": ir.IRString("x")}}
	second := ir.IRObject{"a": ir.IRObject{"c": ir.IRString("y")}}

	got := MergeMissing([]ir.MissingError{missingFragment(first), missingFragment(second)})

	assert.Equal(t, ir.IRObject{"a": ir.IRObject{"b": ir.IRString("x")}}, first)
	assert.Equal(t, ir.IRObject{"a": ir.IRObject{"c": ir.IRString("y")}}, second)

	// The output owns its maps.
	got["a"].(ir.IRObject)["z"] = ir.IRString("new")
	assert.NotContains(t, first["a"].(ir.IRObject), "z")
}

func TestMergeMissing_Associative(t *testing.T) {
	a := missingFragment(ir.IRObject{"x": ir.IRObject{"a": ir.IRString("1")}})
	b := missingFragment(ir.IRObject{"x": ir.IRObject{"b": ir.IRString("2")}, "y": ir.IRString("3")})
	c := missingFragment(ir.IRObject{"x": ir.IRObject{"a": ir.IRString("4")}})

	all := MergeMissing([]ir.MissingError{a, b, c})
	left := MergeMissing([]ir.MissingError{missingFragment(MergeMissing([]ir.MissingError{a, b})), c})
	right := MergeMissing([]ir.MissingError{a, missingFragment(MergeMissing([]ir.MissingError{b, c}))})

	assert.Equal(t, all, left)
	assert.Equal(t, all, right)
	assert.Equal(t, ir.IRString("4"), all["x"].(ir.IRObject)["a"])
}
