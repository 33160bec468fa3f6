package fragment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fragwatch/internal/ir"
)

func TestProject_Complete(t *testing.T) {
	d := completeDiff("hello")
	r := Project(d, nil)

	assert.Equal(t, d.Result, r.Data)
	assert.True(t, r.Complete)
	assert.Nil(t, r.Missing, "missing is absent for a complete diff")
	assert.Nil(t, r.PreviousResult)
	assert.Same(t, r, r.LastCompleteResult)
}

func TestProject_Incomplete(t *testing.T) {
	r := Project(partialDiff(), nil)

	assert.False(t, r.Complete)
	assert.Equal(t, ir.IRObject{"text": ir.IRString("Can't find field 'text' on object Item:1")}, r.Missing)
	assert.Nil(t, r.PreviousResult)
	assert.Nil(t, r.LastCompleteResult, "no complete result in history")
}

func TestProject_EmptyMissingSliceIsAbsent(t *testing.T) {
	r := Project(ir.Diff{Complete: false, Missing: []ir.MissingError{}}, nil)
	assert.Nil(t, r.Missing)
	assert.Nil(t, r.Data)
}

func TestProject_HistoryLinkage(t *testing.T) {
	r1 := Project(completeDiff("one"), nil)
	r2 := Project(partialDiff(), r1)
	r3 := Project(partialDiff(), r2)

	assert.Same(t, r1, r2.LastCompleteResult)
	assert.Same(t, r1, r3.LastCompleteResult)
	assert.Same(t, r2, r3.PreviousResult)
	assert.Same(t, r1, r2.PreviousResult)
	assert.Equal(t, 3, r3.Depth())
}

func TestProject_LastCompleteAdvances(t *testing.T) {
	r1 := Project(completeDiff("one"), nil)
	r2 := Project(partialDiff(), r1)
	r3 := Project(completeDiff("three"), r2)
	r4 := Project(partialDiff(), r3)

	assert.Same(t, r3, r3.LastCompleteResult)
	assert.Same(t, r3, r4.LastCompleteResult)
}

func TestProject_LastCompleteMonotonic(t *testing.T) {
	diffs := []ir.Diff{
		partialDiff(), partialDiff(), completeDiff("a"), partialDiff(),
		completeDiff("b"), partialDiff(), partialDiff(), completeDiff("c"),
	}

	var prev *Result
	var results []*Result
	index := map[*Result]int{}
	for i, d := range diffs {
		prev = Project(d, prev)
		results = append(results, prev)
		index[prev] = i
	}

	lastIdx := -1
	for i, r := range results {
		if r.LastCompleteResult == nil {
			require.Equal(t, -1, lastIdx, "result %d lost its last complete result", i)
			continue
		}
		idx := index[r.LastCompleteResult]
		require.GreaterOrEqual(t, idx, lastIdx, "result %d moved last complete backwards", i)
		require.True(t, r.LastCompleteResult.Complete)
		require.LessOrEqual(t, idx, i)
		lastIdx = idx
	}
}

func TestProject_DoesNotMutatePrevious(t *testing.T) {
	r1 := Project(partialDiff(), nil)
	snapshot := *r1

	Project(completeDiff("two"), r1)
	assert.Equal(t, snapshot, *r1)
}
