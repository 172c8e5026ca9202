package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/reconcile/internal/diff"
	"github.com/dreamware/reconcile/internal/hrtree"
)

func intLess(a, b int) bool { return a < b }

func intHash(k int, v int) uint64 {
	return uint64(k)*2654435761 ^ uint64(v)*40503
}

func newTree() *hrtree.Tree[int, int] {
	return hrtree.New[int, int](intLess, intHash)
}

// keysInRange reads every key the local tree holds in the given index
// range; used by tests to turn a diff.Range into concrete entries, the way
// package reconcile's enumerateRangeLocked does for real.
func keysInRange(tr *hrtree.Tree[int, int], r diff.Range[int]) []int {
	start := 0
	if r.Start.Kind == diff.Included {
		start = tr.InsertionPosition(r.Start.Key)
	}
	end := tr.Len()
	if r.End.Kind == diff.Excluded {
		end = tr.InsertionPosition(r.End.Key)
	}
	var out []int
	for i := start; i < end; i++ {
		k, ok := tr.KeyAt(i)
		if ok {
			out = append(out, k)
		}
	}
	return out
}

// converge runs the reconciliation loop between two trees to completion and
// copies every differing entry in both directions, simulating what the
// reconciliation service's event loop does over UDP.
func converge(t *testing.T, a, b *hrtree.Tree[int, int]) {
	t.Helper()
	segments := []diff.HashSegment[int]{diff.Start[int](a)}
	for len(segments) > 0 {
		var diffsB, diffsA []diff.Range[int]
		segments, diffsB = diff.Round[int](b, segments)
		for _, r := range diffsB {
			for _, k := range keysInRange(b, r) {
				if v, ok := b.Get(k); ok {
					a.Insert(k, v)
				}
			}
		}
		segments, diffsA = diff.Round[int](a, segments)
		for _, r := range diffsA {
			for _, k := range keysInRange(a, r) {
				if v, ok := a.Get(k); ok {
					b.Insert(k, v)
				}
			}
		}
	}
}

func TestRoundNoDifferenceProducesNothing(t *testing.T) {
	a := newTree()
	b := newTree()
	for i := 0; i < 50; i++ {
		a.Insert(i, i)
		b.Insert(i, i)
	}
	out, diffs := diff.Round[int](b, []diff.HashSegment[int]{diff.Start[int](a)})
	assert.Empty(t, out)
	assert.Empty(t, diffs)
}

func TestConvergeSingleKeyMismatch(t *testing.T) {
	a := newTree()
	b := newTree()
	for i := 0; i < 100; i++ {
		a.Insert(i, i)
		b.Insert(i, i)
	}
	a.Insert(42, 999)

	converge(t, a, b)

	va, _ := a.Get(42)
	vb, _ := b.Get(42)
	assert.Equal(t, va, vb)
	assert.Equal(t, a.Hash(0, a.Len()), b.Hash(0, b.Len()))
}

func TestConvergeTailMismatch(t *testing.T) {
	a := newTree()
	b := newTree()
	for i := 0; i < 50; i++ {
		a.Insert(i, i)
		b.Insert(i, i)
	}
	for i := 50; i < 60; i++ {
		a.Insert(i, i)
	}

	converge(t, a, b)

	require.Equal(t, a.Len(), b.Len())
	assert.Equal(t, a.Hash(0, a.Len()), b.Hash(0, b.Len()))
}

func TestConvergeEmptyPeerFillsUp(t *testing.T) {
	a := newTree()
	b := newTree()
	for i := 0; i < 1000; i++ {
		a.Insert(i, i)
	}

	converge(t, a, b)

	assert.Equal(t, 1000, b.Len())
	assert.Equal(t, a.Hash(0, a.Len()), b.Hash(0, b.Len()))
}
