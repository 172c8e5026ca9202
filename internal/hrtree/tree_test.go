package hrtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intLess(a, b int) bool { return a < b }

func intHash(k int, v string) uint64 {
	var h uint64 = 14695981039346656037
	for _, b := range []byte(v) {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return h ^ uint64(k)*2654435761
}

func newIntTree() *Tree[int, string] {
	return New[int, string](intLess, intHash)
}

func TestTreeInsertGetReplace(t *testing.T) {
	tr := newIntTree()
	_, existed := tr.Insert(1, "a")
	assert.False(t, existed)
	_, existed = tr.Insert(2, "b")
	assert.False(t, existed)

	v, ok := tr.Get(1)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	prev, existed := tr.Insert(1, "aa")
	assert.True(t, existed)
	assert.Equal(t, "a", prev)

	v, ok = tr.Get(1)
	require.True(t, ok)
	assert.Equal(t, "aa", v)

	_, ok = tr.Get(99)
	assert.False(t, ok)
}

func TestTreeManyInsertionsPreserveOrderAndSize(t *testing.T) {
	tr := newIntTree()
	const n = 500
	for i := 0; i < n; i++ {
		// insert out of order to exercise splits on both sides of a node
		key := (i * 37) % n
		tr.Insert(key, "v")
	}
	assert.Equal(t, n, tr.Len())
	for i := 0; i < n; i++ {
		_, ok := tr.Get(i)
		assert.True(t, ok, "missing key %d", i)
	}
	prev := -1
	for i := 0; i < tr.Len(); i++ {
		k, ok := tr.KeyAt(i)
		require.True(t, ok)
		assert.Greater(t, k, prev)
		prev = k
	}
}

func TestTreeHashIsOrderIndependent(t *testing.T) {
	a := newIntTree()
	b := newIntTree()
	for i := 0; i < 200; i++ {
		a.Insert(i, "x")
	}
	for i := 199; i >= 0; i-- {
		b.Insert(i, "x")
	}
	assert.Equal(t, a.Hash(0, a.Len()), b.Hash(0, b.Len()))
}

func TestTreeHashChangesOnMutation(t *testing.T) {
	tr := newIntTree()
	for i := 0; i < 50; i++ {
		tr.Insert(i, "x")
	}
	h1 := tr.Hash(0, tr.Len())
	tr.Insert(25, "changed")
	h2 := tr.Hash(0, tr.Len())
	assert.NotEqual(t, h1, h2)
}

func TestTreeHashRangeMatchesFullWhenUnbounded(t *testing.T) {
	tr := newIntTree()
	for i := 0; i < 100; i++ {
		tr.Insert(i, "x")
	}
	assert.Equal(t, tr.Hash(0, 100), tr.Hash(-10, 1000))
}

func TestTreeHashOfSubrangeIsPartial(t *testing.T) {
	tr := newIntTree()
	for i := 0; i < 40; i++ {
		tr.Insert(i, "x")
	}
	left := tr.Hash(0, 20)
	right := tr.Hash(20, 40)
	whole := tr.Hash(0, 40)
	assert.Equal(t, whole, left^right)
}

func TestTreeRemove(t *testing.T) {
	tr := newIntTree()
	const n = 300
	for i := 0; i < n; i++ {
		tr.Insert(i, "x")
	}
	for i := 0; i < n; i += 2 {
		v, ok := tr.Remove(i)
		require.True(t, ok)
		assert.Equal(t, "x", v)
	}
	assert.Equal(t, n/2, tr.Len())
	for i := 0; i < n; i++ {
		_, ok := tr.Get(i)
		if i%2 == 0 {
			assert.False(t, ok)
		} else {
			assert.True(t, ok)
		}
	}
	_, ok := tr.Remove(1)
	assert.True(t, ok)
	_, ok = tr.Remove(1)
	assert.False(t, ok)
}

func TestTreeRemoveAllLeavesEmptyTree(t *testing.T) {
	tr := newIntTree()
	for i := 0; i < 100; i++ {
		tr.Insert(i, "x")
	}
	for i := 0; i < 100; i++ {
		_, ok := tr.Remove(i)
		require.True(t, ok)
	}
	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, uint64(0), tr.Hash(0, 0))
}

func TestTreeInsertionPosition(t *testing.T) {
	tr := newIntTree()
	for _, k := range []int{10, 20, 30, 40, 50} {
		tr.Insert(k, "x")
	}
	assert.Equal(t, 0, tr.InsertionPosition(5))
	assert.Equal(t, 2, tr.InsertionPosition(30))
	assert.Equal(t, 5, tr.InsertionPosition(100))
}
