package hrtree

import "sort"

// B is the tree's branching parameter: internal nodes hold between B-1 and
// 2B-1 entries, with the sole exception of the root, which may hold fewer.
const (
	B        = 6
	minKeys  = B - 1     // 5
	maxKeys  = 2*B - 1   // 11
)

type node[K any, V any] struct {
	keys     []K
	values   []V
	hashes   []uint64
	children []*node[K, V] // nil for leaves

	treeHash uint64 // XOR of every hash in this subtree, including this node's own entries
	treeSize int    // count of every entry in this subtree, including this node's own entries
}

func (n *node[K, V]) isLeaf() bool {
	return n.children == nil
}

// refreshHashSize recomputes treeHash/treeSize from this node's own entries
// and its children's cached aggregates. Used only right after a split, where
// entries moved around enough that incremental XOR bookkeeping would be
// error-prone to get right twice.
func (n *node[K, V]) refreshHashSize() {
	n.treeSize = len(n.keys)
	var h uint64
	for _, eh := range n.hashes {
		h ^= eh
	}
	for _, c := range n.children {
		h ^= c.treeHash
		n.treeSize += c.treeSize
	}
	n.treeHash = h
}

// search returns the index of key within n.keys, and whether it was found.
// When not found, index is where key would be inserted to keep keys sorted.
func (n *node[K, V]) search(less Less[K], key K) (index int, found bool) {
	idx := sort.Search(len(n.keys), func(i int) bool { return !less(n.keys[i], key) })
	if idx < len(n.keys) && !less(key, n.keys[idx]) {
		return idx, true
	}
	return idx, false
}

type splitInfo[K any, V any] struct {
	key   K
	value V
	hash  uint64
	right *node[K, V]
}

// insertAt inserts (key, value, hash) at position index, assumed already
// located by the caller, optionally pairing it with rightChild (used only
// when a child split promotes a separator up to its parent). If the node is
// already full it splits first, recursing into whichever half index now
// falls in, and returns the promoted middle entry for the caller to insert
// into its own parent.
func (n *node[K, V]) insertAt(index int, key K, value V, hash uint64, rightChild *node[K, V]) *splitInfo[K, V] {
	if len(n.keys) == maxKeys {
		mid := len(n.keys) / 2

		right := &node[K, V]{}
		right.keys = append(right.keys, n.keys[mid+1:]...)
		right.values = append(right.values, n.values[mid+1:]...)
		right.hashes = append(right.hashes, n.hashes[mid+1:]...)
		if n.children != nil {
			right.children = append(right.children, n.children[mid+1:]...)
		}

		midKey, midVal, midHash := n.keys[mid], n.values[mid], n.hashes[mid]
		n.keys = n.keys[:mid]
		n.values = n.values[:mid]
		n.hashes = n.hashes[:mid]
		if n.children != nil {
			n.children = n.children[:mid+1]
		}

		if index <= mid {
			if s := n.insertAt(index, key, value, hash, rightChild); s != nil {
				panic("hrtree: impossible double split of freshly split node")
			}
		} else {
			if s := right.insertAt(index-mid-1, key, value, hash, rightChild); s != nil {
				panic("hrtree: impossible double split of freshly split node")
			}
		}

		n.refreshHashSize()
		right.refreshHashSize()
		return &splitInfo[K, V]{key: midKey, value: midVal, hash: midHash, right: right}
	}

	n.keys = insertAtIndex(n.keys, index, key)
	n.values = insertAtIndex(n.values, index, value)
	n.hashes = insertAtIndex(n.hashes, index, hash)
	if rightChild != nil {
		n.children = insertAtIndex(n.children, index+1, rightChild)
	}
	n.treeSize++
	n.treeHash ^= hash
	return nil
}

type insertResult[K any, V any] struct {
	prevValue *V
	delta     uint64 // valid only when prevValue != nil: the XOR of the old and new hash
	split     *splitInfo[K, V]
}

// insertWithSearch inserts or replaces (key, value) under this node, which
// may be anywhere in the tree, and reports enough for every ancestor on the
// path back to the root to update its own treeHash/treeSize incrementally
// rather than by full recomputation.
func (n *node[K, V]) insertWithSearch(less Less[K], key K, value V, hash uint64) insertResult[K, V] {
	i, found := n.search(less, key)
	if found {
		oldHash := n.hashes[i]
		oldVal := n.values[i]
		n.values[i] = value
		n.hashes[i] = hash
		delta := oldHash ^ hash
		n.treeHash ^= delta
		return insertResult[K, V]{prevValue: &oldVal, delta: delta}
	}

	if n.isLeaf() {
		return insertResult[K, V]{split: n.insertAt(i, key, value, hash, nil)}
	}

	child := n.children[i].insertWithSearch(less, key, value, hash)
	switch {
	case child.prevValue != nil:
		n.treeHash ^= child.delta
		return insertResult[K, V]{prevValue: child.prevValue, delta: child.delta}
	case child.split != nil:
		s := child.split
		split := n.insertAt(i, s.key, s.value, s.hash, s.right)
		if split == nil {
			// insertAt XORed in the promoted entry as if it were new, but it
			// was already counted in this subtree; the new entry is key.
			n.treeHash ^= s.hash ^ hash
		}
		return insertResult[K, V]{split: split}
	default:
		n.treeSize++
		n.treeHash ^= hash
		return insertResult[K, V]{}
	}
}

// rightmostLeaf removes and returns the greatest entry in this subtree,
// updating size/hash caches and rebalancing along the path it descends.
func rightmostLeaf[K any, V any](n *node[K, V]) (K, V, uint64) {
	if n.isLeaf() {
		last := len(n.keys) - 1
		k, v, h := n.keys[last], n.values[last], n.hashes[last]
		n.keys = n.keys[:last]
		n.values = n.values[:last]
		n.hashes = n.hashes[:last]
		n.treeSize--
		n.treeHash ^= h
		return k, v, h
	}
	last := len(n.children) - 1
	k, v, h := rightmostLeaf(n.children[last])
	n.treeSize--
	n.treeHash ^= h
	n.rebalanceAfterDeletion(last)
	return k, v, h
}

// remove deletes key from this subtree if present, returning the removed
// entry's hash and value. Internal-node deletions are resolved by pulling up
// the in-order predecessor, exactly as in a classic B-tree delete.
func (n *node[K, V]) remove(less Less[K], key K) (uint64, *V, bool) {
	i, found := n.search(less, key)
	if found {
		if n.isLeaf() {
			v, h := n.values[i], n.hashes[i]
			n.keys = removeAtIndex(n.keys, i)
			n.values = removeAtIndex(n.values, i)
			n.hashes = removeAtIndex(n.hashes, i)
			n.treeSize--
			n.treeHash ^= h
			return h, &v, true
		}
		prevK, prevV, prevH := rightmostLeaf(n.children[i])
		oldV, oldH := n.values[i], n.hashes[i]
		n.keys[i] = prevK
		n.values[i] = prevV
		n.hashes[i] = prevH
		n.treeSize--
		n.treeHash ^= oldH
		n.rebalanceAfterDeletion(i)
		return oldH, &oldV, true
	}
	if n.isLeaf() {
		return 0, nil, false
	}
	h, v, ok := n.children[i].remove(less, key)
	if ok {
		n.treeSize--
		n.treeHash ^= h
	}
	n.rebalanceAfterDeletion(i)
	return h, v, ok
}

// rebalanceAfterDeletion restores the minKeys invariant on n.children[index]
// after it may have lost an entry, by stealing a separator from a sibling
// with room to spare, or merging with one otherwise.
func (n *node[K, V]) rebalanceAfterDeletion(index int) {
	if n.children == nil {
		return
	}
	if len(n.children[index].keys) >= minKeys {
		return
	}
	children := n.children

	if index > 0 && len(children[index-1].keys) > minKeys {
		left := children[index-1]
		last := len(left.keys) - 1
		k, v, h := left.keys[last], left.values[last], left.hashes[last]
		left.keys = left.keys[:last]
		left.values = left.values[:last]
		left.hashes = left.hashes[:last]
		left.treeSize--
		left.treeHash ^= h

		var stolen *node[K, V]
		if left.children != nil {
			lastChild := len(left.children) - 1
			stolen = left.children[lastChild]
			left.children = left.children[:lastChild]
			left.treeSize -= stolen.treeSize
			left.treeHash ^= stolen.treeHash
		}

		k, n.keys[index-1] = n.keys[index-1], k
		v, n.values[index-1] = n.values[index-1], v
		h, n.hashes[index-1] = n.hashes[index-1], h

		current := children[index]
		current.keys = insertAtIndex(current.keys, 0, k)
		current.values = insertAtIndex(current.values, 0, v)
		current.hashes = insertAtIndex(current.hashes, 0, h)
		current.treeSize++
		current.treeHash ^= h
		if stolen != nil {
			current.children = insertAtIndex(current.children, 0, stolen)
			current.treeSize += stolen.treeSize
			current.treeHash ^= stolen.treeHash
		}
		return
	}

	if index+1 < len(children) && len(children[index+1].keys) > minKeys {
		right := children[index+1]
		k, v, h := right.keys[0], right.values[0], right.hashes[0]
		right.keys = removeAtIndex(right.keys, 0)
		right.values = removeAtIndex(right.values, 0)
		right.hashes = removeAtIndex(right.hashes, 0)
		right.treeSize--
		right.treeHash ^= h

		var stolen *node[K, V]
		if right.children != nil {
			stolen = right.children[0]
			right.children = removeAtIndex(right.children, 0)
			right.treeSize -= stolen.treeSize
			right.treeHash ^= stolen.treeHash
		}

		k, n.keys[index] = n.keys[index], k
		v, n.values[index] = n.values[index], v
		h, n.hashes[index] = n.hashes[index], h

		current := children[index]
		current.keys = append(current.keys, k)
		current.values = append(current.values, v)
		current.hashes = append(current.hashes, h)
		current.treeSize++
		current.treeHash ^= h
		if stolen != nil {
			current.children = append(current.children, stolen)
			current.treeSize += stolen.treeSize
			current.treeHash ^= stolen.treeHash
		}
		return
	}

	var mergeInto int
	switch {
	case index > 0:
		mergeInto = index - 1
	case index+1 < len(children):
		mergeInto = index
	default:
		return // root with a single undersized child: nothing to merge with
	}

	current := children[mergeInto]
	right := children[mergeInto+1]
	k, v, h := n.keys[mergeInto], n.values[mergeInto], n.hashes[mergeInto]
	n.keys = removeAtIndex(n.keys, mergeInto)
	n.values = removeAtIndex(n.values, mergeInto)
	n.hashes = removeAtIndex(n.hashes, mergeInto)
	n.children = removeAtIndex(n.children, mergeInto+1)

	current.keys = append(current.keys, k)
	current.values = append(current.values, v)
	current.hashes = append(current.hashes, h)
	current.treeSize++
	current.treeHash ^= h

	current.keys = append(current.keys, right.keys...)
	current.values = append(current.values, right.values...)
	current.hashes = append(current.hashes, right.hashes...)
	if current.children != nil {
		current.children = append(current.children, right.children...)
	}
	current.treeSize += right.treeSize
	current.treeHash ^= right.treeHash
}

func insertAtIndex[T any](s []T, index int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[index+1:], s[index:])
	s[index] = v
	return s
}

func removeAtIndex[T any](s []T, index int) []T {
	copy(s[index:], s[index+1:])
	var zero T
	s[len(s)-1] = zero
	return s[:len(s)-1]
}
