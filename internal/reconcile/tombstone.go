package reconcile

import (
	"sync"
	"time"

	"github.com/google/btree"
)

// tombstoneWheel orders pending tombstone expirations by deadline so the
// sweeper can always ask "what's due now" in O(log n), mirroring the
// reference implementation's TimeoutWheel — a BTreeMap<deadline, key> plus a
// map<key, deadline> for O(1) removal-by-key — but built on
// github.com/google/btree rather than a hand-rolled ordered structure.
type tombstoneWheel[K comparable] struct {
	mu    sync.Mutex
	tree  *btree.BTreeG[tombstoneEntry[K]]
	index map[K]tombstoneEntry[K]
	seq   uint64
}

type tombstoneEntry[K comparable] struct {
	deadline time.Time
	seq      uint64 // breaks ties between equal deadlines deterministically
	key      K
}

func tombstoneLess[K comparable](a, b tombstoneEntry[K]) bool {
	if !a.deadline.Equal(b.deadline) {
		return a.deadline.Before(b.deadline)
	}
	return a.seq < b.seq
}

func newTombstoneWheel[K comparable]() *tombstoneWheel[K] {
	return &tombstoneWheel[K]{
		tree:  btree.NewG(32, tombstoneLess[K]),
		index: make(map[K]tombstoneEntry[K]),
	}
}

// insert schedules key to be forgotten at deadline, replacing any earlier
// schedule for the same key.
func (w *tombstoneWheel[K]) insert(key K, deadline time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if old, ok := w.index[key]; ok {
		w.tree.Delete(old)
	}
	w.seq++
	e := tombstoneEntry[K]{deadline: deadline, seq: w.seq, key: key}
	w.index[key] = e
	w.tree.ReplaceOrInsert(e)
}

// remove cancels any pending expiration for key.
func (w *tombstoneWheel[K]) remove(key K) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.index[key]; ok {
		w.tree.Delete(e)
		delete(w.index, key)
	}
}

// popExpired removes and returns the earliest-scheduled key if its deadline
// has passed, or ok=false if the wheel is empty or nothing is due yet.
func (w *tombstoneWheel[K]) popExpired(now time.Time) (key K, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tree.Ascend(func(e tombstoneEntry[K]) bool {
		if e.deadline.After(now) {
			return false
		}
		key, ok = e.key, true
		w.tree.Delete(e)
		delete(w.index, e.key)
		return false
	})
	return key, ok
}
