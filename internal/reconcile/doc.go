// Package reconcile wraps a Hash-Range Tree (internal/hrtree) in a UDP
// service that keeps it synchronized with a set of peers running the same
// protocol, using range-based set reconciliation (internal/diff) to find
// where two replicas disagree and last-writer-wins timestamps to resolve
// concurrent writes.
//
// # Architecture
//
//	┌──────────────────────────────────────────────┐
//	│                  Service[K,V]                 │
//	├──────────────────────────────────────────────┤
//	│  hrtree.Tree[K, TimedValue[V]]  (the data)    │
//	│  peerDirectory                  (who to talk  │
//	│                                  to, TTL'd)   │
//	│  tombstoneWheel                 (when to      │
//	│                                  forget a     │
//	│                                  deletion)    │
//	├──────────────────────────────────────────────┤
//	│  UDP event loop:                              │
//	│    - idle timeout  -> start a diff round       │
//	│    - datagram recv -> diff.Round / apply       │
//	│  tombstone sweeper (ticker)                   │
//	└──────────────────────────────────────────────┘
//
// Insert/Remove/InsertBulk/RemoveBulk apply locally under a write lock and
// asynchronously broadcast the change to known peers; Get/Keys/Len/Hash only
// ever touch the local tree. Local writes are applied as given, whatever the
// stored timestamp; remote updates arriving over UDP are applied only if
// their timestamp is strictly later than the stored one (last-writer-wins).
package reconcile
