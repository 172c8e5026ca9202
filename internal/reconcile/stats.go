package reconcile

import "sync/atomic"

// OperationStats holds cumulative operation counters for a Service, in the
// same spirit as the teacher codebase's per-shard operation counters:
// atomically updated, cheap to read, intended for a /stats endpoint rather
// than precise accounting.
type OperationStats struct {
	Inserts              uint64
	Removes              uint64
	Gets                 uint64
	RemoteUpdatesApplied uint64
}

// Snapshot returns a point-in-time copy of the counters, safe to read
// concurrently with ongoing increments.
func (s *OperationStats) Snapshot() OperationStats {
	return OperationStats{
		Inserts:              atomic.LoadUint64(&s.Inserts),
		Removes:              atomic.LoadUint64(&s.Removes),
		Gets:                 atomic.LoadUint64(&s.Gets),
		RemoteUpdatesApplied: atomic.LoadUint64(&s.RemoteUpdatesApplied),
	}
}
