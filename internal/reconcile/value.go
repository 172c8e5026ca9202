package reconcile

import "time"

// TimedValue pairs a value with the timestamp it was written at, plus a
// tombstone marker for deletions. It is what actually lives in the
// Hash-Range Tree; Service's public API deals in the bare V and hides this
// wrapper from callers.
type TimedValue[V any] struct {
	Timestamp time.Time
	Value     V
	Tombstone bool
}

// newerThan reports whether t should win over other under last-writer-wins
// semantics. Ties are broken in favor of the existing value: a remote update
// with the exact same timestamp as what's already stored never displaces it,
// which keeps convergence deterministic without needing a secondary
// tie-break field on the wire.
func (t TimedValue[V]) newerThan(other TimedValue[V]) bool {
	return t.Timestamp.After(other.Timestamp)
}
