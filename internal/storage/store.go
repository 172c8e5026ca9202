// Package storage defines the abstract storage interface; its implementation
// lives in internal/adminapi. See doc.go for complete package documentation.
package storage

import (
	"errors"
)

// ErrKeyNotFound is returned when a key has no live value: either it was
// never written, or its most recent write (by last-writer-wins timestamp)
// was a delete. Callers should check for this specific error to distinguish
// a missing key from an actual storage failure.
//
// Usage pattern:
//
//	value, err := store.Get("key")
//	if err == storage.ErrKeyNotFound {
//	    // Handle missing key case
//	} else if err != nil {
//	    // Handle other errors
//	}
var ErrKeyNotFound = errors.New("key not found")

// Store defines the interface for key-value storage operations, providing a
// consistent API across different storage backends while ensuring
// thread-safety for concurrent access.
//
// This is not an atomic, single-writer key-value store: the only
// implementation, StoreAdapter, sits on top of a replica that reconciles
// with peers over UDP and resolves conflicting writes by last-writer-wins
// timestamp. That has consequences callers need to keep in mind:
//   - A Put that returns nil has been applied to the local in-memory
//     replica; it is broadcast to known peers asynchronously and otherwise
//     reaches them through later reconciliation rounds, not necessarily
//     before it returns.
//   - A concurrent Put for the same key from another replica can still
//     win and overwrite this one, if it carries a later timestamp.
//   - Delete does not erase history immediately; it records a tombstone
//     that is kept around (and replicated) for a bounded grace period so
//     that other replicas which haven't seen the delete yet don't
//     resurrect the key, then is garbage collected.
//
// All implementations must guarantee:
//   - Thread-safety for all operations
//   - Consistent error handling (especially ErrKeyNotFound)
//   - No data corruption under concurrent access
//
// Implementation notes:
//   - Keys are strings for simplicity and compatibility
//   - Values are byte slices for flexibility
//   - All operations should be synchronous from the caller's point of view,
//     even though convergence with other replicas happens asynchronously
type Store interface {
	// Get retrieves the current live value by key from the store.
	//
	// Behavior:
	//   - Returns the value associated with the key
	//   - Returns ErrKeyNotFound if the key doesn't exist or is tombstoned
	//   - Should return a copy of the value to prevent external modification
	//   - Must not return nil value with nil error
	//
	// Thread-safety:
	//   - Safe for concurrent calls
	//   - May observe a value that a concurrent reconciliation round is
	//     about to overwrite with a newer remote write
	//
	// Parameters:
	//   - key: The key to retrieve (must not be empty)
	//
	// Returns:
	//   - Value bytes if key exists (may be empty/nil)
	//   - ErrKeyNotFound if key doesn't exist
	//   - Other error for storage failures
	Get(key string) ([]byte, error)

	// Put stores a value with the given key, creating a new entry or
	// updating an existing one, stamped with the current time for
	// last-writer-wins conflict resolution.
	//
	// Behavior:
	//   - Creates new entry if key doesn't exist
	//   - Overwrites existing value if key exists
	//   - Should store a copy of the value to prevent external modification
	//   - Empty/nil values are valid and should be stored
	//   - Is broadcast to known peers; does not wait for their acknowledgment
	//
	// Thread-safety:
	//   - Safe for concurrent calls
	//   - Operations on different keys may proceed in parallel
	//
	// Parameters:
	//   - key: The key to store (must not be empty)
	//   - value: The value to store (may be empty/nil)
	//
	// Returns:
	//   - nil on success
	//   - Error if storage operation fails
	Put(key string, value []byte) error

	// Delete tombstones a key-value pair in the store.
	//
	// Behavior:
	//   - Marks the key-value pair deleted if it exists
	//   - No error if key doesn't exist (idempotent)
	//   - The tombstone itself is retained and replicated for a bounded
	//     grace period before being forgotten, not removed instantly
	//   - Must not affect other keys
	//
	// Thread-safety:
	//   - Safe for concurrent calls
	//
	// Parameters:
	//   - key: The key to delete (any string)
	//
	// Returns:
	//   - nil on success (even if key didn't exist)
	//   - Error only if storage operation fails
	Delete(key string) error

	// List returns all live (non-tombstoned) keys in the store.
	//
	// Behavior:
	//   - Returns snapshot of keys at call time
	//   - Order is not guaranteed (implementation-dependent)
	//   - Should return empty slice if store is empty (not nil)
	//   - Keys may be added/removed during iteration
	//
	// Thread-safety:
	//   - Safe for concurrent calls
	//   - Returned slice is independent of store state
	//
	// Returns:
	//   - Slice containing all live keys (may be empty)
	//   - Never returns nil
	List() []string

	// Stats returns storage statistics for monitoring and capacity planning.
	//
	// Behavior:
	//   - Returns current statistics snapshot
	//   - Values may be approximate for performance
	//   - Safe to call frequently, but implementations may need to scan
	//     every key to compute Bytes; callers should not assume O(1)
	//
	// Thread-safety:
	//   - Safe for concurrent calls
	//   - May briefly lock internal structures
	//
	// Returns:
	//   - StoreStats with current metrics
	Stats() StoreStats
}

// StoreStats contains statistics about the store, providing visibility into
// resource usage and capacity for monitoring and optimization.
//
// Statistics are point-in-time snapshots that may become stale immediately
// in concurrent environments, and become stale further still as
// reconciliation with peers continues in the background. They should be
// used for monitoring trends rather than exact accounting.
type StoreStats struct {
	// Keys is the number of live keys in the store. Tombstoned keys not
	// yet garbage collected are not counted.
	Keys int

	// Bytes is the total size of all live values in bytes. Does not
	// include key size, tombstone overhead, or internal tree overhead.
	Bytes int
}
