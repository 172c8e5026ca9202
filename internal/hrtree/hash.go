package hrtree

import (
	"encoding"

	"github.com/cespare/xxhash/v2"
)

// Less reports whether a sorts before b. Tree never assumes K is ordered or
// comparable on its own; every lookup and insert goes through this function.
type Less[K any] func(a, b K) bool

// HashKV produces the per-entry digest that Tree caches and XORs together
// for range-hash queries. Two calls with equal (key, value) pairs must
// return equal hashes; that is the only contract the tree relies on.
type HashKV[K any, V any] func(key K, value V) uint64

// Marshalable is satisfied by types DefaultHashKV can hash.
type Marshalable interface {
	encoding.BinaryMarshaler
}

// DefaultHashKV hashes a key/value pair by feeding the key's and then the
// value's binary encoding into a single xxhash digest. It is grounded on the
// original implementation's "hash the key, then the value, into one hasher"
// shape and is a reasonable default whenever K and V are already
// BinaryMarshaler.
func DefaultHashKV[K Marshalable, V Marshalable](key K, value V) uint64 {
	d := xxhash.New()
	if kb, err := key.MarshalBinary(); err == nil {
		_, _ = d.Write(kb)
	}
	if vb, err := value.MarshalBinary(); err == nil {
		_, _ = d.Write(vb)
	}
	return d.Sum64()
}
