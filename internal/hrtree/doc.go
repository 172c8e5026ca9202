// Package hrtree implements the Hash-Range Tree: a B-tree, ordered by key,
// whose every subtree caches the XOR of its entries' hashes and its entry
// count. Both caches are maintained incrementally on every mutation, which is
// what lets the diff engine in package diff compute the hash of an arbitrary
// contiguous range of entries in O(log n) instead of rehashing the range on
// every comparison round.
//
// The tree does not know how to hash a key/value pair itself; callers supply
// a HashKV function, and DefaultHashKV offers a ready-made one for types that
// implement encoding.BinaryMarshaler. Likewise ordering is supplied via a
// Less function rather than a constraint, since the zero-value comparable
// built-ins don't cover the ordered-key types this tree is meant to hold.
package hrtree
