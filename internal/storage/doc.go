// Package storage defines the abstract key/value storage interface the rest
// of this repository programs against.
//
// Store exists as its own small package, separate from package reconcile,
// so that the admin HTTP surface (internal/adminapi) and any future storage
// backend can depend on the interface without depending on the
// reconciliation machinery itself. The only implementation in this
// repository is internal/adminapi.StoreAdapter, a thin shape-adapter over
// internal/reconcile.Service[string, []byte] — the Hash-Range Tree already
// is the store; StoreAdapter just presents its generic, bool-returning API
// through Store's narrower, error-returning one.
package storage
