// Package adminapi exposes a thin HTTP surface over a reconciliation
// service, for observability and manual operation. It owns no state of its
// own: every handler delegates straight to the underlying
// internal/reconcile.Service, the way torua's cmd/node handlers delegate to
// a shard rather than keeping a second copy of the data.
//
//	GET    /health        liveness only
//	GET    /store         list all live keys
//	GET    /store/{key}   fetch a value, 404 if absent or tombstoned
//	PUT    /store/{key}   insert/replace a value, timestamped now
//	DELETE /store/{key}   tombstone a value, timestamped now
//	GET    /peers         snapshot of the peer directory
//	GET    /stats         entry count, root hash, operation counters
package adminapi
