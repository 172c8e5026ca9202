package reconcile

import (
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/reconcile/internal/hrtree"
)

// Default tunables, used whenever the corresponding Config field is left at
// its zero value.
const (
	DefaultTombstoneTimeout = 60 * time.Second
	DefaultReconcileIdle    = time.Second
	DefaultSweepInterval    = time.Second
	DefaultPeerTTL          = 60 * time.Second

	sendMaxAttempts    = 4
	sendRetryBaseDelay = time.Millisecond
)

// Update is a single key/value change, either applied locally or received
// from a peer.
type Update[K any, V any] struct {
	Key   K
	Value TimedValue[V]
}

// PreInsertHook runs synchronously, under the service's write lock, for
// every write the service applies — local or remote. It must not block or
// call back into the Service, since the write lock is held while it runs.
// oldValue is nil if the key had no live (non-tombstoned) value
// beforehand.
type PreInsertHook[K any, V any] func(key K, newValue V, oldValue *V)

// Config configures a Service. Less and HashKV are required; everything
// else has a usable default.
type Config[K any, V any] struct {
	// Port is the UDP port this instance listens on and assumes every peer
	// listens on too.
	Port uint16
	// ListenAddr is the local address to bind; nil binds all interfaces.
	ListenAddr net.IP
	// PeerNet, if set, is occasionally probed with a random address (see
	// genIP) to discover peers beyond the ones already known.
	PeerNet *net.IPNet
	// SeedPeer, if set, is added to the peer directory at startup so a
	// freshly started instance has someone to talk to immediately.
	SeedPeer net.IP

	TombstoneTimeout time.Duration
	ReconcileIdle    time.Duration
	SweepInterval    time.Duration
	PeerTTL          time.Duration

	PreInsertHook PreInsertHook[K, V]
	Less          hrtree.Less[K]
	HashKV        hrtree.HashKV[K, TimedValue[V]]

	Logger *zap.Logger
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
