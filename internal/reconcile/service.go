package reconcile

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/dreamware/reconcile/internal/diff"
	"github.com/dreamware/reconcile/internal/hrtree"
)

// Service wraps a Hash-Range Tree with a UDP transport that keeps it
// reconciled against a set of peers. Instantiated as Service[string, []byte],
// it is presented as an internal/storage.Store by adminapi.StoreAdapter.
//
// Thread safety: every exported method is safe for concurrent use. The tree
// itself is guarded by mu; the UDP socket, peer directory and tombstone
// wheel manage their own synchronization.
type Service[K comparable, V any] struct {
	mu   sync.RWMutex
	tree *hrtree.Tree[K, TimedValue[V]]

	conn *net.UDPConn
	port uint16

	peerNet *net.IPNet
	rngMu   sync.Mutex
	rng     *rand.Rand

	peers      *peerDirectory
	tombstones *tombstoneWheel[K]

	hook PreInsertHook[K, V]
	less hrtree.Less[K]

	stats OperationStats
	log   *zap.Logger

	tombstoneTimeout time.Duration
	reconcileIdle    time.Duration
	sweepInterval    time.Duration
}

// New binds the UDP socket and constructs a Service ready to Run. It does
// not start reconciling until Run is called.
func New[K comparable, V any](cfg Config[K, V]) (*Service[K, V], error) {
	if cfg.Less == nil || cfg.HashKV == nil {
		return nil, fmt.Errorf("reconcile: Config.Less and Config.HashKV are required")
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: cfg.ListenAddr, Port: int(cfg.Port)})
	if err != nil {
		return nil, fmt.Errorf("reconcile: listen udp :%d: %w", cfg.Port, err)
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	// The bound port may differ from cfg.Port when cfg.Port is 0 (bind any
	// free port); peer addresses are always resolved against the port this
	// socket actually ended up on.
	boundPort := uint16(conn.LocalAddr().(*net.UDPAddr).Port)

	s := &Service[K, V]{
		tree:             hrtree.New[K, TimedValue[V]](cfg.Less, cfg.HashKV),
		conn:             conn,
		port:             boundPort,
		peerNet:          cfg.PeerNet,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
		peers:            newPeerDirectory(orDefault(cfg.PeerTTL, DefaultPeerTTL)),
		tombstones:       newTombstoneWheel[K](),
		hook:             cfg.PreInsertHook,
		less:             cfg.Less,
		log:              log,
		tombstoneTimeout: orDefault(cfg.TombstoneTimeout, DefaultTombstoneTimeout),
		reconcileIdle:    orDefault(cfg.ReconcileIdle, DefaultReconcileIdle),
		sweepInterval:    orDefault(cfg.SweepInterval, DefaultSweepInterval),
	}
	if cfg.SeedPeer != nil {
		s.peers.touch(net.JoinHostPort(cfg.SeedPeer.String(), strconv.Itoa(int(boundPort))))
	}
	log.Debug("reconcile service listening", zap.Uint16("port", boundPort))
	return s, nil
}

// LocalAddr returns the address the UDP socket is actually bound to.
func (s *Service[K, V]) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Close releases the UDP socket. Run closes it automatically on return;
// Close exists for callers (tests, or a Service never handed to Run) that
// need to release the port without driving the event loop.
func (s *Service[K, V]) Close() error {
	return s.conn.Close()
}

// Get returns the live (non-tombstoned) value at key.
func (s *Service[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	atomic.AddUint64(&s.stats.Gets, 1)
	tv, ok := s.tree.Get(key)
	if !ok || tv.Tombstone {
		var zero V
		return zero, false
	}
	return tv.Value, true
}

// Keys returns every live key, in sorted order.
func (s *Service[K, V]) Keys() []K {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]K, 0, s.tree.Len())
	for i := 0; i < s.tree.Len(); i++ {
		k, ok := s.tree.KeyAt(i)
		if !ok {
			continue
		}
		if tv, ok := s.tree.Get(k); ok && !tv.Tombstone {
			out = append(out, k)
		}
	}
	return out
}

// Len returns the total entry count, including tombstones not yet swept.
func (s *Service[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// Hash returns the root hash of the whole tree, including tombstones.
func (s *Service[K, V]) Hash() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Hash(0, s.tree.Len())
}

// Stats returns a snapshot of the service's operation counters.
func (s *Service[K, V]) Stats() OperationStats {
	return s.stats.Snapshot()
}

// Peers returns the current peer directory, address to last-seen time.
func (s *Service[K, V]) Peers() map[string]time.Time {
	return s.peers.snapshotWithTimes()
}

// AddPeer manually registers a peer's full "host:port" address in the peer
// directory, the way a seed peer is bootstrapped at startup. Ordinary
// discovery happens only via touch on reply (see Open Question 1 in the
// design notes); AddPeer is the deliberate exception for a first point of
// contact.
func (s *Service[K, V]) AddPeer(addr string) {
	s.peers.touch(addr)
}

// Insert writes key=value at timestamp at, fires PreInsertHook, and
// broadcasts the change to known peers. It returns the previous live value,
// if any.
func (s *Service[K, V]) Insert(key K, value V, at time.Time) (V, bool) {
	atomic.AddUint64(&s.stats.Inserts, 1)
	tv := TimedValue[V]{Timestamp: at, Value: value}
	prev, existed := s.applyLocal(key, tv)
	s.broadcast([]Update[K, V]{{Key: key, Value: tv}})
	return prev, existed
}

// Remove tombstones key at timestamp at and schedules the tombstone to be
// forgotten after the configured timeout. It returns the previous live
// value, if any.
func (s *Service[K, V]) Remove(key K, at time.Time) (V, bool) {
	atomic.AddUint64(&s.stats.Removes, 1)
	tv := TimedValue[V]{Timestamp: at, Tombstone: true}
	prev, existed := s.applyLocal(key, tv)
	s.tombstones.insert(key, at.Add(s.tombstoneTimeout))
	s.broadcast([]Update[K, V]{{Key: key, Value: tv}})
	return prev, existed
}

// InsertBulk writes every key in kvs at timestamp at in a single locked
// batch, firing PreInsertHook once per key, and broadcasts all of them in
// one round of datagrams.
func (s *Service[K, V]) InsertBulk(kvs map[K]V, at time.Time) {
	updates := make([]Update[K, V], 0, len(kvs))
	s.mu.Lock()
	for k, v := range kvs {
		tv := TimedValue[V]{Timestamp: at, Value: v}
		s.runHookLocked(k, tv)
		s.tree.Insert(k, tv)
		updates = append(updates, Update[K, V]{Key: k, Value: tv})
	}
	s.mu.Unlock()
	atomic.AddUint64(&s.stats.Inserts, uint64(len(kvs)))
	s.broadcast(updates)
}

// RemoveBulk tombstones every key in keys at timestamp at in a single locked
// batch and broadcasts all of them in one round of datagrams.
func (s *Service[K, V]) RemoveBulk(keys []K, at time.Time) {
	updates := make([]Update[K, V], 0, len(keys))
	s.mu.Lock()
	for _, k := range keys {
		tv := TimedValue[V]{Timestamp: at, Tombstone: true}
		s.runHookLocked(k, tv)
		s.tree.Insert(k, tv)
		s.tombstones.insert(k, at.Add(s.tombstoneTimeout))
		updates = append(updates, Update[K, V]{Key: k, Value: tv})
	}
	s.mu.Unlock()
	atomic.AddUint64(&s.stats.Removes, uint64(len(keys)))
	s.broadcast(updates)
}

func (s *Service[K, V]) applyLocal(key K, tv TimedValue[V]) (V, bool) {
	s.mu.Lock()
	prev, existed := s.runHookLocked(key, tv)
	s.tree.Insert(key, tv)
	s.mu.Unlock()
	return prev, existed
}

// runHookLocked must be called with mu held. It reads the current live
// value (if any), invokes PreInsertHook, and returns that value so the
// caller can hand it back to its own caller without a second lookup.
func (s *Service[K, V]) runHookLocked(key K, tv TimedValue[V]) (V, bool) {
	old, existed := s.tree.Get(key)
	var oldPtr *V
	if existed && !old.Tombstone {
		oldPtr = &old.Value
	}
	if s.hook != nil {
		s.hook(key, tv.Value, oldPtr)
	}
	if oldPtr != nil {
		return *oldPtr, true
	}
	var zero V
	return zero, false
}

// Run drives the UDP event loop until ctx is canceled: it alternates
// between reading incoming datagrams and, on idle timeout, starting a new
// reconciliation round, while a separate goroutine sweeps expired
// tombstones. It closes the socket before returning.
func (s *Service[K, V]) Run(ctx context.Context) error {
	defer s.conn.Close()

	go s.sweepLoop(ctx)
	s.startReconciliation()

	buf := make([]byte, maxDatagramSize+1) // +1 to detect an oversized datagram
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.conn.SetReadDeadline(time.Now().Add(s.reconcileIdle)); err != nil {
			return fmt.Errorf("reconcile: set read deadline: %w", err)
		}
		n, raddr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				s.log.Debug("no recent activity; starting reconciliation round")
				s.startReconciliation()
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn("udp read error", zap.Error(err))
			continue
		}
		if n == len(buf) {
			s.log.Warn("datagram too large for buffer, discarded", zap.Stringer("peer", raddr))
			continue
		}
		s.handleDatagram(buf[:n], raddr)
	}
}

func (s *Service[K, V]) startReconciliation() {
	s.mu.RLock()
	seg := diff.Start[K](s.tree)
	s.mu.RUnlock()

	peers := s.peers.snapshot()
	if s.peerNet != nil {
		// sample one extra candidate outside the known directory; it is
		// not added to the directory unless and until it replies. A sampled
		// candidate has no known listening port, so it is assumed to run on
		// this instance's own port, by convention across the cluster.
		s.rngMu.Lock()
		candidate := genIP(s.rng, s.peerNet)
		s.rngMu.Unlock()
		peers = append(peers, net.JoinHostPort(candidate.String(), strconv.Itoa(int(s.port))))
	}
	for _, addr := range peers {
		s.sendTo(addr, []diff.HashSegment[K]{seg}, nil)
	}
}

func (s *Service[K, V]) handleDatagram(data []byte, raddr *net.UDPAddr) {
	segments, updates, err := decodeMessages[K, V](data)
	if err != nil {
		s.log.Error("decode datagram", zap.Stringer("peer", raddr), zap.Error(err))
		return
	}

	// raddr is the socket's actual source address, port included: for a
	// bound UDP socket that is the peer's own listening address, not just
	// an ephemeral send-side port, so it is safe to reply to and to
	// register in the peer directory as-is.
	addr := raddr.String()
	if len(segments) > 0 {
		s.mu.RLock()
		outSegments, diffs := diff.Round[K](s.tree, segments)
		var outUpdates []Update[K, V]
		for _, r := range diffs {
			outUpdates = append(outUpdates, s.enumerateRangeLocked(r)...)
		}
		s.mu.RUnlock()
		s.log.Debug("diff round", zap.Stringer("peer", raddr),
			zap.Int("in", len(segments)), zap.Int("out_segments", len(outSegments)),
			zap.Int("out_updates", len(outUpdates)))
		s.sendTo(addr, outSegments, outUpdates)
	}
	if len(updates) > 0 {
		s.applyRemote(updates)
	}
	// Open Question: a peer only earns a place in the directory once it has
	// actually sent us something, never just because we probed it.
	s.peers.touch(addr)
}

// enumerateRangeLocked must be called with mu held (for reading). It turns
// a diff.Range into the concrete Updates it currently covers.
func (s *Service[K, V]) enumerateRangeLocked(r diff.Range[K]) []Update[K, V] {
	start, end := diff.IndexRange[K](s.tree, r)
	out := make([]Update[K, V], 0, end-start)
	for i := start; i < end; i++ {
		k, ok := s.tree.KeyAt(i)
		if !ok {
			continue
		}
		v, ok := s.tree.Get(k)
		if !ok {
			continue
		}
		out = append(out, Update[K, V]{Key: k, Value: v})
	}
	return out
}

func (s *Service[K, V]) applyRemote(updates []Update[K, V]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range updates {
		local, exists := s.tree.Get(u.Key)
		if exists && !u.Value.newerThan(local) {
			continue
		}
		var oldPtr *V
		if exists && !local.Tombstone {
			oldPtr = &local.Value
		}
		if s.hook != nil {
			s.hook(u.Key, u.Value.Value, oldPtr)
		}
		s.tree.Insert(u.Key, u.Value)
		if u.Value.Tombstone {
			s.tombstones.insert(u.Key, u.Value.Timestamp.Add(s.tombstoneTimeout))
		} else {
			s.tombstones.remove(u.Key)
		}
		atomic.AddUint64(&s.stats.RemoteUpdatesApplied, 1)
	}
}

func (s *Service[K, V]) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

func (s *Service[K, V]) sweepOnce() {
	now := time.Now()
	for {
		key, ok := s.tombstones.popExpired(now)
		if !ok {
			return
		}
		s.mu.Lock()
		if tv, exists := s.tree.Get(key); exists && tv.Tombstone {
			s.tree.Remove(key)
		}
		s.mu.Unlock()
	}
}

// broadcast sends updates to every known peer asynchronously; it never
// blocks the caller that made the local change.
func (s *Service[K, V]) broadcast(updates []Update[K, V]) {
	peers := s.peers.snapshot()
	if len(peers) == 0 {
		return
	}
	go func() {
		for _, addr := range peers {
			s.sendTo(addr, nil, updates)
		}
	}()
}

// sendTo encodes segments and updates into one or more datagrams and sends
// each to addr (a full "host:port" string), making up to sendMaxAttempts
// attempts per datagram with a short fixed backoff — UDP has no delivery
// guarantee, but a send syscall failing (e.g. a transient "no buffer
// space") is worth retrying before giving up on that datagram.
func (s *Service[K, V]) sendTo(addr string, segments []diff.HashSegment[K], updates []Update[K, V]) {
	if len(segments) == 0 && len(updates) == 0 {
		return
	}
	datagrams, err := buildDatagrams(segments, updates)
	if err != nil {
		s.log.Error("encode outgoing message", zap.String("peer", addr), zap.Error(err))
		return
	}
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		s.log.Error("resolve peer address", zap.String("peer", addr), zap.Error(err))
		return
	}
	for _, dg := range datagrams {
		bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(sendRetryBaseDelay), sendMaxAttempts-1)
		if err := backoff.Retry(func() error {
			_, err := s.conn.WriteToUDP(dg, raddr)
			return err
		}, bo); err != nil {
			s.log.Warn("send to peer failed after retries", zap.String("peer", addr), zap.Error(err))
		}
	}
}
