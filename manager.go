package tosc

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
)

// Options configures a Manager.
type Options struct {
	// Logf, if set, receives diagnostic log lines. Nil means silent.
	Logf func(format string, args ...any)
	// Verbose additionally logs watcher wakeups. Commits and refreshes are
	// logged whenever Logf is set.
	Verbose bool
	// WatcherDisabled skips starting the background watcher goroutine,
	// for tests that drive Refresh explicitly.
	WatcherDisabled bool
	// RetryDefaultMax is the attempt bound Retry uses when none is
	// given explicitly; zero means unbounded.
	RetryDefaultMax int
}

func (o Options) logf(format string, args ...any) {
	if o.Logf != nil {
		o.Logf(format, args...)
	}
}

// Manager is the per-participant coordinator: it owns a value graph, a
// cache of the last-read (root, version) pair, and a watcher goroutine that
// reconciles externally-originated commits into the cache.
//
// Read, Refresh, Write, TryWrite and Snapshot hold the Manager's lock while
// they run. Wrapper read methods take no lock, and every wrapper mutation
// joins the Manager's single open transaction if there is one, so a Manager
// and its wrappers are not safe for concurrent use by several goroutines;
// concurrent participants each use their own Manager over a shared Backend.
type Manager struct {
	id      uint64
	backend Backend
	codec   Codec
	opts    Options

	mu                sync.Mutex
	root              any
	hasRoot           bool
	rootReplacedDirty bool
	version           Version
	objmap            map[uint64]*node

	nextID atomic.Uint64

	txn          *Transaction
	needsRefresh bool

	watcherCancel context.CancelFunc
	watcherDone   chan struct{}
	closed        bool
}

// New creates a Manager over backend, using codec to serialize the value
// graph (MsgpackCodec{} if codec is nil), and starts its watcher goroutine
// unless disabled in opts.
func New(backend Backend, codec Codec, opts Options) *Manager {
	if codec == nil {
		codec = MsgpackCodec{}
	}
	mgr := &Manager{
		id:      rand.Uint64(),
		backend: backend,
		codec:   codec,
		opts:    opts,
		objmap:  make(map[uint64]*node),
	}
	// Seed the node-id counter from a random offset so independently
	// created nodes from different participants are extremely unlikely to
	// collide once their ids meet on the wire; ids, like versions, only
	// need to be distinguishable, not globally allocated.
	mgr.nextID.Store(rand.Uint64())
	if pa, ok := backend.(ParticipantAware); ok {
		pa.SetParticipantID(mgr.id)
	}
	if !opts.WatcherDisabled {
		mgr.startWatcher()
	}
	return mgr
}

// ID returns this Manager's randomly-generated participant id.
func (mgr *Manager) ID() uint64 { return mgr.id }

func (mgr *Manager) nextNodeID() uint64 { return mgr.nextID.Add(1) }

// Close stops the watcher goroutine and waits for it to exit. A closed
// Manager's Read/Refresh/Write/Transact calls return ErrManagerClosed.
func (mgr *Manager) Close() {
	mgr.mu.Lock()
	if mgr.closed {
		mgr.mu.Unlock()
		return
	}
	mgr.closed = true
	cancel := mgr.watcherCancel
	done := mgr.watcherDone
	mgr.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (mgr *Manager) rootDirty() bool {
	if mgr.rootReplacedDirty {
		return true
	}
	n, ok := mgr.root.(*node)
	return ok && n.dirty
}

func (mgr *Manager) clearRootDirty() {
	mgr.rootReplacedDirty = false
	if n, ok := mgr.root.(*node); ok {
		n.clearDirty()
	}
}

// Read returns the cached root wrapper (or scalar) if valid, refreshing
// from the backend first if the cache has never been populated.
func (mgr *Manager) Read(ctx context.Context) (any, error) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if mgr.closed {
		return nil, ErrManagerClosed
	}
	if !mgr.hasRoot {
		if err := mgr.refreshLocked(ctx); err != nil {
			return nil, err
		}
	}
	return wrapValue(mgr.root), nil
}

// Refresh unconditionally re-fetches the backend cell and reconciles it
// into the cached tree. It fails with ErrRefreshDuringTransaction if a
// transaction is currently open on this Manager.
func (mgr *Manager) Refresh(ctx context.Context) (any, error) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if mgr.closed {
		return nil, ErrManagerClosed
	}
	if mgr.txn != nil {
		return nil, ErrRefreshDuringTransaction
	}
	if err := mgr.refreshLocked(ctx); err != nil {
		return nil, err
	}
	return wrapValue(mgr.root), nil
}

// refreshLocked must be called with mgr.mu held.
func (mgr *Manager) refreshLocked(ctx context.Context) error {
	cell, ok, err := mgr.backend.Read(ctx)
	if err != nil {
		return backendErrf("read", err)
	}
	if !ok {
		if !mgr.hasRoot {
			return ErrEmptyCell
		}
		return nil
	}
	if mgr.hasRoot && cell.Version == mgr.version {
		return nil
	}

	g, err := mgr.codec.Decode(cell.Blob)
	if err != nil {
		return err
	}

	oldObjmap := mgr.objmap
	newObjmap := make(map[uint64]*node, len(oldObjmap))
	newRoot := reconcileValue(mgr, oldObjmap, newObjmap, nil, nil, g)
	for id, n := range oldObjmap {
		if newObjmap[id] != n {
			n.detach()
		}
	}

	mgr.objmap = newObjmap
	mgr.root = newRoot
	mgr.version = cell.Version
	mgr.hasRoot = true
	mgr.rootReplacedDirty = false
	mgr.opts.logf("tosc: refreshed to version %d", cell.Version)
	return nil
}

// adoptRootLocked must be called with mgr.mu held. It either recognizes
// value as the existing root (a no-op structurally) or detaches the old
// root and adopts value as the new one.
func (mgr *Manager) adoptRootLocked(value any) (any, error) {
	if cur, ok := mgr.root.(*node); ok {
		if rn, ok2 := value.(rawNoder); ok2 && rn.rawNode() == cur {
			return cur, nil
		}
	}
	if old, ok := mgr.root.(*node); ok {
		old.detach()
	}
	return adoptValue(mgr, nil, nil, value)
}

// Write replaces the stored value. Outside a transaction this performs an
// unconditional backend write and updates the cache immediately. Inside a
// transaction it only replaces the buffered root; the write reaches the
// backend at the outermost commit.
func (mgr *Manager) Write(ctx context.Context, value any) error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if mgr.closed {
		return ErrManagerClosed
	}

	newRoot, err := mgr.adoptRootLocked(value)
	if err != nil {
		return err
	}

	if mgr.txn != nil {
		mgr.root = newRoot
		mgr.rootReplacedDirty = true
		return nil
	}

	g := buildGraph(newRoot)
	blob, err := mgr.codec.Encode(g)
	if err != nil {
		return err
	}
	v, err := mgr.backend.Write(withParticipant(ctx, mgr.id), blob)
	if err != nil {
		return backendErrf("write", err)
	}
	mgr.root = newRoot
	mgr.version = v
	mgr.hasRoot = true
	mgr.rootReplacedDirty = false
	return nil
}

// TryWrite performs an unconditional compare-and-swap against the backend,
// bypassing the transaction machinery entirely as an escape hatch.
// expectedOK false means "the cell must currently be empty".
func (mgr *Manager) TryWrite(ctx context.Context, value any, expected Version, expectedOK bool) (bool, error) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if mgr.closed {
		return false, ErrManagerClosed
	}

	newRoot, err := mgr.adoptRootLocked(value)
	if err != nil {
		return false, err
	}
	g := buildGraph(newRoot)
	blob, err := mgr.codec.Encode(g)
	if err != nil {
		return false, err
	}
	v, ok, err := mgr.backend.TryWrite(withParticipant(ctx, mgr.id), blob, expected, expectedOK)
	if err != nil {
		return false, backendErrf("try_write", err)
	}
	if ok {
		mgr.root = newRoot
		mgr.version = v
		mgr.hasRoot = true
		mgr.rootReplacedDirty = false
	}
	return ok, nil
}

// Snapshot returns a plain, fully-detached deep copy of the cached tree.
// Mutating the result never affects distributed state.
func (mgr *Manager) Snapshot() any {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if !mgr.hasRoot {
		return nil
	}
	return snapshotValue(mgr.root)
}

// IsLinked reports whether wrapper is reachable from this Manager's root.
func (mgr *Manager) IsLinked(wrapper any) bool {
	rn, ok := wrapper.(rawNoder)
	if !ok {
		return false
	}
	return !rn.rawNode().detached
}

// IsDirty reports whether wrapper has pending uncommitted mutations.
func (mgr *Manager) IsDirty(wrapper any) bool {
	rn, ok := wrapper.(rawNoder)
	if !ok {
		return false
	}
	return rn.rawNode().dirty
}
