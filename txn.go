package tosc

import "context"

// detachRecord lets a best-effort nested rollback restore a node's link
// position; it does not attempt to restore the node's contents.
type detachRecord struct {
	n      *node
	parent *node
	key    any
}

// frame tracks the mutations that happened since one transaction depth was
// entered, so a nested Transact exit can attempt to undo them.
type frame struct {
	dirtied  []*node
	detached []detachRecord
}

// Transaction is the scope object handed to the closure passed to
// Manager.Transact. Nesting is supported: only the outermost exit commits
// to the backend, with the commit performed as a compare-and-swap against
// the version last observed by this Manager.
type Transaction struct {
	mgr     *Manager
	depth   int
	frames  []*frame
	done    bool
	baseOK  bool
	baseVer Version
}

// recordDirty appends n to the current (innermost) frame the first time it
// is marked dirty during this transaction, so a nested rollback knows which
// nodes to attempt to clear.
func (t *Transaction) recordDirty(n *node) {
	if t == nil || len(t.frames) == 0 {
		return
	}
	f := t.frames[len(t.frames)-1]
	f.dirtied = append(f.dirtied, n)
}

// recordDetach appends a pre-detach snapshot of n's link position to the
// current frame, for best-effort restoration on nested rollback.
func (t *Transaction) recordDetach(n *node) {
	if t == nil || len(t.frames) == 0 {
		return
	}
	f := t.frames[len(t.frames)-1]
	f.detached = append(f.detached, detachRecord{n: n, parent: n.parent, key: n.key})
}

// Transact runs fn within a transaction scope on mgr. If fn returns nil at
// the outermost depth, the buffered root is encoded and committed with a
// compare-and-swap against the version last observed by this Manager; on a
// CAS miss the Manager is refreshed and ErrConflict is returned so Retry
// (or the caller) can re-run fn against fresh state. A non-nil error or a
// panic from fn unwinds without committing; at the outermost depth the
// Manager is left refreshed to backend truth. Nested Transact calls reuse
// the already-open transaction and only unwind their own frame's mutations
// on error, on a best-effort basis.
func (mgr *Manager) Transact(ctx context.Context, fn func(tx *Transaction) error) (err error) {
	mgr.mu.Lock()
	if mgr.closed {
		mgr.mu.Unlock()
		return ErrManagerClosed
	}

	tx := mgr.txn
	outermost := tx == nil
	if outermost {
		if !mgr.hasRoot {
			if err := mgr.refreshLocked(ctx); err != nil {
				mgr.mu.Unlock()
				return err
			}
		}
		tx = &Transaction{mgr: mgr, baseVer: mgr.version, baseOK: mgr.hasRoot}
		mgr.txn = tx
	}
	tx.depth++
	tx.frames = append(tx.frames, &frame{})
	mgr.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			mgr.unwindFrame(tx)
			if outermost {
				mgr.finishTransaction(ctx, tx, false)
			}
			panic(r)
		}
	}()

	err = fn(tx)

	mgr.mu.Lock()
	if err != nil {
		mgr.unwindFrameLocked(tx)
	} else {
		tx.frames = tx.frames[:len(tx.frames)-1]
	}
	tx.depth--
	if !outermost {
		mgr.mu.Unlock()
		return err
	}
	mgr.mu.Unlock()

	finishErr := mgr.finishTransaction(ctx, tx, err == nil)
	if err != nil {
		return err
	}
	return finishErr
}

func (mgr *Manager) unwindFrame(tx *Transaction) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.unwindFrameLocked(tx)
}

// unwindFrameLocked performs the best-effort rollback of the innermost
// frame: clear dirty flags set during the frame (without attempting to
// restore prior field values) and reattach anything the frame detached.
func (mgr *Manager) unwindFrameLocked(tx *Transaction) {
	if len(tx.frames) == 0 {
		return
	}
	f := tx.frames[len(tx.frames)-1]
	tx.frames = tx.frames[:len(tx.frames)-1]

	for _, n := range f.dirtied {
		n.dirty = false
	}
	for i := len(f.detached) - 1; i >= 0; i-- {
		d := f.detached[i]
		d.n.detached = false
		d.n.parent = d.parent
		d.n.key = d.key
	}
}

// finishTransaction is called once, at the outermost exit. When ok is true
// it attempts the commit; otherwise it refreshes the Manager to backend
// truth and returns only an error from that refresh. Propagation of the
// closure's own error is the caller's responsibility; on that path
// finishTransaction only clears mgr.txn and refreshes.
func (mgr *Manager) finishTransaction(ctx context.Context, tx *Transaction, commit bool) error {
	mgr.mu.Lock()
	mgr.txn = nil

	if !commit {
		mgr.needsRefresh = false
		// Force a re-decode even if the backend version is unchanged, so
		// mutations made inside the failed transaction are discarded.
		mgr.hasRoot = false
		err := mgr.refreshLocked(ctx)
		mgr.mu.Unlock()
		if err != nil {
			return err
		}
		return nil
	}

	if !mgr.rootDirty() {
		var err error
		if mgr.needsRefresh {
			mgr.needsRefresh = false
			err = mgr.refreshLocked(ctx)
		}
		mgr.mu.Unlock()
		return err
	}

	g := buildGraph(mgr.root)
	blob, encErr := mgr.codec.Encode(g)
	if encErr != nil {
		mgr.mu.Unlock()
		return encErr
	}

	v, ok, writeErr := mgr.backend.TryWrite(withParticipant(ctx, mgr.id), blob, tx.baseVer, tx.baseOK)
	if writeErr != nil {
		mgr.mu.Unlock()
		return backendErrf("try_write", writeErr)
	}
	if !ok {
		refreshErr := mgr.refreshLocked(ctx)
		mgr.mu.Unlock()
		if refreshErr != nil {
			return refreshErr
		}
		return ErrConflict
	}

	mgr.version = v
	mgr.clearRootDirty()
	mgr.opts.logf("tosc: committed version %d", v)

	if mgr.needsRefresh {
		mgr.needsRefresh = false
		if err := mgr.refreshLocked(ctx); err != nil {
			mgr.mu.Unlock()
			return err
		}
	}
	mgr.mu.Unlock()
	return nil
}
