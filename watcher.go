package tosc

import "context"

// startWatcher launches the background goroutine that blocks on
// Backend.WaitForChange and reconciles externally-originated commits into
// the cache. It is started once from New unless Options.WatcherDisabled
// is set.
func (mgr *Manager) startWatcher() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = withParticipant(ctx, mgr.id)
	done := make(chan struct{})
	mgr.watcherCancel = cancel
	mgr.watcherDone = done

	go func() {
		defer close(done)
		for {
			changed, err := mgr.backend.WaitForChange(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				mgr.opts.logf("tosc: watcher wait error: %v", err)
				continue
			}
			if !changed {
				return
			}
			mgr.applyWatcherWakeup(ctx)
		}
	}()
}

// applyWatcherWakeup reconciles one wakeup. If a transaction is open on
// this Manager, the refresh is deferred: Transact's outermost exit (via
// finishTransaction) always leaves the Manager refreshed, so it is picked
// up there instead of racing the open transaction's buffered mutations.
func (mgr *Manager) applyWatcherWakeup(ctx context.Context) {
	mgr.mu.Lock()
	if mgr.closed {
		mgr.mu.Unlock()
		return
	}
	if mgr.txn != nil {
		mgr.needsRefresh = true
		mgr.mu.Unlock()
		return
	}
	if mgr.opts.Verbose {
		mgr.opts.logf("tosc: watcher wakeup, refreshing")
	}
	if err := mgr.refreshLocked(ctx); err != nil {
		mgr.opts.logf("tosc: watcher refresh failed: %v", err)
	}
	mgr.mu.Unlock()
}
