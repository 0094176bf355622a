package tosc

import (
	"context"
	"sync"
)

// mutexCond pairs a sync.Mutex with a sync.Cond and adds a context-aware
// wait, so a WaitForChange caller can be unblocked by cancellation as well
// as by a broadcast.
type mutexCond struct {
	sync.Mutex
	cond *sync.Cond
}

func (m *mutexCond) init() { m.cond = sync.NewCond(&m.Mutex) }

func (m *mutexCond) broadcast() { m.cond.Broadcast() }

// waitContext blocks on the condition variable until the next broadcast or
// ctx's cancellation, whichever comes first. It returns false if ctx was
// the reason it woke, true otherwise. Callers must hold the lock.
func (m *mutexCond) waitContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	stop := context.AfterFunc(ctx, m.cond.Broadcast)
	defer stop()
	m.cond.Wait()
	return ctx.Err() == nil
}
