package tosc

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemBackendReadEmpty(t *testing.T) {
	b := NewMemBackend()
	_, ok, err := b.Read(context.Background())
	ensureNoErr(t, err)
	if ok {
		t.Errorf("** expected empty backend to report ok=false")
	}
}

func TestMemBackendWriteThenRead(t *testing.T) {
	b := NewMemBackend()
	v, err := b.Write(context.Background(), []byte("payload"))
	ensureNoErr(t, err)

	cell, ok, err := b.Read(context.Background())
	ensureNoErr(t, err)
	if !ok || cell.Version != v || string(cell.Blob) != "payload" {
		t.Fatalf("** got (%v, %v, %q), wanted (%v, true, payload)", cell.Version, ok, cell.Blob, v)
	}
}

func TestMemBackendTryWriteCAS(t *testing.T) {
	b := NewMemBackend()
	v1, err := b.Write(context.Background(), []byte("a"))
	ensureNoErr(t, err)

	_, ok, err := b.TryWrite(context.Background(), []byte("b"), v1+1, true)
	ensureNoErr(t, err)
	if ok {
		t.Fatalf("** expected stale expected version to fail CAS")
	}

	v2, ok, err := b.TryWrite(context.Background(), []byte("b"), v1, true)
	ensureNoErr(t, err)
	if !ok {
		t.Fatalf("** expected matching expected version to succeed")
	}
	if v2 == v1 {
		t.Errorf("** expected a fresh version after successful CAS")
	}
}

func TestMemBackendWaitForChangeWakesOnWrite(t *testing.T) {
	b := NewMemBackend()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	var changed bool
	var waitErr error
	go func() {
		defer wg.Done()
		changed, waitErr = b.WaitForChange(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	_, err := b.Write(context.Background(), []byte("x"))
	ensureNoErr(t, err)
	wg.Wait()

	ensureNoErr(t, waitErr)
	if !changed {
		t.Errorf("** expected WaitForChange to report a change")
	}
}

func TestMemBackendWaitForChangeIgnoresOwnWrite(t *testing.T) {
	b := NewMemBackend()
	_, err := b.Write(context.Background(), []byte("seed"))
	ensureNoErr(t, err)

	selfCtx := withParticipant(context.Background(), 1)
	otherCtx := withParticipant(context.Background(), 2)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	var changed bool
	var waitErr error
	go func() {
		defer wg.Done()
		changed, waitErr = b.WaitForChange(withParticipant(ctx, 1))
	}()

	time.Sleep(10 * time.Millisecond)
	_, err = b.Write(selfCtx, []byte("from self"))
	ensureNoErr(t, err)
	time.Sleep(10 * time.Millisecond)
	_, err = b.Write(otherCtx, []byte("from other"))
	ensureNoErr(t, err)

	wg.Wait()
	ensureNoErr(t, waitErr)
	if !changed {
		t.Errorf("** expected the other participant's write to wake the waiter")
	}
}

func TestMemBackendWaitForChangeHonorsCancel(t *testing.T) {
	b := NewMemBackend()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	changed, err := b.WaitForChange(ctx)
	if changed {
		t.Errorf("** expected no change reported")
	}
	if err == nil {
		t.Errorf("** expected context error")
	}
}
