package tosc

import (
	"context"
	"os"
	"testing"
	"time"
)

func setupBoltBackend(t testing.TB) *BoltBackend {
	t.Helper()
	f := must(os.CreateTemp("", "tosc_bolt_*.db"))
	path := f.Name()
	f.Close()
	os.Remove(path)

	b := must(NewBoltBackend(path, 10*time.Millisecond))
	t.Cleanup(func() {
		b.Close()
		os.Remove(path)
	})
	return b
}

func TestBoltBackendWriteThenRead(t *testing.T) {
	b := setupBoltBackend(t)
	ctx := context.Background()

	v, err := b.Write(ctx, []byte("hello"))
	ensureNoErr(t, err)

	cell, ok, err := b.Read(ctx)
	ensureNoErr(t, err)
	if !ok || cell.Version != v || string(cell.Blob) != "hello" {
		t.Fatalf("** got (%v, %v, %q)", cell.Version, ok, cell.Blob)
	}
}

func TestBoltBackendTryWriteCAS(t *testing.T) {
	b := setupBoltBackend(t)
	ctx := context.Background()

	v1, err := b.Write(ctx, []byte("a"))
	ensureNoErr(t, err)

	_, ok, err := b.TryWrite(ctx, []byte("b"), v1+1, true)
	ensureNoErr(t, err)
	if ok {
		t.Fatalf("** expected mismatched version to fail CAS")
	}

	v2, ok, err := b.TryWrite(ctx, []byte("b"), v1, true)
	ensureNoErr(t, err)
	if !ok || v2 == v1 {
		t.Fatalf("** expected CAS to succeed with a fresh version")
	}
}

func TestBoltBackendWaitForChangePolls(t *testing.T) {
	b := setupBoltBackend(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := b.WaitForChange(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	_, err := b.Write(context.Background(), []byte("x"))
	ensureNoErr(t, err)

	select {
	case err := <-done:
		ensureNoErr(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("** WaitForChange did not observe the write in time")
	}
}
