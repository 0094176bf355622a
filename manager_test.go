package tosc

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func setupManager(t testing.TB) *Manager {
	t.Helper()
	mgr := New(NewMemBackend(), nil, Options{WatcherDisabled: true})
	t.Cleanup(mgr.Close)
	return mgr
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func ensureNoErr(t testing.TB, err error) {
	if err != nil {
		t.Helper()
		t.Fatalf("** unexpected error: %v", err)
	}
}

func TestManagerWriteRead(t *testing.T) {
	mgr := setupManager(t)
	ctx := context.Background()

	ensureNoErr(t, mgr.Write(ctx, map[string]any{"greeting": "hi"}))

	v, err := mgr.Read(ctx)
	ensureNoErr(t, err)
	m, ok := v.(Map)
	if !ok {
		t.Fatalf("** got %T, wanted Map", v)
	}
	got, _ := m.Get("greeting")
	deepEqual(t, got, "hi")
}

func TestManagerReadEmptyCell(t *testing.T) {
	mgr := setupManager(t)
	_, err := mgr.Read(context.Background())
	if !errors.Is(err, ErrEmptyCell) {
		t.Fatalf("** got %v, wanted ErrEmptyCell", err)
	}
}

func TestManagerTransactCommitsAndClearsDirty(t *testing.T) {
	mgr := setupManager(t)
	ctx := context.Background()
	ensureNoErr(t, mgr.Write(ctx, map[string]any{"count": int64(0)}))

	err := mgr.Transact(ctx, func(tx *Transaction) error {
		root, rerr := mgr.Read(ctx)
		if rerr != nil {
			return rerr
		}
		m := root.(Map)
		return m.Set("count", int64(1))
	})
	ensureNoErr(t, err)

	root, err := mgr.Read(ctx)
	ensureNoErr(t, err)
	m := root.(Map)
	if mgr.IsDirty(m) {
		t.Errorf("** root should not be dirty after commit")
	}
	got, _ := m.Get("count")
	deepEqual(t, got, int64(1))
}

func TestManagerTransactRollsBackOnError(t *testing.T) {
	mgr := setupManager(t)
	ctx := context.Background()
	ensureNoErr(t, mgr.Write(ctx, map[string]any{"count": int64(0)}))

	boom := errors.New("boom")
	err := mgr.Transact(ctx, func(tx *Transaction) error {
		root, _ := mgr.Read(ctx)
		m := root.(Map)
		ensureNoErr(t, m.Set("count", int64(99)))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("** got %v, wanted boom", err)
	}

	root, err := mgr.Read(ctx)
	ensureNoErr(t, err)
	got, _ := root.(Map).Get("count")
	deepEqual(t, got, int64(0))
}

func TestManagerDetectsConflict(t *testing.T) {
	backend := NewMemBackend()
	mgr1 := New(backend, nil, Options{WatcherDisabled: true})
	defer mgr1.Close()
	mgr2 := New(backend, nil, Options{WatcherDisabled: true})
	defer mgr2.Close()

	ctx := context.Background()
	ensureNoErr(t, mgr1.Write(ctx, map[string]any{"count": int64(0)}))
	_, err := mgr2.Read(ctx)
	ensureNoErr(t, err)

	ensureNoErr(t, mgr1.Write(ctx, map[string]any{"count": int64(1)}))

	err = mgr2.Transact(ctx, func(tx *Transaction) error {
		root, _ := mgr2.Read(ctx)
		m := root.(Map)
		return m.Set("count", int64(2))
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("** got %v, wanted ErrConflict", err)
	}

	root, err := mgr2.Read(ctx)
	ensureNoErr(t, err)
	got, _ := root.(Map).Get("count")
	deepEqual(t, got, int64(1))
}

func TestManagerRetrySucceedsOnConflict(t *testing.T) {
	backend := NewMemBackend()
	mgr1 := New(backend, nil, Options{WatcherDisabled: true})
	defer mgr1.Close()
	mgr2 := New(backend, nil, Options{WatcherDisabled: true})
	defer mgr2.Close()

	ctx := context.Background()
	ensureNoErr(t, mgr1.Write(ctx, map[string]any{"count": int64(0)}))

	first := true
	err := Retry(ctx, mgr2, RetryOptions{MaxAttempts: 3}, func(tx *Transaction) error {
		if first {
			first = false
			ensureNoErr(t, mgr1.Write(ctx, map[string]any{"count": int64(41)}))
		}
		root, rerr := mgr2.Read(ctx)
		if rerr != nil {
			return rerr
		}
		m := root.(Map)
		cur, _ := m.Get("count")
		return m.Set("count", cur.(int64)+1)
	})
	ensureNoErr(t, err)

	root, err := mgr2.Read(ctx)
	ensureNoErr(t, err)
	got, _ := root.(Map).Get("count")
	deepEqual(t, got, int64(42))
}

func TestManagerDetachedMutationRejected(t *testing.T) {
	mgr := setupManager(t)
	ctx := context.Background()
	ensureNoErr(t, mgr.Write(ctx, map[string]any{"child": []any{int64(1), int64(2)}}))

	root, err := mgr.Read(ctx)
	ensureNoErr(t, err)
	m := root.(Map)
	childV, _ := m.Get("child")
	child := childV.(List)

	_, delErr := m.Delete("child")
	ensureNoErr(t, delErr)

	if err := child.Append(int64(3)); !errors.Is(err, ErrDetachedMutation) {
		t.Fatalf("** got %v, wanted ErrDetachedMutation", err)
	}
}

func TestMapSetOutsideTransactionPersists(t *testing.T) {
	backend := NewMemBackend()
	mgr := New(backend, nil, Options{WatcherDisabled: true})
	defer mgr.Close()
	ctx := context.Background()

	ensureNoErr(t, mgr.Write(ctx, map[string]any{"count": int64(0)}))

	root, err := mgr.Read(ctx)
	ensureNoErr(t, err)
	m := root.(Map)

	// Calling Set with no enclosing Transact must still reach the backend:
	// it opens and commits an implicit single-op transaction.
	ensureNoErr(t, m.Set("count", int64(1)))

	other := New(backend, nil, Options{WatcherDisabled: true})
	defer other.Close()
	freshRoot, err := other.Read(ctx)
	ensureNoErr(t, err)
	got, _ := freshRoot.(Map).Get("count")
	deepEqual(t, got, int64(1))
}

func TestMapDeleteOutsideTransactionPersists(t *testing.T) {
	backend := NewMemBackend()
	mgr := New(backend, nil, Options{WatcherDisabled: true})
	defer mgr.Close()
	ctx := context.Background()

	ensureNoErr(t, mgr.Write(ctx, map[string]any{"child": []any{int64(1), int64(2)}}))

	root, err := mgr.Read(ctx)
	ensureNoErr(t, err)
	m := root.(Map)

	existed, delErr := m.Delete("child")
	ensureNoErr(t, delErr)
	if !existed {
		t.Errorf("** expected delete to report the key existed")
	}

	other := New(backend, nil, Options{WatcherDisabled: true})
	defer other.Close()
	freshRoot, err := other.Read(ctx)
	ensureNoErr(t, err)
	if _, ok := freshRoot.(Map).Get("child"); ok {
		t.Errorf("** expected \"child\" to be gone from a freshly read snapshot")
	}
}
