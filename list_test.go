package tosc

import (
	"context"
	"testing"
)

func freshList(t testing.TB, mgr *Manager, vals ...any) List {
	t.Helper()
	ensureNoErr(t, mgr.Write(context.Background(), append([]any(nil), vals...)))
	root, err := mgr.Read(context.Background())
	ensureNoErr(t, err)
	return root.(List)
}

func TestListInsertAndReindex(t *testing.T) {
	mgr := setupManager(t)
	l := freshList(t, mgr, int64(1), int64(2), int64(3))

	ensureNoErr(t, l.Insert(1, int64(99)))
	deepEqual(t, l.All(), []any{int64(1), int64(99), int64(2), int64(3)})
}

func TestListRemoveAtReindexesSiblings(t *testing.T) {
	mgr := setupManager(t)
	l := freshList(t, mgr, []any{int64(0)}, []any{int64(1)}, []any{int64(2)})

	removed, err := l.RemoveAt(0)
	ensureNoErr(t, err)
	if removed == nil {
		t.Fatalf("** expected removed element")
	}

	remaining := l.Get(0).(List)
	if got := remaining.rawNode().key; got != 0 {
		t.Errorf("** got key %v, wanted 0", got)
	}
}

func TestListRemoveValue(t *testing.T) {
	mgr := setupManager(t)
	l := freshList(t, mgr, int64(1), int64(2), int64(3))

	ok, err := l.RemoveValue(int64(2))
	ensureNoErr(t, err)
	if !ok {
		t.Fatalf("** expected value to be found")
	}
	deepEqual(t, l.All(), []any{int64(1), int64(3)})
}

func TestListSortAndReverse(t *testing.T) {
	mgr := setupManager(t)
	l := freshList(t, mgr, int64(3), int64(1), int64(2))

	ensureNoErr(t, l.Sort(func(a, b any) bool { return a.(int64) < b.(int64) }))
	deepEqual(t, l.All(), []any{int64(1), int64(2), int64(3)})

	ensureNoErr(t, l.Reverse())
	deepEqual(t, l.All(), []any{int64(3), int64(2), int64(1)})
}

func TestListDetachedChildOnRemoval(t *testing.T) {
	mgr := setupManager(t)
	l := freshList(t, mgr, []any{int64(1)})
	child := l.Get(0).(List)

	_, err := l.RemoveAt(0)
	ensureNoErr(t, err)

	if mgr.IsLinked(child) {
		t.Errorf("** removed child should be detached")
	}
	if err := child.Append(int64(2)); err != ErrDetachedMutation {
		t.Fatalf("** got %v, wanted ErrDetachedMutation", err)
	}
}

func TestListAliasingRejected(t *testing.T) {
	mgr := setupManager(t)
	l := freshList(t, mgr, []any{int64(1)}, []any{int64(2)})
	child := l.Get(0).(List)

	if err := l.Set(1, child); err != ErrAliasing {
		t.Fatalf("** got %v, wanted ErrAliasing", err)
	}
}
