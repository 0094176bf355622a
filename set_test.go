package tosc

import (
	"context"
	"sort"
	"testing"
)

func freshSet(t testing.TB, mgr *Manager, vals ...any) Set {
	t.Helper()
	ensureNoErr(t, mgr.Write(context.Background(), NewSet(vals...)))
	root, err := mgr.Read(context.Background())
	ensureNoErr(t, err)
	return root.(Set)
}

func TestSetAddContainsDiscard(t *testing.T) {
	mgr := setupManager(t)
	s := freshSet(t, mgr)

	added, err := s.Add(int64(1))
	ensureNoErr(t, err)
	if !added {
		t.Errorf("** expected first add to report true")
	}
	added, err = s.Add(int64(1))
	ensureNoErr(t, err)
	if added {
		t.Errorf("** expected duplicate add to report false")
	}
	has, err := s.Contains(int64(1))
	ensureNoErr(t, err)
	if !has {
		t.Errorf("** expected set to contain 1")
	}

	_, err = s.Add([]byte("hello"))
	ensureNoErr(t, err)
	has, err = s.Contains([]byte("hello"))
	ensureNoErr(t, err)
	if !has {
		t.Errorf("** expected set to contain []byte(\"hello\")")
	}

	discarded, err := s.Discard(int64(1))
	ensureNoErr(t, err)
	if !discarded {
		t.Errorf("** expected discard to report true")
	}
	has, err = s.Contains(int64(1))
	ensureNoErr(t, err)
	if has {
		t.Errorf("** expected 1 to be gone")
	}
}

func TestSetAddPlainIntNormalizes(t *testing.T) {
	mgr := setupManager(t)
	s := freshSet(t, mgr)

	added, err := s.Add(1)
	ensureNoErr(t, err)
	if !added {
		t.Errorf("** expected first add of plain int to report true")
	}
	has, err := s.Contains(int64(1))
	ensureNoErr(t, err)
	if !has {
		t.Errorf("** expected plain int 1 to normalize to int64(1)")
	}

	if _, err := s.Add(func() {}); err == nil {
		t.Fatalf("** expected error adding an unrepresentable type, got none")
	}
}

func TestSetRemoveMissingErrors(t *testing.T) {
	mgr := setupManager(t)
	s := freshSet(t, mgr)
	if err := s.Remove(int64(7)); err == nil {
		t.Fatalf("** expected error removing absent element")
	}
}

func TestSetUnionIntersectDifference(t *testing.T) {
	mgr := setupManager(t)
	ensureNoErr(t, mgr.Write(context.Background(), []any{NewSet(int64(1), int64(2), int64(3)), NewSet(int64(2), int64(3), int64(4))}))
	root, err := mgr.Read(context.Background())
	ensureNoErr(t, err)
	l := root.(List)
	a := l.Get(0).(Set)
	b := l.Get(1).(Set)

	ensureNoErr(t, a.Intersect(b))
	deepEqual(t, sortedInt64s(a.All()), []int64{2, 3})

	a2 := l.Get(0).(Set)
	ensureNoErr(t, a2.Union(b))
	deepEqual(t, sortedInt64s(a2.All()), []int64{2, 3, 4})

	ensureNoErr(t, a2.Difference(b))
	if a2.Len() != 0 {
		t.Errorf("** expected empty set after difference, got %v", a2.All())
	}
}

func sortedInt64s(vs []any) []int64 {
	out := make([]int64, len(vs))
	for i, v := range vs {
		out[i] = v.(int64)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
