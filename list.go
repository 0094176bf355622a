package tosc

import "sort"

// List is a distributed mutation-tracking analogue of a Go slice.
type List struct{ n *node }

func (l List) rawNode() *node { return l.n }

// Len returns the number of elements.
func (l List) Len() int { return len(l.n.seq) }

// Get returns the element at index i: a Wrapper for child-node positions,
// a plain value for leaf scalars.
func (l List) Get(i int) any { return wrapValue(l.n.seq[i]) }

// All iterates the list's current elements in order.
func (l List) All() []any {
	out := make([]any, len(l.n.seq))
	for i, v := range l.n.seq {
		out[i] = wrapValue(v)
	}
	return out
}

// Set replaces the element at index i.
func (l List) Set(i int, v any) error {
	return l.n.mutate(func() error {
		if err := l.n.markDirty(); err != nil {
			return err
		}
		if old, ok := l.n.seq[i].(*node); ok {
			old.detach()
		}
		stored, err := adoptValue(l.n.mgr, l.n, i, v)
		if err != nil {
			return err
		}
		l.n.seq[i] = stored
		return nil
	})
}

// Append adds v to the end of the list.
func (l List) Append(v any) error {
	return l.Insert(len(l.n.seq), v)
}

// Insert places v at index i, shifting later elements (and re-keying their
// stored index) one position to the right.
func (l List) Insert(i int, v any) error {
	return l.n.mutate(func() error {
		if err := l.n.markDirty(); err != nil {
			return err
		}
		stored, err := adoptValue(l.n.mgr, l.n, i, v)
		if err != nil {
			return err
		}
		l.n.seq = append(l.n.seq, nil)
		copy(l.n.seq[i+1:], l.n.seq[i:])
		l.n.seq[i] = stored
		l.n.reindexFrom(i + 1)
		return nil
	})
}

// RemoveAt removes and returns the element at index i, detaching it if it
// was a child wrapper.
func (l List) RemoveAt(i int) (any, error) {
	var removed any
	err := l.n.mutate(func() error {
		if err := l.n.markDirty(); err != nil {
			return err
		}
		removed = l.n.seq[i]
		if c, ok := removed.(*node); ok {
			c.detach()
		}
		copy(l.n.seq[i:], l.n.seq[i+1:])
		l.n.seq = l.n.seq[:len(l.n.seq)-1]
		l.n.reindexFrom(i)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wrapValue(removed), nil
}

// RemoveValue removes the first element equal to v, reporting whether one
// was found.
func (l List) RemoveValue(v any) (bool, error) {
	for i, stored := range l.n.seq {
		if elementEquals(stored, v) {
			_, err := l.RemoveAt(i)
			return err == nil, err
		}
	}
	return false, nil
}

// Clear removes every element, detaching any child wrappers.
func (l List) Clear() error {
	return l.n.mutate(func() error {
		if err := l.n.markDirty(); err != nil {
			return err
		}
		for _, v := range l.n.seq {
			if c, ok := v.(*node); ok {
				c.detach()
			}
		}
		l.n.seq = nil
		return nil
	})
}

// Slice returns a read-only snapshot of l.n.seq[i:j].
func (l List) Slice(i, j int) []any {
	out := make([]any, j-i)
	for k := i; k < j; k++ {
		out[k-i] = wrapValue(l.n.seq[k])
	}
	return out
}

// SetSlice replaces l.n.seq[i:j] with vs, which may have a different length.
func (l List) SetSlice(i, j int, vs []any) error {
	return l.n.mutate(func() error {
		if err := l.n.markDirty(); err != nil {
			return err
		}
		for k := i; k < j; k++ {
			if c, ok := l.n.seq[k].(*node); ok {
				c.detach()
			}
		}
		tail := append([]any(nil), l.n.seq[j:]...)
		l.n.seq = l.n.seq[:i]
		for _, v := range vs {
			stored, err := adoptValue(l.n.mgr, l.n, len(l.n.seq), v)
			if err != nil {
				return err
			}
			l.n.seq = append(l.n.seq, stored)
		}
		l.n.seq = append(l.n.seq, tail...)
		l.n.reindexFrom(i)
		return nil
	})
}

// Extend appends every element of vs to the list.
func (l List) Extend(vs []any) error {
	for _, v := range vs {
		if err := l.Append(v); err != nil {
			return err
		}
	}
	return nil
}

// Pop removes and returns the last element.
func (l List) Pop() (any, error) {
	if len(l.n.seq) == 0 {
		return nil, codecErrf(nil, 0, nil, "pop from empty list")
	}
	return l.RemoveAt(len(l.n.seq) - 1)
}

// Reverse reverses the list in place.
func (l List) Reverse() error {
	return l.n.mutate(func() error {
		if err := l.n.markDirty(); err != nil {
			return err
		}
		seq := l.n.seq
		for i, j := 0, len(seq)-1; i < j; i, j = i+1, j-1 {
			seq[i], seq[j] = seq[j], seq[i]
		}
		l.n.reindexFrom(0)
		return nil
	})
}

// Sort sorts the list in place using less, which is handed the wrapped
// (Wrapper or scalar) representation of each pair of elements.
func (l List) Sort(less func(a, b any) bool) error {
	return l.n.mutate(func() error {
		if err := l.n.markDirty(); err != nil {
			return err
		}
		seq := l.n.seq
		sort.SliceStable(seq, func(i, j int) bool {
			return less(wrapValue(seq[i]), wrapValue(seq[j]))
		})
		l.n.reindexFrom(0)
		return nil
	})
}

func elementEquals(stored, v any) bool {
	if sn, ok := stored.(*node); ok {
		if rn, ok := v.(rawNoder); ok {
			return sn == rn.rawNode()
		}
		return false
	}
	if _, ok := v.(rawNoder); ok {
		return false
	}
	ns, ok1 := normalizeScalar(stored)
	nv, ok2 := normalizeScalar(v)
	return ok1 && ok2 && scalarEqual(ns, nv)
}
