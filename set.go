package tosc

// setData is the internal membership table backing a kindSet node. Set
// elements are value-semantics leaf scalars only; sets do not track
// child-wrapper bookkeeping the way lists, maps and records do.
type setData struct {
	buckets map[uint64][]any
	count   int
}

func newSetData() *setData {
	return &setData{buckets: make(map[uint64][]any)}
}

func (s *setData) contains(v any) bool {
	for _, cand := range s.buckets[scalarHash(v)] {
		if scalarEqual(cand, v) {
			return true
		}
	}
	return false
}

// add reports whether v was newly inserted.
func (s *setData) add(v any) bool {
	h := scalarHash(v)
	for _, cand := range s.buckets[h] {
		if scalarEqual(cand, v) {
			return false
		}
	}
	s.buckets[h] = append(s.buckets[h], v)
	s.count++
	return true
}

// discard reports whether v was present and removed.
func (s *setData) discard(v any) bool {
	h := scalarHash(v)
	bucket := s.buckets[h]
	for i, cand := range bucket {
		if scalarEqual(cand, v) {
			bucket[i] = bucket[len(bucket)-1]
			bucket = bucket[:len(bucket)-1]
			if len(bucket) == 0 {
				delete(s.buckets, h)
			} else {
				s.buckets[h] = bucket
			}
			s.count--
			return true
		}
	}
	return false
}

func (s *setData) clear() {
	s.buckets = make(map[uint64][]any)
	s.count = 0
}

func (s *setData) values() []any {
	out := make([]any, 0, s.count)
	for _, bucket := range s.buckets {
		out = append(out, bucket...)
	}
	return out
}

func (s *setData) clone() *setData {
	c := newSetData()
	for h, bucket := range s.buckets {
		cp := make([]any, len(bucket))
		copy(cp, bucket)
		c.buckets[h] = cp
	}
	c.count = s.count
	return c
}

// setSeed is the plain-value form adoptValue recognizes for constructing a
// fresh kindSet node, the way FieldMapper seeds a kindRecord. Go has no
// native set literal, so NewSet is the only entry point into Set
// construction.
type setSeed struct{ values []any }

// NewSet returns a plain value that, written through a Manager (directly,
// or nested inside a []any/map literal), adopts as a fresh Set containing
// values.
func NewSet(values ...any) any {
	return setSeed{values: append([]any(nil), values...)}
}

// Set is a distributed mutation-tracking analogue of a Go set (map[T]struct{}).
type Set struct{ n *node }

func (s Set) rawNode() *node { return s.n }

// Len returns the number of elements currently in the set.
func (s Set) Len() int { return s.n.st.count }

// Contains reports whether v is a member of the set. It errors rather than
// panicking if v is not a codec-representable scalar type.
func (s Set) Contains(v any) (bool, error) {
	scalar, ok := normalizeScalar(v)
	if !ok {
		return false, codecErrf(nil, 0, nil, "unsupported set element type %T", v)
	}
	return s.n.st.contains(scalar), nil
}

// All returns a snapshot slice of the set's current members.
func (s Set) All() []any { return s.n.st.values() }

// Add inserts v, reporting whether it was newly added. It errors rather
// than panicking if v is not a codec-representable scalar type.
func (s Set) Add(v any) (bool, error) {
	scalar, ok := normalizeScalar(v)
	if !ok {
		return false, codecErrf(nil, 0, nil, "unsupported set element type %T", v)
	}
	var added bool
	err := s.n.mutate(func() error {
		if err := s.n.markDirty(); err != nil {
			return err
		}
		added = s.n.st.add(scalar)
		return nil
	})
	return added, err
}

// Discard removes v if present, reporting whether it was removed. Unlike
// Remove it never errors for a missing element, but still errors rather
// than panicking if v is not a codec-representable scalar type.
func (s Set) Discard(v any) (bool, error) {
	scalar, ok := normalizeScalar(v)
	if !ok {
		return false, codecErrf(nil, 0, nil, "unsupported set element type %T", v)
	}
	var discarded bool
	err := s.n.mutate(func() error {
		if err := s.n.markDirty(); err != nil {
			return err
		}
		discarded = s.n.st.discard(scalar)
		return nil
	})
	return discarded, err
}

// Remove removes v, returning an error if it was not a member, or if v is
// not a codec-representable scalar type.
func (s Set) Remove(v any) error {
	scalar, ok := normalizeScalar(v)
	if !ok {
		return codecErrf(nil, 0, nil, "unsupported set element type %T", v)
	}
	return s.n.mutate(func() error {
		if err := s.n.markDirty(); err != nil {
			return err
		}
		if !s.n.st.discard(scalar) {
			return codecErrf(nil, 0, nil, "value not present in set")
		}
		return nil
	})
}

// Clear removes all elements.
func (s Set) Clear() error {
	return s.n.mutate(func() error {
		if err := s.n.markDirty(); err != nil {
			return err
		}
		s.n.st.clear()
		return nil
	})
}

// Union mutates s in place to also contain every element of other.
func (s Set) Union(other Set) error {
	return s.n.mutate(func() error {
		if err := s.n.markDirty(); err != nil {
			return err
		}
		for _, v := range other.n.st.values() {
			s.n.st.add(v)
		}
		return nil
	})
}

// Intersect mutates s in place to retain only elements also present in other.
func (s Set) Intersect(other Set) error {
	return s.n.mutate(func() error {
		if err := s.n.markDirty(); err != nil {
			return err
		}
		for _, v := range s.n.st.values() {
			if !other.n.st.contains(v) {
				s.n.st.discard(v)
			}
		}
		return nil
	})
}

// Difference mutates s in place, removing every element also present in other.
func (s Set) Difference(other Set) error {
	return s.n.mutate(func() error {
		if err := s.n.markDirty(); err != nil {
			return err
		}
		for _, v := range other.n.st.values() {
			s.n.st.discard(v)
		}
		return nil
	})
}
