package tosc

// Map is a distributed mutation-tracking analogue of a Go map.
type Map struct{ n *node }

func (m Map) rawNode() *node { return m.n }

// Len returns the number of keys.
func (m Map) Len() int { return len(m.n.mp) }

// Get returns the value stored at key, and whether it was present.
func (m Map) Get(key any) (any, bool) {
	key, _ = normalizeScalar(key)
	v, ok := m.n.mp[key]
	if !ok {
		return nil, false
	}
	return wrapValue(v), true
}

// Keys returns a snapshot of the map's current keys.
func (m Map) Keys() []any {
	out := make([]any, 0, len(m.n.mp))
	for k := range m.n.mp {
		out = append(out, k)
	}
	return out
}

// All returns a snapshot of the map's current key/value pairs.
func (m Map) All() map[any]any {
	out := make(map[any]any, len(m.n.mp))
	for k, v := range m.n.mp {
		out[k] = wrapValue(v)
	}
	return out
}

// Set stores v at key, replacing and detaching any previous child wrapper
// that occupied it.
func (m Map) Set(key, v any) error {
	return m.n.mutate(func() error {
		if err := m.n.markDirty(); err != nil {
			return err
		}
		key, ok := normalizeScalar(key)
		if !ok {
			return codecErrf(nil, 0, nil, "unsupported map key type %T", key)
		}
		if old, ok := m.n.mp[key]; ok {
			if c, ok := old.(*node); ok {
				c.detach()
			}
		}
		stored, err := adoptValue(m.n.mgr, m.n, key, v)
		if err != nil {
			return err
		}
		m.n.mp[key] = stored
		return nil
	})
}

// Delete removes key, detaching its value if it was a child wrapper.
// Reports whether the key was present.
func (m Map) Delete(key any) (bool, error) {
	var existed bool
	err := m.n.mutate(func() error {
		if err := m.n.markDirty(); err != nil {
			return err
		}
		nk, _ := normalizeScalar(key)
		old, ok := m.n.mp[nk]
		if !ok {
			return nil
		}
		existed = true
		if c, ok := old.(*node); ok {
			c.detach()
		}
		delete(m.n.mp, nk)
		return nil
	})
	return existed, err
}

// Clear removes every key, detaching any child wrappers.
func (m Map) Clear() error {
	return m.n.mutate(func() error {
		if err := m.n.markDirty(); err != nil {
			return err
		}
		for _, v := range m.n.mp {
			if c, ok := v.(*node); ok {
				c.detach()
			}
		}
		m.n.mp = make(map[any]any)
		return nil
	})
}

// Update bulk-assigns every key/value pair in kvs, as repeated Set calls.
func (m Map) Update(kvs map[any]any) error {
	for k, v := range kvs {
		if err := m.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}
