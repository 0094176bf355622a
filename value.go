package tosc

// wrapValue returns the public representation of a stored element: a
// Wrapper type for child nodes, or the scalar itself for leaf values.
func wrapValue(v any) any {
	if n, ok := v.(*node); ok {
		return wrapNode(n)
	}
	return v
}

func wrapNode(n *node) any {
	switch n.kind {
	case kindSequence:
		return List{n}
	case kindMapping:
		return Map{n}
	case kindSet:
		return Set{n}
	case kindBytes:
		return Bytes{n}
	case kindRecord:
		return Record{n}
	default:
		panic("tosc: unknown node kind")
	}
}

type rawNoder interface {
	rawNode() *node
}

// normalizeScalar canonicalizes Go's numeric literal types (int, int32,
// ...) down to the two scalar kinds the engine and codec actually reason
// about (int64, float64), matching how msgpack's own type system collapses
// integer widths.
func normalizeScalar(v any) (any, bool) {
	switch x := v.(type) {
	case nil, bool, int64, float64, string, []byte:
		return v, true
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), true
	case float32:
		return float64(x), true
	default:
		return nil, false
	}
}

// adoptValue places v as the value at (parent, key), either by linking an
// already-wrapped node or by building a fresh node tree out of a plain Go
// container. Leaf scalars pass through unwrapped.
func adoptValue(mgr *Manager, parent *node, key any, v any) (any, error) {
	if rn, ok := v.(rawNoder); ok {
		n := rn.rawNode()
		if n.mgr != mgr {
			return nil, codecErrf(nil, 0, nil, "value belongs to a different manager")
		}
		if !n.detached && (n.parent != nil || n == mgr.root) {
			return nil, ErrAliasing
		}
		if err := adopt(parent, key, n); err != nil {
			return nil, err
		}
		return n, nil
	}

	if scalar, ok := normalizeScalar(v); ok {
		if b, isBytes := scalar.([]byte); isBytes {
			n := newNode(mgr, kindBytes)
			n.buf = append([]byte(nil), b...)
			ensure(adopt(parent, key, n))
			return n, nil
		}
		return scalar, nil
	}

	switch x := v.(type) {
	case setSeed:
		n := newNode(mgr, kindSet)
		for _, elem := range x.values {
			scalar, ok := normalizeScalar(elem)
			if !ok {
				return nil, codecErrf(nil, 0, nil, "unsupported set element type %T", elem)
			}
			n.st.add(scalar)
		}
		ensure(adopt(parent, key, n))
		return n, nil
	case []any:
		n := newNode(mgr, kindSequence)
		n.seq = make([]any, 0, len(x))
		for i, elem := range x {
			stored, err := adoptValue(mgr, n, i, elem)
			if err != nil {
				return nil, err
			}
			n.seq = append(n.seq, stored)
		}
		ensure(adopt(parent, key, n))
		return n, nil
	case map[string]any:
		n := newNode(mgr, kindMapping)
		for k, elem := range x {
			stored, err := adoptValue(mgr, n, k, elem)
			if err != nil {
				return nil, err
			}
			n.mp[k] = stored
		}
		ensure(adopt(parent, key, n))
		return n, nil
	case map[any]any:
		n := newNode(mgr, kindMapping)
		for k, elem := range x {
			stored, err := adoptValue(mgr, n, k, elem)
			if err != nil {
				return nil, err
			}
			n.mp[k] = stored
		}
		ensure(adopt(parent, key, n))
		return n, nil
	case FieldMapper:
		n := newNode(mgr, kindRecord)
		n.rec.order = append([]string(nil), x.Fields()...)
		for _, name := range n.rec.order {
			stored, err := adoptValue(mgr, n, name, x.FieldGet(name))
			if err != nil {
				return nil, err
			}
			n.rec.values[name] = stored
		}
		ensure(adopt(parent, key, n))
		return n, nil
	}

	return nil, codecErrf(nil, 0, nil, "unsupported value type %T", v)
}
