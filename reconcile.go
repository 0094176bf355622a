package tosc

// reconcileValue rebuilds the stored representation of one graph position
// from a freshly decoded Graph, reusing an existing node whenever its id
// was already present in oldObjmap and its kind is unchanged. This is how
// Manager.Refresh and the watcher apply externally-originated changes
// without tearing wrapper identities that user code still holds.
func reconcileValue(mgr *Manager, oldObjmap, newObjmap map[uint64]*node, parent *node, key any, g Graph) any {
	if g.Kind == GraphScalar {
		return g.Scalar
	}

	want := graphNodeKind(g.Kind)
	if existing, ok := oldObjmap[g.ID]; ok && g.ID != 0 && existing.kind == want && newObjmap[g.ID] == nil {
		existing.parent = parent
		existing.key = key
		existing.detached = false
		existing.dirty = false
		newObjmap[g.ID] = existing
		refillNode(mgr, existing, g, oldObjmap, newObjmap)
		return existing
	}

	n := newNode(mgr, want)
	// Adopt the wire identity rather than this manager's own freshly
	// minted counter value: a later refresh must be able to find this
	// exact node again by the id its own future re-encode will carry,
	// which is only stable if it matches what was just decoded.
	if g.ID != 0 {
		n.id = g.ID
	}
	n.parent = parent
	n.key = key
	newObjmap[n.id] = n
	refillNode(mgr, n, g, oldObjmap, newObjmap)
	return n
}

func refillNode(mgr *Manager, n *node, g Graph, oldObjmap, newObjmap map[uint64]*node) {
	switch n.kind {
	case kindSequence:
		n.seq = make([]any, len(g.Items))
		for i, item := range g.Items {
			n.seq[i] = reconcileValue(mgr, oldObjmap, newObjmap, n, i, item)
		}
	case kindMapping:
		n.mp = make(map[any]any, len(g.Pairs))
		for _, p := range g.Pairs {
			n.mp[p.Key] = reconcileValue(mgr, oldObjmap, newObjmap, n, p.Key, p.Value)
		}
	case kindSet:
		n.st = newSetData()
		for _, item := range g.Items {
			n.st.add(item.Scalar)
		}
	case kindBytes:
		n.buf = append([]byte(nil), g.Bytes...)
	case kindRecord:
		n.rec = &recordData{values: make(map[string]any, len(g.Fields))}
		for _, f := range g.Fields {
			n.rec.order = append(n.rec.order, f.Name)
			n.rec.values[f.Name] = reconcileValue(mgr, oldObjmap, newObjmap, n, f.Name, f.Value)
		}
	}
}

func graphNodeKind(gk GraphKind) kind {
	switch gk {
	case GraphSequence:
		return kindSequence
	case GraphMapping:
		return kindMapping
	case GraphSet:
		return kindSet
	case GraphBytes:
		return kindBytes
	case GraphRecord:
		return kindRecord
	default:
		panic("tosc: scalar graph has no node kind")
	}
}
