package tosc

import "context"

// kind identifies the shape of a node in the value graph.
type kind uint8

const (
	kindSequence kind = iota
	kindMapping
	kindSet
	kindBytes
	kindRecord
)

func (k kind) String() string {
	switch k {
	case kindSequence:
		return "sequence"
	case kindMapping:
		return "mapping"
	case kindSet:
		return "set"
	case kindBytes:
		return "bytes"
	case kindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// node is one entry in a Manager's value-graph arena. It backs exactly one
// of the five public wrapper types (List, Map, Set, Bytes, Record); the
// wrapper is a thin handle carrying nothing but a *node.
//
// A node owns its local replica of the data outright; there is no
// copy-on-write aliasing between nodes within one Manager.
type node struct {
	mgr  *Manager
	id   uint64
	kind kind

	parent *node
	key    any // int index (sequence), map key (mapping), field name (record); nil for root/detached

	dirty    bool
	detached bool

	seq []any          // kindSequence: elements, each either *node or a leaf scalar
	mp  map[any]any    // kindMapping: key -> (*node | leaf scalar)
	st  *setData       // kindSet
	buf []byte         // kindBytes
	rec *recordData    // kindRecord
}

type recordData struct {
	order  []string
	values map[string]any // name -> (*node | leaf scalar)
}

func newNode(mgr *Manager, k kind) *node {
	n := &node{mgr: mgr, kind: k, id: mgr.nextNodeID()}
	switch k {
	case kindSequence:
		n.seq = nil
	case kindMapping:
		n.mp = make(map[any]any)
	case kindSet:
		n.st = newSetData()
	case kindBytes:
		n.buf = nil
	case kindRecord:
		n.rec = &recordData{values: make(map[string]any)}
	}
	return n
}

// children returns the direct child nodes of n (skipping leaf scalars).
func (n *node) children() []*node {
	var out []*node
	switch n.kind {
	case kindSequence:
		for _, v := range n.seq {
			if c, ok := v.(*node); ok {
				out = append(out, c)
			}
		}
	case kindMapping:
		for _, v := range n.mp {
			if c, ok := v.(*node); ok {
				out = append(out, c)
			}
		}
	case kindRecord:
		for _, v := range n.rec.values {
			if c, ok := v.(*node); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// markDirty is the common mutation hook: it asserts the node is linked,
// sets its dirty flag, and walks parent links marking ancestors dirty up
// to the root or the first already-dirty ancestor.
func (n *node) markDirty() error {
	if n.detached {
		return ErrDetachedMutation
	}
	if n.mgr != nil {
		n.mgr.mu.Lock()
		defer n.mgr.mu.Unlock()
	}
	for cur := n; cur != nil && !cur.dirty; cur = cur.parent {
		cur.dirty = true
		if n.mgr != nil {
			n.mgr.txn.recordDirty(cur)
		}
	}
	return nil
}

// mutate runs fn as one commit-scoped wrapper operation. If a transaction is
// already open on n's Manager, fn joins it as a nested step and nothing is
// committed here. Otherwise fn is wrapped in a fresh transaction that
// commits immediately on success, giving every wrapper mutation called
// outside an explicit Transact the implicit single-op transaction the
// control flow promises for that case.
func (n *node) mutate(fn func() error) error {
	return n.mgr.Transact(context.Background(), func(*Transaction) error {
		return fn()
	})
}

// detach marks n and its entire subtree as detached and clears n's link to
// its parent. The flag is cleared again only when a nested transaction's
// rollback restores the node, when the node is re-adopted through
// adoptValue, or when a refresh finds the node's id in the decoded tree.
func (n *node) detach() {
	if n.detached {
		return
	}
	if n.mgr != nil {
		n.mgr.txn.recordDetach(n)
	}
	n.detached = true
	n.parent = nil
	n.key = nil
	for _, c := range n.children() {
		c.detach()
	}
}

// clearDirty resets n and its subtree's dirty flags after a successful
// commit.
func (n *node) clearDirty() {
	if !n.dirty {
		return
	}
	n.dirty = false
	for _, c := range n.children() {
		c.clearDirty()
	}
}

// adopt links a freshly built or newly-placed child node under parent at
// the given key, rejecting an attempt to link an already-linked node at a
// second position. The node is entered in its Manager's id map so a later
// refresh reuses it in place, or detaches it if it is gone upstream.
func adopt(parent *node, key any, child *node) error {
	if child.parent != nil || (child.mgr != nil && child == child.mgr.root) {
		return ErrAliasing
	}
	child.parent = parent
	child.key = key
	child.detached = false
	if child.mgr != nil {
		child.mgr.objmap[child.id] = child
	}
	return nil
}

// reindexFrom updates the stored key of every sequence element from index
// i onward after an insertion or removal shifts their positions.
func (n *node) reindexFrom(i int) {
	for ; i < len(n.seq); i++ {
		if c, ok := n.seq[i].(*node); ok {
			c.key = i
		}
	}
}
