package node

import (
	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/isoerr"
)

// Arena owns every Node and Payload in a volume, plus each namespace's
// root node. It is the sole owner of arena-index identity: nodes never
// hold pointers to each other, only IDs looked up through the Arena.
type Arena struct {
	nodes    []*Node    // index 0 unused (NoID sentinel)
	payloads []*Payload // index 0 unused

	roots map[consts.Namespace]ID
	dirty bool
}

// NewArena builds an empty arena with a fresh root directory node shared
// across every namespace (the root is always one node, visible wherever
// that namespace is enabled).
func NewArena() *Arena {
	a := &Arena{
		nodes:    make([]*Node, 1, 64),
		payloads: make([]*Payload, 1, 16),
		roots:    make(map[consts.Namespace]ID),
		dirty:    true,
	}
	root := a.newNodeLocked()
	root.IsDir = true
	for _, ns := range []consts.Namespace{consts.NamespaceISO9660, consts.NamespaceJoliet, consts.NamespaceUDF} {
		a.roots[ns] = root.ID
		root.Records[ns] = &RecordView{Name: ""}
		root.Parent[ns] = root.ID
	}
	return a
}

func (a *Arena) newNodeLocked() *Node {
	id := ID(len(a.nodes))
	n := newNode(id)
	a.nodes = append(a.nodes, n)
	return n
}

// Node looks up a node by ID. Returns nil for NoID or an out-of-range ID.
func (a *Arena) Node(id ID) *Node {
	if id <= NoID || int(id) >= len(a.nodes) {
		return nil
	}
	return a.nodes[id]
}

// Root returns the root directory's ID for the given namespace.
func (a *Arena) Root(ns consts.Namespace) ID {
	return a.roots[ns]
}

// Payload looks up a payload by ID.
func (a *Arena) Payload(id PayloadID) *Payload {
	if id <= PayloadID(0) || int(id) >= len(a.payloads) {
		return nil
	}
	return a.payloads[id]
}

// AddPayload registers p and returns its ID. Used when adding a new
// file's content for the first hard link; subsequent links in other
// namespaces reuse the returned PayloadID via AddHardLink.
func (a *Arena) AddPayload(p Payload) PayloadID {
	id := PayloadID(len(a.payloads))
	pp := p
	a.payloads = append(a.payloads, &pp)
	return id
}

// NewFileNode creates a new node carrying payload, not yet attached to
// any namespace.
func (a *Arena) NewFileNode(payload PayloadID) *Node {
	n := a.newNodeLocked()
	n.Payload = payload
	if pl := a.Payload(payload); pl != nil {
		pl.refCount++
	}
	return n
}

// NewDirNode creates a new directory node, not yet attached to any
// namespace.
func (a *Arena) NewDirNode() *Node {
	n := a.newNodeLocked()
	n.IsDir = true
	return n
}

// Attach gives node a record view and parent/child edge in ns, inserting
// it into parent's child list. The caller is responsible for sort order;
// layout.Build re-sorts children before assigning extents, so callers
// (parser, AddHardLink) may append in arbitrary order.
func (a *Arena) Attach(ns consts.Namespace, parent ID, child ID, rv RecordView) error {
	if err := validateNamespace("node.Arena.Attach", ns); err != nil {
		return err
	}
	p := a.Node(parent)
	c := a.Node(child)
	if p == nil || c == nil {
		return isoerr.InvalidInputf("node.Arena.Attach", "parent or child node does not exist")
	}
	if !p.IsDir {
		return isoerr.InvalidInputf("node.Arena.Attach", "parent node %d is not a directory", parent)
	}
	if c.InNamespace(ns) {
		return isoerr.InvalidInputf("node.Arena.Attach", "node %d already has a %s record", child, ns)
	}
	rvCopy := rv
	c.Records[ns] = &rvCopy
	c.Parent[ns] = parent
	p.Children[ns] = append(p.Children[ns], child)
	a.dirty = true
	return nil
}

// Detach removes node's record view from ns and unlinks it from its
// parent's child list. If node is a file and this was its last
// namespace link, the underlying payload's reference count drops to
// zero and becomes eligible for garbage collection at the next
// reconcile.
func (a *Arena) Detach(ns consts.Namespace, id ID) error {
	if err := validateNamespace("node.Arena.Detach", ns); err != nil {
		return err
	}
	n := a.Node(id)
	if n == nil || !n.InNamespace(ns) {
		return isoerr.InvalidInputf("node.Arena.Detach", "node %d has no %s record", id, ns)
	}
	parent := n.Parent[ns]
	if p := a.Node(parent); p != nil {
		children := p.Children[ns]
		for i, cid := range children {
			if cid == id {
				p.Children[ns] = append(children[:i], children[i+1:]...)
				break
			}
		}
	}
	delete(n.Records, ns)
	delete(n.Parent, ns)
	if !n.IsDir && len(n.Records) == 0 {
		if pl := a.Payload(n.Payload); pl != nil {
			pl.refCount--
		}
	}
	a.dirty = true
	return nil
}

// NamespaceCount returns how many namespaces node is currently visible
// in, used to distinguish rm_hard_link's "last link" case from rm_file.
func (n *Node) NamespaceCount() int {
	return len(n.Records)
}

// OrphanPayloads returns the IDs of payloads with zero remaining
// references, garbage that reconcile must exclude from the layout.
func (a *Arena) OrphanPayloads() []PayloadID {
	var out []PayloadID
	for i := 1; i < len(a.payloads); i++ {
		if a.payloads[i].refCount <= 0 && !a.payloads[i].Hidden {
			out = append(out, PayloadID(i))
		}
	}
	return out
}

// MarkDirty flags the arena as having mutations since the last reconcile.
func (a *Arena) MarkDirty() { a.dirty = true }

// Dirty reports whether mutations are pending a force_consistency pass.
func (a *Arena) Dirty() bool { return a.dirty }

// MarkClean clears the dirty flag; called by layout.Build after a
// successful reconcile.
func (a *Arena) MarkClean() { a.dirty = false }

// Nodes returns every live node in arena-index order, including the
// root (index 1). Used by the layout planner and tests; index 0 (NoID)
// is never included.
func (a *Arena) Nodes() []*Node {
	return append([]*Node(nil), a.nodes[1:]...)
}
