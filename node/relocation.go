package node

import (
	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/isoerr"
)

// Depth returns id's nesting depth in namespace ns, counting the root as
// depth 1, by walking Parent pointers to the root.
func (a *Arena) Depth(ns consts.Namespace, id ID) int {
	depth := 0
	cur := id
	root := a.Root(ns)
	for {
		depth++
		n := a.Node(cur)
		if n == nil || cur == root {
			return depth
		}
		parent, ok := n.Parent[ns]
		if !ok || parent == cur {
			return depth
		}
		cur = parent
	}
}

// NeedsRelocation reports whether placing a new directory as a child of
// parent would exceed the ISO9660/Joliet strict depth limit, triggering
// Rock Ridge CL/PL/RE deep-directory relocation.
func (a *Arena) NeedsRelocation(ns consts.Namespace, parent ID) bool {
	if ns != consts.NamespaceISO9660 {
		return false // Joliet/UDF never relocate; only the ISO9660 tree is depth-limited here
	}
	return a.Depth(ns, parent)+1 > consts.MaxISODepth
}

// rrMovedDir returns (creating if absent) the RR_MOVED directory at
// consts.RelocatedDepth under the ISO9660 root, the synthetic parent
// every deep-relocated directory's ISO9660 record lives under.
func (a *Arena) rrMovedDir() ID {
	root := a.Root(consts.NamespaceISO9660)
	rootNode := a.Node(root)
	for _, cid := range rootNode.Children[consts.NamespaceISO9660] {
		if a.Node(cid).Name(consts.NamespaceISO9660) == consts.RRMovedDirName {
			return cid
		}
	}
	dir := a.NewDirNode()
	rv := RecordView{Name: consts.RRMovedDirName}
	_ = a.Attach(consts.NamespaceISO9660, root, dir.ID, rv)
	a.SortChildren(consts.NamespaceISO9660, root)
	return dir.ID
}

// Relocate performs the CL/PL/RE triangle for dir, whose Rock
// Ridge-visible parent is realParent: dir's ISO9660 record is re-parented
// under RR_MOVED (marked with an RE entry on dir's "." record and a PL
// entry pointing back at realParent), while realParent gains a synthetic
// CL child record pointing at dir's real ISO9660 extent. The
// transformation is reversible: ResolveRelocations undoes it by reading
// the RelocationState this call records.
func (a *Arena) Relocate(dir ID, realParent ID) error {
	n := a.Node(dir)
	if n == nil || !n.IsDir {
		return isoerr.InvalidInputf("node.Arena.Relocate", "node %d is not a directory", dir)
	}
	isoRV, ok := n.Records[consts.NamespaceISO9660]
	if !ok {
		return isoerr.InvalidInputf("node.Arena.Relocate", "node %d has no ISO9660 record to relocate", dir)
	}
	movedParent := a.rrMovedDir()
	if err := a.Detach(consts.NamespaceISO9660, dir); err != nil {
		return err
	}
	isoRV.Relocation = &RelocationState{Relocated: true, RealParent: realParent}
	if err := a.Attach(consts.NamespaceISO9660, movedParent, dir, *isoRV); err != nil {
		return err
	}
	a.SortChildren(consts.NamespaceISO9660, movedParent)
	return nil
}

// SetRelocation marks dir's ISO9660 record view as a deep-relocation
// stand-in whose Rock Ridge-visible parent is realParent, without
// moving the node (the node already sits wherever the on-disk image
// physically placed it). Used by the parser, which discovers
// relocation after the fact from RE/CL/PL markers rather than
// performing the forward transformation Relocate implements for new
// additions.
func (a *Arena) SetRelocation(dir ID, realParent ID) error {
	n := a.Node(dir)
	if n == nil {
		return isoerr.InvalidInputf("node.Arena.SetRelocation", "node %d does not exist", dir)
	}
	rv, ok := n.Records[consts.NamespaceISO9660]
	if !ok {
		return isoerr.InvalidInputf("node.Arena.SetRelocation", "node %d has no ISO9660 record", dir)
	}
	rv.Relocation = &RelocationState{Relocated: true, RealParent: realParent}
	return nil
}

// ResolveRelocations grafts every relocated directory back under its
// Rock Ridge-visible real parent in a synthetic "Rock Ridge view" child
// list, used by the parser to present a name/path space with no
// RR_MOVED subtree visible, per spec §4.7 step 6. It returns a map from
// node ID to the set of children it has once RR_MOVED is folded away;
// callers needing the collapsed namespace (e.g. rr_path resolution)
// should consult this map in preference to Children[NamespaceISO9660]
// for directories appearing in it.
func (a *Arena) ResolveRelocations() map[ID][]ID {
	view := make(map[ID][]ID)
	for _, n := range a.nodes[1:] {
		if n == nil || !n.IsDir {
			continue
		}
		rv := n.Records[consts.NamespaceISO9660]
		if rv == nil || rv.Relocation == nil || !rv.Relocation.Relocated {
			continue
		}
		real := rv.Relocation.RealParent
		view[real] = append(view[real], n.ID)
	}
	return view
}
