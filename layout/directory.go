package layout

import (
	"sort"

	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/directory"
	"github.com/go-optical/isokit/node"
	"github.com/go-optical/isokit/option"
	"github.com/go-optical/isokit/rockridge"
	"github.com/go-optical/isokit/susp"
)

// extentFunc resolves a node's assigned (extent, dataLength) for one
// namespace. The length-only pass uses placeholderExtent; both-endian
// fields are a fixed 8/4-byte width regardless of value, so substituting
// zeros there never changes a directory record's marshaled length.
type extentFunc func(id node.ID) (extent uint32, length uint32)

func placeholderExtent(node.ID) (uint32, uint32) { return 0, 0 }

// recordSystemUse builds the Rock Ridge system-use area for one record,
// or nil outside the ISO9660 namespace — RRIP decorates ISO9660 records
// only, never Joliet or UDF.
func recordSystemUse(cfg *option.Config, ns consts.Namespace, kind rrRecordKind, name string, n *node.Node, isVolumeRoot bool) ([]byte, error) {
	if ns != consts.NamespaceISO9660 {
		return nil, nil
	}
	var attrs *node.RockRidgeAttrs
	if rv := n.Records[ns]; rv != nil {
		attrs = rv.RockRidge
	}
	return buildSystemUse(cfg, kind, name, attrs, n.IsDir, isVolumeRoot)
}

// relocationSelfEntries renders the PL+RE pair that marks a directory's
// "." record as a deep-relocation target: PL points back at the
// Rock Ridge-visible real parent's extent, RE carries no body.
func relocationSelfEntries(realParentExtent uint32) []byte {
	var out []byte
	out = append(out, susp.NewEntry("PL", rockridge.ExtensionVersion,
		rockridge.MarshalRelocationLink(rockridge.RelocationLink{Extent: realParentExtent})).Marshal()...)
	out = append(out, susp.NewEntry("RE", rockridge.ExtensionVersion, nil).Marshal()...)
	return out
}

// relocationChildEntry renders the CL entry on a real parent's phantom
// child record for a directory that was actually relocated elsewhere
// (normally under /RR_MOVED): it points at the relocated directory's
// real, current extent.
func relocationChildEntry(childExtent uint32) []byte {
	return susp.NewEntry("CL", rockridge.ExtensionVersion,
		rockridge.MarshalRelocationLink(rockridge.RelocationLink{Extent: childExtent})).Marshal()
}

// appendRecord marshals rec and appends it to out, padding out to the
// next block boundary first if rec would otherwise straddle one.
func appendRecord(out *[]byte, rec *directory.Record) error {
	data, err := rec.Marshal()
	if err != nil {
		return err
	}
	pos := len(*out) % consts.BlockSize
	if pos+len(data) > consts.BlockSize {
		*out = append(*out, make([]byte, consts.BlockSize-pos)...)
	}
	*out = append(*out, data...)
	return nil
}

// buildDirectoryRecords renders one directory's full on-disk content for
// namespace ns: "." then ".." then every child in the order
// node.Arena.SortChildren already established, zero-padded to a whole
// number of blocks. extentOf supplies each referenced node's extent and
// length; pass placeholderExtent for the length-only first pass.
// relocView is node.Arena.ResolveRelocations(): for the ISO9660
// namespace, it both marks dirID's own "." record with PL/RE when dirID
// was itself relocated under /RR_MOVED, and injects a synthetic CL
// child record for every directory this one is the real (Rock
// Ridge-visible) parent of, since Relocate physically detaches those
// directories from dir.Children[ns].
func buildDirectoryRecords(cfg *option.Config, a *node.Arena, ns consts.Namespace, dirID node.ID, extentOf extentFunc, isVolumeRoot bool, relocView map[node.ID][]node.ID) ([]byte, error) {
	dir := a.Node(dirID)
	parentID := dir.Parent[ns]

	dirExtent, dirLength := extentOf(dirID)
	parentExtent, parentLength := extentOf(parentID)

	rrActive := ns == consts.NamespaceISO9660 && cfg.RockRidge

	var out []byte

	selfSU, err := recordSystemUse(cfg, ns, rrSelf, "", dir, isVolumeRoot)
	if err != nil {
		return nil, err
	}
	if rrActive {
		if rv := dir.Records[ns]; rv != nil && rv.Relocation != nil && rv.Relocation.Relocated {
			realParentExtent, _ := extentOf(rv.Relocation.RealParent)
			selfSU = append(selfSU, relocationSelfEntries(realParentExtent)...)
		}
	}
	if err := appendRecord(&out, &directory.Record{
		Extent:     dirExtent,
		DataLength: dirLength,
		Flags:      directory.Flags{Directory: true},
		Identifier: directory.SpecialRoot,
		SystemUse:  selfSU,
		Joliet:     ns == consts.NamespaceJoliet,
	}); err != nil {
		return nil, err
	}

	parentNode := a.Node(parentID)
	parentSU, err := recordSystemUse(cfg, ns, rrParent, "", parentNode, false)
	if err != nil {
		return nil, err
	}
	if err := appendRecord(&out, &directory.Record{
		Extent:     parentExtent,
		DataLength: parentLength,
		Flags:      directory.Flags{Directory: true},
		Identifier: directory.SpecialParent,
		SystemUse:  parentSU,
		Joliet:     ns == consts.NamespaceJoliet,
	}); err != nil {
		return nil, err
	}

	type renderChild struct {
		id         node.ID
		relocation bool
	}
	items := make([]renderChild, 0, len(dir.Children[ns])+len(relocView[dirID]))
	for _, cid := range dir.Children[ns] {
		items = append(items, renderChild{id: cid})
	}
	if rrActive {
		for _, cid := range relocView[dirID] {
			items = append(items, renderChild{id: cid, relocation: true})
		}
		sort.SliceStable(items, func(i, j int) bool {
			return node.Compare(ns, a.Node(items[i].id).Name(ns), a.Node(items[j].id).Name(ns)) < 0
		})
	}

	for _, item := range items {
		child := a.Node(item.id)
		rv := child.Records[ns]
		childExtent, childLength := extentOf(item.id)
		su, err := recordSystemUse(cfg, ns, rrEntry, rv.Name, child, false)
		if err != nil {
			return nil, err
		}
		if item.relocation {
			su = append(su, relocationChildEntry(childExtent)...)
		}
		if err := appendRecord(&out, &directory.Record{
			Extent:     childExtent,
			DataLength: childLength,
			Flags:      directory.Flags{Directory: child.IsDir},
			Identifier: rv.Name,
			SystemUse:  su,
			Joliet:     ns == consts.NamespaceJoliet,
		}); err != nil {
			return nil, err
		}
	}

	if rem := len(out) % consts.BlockSize; rem != 0 {
		out = append(out, make([]byte, consts.BlockSize-rem)...)
	}
	return out, nil
}

func blocksFor(byteLen uint32) uint32 {
	return (byteLen + consts.BlockSize - 1) / consts.BlockSize
}

// collectDirs walks ns's directory tree breadth-first from its root,
// sorting each directory's children (node.Arena.SortChildren) right
// before enqueueing its subdirectories. The resulting order satisfies
// ECMA-119 6.9's path-table ordering (increasing depth, then ascending
// parent directory number, then name within a parent) and doubles as the
// directory extent-assignment order.
func collectDirs(a *node.Arena, ns consts.Namespace) []node.ID {
	root := a.Root(ns)
	a.SortChildren(ns, root)
	order := []node.ID{root}
	queue := []node.ID{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n := a.Node(id)
		for _, childID := range n.Children[ns] {
			c := a.Node(childID)
			if c.IsDir {
				a.SortChildren(ns, childID)
				order = append(order, childID)
				queue = append(queue, childID)
			}
		}
	}
	return order
}

// contentLengths runs the length-only first pass over every directory in
// dirs, returning each one's final padded byte length.
func contentLengths(cfg *option.Config, a *node.Arena, ns consts.Namespace, dirs []node.ID, relocView map[node.ID][]node.ID) (map[node.ID]uint32, error) {
	lens := make(map[node.ID]uint32, len(dirs))
	root := dirs[0]
	for _, id := range dirs {
		b, err := buildDirectoryRecords(cfg, a, ns, id, placeholderExtent, id == root, relocView)
		if err != nil {
			return nil, err
		}
		lens[id] = uint32(len(b))
	}
	return lens, nil
}
