package node

import (
	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/isoerr"
)

// PathSpec names a single namespace/path pair for one of the four
// mutually-exclusive path forms the public API accepts, per the design
// note's {Iso9660(path), RockRidge(path), Joliet(path), Udf(path)}
// replacement for the source's keyword-only namespace arguments.
type PathSpec struct {
	Namespace consts.Namespace
	Path      string // parent directory path; the leaf name is Name
	Name      string
}

// AddHardLink attaches an existing node as a new child in ns at the
// directory named by spec.Path, with leaf name spec.Name. This is the
// primitive: calling it against a second namespace for the same node
// creates a second, independent link to the same payload, leaving every
// other namespace untouched — the "iso_path with no joliet_path leaves
// Joliet unchanged" behavior the spec calls out.
func (a *Arena) AddHardLink(id ID, spec PathSpec, rv RecordView) error {
	parent, err := a.Resolve(spec.Namespace, spec.Path)
	if err != nil {
		return err
	}
	rv.Name = spec.Name
	if err := a.Attach(spec.Namespace, parent, id, rv); err != nil {
		return err
	}
	a.SortChildren(spec.Namespace, parent)
	return nil
}

// AddFile bundles "add a hard link in every namespace named" into one
// call, the add_file convenience the spec requires on top of the
// add_hard_link primitive.
func (a *Arena) AddFile(id ID, specs []PathSpec, views map[consts.Namespace]RecordView) error {
	if len(specs) == 0 {
		return isoerr.InvalidInputf("node.Arena.AddFile", "at least one namespace path is required")
	}
	for _, spec := range specs {
		rv := views[spec.Namespace]
		if err := a.AddHardLink(id, spec, rv); err != nil {
			return err
		}
	}
	return nil
}

// RemoveLink is rm_hard_link: detach node's record in exactly one
// namespace. When this was the node's last remaining namespace link,
// its payload becomes an orphan (refcount zero) and is excluded from
// the next layout pass — equivalent to rm_file for that node.
func (a *Arena) RemoveLink(ns consts.Namespace, id ID) error {
	return a.Detach(ns, id)
}

// RemoveFile is rm_file: call RemoveLink for every namespace the node
// is currently visible in.
func (a *Arena) RemoveFile(id ID) error {
	n := a.Node(id)
	if n == nil {
		return isoerr.InvalidInputf("node.Arena.RemoveFile", "node %d does not exist", id)
	}
	var namespaces []consts.Namespace
	for ns := range n.Records {
		namespaces = append(namespaces, ns)
	}
	for _, ns := range namespaces {
		if err := a.RemoveLink(ns, id); err != nil {
			return err
		}
	}
	return nil
}

// HardLinkGroup returns every node sharing id's payload, the full set
// of namespace-record views over one stored copy of the bytes.
func (a *Arena) HardLinkGroup(id ID) []ID {
	n := a.Node(id)
	if n == nil || n.IsDir {
		return nil
	}
	var group []ID
	for _, other := range a.nodes[1:] {
		if other != nil && !other.IsDir && other.Payload == n.Payload {
			group = append(group, other.ID)
		}
	}
	return group
}
