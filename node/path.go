package node

import (
	"strings"

	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/isoerr"
)

// Compare orders two encoded names the way namespace ns's directory sort
// does: ISO9660/Joliet pad to equal length (0x20 for ISO9660 bytes,
// 0x0000 for Joliet UCS-2 code units) and compare byte/unit-wise; UDF
// uses the same 0x20-padded byte compare as ISO9660 on the name string
// (this module does not implement UDF's optional hash-bucket directory
// index, so this byte compare stands in for "by name hash bucket then
// sequence" on the small directories this library targets).
func Compare(ns consts.Namespace, a, b string) int {
	switch ns {
	case consts.NamespaceJoliet:
		return compareJoliet(a, b)
	default:
		return comparePadded(a, b, 0x20)
	}
}

func comparePadded(a, b string, pad byte) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var ca, cb byte = pad, pad
		if i < len(a) {
			ca = a[i]
		}
		if i < len(b) {
			cb = b[i]
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	return 0
}

func compareJoliet(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n := len(ra)
	if len(rb) > n {
		n = len(rb)
	}
	for i := 0; i < n; i++ {
		var ca, cb rune
		if i < len(ra) {
			ca = ra[i]
		}
		if i < len(rb) {
			cb = rb[i]
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	return 0
}

// SortChildren reorders a directory's child list in ns according to
// that namespace's comparison, stable on ties (matches the spec's
// "stable by canonical name" path-table ordering requirement).
func (a *Arena) SortChildren(ns consts.Namespace, dir ID) {
	n := a.Node(dir)
	if n == nil {
		return
	}
	children := n.Children[ns]
	namesOf := func(id ID) string { return a.Node(id).Name(ns) }
	// insertion sort: directories are small and this keeps it stable
	// without importing sort for a handful of entries per directory.
	for i := 1; i < len(children); i++ {
		j := i
		for j > 0 && Compare(ns, namesOf(children[j-1]), namesOf(children[j])) > 0 {
			children[j-1], children[j] = children[j], children[j-1]
			j--
		}
	}
	n.Children[ns] = children
}

// Resolve walks the component list of path against namespace ns's child
// lists starting from that namespace's root, using ns's name comparison.
// path uses "/" as the separator regardless of namespace; an empty or
// "/" path resolves to the namespace root.
func (a *Arena) Resolve(ns consts.Namespace, path string) (ID, error) {
	if err := validateNamespace("node.Arena.Resolve", ns); err != nil {
		return NoID, err
	}
	root := a.Root(ns)
	if root == NoID {
		return NoID, isoerr.InvalidInputf("node.Arena.Resolve", "namespace %s has no root", ns)
	}
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return root, nil
	}
	current := root
	for _, comp := range strings.Split(trimmed, "/") {
		n := a.Node(current)
		if n == nil || !n.IsDir {
			return NoID, isoerr.InvalidInputf("node.Arena.Resolve", "path component %q: parent is not a directory", comp)
		}
		var next ID
		for _, cid := range n.Children[ns] {
			if Compare(ns, a.Node(cid).Name(ns), comp) == 0 {
				next = cid
				break
			}
		}
		if next == NoID {
			return NoID, isoerr.InvalidInputf("node.Arena.Resolve", "path %q: component %q not found", path, comp)
		}
		current = next
	}
	return current, nil
}
