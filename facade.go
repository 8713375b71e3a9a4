package isokit

import (
	"io"

	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/node"
)

// NamespaceFacade scopes every read-only call to a single namespace, the
// get_joliet_facade/get_iso9660_facade/get_rock_ridge_facade/
// get_udf_facade convenience spec.md §6 describes: callers that only
// ever care about one hierarchy don't have to thread a consts.Namespace
// argument through every call.
type NamespaceFacade struct {
	img *Image
	ns  consts.Namespace
}

// GetJolietFacade scopes subsequent calls to the Joliet tree.
func (img *Image) GetJolietFacade() *NamespaceFacade {
	return &NamespaceFacade{img: img, ns: consts.NamespaceJoliet}
}

// GetISO9660Facade scopes subsequent calls to the plain ISO9660 tree.
func (img *Image) GetISO9660Facade() *NamespaceFacade {
	return &NamespaceFacade{img: img, ns: consts.NamespaceISO9660}
}

// GetRockRidgeFacade scopes subsequent calls to the ISO9660 tree viewed
// through its Rock Ridge decorations (RRIP extends ISO9660 records
// rather than forming a namespace of its own, so this shares ISO9660's
// underlying tree).
func (img *Image) GetRockRidgeFacade() *NamespaceFacade {
	return &NamespaceFacade{img: img, ns: consts.NamespaceISO9660}
}

// GetUDFFacade scopes subsequent calls to the UDF tree.
func (img *Image) GetUDFFacade() *NamespaceFacade {
	return &NamespaceFacade{img: img, ns: consts.NamespaceUDF}
}

func (f *NamespaceFacade) GetRecord(path string) (*node.Node, error) {
	return f.img.GetRecord(f.ns, path)
}

func (f *NamespaceFacade) ListChildren(dirPath string) ([]*node.Node, error) {
	return f.img.ListChildren(f.ns, dirPath)
}

func (f *NamespaceFacade) Walk(fn func(path string, n *node.Node) error) error {
	return f.img.Walk(f.ns, fn)
}

func (f *NamespaceFacade) OpenFileFromISO(path string) (io.Reader, error) {
	return f.img.OpenFileFromISO(f.ns, path)
}

func (f *NamespaceFacade) RemoveHardLink(path string) error {
	return f.img.RemoveHardLink(f.ns, path)
}
