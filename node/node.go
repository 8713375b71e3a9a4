// Package node implements the in-memory node model (C6): a flat arena of
// nodes with per-namespace parent/child indices, payload identity shared
// across hard-link groups, and the Rock Ridge deep-directory relocation
// bookkeeping. Parent/child and hard-link edges are arena indices, never
// back-pointers, following the spec's "arena of nodes plus per-namespace
// child lists" design note.
package node

import (
	"time"

	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/isoerr"
	"github.com/go-optical/isokit/rockridge"
)

// ID indexes a Node within an Arena. The zero value is never a valid
// node; Arena reserves index 0 for "no node".
type ID int

// PayloadID indexes a Payload within an Arena's payload pool.
type PayloadID int

// NoID is the sentinel "absent" node index.
const NoID = ID(0)

// NoPayloadID is the sentinel "absent" payload index, used by directories
// and any node with no content.
const NoPayloadID = PayloadID(0)

// Payload is a node's byte content: either a range of the source image
// (set during parse) or a user-supplied reader (set during add_fp), or
// absent for directories. Multiple nodes (a hard-link group) may share
// one Payload by PayloadID.
type Payload struct {
	Size       int64
	SourceSize int64 // length actually available from Reader, for in-place modify bounds checks

	// Exactly one of the following is populated.
	ImageOffset int64 // byte offset into the parsed source image; SourceIsImage true
	SourceIsImage bool
	Reader        PayloadReader // user-supplied content; SourceIsImage false

	// Hidden marks a payload reachable only through the boot catalog,
	// with no namespace record at all (pycdlib's hidden El Torito boot
	// file).
	Hidden bool

	refCount int
}

// PayloadReader is a user-supplied byte source, satisfied by *os.File,
// *bytes.Reader, or any ReaderAt the caller keeps alive for the life of
// the volume.
type PayloadReader interface {
	ReadAt(p []byte, off int64) (n int, err error)
}

// RelocationState tracks one node's position in a Rock Ridge deep
// directory relocation triangle (CL/PL/RE), reversible between the
// "real" Rock Ridge tree position and its RR_MOVED stand-in.
type RelocationState struct {
	// Relocated is true when this directory's ISO9660 record lives
	// under RR_MOVED while its Rock Ridge-visible parent is elsewhere.
	Relocated bool
	// RealParent is the Rock Ridge parent this directory appears under
	// once CL/PL/RE is resolved; NoID when not relocated.
	RealParent ID
}

// RecordView is one namespace's view of a node: its encoded name in
// that namespace plus (for ISO9660 with Rock Ridge) the POSIX attribute
// set layered on top.
type RecordView struct {
	Name string

	// RockRidge is non-nil only for the ISO9660 namespace record when
	// Rock Ridge extensions are enabled.
	RockRidge *RockRidgeAttrs

	// Relocation is non-nil only for ISO9660 directory records that
	// participate in a CL/PL/RE triangle.
	Relocation *RelocationState
}

// RockRidgeAttrs is the decoded Rock Ridge POSIX metadata for a node's
// ISO9660 record view (PX, PN, TF, SL).
type RockRidgeAttrs struct {
	Mode      uint32
	UID       uint32
	GID       uint32
	Links     uint32
	SerialNo  uint32
	Device    *rockridge.DeviceNumber
	SymlinkTo string // non-empty only for symlink nodes

	AccessTime       *time.Time
	ModificationTime *time.Time
	ChangeTime       *time.Time
	CreationTime     *time.Time
}

// BootCatalogEntry is the decoded metadata an El Torito boot catalog
// entry contributes to the node it names.
type BootCatalogEntry struct {
	Platform  uint8
	Emulation uint8
	LoadSegment uint16
	SectorCount uint16
	Bootable    bool
	IsDefault   bool
}

// Node is the central entity: one distinct payload or directory,
// optionally visible in any subset of the four namespaces.
type Node struct {
	ID      ID
	Payload PayloadID // NoPayloadID for directories with no content

	IsDir bool

	Records  map[consts.Namespace]*RecordView
	Parent   map[consts.Namespace]ID
	Children map[consts.Namespace][]ID // ordered; directories only

	BootCatalog *BootCatalogEntry
}

func newNode(id ID) *Node {
	return &Node{
		ID:       id,
		Payload:  NoPayloadID,
		Records:  make(map[consts.Namespace]*RecordView),
		Parent:   make(map[consts.Namespace]ID),
		Children: make(map[consts.Namespace][]ID),
	}
}

// InNamespace reports whether the node has a record view in ns.
func (n *Node) InNamespace(ns consts.Namespace) bool {
	_, ok := n.Records[ns]
	return ok
}

// Name returns the node's encoded name in ns, or "" if the node has no
// record in that namespace.
func (n *Node) Name(ns consts.Namespace) string {
	if rv := n.Records[ns]; rv != nil {
		return rv.Name
	}
	return ""
}

func validateNamespace(op string, ns consts.Namespace) error {
	switch ns {
	case consts.NamespaceISO9660, consts.NamespaceJoliet, consts.NamespaceUDF, consts.NamespaceBootCatalog:
		return nil
	default:
		return isoerr.InvalidInputf(op, "unknown namespace %d", ns)
	}
}
