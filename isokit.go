// Package isokit is the public facade (C10): new/open/write a
// ISO9660+Joliet+Rock Ridge+El Torito+UDF optical disc image, generalizing
// the teacher's pkg/iso9660.go top-level facade to the reconciled,
// multi-namespace node.Arena this module builds its tree on.
package isokit

import (
	"io"
	"os"
	"time"

	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/eltorito"
	"github.com/go-optical/isokit/isoerr"
	"github.com/go-optical/isokit/isohybrid"
	"github.com/go-optical/isokit/layout"
	"github.com/go-optical/isokit/node"
	"github.com/go-optical/isokit/option"
	"github.com/go-optical/isokit/parser"
	"github.com/go-optical/isokit/writer"
)

// Image is a disc image under construction or opened from an existing
// source, wrapping the reconciled node.Arena plus whatever volume
// metadata drives the next write.
type Image struct {
	arena  *node.Arena
	cfg    option.Config
	meta   layout.Meta
	plan   *layout.Plan
	source io.ReaderAt
	closer io.Closer
}

// New creates an empty image ready for add_fp/add_directory calls.
func New(volumeIdentifier string, opts ...option.CreateOption) *Image {
	cfg := option.DefaultConfig()
	option.ApplyCreate(&cfg, opts...)
	return &Image{
		arena: node.NewArena(),
		cfg:   cfg,
		meta: layout.Meta{
			VolumeIdentifier: volumeIdentifier,
			CreationTime:     time.Now(),
		},
	}
}

// Open parses an existing image from source (kept open for the life of
// the Image, since payload content is read lazily from it on Write).
func Open(source io.ReaderAt, opts ...option.OpenOption) (*Image, error) {
	cfg := option.DefaultConfig()
	option.ApplyOpen(&cfg, opts...)
	cfg.Source = source

	res, err := parser.Open(source, opts...)
	if err != nil {
		return nil, err
	}
	img := &Image{
		arena:  res.Arena,
		cfg:    cfg,
		source: source,
	}
	if pvd := res.Info.Primary; pvd != nil {
		img.meta.SystemIdentifier = pvd.SystemIdentifier
		img.meta.VolumeIdentifier = pvd.VolumeIdentifier
		img.meta.VolumeSetIdentifier = pvd.VolumeSetIdentifier
		img.meta.PublisherIdentifier = pvd.PublisherIdentifier
		img.meta.DataPreparerIdentifier = pvd.DataPreparerIdentifier
		img.meta.ApplicationIdentifier = pvd.ApplicationIdentifier
		img.meta.CopyrightFileIdentifier = pvd.CopyrightFileIdentifier
		img.meta.AbstractFileIdentifier = pvd.AbstractFileIdentifier
		img.meta.BibliographicFileIdentifier = pvd.BibliographicFileIdentifier
		if !pvd.VolumeCreationDateAndTime.Unspecified {
			img.meta.CreationTime = pvd.VolumeCreationDateAndTime.Time
		}
	}
	if svd := res.Info.Joliet; svd != nil {
		img.cfg.Joliet = true
		img.cfg.JolietLevel = svd.JolietLevel()
		img.meta.JolietSystemIdentifier = svd.SystemIdentifier
		img.meta.JolietVolumeIdentifier = svd.VolumeIdentifier
	}
	if res.Info.UDFPresent {
		img.cfg.UDF = true
		if p := res.Info.UDFPrimary; p != nil {
			img.meta.UDFVolumeIdentifier = p.VolumeIdentifier
		}
		if fs := res.Info.UDFFileSet; fs != nil {
			img.meta.UDFLogicalVolumeIdentifier = fs.LogicalVolumeIdentifier
			img.meta.UDFFileSetIdentifier = fs.FileSetIdentifier
		}
	}
	if cat := res.Info.BootCatalog; cat != nil {
		for _, e := range cat.Entries() {
			var payload node.PayloadID
			if id, ok := res.ExtentToNode[e.Extent]; ok {
				if n := res.Arena.Node(id); n != nil {
					payload = n.Payload
				}
			}
			img.meta.BootEntries = append(img.meta.BootEntries, layout.BootEntry{
				Platform:    e.Platform,
				Emulation:   e.Emulation,
				LoadSegment: e.LoadSegment,
				SectorCount: e.SectorCount,
				Payload:     payload,
			})
		}
	}
	return img, nil
}

// OpenFile opens an existing image file at path, keeping the *os.File
// open for the life of the Image. The handle is opened read-write so
// ModifyFileInPlace can patch it directly; Open(path-derived io.Reader)
// stays read-only for callers that never intend to patch in place.
func OpenFile(path string, opts ...option.OpenOption) (*Image, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	img, err := Open(f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	img.closer = f
	return img, nil
}

// Close releases any file handle Open/OpenFile acquired. A no-op for
// images created with New.
func (img *Image) Close() error {
	if img.closer != nil {
		return img.closer.Close()
	}
	return nil
}

// AddFile adds content at isoPath (and, when Joliet is enabled, the same
// leaf name projected into the Joliet tree) from r, which must remain
// valid until Write.
func (img *Image) AddFile(isoPath string, r node.PayloadReader, size int64) error {
	dir, name := splitPath(isoPath)
	parentID, err := img.arena.Resolve(consts.NamespaceISO9660, dir)
	if err != nil {
		return err
	}
	payload := img.arena.AddPayload(node.Payload{Size: size, Reader: r})
	n := img.arena.NewFileNode(payload)
	if err := img.arena.Attach(consts.NamespaceISO9660, parentID, n.ID, node.RecordView{Name: name}); err != nil {
		return err
	}
	if img.cfg.Joliet {
		jParentID, err := img.arena.Resolve(consts.NamespaceJoliet, dir)
		if err != nil {
			return err
		}
		if err := img.arena.Attach(consts.NamespaceJoliet, jParentID, n.ID, node.RecordView{Name: name}); err != nil {
			return err
		}
	}
	if img.cfg.UDF {
		uParentID, err := img.arena.Resolve(consts.NamespaceUDF, dir)
		if err != nil {
			return err
		}
		if err := img.arena.Attach(consts.NamespaceUDF, uParentID, n.ID, node.RecordView{Name: name}); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFile detaches isoPath's node from every namespace it appears in,
// making its payload eligible for garbage collection at the next Write.
func (img *Image) RemoveFile(isoPath string) error {
	id, err := img.arena.Resolve(consts.NamespaceISO9660, isoPath)
	if err != nil {
		return err
	}
	return img.arena.RemoveFile(id)
}

// AddHardLink attaches the node already visible at existingPath as a new
// link at newPath within the same namespace.
func (img *Image) AddHardLink(ns consts.Namespace, existingPath, newDir, newName string) error {
	id, err := img.arena.Resolve(ns, existingPath)
	if err != nil {
		return err
	}
	existing := img.arena.Node(id)
	if existing == nil || existing.IsDir {
		return isoerr.InvalidInputf("isokit.AddHardLink", "%q is not a regular file", existingPath)
	}
	if _, err := img.arena.Resolve(ns, newDir); err != nil {
		return err
	}
	link := img.arena.NewFileNode(existing.Payload)
	return img.arena.AddHardLink(link.ID, node.PathSpec{Namespace: ns, Path: newDir, Name: newName}, node.RecordView{Name: newName})
}

// RemoveHardLink is rm_hard_link: detach isoPath's record in exactly one
// namespace, leaving every other namespace's link to the same node (and
// payload) untouched.
func (img *Image) RemoveHardLink(ns consts.Namespace, isoPath string) error {
	id, err := img.arena.Resolve(ns, isoPath)
	if err != nil {
		return err
	}
	return img.arena.RemoveLink(ns, id)
}

// AddDirectory creates a new directory at isoPath (and its Joliet/UDF
// projections, if enabled). A path that would push the ISO9660 tree past
// its strict 8-level depth limit is relocated under /RR_MOVED (the
// standard CL/PL/RE deep-directory triangle) when Rock Ridge is enabled;
// otherwise it's rejected as invalid-input, since nothing else can
// legally represent an ISO9660 record that deep.
func (img *Image) AddDirectory(isoPath string) error {
	dir, name := splitPath(isoPath)
	parentID, err := img.arena.Resolve(consts.NamespaceISO9660, dir)
	if err != nil {
		return err
	}
	needsRelocation := img.arena.NeedsRelocation(consts.NamespaceISO9660, parentID)
	if needsRelocation && !img.cfg.RockRidge {
		return isoerr.InvalidInputf("isokit.AddDirectory", "%q exceeds ISO9660's 8-level directory depth limit; enable Rock Ridge to relocate it under /RR_MOVED", isoPath)
	}
	n := img.arena.NewDirNode()
	if err := img.arena.Attach(consts.NamespaceISO9660, parentID, n.ID, node.RecordView{Name: name}); err != nil {
		return err
	}
	if needsRelocation {
		if err := img.arena.Relocate(n.ID, parentID); err != nil {
			return err
		}
	}
	if img.cfg.Joliet {
		jParentID, err := img.arena.Resolve(consts.NamespaceJoliet, dir)
		if err != nil {
			return err
		}
		if err := img.arena.Attach(consts.NamespaceJoliet, jParentID, n.ID, node.RecordView{Name: name}); err != nil {
			return err
		}
	}
	if img.cfg.UDF {
		uParentID, err := img.arena.Resolve(consts.NamespaceUDF, dir)
		if err != nil {
			return err
		}
		if err := img.arena.Attach(consts.NamespaceUDF, uParentID, n.ID, node.RecordView{Name: name}); err != nil {
			return err
		}
	}
	return nil
}

// RemoveDirectory is rm_directory: recursively removes isoPath and
// everything under it (in every namespace each descendant is visible
// in, including directories relocated away from it under /RR_MOVED),
// leaving orphaned payloads for the next reconcile to garbage collect.
func (img *Image) RemoveDirectory(isoPath string) error {
	id, err := img.arena.Resolve(consts.NamespaceISO9660, isoPath)
	if err != nil {
		return err
	}
	n := img.arena.Node(id)
	if n == nil || !n.IsDir {
		return isoerr.InvalidInputf("isokit.RemoveDirectory", "%q is not a directory", isoPath)
	}
	return img.removeDirectoryNode(id)
}

func (img *Image) removeDirectoryNode(id node.ID) error {
	n := img.arena.Node(id)
	seen := make(map[node.ID]bool)
	var kids []node.ID
	for _, ids := range n.Children {
		for _, cid := range ids {
			if !seen[cid] {
				seen[cid] = true
				kids = append(kids, cid)
			}
		}
	}
	for _, cid := range img.arena.ResolveRelocations()[id] {
		if !seen[cid] {
			seen[cid] = true
			kids = append(kids, cid)
		}
	}
	for _, cid := range kids {
		c := img.arena.Node(cid)
		if c.IsDir {
			if err := img.removeDirectoryNode(cid); err != nil {
				return err
			}
			continue
		}
		if err := img.arena.RemoveFile(cid); err != nil {
			return err
		}
	}
	return img.arena.RemoveFile(id)
}

// AddElTorito registers bootImagePath as a boot entry. The first call
// becomes the catalog's default/initial entry; later calls become
// section entries.
func (img *Image) AddElTorito(bootImagePath string, platform eltorito.Platform, emulation eltorito.Emulation, loadSegment uint16) error {
	id, err := img.arena.Resolve(consts.NamespaceISO9660, bootImagePath)
	if err != nil {
		return err
	}
	n := img.arena.Node(id)
	if n == nil || n.IsDir {
		return isoerr.InvalidInputf("isokit.AddElTorito", "%q is not a regular file", bootImagePath)
	}
	pl := img.arena.Payload(n.Payload)
	sectors := uint16((pl.Size + 511) / 512)
	img.meta.BootEntries = append(img.meta.BootEntries, layout.BootEntry{
		Platform:    platform,
		Emulation:   emulation,
		LoadSegment: loadSegment,
		SectorCount: sectors,
		Payload:     n.Payload,
	})
	return nil
}

// RemoveElTorito is rm_eltorito: drops the whole boot catalog and any
// isohybrid request, and clears Hidden on each boot entry's payload. The
// payloads themselves stay in the layout: a hidden boot file parsed from
// an image is backed by a file node with no namespace record, and that
// node's reference keeps its payload from being garbage collected.
func (img *Image) RemoveElTorito() error {
	for _, e := range img.meta.BootEntries {
		if pl := img.arena.Payload(e.Payload); pl != nil {
			pl.Hidden = false
		}
	}
	img.meta.BootEntries = nil
	img.meta.Hybrid = nil
	img.arena.MarkDirty()
	return nil
}

// AddIsoHybrid is add_isohybrid: requests an MBR-compatible boot sector
// in blocks 0-15 so the image also boots as a raw USB/HDD image, keyed
// to the already-registered default El Torito entry. At least one
// AddElTorito call must precede it.
func (img *Image) AddIsoHybrid(cfg isohybrid.Config) error {
	if len(img.meta.BootEntries) == 0 {
		return isoerr.InvalidInputf("isokit.AddIsoHybrid", "isohybrid requires an El Torito boot entry; call AddElTorito first")
	}
	if _, err := isohybrid.New(cfg); err != nil {
		return err
	}
	img.meta.Hybrid = &cfg
	img.arena.MarkDirty()
	return nil
}

// RemoveIsoHybrid is rm_isohybrid: drops the hybrid boot sector request,
// reverting blocks 0-15 to zero on the next write.
func (img *Image) RemoveIsoHybrid() error {
	img.meta.Hybrid = nil
	img.arena.MarkDirty()
	return nil
}

// ModifyFileInPlace replaces isoPath's content with exactly length bytes
// read from r without any layout change, per spec.md §4.8/§4.9: length
// must fit within the number of extents already allocated to the file's
// original on-disk content (Payload.SourceSize, fixed at open time), and
// only the payload blocks themselves are rewritten — no directory record
// moves, no path table changes. Valid only for a file resolved from the
// image Open opened, since a freshly added file has no on-disk location
// yet to patch; call Write normally for those.
func (img *Image) ModifyFileInPlace(isoPath string, r io.Reader, length int64) error {
	id, err := img.arena.Resolve(consts.NamespaceISO9660, isoPath)
	if err != nil {
		return err
	}
	n := img.arena.Node(id)
	if n == nil || n.IsDir {
		return isoerr.InvalidInputf("isokit.ModifyFileInPlace", "%q is not a regular file", isoPath)
	}
	pl := img.arena.Payload(n.Payload)
	if pl == nil || !pl.SourceIsImage {
		return isoerr.InvalidInputf("isokit.ModifyFileInPlace", "%q has no on-disk location to patch in place", isoPath)
	}
	allocatedBlocks := (pl.SourceSize + consts.BlockSize - 1) / consts.BlockSize
	newBlocks := (length + consts.BlockSize - 1) / consts.BlockSize
	if newBlocks > allocatedBlocks {
		return isoerr.InvalidInputf("isokit.ModifyFileInPlace", "%q: new length %d needs %d extents, only %d are allocated", isoPath, length, newBlocks, allocatedBlocks)
	}
	wa, ok := img.source.(io.WriterAt)
	if !ok {
		return isoerr.InvalidInputf("isokit.ModifyFileInPlace", "image was not opened with a writable handle; in-place patching is unavailable")
	}
	extent := uint32(pl.ImageOffset / consts.BlockSize)
	if err := writer.PatchFile(wa, extent, r, length); err != nil {
		return err
	}
	pl.Size = length
	return nil
}

// ForceConsistency re-derives the layout plan from the current arena
// state without writing it anywhere, surfacing any structural error
// (e.g. an unresolved path) before a caller commits to Write.
func (img *Image) ForceConsistency() error {
	plan, err := layout.Build(img.arena, img.cfg, img.meta)
	if err != nil {
		return err
	}
	img.plan = plan
	return nil
}

// Write reconciles (if needed) and streams the full image to w.
func (img *Image) Write(w io.Writer) error {
	if img.plan == nil || img.arena.Dirty() {
		if err := img.ForceConsistency(); err != nil {
			return err
		}
	}
	return writer.Write(w, img.arena, img.plan, &img.cfg)
}

// WriteFile reconciles and writes the full image to a new file at path.
func (img *Image) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return img.Write(f)
}

// GetRecord resolves isoPath in ns and returns its node, or an error if
// not found.
func (img *Image) GetRecord(ns consts.Namespace, isoPath string) (*node.Node, error) {
	id, err := img.arena.Resolve(ns, isoPath)
	if err != nil {
		return nil, err
	}
	return img.arena.Node(id), nil
}

// ListChildren returns the immediate children of dirPath in ns, in the
// order layout.Build will serialize them (after SortChildren).
func (img *Image) ListChildren(ns consts.Namespace, dirPath string) ([]*node.Node, error) {
	id, err := img.arena.Resolve(ns, dirPath)
	if err != nil {
		return nil, err
	}
	dir := img.arena.Node(id)
	if dir == nil || !dir.IsDir {
		return nil, isoerr.InvalidInputf("isokit.ListChildren", "%q is not a directory", dirPath)
	}
	img.arena.SortChildren(ns, id)
	out := make([]*node.Node, 0, len(dir.Children[ns]))
	for _, cid := range dir.Children[ns] {
		out = append(out, img.arena.Node(cid))
	}
	return out, nil
}

// Walk visits every node reachable from ns's root, depth-first, calling
// fn with each node's full path.
func (img *Image) Walk(ns consts.Namespace, fn func(path string, n *node.Node) error) error {
	return img.walk(ns, img.arena.Root(ns), "/", fn)
}

func (img *Image) walk(ns consts.Namespace, id node.ID, path string, fn func(string, *node.Node) error) error {
	n := img.arena.Node(id)
	if n == nil {
		return nil
	}
	if err := fn(path, n); err != nil {
		return err
	}
	if !n.IsDir {
		return nil
	}
	img.arena.SortChildren(ns, id)
	for _, cid := range n.Children[ns] {
		c := img.arena.Node(cid)
		childPath := path + c.Name(ns)
		if c.IsDir {
			childPath += "/"
		}
		if err := img.walk(ns, cid, childPath, fn); err != nil {
			return err
		}
	}
	return nil
}

// OpenFileFromISO returns a reader over an existing file's content,
// reading from the opened source image or, for files added this session,
// the caller-supplied reader.
func (img *Image) OpenFileFromISO(ns consts.Namespace, isoPath string) (io.Reader, error) {
	id, err := img.arena.Resolve(ns, isoPath)
	if err != nil {
		return nil, err
	}
	n := img.arena.Node(id)
	if n == nil || n.IsDir {
		return nil, isoerr.InvalidInputf("isokit.OpenFileFromISO", "%q is not a regular file", isoPath)
	}
	pl := img.arena.Payload(n.Payload)
	if pl.SourceIsImage {
		if img.source == nil {
			return nil, isoerr.Internalf("isokit.OpenFileFromISO", "no source image open")
		}
		return io.NewSectionReader(img.source, pl.ImageOffset, pl.Size), nil
	}
	return io.NewSectionReader(pl.Reader, 0, pl.Size), nil
}

func splitPath(p string) (dir, name string) {
	if p == "" || p == "/" {
		return "/", ""
	}
	for p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	i := len(p) - 1
	for i >= 0 && p[i] != '/' {
		i--
	}
	if i < 0 {
		return "/", p
	}
	dir = p[:i+1]
	if dir == "" {
		dir = "/"
	}
	return dir, p[i+1:]
}
