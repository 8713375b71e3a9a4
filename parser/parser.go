// Package parser implements Open() (C7): driving the C1-C5 codecs to
// materialize the node model from an existing image, following the
// sequential phases in spec.md §4.7.
package parser

import (
	"io"

	"github.com/go-logr/logr"

	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/descriptor"
	"github.com/go-optical/isokit/directory"
	"github.com/go-optical/isokit/eltorito"
	"github.com/go-optical/isokit/isoerr"
	"github.com/go-optical/isokit/node"
	"github.com/go-optical/isokit/option"
	"github.com/go-optical/isokit/udf"
)

// Info is everything the parser recovered about an image's shape beyond
// the node model itself — the volume descriptors, boot catalog, and UDF
// structures the layout planner and writer need to regenerate (or the
// caller needs to inspect) without re-deriving them from scratch.
type Info struct {
	Primary       *descriptor.PrimaryVolumeDescriptor
	Joliet        *descriptor.SupplementaryVolumeDescriptor
	BootRecord    *descriptor.BootRecordVolumeDescriptor
	BootCatalog   *eltorito.Catalog
	UDFPresent    bool
	UDFPrimary    *udf.PrimaryVolumeDescriptor
	UDFLogical    *udf.LogicalVolumeDescriptor
	UDFPartition  *udf.PartitionVolumeDescriptor
	UDFFileSet    *udf.FileSetDescriptor
}

// Result is the output of Open: the populated node arena plus the
// recovered descriptor metadata.
type Result struct {
	Arena *node.Arena
	Info  Info

	// ExtentToNode maps every extent this parse visited (directories,
	// files, and El Torito boot images alike) to the node created for
	// it, so a caller that re-derives layout.Meta from Info.BootCatalog
	// can re-resolve each boot entry's originating node.PayloadID
	// instead of leaving it a zero value.
	ExtentToNode map[uint32]node.ID
}

// Open reads an existing ISO9660(+Joliet+El Torito+UDF) image from
// source and builds the in-memory node model.
func Open(source io.ReaderAt, opts ...option.OpenOption) (*Result, error) {
	cfg := option.DefaultConfig()
	option.ApplyOpen(&cfg, opts...)
	p := &parseState{source: source, logger: cfg.Logger, arena: node.NewArena(), extentToNode: make(map[uint32]node.ID)}

	if err := p.readVolumeDescriptorSequence(); err != nil {
		return nil, err
	}
	if p.info.Primary == nil {
		return nil, isoerr.Malformedf("parser.Open", consts.SystemAreaBlocks, 0, "no Primary Volume Descriptor found")
	}

	if err := p.walkISO9660(); err != nil {
		return nil, err
	}
	if p.info.Joliet != nil {
		if err := p.walkJoliet(); err != nil {
			return nil, err
		}
	}
	if p.info.BootRecord != nil {
		if err := p.readBootCatalog(); err != nil {
			return nil, err
		}
	}
	if err := p.readUDF(); err != nil {
		return nil, err
	}
	if err := p.resolveRelocations(); err != nil {
		return nil, err
	}

	p.arena.MarkClean()
	return &Result{Arena: p.arena, Info: p.info, ExtentToNode: p.extentToNode}, nil
}

type parseState struct {
	source io.ReaderAt
	logger logr.Logger
	arena  *node.Arena
	info   Info

	// extentToNode maps an ISO9660 directory/file extent to the node
	// created for it, so the Joliet pass can attach a second namespace
	// record to the same node instead of creating a duplicate.
	extentToNode map[uint32]node.ID

	// pendingCL records, for each placeholder CL entry seen while
	// walking the ISO9660 tree, which real parent ID saw it and which
	// extent it names; resolved once the whole tree (including
	// RR_MOVED) has been walked.
	pendingCL []clRef
}

type clRef struct {
	realParent node.ID
	extent     uint32
}

func (p *parseState) readBlock(block uint32) ([consts.BlockSize]byte, error) {
	var buf [consts.BlockSize]byte
	_, err := p.source.ReadAt(buf[:], int64(block)*consts.BlockSize)
	if err != nil && err != io.EOF {
		return buf, isoerr.Malformedf("parser.readBlock", int64(block), 0, "reading block: %v", err)
	}
	return buf, nil
}

// readVolumeDescriptorSequence is phase 1: classify blocks 16, 17, ...
// until a Set Terminator.
func (p *parseState) readVolumeDescriptorSequence() error {
	for block := uint32(consts.SystemAreaBlocks); ; block++ {
		data, err := p.readBlock(block)
		if err != nil {
			return err
		}
		hdr, err := descriptor.UnmarshalHeader(data[0:7])
		if err != nil {
			return err
		}
		switch hdr.Type {
		case descriptor.TypePrimary:
			pvd := &descriptor.PrimaryVolumeDescriptor{}
			if err := pvd.Unmarshal(data); err != nil {
				return err
			}
			p.info.Primary = pvd
		case descriptor.TypeSupplementary:
			svd := &descriptor.SupplementaryVolumeDescriptor{}
			if err := svd.Unmarshal(data); err != nil {
				return err
			}
			if svd.JolietLevel() > 0 {
				p.info.Joliet = svd
			}
		case descriptor.TypeBootRecord:
			br, err := descriptor.UnmarshalBootRecordVolumeDescriptor(data)
			if err != nil {
				return err
			}
			p.info.BootRecord = br
		case descriptor.TypeSetTerminator:
			return nil
		case descriptor.TypeVolumePartition:
			// decoded for completeness elsewhere; this profile doesn't
			// attach node-model semantics to it.
		default:
			return isoerr.Malformedf("parser.readVolumeDescriptorSequence", int64(block), 0, "unknown descriptor type %d", hdr.Type)
		}
	}
}

// walkISO9660 is phase 2: BFS the ISO9660 directory tree from the PVD's
// root directory record.
func (p *parseState) walkISO9660() error {
	root := p.arena.Root(consts.NamespaceISO9660)
	rootRec := p.info.Primary.RootDirectoryRecord
	if rootRec == nil {
		return isoerr.Malformedf("parser.walkISO9660", consts.SystemAreaBlocks, 0, "PVD root directory record missing")
	}
	p.extentToNode[rootRec.Extent] = root
	return p.walkDirectory(consts.NamespaceISO9660, root, rootRec.Extent, rootRec.DataLength)
}

// walkDirectory reads one directory's extent, decodes each record, and
// attaches/creates nodes for every entry except "." and "..".
func (p *parseState) walkDirectory(ns consts.Namespace, dirID node.ID, extent, length uint32) error {
	blocks := (length + consts.BlockSize - 1) / consts.BlockSize
	var raw []byte
	for b := uint32(0); b < blocks; b++ {
		block, err := p.readBlock(extent + b)
		if err != nil {
			return err
		}
		raw = append(raw, block[:]...)
	}
	raw = raw[:length]

	var children []node.ID
	offset := 0
	for offset < len(raw) {
		recLen := int(directory.PeekLength(raw[offset:]))
		if recLen == 0 {
			// padding to next block boundary
			offset += consts.BlockSize - (offset % consts.BlockSize)
			continue
		}
		rec := &directory.Record{Joliet: ns == consts.NamespaceJoliet}
		if err := rec.Unmarshal(raw[offset : offset+recLen]); err != nil {
			return err
		}
		offset += recLen

		if rec.IsDot() || rec.IsDotDot() {
			continue
		}

		name, attrs, clEntry, reMarked, err := interpretRockRidge(rec.SystemUse)
		if err != nil {
			return err
		}

		if clEntry != nil {
			// Placeholder record: the real content lives elsewhere
			// (normally under RR_MOVED). Don't descend into it here;
			// record the mapping for resolveRelocations.
			p.pendingCL = append(p.pendingCL, clRef{realParent: dirID, extent: clEntry.Extent})
			continue
		}

		isDir := rec.Flags.Directory
		existing, ok := p.extentToNode[rec.Extent]
		var childID node.ID
		if ok {
			childID = existing
		} else {
			var n *node.Node
			if isDir {
				n = p.arena.NewDirNode()
			} else {
				payload := p.arena.AddPayload(node.Payload{
					Size:          int64(rec.DataLength),
					SourceSize:    int64(rec.DataLength),
					ImageOffset:   int64(rec.Extent) * consts.BlockSize,
					SourceIsImage: true,
				})
				n = p.arena.NewFileNode(payload)
			}
			childID = n.ID
			p.extentToNode[rec.Extent] = childID
		}

		rv := node.RecordView{Name: rec.Identifier}
		if name != "" {
			rv.Name = name
		}
		rv.RockRidge = attrs
		if reMarked {
			rv.Relocation = &node.RelocationState{Relocated: true}
		}
		if err := p.arena.Attach(ns, dirID, childID, rv); err != nil {
			return err
		}
		children = append(children, childID)

		if isDir {
			if err := p.walkDirectory(ns, childID, rec.Extent, rec.DataLength); err != nil {
				return err
			}
		}
	}
	return nil
}
