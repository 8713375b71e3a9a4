// Package layout implements the layout planner (C8): turning a reconciled
// node.Arena into a concrete block plan — every volume descriptor, path
// table, directory extent, payload placement, and (optionally) UDF bridge
// structure fully rendered and ready for the writer to stream out in
// ascending extent order, per spec.md §4.8's 7-step reconcile process.
package layout

import (
	"time"

	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/descriptor"
	"github.com/go-optical/isokit/directory"
	"github.com/go-optical/isokit/eltorito"
	"github.com/go-optical/isokit/encoding"
	"github.com/go-optical/isokit/isoerr"
	"github.com/go-optical/isokit/isohybrid"
	"github.com/go-optical/isokit/node"
	"github.com/go-optical/isokit/option"
	"github.com/go-optical/isokit/path"
)

// BootEntry is one El Torito boot catalog entry a caller wants rendered.
// The first entry in Meta.BootEntries becomes the catalog's mandatory
// Default/Initial entry; every later entry becomes a section entry,
// grouped into one SectionHeader per contiguous run of the same Platform.
type BootEntry struct {
	Platform    eltorito.Platform
	Emulation   eltorito.Emulation
	LoadSegment uint16
	SectorCount uint16
	Payload     node.PayloadID
}

// Meta carries the volume-identification fields a Plan's descriptors are
// rendered from; everything else (extents, path tables, record lengths)
// is derived by Build from the arena's current shape.
type Meta struct {
	SystemIdentifier            string
	VolumeIdentifier            string
	VolumeSetIdentifier         string
	PublisherIdentifier         string
	DataPreparerIdentifier      string
	ApplicationIdentifier       string
	CopyrightFileIdentifier     string
	AbstractFileIdentifier      string
	BibliographicFileIdentifier string
	CreationTime                time.Time

	// JolietSystemIdentifier/JolietVolumeIdentifier fall back to the
	// ISO9660 fields above when empty.
	JolietSystemIdentifier string
	JolietVolumeIdentifier string

	UDFVolumeIdentifier        string
	UDFLogicalVolumeIdentifier string
	UDFFileSetIdentifier       string

	BootEntries []BootEntry

	// Hybrid, if non-nil, requests isohybrid boot-sector rendering into
	// blocks 0-15 (add_isohybrid). Only meaningful when BootEntries is
	// non-empty: the hybrid MBR's RBA names the default boot entry's
	// payload extent.
	Hybrid *isohybrid.Config
}

// Plan is the fully assigned, fully rendered block layout a writer can
// stream out extent by extent.
type Plan struct {
	TotalBlocks uint32

	Primary       [consts.BlockSize]byte
	Joliet        *[consts.BlockSize]byte
	BootRecord    *[consts.BlockSize]byte
	SetTerminator [consts.BlockSize]byte
	SetTermBlock  uint32

	BootCatalogExtent uint32
	BootCatalogBytes  []byte

	ISOPathTableLBlock uint32
	ISOPathTableMBlock uint32
	ISOPathTableL      []byte
	ISOPathTableM      []byte

	JolietPathTableLBlock uint32
	JolietPathTableMBlock uint32
	JolietPathTableL      []byte
	JolietPathTableM      []byte

	// ISODirs/JolietDirs/PayloadOrder list their respective extents in
	// the exact ascending-block order Build assigned them, so the writer
	// can stream each map below without re-sorting it.
	ISODirs    []node.ID
	JolietDirs []node.ID

	ISODirectoryExtent  map[node.ID]uint32
	ISODirectoryContent map[node.ID][]byte

	JolietDirectoryExtent  map[node.ID]uint32
	JolietDirectoryContent map[node.ID][]byte

	PayloadOrder  []node.PayloadID
	PayloadExtent map[node.PayloadID]uint32

	UDF *UDFLayout

	// HybridMBR, if non-empty, is the 512-byte isohybrid boot sector the
	// writer installs at the start of block 0 instead of zero bytes.
	HybridMBR []byte
}

func pick(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}

// orderedPayloads lists every non-orphan payload in the order the writer
// should stream it: first appearance walking the ISO9660 tree, then the
// Joliet tree (for payloads reachable only there, e.g. ISO-hidden boot
// images attached solely under Joliet), then a final sweep over every
// node for anything neither tree reached (hidden boot-catalog-only
// payloads with no namespace record at all).
func orderedPayloads(a *node.Arena) []node.PayloadID {
	orphans := make(map[node.PayloadID]bool)
	for _, id := range a.OrphanPayloads() {
		orphans[id] = true
	}
	seen := make(map[node.PayloadID]bool)
	var order []node.PayloadID

	var walk func(ns consts.Namespace, id node.ID)
	walk = func(ns consts.Namespace, id node.ID) {
		n := a.Node(id)
		if n == nil {
			return
		}
		if n.IsDir {
			for _, c := range n.Children[ns] {
				walk(ns, c)
			}
			return
		}
		if n.Payload == node.NoPayloadID || seen[n.Payload] || orphans[n.Payload] {
			return
		}
		seen[n.Payload] = true
		order = append(order, n.Payload)
	}
	walk(consts.NamespaceISO9660, a.Root(consts.NamespaceISO9660))
	walk(consts.NamespaceJoliet, a.Root(consts.NamespaceJoliet))

	for _, n := range a.Nodes() {
		if n.IsDir || n.Payload == node.NoPayloadID || seen[n.Payload] || orphans[n.Payload] {
			continue
		}
		seen[n.Payload] = true
		order = append(order, n.Payload)
	}
	return order
}

func buildPathTable(dirs []node.ID, a *node.Arena, ns consts.Namespace, extentOf map[node.ID]uint32) *path.Table {
	pos := make(map[node.ID]int, len(dirs))
	for i, id := range dirs {
		pos[id] = i + 1
	}
	root := dirs[0]
	entries := make([]path.DirEntry, len(dirs))
	for i, id := range dirs {
		n := a.Node(id)
		parentID := n.Parent[ns]
		if id == root {
			parentID = root
		}
		entries[i] = path.DirEntry{
			Identifier: n.Name(ns),
			Extent:     extentOf[id],
			ParentIdx:  pos[parentID],
		}
	}
	return path.Build(entries, ns == consts.NamespaceJoliet)
}

func pathTableByteLen(a *node.Arena, ns consts.Namespace, dirs []node.ID) (int, error) {
	return buildPathTable(dirs, a, ns, nil).ByteLen()
}

func padToBlocks(b []byte, blocks uint32) []byte {
	total := int(blocks) * consts.BlockSize
	if len(b) >= total {
		return b[:total]
	}
	out := make([]byte, total)
	copy(out, b)
	return out
}

func buildBootCatalog(entries []BootEntry, payloadExtent map[node.PayloadID]uint32) (*eltorito.Catalog, error) {
	if len(entries) == 0 {
		return nil, isoerr.InvalidInputf("layout.buildBootCatalog", "no boot entries supplied")
	}
	def := entries[0]
	cat := &eltorito.Catalog{
		Validation: eltorito.ValidationEntry{Platform: def.Platform, Identifier: "EL TORITO SPECIFICATION"},
		Default: eltorito.InitialEntry{
			Bootable:    true,
			Emulation:   def.Emulation,
			LoadSegment: def.LoadSegment,
			SectorCount: def.SectorCount,
			Extent:      payloadExtent[def.Payload],
		},
	}
	var cur *eltorito.Section
	for _, e := range entries[1:] {
		if cur == nil || cur.Header.Platform != e.Platform {
			cat.Sections = append(cat.Sections, eltorito.Section{Header: eltorito.SectionHeader{Platform: e.Platform}})
			cur = &cat.Sections[len(cat.Sections)-1]
		}
		cur.Entries = append(cur.Entries, eltorito.SectionEntry{
			Bootable:    true,
			Emulation:   e.Emulation,
			LoadSegment: e.LoadSegment,
			SectorCount: e.SectorCount,
			Extent:      payloadExtent[e.Payload],
		})
	}
	return cat, nil
}

// Build runs the layout planner's deterministic pass: recompute directory
// lengths, sort children per namespace, assign every extent in a fixed
// sequential order, and render the final bytes of every structure that
// depends on those extents. The arena is not mutated except for
// SortChildren's in-place reordering of each directory's child slice,
// which spec.md treats as part of reconcile rather than a semantic edit,
// and, on success, MarkClean clearing its dirty flag.
func Build(a *node.Arena, cfg option.Config, meta Meta) (*Plan, error) {
	isoDirs := collectDirs(a, consts.NamespaceISO9660)
	var jolietDirs []node.ID
	if cfg.Joliet {
		jolietDirs = collectDirs(a, consts.NamespaceJoliet)
	}
	root := isoDirs[0]
	relocView := a.ResolveRelocations()

	isoLen, err := contentLengths(&cfg, a, consts.NamespaceISO9660, isoDirs, relocView)
	if err != nil {
		return nil, err
	}
	var jolietLen map[node.ID]uint32
	if cfg.Joliet {
		jolietLen, err = contentLengths(&cfg, a, consts.NamespaceJoliet, jolietDirs, relocView)
		if err != nil {
			return nil, err
		}
	}

	cursor := uint32(consts.SystemAreaBlocks)
	cursor++ // PVD at block 16

	var jolietVDBlock uint32
	if cfg.Joliet {
		jolietVDBlock = cursor
		cursor++
	}

	hasBoot := len(meta.BootEntries) > 0
	if meta.Hybrid != nil && !hasBoot {
		return nil, isoerr.InvalidInputf("layout.Build", "isohybrid requires at least one El Torito boot entry")
	}
	var bootVDBlock uint32
	if hasBoot {
		bootVDBlock = cursor
		cursor++
	}

	setTermBlock := cursor
	cursor++

	isoPTLen, err := pathTableByteLen(a, consts.NamespaceISO9660, isoDirs)
	if err != nil {
		return nil, err
	}
	isoPTBlocks := blocksFor(uint32(isoPTLen))
	isoPTLBlock := cursor
	cursor += isoPTBlocks
	isoPTMBlock := cursor
	cursor += isoPTBlocks

	var jolietPTLBlock, jolietPTMBlock, jolietPTBlocks uint32
	var jolietPTLen int
	if cfg.Joliet {
		jolietPTLen, err = pathTableByteLen(a, consts.NamespaceJoliet, jolietDirs)
		if err != nil {
			return nil, err
		}
		jolietPTBlocks = blocksFor(uint32(jolietPTLen))
		jolietPTLBlock = cursor
		cursor += jolietPTBlocks
		jolietPTMBlock = cursor
		cursor += jolietPTBlocks
	}

	var catalogExtent uint32
	if hasBoot {
		catalogExtent = cursor
		cursor++
	}

	isoDirExtent := make(map[node.ID]uint32, len(isoDirs))
	for _, id := range isoDirs {
		isoDirExtent[id] = cursor
		cursor += blocksFor(isoLen[id])
	}
	jolietDirExtent := make(map[node.ID]uint32, len(jolietDirs))
	if cfg.Joliet {
		for _, id := range jolietDirs {
			jolietDirExtent[id] = cursor
			cursor += blocksFor(jolietLen[id])
		}
	}

	payloadOrder := orderedPayloads(a)
	payloadExtent := make(map[node.PayloadID]uint32, len(payloadOrder))
	for _, pid := range payloadOrder {
		pl := a.Payload(pid)
		payloadExtent[pid] = cursor
		cursor += blocksFor(uint32(pl.Size))
	}

	var udfLayout *UDFLayout
	if cfg.UDF {
		udfLayout, err = buildUDF(a, udfMeta{
			VolumeIdentifier:        pick(meta.UDFVolumeIdentifier, meta.VolumeIdentifier),
			LogicalVolumeIdentifier: pick(meta.UDFLogicalVolumeIdentifier, meta.VolumeIdentifier),
			FileSetIdentifier:       pick(meta.UDFFileSetIdentifier, meta.VolumeIdentifier),
		}, &cursor, payloadExtent)
		if err != nil {
			return nil, err
		}
	}

	totalBlocks := cursor
	if udfLayout != nil {
		udfLayout.PartitionLength = totalBlocks - udfLayout.PartitionStart
	}

	isoExtentOf := func(id node.ID) (uint32, uint32) {
		n := a.Node(id)
		if n.IsDir {
			return isoDirExtent[id], isoLen[id]
		}
		pl := a.Payload(n.Payload)
		return payloadExtent[n.Payload], uint32(pl.Size)
	}
	jolietExtentOf := func(id node.ID) (uint32, uint32) {
		n := a.Node(id)
		if n.IsDir {
			return jolietDirExtent[id], jolietLen[id]
		}
		pl := a.Payload(n.Payload)
		return payloadExtent[n.Payload], uint32(pl.Size)
	}

	isoContent := make(map[node.ID][]byte, len(isoDirs))
	for _, id := range isoDirs {
		b, err := buildDirectoryRecords(&cfg, a, consts.NamespaceISO9660, id, isoExtentOf, id == root, relocView)
		if err != nil {
			return nil, err
		}
		isoContent[id] = b
	}
	var jolietContent map[node.ID][]byte
	if cfg.Joliet {
		jolietContent = make(map[node.ID][]byte, len(jolietDirs))
		for _, id := range jolietDirs {
			b, err := buildDirectoryRecords(&cfg, a, consts.NamespaceJoliet, id, jolietExtentOf, false, relocView)
			if err != nil {
				return nil, err
			}
			jolietContent[id] = b
		}
	}

	isoTable := buildPathTable(isoDirs, a, consts.NamespaceISO9660, isoDirExtent)
	isoL, err := isoTable.MarshalL()
	if err != nil {
		return nil, err
	}
	isoM, err := isoTable.MarshalM()
	if err != nil {
		return nil, err
	}

	var jolietL, jolietM []byte
	if cfg.Joliet {
		jolietTable := buildPathTable(jolietDirs, a, consts.NamespaceJoliet, jolietDirExtent)
		jolietL, err = jolietTable.MarshalL()
		if err != nil {
			return nil, err
		}
		jolietM, err = jolietTable.MarshalM()
		if err != nil {
			return nil, err
		}
	}

	pvd := &descriptor.PrimaryVolumeDescriptor{
		SystemIdentifier:       meta.SystemIdentifier,
		VolumeIdentifier:       meta.VolumeIdentifier,
		VolumeSpaceSize:        totalBlocks,
		VolumeSetSize:          1,
		VolumeSequenceNumber:   1,
		LogicalBlockSize:       consts.BlockSize,
		PathTableSize:          uint32(isoPTLen),
		LPathTableLocation:     isoPTLBlock,
		MPathTableLocation:     isoPTMBlock,
		RootDirectoryRecord: &directory.Record{
			Extent:     isoDirExtent[root],
			DataLength: isoLen[root],
			Flags:      directory.Flags{Directory: true},
			Identifier: directory.SpecialRoot,
		},
		VolumeSetIdentifier:           meta.VolumeSetIdentifier,
		PublisherIdentifier:           meta.PublisherIdentifier,
		DataPreparerIdentifier:        meta.DataPreparerIdentifier,
		ApplicationIdentifier:         meta.ApplicationIdentifier,
		CopyrightFileIdentifier:       meta.CopyrightFileIdentifier,
		AbstractFileIdentifier:        meta.AbstractFileIdentifier,
		BibliographicFileIdentifier:   meta.BibliographicFileIdentifier,
		VolumeCreationDateAndTime:     encoding.LongDate{Time: meta.CreationTime},
		VolumeModificationDateAndTime: encoding.LongDate{Time: meta.CreationTime},
		VolumeExpirationDateAndTime:   encoding.LongDate{Unspecified: true},
		VolumeEffectiveDateAndTime:    encoding.LongDate{Time: meta.CreationTime},
		FileStructureVersion:          1,
	}
	primaryBytes, err := pvd.Marshal()
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		TotalBlocks:            totalBlocks,
		Primary:                primaryBytes,
		SetTermBlock:           setTermBlock,
		SetTerminator:          descriptor.SetTerminatorDescriptor{}.Marshal(),
		ISOPathTableLBlock:     isoPTLBlock,
		ISOPathTableMBlock:     isoPTMBlock,
		ISOPathTableL:          padToBlocks(isoL, isoPTBlocks),
		ISOPathTableM:          padToBlocks(isoM, isoPTBlocks),
		JolietPathTableLBlock:  jolietPTLBlock,
		JolietPathTableMBlock:  jolietPTMBlock,
		JolietPathTableL:       padToBlocks(jolietL, jolietPTBlocks),
		JolietPathTableM:       padToBlocks(jolietM, jolietPTBlocks),
		ISODirs:                isoDirs,
		JolietDirs:             jolietDirs,
		ISODirectoryExtent:     isoDirExtent,
		ISODirectoryContent:    isoContent,
		JolietDirectoryExtent:  jolietDirExtent,
		JolietDirectoryContent: jolietContent,
		PayloadOrder:           payloadOrder,
		PayloadExtent:          payloadExtent,
		UDF:                    udfLayout,
	}

	if cfg.Joliet {
		svd := &descriptor.SupplementaryVolumeDescriptor{
			SystemIdentifier:     pick(meta.JolietSystemIdentifier, meta.SystemIdentifier),
			VolumeIdentifier:     pick(meta.JolietVolumeIdentifier, meta.VolumeIdentifier),
			VolumeSpaceSize:      totalBlocks,
			VolumeSetSize:        1,
			VolumeSequenceNumber: 1,
			LogicalBlockSize:     consts.BlockSize,
			PathTableSize:        uint32(jolietPTLen),
			LPathTableLocation:   jolietPTLBlock,
			MPathTableLocation:   jolietPTMBlock,
			RootDirectoryRecord: &directory.Record{
				Extent:     jolietDirExtent[root],
				DataLength: jolietLen[root],
				Flags:      directory.Flags{Directory: true},
				Identifier: directory.SpecialRoot,
			},
			VolumeSetIdentifier:           meta.VolumeSetIdentifier,
			PublisherIdentifier:           meta.PublisherIdentifier,
			DataPreparerIdentifier:        meta.DataPreparerIdentifier,
			ApplicationIdentifier:         meta.ApplicationIdentifier,
			VolumeCreationDateAndTime:     encoding.LongDate{Time: meta.CreationTime},
			VolumeModificationDateAndTime: encoding.LongDate{Time: meta.CreationTime},
			VolumeExpirationDateAndTime:   encoding.LongDate{Unspecified: true},
			VolumeEffectiveDateAndTime:    encoding.LongDate{Time: meta.CreationTime},
			FileStructureVersion:          1,
		}
		svd.SetJolietLevel(cfg.JolietLevel)
		jolietBytes, err := svd.Marshal()
		if err != nil {
			return nil, err
		}
		plan.Joliet = &jolietBytes
		_ = jolietVDBlock // block position is implicit in the plan's fixed VD sequence ordering
	}

	if hasBoot {
		br := &descriptor.BootRecordVolumeDescriptor{
			BootSystemIdentifier: consts.ElToritoBootSystemID,
			CatalogExtent:        catalogExtent,
		}
		brBytes := br.Marshal()
		plan.BootRecord = &brBytes
		_ = bootVDBlock

		cat, err := buildBootCatalog(meta.BootEntries, payloadExtent)
		if err != nil {
			return nil, err
		}
		plan.BootCatalogExtent = catalogExtent
		plan.BootCatalogBytes = cat.Marshal()

		if meta.Hybrid != nil {
			mbr, err := isohybrid.New(*meta.Hybrid)
			if err != nil {
				return nil, err
			}
			plan.HybridMBR = mbr.Marshal(payloadExtent[meta.BootEntries[0].Payload], totalBlocks)
		}
	}

	a.MarkClean()
	return plan, nil
}
