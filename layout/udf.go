package layout

import (
	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/isoerr"
	"github.com/go-optical/isokit/node"
	"github.com/go-optical/isokit/udf"
)

// UDFLayout is the assigned extents and rendered bytes for the UDF bridge
// metadata: the Anchor Volume Descriptor Pointer, Main Volume Descriptor
// Sequence, File Set Descriptor, and every UDF File Entry / directory
// content extent. The partition it defines spans the whole post-system-area
// region of the volume (PartitionStart == consts.SystemAreaBlocks), so a
// UDF File Entry's allocation descriptors can reference the very same
// payload and directory blocks the ISO9660/Joliet trees already use,
// without duplicating content.
type UDFLayout struct {
	PartitionStart  uint32
	PartitionLength uint32

	// PrePadBlocks is how many zero blocks the writer must emit between
	// the last ISO9660 payload block and consts.AnchorBlock, where AVDPBytes
	// belongs.
	PrePadBlocks uint32
	AVDPBytes    []byte // full 2048-byte block at consts.AnchorBlock

	MainVDSExtent uint32
	MainVDSBytes  []byte // PVD + Partition + Logical + Unallocated + Terminating, 5 blocks

	FileSetExtent uint32
	FileSetBytes  []byte

	// Order lists every UDF node depth-first (pre-order); File Entry blocks are
	// assigned in this order, immediately followed (for directories only)
	// by content blocks in this same order. The writer streams
	// FileEntryBytes[id] for each id in Order, then DirContentBytes[id]
	// for each directory id in Order, reproducing ascending block order
	// without needing to sort the maps below.
	Order []node.ID

	FileEntryExtent  map[node.ID]uint32
	FileEntryBytes   map[node.ID][]byte
	DirContentExtent map[node.ID]uint32
	DirContentBytes  map[node.ID][]byte
}

type udfMeta struct {
	VolumeIdentifier        string
	LogicalVolumeIdentifier string
	FileSetIdentifier       string
}

func mustEntityID(identifier string) udf.EntityID {
	e, err := udf.NewEntityID(0, identifier)
	if err != nil {
		// identifier is always one of this file's short constant strings.
		panic(err)
	}
	return e
}

func fidRecordLen(name string) (int, error) {
	d := &udf.FileIdentifierDescriptor{FileIdentifier: name}
	return d.Len()
}

// buildUDF assigns extents for and renders every UDF metadata structure,
// advancing *cursor past everything it allocates. payloadExtent must
// already hold every file payload's absolute block, since a UDF File
// Entry for a regular file addresses that block directly (translated to
// partition-relative via PartitionStart) rather than duplicating content.
func buildUDF(a *node.Arena, meta udfMeta, cursor *uint32, payloadExtent map[node.PayloadID]uint32) (*UDFLayout, error) {
	if *cursor > consts.AnchorBlock {
		return nil, isoerr.Internalf("layout.buildUDF", "volume metadata overran block %d reserved for the UDF anchor", consts.AnchorBlock)
	}
	partitionStart := uint32(consts.SystemAreaBlocks)
	prePad := consts.AnchorBlock - *cursor
	*cursor = consts.AnchorBlock + 1

	dirs := collectDirs(a, consts.NamespaceUDF)
	for _, id := range dirs {
		a.SortChildren(consts.NamespaceUDF, id)
	}
	root := a.Root(consts.NamespaceUDF)

	type udfNodeInfo struct {
		isDir         bool
		feBlock       uint32
		contentBlock  uint32
		contentBlocks uint32
		contentLen    uint32
	}
	info := make(map[node.ID]*udfNodeInfo)
	var order []node.ID
	visited := make(map[node.ID]bool)

	var walk func(id node.ID)
	walk = func(id node.ID) {
		if visited[id] {
			return
		}
		visited[id] = true
		order = append(order, id)
		n := a.Node(id)
		info[id] = &udfNodeInfo{isDir: n.IsDir}
		if n.IsDir {
			for _, c := range n.Children[consts.NamespaceUDF] {
				walk(c)
			}
		}
	}
	walk(root)

	for _, id := range order {
		ni := info[id]
		if !ni.isDir {
			continue
		}
		n := a.Node(id)
		total := 0
		selfLen, err := fidRecordLen("")
		if err != nil {
			return nil, err
		}
		total += selfLen * 2 // self + parent, both nameless
		for _, c := range n.Children[consts.NamespaceUDF] {
			l, err := fidRecordLen(a.Node(c).Name(consts.NamespaceUDF))
			if err != nil {
				return nil, err
			}
			total += l
		}
		ni.contentLen = uint32(total)
		ni.contentBlocks = blocksFor(ni.contentLen)
	}

	for _, id := range order {
		info[id].feBlock = *cursor
		*cursor++
	}
	for _, id := range order {
		if !info[id].isDir {
			continue
		}
		info[id].contentBlock = *cursor
		*cursor += info[id].contentBlocks
	}

	feBytes := make(map[node.ID][]byte, len(order))
	dirBytes := make(map[node.ID][]byte)
	for _, id := range order {
		n := a.Node(id)
		ni := info[id]

		var fileType uint8 = udf.ICBFileTypeFile
		var allocs []udf.ShortAD
		var infoLength uint64
		if n.IsDir {
			fileType = udf.ICBFileTypeDirectory
			infoLength = uint64(ni.contentLen)
			if ni.contentLen > 0 {
				allocs = []udf.ShortAD{{ExtentLength: ni.contentLen, ExtentPosition: ni.contentBlock - partitionStart}}
			}
		} else {
			pl := a.Payload(n.Payload)
			infoLength = uint64(pl.Size)
			if pl.Size > 0 {
				abs, ok := payloadExtent[n.Payload]
				if !ok {
					return nil, isoerr.Internalf("layout.buildUDF", "payload %d has no assigned extent", n.Payload)
				}
				allocs = []udf.ShortAD{{ExtentLength: uint32(pl.Size), ExtentPosition: abs - partitionStart}}
			}
		}

		parentID := n.Parent[consts.NamespaceUDF]
		icbTag := udf.NewICBTag(fileType)
		icbTag.ParentICBLogicalBlockNum = info[parentID].feBlock - partitionStart

		fe := udf.FileEntry{
			Tag:                   udf.Tag{Identifier: udf.TagFileEntry, DescVersion: 2, TagLocation: ni.feBlock},
			ICBTag:                icbTag,
			Permissions:           0x7FFF,
			FileLinkCount:         1,
			InfoLength:            infoLength,
			LogicalBlocksRecorded: uint64(blocksFor(uint32(infoLength))),
			ImplementationID:      mustEntityID("*go-optical/isokit"),
			AllocDescs:            allocs,
		}
		feBytes[id] = fe.Marshal()

		if !n.IsDir {
			continue
		}

		content := make([]byte, 0, ni.contentBlocks*consts.BlockSize)
		appendFID := func(chars uint8, icbBlock uint32, name string) error {
			fid := udf.FileIdentifierDescriptor{
				Tag:                 udf.Tag{Identifier: udf.TagFileIdentifierDescriptor, DescVersion: 2, TagLocation: ni.contentBlock},
				FileCharacteristics: chars,
				ICB:                 udf.LongAD{ExtentLength: consts.BlockSize, LogicalBlockNumber: icbBlock - partitionStart},
				FileIdentifier:      name,
			}
			b, err := fid.Marshal()
			if err != nil {
				return err
			}
			content = append(content, b...)
			return nil
		}
		if err := appendFID(udf.FileCharacteristicDirectory, ni.feBlock, ""); err != nil {
			return nil, err
		}
		if err := appendFID(udf.FileCharacteristicDirectory|udf.FileCharacteristicParent, info[parentID].feBlock, ""); err != nil {
			return nil, err
		}
		for _, c := range n.Children[consts.NamespaceUDF] {
			cn := a.Node(c)
			var chars uint8
			if cn.IsDir {
				chars |= udf.FileCharacteristicDirectory
			}
			if err := appendFID(chars, info[c].feBlock, cn.Name(consts.NamespaceUDF)); err != nil {
				return nil, err
			}
		}
		if rem := len(content) % consts.BlockSize; rem != 0 {
			content = append(content, make([]byte, consts.BlockSize-rem)...)
		}
		dirBytes[id] = content
	}

	fsdExtent := *cursor
	*cursor++
	fsd := udf.FileSetDescriptor{
		Tag:                     udf.Tag{Identifier: udf.TagFileSetDescriptor, DescVersion: 2, TagLocation: fsdExtent},
		LogicalVolumeIdentifier: meta.LogicalVolumeIdentifier,
		FileSetIdentifier:       meta.FileSetIdentifier,
		DomainIdentifier:        mustEntityID("*OSTA UDF Compliant"),
		RootDirectoryICB:        udf.LongAD{ExtentLength: consts.BlockSize, LogicalBlockNumber: info[root].feBlock - partitionStart},
	}
	fsdBytes, err := fsd.Marshal()
	if err != nil {
		return nil, err
	}

	mainVDSExtent := *cursor
	pvd := udf.PrimaryVolumeDescriptor{
		Tag:                   udf.Tag{Identifier: udf.TagPrimaryVolumeDescriptor, DescVersion: 2, TagLocation: *cursor},
		VolumeIdentifier:      meta.VolumeIdentifier,
		MaxInterchangeLevel:   3,
		ApplicationIdentifier: mustEntityID("*go-optical/isokit"),
		ImplementationID:      mustEntityID("*go-optical/isokit"),
	}
	pvdBytes, err := pvd.Marshal()
	if err != nil {
		return nil, err
	}
	*cursor++

	partVD := udf.PartitionVolumeDescriptor{
		Tag:               udf.Tag{Identifier: udf.TagPartitionDescriptor, DescVersion: 2, TagLocation: *cursor},
		VolumeDescSeqNum:  1,
		PartitionContents: mustEntityID("+NSR02"),
		AccessType:        1,
		PartitionStart:    partitionStart,
		ImplementationID:  mustEntityID("*go-optical/isokit"),
	}
	*cursor++

	lvd := udf.LogicalVolumeDescriptor{
		Tag:                      udf.Tag{Identifier: udf.TagLogicalVolumeDescriptor, DescVersion: 2, TagLocation: *cursor},
		VolumeDescSeqNum:         2,
		LogicalVolumeIdentifier:  meta.LogicalVolumeIdentifier,
		LogicalBlockSize:         consts.BlockSize,
		DomainIdentifier:         mustEntityID("*OSTA UDF Compliant"),
		LogicalVolumeContentsUse: udf.LongAD{ExtentLength: consts.BlockSize, LogicalBlockNumber: fsdExtent - partitionStart},
		ImplementationID:         mustEntityID("*go-optical/isokit"),
		PartitionMap:             udf.PartitionMap{PartitionNumber: 0},
	}
	lvdBytes, err := lvd.Marshal()
	if err != nil {
		return nil, err
	}
	*cursor++

	uasd := udf.UnallocatedSpaceDescriptor{Tag: udf.Tag{Identifier: udf.TagUnallocatedSpaceDescriptor, DescVersion: 2, TagLocation: *cursor}, VolumeDescSeqNum: 3}
	*cursor++

	term := udf.TerminatingDescriptor{Tag: udf.Tag{Identifier: udf.TagTerminatingDescriptor, DescVersion: 2, TagLocation: *cursor}}
	*cursor++

	// partVD/uasd/term are rendered last since their Marshal is pure and
	// their tags were already assigned above.
	partBytes := partVD.Marshal()
	uasdBytes := uasd.Marshal()
	termBytes := term.Marshal()

	var mainVDS []byte
	mainVDS = append(mainVDS, pvdBytes...)
	mainVDS = append(mainVDS, partBytes...)
	mainVDS = append(mainVDS, lvdBytes...)
	mainVDS = append(mainVDS, uasdBytes...)
	mainVDS = append(mainVDS, termBytes...)

	avdp := udf.AnchorVolumeDescriptorPointer{
		Tag:                 udf.Tag{Identifier: udf.TagAnchorVolumeDescriptorPointer, DescVersion: 2, TagLocation: consts.AnchorBlock},
		MainVDSExtentLength: 5 * consts.BlockSize,
		MainVDSExtent:       mainVDSExtent,
	}
	avdpBlock := make([]byte, consts.BlockSize)
	copy(avdpBlock, avdp.Marshal())

	feExtent := make(map[node.ID]uint32, len(order))
	dirExtent := make(map[node.ID]uint32)
	for _, id := range order {
		feExtent[id] = info[id].feBlock
		if info[id].isDir {
			dirExtent[id] = info[id].contentBlock
		}
	}

	return &UDFLayout{
		PartitionStart:   partitionStart,
		PrePadBlocks:     prePad,
		AVDPBytes:        avdpBlock,
		MainVDSExtent:    mainVDSExtent,
		MainVDSBytes:     mainVDS,
		FileSetExtent:    fsdExtent,
		FileSetBytes:     fsdBytes,
		Order:            order,
		FileEntryExtent:  feExtent,
		FileEntryBytes:   feBytes,
		DirContentExtent: dirExtent,
		DirContentBytes:  dirBytes,
	}, nil
}
