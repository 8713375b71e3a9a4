package parser

import (
	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/isoerr"
	"github.com/go-optical/isokit/node"
	"github.com/go-optical/isokit/udf"
)

// readUDF is phase 5: follow the Anchor Volume Descriptor Pointer at
// consts.AnchorBlock through the main Volume Descriptor Sequence to the
// Logical/Partition Volume Descriptors, then the File Set Descriptor and
// root File Entry, materializing UDF namespace records. A source with no
// anchor tag at block 256 simply carries no UDF namespace; that is not an
// error, since UDF is optional per spec.md's volume profile.
func (p *parseState) readUDF() error {
	anchorBlock, err := p.readBlock(consts.AnchorBlock)
	if err != nil {
		return err
	}
	avdp, err := udf.UnmarshalAnchorVolumeDescriptorPointer(anchorBlock[:], consts.AnchorBlock)
	if err != nil {
		return nil // no UDF bridge present; not an error
	}
	p.info.UDFPresent = true

	vdsBlocks := (avdp.MainVDSExtentLength + consts.BlockSize - 1) / consts.BlockSize
vdsLoop:
	for b := uint32(0); b < vdsBlocks; b++ {
		block := avdp.MainVDSExtent + b
		data, err := p.readBlock(block)
		if err != nil {
			return err
		}
		var tagBytes [16]byte
		copy(tagBytes[:], data[0:16])
		ident := uint16(tagBytes[0]) | uint16(tagBytes[1])<<8
		switch ident {
		case udf.TagPrimaryVolumeDescriptor:
			pvd := &udf.PrimaryVolumeDescriptor{}
			if err := pvd.Unmarshal(data[:], block); err != nil {
				return err
			}
			p.info.UDFPrimary = pvd
		case udf.TagLogicalVolumeDescriptor:
			lvd := &udf.LogicalVolumeDescriptor{}
			if err := lvd.Unmarshal(data[:], block); err != nil {
				return err
			}
			p.info.UDFLogical = lvd
		case udf.TagPartitionDescriptor:
			pd := &udf.PartitionVolumeDescriptor{}
			if err := pd.Unmarshal(data[:], block); err != nil {
				return err
			}
			p.info.UDFPartition = pd
		case udf.TagTerminatingDescriptor:
			break vdsLoop
		default:
			// unallocated-space descriptors and the like: not tracked.
		}
	}

	if p.info.UDFLogical == nil || p.info.UDFPartition == nil {
		return isoerr.Malformedf("parser.readUDF", int64(avdp.MainVDSExtent), 0, "UDF main VDS missing logical or partition volume descriptor")
	}

	partitionStart := p.info.UDFPartition.PartitionStart
	fsdBlock := partitionStart + p.info.UDFLogical.LogicalVolumeContentsUse.LogicalBlockNumber
	fsdData, err := p.readBlock(fsdBlock)
	if err != nil {
		return err
	}
	fsd := &udf.FileSetDescriptor{}
	if err := fsd.Unmarshal(fsdData[:], fsdBlock); err != nil {
		return err
	}
	p.info.UDFFileSet = fsd

	rootFE, _, err := p.readUDFFileEntry(partitionStart, fsd.RootDirectoryICB)
	if err != nil {
		return err
	}
	root := p.arena.Root(consts.NamespaceUDF)
	return p.walkUDFDirectory(partitionStart, root, rootFE)
}

// readUDFFileEntry reads and decodes the File Entry named by icb, whose
// LogicalBlockNumber is relative to partitionStart.
func (p *parseState) readUDFFileEntry(partitionStart uint32, icb udf.LongAD) (*udf.FileEntry, uint32, error) {
	block := partitionStart + icb.LogicalBlockNumber
	data, err := p.readBlock(block)
	if err != nil {
		return nil, 0, err
	}
	fe := &udf.FileEntry{}
	if err := fe.Unmarshal(data[:], block); err != nil {
		return nil, 0, err
	}
	return fe, block, nil
}

// walkUDFDirectory reads fe's extents (a concatenation of File Identifier
// Descriptors), decoding each non-self/parent entry into a node attached
// under dirID in the UDF namespace.
func (p *parseState) walkUDFDirectory(partitionStart uint32, dirID node.ID, fe *udf.FileEntry) error {
	var raw []byte
	for _, ad := range fe.AllocDescs {
		blocks := (ad.ExtentLength + consts.BlockSize - 1) / consts.BlockSize
		for b := uint32(0); b < blocks; b++ {
			block, err := p.readBlock(partitionStart + ad.ExtentPosition + b)
			if err != nil {
				return err
			}
			raw = append(raw, block[:]...)
		}
	}
	if uint64(len(raw)) > fe.InfoLength {
		raw = raw[:fe.InfoLength]
	}

	offset := 0
	for offset < len(raw) {
		fid := &udf.FileIdentifierDescriptor{}
		consumed, err := fid.Unmarshal(raw[offset:], uint32(offset))
		if err != nil {
			return err
		}
		offset += consumed

		if fid.FileIdentifier == "" {
			// self ("." is implicit in UDF) or parent ("..") entry
			continue
		}

		childFE, _, err := p.readUDFFileEntry(partitionStart, fid.ICB)
		if err != nil {
			return err
		}

		var dataExtent uint32
		hasDataExtent := len(childFE.AllocDescs) > 0 && !fid.IsDirectory()
		if hasDataExtent {
			dataExtent = partitionStart + childFE.AllocDescs[0].ExtentPosition
		}

		var childID node.ID
		if existing, ok := p.extentToNode[dataExtent]; hasDataExtent && ok {
			childID = existing
		} else {
			var n *node.Node
			if fid.IsDirectory() {
				n = p.arena.NewDirNode()
			} else {
				payload := p.arena.AddPayload(node.Payload{
					Size:          int64(childFE.InfoLength),
					SourceSize:    int64(childFE.InfoLength),
					ImageOffset:   int64(dataExtent) * consts.BlockSize,
					SourceIsImage: true,
				})
				n = p.arena.NewFileNode(payload)
			}
			childID = n.ID
			if hasDataExtent {
				p.extentToNode[dataExtent] = childID
			}
		}

		rv := node.RecordView{Name: fid.FileIdentifier}
		if err := p.arena.Attach(consts.NamespaceUDF, dirID, childID, rv); err != nil {
			return err
		}

		if fid.IsDirectory() {
			if err := p.walkUDFDirectory(partitionStart, childID, childFE); err != nil {
				return err
			}
		}
	}
	return nil
}
