package udf

import "github.com/go-optical/isokit/isoerr"

// PartitionHeaderDescriptor is the 128-byte Partition Contents Use field
// of a Partition Descriptor when the partition holds an unencrypted
// file system (ECMA-167 3.4, UDF 2.60 2.3.3.1). This module does not use
// sparing or freed-space bitmaps, so every allocation descriptor field
// is zero.
type PartitionHeaderDescriptor struct{}

func (PartitionHeaderDescriptor) Marshal() [128]byte {
	return [128]byte{}
}

func (PartitionHeaderDescriptor) Unmarshal(_ [128]byte) PartitionHeaderDescriptor {
	return PartitionHeaderDescriptor{}
}

// PartitionMap is the 6-byte Type 1 Partition Map (ECMA-167 3.3.10.1).
type PartitionMap struct {
	PartitionNumber uint16
}

func (m PartitionMap) Marshal() [6]byte {
	var out [6]byte
	out[0] = 1 // map type
	out[1] = 6 // map length
	putUint16LE(out[2:4], 1) // volume sequence number
	putUint16LE(out[4:6], m.PartitionNumber)
	return out
}

func (m *PartitionMap) Unmarshal(data [6]byte) error {
	if data[0] != 1 {
		return isoerr.Malformedf("udf.PartitionMap.Unmarshal", -1, -1, "unsupported partition map type %d", data[0])
	}
	if data[1] != 6 {
		return isoerr.Malformedf("udf.PartitionMap.Unmarshal", -1, -1, "partition map length %d, want 6", data[1])
	}
	m.PartitionNumber = getUint16LE(data[4:6])
	return nil
}

// PartitionVolumeDescriptor is the ECMA-167 Partition Descriptor (3.3.10).
type PartitionVolumeDescriptor struct {
	Tag                Tag
	VolumeDescSeqNum   uint32
	PartitionFlags     uint16
	PartitionNumber    uint16
	PartitionContents  EntityID // "+NSR02" for this profile
	AccessType         uint32
	PartitionStart     uint32 // logical block number, relative to the volume
	PartitionLength    uint32 // in logical blocks
	ImplementationID   EntityID
}

const partitionVDBodyLen = 496 // '=LHH32s128sLLL32s128s156s'

func (d PartitionVolumeDescriptor) Marshal() []byte {
	body := make([]byte, partitionVDBodyLen)
	putUint32LE(body[0:4], d.VolumeDescSeqNum)
	putUint16LE(body[4:6], d.PartitionFlags)
	putUint16LE(body[6:8], d.PartitionNumber)
	pc := d.PartitionContents.Marshal()
	copy(body[8:40], pc[:])
	// part_contents_use (128 bytes, PartitionHeaderDescriptor) left zero.
	putUint32LE(body[168:172], d.AccessType)
	putUint32LE(body[172:176], d.PartitionStart)
	putUint32LE(body[176:180], d.PartitionLength)
	impl := d.ImplementationID.Marshal()
	copy(body[180:212], impl[:])
	tag := MarshalTag(d.Tag, body)
	return append(tag[:], body...)
}

func (d *PartitionVolumeDescriptor) Unmarshal(data []byte, extent uint32) error {
	if len(data) < 16+partitionVDBodyLen {
		return isoerr.Malformedf("udf.PartitionVolumeDescriptor.Unmarshal", int64(extent), -1, "need %d bytes, got %d", 16+partitionVDBodyLen, len(data))
	}
	var tagBytes [16]byte
	copy(tagBytes[:], data[0:16])
	tag, err := UnmarshalTag(tagBytes, extent, data[16:16+partitionVDBodyLen])
	if err != nil {
		return err
	}
	if tag.Identifier != TagPartitionDescriptor {
		return isoerr.Malformedf("udf.PartitionVolumeDescriptor.Unmarshal", int64(extent), 0, "tag identifier %d, want %d", tag.Identifier, TagPartitionDescriptor)
	}
	d.Tag = tag
	body := data[16 : 16+partitionVDBodyLen]
	d.VolumeDescSeqNum = getUint32LE(body[0:4])
	d.PartitionFlags = getUint16LE(body[4:6])
	d.PartitionNumber = getUint16LE(body[6:8])
	d.PartitionContents.Unmarshal(fixed32(body[8:40]))
	d.AccessType = getUint32LE(body[168:172])
	d.PartitionStart = getUint32LE(body[172:176])
	d.PartitionLength = getUint32LE(body[176:180])
	d.ImplementationID.Unmarshal(fixed32(body[180:212]))
	return nil
}
