package udf

import "github.com/go-optical/isokit/isoerr"

// LogicalVolumeDescriptor is the ECMA-167 Logical Volume Descriptor
// (3.3.11). This profile always carries exactly one Type 1 partition map.
type LogicalVolumeDescriptor struct {
	Tag                      Tag
	VolumeDescSeqNum         uint32
	LogicalVolumeIdentifier  string
	LogicalBlockSize         uint32 // must be 2048 for this profile
	DomainIdentifier         EntityID
	LogicalVolumeContentsUse LongAD // points at the File Set Descriptor extent
	ImplementationID         EntityID
	ImplementationUse        [128]byte
	IntegritySeqExtentLength uint32
	IntegritySeqExtent       uint32
	PartitionMap             PartitionMap
}

const lvdBodyLen = 496 // '=L64s128sL32s16sLL32s128sLL6s66s'

func (d LogicalVolumeDescriptor) Marshal() ([]byte, error) {
	body := make([]byte, lvdBodyLen)
	putUint32LE(body[0:4], d.VolumeDescSeqNum)
	cs0 := CharSpecCS0()
	copy(body[4:68], cs0[:])
	volID, err := EncodeCS0Padded(d.LogicalVolumeIdentifier, 128)
	if err != nil {
		return nil, err
	}
	copy(body[68:196], volID)
	putUint32LE(body[196:200], d.LogicalBlockSize)
	dom := d.DomainIdentifier.Marshal()
	copy(body[200:232], dom[:])
	lvcu := d.LogicalVolumeContentsUse.Marshal()
	copy(body[232:248], lvcu[:])
	putUint32LE(body[248:252], 6) // map table length
	putUint32LE(body[252:256], 1) // num partition maps
	impl := d.ImplementationID.Marshal()
	copy(body[256:288], impl[:])
	copy(body[288:416], d.ImplementationUse[:])
	putUint32LE(body[416:420], d.IntegritySeqExtentLength)
	putUint32LE(body[420:424], d.IntegritySeqExtent)
	pm := d.PartitionMap.Marshal()
	copy(body[424:430], pm[:])
	tag := MarshalTag(d.Tag, body)
	return append(tag[:], body...), nil
}

func (d *LogicalVolumeDescriptor) Unmarshal(data []byte, extent uint32) error {
	if len(data) < 16+lvdBodyLen {
		return isoerr.Malformedf("udf.LogicalVolumeDescriptor.Unmarshal", int64(extent), -1, "need %d bytes, got %d", 16+lvdBodyLen, len(data))
	}
	var tagBytes [16]byte
	copy(tagBytes[:], data[0:16])
	tag, err := UnmarshalTag(tagBytes, extent, data[16:16+lvdBodyLen])
	if err != nil {
		return err
	}
	if tag.Identifier != TagLogicalVolumeDescriptor {
		return isoerr.Malformedf("udf.LogicalVolumeDescriptor.Unmarshal", int64(extent), 0, "tag identifier %d, want %d", tag.Identifier, TagLogicalVolumeDescriptor)
	}
	d.Tag = tag
	body := data[16 : 16+lvdBodyLen]
	d.VolumeDescSeqNum = getUint32LE(body[0:4])
	volID, err := DecodeCS0Padded(body[68:196])
	if err != nil {
		return err
	}
	d.LogicalVolumeIdentifier = volID
	d.LogicalBlockSize = getUint32LE(body[196:200])
	if d.LogicalBlockSize != 2048 {
		return isoerr.Malformedf("udf.LogicalVolumeDescriptor.Unmarshal", int64(extent), 196, "logical block size %d, this profile requires 2048", d.LogicalBlockSize)
	}
	d.DomainIdentifier.Unmarshal(fixed32(body[200:232]))
	d.LogicalVolumeContentsUse.Unmarshal(fixed16(body[232:248]))
	d.ImplementationID.Unmarshal(fixed32(body[256:288]))
	copy(d.ImplementationUse[:], body[288:416])
	d.IntegritySeqExtentLength = getUint32LE(body[416:420])
	d.IntegritySeqExtent = getUint32LE(body[420:424])
	return d.PartitionMap.Unmarshal(fixed6(body[424:430]))
}

func fixed6(b []byte) [6]byte {
	var out [6]byte
	copy(out[:], b)
	return out
}

// UnallocatedSpaceDescriptor is the ECMA-167 Unallocated Space Descriptor
// (3.3.12); this module always records zero unallocated space extents
// since every disc it writes is fully laid out ahead of time.
type UnallocatedSpaceDescriptor struct {
	Tag              Tag
	VolumeDescSeqNum uint32
}

func (d UnallocatedSpaceDescriptor) Marshal() []byte {
	body := make([]byte, 496)
	putUint32LE(body[0:4], d.VolumeDescSeqNum)
	tag := MarshalTag(d.Tag, body)
	return append(tag[:], body...)
}

// TerminatingDescriptor is the ECMA-167 Terminating Descriptor (3.3.13),
// closing a Volume Descriptor Sequence.
type TerminatingDescriptor struct {
	Tag Tag
}

func (d TerminatingDescriptor) Marshal() []byte {
	body := make([]byte, 496)
	tag := MarshalTag(d.Tag, body)
	return append(tag[:], body...)
}
