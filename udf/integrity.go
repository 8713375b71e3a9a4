package udf

import "github.com/go-optical/isokit/isoerr"

// LogicalVolumeHeaderDescriptor is the 8-byte "unique ID" header carried
// inside a Logical Volume Integrity Descriptor's LogicalVolumeContentsUse
// field (ECMA-167 3.3.3).
type LogicalVolumeHeaderDescriptor struct {
	UniqueID uint64
}

func (h LogicalVolumeHeaderDescriptor) Marshal() [32]byte {
	var out [32]byte
	putUint64LE(out[0:8], h.UniqueID)
	return out
}

func (h *LogicalVolumeHeaderDescriptor) Unmarshal(data [32]byte) {
	h.UniqueID = getUint64LE(data[0:8])
}

// LogicalVolumeIntegrityDescriptor is the ECMA-167 LVID (3.3.3), recording
// the highest unique ID handed out so far and the partition's free/size
// space table (both fixed at 0/size for this module's static layout).
type LogicalVolumeIntegrityDescriptor struct {
	Tag                      Tag
	RecordingDate            Timestamp
	LengthOfImplementationUse uint32
	FreeSpaceTable           uint32
	SizeTable                uint32
	ContentsUse              LogicalVolumeHeaderDescriptor
	ImplementationID         EntityID
}

func (d LogicalVolumeIntegrityDescriptor) Marshal() []byte {
	implUse := make([]byte, 46)
	implID := d.ImplementationID.Marshal()
	copy(implUse[0:32], implID[:])
	// free/size space table per partition (2 uint32s), one partition.
	putUint32LE(implUse[32:36], 0)
	putUint32LE(implUse[36:40], d.SizeTable32())

	body := make([]byte, 0, 72+len(implUse))
	rec := d.RecordingDate.Marshal()
	body = append(body, rec[:]...)
	var tmp [4]byte
	putUint32LE(tmp[:], 1) // integrity type
	body = append(body, tmp[:]...)
	putUint32LE(tmp[:], 0) // next integrity extent length
	body = append(body, tmp[:]...)
	putUint32LE(tmp[:], 0) // next integrity extent extent
	body = append(body, tmp[:]...)
	contents := d.ContentsUse.Marshal()
	body = append(body, contents[:]...)
	putUint32LE(tmp[:], 1) // num partitions
	body = append(body, tmp[:]...)
	putUint32LE(tmp[:], d.LengthOfImplementationUse)
	body = append(body, tmp[:]...)
	putUint32LE(tmp[:], d.FreeSpaceTable)
	body = append(body, tmp[:]...)
	putUint32LE(tmp[:], d.SizeTable)
	body = append(body, tmp[:]...)
	body = append(body, implUse...)

	tag := MarshalTag(d.Tag, body)
	return append(tag[:], body...)
}

// SizeTable32 exists purely to keep the implementation-use free/size
// space table in sync with the descriptor-level SizeTable field.
func (d LogicalVolumeIntegrityDescriptor) SizeTable32() uint32 { return d.SizeTable }

func (d *LogicalVolumeIntegrityDescriptor) Unmarshal(data []byte, extent uint32) error {
	if len(data) < 16+72 {
		return isoerr.Malformedf("udf.LogicalVolumeIntegrityDescriptor.Unmarshal", int64(extent), -1, "need at least %d bytes, got %d", 16+72, len(data))
	}
	var tagBytes [16]byte
	copy(tagBytes[:], data[0:16])
	body := data[16:]
	tag, err := UnmarshalTag(tagBytes, extent, body)
	if err != nil {
		return err
	}
	if tag.Identifier != TagLogicalVolumeIntegrityDescriptor {
		return isoerr.Malformedf("udf.LogicalVolumeIntegrityDescriptor.Unmarshal", int64(extent), 0, "tag identifier %d, want %d", tag.Identifier, TagLogicalVolumeIntegrityDescriptor)
	}
	d.Tag = tag
	if err := d.RecordingDate.Unmarshal(fixed12(body[0:12])); err != nil {
		return err
	}
	d.ContentsUse.Unmarshal(fixed32(body[24:56]))
	d.LengthOfImplementationUse = getUint32LE(body[60:64])
	d.FreeSpaceTable = getUint32LE(body[64:68])
	d.SizeTable = getUint32LE(body[68:72])
	if int(d.LengthOfImplementationUse) > 0 && len(body) >= 72+32 {
		d.ImplementationID.Unmarshal(fixed32(body[72 : 72+32]))
	}
	return nil
}

func putUint64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint64LE(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
