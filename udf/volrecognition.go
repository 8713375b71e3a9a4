package udf

import "github.com/go-optical/isokit/isoerr"

// StructureVolumeDescriptor is the common 2048-byte shape of the three
// ECMA-167 Volume Structure Descriptors (BEA01/NSR02/TEA01) that make up
// the Volume Recognition Sequence following the ISO9660 system area.
type StructureVolumeDescriptor struct {
	StandardIdentifier string // "BEA01", "NSR02", or "TEA01"
}

// Marshal renders the descriptor into exactly 2048 bytes.
func (d StructureVolumeDescriptor) Marshal() [2048]byte {
	var out [2048]byte
	out[0] = 0x00
	copy(out[1:6], d.StandardIdentifier)
	out[6] = 0x01
	return out
}

// Unmarshal decodes and validates a 2048-byte Volume Structure Descriptor
// against the expected standard identifier.
func UnmarshalStructureVolumeDescriptor(data [2048]byte, want string) (StructureVolumeDescriptor, error) {
	if data[0] != 0x00 {
		return StructureVolumeDescriptor{}, isoerr.Malformedf("udf.UnmarshalStructureVolumeDescriptor", -1, -1, "bad structure type %d", data[0])
	}
	ident := string(data[1:6])
	if ident != want {
		return StructureVolumeDescriptor{}, isoerr.Malformedf("udf.UnmarshalStructureVolumeDescriptor", -1, -1, "standard identifier %q, want %q", ident, want)
	}
	if data[6] != 0x01 {
		return StructureVolumeDescriptor{}, isoerr.Malformedf("udf.UnmarshalStructureVolumeDescriptor", -1, -1, "bad structure version %d", data[6])
	}
	return StructureVolumeDescriptor{StandardIdentifier: ident}, nil
}

// AnchorVolumeDescriptorPointer is the ECMA-167 AVDP (3.2.1), present at
// logical block 256. This module builds and writes only that one anchor;
// no second copy is placed at N-1 or N-257.
type AnchorVolumeDescriptorPointer struct {
	Tag             Tag
	MainVDSExtentLength   uint32
	MainVDSExtent         uint32
	ReserveVDSExtentLength uint32
	ReserveVDSExtent       uint32
}

// Marshal renders the AVDP into a 512-byte descriptor block (16-byte tag
// plus a 496-byte body: two 8-byte extent_ad fields followed by 480
// reserved bytes); padding out to the full 2048-byte logical block is
// the caller's responsibility.
func (a AnchorVolumeDescriptorPointer) Marshal() []byte {
	body := make([]byte, 496)
	putUint32LE(body[0:4], a.MainVDSExtentLength)
	putUint32LE(body[4:8], a.MainVDSExtent)
	putUint32LE(body[8:12], a.ReserveVDSExtentLength)
	putUint32LE(body[12:16], a.ReserveVDSExtent)
	tag := MarshalTag(a.Tag, body)
	return append(tag[:], body...)
}

// UnmarshalAnchorVolumeDescriptorPointer decodes the AVDP at the given
// extent.
func UnmarshalAnchorVolumeDescriptorPointer(data []byte, extent uint32) (*AnchorVolumeDescriptorPointer, error) {
	if len(data) < 32 {
		return nil, isoerr.Malformedf("udf.UnmarshalAnchorVolumeDescriptorPointer", int64(extent), -1, "need at least 32 bytes, got %d", len(data))
	}
	var tagBytes [16]byte
	copy(tagBytes[:], data[0:16])
	tag, err := UnmarshalTag(tagBytes, extent, data[16:])
	if err != nil {
		return nil, err
	}
	if tag.Identifier != TagAnchorVolumeDescriptorPointer {
		return nil, isoerr.Malformedf("udf.UnmarshalAnchorVolumeDescriptorPointer", int64(extent), 0, "tag identifier %d, want %d", tag.Identifier, TagAnchorVolumeDescriptorPointer)
	}
	body := data[16:32]
	return &AnchorVolumeDescriptorPointer{
		Tag:                    tag,
		MainVDSExtentLength:    getUint32LE(body[0:4]),
		MainVDSExtent:          getUint32LE(body[4:8]),
		ReserveVDSExtentLength: getUint32LE(body[8:12]),
		ReserveVDSExtent:       getUint32LE(body[12:16]),
	}, nil
}

func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getUint32LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
