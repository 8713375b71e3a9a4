package descriptor

import (
	"encoding/binary"

	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/isoerr"
)

// BootRecordVolumeDescriptor points at the El Torito boot catalog extent.
type BootRecordVolumeDescriptor struct {
	BootSystemIdentifier string // e.g. "EL TORITO SPECIFICATION"
	BootIdentifier       string
	CatalogExtent        uint32 // 32-bit LE pointer into the boot-record body
	BootSystemUse        [1977]byte
}

func (d *BootRecordVolumeDescriptor) Marshal() [consts.BlockSize]byte {
	var out [consts.BlockSize]byte
	hdr := Header{Type: TypeBootRecord, Identifier: consts.StdIdentifier, Version: consts.VolumeDescVersion}
	copy(out[0:7], hdr.Marshal())
	copy(out[7:39], padSpace(d.BootSystemIdentifier, 32))
	copy(out[39:71], padSpace(d.BootIdentifier, 32))
	binary.LittleEndian.PutUint32(out[71:75], d.CatalogExtent)
	copy(out[75:2048], d.BootSystemUse[:])
	return out
}

func padSpace(s string, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = 0
	}
	copy(out, s)
	return out
}

func UnmarshalBootRecordVolumeDescriptor(data [consts.BlockSize]byte) (*BootRecordVolumeDescriptor, error) {
	hdr, err := UnmarshalHeader(data[0:7])
	if err != nil {
		return nil, err
	}
	if hdr.Type != TypeBootRecord {
		return nil, isoerr.Malformedf("descriptor.UnmarshalBootRecordVolumeDescriptor", -1, -1, "wrong descriptor type %d", hdr.Type)
	}
	d := &BootRecordVolumeDescriptor{
		BootSystemIdentifier: trimNull(string(data[7:39])),
		BootIdentifier:       trimNull(string(data[39:71])),
		CatalogExtent:        binary.LittleEndian.Uint32(data[71:75]),
	}
	copy(d.BootSystemUse[:], data[75:2048])
	return d, nil
}

func trimNull(s string) string {
	for i, c := range s {
		if c == 0 {
			return s[:i]
		}
	}
	return s
}

// VolumePartitionDescriptor describes an ECMA-119 volume partition (rarely
// used outside multi-session discs; decoded for completeness).
type VolumePartitionDescriptor struct {
	SystemIdentifier  string
	VolumePartitionID string
	Location          uint32
	Size              uint32
}

func (d *VolumePartitionDescriptor) Marshal() [consts.BlockSize]byte {
	var out [consts.BlockSize]byte
	hdr := Header{Type: TypeVolumePartition, Identifier: consts.StdIdentifier, Version: consts.VolumeDescVersion}
	copy(out[0:7], hdr.Marshal())
	copy(out[8:40], padSpaceASCII(d.SystemIdentifier, 32))
	copy(out[40:72], padSpaceASCII(d.VolumePartitionID, 32))
	binary.LittleEndian.PutUint32(out[72:76], d.Location)
	binary.BigEndian.PutUint32(out[76:80], d.Location)
	binary.LittleEndian.PutUint32(out[80:84], d.Size)
	binary.BigEndian.PutUint32(out[84:88], d.Size)
	return out
}

func padSpaceASCII(s string, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = ' '
	}
	copy(out, s)
	return out
}

func UnmarshalVolumePartitionDescriptor(data [consts.BlockSize]byte) (*VolumePartitionDescriptor, error) {
	hdr, err := UnmarshalHeader(data[0:7])
	if err != nil {
		return nil, err
	}
	if hdr.Type != TypeVolumePartition {
		return nil, isoerr.Malformedf("descriptor.UnmarshalVolumePartitionDescriptor", -1, -1, "wrong descriptor type %d", hdr.Type)
	}
	return &VolumePartitionDescriptor{
		SystemIdentifier:  trimSpace(string(data[8:40])),
		VolumePartitionID: trimSpace(string(data[40:72])),
		Location:          binary.LittleEndian.Uint32(data[72:76]),
		Size:              binary.LittleEndian.Uint32(data[80:84]),
	}, nil
}

// SetTerminatorDescriptor ends the volume descriptor sequence.
type SetTerminatorDescriptor struct{}

func (SetTerminatorDescriptor) Marshal() [consts.BlockSize]byte {
	var out [consts.BlockSize]byte
	hdr := Header{Type: TypeSetTerminator, Identifier: consts.StdIdentifier, Version: consts.VolumeDescVersion}
	copy(out[0:7], hdr.Marshal())
	return out
}
