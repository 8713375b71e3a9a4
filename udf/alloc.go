package udf

import "encoding/binary"

// ShortAD is an 8-byte ECMA-167 short_ad allocation descriptor (14.14.1),
// used for a File Entry's extent-to-block mappings.
type ShortAD struct {
	ExtentLength uint32
	ExtentPosition uint32
}

func (a ShortAD) Marshal() [8]byte {
	var out [8]byte
	binary.LittleEndian.PutUint32(out[0:4], a.ExtentLength)
	binary.LittleEndian.PutUint32(out[4:8], a.ExtentPosition)
	return out
}

func (a *ShortAD) Unmarshal(data [8]byte) {
	a.ExtentLength = binary.LittleEndian.Uint32(data[0:4])
	a.ExtentPosition = binary.LittleEndian.Uint32(data[4:8])
}

// LongAD is a 16-byte ECMA-167 long_ad allocation descriptor (14.14.2),
// used wherever a descriptor must reference an extent by partition and
// logical block number (root directory ICB, extended attribute ICB).
type LongAD struct {
	ExtentLength uint32
	LogicalBlockNumber uint32
	PartitionRefNumber uint16
	ImplUse            [6]byte
}

func (a LongAD) Marshal() [16]byte {
	var out [16]byte
	binary.LittleEndian.PutUint32(out[0:4], a.ExtentLength)
	binary.LittleEndian.PutUint32(out[4:8], a.LogicalBlockNumber)
	binary.LittleEndian.PutUint16(out[8:10], a.PartitionRefNumber)
	copy(out[10:16], a.ImplUse[:])
	return out
}

func (a *LongAD) Unmarshal(data [16]byte) {
	a.ExtentLength = binary.LittleEndian.Uint32(data[0:4])
	a.LogicalBlockNumber = binary.LittleEndian.Uint32(data[4:8])
	a.PartitionRefNumber = binary.LittleEndian.Uint16(data[8:10])
	copy(a.ImplUse[:], data[10:16])
}
