package udf

import (
	"encoding/binary"

	"github.com/go-optical/isokit/isoerr"
)

// Tag is the 16-byte descriptor tag prefixing every UDF/ECMA-167
// descriptor (ECMA-167 7.2).
type Tag struct {
	Identifier     uint16
	DescVersion    uint16
	SerialNumber   uint16
	CRCLength      uint16
	TagLocation    uint32
}

// Identifiers for the descriptor tag's Ident field (ECMA-167 7.2.1).
const (
	TagPrimaryVolumeDescriptor           uint16 = 1
	TagAnchorVolumeDescriptorPointer     uint16 = 2
	TagVolumeDescriptorPointer           uint16 = 3
	TagImplementationUseVolumeDescriptor uint16 = 4
	TagPartitionDescriptor                uint16 = 5
	TagLogicalVolumeDescriptor            uint16 = 6
	TagUnallocatedSpaceDescriptor         uint16 = 7
	TagTerminatingDescriptor              uint16 = 8
	TagLogicalVolumeIntegrityDescriptor   uint16 = 9
	TagFileSetDescriptor                   uint16 = 256
	TagFileIdentifierDescriptor            uint16 = 257
	TagExtendedFileEntry                    uint16 = 266
	TagFileEntry                            uint16 = 261
)

func computeChecksum(data [16]byte) byte {
	var sum byte
	for i, b := range data {
		if i == 4 {
			continue // checksum byte itself is excluded
		}
		sum += b
	}
	return sum
}

// MarshalTag renders the tag over crcBytes, computing both the CRC-CCITT
// over crcBytes and the byte checksum over the 16-byte tag itself.
func MarshalTag(t Tag, crcBytes []byte) [16]byte {
	var raw [16]byte
	binary.LittleEndian.PutUint16(raw[0:2], t.Identifier)
	binary.LittleEndian.PutUint16(raw[2:4], t.DescVersion)
	// raw[4] checksum filled below
	raw[5] = 0 // reserved
	binary.LittleEndian.PutUint16(raw[6:8], t.SerialNumber)
	binary.LittleEndian.PutUint16(raw[8:10], crcCCITT(crcBytes))
	binary.LittleEndian.PutUint16(raw[10:12], uint16(len(crcBytes)))
	binary.LittleEndian.PutUint32(raw[12:16], t.TagLocation)
	raw[4] = computeChecksum(raw)
	return raw
}

// UnmarshalTag decodes and verifies a 16-byte descriptor tag against the
// body bytes that follow it in the same block.
func UnmarshalTag(data [16]byte, extent uint32, body []byte) (Tag, error) {
	if computeChecksum(data) != data[4] {
		return Tag{}, isoerr.Malformedf("udf.UnmarshalTag", int64(extent), 4, "tag checksum mismatch")
	}
	t := Tag{
		Identifier:   binary.LittleEndian.Uint16(data[0:2]),
		DescVersion:  binary.LittleEndian.Uint16(data[2:4]),
		SerialNumber: binary.LittleEndian.Uint16(data[6:8]),
		TagLocation:  binary.LittleEndian.Uint32(data[12:16]),
	}
	descCRC := binary.LittleEndian.Uint16(data[8:10])
	t.CRCLength = binary.LittleEndian.Uint16(data[10:12])
	if int(t.CRCLength) > len(body) {
		return Tag{}, isoerr.Malformedf("udf.UnmarshalTag", int64(extent), 10, "CRC length %d exceeds body %d", t.CRCLength, len(body))
	}
	if t.DescVersion != 2 && t.DescVersion != 3 {
		return Tag{}, isoerr.Malformedf("udf.UnmarshalTag", int64(extent), 2, "unsupported tag version %d", t.DescVersion)
	}
	if crcCCITT(body[:t.CRCLength]) != descCRC {
		return Tag{}, isoerr.Malformedf("udf.UnmarshalTag", int64(extent), 8, "descriptor CRC mismatch")
	}
	return t, nil
}

var crcCCITTTable = buildCRCCCITTTable()

func buildCRCCCITTTable() [256]uint16 {
	const poly = 0x1021
	var table [256]uint16
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}

func crcCCITT(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = crcCCITTTable[b^byte(crc>>8)] ^ (crc << 8)
	}
	return crc
}
