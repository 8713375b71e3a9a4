package udf

import "github.com/go-optical/isokit/isoerr"

// File Identifier Descriptor characteristics bits (ECMA-167 14.4.3).
const (
	FileCharacteristicHidden  uint8 = 0x01
	FileCharacteristicDirectory uint8 = 0x02
	FileCharacteristicDeleted   uint8 = 0x04
	FileCharacteristicParent    uint8 = 0x08
)

// FileIdentifierDescriptor is the ECMA-167 File Identifier Descriptor
// (14.4), one per directory entry, analogous to an ISO9660 directory
// record but always a fixed 22-byte header (after the 16-byte tag) plus
// the CS0-encoded name, padded to a 4-byte boundary.
type FileIdentifierDescriptor struct {
	Tag                 Tag
	FileCharacteristics uint8
	ICB                 LongAD
	FileIdentifier      string // empty for "." and the parent entry
}

// IsDirectory reports whether the Directory characteristic bit is set.
func (d *FileIdentifierDescriptor) IsDirectory() bool {
	return d.FileCharacteristics&FileCharacteristicDirectory != 0
}

// IsParent reports whether this descriptor is the synthetic ".." entry.
func (d *FileIdentifierDescriptor) IsParent() bool {
	return d.FileCharacteristics&FileCharacteristicParent != 0
}

func fidPad(n int) int {
	return (4*((n+3)/4) - n)
}

// Len returns the padded on-disk length this descriptor will occupy.
func (d *FileIdentifierDescriptor) Len() (int, error) {
	var nameLen int
	if d.FileIdentifier != "" {
		enc, err := EncodeCS0(d.FileIdentifier)
		if err != nil {
			return 0, err
		}
		nameLen = len(enc)
	}
	base := 22 + nameLen
	return base + fidPad(base), nil
}

// Marshal encodes the descriptor, padded to a 4-byte boundary.
func (d *FileIdentifierDescriptor) Marshal() ([]byte, error) {
	var nameBytes []byte
	if d.FileIdentifier != "" {
		enc, err := EncodeCS0(d.FileIdentifier)
		if err != nil {
			return nil, err
		}
		nameBytes = enc
	}
	body := make([]byte, 22+len(nameBytes))
	putUint16LE(body[0:2], 1) // file version number
	body[2] = d.FileCharacteristics
	body[3] = byte(len(nameBytes))
	icb := d.ICB.Marshal()
	copy(body[4:20], icb[:])
	putUint16LE(body[20:22], 0) // length of implementation use
	copy(body[22:], nameBytes)

	total := len(body)
	pad := fidPad(total)
	body = append(body, make([]byte, pad)...)

	tag := MarshalTag(d.Tag, body)
	return append(tag[:], body...), nil
}

// Unmarshal decodes one File Identifier Descriptor from the front of
// data, returning the number of bytes consumed (including padding).
func (d *FileIdentifierDescriptor) Unmarshal(data []byte, extent uint32) (int, error) {
	if len(data) < 16+22 {
		return 0, isoerr.Malformedf("udf.FileIdentifierDescriptor.Unmarshal", int64(extent), -1, "need at least %d bytes, got %d", 16+22, len(data))
	}
	var tagBytes [16]byte
	copy(tagBytes[:], data[0:16])

	fileVersionNum := getUint16LE(data[16:18])
	characteristics := data[18]
	lenFI := int(data[19])
	icbBytes := fixed16(data[20:36])
	lenImplUse := int(getUint16LE(data[36:38]))

	bodyEnd := 22 + lenImplUse + lenFI
	totalUnpadded := 16 + bodyEnd
	if totalUnpadded > len(data) {
		return 0, isoerr.Malformedf("udf.FileIdentifierDescriptor.Unmarshal", int64(extent), -1, "descriptor overruns buffer: need %d, have %d", totalUnpadded, len(data))
	}
	pad := fidPad(bodyEnd)
	total := totalUnpadded + pad
	crcEnd := total
	if crcEnd > len(data) {
		crcEnd = len(data)
	}

	tag, err := UnmarshalTag(tagBytes, extent, data[16:crcEnd])
	if err != nil {
		return 0, err
	}
	if tag.Identifier != TagFileIdentifierDescriptor {
		return 0, isoerr.Malformedf("udf.FileIdentifierDescriptor.Unmarshal", int64(extent), 0, "tag identifier %d, want %d", tag.Identifier, TagFileIdentifierDescriptor)
	}
	if fileVersionNum != 1 {
		return 0, isoerr.Malformedf("udf.FileIdentifierDescriptor.Unmarshal", int64(extent), 16, "file version number %d, want 1", fileVersionNum)
	}
	d.Tag = tag
	d.FileCharacteristics = characteristics
	d.ICB.Unmarshal(icbBytes)

	nameStart := 16 + 22 + lenImplUse
	if lenFI > 0 {
		name, err := DecodeCS0(data[nameStart : nameStart+lenFI])
		if err != nil {
			return 0, err
		}
		d.FileIdentifier = name
	} else {
		d.FileIdentifier = ""
	}
	return total, nil
}
