// Package directory implements the directory-record layer (C2): parsing
// and emitting a single 34+ byte ECMA-119 directory record, its flags,
// extent location, data length, and the trailing system-use area that
// anchors SUSP/Rock Ridge.
package directory

import (
	"encoding/binary"

	"github.com/go-optical/isokit/encoding"
	"github.com/go-optical/isokit/isoerr"
)

// Record is a single decoded/pending-encode directory record.
type Record struct {
	ExtendedAttributeLength uint8
	Extent                  uint32
	DataLength              uint32
	RecordingDate           encoding.RecordingDate
	Flags                   Flags
	FileUnitSize            uint8
	InterleaveGapSize       uint8
	VolumeSequenceNumber    uint16
	Identifier              string // raw identifier bytes, namespace-specific encoding
	SystemUse               []byte // everything after the (possibly padded) identifier
	Joliet                  bool   // decoding hint: Identifier is UCS-2BE unless special
}

// Len returns the on-disk length this record would marshal to, the value
// written into byte 0 (LengthOfDirectoryRecord).
func (r *Record) Len() int {
	idLen := len(identifierBytes(r))
	base := 33 + idLen
	if idLen%2 == 0 {
		base++ // padding byte
	}
	return base + len(r.SystemUse)
}

func identifierBytes(r *Record) []byte {
	if r.Joliet {
		b, err := EncodeJolietName(r.Identifier)
		if err != nil {
			// Caller is expected to have validated already; fall back to
			// raw bytes so Len() stays consistent with Marshal's behavior.
			return []byte(r.Identifier)
		}
		return b
	}
	return []byte(r.Identifier)
}

// Marshal encodes the record. The caller is responsible for ensuring the
// result does not cross a block boundary; the directory builder in the
// layout planner handles padding/splitting at the block level.
func (r *Record) Marshal() ([]byte, error) {
	idBytes := identifierBytes(r)
	total := r.Len()
	if total > 255 {
		return nil, isoerr.InvalidInputf("directory.Record.Marshal", "record length %d exceeds 255", total)
	}
	out := make([]byte, total)
	out[0] = byte(total)
	out[1] = r.ExtendedAttributeLength
	encoding.PutUint32LSBMSB(out[2:10], r.Extent)
	encoding.PutUint32LSBMSB(out[10:18], r.DataLength)
	dateBytes, err := encoding.EncodeRecordingDate(r.RecordingDate)
	if err != nil {
		return nil, err
	}
	copy(out[18:25], dateBytes)
	out[25] = r.Flags.Byte()
	out[26] = r.FileUnitSize
	out[27] = r.InterleaveGapSize
	encoding.PutUint16LSBMSB(out[28:32], r.VolumeSequenceNumber)
	out[32] = byte(len(idBytes))
	copy(out[33:33+len(idBytes)], idBytes)
	pos := 33 + len(idBytes)
	if len(idBytes)%2 == 0 {
		out[pos] = 0x00
		pos++
	}
	copy(out[pos:], r.SystemUse)
	return out, nil
}

// Unmarshal decodes the fixed part plus identifier of a record from data,
// which must begin at the record's first byte and extend at least to the
// record's declared length. The system-use area is left raw in
// r.SystemUse for susp.ParseSystemUseEntries to interpret, since that
// requires access to the whole image for CE continuation chains.
func (r *Record) Unmarshal(data []byte) error {
	if len(data) < 34 {
		return isoerr.Malformedf("directory.Record.Unmarshal", -1, -1, "record shorter than minimum 34 bytes: %d", len(data))
	}
	length := int(data[0])
	if length == 0 {
		return isoerr.Malformedf("directory.Record.Unmarshal", -1, -1, "zero-length record at non-terminator position")
	}
	if length > len(data) {
		return isoerr.Malformedf("directory.Record.Unmarshal", -1, -1, "declared length %d exceeds available %d", length, len(data))
	}
	r.ExtendedAttributeLength = data[1]
	var err error
	r.Extent, err = encoding.UnmarshalUint32LSBMSB(data[2:10])
	if err != nil {
		return err
	}
	r.DataLength, err = encoding.UnmarshalUint32LSBMSB(data[10:18])
	if err != nil {
		return err
	}
	r.RecordingDate, err = encoding.DecodeRecordingDate(data[18:25])
	if err != nil {
		return err
	}
	r.Flags.SetByte(data[25])
	r.FileUnitSize = data[26]
	r.InterleaveGapSize = data[27]
	r.VolumeSequenceNumber, err = encoding.UnmarshalUint16LSBMSB(data[28:32])
	if err != nil {
		return err
	}
	idLen := int(data[32])
	if 33+idLen > length {
		return isoerr.Malformedf("directory.Record.Unmarshal", -1, -1, "identifier length %d exceeds record length %d", idLen, length)
	}
	rawID := data[33 : 33+idLen]
	if r.Joliet && idLen != 1 {
		name, err := DecodeJolietName(rawID)
		if err != nil {
			return err
		}
		r.Identifier = name
	} else {
		r.Identifier = string(rawID)
	}
	sysUseStart := 33 + idLen
	if idLen%2 == 0 {
		sysUseStart++
	}
	if sysUseStart < length {
		r.SystemUse = append([]byte(nil), data[sysUseStart:length]...)
	} else {
		r.SystemUse = nil
	}
	return nil
}

// IsDot reports whether this is the "." self-reference record.
func (r *Record) IsDot() bool { return r.Identifier == SpecialRoot }

// IsDotDot reports whether this is the ".." parent-reference record.
func (r *Record) IsDotDot() bool { return r.Identifier == SpecialParent }

// PeekLength reads just byte 0 of a record at the given offset, used by the
// parser to walk a directory extent record-by-record. A value of 0 signals
// either a block terminator (skip to next block) or padding.
func PeekLength(data []byte) uint8 {
	if len(data) == 0 {
		return 0
	}
	return data[0]
}

func le16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
