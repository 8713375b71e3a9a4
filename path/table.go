// Package path builds and codes the ISO9660/Joliet path tables (C4/C8):
// one LE-ordered and one BE-ordered table per namespace, each listing
// every directory in breadth-first, then lexically-sorted-by-parent
// order (ECMA-119 6.9).
package path

import (
	"encoding/binary"

	"github.com/go-optical/isokit/isoerr"
)

// Record is one path table entry (ECMA-119 9.4).
type Record struct {
	ExtendedAttributeLength uint8
	Extent                  uint32
	ParentDirectoryNumber   uint16
	Identifier              string
	Joliet                  bool
}

// Len returns the padded on-disk length of the record.
func (r *Record) Len() int {
	idLen := identifierByteLen(r.Identifier, r.Joliet)
	if r.Identifier == "" {
		idLen = 1 // root: a single (00) byte, as Marshal writes it
	}
	n := 8 + idLen
	if n%2 != 0 {
		n++
	}
	return n
}

func identifierByteLen(id string, joliet bool) int {
	if joliet {
		return len([]rune(id)) * 2
	}
	return len(id)
}

// Marshal encodes the record using the given byte order for the 32-bit
// extent and 16-bit parent-directory-number fields (LittleEndian for the
// "L" table, BigEndian for the "M" table).
func (r *Record) Marshal(order binary.ByteOrder) ([]byte, error) {
	var idBytes []byte
	if r.Identifier == "" {
		// Root directory record per ECMA-119 9.4.3: identifier length 1,
		// a single (00) byte.
		idBytes = []byte{0x00}
	} else if r.Joliet {
		enc, err := encodeUCS2BE(r.Identifier)
		if err != nil {
			return nil, err
		}
		idBytes = enc
	} else {
		idBytes = []byte(r.Identifier)
	}
	if len(idBytes) > 255 {
		return nil, isoerr.InvalidInputf("path.Record.Marshal", "identifier too long: %d bytes", len(idBytes))
	}
	out := make([]byte, 8+len(idBytes))
	out[0] = byte(len(idBytes))
	out[1] = r.ExtendedAttributeLength
	order.PutUint32(out[2:6], r.Extent)
	order.PutUint16(out[6:8], r.ParentDirectoryNumber)
	copy(out[8:], idBytes)
	if len(idBytes)%2 != 0 {
		out = append(out, 0x00)
	}
	return out, nil
}

// Unmarshal decodes one record starting at the front of data, returning
// the number of bytes consumed.
func (r *Record) Unmarshal(data []byte, order binary.ByteOrder) (int, error) {
	if len(data) < 8 {
		return 0, isoerr.Malformedf("path.Record.Unmarshal", -1, -1, "need 8 bytes, got %d", len(data))
	}
	idLen := int(data[0])
	r.ExtendedAttributeLength = data[1]
	r.Extent = order.Uint32(data[2:6])
	r.ParentDirectoryNumber = order.Uint16(data[6:8])
	end := 8 + idLen
	if len(data) < end {
		return 0, isoerr.Malformedf("path.Record.Unmarshal", -1, -1, "truncated identifier: need %d, have %d", end, len(data))
	}
	if idLen == 1 && data[8] == 0x00 {
		r.Identifier = ""
	} else if r.Joliet {
		s, err := decodeUCS2BE(data[8:end])
		if err != nil {
			return 0, err
		}
		r.Identifier = s
	} else {
		r.Identifier = string(data[8:end])
	}
	if idLen%2 != 0 {
		end++
	}
	return end, nil
}

func encodeUCS2BE(s string) ([]byte, error) {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		if r > 0xFFFF {
			return nil, isoerr.InvalidInputf("path.encodeUCS2BE", "code point U+%04X outside the Basic Multilingual Plane", r)
		}
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(r))
		out = append(out, b[0], b[1])
	}
	return out, nil
}

func decodeUCS2BE(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", isoerr.Malformedf("path.decodeUCS2BE", -1, -1, "odd byte length %d", len(b))
	}
	runes := make([]rune, 0, len(b)/2)
	for i := 0; i < len(b); i += 2 {
		runes = append(runes, rune(binary.BigEndian.Uint16(b[i:i+2])))
	}
	return string(runes), nil
}

// Table is a full path table for one namespace, in directory-number
// order (Records[i] is directory number i+1; directory numbers are
// 1-based per ECMA-119, so Records[0] is the root).
type Table struct {
	Records []Record
}

// MarshalL encodes the table in the "L" (little-endian) byte order.
func (t *Table) MarshalL() ([]byte, error) {
	return t.marshal(binary.LittleEndian)
}

// MarshalM encodes the table in the "M" (big-endian) byte order.
func (t *Table) MarshalM() ([]byte, error) {
	return t.marshal(binary.BigEndian)
}

func (t *Table) marshal(order binary.ByteOrder) ([]byte, error) {
	var out []byte
	for i := range t.Records {
		b, err := t.Records[i].Marshal(order)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// Unmarshal decodes every record packed into data (already padded to a
// block boundary by the caller).
func (t *Table) Unmarshal(data []byte, order binary.ByteOrder, joliet bool) error {
	t.Records = nil
	offset := 0
	for offset < len(data) {
		if data[offset] == 0x00 {
			break
		}
		var rec Record
		rec.Joliet = joliet
		n, err := rec.Unmarshal(data[offset:], order)
		if err != nil {
			return err
		}
		t.Records = append(t.Records, rec)
		offset += n
	}
	return nil
}

// ByteLen returns the unpadded byte length of the encoded table, used to
// compute the PathTableSize field shared by both byte orders.
func (t *Table) ByteLen() (int, error) {
	b, err := t.MarshalL()
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// DirEntry is the minimal shape path table construction needs from a
// directory node, kept decoupled from the node package so that path does
// not depend on node (the layout planner converts nodes into entries).
type DirEntry struct {
	Identifier string
	Extent     uint32
	Depth      int // root is depth 1
	ParentIdx  int // 1-based position of the parent entry in the same slice; the root's parent is itself (1)
}

// Build assembles a path table from directory entries already ordered
// breadth-first-by-depth then lexically-within-depth per ECMA-119 6.9:
// entries must be presented in final directory-number order (1-based,
// root first) with ParentIdx referring to other entries' 1-based
// position in the same slice.
func Build(entries []DirEntry, joliet bool) *Table {
	t := &Table{}
	for _, e := range entries {
		t.Records = append(t.Records, Record{
			Extent:                e.Extent,
			ParentDirectoryNumber: uint16(e.ParentIdx),
			Identifier:            e.Identifier,
			Joliet:                joliet,
		})
	}
	return t
}
