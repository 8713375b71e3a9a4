// Package susp implements the System Use Sharing Protocol entry stream
// (C3): parsing/emitting each 4-byte-tagged sub-record in a directory
// record's system-use area, following CE continuation chains, and
// interpreting the Rock Ridge entries layered on top via the rockridge
// package.
package susp

import (
	"github.com/go-logr/logr"

	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/encoding"
	"github.com/go-optical/isokit/isoerr"
	"github.com/go-optical/isokit/rockridge"
)

// Entry is one raw SUSP sub-record: 2-byte tag, 1-byte length (LEN_SU,
// the whole entry's length including this header), 1-byte version, then
// (length-4) bytes of body.
type Entry struct {
	Tag     rockridge.Tag
	Length  uint8
	Version uint8
	Body    []byte
}

// Marshal renders the entry back to its on-disk bytes.
func (e Entry) Marshal() []byte {
	out := make([]byte, 4+len(e.Body))
	out[0], out[1] = e.Tag[0], e.Tag[1]
	out[2] = byte(4 + len(e.Body))
	out[3] = e.Version
	copy(out[4:], e.Body)
	return out
}

// NewEntry builds an Entry from a tag and body, computing LEN_SU.
func NewEntry(tag rockridge.Tag, version uint8, body []byte) Entry {
	return Entry{Tag: tag, Length: uint8(4 + len(body)), Version: version, Body: body}
}

// ContinuationPointer is the decoded body of a CE entry.
type ContinuationPointer struct {
	BlockLocation uint32
	Offset        uint32
	Length        uint32
}

func unmarshalContinuationPointer(body []byte) (*ContinuationPointer, error) {
	if len(body) != 24 {
		return nil, isoerr.Malformedf("susp.unmarshalContinuationPointer", -1, -1, "CE body must be 24 bytes, got %d", len(body))
	}
	loc, err := encoding.UnmarshalUint32LSBMSB(body[0:8])
	if err != nil {
		return nil, err
	}
	off, err := encoding.UnmarshalUint32LSBMSB(body[8:16])
	if err != nil {
		return nil, err
	}
	length, err := encoding.UnmarshalUint32LSBMSB(body[16:24])
	if err != nil {
		return nil, err
	}
	return &ContinuationPointer{BlockLocation: loc, Offset: off, Length: length}, nil
}

// MarshalContinuationPointer encodes a CE entry body.
func MarshalContinuationPointer(c ContinuationPointer) []byte {
	buf := make([]byte, 24)
	encoding.PutUint32LSBMSB(buf[0:8], c.BlockLocation)
	encoding.PutUint32LSBMSB(buf[8:16], c.Offset)
	encoding.PutUint32LSBMSB(buf[16:24], c.Length)
	return buf
}

// ExtensionReference is the decoded body of an ER entry, identifying which
// SUSP extension (e.g. Rock Ridge) governs the entries that follow it.
type ExtensionReference struct {
	Identifier string
	Descriptor string
	Source     string
	Version    uint8
}

func unmarshalExtensionReference(body []byte) (*ExtensionReference, error) {
	if len(body) < 4 {
		return nil, isoerr.Malformedf("susp.unmarshalExtensionReference", -1, -1, "ER body too short: %d", len(body))
	}
	idLen, descLen, srcLen, version := int(body[0]), int(body[1]), int(body[2]), body[3]
	need := 4 + idLen + descLen + srcLen
	if len(body) < need {
		return nil, isoerr.Malformedf("susp.unmarshalExtensionReference", -1, -1, "ER body too short for declared lengths")
	}
	pos := 4
	id := string(body[pos : pos+idLen])
	pos += idLen
	desc := string(body[pos : pos+descLen])
	pos += descLen
	src := string(body[pos : pos+srcLen])
	return &ExtensionReference{Identifier: id, Descriptor: desc, Source: src, Version: version}, nil
}

// MarshalExtensionReference encodes an ER entry body.
func MarshalExtensionReference(er ExtensionReference) []byte {
	out := []byte{byte(len(er.Identifier)), byte(len(er.Descriptor)), byte(len(er.Source)), er.Version}
	out = append(out, []byte(er.Identifier)...)
	out = append(out, []byte(er.Descriptor)...)
	out = append(out, []byte(er.Source)...)
	return out
}

// ParseStream decodes a flat SUSP system-use byte stream into Entry
// values, following CE continuation pointers via reader. visited guards
// against a circular CE chain across recursive calls.
func ParseStream(data []byte, reader ContinuationReader, visited map[uint32]bool, logger logr.Logger) ([]Entry, error) {
	if visited == nil {
		visited = make(map[uint32]bool)
	}
	var entries []Entry
	for offset := 0; offset < len(data); {
		if data[offset] == 0x00 {
			break // padding to block/record boundary
		}
		remaining := len(data) - offset
		if remaining < 4 {
			break
		}
		entryLen := int(data[offset+2])
		if entryLen < 4 {
			return nil, isoerr.Malformedf("susp.ParseStream", -1, -1, "entry length %d < 4", entryLen)
		}
		if entryLen > remaining {
			return nil, isoerr.Malformedf("susp.ParseStream", -1, -1, "entry length %d exceeds remaining %d", entryLen, remaining)
		}
		e := Entry{
			Tag:     rockridge.Tag(data[offset : offset+2]),
			Length:  uint8(entryLen),
			Version: data[offset+3],
			Body:    append([]byte(nil), data[offset+4:offset+entryLen]...),
		}
		if e.Tag == "CE" {
			cp, err := unmarshalContinuationPointer(e.Body)
			if err != nil {
				return nil, err
			}
			if visited[cp.BlockLocation] {
				return nil, isoerr.Malformedf("susp.ParseStream", int64(cp.BlockLocation), int64(cp.Offset), "circular CE continuation chain")
			}
			visited[cp.BlockLocation] = true
			if reader == nil {
				return nil, isoerr.Malformedf("susp.ParseStream", int64(cp.BlockLocation), int64(cp.Offset), "CE entry present but no continuation reader supplied")
			}
			buf := make([]byte, cp.Length)
			byteOff := int64(cp.BlockLocation)*consts.BlockSize + int64(cp.Offset)
			if err := reader.ReadContinuation(byteOff, buf); err != nil {
				return nil, isoerr.Malformedf("susp.ParseStream", int64(cp.BlockLocation), int64(cp.Offset), "reading continuation area: %v", err)
			}
			more, err := ParseStream(buf, reader, visited, logger)
			if err != nil {
				return nil, err
			}
			entries = append(entries, more...)
		} else {
			entries = append(entries, e)
		}
		offset += entryLen
	}
	return entries, nil
}

// ContinuationReader reads continuation-area bytes addressed by absolute
// byte offset into the image; parser.go implements this over the open
// source.
type ContinuationReader interface {
	ReadContinuation(byteOffset int64, buf []byte) error
}
