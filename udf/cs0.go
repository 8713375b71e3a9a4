// Package udf implements the ECMA-167/UDF 2.60 structures (C5) needed for
// a DVD-profile, read-only-compatible UDF bridge volume: the descriptor
// tag, the Anchor Volume Descriptor Pointer, the main/reserve Volume
// Descriptor Sequence, the Logical Volume Integrity Descriptor, the File
// Set Descriptor, File (Identifier) Entries, and CS0 ("OSTA Compressed
// Unicode") string encoding.
//
// The teacher repo (rstms-iso-kit) carries only panic stubs for UDF, so
// this package is grounded instead on the original pycdlib Python
// implementation (original_source/pycdlib/udf.py) referenced by the
// spec's distillation; see DESIGN.md for the grounding note.
package udf

import (
	"github.com/go-optical/isokit/isoerr"
)

// EncodeCS0 renders s as an OSTA CS0 byte string: a one-byte compression
// ID (0x08 for 8-bit Latin-1, 0x10 for 16-bit big-endian) followed by the
// encoded characters. 8-bit compression is used whenever every rune fits
// in Latin-1; otherwise every rune is written as a 16-bit BE code unit.
func EncodeCS0(s string) ([]byte, error) {
	runes := []rune(s)
	eightBit := true
	for _, r := range runes {
		if r > 0xFF {
			eightBit = false
			break
		}
	}
	if eightBit {
		out := make([]byte, 1+len(runes))
		out[0] = 0x08
		for i, r := range runes {
			out[1+i] = byte(r)
		}
		return out, nil
	}
	out := make([]byte, 1+len(runes)*2)
	out[0] = 0x10
	for i, r := range runes {
		if r > 0xFFFF {
			return nil, isoerr.InvalidInputf("udf.EncodeCS0", "code point U+%04X outside the Basic Multilingual Plane", r)
		}
		out[1+i*2] = byte(r >> 8)
		out[2+i*2] = byte(r)
	}
	return out, nil
}

// EncodeCS0Padded encodes s as CS0 and zero-pads to fullLen-1 bytes with
// the source length recorded in the final byte, the "d-string" shape
// used by volume/volume-set/logical-volume identifiers (ECMA-167 1.7.3).
func EncodeCS0Padded(s string, fullLen int) ([]byte, error) {
	enc, err := EncodeCS0(s)
	if err != nil {
		return nil, err
	}
	if len(enc) > fullLen-1 {
		return nil, isoerr.InvalidInputf("udf.EncodeCS0Padded", "encoded string %d bytes exceeds field capacity %d", len(enc), fullLen-1)
	}
	out := make([]byte, fullLen)
	copy(out, enc)
	out[fullLen-1] = byte(len(enc))
	return out, nil
}

// DecodeCS0 decodes a raw (unpadded) CS0 byte string.
func DecodeCS0(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	switch data[0] {
	case 0x08:
		return string(decodeLatin1(data[1:])), nil
	case 0x10:
		if (len(data)-1)%2 != 0 {
			return "", isoerr.Malformedf("udf.DecodeCS0", -1, -1, "odd-length 16-bit CS0 payload")
		}
		runes := make([]rune, 0, (len(data)-1)/2)
		for i := 1; i < len(data); i += 2 {
			runes = append(runes, rune(uint16(data[i])<<8|uint16(data[i+1])))
		}
		return string(runes), nil
	default:
		return "", isoerr.Malformedf("udf.DecodeCS0", -1, -1, "unsupported CS0 compression byte 0x%02x", data[0])
	}
}

// DecodeCS0Padded decodes a d-string field (its trailing byte carries the
// encoded length; everything after that length is padding).
func DecodeCS0Padded(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	n := int(data[len(data)-1])
	if n > len(data)-1 {
		return "", isoerr.Malformedf("udf.DecodeCS0Padded", -1, -1, "declared length %d exceeds field capacity %d", n, len(data)-1)
	}
	return DecodeCS0(data[:n])
}

func decodeLatin1(b []byte) []rune {
	out := make([]rune, len(b))
	for i, c := range b {
		out[i] = rune(c)
	}
	return out
}

// CharSpecCS0 is the 64-byte CharSpec field value identifying the OSTA
// Compressed Unicode character set, used by every descriptor field that
// names a character set in this profile.
func CharSpecCS0() [64]byte {
	var out [64]byte
	copy(out[1:], "OSTA Compressed Unicode")
	return out
}
