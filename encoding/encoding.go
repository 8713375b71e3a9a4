// Package encoding is the byte codec (C1): fixed-width integer fields in
// little-endian, big-endian, and "both-endian" forms, the two on-disk date
// formats, d-character/a-character validation, and UCS-2BE transcoding for
// Joliet names. Every other package in this module builds on it the way the
// teacher's pkg/encoding does, rather than reaching for encoding/binary
// directly at the call site.
package encoding

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/go-optical/isokit/isoerr"
)

// MarshalDChars encodes s as d-characters, upper-cased, padded to length
// with spaces, truncated if too long.
func MarshalDChars(s string, length int) ([]byte, error) {
	s = strings.ToUpper(s)
	if err := ValidateDChars(s); err != nil {
		return nil, err
	}
	return padRight(s, length), nil
}

// MarshalAChars encodes s as a-characters, padded to length with spaces.
func MarshalAChars(s string, length int) ([]byte, error) {
	s = strings.ToUpper(s)
	if err := ValidateAChars(s); err != nil {
		return nil, err
	}
	return padRight(s, length), nil
}

func padRight(s string, length int) []byte {
	if len(s) > length {
		s = s[:length]
	}
	out := make([]byte, length)
	copy(out, s)
	for i := len(s); i < length; i++ {
		out[i] = ' '
	}
	return out
}

// ValidateDChars checks that every byte of s is in the d-character set.
func ValidateDChars(s string) error {
	for _, r := range s {
		if !strings.ContainsRune(consts_DCharacters, r) {
			return isoerr.InvalidInputf("encoding.ValidateDChars", "illegal d-character %q in %q", r, s)
		}
	}
	return nil
}

// ValidateAChars checks that every byte of s is in the a-character set.
func ValidateAChars(s string) error {
	for _, r := range s {
		if !strings.ContainsRune(consts_ACharacters, r) {
			return isoerr.InvalidInputf("encoding.ValidateAChars", "illegal a-character %q in %q", r, s)
		}
	}
	return nil
}

// these mirror consts.DCharacters/ACharacters; duplicated here (as literals)
// so that encoding does not import consts for the character sets it needs
// most often during marshal.
const (
	consts_DCharacters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_"
	consts_ACharacters = " !\"%&'()*+,-./0123456789:;<=>?ABCDEFGHIJKLMNOPQRSTUVWXYZ_"
)

// UnmarshalUint32LSBMSB decodes a both-endian 32-bit field (ECMA-119 7.3.3):
// little-endian half followed by big-endian half of the same value. The two
// halves must agree or the field is corrupt.
func UnmarshalUint32LSBMSB(data []byte) (uint32, error) {
	if len(data) < 8 {
		return 0, isoerr.Malformedf("encoding.UnmarshalUint32LSBMSB", -1, -1, "need 8 bytes, got %d", len(data))
	}
	lsb := binary.LittleEndian.Uint32(data[0:4])
	msb := binary.BigEndian.Uint32(data[4:8])
	if lsb != msb {
		return 0, isoerr.Malformedf("encoding.UnmarshalUint32LSBMSB", -1, -1, "LE/BE mismatch: %d != %d", lsb, msb)
	}
	return lsb, nil
}

// UnmarshalUint16LSBMSB decodes a both-endian 16-bit field (ECMA-119 7.2.3).
func UnmarshalUint16LSBMSB(data []byte) (uint16, error) {
	if len(data) < 4 {
		return 0, isoerr.Malformedf("encoding.UnmarshalUint16LSBMSB", -1, -1, "need 4 bytes, got %d", len(data))
	}
	lsb := binary.LittleEndian.Uint16(data[0:2])
	msb := binary.BigEndian.Uint16(data[2:4])
	if lsb != msb {
		return 0, isoerr.Malformedf("encoding.UnmarshalUint16LSBMSB", -1, -1, "LE/BE mismatch: %d != %d", lsb, msb)
	}
	return lsb, nil
}

// PutUint32LSBMSB writes a both-endian 32-bit field into dst[0:8].
func PutUint32LSBMSB(dst []byte, value uint32) {
	_ = dst[7]
	binary.LittleEndian.PutUint32(dst[0:4], value)
	binary.BigEndian.PutUint32(dst[4:8], value)
}

// PutUint16LSBMSB writes a both-endian 16-bit field into dst[0:4].
func PutUint16LSBMSB(dst []byte, value uint16) {
	_ = dst[3]
	binary.LittleEndian.PutUint16(dst[0:2], value)
	binary.BigEndian.PutUint16(dst[2:4], value)
}

// RecordingDate is the 7-byte directory-record date format: year-1900,
// month, day, hour, minute, second, GMT offset in 15-minute units. The
// all-zero value means "unspecified" and that is preserved round-trip.
type RecordingDate struct {
	Unspecified bool
	Time        time.Time
}

// DecodeRecordingDate parses the 7-byte directory-record date field.
func DecodeRecordingDate(data []byte) (RecordingDate, error) {
	if len(data) != 7 {
		return RecordingDate{}, isoerr.Malformedf("encoding.DecodeRecordingDate", -1, -1, "need 7 bytes, got %d", len(data))
	}
	allZero := true
	for _, b := range data {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return RecordingDate{Unspecified: true}, nil
	}
	year := int(data[0]) + 1900
	month := time.Month(data[1])
	day := int(data[2])
	hour := int(data[3])
	minute := int(data[4])
	second := int(data[5])
	offset := int8(data[6])
	loc := time.FixedZone("", int(offset)*15*60)
	return RecordingDate{Time: time.Date(year, month, day, hour, minute, second, 0, loc)}, nil
}

// EncodeRecordingDate renders a RecordingDate back to 7 bytes.
func EncodeRecordingDate(d RecordingDate) ([]byte, error) {
	if d.Unspecified {
		return make([]byte, 7), nil
	}
	t := d.Time
	year := t.Year() - 1900
	if year < 0 || year > 255 {
		return nil, isoerr.InvalidInputf("encoding.EncodeRecordingDate", "year out of range: %d", t.Year())
	}
	_, offsetSeconds := t.Zone()
	offset := (offsetSeconds / 60) / 15
	if offset < -48 || offset > 52 {
		return nil, isoerr.InvalidInputf("encoding.EncodeRecordingDate", "GMT offset out of range: %d", offset)
	}
	return []byte{
		byte(year), byte(t.Month()), byte(t.Day()),
		byte(t.Hour()), byte(t.Minute()), byte(t.Second()),
		byte(int8(offset)),
	}, nil
}

// LongDate is the 17-byte volume-descriptor date format: 4-digit year, then
// 2-digit month/day/hour/minute/second/hundredths as ASCII digits, then a
// 1-byte GMT offset in 15-minute units. All-zero digits with a trailing
// space-like filler represent "unspecified" per ECMA-119 8.4.26.1.
type LongDate struct {
	Unspecified bool
	Time        time.Time
	Hundredths  int
}

// DecodeLongDate parses the 17-byte volume-descriptor date field.
func DecodeLongDate(data []byte) (LongDate, error) {
	if len(data) != 17 {
		return LongDate{}, isoerr.Malformedf("encoding.DecodeLongDate", -1, -1, "need 17 bytes, got %d", len(data))
	}
	digits := string(data[0:16])
	if strings.Trim(digits, "0") == "" {
		return LongDate{Unspecified: true}, nil
	}
	var year, month, day, hour, minute, second, hundredths int
	_, err := fmt.Sscanf(digits, "%4d%2d%2d%2d%2d%2d%2d", &year, &month, &day, &hour, &minute, &second, &hundredths)
	if err != nil {
		return LongDate{}, isoerr.Malformedf("encoding.DecodeLongDate", -1, -1, "bad digits %q: %v", digits, err)
	}
	offset := int8(data[16])
	loc := time.FixedZone("", int(offset)*15*60)
	if month < 1 {
		month = 1
	}
	if day < 1 {
		day = 1
	}
	return LongDate{
		Time:       time.Date(year, time.Month(month), day, hour, minute, second, 0, loc),
		Hundredths: hundredths,
	}, nil
}

// EncodeLongDate renders a LongDate back to 17 bytes.
func EncodeLongDate(d LongDate) []byte {
	out := make([]byte, 17)
	if d.Unspecified {
		for i := 0; i < 16; i++ {
			out[i] = '0'
		}
		out[16] = 0
		return out
	}
	t := d.Time
	s := fmt.Sprintf("%04d%02d%02d%02d%02d%02d%02d", t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), d.Hundredths)
	copy(out, s)
	_, offsetSeconds := t.Zone()
	offset := (offsetSeconds / 60) / 15
	out[16] = byte(int8(offset))
	return out
}

// EncodeUCS2BE transcodes a native (UTF-8) string to UCS-2BE, rejecting any
// rune outside the Unicode Basic Multilingual Plane with an invalid-input error —
// Joliet names cannot carry surrogate-pair code points.
func EncodeUCS2BE(s string) ([]byte, error) {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, len(units)*2)
	for _, r := range []rune(s) {
		if r > 0xFFFF {
			return nil, isoerr.InvalidInputf("encoding.EncodeUCS2BE", "non-BMP code point U+%06X not representable in Joliet", r)
		}
	}
	for _, u := range units {
		out = append(out, byte(u>>8), byte(u))
	}
	return out, nil
}

// DecodeUCS2BE transcodes UCS-2BE bytes to a native string.
func DecodeUCS2BE(data []byte) (string, error) {
	if len(data)%2 != 0 {
		return "", isoerr.Malformedf("encoding.DecodeUCS2BE", -1, -1, "odd byte length %d", len(data))
	}
	units := make([]uint16, len(data)/2)
	for i := range units {
		units[i] = binary.BigEndian.Uint16(data[i*2 : i*2+2])
	}
	return string(utf16.Decode(units)), nil
}
