package directory

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-optical/isokit/encoding"
	"github.com/go-optical/isokit/isoerr"
)

// SpecialRoot and SpecialParent are the single-byte identifiers used for the
// "." and ".." directory records.
const (
	SpecialRoot   = "\x00"
	SpecialParent = "\x01"
)

// EncodeISOName renders an ISO9660 file identifier: d-characters plus a
// mandatory ";N" version suffix for files (directories never carry one).
// version 0 defaults to 1; an explicit version outside 1-32767 is rejected.
func EncodeISOName(name string, version int, isDir bool) (string, error) {
	if name == SpecialRoot || name == SpecialParent {
		return name, nil
	}
	upper := strings.ToUpper(name)
	if isDir {
		if err := encoding.ValidateDChars(strings.ReplaceAll(upper, ".", "")); err != nil {
			return "", err
		}
		return upper, nil
	}
	if version == 0 {
		version = 1
	}
	if version < 1 || version > 32767 {
		return "", isoerr.InvalidInputf("directory.EncodeISOName", "version %d out of range [1,32767]", version)
	}
	base := upper
	if idx := strings.LastIndex(upper, ";"); idx >= 0 {
		base = upper[:idx]
	}
	checked := strings.ReplaceAll(base, ".", "")
	if err := encoding.ValidateDChars(checked); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s;%d", base, version), nil
}

// SplitISOVersion separates the base identifier from its ";N" suffix. If no
// suffix is present version is 0 (caller treats absence as ";1" on write).
func SplitISOVersion(identifier string) (base string, version int) {
	idx := strings.LastIndex(identifier, ";")
	if idx < 0 {
		return identifier, 0
	}
	v, err := strconv.Atoi(identifier[idx+1:])
	if err != nil {
		return identifier, 0
	}
	return identifier[:idx], v
}

// PadISOName pads an already-encoded ISO9660/d-character name with spaces to
// equal length for the ISO9660 sort/compare rule.
func PadISOName(name string, length int) string {
	if len(name) >= length {
		return name
	}
	return name + strings.Repeat(" ", length-len(name))
}

// CompareISONames implements the ISO9660 directory sort order: pad to equal
// length with 0x20 and compare byte-wise.
func CompareISONames(a, b string) int {
	l := len(a)
	if len(b) > l {
		l = len(b)
	}
	pa, pb := PadISOName(a, l), PadISOName(b, l)
	return strings.Compare(pa, pb)
}

// EncodeJolietName renders a Joliet file identifier as UCS-2BE with no
// ";N" suffix — names are otherwise passed through as-is (case preserved).
func EncodeJolietName(name string) ([]byte, error) {
	if name == SpecialRoot || name == SpecialParent {
		return []byte(name), nil
	}
	return encoding.EncodeUCS2BE(name)
}

// DecodeJolietName decodes a Joliet file identifier from raw record bytes.
func DecodeJolietName(data []byte) (string, error) {
	if len(data) == 1 {
		switch data[0] {
		case 0x00:
			return SpecialRoot, nil
		case 0x01:
			return SpecialParent, nil
		}
	}
	return encoding.DecodeUCS2BE(data)
}

// CompareJolietNames implements the Joliet sort rule: pad to equal length
// with 0x0000 and compare as big-endian 16-bit units, which for already
// UCS-2BE-decoded Go strings is equivalent to comparing runes directly.
func CompareJolietNames(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	l := len(ra)
	if len(rb) > l {
		l = len(rb)
	}
	for i := 0; i < l; i++ {
		var ca, cb rune
		if i < len(ra) {
			ca = ra[i]
		}
		if i < len(rb) {
			cb = rb[i]
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	return 0
}
