// Package eltorito implements the El Torito boot catalog (C4 continued):
// the validation entry, the initial/default entry, and any (section
// header, section entry) pairs, each occupying one 32-byte slot of the
// catalog's single extent.
package eltorito

import (
	"encoding/binary"

	"github.com/go-optical/isokit/isoerr"
)

// Platform identifies the target booting system.
type Platform uint8

const (
	PlatformBIOS Platform = 0x00
	PlatformPPC  Platform = 0x01
	PlatformMac  Platform = 0x02
	PlatformEFI  Platform = 0xef
)

// Emulation is the El Torito boot media emulation mode.
type Emulation uint8

const (
	EmulationNone     Emulation = 0x00
	EmulationFloppy12 Emulation = 0x01
	EmulationFloppy144 Emulation = 0x02
	EmulationFloppy288 Emulation = 0x03
	EmulationHardDisk Emulation = 0x04
)

// ValidationEntry is the catalog's mandatory first 32-byte slot.
type ValidationEntry struct {
	Platform   Platform
	Identifier string // 24 bytes, ID of the system providing the extension
}

// MarshalValidationEntry encodes the validation entry with a checksum such
// that the sum of all 16-bit words in the 32-byte slot is zero mod 0x10000.
func MarshalValidationEntry(v ValidationEntry) []byte {
	buf := make([]byte, 32)
	buf[0] = 0x01
	buf[1] = byte(v.Platform)
	copy(buf[4:28], padRight(v.Identifier, 24))
	buf[30] = 0x55
	buf[31] = 0xAA
	var sum uint16
	for i := 0; i < 32; i += 2 {
		sum += binary.LittleEndian.Uint16(buf[i : i+2])
	}
	checksum := uint16(0) - sum
	binary.LittleEndian.PutUint16(buf[28:30], checksum)
	return buf
}

func padRight(s string, n int) []byte {
	out := make([]byte, n)
	copy(out, s)
	return out
}

// UnmarshalValidationEntry decodes and verifies the validation entry.
func UnmarshalValidationEntry(data []byte) (*ValidationEntry, error) {
	if len(data) != 32 {
		return nil, isoerr.Malformedf("eltorito.UnmarshalValidationEntry", -1, -1, "need 32 bytes, got %d", len(data))
	}
	if data[0] != 0x01 {
		return nil, isoerr.Malformedf("eltorito.UnmarshalValidationEntry", -1, -1, "invalid header ID 0x%02x", data[0])
	}
	if data[30] != 0x55 || data[31] != 0xAA {
		return nil, isoerr.Malformedf("eltorito.UnmarshalValidationEntry", -1, -1, "missing 0x55AA key bytes")
	}
	var sum uint16
	for i := 0; i < 32; i += 2 {
		sum += binary.LittleEndian.Uint16(data[i : i+2])
	}
	if sum != 0 {
		return nil, isoerr.Malformedf("eltorito.UnmarshalValidationEntry", -1, -1, "checksum invalid: sum=0x%04x", sum)
	}
	return &ValidationEntry{
		Platform:   Platform(data[1]),
		Identifier: trimNull(string(data[4:28])),
	}, nil
}

func trimNull(s string) string {
	for i, c := range s {
		if c == 0 {
			return s[:i]
		}
	}
	return s
}

// InitialEntry is the catalog's second 32-byte slot, the default/initial
// boot entry.
type InitialEntry struct {
	Bootable    bool
	Emulation   Emulation
	LoadSegment uint16
	SystemType  byte
	SectorCount uint16
	Extent      uint32
}

func MarshalInitialEntry(e InitialEntry) []byte {
	buf := make([]byte, 32)
	if e.Bootable {
		buf[0] = 0x88
	} else {
		buf[0] = 0x00
	}
	buf[1] = byte(e.Emulation)
	binary.LittleEndian.PutUint16(buf[2:4], e.LoadSegment)
	buf[4] = e.SystemType
	binary.LittleEndian.PutUint16(buf[6:8], e.SectorCount)
	binary.LittleEndian.PutUint32(buf[8:12], e.Extent)
	return buf
}

func UnmarshalInitialEntry(data []byte) (*InitialEntry, error) {
	if len(data) != 32 {
		return nil, isoerr.Malformedf("eltorito.UnmarshalInitialEntry", -1, -1, "need 32 bytes, got %d", len(data))
	}
	return &InitialEntry{
		Bootable:    data[0] == 0x88,
		Emulation:   Emulation(data[1]),
		LoadSegment: binary.LittleEndian.Uint16(data[2:4]),
		SystemType:  data[4],
		SectorCount: binary.LittleEndian.Uint16(data[6:8]),
		Extent:      binary.LittleEndian.Uint32(data[8:12]),
	}, nil
}

// SectionHeader introduces a group of SectionEntry slots for a non-default
// platform.
type SectionHeader struct {
	Last     bool
	Platform Platform
	Entries  uint16
	ID       string
}

func MarshalSectionHeader(h SectionHeader) []byte {
	buf := make([]byte, 32)
	if h.Last {
		buf[0] = 0x91
	} else {
		buf[0] = 0x90
	}
	buf[1] = byte(h.Platform)
	binary.LittleEndian.PutUint16(buf[2:4], h.Entries)
	copy(buf[4:32], padRight(h.ID, 28))
	return buf
}

func UnmarshalSectionHeader(data []byte) (*SectionHeader, error) {
	if len(data) != 32 {
		return nil, isoerr.Malformedf("eltorito.UnmarshalSectionHeader", -1, -1, "need 32 bytes, got %d", len(data))
	}
	if data[0] != 0x90 && data[0] != 0x91 {
		return nil, isoerr.Malformedf("eltorito.UnmarshalSectionHeader", -1, -1, "not a section header: 0x%02x", data[0])
	}
	return &SectionHeader{
		Last:     data[0] == 0x91,
		Platform: Platform(data[1]),
		Entries:  binary.LittleEndian.Uint16(data[2:4]),
		ID:       trimNull(string(data[4:32])),
	}, nil
}

// SectionEntry is one boot entry within a non-default platform section.
type SectionEntry struct {
	Bootable    bool
	Emulation   Emulation
	LoadSegment uint16
	SystemType  byte
	SelectionCriteriaType byte
	SectorCount uint16
	Extent      uint32
	VendorData  [20]byte
}

func MarshalSectionEntry(e SectionEntry) []byte {
	buf := make([]byte, 32)
	if e.Bootable {
		buf[0] = 0x88
	}
	buf[1] = byte(e.Emulation)
	binary.LittleEndian.PutUint16(buf[2:4], e.LoadSegment)
	buf[4] = e.SystemType
	binary.LittleEndian.PutUint16(buf[6:8], e.SectorCount)
	binary.LittleEndian.PutUint32(buf[8:12], e.Extent)
	buf[12] = e.SelectionCriteriaType
	copy(buf[13:32], e.VendorData[:19])
	return buf
}

func UnmarshalSectionEntry(data []byte) (*SectionEntry, error) {
	if len(data) != 32 {
		return nil, isoerr.Malformedf("eltorito.UnmarshalSectionEntry", -1, -1, "need 32 bytes, got %d", len(data))
	}
	e := &SectionEntry{
		Bootable:              data[0] == 0x88,
		Emulation:              Emulation(data[1]),
		LoadSegment:            binary.LittleEndian.Uint16(data[2:4]),
		SystemType:             data[4],
		SectorCount:            binary.LittleEndian.Uint16(data[6:8]),
		Extent:                 binary.LittleEndian.Uint32(data[8:12]),
		SelectionCriteriaType:  data[12],
	}
	copy(e.VendorData[:], data[13:32])
	return e, nil
}

// Entry is a resolved, flattened boot entry (initial or section) with its
// owning platform, used by the node model / public API.
type Entry struct {
	Platform    Platform
	Emulation   Emulation
	LoadSegment uint16
	SectorCount uint16
	Extent      uint32
	IsDefault   bool
}

// Catalog is the decoded El Torito boot catalog, occupying exactly one
// extent.
type Catalog struct {
	Validation ValidationEntry
	Default    InitialEntry
	Sections   []Section
}

// Section groups a SectionHeader with its SectionEntry slots.
type Section struct {
	Header  SectionHeader
	Entries []SectionEntry
}

// Marshal renders the catalog into a single 2048-byte block.
func (c *Catalog) Marshal() []byte {
	out := make([]byte, 0, 2048)
	out = append(out, MarshalValidationEntry(c.Validation)...)
	out = append(out, MarshalInitialEntry(c.Default)...)
	for i, sec := range c.Sections {
		hdr := sec.Header
		hdr.Last = i == len(c.Sections)-1
		hdr.Entries = uint16(len(sec.Entries))
		out = append(out, MarshalSectionHeader(hdr)...)
		for _, e := range sec.Entries {
			out = append(out, MarshalSectionEntry(e)...)
		}
	}
	for len(out) < 2048 {
		out = append(out, 0x00)
	}
	return out[:2048]
}

// Unmarshal decodes a catalog from its single 2048-byte extent. Multiple
// platform ids across sections are accepted and preserved verbatim; the
// module does not attempt to merge or validate cross-platform semantics
// beyond the checksum (an explicit Open Question in the spec).
func (c *Catalog) Unmarshal(data []byte) error {
	if len(data) < 64 {
		return isoerr.Malformedf("eltorito.Catalog.Unmarshal", -1, -1, "catalog extent too short: %d", len(data))
	}
	ve, err := UnmarshalValidationEntry(data[0:32])
	if err != nil {
		return err
	}
	c.Validation = *ve
	def, err := UnmarshalInitialEntry(data[32:64])
	if err != nil {
		return err
	}
	c.Default = *def

	offset := 64
	var cur *Section
	for offset+32 <= len(data) {
		slot := data[offset : offset+32]
		if slot[0] == 0x00 {
			break
		}
		if slot[0] == 0x90 || slot[0] == 0x91 {
			hdr, err := UnmarshalSectionHeader(slot)
			if err != nil {
				return err
			}
			c.Sections = append(c.Sections, Section{Header: *hdr})
			cur = &c.Sections[len(c.Sections)-1]
			offset += 32
			continue
		}
		if cur == nil {
			offset += 32
			continue
		}
		se, err := UnmarshalSectionEntry(slot)
		if err != nil {
			return err
		}
		cur.Entries = append(cur.Entries, *se)
		offset += 32
	}
	return nil
}

// Entries flattens the catalog into a platform-tagged entry list.
func (c *Catalog) Entries() []Entry {
	out := []Entry{{
		Platform:    c.Validation.Platform,
		Emulation:   c.Default.Emulation,
		LoadSegment: c.Default.LoadSegment,
		SectorCount: c.Default.SectorCount,
		Extent:      c.Default.Extent,
		IsDefault:   true,
	}}
	for _, sec := range c.Sections {
		for _, e := range sec.Entries {
			out = append(out, Entry{
				Platform:    sec.Header.Platform,
				Emulation:   e.Emulation,
				LoadSegment: e.LoadSegment,
				SectorCount: e.SectorCount,
				Extent:      e.Extent,
			})
		}
	}
	return out
}
