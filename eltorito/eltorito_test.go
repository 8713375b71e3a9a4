package eltorito

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationEntryChecksum(t *testing.T) {
	ve := ValidationEntry{Platform: PlatformBIOS, Identifier: "NASM"}
	buf := MarshalValidationEntry(ve)
	var sum uint16
	for i := 0; i < 32; i += 2 {
		sum += uint16(buf[i]) | uint16(buf[i+1])<<8
	}
	assert.Equal(t, uint16(0), sum)

	decoded, err := UnmarshalValidationEntry(buf)
	require.NoError(t, err)
	assert.Equal(t, PlatformBIOS, decoded.Platform)
	assert.Equal(t, "NASM", decoded.Identifier)
}

func TestValidationEntryRejectsBadKeyBytes(t *testing.T) {
	ve := ValidationEntry{Platform: PlatformBIOS}
	buf := MarshalValidationEntry(ve)
	buf[31] = 0x00
	_, err := UnmarshalValidationEntry(buf)
	require.Error(t, err)
}

func TestInitialEntryRoundTrip(t *testing.T) {
	e := InitialEntry{
		Bootable:    true,
		Emulation:   EmulationNone,
		LoadSegment: 0x07c0,
		SectorCount: 4,
		Extent:      100,
	}
	buf := MarshalInitialEntry(e)
	decoded, err := UnmarshalInitialEntry(buf)
	require.NoError(t, err)
	assert.Equal(t, e, *decoded)
}

func TestCatalogRoundTripWithSection(t *testing.T) {
	cat := Catalog{
		Validation: ValidationEntry{Platform: PlatformBIOS, Identifier: "isokit"},
		Default:    InitialEntry{Bootable: true, Emulation: EmulationNone, SectorCount: 4, Extent: 50},
		Sections: []Section{
			{
				Header: SectionHeader{Platform: PlatformEFI, ID: "UEFI"},
				Entries: []SectionEntry{
					{Bootable: true, Emulation: EmulationNone, SectorCount: 8, Extent: 60},
				},
			},
		},
	}
	block := cat.Marshal()
	require.Len(t, block, 2048)

	var got Catalog
	require.NoError(t, got.Unmarshal(block))
	assert.Equal(t, cat.Validation, got.Validation)
	assert.Equal(t, cat.Default, got.Default)
	require.Len(t, got.Sections, 1)
	assert.True(t, got.Sections[0].Header.Last)
	assert.Equal(t, PlatformEFI, got.Sections[0].Header.Platform)
	require.Len(t, got.Sections[0].Entries, 1)
	assert.Equal(t, uint32(60), got.Sections[0].Entries[0].Extent)
}

func TestCatalogEntriesFlattensPlatforms(t *testing.T) {
	cat := Catalog{
		Validation: ValidationEntry{Platform: PlatformBIOS},
		Default:    InitialEntry{Extent: 10},
		Sections: []Section{
			{Header: SectionHeader{Platform: PlatformEFI}, Entries: []SectionEntry{{Extent: 20}}},
		},
	}
	entries := cat.Entries()
	require.Len(t, entries, 2)
	assert.True(t, entries[0].IsDefault)
	assert.Equal(t, PlatformBIOS, entries[0].Platform)
	assert.Equal(t, PlatformEFI, entries[1].Platform)
}
