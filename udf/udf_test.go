package udf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagRoundTrip(t *testing.T) {
	body := []byte("hello udf descriptor body contents")
	tag := Tag{Identifier: TagFileSetDescriptor, DescVersion: 2, TagLocation: 257}
	raw := MarshalTag(tag, body)

	got, err := UnmarshalTag(raw, 257, body)
	require.NoError(t, err)
	assert.Equal(t, tag.Identifier, got.Identifier)
	assert.Equal(t, tag.TagLocation, got.TagLocation)
}

func TestTagRejectsCorruptChecksum(t *testing.T) {
	body := []byte("x")
	tag := Tag{Identifier: TagPrimaryVolumeDescriptor, DescVersion: 2}
	raw := MarshalTag(tag, body)
	raw[0] ^= 0xFF
	_, err := UnmarshalTag(raw, 0, body)
	require.Error(t, err)
}

func TestTimestampRoundTrip(t *testing.T) {
	ts := Timestamp{TZ: -420, TimeType: 1, Year: 2026, Month: 8, Day: 3, Hour: 12, Minute: 30, Second: 5}
	raw := ts.Marshal()
	var got Timestamp
	require.NoError(t, got.Unmarshal(raw))
	assert.Equal(t, ts.TZ, got.TZ)
	assert.Equal(t, ts.Year, got.Year)
	assert.Equal(t, ts.Hour, got.Hour)
}

func TestEntityIDRoundTrip(t *testing.T) {
	e, err := NewEntityID(0, "*go-optical")
	require.NoError(t, err)
	raw := e.Marshal()
	var got EntityID
	got.Unmarshal(raw)
	assert.Equal(t, "*go-optical", got.Identifier)
}

func TestCS0RoundTripASCII(t *testing.T) {
	enc, err := EncodeCS0("CDROM")
	require.NoError(t, err)
	assert.Equal(t, byte(0x08), enc[0])
	dec, err := DecodeCS0(enc)
	require.NoError(t, err)
	assert.Equal(t, "CDROM", dec)
}

func TestCS0RoundTripNonLatin1(t *testing.T) {
	enc, err := EncodeCS0("日本語")
	require.NoError(t, err)
	assert.Equal(t, byte(0x10), enc[0])
	dec, err := DecodeCS0(enc)
	require.NoError(t, err)
	assert.Equal(t, "日本語", dec)
}

func TestCS0PaddedRoundTrip(t *testing.T) {
	padded, err := EncodeCS0Padded("CDROM", 32)
	require.NoError(t, err)
	require.Len(t, padded, 32)
	dec, err := DecodeCS0Padded(padded)
	require.NoError(t, err)
	assert.Equal(t, "CDROM", dec)
}

func TestAnchorVolumeDescriptorPointerRoundTrip(t *testing.T) {
	avdp := AnchorVolumeDescriptorPointer{
		Tag:                    Tag{Identifier: TagAnchorVolumeDescriptorPointer, DescVersion: 2, TagLocation: 256},
		MainVDSExtentLength:    32768,
		MainVDSExtent:          32,
		ReserveVDSExtentLength: 32768,
		ReserveVDSExtent:       48,
	}
	raw := avdp.Marshal()
	got, err := UnmarshalAnchorVolumeDescriptorPointer(raw, 256)
	require.NoError(t, err)
	assert.Equal(t, avdp.MainVDSExtent, got.MainVDSExtent)
	assert.Equal(t, avdp.ReserveVDSExtent, got.ReserveVDSExtent)
}

func TestPrimaryVolumeDescriptorRoundTrip(t *testing.T) {
	appID, err := NewEntityID(0, "")
	require.NoError(t, err)
	implID, err := NewEntityID(0, "*go-optical/isokit")
	require.NoError(t, err)
	pvd := PrimaryVolumeDescriptor{
		Tag:                   Tag{Identifier: TagPrimaryVolumeDescriptor, DescVersion: 2, TagLocation: 32},
		VolumeDescSeqNum:      0,
		VolumeIdentifier:      "CDROM",
		MaxInterchangeLevel:   2,
		ApplicationIdentifier: appID,
		RecordingDate:         Timestamp{Year: 2026, Month: 8, Day: 3, Hour: 1, Minute: 2, Second: 3},
		ImplementationID:      implID,
	}
	raw, err := pvd.Marshal()
	require.NoError(t, err)

	var got PrimaryVolumeDescriptor
	require.NoError(t, got.Unmarshal(raw, 32))
	assert.Equal(t, "CDROM", got.VolumeIdentifier)
	assert.Equal(t, "*go-optical/isokit", got.ImplementationID.Identifier)
}

func TestFileIdentifierDescriptorRoundTrip(t *testing.T) {
	fid := FileIdentifierDescriptor{
		Tag:                 Tag{Identifier: TagFileIdentifierDescriptor, DescVersion: 2, TagLocation: 100},
		FileCharacteristics: FileCharacteristicDirectory,
		ICB:                 LongAD{ExtentLength: 2048, LogicalBlockNumber: 40},
		FileIdentifier:      "docs",
	}
	raw, err := fid.Marshal()
	require.NoError(t, err)
	assert.Equal(t, 0, len(raw)%4)

	var got FileIdentifierDescriptor
	n, err := got.Unmarshal(raw, 100)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Equal(t, "docs", got.FileIdentifier)
	assert.True(t, got.IsDirectory())
}

func TestFileEntryRoundTripWithAllocDescs(t *testing.T) {
	implID, err := NewEntityID(0, "*go-optical/isokit")
	require.NoError(t, err)
	ts := Timestamp{Year: 2026, Month: 8, Day: 3, Hour: 1, Minute: 2, Second: 3}
	fe := FileEntry{
		Tag:              Tag{Identifier: TagFileEntry, DescVersion: 2, TagLocation: 50},
		ICBTag:           NewICBTag(ICBFileTypeFile),
		UID:              0xFFFFFFFF,
		GID:              0xFFFFFFFF,
		Permissions:      0644,
		FileLinkCount:    1,
		InfoLength:       4096,
		AccessTime:       ts,
		ModificationTime: ts,
		AttributeTime:    ts,
		ImplementationID: implID,
		AllocDescs:       []ShortAD{{ExtentLength: 4096, ExtentPosition: 60}},
	}
	raw := fe.Marshal()

	var got FileEntry
	require.NoError(t, got.Unmarshal(raw, 50))
	assert.Equal(t, fe.InfoLength, got.InfoLength)
	require.Len(t, got.AllocDescs, 1)
	assert.Equal(t, uint32(60), got.AllocDescs[0].ExtentPosition)
}
