package encoding_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-optical/isokit/encoding"
)

func TestUint32LSBMSBRoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	encoding.PutUint32LSBMSB(buf, 0xdeadbeef)
	got, err := encoding.UnmarshalUint32LSBMSB(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), got)
}

func TestUint32LSBMSBMismatch(t *testing.T) {
	buf := make([]byte, 8)
	encoding.PutUint32LSBMSB(buf, 1)
	buf[7] ^= 0xFF
	_, err := encoding.UnmarshalUint32LSBMSB(buf)
	require.Error(t, err)
}

func TestUint16LSBMSBRoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	encoding.PutUint16LSBMSB(buf, 0x1234)
	got, err := encoding.UnmarshalUint16LSBMSB(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), got)
}

func TestRecordingDateUnspecifiedRoundTrip(t *testing.T) {
	encoded, err := encoding.EncodeRecordingDate(encoding.RecordingDate{Unspecified: true})
	require.NoError(t, err)
	decoded, err := encoding.DecodeRecordingDate(encoded)
	require.NoError(t, err)
	assert.True(t, decoded.Unspecified)
}

func TestRecordingDateRoundTrip(t *testing.T) {
	loc := time.FixedZone("", 3600)
	want := time.Date(2024, 5, 6, 7, 8, 9, 0, loc)
	encoded, err := encoding.EncodeRecordingDate(encoding.RecordingDate{Time: want})
	require.NoError(t, err)
	require.Len(t, encoded, 7)
	decoded, err := encoding.DecodeRecordingDate(encoded)
	require.NoError(t, err)
	assert.False(t, decoded.Unspecified)
	assert.True(t, want.Equal(decoded.Time))
}

func TestLongDateUnspecifiedRoundTrip(t *testing.T) {
	encoded := encoding.EncodeLongDate(encoding.LongDate{Unspecified: true})
	decoded, err := encoding.DecodeLongDate(encoded)
	require.NoError(t, err)
	assert.True(t, decoded.Unspecified)
}

func TestValidateDChars(t *testing.T) {
	require.NoError(t, encoding.ValidateDChars("FOO_BAR123"))
	require.Error(t, encoding.ValidateDChars("foo.bar"))
}

func TestUCS2BERoundTrip(t *testing.T) {
	encoded, err := encoding.EncodeUCS2BE("héllo")
	require.NoError(t, err)
	decoded, err := encoding.DecodeUCS2BE(encoded)
	require.NoError(t, err)
	assert.Equal(t, "héllo", decoded)
}

func TestUCS2BERejectsNonBMP(t *testing.T) {
	_, err := encoding.EncodeUCS2BE("\U0001F600")
	require.Error(t, err)
}

func TestMarshalDCharsPadsAndUppercases(t *testing.T) {
	out, err := encoding.MarshalDChars("abc", 8)
	require.NoError(t, err)
	assert.Equal(t, "ABC     ", string(out))
}
