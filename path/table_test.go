package path

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootRecordRoundTrip(t *testing.T) {
	r := Record{Extent: 20, ParentDirectoryNumber: 1}
	buf, err := r.Marshal(binary.LittleEndian)
	require.NoError(t, err)
	require.Len(t, buf, 10)
	assert.Equal(t, byte(1), buf[0])

	var got Record
	n, err := got.Unmarshal(buf, binary.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, "", got.Identifier)
	assert.Equal(t, uint32(20), got.Extent)
}

func TestOddLengthIdentifierIsPadded(t *testing.T) {
	r := Record{Identifier: "ABC", Extent: 5, ParentDirectoryNumber: 1}
	buf, err := r.Marshal(binary.LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, 0, len(buf)%2)
	assert.Equal(t, 12, len(buf))
}

func TestJolietIdentifierUsesUCS2BE(t *testing.T) {
	r := Record{Identifier: "docs", Extent: 7, ParentDirectoryNumber: 1, Joliet: true}
	buf, err := r.Marshal(binary.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, byte(8), buf[0])

	var got Record
	got.Joliet = true
	_, err = got.Unmarshal(buf, binary.BigEndian)
	require.NoError(t, err)
	assert.Equal(t, "docs", got.Identifier)
}

func TestTableRoundTripMultipleRecords(t *testing.T) {
	tbl := &Table{Records: []Record{
		{Identifier: "", Extent: 20, ParentDirectoryNumber: 1},
		{Identifier: "BIN", Extent: 21, ParentDirectoryNumber: 1},
		{Identifier: "ETC", Extent: 22, ParentDirectoryNumber: 1},
	}}
	lBytes, err := tbl.MarshalL()
	require.NoError(t, err)

	var got Table
	require.NoError(t, got.Unmarshal(lBytes, binary.LittleEndian, false))
	require.Len(t, got.Records, 3)
	assert.Equal(t, "BIN", got.Records[1].Identifier)
	assert.Equal(t, uint32(22), got.Records[2].Extent)
}

func TestBuildAssignsParentIndices(t *testing.T) {
	entries := []DirEntry{
		{Identifier: "", Extent: 20, Depth: 1, ParentIdx: 0},
		{Identifier: "BIN", Extent: 21, Depth: 2, ParentIdx: 1},
	}
	tbl := Build(entries, false)
	require.Len(t, tbl.Records, 2)
	assert.Equal(t, uint16(1), tbl.Records[1].ParentDirectoryNumber)
}
