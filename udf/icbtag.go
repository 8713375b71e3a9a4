package udf

import "github.com/go-optical/isokit/isoerr"

// ICBTag file types (ECMA-167 14.6.6), restricted to the subset this
// module emits.
const (
	ICBFileTypeDirectory uint8 = 4
	ICBFileTypeFile      uint8 = 5
	ICBFileTypeSymlink   uint8 = 12
)

// ICBTag is the ECMA-167 ICB Tag (14.6), the first 20 bytes of every
// File Entry / Extended File Entry.
type ICBTag struct {
	PriorRecordedNumDirectEntries uint32
	StrategyType                 uint16
	StrategyParameter             uint16
	MaxNumEntries                 uint16
	FileType                      uint8
	ParentICBLogicalBlockNum      uint32
	ParentICBPartRefNum           uint16
	Flags                         uint16
}

func (t ICBTag) Marshal() [20]byte {
	var out [20]byte
	putUint32LE(out[0:4], t.PriorRecordedNumDirectEntries)
	putUint16LE(out[4:6], t.StrategyType)
	putUint16LE(out[6:8], t.StrategyParameter)
	putUint16LE(out[8:10], t.MaxNumEntries)
	out[10] = 0 // reserved
	out[11] = t.FileType
	putUint32LE(out[12:16], t.ParentICBLogicalBlockNum)
	putUint16LE(out[16:18], t.ParentICBPartRefNum)
	putUint16LE(out[18:20], t.Flags)
	return out
}

func (t *ICBTag) Unmarshal(data [20]byte) error {
	t.PriorRecordedNumDirectEntries = getUint32LE(data[0:4])
	t.StrategyType = getUint16LE(data[4:6])
	t.StrategyParameter = getUint16LE(data[6:8])
	t.MaxNumEntries = getUint16LE(data[8:10])
	if data[10] != 0 {
		return isoerr.Malformedf("udf.ICBTag.Unmarshal", -1, 10, "reserved byte not 0")
	}
	t.FileType = data[11]
	t.ParentICBLogicalBlockNum = getUint32LE(data[12:16])
	t.ParentICBPartRefNum = getUint16LE(data[16:18])
	t.Flags = getUint16LE(data[18:20])
	if t.StrategyType != 4 && t.StrategyType != 4096 {
		return isoerr.Malformedf("udf.ICBTag.Unmarshal", -1, 4, "unsupported strategy type %d", t.StrategyType)
	}
	return nil
}

// NewICBTag builds an ICBTag for the given node kind with this module's
// fixed strategy-4, single-entry, non-relocatable layout (flags 0x230:
// short_ad allocation descriptors, archive, non-relocatable, contiguous).
func NewICBTag(fileType uint8) ICBTag {
	return ICBTag{
		StrategyType:  4,
		MaxNumEntries: 1,
		FileType:      fileType,
		Flags:         0x230,
	}
}
