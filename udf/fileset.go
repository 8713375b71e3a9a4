package udf

import "github.com/go-optical/isokit/isoerr"

// FileSetDescriptor is the ECMA-167 File Set Descriptor (4.3), the root
// of a File Set, pointing at the root directory's ICB.
type FileSetDescriptor struct {
	Tag                     Tag
	RecordingDate           Timestamp
	FileSetNumber           uint16
	LogicalVolumeIdentifier string
	FileSetIdentifier       string
	DomainIdentifier        EntityID
	RootDirectoryICB        LongAD
}

const fsdBodyLen = 496 // '=12sHHLLLL64s128s64s32s32s32s16s32s16s48s'

func (d FileSetDescriptor) Marshal() ([]byte, error) {
	body := make([]byte, fsdBodyLen)
	rec := d.RecordingDate.Marshal()
	copy(body[0:12], rec[:])
	putUint16LE(body[12:14], 3) // interchange level
	putUint16LE(body[14:16], 3) // max interchange level
	putUint32LE(body[16:20], 1) // char set list
	putUint32LE(body[20:24], 1) // max char set list
	putUint32LE(body[24:28], uint32(d.FileSetNumber))
	putUint32LE(body[28:32], 0) // file set desc number
	cs0 := CharSpecCS0()
	copy(body[32:96], cs0[:])
	volID, err := EncodeCS0Padded(d.LogicalVolumeIdentifier, 128)
	if err != nil {
		return nil, err
	}
	copy(body[96:224], volID)
	cs0b := CharSpecCS0()
	copy(body[224:288], cs0b[:])
	fsID, err := EncodeCS0Padded(d.FileSetIdentifier, 32)
	if err != nil {
		return nil, err
	}
	copy(body[288:320], fsID)
	// copyright_file_ident (320:352) + abstract_file_ident (352:384) left zero.
	icb := d.RootDirectoryICB.Marshal()
	copy(body[384:400], icb[:])
	dom := d.DomainIdentifier.Marshal()
	copy(body[400:432], dom[:])
	// next_extent (432:448) + reserved (448:496) left zero.
	tag := MarshalTag(d.Tag, body)
	return append(tag[:], body...), nil
}

func (d *FileSetDescriptor) Unmarshal(data []byte, extent uint32) error {
	if len(data) < 16+fsdBodyLen {
		return isoerr.Malformedf("udf.FileSetDescriptor.Unmarshal", int64(extent), -1, "need %d bytes, got %d", 16+fsdBodyLen, len(data))
	}
	var tagBytes [16]byte
	copy(tagBytes[:], data[0:16])
	tag, err := UnmarshalTag(tagBytes, extent, data[16:16+fsdBodyLen])
	if err != nil {
		return err
	}
	if tag.Identifier != TagFileSetDescriptor {
		return isoerr.Malformedf("udf.FileSetDescriptor.Unmarshal", int64(extent), 0, "tag identifier %d, want %d", tag.Identifier, TagFileSetDescriptor)
	}
	d.Tag = tag
	body := data[16 : 16+fsdBodyLen]
	if err := d.RecordingDate.Unmarshal(fixed12(body[0:12])); err != nil {
		return err
	}
	d.FileSetNumber = uint16(getUint32LE(body[24:28]))
	volID, err := DecodeCS0Padded(body[96:224])
	if err != nil {
		return err
	}
	d.LogicalVolumeIdentifier = volID
	fsID, err := DecodeCS0Padded(body[288:320])
	if err != nil {
		return err
	}
	d.FileSetIdentifier = fsID
	d.RootDirectoryICB.Unmarshal(fixed16(body[384:400]))
	d.DomainIdentifier.Unmarshal(fixed32(body[400:432]))
	return nil
}
