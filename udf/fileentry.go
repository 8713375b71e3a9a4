package udf

import "github.com/go-optical/isokit/isoerr"

// FileEntry is the ECMA-167 File Entry (4.6), describing one inode's
// metadata, extended attributes, and extent allocation list. This module
// always uses short_ad allocation descriptors since every File Entry's
// extents live within the single partition this profile defines.
type FileEntry struct {
	Tag                Tag
	ICBTag             ICBTag
	UID                uint32
	GID                uint32
	Permissions        uint32
	FileLinkCount      uint16
	InfoLength         uint64
	LogicalBlocksRecorded uint64
	AccessTime         Timestamp
	ModificationTime   Timestamp
	AttributeTime      Timestamp
	ExtendedAttrICB    LongAD
	ImplementationID   EntityID
	UniqueID           uint64
	ExtendedAttrs      []byte
	AllocDescs         []ShortAD
}

const fileEntryFixedLen = 160 // 20+4+4+4+2+1+1+4+8+8+12+12+12+4+16+32+8+4+4

// Marshal renders the File Entry into its descriptor block.
func (f FileEntry) Marshal() []byte {
	fixed := make([]byte, fileEntryFixedLen)
	icb := f.ICBTag.Marshal()
	copy(fixed[0:20], icb[:])
	putUint32LE(fixed[20:24], f.UID)
	putUint32LE(fixed[24:28], f.GID)
	putUint32LE(fixed[28:32], f.Permissions)
	putUint16LE(fixed[32:34], f.FileLinkCount)
	fixed[34] = 0 // record format
	fixed[35] = 0 // record display attributes
	putUint32LE(fixed[36:40], 0) // record length
	putUint64LE(fixed[40:48], f.InfoLength)
	putUint64LE(fixed[48:56], f.LogicalBlocksRecorded)
	at := f.AccessTime.Marshal()
	copy(fixed[56:68], at[:])
	mt := f.ModificationTime.Marshal()
	copy(fixed[68:80], mt[:])
	att := f.AttributeTime.Marshal()
	copy(fixed[80:92], att[:])
	putUint32LE(fixed[92:96], 1) // checkpoint
	eaicb := f.ExtendedAttrICB.Marshal()
	copy(fixed[96:112], eaicb[:])
	impl := f.ImplementationID.Marshal()
	copy(fixed[112:144], impl[:])
	putUint64LE(fixed[144:152], f.UniqueID)
	putUint32LE(fixed[152:156], uint32(len(f.ExtendedAttrs)))
	putUint32LE(fixed[156:160], uint32(len(f.AllocDescs)*8))

	body := append(fixed[:160], f.ExtendedAttrs...)
	for _, ad := range f.AllocDescs {
		b := ad.Marshal()
		body = append(body, b[:]...)
	}
	tag := MarshalTag(f.Tag, body)
	return append(tag[:], body...)
}

// Unmarshal decodes a File Entry from its descriptor block.
func (f *FileEntry) Unmarshal(data []byte, extent uint32) error {
	if len(data) < 16+160 {
		return isoerr.Malformedf("udf.FileEntry.Unmarshal", int64(extent), -1, "need at least %d bytes, got %d", 16+160, len(data))
	}
	var tagBytes [16]byte
	copy(tagBytes[:], data[0:16])
	body := data[16:]
	tag, err := UnmarshalTag(tagBytes, extent, body)
	if err != nil {
		return err
	}
	if tag.Identifier != TagFileEntry && tag.Identifier != TagExtendedFileEntry {
		return isoerr.Malformedf("udf.FileEntry.Unmarshal", int64(extent), 0, "tag identifier %d is not a File Entry", tag.Identifier)
	}
	f.Tag = tag
	if err := f.ICBTag.Unmarshal(fixed20(body[0:20])); err != nil {
		return err
	}
	f.UID = getUint32LE(body[20:24])
	f.GID = getUint32LE(body[24:28])
	f.Permissions = getUint32LE(body[28:32])
	f.FileLinkCount = getUint16LE(body[32:34])
	f.InfoLength = getUint64LE(body[40:48])
	f.LogicalBlocksRecorded = getUint64LE(body[48:56])
	if err := f.AccessTime.Unmarshal(fixed12(body[56:68])); err != nil {
		return err
	}
	if err := f.ModificationTime.Unmarshal(fixed12(body[68:80])); err != nil {
		return err
	}
	if err := f.AttributeTime.Unmarshal(fixed12(body[80:92])); err != nil {
		return err
	}
	f.ExtendedAttrICB.Unmarshal(fixed16(body[96:112]))
	f.ImplementationID.Unmarshal(fixed32(body[112:144]))
	f.UniqueID = getUint64LE(body[144:152])
	lenEA := getUint32LE(body[152:156])
	lenAD := getUint32LE(body[156:160])

	offset := 160
	if int(lenEA) > 0 {
		end := offset + int(lenEA)
		if end > len(body) {
			return isoerr.Malformedf("udf.FileEntry.Unmarshal", int64(extent), int64(offset), "extended attrs overrun body")
		}
		f.ExtendedAttrs = append([]byte{}, body[offset:end]...)
		offset = end
	}
	numAD := int(lenAD) / 8
	for i := 0; i < numAD; i++ {
		if offset+8 > len(body) {
			return isoerr.Malformedf("udf.FileEntry.Unmarshal", int64(extent), int64(offset), "allocation descriptor overruns body")
		}
		var ad ShortAD
		ad.Unmarshal(fixed8(body[offset : offset+8]))
		f.AllocDescs = append(f.AllocDescs, ad)
		offset += 8
	}
	return nil
}

func fixed20(b []byte) [20]byte {
	var out [20]byte
	copy(out[:], b)
	return out
}
