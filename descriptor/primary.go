package descriptor

import (
	"encoding/binary"

	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/directory"
	"github.com/go-optical/isokit/encoding"
	"github.com/go-optical/isokit/isoerr"
)

// PrimaryVolumeDescriptor is the ECMA-119 PVD (9.2).
type PrimaryVolumeDescriptor struct {
	VolumeFlags                      byte
	SystemIdentifier                 string
	VolumeIdentifier                 string
	VolumeSpaceSize                  uint32
	VolumeSetSize                    uint16
	VolumeSequenceNumber             uint16
	LogicalBlockSize                 uint16
	PathTableSize                    uint32
	LPathTableLocation               uint32
	LOptionalPathTableLocation       uint32
	MPathTableLocation               uint32
	MOptionalPathTableLocation       uint32
	RootDirectoryRecord              *directory.Record
	VolumeSetIdentifier               string
	PublisherIdentifier               string
	DataPreparerIdentifier            string
	ApplicationIdentifier             string
	CopyrightFileIdentifier           string
	AbstractFileIdentifier            string
	BibliographicFileIdentifier       string
	VolumeCreationDateAndTime         encoding.LongDate
	VolumeModificationDateAndTime     encoding.LongDate
	VolumeExpirationDateAndTime       encoding.LongDate
	VolumeEffectiveDateAndTime        encoding.LongDate
	FileStructureVersion              uint8
	ApplicationUse                    [consts.ApplicationUseSize]byte
}

// Marshal renders the PVD into exactly one 2048-byte block.
func (d *PrimaryVolumeDescriptor) Marshal() ([consts.BlockSize]byte, error) {
	var out [consts.BlockSize]byte
	hdr := Header{Type: TypePrimary, Identifier: consts.StdIdentifier, Version: consts.VolumeDescVersion}
	copy(out[0:7], hdr.Marshal())
	out[7] = 0x00

	sysID, err := encoding.MarshalAChars(d.SystemIdentifier, 32)
	if err != nil {
		return out, err
	}
	copy(out[8:40], sysID)
	volID, err := encoding.MarshalDChars(d.VolumeIdentifier, 32)
	if err != nil {
		return out, err
	}
	copy(out[40:72], volID)

	encoding.PutUint32LSBMSB(out[80:88], d.VolumeSpaceSize)
	encoding.PutUint16LSBMSB(out[120:124], d.VolumeSetSize)
	encoding.PutUint16LSBMSB(out[124:128], d.VolumeSequenceNumber)
	encoding.PutUint16LSBMSB(out[128:132], d.LogicalBlockSize)
	encoding.PutUint32LSBMSB(out[132:140], d.PathTableSize)
	binary.LittleEndian.PutUint32(out[140:144], d.LPathTableLocation)
	binary.LittleEndian.PutUint32(out[144:148], d.LOptionalPathTableLocation)
	binary.BigEndian.PutUint32(out[148:152], d.MPathTableLocation)
	binary.BigEndian.PutUint32(out[152:156], d.MOptionalPathTableLocation)

	if d.RootDirectoryRecord == nil {
		return out, isoerr.InvalidInputf("descriptor.PrimaryVolumeDescriptor.Marshal", "root directory record is nil")
	}
	rootBytes, err := d.RootDirectoryRecord.Marshal()
	if err != nil {
		return out, err
	}
	if len(rootBytes) > 34 {
		rootBytes = rootBytes[:34]
	}
	copy(out[156:190], rootBytes)

	setID, err := encoding.MarshalDChars(d.VolumeSetIdentifier, 128)
	if err != nil {
		return out, err
	}
	copy(out[190:318], setID)
	pubID, err := encoding.MarshalAChars(d.PublisherIdentifier, 128)
	if err != nil {
		return out, err
	}
	copy(out[318:446], pubID)
	prepID, err := encoding.MarshalAChars(d.DataPreparerIdentifier, 128)
	if err != nil {
		return out, err
	}
	copy(out[446:574], prepID)
	appID, err := encoding.MarshalAChars(d.ApplicationIdentifier, 128)
	if err != nil {
		return out, err
	}
	copy(out[574:702], appID)
	copy(out[702:739], padDChars(d.CopyrightFileIdentifier, 37))
	copy(out[739:776], padDChars(d.AbstractFileIdentifier, 37))
	copy(out[776:813], padDChars(d.BibliographicFileIdentifier, 37))
	copy(out[813:830], encoding.EncodeLongDate(d.VolumeCreationDateAndTime))
	copy(out[830:847], encoding.EncodeLongDate(d.VolumeModificationDateAndTime))
	copy(out[847:864], encoding.EncodeLongDate(d.VolumeExpirationDateAndTime))
	copy(out[864:881], encoding.EncodeLongDate(d.VolumeEffectiveDateAndTime))
	out[881] = d.FileStructureVersion
	copy(out[883:1395], d.ApplicationUse[:])
	return out, nil
}

func padDChars(s string, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = ' '
	}
	copy(out, s)
	return out
}

// Unmarshal decodes a PVD from a 2048-byte block.
func (d *PrimaryVolumeDescriptor) Unmarshal(data [consts.BlockSize]byte) error {
	hdr, err := UnmarshalHeader(data[0:7])
	if err != nil {
		return err
	}
	if hdr.Type != TypePrimary {
		return isoerr.Malformedf("descriptor.PrimaryVolumeDescriptor.Unmarshal", consts.SystemAreaBlocks, 0, "wrong descriptor type %d, expected Primary", hdr.Type)
	}
	if hdr.Identifier != consts.StdIdentifier {
		return isoerr.Malformedf("descriptor.PrimaryVolumeDescriptor.Unmarshal", consts.SystemAreaBlocks, 1, "bad standard identifier %q", hdr.Identifier)
	}
	d.SystemIdentifier = trimSpace(string(data[8:40]))
	d.VolumeIdentifier = trimSpace(string(data[40:72]))
	d.VolumeSpaceSize, err = encoding.UnmarshalUint32LSBMSB(data[80:88])
	if err != nil {
		return err
	}
	d.VolumeSetSize, err = encoding.UnmarshalUint16LSBMSB(data[120:124])
	if err != nil {
		return err
	}
	d.VolumeSequenceNumber, err = encoding.UnmarshalUint16LSBMSB(data[124:128])
	if err != nil {
		return err
	}
	d.LogicalBlockSize, err = encoding.UnmarshalUint16LSBMSB(data[128:132])
	if err != nil {
		return err
	}
	d.PathTableSize, err = encoding.UnmarshalUint32LSBMSB(data[132:140])
	if err != nil {
		return err
	}
	d.LPathTableLocation = binary.LittleEndian.Uint32(data[140:144])
	d.LOptionalPathTableLocation = binary.LittleEndian.Uint32(data[144:148])
	d.MPathTableLocation = binary.BigEndian.Uint32(data[148:152])
	d.MOptionalPathTableLocation = binary.BigEndian.Uint32(data[152:156])

	root := &directory.Record{}
	rootData := append(append([]byte{}, data[156:190]...), make([]byte, 0)...)
	if err := root.Unmarshal(rootData); err != nil {
		return err
	}
	d.RootDirectoryRecord = root

	d.VolumeSetIdentifier = trimSpace(string(data[190:318]))
	d.PublisherIdentifier = trimSpace(string(data[318:446]))
	d.DataPreparerIdentifier = trimSpace(string(data[446:574]))
	d.ApplicationIdentifier = trimSpace(string(data[574:702]))
	d.CopyrightFileIdentifier = trimSpace(string(data[702:739]))
	d.AbstractFileIdentifier = trimSpace(string(data[739:776]))
	d.BibliographicFileIdentifier = trimSpace(string(data[776:813]))
	if d.VolumeCreationDateAndTime, err = encoding.DecodeLongDate(data[813:830]); err != nil {
		return err
	}
	if d.VolumeModificationDateAndTime, err = encoding.DecodeLongDate(data[830:847]); err != nil {
		return err
	}
	if d.VolumeExpirationDateAndTime, err = encoding.DecodeLongDate(data[847:864]); err != nil {
		return err
	}
	if d.VolumeEffectiveDateAndTime, err = encoding.DecodeLongDate(data[864:881]); err != nil {
		return err
	}
	d.FileStructureVersion = data[881]
	copy(d.ApplicationUse[:], data[883:1395])
	return nil
}

func trimSpace(s string) string {
	end := len(s)
	for end > 0 && s[end-1] == ' ' {
		end--
	}
	return s[:end]
}
