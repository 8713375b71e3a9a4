package descriptor

import (
	"encoding/binary"

	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/directory"
	"github.com/go-optical/isokit/encoding"
	"github.com/go-optical/isokit/isoerr"
)

// SupplementaryVolumeDescriptor is the ECMA-119 SVD (9.3), used here to
// carry the Joliet hierarchy. VolumeFlags bit 0 set means some of the
// d/a-character fields may contain non-conforming characters (unused by
// this module; Joliet names bypass the a/d-character restriction anyway).
type SupplementaryVolumeDescriptor struct {
	VolumeFlags                  byte
	SystemIdentifier             string
	VolumeIdentifier             string
	EscapeSequences              [32]byte
	VolumeSpaceSize              uint32
	VolumeSetSize                uint16
	VolumeSequenceNumber         uint16
	LogicalBlockSize             uint16
	PathTableSize                uint32
	LPathTableLocation           uint32
	LOptionalPathTableLocation   uint32
	MPathTableLocation           uint32
	MOptionalPathTableLocation   uint32
	RootDirectoryRecord          *directory.Record
	VolumeSetIdentifier          string
	PublisherIdentifier          string
	DataPreparerIdentifier       string
	ApplicationIdentifier        string
	CopyrightFileIdentifier      string
	AbstractFileIdentifier       string
	BibliographicFileIdentifier  string
	VolumeCreationDateAndTime    encoding.LongDate
	VolumeModificationDateAndTime encoding.LongDate
	VolumeExpirationDateAndTime  encoding.LongDate
	VolumeEffectiveDateAndTime   encoding.LongDate
	FileStructureVersion         uint8
	ApplicationUse               [consts.ApplicationUseSize]byte
}

// JolietLevel returns 1, 2, or 3 if the escape sequence names a Joliet
// UCS-2 level, or 0 if this SVD is not a Joliet descriptor (e.g. a plain
// ISO9660:1999 Enhanced VD using FileStructureVersion 2 instead).
func (d *SupplementaryVolumeDescriptor) JolietLevel() int {
	switch string(d.EscapeSequences[0:3]) {
	case consts.JolietLevel1Escape:
		return 1
	case consts.JolietLevel2Escape:
		return 2
	case consts.JolietLevel3Escape:
		return 3
	default:
		return 0
	}
}

// SetJolietLevel installs the escape sequence bytes for the given level.
func (d *SupplementaryVolumeDescriptor) SetJolietLevel(level int) {
	for i := range d.EscapeSequences {
		d.EscapeSequences[i] = 0
	}
	var esc string
	switch level {
	case 1:
		esc = consts.JolietLevel1Escape
	case 2:
		esc = consts.JolietLevel2Escape
	default:
		esc = consts.JolietLevel3Escape
	}
	copy(d.EscapeSequences[:], esc)
}

func (d *SupplementaryVolumeDescriptor) Marshal() ([consts.BlockSize]byte, error) {
	var out [consts.BlockSize]byte
	hdr := Header{Type: TypeSupplementary, Identifier: consts.StdIdentifier, Version: consts.VolumeDescVersion}
	copy(out[0:7], hdr.Marshal())
	out[7] = d.VolumeFlags

	sysID, err := encoding.MarshalAChars(d.SystemIdentifier, 32)
	if err != nil {
		return out, err
	}
	copy(out[8:40], sysID)
	// Joliet volume identifier is UCS-2BE per the a/d-character waiver
	// granted by the SVD's escape sequence; encode it directly.
	volID, err := encoding.EncodeUCS2BE(d.VolumeIdentifier)
	if err != nil {
		return out, err
	}
	copy(out[40:72], padBytes(volID, 32))

	encoding.PutUint32LSBMSB(out[80:88], d.VolumeSpaceSize)
	copy(out[88:120], d.EscapeSequences[:])
	encoding.PutUint16LSBMSB(out[120:124], d.VolumeSetSize)
	encoding.PutUint16LSBMSB(out[124:128], d.VolumeSequenceNumber)
	encoding.PutUint16LSBMSB(out[128:132], d.LogicalBlockSize)
	encoding.PutUint32LSBMSB(out[132:140], d.PathTableSize)
	binary.LittleEndian.PutUint32(out[140:144], d.LPathTableLocation)
	binary.LittleEndian.PutUint32(out[144:148], d.LOptionalPathTableLocation)
	binary.BigEndian.PutUint32(out[148:152], d.MPathTableLocation)
	binary.BigEndian.PutUint32(out[152:156], d.MOptionalPathTableLocation)

	if d.RootDirectoryRecord == nil {
		return out, isoerr.InvalidInputf("descriptor.SupplementaryVolumeDescriptor.Marshal", "root directory record is nil")
	}
	d.RootDirectoryRecord.Joliet = true
	rootBytes, err := d.RootDirectoryRecord.Marshal()
	if err != nil {
		return out, err
	}
	if len(rootBytes) > 34 {
		rootBytes = rootBytes[:34]
	}
	copy(out[156:190], rootBytes)

	setID, _ := encoding.EncodeUCS2BE(d.VolumeSetIdentifier)
	copy(out[190:318], padBytes(setID, 128))
	pubID, _ := encoding.EncodeUCS2BE(d.PublisherIdentifier)
	copy(out[318:446], padBytes(pubID, 128))
	prepID, _ := encoding.EncodeUCS2BE(d.DataPreparerIdentifier)
	copy(out[446:574], padBytes(prepID, 128))
	appID, _ := encoding.EncodeUCS2BE(d.ApplicationIdentifier)
	copy(out[574:702], padBytes(appID, 128))
	cpID, _ := encoding.EncodeUCS2BE(d.CopyrightFileIdentifier)
	copy(out[702:739], padBytes(cpID, 37))
	abID, _ := encoding.EncodeUCS2BE(d.AbstractFileIdentifier)
	copy(out[739:776], padBytes(abID, 37))
	biID, _ := encoding.EncodeUCS2BE(d.BibliographicFileIdentifier)
	copy(out[776:813], padBytes(biID, 37))

	copy(out[813:830], encoding.EncodeLongDate(d.VolumeCreationDateAndTime))
	copy(out[830:847], encoding.EncodeLongDate(d.VolumeModificationDateAndTime))
	copy(out[847:864], encoding.EncodeLongDate(d.VolumeExpirationDateAndTime))
	copy(out[864:881], encoding.EncodeLongDate(d.VolumeEffectiveDateAndTime))
	out[881] = d.FileStructureVersion
	copy(out[883:1395], d.ApplicationUse[:])
	return out, nil
}

func padBytes(b []byte, n int) []byte {
	if len(b) >= n {
		return b[:n]
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (d *SupplementaryVolumeDescriptor) Unmarshal(data [consts.BlockSize]byte) error {
	hdr, err := UnmarshalHeader(data[0:7])
	if err != nil {
		return err
	}
	if hdr.Type != TypeSupplementary {
		return isoerr.Malformedf("descriptor.SupplementaryVolumeDescriptor.Unmarshal", -1, -1, "wrong descriptor type %d", hdr.Type)
	}
	d.VolumeFlags = data[7]
	d.SystemIdentifier = trimSpace(string(data[8:40]))
	copy(d.EscapeSequences[:], data[88:120])

	isJoliet := d.JolietLevel() > 0
	if isJoliet {
		volID, _ := encoding.DecodeUCS2BE(data[40:72])
		d.VolumeIdentifier = trimRight0(volID)
	} else {
		d.VolumeIdentifier = trimSpace(string(data[40:72]))
	}

	if d.VolumeSpaceSize, err = encoding.UnmarshalUint32LSBMSB(data[80:88]); err != nil {
		return err
	}
	if d.VolumeSetSize, err = encoding.UnmarshalUint16LSBMSB(data[120:124]); err != nil {
		return err
	}
	if d.VolumeSequenceNumber, err = encoding.UnmarshalUint16LSBMSB(data[124:128]); err != nil {
		return err
	}
	if d.LogicalBlockSize, err = encoding.UnmarshalUint16LSBMSB(data[128:132]); err != nil {
		return err
	}
	if d.PathTableSize, err = encoding.UnmarshalUint32LSBMSB(data[132:140]); err != nil {
		return err
	}
	d.LPathTableLocation = binary.LittleEndian.Uint32(data[140:144])
	d.LOptionalPathTableLocation = binary.LittleEndian.Uint32(data[144:148])
	d.MPathTableLocation = binary.BigEndian.Uint32(data[148:152])
	d.MOptionalPathTableLocation = binary.BigEndian.Uint32(data[152:156])

	root := &directory.Record{Joliet: isJoliet}
	if err := root.Unmarshal(append([]byte{}, data[156:190]...)); err != nil {
		return err
	}
	d.RootDirectoryRecord = root

	if isJoliet {
		dec := func(b []byte) string { s, _ := encoding.DecodeUCS2BE(b); return trimRight0(s) }
		d.VolumeSetIdentifier = dec(data[190:318])
		d.PublisherIdentifier = dec(data[318:446])
		d.DataPreparerIdentifier = dec(data[446:574])
		d.ApplicationIdentifier = dec(data[574:702])
		d.CopyrightFileIdentifier = dec(data[702:739])
		d.AbstractFileIdentifier = dec(data[739:776])
		d.BibliographicFileIdentifier = dec(data[776:813])
	} else {
		d.VolumeSetIdentifier = trimSpace(string(data[190:318]))
		d.PublisherIdentifier = trimSpace(string(data[318:446]))
		d.DataPreparerIdentifier = trimSpace(string(data[446:574]))
		d.ApplicationIdentifier = trimSpace(string(data[574:702]))
		d.CopyrightFileIdentifier = trimSpace(string(data[702:739]))
		d.AbstractFileIdentifier = trimSpace(string(data[739:776]))
		d.BibliographicFileIdentifier = trimSpace(string(data[776:813]))
	}

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

func trimRight0(s string) string {
	end := len(s)
	for end > 0 && s[end-1] == 0 {
		end--
	}
	return s[:end]
}
