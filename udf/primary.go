package udf

import "github.com/go-optical/isokit/isoerr"

// PrimaryVolumeDescriptor is the ECMA-167 PVD (3.2.1) carried in the Main
// and Reserve Volume Descriptor Sequences.
type PrimaryVolumeDescriptor struct {
	Tag                   Tag
	VolumeDescSeqNum      uint32
	PrimaryVolumeDescNum  uint32
	VolumeIdentifier      string
	MaxInterchangeLevel   uint16
	ApplicationIdentifier EntityID
	RecordingDate         Timestamp
	ImplementationID      EntityID
	ImplementationUse     [64]byte
}

const pvdBodyLen = 496 // bytes after the 16-byte tag, per the '=LL32sHHHHLL128s64s64sLLLL32s12s32s64sLH22s' layout

// Marshal encodes the PVD into a 512-byte descriptor block.
func (d PrimaryVolumeDescriptor) Marshal() ([]byte, error) {
	body := make([]byte, pvdBodyLen)
	putUint32LE(body[0:4], d.VolumeDescSeqNum)
	putUint32LE(body[4:8], d.PrimaryVolumeDescNum)
	volID, err := EncodeCS0Padded(d.VolumeIdentifier, 32)
	if err != nil {
		return nil, err
	}
	copy(body[8:40], volID)
	putUint16LE(body[40:42], 1) // vol_seqnum
	putUint16LE(body[42:44], 1) // max_vol_seqnum
	putUint16LE(body[44:46], 2) // interchange level
	putUint16LE(body[46:48], d.MaxInterchangeLevel)
	putUint32LE(body[48:52], 1) // char set list
	putUint32LE(body[52:56], 1) // max char set list
	volSetID, err := EncodeCS0Padded("", 128)
	if err != nil {
		return nil, err
	}
	copy(body[56:184], volSetID)
	cs0 := CharSpecCS0()
	copy(body[184:248], cs0[:])
	cs0b := CharSpecCS0()
	copy(body[248:312], cs0b[:])
	// abstract/copyright length+extent (4*4 bytes) left zero: not used.
	appID := d.ApplicationIdentifier.Marshal()
	copy(body[328:360], appID[:])
	rec := d.RecordingDate.Marshal()
	copy(body[360:372], rec[:])
	implID := d.ImplementationID.Marshal()
	copy(body[372:404], implID[:])
	copy(body[404:468], d.ImplementationUse[:])
	// predecessor_vol_desc_location (4) + flags (2) + reserved(22) left zero.
	tag := MarshalTag(d.Tag, body)
	out := append(tag[:], body...)
	return out, nil
}

// Unmarshal decodes a PVD from its 512-byte descriptor block.
func (d *PrimaryVolumeDescriptor) Unmarshal(data []byte, extent uint32) error {
	if len(data) < 16+pvdBodyLen {
		return isoerr.Malformedf("udf.PrimaryVolumeDescriptor.Unmarshal", int64(extent), -1, "need %d bytes, got %d", 16+pvdBodyLen, len(data))
	}
	var tagBytes [16]byte
	copy(tagBytes[:], data[0:16])
	tag, err := UnmarshalTag(tagBytes, extent, data[16:16+pvdBodyLen])
	if err != nil {
		return err
	}
	if tag.Identifier != TagPrimaryVolumeDescriptor {
		return isoerr.Malformedf("udf.PrimaryVolumeDescriptor.Unmarshal", int64(extent), 0, "tag identifier %d, want %d", tag.Identifier, TagPrimaryVolumeDescriptor)
	}
	d.Tag = tag
	body := data[16 : 16+pvdBodyLen]
	d.VolumeDescSeqNum = getUint32LE(body[0:4])
	d.PrimaryVolumeDescNum = getUint32LE(body[4:8])
	volID, err := DecodeCS0Padded(body[8:40])
	if err != nil {
		return err
	}
	d.VolumeIdentifier = volID
	d.MaxInterchangeLevel = getUint16LE(body[46:48])
	d.ApplicationIdentifier.Unmarshal(fixed32(body[328:360]))
	if err := d.RecordingDate.Unmarshal(fixed12(body[360:372])); err != nil {
		return err
	}
	d.ImplementationID.Unmarshal(fixed32(body[372:404]))
	copy(d.ImplementationUse[:], body[404:468])
	return nil
}

func putUint16LE(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func getUint16LE(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func fixed32(b []byte) [32]byte {
	var out [32]byte
	copy(out[:], b)
	return out
}

func fixed12(b []byte) [12]byte {
	var out [12]byte
	copy(out[:], b)
	return out
}

func fixed16(b []byte) [16]byte {
	var out [16]byte
	copy(out[:], b)
	return out
}

func fixed8(b []byte) [8]byte {
	var out [8]byte
	copy(out[:], b)
	return out
}
