// Package descriptor implements the volume descriptors (C4): Primary,
// Supplementary (Joliet), Boot Record, Volume Partition, and Set
// Terminator, plus the El Torito boot catalog that hangs off a Boot
// Record's pointer (see the eltorito package).
package descriptor

import (
	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/isoerr"
)

// Type is the single-byte volume descriptor type code (ECMA-119 8.1.1).
type Type uint8

const (
	TypeBootRecord         Type = 0
	TypePrimary            Type = 1
	TypeSupplementary      Type = 2
	TypeVolumePartition    Type = 3
	TypeSetTerminator      Type = 255
)

// Header is the 7-byte type+identifier+version prefix shared by every
// volume descriptor.
type Header struct {
	Type       Type
	Identifier string
	Version    uint8
}

func (h Header) Marshal() []byte {
	out := make([]byte, consts.VolumeDescHeaderSize)
	out[0] = byte(h.Type)
	copy(out[1:6], h.Identifier)
	out[6] = h.Version
	return out
}

func UnmarshalHeader(data []byte) (Header, error) {
	if len(data) < consts.VolumeDescHeaderSize {
		return Header{}, isoerr.Malformedf("descriptor.UnmarshalHeader", -1, -1, "need %d bytes, got %d", consts.VolumeDescHeaderSize, len(data))
	}
	return Header{
		Type:       Type(data[0]),
		Identifier: string(data[1:6]),
		Version:    data[6],
	}, nil
}
