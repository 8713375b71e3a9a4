package udf

import "github.com/go-optical/isokit/isoerr"

// EntityID is the 32-byte ECMA-167 EntityID (1.8.2): a flag byte, a
// 23-byte identifier, and an 8-byte suffix.
type EntityID struct {
	Flags      uint8
	Identifier string
	Suffix     [8]byte
}

// NewEntityID builds an EntityID with the application/implementation
// identifier convention this module uses: "*go-optical/isokit".
func NewEntityID(flags uint8, identifier string) (EntityID, error) {
	if len(identifier) > 23 {
		return EntityID{}, isoerr.InvalidInputf("udf.NewEntityID", "identifier %q exceeds 23 bytes", identifier)
	}
	return EntityID{Flags: flags, Identifier: identifier}, nil
}

// Marshal encodes the EntityID into its 32-byte form.
func (e EntityID) Marshal() [32]byte {
	var out [32]byte
	out[0] = e.Flags
	copy(out[1:24], e.Identifier)
	copy(out[24:32], e.Suffix[:])
	return out
}

// Unmarshal decodes a 32-byte EntityID.
func (e *EntityID) Unmarshal(data [32]byte) {
	e.Flags = data[0]
	e.Identifier = trimNullBytes(data[1:24])
	copy(e.Suffix[:], data[24:32])
}

func trimNullBytes(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}
