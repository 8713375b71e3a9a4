package directory

import "fmt"

// Flags is the directory-record flag byte (ECMA-119 9.1.6).
type Flags struct {
	Hidden      bool // bit 0: existence - when set, not listed by basic readers
	Directory   bool // bit 1
	Associated  bool // bit 2: associated file
	Record      bool // bit 3: record format in use
	Protection  bool // bit 4: owner/group/permissions present via XA
	Reserved1   bool // bit 5
	Reserved2   bool // bit 6
	MultiExtent bool // bit 7: not the final record of a multi-extent file
}

// Byte packs the flags back into a single byte.
func (f Flags) Byte() byte {
	var b byte
	if f.Hidden {
		b |= 0x01
	}
	if f.Directory {
		b |= 0x02
	}
	if f.Associated {
		b |= 0x04
	}
	if f.Record {
		b |= 0x08
	}
	if f.Protection {
		b |= 0x10
	}
	if f.Reserved1 {
		b |= 0x20
	}
	if f.Reserved2 {
		b |= 0x40
	}
	if f.MultiExtent {
		b |= 0x80
	}
	return b
}

// SetByte unpacks a single flag byte.
func (f *Flags) SetByte(b byte) {
	f.Hidden = b&0x01 != 0
	f.Directory = b&0x02 != 0
	f.Associated = b&0x04 != 0
	f.Record = b&0x08 != 0
	f.Protection = b&0x10 != 0
	f.Reserved1 = b&0x20 != 0
	f.Reserved2 = b&0x40 != 0
	f.MultiExtent = b&0x80 != 0
}

func (f Flags) String() string {
	return fmt.Sprintf("Hidden=%t Directory=%t Associated=%t Record=%t Protection=%t MultiExtent=%t",
		f.Hidden, f.Directory, f.Associated, f.Record, f.Protection, f.MultiExtent)
}
