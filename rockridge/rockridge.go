// Package rockridge implements the Rock Ridge entries layered on top of
// SUSP (C3 continued): PX, PN, TF, NM, SL, CL, PL, RE, SF, plus opaque
// passthrough for the Apple AA/AL extensions. Each type knows how to
// marshal/unmarshal its own entry body; susp.Entry owns the 4-byte tag
// header shared by every SUSP/RR entry.
package rockridge

import (
	"io/fs"
	"os"
	"time"

	"github.com/go-optical/isokit/encoding"
	"github.com/go-optical/isokit/isoerr"
)

const (
	Identifier109 = "RRIP_1991A"
	Identifier112 = "IEEE_P1282"
	ExtensionVersion = 1
)

// Tag is the 2-byte signature of a Rock Ridge (or passthrough Apple) entry.
type Tag string

const (
	TagPX Tag = "PX"
	TagPN Tag = "PN"
	TagSL Tag = "SL"
	TagNM Tag = "NM"
	TagCL Tag = "CL"
	TagPL Tag = "PL"
	TagRE Tag = "RE"
	TagTF Tag = "TF"
	TagSF Tag = "SF"
	TagRR Tag = "RR"
	TagAA Tag = "AA" // Apple extension, preserved opaquely
	TagAL Tag = "AL" // Apple extension, preserved opaquely
)

// PosixAttributes is the PX entry: owner/group/mode/links/serial number.
type PosixAttributes struct {
	Mode     fs.FileMode
	RawMode  uint32
	Links    uint32
	UserID   uint32
	GroupID  uint32
	SerialNo uint32
}

// MarshalPX encodes a PX entry body (offset 4 onward; header is added by
// the susp layer).
func MarshalPX(p PosixAttributes) []byte {
	buf := make([]byte, 36)
	encoding.PutUint32LSBMSB(buf[0:8], p.RawMode)
	encoding.PutUint32LSBMSB(buf[8:16], p.Links)
	encoding.PutUint32LSBMSB(buf[16:24], p.UserID)
	encoding.PutUint32LSBMSB(buf[24:32], p.GroupID)
	_ = buf[32] // serial number occupies remaining both-endian slot in RRIP 1.12; 1.09 omits it
	return buf
}

// UnmarshalPX decodes a PX entry body.
func UnmarshalPX(data []byte) (*PosixAttributes, error) {
	if len(data) < 32 {
		return nil, isoerr.Malformedf("rockridge.UnmarshalPX", -1, -1, "PX body too short: %d", len(data))
	}
	rawMode, err := encoding.UnmarshalUint32LSBMSB(data[0:8])
	if err != nil {
		return nil, err
	}
	links, err := encoding.UnmarshalUint32LSBMSB(data[8:16])
	if err != nil {
		return nil, err
	}
	uid, err := encoding.UnmarshalUint32LSBMSB(data[16:24])
	if err != nil {
		return nil, err
	}
	gid, err := encoding.UnmarshalUint32LSBMSB(data[24:32])
	if err != nil {
		return nil, err
	}
	var serial uint32
	if len(data) >= 40 {
		serial, _ = encoding.UnmarshalUint32LSBMSB(data[32:40])
	}
	return &PosixAttributes{
		Mode:     posixModeToFsMode(rawMode),
		RawMode:  rawMode,
		Links:    links,
		UserID:   uid,
		GroupID:  gid,
		SerialNo: serial,
	}, nil
}

func posixModeToFsMode(mode uint32) fs.FileMode {
	var m fs.FileMode
	switch mode & 0xF000 {
	case 0xC000:
		m |= fs.ModeSocket
	case 0xA000:
		m |= fs.ModeSymlink
	case 0x6000:
		m |= fs.ModeDevice
	case 0x2000:
		m |= fs.ModeCharDevice
	case 0x4000:
		m |= fs.ModeDir
	case 0x1000:
		m |= fs.ModeNamedPipe
	}
	m |= fs.FileMode(mode & 0777)
	if mode&0x0800 != 0 {
		m |= os.ModeSetuid
	}
	if mode&0x0400 != 0 {
		m |= os.ModeSetgid
	}
	if mode&0x0200 != 0 {
		m |= os.ModeSticky
	}
	return m
}

// FsModeToPosix converts an fs.FileMode back into the raw POSIX mode field
// PX expects, the inverse of posixModeToFsMode.
func FsModeToPosix(mode fs.FileMode, isDir bool) uint32 {
	var raw uint32 = uint32(mode.Perm())
	switch {
	case mode&fs.ModeSymlink != 0:
		raw |= 0xA000
	case mode&fs.ModeSocket != 0:
		raw |= 0xC000
	case mode&fs.ModeDevice != 0 && mode&fs.ModeCharDevice != 0:
		raw |= 0x2000
	case mode&fs.ModeDevice != 0:
		raw |= 0x6000
	case mode&fs.ModeNamedPipe != 0:
		raw |= 0x1000
	case isDir || mode.IsDir():
		raw |= 0x4000
	default:
		raw |= 0x8000
	}
	if mode&os.ModeSetuid != 0 {
		raw |= 0x0800
	}
	if mode&os.ModeSetgid != 0 {
		raw |= 0x0400
	}
	if mode&os.ModeSticky != 0 {
		raw |= 0x0200
	}
	return raw
}

// DeviceNumber is the PN entry: device major/minor for block/char devices.
type DeviceNumber struct {
	High uint32
	Low  uint32
}

func MarshalPN(d DeviceNumber) []byte {
	buf := make([]byte, 16)
	encoding.PutUint32LSBMSB(buf[0:8], d.High)
	encoding.PutUint32LSBMSB(buf[8:16], d.Low)
	return buf
}

func UnmarshalPN(data []byte) (*DeviceNumber, error) {
	if len(data) < 16 {
		return nil, isoerr.Malformedf("rockridge.UnmarshalPN", -1, -1, "PN body too short: %d", len(data))
	}
	hi, err := encoding.UnmarshalUint32LSBMSB(data[0:8])
	if err != nil {
		return nil, err
	}
	lo, err := encoding.UnmarshalUint32LSBMSB(data[8:16])
	if err != nil {
		return nil, err
	}
	return &DeviceNumber{High: hi, Low: lo}, nil
}

// NameFragment is a single NM entry's decoded flags+payload. A long Rock
// Ridge name is the ordered concatenation of each fragment's Name field.
type NameFragment struct {
	Continue bool
	Current  bool
	Parent   bool
	Name     string
}

// MarshalNM encodes one NM fragment body.
func MarshalNM(f NameFragment) []byte {
	var flags byte
	if f.Continue {
		flags |= 0x01
	}
	if f.Current {
		flags |= 0x02
	}
	if f.Parent {
		flags |= 0x04
	}
	out := append([]byte{flags}, []byte(f.Name)...)
	return out
}

// UnmarshalNM decodes one NM fragment body (offset 4 onward of the entry).
func UnmarshalNM(data []byte) (*NameFragment, error) {
	if len(data) < 1 {
		return nil, isoerr.Malformedf("rockridge.UnmarshalNM", -1, -1, "NM body empty")
	}
	flags := data[0]
	return &NameFragment{
		Continue: flags&0x01 != 0,
		Current:  flags&0x02 != 0,
		Parent:   flags&0x04 != 0,
		Name:     string(data[1:]),
	}, nil
}

// SymlinkComponent is one component record within an SL entry.
type SymlinkComponent struct {
	Continue bool
	Current  bool // "."
	Parent   bool // ".."
	Root     bool // "/"
	Content  string
}

// MarshalSL encodes the full set of SL components for one entry (caller
// splits across multiple SL entries with the entry-level continue flag if
// the components don't fit in one directory record).
func MarshalSL(components []SymlinkComponent) []byte {
	out := []byte{0x00} // SL entry flags byte (bit 0 = continues in next SL entry; set by caller post-hoc)
	for _, c := range components {
		var flags byte
		if c.Continue {
			flags |= 0x01
		}
		if c.Current {
			flags |= 0x02
		}
		if c.Parent {
			flags |= 0x04
		}
		if c.Root {
			flags |= 0x08
		}
		out = append(out, flags, byte(len(c.Content)))
		out = append(out, []byte(c.Content)...)
	}
	return out
}

// UnmarshalSL decodes the SL entry flags byte and its component records.
func UnmarshalSL(data []byte) (entryContinues bool, components []SymlinkComponent, err error) {
	if len(data) < 1 {
		return false, nil, isoerr.Malformedf("rockridge.UnmarshalSL", -1, -1, "SL body empty")
	}
	entryContinues = data[0]&0x01 != 0
	pos := 1
	for pos+2 <= len(data) {
		flags := data[pos]
		length := int(data[pos+1])
		pos += 2
		if pos+length > len(data) {
			return false, nil, isoerr.Malformedf("rockridge.UnmarshalSL", -1, -1, "component length %d exceeds remaining %d", length, len(data)-pos)
		}
		components = append(components, SymlinkComponent{
			Continue: flags&0x01 != 0,
			Current:  flags&0x02 != 0,
			Parent:   flags&0x04 != 0,
			Root:     flags&0x08 != 0,
			Content:  string(data[pos : pos+length]),
		})
		pos += length
	}
	return entryContinues, components, nil
}

// SymlinkPath reconstructs the textual target of a symlink from its
// ordered SL components across (possibly several) SL entries.
func SymlinkPath(components []SymlinkComponent) string {
	var out string
	for i, c := range components {
		if i > 0 && !components[i-1].Continue {
			out += "/"
		}
		switch {
		case c.Root:
			out += "/"
		case c.Current:
			out += "."
		case c.Parent:
			out += ".."
		default:
			out += c.Content
		}
	}
	return out
}

// Timestamps is the TF entry: a bitmap of which of
// creation/modification/access/attribute-change/backup/expiration/
// effective timestamps are present, each encoded as a 7-byte directory
// date (or 17-byte long-form date if the LongForm bit is set).
type Timestamps struct {
	LongForm              bool
	Creation               *time.Time
	Modification           *time.Time
	Access                 *time.Time
	AttributeChange        *time.Time
	Backup                 *time.Time
	Expiration             *time.Time
	Effective              *time.Time
}

const (
	tfCreation        = 0x01
	tfModification    = 0x02
	tfAccess          = 0x04
	tfAttributeChange = 0x08
	tfBackup          = 0x10
	tfExpiration      = 0x20
	tfEffective       = 0x40
	tfLongForm        = 0x80
)

// MarshalTF encodes a TF entry body.
func MarshalTF(t Timestamps) ([]byte, error) {
	var flags byte
	var times []*time.Time
	add := func(bit byte, v *time.Time) {
		if v != nil {
			flags |= bit
			times = append(times, v)
		}
	}
	add(tfCreation, t.Creation)
	add(tfModification, t.Modification)
	add(tfAccess, t.Access)
	add(tfAttributeChange, t.AttributeChange)
	add(tfBackup, t.Backup)
	add(tfExpiration, t.Expiration)
	add(tfEffective, t.Effective)
	if t.LongForm {
		flags |= tfLongForm
	}
	out := []byte{flags}
	for _, v := range times {
		if t.LongForm {
			out = append(out, encoding.EncodeLongDate(encoding.LongDate{Time: *v})...)
		} else {
			b, err := encoding.EncodeRecordingDate(encoding.RecordingDate{Time: *v})
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
	}
	return out, nil
}

// UnmarshalTF decodes a TF entry body.
func UnmarshalTF(data []byte) (*Timestamps, error) {
	if len(data) < 1 {
		return nil, isoerr.Malformedf("rockridge.UnmarshalTF", -1, -1, "TF body empty")
	}
	flags := data[0]
	longForm := flags&tfLongForm != 0
	stride := 7
	if longForm {
		stride = 17
	}
	pos := 1
	readNext := func() (*time.Time, error) {
		if pos+stride > len(data) {
			return nil, isoerr.Malformedf("rockridge.UnmarshalTF", -1, -1, "truncated timestamp")
		}
		chunk := data[pos : pos+stride]
		pos += stride
		if longForm {
			d, err := encoding.DecodeLongDate(chunk)
			if err != nil {
				return nil, err
			}
			if d.Unspecified {
				return nil, nil
			}
			return &d.Time, nil
		}
		d, err := encoding.DecodeRecordingDate(chunk)
		if err != nil {
			return nil, err
		}
		if d.Unspecified {
			return nil, nil
		}
		return &d.Time, nil
	}
	out := &Timestamps{LongForm: longForm}
	bits := []struct {
		mask byte
		dst  **time.Time
	}{
		{tfCreation, &out.Creation},
		{tfModification, &out.Modification},
		{tfAccess, &out.Access},
		{tfAttributeChange, &out.AttributeChange},
		{tfBackup, &out.Backup},
		{tfExpiration, &out.Expiration},
		{tfEffective, &out.Effective},
	}
	for _, b := range bits {
		if flags&b.mask != 0 {
			v, err := readNext()
			if err != nil {
				return nil, err
			}
			*b.dst = v
		}
	}
	return out, nil
}

// RelocationLink is the shared body shape of CL/PL entries: a both-endian
// extent number pointing at the other side of a deep-directory relocation
// triangle.
type RelocationLink struct {
	Extent uint32
}

func MarshalRelocationLink(r RelocationLink) []byte {
	buf := make([]byte, 8)
	encoding.PutUint32LSBMSB(buf, r.Extent)
	return buf
}

func UnmarshalRelocationLink(data []byte) (*RelocationLink, error) {
	if len(data) < 8 {
		return nil, isoerr.Malformedf("rockridge.UnmarshalRelocationLink", -1, -1, "body too short: %d", len(data))
	}
	v, err := encoding.UnmarshalUint32LSBMSB(data[0:8])
	if err != nil {
		return nil, err
	}
	return &RelocationLink{Extent: v}, nil
}

// RE entries carry no body; their mere presence on a directory's "."
// record marks it as a deep-relocation target.

// SparseFile is the SF entry: virtual size plus table depth for files with
// holes. Rarely used; decoded but not acted on beyond pass-through.
type SparseFile struct {
	VirtualSizeHigh uint32
	VirtualSizeLow  uint32
	TableDepth      uint8
}

func MarshalSF(s SparseFile) []byte {
	buf := make([]byte, 17)
	encoding.PutUint32LSBMSB(buf[0:8], s.VirtualSizeHigh)
	encoding.PutUint32LSBMSB(buf[8:16], s.VirtualSizeLow)
	buf[16] = s.TableDepth
	return buf
}

func UnmarshalSF(data []byte) (*SparseFile, error) {
	if len(data) < 17 {
		return nil, isoerr.Malformedf("rockridge.UnmarshalSF", -1, -1, "SF body too short: %d", len(data))
	}
	hi, err := encoding.UnmarshalUint32LSBMSB(data[0:8])
	if err != nil {
		return nil, err
	}
	lo, err := encoding.UnmarshalUint32LSBMSB(data[8:16])
	if err != nil {
		return nil, err
	}
	return &SparseFile{VirtualSizeHigh: hi, VirtualSizeLow: lo, TableDepth: data[16]}, nil
}
