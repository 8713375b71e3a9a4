// Package isohybrid renders the MBR-compatible boot sector isohybrid
// images carry in blocks 0-15 (the system-use area, otherwise zero) so
// the same image boots both as an optical disc (via El Torito) and as a
// raw USB/HDD image (via BIOS MBR boot). Grounded on pycdlib's
// isohybrid.py, the reference implementation this library's El Torito
// and Rock Ridge handling also draws on; the 512-byte record layout
// (header, 400-byte boot stub, RBA, MBR ID, four 16-byte partition
// entries, 0x55AA signature) follows it directly.
package isohybrid

import (
	"encoding/binary"

	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/isoerr"
)

// origHeader/macHeader are the two 32-byte markers pycdlib recognizes at
// the start of a hybridized image's boot sector.
var (
	origHeader = append([]byte{0x33, 0xed}, make([]byte, 30)...)
	macHeader  = append([]byte{0x45, 0x52, 0x08, 0x00, 0x00, 0x00, 0x90, 0x90}, make([]byte, 24)...)
)

// Config carries the parameters add_isohybrid takes, mirroring pycdlib's
// IsoHybrid.new(): where the bootable MBR partition sits, what type it
// claims to be, and what CHS geometry to report.
type Config struct {
	Mac             bool
	PartEntry       uint8 // 1-4
	MBRID           uint32
	PartOffset      uint32
	GeometryHeads   uint32
	GeometrySectors uint32
	PartType        uint8

	// BootStub is the x86 bootstrap code occupying the first up-to-400
	// bytes after the header; callers that don't supply one get an
	// inert (zero-filled) stub, which installs the MBR/partition-table
	// framing correctly but boots nowhere — only the structural
	// round-trip is guaranteed without a real bootloader stub.
	BootStub []byte
}

// MBR is a configured, not-yet-finalized hybridization: Marshal needs
// the boot image's assigned extent and the volume's total block count,
// both of which are only known once layout.Build has run.
type MBR struct {
	cfg Config
}

// New validates cfg and returns an MBR ready for SetRBA+Marshal.
func New(cfg Config) (*MBR, error) {
	if cfg.PartEntry < 1 || cfg.PartEntry > 4 {
		return nil, isoerr.InvalidInputf("isohybrid.New", "part entry %d out of range 1-4", cfg.PartEntry)
	}
	if cfg.GeometryHeads == 0 || cfg.GeometrySectors == 0 {
		return nil, isoerr.InvalidInputf("isohybrid.New", "geometry heads/sectors must be nonzero")
	}
	if len(cfg.BootStub) > 400 {
		return nil, isoerr.InvalidInputf("isohybrid.New", "boot stub is %d bytes, max 400", len(cfg.BootStub))
	}
	return &MBR{cfg: cfg}, nil
}

func (m *MBR) chsStart() (head, sect, cyl byte) {
	off := m.cfg.PartOffset
	headsXsectors := m.cfg.GeometryHeads * m.cfg.GeometrySectors
	h := (off / m.cfg.GeometrySectors) % m.cfg.GeometryHeads
	s := (off % m.cfg.GeometrySectors) + 1
	c := off / headsXsectors
	s += (c & 0x300) >> 2
	c &= 0xff
	return byte(h), byte(s), byte(c)
}

// Marshal renders the 512-byte boot sector for an image whose assigned
// boot-entry extent is rba and whose total size is totalBlocks*2048
// bytes, following pycdlib's IsoHybrid.record(): the partition's end
// CHS and size depend on the cylinder count the whole image rounds up
// to, computed the same way.
func (m *MBR) Marshal(rba, totalBlocks uint32) []byte {
	cylSize := m.cfg.GeometryHeads * m.cfg.GeometrySectors * 512
	isoSize := uint64(totalBlocks) * consts.BlockSize
	cc := uint32((isoSize + uint64(cylSize) - 1) / uint64(cylSize))
	if cc > 1024 {
		cc = 1024
	}

	out := make([]byte, 512)
	header := origHeader
	if m.cfg.Mac {
		header = macHeader
	}
	copy(out[0:32], header)
	copy(out[32:32+400], m.cfg.BootStub)
	binary.LittleEndian.PutUint32(out[432:436], rba)
	binary.LittleEndian.PutUint32(out[440:444], m.cfg.MBRID)

	bhead, bsect, bcyl := m.chsStart()
	esect := byte(m.cfg.GeometrySectors) + byte(((cc-1)&0x300)>>2)
	ecyl := byte((cc - 1) & 0xff)
	psize := cc*m.cfg.GeometryHeads*m.cfg.GeometrySectors - m.cfg.PartOffset

	tableOff := 446
	for i := uint8(1); i <= 4; i++ {
		entry := out[tableOff : tableOff+16]
		if i == m.cfg.PartEntry {
			entry[0] = 0x80
			entry[1] = bhead
			entry[2] = bsect
			entry[3] = bcyl
			entry[4] = m.cfg.PartType
			entry[5] = byte(m.cfg.GeometryHeads - 1)
			entry[6] = esect
			entry[7] = ecyl
			binary.LittleEndian.PutUint32(entry[8:12], m.cfg.PartOffset)
			binary.LittleEndian.PutUint32(entry[12:16], psize)
		}
		tableOff += 16
	}

	out[510] = 0x55
	out[511] = 0xaa
	return out
}
