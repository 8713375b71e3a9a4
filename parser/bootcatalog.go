package parser

import (
	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/eltorito"
	"github.com/go-optical/isokit/node"
)

// readBootCatalog is phase 4: decode the El Torito boot catalog named by
// the Boot Record Volume Descriptor's catalog pointer, and attach each
// entry's metadata to the node whose extent it names (normally a node
// walkISO9660 already created; a catalog entry with no matching ISO9660
// record is a hidden boot file and gets a payload-only node with no
// namespace record at all, mirroring pycdlib's hidden El Torito images).
func (p *parseState) readBootCatalog() error {
	block, err := p.readBlock(p.info.BootRecord.CatalogExtent)
	if err != nil {
		return err
	}
	cat := &eltorito.Catalog{}
	if err := cat.Unmarshal(block[:]); err != nil {
		return err
	}
	p.info.BootCatalog = cat

	for _, e := range cat.Entries() {
		entry := e
		bc := &node.BootCatalogEntry{
			Platform:    uint8(entry.Platform),
			Emulation:   uint8(entry.Emulation),
			LoadSegment: entry.LoadSegment,
			SectorCount: entry.SectorCount,
			Bootable:    true,
			IsDefault:   entry.IsDefault,
		}

		id, ok := p.extentToNode[entry.Extent]
		if !ok {
			payload := p.arena.AddPayload(node.Payload{
				Size:          int64(entry.SectorCount) * 512,
				SourceSize:    int64(entry.SectorCount) * 512,
				ImageOffset:   int64(entry.Extent) * consts.BlockSize,
				SourceIsImage: true,
				Hidden:        true,
			})
			n := p.arena.NewFileNode(payload)
			id = n.ID
			p.extentToNode[entry.Extent] = id
		}
		p.arena.Node(id).BootCatalog = bc
	}
	return nil
}
