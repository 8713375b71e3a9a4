package parser

import (
	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/isoerr"
)

// walkJoliet is phase 3: BFS the Joliet SVD's root directory. Directory
// extents never coincide with their ISO9660 counterparts (each namespace's
// directory content is stored separately), so walkDirectory naturally
// creates fresh directory nodes here; file extents do coincide (the
// payload is written once), so extentToNode naturally reunites a file's
// Joliet record with the node its ISO9660 record already created.
func (p *parseState) walkJoliet() error {
	root := p.arena.Root(consts.NamespaceJoliet)
	rootRec := p.info.Joliet.RootDirectoryRecord
	if rootRec == nil {
		return isoerr.Malformedf("parser.walkJoliet", consts.SystemAreaBlocks, 0, "Joliet SVD root directory record missing")
	}
	return p.walkDirectory(consts.NamespaceJoliet, root, rootRec.Extent, rootRec.DataLength)
}
