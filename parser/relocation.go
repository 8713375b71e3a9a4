package parser

// resolveRelocations is phase 6: drain the CL entries recorded while
// walking the ISO9660 tree, now that every directory (including anything
// under RR_MOVED) has a node, and record each relocated directory's real
// Rock Ridge parent via SetRelocation — the reverse-direction counterpart
// of node.Arena.Relocate, since the image already placed the directory
// under RR_MOVED and only the bookkeeping needs filling in.
func (p *parseState) resolveRelocations() error {
	for _, ref := range p.pendingCL {
		relocated, ok := p.extentToNode[ref.extent]
		if !ok {
			continue // dangling CL entry; tolerate rather than fail the whole parse
		}
		if err := p.arena.SetRelocation(relocated, ref.realParent); err != nil {
			return err
		}
	}
	return nil
}
