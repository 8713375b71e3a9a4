package layout

import (
	"io/fs"

	"github.com/go-optical/isokit/node"
	"github.com/go-optical/isokit/option"
	"github.com/go-optical/isokit/rockridge"
	"github.com/go-optical/isokit/susp"
)

// defaultRockRidgeAttrs fills in a POSIX attribute set for a node that was
// added without explicit Rock Ridge metadata: 0755/dir or 0644/file, owned
// by root, with the minimal link count ECMA-119 expects.
func defaultRockRidgeAttrs(isDir bool) *node.RockRidgeAttrs {
	var mode fs.FileMode = 0644
	links := uint32(1)
	if isDir {
		mode = fs.ModeDir | 0755
		links = 2
	}
	return &node.RockRidgeAttrs{
		Mode:  rockridge.FsModeToPosix(mode, isDir),
		Links: links,
	}
}

// rrRecordKind distinguishes the three roles a directory record can play
// for Rock Ridge system-use purposes: the ordinary named entry, and the
// self/parent records which never carry NM.
type rrRecordKind int

const (
	rrEntry rrRecordKind = iota
	rrSelf
	rrParent
)

// buildSystemUse renders the Rock Ridge system-use area for one directory
// record. isVolumeRoot additionally prepends the SP/ER entries identifying
// the extension, which per RRIP only appear on the PVD root directory's
// "." record.
func buildSystemUse(cfg *option.Config, kind rrRecordKind, name string, attrs *node.RockRidgeAttrs, isDir bool, isVolumeRoot bool) ([]byte, error) {
	if !cfg.RockRidge {
		return nil, nil
	}
	if attrs == nil {
		attrs = defaultRockRidgeAttrs(isDir)
	}

	var entries []susp.Entry
	if isVolumeRoot {
		entries = append(entries, susp.NewEntry("SP", rockridge.ExtensionVersion, []byte{0xBE, 0xEF}))
		id := rockridge.Identifier112
		if cfg.RockRidgeVersion == "1.09" {
			id = rockridge.Identifier109
		}
		entries = append(entries, susp.NewEntry("ER", rockridge.ExtensionVersion,
			susp.MarshalExtensionReference(susp.ExtensionReference{
				Identifier: id,
				Descriptor: "THE ROCK RIDGE INTERCHANGE PROTOCOL PROVIDES SUPPORT FOR POSIX FILE SYSTEM SEMANTICS",
				Source:     "PLEASE CONTACT DISC PUBLISHER FOR SPECIFICATION SOURCE",
				Version:    1,
			})))
	}

	entries = append(entries, susp.NewEntry("PX", rockridge.ExtensionVersion, rockridge.MarshalPX(rockridge.PosixAttributes{
		RawMode:  attrs.Mode,
		Links:    attrs.Links,
		UserID:   attrs.UID,
		GroupID:  attrs.GID,
		SerialNo: attrs.SerialNo,
	})))

	if attrs.Device != nil {
		entries = append(entries, susp.NewEntry("PN", rockridge.ExtensionVersion, rockridge.MarshalPN(*attrs.Device)))
	}

	if kind == rrEntry && name != "" {
		entries = append(entries, susp.EncodeNameEntries(name)...)
	}

	if attrs.SymlinkTo != "" {
		entries = append(entries, susp.EncodeSymlinkEntries(attrs.SymlinkTo)...)
	}

	tf := rockridge.Timestamps{
		Creation:        attrs.CreationTime,
		Modification:    attrs.ModificationTime,
		Access:          attrs.AccessTime,
		AttributeChange: attrs.ChangeTime,
	}
	if tf.Creation != nil || tf.Modification != nil || tf.Access != nil || tf.AttributeChange != nil {
		body, err := rockridge.MarshalTF(tf)
		if err != nil {
			return nil, err
		}
		entries = append(entries, susp.NewEntry("TF", rockridge.ExtensionVersion, body))
	}

	var out []byte
	for _, e := range entries {
		out = append(out, e.Marshal()...)
	}
	return out, nil
}
