package parser

import (
	"github.com/go-logr/logr"

	"github.com/go-optical/isokit/node"
	"github.com/go-optical/isokit/rockridge"
	"github.com/go-optical/isokit/susp"
)

// interpretRockRidge decodes a directory record's raw system-use area
// (already stripped of CE continuation-area resolution by the caller;
// for this profile system-use areas fit in one directory record so no
// continuation reader is needed during the initial tree walk) into the
// Rock Ridge name override, POSIX attribute set, relocation markers,
// and whether the record's own "." carries an RE tag.
func interpretRockRidge(systemUse []byte) (name string, attrs *node.RockRidgeAttrs, cl *rockridge.RelocationLink, hasRE bool, err error) {
	if len(systemUse) == 0 {
		return "", nil, nil, false, nil
	}
	entries, err := susp.ParseStream(systemUse, nil, nil, logr.Discard())
	if err != nil {
		return "", nil, nil, false, err
	}

	var nameBuilder string
	var a *node.RockRidgeAttrs
	for _, e := range entries {
		switch e.Tag {
		case rockridge.TagNM:
			frag, ferr := rockridge.UnmarshalNM(e.Body)
			if ferr != nil {
				return "", nil, nil, false, ferr
			}
			nameBuilder += frag.Name
		case rockridge.TagPX:
			px, perr := rockridge.UnmarshalPX(e.Body)
			if perr != nil {
				return "", nil, nil, false, perr
			}
			if a == nil {
				a = &node.RockRidgeAttrs{}
			}
			a.Mode = px.RawMode
			a.UID = px.UserID
			a.GID = px.GroupID
			a.Links = px.Links
			a.SerialNo = px.SerialNo
		case rockridge.TagPN:
			pn, perr := rockridge.UnmarshalPN(e.Body)
			if perr != nil {
				return "", nil, nil, false, perr
			}
			if a == nil {
				a = &node.RockRidgeAttrs{}
			}
			a.Device = pn
		case rockridge.TagSL:
			_, components, serr := rockridge.UnmarshalSL(e.Body)
			if serr != nil {
				return "", nil, nil, false, serr
			}
			if a == nil {
				a = &node.RockRidgeAttrs{}
			}
			a.SymlinkTo += rockridge.SymlinkPath(components)
		case rockridge.TagTF:
			tf, terr := rockridge.UnmarshalTF(e.Body)
			if terr != nil {
				return "", nil, nil, false, terr
			}
			if a == nil {
				a = &node.RockRidgeAttrs{}
			}
			a.AccessTime = tf.Access
			a.ModificationTime = tf.Modification
			a.ChangeTime = tf.AttributeChange
			a.CreationTime = tf.Creation
		case rockridge.TagCL:
			link, lerr := rockridge.UnmarshalRelocationLink(e.Body)
			if lerr != nil {
				return "", nil, nil, false, lerr
			}
			cl = link
		case rockridge.TagRE:
			hasRE = true
		}
	}
	return nameBuilder, a, cl, hasRE, nil
}
