package susp

import (
	"strings"

	"github.com/go-optical/isokit/isoerr"
	"github.com/go-optical/isokit/rockridge"
)

// Attributes is the decoded Rock Ridge view of one directory record's
// entry stream: POSIX attributes, device numbers, timestamps, name,
// symlink target, and deep-relocation links.
type Attributes struct {
	HasRockRidge bool
	Name         string // reconstructed from NM fragment concatenation
	Posix        *rockridge.PosixAttributes
	Device       *rockridge.DeviceNumber
	Timestamps   *rockridge.Timestamps
	SymlinkPath  string
	IsSymlink    bool
	ChildLink    *uint32 // CL: extent of the relocated subtree's real directory
	ParentLink   *uint32 // PL: extent of the relocated directory's true parent
	Relocated    bool    // RE present: this directory is a relocation target
	Sparse       *rockridge.SparseFile
	AppleEntries []Entry // AA/AL, preserved opaquely without interpretation
}

// sharingProtocol / extension signatures recognised on the root's "."
// record.
const (
	ShareProtocolSP = "SP"
)

// HasExtensionReference reports whether entries contains an ER entry
// naming Rock Ridge 1.09 or 1.12.
func HasExtensionReference(entries []Entry) bool {
	for _, e := range entries {
		if e.Tag != "ER" {
			continue
		}
		er, err := unmarshalExtensionReference(e.Body)
		if err != nil {
			continue
		}
		if er.Identifier == rockridge.Identifier109 || er.Identifier == rockridge.Identifier112 {
			return true
		}
	}
	return false
}

// DecodeAttributes interprets a flat entry list as Rock Ridge attributes.
// Unknown/foreign entries are ignored; NM fragments are concatenated in
// order per spec.md's invariant that the NM stream reconstructs the full
// name.
func DecodeAttributes(entries []Entry) (*Attributes, error) {
	attrs := &Attributes{}
	var nameParts []string
	var slComponents []rockridge.SymlinkComponent
	for _, e := range entries {
		switch e.Tag {
		case "PX":
			px, err := rockridge.UnmarshalPX(e.Body)
			if err != nil {
				return nil, err
			}
			attrs.Posix = px
			attrs.HasRockRidge = true
		case "PN":
			pn, err := rockridge.UnmarshalPN(e.Body)
			if err != nil {
				return nil, err
			}
			attrs.Device = pn
			attrs.HasRockRidge = true
		case "NM":
			frag, err := rockridge.UnmarshalNM(e.Body)
			if err != nil {
				return nil, err
			}
			attrs.HasRockRidge = true
			if frag.Current {
				nameParts = []string{"."}
				break
			}
			if frag.Parent {
				nameParts = []string{".."}
				break
			}
			nameParts = append(nameParts, frag.Name)
		case "SL":
			_, comps, err := rockridge.UnmarshalSL(e.Body)
			if err != nil {
				return nil, err
			}
			slComponents = append(slComponents, comps...)
			attrs.IsSymlink = true
			attrs.HasRockRidge = true
		case "TF":
			tf, err := rockridge.UnmarshalTF(e.Body)
			if err != nil {
				return nil, err
			}
			attrs.Timestamps = tf
			attrs.HasRockRidge = true
		case "CL":
			link, err := rockridge.UnmarshalRelocationLink(e.Body)
			if err != nil {
				return nil, err
			}
			attrs.ChildLink = &link.Extent
			attrs.HasRockRidge = true
		case "PL":
			link, err := rockridge.UnmarshalRelocationLink(e.Body)
			if err != nil {
				return nil, err
			}
			attrs.ParentLink = &link.Extent
			attrs.HasRockRidge = true
		case "RE":
			attrs.Relocated = true
			attrs.HasRockRidge = true
		case "SF":
			sf, err := rockridge.UnmarshalSF(e.Body)
			if err != nil {
				return nil, err
			}
			attrs.Sparse = sf
			attrs.HasRockRidge = true
		case "AA", "AL":
			attrs.AppleEntries = append(attrs.AppleEntries, e)
		}
	}
	if len(nameParts) > 0 {
		attrs.Name = strings.Join(nameParts, "")
	}
	if attrs.IsSymlink {
		attrs.SymlinkPath = rockridge.SymlinkPath(slComponents)
	}
	return attrs, nil
}

// EncodeNameEntries splits a Rock Ridge name across as many NM entries as
// needed to fit the per-entry 250-ish byte body limit (255 total entry
// length minus the 5-byte NM header), setting the Continue flag on all but
// the last fragment.
func EncodeNameEntries(name string) []Entry {
	const maxFragment = 250
	if name == "." {
		return []Entry{NewEntry("NM", rockridge.ExtensionVersion, rockridge.MarshalNM(rockridge.NameFragment{Current: true}))}
	}
	if name == ".." {
		return []Entry{NewEntry("NM", rockridge.ExtensionVersion, rockridge.MarshalNM(rockridge.NameFragment{Parent: true}))}
	}
	var entries []Entry
	remaining := name
	for len(remaining) > maxFragment {
		chunk := remaining[:maxFragment]
		remaining = remaining[maxFragment:]
		entries = append(entries, NewEntry("NM", rockridge.ExtensionVersion, rockridge.MarshalNM(rockridge.NameFragment{Continue: true, Name: chunk})))
	}
	entries = append(entries, NewEntry("NM", rockridge.ExtensionVersion, rockridge.MarshalNM(rockridge.NameFragment{Name: remaining})))
	return entries
}

// EncodeSymlinkEntries renders an SL entry (or several, if the target
// needs more than one) for the given POSIX-style path target.
func EncodeSymlinkEntries(target string) []Entry {
	var comps []rockridge.SymlinkComponent
	if strings.HasPrefix(target, "/") {
		comps = append(comps, rockridge.SymlinkComponent{Root: true})
		target = strings.TrimPrefix(target, "/")
	}
	for _, part := range strings.Split(target, "/") {
		switch part {
		case ".":
			comps = append(comps, rockridge.SymlinkComponent{Current: true})
		case "..":
			comps = append(comps, rockridge.SymlinkComponent{Parent: true})
		default:
			comps = append(comps, rockridge.SymlinkComponent{Content: part})
		}
	}
	return []Entry{NewEntry("SL", rockridge.ExtensionVersion, rockridge.MarshalSL(comps))}
}

// ValidateExtensionVersion rejects unsupported RRIP versions during parse.
func ValidateExtensionVersion(identifier string) error {
	if identifier != rockridge.Identifier109 && identifier != rockridge.Identifier112 {
		return isoerr.Malformedf("susp.ValidateExtensionVersion", -1, -1, "unsupported Rock Ridge extension identifier %q", identifier)
	}
	return nil
}
