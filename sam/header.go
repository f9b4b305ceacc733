package sam

import "fmt"

// RG represents a SAM @RG (read group) header line.
type RG struct {
	id     int
	Name   string
	Sample string
	Lib    string
}

// ID returns the read group's index within its Header.
func (g *RG) ID() int { return g.id }

// Header holds the reference dictionary (@SQ) and read-group table (@RG)
// needed to resolve a Record's Ref/MateRef pointers and its RG aux tag to
// a dense numeric read-group index. Text-header parsing beyond this
// minimal table is a collaborator outside this module's scope.
type Header struct {
	refs []*Reference
	rgs  []*RG
}

// NewHeader returns a Header built from the given references and read
// groups, assigning each a dense zero-based ID.
func NewHeader(refs []*Reference, rgs []*RG) (*Header, error) {
	h := &Header{refs: refs, rgs: rgs}
	for i, r := range refs {
		r.id = i
	}
	for i, g := range rgs {
		g.id = i
	}
	return h, nil
}

// Refs returns the Header's reference dictionary.
func (h *Header) Refs() []*Reference { return h.refs }

// RGs returns the Header's read-group table.
func (h *Header) RGs() []*RG { return h.rgs }

// RGByName returns the read group named name, or nil if none matches.
func (h *Header) RGByName(name string) *RG {
	for _, g := range h.rgs {
		if g.Name == name {
			return g
		}
	}
	return nil
}

func (h *Header) String() string {
	return fmt.Sprintf("sam.Header{%d refs, %d read groups}", len(h.refs), len(h.rgs))
}
