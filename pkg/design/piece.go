package design

import (
	"fmt"

	"github.com/chazu/semio/pkg/geom"
	"github.com/chazu/semio/pkg/kit"
)

// PieceID identifies a piece within its design.
type PieceID string

// Source is the sealed set of things a piece can instantiate.
type Source interface {
	source()
	// Kind returns a short human-readable tag.
	Kind() string
}

// TypeRef instantiates a catalog type.
type TypeRef struct {
	Type kit.TypeID
}

// Embedded instantiates another design of the catalog. Its anchor is the
// piece plane.
type Embedded struct {
	Design DesignID
}

// Clustered stands in for a contracted sub-graph. The sub-design is held
// inline so that it can be exploded without a catalog lookup.
type Clustered struct {
	Design *Design
	Ports  []kit.Port
}

func (TypeRef) source()   {}
func (Embedded) source()  {}
func (Clustered) source() {}

func (TypeRef) Kind() string   { return "type" }
func (Embedded) Kind() string  { return "design" }
func (Clustered) Kind() string { return "cluster" }

// Piece is one node of a design graph.
//
// A piece with a Plane is fixed and roots the flattening. A piece without
// one is connected and gets its placement from its connections. Center is
// a diagram hint and is only meaningful on fixed pieces.
type Piece struct {
	ID          PieceID
	Source      Source
	Plane       *geom.Plane
	Center      *geom.Coord
	Description string
	Attributes  kit.Attributes
}

// NewTypePiece returns a connected piece of the given type.
func NewTypePiece(id PieceID, name, variant string) Piece {
	return Piece{ID: id, Source: TypeRef{Type: kit.TypeID{Name: name, Variant: variant}}}
}

// IsFixed reports whether the piece carries an explicit plane.
func (p *Piece) IsFixed() bool { return p.Plane != nil }

// TypeID returns the referenced type for regular pieces.
func (p *Piece) TypeID() (kit.TypeID, bool) {
	if r, ok := p.Source.(TypeRef); ok {
		return r.Type, true
	}
	return kit.TypeID{}, false
}

// IsDesign reports whether the piece is an embedded or clustered design.
func (p *Piece) IsDesign() bool {
	switch p.Source.(type) {
	case Embedded, Clustered:
		return true
	}
	return false
}

func (p *Piece) String() string {
	switch s := p.Source.(type) {
	case TypeRef:
		return fmt.Sprintf("%s (%s)", p.ID, s.Type)
	case Embedded:
		return fmt.Sprintf("%s (design %s)", p.ID, s.Design)
	case Clustered:
		return fmt.Sprintf("%s (cluster of %d)", p.ID, len(s.Design.Pieces))
	}
	return string(p.ID)
}

// Clone returns a deep copy.
func (p Piece) Clone() Piece {
	if p.Plane != nil {
		pl := *p.Plane
		p.Plane = &pl
	}
	if p.Center != nil {
		c := *p.Center
		p.Center = &c
	}
	p.Attributes = cloneAttributes(p.Attributes)
	if c, ok := p.Source.(Clustered); ok {
		ports := make([]kit.Port, len(c.Ports))
		for i, port := range c.Ports {
			port.CompatibleFamilies = append([]string(nil), port.CompatibleFamilies...)
			port.Attributes = cloneAttributes(port.Attributes)
			ports[i] = port
		}
		var sub *Design
		if c.Design != nil {
			sub = c.Design.Clone()
		}
		p.Source = Clustered{Design: sub, Ports: ports}
	}
	return p
}

func cloneAttributes(as kit.Attributes) kit.Attributes {
	if as == nil {
		return nil
	}
	return append(kit.Attributes(nil), as...)
}
