// Package design holds the mutable graph an editor works on: pieces joined
// by parametric connections.
//
// Nothing in this package computes placements; see package flatten.
package design

import (
	"fmt"

	"github.com/chazu/semio/pkg/geom"
	"github.com/chazu/semio/pkg/kit"
)

// DesignID identifies a design within a kit.
type DesignID struct {
	Name    string `json:"name" yaml:"name"`
	Variant string `json:"variant,omitempty" yaml:"variant,omitempty"`
	View    string `json:"view,omitempty" yaml:"view,omitempty"`
}

func (id DesignID) String() string {
	s := id.Name
	if id.Variant != "" {
		s += "/" + id.Variant
	}
	if id.View != "" {
		s += "@" + id.View
	}
	return s
}

// FixedDesign embeds another design at an explicit plane without any
// connection.
type FixedDesign struct {
	Design DesignID    `json:"design" yaml:"design"`
	Plane  geom.Plane  `json:"plane" yaml:"plane"`
	Center *geom.Coord `json:"center,omitempty" yaml:"center,omitempty"`
}

// PieceID returns the id of the synthetic piece the embedding materializes
// as.
func (f FixedDesign) PieceID() PieceID {
	return PieceID(fmt.Sprintf("fixed-design-%s-%s-%s", f.Design.Name, f.Design.Variant, f.Design.View))
}

// Design is a graph of pieces and connections.
type Design struct {
	Name         string         `json:"name" yaml:"name"`
	Variant      string         `json:"variant,omitempty" yaml:"variant,omitempty"`
	View         string         `json:"view,omitempty" yaml:"view,omitempty"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty"`
	Unit         string         `json:"unit,omitempty" yaml:"unit,omitempty"`
	Pieces       []Piece        `json:"pieces,omitempty" yaml:"pieces,omitempty"`
	Connections  []Connection   `json:"connections,omitempty" yaml:"connections,omitempty"`
	FixedDesigns []FixedDesign  `json:"fixedDesigns,omitempty" yaml:"fixedDesigns,omitempty"`
	Attributes   kit.Attributes `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// New returns an empty design.
func New(name string) *Design {
	return &Design{Name: name}
}

// ID returns the design's identity triple.
func (d *Design) ID() DesignID {
	return DesignID{Name: d.Name, Variant: d.Variant, View: d.View}
}

// Piece returns the piece with the given id and its index, or nil and -1.
func (d *Design) Piece(id PieceID) (*Piece, int) {
	for i := range d.Pieces {
		if d.Pieces[i].ID == id {
			return &d.Pieces[i], i
		}
	}
	return nil, -1
}

// Connection returns the connection with the given id and its index, or
// nil and -1.
func (d *Design) Connection(id ConnectionID) (*Connection, int) {
	for i := range d.Connections {
		if d.Connections[i].ID() == id {
			return &d.Connections[i], i
		}
	}
	return nil, -1
}

// ConnectionsOf returns the indices of all connections touching piece, in
// list order.
func (d *Design) ConnectionsOf(piece PieceID) []int {
	var out []int
	for i := range d.Connections {
		if d.Connections[i].Touches(piece) {
			out = append(out, i)
		}
	}
	return out
}

// AllPieces returns the design's pieces followed by one embedded piece per
// fixed design.
func (d *Design) AllPieces() []Piece {
	if len(d.FixedDesigns) == 0 {
		return d.Pieces
	}
	out := make([]Piece, 0, len(d.Pieces)+len(d.FixedDesigns))
	out = append(out, d.Pieces...)
	for _, fd := range d.FixedDesigns {
		plane := fd.Plane
		out = append(out, Piece{
			ID:     fd.PieceID(),
			Source: Embedded{Design: fd.Design},
			Plane:  &plane,
			Center: fd.Center,
		})
	}
	return out
}

// Clone returns a deep copy. Editors clone before every mutation so a
// design handed to the engine is never changed underneath it.
func (d *Design) Clone() *Design {
	if d == nil {
		return nil
	}
	c := *d
	if d.Pieces != nil {
		c.Pieces = make([]Piece, len(d.Pieces))
		for i, p := range d.Pieces {
			c.Pieces[i] = p.Clone()
		}
	}
	if d.Connections != nil {
		c.Connections = make([]Connection, len(d.Connections))
		for i, conn := range d.Connections {
			c.Connections[i] = conn.Clone()
		}
	}
	if d.FixedDesigns != nil {
		c.FixedDesigns = make([]FixedDesign, len(d.FixedDesigns))
		for i, fd := range d.FixedDesigns {
			if fd.Center != nil {
				center := *fd.Center
				fd.Center = &center
			}
			c.FixedDesigns[i] = fd
		}
	}
	c.Attributes = cloneAttributes(d.Attributes)
	return &c
}

// TypeResolver resolves catalog types by name and variant.
type TypeResolver interface {
	ResolveType(name, variant string) (*kit.Type, error)
}

// Ports returns the ports a piece exposes. Regular pieces expose their
// type's ports, clusters their synthesized ports. Embedded designs expose
// the ports of their inner pieces and return nil here.
func Ports(p *Piece, types TypeResolver) ([]kit.Port, error) {
	switch s := p.Source.(type) {
	case TypeRef:
		t, err := types.ResolveType(s.Type.Name, s.Type.Variant)
		if err != nil {
			return nil, err
		}
		return t.Ports, nil
	case Clustered:
		return s.Ports, nil
	}
	return nil, nil
}

// DesignResolver resolves embedded designs. Resolvers passed to the
// occupancy queries may implement it so sides on embedded designs resolve
// through their inner piece.
type DesignResolver interface {
	ResolveDesign(id DesignID) (*Design, error)
}

// CanonicalSide returns s with its port replaced by the id of the port it
// resolves to, so the default port and the port it falls back to compare
// equal. Sides that do not resolve, or a nil resolver, leave s unchanged.
func CanonicalSide(d *Design, types TypeResolver, s Side) Side {
	if types == nil {
		return s
	}
	p := pieceByID(d, s.Piece)
	if p == nil {
		return s
	}
	if emb, ok := p.Source.(Embedded); ok {
		designs, ok := types.(DesignResolver)
		if !ok || s.DesignPiece == "" {
			return s
		}
		sub, err := designs.ResolveDesign(emb.Design)
		if err != nil {
			return s
		}
		if p = pieceByID(sub, s.DesignPiece); p == nil {
			return s
		}
	}
	ports, err := Ports(p, types)
	if err != nil {
		return s
	}
	if port, ok := kit.FindPort(ports, s.Port); ok {
		s.Port = port.ID
	}
	return s
}

// SideInUse reports whether a connection of d already occupies the port s
// attaches to. Ports compare after CanonicalSide; for embedded designs the
// inner piece is part of the identity.
func SideInUse(d *Design, types TypeResolver, s Side) bool {
	s = CanonicalSide(d, types, s)
	for i := range d.Connections {
		c := &d.Connections[i]
		for _, o := range []Side{c.Connecting, c.Connected} {
			if o.Piece != s.Piece || o.DesignPiece != s.DesignPiece {
				continue
			}
			if CanonicalSide(d, types, o).Port == s.Port {
				return true
			}
		}
	}
	return false
}

// IsPortInUse reports whether any connection in d already occupies
// piece+port on either side. With a resolver, the default port and the
// port it falls back to are the same port.
func IsPortInUse(d *Design, types TypeResolver, piece PieceID, port string) bool {
	target := CanonicalSide(d, types, Side{Piece: piece, Port: port}).Port
	for i := range d.Connections {
		c := &d.Connections[i]
		for _, o := range []Side{c.Connecting, c.Connected} {
			if o.Piece == piece && CanonicalSide(d, types, o).Port == target {
				return true
			}
		}
	}
	return false
}

// ArePortsCompatible reports whether port a on piece pa may be connected to
// port b on piece pb: the families must match in both directions and
// neither port may be in use already.
func ArePortsCompatible(d *Design, types TypeResolver, pa PieceID, a *kit.Port, pb PieceID, b *kit.Port) bool {
	if !kit.FamiliesCompatible(a, b) {
		return false
	}
	return !IsPortInUse(d, types, pa, a.ID) && !IsPortInUse(d, types, pb, b.ID)
}

func pieceByID(d *Design, id PieceID) *Piece {
	if p, _ := d.Piece(id); p != nil {
		return p
	}
	all := d.AllPieces()
	for i := len(d.Pieces); i < len(all); i++ {
		if all[i].ID == id {
			return &all[i]
		}
	}
	return nil
}

// HasConnectionBetween reports whether a and b already share a connection.
func (d *Design) HasConnectionBetween(a, b PieceID) bool {
	c, _ := d.Connection(NewConnectionID(a, b))
	return c != nil
}
