package design

import (
	"fmt"

	"github.com/chazu/semio/pkg/kit"
)

// Side is one end of a connection. DesignPiece names the boundary piece
// inside an embedded or clustered design the side attaches to.
type Side struct {
	Piece       PieceID `json:"piece" yaml:"piece"`
	Port        string  `json:"port,omitempty" yaml:"port,omitempty"`
	DesignPiece PieceID `json:"designPiece,omitempty" yaml:"designPiece,omitempty"`
}

func (s Side) String() string {
	if s.DesignPiece != "" {
		return fmt.Sprintf("%s[%s].%s", s.Piece, s.DesignPiece, s.Port)
	}
	return fmt.Sprintf("%s.%s", s.Piece, s.Port)
}

// Connection joins two piece ports. Offsets are in the parent port frame;
// Rotation, Turn and Tilt are degrees. X and Y only move the diagram node.
type Connection struct {
	Connecting  Side           `json:"connecting" yaml:"connecting"`
	Connected   Side           `json:"connected" yaml:"connected"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Gap         float64        `json:"gap,omitempty" yaml:"gap,omitempty"`
	Shift       float64        `json:"shift,omitempty" yaml:"shift,omitempty"`
	Rise        float64        `json:"rise,omitempty" yaml:"rise,omitempty"`
	Rotation    float64        `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	Turn        float64        `json:"turn,omitempty" yaml:"turn,omitempty"`
	Tilt        float64        `json:"tilt,omitempty" yaml:"tilt,omitempty"`
	X           float64        `json:"x,omitempty" yaml:"x,omitempty"`
	Y           float64        `json:"y,omitempty" yaml:"y,omitempty"`
	Attributes  kit.Attributes `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// ConnectionID is the undirected identity of a connection: the pair of
// pieces it joins, in canonical order.
type ConnectionID struct {
	A PieceID `json:"a" yaml:"a"`
	B PieceID `json:"b" yaml:"b"`
}

// NewConnectionID returns the canonical id for the piece pair.
func NewConnectionID(a, b PieceID) ConnectionID {
	if b < a {
		a, b = b, a
	}
	return ConnectionID{A: a, B: b}
}

func (id ConnectionID) String() string {
	return fmt.Sprintf("%s--%s", id.A, id.B)
}

// ID returns the undirected identity.
func (c *Connection) ID() ConnectionID {
	return NewConnectionID(c.Connecting.Piece, c.Connected.Piece)
}

// Touches reports whether the connection has piece on either side.
func (c *Connection) Touches(piece PieceID) bool {
	return c.Connecting.Piece == piece || c.Connected.Piece == piece
}

// SideOf returns the side on piece and the opposite side.
func (c *Connection) SideOf(piece PieceID) (own, other Side, ok bool) {
	switch piece {
	case c.Connecting.Piece:
		return c.Connecting, c.Connected, true
	case c.Connected.Piece:
		return c.Connected, c.Connecting, true
	}
	return Side{}, Side{}, false
}

func (c Connection) String() string {
	return fmt.Sprintf("%s -> %s", c.Connecting, c.Connected)
}

// Clone returns a deep copy.
func (c Connection) Clone() Connection {
	c.Attributes = cloneAttributes(c.Attributes)
	return c
}
