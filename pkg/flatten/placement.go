package flatten

import (
	"errors"

	"github.com/chazu/semio/pkg/design"
	"github.com/chazu/semio/pkg/geom"
)

// Parent records how a connected piece was placed: the already placed
// piece it hangs off and the connection that carried it.
type Parent struct {
	Piece      design.PieceID
	Connection int // index into Design.Connections
}

// Placement is the derived, discardable result of flattening one design.
// It is recomputed from the committed design on every query and never
// cached by the engine.
type Placement struct {
	Design  *design.Design
	Order   []design.PieceID // placement order
	Planes  map[design.PieceID]geom.Plane
	Centers map[design.PieceID]geom.Coord
	Parents map[design.PieceID]Parent
	Roots   map[design.PieceID]design.PieceID // fixed piece each piece descends from
	Depth   map[design.PieceID]int
	Nested  map[design.PieceID]*Placement // per embedded or clustered piece, in its own frame
	Errors  []*design.Error
}

func newPlacement(d *design.Design) *Placement {
	return &Placement{
		Design:  d,
		Planes:  make(map[design.PieceID]geom.Plane),
		Centers: make(map[design.PieceID]geom.Coord),
		Parents: make(map[design.PieceID]Parent),
		Roots:   make(map[design.PieceID]design.PieceID),
		Depth:   make(map[design.PieceID]int),
		Nested:  make(map[design.PieceID]*Placement),
	}
}

// IsPlaced reports whether id received a plane.
func (p *Placement) IsPlaced(id design.PieceID) bool {
	_, ok := p.Planes[id]
	return ok
}

// Plane returns the world plane of id.
func (p *Placement) Plane(id design.PieceID) (geom.Plane, bool) {
	pl, ok := p.Planes[id]
	return pl, ok
}

// Center returns the diagram position of id.
func (p *Placement) Center(id design.PieceID) (geom.Coord, bool) {
	c, ok := p.Centers[id]
	return c, ok
}

// Governing returns the connection that placed id. Fixed and unplaced
// pieces have none.
func (p *Placement) Governing(id design.PieceID) (*design.Connection, bool) {
	parent, ok := p.Parents[id]
	if !ok {
		return nil, false
	}
	return &p.Design.Connections[parent.Connection], true
}

// Unplaced returns the pieces that did not receive a plane, in design
// order.
func (p *Placement) Unplaced() []design.PieceID {
	var out []design.PieceID
	for _, piece := range p.Design.AllPieces() {
		if !p.IsPlaced(piece.ID) {
			out = append(out, piece.ID)
		}
	}
	return out
}

// Err joins all placement errors, or returns nil.
func (p *Placement) Err() error {
	if len(p.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(p.Errors))
	for i, e := range p.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Walk visits every placed piece in design order with its world plane,
// descending into embedded and clustered pieces. path holds the chain of
// design pieces leading to the visited piece, ending with its own id.
func (p *Placement) Walk(fn func(path []design.PieceID, piece *design.Piece, world geom.Plane)) {
	p.walk(nil, geom.WorldPlane(), fn)
}

func (p *Placement) walk(prefix []design.PieceID, frame geom.Plane, fn func([]design.PieceID, *design.Piece, geom.Plane)) {
	all := p.Design.AllPieces()
	for i := range all {
		piece := &all[i]
		local, ok := p.Planes[piece.ID]
		if !ok {
			continue
		}
		world := frame.Compose(local)
		path := append(append([]design.PieceID(nil), prefix...), piece.ID)
		fn(path, piece, world)
		if nested, ok := p.Nested[piece.ID]; ok {
			nested.walk(path, world, fn)
		}
	}
}
