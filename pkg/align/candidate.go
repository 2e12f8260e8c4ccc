package align

import (
	"github.com/chazu/semio/pkg/catalog"
	"github.com/chazu/semio/pkg/design"
	"github.com/chazu/semio/pkg/flatten"
	"github.com/chazu/semio/pkg/geom"
	"github.com/chazu/semio/pkg/kit"
)

// Candidate is a proposed, uncommitted connection from the dragged piece
// to a nearby port.
type Candidate struct {
	Connection design.Connection
	Distance   float64 // world distance between the two ports
}

// Search holds the inputs of a candidate search. Planes overrides the
// placement for pieces that moved during the gesture. Screen positions the
// diagram nodes and is used for the connection's diagram offset.
type Search struct {
	Design    *design.Design
	Placement *flatten.Placement
	Catalog   catalog.Catalog
	Selection map[design.PieceID]bool
	Planes    map[design.PieceID]geom.Plane
	Screen    map[design.PieceID]geom.Coord
	Config    Config
}

// FindCandidate returns the nearest admissible port pair between dragged
// and an unselected piece, or nil. Pieces are visited in design order and
// ports in type order; only a strictly nearer pair replaces the current
// best.
func FindCandidate(s Search, dragged design.PieceID) *Candidate {
	piece, _ := s.Design.Piece(dragged)
	plane, ok := s.plane(dragged)
	if piece == nil || !ok {
		return nil
	}
	ports := s.ports(piece)
	if len(ports) == 0 {
		return nil
	}
	root, rooted := s.Placement.Roots[dragged]

	var best *Candidate
	for i := range s.Design.Pieces {
		other := &s.Design.Pieces[i]
		if other.ID == dragged || s.Selection[other.ID] {
			continue
		}
		otherPlane, ok := s.plane(other.ID)
		if !ok {
			continue
		}
		if s.Design.HasConnectionBetween(dragged, other.ID) {
			continue
		}
		if r, ok := s.Placement.Roots[other.ID]; ok && rooted && r == root {
			continue
		}
		for pi := range ports {
			port := &ports[pi]
			from := plane.Matrix().TransformPoint(port.Point)
			otherPorts := s.ports(other)
			for oi := range otherPorts {
				otherPort := &otherPorts[oi]
				if !design.ArePortsCompatible(s.Design, s.Catalog, dragged, port, other.ID, otherPort) {
					continue
				}
				dist := from.Distance(otherPlane.Matrix().TransformPoint(otherPort.Point))
				if dist >= s.Config.MaxSnapRadius {
					continue
				}
				if best != nil && dist >= best.Distance {
					continue
				}
				best = &Candidate{
					Connection: s.connection(dragged, port, other.ID, otherPort),
					Distance:   dist,
				}
			}
		}
	}
	return best
}

// connection builds the proposed connection. Its diagram offset is the
// residual vector between the two port handles.
func (s Search) connection(dragged design.PieceID, port *kit.Port, other design.PieceID, otherPort *kit.Port) design.Connection {
	c := design.Connection{
		Connecting: design.Side{Piece: dragged, Port: port.ID},
		Connected:  design.Side{Piece: other, Port: otherPort.ID},
	}
	from, okFrom := s.handle(dragged, port)
	to, okTo := s.handle(other, otherPort)
	if okFrom && okTo {
		offset := s.Config.Diagram(from.Sub(to))
		c.X, c.Y = offset.X, offset.Y
	}
	return c
}

func (s Search) handle(id design.PieceID, port *kit.Port) (geom.Coord, bool) {
	center, ok := s.Screen[id]
	if !ok {
		return geom.Coord{}, false
	}
	h := PortHandle(port.T, s.Config.IconWidth)
	return center.Add(geom.Coord{X: h.X, Y: h.Y - s.Config.IconWidth/2}), true
}

func (s Search) plane(id design.PieceID) (geom.Plane, bool) {
	if p, ok := s.Planes[id]; ok {
		return p, true
	}
	return s.Placement.Plane(id)
}

// ports returns the ports of a piece in the piece's own frame. Embedded
// designs offer none.
func (s Search) ports(p *design.Piece) []kit.Port {
	ports, err := design.Ports(p, s.Catalog)
	if err != nil {
		return nil
	}
	return ports
}
