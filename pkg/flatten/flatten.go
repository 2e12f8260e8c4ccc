// Package flatten turns a design graph into concrete placements: a world
// plane for every piece reachable from a fixed piece.
//
// Flattening walks the connection graph breadth-first from all fixed
// pieces at once, one layer at a time. Within a layer the connection list
// is scanned in order and the first connection that reaches an unplaced
// piece places it; later connections to an already placed piece are
// ignored. The result is deterministic.
package flatten

import (
	"fmt"
	"math"

	"github.com/chazu/semio/pkg/catalog"
	"github.com/chazu/semio/pkg/design"
	"github.com/chazu/semio/pkg/geom"
	"github.com/chazu/semio/pkg/kit"
)

// Flatten places every piece of d. Problems are collected in
// Placement.Errors; pieces that cannot be placed are left out of the
// plane map rather than given a default plane.
func Flatten(d *design.Design, cat catalog.Catalog) *Placement {
	f := &flattener{cat: cat, stack: map[design.DesignID]bool{d.ID(): true}}
	return f.flatten(d, false)
}

type flattener struct {
	cat   catalog.Catalog
	stack map[design.DesignID]bool // designs being flattened, for recursion checks
}

// run holds the state of one design's flattening.
type run struct {
	*flattener
	d        *design.Design
	res      *Placement
	pieces   map[design.PieceID]*design.Piece
	usable   []bool
	types    map[design.PieceID]*kit.Type
	missing  map[design.PieceID]*design.Error
	reported map[string]bool
}

func (f *flattener) flatten(d *design.Design, nested bool) *Placement {
	r := &run{
		flattener: f,
		d:         d,
		res:       newPlacement(d),
		pieces:    make(map[design.PieceID]*design.Piece),
		usable:    make([]bool, len(d.Connections)),
		types:     make(map[design.PieceID]*kit.Type),
		missing:   make(map[design.PieceID]*design.Error),
		reported:  make(map[string]bool),
	}

	all := d.AllPieces()
	for i := range all {
		p := &all[i]
		if _, dup := r.pieces[p.ID]; dup {
			r.fail(design.Errorf(design.KindDuplicatePiece, p.ID, "duplicate piece id"))
			continue
		}
		r.pieces[p.ID] = p
	}

	r.resolveSources(all)
	r.indexConnections()

	// Multi-source BFS from every fixed piece.
	for i := range all {
		p := &all[i]
		if !p.IsFixed() || r.res.IsPlaced(p.ID) {
			continue
		}
		var center geom.Coord
		if p.Center != nil {
			center = *p.Center
		}
		r.placeRoot(p.ID, *p.Plane, center)
	}
	r.bfs()

	// Inside a nested design, components without a fixed piece hang off
	// the design's own frame.
	if nested {
		for i := range all {
			p := &all[i]
			if r.res.IsPlaced(p.ID) {
				continue
			}
			r.placeRoot(p.ID, geom.WorldPlane(), geom.Coord{})
			r.bfs()
		}
	}

	for i := range all {
		p := &all[i]
		if !r.res.IsPlaced(p.ID) {
			r.fail(design.Errorf(design.KindDisconnectedGraph, p.ID, "no path to a fixed piece"))
		}
	}

	r.centerClusters(all)
	return r.res
}

// resolveSources resolves every type and nested design up front so each
// missing reference is reported once.
func (r *run) resolveSources(all []design.Piece) {
	for i := range all {
		p := &all[i]
		switch s := p.Source.(type) {
		case design.TypeRef:
			t, err := r.cat.ResolveType(s.Type.Name, s.Type.Variant)
			if err != nil {
				r.unresolved(p.ID, design.Errorf(design.KindNotFound, p.ID, "type %s: %v", s.Type, err))
				continue
			}
			r.types[p.ID] = t
		case design.Embedded:
			if r.stack[s.Design] {
				r.unresolved(p.ID, design.Errorf(design.KindDanglingReference, p.ID, "design %s embeds itself", s.Design))
				continue
			}
			sub, err := r.cat.ResolveDesign(s.Design)
			if err != nil {
				r.unresolved(p.ID, design.Errorf(design.KindNotFound, p.ID, "design %s: %v", s.Design, err))
				continue
			}
			r.stack[s.Design] = true
			r.nest(p.ID, r.flattener.flatten(sub, true))
			delete(r.stack, s.Design)
		case design.Clustered:
			if s.Design == nil {
				r.unresolved(p.ID, design.Errorf(design.KindNotFound, p.ID, "cluster has no sub-design"))
				continue
			}
			r.nest(p.ID, r.flattener.flatten(s.Design, true))
		case nil:
			r.unresolved(p.ID, design.Errorf(design.KindNotFound, p.ID, "piece has no source"))
		}
	}
}

func (r *run) unresolved(id design.PieceID, e *design.Error) {
	r.missing[id] = e
	r.fail(e)
}

func (r *run) nest(id design.PieceID, sub *Placement) {
	r.res.Nested[id] = sub
	for _, e := range sub.Errors {
		c := *e
		c.Message = fmt.Sprintf("inside %s: %s", id, e.Message)
		r.fail(&c)
	}
}

// indexConnections marks the connections that can take part in placement
// and reports the others: self connections, missing pieces and sides whose
// port does not resolve.
func (r *run) indexConnections() {
	for i := range r.d.Connections {
		c := &r.d.Connections[i]
		a, b := c.Connecting.Piece, c.Connected.Piece
		if a == b {
			r.fail(design.Errorf(design.KindInvalidConnection, a, "connection %d joins the piece to itself", i))
			continue
		}
		ok := true
		for _, id := range []design.PieceID{a, b} {
			if _, exists := r.pieces[id]; !exists {
				r.fail(design.Errorf(design.KindDanglingReference, id, "connection %s references a missing piece", c.ID()))
				ok = false
			}
		}
		if !ok {
			continue
		}
		// Ports are checked on every connection, not just the ones the
		// walk ends up using. Sides on unresolved pieces are already
		// reported and only make the connection unusable.
		for _, side := range []design.Side{c.Connecting, c.Connected} {
			if _, err := r.port(side); err != nil {
				if _, unresolved := r.missing[side.Piece]; !unresolved {
					r.fail(err)
				}
				ok = false
			}
		}
		r.usable[i] = ok
	}
}

func (r *run) placeRoot(id design.PieceID, plane geom.Plane, center geom.Coord) {
	r.res.Planes[id] = plane
	r.res.Centers[id] = center
	r.res.Roots[id] = id
	r.res.Depth[id] = 0
	r.res.Order = append(r.res.Order, id)
}

// bfs places pieces layer by layer until no connection makes progress.
// Only pieces placed in earlier layers act as parents.
func (r *run) bfs() {
	for {
		settled := make(map[design.PieceID]bool, len(r.res.Planes))
		for id := range r.res.Planes {
			settled[id] = true
		}

		progressed := false
		for ci := range r.d.Connections {
			if !r.usable[ci] {
				continue
			}
			c := &r.d.Connections[ci]
			var parent, child design.Side
			switch {
			case settled[c.Connecting.Piece] && !r.res.IsPlaced(c.Connected.Piece):
				parent, child = c.Connecting, c.Connected
			case settled[c.Connected.Piece] && !r.res.IsPlaced(c.Connecting.Piece):
				parent, child = c.Connected, c.Connecting
			default:
				continue
			}
			if r.placeChild(parent, child, ci) {
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}

func (r *run) placeChild(parentSide, childSide design.Side, ci int) bool {
	c := &r.d.Connections[ci]
	parent := parentSide.Piece
	parentPort, err := r.port(parentSide)
	if err != nil {
		r.fail(err)
		return false
	}
	childPort, err := r.port(childSide)
	if err != nil {
		r.fail(err)
		return false
	}

	child := childSide.Piece
	r.res.Planes[child] = ChildPlane(r.res.Planes[parent], parentPort, childPort, c)
	r.res.Centers[child] = ChildCenter(r.res.Centers[parent], c)
	r.res.Parents[child] = Parent{Piece: parent, Connection: ci}
	r.res.Roots[child] = r.res.Roots[parent]
	r.res.Depth[child] = r.res.Depth[parent] + 1
	r.res.Order = append(r.res.Order, child)
	return true
}

// port resolves the port a side attaches to, in the frame of its piece.
func (r *run) port(side design.Side) (*kit.Port, *design.Error) {
	p := r.pieces[side.Piece]
	if e, ok := r.missing[p.ID]; ok {
		return nil, e
	}
	switch s := p.Source.(type) {
	case design.TypeRef:
		t := r.types[p.ID]
		port, ok := t.Port(side.Port)
		if !ok {
			return nil, design.Errorf(design.KindDanglingReference, p.ID, "type %s has no port %q", s.Type, side.Port).WithPort(side.Port)
		}
		return port, nil

	case design.Clustered:
		port, ok := kit.FindPort(s.Ports, side.Port)
		if !ok {
			return nil, design.Errorf(design.KindDanglingReference, p.ID, "cluster has no port %q", side.Port).WithPort(side.Port)
		}
		// A synthesized port that still knows its boundary piece resolves
		// to the real port so the cluster keeps its geometry.
		inner, hasInner := port.Attributes.Get(design.AttrOriginalPieceID)
		innerPort, _ := port.Attributes.Get(design.AttrOriginalPortID)
		if hasInner && r.res.Nested[p.ID].IsPlaced(design.PieceID(inner)) {
			return r.innerPort(p.ID, r.res.Nested[p.ID], design.PieceID(inner), innerPort)
		}
		return port, nil

	case design.Embedded:
		if side.DesignPiece == "" {
			return nil, design.Errorf(design.KindDanglingReference, p.ID, "side does not name a piece inside design %s", s.Design)
		}
		return r.innerPort(p.ID, r.res.Nested[p.ID], side.DesignPiece, side.Port)
	}
	return nil, design.Errorf(design.KindNotFound, p.ID, "unknown piece source %T", p.Source)
}

// innerPort returns port of the nested piece inner, moved into the frame
// of the design piece that holds it.
func (r *run) innerPort(holder design.PieceID, sub *Placement, inner design.PieceID, portID string) (*kit.Port, *design.Error) {
	piece, _ := sub.Design.Piece(inner)
	innerPlane, placed := sub.Planes[inner]
	if piece == nil || !placed {
		return nil, design.Errorf(design.KindDanglingReference, holder, "design %s has no placed piece %s", sub.Design.ID(), inner)
	}
	ports, err := design.Ports(piece, r.cat)
	if err != nil {
		return nil, design.Errorf(design.KindNotFound, holder, "piece %s: %v", inner, err)
	}
	port, ok := kit.FindPort(ports, portID)
	if !ok {
		return nil, design.Errorf(design.KindDanglingReference, holder, "piece %s has no port %q", inner, portID).WithPort(portID)
	}
	m := innerPlane.Matrix()
	moved := *port
	moved.Point = m.TransformPoint(port.Point)
	moved.Direction = m.TransformVector(port.Direction)
	return &moved, nil
}

// centerClusters moves cluster nodes to the centroid of their neighbors
// in the diagram.
func (r *run) centerClusters(all []design.Piece) {
	for i := range all {
		p := &all[i]
		if _, ok := p.Source.(design.Clustered); !ok || !r.res.IsPlaced(p.ID) {
			continue
		}
		if c, ok := NeighborCentroid(r.d, r.res, p.ID); ok {
			r.res.Centers[p.ID] = c
		}
	}
}

func (r *run) fail(e *design.Error) {
	key := e.Error()
	if r.reported[key] {
		return
	}
	r.reported[key] = true
	r.res.Errors = append(r.res.Errors, e)
}

// NeighborCentroid averages the diagram centers of the placed pieces
// connected to id.
func NeighborCentroid(d *design.Design, p *Placement, id design.PieceID) (geom.Coord, bool) {
	var sum geom.Coord
	n := 0
	for _, ci := range d.ConnectionsOf(id) {
		_, other, _ := d.Connections[ci].SideOf(id)
		c, ok := p.Centers[other.Piece]
		if !ok {
			continue
		}
		sum = sum.Add(c)
		n++
	}
	if n == 0 {
		return geom.Coord{}, false
	}
	return sum.Scale(1 / float64(n)), true
}

// ChildCenter places a connected piece in the diagram: the parent center
// moved by the connection's x/y offset plus one unit in that direction.
func ChildCenter(parent geom.Coord, c *design.Connection) geom.Coord {
	offset := geom.Coord{X: c.X, Y: c.Y}
	return parent.Add(offset).Add(offset.Unit())
}

// ChildPlane computes the world plane of the piece on the child side of c
// given the parent's world plane.
//
// The child port is turned to face against the parent port, rotated about
// the parent port direction, turned and tilted about the rotated local
// axes, and moved by gap along the direction, shift and rise across it.
func ChildPlane(parent geom.Plane, parentPort, childPort *kit.Port, c *design.Connection) geom.Plane {
	pd := parentPort.Direction.Unit()
	reversed := childPort.Direction.Unit().Neg()

	var align geom.Matrix
	if reversed.Dot(pd) <= -1+geom.Tolerance {
		// Both ports face the same way: half turn about z, or about an
		// axis perpendicular to the parent direction when it leaves the
		// xy plane.
		axis := geom.ZAxis
		if math.Abs(pd.Z) >= geom.Tolerance {
			axis = geom.ZAxis.Cross(pd)
			if axis.IsZero() {
				axis = geom.XAxis
			}
		}
		align = geom.Rotation(axis, math.Pi)
	} else {
		align = geom.RotationBetween(reversed, pd)
	}

	rotate := geom.Rotation(pd, -geom.Radians(c.Rotation))
	orient := rotate.Mul(align)

	frame := geom.RotationBetween(geom.YAxis, pd)
	gapDir := pd
	shiftDir := frame.TransformVector(geom.XAxis)
	riseDir := frame.TransformVector(geom.ZAxis)

	turnAxis := rotate.TransformVector(riseDir)
	tiltAxis := rotate.TransformVector(shiftDir)
	orient = geom.Rotation(turnAxis, geom.Radians(c.Turn)).Mul(orient)
	orient = geom.Rotation(tiltAxis, geom.Radians(c.Tilt)).Mul(orient)

	offset := gapDir.Scale(c.Gap).Add(shiftDir.Scale(c.Shift)).Add(riseDir.Scale(c.Rise))
	local := geom.Translation(parentPort.Point.Vector().Add(offset)).
		Mul(orient).
		Mul(geom.Translation(childPort.Point.Vector().Neg()))

	return geom.PlaneFromMatrix(parent.Matrix().Mul(local))
}
