package align

import (
	"errors"

	"github.com/chazu/semio/pkg/catalog"
	"github.com/chazu/semio/pkg/design"
	"github.com/chazu/semio/pkg/flatten"
	"github.com/chazu/semio/pkg/geom"
)

// ErrGestureEnded is returned by Drag after End or Cancel.
var ErrGestureEnded = errors.New("align: gesture already ended")

// Frame is the outcome of one drag event.
type Frame struct {
	Piece     design.PieceID
	Position  geom.Coord // snapped screen centre of the dragged piece
	Delta     geom.Coord // screen offset from the gesture start
	Lines     []HelperLine
	Candidate *Candidate
}

// Gesture is one move gesture over a set of selected pieces. It works on
// the design and placement captured at Start and never touches anything
// else. A Gesture is not safe for concurrent use; the owning editor feeds
// it one event at a time.
type Gesture struct {
	cfg       Config
	snapshot  *design.Design
	placement *flatten.Placement
	cat       catalog.Catalog
	selection map[design.PieceID]bool
	start     map[design.PieceID]geom.Coord // screen centres at Start
	delta     geom.Coord
	proposed  map[design.PieceID]design.Connection
	snap      bool
	done      bool
}

// Start begins a gesture. snapshot and placement must describe the same
// committed design; the gesture keeps its own copy of the design.
func Start(snapshot *design.Design, placement *flatten.Placement, cat catalog.Catalog, selection []design.PieceID, cfg Config) *Gesture {
	g := &Gesture{
		cfg:       cfg,
		snapshot:  snapshot.Clone(),
		placement: placement,
		cat:       cat,
		selection: make(map[design.PieceID]bool, len(selection)),
		start:     make(map[design.PieceID]geom.Coord),
		proposed:  make(map[design.PieceID]design.Connection),
		snap:      true,
	}
	for _, id := range selection {
		g.selection[id] = true
	}
	for id, c := range placement.Centers {
		g.start[id] = cfg.Screen(c)
	}
	return g
}

// SetSnapping turns edge and equal-distance snapping and the candidate
// search on or off for the following drag events.
func (g *Gesture) SetSnapping(on bool) { g.snap = on }

// Selection returns the selected pieces in design order.
func (g *Gesture) Selection() []design.PieceID {
	var out []design.PieceID
	for _, p := range g.snapshot.AllPieces() {
		if g.selection[p.ID] {
			out = append(out, p.ID)
		}
	}
	return out
}

// Nodes returns the unselected diagram nodes in design order, at their
// gesture start positions.
func (g *Gesture) Nodes() []Node {
	var out []Node
	for _, p := range g.snapshot.AllPieces() {
		if g.selection[p.ID] {
			continue
		}
		if c, ok := g.start[p.ID]; ok {
			out = append(out, Node{ID: p.ID, Center: c})
		}
	}
	return out
}

// Drag moves piece so its screen centre is at pos and returns the snapped
// frame. The whole selection follows the dragged piece.
func (g *Gesture) Drag(piece design.PieceID, pos geom.Coord) (Frame, error) {
	if g.done {
		return Frame{}, ErrGestureEnded
	}
	if !g.selection[piece] {
		return Frame{}, design.Errorf(design.KindNotFound, piece, "piece is not part of the gesture selection")
	}
	origin, ok := g.start[piece]
	if !ok {
		return Frame{}, design.Errorf(design.KindDisconnectedGraph, piece, "piece has no diagram position")
	}

	f := Frame{Piece: piece, Position: pos}
	if g.snap {
		nodes := g.Nodes()
		var equal, edges []HelperLine
		f.Position, equal = SnapEqualDistance(f.Position, nodes, g.cfg)
		f.Position, edges = SnapEdges(f.Position, nodes, g.cfg)
		f.Lines = append(edges, equal...)
	}
	f.Delta = f.Position.Sub(origin)
	g.delta = f.Delta

	delete(g.proposed, piece)
	if g.snap {
		f.Candidate = FindCandidate(g.search(), piece)
		if f.Candidate != nil {
			g.proposed[piece] = f.Candidate.Connection
		}
	}
	return f, nil
}

// search describes the current frame for FindCandidate: selected pieces
// are moved by the gesture delta.
func (g *Gesture) search() Search {
	world := g.cfg.Diagram(g.delta)
	move := geom.Vector{X: world.X, Y: world.Y}
	planes := make(map[design.PieceID]geom.Plane, len(g.selection))
	screen := make(map[design.PieceID]geom.Coord, len(g.start))
	for id, c := range g.start {
		screen[id] = c
	}
	for id := range g.selection {
		if pl, ok := g.placement.Plane(id); ok {
			planes[id] = pl.Translate(move)
		}
		if c, ok := g.start[id]; ok {
			screen[id] = c.Add(g.delta)
		}
	}
	return Search{
		Design:    g.snapshot,
		Placement: g.placement,
		Catalog:   g.cat,
		Selection: g.selection,
		Planes:    planes,
		Screen:    screen,
		Config:    g.cfg,
	}
}

// Moved returns the snapshot with the diagram hints of the selection
// shifted by the current gesture offset: fixed pieces move their centre,
// connected pieces the offset of their governing connection.
func (g *Gesture) Moved() *design.Design {
	d := g.snapshot.Clone()
	offset := g.cfg.Diagram(g.delta)
	if offset == (geom.Coord{}) {
		return d
	}
	for i := range d.Pieces {
		p := &d.Pieces[i]
		if !g.selection[p.ID] {
			continue
		}
		if p.IsFixed() {
			c := geom.Coord{}
			if p.Center != nil {
				c = *p.Center
			}
			c = c.Add(offset)
			p.Center = &c
			continue
		}
		parent, ok := g.placement.Parents[p.ID]
		if !ok || g.selection[parent.Piece] {
			continue
		}
		conn := &d.Connections[parent.Connection]
		conn.X += offset.X
		conn.Y += offset.Y
	}
	return d
}

// End finishes the gesture and returns the proposed connections in
// selection order. The caller commits them.
func (g *Gesture) End() []design.Connection {
	var out []design.Connection
	if !g.done {
		for _, id := range g.Selection() {
			if c, ok := g.proposed[id]; ok {
				out = append(out, c)
			}
		}
	}
	g.done = true
	g.proposed = map[design.PieceID]design.Connection{}
	return out
}

// Cancel discards every proposal and returns the pre-gesture design.
func (g *Gesture) Cancel() *design.Design {
	g.done = true
	g.proposed = map[design.PieceID]design.Connection{}
	g.delta = geom.Coord{}
	return g.snapshot.Clone()
}

// Active reports whether the gesture still accepts drag events.
func (g *Gesture) Active() bool { return !g.done }
