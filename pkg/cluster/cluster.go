// Package cluster contracts connected groups of pieces into single design
// nodes and expands them again.
package cluster

import (
	"fmt"
	"math"

	"github.com/chazu/semio/pkg/design"
	"github.com/chazu/semio/pkg/flatten"
	"github.com/chazu/semio/pkg/geom"
	"github.com/chazu/semio/pkg/kit"
	"github.com/google/uuid"
)

// NodePrefix is prepended to the sub-design name to form the id of the
// cluster node.
const NodePrefix = "design-"

// Options tune Cluster.
type Options struct {
	// Name of the clustered sub-design. Empty picks cluster-<uuid>.
	Name string
	// MaxExternal bounds the external connections of a candidate. Zero
	// disables the bound.
	MaxExternal int
	// Types resolves the ports of regular pieces so synthesized ports can
	// inherit their families. Nil leaves the families empty.
	Types design.TypeResolver
}

// Result is the outcome of a contraction.
type Result struct {
	Design *design.Design // the outer design with the node in place of the group
	Node   design.PieceID
	Anchor geom.Coord // diagram position of the node
}

// NodeID returns the id a cluster node for the named sub-design gets.
func NodeID(name string) design.PieceID {
	return design.PieceID(NodePrefix + name)
}

// Candidates partitions selection into groups that can be clustered:
// connected components of at least two pieces whose external connection
// count stays below maxExternal. A component with two external connections
// to the same outside piece is left out, since the node would be joined to
// that piece twice. Ids that are not pieces of d are ignored.
// Groups and their members follow design order.
func Candidates(d *design.Design, selection []design.PieceID, maxExternal int) [][]design.PieceID {
	selected := make(map[design.PieceID]bool, len(selection))
	for _, id := range selection {
		if p, _ := d.Piece(id); p != nil {
			selected[id] = true
		}
	}

	adjacent := make(map[design.PieceID][]design.PieceID)
	for i := range d.Connections {
		c := &d.Connections[i]
		a, b := c.Connecting.Piece, c.Connected.Piece
		if a == b || !selected[a] || !selected[b] {
			continue
		}
		adjacent[a] = append(adjacent[a], b)
		adjacent[b] = append(adjacent[b], a)
	}

	var groups [][]design.PieceID
	visited := make(map[design.PieceID]bool)
	for _, p := range d.Pieces {
		if !selected[p.ID] || visited[p.ID] {
			continue
		}
		members := map[design.PieceID]bool{p.ID: true}
		visited[p.ID] = true
		queue := []design.PieceID{p.ID}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, next := range adjacent[cur] {
				if !visited[next] {
					visited[next] = true
					members[next] = true
					queue = append(queue, next)
				}
			}
		}
		if len(members) < 2 {
			continue
		}
		external := externalConnections(d, members)
		if maxExternal > 0 && len(external) >= maxExternal {
			continue
		}
		if _, shared := sharedNeighbor(d, members, external); shared {
			continue
		}
		groups = append(groups, inDesignOrder(d, members))
	}
	return groups
}

// Explodable lists the cluster nodes of d in design order.
func Explodable(d *design.Design) []design.PieceID {
	var out []design.PieceID
	for _, p := range d.Pieces {
		if _, ok := p.Source.(design.Clustered); ok {
			out = append(out, p.ID)
		}
	}
	return out
}

// Cluster contracts the pieces ids of d into one node holding them as an
// inline sub-design. ids must form exactly one candidate group. placement
// supplies the diagram centers for the node anchor and may be nil.
//
// d is not modified.
func Cluster(d *design.Design, ids []design.PieceID, placement *flatten.Placement, opts Options) (*Result, error) {
	members := make(map[design.PieceID]bool, len(ids))
	for _, id := range ids {
		if p, _ := d.Piece(id); p == nil {
			return nil, design.Errorf(design.KindNotFound, id, "no such piece in design %s", d.ID())
		}
		members[id] = true
	}
	if outside, shared := sharedNeighbor(d, members, externalConnections(d, members)); shared {
		return nil, design.Errorf(design.KindInvalidContraction, outside,
			"more than one piece of the selection connects to %s", outside)
	}
	groups := Candidates(d, ids, opts.MaxExternal)
	if len(groups) != 1 || len(groups[0]) != len(members) {
		return nil, design.Errorf(design.KindInvalidContraction, "",
			"selection of %d pieces is not one connected group within the external connection limit", len(members))
	}

	name := opts.Name
	if name == "" {
		name = "cluster-" + uuid.NewString()
	}
	node := NodeID(name)
	if p, _ := d.Piece(node); p != nil {
		return nil, design.Errorf(design.KindInvalidContraction, node, "a piece with the cluster node id already exists")
	}

	sub := &design.Design{
		Name:        name,
		Unit:        d.Unit,
		Description: fmt.Sprintf("Clustered design with %d pieces", len(members)),
	}
	fixed := false
	for _, p := range d.Pieces {
		if members[p.ID] {
			sub.Pieces = append(sub.Pieces, p.Clone())
			fixed = fixed || p.IsFixed()
		}
	}

	external := externalConnections(d, members)
	ports := make([]kit.Port, len(external))
	repointed := make(map[int]design.Connection, len(external))
	for i, ci := range external {
		c := d.Connections[ci].Clone()
		inside, outside := &c.Connecting, &c.Connected
		if !members[inside.Piece] {
			inside, outside = outside, inside
		}
		ports[i] = synthesizePort(d, opts.Types, i, len(external), *inside, *outside)
		*inside = design.Side{Piece: node, Port: ports[i].ID, DesignPiece: inside.Piece}
		repointed[ci] = c
	}

	out := d.Clone()
	out.Pieces = out.Pieces[:0:0]
	out.Connections = out.Connections[:0:0]
	placedNode := false
	for _, p := range d.Pieces {
		if !members[p.ID] {
			out.Pieces = append(out.Pieces, p.Clone())
			continue
		}
		if placedNode {
			continue
		}
		placedNode = true
		out.Pieces = append(out.Pieces, design.Piece{ID: node, Description: sub.Description})
	}
	for i := range d.Connections {
		c := &d.Connections[i]
		if rc, ok := repointed[i]; ok {
			out.Connections = append(out.Connections, rc)
			continue
		}
		if members[c.Connecting.Piece] && members[c.Connected.Piece] {
			sub.Connections = append(sub.Connections, c.Clone())
			continue
		}
		out.Connections = append(out.Connections, c.Clone())
	}

	anchor := anchorOf(d, placement, members, external)
	nodePiece, _ := out.Piece(node)
	nodePiece.Source = design.Clustered{Design: sub, Ports: ports}
	if fixed {
		plane := geom.WorldPlane()
		nodePiece.Plane = &plane
		center := anchor
		nodePiece.Center = &center
	}

	return &Result{Design: out, Node: node, Anchor: anchor}, nil
}

// Explode replaces the cluster node with the pieces and connections it
// holds and points its external connections back at their original
// ports. It is the inverse of Cluster.
//
// d is not modified.
func Explode(d *design.Design, node design.PieceID) (*design.Design, error) {
	p, _ := d.Piece(node)
	if p == nil {
		return nil, design.Errorf(design.KindNotFound, node, "no such piece in design %s", d.ID())
	}
	cl, ok := p.Source.(design.Clustered)
	if !ok || cl.Design == nil {
		return nil, design.Errorf(design.KindInvalidContraction, node, "piece is not a cluster node")
	}

	out := d.Clone()
	out.Pieces = out.Pieces[:0:0]
	out.Connections = out.Connections[:0:0]
	for _, q := range d.Pieces {
		if q.ID != node {
			out.Pieces = append(out.Pieces, q.Clone())
			continue
		}
		for _, inner := range cl.Design.Pieces {
			out.Pieces = append(out.Pieces, inner.Clone())
		}
	}

	for i := range d.Connections {
		c := d.Connections[i].Clone()
		var side *design.Side
		switch node {
		case c.Connecting.Piece:
			side = &c.Connecting
		case c.Connected.Piece:
			side = &c.Connected
		default:
			out.Connections = append(out.Connections, c)
			continue
		}
		restored, err := originalSide(cl.Ports, node, side.Port)
		if err != nil {
			return nil, err
		}
		*side = restored
		out.Connections = append(out.Connections, c)
	}
	for _, c := range cl.Design.Connections {
		out.Connections = append(out.Connections, c.Clone())
	}
	return out, nil
}

// synthesizePort lays out port i of n on the unit-diameter circle of the
// node and records the boundary it replaces.
func synthesizePort(d *design.Design, types design.TypeResolver, i, n int, inside, outside design.Side) kit.Port {
	t := float64(i) / float64(n)
	a := 2 * math.Pi * t
	sin, cos := math.Sin(a), math.Cos(a)
	port := kit.Port{
		ID:        fmt.Sprintf("port-%d", i),
		Point:     geom.Point{X: 0.5 * sin, Y: 0.5 * cos},
		Direction: geom.Vector{X: sin, Y: cos},
		T:         t,
	}
	if orig := insidePort(d, types, inside); orig != nil {
		port.Family = orig.Family
		port.CompatibleFamilies = append([]string(nil), orig.CompatibleFamilies...)
	}
	port.Attributes = port.Attributes.
		With(design.AttrOriginalPieceID, string(inside.Piece)).
		With(design.AttrOriginalPortID, inside.Port).
		With(design.AttrExternalPieceID, string(outside.Piece)).
		With(design.AttrExternalPortID, outside.Port)
	if inside.DesignPiece != "" {
		port.Attributes = port.Attributes.With(design.AttrOriginalDesignPieceID, string(inside.DesignPiece))
	}
	return port
}

func insidePort(d *design.Design, types design.TypeResolver, side design.Side) *kit.Port {
	p, _ := d.Piece(side.Piece)
	if p == nil {
		return nil
	}
	if _, ok := p.Source.(design.TypeRef); ok && types == nil {
		return nil
	}
	ports, err := design.Ports(p, types)
	if err != nil {
		return nil
	}
	port, ok := kit.FindPort(ports, side.Port)
	if !ok {
		return nil
	}
	return port
}

func originalSide(ports []kit.Port, node design.PieceID, portID string) (design.Side, error) {
	port, ok := kit.FindPort(ports, portID)
	if !ok {
		return design.Side{}, design.Errorf(design.KindDanglingReference, node, "cluster has no port %q", portID).WithPort(portID)
	}
	piece, ok := port.Attributes.Get(design.AttrOriginalPieceID)
	if !ok {
		return design.Side{}, design.Errorf(design.KindInvalidContraction, node, "port %q does not record its original piece", portID).WithPort(portID)
	}
	orig, _ := port.Attributes.Get(design.AttrOriginalPortID)
	inner, _ := port.Attributes.Get(design.AttrOriginalDesignPieceID)
	return design.Side{Piece: design.PieceID(piece), Port: orig, DesignPiece: design.PieceID(inner)}, nil
}

// externalConnections returns the indexes of connections with exactly one
// side in members.
func externalConnections(d *design.Design, members map[design.PieceID]bool) []int {
	var out []int
	for i := range d.Connections {
		c := &d.Connections[i]
		if members[c.Connecting.Piece] != members[c.Connected.Piece] {
			out = append(out, i)
		}
	}
	return out
}

// sharedNeighbor returns the first outside piece reached by more than one
// of the external connections.
func sharedNeighbor(d *design.Design, members map[design.PieceID]bool, external []int) (design.PieceID, bool) {
	seen := make(map[design.PieceID]bool, len(external))
	for _, ci := range external {
		c := &d.Connections[ci]
		outside := c.Connected.Piece
		if members[outside] {
			outside = c.Connecting.Piece
		}
		if seen[outside] {
			return outside, true
		}
		seen[outside] = true
	}
	return "", false
}

// anchorOf averages the diagram centers of the external neighbors. With no
// placed neighbor it falls back to the members' own centers.
func anchorOf(d *design.Design, placement *flatten.Placement, members map[design.PieceID]bool, external []int) geom.Coord {
	if placement == nil {
		return geom.Coord{}
	}
	var sum geom.Coord
	n := 0
	for _, ci := range external {
		c := &d.Connections[ci]
		other := c.Connecting.Piece
		if members[other] {
			other = c.Connected.Piece
		}
		if center, ok := placement.Center(other); ok {
			sum = sum.Add(center)
			n++
		}
	}
	if n == 0 {
		for _, id := range inDesignOrder(d, members) {
			if center, ok := placement.Center(id); ok {
				sum = sum.Add(center)
				n++
			}
		}
	}
	if n == 0 {
		return geom.Coord{}
	}
	return sum.Scale(1 / float64(n))
}

func inDesignOrder(d *design.Design, members map[design.PieceID]bool) []design.PieceID {
	out := make([]design.PieceID, 0, len(members))
	for _, p := range d.Pieces {
		if members[p.ID] {
			out = append(out, p.ID)
		}
	}
	return out
}
