package cluster

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/chazu/semio/pkg/catalog"
	"github.com/chazu/semio/pkg/design"
	"github.com/chazu/semio/pkg/flatten"
	"github.com/chazu/semio/pkg/geom"
	"github.com/chazu/semio/pkg/kit"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func testKit() *catalog.Kit {
	return &catalog.Kit{
		Name: "test",
		Types: []kit.Type{{
			Name: "box",
			Ports: []kit.Port{
				{ID: "left", Direction: geom.XAxis.Neg(), Family: "face", CompatibleFamilies: []string{"face"}},
				{ID: "right", Point: geom.Point{X: 1}, Direction: geom.XAxis, Family: "face", CompatibleFamilies: []string{"face"}},
				{ID: "top", Point: geom.Point{Z: 1}, Direction: geom.ZAxis},
			},
		}},
	}
}

func link(a design.PieceID, ap string, b design.PieceID, bp string) design.Connection {
	return design.Connection{
		Connecting: design.Side{Piece: a, Port: ap},
		Connected:  design.Side{Piece: b, Port: bp},
	}
}

// row is a fixed piece a followed by b, c, d in a row with e on top of c.
func row() *design.Design {
	plane := geom.WorldPlane()
	a := design.NewTypePiece("a", "box", "")
	a.Plane = &plane
	c := link("c", "right", "d", "left")
	c.Gap = 0.25
	c.X = 2
	return &design.Design{
		Name: "row",
		Pieces: []design.Piece{
			a,
			design.NewTypePiece("b", "box", ""),
			design.NewTypePiece("c", "box", ""),
			design.NewTypePiece("d", "box", ""),
			design.NewTypePiece("e", "box", ""),
		},
		Connections: []design.Connection{
			link("a", "right", "b", "left"),
			link("b", "right", "c", "left"),
			c,
			link("c", "top", "e", "left"),
		},
	}
}

var normalize = cmp.Options{
	cmpopts.EquateEmpty(),
	cmpopts.SortSlices(func(a, b design.Piece) bool { return a.ID < b.ID }),
	cmpopts.SortSlices(func(a, b design.Connection) bool {
		ia, ib := a.ID(), b.ID()
		return ia.String() < ib.String()
	}),
}

func TestCandidates(t *testing.T) {
	d := row()
	tests := []struct {
		name        string
		selection   []design.PieceID
		maxExternal int
		want        [][]design.PieceID
	}{
		{"single piece", []design.PieceID{"b"}, 0, nil},
		{"connected pair", []design.PieceID{"c", "b"}, 0, [][]design.PieceID{{"b", "c"}}},
		{"two components", []design.PieceID{"a", "b", "d", "e"}, 0, [][]design.PieceID{{"a", "b"}}},
		{"under limit", []design.PieceID{"b", "c"}, 4, [][]design.PieceID{{"b", "c"}}},
		{"at limit", []design.PieceID{"b", "c"}, 3, nil},
		{"unknown ids ignored", []design.PieceID{"b", "c", "zz"}, 0, [][]design.PieceID{{"b", "c"}}},
		{"disconnected selection", []design.PieceID{"a", "d"}, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Candidates(d, tt.selection, tt.maxExternal)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Candidates (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCandidatesPartitionSelection(t *testing.T) {
	d := row()
	d.Pieces = append(d.Pieces, design.NewTypePiece("f", "box", ""), design.NewTypePiece("g", "box", ""))
	d.Connections = append(d.Connections, link("f", "right", "g", "left"))

	groups := Candidates(d, []design.PieceID{"g", "a", "b", "f"}, 0)
	seen := make(map[design.PieceID]int)
	for _, g := range groups {
		for _, id := range g {
			seen[id]++
		}
	}
	for id, n := range seen {
		if n > 1 {
			t.Errorf("piece %s appears in %d groups", id, n)
		}
	}
	want := [][]design.PieceID{{"a", "b"}, {"f", "g"}}
	if diff := cmp.Diff(want, groups); diff != "" {
		t.Errorf("groups (-want +got):\n%s", diff)
	}
}

func TestClusterSynthesizesPorts(t *testing.T) {
	d := row()
	res, err := Cluster(d, []design.PieceID{"c", "d"}, nil, Options{Name: "middle", Types: testKit()})
	if err != nil {
		t.Fatal(err)
	}
	if res.Node != "design-middle" {
		t.Errorf("node = %s", res.Node)
	}
	node, _ := res.Design.Piece(res.Node)
	if node == nil {
		t.Fatal("node missing from clustered design")
	}
	cl, ok := node.Source.(design.Clustered)
	if !ok {
		t.Fatalf("node source = %T", node.Source)
	}
	if node.IsFixed() {
		t.Error("cluster without a fixed piece should stay connected")
	}
	if got := len(cl.Design.Pieces); got != 2 {
		t.Errorf("sub-design has %d pieces, want 2", got)
	}
	if got := len(cl.Design.Connections); got != 1 {
		t.Errorf("sub-design has %d connections, want 1", got)
	}

	// b--c and c--e cross the boundary.
	if len(cl.Ports) != 2 {
		t.Fatalf("got %d synthesized ports, want 2", len(cl.Ports))
	}
	second := cl.Ports[1]
	if second.T != 0.5 {
		t.Errorf("second port t = %v, want 0.5", second.T)
	}
	if !second.Point.ApproxEqual(geom.Point{Y: -0.5}, 1e-9) {
		t.Errorf("second port point = %+v", second.Point)
	}
	if !second.Direction.ApproxEqual(geom.Vector{Y: -1}, 1e-9) {
		t.Errorf("second port direction = %+v", second.Direction)
	}
	first := cl.Ports[0]
	if first.Family != "face" {
		t.Errorf("first port family = %q, want face", first.Family)
	}
	for key, want := range map[string]string{
		design.AttrOriginalPieceID: "c",
		design.AttrOriginalPortID:  "left",
		design.AttrExternalPieceID: "b",
		design.AttrExternalPortID:  "right",
	} {
		if got, _ := first.Attributes.Get(key); got != want {
			t.Errorf("first port %s = %q, want %q", key, got, want)
		}
	}

	var toNode int
	for _, c := range res.Design.Connections {
		if c.Touches(res.Node) {
			toNode++
		}
		if c.Touches("c") || c.Touches("d") {
			t.Errorf("connection %s still references a clustered piece", c)
		}
	}
	if toNode != 2 {
		t.Errorf("%d connections reach the node, want 2", toNode)
	}
}

func TestClusterKeepsOffsets(t *testing.T) {
	d := row()
	d.Connections[1].Gap = 1.5
	d.Connections[1].Rotation = 90
	res, err := Cluster(d, []design.PieceID{"c", "d"}, nil, Options{Name: "middle"})
	if err != nil {
		t.Fatal(err)
	}
	c, _ := res.Design.Connection(design.NewConnectionID("b", res.Node))
	if c == nil {
		t.Fatal("external connection missing")
	}
	if c.Gap != 1.5 || c.Rotation != 90 {
		t.Errorf("offsets changed: gap %v rotation %v", c.Gap, c.Rotation)
	}
	if c.Connected.DesignPiece != "c" {
		t.Errorf("repointed side design piece = %q, want c", c.Connected.DesignPiece)
	}
}

func TestClusterExplodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		ids  []design.PieceID
	}{
		{"interior", []design.PieceID{"c", "d"}},
		{"with fixed piece", []design.PieceID{"a", "b"}},
		{"leaf", []design.PieceID{"d", "c", "e"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := row()
			res, err := Cluster(d, tt.ids, nil, Options{Types: testKit()})
			if err != nil {
				t.Fatal(err)
			}
			back, err := Explode(res.Design, res.Node)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(row(), back, normalize); diff != "" {
				t.Errorf("explode(cluster(d)) != d (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClusterDoesNotMutateInput(t *testing.T) {
	d := row()
	if _, err := Cluster(d, []design.PieceID{"b", "c"}, nil, Options{}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(row(), d); diff != "" {
		t.Errorf("input mutated (-want +got):\n%s", diff)
	}
}

func TestClusterDefaultName(t *testing.T) {
	res, err := Cluster(row(), []design.PieceID{"b", "c"}, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(res.Node), "design-cluster-") {
		t.Errorf("node id = %s", res.Node)
	}
}

func TestClusterRejectsNonCandidate(t *testing.T) {
	tests := []struct {
		name string
		ids  []design.PieceID
		opts Options
		want error
	}{
		{"single", []design.PieceID{"b"}, Options{}, design.ErrInvalidContraction},
		{"disconnected", []design.PieceID{"a", "d"}, Options{}, design.ErrInvalidContraction},
		{"too many external", []design.PieceID{"b", "c"}, Options{MaxExternal: 2}, design.ErrInvalidContraction},
		{"unknown piece", []design.PieceID{"b", "zz"}, Options{}, design.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Cluster(row(), tt.ids, nil, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClusterAnchorIsExternalCentroid(t *testing.T) {
	d := row()
	placement := flatten.Flatten(d, testKit())
	res, err := Cluster(d, []design.PieceID{"c", "d"}, placement, Options{Name: "m"})
	if err != nil {
		t.Fatal(err)
	}
	bc, _ := placement.Center("b")
	ec, _ := placement.Center("e")
	want := bc.Add(ec).Scale(0.5)
	if math.Abs(res.Anchor.X-want.X) > 1e-9 || math.Abs(res.Anchor.Y-want.Y) > 1e-9 {
		t.Errorf("anchor = %+v, want %+v", res.Anchor, want)
	}
}

func TestClusteredDesignKeepsWorldPlanes(t *testing.T) {
	d := row()
	before := flatten.Flatten(d, testKit())
	res, err := Cluster(d, []design.PieceID{"a", "b"}, before, Options{Name: "base", Types: testKit()})
	if err != nil {
		t.Fatal(err)
	}
	after := flatten.Flatten(res.Design, testKit())
	if len(after.Errors) != 0 {
		t.Fatalf("flatten errors: %v", after.Errors)
	}
	for _, id := range []design.PieceID{"c", "d", "e"} {
		want, _ := before.Plane(id)
		got, ok := after.Plane(id)
		if !ok {
			t.Fatalf("%s not placed after clustering", id)
		}
		if !got.ApproxEqual(want, 1e-9) {
			t.Errorf("%s plane = %+v, want %+v", id, got, want)
		}
	}
}

func TestExplodable(t *testing.T) {
	d := row()
	if got := Explodable(d); len(got) != 0 {
		t.Errorf("plain design explodable = %v", got)
	}
	res, err := Cluster(d, []design.PieceID{"b", "c"}, nil, Options{Name: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]design.PieceID{"design-x"}, Explodable(res.Design)); diff != "" {
		t.Errorf("explodable (-want +got):\n%s", diff)
	}
	if _, err := Explode(res.Design, "a"); !errors.Is(err, design.ErrInvalidContraction) {
		t.Errorf("exploding a regular piece: err = %v", err)
	}
}

// triangle has b and c both connected to the fixed piece a.
func triangle() *design.Design {
	plane := geom.WorldPlane()
	a := design.NewTypePiece("a", "box", "")
	a.Plane = &plane
	return &design.Design{
		Name: "triangle",
		Pieces: []design.Piece{
			a,
			design.NewTypePiece("b", "box", ""),
			design.NewTypePiece("c", "box", ""),
			design.NewTypePiece("d", "box", ""),
		},
		Connections: []design.Connection{
			link("a", "right", "b", "left"),
			link("b", "right", "c", "left"),
			link("c", "top", "a", "top"),
			link("c", "right", "d", "left"),
		},
	}
}

func TestClusterRejectsSharedNeighbor(t *testing.T) {
	d := triangle()

	if got := Candidates(d, []design.PieceID{"b", "c"}, 0); len(got) != 0 {
		t.Errorf("candidates = %v, want none", got)
	}
	_, err := Cluster(d, []design.PieceID{"b", "c"}, nil, Options{Name: "bc"})
	if !errors.Is(err, design.ErrInvalidContraction) {
		t.Fatalf("err = %v, want InvalidContraction", err)
	}
	if !strings.Contains(err.Error(), "piece a") {
		t.Errorf("error does not name the shared piece: %v", err)
	}
	if diff := cmp.Diff(triangle(), d); diff != "" {
		t.Errorf("input mutated (-want +got):\n%s", diff)
	}

	// Taking the shared piece in as well leaves one neighbor per
	// external connection.
	res, err := Cluster(d, []design.PieceID{"a", "b", "c"}, nil, Options{Name: "abc"})
	if err != nil {
		t.Fatal(err)
	}
	ids := make(map[design.ConnectionID]int)
	for i := range res.Design.Connections {
		ids[res.Design.Connections[i].ID()]++
	}
	for id, n := range ids {
		if n > 1 {
			t.Errorf("%s appears %d times", id, n)
		}
	}
}
