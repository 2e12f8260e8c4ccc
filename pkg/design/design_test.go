package design

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/chazu/semio/pkg/geom"
	"github.com/chazu/semio/pkg/kit"
	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

// typeMap is a minimal TypeResolver for tests.
type typeMap map[kit.TypeID]*kit.Type

func (m typeMap) ResolveType(name, variant string) (*kit.Type, error) {
	t, ok := m[kit.TypeID{Name: name, Variant: variant}]
	if !ok {
		return nil, Errorf(KindNotFound, "", "type %s/%s", name, variant)
	}
	return t, nil
}

func testTypes() typeMap {
	return typeMap{
		{Name: "box"}: {
			Name: "box",
			Ports: []kit.Port{
				{ID: "left", Direction: geom.XAxis.Neg(), Family: "face", CompatibleFamilies: []string{"face"}},
				{ID: "right", Direction: geom.XAxis, Family: "face", CompatibleFamilies: []string{"face"}},
				{ID: "pin", Direction: geom.ZAxis, Family: "pin", CompatibleFamilies: []string{"hole"}, Mandatory: true},
			},
		},
	}
}

func fixedPiece(id PieceID) Piece {
	p := NewTypePiece(id, "box", "")
	plane := geom.WorldPlane()
	p.Plane = &plane
	return p
}

func chain() *Design {
	return &Design{
		Name:   "chain",
		Pieces: []Piece{fixedPiece("a"), NewTypePiece("b", "box", ""), NewTypePiece("c", "box", "")},
		Connections: []Connection{
			{Connecting: Side{Piece: "a", Port: "right"}, Connected: Side{Piece: "b", Port: "left"}},
			{Connecting: Side{Piece: "b", Port: "right"}, Connected: Side{Piece: "c", Port: "left"}},
		},
	}
}

func TestConnectionIDIsUndirected(t *testing.T) {
	ab := Connection{Connecting: Side{Piece: "a"}, Connected: Side{Piece: "b"}}
	ba := Connection{Connecting: Side{Piece: "b"}, Connected: Side{Piece: "a"}}
	if ab.ID() != ba.ID() {
		t.Errorf("%v != %v", ab.ID(), ba.ID())
	}
	d := chain()
	if c, _ := d.Connection(NewConnectionID("b", "a")); c == nil {
		t.Error("lookup by reversed pair failed")
	}
}

func TestIsPortInUse(t *testing.T) {
	d := chain()
	tests := []struct {
		name  string
		types TypeResolver
		piece PieceID
		port  string
		want  bool
	}{
		{"connecting side", testTypes(), "a", "right", true},
		{"connected side", testTypes(), "b", "left", true},
		{"both sides of a middle piece", testTypes(), "b", "right", true},
		{"free port", testTypes(), "a", "left", false},
		{"free end", testTypes(), "c", "right", false},
		{"default port falls back to left", testTypes(), "b", "", true},
		{"default port of a free left", testTypes(), "a", "", false},
		{"no resolver compares ids", nil, "b", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPortInUse(d, tt.types, tt.piece, tt.port); got != tt.want {
				t.Errorf("IsPortInUse(%s, %q) = %v, want %v", tt.piece, tt.port, got, tt.want)
			}
		})
	}
}

func TestSideInUseThroughDefaultPort(t *testing.T) {
	d := chain()
	d.Connections[0].Connecting.Port = ""

	if !SideInUse(d, testTypes(), Side{Piece: "a", Port: "left"}) {
		t.Error("a.left is held by the connection on a's default port")
	}
	if got := CanonicalSide(d, testTypes(), Side{Piece: "a"}); got.Port != "left" {
		t.Errorf("canonical default port = %q", got.Port)
	}
	if got := CanonicalSide(d, testTypes(), Side{Piece: "a", Port: "nope"}); got.Port != "nope" {
		t.Errorf("unresolved port rewritten to %q", got.Port)
	}
}

func TestArePortsCompatible(t *testing.T) {
	d := chain()
	box := testTypes()[kit.TypeID{Name: "box"}]
	left, _ := box.Port("left")
	right, _ := box.Port("right")
	pin, _ := box.Port("pin")

	if !ArePortsCompatible(d, testTypes(), "c", right, "a", left) {
		t.Error("free face ports should be compatible")
	}
	if ArePortsCompatible(d, testTypes(), "c", right, "a", right) {
		t.Error("a.right is in use")
	}
	if ArePortsCompatible(d, testTypes(), "c", pin, "a", left) {
		t.Error("pin does not mate with face")
	}
}

func TestCloneIsDeep(t *testing.T) {
	d := chain()
	d.Pieces[0].Attributes = kit.Attributes{{Key: "k", Value: "v"}}
	c := d.Clone()

	c.Pieces[0].Plane.Origin.X = 99
	c.Pieces[0].Attributes[0].Value = "changed"
	c.Connections[0].Gap = 5

	if d.Pieces[0].Plane.Origin.X != 0 {
		t.Error("plane shared between clone and original")
	}
	if d.Pieces[0].Attributes[0].Value != "v" {
		t.Error("attributes shared between clone and original")
	}
	if d.Connections[0].Gap != 0 {
		t.Error("connections shared between clone and original")
	}
}

func TestAllPiecesMaterializesFixedDesigns(t *testing.T) {
	d := chain()
	d.FixedDesigns = []FixedDesign{{Design: DesignID{Name: "roof", View: "3d"}, Plane: geom.WorldPlane()}}
	all := d.AllPieces()
	if len(all) != 4 {
		t.Fatalf("got %d pieces", len(all))
	}
	last := all[3]
	if last.ID != "fixed-design-roof--3d" {
		t.Errorf("id = %q", last.ID)
	}
	if _, ok := last.Source.(Embedded); !ok || !last.IsFixed() {
		t.Errorf("materialized piece = %+v", last)
	}
}

func TestPieceCodecKeepsSource(t *testing.T) {
	center := geom.Coord{X: 1, Y: 2}
	sub := chain()
	d := &Design{
		Name: "outer",
		Pieces: []Piece{
			{ID: "t", Source: TypeRef{Type: kit.TypeID{Name: "box", Variant: "big"}}, Plane: &geom.Plane{XAxis: geom.XAxis, YAxis: geom.YAxis}, Center: &center},
			{ID: "e", Source: Embedded{Design: DesignID{Name: "roof"}}},
			{ID: "k", Source: Clustered{Design: sub, Ports: []kit.Port{{ID: "p0", T: 0.5}}}},
		},
	}

	js, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	var fromJSON Design
	if err := json.Unmarshal(js, &fromJSON); err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if diff := cmp.Diff(d, &fromJSON); diff != "" {
		t.Errorf("json mismatch (-want +got):\n%s", diff)
	}

	ym, err := yaml.Marshal(d)
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	var fromYAML Design
	if err := yaml.Unmarshal(ym, &fromYAML); err != nil {
		t.Fatalf("yaml decode: %v", err)
	}
	if diff := cmp.Diff(d, &fromYAML); diff != "" {
		t.Errorf("yaml mismatch (-want +got):\n%s", diff)
	}
}

func TestPieceCodecRejectsAmbiguousSource(t *testing.T) {
	src := `{"id":"x","type":{"name":"box"},"design":{"name":"roof"}}`
	var p Piece
	if err := json.Unmarshal([]byte(src), &p); err == nil {
		t.Fatal("expected error for piece with two sources")
	}
	if err := json.Unmarshal([]byte(`{"id":"y"}`), &p); err == nil {
		t.Fatal("expected error for piece without a source")
	}
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Errorf(KindPortOccupied, "a", "port x"))
	if !errors.Is(err, ErrPortOccupied) {
		t.Error("expected errors.Is to match PortOccupied")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("kinds must not cross-match")
	}
	if msg := err.Error(); !strings.Contains(msg, "port occupied") || !strings.Contains(msg, "piece a") {
		t.Errorf("message = %q", msg)
	}
}

func TestValidateValidDesign(t *testing.T) {
	d := chain()
	result := ValidateAll(d, testTypes())
	if !result.OK() {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	// Every piece leaves its pin unconnected.
	if len(result.Warnings) != 3 {
		t.Errorf("expected 3 mandatory-port warnings, got %v", result.Warnings)
	}
}

func TestValidateFindings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Design)
		kind   Kind
	}{
		{"missing piece", func(d *Design) {
			d.Connections[1].Connected.Piece = "ghost"
		}, KindDanglingReference},
		{"missing port", func(d *Design) {
			d.Connections[1].Connected.Port = "top"
		}, KindDanglingReference},
		{"self connection", func(d *Design) {
			d.Connections[1].Connected = Side{Piece: "b", Port: "left"}
		}, KindInvalidConnection},
		{"port reuse", func(d *Design) {
			d.Pieces = append(d.Pieces, NewTypePiece("x", "box", ""))
			d.Connections = append(d.Connections, Connection{
				Connecting: Side{Piece: "x", Port: "left"}, Connected: Side{Piece: "a", Port: "right"},
			})
		}, KindPortOccupied},
		{"port reuse through the default port", func(d *Design) {
			d.Pieces = append(d.Pieces, NewTypePiece("x", "box", ""))
			d.Connections = append(d.Connections, Connection{
				Connecting: Side{Piece: "x", Port: "right"}, Connected: Side{Piece: "b"},
			})
		}, KindPortOccupied},
		{"duplicate pair", func(d *Design) {
			d.Connections = append(d.Connections, Connection{
				Connecting: Side{Piece: "b", Port: "pin"}, Connected: Side{Piece: "a", Port: "pin"},
			})
		}, KindRedundantConnection},
		{"unknown type", func(d *Design) {
			d.Pieces[2] = NewTypePiece("c", "sphere", "")
		}, KindNotFound},
		{"center on connected piece", func(d *Design) {
			d.Pieces[1].Center = &geom.Coord{}
		}, KindInvalidPiece},
		{"duplicate piece", func(d *Design) {
			d.Pieces = append(d.Pieces, NewTypePiece("b", "box", ""))
		}, KindDuplicatePiece},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := chain()
			tt.mutate(d)
			result := ValidateAll(d, testTypes())
			found := false
			for _, e := range result.Errors {
				if e.Kind == tt.kind {
					found = true
				}
			}
			if !found {
				t.Errorf("expected a %s error, got %v", tt.kind, result.Errors)
			}
		})
	}
}

func TestValidateWarnsAboutUnreachablePieces(t *testing.T) {
	d := chain()
	d.Connections = d.Connections[:1]
	result := ValidateAll(d, nil)
	var unreachable []PieceID
	for _, w := range result.Warnings {
		if w.Kind == KindDisconnectedGraph {
			unreachable = append(unreachable, w.Piece)
		}
	}
	if diff := cmp.Diff([]PieceID{"c"}, unreachable); diff != "" {
		t.Errorf("unreachable mismatch (-want +got):\n%s", diff)
	}
}
