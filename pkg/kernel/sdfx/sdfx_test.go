package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/semio/pkg/geom"
)

func near(t *testing.T, what string, got, want [3]float64, tol float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		if math.Abs(got[i]-want[i]) > tol {
			t.Errorf("%s[%d] = %f, expected ~%f", what, i, got[i], want[i])
		}
	}
}

func TestBox(t *testing.T) {
	k := New(WithCells(16))
	mesh, err := k.ToMesh(k.Box(1, 0.5, 0.25))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() || mesh.TriangleCount() == 0 {
		t.Fatal("mesh is empty")
	}
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != mesh.TriangleCount()*3 {
		t.Fatalf("indices length %d != triangles*3", len(mesh.Indices))
	}
}

func TestBoxBoundingBoxStartsAtOrigin(t *testing.T) {
	min, max := New().Box(100, 50, 25).BoundingBox()
	near(t, "min", min, [3]float64{0, 0, 0}, 0.01)
	near(t, "max", max, [3]float64{100, 50, 25}, 0.01)
}

func TestCylinder(t *testing.T) {
	k := New(WithCells(16))
	cyl := k.Cylinder(2, 0.5)
	min, max := cyl.BoundingBox()
	near(t, "min", min, [3]float64{-0.5, -0.5, -1}, 0.01)
	near(t, "max", max, [3]float64{0.5, 0.5, 1}, 0.01)

	mesh, err := k.ToMesh(cyl)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
}

func TestUnion(t *testing.T) {
	k := New(WithCells(16))
	u := k.Union(k.Box(1, 1, 1), k.Place(k.Box(1, 1, 1), geom.Translation(geom.Vector{X: 3})))
	min, max := u.BoundingBox()
	near(t, "min", min, [3]float64{0, 0, 0}, 0.01)
	near(t, "max", max, [3]float64{4, 1, 1}, 0.01)

	mesh, err := k.ToMesh(u)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("union mesh is empty")
	}
}

func TestPlaceTranslates(t *testing.T) {
	k := New()
	placed := k.Place(k.Box(10, 10, 10), geom.Translation(geom.Vector{X: 100, Y: 200, Z: 300}))
	min, max := placed.BoundingBox()
	near(t, "min", min, [3]float64{100, 200, 300}, 0.01)
	near(t, "max", max, [3]float64{110, 210, 310}, 0.01)
}

func TestPlaceRotates(t *testing.T) {
	k := New()
	// A long box along X turned a quarter about Z extends along -Y..0 in X
	// and 0..100 in Y.
	m := geom.Rotation(geom.ZAxis, math.Pi/2)
	min, max := k.Place(k.Box(100, 10, 10), m).BoundingBox()
	near(t, "min", min, [3]float64{-10, 0, 0}, 0.01)
	near(t, "max", max, [3]float64{0, 100, 10}, 0.01)
}

func TestPlaneMatrixPlacesLikeThePlane(t *testing.T) {
	k := New()
	plane := geom.Plane{Origin: geom.Point{X: 5}, XAxis: geom.YAxis, YAxis: geom.XAxis.Neg()}
	min, max := k.Place(k.Box(2, 1, 1), plane.Matrix()).BoundingBox()
	near(t, "min", min, [3]float64{4, 0, 0}, 0.01)
	near(t, "max", max, [3]float64{5, 2, 1}, 0.01)
}

func TestWithCellsFloor(t *testing.T) {
	if k := New(WithCells(1)); k.cells != 8 {
		t.Errorf("cells = %d, want 8", k.cells)
	}
}
