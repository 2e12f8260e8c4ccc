package geom

import (
	"math"
	"testing"
)

func TestPlaneMatrixRoundTrip(t *testing.T) {
	planes := []Plane{
		WorldPlane(),
		{Origin: Point{X: 1, Y: 2, Z: 3}, XAxis: XAxis, YAxis: YAxis},
		{Origin: Point{X: -4}, XAxis: YAxis, YAxis: XAxis.Neg()},
		{Origin: Point{Z: 10}, XAxis: Vector{X: 1, Y: 1}.Unit(), YAxis: Vector{X: -1, Y: 1}.Unit()},
	}
	for _, p := range planes {
		got := PlaneFromMatrix(p.Matrix())
		if !got.ApproxEqual(p, Tolerance) {
			t.Errorf("round trip of %+v = %+v", p, got)
		}
	}
}

func TestPlaneMatrixOrthonormalizes(t *testing.T) {
	skewed := Plane{XAxis: Vector{X: 2}, YAxis: Vector{X: 0.1, Y: 3}}
	got := PlaneFromMatrix(skewed.Matrix())
	if !got.IsOrthonormal() {
		t.Fatalf("expected orthonormal axes, got %+v", got)
	}
	if !got.YAxis.ApproxEqual(YAxis, Tolerance) {
		t.Errorf("y axis = %+v, want %+v", got.YAxis, YAxis)
	}
}

func TestZAxisIsCrossProduct(t *testing.T) {
	if z := WorldPlane().ZAxis(); !z.ApproxEqual(ZAxis, Tolerance) {
		t.Errorf("ZAxis() = %+v", z)
	}
}

func TestComposeIdentity(t *testing.T) {
	p := Plane{Origin: Point{X: 5, Y: -1}, XAxis: YAxis, YAxis: XAxis.Neg()}
	if got := p.Compose(WorldPlane()); !got.ApproxEqual(p, Tolerance) {
		t.Errorf("p ∘ identity = %+v, want %+v", got, p)
	}
	if got := WorldPlane().Compose(p); !got.ApproxEqual(p, Tolerance) {
		t.Errorf("identity ∘ p = %+v, want %+v", got, p)
	}
}

func TestComposeAssociative(t *testing.T) {
	a := Plane{Origin: Point{X: 1}, XAxis: YAxis, YAxis: XAxis.Neg()}
	b := Plane{Origin: Point{Y: 2}, XAxis: XAxis, YAxis: ZAxis}
	c := Plane{Origin: Point{Z: 3}, XAxis: ZAxis, YAxis: YAxis}
	left := a.Compose(b).Compose(c)
	right := a.Compose(b.Compose(c))
	if !left.ApproxEqual(right, Tolerance) {
		t.Errorf("(a∘b)∘c = %+v, a∘(b∘c) = %+v", left, right)
	}
}

func TestRotationRightHanded(t *testing.T) {
	m := Rotation(ZAxis, math.Pi/2)
	if got := m.TransformVector(XAxis); !got.ApproxEqual(YAxis, Tolerance) {
		t.Errorf("Rz(90°)·x = %+v, want y", got)
	}
}

func TestRotationBetween(t *testing.T) {
	tests := []struct {
		name     string
		from, to Vector
	}{
		{"same", XAxis, XAxis},
		{"quarter", XAxis, YAxis},
		{"opposite", XAxis, XAxis.Neg()},
		{"opposite z", ZAxis, ZAxis.Neg()},
		{"oblique", Vector{X: 1, Y: 2, Z: 3}, Vector{X: -3, Y: 0, Z: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RotationBetween(tt.from, tt.to).TransformVector(tt.from.Unit())
			if !got.ApproxEqual(tt.to.Unit(), 1e-9) {
				t.Errorf("rotated = %+v, want %+v", got, tt.to.Unit())
			}
		})
	}
}

func TestInverse(t *testing.T) {
	m := Translation(Vector{X: 1, Y: 2, Z: 3}).Mul(Rotation(Vector{X: 1, Y: 1}, 0.7))
	if got := m.Mul(m.Inverse()); !got.ApproxEqual(Identity(), 1e-9) {
		t.Errorf("m·m⁻¹ = %v", got)
	}
}

func TestAxisAngle(t *testing.T) {
	tests := []struct {
		axis  Vector
		angle float64
	}{
		{ZAxis, 0.3},
		{Vector{X: 1, Y: 2, Z: -1}.Unit(), 2.1},
		{XAxis, math.Pi},
		{Vector{Y: 1, Z: 1}.Unit(), math.Pi},
	}
	for _, tt := range tests {
		m := Rotation(tt.axis, tt.angle)
		axis, angle := m.AxisAngle()
		if !Rotation(axis, angle).ApproxEqual(m, 1e-6) {
			t.Errorf("AxisAngle(%v, %v) = (%v, %v) does not rebuild the rotation", tt.axis, tt.angle, axis, angle)
		}
	}
	if _, angle := Identity().AxisAngle(); angle != 0 {
		t.Errorf("identity angle = %v", angle)
	}
}

func TestCoordUnit(t *testing.T) {
	if got := (Coord{}).Unit(); got != (Coord{}) {
		t.Errorf("zero unit = %+v", got)
	}
	if got := (Coord{X: 3, Y: 4}).Unit(); math.Abs(got.X-0.6) > Tolerance || math.Abs(got.Y-0.8) > Tolerance {
		t.Errorf("unit = %+v", got)
	}
}
