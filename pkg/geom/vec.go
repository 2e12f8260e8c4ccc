// Package geom provides the value types used to place pieces in space:
// points, directions, planes and rigid 4x4 transforms.
//
// Vector arithmetic is delegated to the sdfx vector package so the same
// numerics back both placement and mesh generation.
package geom

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Tolerance is the comparison epsilon for lengths, angles and plane
// round-trips.
const Tolerance = 1e-6

// Coord is a 2D diagram coordinate.
type Coord struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns c + o.
func (c Coord) Add(o Coord) Coord { return Coord{X: c.X + o.X, Y: c.Y + o.Y} }

// Sub returns c - o.
func (c Coord) Sub(o Coord) Coord { return Coord{X: c.X - o.X, Y: c.Y - o.Y} }

// Scale returns c * s.
func (c Coord) Scale(s float64) Coord { return Coord{X: c.X * s, Y: c.Y * s} }

// Length returns the euclidean norm.
func (c Coord) Length() float64 { return math.Hypot(c.X, c.Y) }

// Unit returns c scaled to length 1, or the zero coord when c is zero.
func (c Coord) Unit() Coord {
	l := c.Length()
	if l < Tolerance {
		return Coord{}
	}
	return Coord{X: c.X / l, Y: c.Y / l}
}

// Point is a location in 3D space.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Vector is a direction or displacement in 3D space.
type Vector struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Unit axes.
var (
	XAxis = Vector{X: 1}
	YAxis = Vector{Y: 1}
	ZAxis = Vector{Z: 1}
)

func (p Point) vec() v3.Vec  { return v3.Vec{X: p.X, Y: p.Y, Z: p.Z} }
func (v Vector) vec() v3.Vec { return v3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

func pointOf(v v3.Vec) Point   { return Point{X: v.X, Y: v.Y, Z: v.Z} }
func vectorOf(v v3.Vec) Vector { return Vector{X: v.X, Y: v.Y, Z: v.Z} }

// Add translates p by v.
func (p Point) Add(v Vector) Point { return pointOf(p.vec().Add(v.vec())) }

// Sub returns the displacement from o to p.
func (p Point) Sub(o Point) Vector { return vectorOf(p.vec().Sub(o.vec())) }

// Distance returns the euclidean distance between p and o.
func (p Point) Distance(o Point) float64 { return p.vec().Sub(o.vec()).Length() }

// Vector returns the displacement from the origin to p.
func (p Point) Vector() Vector { return Vector(p) }

// Add returns v + o.
func (v Vector) Add(o Vector) Vector { return vectorOf(v.vec().Add(o.vec())) }

// Sub returns v - o.
func (v Vector) Sub(o Vector) Vector { return vectorOf(v.vec().Sub(o.vec())) }

// Scale returns v * s.
func (v Vector) Scale(s float64) Vector { return vectorOf(v.vec().MulScalar(s)) }

// Neg returns -v.
func (v Vector) Neg() Vector { return vectorOf(v.vec().Neg()) }

// Dot returns the scalar product.
func (v Vector) Dot(o Vector) float64 { return v.vec().Dot(o.vec()) }

// Cross returns the vector product v × o.
func (v Vector) Cross(o Vector) Vector { return vectorOf(v.vec().Cross(o.vec())) }

// Length returns the euclidean norm.
func (v Vector) Length() float64 { return v.vec().Length() }

// Unit returns v normalized, or the zero vector when v is zero.
func (v Vector) Unit() Vector {
	if v.Length() < Tolerance {
		return Vector{}
	}
	return vectorOf(v.vec().Normalize())
}

// IsZero reports whether v has no length within Tolerance.
func (v Vector) IsZero() bool { return v.Length() < Tolerance }

// ApproxEqual compares component-wise within tol.
func (v Vector) ApproxEqual(o Vector, tol float64) bool {
	return math.Abs(v.X-o.X) <= tol && math.Abs(v.Y-o.Y) <= tol && math.Abs(v.Z-o.Z) <= tol
}

// ApproxEqual compares component-wise within tol.
func (p Point) ApproxEqual(o Point, tol float64) bool {
	return Vector(p).ApproxEqual(Vector(o), tol)
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }
