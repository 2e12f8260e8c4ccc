package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Matrix is a row-major homogeneous 4x4 transform. Only rigid transforms
// (rotation plus translation) are produced by this package.
type Matrix [4][4]float64

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// Translation returns a pure translation by v.
func Translation(v Vector) Matrix {
	m := Identity()
	m[0][3] = v.X
	m[1][3] = v.Y
	m[2][3] = v.Z
	return m
}

// Rotation returns a right-handed rotation of angle radians about axis.
// A zero axis yields the identity.
func Rotation(axis Vector, angle float64) Matrix {
	if axis.IsZero() || angle == 0 {
		return Identity()
	}
	return fromM44(sdf.Rotate3d(axis.Unit().vec(), angle))
}

// RotationBetween returns the shortest rotation taking direction from onto
// direction to. Opposite directions rotate half a turn about an arbitrary
// perpendicular axis.
func RotationBetween(from, to Vector) Matrix {
	f, t := from.Unit(), to.Unit()
	d := f.Dot(t)
	switch {
	case d >= 1-Tolerance:
		return Identity()
	case d <= -1+Tolerance:
		var axis Vector
		if math.Abs(f.X) > math.Abs(f.Z) {
			axis = Vector{X: -f.Y, Y: f.X}
		} else {
			axis = Vector{Y: -f.Z, Z: f.Y}
		}
		return Rotation(axis, math.Pi)
	}
	return Rotation(f.Cross(t), math.Acos(d))
}

// fromM44 samples an sdfx transform on the basis to recover its entries.
func fromM44(t sdf.M44) Matrix {
	o := t.MulPosition(v3.Vec{})
	cols := [3]v3.Vec{
		t.MulPosition(v3.Vec{X: 1}).Sub(o),
		t.MulPosition(v3.Vec{Y: 1}).Sub(o),
		t.MulPosition(v3.Vec{Z: 1}).Sub(o),
	}
	m := Identity()
	for c, col := range cols {
		m[0][c] = col.X
		m[1][c] = col.Y
		m[2][c] = col.Z
	}
	m[0][3], m[1][3], m[2][3] = o.X, o.Y, o.Z
	return m
}

// Mul returns m · o (o is applied first).
func (m Matrix) Mul(o Matrix) Matrix {
	var r Matrix
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var s float64
			for k := 0; k < 4; k++ {
				s += m[i][k] * o[k][j]
			}
			r[i][j] = s
		}
	}
	return r
}

// Inverse returns the inverse of a rigid transform.
func (m Matrix) Inverse() Matrix {
	r := Identity()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[j][i]
		}
	}
	for i := 0; i < 3; i++ {
		r[i][3] = -(r[i][0]*m[0][3] + r[i][1]*m[1][3] + r[i][2]*m[2][3])
	}
	return r
}

// TransformPoint applies rotation and translation to p.
func (m Matrix) TransformPoint(p Point) Point {
	return Point{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z + m[0][3],
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z + m[1][3],
		Z: m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z + m[2][3],
	}
}

// TransformVector applies only the rotation to v.
func (m Matrix) TransformVector(v Vector) Vector {
	return Vector{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Column returns the first three entries of column c.
func (m Matrix) Column(c int) Vector {
	return Vector{X: m[0][c], Y: m[1][c], Z: m[2][c]}
}

// AxisAngle decomposes the rotation part into a unit axis and an angle in
// radians. The identity returns the Z axis and zero.
func (m Matrix) AxisAngle() (Vector, float64) {
	trace := m[0][0] + m[1][1] + m[2][2]
	cos := math.Max(-1, math.Min(1, (trace-1)/2))
	angle := math.Acos(cos)
	if angle < Tolerance {
		return ZAxis, 0
	}
	if math.Pi-angle > 1e-4 {
		axis := Vector{
			X: m[2][1] - m[1][2],
			Y: m[0][2] - m[2][0],
			Z: m[1][0] - m[0][1],
		}
		return axis.Unit(), angle
	}
	// Half turn: the axis is the dominant column of (R + I) / 2.
	xx := (m[0][0] + 1) / 2
	yy := (m[1][1] + 1) / 2
	zz := (m[2][2] + 1) / 2
	var axis Vector
	switch {
	case xx >= yy && xx >= zz:
		x := math.Sqrt(xx)
		axis = Vector{X: x, Y: (m[0][1] + m[1][0]) / (4 * x), Z: (m[0][2] + m[2][0]) / (4 * x)}
	case yy >= zz:
		y := math.Sqrt(yy)
		axis = Vector{X: (m[0][1] + m[1][0]) / (4 * y), Y: y, Z: (m[1][2] + m[2][1]) / (4 * y)}
	default:
		z := math.Sqrt(zz)
		axis = Vector{X: (m[0][2] + m[2][0]) / (4 * z), Y: (m[1][2] + m[2][1]) / (4 * z), Z: z}
	}
	return axis.Unit(), math.Pi
}

// ApproxEqual compares all entries within tol.
func (m Matrix) ApproxEqual(o Matrix, tol float64) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(m[i][j]-o[i][j]) > tol {
				return false
			}
		}
	}
	return true
}
