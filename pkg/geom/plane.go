package geom

// Plane is a right-handed local frame: an origin and two in-plane axes.
// The normal is derived.
type Plane struct {
	Origin Point  `json:"origin" yaml:"origin"`
	XAxis  Vector `json:"xAxis" yaml:"xAxis"`
	YAxis  Vector `json:"yAxis" yaml:"yAxis"`
}

// WorldPlane is the XY plane at the origin.
func WorldPlane() Plane {
	return Plane{XAxis: XAxis, YAxis: YAxis}
}

// ZAxis returns the unit normal x × y.
func (p Plane) ZAxis() Vector {
	return p.XAxis.Cross(p.YAxis).Unit()
}

// Matrix converts the plane to a rigid transform. The axes are
// orthonormalized first so slightly skewed input still yields a rotation.
func (p Plane) Matrix() Matrix {
	x := p.XAxis.Unit()
	z := x.Cross(p.YAxis).Unit()
	y := z.Cross(x).Unit()
	m := Identity()
	for r, c := range [3][4]float64{
		{x.X, y.X, z.X, p.Origin.X},
		{x.Y, y.Y, z.Y, p.Origin.Y},
		{x.Z, y.Z, z.Z, p.Origin.Z},
	} {
		m[r][0], m[r][1], m[r][2], m[r][3] = c[0], c[1], c[2], c[3]
	}
	return m
}

// PlaneFromMatrix reads origin and axes out of a rigid transform.
func PlaneFromMatrix(m Matrix) Plane {
	return Plane{
		Origin: Point(m.Column(3)),
		XAxis:  m.Column(0),
		YAxis:  m.Column(1),
	}
}

// Compose returns the plane obtained by expressing local in p's frame.
func (p Plane) Compose(local Plane) Plane {
	return PlaneFromMatrix(p.Matrix().Mul(local.Matrix()))
}

// Transform applies m to the plane.
func (p Plane) Transform(m Matrix) Plane {
	return PlaneFromMatrix(m.Mul(p.Matrix()))
}

// Translate moves the origin by v.
func (p Plane) Translate(v Vector) Plane {
	p.Origin = p.Origin.Add(v)
	return p
}

// IsOrthonormal reports whether both axes are unit length and
// perpendicular within Tolerance.
func (p Plane) IsOrthonormal() bool {
	return abs(p.XAxis.Length()-1) <= Tolerance &&
		abs(p.YAxis.Length()-1) <= Tolerance &&
		abs(p.XAxis.Dot(p.YAxis)) <= Tolerance
}

// ApproxEqual compares origin and axes within tol.
func (p Plane) ApproxEqual(o Plane, tol float64) bool {
	return p.Origin.ApproxEqual(o.Origin, tol) &&
		p.XAxis.ApproxEqual(o.XAxis, tol) &&
		p.YAxis.ApproxEqual(o.YAxis, tol)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
