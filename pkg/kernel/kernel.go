// Package kernel defines the geometry kernel the preview renderer builds
// piece glyphs with. Backends (see kernel/sdfx) implement it; the rest of
// the system only sees Solid handles and Mesh output.
package kernel

import "github.com/chazu/semio/pkg/geom"

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel builds solids and meshes them.
type Kernel interface {
	// Box has its minimum corner at the origin.
	Box(x, y, z float64) Solid
	// Cylinder is centred on the origin with its axis along Z.
	Cylinder(height, radius float64) Solid

	Union(a, b Solid) Solid

	// Place applies a rigid transform.
	Place(s Solid, m geom.Matrix) Solid

	ToMesh(s Solid) (*Mesh, error)
}
