// Package tessellate turns a flattened design into preview meshes using a
// geometry kernel. Every placed type piece becomes one glyph: a block
// spanning its ports with a short peg along each port direction. Embedded
// and clustered pieces are descended into rather than drawn.
package tessellate

import (
	"context"
	"fmt"
	"strings"

	"github.com/chazu/semio/pkg/catalog"
	"github.com/chazu/semio/pkg/design"
	"github.com/chazu/semio/pkg/flatten"
	"github.com/chazu/semio/pkg/geom"
	"github.com/chazu/semio/pkg/kernel"
	"github.com/chazu/semio/pkg/kit"
	"golang.org/x/sync/errgroup"
)

// Options sizes the glyphs.
type Options struct {
	// MinSize is the smallest edge of a glyph block.
	MinSize float64
	// PegLength and PegRadius size the port markers.
	PegLength float64
	PegRadius float64
	// Workers bounds concurrent meshing. Zero means one per piece.
	Workers int
}

// DefaultOptions suits unit-scale kits.
func DefaultOptions() Options {
	return Options{MinSize: 0.2, PegLength: 0.3, PegRadius: 0.05}
}

type job struct {
	path  []design.PieceID
	typ   *kit.Type
	world geom.Plane
}

// Tessellate meshes every placed type piece of p in walk order. Pieces
// whose type does not resolve abort the run; unplaced pieces are skipped.
func Tessellate(ctx context.Context, p *flatten.Placement, cat catalog.Catalog, k kernel.Kernel, opts Options) ([]*kernel.Mesh, error) {
	if p == nil {
		return nil, nil
	}

	var jobs []job
	var resolveErr error
	p.Walk(func(path []design.PieceID, piece *design.Piece, world geom.Plane) {
		if resolveErr != nil {
			return
		}
		id, ok := piece.TypeID()
		if !ok {
			return
		}
		t, err := cat.ResolveType(id.Name, id.Variant)
		if err != nil {
			resolveErr = fmt.Errorf("tessellate: piece %s: %w", joinPath(path), err)
			return
		}
		jobs = append(jobs, job{path: path, typ: t, world: world})
	})
	if resolveErr != nil {
		return nil, resolveErr
	}

	meshes := make([]*kernel.Mesh, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			solid := k.Place(Glyph(k, j.typ, opts), j.world.Matrix())
			m, err := k.ToMesh(solid)
			if err != nil {
				return fmt.Errorf("tessellate: mesh %s: %w", joinPath(j.path), err)
			}
			m.Piece = joinPath(j.path)
			m.Type = j.typ.ID().String()
			meshes[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return meshes, nil
}

// Glyph builds the solid for t in the type's own frame.
func Glyph(k kernel.Kernel, t *kit.Type, opts Options) kernel.Solid {
	lo, hi := portBounds(t.Ports)
	for i := 0; i < 3; i++ {
		if short := opts.MinSize - (hi[i] - lo[i]); short > 0 {
			lo[i] -= short / 2
			hi[i] += short / 2
		}
	}
	block := k.Place(
		k.Box(hi[0]-lo[0], hi[1]-lo[1], hi[2]-lo[2]),
		geom.Translation(geom.Vector{X: lo[0], Y: lo[1], Z: lo[2]}),
	)

	solid := block
	for i := range t.Ports {
		port := &t.Ports[i]
		if port.Direction.IsZero() || opts.PegLength <= 0 || opts.PegRadius <= 0 {
			continue
		}
		dir := port.Direction.Unit()
		// Cylinders are centred, so the peg is pushed out by half its length.
		at := port.Point.Add(dir.Scale(opts.PegLength / 2))
		m := geom.Translation(at.Vector()).Mul(geom.RotationBetween(geom.ZAxis, dir))
		solid = k.Union(solid, k.Place(k.Cylinder(opts.PegLength, opts.PegRadius), m))
	}
	return solid
}

func portBounds(ports []kit.Port) (lo, hi [3]float64) {
	for i, port := range ports {
		c := [3]float64{port.Point.X, port.Point.Y, port.Point.Z}
		if i == 0 {
			lo, hi = c, c
			continue
		}
		for j := 0; j < 3; j++ {
			lo[j] = min(lo[j], c[j])
			hi[j] = max(hi[j], c[j])
		}
	}
	return lo, hi
}

func joinPath(path []design.PieceID) string {
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = string(id)
	}
	return strings.Join(parts, "/")
}
