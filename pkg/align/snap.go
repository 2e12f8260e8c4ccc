// Package align assists a move gesture in the design diagram: it snaps the
// dragged piece to its neighbours and proposes connections to nearby
// compatible ports.
//
// Everything works on explicit snapshots. Nothing here reads or writes
// shared editor state.
package align

import (
	"fmt"
	"math"

	"github.com/chazu/semio/pkg/design"
	"github.com/chazu/semio/pkg/geom"
)

// Config holds the snapping constants. Thresholds are in screen pixels
// except MaxSnapRadius, which is in world units.
type Config struct {
	SnapThreshold          float64 `yaml:"snapThreshold"`
	EqualDistanceThreshold float64 `yaml:"equalDistanceThreshold"`
	MinEqualDistance       float64 `yaml:"minEqualDistance"`
	AxisEpsilon            float64 `yaml:"axisEpsilon"`
	MaxSnapRadius          float64 `yaml:"maxSnapRadius"`
	IconWidth              float64 `yaml:"iconWidth"`
}

// DefaultConfig returns the constants the diagram has always used.
func DefaultConfig() Config {
	return Config{
		SnapThreshold:          20,
		EqualDistanceThreshold: 15,
		MinEqualDistance:       40,
		AxisEpsilon:            5,
		MaxSnapRadius:          3,
		IconWidth:              50,
	}
}

// LineKind tells a renderer how to draw a helper line.
type LineKind int

const (
	Horizontal LineKind = iota
	Vertical
	EqualDistance
)

func (k LineKind) String() string {
	switch k {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	case EqualDistance:
		return "equalDistance"
	}
	return fmt.Sprintf("LineKind(%d)", int(k))
}

// HelperLine is a transient alignment cue for the current drag frame.
// Horizontal and vertical lines use Position and Reference; equal
// distance lines are segments annotated with the reference pair.
type HelperLine struct {
	Kind       LineKind
	Position   float64
	X1, Y1     float64
	X2, Y2     float64
	Distance   float64
	Reference  design.PieceID
	References [2]design.PieceID
}

// Node is a diagram node in screen space.
type Node struct {
	ID     design.PieceID
	Center geom.Coord
}

// Screen converts a diagram center to screen pixels. Screen y grows
// downwards.
func (c Config) Screen(center geom.Coord) geom.Coord {
	return geom.Coord{X: center.X * c.IconWidth, Y: -center.Y * c.IconWidth}
}

// Diagram converts a screen offset back to diagram units.
func (c Config) Diagram(screen geom.Coord) geom.Coord {
	return geom.Coord{X: screen.X / c.IconWidth, Y: -screen.Y / c.IconWidth}
}

// PortHandle returns where a port with parameter t sits on an icon of the
// given width, relative to the top centre of the icon. t runs clockwise
// from the top.
func PortHandle(t, iconWidth float64) geom.Coord {
	a := t * 2 * math.Pi
	r := iconWidth / 2
	return geom.Coord{X: r * math.Sin(a), Y: -(r*math.Cos(a) - r)}
}

// SnapEdges aligns pos with the first node whose centre is within the snap
// threshold on each axis. At most one horizontal and one vertical snap
// apply.
func SnapEdges(pos geom.Coord, others []Node, cfg Config) (geom.Coord, []HelperLine) {
	var lines []HelperLine
	for _, n := range others {
		if math.Abs(pos.Y-n.Center.Y) < cfg.SnapThreshold {
			pos.Y = n.Center.Y
			lines = append(lines, HelperLine{Kind: Horizontal, Position: n.Center.Y, Reference: n.ID})
			break
		}
	}
	for _, n := range others {
		if math.Abs(pos.X-n.Center.X) < cfg.SnapThreshold {
			pos.X = n.Center.X
			lines = append(lines, HelperLine{Kind: Vertical, Position: n.Center.X, Reference: n.ID})
			break
		}
	}
	return pos, lines
}

// axis selects a coordinate of a screen point.
type axis int

const (
	axisX axis = iota
	axisY
)

func (a axis) of(c geom.Coord) float64 {
	if a == axisX {
		return c.X
	}
	return c.Y
}

func (a axis) set(c *geom.Coord, v float64) {
	if a == axisX {
		c.X = v
	} else {
		c.Y = v
	}
}

func (a axis) other() axis { return 1 - a }

// SnapEqualDistance snaps pos so that it repeats the spacing of a pair of
// aligned nodes: between them, beyond either end, or the same distance
// across the pair's line. Pairs are visited in order and the first match
// on each axis wins. A spacing already offered by an earlier pair is not
// offered again.
func SnapEqualDistance(pos geom.Coord, others []Node, cfg Config) (geom.Coord, []HelperLine) {
	var (
		lines   []HelperLine
		shown   []float64
		snapped [2]bool
	)
	seen := func(d float64) bool {
		for _, s := range shown {
			if math.Abs(s-d) < geom.Tolerance {
				return true
			}
		}
		return false
	}

	for i := 0; i < len(others); i++ {
		for j := i + 1; j < len(others); j++ {
			a, b := others[i], others[j]
			// along is the axis the pair is spread on, across the one it
			// shares.
			for _, along := range []axis{axisY, axisX} {
				across := along.other()
				if math.Abs(across.of(a.Center)-across.of(b.Center)) >= cfg.AxisEpsilon {
					continue
				}
				d := math.Abs(along.of(b.Center) - along.of(a.Center))
				if d <= cfg.MinEqualDistance || seen(d) {
					continue
				}
				shown = append(shown, d)

				refs := [2]design.PieceID{a.ID, b.ID}
				lo := math.Min(along.of(a.Center), along.of(b.Center))
				hi := math.Max(along.of(a.Center), along.of(b.Center))
				line := across.of(a.Center)

				if !snapped[along] {
					for _, target := range []float64{(lo + hi) / 2, lo - d, hi + d} {
						if math.Abs(along.of(pos)-target) < cfg.EqualDistanceThreshold {
							along.set(&pos, target)
							snapped[along] = true
							lines = append(lines,
								tick(along, lo, line, 50, d, refs),
								tick(along, hi, line, 50, d, refs),
								tick(along, target, line, 30, d, refs))
							break
						}
					}
				}
				if !snapped[across] {
					for _, target := range []float64{line - d, line + d} {
						if math.Abs(across.of(pos)-target) < cfg.EqualDistanceThreshold {
							across.set(&pos, target)
							snapped[across] = true
							mid := (lo + hi) / 2
							lines = append(lines,
								tick(across, target, mid, 30, d, refs),
								tick(across, line, mid, 50, d, refs))
							break
						}
					}
				}
			}
		}
	}
	return pos, lines
}

// tick is a short segment crossing axis a at value at, centred on centre
// of the other axis.
func tick(a axis, at, centre, half, d float64, refs [2]design.PieceID) HelperLine {
	l := HelperLine{Kind: EqualDistance, Distance: d, References: refs}
	if a == axisY {
		l.X1, l.Y1, l.X2, l.Y2 = centre-half, at, centre+half, at
	} else {
		l.X1, l.Y1, l.X2, l.Y2 = at, centre-half, at, centre+half
	}
	return l
}
