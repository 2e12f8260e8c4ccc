package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/chazu/semio/pkg/cluster"
	"github.com/chazu/semio/pkg/design"
)

// ---------------------------------------------------------------------------
// Empty and non-kit sources
// ---------------------------------------------------------------------------

func TestE2EEmptySourceExtended(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate("")

	if len(result.Errors) != 0 || len(result.Meshes) != 0 || len(result.Warnings) != 0 {
		t.Errorf("got %d errors, %d meshes, %d warnings", len(result.Errors), len(result.Meshes), len(result.Warnings))
	}
	// Ensure slices are non-nil (JSON should serialize as [] not null).
	if result.Meshes == nil || result.Errors == nil || result.Warnings == nil || result.Designs == nil {
		t.Error("result slices should be non-nil")
	}
}

func TestE2ECommentsAndArithmeticOnly(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"comments", ";; nothing to see\n;; here either"},
		{"whitespace", "  \n\t\n  "},
		{"arithmetic", "(def w (* 2 0.5))\n(+ w 1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			result := app.Evaluate(tt.source)
			if len(result.Errors) != 0 {
				t.Errorf("errors: %v", result.Errors)
			}
			if len(result.Meshes) != 0 || len(result.Designs) != 0 {
				t.Errorf("got %d meshes, designs %v", len(result.Meshes), result.Designs)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Evaluation errors
// ---------------------------------------------------------------------------

func TestE2ESyntaxErrorWithLineInfo(t *testing.T) {
	app := newTestApp(t)

	// Valid code on line 1, broken code on line 2 so line info is meaningful.
	result := app.Evaluate("(+ 1 2)\n(defdesign \"test\"")
	if len(result.Errors) == 0 {
		t.Fatal("expected at least one eval error for unmatched parens")
	}
	if len(result.Meshes) != 0 {
		t.Errorf("expected 0 meshes on syntax error, got %d", len(result.Meshes))
	}
	e := result.Errors[0]
	if e.Message == "" {
		t.Error("syntax error should have a non-empty message")
	}
	t.Logf("syntax error: line=%d, col=%d, message=%q", e.Line, e.Col, e.Message)
}

func TestE2EBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"undefined function", `(undefined-func 1 2 3)`, ""},
		{"piece without source", `(defdesign "d" (piece "a"))`, ""},
		{"zero direction", `(deftype "t" (port "p" :direction (vec3 0 0 0)))`, "direction"},
		{"duplicate piece", `(defdesign "d" (piece "a" :type "t") (piece "a" :type "t"))`, "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			result := app.Evaluate(tt.source)
			if len(result.Errors) == 0 {
				t.Fatal("expected an eval error")
			}
			if tt.want != "" && !strings.Contains(result.Errors[0].Message, tt.want) {
				t.Errorf("message %q does not mention %q", result.Errors[0].Message, tt.want)
			}
		})
	}
}

func TestE2EErrorKeepsPreviousKit(t *testing.T) {
	app := newTestApp(t)
	if r := app.Evaluate(shelfSource); len(r.Errors) > 0 {
		t.Fatal(r.Errors)
	}
	if r := app.Evaluate(`(defdesign "broken"`); len(r.Errors) == 0 {
		t.Fatal("expected an error")
	}
	d, err := app.Diagram()
	if err != nil {
		t.Fatal(err)
	}
	if d.Design != "shelf" || len(d.Nodes) != 3 {
		t.Errorf("diagram after failed evaluation = %+v", d)
	}
}

// ---------------------------------------------------------------------------
// Repeated evaluation
// ---------------------------------------------------------------------------

func TestE2ERapidEvaluationAlternating(t *testing.T) {
	// Alternates between valid and invalid sources. The engine must recover
	// cleanly between error and success states.
	app := newTestApp(t)
	sources := []string{
		shelfSource,
		`(defdesign "broken"`,
		``,
		`(piece "missing")`,
		shelfSource,
		`;; just a comment`,
		`(undefined-func 1 2 3)`,
		shelfSource,
	}
	for i, source := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked on source %q: %v", i, source, r)
				}
			}()
			app.Evaluate(source)
		}()
	}
	if r := app.Evaluate(shelfSource); len(r.Meshes) != 3 {
		t.Errorf("final evaluation has %d meshes", len(r.Meshes))
	}
}

func TestE2EReevaluationKeepsOpenDesign(t *testing.T) {
	app := newTestApp(t)
	app.Evaluate(shelfSource)
	if _, err := app.OpenDesign("yard"); err != nil {
		t.Fatal(err)
	}

	result := app.Evaluate(shelfSource)
	if result.Design != "yard" {
		t.Errorf("open design after re-evaluation = %q", result.Design)
	}

	// A kit without the open design falls back to its first design.
	other := `(kit "other")` + boxType + `(defdesign "solo" (piece "p" :type "box" :plane (plane)))`
	if result := app.Evaluate(other); result.Design != "solo" {
		t.Errorf("open design = %q", result.Design)
	}
}

func TestE2EOpenUnknownDesign(t *testing.T) {
	app := newTestApp(t)
	if _, err := app.OpenDesign("shelf"); err != errNoDesign {
		t.Errorf("before evaluation: %v", err)
	}
	app.Evaluate(shelfSource)
	if _, err := app.OpenDesign("nope"); !errors.Is(err, design.ErrNotFound) {
		t.Errorf("unknown design: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Placement problems
// ---------------------------------------------------------------------------

func TestE2EDisconnectedPieceIsWarned(t *testing.T) {
	app := newTestApp(t)
	source := boxType + `
(defdesign "loose"
  (piece "a" :type "box" :plane (plane))
  (piece "stray" :type "box"))
`
	result := app.Evaluate(source)
	if len(result.Errors) != 0 {
		t.Fatalf("errors: %v", result.Errors)
	}
	if len(result.Meshes) != 1 || result.Meshes[0].Piece != "a" {
		t.Errorf("meshes = %d", len(result.Meshes))
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w.Message, "stray") {
			found = true
		}
	}
	if !found {
		t.Errorf("no warning about the stray piece: %v", result.Warnings)
	}

	d, err := app.Diagram()
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range d.Nodes {
		if n.Piece == "stray" && n.Placed {
			t.Error("stray reported as placed")
		}
	}
}

func TestE2EEmbeddedDesignMeshPaths(t *testing.T) {
	app := newTestApp(t)
	source := shelfSource + `
(defdesign "room"
  (piece "s" :design "shelf" :plane (plane :origin (vec3 0 0 2)) :center (coord 0 0)))
`
	app.Evaluate(source)
	result, err := app.OpenDesign("room")
	if err != nil {
		t.Fatal(err)
	}
	var pieces []string
	for _, m := range result.Meshes {
		pieces = append(pieces, m.Piece)
	}
	if strings.Join(pieces, ",") != "s/a,s/b,s/c" {
		t.Errorf("mesh pieces = %v", pieces)
	}
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func TestE2EConnectRejections(t *testing.T) {
	app := newTestApp(t)
	app.Evaluate(shelfSource)

	if err := app.Connect("c", "left", "a", "right"); !errors.Is(err, design.ErrPortOccupied) {
		t.Errorf("occupied port: %v", err)
	}
	if err := app.Connect("c", "right", "b", "left"); !errors.Is(err, design.ErrRedundantConnection) {
		t.Errorf("second connection between b and c: %v", err)
	}
	if err := app.Connect("a", "right", "a", "left"); !errors.Is(err, design.ErrInvalidConnection) {
		t.Errorf("self connection: %v", err)
	}
	if err := app.Remove([]string{"b"}, nil); !errors.Is(err, design.ErrDanglingReference) {
		t.Errorf("removing a connected piece: %v", err)
	}
	if err := app.Connect("c", "right", "a", "left"); err != nil {
		t.Errorf("closing the row: %v", err)
	}
}

func TestE2EClusterExplode(t *testing.T) {
	app := newTestApp(t)
	app.Evaluate(shelfSource)

	groups, err := app.ClusterCandidates([]string{"b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || strings.Join(groups[0], ",") != "b,c" {
		t.Fatalf("candidates = %v", groups)
	}

	node, err := app.Cluster([]string{"b", "c"}, "bc")
	if err != nil {
		t.Fatal(err)
	}
	if node != string(cluster.NodeID("bc")) {
		t.Errorf("node = %q", node)
	}
	d, _ := app.Diagram()
	if len(d.Nodes) != 2 {
		t.Errorf("nodes after cluster = %+v", d.Nodes)
	}

	if err := app.Explode(node); err != nil {
		t.Fatal(err)
	}
	d, _ = app.Diagram()
	if len(d.Nodes) != 3 || len(d.Edges) != 2 {
		t.Errorf("diagram after explode = %+v", d)
	}
}

func TestE2EDiffDiagram(t *testing.T) {
	app := newTestApp(t)
	source := shelfSource + `
(defdesign "shelf2"
  (piece "a" :type "box" :plane (plane) :center (coord 0 0))
  (piece "b" :type "box")
  (piece "d" :type "box")
  (connect "a" "right" "b" "left")
  (connect "b" "right" "d" "left"))
`
	app.Evaluate(source)
	d, err := app.DiffDiagram("shelf2")
	if err != nil {
		t.Fatal(err)
	}
	status := map[string]string{}
	for _, n := range d.Nodes {
		status[n.Piece] = n.Status
	}
	want := map[string]string{"a": "unchanged", "b": "unchanged", "c": "removed", "d": "added"}
	for piece, s := range want {
		if status[piece] != s {
			t.Errorf("%s: status %q, want %q", piece, status[piece], s)
		}
	}
}

func TestE2EDragWithoutStart(t *testing.T) {
	app := newTestApp(t)
	app.Evaluate(shelfSource)
	if _, err := app.Drag("b", 0, 0, true); err == nil {
		t.Error("Drag without StartDrag should fail")
	}
	app.CancelDrag()
}

func TestE2EColorPaletteWrapping(t *testing.T) {
	app := newTestApp(t)

	// More pieces than the palette has colors.
	var b strings.Builder
	b.WriteString(boxType)
	b.WriteString(`(defdesign "many" (piece "p0" :type "box" :plane (plane))`)
	for i := 1; i < 10; i++ {
		fmt.Fprintf(&b, ` (piece "p%d" :type "box") (connect "p%d" "right" "p%d" "left")`, i, i-1, i)
	}
	b.WriteString(")")

	result := app.Evaluate(b.String())
	if len(result.Errors) > 0 {
		t.Fatalf("errors: %v", result.Errors)
	}
	if len(result.Meshes) != 10 {
		t.Fatalf("expected 10 meshes, got %d", len(result.Meshes))
	}
	for i, m := range result.Meshes {
		if m.Color != colorPalette[i%len(colorPalette)] {
			t.Errorf("mesh %q: color %q", m.Piece, m.Color)
		}
	}
}
