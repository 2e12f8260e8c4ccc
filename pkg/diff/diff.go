// Package diff compares two versions of a design and merges change-sets
// into previews.
//
// Statuses are returned in side tables keyed by piece and connection id;
// the pieces themselves are never tagged unless a caller asks for an
// annotated copy.
package diff

import (
	"fmt"

	"github.com/chazu/semio/pkg/design"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// StatusAttribute is the reserved attribute key written by
// Preview.Annotated.
const StatusAttribute = "semio.diffStatus"

// Status classifies one entity between two design versions.
type Status int

const (
	Unchanged Status = iota
	Added
	Removed
	Modified
)

func (s Status) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// PiecesPatch lists piece changes. Added and Modified carry the proposed
// versions.
type PiecesPatch struct {
	Added    []design.Piece   `json:"added,omitempty" yaml:"added,omitempty"`
	Removed  []design.PieceID `json:"removed,omitempty" yaml:"removed,omitempty"`
	Modified []design.Piece   `json:"modified,omitempty" yaml:"modified,omitempty"`
}

// ConnectionsPatch lists connection changes.
type ConnectionsPatch struct {
	Added    []design.Connection   `json:"added,omitempty" yaml:"added,omitempty"`
	Removed  []design.ConnectionID `json:"removed,omitempty" yaml:"removed,omitempty"`
	Modified []design.Connection   `json:"modified,omitempty" yaml:"modified,omitempty"`
}

// Patch is a change-set that turns one design version into another.
type Patch struct {
	Pieces      PiecesPatch      `json:"pieces" yaml:"pieces"`
	Connections ConnectionsPatch `json:"connections" yaml:"connections"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return len(p.Pieces.Added)+len(p.Pieces.Removed)+len(p.Pieces.Modified)+
		len(p.Connections.Added)+len(p.Connections.Removed)+len(p.Connections.Modified) == 0
}

// Summary is a one-line count of the changes.
func (p Patch) Summary() string {
	return fmt.Sprintf("pieces +%d -%d ~%d, connections +%d -%d ~%d",
		len(p.Pieces.Added), len(p.Pieces.Removed), len(p.Pieces.Modified),
		len(p.Connections.Added), len(p.Connections.Removed), len(p.Connections.Modified))
}

// Diagram-only hints do not count as changes.
var (
	pieceOptions = cmp.Options{
		cmpopts.IgnoreFields(design.Piece{}, "Center"),
		cmpopts.IgnoreFields(design.Connection{}, "X", "Y"),
		cmpopts.IgnoreFields(design.FixedDesign{}, "Center"),
		cmpopts.EquateEmpty(),
	}
	connectionOptions = cmp.Options{
		cmpopts.IgnoreFields(design.Connection{}, "X", "Y"),
		cmpopts.EquateEmpty(),
	}
)

// PiecesEqual compares all semantic fields of two pieces.
func PiecesEqual(a, b design.Piece) bool {
	return cmp.Equal(a, b, pieceOptions)
}

// ConnectionsEqual compares all semantic fields of two connections.
func ConnectionsEqual(a, b design.Connection) bool {
	return cmp.Equal(a, b, connectionOptions)
}

// Compute returns the patch that turns base into proposed.
func Compute(base, proposed *design.Design) Patch {
	var p Patch

	basePieces := make(map[design.PieceID]design.Piece, len(base.Pieces))
	for _, piece := range base.Pieces {
		basePieces[piece.ID] = piece
	}
	proposedPieces := make(map[design.PieceID]bool, len(proposed.Pieces))
	for _, piece := range proposed.Pieces {
		proposedPieces[piece.ID] = true
		old, ok := basePieces[piece.ID]
		switch {
		case !ok:
			p.Pieces.Added = append(p.Pieces.Added, piece.Clone())
		case !PiecesEqual(old, piece):
			p.Pieces.Modified = append(p.Pieces.Modified, piece.Clone())
		}
	}
	for _, piece := range base.Pieces {
		if !proposedPieces[piece.ID] {
			p.Pieces.Removed = append(p.Pieces.Removed, piece.ID)
		}
	}

	baseConns := make(map[design.ConnectionID]design.Connection, len(base.Connections))
	for _, c := range base.Connections {
		baseConns[c.ID()] = c
	}
	proposedConns := make(map[design.ConnectionID]bool, len(proposed.Connections))
	for _, c := range proposed.Connections {
		id := c.ID()
		proposedConns[id] = true
		old, ok := baseConns[id]
		switch {
		case !ok:
			p.Connections.Added = append(p.Connections.Added, c.Clone())
		case !ConnectionsEqual(old, c):
			p.Connections.Modified = append(p.Connections.Modified, c.Clone())
		}
	}
	for _, c := range base.Connections {
		if !proposedConns[c.ID()] {
			p.Connections.Removed = append(p.Connections.Removed, c.ID())
		}
	}

	return p
}

// Preview is a base design with a patch merged in for display. Removed
// entities are kept so they can be drawn struck through.
type Preview struct {
	Design      *design.Design
	Pieces      map[design.PieceID]Status
	Connections map[design.ConnectionID]Status
}

// PieceStatus returns the status of id, Unchanged when unknown.
func (p *Preview) PieceStatus(id design.PieceID) Status { return p.Pieces[id] }

// ConnectionStatus returns the status of id, Unchanged when unknown.
func (p *Preview) ConnectionStatus(id design.ConnectionID) Status { return p.Connections[id] }

// Apply merges patch into a copy of base. Entities present in base keep
// their position; new ones are appended in patch order. Applying the same
// patch to the result again yields the same preview.
func Apply(base *design.Design, patch Patch) *Preview {
	out := base.Clone()
	prev := &Preview{
		Design:      out,
		Pieces:      make(map[design.PieceID]Status),
		Connections: make(map[design.ConnectionID]Status),
	}

	removedPieces := make(map[design.PieceID]bool)
	for _, id := range patch.Pieces.Removed {
		removedPieces[id] = true
	}
	replacePieces := make(map[design.PieceID]pieceChange)
	for _, piece := range patch.Pieces.Modified {
		replacePieces[piece.ID] = pieceChange{piece: piece, status: Modified}
	}
	for _, piece := range patch.Pieces.Added {
		replacePieces[piece.ID] = pieceChange{piece: piece, status: Added}
	}

	out.Pieces = out.Pieces[:0:0]
	seen := make(map[design.PieceID]bool)
	for _, piece := range base.Pieces {
		seen[piece.ID] = true
		if removedPieces[piece.ID] {
			out.Pieces = append(out.Pieces, piece.Clone())
			prev.Pieces[piece.ID] = Removed
			continue
		}
		if change, ok := replacePieces[piece.ID]; ok {
			out.Pieces = append(out.Pieces, change.piece.Clone())
			prev.Pieces[piece.ID] = change.status
			continue
		}
		out.Pieces = append(out.Pieces, piece.Clone())
		prev.Pieces[piece.ID] = Unchanged
	}
	for _, list := range [][]design.Piece{patch.Pieces.Added, patch.Pieces.Modified} {
		for _, piece := range list {
			if seen[piece.ID] {
				continue
			}
			seen[piece.ID] = true
			out.Pieces = append(out.Pieces, piece.Clone())
			prev.Pieces[piece.ID] = replacePieces[piece.ID].status
		}
	}

	removedConns := make(map[design.ConnectionID]bool)
	for _, id := range patch.Connections.Removed {
		removedConns[id] = true
	}
	replaceConns := make(map[design.ConnectionID]connectionChange)
	for _, c := range patch.Connections.Modified {
		replaceConns[c.ID()] = connectionChange{connection: c, status: Modified}
	}
	for _, c := range patch.Connections.Added {
		replaceConns[c.ID()] = connectionChange{connection: c, status: Added}
	}

	out.Connections = out.Connections[:0:0]
	seenConns := make(map[design.ConnectionID]bool)
	for _, c := range base.Connections {
		id := c.ID()
		seenConns[id] = true
		if removedConns[id] {
			out.Connections = append(out.Connections, c.Clone())
			prev.Connections[id] = Removed
			continue
		}
		if change, ok := replaceConns[id]; ok {
			out.Connections = append(out.Connections, change.connection.Clone())
			prev.Connections[id] = change.status
			continue
		}
		out.Connections = append(out.Connections, c.Clone())
		prev.Connections[id] = Unchanged
	}
	for _, list := range [][]design.Connection{patch.Connections.Added, patch.Connections.Modified} {
		for _, c := range list {
			id := c.ID()
			if seenConns[id] {
				continue
			}
			seenConns[id] = true
			out.Connections = append(out.Connections, c.Clone())
			prev.Connections[id] = replaceConns[id].status
		}
	}

	return prev
}

type pieceChange struct {
	piece  design.Piece
	status Status
}

type connectionChange struct {
	connection design.Connection
	status     Status
}

// Classify tags every piece and connection in the union of base and
// proposed.
func Classify(base, proposed *design.Design) *Preview {
	return Apply(base, Compute(base, proposed))
}

// Annotated returns a copy of the merged design with StatusAttribute set
// on every piece and connection.
func (p *Preview) Annotated() *design.Design {
	d := p.Design.Clone()
	for i := range d.Pieces {
		d.Pieces[i].Attributes = d.Pieces[i].Attributes.With(StatusAttribute, p.Pieces[d.Pieces[i].ID].String())
	}
	for i := range d.Connections {
		d.Connections[i].Attributes = d.Connections[i].Attributes.With(StatusAttribute, p.Connections[d.Connections[i].ID()].String())
	}
	return d
}
