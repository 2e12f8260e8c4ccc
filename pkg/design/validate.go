package design

import (
	"fmt"

	"github.com/chazu/semio/pkg/kit"
)

// ValidationSeverity indicates whether a validation finding blocks
// flattening or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks flattening
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Piece    PieceID            // which piece has the problem (empty if design-level)
	Kind     Kind               // error class
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Piece == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] piece %s: %s", e.Severity, e.Piece, e.Message)
}

// ValidationResult bundles errors (blocking) and warnings (advisory).
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether there are no blocking findings.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Validate runs all structural checks on d and returns every finding. An
// empty slice means the design is valid. Validate never mutates d.
func Validate(d *Design, types TypeResolver) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validatePieces(d, types)...)
	errs = append(errs, validateConnections(d, types)...)
	errs = append(errs, validateReachability(d)...)
	errs = append(errs, validateMandatoryPorts(d, types)...)
	return errs
}

// ValidateAll runs Validate and separates errors from warnings.
func ValidateAll(d *Design, types TypeResolver) ValidationResult {
	var result ValidationResult
	for _, e := range Validate(d, types) {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, e)
		} else {
			result.Errors = append(result.Errors, e)
		}
	}
	return result
}

// validatePieces checks piece id uniqueness, source resolution and the
// fixed/connected placement state.
func validatePieces(d *Design, types TypeResolver) []ValidationError {
	var errs []ValidationError
	seen := make(map[PieceID]bool)

	for _, p := range d.AllPieces() {
		if p.ID == "" {
			errs = append(errs, ValidationError{
				Kind:     KindInvalidPiece,
				Message:  "piece has an empty id",
				Severity: SeverityError,
			})
		}
		if seen[p.ID] {
			errs = append(errs, ValidationError{
				Piece:    p.ID,
				Kind:     KindDuplicatePiece,
				Message:  "duplicate piece id",
				Severity: SeverityError,
			})
		}
		seen[p.ID] = true

		switch s := p.Source.(type) {
		case nil:
			errs = append(errs, ValidationError{
				Piece:    p.ID,
				Kind:     KindInvalidPiece,
				Message:  "piece references neither a type nor a design",
				Severity: SeverityError,
			})
		case TypeRef:
			if types != nil {
				if _, err := types.ResolveType(s.Type.Name, s.Type.Variant); err != nil {
					errs = append(errs, ValidationError{
						Piece:    p.ID,
						Kind:     KindNotFound,
						Message:  fmt.Sprintf("type %s does not exist", s.Type),
						Severity: SeverityError,
					})
				}
			}
		case Clustered:
			if s.Design == nil {
				errs = append(errs, ValidationError{
					Piece:    p.ID,
					Kind:     KindNotFound,
					Message:  "cluster has no sub-design",
					Severity: SeverityError,
				})
			}
			ids := make(map[string]bool)
			for _, port := range s.Ports {
				if ids[port.ID] {
					errs = append(errs, ValidationError{
						Piece:    p.ID,
						Kind:     KindRedundantConnection,
						Message:  fmt.Sprintf("duplicate synthesized port %q", port.ID),
						Severity: SeverityError,
					})
				}
				ids[port.ID] = true
			}
		}

		if p.Center != nil && p.Plane == nil {
			errs = append(errs, ValidationError{
				Piece:    p.ID,
				Kind:     KindInvalidPiece,
				Message:  "connected piece carries a center; only fixed pieces may",
				Severity: SeverityError,
			})
		}
		if p.Plane != nil && !p.Plane.IsOrthonormal() {
			errs = append(errs, ValidationError{
				Piece:    p.ID,
				Message:  "plane axes are not orthonormal and will be re-orthogonalized",
				Severity: SeverityWarning,
			})
		}
	}

	return errs
}

// validateConnections checks that both sides exist, are distinct, reference
// real ports, that no piece pair is connected twice and that no port is
// used by two connections.
func validateConnections(d *Design, types TypeResolver) []ValidationError {
	var errs []ValidationError
	pieces := make(map[PieceID]*Piece)
	all := d.AllPieces()
	for i := range all {
		pieces[all[i].ID] = &all[i]
	}

	pairs := make(map[ConnectionID]int)
	occupied := make(map[Side]int)

	for i := range d.Connections {
		c := &d.Connections[i]

		if c.Connecting.Piece == c.Connected.Piece {
			errs = append(errs, ValidationError{
				Piece:    c.Connecting.Piece,
				Kind:     KindInvalidConnection,
				Message:  fmt.Sprintf("connection %d joins the piece to itself", i),
				Severity: SeverityError,
			})
			continue
		}

		for _, side := range []Side{c.Connecting, c.Connected} {
			p, ok := pieces[side.Piece]
			if !ok {
				errs = append(errs, ValidationError{
					Piece:    side.Piece,
					Kind:     KindDanglingReference,
					Message:  fmt.Sprintf("connection %s references a missing piece", c.ID()),
					Severity: SeverityError,
				})
				continue
			}
			if types == nil {
				continue
			}
			if _, isEmbedded := p.Source.(Embedded); isEmbedded {
				if side.DesignPiece == "" {
					errs = append(errs, ValidationError{
						Piece:    side.Piece,
						Kind:     KindDanglingReference,
						Message:  fmt.Sprintf("connection %s attaches to an embedded design without naming a design piece", c.ID()),
						Severity: SeverityError,
					})
				}
				continue
			}
			ports, err := Ports(p, types)
			if err != nil {
				// Reported by validatePieces.
				continue
			}
			if _, ok := kit.FindPort(ports, side.Port); !ok {
				errs = append(errs, ValidationError{
					Piece:    side.Piece,
					Kind:     KindDanglingReference,
					Message:  fmt.Sprintf("connection %s references missing port %q", c.ID(), side.Port),
					Severity: SeverityError,
				})
			}
		}

		id := c.ID()
		if first, dup := pairs[id]; dup {
			errs = append(errs, ValidationError{
				Piece:    id.A,
				Kind:     KindRedundantConnection,
				Message:  fmt.Sprintf("connections %d and %d both join %s", first, i, id),
				Severity: SeverityError,
			})
		} else {
			pairs[id] = i
		}

		for _, side := range []Side{c.Connecting, c.Connected} {
			key := CanonicalSide(d, types, side)
			if first, used := occupied[key]; used {
				errs = append(errs, ValidationError{
					Piece:    side.Piece,
					Kind:     KindPortOccupied,
					Message:  fmt.Sprintf("port %q is used by connections %d and %d", side.Port, first, i),
					Severity: SeverityError,
				})
			} else {
				occupied[key] = i
			}
		}
	}

	return errs
}

// validateReachability warns about pieces that cannot be reached from any
// fixed piece. Flattening reports the same pieces as disconnected.
func validateReachability(d *Design) []ValidationError {
	all := d.AllPieces()
	if len(all) == 0 {
		return nil
	}

	reachable := make(map[PieceID]bool)
	queue := make([]PieceID, 0, len(all))
	for _, p := range all {
		if p.IsFixed() && !reachable[p.ID] {
			reachable[p.ID] = true
			queue = append(queue, p.ID)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, ci := range d.ConnectionsOf(current) {
			_, other, _ := d.Connections[ci].SideOf(current)
			if !reachable[other.Piece] {
				reachable[other.Piece] = true
				queue = append(queue, other.Piece)
			}
		}
	}

	var errs []ValidationError
	for _, p := range all {
		if !reachable[p.ID] {
			errs = append(errs, ValidationError{
				Piece:    p.ID,
				Kind:     KindDisconnectedGraph,
				Message:  "piece is not reachable from any fixed piece",
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateMandatoryPorts warns about mandatory ports left unconnected.
func validateMandatoryPorts(d *Design, types TypeResolver) []ValidationError {
	if types == nil {
		return nil
	}
	var errs []ValidationError
	for i := range d.Pieces {
		p := &d.Pieces[i]
		ports, err := Ports(p, types)
		if err != nil {
			continue
		}
		var missing []string
		for _, port := range ports {
			if port.Mandatory && !IsPortInUse(d, types, p.ID, port.ID) {
				missing = append(missing, port.ID)
			}
		}
		for _, id := range missing {
			errs = append(errs, ValidationError{
				Piece:    p.ID,
				Message:  fmt.Sprintf("mandatory port %q is not connected", id),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
