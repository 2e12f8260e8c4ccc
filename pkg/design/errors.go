package design

import "fmt"

// Kind classifies engine and command errors.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindDanglingReference
	KindDisconnectedGraph
	KindPortOccupied
	KindIncompatiblePorts
	KindInvalidContraction
	KindRedundantConnection
	KindInvalidConnection
	KindInvalidPiece
	KindDuplicatePiece
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindDanglingReference:
		return "dangling reference"
	case KindDisconnectedGraph:
		return "disconnected graph"
	case KindPortOccupied:
		return "port occupied"
	case KindIncompatiblePorts:
		return "incompatible ports"
	case KindInvalidContraction:
		return "invalid contraction"
	case KindRedundantConnection:
		return "redundant connection"
	case KindInvalidConnection:
		return "invalid connection"
	case KindInvalidPiece:
		return "invalid piece"
	case KindDuplicatePiece:
		return "duplicate piece"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a recoverable engine error. Piece and Port locate the problem
// when known.
type Error struct {
	Kind    Kind
	Piece   PieceID
	Port    string
	Message string
}

// Sentinels for errors.Is. Matching is by kind only.
var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrDanglingReference   = &Error{Kind: KindDanglingReference}
	ErrDisconnectedGraph   = &Error{Kind: KindDisconnectedGraph}
	ErrPortOccupied        = &Error{Kind: KindPortOccupied}
	ErrIncompatiblePorts   = &Error{Kind: KindIncompatiblePorts}
	ErrInvalidContraction  = &Error{Kind: KindInvalidContraction}
	ErrRedundantConnection = &Error{Kind: KindRedundantConnection}
	ErrInvalidConnection   = &Error{Kind: KindInvalidConnection}
	ErrInvalidPiece        = &Error{Kind: KindInvalidPiece}
	ErrDuplicatePiece      = &Error{Kind: KindDuplicatePiece}
)

// Errorf builds an Error of the given kind.
func Errorf(kind Kind, piece PieceID, format string, args ...any) *Error {
	return &Error{Kind: kind, Piece: piece, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Piece != "" && e.Port != "":
		return fmt.Sprintf("%s: piece %s port %s: %s", e.Kind, e.Piece, e.Port, e.Message)
	case e.Piece != "":
		return fmt.Sprintf("%s: piece %s: %s", e.Kind, e.Piece, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// WithPort returns a copy of e located at port.
func (e *Error) WithPort(port string) *Error {
	c := *e
	c.Port = port
	return &c
}
