package editor

import (
	"github.com/chazu/semio/pkg/design"
	"github.com/chazu/semio/pkg/kit"
)

// AddPiece adds p to the design.
func (e *Editor) AddPiece(p design.Piece) error {
	return e.AddPieces([]design.Piece{p})
}

// AddPieces adds all pieces or none.
func (e *Editor) AddPieces(ps []design.Piece) error {
	return e.run("add pieces", func(d *design.Design) error {
		for _, p := range ps {
			if err := e.checkPiece(p); err != nil {
				return err
			}
			if findPiece(d, p.ID) != nil {
				return design.Errorf(design.KindDuplicatePiece, p.ID, "piece already exists")
			}
			d.Pieces = append(d.Pieces, p.Clone())
		}
		return nil
	})
}

// SetPiece replaces the piece with the same id. Ports that connections
// use must still exist on the new source.
func (e *Editor) SetPiece(p design.Piece) error {
	return e.SetPieces([]design.Piece{p})
}

// SetPieces replaces all pieces or none.
func (e *Editor) SetPieces(ps []design.Piece) error {
	return e.run("set pieces", func(d *design.Design) error {
		for _, p := range ps {
			if err := e.checkPiece(p); err != nil {
				return err
			}
			old, _ := d.Piece(p.ID)
			if old == nil {
				return design.Errorf(design.KindNotFound, p.ID, "no such piece")
			}
			*old = p.Clone()
		}
		for _, p := range ps {
			for _, i := range d.ConnectionsOf(p.ID) {
				own, _, _ := d.Connections[i].SideOf(p.ID)
				if _, err := e.sidePort(d, own); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// AddConnection adds c. It is rejected when it joins a piece to itself,
// references a missing piece or port, duplicates an existing piece pair,
// reuses an occupied port or joins incompatible families.
func (e *Editor) AddConnection(c design.Connection) error {
	return e.AddConnections([]design.Connection{c})
}

// AddConnections adds all connections or none. Each is checked against
// the ones before it.
func (e *Editor) AddConnections(cs []design.Connection) error {
	return e.run("add connections", func(d *design.Design) error {
		for _, c := range cs {
			if err := e.addConnection(d, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetConnection replaces the connection joining the same piece pair.
func (e *Editor) SetConnection(c design.Connection) error {
	return e.SetConnections([]design.Connection{c})
}

// SetConnections replaces all connections or none.
func (e *Editor) SetConnections(cs []design.Connection) error {
	return e.run("set connections", func(d *design.Design) error {
		for _, c := range cs {
			_, i := d.Connection(c.ID())
			if i < 0 {
				return design.Errorf(design.KindNotFound, c.Connecting.Piece, "no connection %s", c.ID())
			}
			d.Connections = append(d.Connections[:i], d.Connections[i+1:]...)
			if err := e.checkConnection(d, c); err != nil {
				return err
			}
			d.Connections = append(d.Connections, design.Connection{})
			copy(d.Connections[i+1:], d.Connections[i:])
			d.Connections[i] = c.Clone()
		}
		return nil
	})
}

// RemovePiece removes the piece with the given id. A piece that
// connections still reference cannot be removed; remove them with it via
// Remove.
func (e *Editor) RemovePiece(id design.PieceID) error {
	return e.RemovePieces([]design.PieceID{id})
}

// RemovePieces removes all pieces or none.
func (e *Editor) RemovePieces(ids []design.PieceID) error {
	return e.run("remove pieces", func(d *design.Design) error {
		return removePieces(d, ids)
	})
}

// RemoveConnection removes the connection with the given id.
func (e *Editor) RemoveConnection(id design.ConnectionID) error {
	return e.RemoveConnections([]design.ConnectionID{id})
}

// RemoveConnections removes all connections or none.
func (e *Editor) RemoveConnections(ids []design.ConnectionID) error {
	return e.run("remove connections", func(d *design.Design) error {
		return removeConnections(d, ids)
	})
}

// Remove removes connections and then pieces in one command.
func (e *Editor) Remove(pieces []design.PieceID, connections []design.ConnectionID) error {
	return e.run("remove", func(d *design.Design) error {
		if err := removeConnections(d, connections); err != nil {
			return err
		}
		return removePieces(d, pieces)
	})
}

func removeConnections(d *design.Design, ids []design.ConnectionID) error {
	for _, id := range ids {
		_, i := d.Connection(id)
		if i < 0 {
			return design.Errorf(design.KindNotFound, id.A, "no connection %s", id)
		}
		d.Connections = append(d.Connections[:i], d.Connections[i+1:]...)
	}
	return nil
}

func removePieces(d *design.Design, ids []design.PieceID) error {
	for _, id := range ids {
		_, i := d.Piece(id)
		if i < 0 {
			return design.Errorf(design.KindNotFound, id, "no such piece")
		}
		d.Pieces = append(d.Pieces[:i], d.Pieces[i+1:]...)
	}
	for _, id := range ids {
		if refs := d.ConnectionsOf(id); len(refs) > 0 {
			return design.Errorf(design.KindDanglingReference, id, "still referenced by %s", d.Connections[refs[0]].ID())
		}
	}
	return nil
}

func (e *Editor) addConnection(d *design.Design, c design.Connection) error {
	if err := e.checkConnection(d, c); err != nil {
		return err
	}
	d.Connections = append(d.Connections, c.Clone())
	return nil
}

// checkConnection reports why c cannot join d, in the order self
// connection, missing piece or port, redundant pair, occupied port and
// incompatible families.
func (e *Editor) checkConnection(d *design.Design, c design.Connection) error {
	if c.Connecting.Piece == c.Connected.Piece {
		return design.Errorf(design.KindInvalidConnection, c.Connecting.Piece, "connection joins the piece to itself")
	}
	a, err := e.sidePort(d, c.Connecting)
	if err != nil {
		return err
	}
	b, err := e.sidePort(d, c.Connected)
	if err != nil {
		return err
	}
	if d.HasConnectionBetween(c.Connecting.Piece, c.Connected.Piece) {
		return design.Errorf(design.KindRedundantConnection, c.Connecting.Piece, "already connected to %s", c.Connected.Piece)
	}
	for _, s := range []design.Side{c.Connecting, c.Connected} {
		if design.SideInUse(d, e.cat, s) {
			return design.Errorf(design.KindPortOccupied, s.Piece, "port is already connected").WithPort(s.Port)
		}
	}
	if !kit.FamiliesCompatible(a, b) {
		return design.Errorf(design.KindIncompatiblePorts, c.Connecting.Piece,
			"family %q does not fit %s", a.Family, c.Connected).WithPort(a.ID)
	}
	return nil
}

// sidePort resolves the port a side attaches to. Sides on embedded designs
// resolve through the named inner piece.
func (e *Editor) sidePort(d *design.Design, s design.Side) (*kit.Port, error) {
	p := findPiece(d, s.Piece)
	if p == nil {
		return nil, design.Errorf(design.KindDanglingReference, s.Piece, "no such piece")
	}
	if emb, ok := p.Source.(design.Embedded); ok {
		if s.DesignPiece == "" {
			return nil, design.Errorf(design.KindDanglingReference, s.Piece, "side on an embedded design names no design piece")
		}
		sub, err := e.cat.ResolveDesign(emb.Design)
		if err != nil {
			return nil, design.Errorf(design.KindDanglingReference, s.Piece, "design %s: %v", emb.Design, err)
		}
		inner := findPiece(sub, s.DesignPiece)
		if inner == nil || inner.IsDesign() {
			return nil, design.Errorf(design.KindDanglingReference, s.Piece, "design %s has no piece %s", emb.Design, s.DesignPiece)
		}
		p = inner
	}
	ports, err := design.Ports(p, e.cat)
	if err != nil {
		return nil, design.Errorf(design.KindDanglingReference, s.Piece, "%v", err)
	}
	port, ok := kit.FindPort(ports, s.Port)
	if !ok {
		return nil, design.Errorf(design.KindDanglingReference, s.Piece, "no such port").WithPort(s.Port)
	}
	return port, nil
}

func (e *Editor) checkPiece(p design.Piece) error {
	if p.ID == "" {
		return design.Errorf(design.KindInvalidPiece, "", "piece has no id")
	}
	switch s := p.Source.(type) {
	case design.TypeRef:
		if _, err := e.cat.ResolveType(s.Type.Name, s.Type.Variant); err != nil {
			return design.Errorf(design.KindNotFound, p.ID, "type %s", s.Type)
		}
	case design.Embedded:
		if _, err := e.cat.ResolveDesign(s.Design); err != nil {
			return design.Errorf(design.KindNotFound, p.ID, "design %s", s.Design)
		}
	case design.Clustered:
		if s.Design == nil {
			return design.Errorf(design.KindInvalidPiece, p.ID, "cluster holds no design")
		}
	default:
		return design.Errorf(design.KindInvalidPiece, p.ID, "piece is neither a type nor a design")
	}
	return nil
}

// findPiece looks a piece up among the pieces and the fixed designs.
func findPiece(d *design.Design, id design.PieceID) *design.Piece {
	if p, _ := d.Piece(id); p != nil {
		return p
	}
	all := d.AllPieces()
	for i := len(d.Pieces); i < len(all); i++ {
		if all[i].ID == id {
			return &all[i]
		}
	}
	return nil
}
