package design

import (
	"encoding/json"
	"fmt"

	"github.com/chazu/semio/pkg/geom"
	"github.com/chazu/semio/pkg/kit"
	"gopkg.in/yaml.v3"
)

// pieceRecord is the wire shape of a Piece. Exactly one of Type, Design
// and Cluster is set.
type pieceRecord struct {
	ID          PieceID        `json:"id" yaml:"id"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Type        *kit.TypeID    `json:"type,omitempty" yaml:"type,omitempty"`
	Design      *DesignID      `json:"design,omitempty" yaml:"design,omitempty"`
	Cluster     *clusterRecord `json:"cluster,omitempty" yaml:"cluster,omitempty"`
	Plane       *geom.Plane    `json:"plane,omitempty" yaml:"plane,omitempty"`
	Center      *geom.Coord    `json:"center,omitempty" yaml:"center,omitempty"`
	Attributes  kit.Attributes `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

type clusterRecord struct {
	Design *Design    `json:"design" yaml:"design"`
	Ports  []kit.Port `json:"ports,omitempty" yaml:"ports,omitempty"`
}

func (p Piece) record() pieceRecord {
	r := pieceRecord{
		ID:          p.ID,
		Description: p.Description,
		Plane:       p.Plane,
		Center:      p.Center,
		Attributes:  p.Attributes,
	}
	switch s := p.Source.(type) {
	case TypeRef:
		t := s.Type
		r.Type = &t
	case Embedded:
		id := s.Design
		r.Design = &id
	case Clustered:
		r.Cluster = &clusterRecord{Design: s.Design, Ports: s.Ports}
	}
	return r
}

func (r pieceRecord) piece() (Piece, error) {
	p := Piece{
		ID:          r.ID,
		Description: r.Description,
		Plane:       r.Plane,
		Center:      r.Center,
		Attributes:  r.Attributes,
	}
	set := 0
	if r.Type != nil {
		p.Source = TypeRef{Type: *r.Type}
		set++
	}
	if r.Design != nil {
		p.Source = Embedded{Design: *r.Design}
		set++
	}
	if r.Cluster != nil {
		p.Source = Clustered{Design: r.Cluster.Design, Ports: r.Cluster.Ports}
		set++
	}
	if set != 1 {
		return Piece{}, fmt.Errorf("piece %q: exactly one of type, design or cluster must be set", r.ID)
	}
	return p, nil
}

// MarshalJSON encodes the piece with its source flattened into optional
// fields.
func (p Piece) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.record())
}

// UnmarshalJSON decodes a piece written by MarshalJSON.
func (p *Piece) UnmarshalJSON(data []byte) error {
	var r pieceRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	decoded, err := r.piece()
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (p Piece) MarshalYAML() (interface{}, error) {
	return p.record(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Piece) UnmarshalYAML(value *yaml.Node) error {
	var r pieceRecord
	if err := value.Decode(&r); err != nil {
		return err
	}
	decoded, err := r.piece()
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*p = decoded
	return nil
}
