// Package kit defines the catalog vocabulary pieces are built from: types
// and the ports they expose.
package kit

import (
	"fmt"

	"github.com/chazu/semio/pkg/geom"
)

// Attribute is a free-form key/value pair with an optional unit.
type Attribute struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
	Unit  string `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Attributes is an ordered attribute list.
type Attributes []Attribute

// Get returns the value stored under key.
func (as Attributes) Get(key string) (string, bool) {
	for _, a := range as {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// With returns a copy of as with key set to value. An existing entry keeps
// its position.
func (as Attributes) With(key, value string) Attributes {
	out := make(Attributes, 0, len(as)+1)
	found := false
	for _, a := range as {
		if a.Key == key {
			a.Value = value
			found = true
		}
		out = append(out, a)
	}
	if !found {
		out = append(out, Attribute{Key: key, Value: value})
	}
	return out
}

// Port is an oriented attachment point on a type.
type Port struct {
	ID                 string      `json:"id,omitempty" yaml:"id,omitempty"`
	Description        string      `json:"description,omitempty" yaml:"description,omitempty"`
	Point              geom.Point  `json:"point" yaml:"point"`
	Direction          geom.Vector `json:"direction" yaml:"direction"`
	T                  float64     `json:"t,omitempty" yaml:"t,omitempty"`
	Family             string      `json:"family,omitempty" yaml:"family,omitempty"`
	Mandatory          bool        `json:"mandatory,omitempty" yaml:"mandatory,omitempty"`
	CompatibleFamilies []string    `json:"compatibleFamilies,omitempty" yaml:"compatibleFamilies,omitempty"`
	Attributes         Attributes  `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Representation points to renderable geometry for a type.
type Representation struct {
	URL         string     `json:"url" yaml:"url"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	Attributes  Attributes `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// TypeID identifies a type. The empty variant is the default variant.
type TypeID struct {
	Name    string `json:"name" yaml:"name"`
	Variant string `json:"variant,omitempty" yaml:"variant,omitempty"`
}

func (id TypeID) String() string {
	if id.Variant == "" {
		return id.Name
	}
	return fmt.Sprintf("%s/%s", id.Name, id.Variant)
}

// Type is a reusable kind of piece.
type Type struct {
	Name            string           `json:"name" yaml:"name"`
	Variant         string           `json:"variant,omitempty" yaml:"variant,omitempty"`
	Description     string           `json:"description,omitempty" yaml:"description,omitempty"`
	Unit            string           `json:"unit,omitempty" yaml:"unit,omitempty"`
	Ports           []Port           `json:"ports,omitempty" yaml:"ports,omitempty"`
	Representations []Representation `json:"representations,omitempty" yaml:"representations,omitempty"`
	Attributes      Attributes       `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// ID returns the type's identity pair.
func (t *Type) ID() TypeID {
	return TypeID{Name: t.Name, Variant: t.Variant}
}

// Port looks up a port by id. The empty id resolves to the port with an
// empty id, falling back to the first port.
func (t *Type) Port(id string) (*Port, bool) {
	return FindPort(t.Ports, id)
}

// FindPort implements the port lookup rule shared by types and synthesized
// cluster ports.
func FindPort(ports []Port, id string) (*Port, bool) {
	for i := range ports {
		if ports[i].ID == id {
			return &ports[i], true
		}
	}
	if id == "" && len(ports) > 0 {
		return &ports[0], true
	}
	return nil, false
}

// FamiliesCompatible reports whether two ports may mate by declaration.
// An empty family on either side matches anything. Otherwise each port's
// family must be listed in the other's compatible families.
func FamiliesCompatible(a, b *Port) bool {
	if a.Family == "" || b.Family == "" {
		return true
	}
	return contains(a.CompatibleFamilies, b.Family) && contains(b.CompatibleFamilies, a.Family)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
