// Package catalog aggregates types and designs into kits and resolves
// references against them.
package catalog

import (
	"fmt"
	"io"
	"os"

	"github.com/chazu/semio/pkg/design"
	"github.com/chazu/semio/pkg/kit"
	"gopkg.in/yaml.v3"
)

// Catalog resolves the references held by designs.
type Catalog interface {
	ResolveType(name, variant string) (*kit.Type, error)
	ResolveDesign(id design.DesignID) (*design.Design, error)
}

// Kit is a versioned collection of types and designs.
type Kit struct {
	Name        string          `json:"name" yaml:"name"`
	Version     string          `json:"version,omitempty" yaml:"version,omitempty"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Types       []kit.Type      `json:"types,omitempty" yaml:"types,omitempty"`
	Designs     []design.Design `json:"designs,omitempty" yaml:"designs,omitempty"`
}

var _ Catalog = (*Kit)(nil)

// ResolveType returns the type with the given name and variant.
func (k *Kit) ResolveType(name, variant string) (*kit.Type, error) {
	for i := range k.Types {
		if k.Types[i].Name == name && k.Types[i].Variant == variant {
			return &k.Types[i], nil
		}
	}
	return nil, design.Errorf(design.KindNotFound, "", "type %s", kit.TypeID{Name: name, Variant: variant})
}

// ResolveDesign returns the design with the given identity.
func (k *Kit) ResolveDesign(id design.DesignID) (*design.Design, error) {
	for i := range k.Designs {
		if k.Designs[i].ID() == id {
			return &k.Designs[i], nil
		}
	}
	return nil, design.Errorf(design.KindNotFound, "", "design %s", id)
}

// FindDesign resolves a design by name alone when it is unambiguous, and
// by the full identity otherwise. Used by command-line front ends.
func (k *Kit) FindDesign(name string) (*design.Design, error) {
	var found *design.Design
	for i := range k.Designs {
		if k.Designs[i].Name != name {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("design name %q is ambiguous; give variant and view", name)
		}
		found = &k.Designs[i]
	}
	if found == nil {
		return nil, design.Errorf(design.KindNotFound, "", "design %s", name)
	}
	return found, nil
}

// PutDesign inserts d or replaces the design with the same identity.
func (k *Kit) PutDesign(d *design.Design) {
	for i := range k.Designs {
		if k.Designs[i].ID() == d.ID() {
			k.Designs[i] = *d
			return
		}
	}
	k.Designs = append(k.Designs, *d)
}

// PutType inserts t or replaces the type with the same identity.
func (k *Kit) PutType(t kit.Type) {
	for i := range k.Types {
		if k.Types[i].ID() == t.ID() {
			k.Types[i] = t
			return
		}
	}
	k.Types = append(k.Types, t)
}

// Decode reads a YAML kit document.
func Decode(r io.Reader) (*Kit, error) {
	var k Kit
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&k); err != nil {
		return nil, fmt.Errorf("decode kit: %w", err)
	}
	return &k, nil
}

// Encode writes k as a YAML document.
func Encode(w io.Writer, k *Kit) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(k); err != nil {
		return fmt.Errorf("encode kit: %w", err)
	}
	return enc.Close()
}

// LoadFile reads a YAML kit from path.
func LoadFile(path string) (*Kit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	k, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return k, nil
}

// SaveFile writes k to path as YAML.
func SaveFile(path string, k *Kit) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, k); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
