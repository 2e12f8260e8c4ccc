package catalog

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/semio/pkg/design"
	"github.com/google/go-cmp/cmp"
)

const sampleKit = `
name: timber
version: "1.0"
types:
  - name: beam
    unit: m
    ports:
      - id: start
        point: {x: 0, y: 0, z: 0}
        direction: {x: -1, y: 0, z: 0}
        family: end
        compatibleFamilies: [end]
      - id: end
        point: {x: 1, y: 0, z: 0}
        direction: {x: 1, y: 0, z: 0}
        family: end
        compatibleFamilies: [end]
designs:
  - name: frame
    pieces:
      - id: a
        type: {name: beam}
        plane:
          origin: {x: 0, y: 0, z: 0}
          xAxis: {x: 1, y: 0, z: 0}
          yAxis: {x: 0, y: 1, z: 0}
        center: {x: 0, y: 0}
      - id: b
        type: {name: beam}
    connections:
      - connecting: {piece: a, port: end}
        connected: {piece: b, port: start}
        gap: 0.5
`

func TestDecodeKit(t *testing.T) {
	k, err := Decode(strings.NewReader(sampleKit))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if k.Name != "timber" || k.Version != "1.0" {
		t.Errorf("kit header = %q %q", k.Name, k.Version)
	}

	beam, err := k.ResolveType("beam", "")
	if err != nil {
		t.Fatalf("ResolveType: %v", err)
	}
	if len(beam.Ports) != 2 || beam.Ports[1].Point.X != 1 {
		t.Errorf("beam ports = %+v", beam.Ports)
	}

	frame, err := k.ResolveDesign(design.DesignID{Name: "frame"})
	if err != nil {
		t.Fatalf("ResolveDesign: %v", err)
	}
	if !frame.Pieces[0].IsFixed() || frame.Pieces[1].IsFixed() {
		t.Error("placement state not decoded")
	}
	if frame.Connections[0].Gap != 0.5 {
		t.Errorf("gap = %v", frame.Connections[0].Gap)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader("name: x\nflavour: sour\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestResolveNotFound(t *testing.T) {
	k := &Kit{Name: "empty"}
	if _, err := k.ResolveType("beam", ""); !errors.Is(err, design.ErrNotFound) {
		t.Errorf("ResolveType error = %v", err)
	}
	if _, err := k.ResolveDesign(design.DesignID{Name: "frame"}); !errors.Is(err, design.ErrNotFound) {
		t.Errorf("ResolveDesign error = %v", err)
	}
}

func TestFindDesign(t *testing.T) {
	k := &Kit{Designs: []design.Design{
		{Name: "frame"},
		{Name: "wall", Variant: "a"},
		{Name: "wall", Variant: "b"},
	}}
	if d, err := k.FindDesign("frame"); err != nil || d.Name != "frame" {
		t.Errorf("FindDesign(frame) = %v, %v", d, err)
	}
	if _, err := k.FindDesign("wall"); err == nil {
		t.Error("expected ambiguity error")
	}
	if _, err := k.FindDesign("roof"); !errors.Is(err, design.ErrNotFound) {
		t.Errorf("FindDesign(roof) error = %v", err)
	}
}

func TestPutDesignReplaces(t *testing.T) {
	k := &Kit{}
	k.PutDesign(&design.Design{Name: "frame", Description: "v1"})
	k.PutDesign(&design.Design{Name: "frame", Description: "v2"})
	if len(k.Designs) != 1 || k.Designs[0].Description != "v2" {
		t.Errorf("designs = %+v", k.Designs)
	}
}

func TestFileRoundTrip(t *testing.T) {
	k, err := Decode(strings.NewReader(sampleKit))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "kit.yaml")
	if err := SaveFile(path, k); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if diff := cmp.Diff(k, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, loaded); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "compatibleFamilies") {
		t.Errorf("encoded kit lost port families:\n%s", buf.String())
	}
}
