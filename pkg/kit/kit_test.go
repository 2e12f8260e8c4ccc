package kit

import "testing"

func TestFamiliesCompatible(t *testing.T) {
	tests := []struct {
		name string
		a, b Port
		want bool
	}{
		{"both empty", Port{}, Port{}, true},
		{"one empty", Port{Family: "beam"}, Port{}, true},
		{
			"mutual",
			Port{Family: "beam", CompatibleFamilies: []string{"column"}},
			Port{Family: "column", CompatibleFamilies: []string{"beam"}},
			true,
		},
		{
			"one way only",
			Port{Family: "beam", CompatibleFamilies: []string{"column"}},
			Port{Family: "column"},
			false,
		},
		{
			"unrelated",
			Port{Family: "beam", CompatibleFamilies: []string{"beam"}},
			Port{Family: "column", CompatibleFamilies: []string{"column"}},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FamiliesCompatible(&tt.a, &tt.b); got != tt.want {
				t.Errorf("FamiliesCompatible = %v, want %v", got, tt.want)
			}
			if got := FamiliesCompatible(&tt.b, &tt.a); got != tt.want {
				t.Errorf("FamiliesCompatible (swapped) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTypePortLookup(t *testing.T) {
	typ := Type{Name: "box", Ports: []Port{{ID: "left"}, {ID: "right"}}}

	if p, ok := typ.Port("right"); !ok || p.ID != "right" {
		t.Errorf("Port(right) = %v, %v", p, ok)
	}
	if p, ok := typ.Port(""); !ok || p.ID != "left" {
		t.Errorf("default port should fall back to the first port, got %v, %v", p, ok)
	}
	if _, ok := typ.Port("top"); ok {
		t.Error("Port(top) should not resolve")
	}

	withDefault := Type{Ports: []Port{{ID: "a"}, {ID: ""}}}
	if p, _ := withDefault.Port(""); p != &withDefault.Ports[1] {
		t.Error("empty id should prefer the port whose id is empty")
	}
}

func TestAttributesWith(t *testing.T) {
	as := Attributes{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}
	got := as.With("a", "9").With("c", "3")
	if v, _ := got.Get("a"); v != "9" {
		t.Errorf("a = %q", v)
	}
	if got[0].Key != "a" || got[2].Key != "c" {
		t.Errorf("order not kept: %+v", got)
	}
	if v, _ := as.Get("a"); v != "1" {
		t.Error("With must not modify the receiver")
	}
}

func TestTypeIDString(t *testing.T) {
	if s := (TypeID{Name: "beam"}).String(); s != "beam" {
		t.Errorf("got %q", s)
	}
	if s := (TypeID{Name: "beam", Variant: "long"}).String(); s != "beam/long" {
		t.Errorf("got %q", s)
	}
}
