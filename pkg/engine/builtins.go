package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/semio/pkg/catalog"
	"github.com/chazu/semio/pkg/design"
	"github.com/chazu/semio/pkg/geom"
	"github.com/chazu/semio/pkg/kit"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites kit source before zygomys sees it:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbols.
//  2. kebab-case identifiers become snake_case (fixed-design ->
//     fixed_design); zygomys reads a hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals are left alone.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch {
		case b[i] == '"':
			j := skipQuoted(b, i)
			result = append(result, b[i:j]...)
			i = j
			continue
		case b[i] == '`':
			j := i + 1
			for j < len(b) && b[j] != '`' {
				j++
			}
			if j < len(b) {
				j++
			}
			result = append(result, b[i:j]...)
			i = j
			continue
		case b[i] == ';':
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		case b[i] == ':' && i+1 < len(b) && b[i+1] == '=':
			result = append(result, b[i], b[i+1])
			i += 2
			continue
		case b[i] == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			result = append(result, '"')
			result = append(result, kwPrefix...)
			result = append(result, b[i+1:j]...)
			result = append(result, '"')
			i = j
			continue
		case b[i] == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

// skipQuoted returns the index just past the double-quoted literal that
// starts at i.
func skipQuoted(b []byte, i int) int {
	j := i + 1
	for j < len(b) && b[j] != '"' {
		if b[j] == '\\' && j+1 < len(b) {
			j += 2
			continue
		}
		j++
	}
	if j < len(b) {
		j++
	}
	return j
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Go values passed between builtins
// ---------------------------------------------------------------------------

type sexpVec3 struct{ vec geom.Vector }

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

type sexpCoord struct{ coord geom.Coord }

func (c *sexpCoord) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(coord %g %g)", c.coord.X, c.coord.Y)
}
func (c *sexpCoord) Type() *zygo.RegisteredType { return nil }

type sexpPlane struct{ plane geom.Plane }

func (p *sexpPlane) SexpString(ps *zygo.PrintState) string {
	o := p.plane.Origin
	return fmt.Sprintf("(plane :origin (vec3 %g %g %g))", o.X, o.Y, o.Z)
}
func (p *sexpPlane) Type() *zygo.RegisteredType { return nil }

type sexpAttr struct{ attr kit.Attribute }

func (a *sexpAttr) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(attr %q %q)", a.attr.Key, a.attr.Value)
}
func (a *sexpAttr) Type() *zygo.RegisteredType { return nil }

type sexpPort struct{ port kit.Port }

func (p *sexpPort) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(port %q)", p.port.ID)
}
func (p *sexpPort) Type() *zygo.RegisteredType { return nil }

type sexpRepresentation struct{ rep kit.Representation }

func (r *sexpRepresentation) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(representation %q)", r.rep.URL)
}
func (r *sexpRepresentation) Type() *zygo.RegisteredType { return nil }

type sexpPiece struct{ piece design.Piece }

func (p *sexpPiece) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(piece %q)", p.piece.ID)
}
func (p *sexpPiece) Type() *zygo.RegisteredType { return nil }

type sexpSide struct{ side design.Side }

func (s *sexpSide) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(side %q %q)", s.side.Piece, s.side.Port)
}
func (s *sexpSide) Type() *zygo.RegisteredType { return nil }

type sexpConnection struct{ conn design.Connection }

func (c *sexpConnection) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(connect %q)", c.conn.String())
}
func (c *sexpConnection) Type() *zygo.RegisteredType { return nil }

type sexpFixedDesign struct{ fixed design.FixedDesign }

func (f *sexpFixedDesign) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(fixed-design %q)", f.fixed.Design.String())
}
func (f *sexpFixedDesign) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW returns the keyword name if s is a preprocessed keyword.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments. A
// trailing keyword without a value is stored as null.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// float sets *dst from keyword key when present.
func (a kwArgs) float(fn, key string, dst *float64) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	*dst = f
	return nil
}

// str sets *dst from keyword key when present.
func (a kwArgs) str(fn, key string, dst *string) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	s, err := toString(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	*dst = s
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp. Keywords are accepted and
// stripped of their marker, so :left and "left" mean the same.
func toString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (geom.Vector, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return geom.Vector{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toCoord(s zygo.Sexp) (geom.Coord, error) {
	if c, ok := s.(*sexpCoord); ok {
		return c.coord, nil
	}
	return geom.Coord{}, fmt.Errorf("expected coord, got %T (%s)", s, s.SexpString(nil))
}

func toPlane(s zygo.Sexp) (geom.Plane, error) {
	if p, ok := s.(*sexpPlane); ok {
		return p.plane, nil
	}
	return geom.Plane{}, fmt.Errorf("expected plane, got %T (%s)", s, s.SexpString(nil))
}

func toSide(s zygo.Sexp) (design.Side, error) {
	if sd, ok := s.(*sexpSide); ok {
		return sd.side, nil
	}
	return design.Side{}, fmt.Errorf("expected side, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func toStrings(s zygo.Sexp) ([]string, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		str, err := toString(item)
		if err != nil {
			return nil, err
		}
		out = append(out, str)
	}
	return out, nil
}

// name returns the first positional argument as a string.
func (a kwArgs) name(fn string) (string, error) {
	if len(a.positional) < 1 {
		return "", fmt.Errorf("%s requires a name argument", fn)
	}
	s, err := toString(a.positional[0])
	if err != nil {
		return "", fmt.Errorf("%s: name: %w", fn, err)
	}
	return s, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the kit language into env. Top-level forms
// (kit, deftype, defdesign) write into k; the others build values for
// them.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, k *catalog.Kit) {

	// (kit "furniture" :version "1.0" :description "...")
	env.AddFunction("kit", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		n, err := pa.name("kit")
		if err != nil {
			return zygo.SexpNull, err
		}
		k.Name = n
		if err := pa.str("kit", "version", &k.Version); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.str("kit", "description", &k.Description); err != nil {
			return zygo.SexpNull, err
		}
		return zygo.SexpNull, nil
	})

	// (vec3 1 0 0)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			xyz[i] = f
		}
		return &sexpVec3{vec: geom.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// (coord 2 1)
	env.AddFunction("coord", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("coord requires exactly 2 arguments, got %d", len(args))
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("coord: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("coord: y: %w", err)
		}
		return &sexpCoord{coord: geom.Coord{X: x, Y: y}}, nil
	})

	// (plane :origin (vec3 0 0 0) :x-axis (vec3 1 0 0) :y-axis (vec3 0 1 0))
	env.AddFunction("plane", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		pl := geom.WorldPlane()
		for key, dst := range map[string]*geom.Vector{"x-axis": &pl.XAxis, "y-axis": &pl.YAxis} {
			if v, ok := pa.kw[key]; ok {
				vec, err := toVec3(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("plane: %s: %w", key, err)
				}
				*dst = vec
			}
		}
		if v, ok := pa.kw["origin"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("plane: origin: %w", err)
			}
			pl.Origin = geom.Point(vec)
		}
		if !pl.IsOrthonormal() {
			return zygo.SexpNull, fmt.Errorf("plane: axes are not orthonormal")
		}
		return &sexpPlane{plane: pl}, nil
	})

	// (attr "material" "oak" :unit "")
	env.AddFunction("attr", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("attr requires a key and a value")
		}
		var a kit.Attribute
		var err error
		if a.Key, err = toString(pa.positional[0]); err != nil {
			return zygo.SexpNull, fmt.Errorf("attr: key: %w", err)
		}
		if a.Value, err = toString(pa.positional[1]); err != nil {
			return zygo.SexpNull, fmt.Errorf("attr: value: %w", err)
		}
		if err := pa.str("attr", "unit", &a.Unit); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpAttr{attr: a}, nil
	})

	// (port "left" :point (vec3 0 0 0) :direction (vec3 -1 0 0) :t 0.75
	//       :family "face" :compatible (list "face") :mandatory true)
	env.AddFunction("port", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var p kit.Port
		if len(pa.positional) > 0 {
			id, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("port: id: %w", err)
			}
			p.ID = id
		}
		if v, ok := pa.kw["point"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("port: point: %w", err)
			}
			p.Point = geom.Point(vec)
		}
		if v, ok := pa.kw["direction"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("port: direction: %w", err)
			}
			if vec.IsZero() {
				return zygo.SexpNull, fmt.Errorf("port %q: direction must not be zero", p.ID)
			}
			p.Direction = vec.Unit()
		}
		if err := pa.float("port", "t", &p.T); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.str("port", "family", &p.Family); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.str("port", "description", &p.Description); err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["compatible"]; ok {
			fams, err := toStrings(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("port: compatible: %w", err)
			}
			p.CompatibleFamilies = fams
		}
		if v, ok := pa.kw["mandatory"]; ok {
			b, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("port: mandatory: %w", err)
			}
			p.Mandatory = b
		}
		for _, v := range pa.positional[min(1, len(pa.positional)):] {
			a, ok := v.(*sexpAttr)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("port %q: expected attr, got %T", p.ID, v)
			}
			p.Attributes = append(p.Attributes, a.attr)
		}
		return &sexpPort{port: p}, nil
	})

	// (representation "box.stl" :description "..." :tags (list "mesh"))
	env.AddFunction("representation", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		url, err := pa.name("representation")
		if err != nil {
			return zygo.SexpNull, err
		}
		r := kit.Representation{URL: url}
		if err := pa.str("representation", "description", &r.Description); err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["tags"]; ok {
			if r.Tags, err = toStrings(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("representation: tags: %w", err)
			}
		}
		return &sexpRepresentation{rep: r}, nil
	})

	// (deftype "box" :variant "" :unit "m" (port ...) (representation ...) (attr ...))
	env.AddFunction("deftype", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		n, err := pa.name("deftype")
		if err != nil {
			return zygo.SexpNull, err
		}
		t := kit.Type{Name: n}
		for key, dst := range map[string]*string{"variant": &t.Variant, "unit": &t.Unit, "description": &t.Description} {
			if err := pa.str("deftype", key, dst); err != nil {
				return zygo.SexpNull, err
			}
		}
		seen := make(map[string]bool)
		for i, v := range pa.positional[1:] {
			switch body := v.(type) {
			case *sexpPort:
				if seen[body.port.ID] {
					return zygo.SexpNull, fmt.Errorf("deftype %q: duplicate port %q", n, body.port.ID)
				}
				seen[body.port.ID] = true
				t.Ports = append(t.Ports, body.port)
			case *sexpRepresentation:
				t.Representations = append(t.Representations, body.rep)
			case *sexpAttr:
				t.Attributes = append(t.Attributes, body.attr)
			default:
				return zygo.SexpNull, fmt.Errorf("deftype %q: child %d: expected port, representation or attr, got %T (%s)",
					n, i+1, v, v.SexpString(nil))
			}
		}
		k.PutType(t)
		return &zygo.SexpStr{S: n}, nil
	})

	// (piece "a" :type "box" :plane (plane) :center (coord 0 0))
	// (piece "w" :design "wall" :design-variant "tall")
	env.AddFunction("piece", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		id, err := pa.name("piece")
		if err != nil {
			return zygo.SexpNull, err
		}
		p := design.Piece{ID: design.PieceID(id)}

		_, isType := pa.kw["type"]
		_, isDesign := pa.kw["design"]
		switch {
		case isType && isDesign:
			return zygo.SexpNull, fmt.Errorf("piece %q: :type and :design are exclusive", id)
		case isType:
			var ref kit.TypeID
			if err := pa.str("piece", "type", &ref.Name); err != nil {
				return zygo.SexpNull, err
			}
			if err := pa.str("piece", "variant", &ref.Variant); err != nil {
				return zygo.SexpNull, err
			}
			p.Source = design.TypeRef{Type: ref}
		case isDesign:
			var ref design.DesignID
			if err := pa.str("piece", "design", &ref.Name); err != nil {
				return zygo.SexpNull, err
			}
			if err := pa.str("piece", "design-variant", &ref.Variant); err != nil {
				return zygo.SexpNull, err
			}
			if err := pa.str("piece", "design-view", &ref.View); err != nil {
				return zygo.SexpNull, err
			}
			p.Source = design.Embedded{Design: ref}
		default:
			return zygo.SexpNull, fmt.Errorf("piece %q: needs :type or :design", id)
		}

		if v, ok := pa.kw["plane"]; ok {
			pl, err := toPlane(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("piece %q: plane: %w", id, err)
			}
			p.Plane = &pl
		}
		if v, ok := pa.kw["center"]; ok {
			c, err := toCoord(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("piece %q: center: %w", id, err)
			}
			p.Center = &c
		}
		if err := pa.str("piece", "description", &p.Description); err != nil {
			return zygo.SexpNull, err
		}
		for _, v := range pa.positional[1:] {
			a, ok := v.(*sexpAttr)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("piece %q: expected attr, got %T", id, v)
			}
			p.Attributes = append(p.Attributes, a.attr)
		}
		return &sexpPiece{piece: p}, nil
	})

	// (side "b" "left" :design-piece "w")
	env.AddFunction("side", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 || len(pa.positional) > 2 {
			return zygo.SexpNull, fmt.Errorf("side requires a piece and an optional port")
		}
		var s design.Side
		piece, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("side: piece: %w", err)
		}
		s.Piece = design.PieceID(piece)
		if len(pa.positional) == 2 {
			if s.Port, err = toString(pa.positional[1]); err != nil {
				return zygo.SexpNull, fmt.Errorf("side: port: %w", err)
			}
		}
		var dp string
		if err := pa.str("side", "design-piece", &dp); err != nil {
			return zygo.SexpNull, err
		}
		s.DesignPiece = design.PieceID(dp)
		return &sexpSide{side: s}, nil
	})

	// (connect (side "a" "right") (side "b" "left") :gap 0.5 :rotation 90)
	// (connect "a" "right" "b" "left")
	env.AddFunction("connect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var c design.Connection
		rest := pa.positional
		switch {
		case len(rest) >= 2 && isSide(rest[0]) && isSide(rest[1]):
			c.Connecting, _ = toSide(rest[0])
			c.Connected, _ = toSide(rest[1])
			rest = rest[2:]
		case len(rest) >= 4:
			var parts [4]string
			for i := range parts {
				s, err := toString(rest[i])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("connect: argument %d: %w", i+1, err)
				}
				parts[i] = s
			}
			c.Connecting = design.Side{Piece: design.PieceID(parts[0]), Port: parts[1]}
			c.Connected = design.Side{Piece: design.PieceID(parts[2]), Port: parts[3]}
			rest = rest[4:]
		default:
			return zygo.SexpNull, fmt.Errorf("connect requires two sides")
		}

		for key, dst := range map[string]*float64{
			"gap": &c.Gap, "shift": &c.Shift, "rise": &c.Rise,
			"rotation": &c.Rotation, "turn": &c.Turn, "tilt": &c.Tilt,
			"x": &c.X, "y": &c.Y,
		} {
			if err := pa.float("connect", key, dst); err != nil {
				return zygo.SexpNull, err
			}
		}
		if err := pa.str("connect", "description", &c.Description); err != nil {
			return zygo.SexpNull, err
		}
		for _, v := range rest {
			a, ok := v.(*sexpAttr)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("connect %s: expected attr, got %T", c, v)
			}
			c.Attributes = append(c.Attributes, a.attr)
		}
		return &sexpConnection{conn: c}, nil
	})

	// (fixed-design "wall" :plane (plane ...) :center (coord 4 0))
	env.AddFunction("fixed_design", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		n, err := pa.name("fixed-design")
		if err != nil {
			return zygo.SexpNull, err
		}
		f := design.FixedDesign{Design: design.DesignID{Name: n}, Plane: geom.WorldPlane()}
		if err := pa.str("fixed-design", "variant", &f.Design.Variant); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.str("fixed-design", "view", &f.Design.View); err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["plane"]; ok {
			if f.Plane, err = toPlane(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("fixed-design %q: plane: %w", n, err)
			}
		}
		if v, ok := pa.kw["center"]; ok {
			c, err := toCoord(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("fixed-design %q: center: %w", n, err)
			}
			f.Center = &c
		}
		return &sexpFixedDesign{fixed: f}, nil
	})

	// (defdesign "row" :variant "" :view "" :unit "m" (piece ...) (connect ...) (fixed-design ...))
	env.AddFunction("defdesign", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		n, err := pa.name("defdesign")
		if err != nil {
			return zygo.SexpNull, err
		}
		d := design.New(n)
		for key, dst := range map[string]*string{
			"variant": &d.Variant, "view": &d.View, "unit": &d.Unit, "description": &d.Description,
		} {
			if err := pa.str("defdesign", key, dst); err != nil {
				return zygo.SexpNull, err
			}
		}
		for i, v := range pa.positional[1:] {
			switch body := v.(type) {
			case *sexpPiece:
				if p, _ := d.Piece(body.piece.ID); p != nil {
					return zygo.SexpNull, fmt.Errorf("defdesign %q: duplicate piece %q", n, body.piece.ID)
				}
				d.Pieces = append(d.Pieces, body.piece)
			case *sexpConnection:
				d.Connections = append(d.Connections, body.conn)
			case *sexpFixedDesign:
				d.FixedDesigns = append(d.FixedDesigns, body.fixed)
			case *sexpAttr:
				d.Attributes = append(d.Attributes, body.attr)
			default:
				return zygo.SexpNull, fmt.Errorf("defdesign %q: child %d: expected piece, connect, fixed-design or attr, got %T (%s)",
					n, i+1, v, v.SexpString(nil))
			}
		}
		k.PutDesign(d)
		return &zygo.SexpStr{S: n}, nil
	})
}

func isSide(s zygo.Sexp) bool {
	_, ok := s.(*sexpSide)
	return ok
}
