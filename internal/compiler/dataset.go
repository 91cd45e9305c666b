package compiler

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/hgq/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

// TypeDecl is a type as written in a dataset.
type TypeDecl struct {
	Name      string
	Kind      ir.Kind
	Ordered   bool
	Link      bool
	Parts     map[string]string
	SubtypeOf []string
	Pos       token.Pos
}

// IndexDecl is an index as written in a dataset. Exactly one of Part,
// Target and Value selects the index kind; Target is -1 when unset.
type IndexDecl struct {
	Type   string
	Part   []string
	Target int
	Value  bool
	Pos    token.Pos
}

// AtomDecl is an atom as written in a dataset.
type AtomDecl struct {
	Name    string
	Type    string
	Value   ir.Value
	Targets []string
	Pos     token.Pos
}

// Source is a parsed dataset with every reference still a name.
type Source struct {
	Types     []TypeDecl
	Indexes   []IndexDecl
	Atoms     []AtomDecl
	Subgraphs map[string][]string
}

// Parse checks v against the dataset schema and extracts its
// declarations. Types and atoms are returned in name order.
//
// Uses CUE SDK's Go API directly (not CLI subprocess):
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`types: Person: {parts: name: "string"}`)
//	src, err := Parse(v)
func Parse(v cue.Value) (*Source, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	schema := v.Context().CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("dataset schema: %w", err)
	}
	// Declarations are read from v itself so positions point into the
	// dataset files rather than the schema.
	checked := schema.LookupPath(cue.ParsePath("#Dataset")).Unify(v)
	if err := checked.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	src := &Source{Subgraphs: make(map[string][]string)}
	var err error
	if src.Types, err = parseTypes(v); err != nil {
		return nil, err
	}
	if src.Indexes, err = parseIndexes(v); err != nil {
		return nil, err
	}
	if src.Atoms, err = parseAtoms(v); err != nil {
		return nil, err
	}
	if err := eachField(v, "subgraphs", func(name string, sv cue.Value) error {
		members, err := stringList(sv)
		if err != nil {
			return err
		}
		src.Subgraphs[name] = members
		return nil
	}); err != nil {
		return nil, err
	}
	return src, nil
}

// ParseString compiles CUE source text and parses it.
func ParseString(filename, text string) (*Source, error) {
	v := cuecontext.New().CompileString(text, cue.Filename(filename))
	return Parse(v)
}

// eachField calls fn for every field of the struct at path, in label
// order. A missing path is not an error.
func eachField(v cue.Value, path string, fn func(label string, fv cue.Value) error) error {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	type field struct {
		label string
		v     cue.Value
	}
	var fields []field
	for iter.Next() {
		fields = append(fields, field{iter.Label(), iter.Value()})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].label < fields[j].label })
	for _, f := range fields {
		if err := fn(f.label, f.v); err != nil {
			return err
		}
	}
	return nil
}

func parseTypes(v cue.Value) ([]TypeDecl, error) {
	var types []TypeDecl
	err := eachField(v, "types", func(name string, tv cue.Value) error {
		t := TypeDecl{Name: name, Parts: map[string]string{}, Pos: tv.Pos()}

		if lv := tv.LookupPath(cue.ParsePath("link")); lv.Exists() {
			link, err := lv.Bool()
			if err != nil {
				return formatCUEError(err)
			}
			t.Link = link
		}
		if err := eachField(tv, "parts", func(part string, pv cue.Value) error {
			ref, err := pv.String()
			if err != nil {
				return formatCUEError(err)
			}
			t.Parts[part] = ref
			return nil
		}); err != nil {
			return err
		}

		kind, err := parseKind(tv, t)
		if err != nil {
			return err
		}
		t.Kind = kind
		t.Ordered = kind == ir.KindBool || kind == ir.KindInt || kind == ir.KindString
		if ov := tv.LookupPath(cue.ParsePath("ordered")); ov.Exists() {
			if t.Ordered, err = ov.Bool(); err != nil {
				return formatCUEError(err)
			}
		}

		if sv := tv.LookupPath(cue.ParsePath("subtypeOf")); sv.Exists() {
			if t.SubtypeOf, err = stringList(sv); err != nil {
				return err
			}
		}
		types = append(types, t)
		return nil
	})
	return types, err
}

// parseKind resolves the declared value kind. Without a kind, types with
// parts hold records and links hold no value.
func parseKind(tv cue.Value, t TypeDecl) (ir.Kind, error) {
	kv := tv.LookupPath(cue.ParsePath("kind"))
	if !kv.Exists() {
		switch {
		case len(t.Parts) > 0:
			return ir.KindRecord, nil
		case t.Link:
			return ir.KindNull, nil
		}
		return 0, &CompileError{
			Field:   "types." + t.Name + ".kind",
			Message: "kind is required for types without parts",
			Pos:     tv.Pos(),
		}
	}
	s, err := kv.String()
	if err != nil {
		return 0, formatCUEError(err)
	}
	for _, k := range []ir.Kind{ir.KindNull, ir.KindBool, ir.KindInt, ir.KindString, ir.KindList, ir.KindRecord} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, &CompileError{Field: "types." + t.Name + ".kind", Message: fmt.Sprintf("unknown kind %q", s), Pos: kv.Pos()}
}

func parseIndexes(v cue.Value) ([]IndexDecl, error) {
	lv := v.LookupPath(cue.ParsePath("indexes"))
	if !lv.Exists() {
		return nil, nil
	}
	iter, err := lv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []IndexDecl
	for iter.Next() {
		iv := iter.Value()
		ix := IndexDecl{Target: -1, Pos: iv.Pos()}
		if ix.Type, err = iv.LookupPath(cue.ParsePath("type")).String(); err != nil {
			return nil, formatCUEError(err)
		}
		if pv := iv.LookupPath(cue.ParsePath("part")); pv.Exists() {
			if s, err := pv.String(); err == nil {
				ix.Part = strings.Split(s, ".")
			} else if ix.Part, err = stringList(pv); err != nil {
				return nil, err
			}
		}
		if tv := iv.LookupPath(cue.ParsePath("target")); tv.Exists() {
			n, err := tv.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			ix.Target = int(n)
		}
		ix.Value = iv.LookupPath(cue.ParsePath("value")).Exists()
		out = append(out, ix)
	}
	return out, nil
}

func parseAtoms(v cue.Value) ([]AtomDecl, error) {
	var atoms []AtomDecl
	err := eachField(v, "atoms", func(name string, av cue.Value) error {
		a := AtomDecl{Name: name, Value: ir.Null{}, Pos: av.Pos()}
		var err error
		if a.Type, err = av.LookupPath(cue.ParsePath("type")).String(); err != nil {
			return formatCUEError(err)
		}
		if vv := av.LookupPath(cue.ParsePath("value")); vv.Exists() {
			if a.Value, err = decodeValue(vv); err != nil {
				return &CompileError{Field: "atoms." + name + ".value", Message: err.Error(), Pos: vv.Pos()}
			}
		}
		if tv := av.LookupPath(cue.ParsePath("targets")); tv.Exists() {
			if a.Targets, err = stringList(tv); err != nil {
				return err
			}
		}
		atoms = append(atoms, a)
		return nil
	})
	return atoms, err
}

// decodeValue converts a concrete CUE value into an ir.Value. Floats are
// forbidden; integers must fit in int64.
func decodeValue(v cue.Value) (ir.Value, error) {
	if k := v.Kind(); k == cue.FloatKind {
		return nil, fmt.Errorf("float values are forbidden - use int instead")
	}
	var raw any
	if err := v.Decode(&raw); err != nil {
		return nil, err
	}
	return ir.FromGo(raw)
}

func stringList(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
