package compiler

import (
	"cuelang.org/go/cue"
	"github.com/google/uuid"

	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/store"
)

// namespace seeds the name-derived handles of compiled datasets.
var namespace = uuid.MustParse("3b0c6f5e-8a41-4d2e-b7c9-5f1e0a2d4c86")

// TypeHandle returns the handle a dataset gives the type called name.
// Handles are name-based (UUIDv5), so recompiling a dataset, or naming a
// type in a query, yields the same handle.
func TypeHandle(name string) graph.Handle {
	return graph.Handle(uuid.NewSHA1(namespace, []byte("type/"+name)))
}

// AtomHandle returns the handle a dataset gives the atom called name.
func AtomHandle(name string) graph.Handle {
	return graph.Handle(uuid.NewSHA1(namespace, []byte("atom/"+name)))
}

// Compiled is a dataset ready to load, with the names it was written with.
type Compiled struct {
	Dataset store.Dataset
	Types   map[string]graph.Handle
	Atoms   map[string]graph.Handle

	names map[graph.Handle]string
}

// Name returns the declared name of an atom or type handle.
func (c *Compiled) Name(h graph.Handle) (string, bool) {
	n, ok := c.names[h]
	return n, ok
}

// Compile parses, validates and resolves a dataset value.
func Compile(v cue.Value) (*Compiled, error) {
	src, err := Parse(v)
	if err != nil {
		return nil, err
	}
	return Build(src)
}

// CompileString compiles dataset source text.
func CompileString(filename, text string) (*Compiled, error) {
	src, err := ParseString(filename, text)
	if err != nil {
		return nil, err
	}
	return Build(src)
}

// Build validates src and resolves every name to a handle. Types are
// ordered so that part types come first and atoms so that targets come
// first, which is the order the store accepts them in.
func Build(src *Source) (*Compiled, error) {
	if errs := Validate(src); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	c := &Compiled{
		Types: make(map[string]graph.Handle),
		Atoms: make(map[string]graph.Handle),
		names: make(map[graph.Handle]string),
	}
	for name, t := range builtinTypes() {
		c.Types[name] = t.Handle
	}
	decls := make(map[string]TypeDecl, len(src.Types))
	parts := dependencyGraph{}
	for _, t := range src.Types {
		h := TypeHandle(t.Name)
		c.Types[t.Name] = h
		c.names[h] = t.Name
		decls[t.Name] = t
	}
	for _, t := range src.Types {
		parts[t.Name] = nil
		for _, part := range sortedKeys(t.Parts) {
			if ref := t.Parts[part]; decls[ref].Name != "" {
				parts[t.Name] = append(parts[t.Name], ref)
			}
		}
	}

	order, err := topoOrder(parts)
	if err != nil {
		return nil, err
	}
	ds := &c.Dataset
	for _, name := range order {
		t := decls[name]
		gt := graph.Type{
			Handle:  c.Types[name],
			Name:    name,
			Kind:    t.Kind,
			Ordered: t.Ordered,
			Link:    t.Link,
			Parts:   make(map[string]graph.Handle, len(t.Parts)),
		}
		for part, ref := range t.Parts {
			gt.Parts[part] = c.Types[ref]
		}
		ds.Types = append(ds.Types, gt)
	}
	for _, t := range src.Types {
		for _, sup := range t.SubtypeOf {
			ds.Subsumptions = append(ds.Subsumptions, store.Subsumption{
				General:  c.Types[sup],
				Specific: c.Types[t.Name],
			})
		}
	}

	for _, ix := range src.Indexes {
		gi := graph.Indexer{Type: c.Types[ix.Type]}
		switch {
		case len(ix.Part) > 0:
			gi.Kind = graph.ByPart
			gi.Path = ix.Part
		case ix.Target >= 0:
			gi.Kind = graph.ByTarget
			gi.Position = ix.Target
		default:
			gi.Kind = graph.DirectValue
		}
		ds.Indexes = append(ds.Indexes, gi)
	}

	decl := make(map[string]AtomDecl, len(src.Atoms))
	targets := dependencyGraph{}
	for _, a := range src.Atoms {
		h := AtomHandle(a.Name)
		c.Atoms[a.Name] = h
		c.names[h] = a.Name
		decl[a.Name] = a
		targets[a.Name] = append([]string(nil), a.Targets...)
	}
	if order, err = topoOrder(targets); err != nil {
		return nil, err
	}
	for _, name := range order {
		a := decl[name]
		ga := graph.Atom{Handle: c.Atoms[name], Type: c.Types[a.Type], Value: a.Value}
		for _, t := range a.Targets {
			ga.Targets = append(ga.Targets, c.Atoms[t])
		}
		ds.Atoms = append(ds.Atoms, ga)
	}

	for _, sg := range sortedKeys(src.Subgraphs) {
		for _, m := range src.Subgraphs[sg] {
			ds.Members = append(ds.Members, store.Membership{Subgraph: c.Atoms[sg], Atom: c.Atoms[m]})
		}
	}
	return c, nil
}
