package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/hgq/internal/cursor"
	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
	"github.com/roach88/hgq/internal/traverse"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertTypeRow writes the types row of t. Defining the same type twice is
// a no-op.
func insertTypeRow(ctx context.Context, db execer, t graph.Type) error {
	parts, err := marshalParts(t.Parts)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO types (handle, name, kind, ordered, link, parts_json)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(handle) DO NOTHING
	`,
		handleBytes(t.Handle),
		t.Name,
		int(t.Kind),
		t.Ordered,
		t.Link,
		parts,
	)
	if err != nil {
		return fmt.Errorf("insert type %s: %w", t, err)
	}
	return nil
}

// insertAtomRow writes the atoms row of a and its targets.
func insertAtomRow(ctx context.Context, db execer, a graph.Atom) error {
	v := a.Value
	if v == nil {
		v = ir.Null{}
	}
	value, err := marshalValue(v)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO atoms (handle, type, value_json, value_kind, value_key, arity)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		handleBytes(a.Handle),
		handleBytes(a.Type),
		value,
		int(v.Kind()),
		ir.EncodeKey(v),
		len(a.Targets),
	)
	if err != nil {
		return fmt.Errorf("insert atom %s: %w", a.Handle, err)
	}
	for i, target := range a.Targets {
		_, err := db.ExecContext(ctx, `
			INSERT INTO targets (link, position, target) VALUES (?, ?, ?)
		`, handleBytes(a.Handle), i, handleBytes(target))
		if err != nil {
			return fmt.Errorf("insert target %d of %s: %w", i, a.Handle, err)
		}
	}
	return nil
}

// Writer adds to the graph within one write transaction. Reads through the
// writer see its own uncommitted writes.
type Writer struct {
	tx *sql.Tx
	r  *reader
}

// Update runs fn in a write transaction and commits if fn returns nil.
// Writers are serialized.
func (s *Store) Update(ctx context.Context, fn func(*Writer) error) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Writer{tx: tx, r: newReader(tx, s.sqlc)}); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE meta SET value = value + 1 WHERE key = 'generation'"); err != nil {
		return fmt.Errorf("bump generation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}

// Graph exposes the writer's view for reads.
func (w *Writer) Graph() graph.Graph { return w.r }

// DefineType adds a type. A zero handle is replaced by a fresh one. The
// type is also stored as an atom of the meta-type whose value is its name.
func (w *Writer) DefineType(ctx context.Context, t graph.Type) (graph.Handle, error) {
	if t.Name == "" {
		return graph.Handle{}, errors.New("define type: empty name")
	}
	if t.Handle.IsZero() {
		t.Handle = graph.NewHandle()
	}
	for slot, part := range t.Parts {
		if _, err := w.r.Type(ctx, part); err != nil {
			return graph.Handle{}, fmt.Errorf("define type %s: part %q: %w", t.Name, slot, err)
		}
	}
	if err := insertTypeRow(ctx, w.tx, t); err != nil {
		return graph.Handle{}, fmt.Errorf("define type: %w", err)
	}
	a := graph.Atom{Handle: t.Handle, Type: graph.TypeType, Value: ir.String(t.Name)}
	if err := insertAtomRow(ctx, w.tx, a); err != nil {
		return graph.Handle{}, fmt.Errorf("define type: %w", err)
	}
	return t.Handle, nil
}

// AddSubtype records that general subsumes specific and indexes the atoms
// of specific and its subtypes under the indexes they now inherit.
func (w *Writer) AddSubtype(ctx context.Context, general, specific graph.Handle) error {
	for _, h := range []graph.Handle{general, specific} {
		if _, err := w.r.Type(ctx, h); err != nil {
			return fmt.Errorf("add subtype: %w", err)
		}
	}
	link := graph.Atom{
		Handle:  graph.NewHandle(),
		Type:    graph.SubsumesType,
		Value:   ir.Null{},
		Targets: []graph.Handle{general, specific},
	}
	if err := insertAtomRow(ctx, w.tx, link); err != nil {
		return fmt.Errorf("add subtype: %w", err)
	}
	subs, err := traverse.SubTypes(ctx, w.r, specific)
	if err != nil {
		return fmt.Errorf("add subtype: %w", err)
	}
	return w.reindex(ctx, subs, nil)
}

// DefineIndex adds an index on ix.Type and fills it from the atoms of that
// type and its subtypes. Defining an existing index is a no-op.
func (w *Writer) DefineIndex(ctx context.Context, ix graph.Indexer) error {
	t, err := w.r.Type(ctx, ix.Type)
	if err != nil {
		return fmt.Errorf("define index %s: %w", ix, err)
	}
	switch ix.Kind {
	case graph.ByPart:
		if len(ix.Path) == 0 {
			return fmt.Errorf("define index %s: part index needs a path", ix)
		}
		if _, err := graph.ProjectType(ctx, w.r, t.Handle, ix.Path); err != nil {
			return fmt.Errorf("define index %s: %w", ix, err)
		}
	case graph.ByTarget:
		if ix.Position < 0 {
			return fmt.Errorf("define index %s: negative position", ix)
		}
	case graph.DirectValue:
	default:
		return fmt.Errorf("define index: unknown kind %s", ix.Kind)
	}
	path, err := marshalPath(ix.Path)
	if err != nil {
		return err
	}
	_, err = w.tx.ExecContext(ctx, `
		INSERT INTO index_defs (kind, type, path_json, position)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, int(ix.Kind), handleBytes(ix.Type), path, indexPosition(ix))
	if err != nil {
		return fmt.Errorf("define index %s: %w", ix, err)
	}
	subs, err := traverse.SubTypes(ctx, w.r, ix.Type)
	if err != nil {
		return fmt.Errorf("define index %s: %w", ix, err)
	}
	return w.reindex(ctx, subs, []graph.Indexer{ix})
}

// AddAtom adds a node or link and maintains the indexes of its type and
// every supertype. A zero handle is replaced by a fresh one.
func (w *Writer) AddAtom(ctx context.Context, a graph.Atom) (graph.Handle, error) {
	if a.Handle.IsZero() {
		a.Handle = graph.NewHandle()
	}
	if a.Handle.IsAny() {
		return graph.Handle{}, errors.New("add atom: the wildcard handle cannot name an atom")
	}
	t, err := w.r.Type(ctx, a.Type)
	if err != nil {
		return graph.Handle{}, fmt.Errorf("add atom: %w", err)
	}
	if a.Value == nil {
		a.Value = ir.Null{}
	}
	if k := a.Value.Kind(); k != ir.KindNull && k != t.Kind {
		return graph.Handle{}, fmt.Errorf("add atom: %s value for type %s of kind %s", k, t, t.Kind)
	}
	if len(a.Targets) > 0 && !t.Link {
		return graph.Handle{}, fmt.Errorf("add atom: type %s is not a link type", t)
	}
	for _, target := range a.Targets {
		if target.IsAny() {
			return graph.Handle{}, errors.New("add atom: the wildcard handle cannot be a target")
		}
	}
	if err := insertAtomRow(ctx, w.tx, a); err != nil {
		return graph.Handle{}, fmt.Errorf("add atom: %w", err)
	}
	supers, err := traverse.SuperTypes(ctx, w.r, a.Type)
	if err != nil {
		return graph.Handle{}, fmt.Errorf("add atom: %w", err)
	}
	for _, st := range supers {
		ixs, err := w.r.IndexersFor(ctx, st)
		if err != nil {
			return graph.Handle{}, fmt.Errorf("add atom: %w", err)
		}
		for _, ix := range ixs {
			if err := w.addEntry(ctx, ix, a); err != nil {
				return graph.Handle{}, fmt.Errorf("add atom: %w", err)
			}
		}
	}
	return a.Handle, nil
}

// AddLink is AddAtom for a link without a value.
func (w *Writer) AddLink(ctx context.Context, typ graph.Handle, targets ...graph.Handle) (graph.Handle, error) {
	return w.AddAtom(ctx, graph.Atom{Type: typ, Value: ir.Null{}, Targets: targets})
}

// AddToSubgraph makes atom a member of subgraph sg.
func (w *Writer) AddToSubgraph(ctx context.Context, sg, atom graph.Handle) error {
	_, err := w.tx.ExecContext(ctx, `
		INSERT INTO subgraph_members (subgraph, atom) VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`, handleBytes(sg), handleBytes(atom))
	if err != nil {
		return fmt.Errorf("add %s to subgraph %s: %w", atom, sg, err)
	}
	return nil
}

// reindex adds entries for every atom of types. With only == nil each atom
// is indexed under every index of its type and supertypes; otherwise only
// under the given indexes.
func (w *Writer) reindex(ctx context.Context, types []graph.Handle, only []graph.Indexer) error {
	for _, t := range types {
		hs, err := w.r.ByType(ctx, t)
		if err != nil {
			return err
		}
		atoms, err := cursor.Collect[graph.Handle](hs)
		if err != nil {
			return err
		}
		ixs := only
		if ixs == nil {
			supers, err := traverse.SuperTypes(ctx, w.r, t)
			if err != nil {
				return err
			}
			for _, st := range supers {
				defs, err := w.r.IndexersFor(ctx, st)
				if err != nil {
					return err
				}
				ixs = append(ixs, defs...)
			}
		}
		if len(ixs) == 0 {
			continue
		}
		for _, h := range atoms {
			a, err := w.r.Atom(ctx, h)
			if err != nil {
				return err
			}
			for _, ix := range ixs {
				if err := w.addEntry(ctx, ix, a); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// indexKey is the key of a under ix, if a has one.
func indexKey(ix graph.Indexer, a graph.Atom) (ir.Value, bool) {
	switch ix.Kind {
	case graph.DirectValue:
		if ir.IsNull(a.Value) {
			return nil, false
		}
		return a.Value, true
	case graph.ByPart:
		v, ok := ir.Project(a.Value, ix.Path)
		if !ok || ir.IsNull(v) {
			return nil, false
		}
		return v, true
	case graph.ByTarget:
		if ix.Position >= len(a.Targets) {
			return nil, false
		}
		return graph.TargetKey(a.Targets[ix.Position]), true
	}
	return nil, false
}

func (w *Writer) addEntry(ctx context.Context, ix graph.Indexer, a graph.Atom) error {
	key, ok := indexKey(ix, a)
	if !ok {
		return nil
	}
	idx, err := w.r.Index(ctx, ix)
	if err != nil {
		return err
	}
	keyJSON, err := marshalValue(key)
	if err != nil {
		return err
	}
	_, err = w.tx.ExecContext(ctx, `
		INSERT INTO index_entries (index_id, key_kind, key, key_json, atom)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, idx.(*index).id, int(key.Kind()), ir.EncodeKey(key), keyJSON, handleBytes(a.Handle))
	if err != nil {
		return fmt.Errorf("index %s under %s: %w", a.Handle, ix, err)
	}
	return nil
}

// Subsumption records that General subsumes Specific.
type Subsumption struct {
	General  graph.Handle
	Specific graph.Handle
}

// Membership places Atom in Subgraph.
type Membership struct {
	Subgraph graph.Handle
	Atom     graph.Handle
}

// Dataset is a batch of graph content loaded in one transaction. Handles
// are used as given, so references between the parts must already agree.
// Atoms are added in order; a link must follow its targets.
type Dataset struct {
	Types        []graph.Type
	Subsumptions []Subsumption
	Indexes      []graph.Indexer
	Atoms        []graph.Atom
	Members      []Membership
}

// Load writes ds in a single transaction. Indexes are defined before atoms
// are added, so each atom is indexed once.
func (s *Store) Load(ctx context.Context, ds Dataset) error {
	err := s.Update(ctx, func(w *Writer) error {
		for _, t := range ds.Types {
			if t.Handle.IsZero() {
				return fmt.Errorf("load: type %q has no handle", t.Name)
			}
			if _, err := w.DefineType(ctx, t); err != nil {
				return err
			}
		}
		for _, sub := range ds.Subsumptions {
			if err := w.AddSubtype(ctx, sub.General, sub.Specific); err != nil {
				return err
			}
		}
		for _, ix := range ds.Indexes {
			if err := w.DefineIndex(ctx, ix); err != nil {
				return err
			}
		}
		for _, a := range ds.Atoms {
			if a.Handle.IsZero() {
				return fmt.Errorf("load: atom of type %s has no handle", a.Type)
			}
			if _, err := w.AddAtom(ctx, a); err != nil {
				return err
			}
		}
		for _, m := range ds.Members {
			if err := w.AddToSubgraph(ctx, m.Subgraph, m.Atom); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug("dataset loaded",
		"types", len(ds.Types),
		"subsumptions", len(ds.Subsumptions),
		"indexes", len(ds.Indexes),
		"atoms", len(ds.Atoms),
		"members", len(ds.Members))
	return nil
}
