package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/hgq/internal/cursor"
	"github.com/roach88/hgq/internal/ir"
)

// ErrNotFound is returned when a handle, type name or index does not exist.
var ErrNotFound = errors.New("graph: not found")

// Handles is the cursor order of handles.
var Handles cursor.Compare[Handle] = Compare

// ValueKey identifies a distinct stored value. It is the order-preserving
// encoding of the value (ir.EncodeKey), so value cursors sort by value.
type ValueKey string

// KeyOf returns the ValueKey of v.
func KeyOf(v ir.Value) ValueKey { return ValueKey(ir.EncodeKey(v)) }

// Graph is the read surface of one consistent view of the atom graph.
// Every handle cursor it returns is in handle order unless documented
// otherwise.
type Graph interface {
	// Atom loads one atom.
	Atom(ctx context.Context, h Handle) (Atom, error)

	// Type resolves a type handle.
	Type(ctx context.Context, h Handle) (Type, error)
	// TypeByName resolves a type name.
	TypeByName(ctx context.Context, name string) (Type, error)

	// AllAtoms returns every atom.
	AllAtoms(ctx context.Context) (cursor.RandomAccess[Handle], error)
	// ByType returns the atoms of exactly type t.
	ByType(ctx context.Context, t Handle) (cursor.RandomAccess[Handle], error)
	// CountByType returns the number of atoms of exactly type t.
	CountByType(ctx context.Context, t Handle) (int64, error)

	// Values returns the keys of the distinct stored values v of the same
	// kind as key for which v op key holds, in value order.
	Values(ctx context.Context, op Operator, key ir.Value) (cursor.Cursor[ValueKey], error)
	// AtomsByValue returns the atoms holding the value with key k.
	AtomsByValue(ctx context.Context, k ValueKey) (cursor.RandomAccess[Handle], error)

	// Index returns the physical index described by ix, or ErrNotFound.
	Index(ctx context.Context, ix Indexer) (Index, error)
	// IndexersFor returns the indexers defined on exactly type t.
	IndexersFor(ctx context.Context, t Handle) ([]Indexer, error)

	// Incidence returns the links that have h among their targets.
	Incidence(ctx context.Context, h Handle) (cursor.RandomAccess[Handle], error)

	// SubgraphMembers returns the atoms contained in subgraph sg.
	SubgraphMembers(ctx context.Context, sg Handle) (cursor.RandomAccess[Handle], error)
	// SubgraphsOf returns the subgraphs that contain h.
	SubgraphsOf(ctx context.Context, h Handle) (cursor.RandomAccess[Handle], error)
}

// Snapshot is a Graph view that holds storage resources until released.
type Snapshot interface {
	Graph
	Release() error
}

// Versioned is implemented by snapshots that know which committed write
// they observe. Two snapshots with the same generation see the same graph.
type Versioned interface {
	Generation() uint64
}

// TxManager hands out consistent snapshots.
type TxManager interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// ProjectType follows path through the Parts of t and returns the type of
// the value at the end of the path.
func ProjectType(ctx context.Context, g Graph, t Handle, path []string) (Type, error) {
	cur, err := g.Type(ctx, t)
	if err != nil {
		return Type{}, err
	}
	for i, step := range path {
		next, ok := cur.Parts[step]
		if !ok {
			return Type{}, fmt.Errorf("type %s has no part %q: %w", cur, step, ErrNotFound)
		}
		if cur, err = g.Type(ctx, next); err != nil {
			return Type{}, fmt.Errorf("part %d of path: %w", i, err)
		}
	}
	return cur, nil
}
