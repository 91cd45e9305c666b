package plan

import (
	"context"

	"github.com/roach88/hgq/internal/cursor"
	"github.com/roach88/hgq/internal/graph"
)

// IntersectKind selects the intersection algorithm.
type IntersectKind uint8

const (
	// ZigZag seeks each side to the other's current element.
	ZigZag IntersectKind = iota
	// SortedMerge advances both sides in lockstep.
	SortedMerge
	// InMemory materializes a zig-zag result for bidirectional replay.
	InMemory
)

func (k IntersectKind) String() string {
	switch k {
	case ZigZag:
		return "zigzag"
	case SortedMerge:
		return "merge"
	default:
		return "in-memory"
	}
}

// Intersection yields the atoms in both inputs. Seek-based kinds fall back
// to a sorted merge when an input turns out not to support random access.
type Intersection struct {
	Kind        IntersectKind
	Left, Right Query
}

func (q Intersection) Execute(ctx context.Context, g graph.Graph) (cursor.Cursor[graph.Handle], error) {
	left, err := q.Left.Execute(ctx, g)
	if err != nil {
		return nil, err
	}
	right, err := q.Right.Execute(ctx, g)
	if err != nil {
		_ = left.Close()
		return nil, err
	}
	if q.Kind != SortedMerge {
		lra, lok := left.(cursor.RandomAccess[graph.Handle])
		rra, rok := right.(cursor.RandomAccess[graph.Handle])
		if lok && rok {
			zz := cursor.ZigZag(lra, rra, graph.Handles)
			if q.Kind == InMemory {
				return cursor.Materialize[graph.Handle](zz, graph.Handles)
			}
			return zz, nil
		}
	}
	return cursor.MergeIntersect(left, right, graph.Handles), nil
}

func (q Intersection) Describe() Step {
	return Step{Op: "intersect", Args: []string{q.Kind.String()}, Inputs: []Query{q.Left, q.Right}}
}

// Union yields the atoms in either input, in handle order, each once.
// Async advances both inputs concurrently.
type Union struct {
	Left, Right Query
	Async       bool
}

func (q Union) Execute(ctx context.Context, g graph.Graph) (cursor.Cursor[graph.Handle], error) {
	left, err := q.Left.Execute(ctx, g)
	if err != nil {
		return nil, err
	}
	right, err := q.Right.Execute(ctx, g)
	if err != nil {
		_ = left.Close()
		return nil, err
	}
	if q.Async {
		return cursor.AsyncUnion(ctx, left, right, graph.Handles), nil
	}
	return cursor.Union(left, right, graph.Handles), nil
}

func (q Union) Describe() Step {
	op := "union"
	if q.Async {
		op = "async-union"
	}
	return Step{Op: op, Inputs: []Query{q.Left, q.Right}}
}

// PredicateFilter keeps the atoms of Base that satisfy Pred. Execute moves
// to the first match before returning, so a filter that matches nothing
// returns an empty cursor and releases Base at once. Random access is
// preserved.
type PredicateFilter struct {
	Base Query
	Pred Predicate
}

func (q PredicateFilter) Execute(ctx context.Context, g graph.Graph) (cursor.Cursor[graph.Handle], error) {
	base, err := q.Base.Execute(ctx, g)
	if err != nil {
		return nil, err
	}
	bound, err := q.Pred.Bind(ctx, g)
	if err != nil {
		_ = base.Close()
		return nil, err
	}
	in := &releasing{Cursor: base, release: bound.Close}
	var out cursor.Cursor[graph.Handle]
	if ra, ok := base.(cursor.RandomAccess[graph.Handle]); ok {
		in.ra = ra
		out = cursor.FilterRA[graph.Handle](releasingRA{in}, bound.Test)
	} else {
		out = cursor.Filter[graph.Handle](in, bound.Test)
	}
	if out.HasNext() {
		return out, nil
	}
	err = out.Err()
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return cursor.Empty[graph.Handle](), nil
}

func (q PredicateFilter) Describe() Step {
	return Step{Op: "filter", Args: []string{q.Pred.String()}, Inputs: []Query{q.Base}}
}

// releasing closes a bound predicate together with the cursor it filters.
type releasing struct {
	cursor.Cursor[graph.Handle]
	ra      cursor.RandomAccess[graph.Handle]
	release func() error
	closed  bool
}

func (r *releasing) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.Cursor.Close()
	if rerr := r.release(); err == nil {
		err = rerr
	}
	return err
}

// releasingRA exposes the random access half of a releasing cursor.
type releasingRA struct {
	*releasing
}

func (r releasingRA) Seek(v graph.Handle, exact bool) (cursor.SeekResult, error) {
	return r.ra.Seek(v, exact)
}

func (r releasingRA) GoBeforeFirst() { r.ra.GoBeforeFirst() }
func (r releasingRA) GoAfterLast()   { r.ra.GoAfterLast() }
