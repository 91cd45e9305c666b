package plan

import (
	"context"
	"fmt"

	"github.com/roach88/hgq/internal/condition"
	"github.com/roach88/hgq/internal/cursor"
	"github.com/roach88/hgq/internal/graph"
)

// Predicate is an in-memory test applied by a PredicateFilter.
type Predicate interface {
	fmt.Stringer
	// Bind prepares the predicate for one execution against g. Stateful
	// predicates allocate their state here, so plans stay shareable.
	Bind(ctx context.Context, g graph.Graph) (Bound, error)
}

// Bound is a predicate ready to test atoms during one execution.
type Bound interface {
	Test(h graph.Handle) (bool, error)
	Close() error
}

// CondPredicate tests atoms with a condition's own Satisfies.
type CondPredicate struct {
	Cond condition.Predicate
}

func (p CondPredicate) String() string { return condition.Key(p.Cond) }

func (p CondPredicate) Bind(ctx context.Context, g graph.Graph) (Bound, error) {
	return boundFunc(func(h graph.Handle) (bool, error) {
		return p.Cond.Satisfies(ctx, g, h)
	}), nil
}

type boundFunc func(graph.Handle) (bool, error)

func (f boundFunc) Test(h graph.Handle) (bool, error) { return f(h) }
func (boundFunc) Close() error                        { return nil }

// RABased tests membership by seeking in the random access result of a
// query. The query is executed once per execution, on first use.
type RABased struct {
	Query Query
	Cost  float64
	Cond  condition.Condition
}

func (p RABased) String() string { return "seek " + condition.Key(p.Cond) }

func (p RABased) Bind(ctx context.Context, g graph.Graph) (Bound, error) {
	return &raBound{q: p.Query, ctx: ctx, g: g}, nil
}

type raBound struct {
	q   Query
	ctx context.Context
	g   graph.Graph
	ra  cursor.RandomAccess[graph.Handle]
}

func (b *raBound) Test(h graph.Handle) (bool, error) {
	if b.ra == nil {
		c, err := b.q.Execute(b.ctx, b.g)
		if err != nil {
			return false, err
		}
		ra, ok := c.(cursor.RandomAccess[graph.Handle])
		if !ok {
			// Metadata promised random access; sort the result instead.
			if ra, err = cursor.Materialize(c, graph.Handles); err != nil {
				return false, err
			}
		}
		b.ra = ra
	}
	res, err := b.ra.Seek(h, true)
	return res == cursor.SeekFound, err
}

func (b *raBound) Close() error {
	if b.ra == nil {
		return nil
	}
	return b.ra.Close()
}

// DelayedSetLoad tests membership in the fully materialized result of a
// query. The result is loaded on first use, once per execution.
type DelayedSetLoad struct {
	Query Query
	Cond  condition.Condition
}

func (p DelayedSetLoad) String() string { return "in-set " + condition.Key(p.Cond) }

func (p DelayedSetLoad) Bind(ctx context.Context, g graph.Graph) (Bound, error) {
	return &setBound{q: p.Query, ctx: ctx, g: g}, nil
}

type setBound struct {
	q   Query
	ctx context.Context
	g   graph.Graph
	set map[graph.Handle]struct{}
}

func (b *setBound) Test(h graph.Handle) (bool, error) {
	if b.set == nil {
		c, err := b.q.Execute(b.ctx, b.g)
		if err != nil {
			return false, err
		}
		hs, err := cursor.Collect(c)
		if err != nil {
			return false, err
		}
		b.set = make(map[graph.Handle]struct{}, len(hs))
		for _, x := range hs {
			b.set[x] = struct{}{}
		}
	}
	_, ok := b.set[h]
	return ok, nil
}

func (b *setBound) Close() error {
	b.set = nil
	return nil
}
