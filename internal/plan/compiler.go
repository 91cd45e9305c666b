package plan

import (
	"context"

	"github.com/roach88/hgq/internal/condition"
	"github.com/roach88/hgq/internal/graph"
)

// Options configure plan construction.
type Options struct {
	// ParallelOr compiles disjunctions to async unions.
	ParallelOr bool
	// MaterializeIntersections compiles multi-way random access
	// intersections to in-memory intersections.
	MaterializeIntersections bool
}

// Compiler turns normalized conditions into plans against one graph view.
// A Compiler caches metadata and is meant for a single compilation; it is
// not safe for concurrent use.
type Compiler struct {
	reg  *Registry
	g    graph.Graph
	opts Options
	meta map[string]Metadata
}

// NewCompiler returns a compiler resolving translators in reg. A nil reg
// uses DefaultRegistry.
func NewCompiler(reg *Registry, g graph.Graph, opts Options) *Compiler {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Compiler{reg: reg, g: g, opts: opts, meta: make(map[string]Metadata)}
}

// Graph returns the graph view the compiler resolves handles against.
func (c *Compiler) Graph() graph.Graph { return c.g }

// Options returns the compiler options.
func (c *Compiler) Options() Options { return c.opts }

// Compile translates cond into a plan. Conditions without a translator
// fail with ErrCodeUntranslatable.
func (c *Compiler) Compile(ctx context.Context, cond condition.Condition) (Query, error) {
	t, ok := c.reg.Lookup(cond)
	if !ok {
		return nil, NewUntranslatableError(cond)
	}
	q, err := t.Compile(ctx, c, cond)
	if err != nil {
		return nil, err
	}
	if _, ok := q.(annotated); ok {
		return q, nil
	}
	m, err := c.Metadata(ctx, cond)
	if err != nil {
		return nil, err
	}
	return annotated{Query: q, cond: cond, meta: m}, nil
}

// Metadata describes the result of cond. Raw predicates without a
// translator get predicate-only mystery metadata.
func (c *Compiler) Metadata(ctx context.Context, cond condition.Condition) (Metadata, error) {
	key := condition.Key(cond)
	if m, ok := c.meta[key]; ok {
		return m, nil
	}
	var m Metadata
	if t, ok := c.reg.Lookup(cond); ok {
		var err error
		if m, err = t.Metadata(ctx, c, cond); err != nil {
			return Metadata{}, err
		}
	} else if cost, ok := rawPredicateCost(cond); ok {
		m = MysteryMeta().cost(cost)
		m.PredicateOnly = true
	} else {
		return Metadata{}, NewUntranslatableError(cond)
	}
	c.meta[key] = m
	return m, nil
}

// rawPredicateCost returns the cost of conditions that are only ever
// evaluated in memory.
func rawPredicateCost(cond condition.Condition) (float64, bool) {
	switch v := cond.(type) {
	case condition.Is:
		return 0, true
	case condition.Arity:
		return 1, true
	case condition.Not:
		return 1, v.Cond != nil
	case condition.Func:
		if v.Cost > 0 {
			return v.Cost, true
		}
		return 1, true
	}
	return 0, false
}

// isRaw reports whether cond is a raw predicate with no translator in reg.
func (c *Compiler) isRaw(cond condition.Condition) bool {
	if _, ok := c.reg.Lookup(cond); ok {
		return false
	}
	_, ok := rawPredicateCost(cond)
	return ok
}
