package plan

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/hgq/internal/condition"
	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
	"github.com/roach88/hgq/internal/traverse"
)

type nothingTranslator struct{}

func (nothingTranslator) Compile(context.Context, *Compiler, condition.Condition) (Query, error) {
	return Nop{}, nil
}

func (nothingTranslator) Metadata(context.Context, *Compiler, condition.Condition) (Metadata, error) {
	return EmptyMeta(), nil
}

type anyAtomTranslator struct{}

func (anyAtomTranslator) Compile(context.Context, *Compiler, condition.Condition) (Query, error) {
	return AllAtoms{}, nil
}

func (anyAtomTranslator) Metadata(context.Context, *Compiler, condition.Condition) (Metadata, error) {
	return MysteryMeta().cost(0.5), nil
}

type typeTranslator struct{}

func (typeTranslator) Compile(_ context.Context, _ *Compiler, cond condition.Condition) (Query, error) {
	return TypeScan{Type: cond.(condition.Type).Type}, nil
}

func (typeTranslator) Metadata(ctx context.Context, c *Compiler, cond condition.Condition) (Metadata, error) {
	n, err := c.g.CountByType(ctx, cond.(condition.Type).Type)
	if err != nil {
		return Metadata{}, fmt.Errorf("count atoms of type: %w", err)
	}
	return ORAMeta().cost(1).exact(n), nil
}

// typePlusTranslator compiles to the disjunction of the exact types.
type typePlusTranslator struct{}

func (typePlusTranslator) expand(ctx context.Context, c *Compiler, cond condition.Condition) (condition.Condition, error) {
	base := cond.(condition.TypePlus).Base
	subs, err := traverse.SubTypes(ctx, c.g, base)
	if err != nil {
		return nil, err
	}
	if len(subs) == 1 {
		return condition.Type{Type: base}, nil
	}
	or := make(condition.Or, len(subs))
	for i, s := range subs {
		or[i] = condition.Type{Type: s}
	}
	return or, nil
}

func (t typePlusTranslator) Compile(ctx context.Context, c *Compiler, cond condition.Condition) (Query, error) {
	e, err := t.expand(ctx, c, cond)
	if err != nil {
		return nil, err
	}
	return c.Compile(ctx, e)
}

func (t typePlusTranslator) Metadata(ctx context.Context, c *Compiler, cond condition.Condition) (Metadata, error) {
	e, err := t.expand(ctx, c, cond)
	if err != nil {
		return Metadata{}, err
	}
	return c.Metadata(ctx, e)
}

// searchable reports whether values of type t can be looked up with op.
func searchable(ctx context.Context, c *Compiler, cond condition.Condition, t graph.Handle, op graph.Operator) (bool, error) {
	typ, err := c.g.Type(ctx, t)
	if errors.Is(err, graph.ErrNotFound) {
		return false, NewDanglingTypeError(cond, err)
	}
	if err != nil {
		return false, err
	}
	return op == graph.EQ || typ.Ordered, nil
}

type typedValueTranslator struct{}

func (typedValueTranslator) Compile(ctx context.Context, c *Compiler, cond condition.Condition) (Query, error) {
	tv := cond.(condition.TypedValue)
	if ir.IsNull(tv.Value) {
		return nil, NewNullValueError(cond)
	}
	ok, err := searchable(ctx, c, cond, tv.Type, tv.Op)
	if err != nil {
		return nil, err
	}
	if ok {
		return ValuePipe{Op: tv.Op, Value: tv.Value, Type: tv.Type}, nil
	}
	return PredicateFilter{Base: TypeScan{Type: tv.Type}, Pred: CondPredicate{Cond: tv}}, nil
}

func (typedValueTranslator) Metadata(ctx context.Context, c *Compiler, cond condition.Condition) (Metadata, error) {
	tv := cond.(condition.TypedValue)
	ok, err := searchable(ctx, c, cond, tv.Type, tv.Op)
	if err != nil {
		return Metadata{}, err
	}
	if ok {
		return MysteryMeta().cost(2.5), nil
	}
	return OrderedMeta().cost(2.5), nil
}

type valueTranslator struct{}

func (valueTranslator) Compile(_ context.Context, _ *Compiler, cond condition.Condition) (Query, error) {
	v := cond.(condition.Value)
	if ir.IsNull(v.Value) {
		return nil, NewNullValueError(cond)
	}
	return ValuePipe{Op: v.Op, Value: v.Value}, nil
}

func (valueTranslator) Metadata(context.Context, *Compiler, condition.Condition) (Metadata, error) {
	return MysteryMeta().cost(2.5), nil
}

// valuePredicateTranslator compiles a value test that an index already
// narrowed. Standing alone it still scans stored values.
type valuePredicateTranslator struct{}

func (valuePredicateTranslator) Compile(_ context.Context, _ *Compiler, cond condition.Condition) (Query, error) {
	v := cond.(condition.ValueAsPredicate)
	if ir.IsNull(v.Value) {
		return nil, NewNullValueError(cond)
	}
	return ValuePipe{Op: v.Op, Value: v.Value}, nil
}

func (valuePredicateTranslator) Metadata(context.Context, *Compiler, condition.Condition) (Metadata, error) {
	m := MysteryMeta().cost(1)
	m.PredicateOnly = true
	return m, nil
}

type partTranslator struct{}

func (partTranslator) Compile(_ context.Context, _ *Compiler, cond condition.Condition) (Query, error) {
	return PredicateFilter{Base: AllAtoms{}, Pred: CondPredicate{Cond: cond.(condition.Part)}}, nil
}

func (partTranslator) Metadata(context.Context, *Compiler, condition.Condition) (Metadata, error) {
	m := MysteryMeta().cost(1.5)
	m.PredicateOnly = true
	return m, nil
}

type indexTranslator struct{}

func (indexTranslator) open(ctx context.Context, c *Compiler, cond condition.Condition) (graph.Index, error) {
	ic := cond.(condition.Index)
	if ir.IsNull(ic.Key) {
		return nil, NewNullValueError(cond)
	}
	if ic.Op != graph.EQ && !ic.Indexer.Sorted() {
		return nil, &CompileError{
			Code:      ErrCodeWrongOperator,
			Condition: cond,
			Message:   fmt.Sprintf("operator %s is not supported by %s index", ic.Op, ic.Indexer.Kind),
		}
	}
	idx, err := c.g.Index(ctx, ic.Indexer)
	if errors.Is(err, graph.ErrNotFound) {
		return nil, &CompileError{Code: ErrCodeUnknownIndex, Condition: cond, Message: "no such index", Err: err}
	}
	return idx, err
}

func (t indexTranslator) Compile(ctx context.Context, c *Compiler, cond condition.Condition) (Query, error) {
	if _, err := t.open(ctx, c, cond); err != nil {
		return nil, err
	}
	ic := cond.(condition.Index)
	return IndexLookup{Indexer: ic.Indexer, Op: ic.Op, Key: ic.Key}, nil
}

func (t indexTranslator) Metadata(ctx context.Context, c *Compiler, cond condition.Condition) (Metadata, error) {
	idx, err := t.open(ctx, c, cond)
	if err != nil {
		return Metadata{}, err
	}
	m := ORAMeta().cost(1)
	if ic := cond.(condition.Index); ic.Op == graph.EQ {
		n, err := idx.Count(ctx, ic.Key)
		if err != nil {
			return Metadata{}, err
		}
		m = m.exact(n)
	}
	return m, nil
}

type incidentTranslator struct{}

func (incidentTranslator) Compile(_ context.Context, _ *Compiler, cond condition.Condition) (Query, error) {
	return IncidenceScan{Target: cond.(condition.Incident).Target}, nil
}

func (incidentTranslator) Metadata(context.Context, *Compiler, condition.Condition) (Metadata, error) {
	return ORAMeta().cost(1), nil
}

type positionedIncidentTranslator struct{}

func (positionedIncidentTranslator) Compile(_ context.Context, _ *Compiler, cond condition.Condition) (Query, error) {
	pi := cond.(condition.PositionedIncident)
	return PredicateFilter{Base: IncidenceScan{Target: pi.Target}, Pred: CondPredicate{Cond: pi}}, nil
}

func (positionedIncidentTranslator) Metadata(context.Context, *Compiler, condition.Condition) (Metadata, error) {
	return ORAMeta().cost(1.5), nil
}

// concreteTargets returns the distinct non-wildcard targets.
func concreteTargets(hs []graph.Handle) []graph.Handle {
	seen := map[graph.Handle]bool{}
	var out []graph.Handle
	for _, h := range hs {
		if !h.IsAny() && !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	return out
}

// incidenceIntersection intersects the incidence sets of targets.
func incidenceIntersection(c *Compiler, targets []graph.Handle) Query {
	kind := ZigZag
	if c.opts.MaterializeIntersections {
		kind = InMemory
	}
	var q Query = IncidenceScan{Target: targets[0]}
	for _, t := range targets[1:] {
		q = Intersection{Kind: kind, Left: q, Right: IncidenceScan{Target: t}}
	}
	return q
}

type linkTranslator struct{}

func (linkTranslator) Compile(_ context.Context, c *Compiler, cond condition.Condition) (Query, error) {
	l := cond.(condition.Link)
	targets := concreteTargets(l.Targets)
	if len(targets) == 0 {
		return PredicateFilter{Base: AllAtoms{}, Pred: CondPredicate{Cond: l}}, nil
	}
	return incidenceIntersection(c, targets), nil
}

func (linkTranslator) Metadata(context.Context, *Compiler, condition.Condition) (Metadata, error) {
	return ORAMeta().cost(1), nil
}

type orderedLinkTranslator struct{}

func (orderedLinkTranslator) Compile(_ context.Context, c *Compiler, cond condition.Condition) (Query, error) {
	ol := cond.(condition.OrderedLink)
	if len(ol.Targets) == 0 {
		return Nop{}, nil
	}
	targets := concreteTargets(ol.Targets)
	if len(targets) == 0 {
		return PredicateFilter{Base: AllAtoms{}, Pred: CondPredicate{Cond: ol}}, nil
	}
	return PredicateFilter{Base: incidenceIntersection(c, targets), Pred: CondPredicate{Cond: ol}}, nil
}

func (orderedLinkTranslator) Metadata(_ context.Context, _ *Compiler, cond condition.Condition) (Metadata, error) {
	if len(cond.(condition.OrderedLink).Targets) == 0 {
		return EmptyMeta(), nil
	}
	return ORAMeta().cost(0.5), nil
}

type targetTranslator struct{}

func (targetTranslator) Compile(_ context.Context, _ *Compiler, cond condition.Condition) (Query, error) {
	return LinkTargets{Link: cond.(condition.Target).Link}, nil
}

func (targetTranslator) Metadata(ctx context.Context, c *Compiler, cond condition.Condition) (Metadata, error) {
	m := MysteryMeta().cost(1)
	a, err := c.g.Atom(ctx, cond.(condition.Target).Link)
	if errors.Is(err, graph.ErrNotFound) {
		return EmptyMeta(), nil
	}
	if err != nil {
		return Metadata{}, err
	}
	m.SizeUB = int64(a.Arity())
	return m, nil
}

type traversalTranslator struct{}

func (traversalTranslator) Compile(_ context.Context, _ *Compiler, cond condition.Condition) (Query, error) {
	switch t := cond.(type) {
	case condition.BFS:
		return Traversal{Start: t.Start, Opts: t.Opts, Return: t.Return}, nil
	case condition.DFS:
		return Traversal{Start: t.Start, Opts: t.Opts, Return: t.Return, DepthFirst: true}, nil
	}
	return nil, NewUntranslatableError(cond)
}

func (traversalTranslator) Metadata(context.Context, *Compiler, condition.Condition) (Metadata, error) {
	return MysteryMeta(), nil
}

type subsumptionTranslator struct{}

func (subsumptionTranslator) Compile(_ context.Context, _ *Compiler, cond condition.Condition) (Query, error) {
	switch s := cond.(type) {
	case condition.Subsumes:
		return Subsumption{Type: s.Specific, Super: true}, nil
	case condition.Subsumed:
		return Subsumption{Type: s.General}, nil
	}
	return nil, NewUntranslatableError(cond)
}

func (subsumptionTranslator) Metadata(context.Context, *Compiler, condition.Condition) (Metadata, error) {
	return ORAMeta().cost(5), nil
}

type subgraphTranslator struct{}

func (subgraphTranslator) Compile(_ context.Context, _ *Compiler, cond condition.Condition) (Query, error) {
	switch s := cond.(type) {
	case condition.SubgraphMember:
		return SubgraphScan{Handle: s.Subgraph}, nil
	case condition.SubgraphContains:
		return SubgraphScan{Handle: s.Atom, Owners: true}, nil
	}
	return nil, NewUntranslatableError(cond)
}

func (subgraphTranslator) Metadata(context.Context, *Compiler, condition.Condition) (Metadata, error) {
	return ORAMeta().cost(1), nil
}

type projectionTranslator struct{}

func (projectionTranslator) Compile(ctx context.Context, c *Compiler, cond condition.Condition) (Query, error) {
	p := cond.(condition.Projection)
	if p.Base == nil || len(p.Path) == 0 {
		return nil, &CompileError{Code: ErrCodeInvalidCondition, Condition: cond, Message: "projection needs a base and a path"}
	}
	base, err := c.Compile(ctx, p.Base)
	if err != nil {
		return nil, err
	}
	return Projection{Base: base, Path: p.Path}, nil
}

func (projectionTranslator) Metadata(context.Context, *Compiler, condition.Condition) (Metadata, error) {
	return MysteryMeta(), nil
}

type mapTranslator struct{}

func (mapTranslator) Compile(ctx context.Context, c *Compiler, cond condition.Condition) (Query, error) {
	m := cond.(condition.Map)
	if m.Cond == nil || m.Mapping == nil {
		return nil, &CompileError{Code: ErrCodeInvalidCondition, Condition: cond, Message: "map needs a condition and a mapping"}
	}
	base, err := c.Compile(ctx, m.Cond)
	if err != nil {
		return nil, err
	}
	return MapQuery{Base: base, Mapping: m.Mapping}, nil
}

func (mapTranslator) Metadata(ctx context.Context, c *Compiler, cond condition.Condition) (Metadata, error) {
	m := cond.(condition.Map)
	if m.Cond == nil {
		return MysteryMeta(), nil
	}
	meta, err := c.Metadata(ctx, m.Cond)
	if err != nil {
		return Metadata{}, err
	}
	meta.Ordered, meta.RandomAccess, meta.PredicateCost = false, false, -1
	return meta, nil
}

// sortedIfNeeded gives an unordered query an ordered face.
func sortedIfNeeded(q Query, m Metadata) Query {
	if m.Ordered {
		return q
	}
	return Sort{Base: q}
}

