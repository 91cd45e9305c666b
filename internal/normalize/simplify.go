package normalize

import (
	"context"
	"errors"
	"slices"
	"sort"

	"github.com/roach88/hgq/internal/condition"
	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
	"github.com/roach88/hgq/internal/traverse"
)

// errContradiction marks a conjunction that can match nothing. It never
// leaves this package.
var errContradiction = errors.New("contradiction")

// Simplify simplifies every conjunction of a DNF condition. Disjuncts that
// turn out contradictory are dropped. Simplify is idempotent.
func Simplify(ctx context.Context, g graph.Graph, c condition.Condition) (condition.Condition, error) {
	or, ok := c.(condition.Or)
	if !ok {
		return simplifyTerm(ctx, g, c)
	}
	out := make(condition.Or, 0, len(or))
	for _, d := range or {
		s, err := simplifyTerm(ctx, g, d)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return ToDNF(out), nil
}

func simplifyTerm(ctx context.Context, g graph.Graph, c condition.Condition) (condition.Condition, error) {
	and, ok := c.(condition.And)
	if !ok {
		and = condition.And{c}
	}
	s, err := simplifyAnd(ctx, g, and)
	if errors.Is(err, errContradiction) {
		return condition.Nothing{}, nil
	}
	return s, err
}

// conj accumulates the facts of one conjunction.
type conj struct {
	typ    graph.Handle
	eq     ir.Value
	ranges []condition.Value
	parts  []condition.Part
	links  []condition.OrderedLink
	rest   []condition.Condition
}

func (s *conj) setType(t graph.Handle) error {
	switch {
	case s.typ.IsZero():
		s.typ = t
	case s.typ != t:
		return errContradiction
	}
	return nil
}

func (s *conj) setValue(v ir.Value, op graph.Operator) error {
	if op != graph.EQ {
		s.ranges = append(s.ranges, condition.Value{Value: v, Op: op})
		return nil
	}
	switch {
	case s.eq == nil:
		s.eq = v
	case !ir.Equal(s.eq, v):
		return errContradiction
	}
	return nil
}

func (s *conj) addPart(p condition.Part) {
	for _, q := range s.parts {
		if condition.Equal(p, q) {
			return
		}
	}
	s.parts = append(s.parts, p)
}

func simplifyAnd(ctx context.Context, g graph.Graph, and condition.And) (condition.Condition, error) {
	var s conj
	for _, child := range and {
		var err error
		switch v := child.(type) {
		case condition.Nothing:
			return nil, errContradiction
		case condition.Type:
			err = s.setType(v.Type)
		case condition.TypedValue:
			if err = s.setType(v.Type); err == nil {
				err = s.setValue(v.Value, v.Op)
			}
		case condition.Value:
			err = s.setValue(v.Value, v.Op)
		case condition.Part:
			s.addPart(v)
		case condition.OrderedLink:
			s.links = append(s.links, v)
			s.rest = append(s.rest, v)
		default:
			s.rest = append(s.rest, v)
		}
		if err != nil {
			return nil, err
		}
	}
	if s.typ.IsZero() {
		return s.untyped(), nil
	}
	return s.typed(ctx, g)
}

// untyped emits a conjunction with no type to resolve indexes against.
func (s *conj) untyped() condition.Condition {
	out := s.rest
	if s.eq != nil {
		out = append(out, condition.Value{Value: s.eq, Op: graph.EQ})
	}
	for _, r := range s.ranges {
		out = append(out, r)
	}
	for _, p := range s.parts {
		out = append(out, p)
	}
	return build(out)
}

func (s *conj) typed(ctx context.Context, g graph.Graph) (condition.Condition, error) {
	r, err := newResolver(ctx, g, s.typ)
	if err != nil {
		return nil, err
	}
	var indexes []condition.Condition
	exact := false
	add := func(ix graph.Indexer, key ir.Value, op graph.Operator) {
		indexes = append(indexes, condition.Index{Indexer: ix, Key: key, Op: op})
		if ix.Type == s.typ {
			exact = true
		}
	}

	covered := false
	if s.eq != nil && !ir.IsNull(s.eq) {
		if ix, ok := r.find(graph.DirectValue, nil, 0); ok {
			add(ix, s.eq, graph.EQ)
			covered = true
		}
		parts, err := pushDown(ctx, g, s.typ, s.eq)
		if err != nil {
			return nil, err
		}
		for _, p := range parts {
			s.addPart(p.(condition.Part))
		}
	}

	out := s.rest
	for _, p := range s.parts {
		if ix, ok := r.find(graph.ByPart, p.Path, 0); ok && !ir.IsNull(p.Value) {
			add(ix, p.Value, p.Op)
			continue
		}
		out = append(out, p)
	}
	for _, l := range s.links {
		for pos, t := range l.Targets {
			if t.IsAny() {
				continue
			}
			if ix, ok := r.find(graph.ByTarget, nil, pos); ok {
				add(ix, graph.TargetKey(t), graph.EQ)
			}
		}
	}
	out = append(out, indexes...)
	hasIndex := len(indexes) > 0 || slices.ContainsFunc(s.rest, func(c condition.Condition) bool {
		_, ok := c.(condition.Index)
		return ok
	})

	// Index entries cover the indexed type and its subtypes, so the type
	// leaf is redundant only for an exact index on a type without subtypes.
	keepType := !(exact && r.leaf)
	switch {
	case s.eq != nil && !hasIndex:
		out = append(out, condition.TypedValue{Type: s.typ, Value: s.eq, Op: graph.EQ})
		keepType = false
	case s.eq != nil && !covered:
		out = append(out, condition.ValueAsPredicate{Value: s.eq, Op: graph.EQ})
	}
	if s.eq == nil && len(s.ranges) == 1 && !hasIndex {
		rg := s.ranges[0]
		out = append(out, condition.TypedValue{Type: s.typ, Value: rg.Value, Op: rg.Op})
		keepType = false
	} else {
		for _, v := range s.ranges {
			out = append(out, v)
		}
	}
	if keepType {
		out = append(out, condition.Type{Type: s.typ})
	}
	return build(out), nil
}

// build dedups cs and sorts it by structural key.
func build(cs []condition.Condition) condition.Condition {
	cs = dedup(cs)
	sort.SliceStable(cs, func(i, j int) bool { return condition.Key(cs[i]) < condition.Key(cs[j]) })
	switch len(cs) {
	case 0:
		return condition.AnyAtom{}
	case 1:
		return cs[0]
	}
	return condition.And(cs)
}

// resolver finds indexes of a type or its nearest supertype.
type resolver struct {
	ixs  [][]graph.Indexer
	leaf bool
}

func newResolver(ctx context.Context, g graph.Graph, t graph.Handle) (*resolver, error) {
	supers, err := traverse.SuperTypes(ctx, g, t)
	if err != nil {
		return nil, err
	}
	subs, err := traverse.SubTypes(ctx, g, t)
	if err != nil {
		return nil, err
	}
	r := &resolver{leaf: len(subs) == 1}
	for _, s := range supers {
		ixs, err := g.IndexersFor(ctx, s)
		if err != nil {
			return nil, err
		}
		r.ixs = append(r.ixs, ixs)
	}
	return r, nil
}

func (r *resolver) find(kind graph.IndexKind, path []string, pos int) (graph.Indexer, bool) {
	for _, ixs := range r.ixs {
		for _, ix := range ixs {
			if ix.Kind != kind {
				continue
			}
			switch kind {
			case graph.ByPart:
				if !slices.Equal(ix.Path, path) {
					continue
				}
			case graph.ByTarget:
				if ix.Position != pos {
					continue
				}
			}
			return ix, true
		}
	}
	return graph.Indexer{}, false
}

// partIndexers returns the part indexers visible from t, nearest first,
// one per path.
func partIndexers(ctx context.Context, g graph.Graph, t graph.Handle) ([]graph.Indexer, error) {
	supers, err := traverse.SuperTypes(ctx, g, t)
	if err != nil {
		return nil, err
	}
	var out []graph.Indexer
	for _, s := range supers {
		ixs, err := g.IndexersFor(ctx, s)
		if err != nil {
			return nil, err
		}
		for _, ix := range ixs {
			if ix.Kind != graph.ByPart {
				continue
			}
			if slices.ContainsFunc(out, func(o graph.Indexer) bool { return slices.Equal(o.Path, ix.Path) }) {
				continue
			}
			out = append(out, ix)
		}
	}
	return out, nil
}
