package normalize

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/hgq/internal/condition"
	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
	"github.com/roach88/hgq/internal/traverse"
)

// Normalize expands c, converts it to disjunctive normal form and
// simplifies every conjunction against g.
func Normalize(ctx context.Context, g graph.Graph, c condition.Condition) (condition.Condition, error) {
	if c == nil {
		return nil, fmt.Errorf("normalize: nil condition")
	}
	e, err := Expand(ctx, g, c)
	if err != nil {
		return nil, fmt.Errorf("expand: %w", err)
	}
	s, err := Simplify(ctx, g, ToDNF(e))
	if err != nil {
		return nil, fmt.Errorf("simplify: %w", err)
	}
	return s, nil
}

// Expand rewrites sugar conditions into primitive ones. Conditions nested
// in Map and Projection are normalized as independent queries.
func Expand(ctx context.Context, g graph.Graph, c condition.Condition) (condition.Condition, error) {
	switch v := c.(type) {
	case condition.TypePlus:
		subs, err := traverse.SubTypes(ctx, g, v.Base)
		if err != nil {
			return nil, err
		}
		if len(subs) == 1 {
			return condition.Type{Type: v.Base}, nil
		}
		or := make(condition.Or, len(subs))
		for i, s := range subs {
			or[i] = condition.Type{Type: s}
		}
		return or, nil

	case condition.Link:
		targets := concrete(v.Targets)
		switch len(targets) {
		case 0:
			return v, nil
		case 1:
			return condition.Incident{Target: targets[0]}, nil
		}
		and := make(condition.And, len(targets))
		for i, t := range targets {
			and[i] = condition.Incident{Target: t}
		}
		return and, nil

	case condition.OrderedLink:
		targets := concrete(v.Targets)
		if len(targets) == 0 {
			return v, nil
		}
		and := condition.And{v}
		for _, t := range targets {
			and = append(and, condition.Incident{Target: t})
		}
		return and, nil

	case condition.TypedValue:
		if v.Op != graph.EQ || ir.IsNull(v.Value) {
			return v, nil
		}
		parts, err := pushDown(ctx, g, v.Type, v.Value)
		if err != nil {
			return nil, err
		}
		if len(parts) == 0 {
			return v, nil
		}
		return append(condition.And{v}, parts...), nil

	case condition.And:
		out := make(condition.And, len(v))
		for i, child := range v {
			e, err := Expand(ctx, g, child)
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil

	case condition.Or:
		out := make(condition.Or, len(v))
		for i, child := range v {
			e, err := Expand(ctx, g, child)
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil

	case condition.Map:
		if v.Cond == nil {
			return v, nil
		}
		inner, err := Normalize(ctx, g, v.Cond)
		if err != nil {
			return nil, err
		}
		return condition.Map{Cond: inner, Mapping: v.Mapping}, nil

	case condition.Projection:
		if v.Base == nil {
			return v, nil
		}
		inner, err := Normalize(ctx, g, v.Base)
		if err != nil {
			return nil, err
		}
		return condition.Projection{Base: inner, Path: v.Path}, nil
	}
	return c, nil
}

// concrete returns the distinct non-wildcard handles of hs in order.
func concrete(hs []graph.Handle) []graph.Handle {
	var out []graph.Handle
	for _, h := range hs {
		if !h.IsAny() && !slices.Contains(out, h) {
			out = append(out, h)
		}
	}
	return out
}

// pushDown returns one equality part leaf for every part index of t, or of
// its nearest supertype, under which v has a value.
func pushDown(ctx context.Context, g graph.Graph, t graph.Handle, v ir.Value) ([]condition.Condition, error) {
	ixs, err := partIndexers(ctx, g, t)
	if err != nil {
		return nil, err
	}
	var out []condition.Condition
	for _, ix := range ixs {
		pv, ok := ir.Project(v, ix.Path)
		if !ok || ir.IsNull(pv) {
			continue
		}
		out = append(out, condition.Part{Path: ix.Path, Value: pv, Op: graph.EQ})
	}
	return out, nil
}
