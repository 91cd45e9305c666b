package plan

import (
	"context"

	"github.com/roach88/hgq/internal/condition"
)

type orTranslator struct{}

// branches drops Nothing children.
func branches(or condition.Or) []condition.Condition {
	out := make([]condition.Condition, 0, len(or))
	for _, ch := range or {
		if _, ok := ch.(condition.Nothing); !ok {
			out = append(out, ch)
		}
	}
	return out
}

func (orTranslator) Compile(ctx context.Context, c *Compiler, cond condition.Condition) (Query, error) {
	children := branches(cond.(condition.Or))
	switch len(children) {
	case 0:
		return Nop{}, nil
	case 1:
		return c.Compile(ctx, children[0])
	}
	var result Query
	for _, ch := range children {
		q, err := c.Compile(ctx, ch)
		if err != nil {
			return nil, err
		}
		m, err := c.Metadata(ctx, ch)
		if err != nil {
			return nil, err
		}
		q = sortedIfNeeded(q, m)
		if result == nil {
			result = q
			continue
		}
		result = Union{Left: result, Right: q, Async: c.opts.ParallelOr}
	}
	return result, nil
}

func (orTranslator) Metadata(ctx context.Context, c *Compiler, cond condition.Condition) (Metadata, error) {
	children := branches(cond.(condition.Or))
	switch len(children) {
	case 0:
		return EmptyMeta(), nil
	case 1:
		return c.Metadata(ctx, children[0])
	}
	m := Metadata{Ordered: true, SizeExpected: -1}
	var total float64
	known := false
	for _, ch := range children {
		cm, err := c.Metadata(ctx, ch)
		if err != nil {
			return Metadata{}, err
		}
		if c.isRaw(ch) {
			m.Ordered = false
		}
		m.Ordered = m.Ordered && cm.Ordered
		if m.PredicateCost >= 0 {
			if cm.PredicateCost < 0 {
				m.PredicateCost = -1
			} else {
				total += cm.PredicateCost
			}
		}
		if cm.SizeLB > m.SizeLB {
			m.SizeLB = cm.SizeLB
		}
		if m.SizeUB != Unbounded {
			if cm.SizeUB == Unbounded || m.SizeUB > Unbounded-cm.SizeUB {
				m.SizeUB = Unbounded
			} else {
				m.SizeUB += cm.SizeUB
			}
		}
		if cm.SizeExpected >= 0 {
			if !known {
				m.SizeExpected = 0
				known = true
			}
			m.SizeExpected += cm.SizeExpected
		}
	}
	if m.PredicateCost >= 0 {
		m.PredicateCost = total / float64(len(children))
	}
	return m, nil
}
