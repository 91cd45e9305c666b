package plan

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/hgq/internal/condition"
)

// bucket classifies a conjunct by how its result can be accessed.
type bucket uint8

const (
	bucketORA bucket = iota // ordered and random access
	bucketO                 // ordered only
	bucketRA                // random access only
	bucketP                 // usable as an in-memory predicate
	bucketW                 // must be materialized
)

// classify puts predicate-only conjuncts in P whatever else they offer.
func classify(m Metadata) bucket {
	switch {
	case m.PredicateOnly:
		return bucketP
	case m.Ordered && m.RandomAccess:
		return bucketORA
	case m.Ordered:
		return bucketO
	case m.RandomAccess:
		return bucketRA
	case m.Predicate():
		return bucketP
	}
	return bucketW
}

// conjunct is one child of a conjunction. Entries are tracked by position,
// so structurally equal children stay distinct.
type conjunct struct {
	cond condition.Condition
	meta Metadata
	raw  bool
}

// sizeKey orders conjuncts smallest first; unknown sizes sort last.
func sizeKey(m Metadata) (int64, bool) {
	if m.SizeExpected >= 0 {
		return m.SizeExpected, true
	}
	if m.SizeUB != Unbounded {
		return m.SizeUB, true
	}
	return 0, false
}

func bySize(cs []conjunct) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, aok := sizeKey(cs[i].meta)
		b, bok := sizeKey(cs[j].meta)
		if aok != bok {
			return aok
		}
		return aok && a < b
	})
}

type andTranslator struct{}

func (andTranslator) children(ctx context.Context, c *Compiler, and condition.And) ([]conjunct, bool, error) {
	out := make([]conjunct, 0, len(and))
	for _, child := range and {
		if _, ok := child.(condition.Nothing); ok {
			return nil, true, nil
		}
		m, err := c.Metadata(ctx, child)
		if err != nil {
			return nil, false, err
		}
		out = append(out, conjunct{cond: child, meta: m, raw: c.isRaw(child)})
	}
	return out, false, nil
}

func (t andTranslator) Compile(ctx context.Context, c *Compiler, cond condition.Condition) (Query, error) {
	and := cond.(condition.And)
	switch len(and) {
	case 0:
		return Nop{}, nil
	case 1:
		return c.Compile(ctx, and[0])
	}
	children, empty, err := t.children(ctx, c, and)
	if err != nil {
		return nil, err
	}
	if empty {
		return Nop{}, nil
	}
	return planAnd(ctx, c, cond, children)
}

func planAnd(ctx context.Context, c *Compiler, cond condition.Condition, children []conjunct) (Query, error) {
	var ora, o, ra, p, w []conjunct
	for _, ch := range children {
		if ch.raw {
			p = append(p, ch)
			continue
		}
		switch classify(ch.meta) {
		case bucketORA:
			ora = append(ora, ch)
		case bucketO:
			o = append(o, ch)
		case bucketRA:
			ra = append(ra, ch)
		case bucketP:
			p = append(p, ch)
		default:
			w = append(w, ch)
		}
	}

	var result Query
	if len(ora) == 1 {
		o = append(ora, o...)
		ora = nil
	}
	if len(ora) > 1 {
		bySize(ora)
		kind := ZigZag
		if c.opts.MaterializeIntersections {
			kind = InMemory
		}
		for _, ch := range ora {
			q, err := c.Compile(ctx, ch.cond)
			if err != nil {
				return nil, err
			}
			if result == nil {
				result = q
				continue
			}
			result = Intersection{Kind: kind, Left: result, Right: q}
		}
	}
	bySize(o)
	for _, ch := range o {
		q, err := c.Compile(ctx, ch.cond)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = q
			continue
		}
		result = Intersection{Kind: SortedMerge, Left: result, Right: q}
	}

	if result == nil {
		var drive conjunct
		switch {
		case len(w) > 0:
			i := largestW(w)
			drive, w = w[i], remove(w, i)
		case len(ra) > 0:
			i := costliestRA(ra)
			drive, ra = ra[i], remove(ra, i)
		default:
			i := scannableP(p)
			if i < 0 {
				return nil, NewNoScannableError(cond)
			}
			drive, p = p[i], remove(p, i)
		}
		q, err := c.Compile(ctx, drive.cond)
		if err != nil {
			return nil, err
		}
		result = q
	}

	type stage struct {
		pred Predicate
		cost float64
	}
	stages := make([]stage, 0, len(ra)+len(p))
	for _, ch := range ra {
		q, err := c.Compile(ctx, ch.cond)
		if err != nil {
			return nil, err
		}
		cost := ch.meta.PredicateCost
		if cost < 0 {
			cost = 1
		}
		stages = append(stages, stage{RABased{Query: q, Cost: cost, Cond: ch.cond}, cost})
	}
	for _, ch := range p {
		pc, ok := ch.cond.(condition.Predicate)
		if !ok {
			return nil, &CompileError{
				Code:      ErrCodeInvalidCondition,
				Condition: ch.cond,
				Message:   fmt.Sprintf("%T cannot be evaluated as a predicate", ch.cond),
			}
		}
		stages = append(stages, stage{CondPredicate{Cond: pc}, ch.meta.PredicateCost})
	}
	sort.SliceStable(stages, func(i, j int) bool { return stages[i].cost < stages[j].cost })
	for _, s := range stages {
		result = PredicateFilter{Base: result, Pred: s.pred}
	}
	for _, ch := range w {
		q, err := c.Compile(ctx, ch.cond)
		if err != nil {
			return nil, err
		}
		result = PredicateFilter{Base: result, Pred: DelayedSetLoad{Query: q, Cond: ch.cond}}
	}
	return result, nil
}

// largestW returns the W entry with the largest expected size. Unknown
// sizes lose to known ones; ties keep the first.
func largestW(w []conjunct) int {
	best := 0
	for i := 1; i < len(w); i++ {
		if w[i].meta.ExpectedSize() > w[best].meta.ExpectedSize() {
			best = i
		}
	}
	return best
}

func costliestRA(ra []conjunct) int {
	best := 0
	for i := 1; i < len(ra); i++ {
		if ra[i].meta.PredicateCost > ra[best].meta.PredicateCost {
			best = i
		}
	}
	return best
}

// scannableP returns the first predicate entry that may drive a scan.
func scannableP(p []conjunct) int {
	for i, ch := range p {
		if !ch.raw && !ch.meta.PredicateOnly {
			return i
		}
	}
	return -1
}

func remove(cs []conjunct, i int) []conjunct {
	out := make([]conjunct, 0, len(cs)-1)
	out = append(out, cs[:i]...)
	return append(out, cs[i+1:]...)
}

func (t andTranslator) Metadata(ctx context.Context, c *Compiler, cond condition.Condition) (Metadata, error) {
	and := cond.(condition.And)
	switch len(and) {
	case 0:
		return EmptyMeta(), nil
	case 1:
		return c.Metadata(ctx, and[0])
	}
	children, empty, err := t.children(ctx, c, and)
	if err != nil {
		return Metadata{}, err
	}
	if empty {
		return EmptyMeta(), nil
	}
	m := Metadata{Ordered: true, RandomAccess: true, SizeUB: Unbounded, SizeExpected: -1}
	for _, ch := range children {
		cm := ch.meta
		if ch.raw {
			m.Ordered, m.RandomAccess = false, false
		}
		m.Ordered = m.Ordered && cm.Ordered
		m.RandomAccess = m.RandomAccess && cm.RandomAccess
		if m.PredicateCost >= 0 {
			if cm.PredicateCost < 0 {
				m.PredicateCost = -1
			} else {
				m.PredicateCost += cm.PredicateCost
			}
		}
		if cm.SizeUB < m.SizeUB {
			m.SizeUB = cm.SizeUB
		}
		if cm.SizeExpected >= 0 && (m.SizeExpected < 0 || cm.SizeExpected < m.SizeExpected) {
			m.SizeExpected = cm.SizeExpected
		}
	}
	return m, nil
}
