package normalize

import "github.com/roach88/hgq/internal/condition"

// ToDNF returns c as a single leaf, a conjunction of leaves, or a
// disjunction of those. Structurally equal children of one produced
// conjunction are merged. An empty conjunction or disjunction, like any
// conjunction containing Nothing, becomes Nothing.
func ToDNF(c condition.Condition) condition.Condition {
	switch v := c.(type) {
	case condition.And:
		if len(v) == 0 {
			return condition.Nothing{}
		}
		terms := [][]condition.Condition{nil}
		for _, child := range v {
			switch d := ToDNF(child).(type) {
			case condition.Nothing:
				return condition.Nothing{}
			case condition.Or:
				next := make([][]condition.Condition, 0, len(terms)*len(d))
				for _, t := range terms {
					for _, alt := range d {
						next = append(next, join(t, alt))
					}
				}
				terms = next
			default:
				for i, t := range terms {
					terms[i] = join(t, d)
				}
			}
		}
		or := make(condition.Or, 0, len(terms))
		for _, t := range terms {
			or = append(or, conjunction(t))
		}
		if len(or) == 1 {
			return or[0]
		}
		return dedupOr(or)

	case condition.Or:
		var or condition.Or
		for _, child := range v {
			switch d := ToDNF(child).(type) {
			case condition.Nothing:
			case condition.Or:
				or = append(or, d...)
			default:
				or = append(or, d)
			}
		}
		return dedupOr(or)
	}
	return c
}

// join returns a fresh term holding t and the leaves of c.
func join(t []condition.Condition, c condition.Condition) []condition.Condition {
	out := make([]condition.Condition, len(t), len(t)+1)
	copy(out, t)
	if and, ok := c.(condition.And); ok {
		return append(out, and...)
	}
	return append(out, c)
}

func conjunction(t []condition.Condition) condition.Condition {
	t = dedup(t)
	if len(t) == 1 {
		return t[0]
	}
	return condition.And(t)
}

func dedup(cs []condition.Condition) []condition.Condition {
	seen := make(map[string]bool, len(cs))
	out := cs[:0:0]
	for _, c := range cs {
		k := condition.Key(c)
		if !seen[k] {
			seen[k] = true
			out = append(out, c)
		}
	}
	return out
}

func dedupOr(or condition.Or) condition.Condition {
	cs := dedup(or)
	switch len(cs) {
	case 0:
		return condition.Nothing{}
	case 1:
		return cs[0]
	}
	return condition.Or(cs)
}
