package plan

import (
	"fmt"

	"github.com/roach88/hgq/internal/condition"
)

// Thresholds bound the sizes Analyze accepts without a red flag.
type Thresholds struct {
	// Intersection flags intersections whose smaller input is larger.
	Intersection int64
	// Scan flags predicate filters over base sets larger than this.
	Scan int64
}

// DefaultThresholds are used by the CLI when no config overrides them.
var DefaultThresholds = Thresholds{Intersection: 10000, Scan: 10000}

// RedFlag is a plan shape that is likely to be slow.
type RedFlag struct {
	Kind    string
	Size    int64
	Cond    condition.Condition
	Message string
}

func (f RedFlag) String() string { return f.Kind + ": " + f.Message }

// Analyze walks q and reports intersections and filters whose estimated
// input sizes exceed th. Sizes come from the metadata recorded at compile
// time, so unknown sizes never raise a flag.
func Analyze(q Query, th Thresholds) []RedFlag {
	var flags []RedFlag
	analyze(q, th, &flags)
	return flags
}

func analyze(q Query, th Thresholds, flags *[]RedFlag) {
	switch n := unwrap(q).(type) {
	case Intersection:
		l, r := sizeOf(n.Left), sizeOf(n.Right)
		small := l
		if small < 0 || (r >= 0 && r < small) {
			small = r
		}
		if l >= 0 && r >= 0 && small > th.Intersection {
			*flags = append(*flags, RedFlag{
				Kind:    "intersection",
				Size:    small,
				Cond:    origin(q),
				Message: fmt.Sprintf("%s intersection of %s and %s: smaller side has about %d atoms", n.Kind, describe(n.Left), describe(n.Right), small),
			})
		}
	case PredicateFilter:
		if s := sizeOf(n.Base); s > th.Scan {
			*flags = append(*flags, RedFlag{
				Kind:    "scan",
				Size:    s,
				Cond:    origin(q),
				Message: fmt.Sprintf("filter %s scans about %d atoms of %s", n.Pred, s, describe(n.Base)),
			})
		}
	}
	for _, in := range q.Describe().Inputs {
		analyze(in, th, flags)
	}
}

// sizeOf estimates the result size of q, or returns -1.
func sizeOf(q Query) int64 {
	if a, ok := q.(annotated); ok {
		if s := a.meta.ExpectedSize(); s >= 0 {
			return s
		}
	}
	switch n := unwrap(q).(type) {
	case Nop:
		return 0
	case Intersection:
		l, r := sizeOf(n.Left), sizeOf(n.Right)
		switch {
		case l < 0:
			return r
		case r < 0 || l < r:
			return l
		}
		return r
	case Union:
		l, r := sizeOf(n.Left), sizeOf(n.Right)
		if l < 0 || r < 0 {
			return -1
		}
		return l + r
	case PredicateFilter:
		return sizeOf(n.Base)
	case Sort:
		return sizeOf(n.Base)
	}
	return -1
}

// origin returns the condition a node was compiled from, if recorded.
func origin(q Query) condition.Condition {
	return q.Describe().Cond
}

func describe(q Query) string {
	s := q.Describe()
	if s.Cond != nil {
		return condition.Key(s.Cond)
	}
	return s.Op
}
