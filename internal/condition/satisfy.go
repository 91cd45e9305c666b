package condition

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/hgq/internal/cursor"
	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
	"github.com/roach88/hgq/internal/traverse"
)

// ErrNotPredicate is returned when a condition without an in-memory form is
// evaluated against an atom.
var ErrNotPredicate = errors.New("condition: not usable as a predicate")

// Satisfies evaluates c against the atom h.
func Satisfies(ctx context.Context, g graph.Graph, c Condition, h graph.Handle) (bool, error) {
	p, ok := c.(Predicate)
	if !ok {
		return false, fmt.Errorf("%s: %w", Key(c), ErrNotPredicate)
	}
	return p.Satisfies(ctx, g, h)
}

func (Nothing) Satisfies(context.Context, graph.Graph, graph.Handle) (bool, error) {
	return false, nil
}

func (AnyAtom) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	_, ok, err := load(ctx, g, h)
	return ok, err
}

func (c Type) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	a, ok, err := load(ctx, g, h)
	return ok && a.Type == c.Type, err
}

func (c TypePlus) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	a, ok, err := load(ctx, g, h)
	if err != nil || !ok {
		return false, err
	}
	return traverse.Subsumes(ctx, g, c.Base, a.Type)
}

func (c Value) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	a, ok, err := load(ctx, g, h)
	return ok && c.Op.Test(a.Value, c.Value), err
}

func (c TypedValue) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	a, ok, err := load(ctx, g, h)
	return ok && a.Type == c.Type && c.Op.Test(a.Value, c.Value), err
}

func (c Part) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	a, ok, err := load(ctx, g, h)
	if err != nil || !ok {
		return false, err
	}
	v, ok := ir.Project(a.Value, c.Path)
	return ok && c.Op.Test(v, c.Value), nil
}

func (c ValueAsPredicate) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	return Value{Value: c.Value, Op: c.Op}.Satisfies(ctx, g, h)
}

func (c Index) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	idx, err := g.Index(ctx, c.Indexer)
	if err != nil {
		return false, err
	}
	found, err := idx.Find(ctx, c.Op, c.Key)
	if err != nil {
		return false, err
	}
	return contains(found, h)
}

func (c Incident) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	a, ok, err := load(ctx, g, h)
	return ok && slices.Contains(a.Targets, c.Target), err
}

func (c PositionedIncident) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	a, ok, err := load(ctx, g, h)
	if err != nil || !ok {
		return false, err
	}
	return c.Position.Holds(a.Targets, c.Target), nil
}

// Holds reports whether target sits at p within targets.
func (p Position) Holds(targets []graph.Handle, target graph.Handle) bool {
	n := len(targets)
	if n == 0 {
		return false
	}
	switch p {
	case First:
		return targets[0] == target
	case Last:
		return targets[n-1] == target
	case NotFirst:
		return slices.Contains(targets[1:], target)
	case NotLast:
		return slices.Contains(targets[:n-1], target)
	}
	return false
}

func (c Link) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	a, ok, err := load(ctx, g, h)
	if err != nil || !ok || !a.IsLink() {
		return false, err
	}
	for _, t := range c.Targets {
		if !t.IsAny() && !slices.Contains(a.Targets, t) {
			return false, nil
		}
	}
	return true, nil
}

func (c OrderedLink) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	a, ok, err := load(ctx, g, h)
	if err != nil || !ok {
		return false, err
	}
	return c.Matches(a.Targets), nil
}

// Matches reports whether targets fit the pattern position by position.
func (c OrderedLink) Matches(targets []graph.Handle) bool {
	if len(targets) != len(c.Targets) {
		return false
	}
	for i, t := range c.Targets {
		if !t.IsAny() && targets[i] != t {
			return false
		}
	}
	return true
}

func (c Target) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	link, ok, err := load(ctx, g, c.Link)
	return ok && slices.Contains(link.Targets, h), err
}

func (c BFS) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	pairs := traverse.BFS(ctx, traverse.Neighbours(g, c.Opts), c.Start, c.Opts.MaxDepth)
	return reaches(traverse.Handles(pairs, c.Return), h)
}

func (c DFS) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	pairs := traverse.DFS(ctx, traverse.Neighbours(g, c.Opts), c.Start, c.Opts.MaxDepth)
	return reaches(traverse.Handles(pairs, c.Return), h)
}

func reaches(c cursor.Cursor[graph.Handle], h graph.Handle) (bool, error) {
	defer c.Close()
	for c.HasNext() {
		x, err := c.Next()
		if err != nil {
			return false, err
		}
		if x == h {
			return true, nil
		}
	}
	return false, c.Err()
}

func (c Subsumes) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	return traverse.Subsumes(ctx, g, h, c.Specific)
}

func (c Subsumed) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	return traverse.Subsumes(ctx, g, c.General, h)
}

func (c SubgraphMember) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	members, err := g.SubgraphMembers(ctx, c.Subgraph)
	if err != nil {
		return false, err
	}
	return contains(members, h)
}

func (c SubgraphContains) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	owners, err := g.SubgraphsOf(ctx, c.Atom)
	if err != nil {
		return false, err
	}
	return contains(owners, h)
}

func (c And) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	for _, child := range c {
		ok, err := Satisfies(ctx, g, child, h)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (c Or) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	for _, child := range c {
		ok, err := Satisfies(ctx, g, child, h)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (c Arity) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	a, ok, err := load(ctx, g, h)
	return ok && a.Arity() == c.N, err
}

func (c Not) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	if c.Cond == nil {
		return true, nil
	}
	ok, err := c.Cond.Satisfies(ctx, g, h)
	return !ok && err == nil, err
}

func (c Is) Satisfies(_ context.Context, _ graph.Graph, h graph.Handle) (bool, error) {
	return h == c.Handle, nil
}

func (c Func) Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error) {
	if c.Fn == nil {
		return false, fmt.Errorf("func %q has no implementation", c.Name)
	}
	return c.Fn(ctx, g, h)
}

// contains seeks h in a handle cursor and closes it.
func contains(c cursor.RandomAccess[graph.Handle], h graph.Handle) (bool, error) {
	defer c.Close()
	res, err := c.Seek(h, true)
	return res == cursor.SeekFound, err
}
