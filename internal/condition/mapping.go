package condition

import (
	"context"
	"errors"
	"strconv"

	"github.com/roach88/hgq/internal/graph"
)

// Mapping transforms one atom handle into another. Apply reports false
// when the mapping is undefined for h; such atoms are skipped.
type Mapping interface {
	Name() string
	Apply(ctx context.Context, g graph.Graph, h graph.Handle) (graph.Handle, bool, error)
}

// TargetAt maps a link to its target at Position.
type TargetAt struct {
	Position int
}

func (m TargetAt) Name() string { return "target-at(" + strconv.Itoa(m.Position) + ")" }

func (m TargetAt) Apply(ctx context.Context, g graph.Graph, h graph.Handle) (graph.Handle, bool, error) {
	a, ok, err := load(ctx, g, h)
	if err != nil || !ok {
		return graph.Handle{}, false, err
	}
	if m.Position < 0 || m.Position >= len(a.Targets) {
		return graph.Handle{}, false, nil
	}
	return a.Targets[m.Position], true, nil
}

// TypeOf maps an atom to its type.
type TypeOf struct{}

func (TypeOf) Name() string { return "type-of" }

func (TypeOf) Apply(ctx context.Context, g graph.Graph, h graph.Handle) (graph.Handle, bool, error) {
	a, ok, err := load(ctx, g, h)
	if err != nil || !ok {
		return graph.Handle{}, false, err
	}
	return a.Type, true, nil
}

// load fetches an atom, reporting false for dangling handles.
func load(ctx context.Context, g graph.Graph, h graph.Handle) (graph.Atom, bool, error) {
	a, err := g.Atom(ctx, h)
	if errors.Is(err, graph.ErrNotFound) {
		return graph.Atom{}, false, nil
	}
	if err != nil {
		return graph.Atom{}, false, err
	}
	return a, true, nil
}
