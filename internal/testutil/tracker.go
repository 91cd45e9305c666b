package testutil

import (
	"context"
	"sync"

	"github.com/roach88/hgq/internal/cursor"
	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
)

// Tracker counts the cursors a graph hands out and the snapshots a
// transaction manager opens, so tests can assert that a plan closes
// everything it opened.
type Tracker struct {
	mu       sync.Mutex
	opened   int
	closed   int
	acquired int
	released int
}

// Open returns the number of cursors opened and not yet closed.
func (t *Tracker) Open() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opened - t.closed
}

// Opened returns the number of cursors opened so far.
func (t *Tracker) Opened() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opened
}

// Held returns the number of snapshots not yet released.
func (t *Tracker) Held() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.acquired - t.released
}

func (t *Tracker) count(n *int) {
	t.mu.Lock()
	*n++
	t.mu.Unlock()
}

// Graph wraps g so that every cursor it returns is tracked.
func (t *Tracker) Graph(g graph.Graph) graph.Graph {
	return &trackedGraph{Graph: g, t: t}
}

// TxManager wraps m so that snapshots and their cursors are tracked.
func (t *Tracker) TxManager(m graph.TxManager) graph.TxManager {
	return trackedTx{m: m, t: t}
}

type trackedTx struct {
	m graph.TxManager
	t *Tracker
}

func (x trackedTx) Snapshot(ctx context.Context) (graph.Snapshot, error) {
	s, err := x.m.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	x.t.count(&x.t.acquired)
	return &trackedSnapshot{trackedGraph: trackedGraph{Graph: s, t: x.t}, s: s}, nil
}

type trackedSnapshot struct {
	trackedGraph
	s    graph.Snapshot
	once sync.Once
}

// Generation forwards the wrapped snapshot's generation, or 0 when it has
// none.
func (s *trackedSnapshot) Generation() uint64 {
	if v, ok := s.s.(graph.Versioned); ok {
		return v.Generation()
	}
	return 0
}

func (s *trackedSnapshot) Release() error {
	s.once.Do(func() { s.t.count(&s.t.released) })
	return s.s.Release()
}

type trackedGraph struct {
	graph.Graph
	t *Tracker
}

func (g *trackedGraph) ra(c cursor.RandomAccess[graph.Handle], err error) (cursor.RandomAccess[graph.Handle], error) {
	if err != nil {
		return nil, err
	}
	g.t.count(&g.t.opened)
	return &trackedRA{RandomAccess: c, t: g.t}, nil
}

func (g *trackedGraph) AllAtoms(ctx context.Context) (cursor.RandomAccess[graph.Handle], error) {
	return g.ra(g.Graph.AllAtoms(ctx))
}

func (g *trackedGraph) ByType(ctx context.Context, typ graph.Handle) (cursor.RandomAccess[graph.Handle], error) {
	return g.ra(g.Graph.ByType(ctx, typ))
}

func (g *trackedGraph) AtomsByValue(ctx context.Context, k graph.ValueKey) (cursor.RandomAccess[graph.Handle], error) {
	return g.ra(g.Graph.AtomsByValue(ctx, k))
}

func (g *trackedGraph) Incidence(ctx context.Context, h graph.Handle) (cursor.RandomAccess[graph.Handle], error) {
	return g.ra(g.Graph.Incidence(ctx, h))
}

func (g *trackedGraph) SubgraphMembers(ctx context.Context, sg graph.Handle) (cursor.RandomAccess[graph.Handle], error) {
	return g.ra(g.Graph.SubgraphMembers(ctx, sg))
}

func (g *trackedGraph) SubgraphsOf(ctx context.Context, h graph.Handle) (cursor.RandomAccess[graph.Handle], error) {
	return g.ra(g.Graph.SubgraphsOf(ctx, h))
}

func (g *trackedGraph) Index(ctx context.Context, ix graph.Indexer) (graph.Index, error) {
	idx, err := g.Graph.Index(ctx, ix)
	if err != nil {
		return nil, err
	}
	return trackedIndex{Index: idx, g: g}, nil
}

type trackedIndex struct {
	graph.Index
	g *trackedGraph
}

func (x trackedIndex) Find(ctx context.Context, op graph.Operator, key ir.Value) (cursor.RandomAccess[graph.Handle], error) {
	return x.g.ra(x.Index.Find(ctx, op, key))
}

type trackedRA struct {
	cursor.RandomAccess[graph.Handle]
	t    *Tracker
	once sync.Once
}

func (c *trackedRA) Close() error {
	c.once.Do(func() { c.t.count(&c.t.closed) })
	return c.RandomAccess.Close()
}
