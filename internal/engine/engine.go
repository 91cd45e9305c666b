package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/hgq/internal/condition"
	"github.com/roach88/hgq/internal/cursor"
	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
	"github.com/roach88/hgq/internal/normalize"
	"github.com/roach88/hgq/internal/plan"
)

// Engine answers condition queries against snapshots of a graph.
//
// Thread-safety model:
//   - All methods are safe from any goroutine.
//   - Each Find allocates its own cursor tree; Results are not shared.
type Engine struct {
	tx     graph.TxManager
	reg    *plan.Registry
	opts   plan.Options
	logger *slog.Logger

	cacheSize int
	plans     *lru.Cache[string, *Prepared]
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithLogger sets the logger for per-query debug events.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithParallelUnion compiles disjunctions to unions whose branches advance
// concurrently.
func WithParallelUnion(on bool) Option {
	return func(e *Engine) {
		e.opts.ParallelOr = on
	}
}

// WithMaterializedIntersections compiles multi-way random access
// intersections to in-memory intersections.
func WithMaterializedIntersections(on bool) Option {
	return func(e *Engine) {
		e.opts.MaterializeIntersections = on
	}
}

// WithPlanCache keeps the n most recently used plans. n <= 0 disables the
// cache (the default). A cached plan is reused only under snapshots of the
// same write generation (graph.Versioned).
func WithPlanCache(n int) Option {
	return func(e *Engine) {
		e.cacheSize = n
	}
}

// WithRegistry replaces the built-in translator registry.
func WithRegistry(r *plan.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.reg = r
		}
	}
}

// New creates an Engine reading from tx.
func New(tx graph.TxManager, opts ...Option) *Engine {
	e := &Engine{
		tx:     tx,
		reg:    plan.DefaultRegistry(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cacheSize > 0 {
		// lru.New only fails for non-positive sizes.
		e.plans, _ = lru.New[string, *Prepared](e.cacheSize)
	}
	e.logger.Info("engine opened",
		"plan_cache", e.cacheSize,
		"parallel_union", e.opts.ParallelOr,
	)
	return e
}

// ResetPlans drops every cached plan.
func (e *Engine) ResetPlans() {
	if e.plans != nil {
		e.plans.Purge()
	}
}

// Prepared is a normalized and compiled condition. It holds no storage
// state and may be executed any number of times, concurrently.
type Prepared struct {
	e    *Engine
	cond condition.Condition
	norm condition.Condition
	plan plan.Query
}

// Condition returns the condition as given.
func (p *Prepared) Condition() condition.Condition { return p.cond }

// Normalized returns the condition the plan was compiled from.
func (p *Prepared) Normalized() condition.Condition { return p.norm }

// Plan returns the compiled plan.
func (p *Prepared) Plan() plan.Query { return p.plan }

// String renders the condition, its normal form and the plan tree.
func (p *Prepared) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "condition:  %s\n", p.cond)
	fmt.Fprintf(&b, "normalized: %s\n", p.norm)
	b.WriteString("plan:\n")
	for _, line := range strings.SplitAfter(plan.Explain(p.plan), "\n") {
		if line != "" {
			b.WriteString("  " + line)
		}
	}
	return b.String()
}

// Find executes p under a new snapshot.
func (p *Prepared) Find(ctx context.Context) (*Results, error) {
	snap, err := p.e.tx.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return p.open(ctx, snap)
}

// open executes p against snap. The snapshot is released on failure and
// otherwise owned by the returned Results.
func (p *Prepared) open(ctx context.Context, snap graph.Snapshot) (*Results, error) {
	c, err := p.plan.Execute(ctx, snap)
	if err != nil {
		snap.Release()
		return nil, fmt.Errorf("execute %s: %w", p.norm, err)
	}
	return &Results{Cursor: c, snap: snap}, nil
}

// Prepare normalizes and compiles cond under a short-lived snapshot.
func (e *Engine) Prepare(ctx context.Context, cond condition.Condition) (*Prepared, error) {
	var p *Prepared
	err := e.withSnapshot(ctx, func(g graph.Graph) error {
		var err error
		p, err = e.prepare(ctx, g, cond)
		return err
	})
	return p, err
}

func (e *Engine) withSnapshot(ctx context.Context, fn func(graph.Graph) error) error {
	snap, err := e.tx.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	defer snap.Release()
	return fn(snap)
}

func (e *Engine) prepare(ctx context.Context, g graph.Graph, cond condition.Condition) (*Prepared, error) {
	if cond == nil {
		return nil, fmt.Errorf("nil condition")
	}
	key, cacheable := e.planKey(g, cond)
	if cacheable {
		if p, ok := e.plans.Get(key); ok {
			e.logger.Debug("plan cache hit", "condition", cond.String())
			return p, nil
		}
	}

	norm, err := normalize.Normalize(ctx, g, cond)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", cond, err)
	}
	q, err := plan.NewCompiler(e.reg, g, e.opts).Compile(ctx, norm)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", norm, err)
	}
	e.logger.Debug("query compiled",
		"condition", cond.String(),
		"normalized", norm.String(),
		"plan", q.Describe().Op,
	)

	p := &Prepared{e: e, cond: cond, norm: norm, plan: q}
	if cacheable {
		e.plans.Add(key, p)
	}
	return p, nil
}

// planKey identifies a plan by the condition and the write generation it
// was compiled under, since normalization depends on the type hierarchy
// and the indexes. Graphs that do not report a generation are not cached,
// and neither are conditions holding a Func, whose key is only its name.
func (e *Engine) planKey(g graph.Graph, cond condition.Condition) (string, bool) {
	if e.plans == nil || condition.HasFunc(cond) {
		return "", false
	}
	v, ok := g.(graph.Versioned)
	if !ok {
		return "", false
	}
	return ir.Fingerprint(ir.DomainCondition, []byte(condition.Key(cond))) + "@" + strconv.FormatUint(v.Generation(), 10), true
}

// Find normalizes, compiles and executes cond in one snapshot. The caller
// must Close the returned Results.
func (e *Engine) Find(ctx context.Context, cond condition.Condition) (*Results, error) {
	snap, err := e.tx.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	p, err := e.prepare(ctx, snap, cond)
	if err != nil {
		snap.Release()
		return nil, err
	}
	return p.open(ctx, snap)
}

// FindAll returns every handle matching cond.
func (e *Engine) FindAll(ctx context.Context, cond condition.Condition) ([]graph.Handle, error) {
	r, err := e.Find(ctx, cond)
	if err != nil {
		return nil, err
	}
	return cursor.Collect[graph.Handle](r)
}

// FindOne returns the first handle matching cond, or graph.ErrNotFound.
func (e *Engine) FindOne(ctx context.Context, cond condition.Condition) (graph.Handle, error) {
	r, err := e.Find(ctx, cond)
	if err != nil {
		return graph.Handle{}, err
	}
	defer r.Close()
	if !r.HasNext() {
		if err := r.Err(); err != nil {
			return graph.Handle{}, err
		}
		return graph.Handle{}, fmt.Errorf("%s: %w", cond, graph.ErrNotFound)
	}
	return r.Next()
}

// Count returns the number of handles matching cond.
func (e *Engine) Count(ctx context.Context, cond condition.Condition) (int64, error) {
	r, err := e.Find(ctx, cond)
	if err != nil {
		return 0, err
	}
	return cursor.Count[graph.Handle](r)
}

// Explain renders the normal form and plan of cond without executing it.
func (e *Engine) Explain(ctx context.Context, cond condition.Condition) (string, error) {
	p, err := e.Prepare(ctx, cond)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

// Analyze compiles cond and reports plan shapes whose estimated sizes
// exceed th.
func (e *Engine) Analyze(ctx context.Context, cond condition.Condition, th plan.Thresholds) ([]plan.RedFlag, error) {
	p, err := e.Prepare(ctx, cond)
	if err != nil {
		return nil, err
	}
	flags := plan.Analyze(p.plan, th)
	if len(flags) > 0 {
		e.logger.Debug("plan red flags", "condition", cond.String(), "count", len(flags))
	}
	return flags, nil
}

// Results is the cursor of one Find. It owns the snapshot the query ran
// in: Close closes the cursor tree and then releases the snapshot.
type Results struct {
	cursor.Cursor[graph.Handle]
	snap graph.Snapshot

	once sync.Once
	err  error
}

// Close is idempotent.
func (r *Results) Close() error {
	r.once.Do(func() {
		err := r.Cursor.Close()
		if rerr := r.snap.Release(); err == nil {
			err = rerr
		}
		r.err = err
	})
	return r.err
}
