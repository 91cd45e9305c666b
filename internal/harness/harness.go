package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/hgq/internal/compiler"
	"github.com/roach88/hgq/internal/condition"
	"github.com/roach88/hgq/internal/engine"
	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/plan"
	"github.com/roach88/hgq/internal/queryspec"
	"github.com/roach88/hgq/internal/store"
)

// Option configures a run.
type Option func(*Harness)

// WithLogger sets the logger for the run and the store and engine it
// opens. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithGoldenDir compares golden cases with files under dir, one
// subdirectory per scenario.
func WithGoldenDir(dir string) Option {
	return func(h *Harness) { h.goldenDir = dir }
}

// WithUpdate rewrites golden files instead of comparing them.
func WithUpdate(update bool) Option {
	return func(h *Harness) { h.update = update }
}

// Harness runs one scenario against its own store.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	compiled *compiler.Compiled
	logger   *slog.Logger

	goldenDir string
	update    bool
}

// Run executes a scenario and returns the result. Each scenario gets a
// fresh database in a temporary directory, removed when the run ends.
//
// The returned error reports a run that could not happen (dataset or
// store failures); failing cases are reported in the Result.
func Run(ctx context.Context, sc *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}

	c, err := compiler.LoadFiles(sc.Dataset...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile dataset: %w", err)
	}
	h.compiled = c

	dir, err := os.MkdirTemp("", "hgq-harness-")
	if err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "hgq.db"), store.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()
	h.store = st

	if err := st.Load(ctx, c.Dataset); err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	h.engine = engine.New(st,
		engine.WithLogger(h.logger),
		engine.WithParallelUnion(sc.ParallelUnion),
	)

	result := NewResult(sc.Name)
	for _, qc := range sc.Queries {
		cr, err := h.runCase(ctx, sc.Name, qc)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", qc.Name, err)
		}
		result.Add(cr)
		h.logger.Info("case completed", "scenario", sc.Name, "case", qc.Name, "pass", len(cr.Errors) == 0)
	}
	return result, nil
}

// runCase evaluates one case. Only failures of the store itself are
// returned as errors.
func (h *Harness) runCase(ctx context.Context, scenario string, c Case) (CaseResult, error) {
	cr := CaseResult{Name: c.Name}

	cond, err := h.resolve(ctx, c)
	if c.Error != "" {
		if err == nil {
			_, err = h.engine.FindAll(ctx, cond)
		}
		if aerr := assertError(c.Error, err); aerr != nil {
			cr.AddError(aerr)
		}
		return cr, nil
	}
	if err != nil {
		cr.AddError(err)
		return cr, nil
	}

	explain, err := h.engine.Explain(ctx, cond)
	if err != nil {
		cr.AddError(err)
		return cr, nil
	}
	cr.Explain = h.rename(explain)

	if c.Expect != nil || c.Count != nil {
		found, err := h.engine.FindAll(ctx, cond)
		if err != nil {
			return cr, err
		}
		cr.Found = h.names(found)
		if c.Expect != nil {
			if aerr := assertResults(c.Expect, cr.Found); aerr != nil {
				cr.AddError(aerr)
			}
		}
		if c.Count != nil {
			if aerr := assertCount(*c.Count, int64(len(found))); aerr != nil {
				cr.AddError(aerr)
			}
		}
	}

	if c.Analyze != nil {
		th := plan.Thresholds{Intersection: c.Analyze.Intersection, Scan: c.Analyze.Scan}
		flags, err := h.engine.Analyze(ctx, cond, th)
		if err != nil {
			return cr, err
		}
		if aerr := assertAnalyze(c.Analyze, flags); aerr != nil {
			cr.AddError(aerr)
		}
	}

	if c.Golden && h.goldenDir != "" {
		path := filepath.Join(h.goldenDir, scenario, c.Name+".golden")
		if err := assertGoldenFile(path, cr.Explain, h.update); err != nil {
			cr.AddError(err)
		}
	}
	return cr, nil
}

// resolve decodes the case's query against a snapshot of the loaded
// dataset.
func (h *Harness) resolve(ctx context.Context, c Case) (condition.Condition, error) {
	snap, err := h.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer snap.Release()
	return queryspec.Decode(ctx, queryspec.GraphResolver{G: snap}, &c.Query)
}

// names maps handles to their dataset names, sorted.
func (h *Harness) names(hs []graph.Handle) []string {
	out := make([]string, 0, len(hs))
	for _, hd := range hs {
		if n, ok := h.compiled.Name(hd); ok {
			out = append(out, n)
		} else {
			out = append(out, hd.String())
		}
	}
	sort.Strings(out)
	return out
}

// rename replaces every handle the dataset named in s by its name, so
// explain output reads the way the scenario was written.
func (h *Harness) rename(s string) string {
	pairs := make([]string, 0, 2*(len(h.compiled.Types)+len(h.compiled.Atoms)))
	for _, m := range []map[string]graph.Handle{h.compiled.Types, h.compiled.Atoms} {
		for _, name := range sortedNames(m) {
			pairs = append(pairs, m[name].String(), name)
		}
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

func sortedNames(m map[string]graph.Handle) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
