package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/hgq/internal/condition"
	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
	"github.com/roach88/hgq/internal/plan"
	"github.com/roach88/hgq/internal/store"
	"github.com/roach88/hgq/internal/testutil"
)

func name(n string) condition.Part {
	return condition.Part{Path: []string{"name"}, Value: ir.String(n), Op: graph.EQ}
}

func TestFindBobByIndexedName(t *testing.T) {
	ctx := context.Background()
	s, p := testutil.PetsStore(t)
	e := New(s)

	q := condition.And{condition.Type{Type: p.Person}, name("Bob")}

	got, err := e.FindAll(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []graph.Handle{p.Bob}, got)

	prep, err := e.Prepare(ctx, q)
	require.NoError(t, err)
	explain := plan.Explain(prep.Plan())
	assert.Equal(t, 1, strings.Count(explain, "\n"), explain)
	assert.True(t, strings.HasPrefix(explain, "index-lookup "), explain)
}

func TestFindOrOfTypes(t *testing.T) {
	ctx := context.Background()
	s, p := testutil.PetsStore(t)
	e := New(s)

	got, err := e.FindAll(ctx, condition.Or{condition.Type{Type: p.Person}, condition.Type{Type: p.Dog}})
	require.NoError(t, err)
	assert.Equal(t, []graph.Handle{p.Bob, p.Sue, p.Rex}, got)

	n, err := e.Count(ctx, condition.Or{condition.Type{Type: p.Dog}, condition.Type{Type: p.Person}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestParallelUnionLeavesNoGoroutines(t *testing.T) {
	ctx := context.Background()
	s, p := testutil.PetsStore(t)
	e := New(s, WithParallelUnion(true))
	q := condition.Or{condition.Type{Type: p.Person}, condition.TypePlus{Base: p.Animal}}

	// The database pool keeps its own goroutines; only ones started by
	// the query are of interest.
	prep, err := e.Prepare(ctx, q)
	require.NoError(t, err)
	assert.Contains(t, plan.Explain(prep.Plan()), "async-union")
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	got, err := e.FindAll(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []graph.Handle{p.Bob, p.Sue, p.Rex, p.Tom}, got)

	// Abandon a cursor part way through.
	r, err := e.Find(ctx, q)
	require.NoError(t, err)
	require.True(t, r.HasNext())
	_, err = r.Next()
	require.NoError(t, err)
	require.NoError(t, r.Close())
}

func TestCloseCascades(t *testing.T) {
	ctx := context.Background()
	s, p := testutil.PetsStore(t)
	tr := &testutil.Tracker{}
	e := New(tr.TxManager(s))

	owned := func(h graph.Handle) condition.Condition {
		return condition.And{condition.Incident{Target: h}, condition.Type{Type: p.Owns}}
	}
	// Normalization opens cursors of its own while walking the type
	// hierarchy, so only the execution's leaves are counted.
	prep, err := e.Prepare(ctx, condition.Or{owned(p.Bob), owned(p.Tom)})
	require.NoError(t, err)
	require.Equal(t, 0, tr.Open())
	require.Equal(t, 0, tr.Held())
	before := tr.Opened()

	r, err := prep.Find(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, tr.Opened()-before)
	assert.Equal(t, 4, tr.Open())
	assert.Equal(t, 1, tr.Held())

	require.True(t, r.HasNext())
	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, p.BobRex, first)

	require.NoError(t, r.Close())
	assert.Equal(t, 0, tr.Open(), "leaf cursors left open")
	assert.Equal(t, 0, tr.Held(), "snapshot not released")

	// Close is idempotent.
	require.NoError(t, r.Close())
	assert.Equal(t, 0, tr.Held())
}

func TestFindAllReleasesEverything(t *testing.T) {
	ctx := context.Background()
	s, p := testutil.PetsStore(t)
	tr := &testutil.Tracker{}
	e := New(tr.TxManager(s))

	got, err := e.FindAll(ctx, condition.And{
		condition.Type{Type: p.Owns},
		condition.OrderedLink{Targets: []graph.Handle{p.Bob, graph.AnyHandle}},
	})
	require.NoError(t, err)
	assert.Equal(t, []graph.Handle{p.BobRex, p.BobTom}, got)
	assert.Equal(t, 0, tr.Open())
	assert.Equal(t, 0, tr.Held())
}

func TestFindOne(t *testing.T) {
	ctx := context.Background()
	s, p := testutil.PetsStore(t)
	e := New(s)

	h, err := e.FindOne(ctx, condition.TypePlus{Base: p.Animal})
	require.NoError(t, err)
	assert.Equal(t, p.Rex, h)

	_, err = e.FindOne(ctx, condition.And{condition.Type{Type: p.Person}, condition.Type{Type: p.Dog}})
	assert.True(t, errors.Is(err, graph.ErrNotFound), "got %v", err)
}

func TestCompileErrorsReleaseSnapshot(t *testing.T) {
	ctx := context.Background()
	s, p := testutil.PetsStore(t)
	tr := &testutil.Tracker{}
	e := New(tr.TxManager(s))

	missing := graph.Indexer{Kind: graph.ByPart, Type: p.Dog, Path: []string{"name"}}
	_, err := e.Find(ctx, condition.Index{Indexer: missing, Key: ir.String("Rex"), Op: graph.EQ})
	assert.True(t, IsUnknownIndex(err), "got %v", err)
	assert.Equal(t, 0, tr.Held())

	_, err = e.FindAll(ctx, condition.Arity{N: 2})
	assert.True(t, IsUntranslatable(err), "got %v", err)
	assert.Equal(t, 0, tr.Held())

	_, err = e.FindAll(ctx, condition.And{condition.Arity{N: 2}, condition.Not{Cond: condition.Is{Handle: p.Bob}}})
	assert.True(t, IsNoScannable(err), "got %v", err)

	_, err = e.FindAll(ctx, nil)
	assert.Error(t, err)
	assert.Equal(t, 0, tr.Held())
}

func TestPreparedRunsUnderLaterSnapshots(t *testing.T) {
	ctx := context.Background()
	s, p := testutil.PetsStore(t)
	e := New(s)

	prep, err := e.Prepare(ctx, condition.Type{Type: p.Person})
	require.NoError(t, err)

	var ann graph.Handle
	require.NoError(t, s.Update(ctx, func(w *store.Writer) error {
		var err error
		ann, err = w.AddAtom(ctx, graph.Atom{
			Type:  p.Person,
			Value: ir.Record{"name": ir.String("Ann"), "age": ir.Int(7)},
		})
		return err
	}))

	r, err := prep.Find(ctx)
	require.NoError(t, err)
	var got []graph.Handle
	for r.HasNext() {
		h, err := r.Next()
		require.NoError(t, err)
		got = append(got, h)
	}
	require.NoError(t, r.Close())
	assert.Equal(t, []graph.Handle{p.Bob, p.Sue, ann}, got)
}

func TestPlanCache(t *testing.T) {
	ctx := context.Background()
	s, p := testutil.PetsStore(t)
	e := New(s, WithPlanCache(4))

	q := condition.And{condition.Type{Type: p.Person}, name("Sue")}
	a, err := e.Prepare(ctx, q)
	require.NoError(t, err)
	b, err := e.Prepare(ctx, condition.And{condition.Type{Type: p.Person}, name("Sue")})
	require.NoError(t, err)
	assert.Same(t, a, b)

	e.ResetPlans()
	c, err := e.Prepare(ctx, q)
	require.NoError(t, err)
	assert.NotSame(t, a, c)

	got, err := e.FindAll(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []graph.Handle{p.Sue}, got)

	uncached := New(s)
	x, err := uncached.Prepare(ctx, q)
	require.NoError(t, err)
	y, err := uncached.Prepare(ctx, q)
	require.NoError(t, err)
	assert.NotSame(t, x, y)
}

func TestPlanCacheFollowsWrites(t *testing.T) {
	ctx := context.Background()
	s, p := testutil.PetsStore(t)
	e := New(s, WithPlanCache(8))
	animals := condition.TypePlus{Base: p.Animal}

	got, err := e.FindAll(ctx, animals)
	require.NoError(t, err)
	assert.Equal(t, []graph.Handle{p.Rex, p.Tom}, got)

	var tweety graph.Handle
	err = s.Update(ctx, func(w *store.Writer) error {
		bird, err := w.DefineType(ctx, graph.Type{
			Name:  "Bird",
			Kind:  ir.KindRecord,
			Parts: map[string]graph.Handle{"name": graph.TypeString},
		})
		if err != nil {
			return err
		}
		if err := w.AddSubtype(ctx, p.Animal, bird); err != nil {
			return err
		}
		tweety, err = w.AddAtom(ctx, graph.Atom{Type: bird, Value: ir.Record{"name": ir.String("Tweety")}})
		return err
	})
	require.NoError(t, err)

	got, err = e.FindAll(ctx, animals)
	require.NoError(t, err)
	assert.Equal(t, []graph.Handle{p.Rex, p.Tom, tweety}, got)

	// Without writes in between the plan is reused.
	a, err := e.Prepare(ctx, animals)
	require.NoError(t, err)
	b, err := e.Prepare(ctx, animals)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestPlanCacheSkipsFuncs(t *testing.T) {
	ctx := context.Background()
	s, p := testutil.PetsStore(t)
	e := New(s, WithPlanCache(8))

	is := func(want graph.Handle) condition.Condition {
		return condition.And{
			condition.Type{Type: p.Person},
			condition.Func{Name: "pick", Fn: func(_ context.Context, _ graph.Graph, h graph.Handle) (bool, error) {
				return h == want, nil
			}},
		}
	}

	got, err := e.FindAll(ctx, is(p.Bob))
	require.NoError(t, err)
	assert.Equal(t, []graph.Handle{p.Bob}, got)

	got, err = e.FindAll(ctx, is(p.Sue))
	require.NoError(t, err)
	assert.Equal(t, []graph.Handle{p.Sue}, got)
}

func TestExplain(t *testing.T) {
	ctx := context.Background()
	s, p := testutil.PetsStore(t)
	e := New(s)

	q := condition.And{condition.Type{Type: p.Person}, name("Bob")}
	out, err := e.Explain(ctx, q)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 4, out)
	assert.Equal(t, "condition:  "+q.String(), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "normalized: index("), lines[1])
	assert.Equal(t, "plan:", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "  index-lookup by-part/"), lines[3])
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()
	s, p := testutil.PetsStore(t)
	e := New(s)

	q := condition.And{condition.Type{Type: p.Person}, condition.Arity{N: 0}}

	flags, err := e.Analyze(ctx, q, plan.Thresholds{Intersection: 100, Scan: 100})
	require.NoError(t, err)
	assert.Empty(t, flags)

	flags, err = e.Analyze(ctx, q, plan.Thresholds{Intersection: 100, Scan: 1})
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, int64(2), flags[0].Size)
}
