package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hgq/internal/condition"
	"github.com/roach88/hgq/internal/cursor"
	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
	"github.com/roach88/hgq/internal/testutil"
)

func pets(t *testing.T) (graph.Graph, testutil.Pets) {
	t.Helper()
	s, p := testutil.PetsStore(t)
	return testutil.Snapshot(t, s), p
}

func compile(t *testing.T, g graph.Graph, c condition.Condition, opts Options) Query {
	t.Helper()
	q, err := NewCompiler(nil, g, opts).Compile(context.Background(), c)
	require.NoError(t, err)
	return q
}

func run(t *testing.T, g graph.Graph, q Query) []graph.Handle {
	t.Helper()
	c, err := q.Execute(context.Background(), g)
	require.NoError(t, err)
	hs, err := cursor.Collect(c)
	require.NoError(t, err)
	return hs
}

func assertCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	require.Error(t, err)
	var ce *CompileError
	require.True(t, errors.As(err, &ce), "want *CompileError, got %T: %v", err, err)
	assert.Equal(t, code, ce.Code, err.Error())
}

func golden(t *testing.T, name string, q Query) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(Explain(q)))
}

func name(n string) condition.Part {
	return condition.Part{Path: []string{"name"}, Value: ir.String(n), Op: graph.EQ}
}

func TestIndexLookup(t *testing.T) {
	g, p := pets(t)
	q := compile(t, g, condition.Index{Indexer: p.NameIndex, Key: ir.String("Bob"), Op: graph.EQ}, Options{})

	assert.Equal(t, []graph.Handle{p.Bob}, run(t, g, q))
	golden(t, "index_lookup", q)
}

func TestPredicatesRunCheapestFirst(t *testing.T) {
	g, p := pets(t)
	var rec testutil.Recorder
	q := compile(t, g, condition.And{
		condition.Type{Type: p.Person},
		rec.Func("c3", 3, nil),
		rec.Func("c1", 1, nil),
		rec.Func("c2", 2, nil),
	}, Options{})

	assert.Equal(t, []graph.Handle{p.Bob, p.Sue}, run(t, g, q))
	assert.Equal(t, []string{"c1", "c2", "c3"}, rec.First())
	golden(t, "predicate_order", q)
}

func TestPredicateRejectsEarly(t *testing.T) {
	g, p := pets(t)
	var rec testutil.Recorder
	q := compile(t, g, condition.And{
		condition.Type{Type: p.Person},
		rec.Func("expensive", 10, nil),
		rec.Func("cheap", 1, func(graph.Handle) bool { return false }),
	}, Options{})

	assert.Empty(t, run(t, g, q))
	assert.NotContains(t, rec.Calls(), "expensive")
}

func TestOrUnion(t *testing.T) {
	g, p := pets(t)
	q := compile(t, g, condition.Or{condition.Type{Type: p.Person}, condition.Type{Type: p.Dog}}, Options{})

	assert.Equal(t, []graph.Handle{p.Bob, p.Sue, p.Rex}, run(t, g, q))
	golden(t, "or_union", q)

	async := compile(t, g, condition.Or{condition.Type{Type: p.Person}, condition.Type{Type: p.Dog}}, Options{ParallelOr: true})
	assert.Equal(t, "async-union", async.Describe().Op)
	assert.Equal(t, []graph.Handle{p.Bob, p.Sue, p.Rex}, run(t, g, async))
}

func TestOrSortsUnorderedBranches(t *testing.T) {
	g, p := pets(t)
	// Owners of pets, mapped from the owns links, are unordered.
	owners := condition.Map{Cond: condition.Type{Type: p.Owns}, Mapping: condition.TargetAt{Position: 0}}
	q := compile(t, g, condition.Or{owners, condition.Type{Type: p.Dog}}, Options{})

	assert.Equal(t, "sort", unwrap(q).Describe().Inputs[0].Describe().Op)
	assert.Equal(t, []graph.Handle{p.Bob, p.Sue, p.Rex}, run(t, g, q))
}

func TestTrivialCombinations(t *testing.T) {
	g, p := pets(t)
	ctx := context.Background()
	c := NewCompiler(nil, g, Options{})

	tests := []struct {
		name string
		cond condition.Condition
		op   string
	}{
		{"empty and", condition.And{}, "nothing"},
		{"empty or", condition.Or{}, "nothing"},
		{"and of one", condition.And{condition.Type{Type: p.Person}}, "type-scan"},
		{"or of one", condition.Or{condition.Nothing{}, condition.Type{Type: p.Person}}, "type-scan"},
		{"and with nothing", condition.And{condition.Type{Type: p.Person}, condition.Nothing{}}, "nothing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := c.Compile(ctx, tt.cond)
			require.NoError(t, err)
			assert.Equal(t, tt.op, q.Describe().Op)
		})
	}

	m, err := c.Metadata(ctx, condition.And{condition.Type{Type: p.Person}, condition.Nothing{}})
	require.NoError(t, err)
	assert.Equal(t, EmptyMeta(), m)
}

func TestIntersections(t *testing.T) {
	g, p := pets(t)
	cond := condition.And{condition.Incident{Target: p.Bob}, condition.Incident{Target: p.Tom}}

	q := compile(t, g, cond, Options{})
	assert.Equal(t, []graph.Handle{p.BobTom}, run(t, g, q))
	assert.Equal(t, []string{"zigzag"}, unwrap(q).Describe().Args)

	q = compile(t, g, cond, Options{MaterializeIntersections: true})
	assert.Equal(t, []graph.Handle{p.BobTom}, run(t, g, q))
	assert.Equal(t, []string{"in-memory"}, unwrap(q).Describe().Args)

	// Link compiles to the same intersection.
	q = compile(t, g, condition.Link{Targets: []graph.Handle{p.Tom, graph.AnyHandle, p.Bob}}, Options{})
	assert.Equal(t, []graph.Handle{p.BobTom}, run(t, g, q))
}

func TestOrderedLink(t *testing.T) {
	g, p := pets(t)

	q := compile(t, g, condition.OrderedLink{Targets: []graph.Handle{graph.AnyHandle, p.Tom}}, Options{})
	assert.Equal(t, []graph.Handle{p.SueTom, p.BobTom}, run(t, g, q))

	q = compile(t, g, condition.OrderedLink{Targets: []graph.Handle{p.Tom, graph.AnyHandle}}, Options{})
	assert.Empty(t, run(t, g, q))

	q = compile(t, g, condition.OrderedLink{}, Options{})
	assert.True(t, IsNop(q))
}

func TestWBucketFiltersLast(t *testing.T) {
	g, p := pets(t)
	owned := condition.Map{Cond: condition.Type{Type: p.Owns}, Mapping: condition.TargetAt{Position: 1}}
	q := compile(t, g, condition.And{owned, condition.Type{Type: p.Dog}}, Options{})

	assert.Equal(t, []graph.Handle{p.Rex}, run(t, g, q))
	golden(t, "delayed_set", q)
}

// raOnly reports random access without order for the wrapped translator.
type raOnly struct{ Translator }

func (raOnly) Metadata(context.Context, *Compiler, condition.Condition) (Metadata, error) {
	return RandomAccessMeta().cost(2), nil
}

func TestRandomAccessConjuncts(t *testing.T) {
	g, p := pets(t)
	ctx := context.Background()
	reg := DefaultRegistry()
	reg.Register(condition.SubgraphMember{}, raOnly{subgraphTranslator{}})
	member := condition.SubgraphMember{Subgraph: p.Household}

	// With an ordered input the membership is a seek predicate.
	q, err := NewCompiler(reg, g, Options{}).Compile(ctx, condition.And{member, condition.Type{Type: p.Dog}})
	require.NoError(t, err)
	assert.Equal(t, []graph.Handle{p.Rex}, run(t, g, q))
	assert.Equal(t, []string{"seek " + member.String()}, unwrap(q).Describe().Args)

	// Without one it drives the scan.
	var rec testutil.Recorder
	q, err = NewCompiler(reg, g, Options{}).Compile(ctx, condition.And{member, rec.Func("f", 1, nil)})
	require.NoError(t, err)
	assert.Equal(t, []graph.Handle{p.Rex, p.Tom}, run(t, g, q))
	assert.Equal(t, "subgraph-members", unwrap(q).Describe().Inputs[0].Describe().Op)
}

func TestPredicateDrivesScan(t *testing.T) {
	g, p := pets(t)
	q := compile(t, g, condition.And{
		condition.Value{Value: ir.String("household"), Op: graph.EQ},
		condition.Arity{N: 0},
	}, Options{})
	assert.Equal(t, []graph.Handle{p.Household}, run(t, g, q))
}

func TestCompileErrors(t *testing.T) {
	g, p := pets(t)
	ctx := context.Background()
	var rec testutil.Recorder

	tests := []struct {
		name string
		cond condition.Condition
		code ErrorCode
	}{
		{"ordering on a target index", condition.Index{Indexer: p.OwnerIndex, Key: graph.TargetKey(p.Bob), Op: graph.LT}, ErrCodeWrongOperator},
		{"unknown index", condition.Index{Indexer: graph.Indexer{Kind: graph.DirectValue, Type: p.Dog}, Key: ir.Int(1), Op: graph.EQ}, ErrCodeUnknownIndex},
		{"null index key", condition.Index{Indexer: p.NameIndex, Key: ir.Null{}, Op: graph.EQ}, ErrCodeNullValueSearch},
		{"null value", condition.Value{Value: ir.Null{}, Op: graph.EQ}, ErrCodeNullValueSearch},
		{"dangling type", condition.TypedValue{Type: testutil.Seq(999), Value: ir.Int(1), Op: graph.EQ}, ErrCodeDanglingType},
		{"predicates only", condition.And{name("Bob"), rec.Func("f", 1, nil)}, ErrCodeNoScannableCondition},
		{"raw predicates only", condition.And{condition.Is{Handle: p.Bob}, condition.Arity{N: 0}}, ErrCodeNoScannableCondition},
		{"raw predicate alone", condition.Arity{N: 2}, ErrCodeUntranslatable},
		{"projection without base", condition.Projection{Path: []string{"owner"}}, ErrCodeInvalidCondition},
		{"map without mapping", condition.Map{Cond: condition.AnyAtom{}}, ErrCodeInvalidCondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCompiler(nil, g, Options{}).Compile(ctx, tt.cond)
			assertCode(t, err, tt.code)
		})
	}

	_, err := NewCompiler(NewRegistry(), g, Options{}).Compile(ctx, condition.Type{Type: p.Person})
	assertCode(t, err, ErrCodeUntranslatable)
}

func TestMetadata(t *testing.T) {
	g, p := pets(t)
	ctx := context.Background()
	c := NewCompiler(nil, g, Options{})

	m, err := c.Metadata(ctx, condition.Type{Type: p.Person})
	require.NoError(t, err)
	assert.True(t, m.Ordered && m.RandomAccess)
	assert.Equal(t, int64(2), m.SizeExpected)

	m, err = c.Metadata(ctx, condition.And{condition.Type{Type: p.Person}, condition.Index{Indexer: p.NameIndex, Key: ir.String("Bob"), Op: graph.EQ}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.SizeUB)
	assert.Equal(t, int64(1), m.SizeExpected)
	assert.Equal(t, float64(2), m.PredicateCost)

	m, err = c.Metadata(ctx, condition.Or{condition.Type{Type: p.Person}, condition.Type{Type: p.Dog}})
	require.NoError(t, err)
	assert.True(t, m.Ordered)
	assert.False(t, m.RandomAccess)
	assert.Equal(t, int64(3), m.SizeExpected)
	assert.Equal(t, int64(3), m.SizeUB)
	assert.Equal(t, int64(2), m.SizeLB)

	m, err = c.Metadata(ctx, condition.And{condition.Type{Type: p.Person}, condition.Arity{N: 1}})
	require.NoError(t, err)
	assert.False(t, m.Ordered)
	assert.False(t, m.RandomAccess)
}

func TestAnalyze(t *testing.T) {
	g, p := pets(t)
	var rec testutil.Recorder

	q := compile(t, g, condition.And{
		condition.Type{Type: p.Person},
		condition.Index{Indexer: p.NameIndex, Key: ir.String("Bob"), Op: graph.EQ},
	}, Options{})
	assert.Empty(t, Analyze(q, DefaultThresholds))
	flags := Analyze(q, Thresholds{Intersection: 0, Scan: 0})
	require.Len(t, flags, 1)
	assert.Equal(t, "intersection", flags[0].Kind)
	assert.Equal(t, int64(1), flags[0].Size)

	q = compile(t, g, condition.And{condition.Type{Type: p.Person}, rec.Func("f", 1, nil)}, Options{})
	flags = Analyze(q, Thresholds{Intersection: 0, Scan: 1})
	require.Len(t, flags, 1)
	assert.Equal(t, "scan", flags[0].Kind)
	assert.Equal(t, int64(2), flags[0].Size)
	assert.Contains(t, flags[0].String(), "func(f)")

	// Unknown sizes never raise a flag.
	q = compile(t, g, condition.And{condition.Incident{Target: p.Bob}, condition.Incident{Target: p.Tom}}, Options{})
	assert.Empty(t, Analyze(q, Thresholds{}))
}

func TestPlansAreReusable(t *testing.T) {
	g, p := pets(t)
	q := compile(t, g, condition.Or{condition.Type{Type: p.Person}, condition.Subsumed{General: p.Animal}}, Options{})
	want := []graph.Handle{p.Animal, p.Dog, p.Cat, p.Bob, p.Sue}
	assert.Equal(t, want, run(t, g, q))
	assert.Equal(t, want, run(t, g, q))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		meta Metadata
		want bucket
	}{
		{"ordered random access", Metadata{Ordered: true, RandomAccess: true, PredicateCost: 1}, bucketORA},
		{"ordered", Metadata{Ordered: true, PredicateCost: -1}, bucketO},
		{"random access", Metadata{RandomAccess: true, PredicateCost: 2}, bucketRA},
		{"predicate", Metadata{PredicateCost: 0.5}, bucketP},
		{"materialize", Metadata{PredicateCost: -1}, bucketW},
		{"predicate only wins", Metadata{Ordered: true, RandomAccess: true, PredicateOnly: true, PredicateCost: 1}, bucketP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.meta))
		})
	}
}
