package normalize

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hgq/internal/condition"
	"github.com/roach88/hgq/internal/cursor"
	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
	"github.com/roach88/hgq/internal/testutil"
)

// byKey compares conditions by structure, which also covers the opaque
// function fields of Func and Map.
var byKey = cmp.Comparer(condition.Equal)

func pets(t *testing.T) (graph.Graph, testutil.Pets) {
	t.Helper()
	s, p := testutil.PetsStore(t)
	return testutil.Snapshot(t, s), p
}

func name(n string) condition.Part {
	return condition.Part{Path: []string{"name"}, Value: ir.String(n), Op: graph.EQ}
}

func TestNormalize(t *testing.T) {
	ctx := context.Background()
	g, p := pets(t)
	bob := ir.Record{"name": ir.String("Bob"), "age": ir.Int(40)}

	tests := []struct {
		name string
		in   condition.Condition
		want condition.Condition
	}{
		{
			name: "part on an indexed leaf type becomes a lookup",
			in:   condition.And{condition.Type{Type: p.Person}, name("Bob")},
			want: condition.Index{Indexer: p.NameIndex, Key: ir.String("Bob"), Op: graph.EQ},
		},
		{
			name: "typed record value pushes its indexed parts down",
			in:   condition.TypedValue{Type: p.Person, Value: bob, Op: graph.EQ},
			want: condition.And{
				condition.Index{Indexer: p.NameIndex, Key: ir.String("Bob"), Op: graph.EQ},
				condition.ValueAsPredicate{Value: bob, Op: graph.EQ},
			},
		},
		{
			name: "different exact types contradict",
			in:   condition.And{condition.Type{Type: p.Person}, condition.Type{Type: p.Dog}},
			want: condition.Nothing{},
		},
		{
			name: "contradictory disjuncts are dropped",
			in: condition.Or{
				condition.And{condition.Type{Type: p.Person}, condition.Type{Type: p.Dog}},
				condition.Type{Type: p.Cat},
			},
			want: condition.Type{Type: p.Cat},
		},
		{
			name: "different equal values contradict",
			in: condition.And{
				condition.Value{Value: ir.Int(1), Op: graph.EQ},
				condition.Value{Value: ir.Int(2), Op: graph.EQ},
			},
			want: condition.Nothing{},
		},
		{
			name: "type plus expands to the subtype closure",
			in:   condition.TypePlus{Base: p.Animal},
			want: condition.Or{
				condition.Type{Type: p.Animal},
				condition.Type{Type: p.Dog},
				condition.Type{Type: p.Cat},
			},
		},
		{
			name: "type plus of a leaf is the type",
			in:   condition.TypePlus{Base: p.Person},
			want: condition.Type{Type: p.Person},
		},
		{
			name: "unindexed part keeps the type leaf",
			in:   condition.And{condition.Type{Type: p.Dog}, name("Rex")},
			want: condition.And{name("Rex"), condition.Type{Type: p.Dog}},
		},
		{
			name: "single range without an index merges into a typed value",
			in: condition.And{
				condition.Type{Type: p.Person},
				condition.Value{Value: ir.Int(3), Op: graph.GT},
			},
			want: condition.TypedValue{Type: p.Person, Value: ir.Int(3), Op: graph.GT},
		},
		{
			name: "link becomes incidence leaves",
			in:   condition.Link{Targets: []graph.Handle{p.Bob, graph.AnyHandle, p.Tom}},
			want: condition.And{condition.Incident{Target: p.Bob}, condition.Incident{Target: p.Tom}},
		},
		{
			name: "ordered link on an indexed link type uses the target index",
			in: condition.And{
				condition.Type{Type: p.Owns},
				condition.OrderedLink{Targets: []graph.Handle{p.Sue, graph.AnyHandle}},
			},
			want: condition.And{
				condition.Incident{Target: p.Sue},
				condition.Index{Indexer: p.OwnerIndex, Key: graph.TargetKey(p.Sue), Op: graph.EQ},
				condition.OrderedLink{Targets: []graph.Handle{p.Sue, graph.AnyHandle}},
			},
		},
		{
			name: "empty conjunction matches nothing",
			in:   condition.And{},
			want: condition.Nothing{},
		},
		{
			name: "duplicates merge",
			in:   condition.And{condition.Arity{N: 2}, condition.Arity{N: 2}},
			want: condition.Arity{N: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(ctx, g, tt.in)
			require.NoError(t, err)
			if diff := cmp.Diff(sorted(tt.want), sorted(got), byKey); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// sorted puts the children of a top-level And in key order so expected
// values can be written in any order. Or order is significant.
func sorted(c condition.Condition) condition.Condition {
	if and, ok := c.(condition.And); ok {
		return build(append(condition.And(nil), and...))
	}
	return c
}

func TestNormalizeNil(t *testing.T) {
	g, _ := pets(t)
	_, err := Normalize(context.Background(), g, nil)
	assert.Error(t, err)
}

// corpus is a set of conditions over the pets fixture that exercises every
// rewrite.
func corpus(p testutil.Pets) []condition.Condition {
	return []condition.Condition{
		condition.And{condition.Type{Type: p.Person}, name("Bob")},
		condition.TypedValue{Type: p.Person, Value: ir.Record{"name": ir.String("Sue"), "age": ir.Int(30)}, Op: graph.EQ},
		condition.Or{condition.TypePlus{Base: p.Animal}, condition.Type{Type: p.Person}},
		condition.And{
			condition.Or{condition.Type{Type: p.Person}, condition.Type{Type: p.Dog}},
			condition.Or{name("Bob"), name("Rex")},
		},
		condition.And{condition.Type{Type: p.Person}, condition.Type{Type: p.Dog}},
		condition.Link{Targets: []graph.Handle{p.Bob, p.Tom}},
		condition.And{condition.Type{Type: p.Owns}, condition.OrderedLink{Targets: []graph.Handle{p.Sue, graph.AnyHandle}}},
		condition.And{
			condition.Type{Type: p.Person},
			condition.Part{Path: []string{"age"}, Value: ir.Int(35), Op: graph.GT},
		},
		condition.And{condition.Type{Type: p.Person}, condition.Value{Value: ir.Int(3), Op: graph.GT}},
		condition.And{condition.TypePlus{Base: p.Animal}, name("Tom")},
		condition.And{condition.AnyAtom{}, condition.Not{Cond: condition.Type{Type: p.Person}}},
		condition.And{condition.Type{Type: p.Person}, name("Bob"), condition.Part{Path: []string{"name"}, Value: ir.String("A"), Op: graph.GT}},
	}
}

func TestNormalizePreservesMatches(t *testing.T) {
	ctx := context.Background()
	g, p := pets(t)

	all, err := g.AllAtoms(ctx)
	require.NoError(t, err)
	atoms, err := cursor.Collect[graph.Handle](all)
	require.NoError(t, err)

	for _, c := range corpus(p) {
		n, err := Normalize(ctx, g, c)
		require.NoError(t, err, c.String())
		for _, h := range atoms {
			want, err := condition.Satisfies(ctx, g, c, h)
			require.NoError(t, err)
			got, err := condition.Satisfies(ctx, g, n, h)
			require.NoError(t, err)
			assert.Equal(t, want, got, "%s vs %s on %s", c, n, h)
		}
	}
}

func TestSimplifyIdempotent(t *testing.T) {
	ctx := context.Background()
	g, p := pets(t)

	for _, c := range corpus(p) {
		once, err := Normalize(ctx, g, c)
		require.NoError(t, err)
		twice, err := Simplify(ctx, g, once)
		require.NoError(t, err)
		assert.Equal(t, condition.Key(once), condition.Key(twice), c.String())
	}
}

func TestToDNF(t *testing.T) {
	a, b, c, d := condition.Arity{N: 1}, condition.Arity{N: 2}, condition.Arity{N: 3}, condition.Arity{N: 4}

	got := ToDNF(condition.And{condition.Or{a, b}, condition.Or{c, d}})
	want := condition.Or{
		condition.And{a, c},
		condition.And{a, d},
		condition.And{b, c},
		condition.And{b, d},
	}
	assert.Equal(t, condition.Key(want), condition.Key(got))

	assert.Equal(t, condition.Key(a), condition.Key(ToDNF(condition.Or{condition.Or{a}, condition.Nothing{}})))
	assert.Equal(t, condition.Nothing{}, ToDNF(condition.Or{}))
	assert.Equal(t, condition.Nothing{}, ToDNF(condition.And{a, condition.Nothing{}}))
	assert.Equal(t, condition.Key(condition.And{a, b}), condition.Key(ToDNF(condition.And{a, condition.And{b, a}})))
}
