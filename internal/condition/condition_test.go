package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
	"github.com/roach88/hgq/internal/traverse"
)

func fixedHandle(n byte) graph.Handle {
	var h graph.Handle
	h[0], h[15] = 0x7f, n
	return h
}

func TestStringRendering(t *testing.T) {
	person := fixedHandle(1)
	tests := []struct {
		cond Condition
		want string
	}{
		{Nothing{}, "nothing"},
		{AnyAtom{}, "any"},
		{Value{Value: ir.String("Bob"), Op: graph.EQ}, `value(= "Bob")`},
		{Part{Path: []string{"address", "city"}, Value: ir.Int(3), Op: graph.LT}, "part(address.city < 3)"},
		{Arity{N: 2}, "arity(2)"},
		{Func{Name: "adult"}, "func(adult)"},
		{And{}, "and()"},
		{Or{Nothing{}, AnyAtom{}}, "or(nothing, any)"},
		{Map{Cond: AnyAtom{}, Mapping: TypeOf{}}, "map(type-of, any)"},
		{Not{Cond: Arity{N: 1}}, "not(arity(1))"},
		{OrderedLink{Targets: []graph.Handle{graph.AnyHandle}}, "ordered-link(*)"},
		{BFS{Start: person, Opts: traverse.Options{MaxDepth: 2, Direction: traverse.Outgoing}, Return: traverse.Links},
			"bfs(" + person.String() + " out depth 2 links)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.cond.String())
	}
}

func TestStructuralEquality(t *testing.T) {
	a := And{Type{Type: fixedHandle(1)}, Value{Value: ir.Record{"a": ir.Int(1), "b": ir.Int(2)}}}
	b := And{Type{Type: fixedHandle(1)}, Value{Value: ir.Record{"b": ir.Int(2), "a": ir.Int(1)}}}
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, And{Type{Type: fixedHandle(2)}}))
	assert.False(t, Equal(Type{Type: fixedHandle(1)}, TypePlus{Base: fixedHandle(1)}))
}

func TestPositionHolds(t *testing.T) {
	a, b, c := fixedHandle(1), fixedHandle(2), fixedHandle(3)
	targets := []graph.Handle{a, b, c}

	assert.True(t, First.Holds(targets, a))
	assert.False(t, First.Holds(targets, b))
	assert.True(t, Last.Holds(targets, c))
	assert.True(t, NotFirst.Holds(targets, b))
	assert.False(t, NotFirst.Holds(targets, a))
	assert.True(t, NotLast.Holds(targets, b))
	assert.False(t, NotLast.Holds(targets, c))
	assert.False(t, First.Holds(nil, a))

	for _, p := range []Position{First, Last, NotFirst, NotLast} {
		got, err := ParsePosition(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestOrderedLinkMatches(t *testing.T) {
	a, b := fixedHandle(1), fixedHandle(2)
	pattern := OrderedLink{Targets: []graph.Handle{a, graph.AnyHandle}}

	assert.True(t, pattern.Matches([]graph.Handle{a, b}))
	assert.True(t, pattern.Matches([]graph.Handle{a, a}))
	assert.False(t, pattern.Matches([]graph.Handle{b, a}))
	assert.False(t, pattern.Matches([]graph.Handle{a}))
	assert.False(t, pattern.Matches([]graph.Handle{a, b, b}))
}

func TestSatisfiesRejectsNonPredicates(t *testing.T) {
	_, err := Satisfies(t.Context(), nil, Projection{Base: AnyAtom{}, Path: []string{"owner"}}, fixedHandle(1))
	assert.ErrorIs(t, err, ErrNotPredicate)
}

func TestIsAndFunc(t *testing.T) {
	ok, err := Is{Handle: fixedHandle(4)}.Satisfies(t.Context(), nil, fixedHandle(4))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = Func{Name: "missing"}.Satisfies(t.Context(), nil, fixedHandle(4))
	assert.Error(t, err)
}

func TestHasFunc(t *testing.T) {
	f := Func{Name: "f"}
	assert.True(t, HasFunc(f))
	assert.True(t, HasFunc(And{Type{Type: fixedHandle(1)}, Or{Arity{N: 2}, Not{Cond: f}}}))
	assert.True(t, HasFunc(Map{Cond: Projection{Base: And{f}, Path: []string{"owner"}}, Mapping: TypeOf{}}))
	assert.False(t, HasFunc(And{Type{Type: fixedHandle(1)}, Not{Cond: Arity{N: 2}}}))
	assert.False(t, HasFunc(Nothing{}))
}
