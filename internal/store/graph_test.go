package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hgq/internal/cursor"
	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
)

// h returns a readable handle that sorts after the predefined ones.
func h(n byte) graph.Handle {
	var x graph.Handle
	x[0], x[15] = 0x7f, n
	return x
}

var (
	animal = h(1)
	dog    = h(2)
	score  = h(3)
	owns   = h(4)
	rex    = h(10)
	fido   = h(11)
	s10    = h(20)
	s20    = h(21)
	s30    = h(22)
	link1  = h(30)
	group  = h(40)
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDataset() Dataset {
	return Dataset{
		Types: []graph.Type{
			{Handle: animal, Name: "animal", Kind: ir.KindRecord, Parts: map[string]graph.Handle{"name": graph.TypeString}},
			{Handle: dog, Name: "dog", Kind: ir.KindRecord, Parts: map[string]graph.Handle{"name": graph.TypeString}},
			{Handle: score, Name: "score", Kind: ir.KindInt, Ordered: true},
			{Handle: owns, Name: "owns", Kind: ir.KindNull, Link: true},
		},
		Subsumptions: []Subsumption{{General: animal, Specific: dog}},
		Indexes: []graph.Indexer{
			{Kind: graph.ByPart, Type: animal, Path: []string{"name"}},
			{Kind: graph.DirectValue, Type: score},
			{Kind: graph.ByTarget, Type: owns, Position: 1},
		},
		Atoms: []graph.Atom{
			{Handle: rex, Type: dog, Value: ir.Record{"name": ir.String("Rex")}},
			{Handle: fido, Type: dog, Value: ir.Record{"name": ir.String("Fido")}},
			{Handle: s10, Type: score, Value: ir.Int(10)},
			{Handle: s20, Type: score, Value: ir.Int(20)},
			{Handle: s30, Type: score, Value: ir.Int(30)},
			{Handle: link1, Type: owns, Value: ir.Null{}, Targets: []graph.Handle{rex, s10}},
			{Handle: group, Type: score, Value: ir.Int(20)},
		},
		Members: []Membership{{Subgraph: group, Atom: rex}, {Subgraph: group, Atom: s10}},
	}
}

func loaded(t *testing.T) (*Store, graph.Snapshot) {
	t.Helper()
	s := openTest(t)
	require.NoError(t, s.Load(context.Background(), testDataset()))
	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { snap.Release() })
	return s, snap
}

func collect(t *testing.T, c cursor.RandomAccess[graph.Handle], err error) []graph.Handle {
	t.Helper()
	require.NoError(t, err)
	hs, err := cursor.Collect[graph.Handle](c)
	require.NoError(t, err)
	return hs
}

func TestAtomRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, g := loaded(t)

	got, err := g.Atom(ctx, link1)
	require.NoError(t, err)
	want := graph.Atom{Handle: link1, Type: owns, Value: ir.Null{}, Targets: []graph.Handle{rex, s10}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Atom() mismatch (-want +got):\n%s", diff)
	}

	got, err = g.Atom(ctx, rex)
	require.NoError(t, err)
	assert.Equal(t, ir.Record{"name": ir.String("Rex")}, got.Value)
	assert.Empty(t, got.Targets)

	_, err = g.Atom(ctx, h(99))
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestTypes(t *testing.T) {
	ctx := context.Background()
	_, g := loaded(t)

	typ, err := g.TypeByName(ctx, "dog")
	require.NoError(t, err)
	assert.Equal(t, dog, typ.Handle)
	assert.Equal(t, map[string]graph.Handle{"name": graph.TypeString}, typ.Parts)

	typ, err = g.Type(ctx, graph.TypeInt)
	require.NoError(t, err)
	assert.Equal(t, "int", typ.Name)
	assert.True(t, typ.Ordered)

	// Types are atoms of the meta-type.
	a, err := g.Atom(ctx, score)
	require.NoError(t, err)
	assert.Equal(t, graph.TypeType, a.Type)
	assert.Equal(t, ir.String("score"), a.Value)

	_, err = g.TypeByName(ctx, "cat")
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestByTypeAndCount(t *testing.T) {
	ctx := context.Background()
	_, g := loaded(t)

	hs, err := g.ByType(ctx, score)
	assert.Equal(t, []graph.Handle{s10, s20, s30, group}, collect(t, hs, err))

	n, err := g.CountByType(ctx, dog)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// ByType is exact: animal has no direct atoms.
	n, err = g.CountByType(ctx, animal)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestValues(t *testing.T) {
	ctx := context.Background()
	_, g := loaded(t)

	keys, err := g.Values(ctx, graph.GT, ir.Int(10))
	require.NoError(t, err)
	got, err := cursor.Collect(keys)
	require.NoError(t, err)
	assert.Equal(t, []graph.ValueKey{graph.KeyOf(ir.Int(20)), graph.KeyOf(ir.Int(30))}, got)

	hs, err := g.AtomsByValue(ctx, graph.KeyOf(ir.Int(20)))
	assert.Equal(t, []graph.Handle{s20, group}, collect(t, hs, err))
}

func TestIndexFind(t *testing.T) {
	ctx := context.Background()
	_, g := loaded(t)

	byName, err := g.Index(ctx, graph.Indexer{Kind: graph.ByPart, Type: animal, Path: []string{"name"}})
	require.NoError(t, err)

	// Dogs are indexed under the animal index they inherit.
	hs, err := byName.Find(ctx, graph.EQ, ir.String("Rex"))
	assert.Equal(t, []graph.Handle{rex}, collect(t, hs, err))

	hs, err = byName.Find(ctx, graph.GTE, ir.String("A"))
	assert.Equal(t, []graph.Handle{rex, fido}, collect(t, hs, err))

	n, err := byName.Count(ctx, ir.String("Fido"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	keys, err := byName.ScanKeys(ctx)
	require.NoError(t, err)
	got, err := cursor.Collect(keys)
	require.NoError(t, err)
	assert.Equal(t, []ir.Value{ir.String("Fido"), ir.String("Rex")}, got)

	byTarget, err := g.Index(ctx, graph.Indexer{Kind: graph.ByTarget, Type: owns, Position: 1})
	require.NoError(t, err)
	hs, err = byTarget.Find(ctx, graph.EQ, graph.TargetKey(s10))
	assert.Equal(t, []graph.Handle{link1}, collect(t, hs, err))
	_, err = byTarget.Find(ctx, graph.LT, graph.TargetKey(s10))
	assert.Error(t, err)

	_, err = g.Index(ctx, graph.Indexer{Kind: graph.DirectValue, Type: dog})
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestIndexersFor(t *testing.T) {
	ctx := context.Background()
	_, g := loaded(t)

	ixs, err := g.IndexersFor(ctx, animal)
	require.NoError(t, err)
	assert.Equal(t, []graph.Indexer{{Kind: graph.ByPart, Type: animal, Path: []string{"name"}}}, ixs)

	ixs, err = g.IndexersFor(ctx, dog)
	require.NoError(t, err)
	assert.Empty(t, ixs)
}

func TestIncidenceAndSubgraphs(t *testing.T) {
	ctx := context.Background()
	_, g := loaded(t)

	hs, err := g.Incidence(ctx, s10)
	assert.Equal(t, []graph.Handle{link1}, collect(t, hs, err))

	hs, err = g.SubgraphMembers(ctx, group)
	assert.Equal(t, []graph.Handle{rex, s10}, collect(t, hs, err))

	hs, err = g.SubgraphsOf(ctx, rex)
	assert.Equal(t, []graph.Handle{group}, collect(t, hs, err))
}

func TestAddSubtypeBackfillsIndexes(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	cat := h(5)
	tom := h(12)

	ds := testDataset()
	ds.Types = append(ds.Types, graph.Type{Handle: cat, Name: "cat", Kind: ir.KindRecord, Parts: map[string]graph.Handle{"name": graph.TypeString}})
	ds.Atoms = append(ds.Atoms, graph.Atom{Handle: tom, Type: cat, Value: ir.Record{"name": ir.String("Tom")}})
	require.NoError(t, s.Load(ctx, ds))

	require.NoError(t, s.Update(ctx, func(w *Writer) error {
		return w.AddSubtype(ctx, animal, cat)
	}))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	defer snap.Release()
	byName, err := snap.Index(ctx, graph.Indexer{Kind: graph.ByPart, Type: animal, Path: []string{"name"}})
	require.NoError(t, err)
	hs, err := byName.Find(ctx, graph.EQ, ir.String("Tom"))
	assert.Equal(t, []graph.Handle{tom}, collect(t, hs, err))
}

func TestDefineIndexBackfills(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	ds := testDataset()
	ds.Indexes = nil
	require.NoError(t, s.Load(ctx, ds))

	ix := graph.Indexer{Kind: graph.DirectValue, Type: score}
	require.NoError(t, s.Update(ctx, func(w *Writer) error {
		if err := w.DefineIndex(ctx, ix); err != nil {
			return err
		}
		// Defining it again is a no-op.
		return w.DefineIndex(ctx, ix)
	}))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	defer snap.Release()
	idx, err := snap.Index(ctx, ix)
	require.NoError(t, err)
	hs, err := idx.Find(ctx, graph.LT, ir.Int(30))
	assert.Equal(t, []graph.Handle{s10, s20, group}, collect(t, hs, err))
}

func TestSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s, before := loaded(t)

	var added graph.Handle
	require.NoError(t, s.Update(ctx, func(w *Writer) error {
		var err error
		added, err = w.AddAtom(ctx, graph.Atom{Type: score, Value: ir.Int(40)})
		return err
	}))

	n, err := before.CountByType(ctx, score)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	after, err := s.Snapshot(ctx)
	require.NoError(t, err)
	defer after.Release()
	n, err = after.CountByType(ctx, score)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	a, err := after.Atom(ctx, added)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(40), a.Value)
}

func TestSnapshotGeneration(t *testing.T) {
	ctx := context.Background()
	s, before := loaded(t)
	gen := func(g graph.Snapshot) uint64 {
		v, ok := g.(graph.Versioned)
		require.True(t, ok)
		return v.Generation()
	}
	start := gen(before)

	require.NoError(t, s.Update(ctx, func(w *Writer) error {
		_, err := w.AddAtom(ctx, graph.Atom{Type: score, Value: ir.Int(41)})
		return err
	}))
	failed := errors.New("rolled back")
	require.ErrorIs(t, s.Update(ctx, func(*Writer) error { return failed }), failed)

	after, err := s.Snapshot(ctx)
	require.NoError(t, err)
	defer after.Release()
	assert.Equal(t, start, gen(before))
	assert.Equal(t, start+1, gen(after))
}

func TestAddAtomRejects(t *testing.T) {
	ctx := context.Background()
	s, _ := loaded(t)

	tests := []struct {
		name string
		atom graph.Atom
	}{
		{"unknown type", graph.Atom{Type: h(77), Value: ir.Int(1)}},
		{"wrong kind", graph.Atom{Type: score, Value: ir.String("x")}},
		{"targets on node type", graph.Atom{Type: score, Value: ir.Int(1), Targets: []graph.Handle{rex}}},
		{"wildcard target", graph.Atom{Type: owns, Targets: []graph.Handle{graph.AnyHandle}}},
		{"missing target", graph.Atom{Type: owns, Targets: []graph.Handle{h(88)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Update(ctx, func(w *Writer) error {
				_, err := w.AddAtom(ctx, tt.atom)
				return err
			})
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresHandles(t *testing.T) {
	s := openTest(t)
	err := s.Load(context.Background(), Dataset{Types: []graph.Type{{Name: "x", Kind: ir.KindInt}}})
	assert.Error(t, err)
}
