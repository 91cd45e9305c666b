package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hgq/internal/cursor"
	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
)

func TestPetsDataset_Deterministic(t *testing.T) {
	_, a := PetsDataset()
	_, b := PetsDataset()
	assert.Equal(t, a, b)
	assert.Negative(t, graph.Compare(a.Bob, a.Sue))
	assert.Equal(t, Seq(1), a.Person)
	assert.Equal(t, Seq(13), a.Household)
}

func TestPetsStore_Loads(t *testing.T) {
	ctx := context.Background()
	s, p := PetsStore(t)
	g := Snapshot(t, s)

	idx, err := g.Index(ctx, p.NameIndex)
	require.NoError(t, err)
	c, err := idx.Find(ctx, graph.EQ, ir.String("Bob"))
	require.NoError(t, err)
	got, err := cursor.Collect[graph.Handle](c)
	require.NoError(t, err)
	assert.Equal(t, []graph.Handle{p.Bob}, got)
}

func TestTracker_CountsCursorsAndSnapshots(t *testing.T) {
	ctx := context.Background()
	s, p := PetsStore(t)
	var tr Tracker
	tx := tr.TxManager(s)

	snap, err := tx.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Held())

	c, err := snap.ByType(ctx, p.Person)
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Open())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, 0, tr.Open())
	assert.Equal(t, 1, tr.Opened())

	require.NoError(t, snap.Release())
	assert.Equal(t, 0, tr.Held())
}

func TestRecorder_First(t *testing.T) {
	var r Recorder
	f := r.Func("a", 1, nil)
	g := r.Func("b", 2, func(graph.Handle) bool { return false })
	ctx := context.Background()

	ok, err := g.Fn(ctx, nil, Seq(1))
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = f.Fn(ctx, nil, Seq(1))
	require.NoError(t, err)
	assert.True(t, ok)
	g.Fn(ctx, nil, Seq(2))

	assert.Equal(t, []string{"b", "a", "b"}, r.Calls())
	assert.Equal(t, []string{"b", "a"}, r.First())
}
