package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
	"github.com/roach88/hgq/internal/store"
)

// OpenStore opens an empty store in a temporary directory. It is closed
// when the test ends.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "hgq.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// Pets is the handles of the pets fixture.
//
// Types: Person (record; name, age; part index on name), Animal (record;
// name), its subtypes Dog and Cat, and the link type Owns (target index at
// position 0). Atoms, in handle order: Bob (40), Sue (30), Rex the dog,
// Tom the cat, and the links BobRex, SueTom, BobTom. Household is a
// string atom whose subgraph holds Rex and Tom.
type Pets struct {
	Person, Animal, Dog, Cat, Owns graph.Handle

	Bob, Sue, Rex, Tom     graph.Handle
	BobRex, SueTom, BobTom graph.Handle
	Household              graph.Handle

	NameIndex  graph.Indexer
	OwnerIndex graph.Indexer
}

// PetsDataset returns the pets fixture as a dataset. Handles are Seq(1)
// onwards in field order, so they are the same on every call.
func PetsDataset() (store.Dataset, Pets) {
	var p Pets
	for i, h := range []*graph.Handle{
		&p.Person, &p.Animal, &p.Dog, &p.Cat, &p.Owns,
		&p.Bob, &p.Sue, &p.Rex, &p.Tom,
		&p.BobRex, &p.SueTom, &p.BobTom,
		&p.Household,
	} {
		*h = Seq(uint64(i) + 1)
	}
	p.NameIndex = graph.Indexer{Kind: graph.ByPart, Type: p.Person, Path: []string{"name"}}
	p.OwnerIndex = graph.Indexer{Kind: graph.ByTarget, Type: p.Owns, Position: 0}

	named := map[string]graph.Handle{"name": graph.TypeString}
	person := func(name string, age int64) ir.Value {
		return ir.Record{"name": ir.String(name), "age": ir.Int(age)}
	}
	pet := func(name string) ir.Value { return ir.Record{"name": ir.String(name)} }

	ds := store.Dataset{
		Types: []graph.Type{
			{Handle: p.Person, Name: "Person", Kind: ir.KindRecord,
				Parts: map[string]graph.Handle{"name": graph.TypeString, "age": graph.TypeInt}},
			{Handle: p.Animal, Name: "Animal", Kind: ir.KindRecord, Parts: named},
			{Handle: p.Dog, Name: "Dog", Kind: ir.KindRecord, Parts: named},
			{Handle: p.Cat, Name: "Cat", Kind: ir.KindRecord, Parts: named},
			{Handle: p.Owns, Name: "Owns", Kind: ir.KindNull, Link: true},
		},
		Subsumptions: []store.Subsumption{
			{General: p.Animal, Specific: p.Dog},
			{General: p.Animal, Specific: p.Cat},
		},
		Indexes: []graph.Indexer{p.NameIndex, p.OwnerIndex},
		Atoms: []graph.Atom{
			{Handle: p.Bob, Type: p.Person, Value: person("Bob", 40)},
			{Handle: p.Sue, Type: p.Person, Value: person("Sue", 30)},
			{Handle: p.Rex, Type: p.Dog, Value: pet("Rex")},
			{Handle: p.Tom, Type: p.Cat, Value: pet("Tom")},
			{Handle: p.BobRex, Type: p.Owns, Value: ir.Null{}, Targets: []graph.Handle{p.Bob, p.Rex}},
			{Handle: p.SueTom, Type: p.Owns, Value: ir.Null{}, Targets: []graph.Handle{p.Sue, p.Tom}},
			{Handle: p.BobTom, Type: p.Owns, Value: ir.Null{}, Targets: []graph.Handle{p.Bob, p.Tom}},
			{Handle: p.Household, Type: graph.TypeString, Value: ir.String("household")},
		},
		Members: []store.Membership{
			{Subgraph: p.Household, Atom: p.Rex},
			{Subgraph: p.Household, Atom: p.Tom},
		},
	}
	return ds, p
}

// PetsStore opens a store loaded with the pets fixture.
func PetsStore(t testing.TB) (*store.Store, Pets) {
	t.Helper()
	s := OpenStore(t)
	ds, p := PetsDataset()
	require.NoError(t, s.Load(context.Background(), ds))
	return s, p
}

// Snapshot opens a snapshot of s released when the test ends.
func Snapshot(t testing.TB, s graph.TxManager) graph.Snapshot {
	t.Helper()
	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { snap.Release() })
	return snap
}
