package plan

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/hgq/internal/condition"
	"github.com/roach88/hgq/internal/cursor"
	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
	"github.com/roach88/hgq/internal/traverse"
)

// Query is a compiled plan node. Queries are immutable and may be executed
// concurrently; every Execute builds a fresh cursor tree.
type Query interface {
	Execute(ctx context.Context, g graph.Graph) (cursor.Cursor[graph.Handle], error)
	Describe() Step
}

// Step describes a plan node for explain output and analysis.
type Step struct {
	Op     string
	Args   []string
	Inputs []Query
	// Cond and Meta are set on nodes produced directly by a translator.
	Cond condition.Condition
	Meta *Metadata
}

// Explain renders q as an indented tree, one node per line.
func Explain(q Query) string {
	var b strings.Builder
	explain(&b, q, 0)
	return b.String()
}

func explain(b *strings.Builder, q Query, depth int) {
	s := q.Describe()
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(s.Op)
	for _, a := range s.Args {
		b.WriteString(" ")
		b.WriteString(a)
	}
	b.WriteString("\n")
	for _, in := range s.Inputs {
		explain(b, in, depth+1)
	}
}

// annotated records the condition and metadata a translator produced a
// query for.
type annotated struct {
	Query
	cond condition.Condition
	meta Metadata
}

func (a annotated) Describe() Step {
	s := a.Query.Describe()
	s.Cond = a.cond
	m := a.meta
	s.Meta = &m
	return s
}

// unwrap returns the query a translator produced.
func unwrap(q Query) Query {
	if a, ok := q.(annotated); ok {
		return a.Query
	}
	return q
}

// Nop is the always-empty query.
type Nop struct{}

func (Nop) Execute(context.Context, graph.Graph) (cursor.Cursor[graph.Handle], error) {
	return cursor.Empty[graph.Handle](), nil
}

func (Nop) Describe() Step { return Step{Op: "nothing"} }

// IsNop reports whether q always yields nothing.
func IsNop(q Query) bool {
	_, ok := unwrap(q).(Nop)
	return ok
}

// TypeScan yields the atoms of exactly one type.
type TypeScan struct {
	Type graph.Handle
}

func (q TypeScan) Execute(ctx context.Context, g graph.Graph) (cursor.Cursor[graph.Handle], error) {
	return g.ByType(ctx, q.Type)
}

func (q TypeScan) Describe() Step { return Step{Op: "type-scan", Args: []string{q.Type.String()}} }

// AllAtoms yields every atom.
type AllAtoms struct{}

func (AllAtoms) Execute(ctx context.Context, g graph.Graph) (cursor.Cursor[graph.Handle], error) {
	return g.AllAtoms(ctx)
}

func (AllAtoms) Describe() Step { return Step{Op: "all-atoms"} }

// IndexLookup yields the atoms an index lists under keys k with k Op Key.
type IndexLookup struct {
	Indexer graph.Indexer
	Op      graph.Operator
	Key     ir.Value
}

func (q IndexLookup) Execute(ctx context.Context, g graph.Graph) (cursor.Cursor[graph.Handle], error) {
	idx, err := g.Index(ctx, q.Indexer)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", q.Indexer, err)
	}
	return idx.Find(ctx, q.Op, q.Key)
}

func (q IndexLookup) Describe() Step {
	return Step{Op: "index-lookup", Args: []string{q.Indexer.Key(), q.Op.String(), ir.Format(q.Key)}}
}

// IncidenceScan yields the links pointing to Target.
type IncidenceScan struct {
	Target graph.Handle
}

func (q IncidenceScan) Execute(ctx context.Context, g graph.Graph) (cursor.Cursor[graph.Handle], error) {
	return g.Incidence(ctx, q.Target)
}

func (q IncidenceScan) Describe() Step {
	return Step{Op: "incidence", Args: []string{q.Target.String()}}
}

// LinkTargets yields the distinct targets of a link in target order.
type LinkTargets struct {
	Link graph.Handle
}

func (q LinkTargets) Execute(ctx context.Context, g graph.Graph) (cursor.Cursor[graph.Handle], error) {
	a, err := g.Atom(ctx, q.Link)
	if err != nil {
		return nil, fmt.Errorf("load link %s: %w", q.Link, err)
	}
	seen := make(map[graph.Handle]bool, len(a.Targets))
	var out []graph.Handle
	for _, t := range a.Targets {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return cursor.FromSlice(out), nil
}

func (q LinkTargets) Describe() Step { return Step{Op: "link-targets", Args: []string{q.Link.String()}} }

// ValuePipe yields the atoms whose value v satisfies v Op Value, by piping
// the matching stored values into their atoms. When Type is set only atoms
// of that type are kept.
type ValuePipe struct {
	Op    graph.Operator
	Value ir.Value
	Type  graph.Handle
}

func (q ValuePipe) Execute(ctx context.Context, g graph.Graph) (cursor.Cursor[graph.Handle], error) {
	keys, err := g.Values(ctx, q.Op, q.Value)
	if err != nil {
		return nil, fmt.Errorf("value keys: %w", err)
	}
	atoms := cursor.Pipe(keys, func(k graph.ValueKey) (cursor.Cursor[graph.Handle], error) {
		return g.AtomsByValue(ctx, k)
	})
	if q.Type.IsZero() {
		return atoms, nil
	}
	typ := condition.Type{Type: q.Type}
	return cursor.Filter(atoms, func(h graph.Handle) (bool, error) {
		return typ.Satisfies(ctx, g, h)
	}), nil
}

func (q ValuePipe) Describe() Step {
	args := []string{q.Op.String(), ir.Format(q.Value)}
	if !q.Type.IsZero() {
		args = append(args, "type", q.Type.String())
	}
	return Step{Op: "value-pipe", Args: args}
}

// SubgraphScan yields the members of a subgraph, or with Owners the
// subgraphs containing an atom.
type SubgraphScan struct {
	Handle graph.Handle
	Owners bool
}

func (q SubgraphScan) Execute(ctx context.Context, g graph.Graph) (cursor.Cursor[graph.Handle], error) {
	if q.Owners {
		return g.SubgraphsOf(ctx, q.Handle)
	}
	return g.SubgraphMembers(ctx, q.Handle)
}

func (q SubgraphScan) Describe() Step {
	if q.Owners {
		return Step{Op: "subgraphs-of", Args: []string{q.Handle.String()}}
	}
	return Step{Op: "subgraph-members", Args: []string{q.Handle.String()}}
}

// Traversal yields the atoms a BFS or DFS reaches. It is forward-only.
type Traversal struct {
	Start      graph.Handle
	Opts       traverse.Options
	Return     traverse.Return
	DepthFirst bool
}

func (q Traversal) Execute(ctx context.Context, g graph.Graph) (cursor.Cursor[graph.Handle], error) {
	adj := traverse.Neighbours(g, q.Opts)
	var pairs cursor.Cursor[traverse.Pair]
	if q.DepthFirst {
		pairs = traverse.DFS(ctx, adj, q.Start, q.Opts.MaxDepth)
	} else {
		pairs = traverse.BFS(ctx, adj, q.Start, q.Opts.MaxDepth)
	}
	return traverse.Handles(pairs, q.Return), nil
}

func (q Traversal) Describe() Step {
	op := "bfs"
	if q.DepthFirst {
		op = "dfs"
	}
	return Step{Op: op, Args: []string{q.Start.String(), q.Return.String()}}
}

// Subsumption yields a type together with its sub- or supertypes, in
// handle order.
type Subsumption struct {
	Type  graph.Handle
	Super bool
}

func (q Subsumption) Execute(ctx context.Context, g graph.Graph) (cursor.Cursor[graph.Handle], error) {
	var hs []graph.Handle
	var err error
	if q.Super {
		hs, err = traverse.SuperTypes(ctx, g, q.Type)
	} else {
		hs, err = traverse.SubTypes(ctx, g, q.Type)
	}
	if err != nil {
		return nil, err
	}
	return cursor.Materialize(cursor.FromSlice(hs), graph.Handles)
}

func (q Subsumption) Describe() Step {
	if q.Super {
		return Step{Op: "supertypes", Args: []string{q.Type.String()}}
	}
	return Step{Op: "subtypes", Args: []string{q.Type.String()}}
}

// Projection maps every atom of Base to the atom referenced at Path of its
// value. Atoms whose value has no handle at Path are skipped.
type Projection struct {
	Base Query
	Path []string
}

func (q Projection) Execute(ctx context.Context, g graph.Graph) (cursor.Cursor[graph.Handle], error) {
	base, err := q.Base.Execute(ctx, g)
	if err != nil {
		return nil, err
	}
	return cursor.Map(base, func(h graph.Handle) (graph.Handle, bool, error) {
		a, err := g.Atom(ctx, h)
		if err != nil {
			return graph.Handle{}, false, err
		}
		v, ok := ir.Project(a.Value, q.Path)
		if !ok {
			return graph.Handle{}, false, nil
		}
		s, ok := v.(ir.String)
		if !ok {
			return graph.Handle{}, false, nil
		}
		ref, err := graph.ParseHandle(string(s))
		if err != nil {
			return graph.Handle{}, false, nil
		}
		return ref, true, nil
	}), nil
}

func (q Projection) Describe() Step {
	return Step{Op: "project", Args: []string{strings.Join(q.Path, ".")}, Inputs: []Query{q.Base}}
}

// MapQuery applies a mapping to every atom of Base.
type MapQuery struct {
	Base    Query
	Mapping condition.Mapping
}

func (q MapQuery) Execute(ctx context.Context, g graph.Graph) (cursor.Cursor[graph.Handle], error) {
	base, err := q.Base.Execute(ctx, g)
	if err != nil {
		return nil, err
	}
	return cursor.Map(base, func(h graph.Handle) (graph.Handle, bool, error) {
		return q.Mapping.Apply(ctx, g, h)
	}), nil
}

func (q MapQuery) Describe() Step {
	return Step{Op: "map", Args: []string{q.Mapping.Name()}, Inputs: []Query{q.Base}}
}

// Sort materializes Base into handle order. It gives unordered results an
// ordered face where a combinator needs one.
type Sort struct {
	Base Query
}

func (q Sort) Execute(ctx context.Context, g graph.Graph) (cursor.Cursor[graph.Handle], error) {
	base, err := q.Base.Execute(ctx, g)
	if err != nil {
		return nil, err
	}
	return cursor.Materialize(base, graph.Handles)
}

func (q Sort) Describe() Step { return Step{Op: "sort", Inputs: []Query{q.Base}} }
