// Package traverse walks the atom graph along links.
//
// Traversals are forward-only producers of (link, target) pairs. They back
// the BFS, DFS and subsumption conditions, and the type system's sub- and
// supertype closure.
package traverse

import (
	"context"
	"fmt"

	"github.com/roach88/hgq/internal/cursor"
	"github.com/roach88/hgq/internal/graph"
)

// Pair is one traversal step: the link followed and the atom reached.
type Pair struct {
	Link   graph.Handle
	Target graph.Handle
}

// Direction restricts which targets of a link count as neighbours of an
// atom at some position in it.
type Direction uint8

const (
	// Both follows every other target of the link.
	Both Direction = iota
	// Outgoing follows targets after the atom's position.
	Outgoing
	// Incoming follows targets before the atom's position.
	Incoming
)

func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "out"
	case Incoming:
		return "in"
	default:
		return "both"
	}
}

// ParseDirection parses the String form of a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "both":
		return Both, nil
	case "out":
		return Outgoing, nil
	case "in":
		return Incoming, nil
	}
	return Both, fmt.Errorf("unknown direction %q", s)
}

// Options configure the adjacency used by a traversal.
type Options struct {
	// LinkType, when set, restricts traversal to links of that type.
	LinkType  graph.Handle
	Direction Direction
	// MaxDepth bounds the traversal depth. Zero means unbounded.
	MaxDepth int
}

// Adjacency returns the neighbours of h.
type Adjacency func(ctx context.Context, h graph.Handle) ([]Pair, error)

// Neighbours returns the adjacency over g described by opts.
func Neighbours(g graph.Graph, opts Options) Adjacency {
	return func(ctx context.Context, h graph.Handle) ([]Pair, error) {
		links, err := g.Incidence(ctx, h)
		if err != nil {
			return nil, fmt.Errorf("incidence of %s: %w", h, err)
		}
		ids, err := cursor.Collect[graph.Handle](links)
		if err != nil {
			return nil, err
		}
		var out []Pair
		for _, id := range ids {
			link, err := g.Atom(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("load link %s: %w", id, err)
			}
			if !opts.LinkType.IsZero() && link.Type != opts.LinkType {
				continue
			}
			out = append(out, follow(link, h, opts.Direction)...)
		}
		return out, nil
	}
}

// follow lists the targets of link reachable from h in direction dir.
func follow(link graph.Atom, h graph.Handle, dir Direction) []Pair {
	var out []Pair
	seen := map[graph.Handle]bool{h: true}
	for i, t := range link.Targets {
		if t != h {
			continue
		}
		for j, n := range link.Targets {
			if seen[n] || (dir == Outgoing && j <= i) || (dir == Incoming && j >= i) {
				continue
			}
			seen[n] = true
			out = append(out, Pair{Link: link.Handle, Target: n})
		}
	}
	return out
}

type frontier struct {
	pair  Pair
	depth int
}

// walk is the shared BFS/DFS producer. With lifo the pending list is a
// stack, otherwise a queue.
func walk(ctx context.Context, adj Adjacency, start graph.Handle, maxDepth int, lifo bool) cursor.Cursor[Pair] {
	visited := map[graph.Handle]bool{start: true}
	var pending []frontier
	expanded := false

	expand := func(h graph.Handle, depth int) error {
		if maxDepth > 0 && depth >= maxDepth {
			return nil
		}
		pairs, err := adj(ctx, h)
		if err != nil {
			return err
		}
		if lifo {
			for i := len(pairs) - 1; i >= 0; i-- {
				pending = append(pending, frontier{pair: pairs[i], depth: depth + 1})
			}
			return nil
		}
		for _, p := range pairs {
			pending = append(pending, frontier{pair: p, depth: depth + 1})
		}
		return nil
	}

	next := func() (Pair, bool, error) {
		if !expanded {
			expanded = true
			if err := expand(start, 0); err != nil {
				return Pair{}, false, err
			}
		}
		for len(pending) > 0 {
			if err := ctx.Err(); err != nil {
				return Pair{}, false, err
			}
			var f frontier
			if lifo {
				f, pending = pending[len(pending)-1], pending[:len(pending)-1]
			} else {
				f, pending = pending[0], pending[1:]
			}
			if visited[f.pair.Target] {
				continue
			}
			visited[f.pair.Target] = true
			if err := expand(f.pair.Target, f.depth); err != nil {
				return Pair{}, false, err
			}
			return f.pair, true, nil
		}
		return Pair{}, false, nil
	}
	return cursor.Iterator(next, nil)
}

// BFS visits the atoms reachable from start breadth first. start itself
// is not produced.
func BFS(ctx context.Context, adj Adjacency, start graph.Handle, maxDepth int) cursor.Cursor[Pair] {
	return walk(ctx, adj, start, maxDepth, false)
}

// DFS visits the atoms reachable from start depth first, neighbours in
// adjacency order. start itself is not produced.
func DFS(ctx context.Context, adj Adjacency, start graph.Handle, maxDepth int) cursor.Cursor[Pair] {
	return walk(ctx, adj, start, maxDepth, true)
}
