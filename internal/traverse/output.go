package traverse

import (
	"context"
	"fmt"

	"github.com/roach88/hgq/internal/cursor"
	"github.com/roach88/hgq/internal/graph"
)

// Return selects what a traversal cursor yields.
type Return uint8

const (
	// Targets yields the atoms reached.
	Targets Return = iota
	// Links yields the links followed.
	Links
	// LinksAndTargets yields both, each link before the target it led to.
	LinksAndTargets
)

func (r Return) String() string {
	switch r {
	case Links:
		return "links"
	case LinksAndTargets:
		return "both"
	default:
		return "targets"
	}
}

// ParseReturn parses the String form of a Return.
func ParseReturn(s string) (Return, error) {
	switch s {
	case "", "targets":
		return Targets, nil
	case "links":
		return Links, nil
	case "both":
		return LinksAndTargets, nil
	}
	return Targets, fmt.Errorf("unknown traversal return %q", s)
}

// Handles adapts a pair cursor to the handles selected by ret. Every handle
// is produced once. The result is forward-only and owns pairs.
func Handles(pairs cursor.Cursor[Pair], ret Return) cursor.Cursor[graph.Handle] {
	seen := map[graph.Handle]bool{}
	var queued []graph.Handle
	next := func() (graph.Handle, bool, error) {
		for {
			if len(queued) > 0 {
				h := queued[0]
				queued = queued[1:]
				if !seen[h] {
					seen[h] = true
					return h, true, nil
				}
				continue
			}
			if !pairs.HasNext() {
				return graph.Handle{}, false, pairs.Err()
			}
			p, err := pairs.Next()
			if err != nil {
				return graph.Handle{}, false, err
			}
			switch ret {
			case Links:
				queued = append(queued, p.Link)
			case LinksAndTargets:
				queued = append(queued, p.Link, p.Target)
			default:
				queued = append(queued, p.Target)
			}
		}
	}
	return cursor.Iterator(next, pairs.Close)
}

// SubTypes returns t followed by every type it subsumes, breadth first.
func SubTypes(ctx context.Context, g graph.Graph, t graph.Handle) ([]graph.Handle, error) {
	return closure(ctx, g, t, Outgoing)
}

// SuperTypes returns t followed by every type subsuming it, breadth first.
func SuperTypes(ctx context.Context, g graph.Graph, t graph.Handle) ([]graph.Handle, error) {
	return closure(ctx, g, t, Incoming)
}

func closure(ctx context.Context, g graph.Graph, t graph.Handle, dir Direction) ([]graph.Handle, error) {
	adj := Neighbours(g, Options{LinkType: graph.SubsumesType, Direction: dir})
	pairs, err := cursor.Collect(BFS(ctx, adj, t, 0))
	if err != nil {
		return nil, fmt.Errorf("subsumption closure of %s: %w", t, err)
	}
	out := make([]graph.Handle, 0, len(pairs)+1)
	out = append(out, t)
	for _, p := range pairs {
		out = append(out, p.Target)
	}
	return out, nil
}

// Subsumes reports whether general is specific or one of its supertypes.
func Subsumes(ctx context.Context, g graph.Graph, general, specific graph.Handle) (bool, error) {
	if general == specific {
		return true, nil
	}
	supers, err := SuperTypes(ctx, g, specific)
	if err != nil {
		return false, err
	}
	for _, s := range supers {
		if s == general {
			return true, nil
		}
	}
	return false, nil
}
