package testutil

import (
	"context"
	"sync"

	"github.com/roach88/hgq/internal/condition"
	"github.com/roach88/hgq/internal/graph"
)

// Recorder builds Func conditions that log each evaluation, so tests can
// observe the order in which a plan applies its predicates.
type Recorder struct {
	mu    sync.Mutex
	calls []string
}

// Func returns a predicate named name with the given cost that records
// every call and then defers to fn. A nil fn accepts every atom.
func (r *Recorder) Func(name string, cost float64, fn func(graph.Handle) bool) condition.Func {
	return condition.Func{
		Name: name,
		Cost: cost,
		Fn: func(_ context.Context, _ graph.Graph, h graph.Handle) (bool, error) {
			r.mu.Lock()
			r.calls = append(r.calls, name)
			r.mu.Unlock()
			if fn == nil {
				return true, nil
			}
			return fn(h), nil
		},
	}
}

// Calls returns the recorded predicate names in call order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// First returns the names in the order each was first called.
func (r *Recorder) First() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, c := range r.calls {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets all calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
