package plan

import (
	"context"
	"reflect"
	"sync"

	"github.com/roach88/hgq/internal/condition"
)

// Translator compiles one condition variant and describes its result.
type Translator interface {
	Compile(ctx context.Context, c *Compiler, cond condition.Condition) (Query, error)
	Metadata(ctx context.Context, c *Compiler, cond condition.Condition) (Metadata, error)
}

// Registry maps condition variants to translators. Lookup is by exact
// dynamic type; there is no fallback to related variants. A Registry is
// safe for concurrent use.
type Registry struct {
	mu sync.RWMutex
	m  map[reflect.Type]Translator
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[reflect.Type]Translator)}
}

// DefaultRegistry returns a new registry holding the built-in translators.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(condition.Nothing{}, nothingTranslator{})
	r.Register(condition.AnyAtom{}, anyAtomTranslator{})
	r.Register(condition.Type{}, typeTranslator{})
	r.Register(condition.TypePlus{}, typePlusTranslator{})
	r.Register(condition.Value{}, valueTranslator{})
	r.Register(condition.TypedValue{}, typedValueTranslator{})
	r.Register(condition.Part{}, partTranslator{})
	r.Register(condition.ValueAsPredicate{}, valuePredicateTranslator{})
	r.Register(condition.Index{}, indexTranslator{})
	r.Register(condition.Incident{}, incidentTranslator{})
	r.Register(condition.PositionedIncident{}, positionedIncidentTranslator{})
	r.Register(condition.Link{}, linkTranslator{})
	r.Register(condition.OrderedLink{}, orderedLinkTranslator{})
	r.Register(condition.Target{}, targetTranslator{})
	r.Register(condition.BFS{}, traversalTranslator{})
	r.Register(condition.DFS{}, traversalTranslator{})
	r.Register(condition.Subsumes{}, subsumptionTranslator{})
	r.Register(condition.Subsumed{}, subsumptionTranslator{})
	r.Register(condition.SubgraphMember{}, subgraphTranslator{})
	r.Register(condition.SubgraphContains{}, subgraphTranslator{})
	r.Register(condition.Projection{}, projectionTranslator{})
	r.Register(condition.Map{}, mapTranslator{})
	r.Register(condition.And{}, andTranslator{})
	r.Register(condition.Or{}, orTranslator{})
	return r
}

// Register installs t for the variant of proto, replacing any previous
// translator.
func (r *Registry) Register(proto condition.Condition, t Translator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[reflect.TypeOf(proto)] = t
}

// Unregister removes the translator for the variant of proto.
func (r *Registry) Unregister(proto condition.Condition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, reflect.TypeOf(proto))
}

// Lookup returns the translator for cond's variant.
func (r *Registry) Lookup(cond condition.Condition) (Translator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.m[reflect.TypeOf(cond)]
	return t, ok
}

// Clone returns an independent copy of r.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := NewRegistry()
	for k, v := range r.m {
		out.m[k] = v
	}
	return out
}
