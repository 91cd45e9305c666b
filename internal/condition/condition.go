package condition

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
	"github.com/roach88/hgq/internal/traverse"
)

// Condition is a sealed interface over the condition variants.
type Condition interface {
	fmt.Stringer
	isCondition()
}

// Predicate is a condition that can be tested against one atom.
type Predicate interface {
	Condition
	Satisfies(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error)
}

// Key returns the structural identity of c.
func Key(c Condition) string {
	if c == nil {
		return "<nil>"
	}
	return c.String()
}

// Equal reports whether a and b are structurally equal.
func Equal(a, b Condition) bool { return Key(a) == Key(b) }

// HasFunc reports whether c contains a Func anywhere in its tree.
func HasFunc(c Condition) bool {
	switch c := c.(type) {
	case Func:
		return true
	case Not:
		return HasFunc(c.Cond)
	case Projection:
		return HasFunc(c.Base)
	case Map:
		return HasFunc(c.Cond)
	case And:
		for _, ch := range c {
			if HasFunc(ch) {
				return true
			}
		}
	case Or:
		for _, ch := range c {
			if HasFunc(ch) {
				return true
			}
		}
	}
	return false
}

// Nothing matches no atom.
type Nothing struct{}

// AnyAtom matches every atom.
type AnyAtom struct{}

// Type matches atoms of exactly type Type.
type Type struct {
	Type graph.Handle
}

// TypePlus matches atoms of type Base or any of its subtypes.
type TypePlus struct {
	Base graph.Handle
}

// Value matches atoms whose value v satisfies v Op Value.
type Value struct {
	Value ir.Value
	Op    graph.Operator
}

// TypedValue is Value restricted to atoms of exactly type Type.
type TypedValue struct {
	Type  graph.Handle
	Value ir.Value
	Op    graph.Operator
}

// Part matches atoms whose value at record path Path satisfies Op Value.
type Part struct {
	Path  []string
	Value ir.Value
	Op    graph.Operator
}

// ValueAsPredicate is Value that must only ever be evaluated in memory. The
// normalizer produces it when an index has already narrowed the candidates.
type ValueAsPredicate struct {
	Value ir.Value
	Op    graph.Operator
}

// Index matches the atoms an index lists under keys k with k Op Key.
type Index struct {
	Indexer graph.Indexer
	Key     ir.Value
	Op      graph.Operator
}

// Incident matches links that have Target among their targets.
type Incident struct {
	Target graph.Handle
}

// Position is where a PositionedIncident target must sit.
type Position uint8

const (
	First Position = iota
	Last
	NotFirst
	NotLast
)

func (p Position) String() string {
	switch p {
	case First:
		return "first"
	case Last:
		return "last"
	case NotFirst:
		return "not-first"
	case NotLast:
		return "not-last"
	}
	return "Position(" + strconv.Itoa(int(p)) + ")"
}

// ParsePosition parses the String form of a Position.
func ParsePosition(s string) (Position, error) {
	for _, p := range []Position{First, Last, NotFirst, NotLast} {
		if p.String() == s {
			return p, nil
		}
	}
	return First, fmt.Errorf("unknown position %q", s)
}

// PositionedIncident matches links whose Target sits at Position.
type PositionedIncident struct {
	Target   graph.Handle
	Position Position
}

// Link matches links that point to every target, in any order.
// graph.AnyHandle entries are ignored.
type Link struct {
	Targets []graph.Handle
}

// OrderedLink matches links of exactly len(Targets) targets where each
// position holds the given target. graph.AnyHandle matches any target.
type OrderedLink struct {
	Targets []graph.Handle
}

// Target matches the targets of link Link.
type Target struct {
	Link graph.Handle
}

// BFS matches the atoms reachable from Start breadth first.
type BFS struct {
	Start  graph.Handle
	Opts   traverse.Options
	Return traverse.Return
}

// DFS matches the atoms reachable from Start depth first.
type DFS struct {
	Start  graph.Handle
	Opts   traverse.Options
	Return traverse.Return
}

// Subsumes matches the types that subsume Specific, Specific included.
type Subsumes struct {
	Specific graph.Handle
}

// Subsumed matches the types subsumed by General, General included.
type Subsumed struct {
	General graph.Handle
}

// SubgraphMember matches the atoms contained in Subgraph.
type SubgraphMember struct {
	Subgraph graph.Handle
}

// SubgraphContains matches the subgraphs that contain Atom.
type SubgraphContains struct {
	Atom graph.Handle
}

// Projection matches the atoms referenced at record path Path by the
// atoms matching Base. A reference is a string value holding a handle.
type Projection struct {
	Base Condition
	Path []string
}

// Map matches Mapping applied to every atom matching Cond.
type Map struct {
	Cond    Condition
	Mapping Mapping
}

// And matches atoms that satisfy every child.
type And []Condition

// Or matches atoms that satisfy at least one child.
type Or []Condition

// Arity matches links with exactly N targets.
type Arity struct {
	N int
}

// Not matches atoms that do not satisfy Cond.
type Not struct {
	Cond Predicate
}

// Is matches exactly the atom Handle.
type Is struct {
	Handle graph.Handle
}

// Func is a user predicate. Name identifies it in plans and in structural
// comparisons, so two Funcs with the same Name inside one condition are
// taken to be the same predicate. Engines never cache plans that contain
// a Func.
type Func struct {
	Name string
	Fn   func(ctx context.Context, g graph.Graph, h graph.Handle) (bool, error)
	// Cost is the estimated storage accesses per evaluation. Zero means 1.
	Cost float64
}

func (Nothing) isCondition()            {}
func (AnyAtom) isCondition()            {}
func (Type) isCondition()               {}
func (TypePlus) isCondition()           {}
func (Value) isCondition()              {}
func (TypedValue) isCondition()         {}
func (Part) isCondition()               {}
func (ValueAsPredicate) isCondition()   {}
func (Index) isCondition()              {}
func (Incident) isCondition()           {}
func (PositionedIncident) isCondition() {}
func (Link) isCondition()               {}
func (OrderedLink) isCondition()        {}
func (Target) isCondition()             {}
func (BFS) isCondition()                {}
func (DFS) isCondition()                {}
func (Subsumes) isCondition()           {}
func (Subsumed) isCondition()           {}
func (SubgraphMember) isCondition()     {}
func (SubgraphContains) isCondition()   {}
func (Projection) isCondition()         {}
func (Map) isCondition()                {}
func (And) isCondition()                {}
func (Or) isCondition()                 {}
func (Arity) isCondition()              {}
func (Not) isCondition()                {}
func (Is) isCondition()                 {}
func (Func) isCondition()               {}

func (Nothing) String() string { return "nothing" }
func (AnyAtom) String() string { return "any" }
func (c Type) String() string  { return "type(" + c.Type.String() + ")" }

func (c TypePlus) String() string { return "type+(" + c.Base.String() + ")" }

func (c Value) String() string {
	return fmt.Sprintf("value(%s %s)", c.Op, ir.Format(c.Value))
}

func (c TypedValue) String() string {
	return fmt.Sprintf("typed-value(%s %s %s)", c.Type, c.Op, ir.Format(c.Value))
}

func (c Part) String() string {
	return fmt.Sprintf("part(%s %s %s)", strings.Join(c.Path, "."), c.Op, ir.Format(c.Value))
}

func (c ValueAsPredicate) String() string {
	return fmt.Sprintf("value-predicate(%s %s)", c.Op, ir.Format(c.Value))
}

func (c Index) String() string {
	return fmt.Sprintf("index(%s %s %s)", c.Indexer.Key(), c.Op, ir.Format(c.Key))
}

func (c Incident) String() string { return "incident(" + c.Target.String() + ")" }

func (c PositionedIncident) String() string {
	return fmt.Sprintf("incident(%s %s)", c.Target, c.Position)
}

func (c Link) String() string        { return "link(" + handles(c.Targets) + ")" }
func (c OrderedLink) String() string { return "ordered-link(" + handles(c.Targets) + ")" }
func (c Target) String() string      { return "target(" + c.Link.String() + ")" }

func (c BFS) String() string { return traversal("bfs", c.Start, c.Opts, c.Return) }
func (c DFS) String() string { return traversal("dfs", c.Start, c.Opts, c.Return) }

func traversal(name string, start graph.Handle, opts traverse.Options, ret traverse.Return) string {
	var b strings.Builder
	b.WriteString(name + "(" + start.String())
	if !opts.LinkType.IsZero() {
		b.WriteString(" via " + opts.LinkType.String())
	}
	if opts.Direction != traverse.Both {
		b.WriteString(" " + opts.Direction.String())
	}
	if opts.MaxDepth > 0 {
		b.WriteString(" depth " + strconv.Itoa(opts.MaxDepth))
	}
	if ret != traverse.Targets {
		b.WriteString(" " + ret.String())
	}
	b.WriteString(")")
	return b.String()
}

func (c Subsumes) String() string         { return "subsumes(" + c.Specific.String() + ")" }
func (c Subsumed) String() string         { return "subsumed(" + c.General.String() + ")" }
func (c SubgraphMember) String() string   { return "member-of(" + c.Subgraph.String() + ")" }
func (c SubgraphContains) String() string { return "contains(" + c.Atom.String() + ")" }

func (c Projection) String() string {
	return fmt.Sprintf("project(%s, %s)", strings.Join(c.Path, "."), Key(c.Base))
}

func (c Map) String() string {
	name := "<nil>"
	if c.Mapping != nil {
		name = c.Mapping.Name()
	}
	return fmt.Sprintf("map(%s, %s)", name, Key(c.Cond))
}

func (c And) String() string { return "and(" + list(c) + ")" }
func (c Or) String() string  { return "or(" + list(c) + ")" }

func (c Arity) String() string { return "arity(" + strconv.Itoa(c.N) + ")" }
func (c Not) String() string   { return "not(" + Key(c.Cond) + ")" }
func (c Is) String() string    { return "is(" + c.Handle.String() + ")" }
func (c Func) String() string  { return "func(" + c.Name + ")" }

func handles(hs []graph.Handle) string {
	parts := make([]string, len(hs))
	for i, h := range hs {
		if h.IsAny() {
			parts[i] = "*"
			continue
		}
		parts[i] = h.String()
	}
	return strings.Join(parts, ", ")
}

func list(cs []Condition) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = Key(c)
	}
	return strings.Join(parts, ", ")
}
