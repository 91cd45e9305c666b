package queryspec

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/hgq/internal/condition"
	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
	"github.com/roach88/hgq/internal/traverse"
)

// decodeFunc builds the condition named by one key from its argument.
type decodeFunc func(d *decoder, arg *yaml.Node) (condition.Condition, error)

var decoders map[string]decodeFunc

func init() {
	decoders = map[string]decodeFunc{
		"nothing":      func(*decoder, *yaml.Node) (condition.Condition, error) { return condition.Nothing{}, nil },
		"any":          func(*decoder, *yaml.Node) (condition.Condition, error) { return condition.AnyAtom{}, nil },
		"and":          (*decoder).and,
		"or":           (*decoder).or,
		"not":          (*decoder).not,
		"type":         (*decoder).typ,
		"type+":        (*decoder).typePlus,
		"type_plus":    (*decoder).typePlus,
		"value":        (*decoder).value,
		"typed_value":  (*decoder).typedValue,
		"part":         (*decoder).part,
		"index":        (*decoder).index,
		"incident":     (*decoder).incident,
		"link":         (*decoder).link,
		"ordered_link": (*decoder).orderedLink,
		"target":       (*decoder).target,
		"bfs":          (*decoder).bfs,
		"dfs":          (*decoder).dfs,
		"subsumes":     (*decoder).subsumes,
		"subsumed":     (*decoder).subsumed,
		"subgraph":     (*decoder).subgraph,
		"in_subgraph":  (*decoder).inSubgraph,
		"projection":   (*decoder).projection,
		"map":          (*decoder).mapping,
		"arity":        (*decoder).arity,
		"is":           (*decoder).is,
	}
}

// Keys returns the condition keys a query may use, sorted.
func Keys() []string {
	keys := make([]string, 0, len(decoders))
	for k := range decoders {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type decoder struct {
	ctx context.Context
	r   Resolver
}

// Decode turns a YAML condition node into a condition. Every condition is
// a mapping with exactly one key naming the variant:
//
//	and:
//	  - type: Person
//	  - part: {path: name, value: Bob}
func Decode(ctx context.Context, r Resolver, n *yaml.Node) (condition.Condition, error) {
	d := &decoder{ctx: ctx, r: r}
	return d.cond(n)
}

func (d *decoder) cond(n *yaml.Node) (condition.Condition, error) {
	if n.Kind == yaml.DocumentNode && len(n.Content) == 1 {
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return nil, &ValidationError{
			Message:    "a condition is a mapping with exactly one key",
			Suggestion: "known keys: " + strings.Join(Keys(), ", "),
			Line:       n.Line,
		}
	}
	key, arg := n.Content[0], n.Content[1]
	fn, ok := decoders[key.Value]
	if !ok {
		return nil, &ValidationError{
			Message:    "unknown condition " + strconv.Quote(key.Value),
			Suggestion: "known keys: " + strings.Join(Keys(), ", "),
			Line:       key.Line,
		}
	}
	return fn(d, arg)
}

func (d *decoder) list(n *yaml.Node) ([]condition.Condition, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, invalid(n, "expected a list of conditions")
	}
	out := make([]condition.Condition, 0, len(n.Content))
	for _, c := range n.Content {
		cond, err := d.cond(c)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func (d *decoder) and(n *yaml.Node) (condition.Condition, error) {
	cs, err := d.list(n)
	return condition.And(cs), err
}

func (d *decoder) or(n *yaml.Node) (condition.Condition, error) {
	cs, err := d.list(n)
	return condition.Or(cs), err
}

func (d *decoder) not(n *yaml.Node) (condition.Condition, error) {
	c, err := d.cond(n)
	if err != nil {
		return nil, err
	}
	p, ok := c.(condition.Predicate)
	if !ok {
		return nil, invalid(n, "%s cannot be negated", c)
	}
	return condition.Not{Cond: p}, nil
}

// fields decodes a mapping argument into named child nodes, rejecting
// unknown keys.
func fields(n *yaml.Node, allowed ...string) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, invalid(n, "expected a mapping with keys %s", strings.Join(allowed, ", "))
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		known := false
		for _, a := range allowed {
			if a == k.Value {
				known = true
				break
			}
		}
		if !known {
			return nil, invalid(k, "unknown key %q, expected one of %s", k.Value, strings.Join(allowed, ", "))
		}
		out[k.Value] = n.Content[i+1]
	}
	return out, nil
}

func requireKey(n *yaml.Node, f map[string]*yaml.Node, key string) (*yaml.Node, error) {
	v, ok := f[key]
	if !ok {
		return nil, invalid(n, "%s is required", key)
	}
	return v, nil
}

func scalar(n *yaml.Node) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", invalid(n, "expected a scalar")
	}
	return n.Value, nil
}

func integer(n *yaml.Node) (int, error) {
	var i int
	if err := n.Decode(&i); err != nil {
		return 0, invalid(n, "expected an integer")
	}
	return i, nil
}

func (d *decoder) typeRef(n *yaml.Node) (graph.Handle, error) {
	name, err := scalar(n)
	if err != nil {
		return graph.Handle{}, err
	}
	h, err := d.r.Type(d.ctx, name)
	if err != nil {
		return graph.Handle{}, unresolved(n, "type", name, err)
	}
	return h, nil
}

func (d *decoder) atomRef(n *yaml.Node) (graph.Handle, error) {
	name, err := scalar(n)
	if err != nil {
		return graph.Handle{}, err
	}
	if name == "*" {
		return graph.AnyHandle, nil
	}
	h, err := d.r.Atom(d.ctx, name)
	if err != nil {
		return graph.Handle{}, unresolved(n, "atom", name, err)
	}
	return h, nil
}

func (d *decoder) atomRefs(n *yaml.Node) ([]graph.Handle, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, invalid(n, "expected a list of atoms")
	}
	out := make([]graph.Handle, 0, len(n.Content))
	for _, c := range n.Content {
		h, err := d.atomRef(c)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// irValue decodes any YAML value. Floats are rejected unless integral.
func irValue(n *yaml.Node) (ir.Value, error) {
	var raw any
	if err := n.Decode(&raw); err != nil {
		return nil, invalid(n, "decode value: %v", err)
	}
	v, err := ir.FromGo(raw)
	if err != nil {
		return nil, invalid(n, "%v", err)
	}
	return v, nil
}

func operator(f map[string]*yaml.Node) (graph.Operator, error) {
	n, ok := f["op"]
	if !ok {
		return graph.EQ, nil
	}
	op, err := graph.ParseOperator(n.Value)
	if err != nil {
		return graph.EQ, invalid(n, "%v", err)
	}
	return op, nil
}

func path(n *yaml.Node) ([]string, error) {
	if n.Kind == yaml.ScalarNode {
		return strings.Split(n.Value, "."), nil
	}
	var p []string
	if err := n.Decode(&p); err != nil || len(p) == 0 {
		return nil, invalid(n, "expected a path such as a.b or [a, b]")
	}
	return p, nil
}

func (d *decoder) typ(n *yaml.Node) (condition.Condition, error) {
	h, err := d.typeRef(n)
	return condition.Type{Type: h}, err
}

func (d *decoder) typePlus(n *yaml.Node) (condition.Condition, error) {
	h, err := d.typeRef(n)
	return condition.TypePlus{Base: h}, err
}

func (d *decoder) value(n *yaml.Node) (condition.Condition, error) {
	f, err := fields(n, "op", "value")
	if err != nil {
		return nil, err
	}
	vn, err := requireKey(n, f, "value")
	if err != nil {
		return nil, err
	}
	v, err := irValue(vn)
	if err != nil {
		return nil, err
	}
	op, err := operator(f)
	return condition.Value{Value: v, Op: op}, err
}

func (d *decoder) typedValue(n *yaml.Node) (condition.Condition, error) {
	f, err := fields(n, "type", "op", "value")
	if err != nil {
		return nil, err
	}
	tn, err := requireKey(n, f, "type")
	if err != nil {
		return nil, err
	}
	vn, err := requireKey(n, f, "value")
	if err != nil {
		return nil, err
	}
	t, err := d.typeRef(tn)
	if err != nil {
		return nil, err
	}
	v, err := irValue(vn)
	if err != nil {
		return nil, err
	}
	op, err := operator(f)
	return condition.TypedValue{Type: t, Value: v, Op: op}, err
}

func (d *decoder) part(n *yaml.Node) (condition.Condition, error) {
	f, err := fields(n, "path", "op", "value")
	if err != nil {
		return nil, err
	}
	pn, err := requireKey(n, f, "path")
	if err != nil {
		return nil, err
	}
	vn, err := requireKey(n, f, "value")
	if err != nil {
		return nil, err
	}
	p, err := path(pn)
	if err != nil {
		return nil, err
	}
	v, err := irValue(vn)
	if err != nil {
		return nil, err
	}
	op, err := operator(f)
	return condition.Part{Path: p, Value: v, Op: op}, err
}

// index decodes a direct index condition. The index is selected by part,
// target or direct; target index keys are atoms.
func (d *decoder) index(n *yaml.Node) (condition.Condition, error) {
	f, err := fields(n, "type", "part", "target", "direct", "op", "key")
	if err != nil {
		return nil, err
	}
	tn, err := requireKey(n, f, "type")
	if err != nil {
		return nil, err
	}
	kn, err := requireKey(n, f, "key")
	if err != nil {
		return nil, err
	}
	t, err := d.typeRef(tn)
	if err != nil {
		return nil, err
	}
	ix := graph.Indexer{Type: t}
	var key ir.Value
	switch {
	case f["part"] != nil:
		ix.Kind = graph.ByPart
		if ix.Path, err = path(f["part"]); err != nil {
			return nil, err
		}
		key, err = irValue(kn)
	case f["target"] != nil:
		ix.Kind = graph.ByTarget
		if ix.Position, err = integer(f["target"]); err != nil {
			return nil, err
		}
		var h graph.Handle
		h, err = d.atomRef(kn)
		key = graph.TargetKey(h)
	case f["direct"] != nil:
		ix.Kind = graph.DirectValue
		key, err = irValue(kn)
	default:
		return nil, invalid(n, "one of part, target or direct is required")
	}
	if err != nil {
		return nil, err
	}
	op, err := operator(f)
	return condition.Index{Indexer: ix, Key: key, Op: op}, err
}

// incident accepts an atom, or a mapping with a target and a position.
func (d *decoder) incident(n *yaml.Node) (condition.Condition, error) {
	if n.Kind == yaml.ScalarNode {
		h, err := d.atomRef(n)
		return condition.Incident{Target: h}, err
	}
	f, err := fields(n, "target", "position")
	if err != nil {
		return nil, err
	}
	tn, err := requireKey(n, f, "target")
	if err != nil {
		return nil, err
	}
	h, err := d.atomRef(tn)
	if err != nil {
		return nil, err
	}
	pn, ok := f["position"]
	if !ok {
		return condition.Incident{Target: h}, nil
	}
	pos, err := condition.ParsePosition(pn.Value)
	if err != nil {
		return nil, invalid(pn, "%v", err)
	}
	return condition.PositionedIncident{Target: h, Position: pos}, nil
}

func (d *decoder) link(n *yaml.Node) (condition.Condition, error) {
	hs, err := d.atomRefs(n)
	return condition.Link{Targets: hs}, err
}

func (d *decoder) orderedLink(n *yaml.Node) (condition.Condition, error) {
	hs, err := d.atomRefs(n)
	return condition.OrderedLink{Targets: hs}, err
}

func (d *decoder) target(n *yaml.Node) (condition.Condition, error) {
	h, err := d.atomRef(n)
	return condition.Target{Link: h}, err
}

func (d *decoder) traversal(n *yaml.Node) (graph.Handle, traverse.Options, traverse.Return, error) {
	var opts traverse.Options
	f, err := fields(n, "start", "link_type", "direction", "max_depth", "return")
	if err != nil {
		return graph.Handle{}, opts, 0, err
	}
	sn, err := requireKey(n, f, "start")
	if err != nil {
		return graph.Handle{}, opts, 0, err
	}
	start, err := d.atomRef(sn)
	if err != nil {
		return graph.Handle{}, opts, 0, err
	}
	if ln, ok := f["link_type"]; ok {
		if opts.LinkType, err = d.typeRef(ln); err != nil {
			return graph.Handle{}, opts, 0, err
		}
	}
	if dn, ok := f["direction"]; ok {
		if opts.Direction, err = traverse.ParseDirection(dn.Value); err != nil {
			return graph.Handle{}, opts, 0, invalid(dn, "%v", err)
		}
	}
	if mn, ok := f["max_depth"]; ok {
		if opts.MaxDepth, err = integer(mn); err != nil {
			return graph.Handle{}, opts, 0, err
		}
	}
	var ret traverse.Return
	if rn, ok := f["return"]; ok {
		if ret, err = traverse.ParseReturn(rn.Value); err != nil {
			return graph.Handle{}, opts, 0, invalid(rn, "%v", err)
		}
	}
	return start, opts, ret, nil
}

func (d *decoder) bfs(n *yaml.Node) (condition.Condition, error) {
	start, opts, ret, err := d.traversal(n)
	return condition.BFS{Start: start, Opts: opts, Return: ret}, err
}

func (d *decoder) dfs(n *yaml.Node) (condition.Condition, error) {
	start, opts, ret, err := d.traversal(n)
	return condition.DFS{Start: start, Opts: opts, Return: ret}, err
}

func (d *decoder) subsumes(n *yaml.Node) (condition.Condition, error) {
	h, err := d.typeRef(n)
	return condition.Subsumes{Specific: h}, err
}

func (d *decoder) subsumed(n *yaml.Node) (condition.Condition, error) {
	h, err := d.typeRef(n)
	return condition.Subsumed{General: h}, err
}

func (d *decoder) subgraph(n *yaml.Node) (condition.Condition, error) {
	h, err := d.atomRef(n)
	return condition.SubgraphMember{Subgraph: h}, err
}

func (d *decoder) inSubgraph(n *yaml.Node) (condition.Condition, error) {
	h, err := d.atomRef(n)
	return condition.SubgraphContains{Atom: h}, err
}

func (d *decoder) projection(n *yaml.Node) (condition.Condition, error) {
	f, err := fields(n, "of", "path")
	if err != nil {
		return nil, err
	}
	on, err := requireKey(n, f, "of")
	if err != nil {
		return nil, err
	}
	pn, err := requireKey(n, f, "path")
	if err != nil {
		return nil, err
	}
	base, err := d.cond(on)
	if err != nil {
		return nil, err
	}
	p, err := path(pn)
	return condition.Projection{Base: base, Path: p}, err
}

// mapping decodes a map condition. The mapping is "type-of" or
// "target-at N".
func (d *decoder) mapping(n *yaml.Node) (condition.Condition, error) {
	f, err := fields(n, "of", "mapping")
	if err != nil {
		return nil, err
	}
	on, err := requireKey(n, f, "of")
	if err != nil {
		return nil, err
	}
	mn, err := requireKey(n, f, "mapping")
	if err != nil {
		return nil, err
	}
	base, err := d.cond(on)
	if err != nil {
		return nil, err
	}
	var m condition.Mapping
	switch fs := strings.Fields(mn.Value); {
	case len(fs) == 1 && fs[0] == "type-of":
		m = condition.TypeOf{}
	case len(fs) == 2 && fs[0] == "target-at":
		pos, err := strconv.Atoi(fs[1])
		if err != nil || pos < 0 {
			return nil, invalid(mn, "target-at needs a position, got %q", fs[1])
		}
		m = condition.TargetAt{Position: pos}
	default:
		return nil, invalid(mn, "unknown mapping %q, expected type-of or target-at N", mn.Value)
	}
	return condition.Map{Cond: base, Mapping: m}, nil
}

func (d *decoder) arity(n *yaml.Node) (condition.Condition, error) {
	i, err := integer(n)
	if err != nil {
		return nil, err
	}
	if i < 0 {
		return nil, invalid(n, "arity must not be negative")
	}
	return condition.Arity{N: i}, nil
}

func (d *decoder) is(n *yaml.Node) (condition.Condition, error) {
	h, err := d.atomRef(n)
	return condition.Is{Handle: h}, err
}
