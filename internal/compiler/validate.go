package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrBuiltinRedefined  = "E101" // type name collides with a predefined type
	ErrUnknownType       = "E102" // reference to an undeclared type
	ErrUnknownAtom       = "E103" // reference to an undeclared atom
	ErrValueKindMismatch = "E104" // atom value kind differs from its type's kind
	ErrTargetsOnNode     = "E105" // targets on an atom whose type is not a link type
	ErrIndexKind         = "E106" // index must name exactly one of part, target, value
	ErrIndexPath         = "E107" // part path does not resolve through the type's parts
	ErrCycle             = "E108" // cyclic parts, subtyping or link targets
	ErrSubtypeKind       = "E109" // subtype and supertype disagree on kind or linkness
)

// ValidationError represents a dataset validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors is every problem found in one dataset.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// builtinTypes maps the names of the predefined types to their
// descriptions.
func builtinTypes() map[string]graph.Type {
	out := make(map[string]graph.Type)
	for _, t := range graph.Builtins() {
		out[t.Name] = t
	}
	return out
}

// Validate checks the references and kinds of src.
// Returns all errors found (does not fail-fast).
func Validate(src *Source) []ValidationError {
	var errs []ValidationError
	add := func(code, field string, line int, format string, args ...any) {
		errs = append(errs, ValidationError{
			Code:    code,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Line:    line,
		})
	}

	builtins := builtinTypes()
	declared := make(map[string]TypeDecl, len(src.Types))
	for _, t := range src.Types {
		declared[t.Name] = t
		if _, ok := builtins[t.Name]; ok {
			add(ErrBuiltinRedefined, "types."+t.Name, t.Pos.Line(), "%q is a predefined type", t.Name)
		}
	}
	kindOf := func(name string) (ir.Kind, bool, bool) {
		if t, ok := declared[name]; ok {
			return t.Kind, t.Link, true
		}
		if t, ok := builtins[name]; ok {
			return t.Kind, t.Link, true
		}
		return 0, false, false
	}

	parts := dependencyGraph{}
	supers := dependencyGraph{}
	for _, t := range src.Types {
		for _, part := range sortedKeys(t.Parts) {
			ref := t.Parts[part]
			if _, _, ok := kindOf(ref); !ok {
				add(ErrUnknownType, "types."+t.Name+".parts."+part, t.Pos.Line(), "unknown type %q", ref)
				continue
			}
			if _, ok := declared[ref]; ok {
				parts[t.Name] = append(parts[t.Name], ref)
			}
		}
		for _, sup := range t.SubtypeOf {
			kind, link, ok := kindOf(sup)
			if !ok {
				add(ErrUnknownType, "types."+t.Name+".subtypeOf", t.Pos.Line(), "unknown type %q", sup)
				continue
			}
			if kind != t.Kind || link != t.Link {
				add(ErrSubtypeKind, "types."+t.Name+".subtypeOf", t.Pos.Line(),
					"%s (%s) cannot be a subtype of %s (%s)", t.Name, t.Kind, sup, kind)
			}
			supers[t.Name] = append(supers[t.Name], sup)
		}
	}
	for _, scc := range cycles(parts) {
		add(ErrCycle, "types", 0, "cyclic parts: %s", cyclePath(scc, parts))
	}
	for _, scc := range cycles(supers) {
		add(ErrCycle, "types", 0, "cyclic subtyping: %s", cyclePath(scc, supers))
	}

	for i, ix := range src.Indexes {
		field := fmt.Sprintf("indexes[%d]", i)
		kind, link, ok := kindOf(ix.Type)
		if !ok {
			add(ErrUnknownType, field+".type", ix.Pos.Line(), "unknown type %q", ix.Type)
			continue
		}
		n := 0
		if len(ix.Part) > 0 {
			n++
		}
		if ix.Target >= 0 {
			n++
		}
		if ix.Value {
			n++
		}
		if n != 1 {
			add(ErrIndexKind, field, ix.Pos.Line(), "exactly one of part, target or value is required")
			continue
		}
		switch {
		case len(ix.Part) > 0:
			if err := resolvePath(declared, ix.Type, ix.Part); err != nil {
				add(ErrIndexPath, field+".part", ix.Pos.Line(), "%v", err)
			}
		case ix.Target >= 0 && !link:
			add(ErrIndexKind, field+".target", ix.Pos.Line(), "%s is not a link type", ix.Type)
		case ix.Value && kind == ir.KindNull:
			add(ErrIndexKind, field+".value", ix.Pos.Line(), "%s holds no values", ix.Type)
		}
	}

	atoms := make(map[string]bool, len(src.Atoms))
	for _, a := range src.Atoms {
		atoms[a.Name] = true
	}
	targets := dependencyGraph{}
	for _, a := range src.Atoms {
		field := "atoms." + a.Name
		kind, link, ok := kindOf(a.Type)
		if !ok {
			add(ErrUnknownType, field+".type", a.Pos.Line(), "unknown type %q", a.Type)
			continue
		}
		if !ir.IsNull(a.Value) && a.Value.Kind() != kind {
			add(ErrValueKindMismatch, field+".value", a.Pos.Line(), "%s value for type %s of kind %s", a.Value.Kind(), a.Type, kind)
		}
		if len(a.Targets) > 0 && !link {
			add(ErrTargetsOnNode, field+".targets", a.Pos.Line(), "%s is not a link type", a.Type)
		}
		for _, t := range a.Targets {
			if !atoms[t] {
				add(ErrUnknownAtom, field+".targets", a.Pos.Line(), "unknown atom %q", t)
				continue
			}
			targets[a.Name] = append(targets[a.Name], t)
		}
	}
	for _, scc := range cycles(targets) {
		add(ErrCycle, "atoms", 0, "cyclic targets: %s", cyclePath(scc, targets))
	}

	for _, sg := range sortedKeys(src.Subgraphs) {
		members := src.Subgraphs[sg]
		if !atoms[sg] {
			add(ErrUnknownAtom, "subgraphs."+sg, 0, "unknown subgraph atom %q", sg)
		}
		for _, m := range members {
			if !atoms[m] {
				add(ErrUnknownAtom, "subgraphs."+sg, 0, "unknown atom %q", m)
			}
		}
	}
	return errs
}

// resolvePath follows path through the declared parts of typ.
func resolvePath(declared map[string]TypeDecl, typ string, path []string) error {
	cur := typ
	for _, step := range path {
		t, ok := declared[cur]
		if !ok {
			return fmt.Errorf("type %s has no parts", cur)
		}
		next, ok := t.Parts[step]
		if !ok {
			return fmt.Errorf("type %s has no part %q", cur, step)
		}
		cur = next
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
