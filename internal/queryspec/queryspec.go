package queryspec

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/hgq/internal/compiler"
	"github.com/roach88/hgq/internal/condition"
	"github.com/roach88/hgq/internal/graph"
)

// Document is one query file.
type Document struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Query       yaml.Node `yaml:"query"`
}

// Parse decodes a query document. The query itself is resolved later,
// against a graph, by Resolve.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse query document: %w", err)
	}
	if doc.Query.Kind == 0 {
		return nil, &ValidationError{Message: "query is required"}
	}
	return &doc, nil
}

// Resolve turns the document's query into a condition.
func (d *Document) Resolve(ctx context.Context, r Resolver) (condition.Condition, error) {
	return Decode(ctx, r, &d.Query)
}

// Resolver maps names used in queries to handles. A name that parses as a
// handle is taken as one.
type Resolver interface {
	Type(ctx context.Context, name string) (graph.Handle, error)
	Atom(ctx context.Context, name string) (graph.Handle, error)
}

// GraphResolver resolves type names through the graph and atom names
// through the dataset compiler's naming scheme, checking that each atom
// exists.
type GraphResolver struct {
	G graph.Graph
}

func (r GraphResolver) Type(ctx context.Context, name string) (graph.Handle, error) {
	if h, err := graph.ParseHandle(name); err == nil {
		return h, nil
	}
	t, err := r.G.TypeByName(ctx, name)
	if err != nil {
		return graph.Handle{}, err
	}
	return t.Handle, nil
}

func (r GraphResolver) Atom(ctx context.Context, name string) (graph.Handle, error) {
	if h, err := graph.ParseHandle(name); err == nil {
		return h, nil
	}
	h := compiler.AtomHandle(name)
	if _, err := r.G.Atom(ctx, h); err != nil {
		return graph.Handle{}, err
	}
	return h, nil
}

// ValidationError is a query that cannot be turned into a condition.
type ValidationError struct {
	Message    string
	Suggestion string
	Line       int
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	b.WriteString(e.Message)
	if e.Suggestion != "" {
		b.WriteString(". ")
		b.WriteString(e.Suggestion)
	}
	return b.String()
}

func invalid(n *yaml.Node, format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...), Line: n.Line}
}

// unresolved wraps a failed name lookup. Missing names become validation
// errors; storage failures pass through.
func unresolved(n *yaml.Node, what, name string, err error) error {
	if errors.Is(err, graph.ErrNotFound) {
		return &ValidationError{
			Message:    fmt.Sprintf("unknown %s %q", what, name),
			Suggestion: "names are declared in the dataset; handles may be given in UUID form",
			Line:       n.Line,
		}
	}
	return fmt.Errorf("line %d: resolve %s %q: %w", n.Line, what, name, err)
}
