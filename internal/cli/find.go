package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
)

// FindOptions holds flags for the find command.
type FindOptions struct {
	QueryOptions
	Limit int
	Count bool
	One   bool
}

// FoundAtom is one result of find.
type FoundAtom struct {
	Handle  string          `json:"handle"`
	Type    string          `json:"type"`
	Value   json.RawMessage `json:"value"`
	Targets []string        `json:"targets,omitempty"`
}

// FindResult is the output of find.
type FindResult struct {
	Query     string      `json:"query,omitempty"`
	Condition string      `json:"condition"`
	Count     int64       `json:"count"`
	Atoms     []FoundAtom `json:"atoms,omitempty"`
}

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FindOptions{QueryOptions: QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "find <query.yaml>",
		Short: "Run a query and print the matching atoms",
		Long: `Run the query in a YAML query file against a database and print the
handle, type and value of every matching atom.

Type and atom names in the query are resolved against the database.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(opts, args[0], cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "print at most this many atoms (0 prints all)")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "print only the number of matches")
	cmd.Flags().BoolVar(&opts.One, "one", false, "print the first match; fail if there is none")
	cmd.MarkFlagsMutuallyExclusive("count", "one")

	return cmd
}

func runFind(opts *FindOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.logger(cmd.ErrOrStderr())
	ctx := cmd.Context()

	q, err := openQuery(ctx, &opts.QueryOptions, path, logger)
	if err != nil {
		return outputQueryError(formatter, err)
	}
	defer q.Close()

	result := FindResult{Query: q.doc.Name, Condition: q.cond.String()}
	var handles []graph.Handle
	switch {
	case opts.Count:
		result.Count, err = q.engine.Count(ctx, q.cond)
	case opts.One:
		var h graph.Handle
		h, err = q.engine.FindOne(ctx, q.cond)
		handles = []graph.Handle{h}
	default:
		handles, err = findLimited(ctx, q, opts.Limit)
	}
	if err != nil {
		if opts.One && isNotFound(err) {
			_ = formatter.Error(ErrCodeGeneric, "no atom matches", nil)
			return NewExitError(ExitFailure, "no atom matches")
		}
		return outputQueryError(formatter, err)
	}
	if !opts.Count {
		result.Count = int64(len(handles))
	}

	result.Atoms, err = describeAtoms(ctx, q, handles)
	if err != nil {
		return outputQueryError(formatter, err)
	}
	formatter.VerboseLog("Found %d atom(s) for %s", result.Count, result.Condition)

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	return outputFindText(formatter, result, opts.Count)
}

// findLimited collects up to limit handles, or all of them when limit is
// not positive.
func findLimited(ctx context.Context, q *query, limit int) ([]graph.Handle, error) {
	if limit <= 0 {
		return q.engine.FindAll(ctx, q.cond)
	}
	r, err := q.engine.Find(ctx, q.cond)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []graph.Handle
	for len(out) < limit && r.HasNext() {
		h, err := r.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, r.Err()
}

// describeAtoms loads the atoms behind hs in one snapshot.
func describeAtoms(ctx context.Context, q *query, hs []graph.Handle) ([]FoundAtom, error) {
	if len(hs) == 0 {
		return nil, nil
	}
	snap, err := q.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	typeNames := make(map[graph.Handle]string)
	out := make([]FoundAtom, 0, len(hs))
	for _, h := range hs {
		a, err := snap.Atom(ctx, h)
		if err != nil {
			return nil, err
		}
		name, ok := typeNames[a.Type]
		if !ok {
			t, err := snap.Type(ctx, a.Type)
			if err != nil {
				return nil, err
			}
			name = t.String()
			typeNames[a.Type] = name
		}
		value, err := ir.MarshalJSON(a.Value)
		if err != nil {
			return nil, err
		}
		fa := FoundAtom{Handle: h.String(), Type: name, Value: value}
		for _, t := range a.Targets {
			fa.Targets = append(fa.Targets, t.String())
		}
		out = append(out, fa)
	}
	return out, nil
}

func outputFindText(formatter *OutputFormatter, result FindResult, countOnly bool) error {
	w := formatter.Writer
	if countOnly {
		fmt.Fprintln(w, result.Count)
		return nil
	}
	for _, a := range result.Atoms {
		fmt.Fprintf(w, "%s  %s  %s", a.Handle, a.Type, a.Value)
		if len(a.Targets) > 0 {
			fmt.Fprintf(w, "  -> [%s]", strings.Join(a.Targets, ", "))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d atom(s)\n", len(result.Atoms))
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, graph.ErrNotFound)
}
