package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/hgq/internal/plan"
)

// ExplainResult is the output of explain.
type ExplainResult struct {
	Query      string   `json:"query,omitempty"`
	Condition  string   `json:"condition"`
	Normalized string   `json:"normalized"`
	Plan       []string `json:"plan"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <query.yaml>",
		Short: "Show how a query is normalized and planned",
		Long: `Normalize and compile the query in a YAML query file against a
database, and print the condition, its normal form and the plan tree.
The query is not executed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], cmd)
		},
	}

	opts.addFlags(cmd)

	return cmd
}

func runExplain(opts *QueryOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	q, err := openQuery(ctx, opts, path, opts.logger(cmd.ErrOrStderr()))
	if err != nil {
		return outputQueryError(formatter, err)
	}
	defer q.Close()

	p, err := q.engine.Prepare(ctx, q.cond)
	if err != nil {
		return outputQueryError(formatter, err)
	}

	if !formatter.IsJSON() {
		fmt.Fprint(formatter.Writer, p.String())
		return nil
	}
	return formatter.Success(ExplainResult{
		Query:      q.doc.Name,
		Condition:  p.Condition().String(),
		Normalized: p.Normalized().String(),
		Plan:       strings.Split(strings.TrimRight(plan.Explain(p.Plan()), "\n"), "\n"),
	})
}
