package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	QueryOptions
	IntersectionThreshold int64
	ScanThreshold         int64
	Strict                bool
}

// RedFlagResult is one red flag in analyze output.
type RedFlagResult struct {
	Kind      string `json:"kind"`
	Size      int64  `json:"size"`
	Condition string `json:"condition,omitempty"`
	Message   string `json:"message"`
}

// AnalyzeResult is the output of analyze.
type AnalyzeResult struct {
	Condition             string          `json:"condition"`
	IntersectionThreshold int64           `json:"intersection_threshold"`
	ScanThreshold         int64           `json:"scan_threshold"`
	Flags                 []RedFlagResult `json:"flags"`
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{QueryOptions: QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "analyze <query.yaml>",
		Short: "Report plan shapes that are likely to be slow",
		Long: `Compile the query in a YAML query file and report red flags:
intersections whose smaller side, and filters whose scanned set, are
estimated above the thresholds. Estimates come from the database's
type and index counts at compile time.

Thresholds default to the [analyze] section of the config file.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, args[0], cmd)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().Int64Var(&opts.IntersectionThreshold, "intersection-threshold", 0, "flag intersections whose smaller side exceeds this (default from config)")
	cmd.Flags().Int64Var(&opts.ScanThreshold, "scan-threshold", 0, "flag filters scanning more atoms than this (default from config)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit with status 1 when any red flag is raised")

	return cmd
}

func runAnalyze(opts *AnalyzeOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	th := opts.config().Thresholds()
	if cmd.Flags().Changed("intersection-threshold") {
		th.Intersection = opts.IntersectionThreshold
	}
	if cmd.Flags().Changed("scan-threshold") {
		th.Scan = opts.ScanThreshold
	}

	q, err := openQuery(ctx, &opts.QueryOptions, path, opts.logger(cmd.ErrOrStderr()))
	if err != nil {
		return outputQueryError(formatter, err)
	}
	defer q.Close()

	flags, err := q.engine.Analyze(ctx, q.cond, th)
	if err != nil {
		return outputQueryError(formatter, err)
	}

	result := AnalyzeResult{
		Condition:             q.cond.String(),
		IntersectionThreshold: th.Intersection,
		ScanThreshold:         th.Scan,
		Flags:                 make([]RedFlagResult, 0, len(flags)),
	}
	for _, f := range flags {
		rf := RedFlagResult{Kind: f.Kind, Size: f.Size, Message: f.Message}
		if f.Cond != nil {
			rf.Condition = f.Cond.String()
		}
		result.Flags = append(result.Flags, rf)
	}

	if formatter.IsJSON() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else if len(flags) == 0 {
		fmt.Fprintln(formatter.Writer, "✓ No red flags")
	} else {
		fmt.Fprintf(formatter.Writer, "✗ %d red flag(s)\n", len(flags))
		for _, f := range flags {
			fmt.Fprintf(formatter.Writer, "  %s\n", f)
		}
	}

	if opts.Strict && len(flags) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d red flag(s)", len(flags)))
	}
	return nil
}
