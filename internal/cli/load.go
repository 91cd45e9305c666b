package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hgq/internal/compiler"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	DB string
}

// LoadSummary is what a load wrote.
type LoadSummary struct {
	Database string `json:"database"`
	Files    int    `json:"files"`
	Types    int    `json:"types"`
	Indexes  int    `json:"indexes"`
	Atoms    int    `json:"atoms"`
	Members  int    `json:"members"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <dataset-dir>",
		Short: "Compile a CUE dataset and load it into a database",
		Long: `Compile the CUE dataset in a directory and write its types, indexes,
atoms and subgraph memberships into a SQLite database in one transaction.

The database is created if it does not exist. Loading the same dataset
twice fails, since atom handles are derived from their names.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "path to SQLite database (default from config)")

	return cmd
}

func runLoad(opts *LoadOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.logger(cmd.ErrOrStderr())

	path, err := databasePath(opts.DB, opts.config())
	if err != nil {
		return outputLoadError(formatter, err)
	}

	c, files, err := LoadDataset(dir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Compiled %d CUE file(s) from %s", files, dir)

	if err := loadIntoStore(cmd.Context(), path, c, logger); err != nil {
		return outputLoadError(formatter, err)
	}

	summary := LoadSummary{
		Database: path,
		Files:    files,
		Types:    len(c.Dataset.Types),
		Indexes:  len(c.Dataset.Indexes),
		Atoms:    len(c.Dataset.Atoms),
		Members:  len(c.Dataset.Members),
	}
	if formatter.IsJSON() {
		return formatter.Success(summary)
	}
	fmt.Fprintf(formatter.Writer, "✓ Loaded %d types, %d indexes, %d atoms into %s\n",
		summary.Types, summary.Indexes, summary.Atoms, path)
	return nil
}

// outputLoadError reports a dataset or database error. Validation errors
// are listed the way validate lists them.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var verrs compiler.ValidationErrors
	if errors.As(err, &verrs) {
		return outputValidationErrors(formatter, verrs)
	}
	var lerr *LoadError
	if errors.As(err, &lerr) {
		_ = formatter.Error(lerr.Code, lerr.Message, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", lerr.Code, lerr.Message))
	}
	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, "load failed", err)
}
