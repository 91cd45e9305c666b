package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hgq/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Types  int                        `json:"types,omitempty"`
	Atoms  int                        `json:"atoms,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <dataset-dir>",
		Short: "Validate a dataset without loading it",
		Long: `Validate a CUE dataset without writing a database.

Checks the CUE schema, then every type, index and atom reference: unknown
names, value kinds, link targets, index paths and cycles. All problems
are reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	c, files, err := LoadDataset(dir)
	if err != nil {
		var verrs compiler.ValidationErrors
		if errors.As(err, &verrs) {
			return outputValidationErrors(formatter, verrs)
		}
		var lerr *LoadError
		if errors.As(err, &lerr) {
			return outputValidateError(formatter, lerr.Code, lerr.Error())
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error())
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", files, dir)

	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{
			Valid: true,
			Types: len(c.Dataset.Types),
			Atoms: len(c.Dataset.Atoms),
		})
	}
	fmt.Fprintf(formatter.Writer, "✓ Dataset valid (%d types, %d atoms)\n", len(c.Dataset.Types), len(c.Dataset.Atoms))
	return nil
}

// outputValidateError reports a dataset that could not be read at all.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, message)
}

// outputValidationErrors lists every validation error.
func outputValidationErrors(formatter *OutputFormatter, errs compiler.ValidationErrors) error {
	failed := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.IsJSON() {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		}); err != nil {
			return err
		}
		return failed
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		if e.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", e.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", e.Code, e.Field, e.Message)
	}
	return failed
}
