package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/hgq/internal/condition"
	"github.com/roach88/hgq/internal/engine"
	"github.com/roach88/hgq/internal/queryspec"
)

// QueryOptions holds the flags shared by commands that run one query file.
type QueryOptions struct {
	*RootOptions
	DB       string
	Parallel bool
}

func (o *QueryOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.DB, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().BoolVar(&o.Parallel, "parallel", false, "evaluate disjunctions with the parallel union")
}

// query is a query file resolved against an open database.
type query struct {
	*session
	doc  *queryspec.Document
	cond condition.Condition
}

// openQuery reads the query file at path, opens the database and resolves
// the query's names against it. The caller must Close the result.
func openQuery(ctx context.Context, opts *QueryOptions, path string, logger *slog.Logger) (*query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("query file not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("read query: %v", err)}
	}
	doc, err := queryspec.Parse(data)
	if err != nil {
		return nil, err
	}

	s, err := openSession(opts.RootOptions, opts.DB, opts.Parallel, logger)
	if err != nil {
		return nil, err
	}
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	defer snap.Release()

	cond, err := doc.Resolve(ctx, queryspec.GraphResolver{G: snap})
	if err != nil {
		s.Close()
		return nil, err
	}
	logger.Debug("query resolved", "file", path, "condition", cond.String())
	return &query{session: s, doc: doc, cond: cond}, nil
}

// queryErrorCode classifies an error from reading, resolving or running
// a query.
func queryErrorCode(err error) string {
	var lerr *LoadError
	if errors.As(err, &lerr) {
		return lerr.Code
	}
	var verr *queryspec.ValidationError
	if errors.As(err, &verr) {
		return ErrCodeInvalidQuery
	}
	if code, ok := engine.ErrorCode(err); ok {
		return string(code)
	}
	return ErrCodeGeneric
}

// outputQueryError reports err with its code. Every query error is a
// command error.
func outputQueryError(formatter *OutputFormatter, err error) error {
	code := queryErrorCode(err)
	msg := err.Error()
	var lerr *LoadError
	if errors.As(err, &lerr) {
		msg = lerr.Message
	}
	_ = formatter.Error(code, msg, nil)
	return WrapExitError(ExitCommandError, code, err)
}
