package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/hgq/internal/compiler"
	"github.com/roach88/hgq/internal/engine"
	"github.com/roach88/hgq/internal/store"
)

// Error code constants, shared by all commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load or store write failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeNoDatabase  = "E007" // No --db flag and no database in config

	// Query errors use the compile error codes of the plan package, plus
	// this one for query files that do not decode.
	ErrCodeInvalidQuery = "INVALID_QUERY"
)

// LoadError is a dataset that could not be read or built, before any
// dataset validation happened.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadDataset compiles the dataset in dir. Problems reading the directory
// or building the CUE value are returned as *LoadError; a dataset that
// builds but does not validate returns compiler.ValidationErrors.
func LoadDataset(dir string) (*compiler.Compiled, int, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, 0, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("dataset directory not found: %s", dir)}
	}
	if err != nil {
		return nil, 0, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing dataset directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, 0, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := compiler.FindCUEFiles(dir)
	if err != nil {
		return nil, 0, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, 0, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	c, err := compiler.LoadDir(dir)
	if err != nil {
		return nil, len(files), convertCompileError(err)
	}
	return c, len(files), nil
}

// convertCompileError keeps validation errors as they are and turns
// everything else into a LoadError.
func convertCompileError(err error) error {
	var verrs compiler.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs
	}
	var cerr *compiler.CompileError
	if errors.As(err, &cerr) {
		return &LoadError{Code: ErrCodeBuildFailed, Message: cerr.Message, Pos: cerr.Pos}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// databasePath returns --db, falling back to the config.
func databasePath(flag string, cfg *Config) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if cfg.Database != "" {
		return cfg.Database, nil
	}
	return "", &LoadError{Code: ErrCodeNoDatabase, Message: "no database given: use --db or set database in " + DefaultConfigName}
}

// openExisting opens a database that a previous load created.
func openExisting(path string, logger *slog.Logger) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("database not found: %s", path)}
	}
	st, err := store.Open(path, store.WithLogger(logger))
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("open database: %v", err)}
	}
	return st, nil
}

// session is an open database with an engine over it.
type session struct {
	store  *store.Store
	engine *engine.Engine
}

// openSession opens the database named by the flags and config and builds
// an engine configured from them.
func openSession(opts *RootOptions, dbFlag string, parallel bool, logger *slog.Logger) (*session, error) {
	cfg := opts.config()
	path, err := databasePath(dbFlag, cfg)
	if err != nil {
		return nil, err
	}
	st, err := openExisting(path, logger)
	if err != nil {
		return nil, err
	}
	engOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithParallelUnion(parallel || cfg.ParallelUnion),
	}
	if cfg.PlanCache > 0 {
		engOpts = append(engOpts, engine.WithPlanCache(cfg.PlanCache))
	}
	return &session{store: st, engine: engine.New(st, engOpts...)}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// loadIntoStore writes a compiled dataset into the database at path,
// creating it if needed.
func loadIntoStore(ctx context.Context, path string, c *compiler.Compiled, logger *slog.Logger) error {
	st, err := store.Open(path, store.WithLogger(logger))
	if err != nil {
		return &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("open database: %v", err)}
	}
	defer st.Close()
	if err := st.Load(ctx, c.Dataset); err != nil {
		return &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("load dataset: %v", err)}
	}
	return nil
}
