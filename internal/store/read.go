package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/hgq/internal/cursor"
	"github.com/roach88/hgq/internal/graph"
	"github.com/roach88/hgq/internal/ir"
	"github.com/roach88/hgq/internal/queryir"
	"github.com/roach88/hgq/internal/querysql"
)

// querier is the part of *sql.Tx the reader needs.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// reader answers graph reads within one transaction. Result sets are read
// completely under mu, so cursors of concurrent union branches never
// interleave statements on the connection.
type reader struct {
	mu    sync.Mutex
	q     querier
	sqlc  *querysql.SQLCompiler
	types map[graph.Handle]graph.Type
}

func newReader(q querier, sqlc *querysql.SQLCompiler) *reader {
	return &reader{q: q, sqlc: sqlc, types: make(map[graph.Handle]graph.Type)}
}

var _ graph.Graph = (*reader)(nil)

// rows runs q and calls scan for every row.
func (r *reader) rows(ctx context.Context, q queryir.Query, scan func(*sql.Rows) error) error {
	query, params, err := r.sqlc.Compile(q)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rows, err := r.q.QueryContext(ctx, query, params...)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate: %w", err)
	}
	return nil
}

// handles runs q, whose single column is a handle, in handle order.
func (r *reader) handles(ctx context.Context, q queryir.Query) ([]graph.Handle, error) {
	var out []graph.Handle
	err := r.rows(ctx, q, func(rows *sql.Rows) error {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return fmt.Errorf("scan handle: %w", err)
		}
		h, err := scanHandle(b)
		if err != nil {
			return err
		}
		out = append(out, h)
		return nil
	})
	return out, err
}

func (r *reader) sorted(ctx context.Context, from, column string, filter queryir.Predicate) (cursor.RandomAccess[graph.Handle], error) {
	hs, err := r.handles(ctx, queryir.Select{
		From:     from,
		Columns:  []string{column},
		Distinct: true,
		Filter:   filter,
		OrderBy:  []string{column},
	})
	if err != nil {
		return nil, err
	}
	return cursor.FromSorted(hs, graph.Handles), nil
}

func (r *reader) count(ctx context.Context, q queryir.Count) (int64, error) {
	query, params, err := r.sqlc.Compile(q)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	if err := r.q.QueryRowContext(ctx, query, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.From, err)
	}
	return n, nil
}

// Atom loads one atom. Returns graph.ErrNotFound if it does not exist.
func (r *reader) Atom(ctx context.Context, h graph.Handle) (graph.Atom, error) {
	var (
		typ   []byte
		value string
		found bool
	)
	err := r.rows(ctx, queryir.Select{
		From:    "atoms",
		Columns: []string{"type", "value_json"},
		Filter:  queryir.Equals{Field: "handle", Value: handleBytes(h)},
		OrderBy: []string{"handle"},
	}, func(rows *sql.Rows) error {
		found = true
		return rows.Scan(&typ, &value)
	})
	if err != nil {
		return graph.Atom{}, fmt.Errorf("read atom %s: %w", h, err)
	}
	if !found {
		return graph.Atom{}, fmt.Errorf("atom %s: %w", h, graph.ErrNotFound)
	}
	a := graph.Atom{Handle: h}
	if a.Type, err = scanHandle(typ); err != nil {
		return graph.Atom{}, err
	}
	if a.Value, err = unmarshalValue(value); err != nil {
		return graph.Atom{}, err
	}
	a.Targets, err = r.handles(ctx, queryir.Select{
		From:    "targets",
		Columns: []string{"target"},
		Filter:  queryir.Equals{Field: "link", Value: handleBytes(h)},
		OrderBy: []string{"position"},
	})
	if err != nil {
		return graph.Atom{}, fmt.Errorf("read targets of %s: %w", h, err)
	}
	return a, nil
}

var typeColumns = []string{"handle", "name", "kind", "ordered", "link", "parts_json"}

func (r *reader) loadType(ctx context.Context, filter queryir.Predicate, what string) (graph.Type, error) {
	var (
		t     graph.Type
		found bool
	)
	err := r.rows(ctx, queryir.Select{
		From:    "types",
		Columns: typeColumns,
		Filter:  filter,
		OrderBy: []string{"handle"},
	}, func(rows *sql.Rows) error {
		var (
			h     []byte
			kind  int
			parts string
			err   error
		)
		if err := rows.Scan(&h, &t.Name, &kind, &t.Ordered, &t.Link, &parts); err != nil {
			return fmt.Errorf("scan type: %w", err)
		}
		if t.Handle, err = scanHandle(h); err != nil {
			return err
		}
		t.Kind = ir.Kind(kind)
		if t.Parts, err = unmarshalParts(parts); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return graph.Type{}, fmt.Errorf("read type %s: %w", what, err)
	}
	if !found {
		return graph.Type{}, fmt.Errorf("type %s: %w", what, graph.ErrNotFound)
	}
	r.mu.Lock()
	r.types[t.Handle] = t
	r.mu.Unlock()
	return t, nil
}

// Type resolves a type handle. Types are cached for the life of the reader.
func (r *reader) Type(ctx context.Context, h graph.Handle) (graph.Type, error) {
	r.mu.Lock()
	t, ok := r.types[h]
	r.mu.Unlock()
	if ok {
		return t, nil
	}
	return r.loadType(ctx, queryir.Equals{Field: "handle", Value: handleBytes(h)}, h.String())
}

// TypeByName resolves a type name.
func (r *reader) TypeByName(ctx context.Context, name string) (graph.Type, error) {
	return r.loadType(ctx, queryir.Equals{Field: "name", Value: name}, fmt.Sprintf("%q", name))
}

func (r *reader) AllAtoms(ctx context.Context) (cursor.RandomAccess[graph.Handle], error) {
	return r.sorted(ctx, "atoms", "handle", nil)
}

func (r *reader) ByType(ctx context.Context, t graph.Handle) (cursor.RandomAccess[graph.Handle], error) {
	return r.sorted(ctx, "atoms", "handle", queryir.Equals{Field: "type", Value: handleBytes(t)})
}

func (r *reader) CountByType(ctx context.Context, t graph.Handle) (int64, error) {
	return r.count(ctx, queryir.Count{From: "atoms", Filter: queryir.Equals{Field: "type", Value: handleBytes(t)}})
}

// Values returns the distinct stored value keys of key's kind that satisfy
// op against key, in value order.
func (r *reader) Values(ctx context.Context, op graph.Operator, key ir.Value) (cursor.Cursor[graph.ValueKey], error) {
	var keys []graph.ValueKey
	err := r.rows(ctx, queryir.Select{
		From:     "atoms",
		Columns:  []string{"value_key"},
		Distinct: true,
		Filter: queryir.Where(
			queryir.Equals{Field: "value_kind", Value: int64(key.Kind())},
			queryir.Compare{Field: "value_key", Op: sqlOp(op), Value: ir.EncodeKey(key)},
		),
		OrderBy: []string{"value_key"},
	}, func(rows *sql.Rows) error {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return fmt.Errorf("scan value key: %w", err)
		}
		keys = append(keys, graph.ValueKey(b))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	return cursor.FromSlice(keys), nil
}

func (r *reader) AtomsByValue(ctx context.Context, k graph.ValueKey) (cursor.RandomAccess[graph.Handle], error) {
	return r.sorted(ctx, "atoms", "handle", queryir.Equals{Field: "value_key", Value: []byte(k)})
}

// Index returns the physical index described by ix.
func (r *reader) Index(ctx context.Context, ix graph.Indexer) (graph.Index, error) {
	path, err := marshalPath(ix.Path)
	if err != nil {
		return nil, err
	}
	var (
		id    int64
		found bool
	)
	err = r.rows(ctx, queryir.Select{
		From:    "index_defs",
		Columns: []string{"id"},
		Filter: queryir.Where(
			queryir.Equals{Field: "kind", Value: int64(ix.Kind)},
			queryir.Equals{Field: "type", Value: handleBytes(ix.Type)},
			queryir.Equals{Field: "path_json", Value: path},
			queryir.Equals{Field: "position", Value: int64(indexPosition(ix))},
		),
		OrderBy: []string{"id"},
	}, func(rows *sql.Rows) error {
		found = true
		return rows.Scan(&id)
	})
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", ix, err)
	}
	if !found {
		return nil, fmt.Errorf("index %s: %w", ix, graph.ErrNotFound)
	}
	return &index{r: r, id: id, ix: ix}, nil
}

// IndexersFor returns the indexes defined on exactly type t, in definition
// order.
func (r *reader) IndexersFor(ctx context.Context, t graph.Handle) ([]graph.Indexer, error) {
	var out []graph.Indexer
	err := r.rows(ctx, queryir.Select{
		From:    "index_defs",
		Columns: []string{"kind", "path_json", "position"},
		Filter:  queryir.Equals{Field: "type", Value: handleBytes(t)},
		OrderBy: []string{"id"},
	}, func(rows *sql.Rows) error {
		var (
			kind int
			path string
			pos  int
		)
		if err := rows.Scan(&kind, &path, &pos); err != nil {
			return fmt.Errorf("scan index definition: %w", err)
		}
		p, err := unmarshalPath(path)
		if err != nil {
			return err
		}
		out = append(out, graph.Indexer{Kind: graph.IndexKind(kind), Type: t, Path: p, Position: pos})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read indexes of %s: %w", t, err)
	}
	return out, nil
}

func (r *reader) Incidence(ctx context.Context, h graph.Handle) (cursor.RandomAccess[graph.Handle], error) {
	return r.sorted(ctx, "targets", "link", queryir.Equals{Field: "target", Value: handleBytes(h)})
}

func (r *reader) SubgraphMembers(ctx context.Context, sg graph.Handle) (cursor.RandomAccess[graph.Handle], error) {
	return r.sorted(ctx, "subgraph_members", "atom", queryir.Equals{Field: "subgraph", Value: handleBytes(sg)})
}

func (r *reader) SubgraphsOf(ctx context.Context, h graph.Handle) (cursor.RandomAccess[graph.Handle], error) {
	return r.sorted(ctx, "subgraph_members", "subgraph", queryir.Equals{Field: "atom", Value: handleBytes(h)})
}

// index is one physical index within a reader's transaction.
type index struct {
	r  *reader
	id int64
	ix graph.Indexer
}

func (x *index) Indexer() graph.Indexer { return x.ix }

func (x *index) Find(ctx context.Context, op graph.Operator, key ir.Value) (cursor.RandomAccess[graph.Handle], error) {
	if op != graph.EQ && !x.ix.Sorted() {
		return nil, fmt.Errorf("index %s does not support %s", x.ix, op)
	}
	return x.r.sorted(ctx, "index_entries", "atom", queryir.Where(
		queryir.Equals{Field: "index_id", Value: x.id},
		queryir.Equals{Field: "key_kind", Value: int64(key.Kind())},
		queryir.Compare{Field: "key", Op: sqlOp(op), Value: ir.EncodeKey(key)},
	))
}

func (x *index) Count(ctx context.Context, key ir.Value) (int64, error) {
	return x.r.count(ctx, queryir.Count{
		From:   "index_entries",
		Column: "atom",
		Filter: queryir.Where(
			queryir.Equals{Field: "index_id", Value: x.id},
			queryir.Equals{Field: "key", Value: ir.EncodeKey(key)},
		),
	})
}

func (x *index) ScanKeys(ctx context.Context) (cursor.Cursor[ir.Value], error) {
	var keys []ir.Value
	err := x.r.rows(ctx, queryir.Select{
		From:     "index_entries",
		Columns:  []string{"key", "key_json"},
		Distinct: true,
		Filter:   queryir.Equals{Field: "index_id", Value: x.id},
		OrderBy:  []string{"key"},
	}, func(rows *sql.Rows) error {
		var (
			b []byte
			j string
		)
		if err := rows.Scan(&b, &j); err != nil {
			return fmt.Errorf("scan index key: %w", err)
		}
		v, err := unmarshalValue(j)
		if err != nil {
			return err
		}
		keys = append(keys, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan keys of %s: %w", x.ix, err)
	}
	return cursor.FromSlice(keys), nil
}

func sqlOp(op graph.Operator) queryir.Op {
	switch op {
	case graph.LT:
		return queryir.LT
	case graph.GT:
		return queryir.GT
	case graph.LTE:
		return queryir.LTE
	case graph.GTE:
		return queryir.GTE
	}
	return queryir.EQ
}

// indexPosition is the stored position column; only target indexes use it.
func indexPosition(ix graph.Indexer) int {
	if ix.Kind == graph.ByTarget {
		return ix.Position
	}
	return 0
}

// snapshot is a reader over a read transaction.
type snapshot struct {
	*reader
	tx       *sql.Tx
	gen      uint64
	once     sync.Once
	released error
}

// Generation returns the number of writes committed before the snapshot
// was taken.
func (s *snapshot) Generation() uint64 { return s.gen }

var _ graph.Versioned = (*snapshot)(nil)

// Release ends the read transaction. It is idempotent.
func (s *snapshot) Release() error {
	s.once.Do(func() {
		if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.released = err
		}
	})
	return s.released
}
