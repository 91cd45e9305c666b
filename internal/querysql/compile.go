package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/hgq/internal/queryir"
)

// SQLCompiler compiles queryir queries to parameterized SQL for SQLite.
//
// Values are never interpolated. Every Select carries an ORDER BY with
// COLLATE BINARY so results come back in byte order, which is handle order
// for handle columns and value order for encoded key columns.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to SQL and its parameters.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if res := queryir.Validate(q); !res.Valid {
		return "", nil, fmt.Errorf("invalid query: %s", strings.Join(res.Problems, "; "))
	}
	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case queryir.Count:
		return c.compileCount(query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	where, params, err := c.compileWhere(q.Filter)
	if err != nil {
		return "", nil, err
	}
	distinct := ""
	if q.Distinct {
		distinct = "DISTINCT "
	}
	order := make([]string, len(q.OrderBy))
	for i, col := range q.OrderBy {
		order[i] = col + " COLLATE BINARY ASC"
	}
	sql := fmt.Sprintf("SELECT %s%s FROM %s%s ORDER BY %s",
		distinct,
		strings.Join(q.Columns, ", "),
		q.From,
		where,
		strings.Join(order, ", "))
	return sql, params, nil
}

func (c *SQLCompiler) compileCount(q queryir.Count) (string, []any, error) {
	where, params, err := c.compileWhere(q.Filter)
	if err != nil {
		return "", nil, err
	}
	what := "*"
	if q.Column != "" {
		what = "DISTINCT " + q.Column
	}
	return fmt.Sprintf("SELECT COUNT(%s) FROM %s%s", what, q.From, where), params, nil
}

func (c *SQLCompiler) compileWhere(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}
	sql, params, err := c.compilePredicate(p)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return " WHERE " + sql, params, nil
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return pred.Field + " = ?", []any{pred.Value}, nil
	case queryir.Compare:
		return fmt.Sprintf("%s %s ?", pred.Field, pred.Op), []any{pred.Value}, nil
	case queryir.And:
		return c.compileAnd(pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}
	var parts []string
	var params []any
	for _, pred := range and.Predicates {
		sql, ps, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if _, nested := pred.(queryir.And); nested {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params, nil
}
