package queryir

import "fmt"

// ValidationResult lists the problems found in a query.
type ValidationResult struct {
	Valid    bool
	Problems []string
}

// Validate checks that q names a source and columns, carries a
// deterministic order, and uses only supported literal types.
//
// Validate is a pure function with no side effects.
func Validate(q Query) ValidationResult {
	v := &validator{}
	v.validateQuery(q)
	return ValidationResult{Valid: len(v.problems) == 0, Problems: v.problems}
}

type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case Select:
		if query.From == "" {
			v.addProblem("select without a source")
		}
		if len(query.Columns) == 0 {
			v.addProblem("select from %s names no columns", query.From)
		}
		if len(query.OrderBy) == 0 {
			v.addProblem("select from %s has no ORDER BY", query.From)
		}
		v.validatePredicate(query.Filter)
	case Count:
		if query.From == "" {
			v.addProblem("count without a source")
		}
		v.validatePredicate(query.Filter)
	case nil:
		v.addProblem("nil query")
	default:
		v.addProblem("unknown query type %T", q)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.validateValue(pred.Field, pred.Value)
	case Compare:
		if pred.Op > GTE {
			v.addProblem("field %q: unknown operator %d", pred.Field, pred.Op)
		}
		v.validateValue(pred.Field, pred.Value)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) validateValue(field string, val any) {
	switch val.(type) {
	case string, int64, bool, []byte:
	case nil:
		v.addProblem("field %q compared to NULL", field)
	default:
		v.addProblem("field %q: unsupported literal type %T", field, val)
	}
}
