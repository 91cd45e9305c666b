package queryir

// Query is a storage access. It is sealed to this package.
type Query interface {
	queryNode()
}

// Predicate is a row filter. It is sealed to this package.
type Predicate interface {
	predicateNode()
}

// Select reads Columns of the rows of From that pass Filter, ordered by
// OrderBy. Every Select must name an order so results are deterministic.
type Select struct {
	From     string
	Columns  []string
	Distinct bool
	Filter   Predicate // nil = every row
	OrderBy  []string
}

func (Select) queryNode() {}

// Count counts the rows, or the distinct values of Column, that pass Filter.
type Count struct {
	From   string
	Column string // empty counts rows
	Filter Predicate
}

func (Count) queryNode() {}

// Op is a comparison operator.
type Op uint8

const (
	EQ Op = iota
	LT
	GT
	LTE
	GTE
)

var opSQL = [...]string{EQ: "=", LT: "<", GT: ">", LTE: "<=", GTE: ">="}

// String returns the SQL spelling of the operator.
func (op Op) String() string {
	if int(op) < len(opSQL) {
		return opSQL[op]
	}
	return "?"
}

// Equals is field = value.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// Compare is field op value.
type Compare struct {
	Field string
	Op    Op
	Value any
}

func (Compare) predicateNode() {}

// And holds when every predicate holds. An empty And always holds.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Where is shorthand for the conjunction of ps.
func Where(ps ...Predicate) Predicate {
	if len(ps) == 1 {
		return ps[0]
	}
	return And{Predicates: ps}
}
