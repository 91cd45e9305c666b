package graph

import (
	"fmt"

	"github.com/roach88/hgq/internal/ir"
)

// Atom is a node or link of the graph.
type Atom struct {
	Handle Handle
	Type   Handle
	// Value is the atom's value. Links without a value carry ir.Null.
	Value ir.Value
	// Targets is the ordered target tuple of a link. Empty for nodes.
	Targets []Handle
}

// Arity is the number of targets.
func (a Atom) Arity() int { return len(a.Targets) }

// IsLink reports whether a has at least one target.
func (a Atom) IsLink() bool { return len(a.Targets) > 0 }

// Type describes a type atom.
type Type struct {
	Handle Handle
	Name   string
	// Kind is the value kind of atoms of this type. Link types use
	// ir.KindNull when their links carry no value.
	Kind ir.Kind
	// Ordered reports whether ordering operators are meaningful for values
	// of this type. Equality is always supported.
	Ordered bool
	// Link reports whether atoms of this type are links.
	Link bool
	// Parts maps record slots to the types of their values.
	Parts map[string]Handle
}

func (t Type) String() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Handle.String()
}

// Predefined type handles.
var (
	// TypeType is the type of type atoms.
	TypeType = fixed(1)
	// SubsumesType is the link type recording subtyping. Its links target
	// [general, specific].
	SubsumesType = fixed(2)

	TypeBool   = fixed(3)
	TypeInt    = fixed(4)
	TypeString = fixed(5)
	TypeList   = fixed(6)
	TypeRecord = fixed(7)
	// TypeLink is the type of plain links without a value.
	TypeLink = fixed(8)
)

// Builtins returns the predefined types every graph starts with.
func Builtins() []Type {
	return []Type{
		{Handle: TypeType, Name: "type", Kind: ir.KindString, Ordered: true},
		{Handle: SubsumesType, Name: "subsumes", Kind: ir.KindNull, Link: true},
		{Handle: TypeBool, Name: "bool", Kind: ir.KindBool, Ordered: true},
		{Handle: TypeInt, Name: "int", Kind: ir.KindInt, Ordered: true},
		{Handle: TypeString, Name: "string", Kind: ir.KindString, Ordered: true},
		{Handle: TypeList, Name: "list", Kind: ir.KindList},
		{Handle: TypeRecord, Name: "record", Kind: ir.KindRecord},
		{Handle: TypeLink, Name: "link", Kind: ir.KindNull, Link: true},
	}
}

// Operator is a comparison between an atom's value and a condition value.
type Operator uint8

const (
	EQ Operator = iota
	LT
	GT
	LTE
	GTE
)

var operatorNames = [...]string{EQ: "=", LT: "<", GT: ">", LTE: "<=", GTE: ">="}

func (op Operator) String() string {
	if int(op) < len(operatorNames) {
		return operatorNames[op]
	}
	return fmt.Sprintf("Operator(%d)", uint8(op))
}

// ParseOperator accepts the symbolic form ("<=") or the name ("lte").
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "=", "==", "eq", "EQ", "":
		return EQ, nil
	case "<", "lt", "LT":
		return LT, nil
	case ">", "gt", "GT":
		return GT, nil
	case "<=", "lte", "LTE":
		return LTE, nil
	case ">=", "gte", "GTE":
		return GTE, nil
	}
	return EQ, fmt.Errorf("unknown operator %q", s)
}

// Holds reports whether a value comparing c against the condition value
// (c as returned by ir.Compare(value, key)) satisfies op.
func (op Operator) Holds(c int) bool {
	switch op {
	case EQ:
		return c == 0
	case LT:
		return c < 0
	case GT:
		return c > 0
	case LTE:
		return c <= 0
	case GTE:
		return c >= 0
	}
	return false
}

// Test reports whether value op key holds. Ordering operators never hold
// across value kinds.
func (op Operator) Test(value, key ir.Value) bool {
	if value == nil || key == nil {
		return false
	}
	if op != EQ && value.Kind() != key.Kind() {
		return false
	}
	return op.Holds(ir.Compare(value, key))
}
