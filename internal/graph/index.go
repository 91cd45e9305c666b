package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/hgq/internal/cursor"
	"github.com/roach88/hgq/internal/ir"
)

// IndexKind selects what an index is keyed by.
type IndexKind uint8

const (
	// ByPart indexes atoms of a type by the value at a record path.
	ByPart IndexKind = iota + 1
	// ByTarget indexes links of a type by the target at one position.
	ByTarget
	// DirectValue indexes atoms of a type by their whole value.
	DirectValue
)

func (k IndexKind) String() string {
	switch k {
	case ByPart:
		return "by-part"
	case ByTarget:
		return "by-target"
	case DirectValue:
		return "direct-value"
	default:
		return fmt.Sprintf("IndexKind(%d)", uint8(k))
	}
}

// ParseIndexKind parses the String form of an IndexKind.
func ParseIndexKind(s string) (IndexKind, error) {
	switch s {
	case "by-part", "part":
		return ByPart, nil
	case "by-target", "target":
		return ByTarget, nil
	case "direct-value", "value":
		return DirectValue, nil
	}
	return 0, fmt.Errorf("unknown index kind %q", s)
}

// Indexer describes an index. Two indexers with the same Key describe the
// same physical index.
type Indexer struct {
	Kind IndexKind
	Type Handle
	// Path is the record path of a ByPart index.
	Path []string
	// Position is the target position of a ByTarget index.
	Position int
}

// Key is a stable identity for the indexer.
func (ix Indexer) Key() string {
	switch ix.Kind {
	case ByPart:
		return fmt.Sprintf("%s/%s/%s", ix.Kind, ix.Type, strings.Join(ix.Path, "."))
	case ByTarget:
		return fmt.Sprintf("%s/%s/%d", ix.Kind, ix.Type, ix.Position)
	default:
		return fmt.Sprintf("%s/%s", ix.Kind, ix.Type)
	}
}

func (ix Indexer) String() string { return ix.Key() }

// Sorted reports whether the index answers ordering operators. Target
// indexes are keyed by handles and support only equality.
func (ix Indexer) Sorted() bool { return ix.Kind != ByTarget }

// Index is a searchable index. Handles returned by Find are in handle order.
type Index interface {
	Indexer() Indexer
	// Find returns the atoms whose key k satisfies k op key.
	Find(ctx context.Context, op Operator, key ir.Value) (cursor.RandomAccess[Handle], error)
	// Count returns the number of atoms under key.
	Count(ctx context.Context, key ir.Value) (int64, error)
	// ScanKeys returns the distinct keys in key order.
	ScanKeys(ctx context.Context) (cursor.Cursor[ir.Value], error)
}

// TargetKey is the index key of a target handle in a ByTarget index.
func TargetKey(h Handle) ir.Value { return ir.String(h.String()) }
