package graph

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// Handle is the stable identity of an atom. New handles are UUIDv7, so
// handles created later sort after earlier ones.
type Handle uuid.UUID

// AnyHandle is the wildcard handle. In link conditions it matches any
// target at its position.
var AnyHandle = Handle(uuid.Max)

// NewHandle returns a fresh time-ordered handle.
func NewHandle() Handle {
	return Handle(uuid.Must(uuid.NewV7()))
}

// ParseHandle parses the canonical textual form of a handle.
func ParseHandle(s string) (Handle, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Handle{}, fmt.Errorf("parse handle %q: %w", s, err)
	}
	return Handle(u), nil
}

// MustParseHandle is ParseHandle for handles known to be valid.
func MustParseHandle(s string) Handle {
	h, err := ParseHandle(s)
	if err != nil {
		panic(err)
	}
	return h
}

func (h Handle) String() string { return uuid.UUID(h).String() }

// IsZero reports whether h is the zero handle, which never names an atom.
func (h Handle) IsZero() bool { return h == Handle{} }

// IsAny reports whether h is the wildcard.
func (h Handle) IsAny() bool { return h == AnyHandle }

func (h Handle) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *Handle) UnmarshalText(b []byte) error {
	p, err := ParseHandle(string(b))
	if err != nil {
		return err
	}
	*h = p
	return nil
}

// Compare orders handles bytewise. It is the order of every ordered
// handle cursor.
func Compare(a, b Handle) int {
	return bytes.Compare(a[:], b[:])
}

// fixed returns a predefined handle. Predefined handles sort before every
// handle created by NewHandle.
func fixed(n byte) Handle {
	var h Handle
	h[15] = n
	return h
}
