package cursor

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by cursors.
var (
	// ErrNoElement is returned by Next, Prev and Current when there is no
	// element in the requested position.
	ErrNoElement = errors.New("cursor: no element")

	// ErrUnsupported is returned by forward-only cursors on backward moves.
	ErrUnsupported = errors.New("cursor: operation not supported")

	// ErrClosed is returned by any move on a closed cursor.
	ErrClosed = errors.New("cursor: closed")
)

// Cursor is a stateful bidirectional iterator over an ordered or unordered
// sequence. See the package documentation for the full contract.
type Cursor[T any] interface {
	HasNext() bool
	Next() (T, error)
	HasPrev() bool
	Prev() (T, error)
	Current() (T, error)
	// Err returns the first failure observed by HasNext or HasPrev.
	Err() error
	Close() error
}

// SeekResult is the outcome of RandomAccess.Seek.
type SeekResult uint8

const (
	// SeekNothing means no element at or after the target exists (or, for
	// exact seeks, the target itself is absent). The position is unchanged.
	SeekNothing SeekResult = iota
	// SeekFound means the cursor is positioned on the target.
	SeekFound
	// SeekClose means the cursor is positioned on the smallest element
	// greater than the target.
	SeekClose
)

func (r SeekResult) String() string {
	switch r {
	case SeekNothing:
		return "nothing"
	case SeekFound:
		return "found"
	case SeekClose:
		return "close"
	default:
		return fmt.Sprintf("SeekResult(%d)", uint8(r))
	}
}

// RandomAccess is an ordered Cursor that can be positioned by value in
// sub-linear time.
type RandomAccess[T any] interface {
	Cursor[T]
	// Seek positions the cursor on v, or with exact false on the smallest
	// element greater than v when v is absent.
	Seek(v T, exact bool) (SeekResult, error)
	GoBeforeFirst()
	GoAfterLast()
}

// Compare orders cursor elements. It returns a negative number when a
// sorts before b, zero when they are equal and a positive number otherwise.
type Compare[T any] func(a, b T) int

// Collect drains c from its current position forward and closes it.
func Collect[T any](c Cursor[T]) (out []T, err error) {
	defer func() {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}()
	for c.HasNext() {
		v, err := c.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Count drains c and returns the number of elements seen. c is closed.
func Count[T any](c Cursor[T]) (n int64, err error) {
	defer func() {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}()
	for c.HasNext() {
		if _, err := c.Next(); err != nil {
			return 0, err
		}
		n++
	}
	return n, c.Err()
}

// CollectBackward drains c from its current position backward and closes
// it. Elements are returned in the order they were visited.
func CollectBackward[T any](c Cursor[T]) (out []T, err error) {
	defer func() {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}()
	for c.HasPrev() {
		v, err := c.Prev()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
