package cursor

import "sort"

// sliceCursor iterates an in-memory slice. idx ranges over [-1, len(items)]
// where -1 is before the first element and len(items) after the last.
type sliceCursor[T any] struct {
	items  []T
	idx    int
	closed bool
}

// FromSlice returns a bidirectional cursor over items in slice order.
// The cursor does not copy items.
func FromSlice[T any](items []T) Cursor[T] {
	return &sliceCursor[T]{items: items, idx: -1}
}

func (c *sliceCursor[T]) HasNext() bool {
	return !c.closed && c.idx+1 < len(c.items)
}

func (c *sliceCursor[T]) Next() (T, error) {
	var zero T
	if c.closed {
		return zero, ErrClosed
	}
	if !c.HasNext() {
		return zero, ErrNoElement
	}
	c.idx++
	return c.items[c.idx], nil
}

func (c *sliceCursor[T]) HasPrev() bool {
	return !c.closed && c.idx > 0
}

func (c *sliceCursor[T]) Prev() (T, error) {
	var zero T
	if c.closed {
		return zero, ErrClosed
	}
	if !c.HasPrev() {
		return zero, ErrNoElement
	}
	c.idx--
	return c.items[c.idx], nil
}

func (c *sliceCursor[T]) Current() (T, error) {
	var zero T
	if c.closed {
		return zero, ErrClosed
	}
	if c.idx < 0 || c.idx >= len(c.items) {
		return zero, ErrNoElement
	}
	return c.items[c.idx], nil
}

func (c *sliceCursor[T]) Err() error { return nil }

func (c *sliceCursor[T]) Close() error {
	c.closed = true
	return nil
}

func (c *sliceCursor[T]) GoBeforeFirst() { c.idx = -1 }

func (c *sliceCursor[T]) GoAfterLast() { c.idx = len(c.items) }

// sortedCursor is a sliceCursor over items sorted by cmp without duplicates.
type sortedCursor[T any] struct {
	sliceCursor[T]
	cmp Compare[T]
}

// FromSorted returns a random access cursor over items, which must be
// sorted ascending by cmp and free of duplicates. Seek is a binary search.
func FromSorted[T any](items []T, cmp Compare[T]) RandomAccess[T] {
	return &sortedCursor[T]{sliceCursor: sliceCursor[T]{items: items, idx: -1}, cmp: cmp}
}

func (c *sortedCursor[T]) Seek(v T, exact bool) (SeekResult, error) {
	if c.closed {
		return SeekNothing, ErrClosed
	}
	i := sort.Search(len(c.items), func(i int) bool { return c.cmp(c.items[i], v) >= 0 })
	if i == len(c.items) {
		return SeekNothing, nil
	}
	if c.cmp(c.items[i], v) == 0 {
		c.idx = i
		return SeekFound, nil
	}
	if exact {
		return SeekNothing, nil
	}
	c.idx = i
	return SeekClose, nil
}

// Empty returns a cursor with no elements. It satisfies RandomAccess so it
// can stand in for any input of a combinator.
func Empty[T any]() RandomAccess[T] {
	return &sortedCursor[T]{sliceCursor: sliceCursor[T]{idx: -1}, cmp: func(T, T) int { return 0 }}
}
