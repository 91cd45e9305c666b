package cursor

import "slices"

// iterCursor adapts a producer function to a forward-only Cursor.
type iterCursor[T any] struct {
	next    func() (T, bool, error)
	release func() error

	cur, peek T
	on        bool
	peeked    bool
	done      bool
	err       error
	closed    bool
}

// Iterator returns a forward-only cursor over the values produced by next.
// next reports false once the sequence is exhausted. release, if not nil,
// is called once on Close. HasPrev is always false and Prev fails with
// ErrUnsupported.
func Iterator[T any](next func() (T, bool, error), release func() error) Cursor[T] {
	return &iterCursor[T]{next: next, release: release}
}

func (c *iterCursor[T]) HasNext() bool {
	if c.closed || c.done || c.err != nil {
		return false
	}
	if c.peeked {
		return true
	}
	v, ok, err := c.next()
	if err != nil {
		c.err = err
		return false
	}
	if !ok {
		c.done = true
		return false
	}
	c.peek, c.peeked = v, true
	return true
}

func (c *iterCursor[T]) Next() (T, error) {
	var zero T
	if c.closed {
		return zero, ErrClosed
	}
	if !c.HasNext() {
		if c.err != nil {
			return zero, c.err
		}
		return zero, ErrNoElement
	}
	c.cur, c.on, c.peeked = c.peek, true, false
	return c.cur, nil
}

func (c *iterCursor[T]) HasPrev() bool { return false }

func (c *iterCursor[T]) Prev() (T, error) {
	var zero T
	return zero, ErrUnsupported
}

func (c *iterCursor[T]) Current() (T, error) {
	var zero T
	if c.closed {
		return zero, ErrClosed
	}
	if !c.on {
		return zero, ErrNoElement
	}
	return c.cur, nil
}

func (c *iterCursor[T]) Err() error { return c.err }

func (c *iterCursor[T]) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.release != nil {
		return c.release()
	}
	return nil
}

func sortUnique[T any](items []T, cmp Compare[T]) []T {
	slices.SortFunc(items, cmp)
	return slices.CompactFunc(items, func(a, b T) bool { return cmp(a, b) == 0 })
}
