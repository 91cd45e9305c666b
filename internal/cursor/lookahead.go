package cursor

import "errors"

// position is the logical position of a lookahead cursor.
type position uint8

const (
	posBefore position = iota
	posOn
	posAfter
)

// stepper produces the elements a lookahead cursor exposes. forward and
// backward move one element in their direction and return it. A step that
// finds no element reports false and must leave the stepper where it was.
type stepper[T any] interface {
	forward() (T, bool, error)
	backward() (T, bool, error)
	close() error
}

// anchoredStepper is implemented by steppers that compute their next
// element from a value rather than from their own position. The lookahead
// anchors them on the logical position before every step instead of
// undoing a peek.
type anchoredStepper[T any] interface {
	stepper[T]
	anchor(p position, cur T)
}

var errLostPosition = errors.New("cursor: stepper could not return to the current element")

// lookahead adapts a stepper to the Cursor contract. It holds the logical
// current element plus at most one peeked neighbour, so HasNext and HasPrev
// can be called any number of times without moving the logical position.
//
// For steppers that are not anchored, peekDir is also the stepper's offset
// from the logical current element: +1 after a forward peek, -1 after a
// backward peek.
type lookahead[T any] struct {
	st       stepper[T]
	anchored anchoredStepper[T]

	pos     position
	cur     T
	peek    T
	peekDir int

	err    error
	closed bool
}

func newLookahead[T any](st stepper[T]) *lookahead[T] {
	l := &lookahead[T]{st: st}
	if a, ok := st.(anchoredStepper[T]); ok {
		l.anchored = a
	}
	return l
}

// align prepares the stepper for a step in direction dir.
func (l *lookahead[T]) align(dir int) error {
	if l.anchored != nil {
		l.anchored.anchor(l.pos, l.cur)
		l.peekDir = 0
		return nil
	}
	if l.peekDir != -dir {
		return nil
	}
	var ok bool
	var err error
	if dir > 0 {
		_, ok, err = l.st.forward()
	} else {
		_, ok, err = l.st.backward()
	}
	if err != nil {
		return err
	}
	if !ok {
		return errLostPosition
	}
	l.peekDir = 0
	return nil
}

func (l *lookahead[T]) HasNext() bool {
	if l.closed || l.err != nil || l.pos == posAfter {
		return false
	}
	if l.peekDir > 0 {
		return true
	}
	if err := l.align(1); err != nil {
		l.err = err
		return false
	}
	v, ok, err := l.st.forward()
	if err != nil {
		l.err = err
		return false
	}
	if !ok {
		return false
	}
	l.peek, l.peekDir = v, 1
	return true
}

func (l *lookahead[T]) Next() (T, error) {
	var zero T
	if l.closed {
		return zero, ErrClosed
	}
	if !l.HasNext() {
		if l.err != nil {
			return zero, l.err
		}
		return zero, ErrNoElement
	}
	l.cur, l.pos, l.peekDir = l.peek, posOn, 0
	return l.cur, nil
}

func (l *lookahead[T]) HasPrev() bool {
	if l.closed || l.err != nil || l.pos == posBefore {
		return false
	}
	if l.peekDir < 0 {
		return true
	}
	if err := l.align(-1); err != nil {
		l.err = err
		return false
	}
	v, ok, err := l.st.backward()
	if err != nil {
		l.err = err
		return false
	}
	if !ok {
		return false
	}
	l.peek, l.peekDir = v, -1
	return true
}

func (l *lookahead[T]) Prev() (T, error) {
	var zero T
	if l.closed {
		return zero, ErrClosed
	}
	if !l.HasPrev() {
		if l.err != nil {
			return zero, l.err
		}
		return zero, ErrNoElement
	}
	l.cur, l.pos, l.peekDir = l.peek, posOn, 0
	return l.cur, nil
}

func (l *lookahead[T]) Current() (T, error) {
	var zero T
	if l.closed {
		return zero, ErrClosed
	}
	if l.pos != posOn {
		return zero, ErrNoElement
	}
	return l.cur, nil
}

func (l *lookahead[T]) Err() error { return l.err }

func (l *lookahead[T]) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	return l.st.close()
}

// reset moves the logical position without stepping. Callers of reset on
// unanchored steppers must already have moved the stepper to match.
func (l *lookahead[T]) reset(p position, cur T) {
	var zero T
	if p != posOn {
		cur = zero
	}
	l.pos, l.cur, l.peek, l.peekDir = p, cur, zero, 0
}
