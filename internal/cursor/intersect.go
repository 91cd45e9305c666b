package cursor

// intersectStepper intersects two ordered sides by leapfrogging: each side
// is sought to the other's candidate until both agree.
type intersectStepper[T any] struct {
	a, b side[T]
	cmp  Compare[T]
	at   anchor[T]
}

func (s *intersectStepper[T]) anchor(p position, v T) { s.at.set(p, v) }

func (s *intersectStepper[T]) forward() (T, bool, error) {
	var zero T
	if s.at.pos == posAfter {
		return zero, false, nil
	}
	return s.leapFwd(s.at.v, s.at.pos == posOn, true)
}

// leapFwd returns the first common element after target.
func (s *intersectStepper[T]) leapFwd(target T, hasT, strict bool) (T, bool, error) {
	var zero T
	for {
		x, ok, err := s.a.seekFwd(target, hasT, strict)
		if err != nil || !ok {
			return zero, false, err
		}
		y, ok, err := s.b.seekFwd(x, true, false)
		if err != nil || !ok {
			return zero, false, err
		}
		if s.cmp(x, y) == 0 {
			s.at.set(posOn, x)
			return x, true, nil
		}
		target, hasT, strict = y, true, false
	}
}

func (s *intersectStepper[T]) backward() (T, bool, error) {
	var zero T
	if s.at.pos == posBefore {
		return zero, false, nil
	}
	target, hasT, strict := s.at.v, s.at.pos == posOn, true
	for {
		x, ok, err := s.a.seekBwd(target, hasT, strict)
		if err != nil || !ok {
			return zero, false, err
		}
		y, ok, err := s.b.seekBwd(x, true, false)
		if err != nil || !ok {
			return zero, false, err
		}
		if s.cmp(x, y) == 0 {
			s.at.set(posOn, x)
			return x, true, nil
		}
		target, hasT, strict = y, true, false
	}
}

func (s *intersectStepper[T]) close() error {
	err := s.a.close()
	if berr := s.b.close(); err == nil {
		err = berr
	}
	return err
}

// MergeIntersect returns the elements common to two ordered cursors by
// advancing them in lockstep. Cost is linear in the size of both inputs.
func MergeIntersect[T any](a, b Cursor[T], cmp Compare[T]) Cursor[T] {
	return newLookahead[T](&intersectStepper[T]{
		a:   newLinearSide(a, cmp),
		b:   newLinearSide(b, cmp),
		cmp: cmp,
	})
}

type zigZag[T any] struct {
	*lookahead[T]
	st  *intersectStepper[T]
	cmp Compare[T]
}

// ZigZag returns the elements common to two random access cursors. Each
// side is sought to the other's current element, so cost is proportional
// to the number of seeks rather than to the size of the inputs. The result
// is itself random access.
func ZigZag[T any](a, b RandomAccess[T], cmp Compare[T]) RandomAccess[T] {
	st := &intersectStepper[T]{a: &seekSide[T]{c: a}, b: &seekSide[T]{c: b}, cmp: cmp}
	return &zigZag[T]{lookahead: newLookahead[T](st), st: st, cmp: cmp}
}

func (z *zigZag[T]) Seek(v T, exact bool) (SeekResult, error) {
	if z.closed {
		return SeekNothing, ErrClosed
	}
	x, ok, err := z.st.leapFwd(v, true, false)
	if err != nil || !ok {
		return SeekNothing, err
	}
	found := z.cmp(x, v) == 0
	if exact && !found {
		return SeekNothing, nil
	}
	z.reset(posOn, x)
	if found {
		return SeekFound, nil
	}
	return SeekClose, nil
}

func (z *zigZag[T]) GoBeforeFirst() {
	var zero T
	z.reset(posBefore, zero)
}

func (z *zigZag[T]) GoAfterLast() {
	var zero T
	z.reset(posAfter, zero)
}

// Materialize drains c into memory and returns a random access cursor over
// the sorted, deduplicated elements. c is closed.
func Materialize[T any](c Cursor[T], cmp Compare[T]) (RandomAccess[T], error) {
	items, err := Collect(c)
	if err != nil {
		return nil, err
	}
	return FromSorted(sortUnique(items, cmp), cmp), nil
}
