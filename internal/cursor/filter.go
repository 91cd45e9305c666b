package cursor

// mapStepper walks an inner cursor and yields fn of every element for which
// fn reports true. off counts the inner steps taken past the stepper's own
// position: inner elements that were examined but rejected. It is undone
// before stepping in the opposite direction.
type mapStepper[T, U any] struct {
	inner Cursor[T]
	fn    func(T) (U, bool, error)
	off   int
}

func (s *mapStepper[T, U]) forward() (U, bool, error) {
	var zero U
	for ; s.off < 0; s.off++ {
		if _, err := s.inner.Next(); err != nil {
			return zero, false, err
		}
	}
	for s.inner.HasNext() {
		t, err := s.inner.Next()
		if err != nil {
			return zero, false, err
		}
		s.off++
		u, ok, err := s.fn(t)
		if err != nil {
			return zero, false, err
		}
		if ok {
			s.off = 0
			return u, true, nil
		}
	}
	return zero, false, s.inner.Err()
}

func (s *mapStepper[T, U]) backward() (U, bool, error) {
	var zero U
	for ; s.off > 0; s.off-- {
		if _, err := s.inner.Prev(); err != nil {
			return zero, false, err
		}
	}
	for s.inner.HasPrev() {
		t, err := s.inner.Prev()
		if err != nil {
			return zero, false, err
		}
		s.off--
		u, ok, err := s.fn(t)
		if err != nil {
			return zero, false, err
		}
		if ok {
			s.off = 0
			return u, true, nil
		}
	}
	return zero, false, s.inner.Err()
}

func (s *mapStepper[T, U]) close() error { return s.inner.Close() }

// Map returns a cursor over fn applied to every element of inner, skipping
// elements for which fn reports false. The result is not random access:
// fn need not preserve order.
func Map[T, U any](inner Cursor[T], fn func(T) (U, bool, error)) Cursor[U] {
	return newLookahead[U](&mapStepper[T, U]{inner: inner, fn: fn})
}

// Filter returns a cursor over the elements of inner that satisfy pred.
func Filter[T any](inner Cursor[T], pred func(T) (bool, error)) Cursor[T] {
	return newLookahead[T](&mapStepper[T, T]{inner: inner, fn: keep(pred)})
}

func keep[T any](pred func(T) (bool, error)) func(T) (T, bool, error) {
	return func(t T) (T, bool, error) {
		ok, err := pred(t)
		return t, ok, err
	}
}

// filterRA is a filtered random access cursor. Seek delegates to the inner
// cursor and scans forward when the element it lands on is rejected.
type filterRA[T any] struct {
	*lookahead[T]
	st   *mapStepper[T, T]
	ra   RandomAccess[T]
	pred func(T) (bool, error)
}

// FilterRA is Filter over a random access cursor. The result keeps random
// access.
func FilterRA[T any](inner RandomAccess[T], pred func(T) (bool, error)) RandomAccess[T] {
	st := &mapStepper[T, T]{inner: inner, fn: keep(pred)}
	return &filterRA[T]{lookahead: newLookahead[T](st), st: st, ra: inner, pred: pred}
}

func (f *filterRA[T]) Seek(v T, exact bool) (SeekResult, error) {
	if f.closed {
		return SeekNothing, ErrClosed
	}
	res, err := f.ra.Seek(v, exact)
	if err != nil || res == SeekNothing {
		return SeekNothing, err
	}
	x, err := f.ra.Current()
	if err != nil {
		return SeekNothing, err
	}
	ok, err := f.pred(x)
	if err != nil {
		return SeekNothing, err
	}
	if ok {
		f.st.off = 0
		f.reset(posOn, x)
		return res, nil
	}
	if !exact {
		f.st.off = 0
		y, found, err := f.st.forward()
		if err != nil {
			return SeekNothing, err
		}
		if found {
			f.reset(posOn, y)
			return SeekClose, nil
		}
	}
	return SeekNothing, f.restore()
}

// restore puts the inner cursor back on the logical position after a
// failed seek moved it.
func (f *filterRA[T]) restore() error {
	f.st.off = 0
	switch f.pos {
	case posBefore:
		f.ra.GoBeforeFirst()
	case posAfter:
		f.ra.GoAfterLast()
	default:
		res, err := f.ra.Seek(f.cur, true)
		if err != nil {
			return err
		}
		if res != SeekFound {
			return errLostPosition
		}
	}
	f.reset(f.pos, f.cur)
	return nil
}

func (f *filterRA[T]) GoBeforeFirst() {
	f.ra.GoBeforeFirst()
	f.st.off = 0
	var zero T
	f.reset(posBefore, zero)
}

func (f *filterRA[T]) GoAfterLast() {
	f.ra.GoAfterLast()
	f.st.off = 0
	var zero T
	f.reset(posAfter, zero)
}
