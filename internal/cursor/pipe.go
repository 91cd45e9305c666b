package cursor

// pipeStepper concatenates the inner cursors opened for each key of outer.
// inner is the cursor holding the stepper's position; off counts outer keys
// stepped past inner's key while looking for a non-empty inner cursor.
type pipeStepper[K, T any] struct {
	outer Cursor[K]
	open  func(K) (Cursor[T], error)
	inner Cursor[T]
	off   int
}

func (s *pipeStepper[K, T]) forward() (T, bool, error) {
	var zero T
	for ; s.off < 0; s.off++ {
		if _, err := s.outer.Next(); err != nil {
			return zero, false, err
		}
	}
	if s.inner != nil && s.off == 0 {
		if s.inner.HasNext() {
			v, err := s.inner.Next()
			return v, err == nil, err
		}
		if err := s.inner.Err(); err != nil {
			return zero, false, err
		}
	}
	for s.outer.HasNext() {
		k, err := s.outer.Next()
		if err != nil {
			return zero, false, err
		}
		s.off++
		c, err := s.open(k)
		if err != nil {
			return zero, false, err
		}
		if !c.HasNext() {
			err := c.Err()
			if cerr := c.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return zero, false, err
			}
			continue
		}
		v, err := c.Next()
		if err != nil {
			_ = c.Close()
			return zero, false, err
		}
		if err := s.swap(c); err != nil {
			return zero, false, err
		}
		return v, true, nil
	}
	return zero, false, s.outer.Err()
}

func (s *pipeStepper[K, T]) backward() (T, bool, error) {
	var zero T
	for ; s.off > 0; s.off-- {
		if _, err := s.outer.Prev(); err != nil {
			return zero, false, err
		}
	}
	if s.inner != nil && s.off == 0 {
		if s.inner.HasPrev() {
			v, err := s.inner.Prev()
			return v, err == nil, err
		}
		if err := s.inner.Err(); err != nil {
			return zero, false, err
		}
	}
	for s.outer.HasPrev() {
		k, err := s.outer.Prev()
		if err != nil {
			return zero, false, err
		}
		s.off--
		c, err := s.open(k)
		if err != nil {
			return zero, false, err
		}
		v, ok, err := last(c)
		if err != nil || !ok {
			if cerr := c.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return zero, false, err
			}
			continue
		}
		if err := s.swap(c); err != nil {
			return zero, false, err
		}
		return v, true, nil
	}
	return zero, false, s.outer.Err()
}

// swap makes c the positioned inner cursor.
func (s *pipeStepper[K, T]) swap(c Cursor[T]) error {
	s.off = 0
	old := s.inner
	s.inner = c
	if old != nil {
		return old.Close()
	}
	return nil
}

// last runs c forward to its final element.
func last[T any](c Cursor[T]) (T, bool, error) {
	var v T
	ok := false
	for c.HasNext() {
		x, err := c.Next()
		if err != nil {
			return v, false, err
		}
		v, ok = x, true
	}
	return v, ok, c.Err()
}

func (s *pipeStepper[K, T]) close() error {
	var err error
	if s.inner != nil {
		err = s.inner.Close()
	}
	if oerr := s.outer.Close(); err == nil {
		err = oerr
	}
	return err
}

// Pipe returns the concatenation of open(k) for every key k of outer, in
// outer order. Inner cursors are opened lazily and closed as soon as
// iteration leaves them.
func Pipe[K, T any](outer Cursor[K], open func(K) (Cursor[T], error)) Cursor[T] {
	return newLookahead[T](&pipeStepper[K, T]{outer: outer, open: open})
}
