package cursor

// side is one input of a value-driven combinator (union or intersection).
// seekFwd returns the smallest element greater than v (strict) or not less
// than v, and the largest such element below v for seekBwd. With hasV false
// they return the first or last element. The input is left positioned on
// the returned element.
type side[T any] interface {
	seekFwd(v T, hasV, strict bool) (T, bool, error)
	seekBwd(v T, hasV, strict bool) (T, bool, error)
	close() error
}

// neighbour records what is known about the element adjacent to a linear
// side's current element.
type neighbour[T any] struct {
	known bool
	none  bool
	v     T
}

// linearSide answers seeks by stepping an ordinary cursor. lo and hi cache
// the current element's neighbours so that repeated seeks in one direction
// do not probe backwards.
type linearSide[T any] struct {
	c      Cursor[T]
	cmp    Compare[T]
	on     bool
	cur    T
	lo, hi neighbour[T]
}

func newLinearSide[T any](c Cursor[T], cmp Compare[T]) *linearSide[T] {
	return &linearSide[T]{c: c, cmp: cmp}
}

func after[T any](cmp Compare[T], v T, hasV, strict bool) func(T) bool {
	return func(x T) bool {
		if !hasV {
			return true
		}
		c := cmp(x, v)
		return c > 0 || (c == 0 && !strict)
	}
}

func before[T any](cmp Compare[T], v T, hasV, strict bool) func(T) bool {
	return func(x T) bool {
		if !hasV {
			return true
		}
		c := cmp(x, v)
		return c < 0 || (c == 0 && !strict)
	}
}

func (s *linearSide[T]) seekFwd(v T, hasV, strict bool) (T, bool, error) {
	var zero T
	ok := after(s.cmp, v, hasV, strict)
	if s.on && ok(s.cur) {
		for {
			if s.lo.known && (s.lo.none || !ok(s.lo.v)) {
				return s.cur, true, nil
			}
			if !s.c.HasPrev() {
				if err := s.c.Err(); err != nil {
					return zero, false, err
				}
				s.lo = neighbour[T]{known: true, none: true}
				return s.cur, true, nil
			}
			p, err := s.c.Prev()
			if err != nil {
				return zero, false, err
			}
			if !ok(p) {
				if _, err := s.c.Next(); err != nil {
					return zero, false, err
				}
				s.lo = neighbour[T]{known: true, v: p}
				return s.cur, true, nil
			}
			s.hi = neighbour[T]{known: true, v: s.cur}
			s.cur, s.lo = p, neighbour[T]{}
		}
	}
	for {
		if s.on && s.hi.known && s.hi.none {
			return zero, false, nil
		}
		if !s.c.HasNext() {
			if err := s.c.Err(); err != nil {
				return zero, false, err
			}
			if s.on {
				s.hi = neighbour[T]{known: true, none: true}
			}
			return zero, false, nil
		}
		x, err := s.c.Next()
		if err != nil {
			return zero, false, err
		}
		s.lo = neighbour[T]{known: true, none: !s.on, v: s.cur}
		s.hi = neighbour[T]{}
		s.cur, s.on = x, true
		if ok(x) {
			return x, true, nil
		}
	}
}

func (s *linearSide[T]) seekBwd(v T, hasV, strict bool) (T, bool, error) {
	var zero T
	ok := before(s.cmp, v, hasV, strict)
	if s.on && ok(s.cur) {
		for {
			if s.hi.known && (s.hi.none || !ok(s.hi.v)) {
				return s.cur, true, nil
			}
			if !s.c.HasNext() {
				if err := s.c.Err(); err != nil {
					return zero, false, err
				}
				s.hi = neighbour[T]{known: true, none: true}
				return s.cur, true, nil
			}
			n, err := s.c.Next()
			if err != nil {
				return zero, false, err
			}
			if !ok(n) {
				if _, err := s.c.Prev(); err != nil {
					return zero, false, err
				}
				s.hi = neighbour[T]{known: true, v: n}
				return s.cur, true, nil
			}
			s.lo = neighbour[T]{known: true, v: s.cur}
			s.cur, s.hi = n, neighbour[T]{}
		}
	}
	for {
		if s.on && s.lo.known && s.lo.none {
			return zero, false, nil
		}
		if !s.c.HasPrev() {
			if err := s.c.Err(); err != nil {
				return zero, false, err
			}
			if s.on {
				s.lo = neighbour[T]{known: true, none: true}
			}
			return zero, false, nil
		}
		x, err := s.c.Prev()
		if err != nil {
			return zero, false, err
		}
		s.hi = neighbour[T]{known: true, none: !s.on, v: s.cur}
		s.lo = neighbour[T]{}
		s.cur, s.on = x, true
		if ok(x) {
			return x, true, nil
		}
	}
}

func (s *linearSide[T]) close() error { return s.c.Close() }

// seekSide answers seeks with RandomAccess.Seek.
type seekSide[T any] struct {
	c RandomAccess[T]
}

func (s *seekSide[T]) seekFwd(v T, hasV, strict bool) (T, bool, error) {
	if !hasV {
		s.c.GoBeforeFirst()
		return s.step(true)
	}
	res, err := s.c.Seek(v, false)
	if err != nil || res == SeekNothing {
		var zero T
		return zero, false, err
	}
	if res == SeekFound && strict {
		return s.step(true)
	}
	x, err := s.c.Current()
	return x, err == nil, err
}

func (s *seekSide[T]) seekBwd(v T, hasV, strict bool) (T, bool, error) {
	if !hasV {
		s.c.GoAfterLast()
		return s.step(false)
	}
	res, err := s.c.Seek(v, false)
	if err != nil {
		var zero T
		return zero, false, err
	}
	switch res {
	case SeekNothing:
		s.c.GoAfterLast()
	case SeekFound:
		if !strict {
			x, err := s.c.Current()
			return x, err == nil, err
		}
	}
	return s.step(false)
}

func (s *seekSide[T]) step(forward bool) (T, bool, error) {
	var zero T
	if forward {
		if !s.c.HasNext() {
			return zero, false, s.c.Err()
		}
		x, err := s.c.Next()
		return x, err == nil, err
	}
	if !s.c.HasPrev() {
		return zero, false, s.c.Err()
	}
	x, err := s.c.Prev()
	return x, err == nil, err
}

func (s *seekSide[T]) close() error { return s.c.Close() }

// anchor is the position a value-driven stepper computes its next element
// from.
type anchor[T any] struct {
	pos position
	v   T
}

func (a *anchor[T]) set(p position, v T) {
	var zero T
	if p != posOn {
		v = zero
	}
	a.pos, a.v = p, v
}
