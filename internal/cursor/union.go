package cursor

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// unionStepper merges two ordered sides. Each step asks both sides for
// their neighbour of the anchor and yields the nearer one, so elements
// present on both sides come out once.
type unionStepper[T any] struct {
	a, b  side[T]
	cmp   Compare[T]
	at    anchor[T]
	group func(fa, fb func() error) error
}

func (u *unionStepper[T]) anchor(p position, v T) { u.at.set(p, v) }

func (u *unionStepper[T]) forward() (T, bool, error) {
	var zero T
	if u.at.pos == posAfter {
		return zero, false, nil
	}
	hasV := u.at.pos == posOn
	x, okx, y, oky, err := u.both(
		func(s side[T]) (T, bool, error) { return s.seekFwd(u.at.v, hasV, true) })
	if err != nil {
		return zero, false, err
	}
	v, ok := pick(u.cmp, x, okx, y, oky, func(c int) bool { return c < 0 })
	if ok {
		u.at.set(posOn, v)
	}
	return v, ok, nil
}

func (u *unionStepper[T]) backward() (T, bool, error) {
	var zero T
	if u.at.pos == posBefore {
		return zero, false, nil
	}
	hasV := u.at.pos == posOn
	x, okx, y, oky, err := u.both(
		func(s side[T]) (T, bool, error) { return s.seekBwd(u.at.v, hasV, true) })
	if err != nil {
		return zero, false, err
	}
	v, ok := pick(u.cmp, x, okx, y, oky, func(c int) bool { return c > 0 })
	if ok {
		u.at.set(posOn, v)
	}
	return v, ok, nil
}

// both runs seek on each side, concurrently when the stepper has a group.
func (u *unionStepper[T]) both(seek func(side[T]) (T, bool, error)) (x T, okx bool, y T, oky bool, err error) {
	fa := func() (err error) { x, okx, err = seek(u.a); return err }
	fb := func() (err error) { y, oky, err = seek(u.b); return err }
	if u.group != nil {
		err = u.group(fa, fb)
		return
	}
	if err = fa(); err != nil {
		return
	}
	err = fb()
	return
}

// pick returns the preferred of two optional values.
func pick[T any](cmp Compare[T], x T, okx bool, y T, oky bool, prefer func(int) bool) (T, bool) {
	switch {
	case okx && oky:
		if prefer(cmp(y, x)) {
			return y, true
		}
		return x, true
	case okx:
		return x, true
	case oky:
		return y, true
	}
	var zero T
	return zero, false
}

func (u *unionStepper[T]) close() error {
	err := u.a.close()
	if berr := u.b.close(); err == nil {
		err = berr
	}
	return err
}

// Union returns the ordered union of two ordered cursors. Each input must
// be free of duplicates; elements present in both appear once.
func Union[T any](a, b Cursor[T], cmp Compare[T]) Cursor[T] {
	return newLookahead[T](&unionStepper[T]{
		a:   newLinearSide(a, cmp),
		b:   newLinearSide(b, cmp),
		cmp: cmp,
	})
}

// AsyncUnion is Union with both sides advanced concurrently on every step.
// The two advances are joined before the merged element is produced, so
// consumers see an ordinary synchronous cursor. Once ctx is done every
// further step fails with the context error.
func AsyncUnion[T any](ctx context.Context, a, b Cursor[T], cmp Compare[T]) Cursor[T] {
	return newLookahead[T](&unionStepper[T]{
		a:   newLinearSide(a, cmp),
		b:   newLinearSide(b, cmp),
		cmp: cmp,
		group: func(fa, fb func() error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			g, _ := errgroup.WithContext(ctx)
			g.Go(fa)
			g.Go(fb)
			return g.Wait()
		},
	})
}
