package cursor

import (
	"cmp"
	"errors"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var intCmp Compare[int] = cmp.Compare[int]

func ints(xs ...int) RandomAccess[int] { return FromSorted(xs, intCmp) }

// walk drains c forward, then backward, returning both sequences.
func walk(t *testing.T, c Cursor[int]) (fwd, bwd []int) {
	t.Helper()
	for c.HasNext() {
		v, err := c.Next()
		require.NoError(t, err)
		fwd = append(fwd, v)
	}
	require.NoError(t, c.Err())
	for c.HasPrev() {
		v, err := c.Prev()
		require.NoError(t, err)
		bwd = append(bwd, v)
	}
	require.NoError(t, c.Err())
	return fwd, bwd
}

func reversed(xs []int) []int {
	out := slices.Clone(xs)
	slices.Reverse(out)
	return out
}

// backwardFromLast is the expected backward walk after a full forward walk:
// every element but the last, in reverse.
func backwardFromLast(xs []int) []int {
	if len(xs) <= 1 {
		return nil
	}
	return reversed(xs[:len(xs)-1])
}

func randomSet(r *rand.Rand, n, max int) []int {
	seen := map[int]bool{}
	for i := 0; i < n; i++ {
		seen[r.Intn(max)] = true
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

func TestSortedCursor(t *testing.T) {
	c := ints(2, 4, 6)

	_, err := c.Current()
	assert.ErrorIs(t, err, ErrNoElement)
	assert.False(t, c.HasPrev())

	fwd, bwd := walk(t, c)
	assert.Equal(t, []int{2, 4, 6}, fwd)
	assert.Equal(t, []int{4, 2}, bwd)

	res, err := c.Seek(4, true)
	require.NoError(t, err)
	assert.Equal(t, SeekFound, res)
	cur, _ := c.Current()
	assert.Equal(t, 4, cur)

	res, err = c.Seek(5, true)
	require.NoError(t, err)
	assert.Equal(t, SeekNothing, res)
	cur, _ = c.Current()
	assert.Equal(t, 4, cur, "exact miss leaves the position unchanged")

	res, err = c.Seek(5, false)
	require.NoError(t, err)
	assert.Equal(t, SeekClose, res)
	cur, _ = c.Current()
	assert.Equal(t, 6, cur)

	res, err = c.Seek(7, false)
	require.NoError(t, err)
	assert.Equal(t, SeekNothing, res)

	c.GoAfterLast()
	assert.False(t, c.HasNext())
	v, err := c.Prev()
	require.NoError(t, err)
	assert.Equal(t, 6, v)

	require.NoError(t, c.Close())
	_, err = c.Next()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEmpty(t *testing.T) {
	c := Empty[int]()
	assert.False(t, c.HasNext())
	assert.False(t, c.HasPrev())
	res, err := c.Seek(1, false)
	require.NoError(t, err)
	assert.Equal(t, SeekNothing, res)
}

func TestHasNextDoesNotMove(t *testing.T) {
	c := Filter[int](ints(1, 2, 3, 4), func(v int) (bool, error) { return v%2 == 0, nil })
	for i := 0; i < 3; i++ {
		assert.True(t, c.HasNext())
	}
	v, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	for i := 0; i < 3; i++ {
		assert.True(t, c.HasNext())
		assert.False(t, c.HasPrev())
	}
	cur, err := c.Current()
	require.NoError(t, err)
	assert.Equal(t, 2, cur)
}

func TestFilterBothDirections(t *testing.T) {
	even := func(v int) (bool, error) { return v%2 == 0, nil }

	fwd, bwd := walk(t, Filter[int](ints(1, 2, 3, 4, 5, 6, 7, 8, 9), even))
	assert.Equal(t, []int{2, 4, 6, 8}, fwd)
	assert.Equal(t, []int{6, 4, 2}, bwd)

	c := Filter[int](ints(1, 2, 3, 4, 5, 6, 7, 8, 9, 10), even)
	_, _ = c.Next()
	v, _ := c.Next()
	assert.Equal(t, 4, v)
	assert.True(t, c.HasNext()) // peeks 6
	assert.True(t, c.HasPrev())
	v, err := c.Prev()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	v, err = c.Next()
	require.NoError(t, err)
	assert.Equal(t, 4, v)
	v, err = c.Next()
	require.NoError(t, err)
	assert.Equal(t, 6, v)
}

func TestFilterPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	c := Filter[int](ints(1, 2), func(v int) (bool, error) {
		if v == 2 {
			return false, boom
		}
		return false, nil
	})
	assert.False(t, c.HasNext())
	assert.ErrorIs(t, c.Err(), boom)
	_, err := c.Next()
	assert.ErrorIs(t, err, boom)
}

func TestFilterRASeek(t *testing.T) {
	even := func(v int) (bool, error) { return v%2 == 0, nil }
	c := FilterRA[int](ints(1, 2, 3, 4, 5, 6, 7, 8, 9, 10), even)

	res, err := c.Seek(5, false)
	require.NoError(t, err)
	assert.Equal(t, SeekClose, res)
	cur, _ := c.Current()
	assert.Equal(t, 6, cur)
	v, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, 8, v)
	v, err = c.Prev()
	require.NoError(t, err)
	assert.Equal(t, 6, v)

	res, err = c.Seek(4, true)
	require.NoError(t, err)
	assert.Equal(t, SeekFound, res)

	res, err = c.Seek(7, true)
	require.NoError(t, err)
	assert.Equal(t, SeekNothing, res)
	cur, _ = c.Current()
	assert.Equal(t, 4, cur, "failed seek restores the position")
	v, err = c.Next()
	require.NoError(t, err)
	assert.Equal(t, 6, v)

	c.GoBeforeFirst()
	v, err = c.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	c.GoAfterLast()
	v, err = c.Prev()
	require.NoError(t, err)
	assert.Equal(t, 10, v)
}

func TestMapSkipsUndefined(t *testing.T) {
	c := Map[int, string](ints(1, 2, 3, 4), func(v int) (string, bool, error) {
		if v == 3 {
			return "", false, nil
		}
		return string(rune('a' + v)), true, nil
	})
	got, err := Collect(c)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "e"}, got)
}

func TestPipe(t *testing.T) {
	open := func(k int) (Cursor[int], error) {
		if k == 2 {
			return Empty[int](), nil
		}
		return ints(k*10, k*10+1), nil
	}

	fwd, bwd := walk(t, Pipe[int, int](ints(1, 2, 3), open))
	assert.Equal(t, []int{10, 11, 30, 31}, fwd)
	assert.Equal(t, []int{30, 11, 10}, bwd)

	c := Pipe[int, int](ints(1, 2, 3), open)
	_, _ = c.Next()
	v, _ := c.Next()
	assert.Equal(t, 11, v)
	assert.True(t, c.HasNext())
	v, err := c.Prev()
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	v, err = c.Next()
	require.NoError(t, err)
	assert.Equal(t, 11, v)
	v, err = c.Next()
	require.NoError(t, err)
	assert.Equal(t, 30, v)
}

func TestPipeOpenError(t *testing.T) {
	boom := errors.New("boom")
	c := Pipe[int, int](ints(1), func(int) (Cursor[int], error) { return nil, boom })
	_, err := Collect(c)
	assert.ErrorIs(t, err, boom)
}

func TestUnion(t *testing.T) {
	fwd, bwd := walk(t, Union[int](ints(1, 3, 5), ints(2, 3, 6), intCmp))
	assert.Equal(t, []int{1, 2, 3, 5, 6}, fwd)
	assert.Equal(t, []int{5, 3, 2, 1}, bwd)

	fwd, _ = walk(t, Union[int](Empty[int](), ints(4), intCmp))
	assert.Equal(t, []int{4}, fwd)
}

func TestUnionMatchesSetUnion(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		a := randomSet(r, r.Intn(30), 60)
		b := randomSet(r, r.Intn(30), 60)
		want := slices.Compact(slices.Sorted(slices.Values(append(slices.Clone(a), b...))))

		fwd, bwd := walk(t, Union[int](ints(a...), FromSlice(b), intCmp))
		assert.Equal(t, nilIfEmpty(want), fwd)
		assert.Equal(t, backwardFromLast(want), bwd)
	}
}

func TestIntersectionsAgree(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 50; i++ {
		a := randomSet(r, r.Intn(40), 80)
		b := randomSet(r, r.Intn(40), 80)
		var want []int
		for _, v := range a {
			if _, ok := slices.BinarySearch(b, v); ok {
				want = append(want, v)
			}
		}

		zfwd, zbwd := walk(t, ZigZag[int](ints(a...), ints(b...), intCmp))
		mfwd, mbwd := walk(t, MergeIntersect[int](ints(a...), ints(b...), intCmp))
		assert.Equal(t, want, zfwd)
		assert.Equal(t, zfwd, mfwd)
		assert.Equal(t, backwardFromLast(want), zbwd)
		assert.Equal(t, zbwd, mbwd)
	}
}

func TestMergeIntersectChangesDirection(t *testing.T) {
	c := MergeIntersect[int](ints(1, 2, 4, 6, 8), FromSlice([]int{2, 3, 6, 7, 8}), intCmp)
	v, _ := c.Next()
	assert.Equal(t, 2, v)
	v, _ = c.Next()
	assert.Equal(t, 6, v)
	assert.True(t, c.HasNext())
	v, err := c.Prev()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.False(t, c.HasPrev())
	v, _ = c.Next()
	assert.Equal(t, 6, v)
	v, _ = c.Next()
	assert.Equal(t, 8, v)
	assert.False(t, c.HasNext())
}

func TestZigZagSeek(t *testing.T) {
	c := ZigZag[int](ints(1, 3, 5, 7, 9), ints(3, 4, 7, 9), intCmp)

	res, err := c.Seek(4, false)
	require.NoError(t, err)
	assert.Equal(t, SeekClose, res)
	cur, _ := c.Current()
	assert.Equal(t, 7, cur)

	res, err = c.Seek(5, true)
	require.NoError(t, err)
	assert.Equal(t, SeekNothing, res)
	cur, _ = c.Current()
	assert.Equal(t, 7, cur)

	v, err := c.Prev()
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	res, err = c.Seek(10, false)
	require.NoError(t, err)
	assert.Equal(t, SeekNothing, res)

	res, err = c.Seek(9, true)
	require.NoError(t, err)
	assert.Equal(t, SeekFound, res)
	assert.False(t, c.HasNext())
}

func TestNestedZigZag(t *testing.T) {
	inner := ZigZag[int](ints(1, 2, 3, 4, 5, 6), ints(2, 4, 6, 8), intCmp)
	fwd, bwd := walk(t, ZigZag[int](inner, ints(1, 4, 6, 9), intCmp))
	assert.Equal(t, []int{4, 6}, fwd)
	assert.Equal(t, []int{4}, bwd)
}

func TestMaterialize(t *testing.T) {
	m, err := Materialize[int](FromSlice([]int{5, 1, 3, 1}), intCmp)
	require.NoError(t, err)
	res, err := m.Seek(3, true)
	require.NoError(t, err)
	assert.Equal(t, SeekFound, res)
	fwd, _ := walk(t, m)
	assert.Equal(t, []int{5}, fwd)
}

func TestIteratorForwardOnly(t *testing.T) {
	n := 0
	released := 0
	c := Iterator(func() (int, bool, error) {
		n++
		return n, n <= 3, nil
	}, func() error { released++; return nil })

	got, err := Collect(c)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.False(t, c.HasPrev())
	_, err = c.Prev()
	assert.ErrorIs(t, err, ErrUnsupported)
	require.NoError(t, c.Close())
	assert.Equal(t, 1, released)
}

// closeCounter counts Close calls on a wrapped cursor.
type closeCounter struct {
	RandomAccess[int]
	closes int
}

func (c *closeCounter) Close() error {
	c.closes++
	return c.RandomAccess.Close()
}

func TestCloseCascades(t *testing.T) {
	leaves := []*closeCounter{
		{RandomAccess: ints(1, 2, 3)},
		{RandomAccess: ints(2, 3)},
		{RandomAccess: ints(3, 4)},
		{RandomAccess: ints(4)},
	}
	top := Union[int](
		MergeIntersect[int](leaves[0], leaves[1], intCmp),
		ZigZag[int](leaves[2], leaves[3], intCmp),
		intCmp,
	)
	got, err := Collect(top)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, got)
	require.NoError(t, top.Close())

	for i, l := range leaves {
		assert.Equal(t, 1, l.closes, "leaf %d", i)
	}
}

func nilIfEmpty(xs []int) []int {
	if len(xs) == 0 {
		return nil
	}
	return xs
}
