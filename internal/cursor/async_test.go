package cursor

import (
	"context"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestAsyncUnionMatchesUnion(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		a := randomSet(r, r.Intn(25), 50)
		b := randomSet(r, r.Intn(25), 50)

		sfwd, sbwd := walk(t, Union[int](ints(a...), ints(b...), intCmp))
		afwd, abwd := walk(t, AsyncUnion[int](context.Background(), ints(a...), ints(b...), intCmp))
		assert.Equal(t, sfwd, afwd)
		assert.Equal(t, sbwd, abwd)
	}
}

func TestAsyncUnionCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	c := AsyncUnion[int](ctx, ints(1, 2), ints(3), intCmp)
	v, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	cancel()
	assert.False(t, c.HasNext())
	assert.ErrorIs(t, c.Err(), context.Canceled)
	require.NoError(t, c.Close())
}

func TestAsyncUnionKeepsOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	got, err := Collect(AsyncUnion[int](context.Background(), ints(5, 9), ints(1, 9, 12), intCmp))
	require.NoError(t, err)
	assert.True(t, slices.IsSorted(got))
	assert.Equal(t, []int{1, 5, 9, 12}, got)
}
