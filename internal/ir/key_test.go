package ir

import (
	"bytes"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareOrder(t *testing.T) {
	ordered := []Value{
		Null{},
		Bool(false),
		Bool(true),
		Int(math.MinInt64),
		Int(-5),
		Int(0),
		Int(7),
		Int(math.MaxInt64),
		String(""),
		String("a"),
		String("a\x00"),
		String("ab"),
		String("b"),
		List{},
		List{Int(1)},
		List{Int(1), Int(2)},
		List{Int(2)},
		Record{},
		Record{"a": Int(1)},
		Record{"a": Int(2)},
		Record{"b": Int(0)},
	}
	for i := range ordered {
		for j := range ordered {
			got := Compare(ordered[i], ordered[j])
			want := 0
			if i < j {
				want = -1
			} else if i > j {
				want = 1
			}
			assert.Equal(t, want, sign(got), "Compare(%s, %s)", Format(ordered[i]), Format(ordered[j]))
		}
	}
}

func TestEncodeKeySortsLikeCompare(t *testing.T) {
	vals := []Value{String("pear"), Int(3), String("apple"), Int(-1), Bool(true)}
	byKey := slices.Clone(vals)
	slices.SortFunc(byKey, func(a, b Value) int { return bytes.Compare(EncodeKey(a), EncodeKey(b)) })
	byCompare := slices.Clone(vals)
	slices.SortFunc(byCompare, Compare)
	assert.Equal(t, byCompare, byKey)
	assert.Equal(t, []Value{Bool(true), Int(-1), Int(3), String("apple"), String("pear")}, byKey)
}

func TestEqualNormalizesStrings(t *testing.T) {
	assert.True(t, Equal(String("café"), String("café")))
	assert.True(t, Equal(Record{"café": Int(1)}, Record{"café": Int(1)}))
	assert.False(t, Equal(Int(1), String("1")))
	assert.True(t, Equal(nil, Null{}))
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
