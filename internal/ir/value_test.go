package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = String("test")
	var _ Value = Int(42)
	var _ Value = Bool(true)
	var _ Value = List{String("a"), Int(1)}
	var _ Value = Record{"key": String("value")}
}

func TestRecordSortedKeysUTF16(t *testing.T) {
	r := Record{"a": Int(1), "A": Int(2), "aa": Int(3), "AA": Int(4), "Aa": Int(5)}
	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aa"}, r.SortedKeys())
}

func TestUnmarshalJSON(t *testing.T) {
	v, err := UnmarshalJSON([]byte(`{"name":"Bob","age":42,"tags":["x",true,null]}`))
	require.NoError(t, err)
	assert.Equal(t, Record{
		"name": String("Bob"),
		"age":  Int(42),
		"tags": List{String("x"), Bool(true), Null{}},
	}, v)
}

func TestUnmarshalJSONRejectsFloats(t *testing.T) {
	_, err := UnmarshalJSON([]byte(`{"weight":1.5}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats")
}

func TestFromGo(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null{}},
		{"int", 3, Int(3)},
		{"integral float", float64(7), Int(7)},
		{"string", "x", String("x")},
		{"nested", map[string]any{"a": []any{1, "b"}}, Record{"a": List{Int(1), String("b")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := FromGo(2.5)
	assert.Error(t, err)
	_, err = FromGo(struct{}{})
	assert.Error(t, err)
}

func TestToGo(t *testing.T) {
	v := Record{"a": List{Int(1), Null{}}, "b": Bool(false)}
	assert.Equal(t, map[string]any{"a": []any{int64(1), nil}, "b": false}, ToGo(v))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, `{"age":3,"name":"Rex"}`, Format(Record{"name": String("Rex"), "age": Int(3)}))
	assert.Equal(t, "null", Format(nil))
}

func TestProject(t *testing.T) {
	v := Record{
		"name":    String("Bob"),
		"address": Record{"city": String("Sofia")},
		"phones":  List{String("111"), String("222")},
	}

	got, ok := Project(v, []string{"address", "city"})
	require.True(t, ok)
	assert.Equal(t, String("Sofia"), got)

	got, ok = Project(v, []string{"phones", "1"})
	require.True(t, ok)
	assert.Equal(t, String("222"), got)

	_, ok = Project(v, []string{"address", "zip"})
	assert.False(t, ok)
	_, ok = Project(v, []string{"phones", "7"})
	assert.False(t, ok)
	_, ok = Project(String("x"), []string{"a"})
	assert.False(t, ok)

	got, ok = Project(v, nil)
	require.True(t, ok)
	assert.Equal(t, v, got)
}
