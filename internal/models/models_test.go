package models

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_DuplicateKeysLastWins(t *testing.T) {
	v := Map(
		Member{Key: "a", Value: Number(1)},
		Member{Key: "b", Value: Number(2)},
		Member{Key: "a", Value: Number(3)},
	)

	assert.Equal(t, []string{"a", "b"}, v.Keys())
	got, ok := v.Get("a")
	require.True(t, ok)
	n, _ := got.AsNumber()
	assert.Equal(t, 3.0, n)
	assert.Equal(t, 2, v.Len())
}

func TestValue_Immutability(t *testing.T) {
	items := []Value{String("x"), String("y")}
	list := List(items...)
	items[0] = String("changed")

	first := list.Items()[0]
	s, _ := first.AsString()
	assert.Equal(t, "x", s)

	returned := list.Items()
	returned[1] = Null()
	second := list.Items()[1]
	assert.Equal(t, KindString, second.Kind())
}

func TestValue_ZeroIsNull(t *testing.T) {
	var v Value
	assert.True(t, v.IsNull())
	assert.Equal(t, "null", v.String())
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nulls", Null(), Null(), true},
		{"different kinds", Number(0), Bool(false), false},
		{"numbers", Number(42), Number(42.0), true},
		{"strings differ", String("a"), String("b"), false},
		{"lists are ordered", List(Number(1), Number(2)), List(Number(2), Number(1)), false},
		{
			"maps ignore order",
			Map(Member{"a", Number(1)}, Member{"b", String("x")}),
			Map(Member{"b", String("x")}, Member{"a", Number(1)}),
			true,
		},
		{
			"maps with different keys",
			Map(Member{"a", Number(1)}),
			Map(Member{"b", Number(1)}),
			false,
		},
		{
			"nested",
			Map(Member{"user", Map(Member{"tags", List(String("go"))})}),
			Map(Member{"user", Map(Member{"tags", List(String("go"))})}),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestValue_MarshalJSONKeepsOrder(t *testing.T) {
	v := Map(
		Member{Key: "zeta", Value: Number(1)},
		Member{Key: "alpha", Value: List(Bool(true), Null(), Number(2.5))},
		Member{Key: "hint", Value: String("<string> a & b")},
	)

	encoded, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":[true,null,2.5],"hint":"<string> a & b"}`, string(encoded))
}

func TestValue_MarshalJSONRejectsNonFinite(t *testing.T) {
	_, err := Number(math.Inf(1)).MarshalJSON()
	assert.Error(t, err)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "42", FormatNumber(42))
	assert.Equal(t, "-3.5", FormatNumber(-3.5))
	assert.Equal(t, "1e+21", FormatNumber(1e21))
	assert.Equal(t, "0.1", FormatNumber(0.1))
}

func TestFromAnyAndToAny(t *testing.T) {
	var raw any
	require.NoError(t, json.Unmarshal([]byte(`{"b":[1,"x",false,null],"a":{"c":2}}`), &raw))

	v, err := FromAny(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v.Keys(), "keys from Go maps are sorted")

	back := v.ToAny()
	assert.Equal(t, raw, back)

	_, err = FromAny(struct{}{})
	assert.Error(t, err)
}

func TestDescribe_TruncatesOnRuneBoundary(t *testing.T) {
	// "é" is two bytes and straddles byte 40.
	s := strings.Repeat("a", 39) + "é" + strings.Repeat("b", 10)
	got := String(s).Describe()

	assert.Equal(t, `String "`+strings.Repeat("a", 39)+`..."`, got)
	assert.NotContains(t, got, `\x`)

	ascii := String(strings.Repeat("x", 50)).Describe()
	assert.Equal(t, `String "`+strings.Repeat("x", 40)+`..."`, ascii)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, `String "abc"`, String("abc").Describe())
	assert.Equal(t, "Number 42", Number(42).Describe())
	assert.Equal(t, "Boolean true", Bool(true).Describe())
	assert.Equal(t, "Map with 1 keys", Map(Member{"a", Null()}).Describe())
	assert.Equal(t, "List of 0", List().Describe())
	assert.Equal(t, "Null", Null().Describe())
}
