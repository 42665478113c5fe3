package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WaveAssist/WaveAssist/internal/config"
	"github.com/WaveAssist/WaveAssist/internal/errors"
	"github.com/WaveAssist/WaveAssist/internal/parser"
	"github.com/WaveAssist/WaveAssist/internal/schema"
)

func infer(t *testing.T, a *Analyzer, input string) *schema.Node {
	t.Helper()
	v, err := parser.ParseString(input)
	require.NoError(t, err)
	node, err := a.Infer(v)
	require.NoError(t, err)
	return node
}

func TestInfer_SimpleObject(t *testing.T) {
	node := infer(t, NewAnalyzer(), `{"name": "John Doe", "age": 30, "is_student": false, "score": 99.5}`)
	assert.Equal(t, "{name: String, age: Integer, is_student: Boolean, score: Number}", node.String())
}

func TestInfer_NestedObject(t *testing.T) {
	node := infer(t, NewAnalyzer(), `{
		"user_id": 123,
		"username": "johndoe",
		"profile": {
			"full_name": "John Doe",
			"nickname": null,
			"address": {"street": "123 Main St", "city": "Anytown"}
		}
	}`)

	assert.Equal(t,
		"{user_id: Integer, username: String, profile: {full_name: String, nickname?: String, address: {street: String, city: String}}}",
		node.String())
}

func TestInfer_ArrayOfObjects(t *testing.T) {
	node := infer(t, NewAnalyzer(), `{"items": [
		{"id": 1, "name": "Item 1", "price": 10.5},
		{"id": 2, "name": "Item 2"},
		{"id": 3, "name": "Item 3", "price": null, "tags": ["sale"]}
	]}`)

	assert.Equal(t, "{items: List<{id: Integer, name: String, price?: Number, tags?: List<String>}>}", node.String())
}

func TestInfer_Formats(t *testing.T) {
	node := infer(t, NewAnalyzer(), `{
		"id": "550e8400-e29b-41d4-a716-446655440000",
		"created_at": "2024-03-01T10:00:00Z",
		"birthday": "1990-05-17",
		"contact": "jane@example.com",
		"note": "plain"
	}`)

	descriptions := map[string]string{}
	for _, f := range node.Fields() {
		descriptions[f.Name] = f.Node.Description()
	}
	assert.Equal(t, map[string]string{
		"id":         "UUID",
		"created_at": "RFC 3339 timestamp",
		"birthday":   "date (YYYY-MM-DD)",
		"contact":    "email address",
		"note":       "",
	}, descriptions)
}

func TestInfer_MixedFormatsDropDescription(t *testing.T) {
	node := infer(t, NewAnalyzer(), `["2024-03-01", "550e8400-e29b-41d4-a716-446655440000"]`)
	assert.Equal(t, "", node.Elem().Description())
}

func TestInfer_EmptyAndNull(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`{}`, "{}"},
		{`[]`, "List<String>"},
		{`null`, "String"},
		{`{"a": null}`, "{a?: String}"},
		{`[[], [1, 2]]`, "List<List<Integer>>"},
		{`[1, 2.5]`, "List<Number>"},
		{`[true, null]`, "List<Boolean>"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, infer(t, NewAnalyzer(), tt.input).String())
		})
	}
}

func TestInfer_HeterogeneousList(t *testing.T) {
	v, err := parser.ParseString(`{"values": [1, "two"]}`)
	require.NoError(t, err)

	_, err = NewAnalyzer().Infer(v)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrHeterogeneousList)
	assert.Contains(t, err.Error(), "values[]: values mix Number and String")
}

func TestInfer_WithConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Analyzer.DetectIntegers = false
	cfg.Analyzer.DetectFormats = false

	node := infer(t, NewAnalyzerWithConfig(cfg), `{"count": 3, "id": "550e8400-e29b-41d4-a716-446655440000"}`)
	assert.Equal(t, "{count: Number, id: String}", node.String())
	id, ok := node.Field("id")
	require.True(t, ok)
	assert.Empty(t, id.Node.Description())
}

func TestInfer_MergeDisabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Analyzer.MergeObjects = false

	v, err := parser.ParseString(`[{"a": 1}, {"b": 2}]`)
	require.NoError(t, err)
	_, err = NewAnalyzerWithConfig(cfg).Infer(v)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrHeterogeneousList)

	node := infer(t, NewAnalyzerWithConfig(cfg), `[{"a": 1, "b": 2}, {"b": 3, "a": 4}]`)
	assert.Equal(t, "List<{a: Integer, b: Integer}>", node.String())
}

func TestInferAll(t *testing.T) {
	first, err := parser.ParseString(`{"name": "a", "age": 3}`)
	require.NoError(t, err)
	second, err := parser.ParseString(`{"name": "b", "email": "b@example.com"}`)
	require.NoError(t, err)

	node, err := NewAnalyzer().InferAll(first, second)
	require.NoError(t, err)
	assert.Equal(t, "{name: String, age?: Integer, email?: String}", node.String())
}
