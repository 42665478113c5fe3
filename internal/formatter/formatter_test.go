package formatter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WaveAssist/WaveAssist/internal/coercer"
	"github.com/WaveAssist/WaveAssist/internal/models"
)

func sampleValue() models.Value {
	return models.Map(
		models.Member{Key: "name", Value: models.String("<string> Full name")},
		models.Member{Key: "age", Value: models.Number(30)},
		models.Member{Key: "tags", Value: models.List(models.String("go"), models.String("true"))},
		models.Member{Key: "address", Value: models.Map(
			models.Member{Key: "zip", Value: models.Null()},
			models.Member{Key: "verified", Value: models.Bool(false)},
		)},
	)
}

func TestFormatValue_Indented(t *testing.T) {
	formatted, err := NewFormatter().FormatValue(sampleValue())
	require.NoError(t, err)

	expected := `{
  "name": "<string> Full name",
  "age": 30,
  "tags": [
    "go",
    "true"
  ],
  "address": {
    "zip": null,
    "verified": false
  }
}`
	assert.Equal(t, expected, formatted)
}

func TestFormatValue_Compact(t *testing.T) {
	formatted, err := New("").FormatValue(sampleValue())
	require.NoError(t, err)
	assert.Equal(t, `{"name":"<string> Full name","age":30,"tags":["go","true"],"address":{"zip":null,"verified":false}}`, formatted)
}

func TestFormatValue_Deterministic(t *testing.T) {
	f := NewFormatter()
	first, err := f.FormatValue(sampleValue())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := f.FormatValue(sampleValue())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestFormatValue_NonFinite(t *testing.T) {
	_, err := NewFormatter().FormatValue(models.Number(math.NaN()))
	assert.Error(t, err)
}

func TestFormatYAML(t *testing.T) {
	formatted, err := NewFormatter().FormatYAML(sampleValue())
	require.NoError(t, err)

	expected := `name: <string> Full name
age: 30
tags:
  - go
  - "true"
address:
  zip: null
  verified: false
`
	assert.Equal(t, expected, formatted)
}

func TestFormatDiagnostics(t *testing.T) {
	diagnostics := []coercer.Diagnostic{
		{Severity: coercer.Error, Path: "user.age", Message: `expected Number, got String "abc"`},
		{Severity: coercer.Warning, Path: "", Message: "expected Object, got Null; using default {}"},
		{Severity: coercer.Info, Path: "tags", Message: `wrapped String "go" in a single-element list`},
	}

	expected := "ERROR   user.age: expected Number, got String \"abc\"\n" +
		"WARNING $: expected Object, got Null; using default {}\n" +
		"INFO    tags: wrapped String \"go\" in a single-element list\n"
	assert.Equal(t, expected, NewFormatter().FormatDiagnostics(diagnostics))
	assert.Equal(t, "", NewFormatter().FormatDiagnostics(nil))
}

func TestFormatGo(t *testing.T) {
	input := `package main

type Person struct {
Name string ` + "`json:\"name\"`" + `
Age int64 ` + "`json:\"age\"`" + `
IsActive bool ` + "`json:\"is_active\"`" + `
}
`

	formatted, err := NewFormatter().FormatGo(input)
	require.NoError(t, err)

	expectedOutput := `package main

type Person struct {
	Name     string ` + "`json:\"name\"`" + `
	Age      int64  ` + "`json:\"age\"`" + `
	IsActive bool   ` + "`json:\"is_active\"`" + `
}
`
	assert.Equal(t, expectedOutput, formatted)
}

func TestFormatGo_InvalidCode(t *testing.T) {
	input := `package main

type Person struct {
	Name 	string ` + "`json:\"name\"` // Missing closing backtick" + `
`

	_, err := NewFormatter().FormatGo(input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestFormatGo_EmptyInput(t *testing.T) {
	formatted, err := NewFormatter().FormatGo("")
	require.NoError(t, err)
	assert.Equal(t, "", formatted)
}
