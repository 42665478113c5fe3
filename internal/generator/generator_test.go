package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WaveAssist/WaveAssist/internal/models"
	"github.com/WaveAssist/WaveAssist/internal/schema"
)

func userSchema() *schema.Node {
	return schema.Object(
		schema.Required("full_name", schema.String()),
		schema.Optional("age", schema.Integer().WithDescription("Age in years")),
		schema.Required("score", schema.Number()),
		schema.Required("active", schema.Boolean()),
		schema.Required("role", schema.Enum("admin", "member")),
		schema.Required("addresses", schema.List(schema.Object(
			schema.Required("zip", schema.String()).WithDescription("Postal code"),
		))),
		schema.Optional("tags", schema.List(schema.String())),
	)
}

func TestGenerate(t *testing.T) {
	got := Generate(userSchema())

	want := `{
		"full_name": "full name",
		"age": 0,
		"score": 0,
		"active": false,
		"role": "admin",
		"addresses": [{"zip": "Postal code"}],
		"tags": ["tags"]
	}`
	assert.JSONEq(t, want, got.String())
	assert.Equal(t, []string{"full_name", "age", "score", "active", "role", "addresses", "tags"}, got.Keys())
}

func TestGenerate_Scalars(t *testing.T) {
	tests := []struct {
		name string
		node *schema.Node
		want models.Value
	}{
		{"bare string", schema.String(), models.String("")},
		{"described string", schema.String().WithDescription("A city"), models.String("A city")},
		{"number", schema.Number(), models.Number(0)},
		{"boolean", schema.Boolean(), models.Bool(false)},
		{"enum", schema.Enum("x", "y"), models.String("x")},
		{"list", schema.List(schema.Boolean()), models.List(models.Bool(false))},
		{"empty object", schema.Object(), models.Map()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, models.Equal(tt.want, Generate(tt.node)), "got %s", Generate(tt.node))
		})
	}
}

func TestGenerate_IsPure(t *testing.T) {
	node := userSchema()
	first := Generate(node)
	second := Generate(node)
	assert.True(t, models.Equal(first, second))
	assert.Equal(t, first.String(), second.String())
}

func TestDescribe(t *testing.T) {
	got := Describe(userSchema())

	want := `{
		"full_name": "<string>",
		"age": "<integer> Age in years",
		"score": "<number>",
		"active": "<boolean>",
		"role": "<'admin' | 'member'>",
		"addresses": [{"zip": "<string> Postal code"}],
		"tags": ["<string>"]
	}`
	assert.JSONEq(t, want, got.String())
}

func TestRender(t *testing.T) {
	out, err := Render(Describe(schema.Object(schema.Required("zip", schema.String()))), "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"zip\": \"<string>\"\n}", out)

	out, err = Render(Generate(schema.List(schema.Number())), "")
	require.NoError(t, err)
	assert.Equal(t, "[0]", out)
}

func TestGoSource_Object(t *testing.T) {
	node := schema.Object(
		schema.Required("user_id", schema.Integer()),
		schema.Optional("nickname", schema.String()),
		schema.Required("role", schema.Enum("admin", "member")),
		schema.Required("profile", schema.Object(
			schema.Required("full_name", schema.String()).WithDescription("Display name"),
		)),
		schema.Optional("addresses", schema.List(schema.Object(
			schema.Required("zip", schema.String()),
		))),
	)

	code, err := GoSource(node, "user", "models")
	require.NoError(t, err)

	assert.Contains(t, code, "package models")
	assert.Contains(t, code, "type User struct {")
	assert.Contains(t, code, "type UserProfile struct {")
	assert.Contains(t, code, "type UserAddress struct {")
	assert.Regexp(t, `UserId\s+int64\s+`+"`json:\"user_id\"`", code)
	assert.Regexp(t, `Nickname\s+\*string\s+`+"`json:\"nickname,omitempty\"`", code)
	assert.Regexp(t, `Role\s+string\s+`+"`json:\"role\"`"+`\s+// one of admin, member`, code)
	assert.Regexp(t, `Addresses\s+\[\]UserAddress\s+`, code)
	assert.Regexp(t, `FullName\s+string\s+`+"`json:\"full_name\"`"+`\s+// Display name`, code)
}

func TestGoSource_RootList(t *testing.T) {
	code, err := GoSource(schema.List(schema.Object(schema.Required("id", schema.Integer()))), "", "")
	require.NoError(t, err)
	assert.Contains(t, code, "package main")
	assert.Contains(t, code, "type Response []ResponseItem")
	assert.Contains(t, code, "type ResponseItem struct")
}

func TestGoSource_UniqueNames(t *testing.T) {
	node := schema.Object(
		schema.Required("a", schema.Object(
			schema.Required("b", schema.Object(schema.Required("x", schema.String()))),
		)),
		schema.Required("a_b", schema.Object(schema.Required("y", schema.String()))),
	)
	code, err := GoSource(node, "Root", "main")
	require.NoError(t, err)
	assert.Contains(t, code, "type RootA struct")
	assert.Contains(t, code, "type RootAB struct")
	assert.Contains(t, code, "type RootAB1 struct")
}

func TestSingularize(t *testing.T) {
	tests := map[string]string{
		"Addresses":  "Address",
		"Categories": "Category",
		"Items":      "Item",
		"Classes":    "Class",
		"Class":      "Class",
		"Data":       "Data",
	}
	for in, want := range tests {
		assert.Equal(t, want, singularize(in), in)
	}
}
