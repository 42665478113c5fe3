// Package generator produces example values from a schema. Templates are
// embedded in prompts to show a model the exact shape expected back.
package generator

import (
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/WaveAssist/WaveAssist/internal/formatter"
	"github.com/WaveAssist/WaveAssist/internal/models"
	"github.com/WaveAssist/WaveAssist/internal/schema"
)

// Generator builds templates from schema nodes.
type Generator struct {
	descriptive bool
}

// Option configures a Generator.
type Option func(*Generator)

// WithDescriptive switches scalars from typed example values to type
// placeholders such as "<integer> Age in years".
func WithDescriptive(enabled bool) Option {
	return func(g *Generator) {
		g.descriptive = enabled
	}
}

// NewGenerator creates a new Generator instance
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a typed template for node. Every declared field is present
// and lists hold exactly one element. Strings carry the description or the
// humanised field name, enums their first literal, numbers 0 and booleans
// false, so the template coerces against node in Strict mode without any
// diagnostic.
func Generate(node *schema.Node) models.Value {
	return NewGenerator().Template(node)
}

// Describe returns a descriptive template whose scalars are type placeholders
// followed by their description, e.g. "<string> Postal code".
func Describe(node *schema.Node) models.Value {
	return NewGenerator(WithDescriptive(true)).Template(node)
}

// Render formats a template as JSON text. An empty indent renders compact
// output.
func Render(value models.Value, indent string) (string, error) {
	return formatter.New(indent).FormatValue(value)
}

// Template builds the template for node using the generator's options.
func (g *Generator) Template(node *schema.Node) models.Value {
	return g.generate(node, "", "")
}

func (g *Generator) generate(node *schema.Node, name, fieldDescription string) models.Value {
	description := fieldDescription
	if description == "" {
		description = node.Description()
	}

	switch node.Kind() {
	case schema.KindObject:
		fields := node.Fields()
		members := make([]models.Member, len(fields))
		for i, f := range fields {
			members[i] = models.Member{Key: f.Name, Value: g.generate(f.Node, f.Name, f.Description)}
		}
		return models.Map(members...)
	case schema.KindList:
		return models.List(g.generate(node.Elem(), name, ""))
	}

	if g.descriptive {
		return models.String(placeholder(node, description))
	}

	switch node.Kind() {
	case schema.KindNumber:
		return models.Number(0)
	case schema.KindBoolean:
		return models.Bool(false)
	}

	if literals := node.Enum(); len(literals) > 0 {
		return models.String(literals[0])
	}
	if description != "" {
		return models.String(description)
	}
	if name != "" {
		return models.String(strcase.ToDelimited(name, ' '))
	}
	return models.String("")
}

// placeholder renders a scalar as <type> followed by its description.
func placeholder(node *schema.Node, description string) string {
	var tag string
	switch {
	case node.IsEnum():
		literals := node.Enum()
		quoted := make([]string, len(literals))
		for i, literal := range literals {
			quoted[i] = "'" + literal + "'"
		}
		tag = "<" + strings.Join(quoted, " | ") + ">"
	case node.IsInteger():
		tag = "<integer>"
	case node.Kind() == schema.KindNumber:
		tag = "<number>"
	case node.Kind() == schema.KindBoolean:
		tag = "<boolean>"
	default:
		tag = "<string>"
	}

	if description == "" {
		return tag
	}
	return tag + " " + description
}
