// Package prompt builds the instruction text that asks a language model for
// JSON matching a schema.
package prompt

import (
	"strings"

	"github.com/WaveAssist/WaveAssist/internal/formatter"
	"github.com/WaveAssist/WaveAssist/internal/generator"
	"github.com/WaveAssist/WaveAssist/internal/schema"
)

// RetryNotice is appended to the user prompt when a response had to be
// requested again.
const RetryNotice = "IMPORTANT: Your previous response was invalid JSON. You must output ONLY valid JSON matching the schema, with no explanations or other text."

type options struct {
	typed  bool
	indent string
}

// Option configures Build.
type Option func(*options)

// WithTypedTemplate shows a typed example instead of type placeholders.
func WithTypedTemplate() Option {
	return func(o *options) {
		o.typed = true
	}
}

// WithIndent sets the indentation of the embedded template.
func WithIndent(indent string) Option {
	return func(o *options) {
		o.indent = indent
	}
}

// Build returns userPrompt followed by the JSON structure the model must
// produce and the output rules.
func Build(userPrompt string, node *schema.Node, opts ...Option) (string, error) {
	o := options{indent: formatter.DefaultIndent}
	for _, opt := range opts {
		opt(&o)
	}

	gen := generator.NewGenerator(generator.WithDescriptive(!o.typed))
	rendered, err := generator.Render(gen.Template(node), o.indent)
	if err != nil {
		return "", err
	}

	noun := "a JSON object"
	if node.Kind() == schema.KindList {
		noun = "a JSON array"
	} else if node.Kind() != schema.KindObject {
		noun = "a JSON value"
	}

	var b strings.Builder
	if p := strings.TrimSpace(userPrompt); p != "" {
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	b.WriteString("Respond with " + noun + " that matches this structure:\n")
	b.WriteString(rendered)
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Return ONLY valid JSON, with no markdown code fences and no commentary.\n")
	b.WriteString("- Include every field shown above.\n")
	if o.typed {
		b.WriteString("- Replace the example values with real data of the same type.\n")
	} else {
		b.WriteString("- Replace each <type> placeholder with a value of that type; numbers and booleans must not be quoted.\n")
	}
	if hasEnum(node) {
		b.WriteString("- Where choices are listed, use exactly one of them.\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// Strengthen appends RetryNotice to userPrompt.
func Strengthen(userPrompt string) string {
	return userPrompt + "\n\n" + RetryNotice
}

func hasEnum(node *schema.Node) bool {
	switch node.Kind() {
	case schema.KindObject:
		for _, f := range node.Fields() {
			if hasEnum(f.Node) {
				return true
			}
		}
		return false
	case schema.KindList:
		return hasEnum(node.Elem())
	default:
		return node.IsEnum()
	}
}
