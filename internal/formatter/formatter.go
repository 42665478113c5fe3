// Package formatter renders values, diagnostics and generated Go source as
// deterministic text for the CLI and for prompts.
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"go/format"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/WaveAssist/WaveAssist/internal/coercer"
	"github.com/WaveAssist/WaveAssist/internal/errors"
	"github.com/WaveAssist/WaveAssist/internal/models"
)

// DefaultIndent is used by NewFormatter.
const DefaultIndent = "  "

// Formatter renders values with a fixed indentation.
type Formatter struct {
	indent string
}

// NewFormatter creates a new Formatter instance with two-space indentation.
func NewFormatter() *Formatter {
	return New(DefaultIndent)
}

// New creates a Formatter. An empty indent renders compact JSON.
func New(indent string) *Formatter {
	return &Formatter{indent: indent}
}

// FormatValue renders v as JSON, keeping map member order.
func (f *Formatter) FormatValue(v models.Value) (string, error) {
	compact, err := v.MarshalJSON()
	if err != nil {
		return "", errors.NewFormatError("failed to encode value", err)
	}
	if f.indent == "" {
		return string(compact), nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", f.indent); err != nil {
		return "", errors.NewFormatError("failed to indent value", err)
	}
	return buf.String(), nil
}

// FormatYAML renders v as a YAML document, keeping map member order.
func (f *Formatter) FormatYAML(v models.Value) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	indent := len(f.indent)
	if indent < 2 {
		indent = 2
	}
	enc.SetIndent(indent)
	if err := enc.Encode(toYAMLNode(v)); err != nil {
		return "", errors.NewFormatError("failed to encode YAML", err)
	}
	if err := enc.Close(); err != nil {
		return "", errors.NewFormatError("failed to encode YAML", err)
	}
	return buf.String(), nil
}

func toYAMLNode(v models.Value) *yaml.Node {
	switch v.Kind() {
	case models.KindMap:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, m := range v.Members() {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: m.Key},
				toYAMLNode(m.Value),
			)
		}
		return n
	case models.KindList:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.Items() {
			n.Content = append(n.Content, toYAMLNode(item))
		}
		return n
	case models.KindString:
		s, _ := v.AsString()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	case models.KindNumber:
		n, _ := v.AsNumber()
		tag := "!!float"
		if n == math.Trunc(n) && math.Abs(n) < 1e15 {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: models.FormatNumber(n)}
	case models.KindBool:
		b, _ := v.AsBool()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprint(b)}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

// FormatDiagnostics renders one line per diagnostic: SEVERITY path: message.
func (f *Formatter) FormatDiagnostics(diagnostics []coercer.Diagnostic) string {
	var b strings.Builder
	for _, d := range diagnostics {
		fmt.Fprintf(&b, "%-7s %s: %s\n", strings.ToUpper(d.Severity.String()), d.DisplayPath(), d.Message)
	}
	return b.String()
}

// FormatGo takes Go code as a string and returns properly formatted Go code
func (f *Formatter) FormatGo(code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", nil
	}

	formatted, err := format.Source([]byte(code))
	if err != nil {
		return "", errors.NewFormatError("failed to parse Go code", err)
	}
	return string(formatted), nil
}
