// Package analyzer infers a schema from sample JSON values.
package analyzer

import (
	"fmt"
	"math"

	"github.com/WaveAssist/WaveAssist/internal/config"
	"github.com/WaveAssist/WaveAssist/internal/errors"
	"github.com/WaveAssist/WaveAssist/internal/models"
	"github.com/WaveAssist/WaveAssist/internal/schema"
)

// Analyzer infers schema nodes from example values.
type Analyzer struct {
	// config holds configuration settings for analysis
	config *config.Config
}

// NewAnalyzer creates a new Analyzer instance.
func NewAnalyzer() *Analyzer {
	return &Analyzer{config: config.NewConfig()}
}

// NewAnalyzerWithConfig creates a new Analyzer instance with custom configuration.
func NewAnalyzerWithConfig(cfg *config.Config) *Analyzer {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Analyzer{config: cfg}
}

// Infer returns the schema that v satisfies. Members holding null become
// optional fields, empty lists become List<String>, and list elements are
// merged into one element schema.
func (a *Analyzer) Infer(v models.Value) (*schema.Node, error) {
	return a.inferMany([]models.Value{v}, "")
}

// InferAll merges several samples of the same response shape into one schema.
func (a *Analyzer) InferAll(samples ...models.Value) (*schema.Node, error) {
	return a.inferMany(samples, "")
}

// inferMany builds one node that every non-null value in values satisfies.
func (a *Analyzer) inferMany(values []models.Value, path string) (*schema.Node, error) {
	present := make([]models.Value, 0, len(values))
	for _, v := range values {
		if !v.IsNull() {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return schema.String(), nil
	}

	kind := present[0].Kind()
	for _, v := range present[1:] {
		if v.Kind() != kind {
			return nil, errors.NewAnalysisError(
				fmt.Sprintf("%s: values mix %s and %s", displayPath(path), kind, v.Kind()),
				errors.ErrHeterogeneousList,
			)
		}
	}

	switch kind {
	case models.KindString:
		return a.inferString(present), nil
	case models.KindNumber:
		return a.inferNumber(present), nil
	case models.KindBool:
		return schema.Boolean(), nil
	case models.KindList:
		var items []models.Value
		for _, v := range present {
			items = append(items, v.Items()...)
		}
		if len(items) == 0 {
			return schema.List(schema.String()), nil
		}
		elem, err := a.inferMany(items, path+"[]")
		if err != nil {
			return nil, err
		}
		return schema.List(elem), nil
	default:
		return a.inferObject(present, path)
	}
}

func (a *Analyzer) inferString(values []models.Value) *schema.Node {
	var format config.FormatRule
	for i, v := range values {
		s, _ := v.AsString()
		rule, ok := a.config.FindFormat(s)
		if !ok || (i > 0 && rule.Description != format.Description) {
			return schema.String()
		}
		format = rule
	}
	return schema.String().WithDescription(format.Description)
}

func (a *Analyzer) inferNumber(values []models.Value) *schema.Node {
	if !a.config.Analyzer.DetectIntegers {
		return schema.Number()
	}
	for _, v := range values {
		n, _ := v.AsNumber()
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return schema.Number()
		}
	}
	return schema.Integer()
}

// inferObject merges the members of every map. A field is required only when
// every sample carries a non-null value for it.
func (a *Analyzer) inferObject(maps []models.Value, path string) (*schema.Node, error) {
	if !a.config.Analyzer.MergeObjects {
		if err := sameKeys(maps, path); err != nil {
			return nil, err
		}
	}

	var order []string
	samples := make(map[string][]models.Value)
	for _, m := range maps {
		for _, member := range m.Members() {
			if _, seen := samples[member.Key]; !seen {
				order = append(order, member.Key)
			}
			samples[member.Key] = append(samples[member.Key], member.Value)
		}
	}

	fields := make([]schema.Field, 0, len(order))
	for _, key := range order {
		values := samples[key]
		node, err := a.inferMany(values, joinPath(path, key))
		if err != nil {
			return nil, err
		}

		required := len(values) == len(maps)
		for _, v := range values {
			if v.IsNull() {
				required = false
			}
		}
		if required {
			fields = append(fields, schema.Required(key, node))
		} else {
			fields = append(fields, schema.Optional(key, node))
		}
	}
	return schema.Object(fields...), nil
}

func sameKeys(maps []models.Value, path string) error {
	first := maps[0].Keys()
	for _, m := range maps[1:] {
		keys := m.Keys()
		if len(keys) != len(first) {
			return keyMismatch(path)
		}
		for _, k := range first {
			if _, ok := m.Get(k); !ok {
				return keyMismatch(path)
			}
		}
	}
	return nil
}

func keyMismatch(path string) error {
	return errors.NewAnalysisError(
		fmt.Sprintf("%s: objects have different keys and merging is disabled", displayPath(path)),
		errors.ErrHeterogeneousList,
	)
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

func displayPath(path string) string {
	if path == "" {
		return "$"
	}
	return path
}
