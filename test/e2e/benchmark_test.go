package e2e_test

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/WaveAssist/WaveAssist/internal/analyzer"
	"github.com/WaveAssist/WaveAssist/internal/coercer"
	"github.com/WaveAssist/WaveAssist/internal/generator"
	"github.com/WaveAssist/WaveAssist/internal/parser"
	"github.com/WaveAssist/WaveAssist/internal/pipeline"
	"github.com/WaveAssist/WaveAssist/internal/schema"
)

// generateNestedJSON creates a deeply nested JSON structure for benchmarking
func generateNestedJSON(rng *rand.Rand, depth int, width int) map[string]interface{} {
	if depth <= 0 {
		return map[string]interface{}{
			"leaf_value": "data",
			"timestamp":  time.Unix(int64(rng.Intn(1<<30)), 0).UTC().Format(time.RFC3339),
			"count":      rng.Intn(100),
			"enabled":    rng.Intn(2) == 1,
		}
	}

	result := make(map[string]interface{})
	for i := 0; i < width; i++ {
		key := fmt.Sprintf("nested_%d_%d", depth, i)
		result[key] = generateNestedJSON(rng, depth-1, width)
	}
	return result
}

// generateWideJSON creates a JSON object with many fields at the same level
func generateWideJSON(fieldCount int) map[string]interface{} {
	result := make(map[string]interface{})

	for i := 0; i < fieldCount; i++ {
		switch i % 5 {
		case 0:
			result[fmt.Sprintf("string_field_%d", i)] = fmt.Sprintf("value_%d", i)
		case 1:
			result[fmt.Sprintf("int_field_%d", i)] = i
		case 2:
			result[fmt.Sprintf("bool_field_%d", i)] = i%2 == 0
		case 3:
			result[fmt.Sprintf("float_field_%d", i)] = float64(i) + 0.5
		case 4:
			result[fmt.Sprintf("object_field_%d", i)] = map[string]interface{}{
				"id":    i,
				"name":  fmt.Sprintf("Object %d", i),
				"value": i * 10,
			}
		}
	}

	return result
}

// inferSchema parses data and infers its schema
func inferSchema(b *testing.B, data []byte) *schema.Node {
	b.Helper()
	sample, err := parser.ParseString(string(data))
	require.NoError(b, err)
	node, err := analyzer.NewAnalyzer().Infer(sample)
	require.NoError(b, err)
	return node
}

// BenchmarkDeepNesting benchmarks the pipeline with deeply nested responses
func BenchmarkDeepNesting(b *testing.B) {
	depths := []struct {
		name  string
		depth int
		width int
	}{
		{"Depth3Width3", 3, 3},   // Moderate nesting
		{"Depth5Width2", 5, 2},   // Deep nesting
		{"Depth2Width10", 2, 10}, // Wide but shallow
	}

	for _, depth := range depths {
		b.Run(depth.name, func(b *testing.B) {
			rng := rand.New(rand.NewSource(int64(depth.depth*100 + depth.width)))
			jsonData, err := json.MarshalIndent(generateNestedJSON(rng, depth.depth, depth.width), "", "  ")
			require.NoError(b, err)

			node := inferSchema(b, jsonData)
			response := "Here is the data:\n```json\n" + string(jsonData) + "\n```\n"
			p := pipeline.New(pipeline.WithMode(coercer.Strict))

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				outcome, err := p.Run(response, node)
				require.NoError(b, err)
				require.True(b, outcome.Result.OK)
			}
		})
	}
}

// BenchmarkWideStructures benchmarks schema inference on objects with many fields
func BenchmarkWideStructures(b *testing.B) {
	widths := []struct {
		name       string
		fieldCount int
	}{
		{"Fields10", 10},
		{"Fields100", 100},
		{"Fields1000", 1000},
	}

	for _, width := range widths {
		b.Run(width.name, func(b *testing.B) {
			jsonData, err := json.Marshal(generateWideJSON(width.fieldCount))
			require.NoError(b, err)
			sample, err := parser.ParseString(string(jsonData))
			require.NoError(b, err)
			a := analyzer.NewAnalyzer()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := a.Infer(sample); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkTemplateRoundTrip benchmarks generating a template and coercing it back
func BenchmarkTemplateRoundTrip(b *testing.B) {
	jsonData, err := json.Marshal(generateWideJSON(200))
	require.NoError(b, err)
	node := inferSchema(b, jsonData)
	c := coercer.New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result := c.Coerce(generator.Generate(node), node, coercer.Strict)
		if len(result.Diagnostics) != 0 {
			b.Fatalf("unexpected diagnostics: %v", result.Diagnostics)
		}
	}
}
