package pipeline

import (
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/WaveAssist/WaveAssist/internal/coercer"
	"github.com/WaveAssist/WaveAssist/internal/errors"
	"github.com/WaveAssist/WaveAssist/internal/extractor"
	"github.com/WaveAssist/WaveAssist/internal/models"
	"github.com/WaveAssist/WaveAssist/internal/schema"
)

func userSchema() *schema.Node {
	return schema.Object(
		schema.Required("name", schema.String()),
		schema.Required("age", schema.Integer()),
	)
}

func TestRun_SoftDefault(t *testing.T) {
	out, err := New().Run("Here you go:\n```json\n{\"name\": \"Ada\", \"age\": \"36\"}\n```", userSchema())
	require.NoError(t, err)

	assert.Equal(t, extractor.StrategyFence, out.Candidate.Strategy)
	assert.True(t, out.Result.OK)
	assert.NoError(t, out.Err())

	age, ok := out.Result.Value.Get("age")
	require.True(t, ok)
	assert.True(t, models.Equal(models.Number(36), age))

	raw, ok := out.Raw.Get("age")
	require.True(t, ok)
	assert.True(t, models.Equal(models.String("36"), raw), "raw value is kept as parsed")
}

func TestRun_StrictViolation(t *testing.T) {
	out, err := New(WithMode(coercer.Strict)).Run(`{"name": "Ada"}`, userSchema())
	require.NoError(t, err)

	assert.Equal(t, coercer.Strict, New(WithMode(coercer.Strict)).Mode())
	assert.False(t, out.Result.OK)

	verr := out.Err()
	require.Error(t, verr)
	assert.ErrorIs(t, verr, errors.ErrSchemaViolation)
	assert.ErrorIs(t, verr, &errors.AppError{Type: errors.ErrorTypeSchema})
	assert.Contains(t, verr.Error(), "age: missing required field")
}

func TestRun_ExtractionFailure(t *testing.T) {
	_, err := New().Run("I could not find any data, sorry.", userSchema())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrExtractionFailed)
	assert.ErrorIs(t, err, &errors.AppError{Type: errors.ErrorTypeExtraction})

	_, err = New().Run("   ", userSchema())
	assert.ErrorIs(t, err, errors.ErrEmptyInput)
}

func TestRun_ParseFailureIsFinal(t *testing.T) {
	_, err := New().Run("```json\n{\"name\": \"Ada\",}\n```\nand also {\"name\": \"Bob\", \"age\": 1}", userSchema())
	require.Error(t, err)

	var parseErr *errors.ParseError
	assert.True(t, stderrors.As(err, &parseErr))
	assert.ErrorIs(t, err, &errors.AppError{Type: errors.ErrorTypeParsing})
	assert.NotErrorIs(t, err, errors.ErrExtractionFailed)
}

func TestRun_WithRepairAndCoercer(t *testing.T) {
	p := New(
		WithExtractor(extractor.New(extractor.WithRepair(true))),
		WithCoercer(coercer.New(coercer.WithLooseKeys(true))),
		WithMode(coercer.Strict),
	)

	out, err := p.Run("Result: {\"Name\": \"Ada\", \"age\": 36,}", userSchema())
	require.NoError(t, err)
	assert.True(t, out.Candidate.Repaired)
	assert.True(t, out.Result.OK, "%v", out.Result.Diagnostics)
}

func TestRun_Logging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := New(WithLogger(zap.New(core)))

	_, err := p.Run(`{"name": "Ada", "age": 36}`, userSchema())
	require.NoError(t, err)

	entries := logs.FilterMessage("coerced response").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "whole", fields["strategy"])
	assert.Equal(t, true, fields["ok"])
	assert.Equal(t, "soft", fields["mode"])

	_, err = p.Run("nothing here", userSchema())
	require.Error(t, err)
	assert.Equal(t, 1, logs.FilterMessage("extraction failed").Len())
}

func TestRun_Concurrent(t *testing.T) {
	p := New(WithMode(coercer.Strict))
	node := userSchema()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := p.Run(`{"name": "Ada", "age": 36}`, node)
			assert.NoError(t, err)
			assert.True(t, out.Result.OK)
		}()
	}
	wg.Wait()
}
