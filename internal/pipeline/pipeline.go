// Package pipeline runs the extract, parse and coerce stages over one model
// response.
package pipeline

import (
	"go.uber.org/zap"

	"github.com/WaveAssist/WaveAssist/internal/coercer"
	"github.com/WaveAssist/WaveAssist/internal/errors"
	"github.com/WaveAssist/WaveAssist/internal/extractor"
	"github.com/WaveAssist/WaveAssist/internal/models"
	"github.com/WaveAssist/WaveAssist/internal/schema"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMode sets the coercion mode. The default is Soft.
func WithMode(mode coercer.Mode) Option {
	return func(p *Pipeline) {
		p.mode = mode
	}
}

// WithExtractor replaces the default extractor.
func WithExtractor(e *extractor.Extractor) Option {
	return func(p *Pipeline) {
		if e != nil {
			p.extractor = e
		}
	}
}

// WithCoercer replaces the default coercer.
func WithCoercer(c *coercer.Coercer) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.coercer = c
		}
	}
}

// WithLogger sets the logger for stage events.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Pipeline is immutable after New and safe for concurrent use.
type Pipeline struct {
	mode      coercer.Mode
	extractor *extractor.Extractor
	coercer   *coercer.Coercer
	logger    *zap.Logger
}

// New creates a Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		mode:      coercer.Soft,
		extractor: extractor.New(),
		coercer:   coercer.New(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Mode returns the coercion mode used by Run.
func (p *Pipeline) Mode() coercer.Mode {
	return p.mode
}

// Outcome is the product of a successful extraction and parse.
type Outcome struct {
	Candidate extractor.Candidate
	Raw       models.Value
	Result    coercer.Result
}

// Err returns a schema error wrapping the violation when the result is not OK.
func (o *Outcome) Err() error {
	if err := o.Result.Err(); err != nil {
		return errors.NewSchemaError("response does not satisfy schema", err)
	}
	return nil
}

// Run extracts JSON from text and coerces it against node. Extraction and
// parse failures are returned as errors; schema violations are reported in
// the Outcome.
func (p *Pipeline) Run(text string, node *schema.Node) (*Outcome, error) {
	raw, candidate, err := p.extractor.ExtractValue(text)
	if err != nil {
		if extractor.IsExtractionFailure(err) {
			p.logger.Debug("extraction failed", zap.Int("input_bytes", len(text)), zap.Error(err))
			return nil, errors.NewExtractionError("could not locate JSON in response", err)
		}
		p.logger.Debug("candidate did not parse",
			zap.String("strategy", string(candidate.Strategy)),
			zap.Int("start", candidate.Start),
			zap.Int("end", candidate.End),
			zap.Error(err))
		return nil, errors.NewParsingError("candidate JSON is malformed", err)
	}

	result := p.coercer.Coerce(raw, node, p.mode)
	p.logger.Debug("coerced response",
		zap.String("strategy", string(candidate.Strategy)),
		zap.Int("start", candidate.Start),
		zap.Int("end", candidate.End),
		zap.Bool("repaired", candidate.Repaired),
		zap.Stringer("mode", p.mode),
		zap.Bool("ok", result.OK),
		zap.Int("errors", len(result.Errors())),
		zap.Int("warnings", len(result.Warnings())),
		zap.Int("diagnostics", len(result.Diagnostics)))

	return &Outcome{Candidate: candidate, Raw: raw, Result: result}, nil
}
