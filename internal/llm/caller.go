package llm

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/WaveAssist/WaveAssist/internal/errors"
	"github.com/WaveAssist/WaveAssist/internal/pipeline"
	"github.com/WaveAssist/WaveAssist/internal/prompt"
	"github.com/WaveAssist/WaveAssist/internal/schema"
)

// RetryTemperature is used for the format retry when no temperature is set.
const RetryTemperature = 0.2

// CallerOption configures a Caller.
type CallerOption func(*Caller)

// WithPipeline sets the pipeline replies are run through.
func WithPipeline(p *pipeline.Pipeline) CallerOption {
	return func(c *Caller) {
		if p != nil {
			c.pipeline = p
		}
	}
}

// WithFormatRetry re-asks once with a stronger prompt when a reply cannot be
// extracted, parsed or coerced.
func WithFormatRetry(enabled bool) CallerOption {
	return func(c *Caller) {
		c.retry = enabled
	}
}

// WithUnsupportedJSONModels lists model name fragments that reject JSON mode.
func WithUnsupportedJSONModels(fragments []string) CallerOption {
	return func(c *Caller) {
		c.unsupportedJSON = append([]string(nil), fragments...)
	}
}

// WithTemperature sets the sampling temperature of every attempt.
func WithTemperature(t float64) CallerOption {
	return func(c *Caller) {
		c.temperature = &t
	}
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) CallerOption {
	return func(c *Caller) {
		c.maxTokens = n
	}
}

// WithPromptOptions passes options to prompt.Build.
func WithPromptOptions(opts ...prompt.Option) CallerOption {
	return func(c *Caller) {
		c.promptOptions = append(c.promptOptions, opts...)
	}
}

// WithLogger sets the logger for call events.
func WithLogger(logger *zap.Logger) CallerOption {
	return func(c *Caller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Caller turns a user prompt and a schema into a coerced model reply.
type Caller struct {
	completer       Completer
	pipeline        *pipeline.Pipeline
	retry           bool
	unsupportedJSON []string
	temperature     *float64
	maxTokens       int
	promptOptions   []prompt.Option
	logger          *zap.Logger
}

// NewCaller creates a Caller backed by completer.
func NewCaller(completer Completer, opts ...CallerOption) *Caller {
	c := &Caller{
		completer: completer,
		pipeline:  pipeline.New(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SupportsJSONMode reports whether model may be sent response_format.
func (c *Caller) SupportsJSONMode(model string) bool {
	lower := strings.ToLower(model)
	for _, fragment := range c.unsupportedJSON {
		if fragment != "" && strings.Contains(lower, strings.ToLower(fragment)) {
			return false
		}
	}
	return true
}

// Call asks model for a reply to userPrompt shaped like node. A reply that
// cannot be extracted or parsed, or whose coercion is not OK, is a format
// failure: with format retry enabled it is re-requested once, otherwise an
// error matching ErrLLMFormat is returned together with the last Outcome, if
// any.
func (c *Caller) Call(ctx context.Context, model, userPrompt string, node *schema.Node) (*pipeline.Outcome, error) {
	logger := c.logger.With(zap.String("call_id", uuid.NewString()), zap.String("model", model))
	jsonMode := c.SupportsJSONMode(model)
	temperature := c.temperature
	text := userPrompt

	for attempt := 1; ; attempt++ {
		built, err := prompt.Build(text, node, c.promptOptions...)
		if err != nil {
			return nil, err
		}

		content, err := c.completer.Complete(ctx, Request{
			Model:       model,
			Messages:    []Message{{Role: RoleUser, Content: built}},
			Temperature: temperature,
			MaxTokens:   c.maxTokens,
			JSONMode:    jsonMode,
		})
		if err != nil {
			logger.Warn("completion failed", zap.Int("attempt", attempt), zap.Error(err))
			if stderrors.Is(err, errors.ErrLLMCall) || stderrors.Is(err, errors.ErrMissingAPIKey) {
				return nil, err
			}
			return nil, callError("completion failed", err)
		}

		outcome, formatErr := c.pipeline.Run(content, node)
		if formatErr == nil {
			formatErr = outcome.Err()
		}
		if formatErr == nil {
			logger.Debug("call succeeded", zap.Int("attempt", attempt))
			return outcome, nil
		}

		logger.Warn("reply did not match the requested format", zap.Int("attempt", attempt), zap.Error(formatErr))
		if !c.retry || attempt > 1 {
			return outcome, errors.NewLLMError("reply did not match the requested format",
				stderrors.Join(errors.ErrLLMFormat, formatErr))
		}
		if err := ctx.Err(); err != nil {
			return outcome, callError("context done before retry", err)
		}

		text = prompt.Strengthen(userPrompt)
		if temperature == nil {
			t := RetryTemperature
			temperature = &t
		}
	}
}
