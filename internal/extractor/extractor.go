// Package extractor locates a JSON candidate span inside free-form model
// output and hands it to the parser.
//
// Strategies are tried in order and the first success wins:
//
//  1. the whole trimmed text parses as JSON;
//  2. the first fenced code block labelled "json";
//  3. the first balanced {...} or [...] region, ignoring brackets inside
//     double-quoted strings.
//
// Once strategy 2 or 3 has chosen a candidate, a parse failure is final: the
// extractor never falls back to another strategy, so extraction failures and
// parse failures stay distinguishable.
package extractor

import (
	stderrors "errors"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/WaveAssist/WaveAssist/internal/errors"
	"github.com/WaveAssist/WaveAssist/internal/models"
	"github.com/WaveAssist/WaveAssist/internal/parser"
)

// Strategy names the rule that produced a candidate.
type Strategy string

const (
	StrategyWhole    Strategy = "whole"
	StrategyFence    Strategy = "fence"
	StrategyBalanced Strategy = "balanced"
)

// Candidate is the span of raw text chosen for parsing.
type Candidate struct {
	Text     string
	Strategy Strategy
	// Start and End are byte offsets of Text within the raw input.
	Start int
	End   int
	// Repaired is set when the candidate only parsed after jsonrepair.
	Repaired bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRepair enables a jsonrepair pass over a chosen candidate that fails to
// parse. The candidate itself never changes.
func WithRepair(enabled bool) Option {
	return func(e *Extractor) {
		e.repair = enabled
	}
}

// Extractor finds and parses JSON inside model output. It holds no mutable
// state and is safe for concurrent use.
type Extractor struct {
	repair bool
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExtractor = New()

// Extract finds a candidate using the default extractor.
func Extract(text string) (Candidate, error) {
	return defaultExtractor.Extract(text)
}

// ExtractValue finds and parses a candidate using the default extractor.
func ExtractValue(text string) (models.Value, Candidate, error) {
	return defaultExtractor.ExtractValue(text)
}

// fencePattern matches a fenced block whose info string is "json". The body
// is captured lazily so the first closing fence ends the block.
var fencePattern = regexp.MustCompile("(?is)```[ \\t]*json[ \\t]*\\r?\\n(.*?)```")

// Extract returns the candidate span without parsing strategies 2 and 3.
// Strategy 1 needs a parse to decide, so a whole-text candidate is known to
// be valid JSON.
func (e *Extractor) Extract(text string) (Candidate, error) {
	candidate, _, err := e.locate(text)
	return candidate, err
}

// ExtractValue locates a candidate and parses it.
func (e *Extractor) ExtractValue(text string) (models.Value, Candidate, error) {
	candidate, value, err := e.locate(text)
	if err != nil {
		return models.Value{}, candidate, err
	}
	if candidate.Strategy == StrategyWhole {
		return value, candidate, nil
	}

	value, err = parser.ParseString(candidate.Text)
	if err == nil {
		return value, candidate, nil
	}
	if !e.repair {
		return models.Value{}, candidate, err
	}

	repaired, repairErr := jsonrepair.JSONRepair(candidate.Text)
	if repairErr != nil {
		return models.Value{}, candidate, err
	}
	value, repairedErr := parser.ParseString(repaired)
	if repairedErr != nil {
		return models.Value{}, candidate, err
	}
	candidate.Repaired = true
	return value, candidate, nil
}

// locate runs the strategies in order. The parsed value is only returned for
// the whole-text strategy.
func (e *Extractor) locate(text string) (Candidate, models.Value, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Candidate{}, models.Value{}, errors.ErrEmptyInput
	}

	start := strings.Index(text, trimmed)
	if value, err := parser.ParseString(trimmed); err == nil {
		return Candidate{Text: trimmed, Strategy: StrategyWhole, Start: start, End: start + len(trimmed)}, value, nil
	}

	if loc := fencePattern.FindStringSubmatchIndex(text); loc != nil {
		body := text[loc[2]:loc[3]]
		inner := strings.TrimSpace(body)
		offset := loc[2] + strings.Index(body, inner)
		return Candidate{Text: inner, Strategy: StrategyFence, Start: offset, End: offset + len(inner)}, models.Value{}, nil
	}

	if begin, end, ok := balancedSpan(text); ok {
		return Candidate{Text: text[begin:end], Strategy: StrategyBalanced, Start: begin, End: end}, models.Value{}, nil
	}

	return Candidate{}, models.Value{}, errors.ErrExtractionFailed
}

// balancedSpan finds the first '{' or '[' and scans to the point where the
// bracket depth returns to zero. Brackets inside double-quoted strings are
// ignored and backslash escapes inside strings are honoured.
func balancedSpan(s string) (int, int, bool) {
	begin := strings.IndexAny(s, "{[")
	if begin == -1 {
		return 0, 0, false
	}

	depth := 0
	inString := false
	escaped := false
	for i := begin; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return begin, i + 1, true
			}
		}
	}
	return 0, 0, false
}

// IsExtractionFailure reports whether err means no candidate was found, as
// opposed to a candidate that failed to parse.
func IsExtractionFailure(err error) bool {
	return stderrors.Is(err, errors.ErrExtractionFailed) || stderrors.Is(err, errors.ErrEmptyInput)
}
