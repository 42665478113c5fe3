package coercer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/WaveAssist/WaveAssist/internal/errors"
	"github.com/WaveAssist/WaveAssist/internal/models"
)

// Mode selects how schema violations are handled.
type Mode int

const (
	// Strict reports violations as Error diagnostics.
	Strict Mode = iota
	// Soft substitutes defaults and downgrades violations to warnings.
	Soft
)

func (m Mode) String() string {
	switch m {
	case Strict:
		return "strict"
	case Soft:
		return "soft"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts "strict" or "soft" (any case) into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return Strict, nil
	case "soft":
		return Soft, nil
	default:
		return Strict, fmt.Errorf("unknown coercion mode %q (expected strict or soft)", s)
	}
}

// Severity ranks a diagnostic.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Diagnostic is a single note produced while coercing. Path uses dotted field
// names and bracketed indexes, e.g. user.addresses[2].zip; the root is "".
type Diagnostic struct {
	Severity Severity
	Path     string
	Message  string
}

// DisplayPath returns Path, or "$" for the root.
func (d Diagnostic) DisplayPath() string {
	if d.Path == "" {
		return "$"
	}
	return d.Path
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s: %s", d.Severity, d.DisplayPath(), d.Message)
}

// Result is the outcome of a coercion.
type Result struct {
	Value       models.Value
	Diagnostics []Diagnostic
	// OK is true when no Error diagnostic was produced.
	OK bool
}

// Errors returns the Error diagnostics.
func (r Result) Errors() []Diagnostic {
	return r.filter(Error)
}

// Warnings returns the Warning diagnostics.
func (r Result) Warnings() []Diagnostic {
	return r.filter(Warning)
}

func (r Result) filter(severity Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity == severity {
			out = append(out, d)
		}
	}
	return out
}

// Err returns a *errors.SchemaViolation holding the Error diagnostics, or nil
// when the result is OK.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	errs := r.Errors()
	diagnostics := make([]errors.Diagnostic, len(errs))
	for i, d := range errs {
		diagnostics[i] = d
	}
	return &errors.SchemaViolation{Diagnostics: diagnostics}
}

// Decode stores the coerced value into target using encoding/json rules.
func (r Result) Decode(target any) error {
	data, err := json.Marshal(r.Value)
	if err != nil {
		return errors.NewOutputError("failed to encode coerced value", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return errors.NewOutputError("failed to decode coerced value", err)
	}
	return nil
}
