package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard application errors
var (
	ErrEmptyInput        = errors.New("input is empty or contains only whitespace")
	ErrInvalidJSON       = errors.New("invalid JSON format")
	ErrMultipleJSON      = errors.New("multiple JSON values found at the root, only one is allowed")
	ErrExtractionFailed  = errors.New("no JSON object or array found in text")
	ErrSchemaViolation   = errors.New("value does not satisfy schema")
	ErrFileNotFound      = errors.New("file not found")
	ErrFileEmpty         = errors.New("file is empty")
	ErrNoInput           = errors.New("no input provided: please specify a file with -i or pipe text to stdin")
	ErrInvalidFilePath   = errors.New("invalid file path")
	ErrUnsupportedType   = errors.New("unsupported type for schema")
	ErrHeterogeneousList = errors.New("list elements have incompatible types")
	ErrLLMCall           = errors.New("language model call failed")
	ErrLLMFormat         = errors.New("language model response did not match the requested format")
	ErrMissingAPIKey     = errors.New("api key not configured")
)

// ErrorType categorizes errors
type ErrorType string

const (
	ErrorTypeInput      ErrorType = "input"
	ErrorTypeExtraction ErrorType = "extraction"
	ErrorTypeParsing    ErrorType = "parsing"
	ErrorTypeSchema     ErrorType = "schema"
	ErrorTypeAnalysis   ErrorType = "analysis"
	ErrorTypeGenerate   ErrorType = "generate"
	ErrorTypeFormat     ErrorType = "format"
	ErrorTypeOutput     ErrorType = "output"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeLLM        ErrorType = "llm"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// AppError is an application-specific error with context
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

func newAppError(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

// NewInputError creates a new error related to input processing
func NewInputError(message string, err error) *AppError {
	return newAppError(ErrorTypeInput, message, err)
}

// NewExtractionError creates a new error for text that holds no JSON candidate
func NewExtractionError(message string, err error) *AppError {
	return newAppError(ErrorTypeExtraction, message, err)
}

// NewParsingError creates a new error related to JSON parsing
func NewParsingError(message string, err error) *AppError {
	return newAppError(ErrorTypeParsing, message, err)
}

// NewSchemaError creates a new error for schema construction or schema violations
func NewSchemaError(message string, err error) *AppError {
	return newAppError(ErrorTypeSchema, message, err)
}

// NewAnalysisError creates a new error related to schema inference
func NewAnalysisError(message string, err error) *AppError {
	return newAppError(ErrorTypeAnalysis, message, err)
}

// NewGenerateError creates a new error related to template generation
func NewGenerateError(message string, err error) *AppError {
	return newAppError(ErrorTypeGenerate, message, err)
}

// NewFormatError creates a new error related to output formatting
func NewFormatError(message string, err error) *AppError {
	return newAppError(ErrorTypeFormat, message, err)
}

// NewOutputError creates a new error related to output processing
func NewOutputError(message string, err error) *AppError {
	return newAppError(ErrorTypeOutput, message, err)
}

// NewConfigError creates a new error related to configuration
func NewConfigError(message string, err error) *AppError {
	return newAppError(ErrorTypeConfig, message, err)
}

// NewLLMError creates a new error related to the language model round trip
func NewLLMError(message string, err error) *AppError {
	return newAppError(ErrorTypeLLM, message, err)
}

// ParseError reports invalid JSON in a candidate span.
// Offset is the byte offset into the candidate; Line and Column are 1-based.
type ParseError struct {
	Offset  int64
	Line    int
	Column  int
	Message string
}

// NewParseError builds a ParseError, deriving line and column from the offset into src.
func NewParseError(src string, offset int64, message string) *ParseError {
	if offset < 0 {
		offset = 0
	}
	if offset > int64(len(src)) {
		offset = int64(len(src))
	}
	prefix := src[:offset]
	line := strings.Count(prefix, "\n") + 1
	column := int(offset) - strings.LastIndex(prefix, "\n")
	return &ParseError{Offset: offset, Line: line, Column: column, Message: message}
}

// Error implements error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid JSON at line %d, column %d (offset %d): %s", e.Line, e.Column, e.Offset, e.Message)
}

// Is reports ParseError as ErrInvalidJSON
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidJSON
}

// Diagnostic is the minimal view of a coercion diagnostic needed for error reporting.
type Diagnostic interface {
	String() string
}

// SchemaViolation carries the error-level diagnostics of a failed strict coercion.
type SchemaViolation struct {
	Diagnostics []Diagnostic
}

// Error implements error interface
func (e *SchemaViolation) Error() string {
	switch len(e.Diagnostics) {
	case 0:
		return ErrSchemaViolation.Error()
	case 1:
		return fmt.Sprintf("%s: %s", ErrSchemaViolation, e.Diagnostics[0])
	default:
		return fmt.Sprintf("%s: %s (and %d more)", ErrSchemaViolation, e.Diagnostics[0], len(e.Diagnostics)-1)
	}
}

// Is reports SchemaViolation as ErrSchemaViolation
func (e *SchemaViolation) Is(target error) bool {
	return target == ErrSchemaViolation
}

// UserFriendlyError returns a user-friendly error message
func UserFriendlyError(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrorTypeInput:
			return fmt.Sprintf("Input error: %s", appErr.Message)
		case ErrorTypeExtraction:
			return fmt.Sprintf("Extraction error: %s", appErr.Message)
		case ErrorTypeParsing:
			var parseErr *ParseError
			if errors.As(appErr.Err, &parseErr) {
				return fmt.Sprintf("JSON parsing error: %s (line %d, column %d)", parseErr.Message, parseErr.Line, parseErr.Column)
			}
			return fmt.Sprintf("JSON parsing error: %s", appErr.Message)
		case ErrorTypeSchema:
			var violation *SchemaViolation
			if errors.As(appErr.Err, &violation) {
				return fmt.Sprintf("Schema error: %s", violation.Error())
			}
			return fmt.Sprintf("Schema error: %s", appErr.Message)
		case ErrorTypeAnalysis:
			return fmt.Sprintf("Schema inference error: %s", appErr.Message)
		case ErrorTypeGenerate:
			return fmt.Sprintf("Template generation error: %s", appErr.Message)
		case ErrorTypeFormat:
			return fmt.Sprintf("Formatting error: %s", appErr.Message)
		case ErrorTypeOutput:
			return fmt.Sprintf("Output error: %s", appErr.Message)
		case ErrorTypeConfig:
			return fmt.Sprintf("Configuration error: %s", appErr.Message)
		case ErrorTypeLLM:
			return fmt.Sprintf("Language model error: %s", appErr.Message)
		default:
			return fmt.Sprintf("Error: %s", appErr.Message)
		}
	}

	if errors.Is(err, ErrEmptyInput) {
		return "Error: The input is empty. Please provide text containing JSON."
	}
	if errors.Is(err, ErrExtractionFailed) {
		return "Error: No JSON object or array could be found in the input."
	}
	if errors.Is(err, ErrInvalidJSON) {
		return "Error: The input contains invalid JSON. Please check your JSON syntax."
	}
	if errors.Is(err, ErrMultipleJSON) {
		return "Error: Multiple JSON values found. Please provide a single JSON object or array."
	}
	if errors.Is(err, ErrSchemaViolation) {
		return "Error: The JSON value does not match the schema."
	}
	if errors.Is(err, ErrFileNotFound) {
		return "Error: The specified file could not be found. Please check the file path."
	}
	if errors.Is(err, ErrFileEmpty) {
		return "Error: The specified file is empty."
	}
	if errors.Is(err, ErrNoInput) {
		return "Error: No input provided. Please specify a file with -i or pipe text to stdin."
	}
	if errors.Is(err, ErrInvalidFilePath) {
		return "Error: Invalid file path. Please provide a valid file path."
	}
	if errors.Is(err, ErrMissingAPIKey) {
		return "Error: No API key configured. Set OPENROUTER_API_KEY or llm.api_key_env in the config file."
	}

	return fmt.Sprintf("Error: %v", err)
}
