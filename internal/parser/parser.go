// Package parser turns a literal JSON text span into a models.Value.
//
// The grammar is standard JSON with no leniency: trailing commas, comments and
// single-quoted strings are rejected. Duplicate object keys are accepted and
// the last occurrence wins.
package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	stderrors "errors"

	"github.com/WaveAssist/WaveAssist/internal/errors"
	"github.com/WaveAssist/WaveAssist/internal/models"
)

// Parse reads all of reader and parses it as exactly one JSON value.
func Parse(reader io.Reader) (models.Value, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return models.Value{}, errors.NewInputError("failed to read input", err)
	}
	return ParseString(string(data))
}

// ParseString parses src as exactly one JSON value. Failures are returned as
// *errors.ParseError carrying the position of the problem.
func ParseString(src string) (models.Value, error) {
	if strings.TrimSpace(src) == "" {
		return models.Value{}, errors.NewParseError(src, int64(len(src)), "input is empty or contains only whitespace")
	}

	decoder := json.NewDecoder(strings.NewReader(src))
	decoder.UseNumber() // numbers are converted by parseNumber for a precise error

	value, err := parseValue(decoder, src)
	if err != nil {
		return models.Value{}, err
	}

	// Only whitespace may follow the value.
	offset := decoder.InputOffset()
	if _, err := decoder.Token(); err != io.EOF {
		if err != nil {
			return models.Value{}, toParseError(src, err, offset)
		}
		return models.Value{}, errors.NewParseError(src, offset, errors.ErrMultipleJSON.Error())
	}

	return value, nil
}

// ParseFile parses JSON from a file path
func ParseFile(filePath string) (models.Value, error) {
	if strings.TrimSpace(filePath) == "" {
		return models.Value{}, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Value{}, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return models.Value{}, errors.NewInputError(fmt.Sprintf("failed to read file '%s'", filePath), err)
	}
	if len(data) == 0 {
		return models.Value{}, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}
	return ParseString(string(data))
}

// parseValue consumes one complete value from the decoder's token stream.
func parseValue(decoder *json.Decoder, src string) (models.Value, error) {
	offset := decoder.InputOffset()
	token, err := decoder.Token()
	if err != nil {
		return models.Value{}, toParseError(src, err, offset)
	}

	switch t := token.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseObject(decoder, src)
		case '[':
			return parseArray(decoder, src)
		default:
			return models.Value{}, errors.NewParseError(src, offset, fmt.Sprintf("unexpected %q", rune(t)))
		}
	case string:
		return models.String(t), nil
	case json.Number:
		return parseNumber(t, src, offset)
	case bool:
		return models.Bool(t), nil
	case nil:
		return models.Null(), nil
	default:
		return models.Value{}, errors.NewParseError(src, offset, fmt.Sprintf("unexpected token %v", t))
	}
}

func parseObject(decoder *json.Decoder, src string) (models.Value, error) {
	members := make([]models.Member, 0)
	for decoder.More() {
		offset := decoder.InputOffset()
		keyToken, err := decoder.Token()
		if err != nil {
			return models.Value{}, toParseError(src, err, offset)
		}
		key, ok := keyToken.(string)
		if !ok {
			return models.Value{}, errors.NewParseError(src, decoder.InputOffset(), "object key must be a string")
		}
		value, err := parseValue(decoder, src)
		if err != nil {
			return models.Value{}, err
		}
		members = append(members, models.Member{Key: key, Value: value})
	}
	if err := expectClose(decoder, src, '}'); err != nil {
		return models.Value{}, err
	}
	return models.Map(members...), nil
}

func parseArray(decoder *json.Decoder, src string) (models.Value, error) {
	items := make([]models.Value, 0)
	for decoder.More() {
		item, err := parseValue(decoder, src)
		if err != nil {
			return models.Value{}, err
		}
		items = append(items, item)
	}
	if err := expectClose(decoder, src, ']'); err != nil {
		return models.Value{}, err
	}
	return models.List(items...), nil
}

func expectClose(decoder *json.Decoder, src string, want json.Delim) error {
	offset := decoder.InputOffset()
	token, err := decoder.Token()
	if err != nil {
		return toParseError(src, err, offset)
	}
	if delim, ok := token.(json.Delim); !ok || delim != want {
		return errors.NewParseError(src, offset, fmt.Sprintf("expected %q", rune(want)))
	}
	return nil
}

func parseNumber(n json.Number, src string, offset int64) (models.Value, error) {
	f, err := n.Float64()
	if err != nil {
		return models.Value{}, errors.NewParseError(src, offset, fmt.Sprintf("number %s is out of range", n.String()))
	}
	return models.Number(f), nil
}

// toParseError maps decoder failures onto ParseError positions. before is
// the input offset at which the failing token started; the decoder counts
// syntax error offsets per value, so the larger of the two is used.
func toParseError(src string, err error, before int64) error {
	var syntaxError *json.SyntaxError
	if stderrors.As(err, &syntaxError) {
		return errors.NewParseError(src, max(before, syntaxError.Offset), syntaxError.Error())
	}
	if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
		return errors.NewParseError(src, int64(len(src)), "unexpected end of input")
	}
	return errors.NewParseError(src, 0, err.Error())
}
