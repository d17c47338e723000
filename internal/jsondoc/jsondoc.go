// Package jsondoc reads values out of raw JSON response documents.
//
// Lookups use JSONPath expressions so callers can name fixed key paths
// ("$.link.class") without hand-decoding intermediate containers. A missing
// key is reported as ErrNotFound, distinct from ErrMalformed which signals a
// document that cannot be parsed at all; callers rely on that distinction to
// tell schema mismatches from truncated responses.
package jsondoc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/theory/jsonpath"
)

var (
	// ErrNotFound indicates the requested key path has no value in the document.
	ErrNotFound = errors.New("jsondoc: value not found")

	// ErrMalformed indicates the document is not well-formed JSON.
	ErrMalformed = errors.New("jsondoc: malformed document")

	// ErrInvalidInput indicates an unusable argument such as an empty document.
	ErrInvalidInput = errors.New("jsondoc: invalid input")
)

// Get evaluates a JSONPath expression against the document and returns the
// first match.
func Get(doc []byte, pathExpr string) (any, error) {
	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrInvalidInput)
	}
	if pathExpr == "" {
		return nil, fmt.Errorf("%w: path expression is empty", ErrInvalidInput)
	}

	path, err := jsonpath.Parse(pathExpr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid path %s: %v", ErrInvalidInput, pathExpr, err)
	}

	var data any
	if err := json.Unmarshal(doc, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	results := path.Select(data)
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, pathExpr)
	}
	return results[0], nil
}

// GetString returns the value at the path, which must be a JSON string.
func GetString(doc []byte, pathExpr string) (string, error) {
	value, err := Get(doc, pathExpr)
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: value at %s is %T, want string", ErrMalformed, pathExpr, value)
	}
	return s, nil
}

// GetFloat returns the value at the path, which must be a JSON number.
func GetFloat(doc []byte, pathExpr string) (float64, error) {
	value, err := Get(doc, pathExpr)
	if err != nil {
		return 0, err
	}
	f, ok := value.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: value at %s is %T, want number", ErrMalformed, pathExpr, value)
	}
	return f, nil
}

// GetArray returns the value at the path, which must be a JSON array.
func GetArray(doc []byte, pathExpr string) ([]any, error) {
	value, err := Get(doc, pathExpr)
	if err != nil {
		return nil, err
	}
	arr, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: value at %s is %T, want array", ErrMalformed, pathExpr, value)
	}
	return arr, nil
}
