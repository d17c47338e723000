package jsondoc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Member is one key/value pair of a JSON object, in document order.
type Member struct {
	Key   string
	Value json.Number
}

// DecodeOrderedObject decodes a single flat JSON object whose values are all
// numbers, preserving the textual order of its keys. encoding/json maps lose
// ordering, which matters for callers that must reproduce member declaration
// order on round-trip.
func DecodeOrderedObject(span []byte) ([]Member, error) {
	dec := json.NewDecoder(bytes.NewReader(span))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: expected object", ErrMalformed)
	}

	var members []Member
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: object key is not a string", ErrMalformed)
		}

		valTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		num, ok := valTok.(json.Number)
		if !ok {
			return nil, fmt.Errorf("%w: value for %q is not a number", ErrMalformed, key)
		}

		members = append(members, Member{Key: key, Value: num})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return members, nil
}
