package jsondoc

import (
	"bytes"
	"fmt"
)

// BalancedSpan scans forward from an opening '{' at doc[start] and returns
// the offset just past the matching '}'. Braces inside JSON strings are
// ignored; escaped quotes and backslashes inside strings are stepped over so
// they cannot end the string early. Running off the end of the document
// before the section closes is reported as ErrMalformed.
func BalancedSpan(doc []byte, start int) (int, error) {
	if start < 0 || start >= len(doc) || doc[start] != '{' {
		return 0, fmt.Errorf("%w: span does not start at '{'", ErrInvalidInput)
	}

	depth := 1
	inString := false
	i := start + 1
	for i < len(doc) {
		c := doc[i]
		i++

		if c == '\\' && i < len(doc) && (doc[i] == '\\' || doc[i] == '"') {
			i++
			continue
		}

		switch {
		case c == '"':
			inString = !inString
		case c == '{' && !inString:
			depth++
		case c == '}' && !inString:
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}

	return 0, fmt.Errorf("%w: unterminated object section", ErrMalformed)
}

// KeyObjectSpan locates the first occurrence of the quoted key at or after
// doc[from], then slices out the brace-balanced object that follows it. The
// returned span aliases doc; next is the offset just past the span, suitable
// for locating subsequent sections of the same document.
func KeyObjectSpan(doc []byte, key string, from int) (span []byte, next int, err error) {
	if from < 0 || from > len(doc) {
		return nil, 0, fmt.Errorf("%w: offset out of range", ErrInvalidInput)
	}

	idx := bytes.Index(doc[from:], []byte(`"`+key+`"`))
	if idx < 0 {
		return nil, 0, fmt.Errorf("%w: key %q", ErrNotFound, key)
	}
	pos := from + idx

	open := bytes.IndexByte(doc[pos:], '{')
	if open < 0 {
		return nil, 0, fmt.Errorf("%w: no object follows key %q", ErrMalformed, key)
	}
	start := pos + open

	end, err := BalancedSpan(doc, start)
	if err != nil {
		return nil, 0, err
	}
	return doc[start:end], end, nil
}
