// Package object models server-side object identity: the opaque identifiers
// the store assigns to groups, datasets and committed datatypes, and the kind
// tags used to pick REST collection endpoints.
package object

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind identifies what a stored object is.
type Kind int

const (
	KindUnknown Kind = iota
	KindGroup
	KindDataset
	KindDatatype
)

// ErrInvalidID indicates an identifier that does not match the server's
// "<kind prefix>-<uuid>" format.
var ErrInvalidID = errors.New("object: invalid identifier")

// kind prefix characters used in server identifiers.
const (
	prefixGroup    = 'g'
	prefixDataset  = 'd'
	prefixDatatype = 't'
)

// String returns the kind name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindDataset:
		return "dataset"
	case KindDatatype:
		return "datatype"
	default:
		return "unknown"
	}
}

// Collection returns the REST collection segment for the kind.
func (k Kind) Collection() (string, error) {
	switch k {
	case KindGroup:
		return "groups", nil
	case KindDataset:
		return "datasets", nil
	case KindDatatype:
		return "datatypes", nil
	default:
		return "", fmt.Errorf("object: kind %d has no collection", int(k))
	}
}

// KindFromCollection maps a listing's "collection" field to a Kind.
func KindFromCollection(collection string) (Kind, error) {
	switch collection {
	case "groups":
		return KindGroup, nil
	case "datasets":
		return KindDataset, nil
	case "datatypes":
		return KindDatatype, nil
	default:
		return KindUnknown, fmt.Errorf("object: unknown collection %q", collection)
	}
}

// ID is a server-assigned object identifier such as
// "g-314d61b8-9954-11e6-a14f-0242ac110009".
type ID string

// ParseID validates the identifier format and returns it typed.
func ParseID(s string) (ID, error) {
	prefix, rest, ok := strings.Cut(s, "-")
	if !ok || len(prefix) != 1 {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	switch prefix[0] {
	case prefixGroup, prefixDataset, prefixDatatype:
	default:
		return "", fmt.Errorf("%w: unknown prefix in %q", ErrInvalidID, s)
	}
	if _, err := uuid.Parse(rest); err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidID, s, err)
	}
	return ID(s), nil
}

// NewID generates a fresh identifier for the kind. Used by test fixtures and
// fakes; real identifiers are always minted by the server.
func NewID(kind Kind) ID {
	var prefix byte
	switch kind {
	case KindDataset:
		prefix = prefixDataset
	case KindDatatype:
		prefix = prefixDatatype
	default:
		prefix = prefixGroup
	}
	return ID(fmt.Sprintf("%c-%s", prefix, uuid.New().String()))
}

// Kind derives the object kind from the identifier's prefix.
func (id ID) Kind() Kind {
	if len(id) < 2 || id[1] != '-' {
		return KindUnknown
	}
	switch id[0] {
	case prefixGroup:
		return KindGroup
	case prefixDataset:
		return KindDataset
	case prefixDatatype:
		return KindDatatype
	default:
		return KindUnknown
	}
}

// String returns the raw identifier.
func (id ID) String() string { return string(id) }

// Ref pairs an identifier with its resolved kind.
type Ref struct {
	ID   ID
	Kind Kind
}
