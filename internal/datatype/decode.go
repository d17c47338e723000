package datatype

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/h5rest/h5rest/internal/jsondoc"
)

// Decode converts a wire JSON type document back to a descriptor.
//
// A document that is a bare JSON string is a committed-type indirection and
// decodes to a ClassCommitted descriptor; resolving the URI to a full
// structure is the caller's concern. Everything else dispatches on the
// "class" key. Compound, array and enum documents are decoded by slicing the
// relevant sub-object's raw text out of the original document and recursing,
// so nested structure round-trips without ever rebuilding intermediate JSON.
func Decode(doc []byte) (*Descriptor, error) {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty type document", jsondoc.ErrInvalidInput)
	}

	if trimmed[0] == '"' {
		var uri string
		if err := json.Unmarshal(trimmed, &uri); err != nil {
			return nil, fmt.Errorf("%w: bad committed type reference: %v", jsondoc.ErrMalformed, err)
		}
		if uri == "" {
			return nil, fmt.Errorf("%w: empty committed type URI", jsondoc.ErrMalformed)
		}
		return NewCommitted(uri), nil
	}

	class, err := jsondoc.GetString(trimmed, "$.class")
	if err != nil {
		return nil, fmt.Errorf("reading type class: %w", err)
	}

	switch class {
	case "H5T_INTEGER":
		return decodeInteger(trimmed)
	case "H5T_FLOAT":
		return decodeFloat(trimmed)
	case "H5T_STRING":
		return decodeString(trimmed)
	case "H5T_COMPOUND":
		return decodeCompound(trimmed)
	case "H5T_ARRAY":
		return decodeArray(trimmed)
	case "H5T_ENUM":
		return decodeEnum(trimmed)
	case "H5T_REFERENCE":
		return decodeReference(trimmed)
	case "H5T_BITFIELD", "H5T_OPAQUE", "H5T_VLEN", "H5T_TIME":
		return nil, fmt.Errorf("%w: class %s", ErrUnsupportedType, class)
	default:
		return nil, fmt.Errorf("%w: unknown class %q", ErrUnsupportedType, class)
	}
}

// decodeInteger parses the predefined integer name positionally: the layout
// after "H5T_STD_" is fixed as <sign><bits><endianness>, so the sign
// character, the width digits and the byte-order token sit at known offsets.
// Only the eight standard predefined integer types exist; any other layout is
// rejected.
func decodeInteger(doc []byte) (*Descriptor, error) {
	base, err := jsondoc.GetString(doc, "$.base")
	if err != nil {
		return nil, fmt.Errorf("reading integer base type: %w", err)
	}

	rest, ok := strings.CutPrefix(base, "H5T_STD_")
	if !ok || len(rest) < 3 {
		return nil, fmt.Errorf("%w: non-predefined integer type %q", ErrUnsupportedType, base)
	}

	var signed bool
	switch rest[0] {
	case 'I':
		signed = true
	case 'U':
		signed = false
	default:
		return nil, fmt.Errorf("%w: bad sign token in %q", ErrUnsupportedType, base)
	}

	size, order, err := widthAndOrder(rest[1:], base)
	if err != nil {
		return nil, err
	}
	return NewInteger(size, signed, order), nil
}

// decodeFloat is restricted to the two standard IEEE widths.
func decodeFloat(doc []byte) (*Descriptor, error) {
	base, err := jsondoc.GetString(doc, "$.base")
	if err != nil {
		return nil, fmt.Errorf("reading float base type: %w", err)
	}

	rest, ok := strings.CutPrefix(base, "H5T_IEEE_F")
	if !ok {
		return nil, fmt.Errorf("%w: non-predefined float type %q", ErrUnsupportedType, base)
	}

	size, order, err := widthAndOrder(rest, base)
	if err != nil {
		return nil, err
	}
	if size != 4 && size != 8 {
		return nil, fmt.Errorf("%w: %d-byte float type %q", ErrUnsupportedType, size, base)
	}
	return NewFloat(size, order), nil
}

// widthAndOrder reads the trailing "<bits><LE|BE>" of a predefined name.
func widthAndOrder(s, full string) (int, ByteOrder, error) {
	var size int
	switch {
	case strings.HasPrefix(s, "8"):
		size, s = 1, s[1:]
	case strings.HasPrefix(s, "16"):
		size, s = 2, s[2:]
	case strings.HasPrefix(s, "32"):
		size, s = 4, s[2:]
	case strings.HasPrefix(s, "64"):
		size, s = 8, s[2:]
	default:
		return 0, 0, fmt.Errorf("%w: bad width in predefined type %q", ErrUnsupportedType, full)
	}

	switch s {
	case "LE":
		return size, OrderLE, nil
	case "BE":
		return size, OrderBE, nil
	default:
		return 0, 0, fmt.Errorf("%w: bad byte order in predefined type %q", ErrUnsupportedType, full)
	}
}

func decodeString(doc []byte) (*Descriptor, error) {
	length, err := jsondoc.Get(doc, "$.length")
	if err != nil {
		return nil, fmt.Errorf("reading string length: %w", err)
	}

	charSetName, err := jsondoc.GetString(doc, "$.charSet")
	if err != nil {
		return nil, fmt.Errorf("reading string character set: %w", err)
	}
	var charSet CharSet
	switch charSetName {
	case "H5T_CSET_ASCII":
		charSet = CharSetASCII
	case "H5T_CSET_UTF8":
		charSet = CharSetUTF8
	default:
		return nil, fmt.Errorf("%w: string character set %q", ErrUnsupportedType, charSetName)
	}

	pad, err := jsondoc.GetString(doc, "$.strPad")
	if err != nil {
		return nil, fmt.Errorf("reading string padding: %w", err)
	}

	switch v := length.(type) {
	case string:
		if v != "H5T_VARIABLE" {
			return nil, fmt.Errorf("%w: string length %q", ErrUnsupportedType, v)
		}
		if pad != "H5T_STR_NULLTERM" {
			return nil, fmt.Errorf("%w: variable-length string with padding %q", ErrUnsupportedType, pad)
		}
		return NewVariableString(charSet), nil
	case float64:
		if v <= 0 || v != float64(int(v)) {
			return nil, fmt.Errorf("%w: invalid string length %v", jsondoc.ErrMalformed, v)
		}
		if pad != "H5T_STR_NULLPAD" {
			return nil, fmt.Errorf("%w: fixed-length string with padding %q", ErrUnsupportedType, pad)
		}
		return NewFixedString(int(v), charSet), nil
	default:
		return nil, fmt.Errorf("%w: string length is %T", jsondoc.ErrMalformed, length)
	}
}

// decodeCompound reads member names from the parsed fields array, then walks
// the document text slicing each member's "type" sub-object out as an
// independent JSON span and recursing on it. Output field order equals input
// array order, which fixes every member's byte offset as the running sum of
// prior member sizes.
func decodeCompound(doc []byte) (*Descriptor, error) {
	fieldsArr, err := jsondoc.GetArray(doc, "$.fields")
	if err != nil {
		return nil, fmt.Errorf("reading compound fields: %w", err)
	}
	if len(fieldsArr) == 0 {
		return nil, fmt.Errorf("%w: compound type with zero members", jsondoc.ErrMalformed)
	}

	names := make([]string, len(fieldsArr))
	for i, raw := range fieldsArr {
		member, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: compound member %d is not an object", jsondoc.ErrMalformed, i)
		}
		name, ok := member["name"].(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: compound member %d has no name", jsondoc.ErrMalformed, i)
		}
		names[i] = name
	}
	if err := uniqueNames(names); err != nil {
		return nil, fmt.Errorf("%w: %v", jsondoc.ErrMalformed, err)
	}

	// Search begins at the "fields" key so a preceding "type" key elsewhere
	// in the document cannot shift the member spans.
	from := bytes.Index(doc, []byte(`"fields"`))
	if from < 0 {
		return nil, fmt.Errorf("%w: no fields section in compound document", jsondoc.ErrMalformed)
	}

	fields := make([]Field, len(fieldsArr))
	for i, name := range names {
		span, next, err := jsondoc.KeyObjectSpan(doc, "type", from)
		if err != nil {
			return nil, fmt.Errorf("compound member %q: %w", name, err)
		}
		memberType, err := Decode(span)
		if err != nil {
			return nil, fmt.Errorf("compound member %q: %w", name, err)
		}
		fields[i] = Field{Name: name, Type: memberType}
		from = next
	}

	return NewCompound(fields...), nil
}

func decodeArray(doc []byte) (*Descriptor, error) {
	span, _, err := jsondoc.KeyObjectSpan(doc, "base", 0)
	if err != nil {
		return nil, fmt.Errorf("reading array base type: %w", err)
	}
	base, err := Decode(span)
	if err != nil {
		return nil, fmt.Errorf("array base type: %w", err)
	}

	dimsArr, err := jsondoc.GetArray(doc, "$.dims")
	if err != nil {
		return nil, fmt.Errorf("reading array dims: %w", err)
	}
	if len(dimsArr) == 0 {
		return nil, fmt.Errorf("%w: array type with empty dims", jsondoc.ErrMalformed)
	}

	dims := make([]int, len(dimsArr))
	for i, raw := range dimsArr {
		f, ok := raw.(float64)
		if !ok || f <= 0 || f != float64(int(f)) {
			return nil, fmt.Errorf("%w: array dimension %d is %v", jsondoc.ErrMalformed, i, raw)
		}
		dims[i] = int(f)
	}

	return NewArray(base, dims...), nil
}

func decodeEnum(doc []byte) (*Descriptor, error) {
	baseSpan, _, err := jsondoc.KeyObjectSpan(doc, "base", 0)
	if err != nil {
		return nil, fmt.Errorf("reading enum base type: %w", err)
	}
	base, err := Decode(baseSpan)
	if err != nil {
		return nil, fmt.Errorf("enum base type: %w", err)
	}
	if base.Class != ClassInteger {
		return nil, fmt.Errorf("%w: enum base class %s", ErrUnsupportedType, base.Class)
	}

	mappingSpan, _, err := jsondoc.KeyObjectSpan(doc, "mapping", 0)
	if err != nil {
		return nil, fmt.Errorf("reading enum mapping: %w", err)
	}
	mapping, err := jsondoc.DecodeOrderedObject(mappingSpan)
	if err != nil {
		return nil, fmt.Errorf("enum mapping: %w", err)
	}
	if len(mapping) == 0 {
		return nil, fmt.Errorf("%w: enum type with empty mapping", jsondoc.ErrMalformed)
	}

	members := make([]EnumMember, len(mapping))
	names := make([]string, len(mapping))
	for i, m := range mapping {
		value, err := enumValueBits(base, m.Value)
		if err != nil {
			return nil, fmt.Errorf("enum member %q: %w", m.Key, err)
		}
		members[i] = EnumMember{Name: m.Key, Value: value}
		names[i] = m.Key
	}
	if err := uniqueNames(names); err != nil {
		return nil, fmt.Errorf("%w: %v", jsondoc.ErrMalformed, err)
	}

	return NewEnum(base, members...), nil
}

// enumValueBits converts a JSON integer to the base type's native
// representation, range-checking against the base width and signedness.
func enumValueBits(base *Descriptor, num json.Number) (int64, error) {
	if base.Signed {
		v, err := num.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", jsondoc.ErrMalformed, err)
		}
		if err := checkEnumValue(base, v); err != nil {
			return 0, err
		}
		return v, nil
	}

	u, err := strconv.ParseUint(num.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", jsondoc.ErrMalformed, err)
	}
	v := int64(u)
	if err := checkEnumValue(base, v); err != nil {
		return 0, err
	}
	return v, nil
}

func decodeReference(doc []byte) (*Descriptor, error) {
	base, err := jsondoc.GetString(doc, "$.base")
	if err != nil {
		return nil, fmt.Errorf("reading reference base type: %w", err)
	}
	switch base {
	case "H5T_STD_REF_OBJ":
		return NewReference(RefObject), nil
	case "H5T_STD_REF_DSETREG":
		return NewReference(RefRegion), nil
	default:
		return nil, fmt.Errorf("%w: reference type %q", ErrUnsupportedType, base)
	}
}
