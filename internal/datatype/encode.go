package datatype

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnsupportedType indicates a datatype the wire grammar cannot carry:
	// bitfield, opaque, variable-length sequence, time, or an atomic type
	// outside the standard predefined widths.
	ErrUnsupportedType = errors.New("datatype: unsupported datatype")

	// ErrInvalidType indicates a descriptor that violates its own variant's
	// rules (empty compound, zero-length dims, mismatched string padding).
	ErrInvalidType = errors.New("datatype: invalid datatype")
)

// Encode converts a descriptor to its wire JSON form. A committed type
// encodes as a bare JSON string holding its server URI and nothing else; the
// referenced structure never travels inline. Callers embedding the result in
// a request body place it under the "type" key themselves.
func Encode(d *Descriptor) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil descriptor", ErrInvalidType)
	}
	var b strings.Builder
	if err := encodeTo(&b, d); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func encodeTo(b *strings.Builder, d *Descriptor) error {
	switch d.Class {
	case ClassCommitted:
		if d.URI == "" {
			return fmt.Errorf("%w: committed type without URI", ErrInvalidType)
		}
		fmt.Fprintf(b, "%q", d.URI)
		return nil

	case ClassInteger, ClassFloat:
		name, err := predefinedName(d)
		if err != nil {
			return err
		}
		class := "H5T_INTEGER"
		if d.Class == ClassFloat {
			class = "H5T_FLOAT"
		}
		fmt.Fprintf(b, `{"class": %q, "base": %q}`, class, name)
		return nil

	case ClassString:
		return encodeString(b, d)

	case ClassCompound:
		return encodeCompound(b, d)

	case ClassArray:
		return encodeArray(b, d)

	case ClassEnum:
		return encodeEnum(b, d)

	case ClassReference:
		base := "H5T_STD_REF_OBJ"
		if d.RefKind == RefRegion {
			base = "H5T_STD_REF_DSETREG"
		}
		fmt.Fprintf(b, `{"class": "H5T_REFERENCE", "base": %q}`, base)
		return nil

	default:
		return fmt.Errorf("%w: class %s has no wire representation", ErrUnsupportedType, d.Class)
	}
}

// predefinedName derives the canonical predefined-type name from the atomic
// type's signedness, width and endianness. Only the standard widths exist on
// the wire; anything else is a hard error.
func predefinedName(d *Descriptor) (string, error) {
	order := "LE"
	if d.Order == OrderBE {
		order = "BE"
	}

	if d.Class == ClassFloat {
		switch d.Size {
		case 4, 8:
			return fmt.Sprintf("H5T_IEEE_F%d%s", d.Size*8, order), nil
		default:
			return "", fmt.Errorf("%w: %d-byte float is not a predefined type", ErrUnsupportedType, d.Size)
		}
	}

	switch d.Size {
	case 1, 2, 4, 8:
	default:
		return "", fmt.Errorf("%w: %d-byte integer is not a predefined type", ErrUnsupportedType, d.Size)
	}
	sign := "U"
	if d.Signed {
		sign = "I"
	}
	return fmt.Sprintf("H5T_STD_%s%d%s", sign, d.Size*8, order), nil
}

func encodeString(b *strings.Builder, d *Descriptor) error {
	var cset string
	switch d.CharSet {
	case CharSetASCII:
		cset = "H5T_CSET_ASCII"
	case CharSetUTF8:
		cset = "H5T_CSET_UTF8"
	default:
		return fmt.Errorf("%w: invalid character set", ErrInvalidType)
	}

	if d.Variable {
		if d.Pad != PadNullTerm {
			return fmt.Errorf("%w: variable-length strings must be null-terminated", ErrInvalidType)
		}
		fmt.Fprintf(b, `{"class": "H5T_STRING", "charSet": %q, "strPad": "H5T_STR_NULLTERM", "length": "H5T_VARIABLE"}`, cset)
		return nil
	}

	if d.Pad != PadNullPad {
		return fmt.Errorf("%w: fixed-length strings must be null-padded", ErrInvalidType)
	}
	if d.Size <= 0 {
		return fmt.Errorf("%w: fixed-length string must have positive length", ErrInvalidType)
	}
	fmt.Fprintf(b, `{"class": "H5T_STRING", "charSet": %q, "strPad": "H5T_STR_NULLPAD", "length": %d}`, cset, d.Size)
	return nil
}

func encodeCompound(b *strings.Builder, d *Descriptor) error {
	if len(d.Fields) == 0 {
		return fmt.Errorf("%w: compound type has no members", ErrInvalidType)
	}
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	if err := uniqueNames(names); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidType, err)
	}

	// Member order is significant on the wire: it determines byte offsets.
	b.WriteString(`{"class": "H5T_COMPOUND", "fields": [`)
	for i, f := range d.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, `{"name": %q, "type": `, f.Name)
		if err := encodeTo(b, f.Type); err != nil {
			return fmt.Errorf("member %q: %w", f.Name, err)
		}
		b.WriteString("}")
	}
	b.WriteString("]}")
	return nil
}

func encodeArray(b *strings.Builder, d *Descriptor) error {
	if d.Base == nil {
		return fmt.Errorf("%w: array type has no base type", ErrInvalidType)
	}
	if len(d.Dims) == 0 {
		return fmt.Errorf("%w: array type has no dimensions", ErrInvalidType)
	}
	for _, dim := range d.Dims {
		if dim <= 0 {
			return fmt.Errorf("%w: array dimension %d is not positive", ErrInvalidType, dim)
		}
	}

	b.WriteString(`{"class": "H5T_ARRAY", "base": `)
	if err := encodeTo(b, d.Base); err != nil {
		return err
	}
	b.WriteString(`, "dims": [`)
	for i, dim := range d.Dims {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(dim))
	}
	b.WriteString("]}")
	return nil
}

func encodeEnum(b *strings.Builder, d *Descriptor) error {
	if d.Base == nil || d.Base.Class != ClassInteger {
		return fmt.Errorf("%w: enum base type must be an integer type", ErrInvalidType)
	}
	if len(d.Members) == 0 {
		return fmt.Errorf("%w: enum type has no members", ErrInvalidType)
	}
	names := make([]string, len(d.Members))
	for i, m := range d.Members {
		names[i] = m.Name
	}
	if err := uniqueNames(names); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidType, err)
	}

	baseName, err := predefinedName(d.Base)
	if err != nil {
		return err
	}

	fmt.Fprintf(b, `{"class": "H5T_ENUM", "base": {"class": "H5T_INTEGER", "base": %q}, "mapping": {`, baseName)
	for i, m := range d.Members {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := checkEnumValue(d.Base, m.Value); err != nil {
			return err
		}
		fmt.Fprintf(b, "%q: %s", m.Name, formatEnumValue(d.Base, m.Value))
	}
	b.WriteString("}}")
	return nil
}

// formatEnumValue renders the member value with the base type's signedness:
// unsigned bases print the raw bit pattern as an unsigned decimal.
func formatEnumValue(base *Descriptor, value int64) string {
	if base.Signed {
		return strconv.FormatInt(value, 10)
	}
	return strconv.FormatUint(uint64(value), 10)
}

// checkEnumValue verifies the member value is representable in the base
// integer type's width.
func checkEnumValue(base *Descriptor, value int64) error {
	bits := uint(base.Size * 8)
	if bits >= 64 {
		return nil
	}
	if base.Signed {
		min := int64(-1) << (bits - 1)
		max := int64(1)<<(bits-1) - 1
		if value < min || value > max {
			return fmt.Errorf("%w: enum value %d out of range for %d-bit signed base", ErrInvalidType, value, bits)
		}
		return nil
	}
	if value < 0 || uint64(value) > uint64(1)<<bits-1 {
		return fmt.Errorf("%w: enum value %d out of range for %d-bit unsigned base", ErrInvalidType, value, bits)
	}
	return nil
}
