// Package datatype models HDF5 datatypes and converts them to and from the
// store's JSON type grammar.
//
// A Descriptor is a tagged variant: exactly the fields relevant to its Class
// are meaningful. Descriptors own their nested descriptors; Clone produces a
// fully independent tree. A committed type is represented by ClassCommitted
// plus the server URI and carries no structure of its own.
package datatype

import (
	"fmt"
	"slices"
)

// Class tags the datatype variant.
type Class int

const (
	ClassInteger Class = iota
	ClassFloat
	ClassString
	ClassCompound
	ClassArray
	ClassEnum
	ClassReference
	ClassCommitted

	// Host-side classes with no wire representation. Encoding any of these
	// fails with ErrUnsupportedType.
	ClassBitfield
	ClassOpaque
	ClassVarLen
	ClassTime
)

// String returns the class name used in diagnostics.
func (c Class) String() string {
	switch c {
	case ClassInteger:
		return "integer"
	case ClassFloat:
		return "float"
	case ClassString:
		return "string"
	case ClassCompound:
		return "compound"
	case ClassArray:
		return "array"
	case ClassEnum:
		return "enum"
	case ClassReference:
		return "reference"
	case ClassCommitted:
		return "committed"
	case ClassBitfield:
		return "bitfield"
	case ClassOpaque:
		return "opaque"
	case ClassVarLen:
		return "vlen"
	case ClassTime:
		return "time"
	default:
		return "invalid"
	}
}

// ByteOrder is the endianness of an atomic type.
type ByteOrder int

const (
	OrderLE ByteOrder = iota
	OrderBE
)

// CharSet is a string type's character encoding.
type CharSet int

const (
	CharSetASCII CharSet = iota
	CharSetUTF8
)

// StrPad is a string type's padding discipline. The wire grammar ties it to
// the length kind: fixed-length strings are null-padded, variable-length
// strings are null-terminated.
type StrPad int

const (
	PadNullTerm StrPad = iota
	PadNullPad
)

// RefKind is a reference type's subkind.
type RefKind int

const (
	RefObject RefKind = iota
	RefRegion
)

// Field is one named member of a compound type.
type Field struct {
	Name string
	Type *Descriptor
}

// EnumMember is one named value of an enum type. Value holds the two's
// complement bits; the base type's signedness selects the interpretation.
type EnumMember struct {
	Name  string
	Value int64
}

// Descriptor is the in-memory form of a datatype.
type Descriptor struct {
	Class Class

	// Integer/Float: byte width in {1,2,4,8} ({4,8} for floats).
	// String: fixed byte length (ignored when Variable).
	Size   int
	Signed bool // integers only
	Order  ByteOrder

	CharSet  CharSet
	Pad      StrPad
	Variable bool

	Fields []Field // compound, in declaration order

	Base *Descriptor // array element type, enum base integer type
	Dims []int       // array extents, outermost first

	Members []EnumMember

	RefKind RefKind

	URI string // committed types only
}

// Reference type in-memory sizes. An object reference holds a store address;
// a region reference additionally carries dataspace selection bookkeeping.
const (
	objectRefSize = 8
	regionRefSize = 12
)

// Pointer-sized in-memory representation of a variable-length string.
const variableStrSize = 8

// TotalSize returns the in-memory byte size of one element of the type.
// Compound members are laid out contiguously, so the compound size is the
// plain sum of member sizes. Committed types have no local structure and
// report zero.
func (d *Descriptor) TotalSize() int {
	switch d.Class {
	case ClassInteger, ClassFloat:
		return d.Size
	case ClassString:
		if d.Variable {
			return variableStrSize
		}
		return d.Size
	case ClassCompound:
		total := 0
		for _, f := range d.Fields {
			total += f.Type.TotalSize()
		}
		return total
	case ClassArray:
		n := d.Base.TotalSize()
		for _, dim := range d.Dims {
			n *= dim
		}
		return n
	case ClassEnum:
		return d.Base.TotalSize()
	case ClassReference:
		if d.RefKind == RefRegion {
			return regionRefSize
		}
		return objectRefSize
	default:
		return 0
	}
}

// MemberOffset returns the byte offset of compound member i: the sum of the
// sizes of members 0..i-1.
func (d *Descriptor) MemberOffset(i int) int {
	offset := 0
	for j := 0; j < i && j < len(d.Fields); j++ {
		offset += d.Fields[j].Type.TotalSize()
	}
	return offset
}

// Clone deep-copies the descriptor tree. No nested descriptor is shared
// between the original and the copy.
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	out := *d
	if d.Base != nil {
		out.Base = d.Base.Clone()
	}
	if d.Dims != nil {
		out.Dims = slices.Clone(d.Dims)
	}
	if d.Members != nil {
		out.Members = slices.Clone(d.Members)
	}
	if d.Fields != nil {
		out.Fields = make([]Field, len(d.Fields))
		for i, f := range d.Fields {
			out.Fields[i] = Field{Name: f.Name, Type: f.Type.Clone()}
		}
	}
	return &out
}

// NewInteger builds a standard-width integer type.
func NewInteger(size int, signed bool, order ByteOrder) *Descriptor {
	return &Descriptor{Class: ClassInteger, Size: size, Signed: signed, Order: order}
}

// NewFloat builds a standard-width IEEE float type.
func NewFloat(size int, order ByteOrder) *Descriptor {
	return &Descriptor{Class: ClassFloat, Size: size, Order: order}
}

// NewFixedString builds a fixed-length, null-padded string type.
func NewFixedString(length int, charSet CharSet) *Descriptor {
	return &Descriptor{Class: ClassString, Size: length, CharSet: charSet, Pad: PadNullPad}
}

// NewVariableString builds a variable-length, null-terminated string type.
func NewVariableString(charSet CharSet) *Descriptor {
	return &Descriptor{Class: ClassString, Variable: true, CharSet: charSet, Pad: PadNullTerm}
}

// NewCompound builds a compound type from fields in declaration order.
func NewCompound(fields ...Field) *Descriptor {
	return &Descriptor{Class: ClassCompound, Fields: fields}
}

// NewArray builds an array type over a base element type.
func NewArray(base *Descriptor, dims ...int) *Descriptor {
	return &Descriptor{Class: ClassArray, Base: base, Dims: dims}
}

// NewEnum builds an enum type over an integer base type.
func NewEnum(base *Descriptor, members ...EnumMember) *Descriptor {
	return &Descriptor{Class: ClassEnum, Base: base, Members: members}
}

// NewReference builds a reference type.
func NewReference(kind RefKind) *Descriptor {
	return &Descriptor{Class: ClassReference, RefKind: kind}
}

// NewCommitted builds a committed-type indirection holding a server URI.
func NewCommitted(uri string) *Descriptor {
	return &Descriptor{Class: ClassCommitted, URI: uri}
}

func uniqueNames(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate member name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
