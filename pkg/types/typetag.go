// Package types defines the column type grammar of the store's tabular text
// protocol and the tagged value variant the rest of the module operates on.
//
// Every application value crosses into the module exactly once, through
// FromNative, and is carried as a Value afterwards. Downstream code switches
// on the closed set of kinds instead of probing runtime capabilities.
package types

import (
	"strings"

	"github.com/clickwire/clickwire/pkg/errors"
)

// TypeTag is the textual column type as it appears in the wire header,
// e.g. "Int64", "Array(String)", "Nullable(Float64)".
type TypeTag string

// Scalar type tags supported by the codec.
const (
	UInt8    TypeTag = "UInt8"
	UInt16   TypeTag = "UInt16"
	UInt32   TypeTag = "UInt32"
	UInt64   TypeTag = "UInt64"
	Int8     TypeTag = "Int8"
	Int16    TypeTag = "Int16"
	Int32    TypeTag = "Int32"
	Int64    TypeTag = "Int64"
	Float32  TypeTag = "Float32"
	Float64  TypeTag = "Float64"
	String   TypeTag = "String"
	Date     TypeTag = "Date"
	DateTime TypeTag = "DateTime"
)

// Array builds the array tag over an element type. The wire format cannot
// represent arrays nested deeper than one level.
func Array(elem TypeTag) TypeTag {
	return TypeTag("Array(" + string(elem) + ")")
}

// Nullable wraps a type tag in the nullable marker.
func Nullable(inner TypeTag) TypeTag {
	return TypeTag("Nullable(" + string(inner) + ")")
}

// IsArray reports whether t is an array type.
func (t TypeTag) IsArray() bool {
	return strings.HasPrefix(string(t), "Array(")
}

// Elem returns the element type of an array tag. It is the zero tag for
// non-array types.
func (t TypeTag) Elem() TypeTag {
	if !t.IsArray() {
		return ""
	}
	return TypeTag(string(t)[6 : len(t)-1])
}

// IsNullable reports whether t carries the nullable marker.
func (t TypeTag) IsNullable() bool {
	return strings.HasPrefix(string(t), "Nullable(")
}

// Inner strips one nullable marker, returning t unchanged otherwise.
func (t TypeTag) Inner() TypeTag {
	if !t.IsNullable() {
		return t
	}
	return TypeTag(string(t)[9 : len(t)-1])
}

// IsInteger reports whether t is one of the integer scalar tags.
func (t TypeTag) IsInteger() bool {
	switch t {
	case UInt8, UInt16, UInt32, UInt64, Int8, Int16, Int32, Int64:
		return true
	}
	return false
}

// IsUnsigned reports whether t is an unsigned integer tag.
func (t TypeTag) IsUnsigned() bool {
	switch t {
	case UInt8, UInt16, UInt32, UInt64:
		return true
	}
	return false
}

// IsFloat reports whether t is a floating-point scalar tag.
func (t TypeTag) IsFloat() bool {
	return t == Float32 || t == Float64
}

// IsTemporal reports whether t is Date or DateTime.
func (t TypeTag) IsTemporal() bool {
	return t == Date || t == DateTime
}

// Validate checks that t denotes a type the codec can encode and decode.
// Array element types must be scalar: the wire format has no representation
// for deeper nesting.
func (t TypeTag) Validate() error {
	inner := t.Inner()
	if inner.IsNullable() {
		return errors.Newf(errors.ErrorTypeFormat, "nested Nullable in type %q", t)
	}
	if inner.IsArray() {
		elem := inner.Elem()
		if elem.IsArray() || elem.IsNullable() {
			return errors.Newf(errors.ErrorTypeFormat, "array nesting deeper than one level in type %q", t)
		}
		return elem.Validate()
	}
	switch inner {
	case UInt8, UInt16, UInt32, UInt64, Int8, Int16, Int32, Int64,
		Float32, Float64, String, Date, DateTime:
		return nil
	}
	return errors.Newf(errors.ErrorTypeFormat, "unsupported type %q", t)
}
