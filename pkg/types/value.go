package types

import (
	"math"
	"time"

	"github.com/clickwire/clickwire/pkg/errors"
	"github.com/clickwire/clickwire/pkg/json"
)

// Kind identifies the variant carried by a Value.
type Kind uint8

const (
	// KindNull marks an absent value; absent columns insert as NULL.
	KindNull Kind = iota
	// KindBool carries a boolean, rendered as UInt8 on the wire.
	KindBool
	// KindInt carries a signed 64-bit integer.
	KindInt
	// KindUint carries an unsigned 64-bit integer above the int64 range.
	// Unsigned values that fit in an int64 are carried as KindInt.
	KindUint
	// KindFloat carries a 64-bit float.
	KindFloat
	// KindString carries a string.
	KindString
	// KindDate carries a calendar date.
	KindDate
	// KindDateTime carries a timestamp with second precision.
	KindDateTime
	// KindArray carries a homogeneously-typed sequence of values.
	KindArray
)

// String returns the kind name for logging and error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindArray:
		return "array"
	}
	return "unknown"
}

// Value is the tagged variant for a single typed field. The zero Value is
// NULL.
type Value struct {
	kind Kind
	num  int64
	fl   float64
	str  string
	tm   time.Time
	arr  []Value
}

// Null returns the NULL value.
func Null() Value {
	return Value{}
}

// Bool builds a boolean value.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.num = 1
	}
	return v
}

// Int builds an integer value.
func Int(i int64) Value {
	return Value{kind: KindInt, num: i}
}

// Uint builds an unsigned integer value. Values within the int64 range
// collapse to KindInt so equality is unaffected by how the value arrived.
func Uint(u uint64) Value {
	if u > math.MaxInt64 {
		return Value{kind: KindUint, num: int64(u)}
	}
	return Value{kind: KindInt, num: int64(u)}
}

// Float builds a float value.
func Float(f float64) Value {
	return Value{kind: KindFloat, fl: f}
}

// Str builds a string value.
func Str(s string) Value {
	return Value{kind: KindString, str: s}
}

// DateOf builds a date value, truncated to the day.
func DateOf(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, tm: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DateTimeOf builds a datetime value, truncated to whole seconds.
func DateTimeOf(t time.Time) Value {
	return Value{kind: KindDateTime, tm: t.Truncate(time.Second)}
}

// ArrayOf builds an array value over the given elements.
func ArrayOf(elems ...Value) Value {
	return Value{kind: KindArray, arr: elems}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is NULL.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean payload. Valid for KindBool.
func (v Value) Bool() bool { return v.num != 0 }

// Int64 returns the integer payload, converting bool and float payloads.
// For KindUint it returns the raw bits; use Uint64 there instead.
func (v Value) Int64() int64 {
	if v.kind == KindFloat {
		return int64(v.fl)
	}
	return v.num
}

// Uint64 returns the unsigned integer payload. Valid for KindUint and for
// non-negative KindInt values.
func (v Value) Uint64() uint64 {
	return uint64(v.num)
}

// Float64 returns the float payload, converting integer payloads.
func (v Value) Float64() float64 {
	switch v.kind {
	case KindInt, KindBool:
		return float64(v.num)
	case KindUint:
		return float64(uint64(v.num))
	}
	return v.fl
}

// Str returns the string payload. Valid for KindString.
func (v Value) Str() string { return v.str }

// Time returns the temporal payload. Valid for KindDate and KindDateTime.
func (v Value) Time() time.Time { return v.tm }

// Array returns the element slice. Valid for KindArray. The slice is shared,
// not copied.
func (v Value) Array() []Value { return v.arr }

// Equal reports deep equality of two values.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool, KindInt, KindUint:
		return v.num == other.num
	case KindFloat:
		return v.fl == other.fl
	case KindString:
		return v.str == other.str
	case KindDate, KindDateTime:
		return v.tm.Equal(other.tm)
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Native converts the value back to its plain Go representation: nil, bool,
// int64, float64, string, time.Time or []interface{}.
func (v Value) Native() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.num != 0
	case KindInt:
		return v.num
	case KindUint:
		return uint64(v.num)
	case KindFloat:
		return v.fl
	case KindString:
		return v.str
	case KindDate, KindDateTime:
		return v.tm
	case KindArray:
		out := make([]interface{}, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Native()
		}
		return out
	}
	return nil
}

// FromNative converts a plain Go value into the tagged variant. This is the
// single conversion boundary: maps and other unmodelled shapes serialize to
// a JSON string value, matching the store's convention of holding documents
// in String columns. Arrays of arrays are rejected because the wire format
// cannot carry them.
func FromNative(value interface{}) (Value, error) {
	switch v := value.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return Uint(uint64(v)), nil
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case uint64:
		return Uint(v), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case string:
		return Str(v), nil
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return DateOf(v), nil
		}
		return DateTimeOf(v), nil
	case []string:
		elems := make([]Value, len(v))
		for i, s := range v {
			elems[i] = Str(s)
		}
		return ArrayOf(elems...), nil
	case []int:
		elems := make([]Value, len(v))
		for i, n := range v {
			elems[i] = Int(int64(n))
		}
		return ArrayOf(elems...), nil
	case []int64:
		elems := make([]Value, len(v))
		for i, n := range v {
			elems[i] = Int(n)
		}
		return ArrayOf(elems...), nil
	case []float64:
		elems := make([]Value, len(v))
		for i, f := range v {
			elems[i] = Float(f)
		}
		return ArrayOf(elems...), nil
	case []interface{}:
		elems := make([]Value, 0, len(v))
		for _, raw := range v {
			elem, err := FromNative(raw)
			if err != nil {
				return Null(), err
			}
			if elem.Kind() == KindArray {
				return Null(), errors.New(errors.ErrorTypeFormat, "array nesting deeper than one level")
			}
			elems = append(elems, elem)
		}
		return ArrayOf(elems...), nil
	case map[string]interface{}:
		text, err := json.MarshalString(v)
		if err != nil {
			return Null(), errors.Wrap(err, errors.ErrorTypeFormat, "cannot serialize document value")
		}
		return Str(text), nil
	default:
		return Null(), errors.Newf(errors.ErrorTypeFormat, "unsupported value type %T", value)
	}
}

// Record maps column names to values. A missing key inserts as NULL.
type Record map[string]Value

// RecordFromNative converts a plain map into a Record via FromNative.
func RecordFromNative(doc map[string]interface{}) (Record, error) {
	rec := make(Record, len(doc))
	for name, raw := range doc {
		v, err := FromNative(raw)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFormat, "field "+name)
		}
		rec[name] = v
	}
	return rec, nil
}
