// Package codec encodes typed values to the tabular wire text format and
// decodes wire text back into typed values.
//
// The format is tab-delimited and newline-row-delimited, so string payloads
// escape backslash, tab and newline. Array literals render as [e1,e2,...]
// with string, date and datetime elements single-quoted.
package codec

import (
	"strconv"
	"strings"
	"time"

	"github.com/clickwire/clickwire/pkg/errors"
	"github.com/clickwire/clickwire/pkg/json"
	stringpool "github.com/clickwire/clickwire/pkg/strings"
	"github.com/clickwire/clickwire/pkg/types"
)

const (
	nullLiteral      = `\N`
	dateSentinel     = "0000-00-00"
	dateTimeSentinel = "0000-00-00 00:00:00"
	dateLayout       = "2006-01-02"
	dateTimeLayout   = "2006-01-02 15:04:05"
)

// epochCutoff mirrors the store's convention of treating dates at or before
// 1970-01-02 as the zero sentinel.
var epochCutoff = time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC)

// Encode renders a value as wire text for a column of type t.
func Encode(v types.Value, t types.TypeTag) (string, error) {
	return encode(v, t, false)
}

func encode(v types.Value, t types.TypeTag, inArray bool) (string, error) {
	if t.IsNullable() {
		if v.IsNull() {
			return nullLiteral, nil
		}
		return encode(v, t.Inner(), inArray)
	}

	switch {
	case t.IsInteger():
		return encodeInteger(v, t), nil
	case t.IsFloat():
		return encodeFloat(v), nil
	case t == types.String:
		return encodeString(v, inArray)
	case t == types.Date:
		return encodeDate(v, inArray), nil
	case t == types.DateTime:
		return encodeDateTime(v, inArray), nil
	case t.IsArray():
		return encodeArray(v, t)
	}
	return "", errors.Newf(errors.ErrorTypeFormat, "cannot encode %s as %s", v.Kind(), t)
}

func encodeInteger(v types.Value, t types.TypeTag) string {
	switch v.Kind() {
	case types.KindNull:
		return "0"
	case types.KindBool:
		if v.Bool() {
			return "1"
		}
		return "0"
	default:
		// Unsigned columns render the unsigned payload so values above the
		// int64 range keep their magnitude on the wire.
		if t.IsUnsigned() {
			return strconv.FormatUint(v.Uint64(), 10)
		}
		return strconv.FormatInt(v.Int64(), 10)
	}
}

func encodeFloat(v types.Value) string {
	if v.IsNull() {
		return "0.0"
	}
	return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
}

// encodeString accepts any value kind: String columns also hold fields whose
// type varies from row to row, so non-string payloads convert first.
func encodeString(v types.Value, inArray bool) (string, error) {
	var raw string
	switch v.Kind() {
	case types.KindNull:
		raw = ""
	case types.KindString:
		raw = v.Str()
	case types.KindBool, types.KindInt, types.KindUint, types.KindFloat:
		raw = stringpool.ValueToString(v.Native())
	case types.KindDate:
		raw = v.Time().Format(dateLayout)
	case types.KindDateTime:
		raw = v.Time().Format(dateTimeLayout)
	case types.KindArray:
		text, err := json.MarshalString(v.Native())
		if err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeFormat, "cannot render array as String")
		}
		raw = text
	}
	return escapeString(raw, inArray), nil
}

func encodeDate(v types.Value, inArray bool) string {
	var text string
	if v.IsNull() || !v.Time().After(epochCutoff) {
		text = dateSentinel
	} else {
		text = v.Time().Format(dateLayout)
	}
	if inArray {
		return "'" + text + "'"
	}
	return text
}

func encodeDateTime(v types.Value, inArray bool) string {
	var text string
	if v.IsNull() || !v.Time().After(epochCutoff) {
		text = dateTimeSentinel
	} else {
		text = v.Time().Truncate(time.Second).Format(dateTimeLayout)
	}
	if inArray {
		return "'" + text + "'"
	}
	return text
}

func encodeArray(v types.Value, t types.TypeTag) (string, error) {
	if v.IsNull() {
		return "[]", nil
	}
	if v.Kind() != types.KindArray {
		return "", errors.Newf(errors.ErrorTypeFormat, "cannot encode %s as %s", v.Kind(), t)
	}
	elemType := t.Elem()
	if elemType.IsArray() {
		return "", errors.Newf(errors.ErrorTypeFormat, "array nesting deeper than one level in type %q", t)
	}

	b := stringpool.GetBuilder(stringpool.Medium)
	defer stringpool.PutBuilder(b, stringpool.Medium)

	b.WriteByte('[')
	for i, elem := range v.Array() {
		if elem.Kind() == types.KindArray {
			return "", errors.New(errors.ErrorTypeFormat, "array nesting deeper than one level")
		}
		if i > 0 {
			b.WriteByte(',')
		}
		text, err := encode(elem, elemType, true)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
	}
	b.WriteByte(']')
	return stringpool.Clone(b.String()), nil
}

// escapeString escapes the characters that collide with the tab-delimited,
// newline-row-delimited framing. Inside array literals the element is also
// single-quoted with embedded quotes escaped.
func escapeString(s string, inArray bool) string {
	b := stringpool.GetBuilder(stringpool.Small)
	defer stringpool.PutBuilder(b, stringpool.Small)

	if inArray {
		b.WriteByte('\'')
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\'':
			if inArray {
				b.WriteString(`\'`)
			} else {
				b.WriteByte(c)
			}
		default:
			b.WriteByte(c)
		}
	}
	if inArray {
		b.WriteByte('\'')
	}
	return stringpool.Clone(b.String())
}

// Decode parses wire text into a value for a column of type t.
func Decode(text string, t types.TypeTag) (types.Value, error) {
	return decode(text, t, false)
}

func decode(text string, t types.TypeTag, inArray bool) (types.Value, error) {
	if t.IsNullable() {
		if text == nullLiteral || text == "" {
			return types.Null(), nil
		}
		return decode(text, t.Inner(), inArray)
	}

	switch {
	case t.IsInteger():
		if t.IsUnsigned() {
			u, err := strconv.ParseUint(text, 10, 64)
			if err != nil {
				return types.Null(), errors.Newf(errors.ErrorTypeFormat, "cannot parse %q as %s", text, t)
			}
			return types.Uint(u), nil
		}
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return types.Null(), errors.Newf(errors.ErrorTypeFormat, "cannot parse %q as %s", text, t)
		}
		return types.Int(n), nil
	case t.IsFloat():
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return types.Null(), errors.Newf(errors.ErrorTypeFormat, "cannot parse %q as %s", text, t)
		}
		return types.Float(f), nil
	case t == types.String:
		return types.Str(unescapeString(text)), nil
	case t == types.Date:
		return decodeDate(text)
	case t == types.DateTime:
		return decodeDateTime(text)
	case t.IsArray():
		return decodeArray(text, t)
	}
	return types.Null(), errors.Newf(errors.ErrorTypeFormat, "unsupported type %q", t)
}

func decodeDate(text string) (types.Value, error) {
	text = trimQuotes(text)
	if text == dateSentinel || text == "1970-01-01" {
		return types.Null(), nil
	}
	t, err := time.ParseInLocation(dateLayout, text, time.UTC)
	if err != nil {
		return types.Null(), errors.Newf(errors.ErrorTypeFormat, "cannot parse %q as Date", text)
	}
	return types.DateOf(t), nil
}

func decodeDateTime(text string) (types.Value, error) {
	text = trimQuotes(text)
	if text == dateTimeSentinel || text == "1970-01-01 00:00:00" {
		return types.Null(), nil
	}
	t, err := time.ParseInLocation(dateTimeLayout, text, time.UTC)
	if err != nil {
		return types.Null(), errors.Newf(errors.ErrorTypeFormat, "cannot parse %q as DateTime", text)
	}
	return types.DateTimeOf(t), nil
}

func decodeArray(text string, t types.TypeTag) (types.Value, error) {
	elemType := t.Elem()
	if elemType.IsArray() {
		return types.Null(), errors.Newf(errors.ErrorTypeFormat, "array nesting deeper than one level in type %q", t)
	}
	if len(text) < 2 || text[0] != '[' || text[len(text)-1] != ']' {
		return types.Null(), errors.Newf(errors.ErrorTypeFormat, "malformed array literal %q", text)
	}
	if text == "[]" {
		return types.ArrayOf(), nil
	}

	parts, err := splitArrayElements(text[1 : len(text)-1])
	if err != nil {
		return types.Null(), err
	}

	elems := make([]types.Value, 0, len(parts))
	for _, part := range parts {
		if stripped := strings.TrimSpace(part); len(stripped) > 0 && stripped[0] == '[' {
			return types.Null(), errors.Newf(errors.ErrorTypeFormat, "array nesting deeper than one level in %q", text)
		}
		elem, err := decode(trimQuotes(part), elemType, true)
		if err != nil {
			return types.Null(), err
		}
		elems = append(elems, elem)
	}
	return types.ArrayOf(elems...), nil
}

// splitArrayElements splits the inside of an array literal on commas while
// reassembling quoted elements whose string contents themselves contain
// commas, like ['abc','d,ef'].
func splitArrayElements(inner string) ([]string, error) {
	parts := make([]string, 0, 8)
	acc := ""
	open := false
	for _, part := range strings.Split(inner, ",") {
		stripped := strings.TrimSpace(part)

		if !open {
			if len(stripped) > 1 && stripped[0] == '\'' && !closesQuote(stripped) {
				acc = part
				open = true
				continue
			}
			parts = append(parts, part)
			continue
		}

		acc += "," + part
		if len(stripped) > 0 && closesQuote("'"+stripped) {
			parts = append(parts, acc)
			acc = ""
			open = false
		}
	}
	if open {
		return nil, errors.Newf(errors.ErrorTypeFormat, "cannot deserialize array element from %q", inner)
	}
	return parts, nil
}

// closesQuote reports whether a fragment beginning with a single quote also
// ends with an unescaped closing quote.
func closesQuote(s string) bool {
	if len(s) < 2 || s[len(s)-1] != '\'' {
		return false
	}
	backslashes := 0
	for i := len(s) - 2; i >= 0 && s[i] == '\\'; i-- {
		backslashes++
	}
	return backslashes%2 == 0
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}

// unescapeString reverses escapeString in a single pass.
func unescapeString(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	b := stringpool.GetBuilder(stringpool.Small)
	defer stringpool.PutBuilder(b, stringpool.Small)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '\\':
			b.WriteByte('\\')
		case '\'':
			b.WriteByte('\'')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return stringpool.Clone(b.String())
}
