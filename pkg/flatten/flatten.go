// Package flatten converts arbitrarily nested documents into flat column
// sets the tabular wire format can carry.
//
// Nested maps flatten by joining keys with underscores. Arrays of scalars
// become one array column. Arrays of maps become one array column per
// sub-field, positionally aligned with the source array and NULL-filled
// where an element lacks the sub-field. Structures nested beyond what the
// format supports serialize whole into a single <prefix>_json text column.
package flatten

import (
	"github.com/clickwire/clickwire/pkg/errors"
	"github.com/clickwire/clickwire/pkg/json"
	"github.com/clickwire/clickwire/pkg/types"
)

// errTooDeep is the internal signal that a structure exceeds the one level
// of array nesting the wire format can represent. It never escapes Flatten:
// the array path recovers by serializing the offending array to JSON.
var errTooDeep = errors.New(errors.ErrorTypeFormat, "nesting deeper than the tabular format supports")

// Flatten converts a nested document into a flat typed record. Nil and
// empty values (empty strings, arrays and maps) are omitted, so sparse
// documents only produce the columns they actually populate.
func Flatten(doc map[string]interface{}) (types.Record, error) {
	flat := make(map[string]interface{}, len(doc))
	if err := flattenMap(doc, "", true, flat); err != nil {
		return nil, err
	}
	return types.RecordFromNative(flat)
}

func flattenMap(doc map[string]interface{}, prefix string, allowArrays bool, out map[string]interface{}) error {
	if prefix != "" {
		prefix += "_"
	}

	for key, value := range doc {
		if isEmpty(value) {
			continue
		}
		if sub, ok := value.(map[string]interface{}); ok {
			if err := flattenMap(sub, prefix+key, allowArrays, out); err != nil {
				return err
			}
			continue
		}
		if arr, ok := asSlice(value); ok {
			if !allowArrays {
				return errTooDeep
			}
			if err := flattenArray(arr, prefix+key, out); err != nil {
				return err
			}
			continue
		}
		out[prefix+key] = value
	}
	return nil
}

// flattenArray flattens one source array into positionally aligned columns.
// Over-deep elements are not an error here: the whole array falls back to a
// single JSON text column instead.
func flattenArray(arr []interface{}, prefix string, out map[string]interface{}) error {
	columns := make(map[string][]interface{})

	err := func() error {
		for i, elem := range arr {
			if isEmpty(elem) {
				continue
			}
			if sub, ok := elem.(map[string]interface{}); ok {
				flat := make(map[string]interface{}, len(sub))
				if err := flattenMap(sub, prefix, false, flat); err != nil {
					return err
				}
				for k, v := range flat {
					if _, ok := columns[k]; !ok {
						columns[k] = make([]interface{}, len(arr))
					}
					columns[k][i] = v
				}
				continue
			}
			if _, ok := asSlice(elem); ok {
				return errTooDeep
			}
			if _, ok := columns[prefix]; !ok {
				columns[prefix] = make([]interface{}, len(arr))
			}
			columns[prefix][i] = elem
		}
		return nil
	}()
	if err != nil {
		if !errors.IsType(err, errors.ErrorTypeFormat) {
			return err
		}
		text, jsonErr := json.MarshalString(arr)
		if jsonErr != nil {
			return errors.Wrap(jsonErr, errors.ErrorTypeFormat, "cannot serialize fallback column "+prefix+"_json")
		}
		out[prefix+"_json"] = text
		return nil
	}

	for k, v := range columns {
		out[k] = v
	}
	return nil
}

// asSlice normalizes the slice shapes accepted at the boundary.
func asSlice(value interface{}) ([]interface{}, bool) {
	switch v := value.(type) {
	case []interface{}:
		return v, true
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out, true
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]interface{}, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, true
	case []int64:
		out := make([]interface{}, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, true
	case []float64:
		out := make([]interface{}, len(v))
		for i, f := range v {
			out[i] = f
		}
		return out, true
	default:
		return nil, false
	}
}

func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case map[string]interface{}:
		return len(v) == 0
	case []interface{}:
		return len(v) == 0
	case []map[string]interface{}:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case []int:
		return len(v) == 0
	case []int64:
		return len(v) == 0
	case []float64:
		return len(v) == 0
	default:
		return false
	}
}
