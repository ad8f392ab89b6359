// Package schema derives column schemas from typed records and computes
// least-upper-bound types over the store's type lattice.
package schema

import (
	"sort"

	"github.com/clickwire/clickwire/pkg/errors"
	"github.com/clickwire/clickwire/pkg/types"
)

// Column is a single (name, type) pair.
type Column struct {
	Name string
	Type types.TypeTag
}

// Schema is an ordered sequence of uniquely named columns.
type Schema struct {
	Columns []Column
	byName  map[string]int
}

// New builds a schema from columns, preserving order.
func New(columns ...Column) *Schema {
	s := &Schema{
		Columns: make([]Column, 0, len(columns)),
		byName:  make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		s.Add(c.Name, c.Type)
	}
	return s
}

// FromPairs builds a schema from parallel name and type slices, as returned
// by the store's column catalog.
func FromPairs(names []string, typeTags []types.TypeTag) (*Schema, error) {
	if len(names) != len(typeTags) {
		return nil, errors.Newf(errors.ErrorTypeValidation,
			"mismatched schema pairs: %d names, %d types", len(names), len(typeTags))
	}
	s := New()
	for i, name := range names {
		s.Add(name, typeTags[i])
	}
	return s, nil
}

// Add appends a column, replacing the type of an existing column with the
// same name.
func (s *Schema) Add(name string, t types.TypeTag) {
	if s.byName == nil {
		s.byName = make(map[string]int)
	}
	if i, ok := s.byName[name]; ok {
		s.Columns[i].Type = t
		return
	}
	s.byName[name] = len(s.Columns)
	s.Columns = append(s.Columns, Column{Name: name, Type: t})
}

// Lookup returns the type of a named column.
func (s *Schema) Lookup(name string) (types.TypeTag, bool) {
	i, ok := s.byName[name]
	if !ok {
		return "", false
	}
	return s.Columns[i].Type, true
}

// Len returns the number of columns.
func (s *Schema) Len() int {
	return len(s.Columns)
}

// Fields returns the column names in schema order.
func (s *Schema) Fields() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Types returns the column types in schema order.
func (s *Schema) Types() []types.TypeTag {
	tags := make([]types.TypeTag, len(s.Columns))
	for i, c := range s.Columns {
		tags[i] = c.Type
	}
	return tags
}

// Infer derives the schema of a single record, mapping each present non-NULL
// field to the narrowest type matching its value. Fields are emitted in
// sorted name order so repeated inference is deterministic.
func Infer(rec types.Record) (*Schema, error) {
	names := make([]string, 0, len(rec))
	for name, v := range rec {
		if v.IsNull() {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	s := New()
	for _, name := range names {
		t, err := InferValue(rec[name], name)
		if err != nil {
			return nil, err
		}
		s.Add(name, t)
	}
	return s, nil
}

// InferBatch derives one schema covering every record in the batch,
// generalizing column types across records so the emitted header matches
// every row.
func InferBatch(records []types.Record) (*Schema, error) {
	if len(records) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "no records to infer a schema from")
	}

	merged := New()
	for _, rec := range records {
		inferred, err := Infer(rec)
		if err != nil {
			return nil, err
		}
		for _, col := range inferred.Columns {
			existing, ok := merged.Lookup(col.Name)
			if !ok {
				merged.Add(col.Name, col.Type)
				continue
			}
			if existing == col.Type {
				continue
			}
			widened, err := Generalize(existing, col.Type)
			if err != nil {
				return nil, err
			}
			merged.Add(col.Name, widened)
		}
	}
	return merged, nil
}

// InferValue returns the narrowest type tag matching a value. The name is
// only used for error messages.
func InferValue(v types.Value, name string) (types.TypeTag, error) {
	switch v.Kind() {
	case types.KindBool:
		return types.UInt8, nil
	case types.KindInt:
		return types.Int64, nil
	case types.KindUint:
		return types.UInt64, nil
	case types.KindFloat:
		return types.Float64, nil
	case types.KindString:
		return types.String, nil
	case types.KindDate:
		return types.Date, nil
	case types.KindDateTime:
		return types.DateTime, nil
	case types.KindArray:
		return inferArray(v, name)
	case types.KindNull:
		return "", errors.Newf(errors.ErrorTypeValidation, "cannot infer type of %q from NULL", name)
	}
	return "", errors.Newf(errors.ErrorTypeValidation, "cannot infer type of %q", name)
}

func inferArray(v types.Value, name string) (types.TypeTag, error) {
	var elemType types.TypeTag
	for _, elem := range v.Array() {
		if elem.IsNull() {
			continue
		}
		t, err := InferValue(elem, name)
		if err != nil {
			return "", err
		}
		if t.IsArray() {
			return "", errors.Newf(errors.ErrorTypeFormat, "array nesting deeper than one level in %q", name)
		}
		if elemType == "" {
			elemType = t
			continue
		}
		widened, err := Generalize(elemType, t)
		if err != nil {
			return "", err
		}
		elemType = widened
	}
	if elemType == "" {
		return "", errors.Newf(errors.ErrorTypeValidation, "cannot infer type of %q from empty array", name)
	}
	return types.Array(elemType), nil
}
