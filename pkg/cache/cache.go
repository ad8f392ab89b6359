// Package cache stores previously fetched result sets indexed for retrieval
// by equality, set-membership and range filters on selected fields.
//
// Entries are immutable once built; re-adding a key replaces the entry
// wholesale. The cache never expires entries on its own: lifetime is the
// caller's concern.
package cache

import (
	"sort"
	"strconv"
	"sync"

	"github.com/clickwire/clickwire/pkg/errors"
	stringpool "github.com/clickwire/clickwire/pkg/strings"
	"github.com/clickwire/clickwire/pkg/types"
)

// Cache is one logical result cache. Concurrent reads are safe; writers are
// serialized internally, but concurrent Put of the same key has no defined
// winner and should be serialized by the caller.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	rows    []types.Record
	indexes map[string]map[string][]int
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// Key composes the cache key for a query and the set of fields its entry is
// indexed on. Field order does not matter: names are sorted before joining.
func Key(query string, fields []string) string {
	sorted := make([]string, len(fields))
	copy(sorted, fields)
	sort.Strings(sorted)

	b := stringpool.GetBuilder(stringpool.Small)
	defer stringpool.PutBuilder(b, stringpool.Small)
	b.WriteString(query)
	for _, f := range sorted {
		b.WriteString(f)
	}
	return stringpool.Clone(b.String())
}

// Has reports whether a dataset is cached under the key.
func (c *Cache) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[key]
	return ok
}

// Put stores a result set under the key, building one value index per
// indexed field. An existing entry under the same key is replaced.
func (c *Cache) Put(key string, indexedFields []string, rows []types.Record) {
	e := &entry{
		rows:    rows,
		indexes: make(map[string]map[string][]int, len(indexedFields)),
	}
	for _, field := range indexedFields {
		idx := make(map[string][]int)
		for i, row := range rows {
			k := valueKey(row[field])
			idx[k] = append(idx[k], i)
		}
		e.indexes[field] = idx
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

// Select returns the rows matching the filter, in their original result
// order. Matching is the intersection across filtered fields and the union
// within each field's own predicate. Filtering on a field that was not
// indexed at Put time fails instead of degrading to a scan.
func (c *Cache) Select(key string, filter Filter) ([]types.Record, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeValidation, "no cached dataset under key %q", key)
	}

	var matched map[int]struct{}
	for field, pred := range filter {
		idx, ok := e.indexes[field]
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeUnindexedField,
				"field %q is not indexed in this dataset", field)
		}

		keys, err := pred.indexKeys()
		if err != nil {
			return nil, err
		}
		fieldRows := make(map[int]struct{})
		for _, k := range keys {
			for _, i := range idx[k] {
				fieldRows[i] = struct{}{}
			}
		}

		if matched == nil {
			matched = fieldRows
			continue
		}
		for i := range matched {
			if _, ok := fieldRows[i]; !ok {
				delete(matched, i)
			}
		}
	}

	if matched == nil {
		// Empty filter matches the whole dataset.
		return append([]types.Record(nil), e.rows...), nil
	}

	order := make([]int, 0, len(matched))
	for i := range matched {
		order = append(order, i)
	}
	sort.Ints(order)

	rows := make([]types.Record, len(order))
	for n, i := range order {
		rows[n] = e.rows[i]
	}
	return rows, nil
}

// Filter maps field names to predicates. All named fields must match (AND).
type Filter map[string]Predicate

type predicateKind uint8

const (
	predicateValues predicateKind = iota
	predicateRange
)

// Predicate constrains one field: either a set of admissible values or an
// inclusive range over enumerable values.
type Predicate struct {
	kind   predicateKind
	values []types.Value
	lo, hi types.Value
}

// Eq matches rows whose field equals the value.
func Eq(value interface{}) Predicate {
	v, err := types.FromNative(value)
	if err != nil {
		v = types.Null()
	}
	return Predicate{kind: predicateValues, values: []types.Value{v}}
}

// In matches rows whose field equals any of the values.
func In(values ...interface{}) Predicate {
	vs := make([]types.Value, 0, len(values))
	for _, raw := range values {
		v, err := types.FromNative(raw)
		if err != nil {
			v = types.Null()
		}
		vs = append(vs, v)
	}
	return Predicate{kind: predicateValues, values: vs}
}

// Span matches rows whose field falls in the inclusive range [lo, hi]. The
// bounds must both be integers or both dates: the range is materialized as
// a discrete value sequence before the index lookup.
func Span(lo, hi interface{}) Predicate {
	l, errLo := types.FromNative(lo)
	h, errHi := types.FromNative(hi)
	if errLo != nil || errHi != nil {
		l, h = types.Null(), types.Null()
	}
	return Predicate{kind: predicateRange, lo: l, hi: h}
}

// indexKeys expands the predicate into the index keys it admits.
func (p Predicate) indexKeys() ([]string, error) {
	if p.kind == predicateValues {
		keys := make([]string, len(p.values))
		for i, v := range p.values {
			keys[i] = valueKey(v)
		}
		return keys, nil
	}

	switch {
	case p.lo.Kind() == types.KindInt && p.hi.Kind() == types.KindInt:
		lo, hi := p.lo.Int64(), p.hi.Int64()
		if hi < lo {
			return nil, nil
		}
		keys := make([]string, 0, hi-lo+1)
		for n := lo; n <= hi; n++ {
			keys = append(keys, strconv.FormatInt(n, 10))
		}
		return keys, nil
	case p.lo.Kind() == types.KindDate && p.hi.Kind() == types.KindDate:
		keys := make([]string, 0, 8)
		for d := p.lo.Time(); !d.After(p.hi.Time()); d = d.AddDate(0, 0, 1) {
			keys = append(keys, d.Format("2006-01-02"))
		}
		return keys, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation,
			"range bounds must both be integers or both dates, got %s and %s", p.lo.Kind(), p.hi.Kind())
	}
}

// valueKey maps a value to its canonical index key. The mapping must stay
// stable: index build and lookup both depend on it.
func valueKey(v types.Value) string {
	switch v.Kind() {
	case types.KindNull:
		return ""
	case types.KindBool:
		if v.Bool() {
			return "1"
		}
		return "0"
	case types.KindInt:
		return strconv.FormatInt(v.Int64(), 10)
	case types.KindUint:
		return strconv.FormatUint(v.Uint64(), 10)
	case types.KindFloat:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case types.KindString:
		return v.Str()
	case types.KindDate:
		return v.Time().Format("2006-01-02")
	case types.KindDateTime:
		return v.Time().Format("2006-01-02 15:04:05")
	case types.KindArray:
		b := stringpool.GetBuilder(stringpool.Small)
		defer stringpool.PutBuilder(b, stringpool.Small)
		b.WriteByte('[')
		for i, e := range v.Array() {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(valueKey(e))
		}
		b.WriteByte(']')
		return stringpool.Clone(b.String())
	}
	return ""
}
