package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clickwire/clickwire/pkg/errors"
	"github.com/clickwire/clickwire/pkg/types"
)

func seedRows() []types.Record {
	return []types.Record{
		{"a": types.Int(1), "b": types.Str("x")},
		{"a": types.Int(1), "b": types.Str("y")},
		{"a": types.Int(2), "b": types.Str("x")},
	}
}

func TestKeyIgnoresFieldOrder(t *testing.T) {
	q := "SELECT a, b FROM t"
	assert.Equal(t, Key(q, []string{"a", "b"}), Key(q, []string{"b", "a"}))
	assert.NotEqual(t, Key(q, []string{"a"}), Key(q, []string{"b"}))
	assert.NotEqual(t, Key(q, []string{"a"}), Key("SELECT a FROM u", []string{"a"}))
}

func TestSelectIntersectsFieldsAndUnionsValues(t *testing.T) {
	c := New()
	c.Put("k", []string{"a", "b"}, seedRows())

	// a=1 AND b IN ('x','y') admits the first two rows only.
	rows, err := c.Select("k", Filter{
		"a": Eq(1),
		"b": In("x", "y"),
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "x", rows[0]["b"].Str())
	assert.Equal(t, "y", rows[1]["b"].Str())
}

func TestSelectSpanMatchesInclusiveRange(t *testing.T) {
	c := New()
	c.Put("k", []string{"a"}, seedRows())

	rows, err := c.Select("k", Filter{"a": Span(1, 2)})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = c.Select("k", Filter{"a": Span(2, 9)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0]["a"].Int64())

	// Inverted bounds admit nothing.
	rows, err = c.Select("k", Filter{"a": Span(5, 1)})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSelectDateSpan(t *testing.T) {
	day := func(d int) types.Value {
		return types.DateOf(time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC))
	}
	c := New()
	c.Put("k", []string{"when"}, []types.Record{
		{"when": day(1)},
		{"when": day(3)},
		{"when": day(9)},
	})

	rows, err := c.Select("k", Filter{
		"when": Span(
			time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC),
		),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0]["when"].Equal(day(3)))
}

func TestSelectEmptyFilterReturnsAllRows(t *testing.T) {
	c := New()
	c.Put("k", []string{"a"}, seedRows())

	rows, err := c.Select("k", Filter{})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestSelectPreservesRowOrder(t *testing.T) {
	c := New()
	c.Put("k", []string{"b"}, seedRows())

	rows, err := c.Select("k", Filter{"b": Eq("x")})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0]["a"].Int64())
	assert.Equal(t, int64(2), rows[1]["a"].Int64())
}

func TestSelectUnindexedField(t *testing.T) {
	c := New()
	c.Put("k", []string{"a"}, seedRows())

	_, err := c.Select("k", Filter{"b": Eq("x")})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnindexedField))
}

func TestSelectUnknownKey(t *testing.T) {
	c := New()
	_, err := c.Select("missing", Filter{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestSpanRejectsMixedBounds(t *testing.T) {
	c := New()
	c.Put("k", []string{"a"}, seedRows())

	_, err := c.Select("k", Filter{"a": Span(1, "z")})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestPutReplacesEntry(t *testing.T) {
	c := New()
	c.Put("k", []string{"a"}, seedRows())
	c.Put("k", []string{"a"}, []types.Record{{"a": types.Int(9)}})

	rows, err := c.Select("k", Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(9), rows[0]["a"].Int64())
}

func TestHas(t *testing.T) {
	c := New()
	assert.False(t, c.Has("k"))
	c.Put("k", nil, seedRows())
	assert.True(t, c.Has("k"))
}
