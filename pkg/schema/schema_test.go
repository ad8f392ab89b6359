package schema

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clickwire/clickwire/pkg/errors"
	"github.com/clickwire/clickwire/pkg/types"
)

func TestInferSkipsNullsAndSortsFields(t *testing.T) {
	rec := types.Record{
		"zeta":  types.Int(1),
		"alpha": types.Str("x"),
		"gone":  types.Null(),
	}

	s, err := Infer(rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, s.Fields())
	assert.Equal(t, []types.TypeTag{types.String, types.Int64}, s.Types())
}

func TestInferValueMapping(t *testing.T) {
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	stamp := time.Date(2024, 1, 5, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		v    types.Value
		want types.TypeTag
	}{
		{"bool", types.Bool(true), types.UInt8},
		{"int", types.Int(7), types.Int64},
		{"wide uint", types.Uint(math.MaxUint64), types.UInt64},
		{"float", types.Float(1.5), types.Float64},
		{"string", types.Str("s"), types.String},
		{"date", types.DateOf(day), types.Date},
		{"datetime", types.DateTimeOf(stamp), types.DateTime},
		{"string array", types.ArrayOf(types.Str("a")), types.Array(types.String)},
		{"mixed numeric array", types.ArrayOf(types.Int(1), types.Float(2.5)), types.Array(types.Float64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InferValue(tt.v, tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferValueEmptyArray(t *testing.T) {
	_, err := InferValue(types.ArrayOf(), "tags")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestInferValueNestedArray(t *testing.T) {
	_, err := InferValue(types.ArrayOf(types.ArrayOf(types.Int(1))), "matrix")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFormat))
}

func TestInferBatchGeneralizesAcrossRecords(t *testing.T) {
	records := []types.Record{
		{"id": types.Int(1), "score": types.Int(10)},
		{"id": types.Int(2), "score": types.Float(9.5), "note": types.Str("late")},
	}

	s, err := InferBatch(records)
	require.NoError(t, err)

	scoreType, ok := s.Lookup("score")
	require.True(t, ok)
	assert.Equal(t, types.Float64, scoreType)

	idType, ok := s.Lookup("id")
	require.True(t, ok)
	assert.Equal(t, types.Int64, idType)

	noteType, ok := s.Lookup("note")
	require.True(t, ok)
	assert.Equal(t, types.String, noteType)
}

func TestInferBatchEmpty(t *testing.T) {
	_, err := InferBatch(nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestSchemaAddReplaces(t *testing.T) {
	s := New(Column{Name: "a", Type: types.Int64})
	s.Add("b", types.String)
	s.Add("a", types.Float64)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"a", "b"}, s.Fields())

	got, ok := s.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, types.Float64, got)

	_, ok = s.Lookup("missing")
	assert.False(t, ok)
}

func TestFromPairsMismatch(t *testing.T) {
	_, err := FromPairs([]string{"a", "b"}, []types.TypeTag{types.Int64})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}
