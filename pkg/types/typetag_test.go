package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeTagConstructors(t *testing.T) {
	assert.Equal(t, TypeTag("Array(String)"), Array(String))
	assert.Equal(t, TypeTag("Nullable(Int64)"), Nullable(Int64))
	assert.Equal(t, TypeTag("Nullable(Array(Date))"), Nullable(Array(Date)))
}

func TestTypeTagAccessors(t *testing.T) {
	assert.True(t, Array(Int64).IsArray())
	assert.Equal(t, Int64, Array(Int64).Elem())
	assert.Equal(t, TypeTag(""), Int64.Elem())

	assert.True(t, Nullable(String).IsNullable())
	assert.Equal(t, String, Nullable(String).Inner())
	assert.Equal(t, String, String.Inner())

	assert.True(t, UInt8.IsInteger())
	assert.True(t, Int64.IsInteger())
	assert.False(t, Float64.IsInteger())

	assert.True(t, UInt32.IsUnsigned())
	assert.False(t, Int32.IsUnsigned())

	assert.True(t, Float32.IsFloat())
	assert.True(t, Date.IsTemporal())
	assert.True(t, DateTime.IsTemporal())
	assert.False(t, String.IsTemporal())
}

func TestTypeTagValidate(t *testing.T) {
	valid := []TypeTag{
		UInt8, Int64, Float64, String, Date, DateTime,
		Array(String), Array(Date),
		Nullable(Int64), Nullable(Array(String)),
	}
	for _, tag := range valid {
		assert.NoError(t, tag.Validate(), string(tag))
	}

	invalid := []TypeTag{
		"Decimal(10,2)",
		"Enum8('a'=1)",
		Nullable(Nullable(Int64)),
		Array(Array(Int64)),
		Array(Nullable(String)),
		"",
	}
	for _, tag := range invalid {
		assert.Error(t, tag.Validate(), string(tag))
	}
}
