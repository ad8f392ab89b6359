package schema

import (
	"github.com/clickwire/clickwire/pkg/errors"
	"github.com/clickwire/clickwire/pkg/types"
)

// Generalize computes the narrowest type able to represent values of both a
// and b. It is total over scalar pairs (String is the top of the lattice),
// commutative, and idempotent. Array types generalize element-wise; an array
// paired with a scalar has no common type and fails, which callers treat as
// the signal to fall back to a text column.
func Generalize(a, b types.TypeTag) (types.TypeTag, error) {
	if a == b {
		return a, nil
	}

	nullable := a.IsNullable() || b.IsNullable()
	ia, ib := a.Inner(), b.Inner()

	var out types.TypeTag
	switch {
	case ia == ib:
		out = ia
	case ia.IsArray() != ib.IsArray():
		return "", errors.Newf(errors.ErrorTypeIncompatibleType, "no common type for %s and %s", a, b)
	case ia.IsArray():
		elem, err := Generalize(ia.Elem(), ib.Elem())
		if err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeIncompatibleType,
				"no common element type for "+string(a)+" and "+string(b))
		}
		out = types.Array(elem)
	default:
		out = generalizeScalar(ia, ib)
	}

	if nullable {
		out = types.Nullable(out)
	}
	return out, nil
}

// integerWidth orders the integer tags by the range they cover.
func integerWidth(t types.TypeTag) int {
	switch t {
	case types.UInt8, types.Int8:
		return 8
	case types.UInt16, types.Int16:
		return 16
	case types.UInt32, types.Int32:
		return 32
	default:
		return 64
	}
}

func generalizeScalar(a, b types.TypeTag) types.TypeTag {
	// String absorbs everything: it is the type of columns whose value shape
	// varies from row to row.
	if a == types.String || b == types.String {
		return types.String
	}

	switch {
	case a.IsInteger() && b.IsInteger():
		if a.IsUnsigned() != b.IsUnsigned() {
			return types.Int64
		}
		wider := a
		if integerWidth(b) > integerWidth(a) {
			wider = b
		}
		return wider
	case (a.IsInteger() || a.IsFloat()) && (b.IsInteger() || b.IsFloat()):
		// a == b was handled above, so any remaining numeric mix needs the
		// widest float.
		return types.Float64
	case a.IsTemporal() && b.IsTemporal():
		return types.DateTime
	default:
		return types.String
	}
}
