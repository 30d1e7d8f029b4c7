// Package numeric defines the two numeric kinds threaded through the
// reconstruction pipeline: Index (grid coordinates and flat indices) and
// Real (physical quantities and positions), plus checked conversions
// between instantiations of either kind.
package numeric

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Index is the signed-integer kind used for grid coordinates and flat
// indices.
type Index interface {
	constraints.Signed
}

// Real is the floating-point kind used for physical quantities.
type Real interface {
	constraints.Float
}

// ConvertReal converts v from one Real instantiation to another,
// failing if the value does not survive the round trip within a
// tolerance of 1e-6 relative to max(1, |v|) (e.g. a float64 magnitude
// that float32 cannot represent). Rounding to the nearest destination
// value stays within that tolerance, so precision loss alone does not
// fail.
func ConvertReal[To Real, From Real](v From) (To, error) {
	converted := To(v)
	back := From(converted)

	if math.IsNaN(float64(v)) {
		if math.IsNaN(float64(converted)) {
			return converted, nil
		}
		return converted, fmt.Errorf("numeric: NaN lost in conversion")
	}

	if math.IsInf(float64(v), 0) {
		if math.IsInf(float64(converted), 0) {
			return converted, nil
		}
		return converted, fmt.Errorf("numeric: infinite value lost in conversion")
	}

	// Allow a small relative tolerance to accommodate rounding when
	// narrowing from float64 to float32.
	diff := math.Abs(float64(back) - float64(v))
	scale := math.Max(1.0, math.Abs(float64(v)))
	if diff/scale > 1e-6 {
		return converted, fmt.Errorf("numeric: value %v does not round-trip through conversion (got %v back)", v, back)
	}
	return converted, nil
}

// ConvertIndex converts v from one Index instantiation to another,
// failing if the destination kind cannot represent the value (overflow).
func ConvertIndex[To Index, From Index](v From) (To, error) {
	converted := To(v)
	if From(converted) != v {
		return converted, fmt.Errorf("numeric: index %v overflows destination kind", v)
	}
	return converted, nil
}

// ToInt converts an Index value to a plain int, used at slice-indexing
// boundaries. The conversion is unchecked: it neither panics nor
// reports a value that overflows int.
func ToInt[I Index](v I) int {
	return int(v)
}

// FromInt converts a plain int (e.g. a slice length) to an Index value,
// failing on overflow.
func FromInt[I Index](v int) (I, error) {
	out := I(v)
	if int(out) != v {
		return out, fmt.Errorf("numeric: int %d overflows index kind", v)
	}
	return out, nil
}
