package utils

import "math"

// FloatEquals reports whether a and b differ by less than tol. Two NaNs are
// considered equal.
func FloatEquals(a, b, tol float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b || math.Abs(a-b) < tol
}
