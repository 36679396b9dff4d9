package nn

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Sat clamps value to [min, max].
func Sat[T constraints.Float](value, max, min T) T {
	if value > max {
		return max
	}
	if value < min {
		return min
	}
	return value
}

// SaturationWithSpread clamps values to the symmetric range [-spread, spread].
func SaturationWithSpread[T constraints.Float](value, spread T) T {
	if spread < 0 {
		spread = -spread
	}
	return Sat(value, spread, -spread)
}

// Finite reports whether value is neither NaN nor infinite.
func Finite[T constraints.Float](value T) bool {
	v := float64(value)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// WrapPhase maps an angle onto (-pi, pi].
func WrapPhase[T constraints.Float](angle T) T {
	a := math.Mod(float64(angle)+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return T(a - math.Pi)
}

// Avg returns the arithmetic mean of values, 0 for an empty slice.
func Avg[T constraints.Float](values []T) T {
	if len(values) == 0 {
		return 0
	}
	var sum T
	for _, value := range values {
		sum += value
	}
	return sum / T(len(values))
}

// Decay multiplies every element in place by factor.
func Decay[T constraints.Float](values []T, factor T) {
	for i := range values {
		values[i] *= factor
	}
}

// NextPowerOfTwo returns the smallest power of two >= n (1 for n <= 1).
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
