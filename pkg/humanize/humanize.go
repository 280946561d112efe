// Package humanize formats throughput and timing figures into compact,
// fixed-width human units.
package humanize

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

var (
	// ErrNonPositive is returned for values that have no logarithmic scale.
	ErrNonPositive = errors.New("value must be positive and finite")

	// ErrInvalidWidth is returned for a field width below one.
	ErrInvalidWidth = errors.New("width must be at least 1")
)

// DefaultWidth is the numeric field width used when none is given.
const DefaultWidth = 10

// suffixes maps a power-of-1000 scale to its unit suffix. Index 0 is unscaled.
var suffixes = [...]string{" ", "k", "M", "G", "T", "Q"}

var (
	millisecond = big.NewRat(1, 1_000)
	microsecond = big.NewRat(1, 1_000_000)
)

// Number formats value with three decimals right-aligned in width characters
// followed by a one-character scale suffix. Values of 10^18 and above are
// printed unscaled.
func Number(value float64, width int) (string, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return "", fmt.Errorf("%w: %v", ErrNonPositive, value)
	}

	if width < 1 {
		return "", fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}

	scale := Scale(value)
	if scale >= len(suffixes) {
		scale = 0
	}

	divisor := 1.0
	for i := 0; i < scale; i++ {
		divisor *= 1000
	}

	return fmt.Sprintf("%*.3f%s", width, value/divisor, suffixes[scale]), nil
}

// Scale returns floor(log10(value)/3) for value >= 1 and 0 below that. The
// comparison runs against exact powers of 1000 so boundaries like 1000 are
// never misclassified by logarithm rounding.
func Scale(value float64) int {
	scale := 0

	for threshold := 1000.0; value >= threshold; threshold *= 1000 {
		scale++
	}

	return scale
}

// Duration formats the per-iteration time of seconds/iterations using the
// largest unit the value reaches: s, ms, us or ns.
func Duration(seconds *big.Rat, iterations int64) (string, error) {
	if seconds == nil || seconds.Sign() <= 0 {
		return "", fmt.Errorf("%w: seconds", ErrNonPositive)
	}

	if iterations <= 0 {
		return "", fmt.Errorf("%w: iterations %d", ErrNonPositive, iterations)
	}

	perIter := new(big.Rat).Quo(seconds, new(big.Rat).SetInt64(iterations))

	var (
		multiplier int64
		unit       string
	)

	switch {
	case perIter.Cmp(big.NewRat(1, 1)) >= 0:
		multiplier, unit = 1, "s"
	case perIter.Cmp(millisecond) >= 0:
		multiplier, unit = 1_000, "ms"
	case perIter.Cmp(microsecond) >= 0:
		multiplier, unit = 1_000_000, "us"
	default:
		multiplier, unit = 1_000_000_000, "ns"
	}

	scaled, _ := perIter.Mul(perIter, new(big.Rat).SetInt64(multiplier)).Float64()

	return fmt.Sprintf("%3.2f%s", scaled, unit), nil
}

// Seconds converts a float64 second count to its exact rational value.
// It returns nil for NaN or infinite input.
func Seconds(value float64) *big.Rat {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}

	return new(big.Rat).SetFloat64(value)
}
