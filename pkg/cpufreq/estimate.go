package cpufreq

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidEstimate is returned when clock estimation inputs are not positive.
var ErrInvalidEstimate = errors.New("invalid clock estimate input")

// EstimateClock returns the approximate CPU cycles spent per iteration:
// floor((seconds / iterations) * hz). The arithmetic is exact.
func EstimateClock(seconds *big.Rat, iterations int64, hz *big.Rat) (int64, error) {
	if seconds == nil || seconds.Sign() <= 0 {
		return 0, fmt.Errorf("%w: seconds must be positive", ErrInvalidEstimate)
	}

	if iterations <= 0 {
		return 0, fmt.Errorf("%w: iterations must be positive", ErrInvalidEstimate)
	}

	if hz == nil || hz.Sign() <= 0 {
		return 0, fmt.Errorf("%w: frequency must be positive", ErrInvalidEstimate)
	}

	cycles := new(big.Rat).Quo(seconds, new(big.Rat).SetInt64(iterations))
	cycles.Mul(cycles, hz)

	// Both operands are positive, so truncation is floor.
	floor := new(big.Int).Quo(cycles.Num(), cycles.Denom())
	if !floor.IsInt64() {
		return 0, fmt.Errorf("%w: estimate %s overflows int64", ErrInvalidEstimate, floor)
	}

	return floor.Int64(), nil
}
