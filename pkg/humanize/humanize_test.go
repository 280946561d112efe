package humanize

import (
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		width    int
		expected string
	}{
		{
			name:     "below one thousand",
			value:    999,
			width:    10,
			expected: "   999.000 ",
		},
		{
			name:     "exactly one thousand",
			value:    1000,
			width:    10,
			expected: "     1.000k",
		},
		{
			name:     "fraction",
			value:    0.5,
			width:    10,
			expected: "     0.500 ",
		},
		{
			name:     "millions",
			value:    1_500_000,
			width:    10,
			expected: "     1.500M",
		},
		{
			name:     "billions",
			value:    2_345_000_000,
			width:    10,
			expected: "     2.345G",
		},
		{
			name:     "trillions",
			value:    7e12,
			width:    10,
			expected: "     7.000T",
		},
		{
			name:     "quadrillions",
			value:    3e15,
			width:    10,
			expected: "     3.000Q",
		},
		{
			name:     "beyond quadrillions is unscaled",
			value:    1e18,
			width:    10,
			expected: "1000000000000000000.000 ",
		},
		{
			name:     "wide column",
			value:    12_345,
			width:    14,
			expected: "        12.345k",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Number(tt.value, tt.width)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNumberWidthAndSuffix(t *testing.T) {
	for _, value := range []float64{1, 9.99, 42, 1000, 65_536, 1e6, 3.3e9, 1e12, 999e12, 1e15, 5e17} {
		got, err := Number(value, DefaultWidth)
		require.NoError(t, err)
		require.Len(t, got, DefaultWidth+1, "value %v", value)

		scale := Scale(value)
		if scale > 5 {
			scale = 0
		}

		assert.Equal(t, suffixes[scale], got[len(got)-1:], "value %v", value)
		assert.True(t, strings.ContainsAny(got[len(got)-1:], " kMGTQ"))
	}
}

func TestNumberRejectsNonPositive(t *testing.T) {
	for _, value := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		got, err := Number(value, DefaultWidth)
		require.ErrorIs(t, err, ErrNonPositive)
		assert.Empty(t, got)
	}

	_, err := Number(10, 0)
	require.ErrorIs(t, err, ErrInvalidWidth)
}

func TestScale(t *testing.T) {
	assert.Equal(t, 0, Scale(0.001))
	assert.Equal(t, 0, Scale(999.999))
	assert.Equal(t, 1, Scale(1000))
	assert.Equal(t, 2, Scale(1e6))
	assert.Equal(t, 5, Scale(1e15))
	assert.Equal(t, 6, Scale(1e18))
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name       string
		seconds    *big.Rat
		iterations int64
		expected   string
	}{
		{
			name:       "seconds",
			seconds:    big.NewRat(2, 1),
			iterations: 1,
			expected:   "2.00s",
		},
		{
			name:       "exactly one millisecond",
			seconds:    big.NewRat(1, 1),
			iterations: 1000,
			expected:   "1.00ms",
		},
		{
			name:       "exactly one microsecond",
			seconds:    big.NewRat(1, 1),
			iterations: 1_000_000,
			expected:   "1.00us",
		},
		{
			name:       "just below one millisecond",
			seconds:    big.NewRat(999, 1_000_000),
			iterations: 1,
			expected:   "999.00us",
		},
		{
			name:       "nanoseconds",
			seconds:    big.NewRat(1, 1),
			iterations: 2_000_000_000,
			expected:   "0.50ns",
		},
		{
			name:       "float seconds converted exactly",
			seconds:    Seconds(0.25),
			iterations: 10,
			expected:   "25.00ms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Duration(tt.seconds, tt.iterations)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDurationRejectsInvalidInput(t *testing.T) {
	_, err := Duration(big.NewRat(0, 1), 1)
	require.ErrorIs(t, err, ErrNonPositive)

	_, err = Duration(nil, 1)
	require.ErrorIs(t, err, ErrNonPositive)

	_, err = Duration(big.NewRat(1, 1), 0)
	require.ErrorIs(t, err, ErrNonPositive)
}

func TestSeconds(t *testing.T) {
	assert.Nil(t, Seconds(math.NaN()))
	assert.Equal(t, 0, Seconds(0.5).Cmp(big.NewRat(1, 2)))
}
