package cpufreq

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCPUInfo = `processor	: 0
vendor_id	: GenuineIntel
model name	: Intel(R) Core(TM) i7-8650U CPU @ 1.90GHz
cpu MHz		: 2112.006
cache size	: 8192 KB

processor	: 1
cpu MHz		: 1800.000
`

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    uint64
		wantErr bool
	}{
		{name: "gigahertz", input: "2.4GHz", want: 2_400_000},
		{name: "megahertz", input: "2000MHz", want: 2_000_000},
		{name: "kilohertz", input: "2400000KHz", want: 2_400_000},
		{name: "no unit", input: "1500000", want: 1_500_000},
		{name: "lowercase with space", input: "3 ghz", want: 3_000_000},
		{name: "max", input: "max", want: 0},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "fast", wantErr: true},
		{name: "zero", input: "0MHz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFrequency(tt.input)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatFrequency(t *testing.T) {
	assert.Equal(t, "2.40 GHz", FormatFrequency(2_400_000))
	assert.Equal(t, "800 MHz", FormatFrequency(800_000))
	assert.Equal(t, "500 kHz", FormatFrequency(500))
}

func TestEstimateClock(t *testing.T) {
	tests := []struct {
		name       string
		seconds    *big.Rat
		iterations int64
		hz         *big.Rat
		want       int64
	}{
		{
			name:       "exact division",
			seconds:    big.NewRat(1, 1),
			iterations: 1000,
			hz:         big.NewRat(2_400_000_000, 1),
			want:       2_400_000,
		},
		{
			name:       "rounds down",
			seconds:    big.NewRat(1, 1),
			iterations: 3,
			hz:         big.NewRat(10, 1),
			want:       3,
		},
		{
			name:       "never rounds up near the next integer",
			seconds:    big.NewRat(999_999, 1_000_000),
			iterations: 1,
			hz:         big.NewRat(1, 1),
			want:       0,
		},
		{
			name:       "sub-cycle iteration",
			seconds:    big.NewRat(1, 10_000_000_000),
			iterations: 1,
			hz:         big.NewRat(2_000_000_000, 1),
			want:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EstimateClock(tt.seconds, tt.iterations, tt.hz)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEstimateClockRejectsInvalidInput(t *testing.T) {
	hz := big.NewRat(1_000_000, 1)

	_, err := EstimateClock(big.NewRat(0, 1), 1, hz)
	require.ErrorIs(t, err, ErrInvalidEstimate)

	_, err = EstimateClock(big.NewRat(1, 1), 0, hz)
	require.ErrorIs(t, err, ErrInvalidEstimate)

	_, err = EstimateClock(big.NewRat(1, 1), 1, nil)
	require.ErrorIs(t, err, ErrInvalidEstimate)
}

func TestParseCPUInfo(t *testing.T) {
	hz, err := parseCPUInfo([]byte(sampleCPUInfo))
	require.NoError(t, err)
	assert.Equal(t, 0, hz.Cmp(big.NewRat(2_112_006_000, 1)), "got %s", hz.RatString())

	_, err = parseCPUInfo([]byte("processor : 0\n"))
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestParseCPURange(t *testing.T) {
	cpus, err := parseCPURange("0,2,4-6")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4, 5, 6}, cpus)

	cpus, err = parseCPURange("")
	require.NoError(t, err)
	assert.Empty(t, cpus)

	_, err = parseCPURange("a-b")
	require.Error(t, err)
}

func writeSysfsFixture(t *testing.T, kHz string) string {
	t.Helper()

	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "online"), []byte("0-1\n"), 0o644))

	dir := filepath.Join(base, "cpu0", cpufreqSubdir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, scalingCurFreqFile), []byte(kHz+"\n"), 0o644))

	return base
}

func TestSysfsSource(t *testing.T) {
	src := &sysfsSource{basePath: writeSysfsFixture(t, "3000000")}

	hz, err := src.Frequency(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, hz.Cmp(big.NewRat(3_000_000_000, 1)))

	_, err = (&sysfsSource{basePath: t.TempDir()}).Frequency(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestNewSource(t *testing.T) {
	ctx := context.Background()

	t.Run("cpuinfo file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cpuinfo")
		require.NoError(t, os.WriteFile(path, []byte(sampleCPUInfo), 0o644))

		src, err := NewSource(&SourceConfig{Kind: SourceCPUInfo, CPUInfoPath: path})
		require.NoError(t, err)

		hz, err := src.Frequency(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, hz.Cmp(big.NewRat(2_112_006_000, 1)))
	})

	t.Run("auto falls back to sysfs", func(t *testing.T) {
		src, err := NewSource(&SourceConfig{
			Kind:        SourceAuto,
			CPUInfoPath: filepath.Join(t.TempDir(), "missing"),
			SysfsPath:   writeSysfsFixture(t, "1200000"),
		})
		require.NoError(t, err)

		hz, err := src.Frequency(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, hz.Cmp(big.NewRat(1_200_000_000, 1)))
	})

	t.Run("override", func(t *testing.T) {
		src, err := NewSource(&SourceConfig{Kind: SourceNone, OverrideFreq: "2.5GHz"})
		require.NoError(t, err)

		hz, err := src.Frequency(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, hz.Cmp(big.NewRat(2_500_000_000, 1)))
	})

	t.Run("none", func(t *testing.T) {
		src, err := NewSource(&SourceConfig{Kind: SourceNone})
		require.NoError(t, err)

		_, err = src.Frequency(ctx)
		require.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := NewSource(&SourceConfig{Kind: "bogus"})
		require.Error(t, err)
	})
}

func TestProbe(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	assert.Nil(t, Probe(context.Background(), log, noneSource{}))
	assert.Nil(t, Probe(context.Background(), log, nil))

	hz := Probe(context.Background(), log, &fixedSource{hz: big.NewRat(1_000_000_000, 1)})
	require.NotNil(t, hz)
	assert.Equal(t, 0, hz.Cmp(big.NewRat(1_000_000_000, 1)))
}
