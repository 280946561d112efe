package output

import (
	"bytes"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethpandaops/benchreport/pkg/benchmark"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func pad(n int) string {
	return strings.Repeat(" ", n)
}

func newResult(job *benchmark.Job, exec string, real float64, iterations int64) *benchmark.Result {
	return &benchmark.Result{Job: job, Executable: exec, Real: real, Iterations: iterations}
}

func TestIPSSingleExecutable(t *testing.T) {
	var buf bytes.Buffer

	loop := &benchmark.Job{Name: "loop"}

	out, err := NewIPS(testLogger(), &buf, []benchmark.Executable{{Name: "ruby"}}, Options{Compare: true})
	require.NoError(t, err)

	require.NoError(t, out.StartWarming())
	require.NoError(t, out.Warming("loop"))
	require.NoError(t, out.WarmupStats(newResult(loop, "ruby", 0.5, 5000)))
	require.NoError(t, out.StartRunning())
	require.NoError(t, out.Running("loop"))
	require.NoError(t, out.BenchmarkStats(newResult(loop, "ruby", 2, 4000)))
	require.NoError(t, out.Finish())

	expected := warmingHeader + "\n" +
		pad(16) + "loop" + "     1.000k i/100ms\n" +
		runningHeader + "\n" +
		pad(16) + "loop" + "     2.000k " + "i/s -      4.000k in 2.000000s (500.00us/i)\n"

	assert.Equal(t, expected, buf.String())
	assert.NotContains(t, buf.String(), "clocks/i")
	assert.NotContains(t, buf.String(), "Comparison:")
}

func TestIPSClockEstimate(t *testing.T) {
	loop := &benchmark.Job{Name: "loop"}

	tests := []struct {
		name     string
		hz       *big.Rat
		result   *benchmark.Result
		expected string
	}{
		{
			name:     "estimate below threshold is shown",
			hz:       big.NewRat(2_000_000_000, 1),
			result:   newResult(loop, "ruby", 1, 10_000_000),
			expected: " in 1.000000s (100.00ns/i, 200clocks/i)\n",
		},
		{
			name:     "estimate at threshold is hidden",
			hz:       big.NewRat(10_000_000_000, 1),
			result:   newResult(loop, "ruby", 1, 10_000_000),
			expected: " in 1.000000s (100.00ns/i)\n",
		},
		{
			name:     "unavailable frequency",
			hz:       nil,
			result:   newResult(loop, "ruby", 1, 10_000_000),
			expected: " in 1.000000s (100.00ns/i)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			out, err := NewIPS(testLogger(), &buf, []benchmark.Executable{{Name: "ruby"}}, Options{ClockHz: tt.hz})
			require.NoError(t, err)

			require.NoError(t, out.StartRunning())
			require.NoError(t, out.Running("loop"))
			require.NoError(t, out.BenchmarkStats(tt.result))

			assert.True(t, strings.HasSuffix(buf.String(), tt.expected), "got %q", buf.String())
		})
	}
}

func TestIPSMultipleExecutables(t *testing.T) {
	var buf bytes.Buffer

	execs := []benchmark.Executable{
		{Name: "ruby-2.4", Version: "2.4.0"},
		{Name: "ruby-trunk-build", Version: "2.6.0"},
	}
	fib := &benchmark.Job{Name: "fib"}

	out, err := NewIPS(testLogger(), &buf, execs, Options{Compare: true})
	require.NoError(t, err)

	require.NoError(t, out.StartRunning())
	require.NoError(t, out.Running("fib"))
	require.NoError(t, out.BenchmarkStats(newResult(fib, "ruby-2.4", 1, 100)))
	require.NoError(t, out.BenchmarkStats(newResult(fib, "ruby-trunk-build", 1, 200)))
	require.NoError(t, out.Finish())

	expected := runningHeader + "\n" +
		pad(20) + "   ruby-2.4 " + " ruby-trunk-build " + "\n" +
		pad(17) + "fib" +
		"   100.000  " +
		pad(9) + "200.000  " +
		"i/s -    200.000  in 1.000000s 1.000000s\n" +
		"\nComparison:\n" +
		"fib (ruby-trunk-build):       200.0 i/s\n" +
		pad(6) + "fib (ruby-2.4):       100.0 i/s - 2.00x slower\n" +
		"\n"

	assert.Equal(t, expected, buf.String())
	assert.Len(t, out.Results(), 2)
	assert.Equal(t, "ruby-2.4", out.Results()[0].Executable)
}

func TestIPSRowCompletesOnce(t *testing.T) {
	var buf bytes.Buffer

	execs := []benchmark.Executable{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	job := &benchmark.Job{Name: "job"}

	out, err := NewIPS(testLogger(), &buf, execs, Options{})
	require.NoError(t, err)

	require.NoError(t, out.StartRunning())
	require.NoError(t, out.Running("job"))

	for _, exec := range execs {
		assert.NotContains(t, buf.String(), "i/s -")
		require.NoError(t, out.BenchmarkStats(newResult(job, exec.Name, 0.5, 10)))
	}

	assert.Equal(t, 1, strings.Count(buf.String(), "i/s -"))
	assert.Equal(t, 3, strings.Count(buf.String(), " 0.500000s"))
	assert.True(t, strings.HasSuffix(buf.String(), " 0.500000s 0.500000s 0.500000s\n"))
}

func TestIPSLongNameOnOwnLine(t *testing.T) {
	var buf bytes.Buffer

	name := "a_benchmark_name_longer_than_twenty"

	out, err := NewIPS(testLogger(), &buf, []benchmark.Executable{{Name: "ruby"}}, Options{})
	require.NoError(t, err)

	require.NoError(t, out.StartWarming())
	require.NoError(t, out.Warming(name))
	require.NoError(t, out.Warming("exactly_twenty_chars"))

	assert.Equal(t, warmingHeader+"\n"+name+"\n"+"exactly_twenty_chars", buf.String())
}

func TestIPSOrderingErrors(t *testing.T) {
	execs := []benchmark.Executable{{Name: "a"}, {Name: "b"}}
	job := &benchmark.Job{Name: "job"}

	start := func(t *testing.T) *IPS {
		t.Helper()

		out, err := NewIPS(testLogger(), &bytes.Buffer{}, execs, Options{})
		require.NoError(t, err)
		require.NoError(t, out.StartRunning())
		require.NoError(t, out.Running("job"))

		return out
	}

	t.Run("wrong executable", func(t *testing.T) {
		out := start(t)
		err := out.BenchmarkStats(newResult(job, "b", 1, 1))
		require.ErrorIs(t, err, ErrExecutableOrder)
	})

	t.Run("wrong job", func(t *testing.T) {
		out := start(t)
		err := out.BenchmarkStats(newResult(&benchmark.Job{Name: "other"}, "a", 1, 1))
		require.ErrorIs(t, err, ErrJobMismatch)
	})

	t.Run("row overflow", func(t *testing.T) {
		out := start(t)
		require.NoError(t, out.BenchmarkStats(newResult(job, "a", 1, 1)))
		require.NoError(t, out.BenchmarkStats(newResult(job, "b", 1, 1)))
		err := out.BenchmarkStats(newResult(job, "a", 1, 1))
		require.ErrorIs(t, err, ErrRowOverflow)
	})

	t.Run("incomplete row", func(t *testing.T) {
		out := start(t)
		require.NoError(t, out.BenchmarkStats(newResult(job, "a", 1, 1)))
		err := out.Running("next")
		require.ErrorIs(t, err, ErrIncompleteRow)
	})

	t.Run("finish with incomplete row", func(t *testing.T) {
		out := start(t)
		require.NoError(t, out.BenchmarkStats(newResult(job, "a", 1, 1)))
		require.ErrorIs(t, out.Finish(), ErrIncompleteRow)

		require.NoError(t, out.BenchmarkStats(newResult(job, "b", 1, 1)))
		require.NoError(t, out.Finish())
	})

	t.Run("invalid result", func(t *testing.T) {
		out := start(t)
		err := out.BenchmarkStats(newResult(job, "a", 1, 0))
		require.ErrorIs(t, err, benchmark.ErrInvalidResult)
		assert.Empty(t, out.Results())
	})
}

func TestIPSRejectedResultWritesNothing(t *testing.T) {
	var buf bytes.Buffer

	job := &benchmark.Job{Name: "job"}

	out, err := NewIPS(testLogger(), &buf, []benchmark.Executable{{Name: "a"}, {Name: "b"}}, Options{})
	require.NoError(t, err)
	require.NoError(t, out.StartRunning())
	require.NoError(t, out.Running("job"))

	before := buf.String()

	require.ErrorIs(t, out.BenchmarkStats(newResult(job, "b", 1, 1)), ErrExecutableOrder)
	assert.Equal(t, before, buf.String())
	assert.Empty(t, out.Results())

	require.NoError(t, out.BenchmarkStats(newResult(job, "a", 1, 1)))
	require.NoError(t, out.BenchmarkStats(newResult(job, "b", 2, 1)))
	assert.Len(t, out.Results(), 2)
	assert.True(t, strings.HasSuffix(buf.String(), "i/s -      1.000  in 1.000000s 2.000000s\n"))
}

func TestIPSRowTail(t *testing.T) {
	job := &benchmark.Job{Name: "job"}

	single, err := NewIPS(testLogger(), &bytes.Buffer{}, []benchmark.Executable{{Name: "a"}}, Options{})
	require.NoError(t, err)

	tail, err := single.rowTail([]*benchmark.Result{newResult(job, "a", 2, 4000)})
	require.NoError(t, err)
	assert.Equal(t, "i/s -      4.000k in 2.000000s (500.00us/i)\n", tail)

	pair, err := NewIPS(testLogger(), &bytes.Buffer{}, []benchmark.Executable{{Name: "a"}, {Name: "b"}}, Options{})
	require.NoError(t, err)

	tail, err = pair.rowTail([]*benchmark.Result{
		newResult(job, "a", 1, 10),
		newResult(job, "b", 0.5, 10),
	})
	require.NoError(t, err)
	assert.Equal(t, "i/s -     10.000  in 1.000000s 0.500000s\n", tail)

	// Nothing was written or recorded by formatting alone.
	assert.Empty(t, pair.Results())
}

func TestIPSPhaseTransitions(t *testing.T) {
	job := &benchmark.Job{Name: "job"}

	out, err := NewIPS(testLogger(), &bytes.Buffer{}, []benchmark.Executable{{Name: "a"}}, Options{})
	require.NoError(t, err)

	require.ErrorIs(t, out.Warming("job"), ErrInvalidTransition)
	require.ErrorIs(t, out.Running("job"), ErrInvalidTransition)

	require.NoError(t, out.StartWarming())
	require.ErrorIs(t, out.StartWarming(), ErrInvalidTransition)
	require.ErrorIs(t, out.BenchmarkStats(newResult(job, "a", 1, 1)), ErrInvalidTransition)

	require.NoError(t, out.StartRunning())
	require.ErrorIs(t, out.BenchmarkStats(newResult(job, "a", 1, 1)), ErrInvalidTransition)
	require.ErrorIs(t, out.WarmupStats(newResult(job, "a", 1, 1)), ErrInvalidTransition)

	require.NoError(t, out.Finish())
	require.ErrorIs(t, out.Finish(), ErrInvalidTransition)
	require.ErrorIs(t, out.StartRunning(), ErrInvalidTransition)
}

func TestNewIPSRequiresExecutables(t *testing.T) {
	_, err := NewIPS(testLogger(), &bytes.Buffer{}, nil, Options{})
	require.ErrorIs(t, err, ErrNoExecutables)
}

type failingWriter struct {
	writes int
}

var errWrite = errors.New("disk full")

func (w *failingWriter) Write(_ []byte) (int, error) {
	w.writes++

	return 0, errWrite
}

func TestIPSWriteErrorIsSticky(t *testing.T) {
	w := &failingWriter{}

	out, err := NewIPS(testLogger(), w, []benchmark.Executable{{Name: "a"}}, Options{})
	require.NoError(t, err)

	require.ErrorIs(t, out.StartWarming(), errWrite)
	require.ErrorIs(t, out.Warming("job"), errWrite)
	assert.Equal(t, 1, w.writes)
}
