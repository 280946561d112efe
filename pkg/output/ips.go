package output

import (
	"fmt"
	"io"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/ethpandaops/benchreport/pkg/benchmark"
	"github.com/ethpandaops/benchreport/pkg/cpufreq"
	"github.com/ethpandaops/benchreport/pkg/humanize"
	"github.com/sirupsen/logrus"
)

const (
	warmingHeader = "Warming up --------------------------------------"
	runningHeader = "Calculating -------------------------------------"

	// maxDisplayedClocks bounds the single-executable cycle estimate.
	maxDisplayedClocks = 1_000
)

// Options controls optional sections of the ips output.
type Options struct {
	// Compare enables the final comparison section.
	Compare bool
	// ClockHz is the CPU frequency used for per-iteration cycle estimates.
	// Nil disables them.
	ClockHz *big.Rat
}

// IPS renders iterations-per-second tables.
type IPS struct {
	log         logrus.FieldLogger
	out         *sink
	executables []benchmark.Executable
	opts        Options

	phase   phase
	results []*benchmark.Result

	rowOpen bool
	rowJob  string
	row     []*benchmark.Result
}

// Ensure interface compliance.
var _ Output = (*IPS)(nil)

// NewIPS creates an ips output writing to w for the given executables, in
// column order.
func NewIPS(
	log logrus.FieldLogger,
	w io.Writer,
	executables []benchmark.Executable,
	opts Options,
) (*IPS, error) {
	if len(executables) == 0 {
		return nil, ErrNoExecutables
	}

	execs := make([]benchmark.Executable, len(executables))
	copy(execs, executables)

	return &IPS{
		log:         log.WithField("component", "output"),
		out:         &sink{w: w},
		executables: execs,
		opts:        opts,
	}, nil
}

// StartWarming begins the warm-up phase.
func (o *IPS) StartWarming() error {
	if err := o.transition("StartWarming", phaseWarming, phaseIdle); err != nil {
		return err
	}

	o.out.printf("%s\n", warmingHeader)

	return o.out.err
}

// Warming prints the name of the job being warmed up.
func (o *IPS) Warming(name string) error {
	if err := o.expect("Warming", phaseWarming); err != nil {
		return err
	}

	o.printName(name)

	return o.out.err
}

// WarmupStats prints the warm-up throughput scaled to a 100ms window.
func (o *IPS) WarmupStats(result *benchmark.Result) error {
	if err := o.expect("WarmupStats", phaseWarming); err != nil {
		return err
	}

	if err := result.Validate(); err != nil {
		return err
	}

	ip100ms, err := humanize.Number(result.IP100ms(), humanize.DefaultWidth)
	if err != nil {
		return fmt.Errorf("formatting warm-up throughput of %q: %w", result.Job.Name, err)
	}

	o.out.printf("%s i/100ms\n", ip100ms)

	return o.out.err
}

// StartRunning begins the measurement phase. With several executables a
// header row of executable names is printed.
func (o *IPS) StartRunning() error {
	if err := o.transition("StartRunning", phaseRunning, phaseIdle, phaseWarming); err != nil {
		return err
	}

	o.out.printf("%s\n", runningHeader)

	if len(o.executables) > 1 {
		o.out.print(strings.Repeat(" ", NameLength))

		for _, exec := range o.executables {
			o.out.printf(" %10s ", exec.Name)
		}

		o.out.print("\n")
	}

	return o.out.err
}

// Running starts the row of job name.
func (o *IPS) Running(name string) error {
	if err := o.expect("Running", phaseRunning); err != nil {
		return err
	}

	if o.rowOpen && len(o.row) < len(o.executables) {
		return fmt.Errorf("%w: %q has %d of %d results", ErrIncompleteRow, o.rowJob, len(o.row), len(o.executables))
	}

	o.printName(name)

	o.rowOpen = true
	o.rowJob = name
	o.row = make([]*benchmark.Result, 0, len(o.executables))

	return o.out.err
}

// BenchmarkStats prints the throughput of one executable for the current
// row. Results must arrive in executable order; the row line is completed
// once every executable reported.
func (o *IPS) BenchmarkStats(result *benchmark.Result) error {
	if err := o.expect("BenchmarkStats", phaseRunning); err != nil {
		return err
	}

	if !o.rowOpen {
		return fmt.Errorf("%w: BenchmarkStats before Running", ErrInvalidTransition)
	}

	if err := result.Validate(); err != nil {
		return err
	}

	if result.Job.Name != o.rowJob {
		return fmt.Errorf("%w: got %q, collecting %q", ErrJobMismatch, result.Job.Name, o.rowJob)
	}

	if len(o.row) >= len(o.executables) {
		return fmt.Errorf("%w: %q already has %d results", ErrRowOverflow, o.rowJob, len(o.row))
	}

	exec := o.executables[len(o.row)]
	if result.Executable != exec.Name {
		return fmt.Errorf("%w: expected %q, got %q", ErrExecutableOrder, exec.Name, result.Executable)
	}

	ips, err := humanize.Number(result.IPS(), max(humanize.DefaultWidth, utf8.RuneCountInString(exec.Name)))
	if err != nil {
		return fmt.Errorf("formatting throughput of %q: %w", result.Job.Name, err)
	}

	// Nothing is written or recorded until the row tail is formatted.
	row := append(o.row[:len(o.row):len(o.row)], result)

	var tail string

	if len(row) == len(o.executables) {
		if tail, err = o.rowTail(row); err != nil {
			return err
		}
	}

	o.out.printf("%s ", ips)

	o.results = append(o.results, result)
	o.row = row

	if tail != "" {
		o.out.print(tail)

		o.log.WithFields(logrus.Fields{
			"job":     o.rowJob,
			"results": len(o.row),
		}).Debug("Row complete")
	}

	return o.out.err
}

// rowTail formats the iteration count and per-executable times that end a
// full row.
func (o *IPS) rowTail(row []*benchmark.Result) (string, error) {
	last := row[len(row)-1]

	iterations, err := humanize.Number(float64(last.Iterations), humanize.DefaultWidth)
	if err != nil {
		return "", fmt.Errorf("formatting iterations of %q: %w", last.Job.Name, err)
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "i/s - %s in", iterations)

	for _, r := range row {
		fmt.Fprintf(&sb, " %3.6fs", r.Real)
	}

	if len(row) == 1 {
		suffix, err := o.perIteration(row[0].Real, last.Iterations)
		if err != nil {
			return "", fmt.Errorf("formatting per-iteration time of %q: %w", last.Job.Name, err)
		}

		sb.WriteString(suffix)
	}

	sb.WriteString("\n")

	return sb.String(), nil
}

// perIteration builds the " (<time>/i)" suffix, with a cycle estimate when
// the CPU frequency is known and the estimate is small enough to be readable.
func (o *IPS) perIteration(realTime float64, iterations int64) (string, error) {
	seconds := humanize.Seconds(realTime)

	duration, err := humanize.Duration(seconds, iterations)
	if err != nil {
		return "", err
	}

	if o.opts.ClockHz != nil {
		clocks, err := cpufreq.EstimateClock(seconds, iterations, o.opts.ClockHz)
		if err == nil && clocks < maxDisplayedClocks {
			return fmt.Sprintf(" (%s/i, %dclocks/i)", duration, clocks), nil
		}
	}

	return fmt.Sprintf(" (%s/i)", duration), nil
}

// Finish closes the run, printing the comparison when enabled and more than
// one result was collected. A row still waiting for results is an error.
func (o *IPS) Finish() error {
	if o.out.err == nil && o.phase == phaseRunning && o.rowOpen && len(o.row) < len(o.executables) {
		return fmt.Errorf("%w: %q has %d of %d results", ErrIncompleteRow, o.rowJob, len(o.row), len(o.executables))
	}

	if err := o.transition("Finish", phaseComparing, phaseIdle, phaseWarming, phaseRunning); err != nil {
		return err
	}

	defer func() { o.phase = phaseDone }()

	if len(o.results) > 1 && o.opts.Compare {
		if err := WriteComparison(o.out.w, Rank(o.results), len(o.executables) > 1); err != nil {
			return fmt.Errorf("writing comparison: %w", err)
		}
	}

	o.log.WithField("results", len(o.results)).Debug("Output finished")

	return o.out.err
}

// Results returns the collected measurement results in arrival order.
func (o *IPS) Results() []*benchmark.Result {
	results := make([]*benchmark.Result, len(o.results))
	copy(results, o.results)

	return results
}

// printName prints a job name in its fixed-width column, or on a line of its
// own when it does not fit.
func (o *IPS) printName(name string) {
	if utf8.RuneCountInString(name) > NameLength {
		o.out.printf("%s\n", name)

		return
	}

	o.out.printf("%*s", NameLength, name)
}

func (o *IPS) expect(call string, want phase) error {
	if o.out.err != nil {
		return o.out.err
	}

	if o.phase != want {
		return fmt.Errorf("%w: %s during %s phase", ErrInvalidTransition, call, o.phase)
	}

	return nil
}

func (o *IPS) transition(call string, to phase, from ...phase) error {
	if o.out.err != nil {
		return o.out.err
	}

	for _, p := range from {
		if o.phase == p {
			o.log.WithFields(logrus.Fields{
				"from": o.phase.String(),
				"to":   to.String(),
			}).Debug("Output phase changed")

			o.phase = to

			return nil
		}
	}

	return fmt.Errorf("%w: %s during %s phase", ErrInvalidTransition, call, o.phase)
}
