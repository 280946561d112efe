// Package output renders benchmark results as they stream in from a runner:
// warm-up progress, per-job measurement rows and a final ranked comparison.
package output

import (
	"errors"
	"fmt"
	"io"

	"github.com/ethpandaops/benchreport/pkg/benchmark"
)

var (
	// ErrInvalidTransition is returned when a call arrives in the wrong phase.
	ErrInvalidTransition = errors.New("invalid output phase transition")

	// ErrNoExecutables is returned when an output is built without executables.
	ErrNoExecutables = errors.New("no executables registered")

	// ErrExecutableOrder is returned when a result does not belong to the
	// next executable column of the current row.
	ErrExecutableOrder = errors.New("result delivered out of executable order")

	// ErrJobMismatch is returned when a result belongs to another job than
	// the row being collected.
	ErrJobMismatch = errors.New("result does not belong to the current job")

	// ErrRowOverflow is returned when a row already holds one result per executable.
	ErrRowOverflow = errors.New("row already complete")

	// ErrIncompleteRow is returned when a new row starts before the previous
	// one received a result for every executable.
	ErrIncompleteRow = errors.New("previous row is incomplete")
)

// NameLength is the column width of job names.
const NameLength = 20

// Output consumes the result stream of a benchmark run in strict order:
//
//	StartWarming; {Warming; WarmupStats}*; StartRunning;
//	{Running; BenchmarkStats x executables}*; Finish
type Output interface {
	StartWarming() error
	Warming(name string) error
	WarmupStats(result *benchmark.Result) error
	StartRunning() error
	Running(name string) error
	BenchmarkStats(result *benchmark.Result) error
	Finish() error
}

// phase is a state of the reporting protocol.
type phase int

const (
	phaseIdle phase = iota
	phaseWarming
	phaseRunning
	phaseComparing
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseWarming:
		return "warming"
	case phaseRunning:
		return "running"
	case phaseComparing:
		return "comparing"
	case phaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// sink writes to the injected writer and keeps the first write error.
type sink struct {
	w   io.Writer
	err error
}

func (s *sink) printf(format string, args ...any) {
	if s.err != nil {
		return
	}

	_, s.err = fmt.Fprintf(s.w, format, args...)
}

func (s *sink) print(text string) {
	if s.err != nil {
		return
	}

	_, s.err = io.WriteString(s.w, text)
}
