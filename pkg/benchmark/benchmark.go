// Package benchmark holds the value types shared by the reporting pipeline:
// jobs, executables and the per-(job, executable) measurement records.
package benchmark

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidResult is returned when a result cannot produce a throughput.
	ErrInvalidResult = errors.New("invalid benchmark result")
)

// Job identifies a named benchmark scenario.
type Job struct {
	Name     string
	Script   string
	Prelude  string
	Teardown string
	// LoopCount overrides the runner's iteration count when set.
	LoopCount *int64
	// RequiredVersion is the minimum executable version able to run the job.
	RequiredVersion string
}

// Executable identifies one benchmarked target.
type Executable struct {
	Name    string
	Version string
}

// Result is one measurement of a job against one executable.
type Result struct {
	Job        *Job
	Executable string
	// Real is the elapsed wall time in seconds.
	Real       float64
	Iterations int64
}

// Validate checks the preconditions required to derive throughput.
func (r *Result) Validate() error {
	switch {
	case r == nil:
		return fmt.Errorf("%w: nil result", ErrInvalidResult)
	case r.Job == nil:
		return fmt.Errorf("%w: missing job", ErrInvalidResult)
	case r.Executable == "":
		return fmt.Errorf("%w: job %q has no executable", ErrInvalidResult, r.Job.Name)
	case math.IsNaN(r.Real) || math.IsInf(r.Real, 0) || r.Real <= 0:
		return fmt.Errorf("%w: job %q has non-positive real time %v", ErrInvalidResult, r.Job.Name, r.Real)
	case r.Iterations <= 0:
		return fmt.Errorf("%w: job %q has non-positive iterations %d", ErrInvalidResult, r.Job.Name, r.Iterations)
	}

	return nil
}

// IPS returns iterations per second. Callers validate the result first.
func (r *Result) IPS() float64 {
	return float64(r.Iterations) / r.Real
}

// IP100ms returns the throughput scaled to a 100ms window.
func (r *Result) IP100ms() float64 {
	return r.IPS() / 10
}

// JobName returns the name of the result's job, or an empty string.
func (r *Result) JobName() string {
	if r.Job == nil {
		return ""
	}

	return r.Job.Name
}
