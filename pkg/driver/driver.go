// Package driver replays recorded measurements through an output in the
// order a live runner would produce them.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/ethpandaops/benchreport/pkg/benchmark"
	"github.com/ethpandaops/benchreport/pkg/job"
	"github.com/ethpandaops/benchreport/pkg/output"
	"github.com/sirupsen/logrus"
)

// ErrMissingMeasurement is returned when a runnable job has no measurement
// for one of its executables.
var ErrMissingMeasurement = errors.New("missing measurement")

// Summary describes a completed replay.
type Summary struct {
	Jobs     int
	Skipped  []string
	Warmups  int
	Measured time.Duration
}

// Driver feeds a recorded document to an output.
type Driver struct {
	log         logrus.FieldLogger
	executables []benchmark.Executable
}

// New creates a driver for the registered executables, in column order.
func New(log logrus.FieldLogger, executables []benchmark.Executable) *Driver {
	return &Driver{
		log:         log.WithField("component", "driver"),
		executables: executables,
	}
}

// Run emits StartWarming, one warm-up line per job, StartRunning, one row
// per job and Finish. A job is warmed up with the sample of the first
// executable, in column order, that recorded one. The warm-up phase is skipped when no job has warm-up
// samples. Jobs that cannot run on every registered executable are skipped.
// On error the output is left unfinished.
func (d *Driver) Run(
	ctx context.Context,
	out output.Output,
	jobs []*benchmark.Job,
	doc *Document,
) (*Summary, error) {
	warmups, err := index(doc.Warmup, "warmup")
	if err != nil {
		return nil, err
	}

	measurements, err := index(doc.Measurements, "measurement")
	if err != nil {
		return nil, err
	}

	runnable, skipped, err := d.selectJobs(jobs)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Jobs: len(runnable), Skipped: skipped}

	if hasWarmup(runnable, d.executables, warmups) {
		if err := out.StartWarming(); err != nil {
			return nil, fmt.Errorf("starting warm-up: %w", err)
		}

		for _, j := range runnable {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			s, ok := d.warmupSample(j, warmups)
			if !ok {
				continue
			}

			if err := out.Warming(j.Name); err != nil {
				return nil, fmt.Errorf("warming %q: %w", j.Name, err)
			}

			if err := out.WarmupStats(toResult(j, s)); err != nil {
				return nil, fmt.Errorf("reporting warm-up of %q: %w", j.Name, err)
			}

			summary.Warmups++
		}
	}

	if err := out.StartRunning(); err != nil {
		return nil, fmt.Errorf("starting measurement: %w", err)
	}

	for _, j := range runnable {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Check the whole row before writing any of it.
		row := make([]*benchmark.Result, 0, len(d.executables))

		for _, exec := range d.executables {
			s, ok := measurements[sampleKey{job: j.Name, executable: exec.Name}]
			if !ok {
				return nil, fmt.Errorf("%w: job %q on %q", ErrMissingMeasurement, j.Name, exec.Name)
			}

			row = append(row, toResult(j, s))
		}

		if err := out.Running(j.Name); err != nil {
			return nil, fmt.Errorf("running %q: %w", j.Name, err)
		}

		for _, r := range row {
			if err := out.BenchmarkStats(r); err != nil {
				return nil, fmt.Errorf("reporting %q on %q: %w", j.Name, r.Executable, err)
			}

			summary.Measured += time.Duration(r.Real * float64(time.Second))
		}
	}

	if err := out.Finish(); err != nil {
		return nil, fmt.Errorf("finishing output: %w", err)
	}

	d.log.WithFields(logrus.Fields{
		"jobs":     summary.Jobs,
		"skipped":  len(summary.Skipped),
		"warmups":  summary.Warmups,
		"measured": units.HumanDuration(summary.Measured),
	}).Info("Replay complete")

	return summary, nil
}

// selectJobs keeps the jobs runnable on every registered executable. Rows
// must hold one result per executable, so a job limited to a subset of
// them is skipped.
func (d *Driver) selectJobs(jobs []*benchmark.Job) ([]*benchmark.Job, []string, error) {
	runnable := make([]*benchmark.Job, 0, len(jobs))
	skipped := make([]string, 0)

	for _, j := range jobs {
		execs, err := job.RunnableExecutables(j, d.executables)
		if err != nil {
			return nil, nil, err
		}

		if len(execs) < len(d.executables) {
			d.log.WithFields(logrus.Fields{
				"job":              j.Name,
				"required_version": j.RequiredVersion,
				"runnable":         len(execs),
			}).Warn("Skipping job not runnable on every executable")

			skipped = append(skipped, j.Name)

			continue
		}

		runnable = append(runnable, j)
	}

	return runnable, skipped, nil
}

// warmupSample returns the warm-up sample of the first executable that has
// one for j.
func (d *Driver) warmupSample(j *benchmark.Job, warmups map[sampleKey]Sample) (Sample, bool) {
	for _, exec := range d.executables {
		if s, ok := warmups[sampleKey{job: j.Name, executable: exec.Name}]; ok {
			return s, true
		}
	}

	return Sample{}, false
}

func hasWarmup(jobs []*benchmark.Job, executables []benchmark.Executable, warmups map[sampleKey]Sample) bool {
	for _, j := range jobs {
		for _, exec := range executables {
			if _, ok := warmups[sampleKey{job: j.Name, executable: exec.Name}]; ok {
				return true
			}
		}
	}

	return false
}

func toResult(j *benchmark.Job, s Sample) *benchmark.Result {
	return &benchmark.Result{
		Job:        j,
		Executable: s.Executable,
		Real:       s.Real,
		Iterations: s.Iterations,
	}
}
