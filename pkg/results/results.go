// Package results writes machine-readable and markdown summaries of a
// completed benchmark run.
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethpandaops/benchreport/pkg/benchmark"
	"github.com/ethpandaops/benchreport/pkg/fsutil"
	"github.com/ethpandaops/benchreport/pkg/output"
)

// ResultFile is the name of the run result document inside a run directory.
const ResultFile = "result.json"

// ExecutableEntry describes one benchmarked executable.
type ExecutableEntry struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// Entry is one measurement with its position in the comparison.
type Entry struct {
	Job        string  `json:"job"`
	Executable string  `json:"executable"`
	Real       float64 `json:"real"`
	Iterations int64   `json:"iterations"`
	IPS        float64 `json:"ips"`
	// Rank is 1 for the fastest result.
	Rank int `json:"rank"`
	// Slowdown relative to the fastest result, omitted for it.
	Slowdown float64 `json:"slowdown,omitempty"`
}

// RunResult is the result.json document of a run.
type RunResult struct {
	RunID        string            `json:"run_id"`
	Timestamp    int64             `json:"timestamp"`
	TimestampEnd int64             `json:"timestamp_end,omitempty"`
	ClockMHz     float64           `json:"clock_mhz,omitempty"`
	System       *SystemInfo       `json:"system,omitempty"`
	Executables  []ExecutableEntry `json:"executables"`
	Entries      []Entry           `json:"entries"`
	Skipped      []string          `json:"skipped,omitempty"`
}

// Build assembles a run result from measurement results in arrival order.
func Build(
	runID string,
	executables []benchmark.Executable,
	results []*benchmark.Result,
) *RunResult {
	rr := &RunResult{
		RunID:       runID,
		Executables: make([]ExecutableEntry, 0, len(executables)),
		Entries:     make([]Entry, 0, len(results)),
	}

	for _, exec := range executables {
		rr.Executables = append(rr.Executables, ExecutableEntry{
			Name:    exec.Name,
			Version: exec.Version,
		})
	}

	ranks := make(map[*benchmark.Result]int, len(results))
	slowdowns := make(map[*benchmark.Result]float64, len(results))

	for i, r := range output.Rank(results) {
		ranks[r.Result] = i + 1
		slowdowns[r.Result] = r.Slowdown
	}

	for _, r := range results {
		rr.Entries = append(rr.Entries, Entry{
			Job:        r.JobName(),
			Executable: r.Executable,
			Real:       r.Real,
			Iterations: r.Iterations,
			IPS:        r.IPS(),
			Rank:       ranks[r],
			Slowdown:   slowdowns[r],
		})
	}

	return rr
}

// WriteRunResult writes the run result to result.json in dir, creating dir
// as needed. Created paths are handed to owner when it is set.
func WriteRunResult(dir string, result *RunResult, owner *fsutil.Owner) error {
	if err := fsutil.MkdirAll(dir, 0o755, owner); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run result: %w", err)
	}

	if err := fsutil.WriteFile(filepath.Join(dir, ResultFile), data, 0o644, owner); err != nil {
		return fmt.Errorf("writing %s: %w", ResultFile, err)
	}

	return nil
}

// ReadRunResult reads result.json from dir.
func ReadRunResult(dir string) (*RunResult, error) {
	data, err := os.ReadFile(filepath.Join(dir, ResultFile))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ResultFile, err)
	}

	var rr RunResult
	if err := json.Unmarshal(data, &rr); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ResultFile, err)
	}

	return &rr, nil
}
