package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ethpandaops/benchreport/pkg/fsutil"
)

// IndexFile is the name of the run index inside a results directory.
const IndexFile = "index.json"

// Index lists every run of a results directory, newest first.
type Index struct {
	Generated int64         `json:"generated"`
	Entries   []*IndexEntry `json:"entries"`
}

// IndexEntry summarizes one run.
type IndexEntry struct {
	RunID       string        `json:"run_id"`
	Timestamp   int64         `json:"timestamp"`
	Duration    int64         `json:"duration,omitempty"`
	Hostname    string        `json:"hostname,omitempty"`
	ClockMHz    float64       `json:"clock_mhz,omitempty"`
	Executables []string      `json:"executables"`
	Jobs        int           `json:"jobs"`
	Results     int           `json:"results"`
	Skipped     int           `json:"skipped,omitempty"`
	Fastest     *IndexFastest `json:"fastest,omitempty"`
}

// IndexFastest is the rank 1 result of a run.
type IndexFastest struct {
	Job        string  `json:"job"`
	Executable string  `json:"executable"`
	IPS        float64 `json:"ips"`
}

// BuildIndex summarizes runs, newest first. Runs sharing a timestamp are
// ordered by ID.
func BuildIndex(runs []*RunResult) *Index {
	entries := make([]*IndexEntry, 0, len(runs))

	for _, rr := range runs {
		if rr == nil {
			continue
		}

		entries = append(entries, buildIndexEntry(rr))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp != entries[j].Timestamp {
			return entries[i].Timestamp > entries[j].Timestamp
		}

		return entries[i].RunID < entries[j].RunID
	})

	return &Index{
		Generated: time.Now().Unix(),
		Entries:   entries,
	}
}

func buildIndexEntry(rr *RunResult) *IndexEntry {
	entry := &IndexEntry{
		RunID:       rr.RunID,
		Timestamp:   rr.Timestamp,
		ClockMHz:    rr.ClockMHz,
		Executables: make([]string, 0, len(rr.Executables)),
		Results:     len(rr.Entries),
		Skipped:     len(rr.Skipped),
	}

	if rr.TimestampEnd > rr.Timestamp {
		entry.Duration = rr.TimestampEnd - rr.Timestamp
	}

	if rr.System != nil {
		entry.Hostname = rr.System.Hostname
	}

	for _, exec := range rr.Executables {
		entry.Executables = append(entry.Executables, exec.Name)
	}

	jobs := make(map[string]struct{}, len(rr.Entries))

	for _, e := range rr.Entries {
		jobs[e.Job] = struct{}{}

		if e.Rank == 1 && entry.Fastest == nil {
			entry.Fastest = &IndexFastest{
				Job:        e.Job,
				Executable: e.Executable,
				IPS:        e.IPS,
			}
		}
	}

	entry.Jobs = len(jobs)

	return entry
}

// GenerateIndex scans the run directories of resultsDir and builds an index
// from their result documents. Directories without a readable result are
// skipped.
func GenerateIndex(resultsDir string) (*Index, error) {
	dirEntries, err := os.ReadDir(resultsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return BuildIndex(nil), nil
		}

		return nil, fmt.Errorf("reading results directory: %w", err)
	}

	runs := make([]*RunResult, 0, len(dirEntries))

	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}

		rr, err := ReadRunResult(filepath.Join(resultsDir, de.Name()))
		if err != nil {
			continue
		}

		if rr.RunID == "" {
			rr.RunID = de.Name()
		}

		runs = append(runs, rr)
	}

	return BuildIndex(runs), nil
}

// WriteIndex writes the index to index.json in resultsDir.
func WriteIndex(resultsDir string, index *Index, owner *fsutil.Owner) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}

	if err := fsutil.WriteFile(filepath.Join(resultsDir, IndexFile), data, 0o644, owner); err != nil {
		return fmt.Errorf("writing %s: %w", IndexFile, err)
	}

	return nil
}
