package job

import (
	"fmt"
	"strings"

	"github.com/ethpandaops/benchreport/pkg/benchmark"
	"github.com/mitchellh/mapstructure"
	"golang.org/x/mod/semver"
)

// defaultDefinition is the decoded form of a default job definition.
type defaultDefinition struct {
	Name            string `mapstructure:"name"`
	Script          string `mapstructure:"script"`
	Prelude         string `mapstructure:"prelude"`
	Teardown        string `mapstructure:"teardown"`
	LoopCount       *int64 `mapstructure:"loop_count"`
	RequiredVersion string `mapstructure:"required_version"`
}

// ParseDefault decodes a default job. Only name is mandatory; prelude and
// teardown default to empty. Unknown keys are rejected.
func ParseDefault(def map[string]any) (*benchmark.Job, error) {
	var d defaultDefinition

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &d,
	})
	if err != nil {
		return nil, fmt.Errorf("creating decoder: %w", err)
	}

	if err := decoder.Decode(def); err != nil {
		return nil, fmt.Errorf("decoding job: %w", err)
	}

	if d.Name == "" {
		return nil, fmt.Errorf("name is required")
	}

	if d.LoopCount != nil && *d.LoopCount <= 0 {
		return nil, fmt.Errorf("job %q: loop_count must be positive, got %d", d.Name, *d.LoopCount)
	}

	if d.RequiredVersion != "" && !semver.IsValid(canonicalVersion(d.RequiredVersion)) {
		return nil, fmt.Errorf("job %q: invalid required_version %q", d.Name, d.RequiredVersion)
	}

	return &benchmark.Job{
		Name:            d.Name,
		Script:          d.Script,
		Prelude:         d.Prelude,
		Teardown:        d.Teardown,
		LoopCount:       d.LoopCount,
		RequiredVersion: d.RequiredVersion,
	}, nil
}

// RunnableExecutables returns the executables able to run j. Without a
// version requirement every executable qualifies; otherwise only those at
// or above it, in their original order.
func RunnableExecutables(j *benchmark.Job, executables []benchmark.Executable) ([]benchmark.Executable, error) {
	if j.RequiredVersion == "" {
		return executables, nil
	}

	required := canonicalVersion(j.RequiredVersion)
	runnable := make([]benchmark.Executable, 0, len(executables))

	for _, exec := range executables {
		version := canonicalVersion(exec.Version)
		if !semver.IsValid(version) {
			continue
		}

		if semver.Compare(version, required) >= 0 {
			runnable = append(runnable, exec)
		}
	}

	if len(runnable) == 0 {
		return nil, fmt.Errorf(
			"%w: job %q requires version %s", ErrNoRunnableExecutables, j.Name, j.RequiredVersion,
		)
	}

	return runnable, nil
}

// canonicalVersion adds the "v" prefix semver expects.
func canonicalVersion(version string) string {
	version = strings.TrimSpace(version)
	if version == "" || strings.HasPrefix(version, "v") {
		return version
	}

	return "v" + version
}
