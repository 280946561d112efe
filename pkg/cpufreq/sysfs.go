package cpufreq

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// DefaultSysfsCPUPath is the default sysfs path for CPU frequency files.
	DefaultSysfsCPUPath = "/sys/devices/system/cpu"

	cpufreqSubdir = "cpufreq"
)

// cpufreq sysfs files, values in kHz.
const (
	scalingCurFreqFile = "scaling_cur_freq"
	cpuinfoCurFreqFile = "cpuinfo_cur_freq"
)

// sysfsSource reads the current frequency of the first online CPU.
type sysfsSource struct {
	basePath string
}

func (s *sysfsSource) Name() string {
	return SourceSysfs
}

func (s *sysfsSource) Frequency(_ context.Context) (*big.Rat, error) {
	cpus, err := getOnlineCPUs(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if len(cpus) == 0 {
		return nil, fmt.Errorf("%w: no online CPUs", ErrUnavailable)
	}

	// scaling_cur_freq is world readable, cpuinfo_cur_freq usually needs root.
	for _, file := range []string{scalingCurFreqFile, cpuinfoCurFreqFile} {
		kHz, err := readSysfsUint64(cpufreqPath(s.basePath, cpus[0], file))
		if err != nil || kHz == 0 {
			continue
		}

		return new(big.Rat).SetInt64(int64(kHz) * 1_000), nil
	}

	return nil, fmt.Errorf("%w: no readable frequency for cpu%d", ErrUnavailable, cpus[0])
}

// getOnlineCPUs returns the list of online CPU IDs.
func getOnlineCPUs(basePath string) ([]int, error) {
	data, err := os.ReadFile(filepath.Join(basePath, "online"))
	if err == nil {
		return parseCPURange(strings.TrimSpace(string(data)))
	}

	// Fall back to present CPUs if online file doesn't exist.
	data, err = os.ReadFile(filepath.Join(basePath, "present"))
	if err != nil {
		return nil, fmt.Errorf("reading CPU online/present: %w", err)
	}

	return parseCPURange(strings.TrimSpace(string(data)))
}

// parseCPURange parses CPU range strings like "0-7" or "0,2,4-6".
func parseCPURange(rangeStr string) ([]int, error) {
	if rangeStr == "" {
		return nil, nil
	}

	var cpus []int

	for _, part := range strings.Split(rangeStr, ",") {
		part = strings.TrimSpace(part)

		start, end, isRange := strings.Cut(part, "-")
		if !isRange {
			cpuID, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("parsing CPU ID: %w", err)
			}

			cpus = append(cpus, cpuID)

			continue
		}

		first, err := strconv.Atoi(strings.TrimSpace(start))
		if err != nil {
			return nil, fmt.Errorf("parsing CPU range start: %w", err)
		}

		last, err := strconv.Atoi(strings.TrimSpace(end))
		if err != nil {
			return nil, fmt.Errorf("parsing CPU range end: %w", err)
		}

		for i := first; i <= last; i++ {
			cpus = append(cpus, i)
		}
	}

	return cpus, nil
}

// cpufreqPath returns the path to a cpufreq file for a given CPU.
func cpufreqPath(basePath string, cpuID int, filename string) string {
	return filepath.Join(basePath, fmt.Sprintf("cpu%d", cpuID), cpufreqSubdir, filename)
}

// readSysfsUint64 reads a uint64 value from a sysfs file.
func readSysfsUint64(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}

	value, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}

	return value, nil
}
