package cpufreq

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"regexp"

	"github.com/shirou/gopsutil/v4/cpu"
)

// DefaultCPUInfoPath is the procfs file scanned for "cpu MHz".
const DefaultCPUInfoPath = "/proc/cpuinfo"

var cpuMHzPattern = regexp.MustCompile(`(?m)^cpu MHz\s+:\s+([\d.]+)`)

// cpuinfoSource reads the first "cpu MHz" entry of /proc/cpuinfo.
type cpuinfoSource struct {
	path string
}

func (s *cpuinfoSource) Name() string {
	return SourceCPUInfo
}

func (s *cpuinfoSource) Frequency(_ context.Context) (*big.Rat, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return parseCPUInfo(data)
}

// parseCPUInfo extracts the first "cpu MHz" value as an exact rational in Hz.
func parseCPUInfo(data []byte) (*big.Rat, error) {
	matches := cpuMHzPattern.FindSubmatch(data)
	if matches == nil {
		return nil, fmt.Errorf("%w: no cpu MHz entry", ErrUnavailable)
	}

	mhz, ok := new(big.Rat).SetString(string(matches[1]))
	if !ok || mhz.Sign() <= 0 {
		return nil, fmt.Errorf("%w: invalid cpu MHz value %q", ErrUnavailable, matches[1])
	}

	return mhz.Mul(mhz, big.NewRat(1_000_000, 1)), nil
}

// gopsutilSource asks gopsutil for the nominal frequency of the first CPU.
type gopsutilSource struct{}

func (s *gopsutilSource) Name() string {
	return SourceGopsutil
}

func (s *gopsutilSource) Frequency(ctx context.Context) (*big.Rat, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if len(infos) == 0 || infos[0].Mhz <= 0 {
		return nil, fmt.Errorf("%w: no cpu frequency reported", ErrUnavailable)
	}

	mhz := new(big.Rat).SetFloat64(infos[0].Mhz)
	if mhz == nil {
		return nil, fmt.Errorf("%w: invalid cpu frequency %v", ErrUnavailable, infos[0].Mhz)
	}

	return mhz.Mul(mhz, big.NewRat(1_000_000, 1)), nil
}
