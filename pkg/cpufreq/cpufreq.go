package cpufreq

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Source kinds accepted by NewSource.
const (
	SourceAuto     = "auto"
	SourceCPUInfo  = "cpuinfo"
	SourceSysfs    = "sysfs"
	SourceGopsutil = "gopsutil"
	SourceNone     = "none"
)

// ErrUnavailable is returned when a source has no clock frequency to offer.
var ErrUnavailable = errors.New("cpu frequency unavailable")

// Source reads the current CPU clock frequency in Hz.
type Source interface {
	// Frequency returns the clock frequency as an exact rational in Hz.
	Frequency(ctx context.Context) (*big.Rat, error)
	// Name returns the source kind for logging.
	Name() string
}

// SourceConfig selects and locates a frequency source.
type SourceConfig struct {
	Kind         string
	CPUInfoPath  string
	SysfsPath    string
	OverrideFreq string // "2.4GHz", "2400MHz"; bypasses probing when set
}

// NewSource builds the frequency source named by cfg.Kind.
func NewSource(cfg *SourceConfig) (Source, error) {
	if cfg.OverrideFreq != "" {
		kHz, err := ParseFrequency(cfg.OverrideFreq)
		if err != nil {
			return nil, fmt.Errorf("parsing frequency override: %w", err)
		}

		if kHz == 0 {
			return nil, fmt.Errorf("frequency override %q does not name a value", cfg.OverrideFreq)
		}

		return &fixedSource{hz: new(big.Rat).SetInt64(int64(kHz) * 1_000)}, nil
	}

	cpuinfoPath := cfg.CPUInfoPath
	if cpuinfoPath == "" {
		cpuinfoPath = DefaultCPUInfoPath
	}

	sysfsPath := cfg.SysfsPath
	if sysfsPath == "" {
		sysfsPath = DefaultSysfsCPUPath
	}

	switch cfg.Kind {
	case "", SourceAuto:
		return &chainSource{sources: []Source{
			&cpuinfoSource{path: cpuinfoPath},
			&sysfsSource{basePath: sysfsPath},
			&gopsutilSource{},
		}}, nil
	case SourceCPUInfo:
		return &cpuinfoSource{path: cpuinfoPath}, nil
	case SourceSysfs:
		return &sysfsSource{basePath: sysfsPath}, nil
	case SourceGopsutil:
		return &gopsutilSource{}, nil
	case SourceNone:
		return noneSource{}, nil
	default:
		return nil, fmt.Errorf("unknown cpu frequency source %q", cfg.Kind)
	}
}

// Probe performs the single best-effort frequency read for a run. A failing
// or absent source disables clock estimation and returns nil.
func Probe(ctx context.Context, log logrus.FieldLogger, src Source) *big.Rat {
	log = log.WithField("component", "cpufreq")

	if src == nil {
		return nil
	}

	hz, err := src.Frequency(ctx)
	if err != nil {
		log.WithError(err).WithField("source", src.Name()).
			Debug("CPU frequency not available, clock estimates disabled")

		return nil
	}

	kHz, _ := new(big.Rat).Quo(hz, big.NewRat(1_000, 1)).Float64()

	log.WithFields(logrus.Fields{
		"source":    src.Name(),
		"frequency": FormatFrequency(uint64(kHz)),
	}).Debug("Detected CPU frequency")

	return hz
}

// chainSource returns the first frequency any of its sources can provide.
type chainSource struct {
	sources []Source
}

func (c *chainSource) Name() string {
	return SourceAuto
}

func (c *chainSource) Frequency(ctx context.Context) (*big.Rat, error) {
	errs := make([]error, 0, len(c.sources))

	for _, src := range c.sources {
		hz, err := src.Frequency(ctx)
		if err == nil {
			return hz, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
	}

	return nil, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}

type fixedSource struct {
	hz *big.Rat
}

func (f *fixedSource) Name() string {
	return "override"
}

func (f *fixedSource) Frequency(_ context.Context) (*big.Rat, error) {
	return new(big.Rat).Set(f.hz), nil
}

type noneSource struct{}

func (noneSource) Name() string {
	return SourceNone
}

func (noneSource) Frequency(_ context.Context) (*big.Rat, error) {
	return nil, ErrUnavailable
}

var frequencyPattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(mhz|ghz|khz)?$`)

// ParseFrequency parses a frequency string and returns the value in kHz.
// Supported formats: "2000MHz", "2.4GHz", "2400000KHz", "2400000", "MAX".
// "MAX" returns 0 and is left to the caller.
func ParseFrequency(freq string) (uint64, error) {
	freq = strings.TrimSpace(freq)
	if freq == "" {
		return 0, fmt.Errorf("empty frequency string")
	}

	if strings.ToUpper(freq) == "MAX" {
		return 0, nil
	}

	matches := frequencyPattern.FindStringSubmatch(freq)
	if matches == nil {
		return 0, fmt.Errorf("invalid frequency format: %s", freq)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("parsing frequency value: %w", err)
	}

	var kHz uint64

	switch strings.ToLower(matches[2]) {
	case "ghz":
		kHz = uint64(value * 1_000_000)
	case "mhz":
		kHz = uint64(value * 1_000)
	default:
		// kHz, with or without the unit.
		kHz = uint64(value)
	}

	if kHz == 0 {
		return 0, fmt.Errorf("frequency must be greater than 0")
	}

	return kHz, nil
}

// FormatFrequency formats a frequency in kHz to a human-readable string.
func FormatFrequency(kHz uint64) string {
	if kHz >= 1_000_000 {
		return fmt.Sprintf("%.2f GHz", float64(kHz)/1_000_000)
	}

	if kHz >= 1_000 {
		return fmt.Sprintf("%.0f MHz", float64(kHz)/1_000)
	}

	return fmt.Sprintf("%d kHz", kHz)
}
