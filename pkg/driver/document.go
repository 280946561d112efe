package driver

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Sample is one recorded measurement of a job against an executable.
type Sample struct {
	Job        string  `yaml:"job" json:"job"`
	Executable string  `yaml:"executable" json:"executable"`
	Real       float64 `yaml:"real" json:"real"`
	Iterations int64   `yaml:"iterations" json:"iterations"`
}

// Document is a recorded benchmark run. Warm-up samples are optional.
type Document struct {
	Warmup       []Sample `yaml:"warmup,omitempty" json:"warmup,omitempty"`
	Measurements []Sample `yaml:"measurements" json:"measurements"`
}

// LoadDocument reads a YAML or JSON measurement document.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading measurements file: %w", err)
	}

	return ParseDocument(data)
}

// ParseDocument decodes a YAML or JSON measurement document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing measurements: %w", err)
	}

	if len(doc.Measurements) == 0 {
		return nil, fmt.Errorf("measurements file has no measurements")
	}

	return &doc, nil
}

type sampleKey struct {
	job        string
	executable string
}

// index maps samples by job and executable, rejecting duplicates.
func index(samples []Sample, section string) (map[sampleKey]Sample, error) {
	indexed := make(map[sampleKey]Sample, len(samples))

	for i, s := range samples {
		if s.Job == "" || s.Executable == "" {
			return nil, fmt.Errorf("%s sample %d: job and executable are required", section, i)
		}

		key := sampleKey{job: s.Job, executable: s.Executable}
		if _, exists := indexed[key]; exists {
			return nil, fmt.Errorf("%s sample %d: duplicate sample for %q on %q", section, i, s.Job, s.Executable)
		}

		indexed[key] = s
	}

	return indexed, nil
}
