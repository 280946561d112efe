// Package job turns raw job definitions into benchmark jobs. Each
// definition carries a type tag that selects the parser handling it.
package job

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/ethpandaops/benchreport/pkg/benchmark"
)

const (
	// TypeKey is the definition key holding the parser type tag.
	TypeKey = "type"

	// DefaultType is the tag of the built-in parser.
	DefaultType = "default"
)

var (
	// ErrInvalidType is returned for a missing, non-string or malformed type tag.
	ErrInvalidType = errors.New("invalid job type")

	// ErrUnknownType is returned when no parser is registered for a tag.
	ErrUnknownType = errors.New("unknown job type")

	// ErrNoRunnableExecutables is returned when no executable satisfies the
	// version requirement of a job.
	ErrNoRunnableExecutables = errors.New("no runnable executables")
)

var typePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ParserFunc builds a job from a definition whose type tag was removed.
type ParserFunc func(def map[string]any) (*benchmark.Job, error)

// Registry maps type tags to parsers.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]ParserFunc
}

// NewRegistry creates a registry holding the built-in default parser.
func NewRegistry() *Registry {
	r := &Registry{
		parsers: make(map[string]ParserFunc, 4),
	}

	r.parsers[DefaultType] = ParseDefault

	return r
}

// Register adds or replaces the parser for tag.
func (r *Registry) Register(tag string, parser ParserFunc) error {
	if !typePattern.MatchString(tag) {
		return fmt.Errorf("%w: %q (expected only [A-Za-z0-9_])", ErrInvalidType, tag)
	}

	if parser == nil {
		return fmt.Errorf("registering %q: parser is nil", tag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.parsers[tag] = parser

	return nil
}

// Types returns the registered tags in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.parsers))
	for tag := range r.parsers {
		types = append(types, tag)
	}

	sort.Strings(types)

	return types
}

// Parse validates the type tag of def and dispatches to its parser. The
// input map is not modified.
func (r *Registry) Parse(def map[string]any) (*benchmark.Job, error) {
	raw, ok := def[TypeKey]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrInvalidType, TypeKey)
	}

	tag, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %#v (expected string)", ErrInvalidType, raw)
	}

	if !typePattern.MatchString(tag) {
		return nil, fmt.Errorf("%w: %q (expected only [A-Za-z0-9_])", ErrInvalidType, tag)
	}

	r.mu.RLock()
	parser, ok := r.parsers[tag]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, tag)
	}

	rest := make(map[string]any, len(def))

	for k, v := range def {
		if k != TypeKey {
			rest[k] = v
		}
	}

	j, err := parser(rest)
	if err != nil {
		return nil, fmt.Errorf("parsing %s job: %w", tag, err)
	}

	return j, nil
}

// ParseAll parses every definition, failing on the first invalid one so
// nothing runs with a partial job list.
func (r *Registry) ParseAll(defs []map[string]any) ([]*benchmark.Job, error) {
	jobs := make([]*benchmark.Job, 0, len(defs))
	seen := make(map[string]struct{}, len(defs))

	for i, def := range defs {
		j, err := r.Parse(def)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i, err)
		}

		if _, exists := seen[j.Name]; exists {
			return nil, fmt.Errorf("job %d: duplicate name %q", i, j.Name)
		}

		seen[j.Name] = struct{}{}

		jobs = append(jobs, j)
	}

	return jobs, nil
}
