// Package registry holds the static table of known medical metrics:
// canonical names, aliases, standard units, clinical ranges and registered
// unit conversions. The registry is immutable after construction and safe
// for unlimited concurrent readers.
package registry

import (
	"strings"

	"github.com/labseries-server/internal/domain"
)

// Registry resolves metric names (canonical or alias, case-insensitive) to
// their parameter definitions.
type Registry struct {
	byName map[string]*domain.MetricParameter
	params []*domain.MetricParameter
}

// New builds a registry from a parameter table. Both canonical names and
// every alias are indexed case-insensitively.
func New(params []*domain.MetricParameter) *Registry {
	r := &Registry{
		byName: make(map[string]*domain.MetricParameter),
		params: params,
	}
	for _, p := range params {
		r.byName[normalizeKey(p.Name)] = p
		for _, alias := range p.Aliases {
			r.byName[normalizeKey(alias)] = p
		}
	}
	return r
}

// NewDefault builds a registry from the built-in parameter table.
func NewDefault() *Registry {
	return New(builtinParameters())
}

// Lookup resolves a metric name to its parameter. Unknown names return
// ok=false, never an error: callers treat unknown metrics as
// reportable-but-unprocessed rather than fatal.
func (r *Registry) Lookup(name string) (*domain.MetricParameter, bool) {
	p, ok := r.byName[normalizeKey(name)]
	return p, ok
}

// Canonical returns the canonical metric name for any registered name or
// alias, or the input unchanged when unknown.
func (r *Registry) Canonical(name string) string {
	if p, ok := r.Lookup(name); ok {
		return p.Name
	}
	return name
}

// Parameters returns all registered parameters.
func (r *Registry) Parameters() []*domain.MetricParameter {
	return r.params
}

func normalizeKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
