// Package analysis turns a market Context into a scored Signal. Every data
// domain runs the same five stages (validate, enrich, prompt, execute,
// format); a domain only supplies enrichment and prompt construction.
package analysis

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// Domain is a data-domain plugin. Enrich may perform I/O; BuildPrompt must
// be pure and deterministic.
type Domain interface {
	Name() string
	Enrich(ctx context.Context, c domain.Context) (any, error)
	BuildPrompt(ec domain.EnrichedContext) string
}

// ContextValidator is implemented by domains with extra required fields.
// It runs after the shared identity checks and before any I/O.
type ContextValidator interface {
	ValidateContext(c domain.Context) error
}

// CacheKeyer is implemented by domains that know which payload facts affect
// the provider's answer. Without it the whole payload is used.
type CacheKeyer interface {
	CacheFacts(ec domain.EnrichedContext) (place string, facts any)
}

// Registry maps domain names to their pipelines. It is safe for concurrent
// use.
type Registry struct {
	pipelines map[string]*Pipeline
	mu        sync.RWMutex
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{pipelines: make(map[string]*Pipeline)}
}

// Register adds p under its domain name, replacing any previous pipeline.
func (r *Registry) Register(p *Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipelines[p.Domain()] = p
}

// Get returns the pipeline for name.
func (r *Registry) Get(name string) (*Pipeline, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pipelines[name]
	if !ok {
		return nil, fmt.Errorf("analysis: domain %q: %w", name, domain.ErrNotFound)
	}
	return p, nil
}

// Names returns the registered domain names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.pipelines))
	for n := range r.pipelines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
