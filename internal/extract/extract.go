// Package extract defines the newsletter-extraction strategy registry.
package extract

import (
	"context"
	"fmt"
	"time"

	"NewsletterCurator/internal/domain"
)

// Request carries all parameters required to run one extraction.
type Request struct {
	Since      time.Time
	SourceName string
	Dir        string
	Options    map[string]string
}

// Extractor captures a single strategy implementation for one newsletter
// format.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, req Request) ([]domain.CandidateItem, error)
}

// Registry keeps a mapping from extractor names to their implementations.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: map[string]Extractor{}}
}

// Register adds or replaces an extractor implementation.
func (r *Registry) Register(extractor Extractor) {
	if r.extractors == nil {
		r.extractors = map[string]Extractor{}
	}
	r.extractors[extractor.Name()] = extractor
}

// Resolve returns an extractor by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Extractor, error) {
	if extractor, ok := r.extractors[name]; ok {
		return extractor, nil
	}
	return nil, fmt.Errorf("extractor %s is not registered", name)
}
