package processor

import "github.com/cwygoda/recipequeue/internal/domain"

// Registry holds the extractor registered for each job kind.
type Registry struct {
	extractors map[domain.Kind]domain.Extractor
}

// NewRegistry creates a new extractor registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[domain.Kind]domain.Extractor)}
}

// Register sets the extractor for a kind, replacing any previous one.
func (r *Registry) Register(kind domain.Kind, e domain.Extractor) {
	r.extractors[kind] = e
}

// Lookup returns the extractor for kind, or nil.
func (r *Registry) Lookup(kind domain.Kind) domain.Extractor {
	return r.extractors[kind]
}
