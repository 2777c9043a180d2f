package parser

import (
	"context"
	"time"

	"github.com/taskping/taskping/internal/models"
)

// Provider turns natural-language input into a structured task draft.
type Provider interface {
	ParseTask(ctx context.Context, input string, now time.Time) (*models.ParsedTask, error)
}

// ProviderFactory creates a parser provider from configuration
type ProviderFactory func(config map[string]string) (Provider, error)

// ProviderRegistry stores available parser providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (Provider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "parser provider not found: " + e.Name
}
