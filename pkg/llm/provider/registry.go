package provider

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrDefaultProviderMissing means the configured default model has no provider.
	ErrDefaultProviderMissing = errors.New("default model is not registered")

	// ErrDuplicateModel is returned when a model id is registered twice.
	ErrDuplicateModel = errors.New("model already registered")
)

// Registry maps model identifiers to providers.
type Registry struct {
	mu           sync.RWMutex
	defaultModel string
	providers    map[string]Provider
}

// NewRegistry builds a registry from providers. It fails with
// ErrDefaultProviderMissing when defaultModel is not among them.
func NewRegistry(defaultModel string, providers map[string]Provider) (*Registry, error) {
	r := &Registry{
		defaultModel: strings.TrimSpace(defaultModel),
		providers:    make(map[string]Provider, len(providers)),
	}

	for id, p := range providers {
		if err := r.Register(id, p); err != nil {
			return nil, err
		}
	}

	if _, ok := r.providers[r.defaultModel]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrDefaultProviderMissing, defaultModel)
	}

	return r, nil
}

// Register adds a provider under modelID.
func (r *Registry) Register(modelID string, p Provider) error {
	modelID = strings.TrimSpace(modelID)
	if modelID == "" {
		return errors.New("model id must not be empty")
	}
	if p == nil {
		return fmt.Errorf("provider for %q must not be nil", modelID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[modelID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateModel, modelID)
	}
	r.providers[modelID] = p

	return nil
}

// Resolve returns the provider registered for modelID, or the default
// provider when modelID is empty or unknown.
func (r *Registry) Resolve(modelID string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.providers[strings.TrimSpace(modelID)]; ok {
		return p
	}
	return r.providers[r.defaultModel]
}

// Default returns the default model id.
func (r *Registry) Default() string {
	return r.defaultModel
}

// Models returns the registered model ids in sorted order.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]string, 0, len(r.providers))
	for id := range r.providers {
		models = append(models, id)
	}
	sort.Strings(models)

	return models
}
