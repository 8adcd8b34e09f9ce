// Package provider maps configured provider ids onto model
// implementations. Unknown vendors and ids are configuration errors and
// fail fast; they are never retried or silently defaulted.
package provider

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	openaisdk "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"

	"github.com/coterie-ai/coterie/model"
	"github.com/coterie-ai/coterie/model/anthropic"
	"github.com/coterie-ai/coterie/model/openai"
)

// Config describes one selectable provider.
type Config struct {
	ID      string `json:"id" yaml:"id"`
	Vendor  string `json:"vendor" yaml:"vendor"`
	Model   string `json:"model" yaml:"model"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// Factory builds a model from a provider config.
type Factory func(cfg Config) (model.Model, error)

// Registry holds provider configs and vendor factories. Models are built
// once per provider id and cached.
type Registry struct {
	mu        sync.RWMutex
	configs   map[string]Config
	factories map[string]Factory
	cache     map[string]model.Model
}

// NewRegistry creates a registry with the builtin vendor factories
// (openai, anthropic, mock) registered.
func NewRegistry() *Registry {
	r := &Registry{
		configs:   map[string]Config{},
		factories: map[string]Factory{},
		cache:     map[string]model.Model{},
	}
	r.RegisterFactory("openai", openAIFactory)
	r.RegisterFactory("anthropic", anthropicFactory)
	r.RegisterFactory("mock", func(cfg Config) (model.Model, error) {
		return model.NewMockModel(cfg.Model), nil
	})
	return r
}

// RegisterFactory installs or replaces the factory for a vendor.
func (r *Registry) RegisterFactory(vendor string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(vendor)] = f
}

// Register adds a provider config. The vendor must have a factory.
func (r *Registry) Register(cfg Config) error {
	if cfg.ID == "" {
		return fmt.Errorf("provider id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[strings.ToLower(cfg.Vendor)]; !ok {
		return fmt.Errorf("unknown provider vendor: %s", cfg.Vendor)
	}
	r.configs[cfg.ID] = cfg
	delete(r.cache, cfg.ID)
	return nil
}

// Unregister removes a provider config.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.configs, id)
	delete(r.cache, id)
}

// Get returns the config for a provider id.
func (r *Registry) Get(id string) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[id]
	if !ok {
		return Config{}, fmt.Errorf("provider not found: %s", id)
	}
	return cfg, nil
}

// List returns all configs ordered by id.
func (r *Registry) List() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Config, 0, len(r.configs))
	for _, cfg := range r.configs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resolve returns the model for a provider id, building it on first use.
func (r *Registry) Resolve(providerID string) (model.Model, error) {
	r.mu.RLock()
	if m, ok := r.cache[providerID]; ok {
		r.mu.RUnlock()
		return m, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.cache[providerID]; ok {
		return m, nil
	}
	cfg, ok := r.configs[providerID]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", providerID)
	}
	factory, ok := r.factories[strings.ToLower(cfg.Vendor)]
	if !ok {
		return nil, fmt.Errorf("unknown provider vendor: %s", cfg.Vendor)
	}
	m, err := factory(cfg)
	if err != nil {
		return nil, err
	}
	r.cache[providerID] = m
	return m, nil
}

func openAIFactory(cfg Config) (model.Model, error) {
	var clientOpts []openaiopt.RequestOption
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(cfg.BaseURL))
	}
	client := openaisdk.NewClient(clientOpts...)
	return openai.NewModelFromClient(&client, func(o *openai.Options) {
		if cfg.Model != "" {
			o.Model = cfg.Model
		}
	}), nil
}

func anthropicFactory(cfg Config) (model.Model, error) {
	var clientOpts []anthropicopt.RequestOption
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, anthropicopt.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, anthropicopt.WithBaseURL(cfg.BaseURL))
	}
	client := anthropicsdk.NewClient(clientOpts...)
	return anthropic.NewModelFromClient(&client, func(o *anthropic.Options) {
		if cfg.Model != "" {
			o.Model = anthropicsdk.Model(cfg.Model)
		}
	}), nil
}
