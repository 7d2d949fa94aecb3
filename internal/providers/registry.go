package providers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/haasonsaas/agentrun/internal/agent"
)

// Shape selects which wire adapter a provider configuration uses
// (spec.md §3: providers declare a shape, not a fixed vendor list).
type Shape string

const (
	ShapeOpenAI Shape = "openai"
	ShapeGemini Shape = "gemini"
	ShapeLocal  Shape = "local"
)

// Spec is the resolved configuration for one provider entry, matching the
// providers[] block in SPEC_FULL.md §10.2's config schema.
type Spec struct {
	ID     string
	Shape  Shape
	APIKey string
	Model  ModelConfig
}

// Registry builds and caches Provider instances by id so the same adapter
// is reused across iterations of an AgentLoop rather than reconstructed
// per call.
type Registry struct {
	client    HTTPClient
	logger    *slog.Logger
	specs     map[string]Spec
	order     []string
	instances map[string]Provider
}

func NewRegistry(client HTTPClient, logger *slog.Logger, specs []Spec) *Registry {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	byID := make(map[string]Spec, len(specs))
	order := make([]string, 0, len(specs))
	for _, s := range specs {
		byID[s.ID] = s
		order = append(order, s.ID)
	}
	return &Registry{client: client, logger: logger, specs: byID, order: order, instances: make(map[string]Provider)}
}

// Get returns the Provider for id, constructing and caching it on first
// use. Returns a *agent.ConfigError if id is not a known provider or
// declares an unrecognized shape.
func (r *Registry) Get(id string) (Provider, error) {
	if p, ok := r.instances[id]; ok {
		return p, nil
	}
	spec, ok := r.specs[id]
	if !ok {
		return nil, &agent.ConfigError{Field: "providers", Message: fmt.Sprintf("unknown provider %q", id)}
	}

	var p Provider
	switch spec.Shape {
	case ShapeOpenAI:
		p = NewOpenAIProvider(r.client, spec.APIKey, spec.Model, r.logger)
	case ShapeGemini:
		p = NewGeminiProvider(r.client, spec.APIKey, spec.Model, r.logger)
	case ShapeLocal:
		p = NewLocalProvider(r.client, spec.Model, r.logger)
	default:
		return nil, &agent.ConfigError{Field: "providers", Message: fmt.Sprintf("provider %q: unrecognized shape %q", id, spec.Shape)}
	}

	r.instances[id] = p
	return p, nil
}

// IDs returns the configured provider ids in the order they were supplied.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
