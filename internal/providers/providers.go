// Package providers implements the provider adapters described in
// SPEC_FULL.md §4.3: translating the common Message/ToolDefinition schema
// into a backend's wire format, performing the HTTP round trip with retry,
// and parsing the reply back into the common ApiResponse schema.
package providers

import (
	"context"

	"github.com/haasonsaas/agentrun/internal/agent"
)

// ModelConfig is the per-provider model configuration (spec.md §3).
type ModelConfig struct {
	Name     string
	Endpoint string
	Params   map[string]any
}

// Provider is the adapter interface every backend implements, matching
// internal/agent.ModelClient so any Provider can drive an AgentLoop
// directly.
type Provider interface {
	GetCompletion(ctx context.Context, messages []agent.Message, tools []agent.ToolDefinition) (agent.ApiResponse, error)
	Name() string
}
