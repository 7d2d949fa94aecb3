package providers

import (
	"log/slog"
	"net/http"

	"github.com/haasonsaas/agentrun/internal/agent"
)

const defaultLocalEndpoint = "http://localhost:11434/v1/chat/completions"

// LocalProvider adapts a local, no-auth, OpenAI-shape endpoint (e.g.
// Ollama's OpenAI-compatible API, llama.cpp's server). spec.md §4.3 step 3
// notes local endpoints speak the same wire format as OpenAI-shape but
// never send an Authorization header; LocalProvider is a thin wrapper
// around OpenAIProvider with apiKey forced empty, existing only to supply
// the local default endpoint and report a distinct Name for logging and
// config wiring.
type LocalProvider struct {
	*OpenAIProvider
}

func NewLocalProvider(client HTTPClient, model ModelConfig, logger *slog.Logger) *LocalProvider {
	if model.Endpoint == "" {
		model.Endpoint = defaultLocalEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &LocalProvider{OpenAIProvider: NewOpenAIProvider(client, "", model, logger)}
}

func (p *LocalProvider) Name() string { return "local" }

var (
	_ Provider          = (*LocalProvider)(nil)
	_ agent.ModelClient = (*LocalProvider)(nil)
)
