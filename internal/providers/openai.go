package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/haasonsaas/agentrun/internal/agent"
	"github.com/haasonsaas/agentrun/internal/retry"
)

const defaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"

// OpenAIProvider implements the OpenAI-shape adapter (SPEC_FULL.md §4.3),
// hand-rolled against net/http rather than github.com/sashabaranov/go-openai
// so that retry timing, Retry-After handling, and raw status/body surfacing
// are entirely under this package's control (see SPEC_FULL.md §10.4).
type OpenAIProvider struct {
	client HTTPClient
	apiKey string
	model  ModelConfig
	logger *slog.Logger
}

// HTTPClient is the subset of *http.Client the adapters need; tests inject
// a fake implementation to mock provider endpoints.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewOpenAIProvider builds an OpenAI-shape adapter. apiKey may be empty for
// local no-auth endpoints (spec.md §4.3 step 3). client defaults to
// http.DefaultClient when nil; logger defaults to slog.Default().
func NewOpenAIProvider(client HTTPClient, apiKey string, model ModelConfig, logger *slog.Logger) *OpenAIProvider {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIProvider{client: client, apiKey: apiKey, model: model, logger: logger}
}

func (p *OpenAIProvider) Name() string { return "openai" }

type openAIFunctionDef struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description,omitempty"`
	Parameters  agent.ToolParameterSchema  `json:"parameters"`
}

type openAITool struct {
	Type     string            `json:"type"`
	Function openAIFunctionDef `json:"function"`
}

type openAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openAIFunctionCall `json:"function"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    *string          `json:"content,omitempty"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
	Tools    []openAITool    `json:"tools,omitempty"`
}

type openAIChoice struct {
	Index        int           `json:"index"`
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openAIResponse struct {
	ID      string         `json:"id"`
	Choices []openAIChoice `json:"choices"`
}

func toOpenAIMessages(messages []agent.Message) []openAIMessage {
	out := make([]openAIMessage, 0, len(messages))
	for _, m := range messages {
		wire := openAIMessage{Role: string(m.Role), ToolCallID: m.ToolCallID}
		if m.Content != "" || len(m.ToolCalls) == 0 {
			content := m.Content
			wire.Content = &content
		}
		for _, tc := range m.ToolCalls {
			wire.ToolCalls = append(wire.ToolCalls, openAIToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: openAIFunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, wire)
	}
	return out
}

func toOpenAITools(tools []agent.ToolDefinition) []openAITool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openAITool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openAITool{
			Type: "function",
			Function: openAIFunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

func (p *OpenAIProvider) buildPayload(messages []agent.Message, tools []agent.ToolDefinition) (map[string]any, error) {
	req := openAIRequest{
		Model:    p.model.Name,
		Messages: toOpenAIMessages(messages),
		Tools:    toOpenAITools(tools),
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	// Model parameters (temperature, max_tokens, top_p, ...) are merged at
	// the top level for OpenAI-shape adapters (spec.md §4.3 step 2).
	for k, v := range p.model.Params {
		payload[k] = v
	}
	return payload, nil
}

func (p *OpenAIProvider) endpoint() string {
	if p.model.Endpoint != "" {
		return p.model.Endpoint
	}
	return defaultOpenAIEndpoint
}

func (p *OpenAIProvider) GetCompletion(ctx context.Context, messages []agent.Message, tools []agent.ToolDefinition) (agent.ApiResponse, error) {
	payload, err := p.buildPayload(messages, tools)
	if err != nil {
		return agent.ApiResponse{}, &agent.ApiError{Provider: p.Name(), Message: "failed to build request payload", Cause: err}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return agent.ApiResponse{}, &agent.ApiError{Provider: p.Name(), Message: "failed to marshal request", Cause: err}
	}

	var parsed openAIResponse
	err = doWithRetry(ctx, func(attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if p.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+p.apiKey)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			p.logger.Warn("openai request failed, will retry", "attempt", attempt, "error", err)
			return err // transport errors follow the retry schedule
		}
		defer resp.Body.Close()

		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return retry.Permanent(fmt.Errorf("failed to read response body: %w", readErr))
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if err := json.Unmarshal(respBody, &parsed); err != nil {
				return retry.Permanent(fmt.Errorf("failed to parse response: %w (body: %s)", err, truncate(respBody, 500)))
			}
			return nil
		}

		if isRetryableStatus(resp.StatusCode) {
			delay, hasAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			p.logger.Warn("openai returned retryable status", "attempt", attempt, "status", resp.StatusCode)
			return &retryableHTTPError{status: resp.StatusCode, retryAfter: delay, hasAfter: hasAfter, body: string(respBody)}
		}

		return retry.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody, 500)))
	})
	if err != nil {
		return agent.ApiResponse{}, &agent.ApiError{Provider: p.Name(), Message: err.Error(), Cause: err}
	}

	return toApiResponse(parsed), nil
}

func toApiResponse(resp openAIResponse) agent.ApiResponse {
	id := resp.ID
	if id == "" {
		id = "chatcmpl-" + uuid.NewString()
	}
	choices := make([]agent.Choice, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		msg := agent.Message{Role: agent.Role(c.Message.Role)}
		if c.Message.Content != nil {
			msg.Content = *c.Message.Content
		}
		msg.ToolCallID = c.Message.ToolCallID
		for _, tc := range c.Message.ToolCalls {
			id := tc.ID
			if id == "" {
				id = uuid.NewString()
			}
			msg.ToolCalls = append(msg.ToolCalls, agent.ToolCallRequest{
				ID:        id,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		choices = append(choices, agent.Choice{
			Message:      msg,
			FinishReason: agent.FinishReason(c.FinishReason),
		})
	}
	return agent.ApiResponse{ID: id, Choices: choices}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
