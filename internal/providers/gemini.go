package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/haasonsaas/agentrun/internal/agent"
	"github.com/haasonsaas/agentrun/internal/retry"
)

const defaultGeminiEndpointTemplate = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// generationConfigWhitelist is the closed set of model parameters that may
// be merged into a Gemini-shape request's generationConfig block
// (spec.md §4.3 step 2).
var generationConfigWhitelist = map[string]bool{
	"temperature":    true,
	"topP":           true,
	"topK":           true,
	"candidateCount": true,
	"maxOutputTokens": true,
	"stopSequences":  true,
}

// GeminiProvider implements the Gemini-shape adapter (SPEC_FULL.md §4.3),
// hand-rolled rather than built on google.golang.org/genai's request
// builder so the safety/blocking parsing and the generationConfig
// whitelist merge in spec.md §4.3 steps 2 and 7 are fully under this
// package's control (see SPEC_FULL.md §10.4).
type GeminiProvider struct {
	client HTTPClient
	apiKey string
	model  ModelConfig
	logger *slog.Logger
}

func NewGeminiProvider(client HTTPClient, apiKey string, model ModelConfig, logger *slog.Logger) *GeminiProvider {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiProvider{client: client, apiKey: apiKey, model: model, logger: logger}
}

func (p *GeminiProvider) Name() string { return "gemini" }

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type geminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiFunctionDeclaration struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description,omitempty"`
	Parameters  agent.ToolParameterSchema `json:"parameters"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDeclaration `json:"functionDeclarations"`
}

type geminiSafetyRating struct {
	Category string `json:"category"`
	Severity string `json:"severity"`
	Blocked  bool   `json:"blocked,omitempty"`
}

type geminiPromptFeedback struct {
	BlockReason    string               `json:"blockReason,omitempty"`
	SafetyRatings  []geminiSafetyRating `json:"safetyRatings,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Tools             []geminiTool           `json:"tools,omitempty"`
	GenerationConfig  map[string]any         `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate      `json:"candidates,omitempty"`
	PromptFeedback *geminiPromptFeedback  `json:"promptFeedback,omitempty"`
}

func toGeminiRole(r agent.Role) string {
	switch r {
	case agent.RoleAssistant:
		return "model"
	case agent.RoleTool:
		return "function"
	default:
		return "user"
	}
}

func (p *GeminiProvider) buildRequest(messages []agent.Message, tools []agent.ToolDefinition) (geminiRequest, error) {
	var req geminiRequest

	// toolNameByCallID lets a subsequent RoleTool message recover the
	// function name that a functionResponse part requires (spec.md §4.3
	// step 2: tool results are transcribed as functionResponse, which is
	// keyed by name, not by id).
	toolNameByCallID := map[string]string{}

	for _, m := range messages {
		switch m.Role {
		case agent.RoleSystem:
			req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
			continue
		case agent.RoleAssistant:
			for _, tc := range m.ToolCalls {
				toolNameByCallID[tc.ID] = tc.Name
			}
		}

		content := geminiContent{Role: toGeminiRole(m.Role)}
		if m.Role == agent.RoleTool {
			name := toolNameByCallID[m.ToolCallID]
			content.Parts = append(content.Parts, geminiPart{
				FunctionResponse: &geminiFunctionResponse{
					Name:     name,
					Response: map[string]any{"content": m.Content},
				},
			})
		} else {
			if m.Content != "" {
				content.Parts = append(content.Parts, geminiPart{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				if tc.Arguments != "" {
					if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
						args = map[string]any{}
					}
				}
				content.Parts = append(content.Parts, geminiPart{
					FunctionCall: &geminiFunctionCall{Name: tc.Name, Args: args},
				})
			}
		}
		req.Contents = append(req.Contents, content)
	}

	if len(tools) > 0 {
		decls := make([]geminiFunctionDeclaration, 0, len(tools))
		for _, t := range tools {
			decls = append(decls, geminiFunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			})
		}
		req.Tools = []geminiTool{{FunctionDeclarations: decls}}
	}

	if len(p.model.Params) > 0 {
		cfg := map[string]any{}
		for k, v := range p.model.Params {
			if generationConfigWhitelist[k] {
				cfg[k] = v
			}
		}
		if len(cfg) > 0 {
			req.GenerationConfig = cfg
		}
	}

	return req, nil
}

func (p *GeminiProvider) endpoint() string {
	if p.model.Endpoint != "" {
		return p.model.Endpoint
	}
	return fmt.Sprintf(defaultGeminiEndpointTemplate, p.model.Name)
}

func (p *GeminiProvider) GetCompletion(ctx context.Context, messages []agent.Message, tools []agent.ToolDefinition) (agent.ApiResponse, error) {
	payload, err := p.buildRequest(messages, tools)
	if err != nil {
		return agent.ApiResponse{}, &agent.ApiError{Provider: p.Name(), Message: "failed to build request payload", Cause: err}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return agent.ApiResponse{}, &agent.ApiError{Provider: p.Name(), Message: "failed to marshal request", Cause: err}
	}

	url := p.endpoint()
	if p.apiKey != "" {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url = url + sep + "key=" + p.apiKey
	}

	var parsed geminiResponse
	err = doWithRetry(ctx, func(attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			p.logger.Warn("gemini request failed, will retry", "attempt", attempt, "error", err)
			return err
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
			p.logger.Warn("gemini returned retryable status", "attempt", attempt, "status", resp.StatusCode)
			return &retryableHTTPError{status: resp.StatusCode, retryAfter: delay, hasAfter: hasAfter, body: string(respBody)}
		}

		return retry.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, truncate(respBody, 500)))
	})
	if err != nil {
		return agent.ApiResponse{}, &agent.ApiError{Provider: p.Name(), Message: err.Error(), Cause: err}
	}

	return p.toApiResponse(parsed)
}

// toApiResponse implements spec.md §4.3 steps 6-7: normal transcription
// plus the safety/blocking fallback path.
func (p *GeminiProvider) toApiResponse(resp geminiResponse) (agent.ApiResponse, error) {
	if len(resp.Candidates) == 0 || !isAcceptedFinish(resp.Candidates[0].FinishReason) {
		if resp.PromptFeedback != nil {
			if resp.PromptFeedback.BlockReason != "" {
				return agent.ApiResponse{}, &agent.ApiError{
					Provider: p.Name(),
					Message:  fmt.Sprintf("blocked: %s", resp.PromptFeedback.BlockReason),
				}
			}
			var severe []string
			for _, r := range resp.PromptFeedback.SafetyRatings {
				if strings.HasPrefix(r.Severity, "HIGH") {
					severe = append(severe, fmt.Sprintf("%s:%s", r.Category, r.Severity))
				}
			}
			if len(severe) > 0 {
				return agent.ApiResponse{}, &agent.ApiError{
					Provider: p.Name(),
					Message:  fmt.Sprintf("blocked by safety ratings: %s", strings.Join(severe, ", ")),
				}
			}
		}
		if len(resp.Candidates) == 0 {
			return agent.ApiResponse{}, &agent.ApiError{Provider: p.Name(), Message: "no candidates in response and no prompt feedback signal"}
		}
		// Candidates present but finish reason unaccepted, and neither a
		// blockReason nor a HIGH safety rating explains why: spec.md §4.3
		// step 7 requires a generic parse error over transcribing it.
		raw, _ := json.Marshal(resp)
		return agent.ApiResponse{}, &agent.ApiError{
			Provider: p.Name(),
			Message:  fmt.Sprintf("unrecognized finish reason %q with no blocking signal, raw response: %s", resp.Candidates[0].FinishReason, raw),
		}
	}

	candidate := resp.Candidates[0]
	msg := agent.Message{Role: agent.RoleAssistant}
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			msg.Content += part.Text
		}
		if part.FunctionCall != nil {
			argsJSON, _ := json.Marshal(part.FunctionCall.Args)
			msg.ToolCalls = append(msg.ToolCalls, agent.ToolCallRequest{
				ID:        uuid.NewString(),
				Name:      part.FunctionCall.Name,
				Arguments: string(argsJSON),
			})
		}
	}

	return agent.ApiResponse{
		ID: uuid.NewString(),
		Choices: []agent.Choice{{
			Message:      msg,
			FinishReason: mapGeminiFinishReason(candidate.FinishReason, len(msg.ToolCalls) > 0),
		}},
	}, nil
}

func isAcceptedFinish(reason string) bool {
	switch reason {
	case "STOP", "MAX_TOKENS", "TOOL_CALLS", "":
		return true
	default:
		return false
	}
}

func mapGeminiFinishReason(reason string, hasToolCalls bool) agent.FinishReason {
	switch reason {
	case "MAX_TOKENS":
		return agent.FinishMaxTokens
	case "TOOL_CALLS":
		return agent.FinishToolCalls
	default:
		if hasToolCalls {
			return agent.FinishToolCalls
		}
		return agent.FinishStop
	}
}
