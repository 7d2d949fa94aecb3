package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haasonsaas/agentrun/internal/agent"
)

// TestOpenAI_PlainAnswer covers spec.md §8 scenario 1 end to end against a
// real HTTP round trip (httptest), not just the fake model double used in
// the agent package's tests.
func TestOpenAI_PlainAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["model"] != "gpt-test" {
			t.Fatalf("expected model gpt-test, got %v", body["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":"hi there"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(server.Client(), "sk-test", ModelConfig{Name: "gpt-test", Endpoint: server.URL}, nil)
	resp, err := p.GetCompletion(context.Background(), []agent.Message{
		{Role: agent.RoleSystem, Content: "sys"},
		{Role: agent.RoleUser, Content: "hello"},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != "hi there" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Choices[0].FinishReason != agent.FinishStop {
		t.Fatalf("expected stop finish reason, got %s", resp.Choices[0].FinishReason)
	}
}

// TestOpenAI_RetryThenSucceed covers spec.md §8 scenario 5: a 429 with
// Retry-After followed by a success is retried transparently.
func TestOpenAI_RetryThenSucceed(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limited"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-2","choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(server.Client(), "sk-test", ModelConfig{Name: "gpt-test", Endpoint: server.URL}, nil)
	resp, err := p.GetCompletion(context.Background(), []agent.Message{{Role: agent.RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	if resp.Choices[0].Message.Content != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

// TestOpenAI_PermanentErrorNoRetry ensures a non-retryable status (e.g.
// 400) fails immediately without consuming the retry schedule.
func TestOpenAI_PermanentErrorNoRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad request"}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(server.Client(), "sk-test", ModelConfig{Name: "gpt-test", Endpoint: server.URL}, nil)
	_, err := p.GetCompletion(context.Background(), []agent.Message{{Role: agent.RoleUser, Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt for a permanent error, got %d", attempts)
	}
	var apiErr *agent.ApiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *agent.ApiError, got %T: %v", err, err)
	}
}

// TestOpenAI_ToolCallRoundTrip verifies tool call requests and the
// subsequent tool result message are transcribed to and from the wire
// format without losing the call id linkage.
func TestOpenAI_ToolCallRoundTrip(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","tool_calls":[{"id":"call-1","type":"function","function":{"name":"read_file","arguments":"{\"path\":\"a.txt\"}"}}]},"finish_reason":"tool_calls"}]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(server.Client(), "", ModelConfig{Name: "gpt-test", Endpoint: server.URL}, nil)
	messages := []agent.Message{
		{Role: agent.RoleUser, Content: "read a.txt"},
		{Role: agent.RoleAssistant, ToolCalls: []agent.ToolCallRequest{{ID: "call-1", Name: "read_file", Arguments: `{"path":"a.txt"}`}}},
		{Role: agent.RoleTool, ToolCallID: "call-1", Content: "file contents"},
	}
	tools := []agent.ToolDefinition{{Name: "read_file", Description: "reads a file", Parameters: agent.ToolParameterSchema{Type: "object"}}}

	resp, err := p.GetCompletion(context.Background(), messages, tools)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Choices[0].Message.ToolCalls) != 1 || resp.Choices[0].Message.ToolCalls[0].ID != "call-1" {
		t.Fatalf("unexpected tool calls: %+v", resp.Choices[0].Message.ToolCalls)
	}

	reqMessages, ok := captured["messages"].([]any)
	if !ok || len(reqMessages) != 3 {
		t.Fatalf("expected 3 request messages, got %v", captured["messages"])
	}
	toolMsg := reqMessages[2].(map[string]any)
	if toolMsg["tool_call_id"] != "call-1" {
		t.Fatalf("expected tool_call_id call-1, got %v", toolMsg["tool_call_id"])
	}
	reqTools, ok := captured["tools"].([]any)
	if !ok || len(reqTools) != 1 {
		t.Fatalf("expected 1 tool in request, got %v", captured["tools"])
	}
}

