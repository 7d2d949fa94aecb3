package providers

import (
	"errors"
	"testing"

	"github.com/haasonsaas/agentrun/internal/agent"
)

func TestRegistry_GetCachesInstance(t *testing.T) {
	r := NewRegistry(nil, nil, []Spec{
		{ID: "openai-main", Shape: ShapeOpenAI, APIKey: "sk-test", Model: ModelConfig{Name: "gpt-test"}},
	})
	p1, err := r.Get("openai-main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p2, err := r.Get("openai-main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p1 != p2 {
		t.Fatal("expected Get to return the cached instance on repeated calls")
	}
	if p1.Name() != "openai" {
		t.Fatalf("expected openai-shape provider, got %s", p1.Name())
	}
}

func TestRegistry_UnknownProvider(t *testing.T) {
	r := NewRegistry(nil, nil, nil)
	_, err := r.Get("missing")
	var cfgErr *agent.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *agent.ConfigError, got %T: %v", err, err)
	}
}

func TestRegistry_IDsPreservesOrder(t *testing.T) {
	r := NewRegistry(nil, nil, []Spec{
		{ID: "b", Shape: ShapeOpenAI},
		{ID: "a", Shape: ShapeOpenAI},
	})
	ids := r.IDs()
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "a" {
		t.Fatalf("expected order [b a], got %v", ids)
	}
}
