package executor

import (
	"context"
	"testing"
	"time"

	"github.com/haasonsaas/agentrun/internal/agent"
)

func TestDispatcher_CatalogAggregatesAcrossExecutors(t *testing.T) {
	command, args := fakeExecutorScript()
	manager := NewManager([]Config{
		{ID: "fs", Command: command, Args: args, Timeout: 2 * time.Second},
	}, nil)
	defer manager.Close()

	d := NewDispatcher(manager, nil)
	catalog, err := d.Catalog(context.Background())
	if err != nil {
		t.Fatalf("Catalog: %v", err)
	}
	if len(catalog) != 1 || catalog[0].Name != "read_file" {
		t.Fatalf("unexpected catalog: %+v", catalog)
	}
}

func TestDispatcher_UnknownToolDoesNotAbortBatch(t *testing.T) {
	command, args := fakeExecutorScript()
	manager := NewManager([]Config{
		{ID: "fs", Command: command, Args: args, Timeout: 2 * time.Second},
	}, nil)
	defer manager.Close()

	d := NewDispatcher(manager, nil)
	if _, err := d.Catalog(context.Background()); err != nil {
		t.Fatalf("Catalog: %v", err)
	}

	calls := []agent.ToolCallRequest{
		{ID: "c1", Name: "telepathy", Arguments: "{}"},
		{ID: "c2", Name: "read_file", Arguments: `{"path":"a.txt"}`},
	}
	results, err := d.Dispatch(context.Background(), calls)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != agent.ToolStatusFailure || results[0].Output != `Error: Unknown tool name 'telepathy'` {
		t.Fatalf("unexpected unknown-tool result: %+v", results[0])
	}
	if results[1].Status != agent.ToolStatusSuccess || results[1].Output != "file contents" {
		t.Fatalf("unexpected read_file result: %+v", results[1])
	}
}

func TestDispatcher_MalformedArgumentsBecomeNull(t *testing.T) {
	command, args := fakeExecutorScript()
	manager := NewManager([]Config{
		{ID: "fs", Command: command, Args: args, Timeout: 2 * time.Second},
	}, nil)
	defer manager.Close()

	d := NewDispatcher(manager, nil)
	if _, err := d.Catalog(context.Background()); err != nil {
		t.Fatalf("Catalog: %v", err)
	}

	results, err := d.Dispatch(context.Background(), []agent.ToolCallRequest{
		{ID: "c1", Name: "read_file", Arguments: "not json"},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if results[0].Status != agent.ToolStatusSuccess {
		t.Fatalf("expected the fake executor to still respond successfully, got %+v", results[0])
	}
}

func TestDispatcher_UnresolvedToolBeforeCatalogFetched(t *testing.T) {
	manager := NewManager(nil, nil)
	d := NewDispatcher(manager, nil)
	results, err := d.Dispatch(context.Background(), []agent.ToolCallRequest{
		{ID: "c1", Name: "read_file", Arguments: "{}"},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if results[0].Status != agent.ToolStatusFailure {
		t.Fatalf("expected failure before any catalog fetch, got %+v", results[0])
	}
}

func TestNormalizeOutput(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "hello", "hello"},
		{"empty becomes no output", "", "<no output>"},
		{"json null becomes no output", "null", "<no output>"},
		{"json empty array becomes empty result", "[]", "<empty result>"},
		{"json object with text field unwraps", `{"text":"inner"}`, "inner"},
		{"json string unwraps", `"quoted"`, "quoted"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizeOutput(tc.in); got != tc.want {
				t.Fatalf("normalizeOutput(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
