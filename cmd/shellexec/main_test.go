package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/haasonsaas/agentrun/internal/executor"
)

func TestHandle_Initialize(t *testing.T) {
	resp := handle(executor.Request{JSONRPC: "2.0", ID: 1, Method: "initialize"})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	var res executor.InitializeResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if res.ServerInfo.Name != "shellexec" {
		t.Fatalf("expected server name shellexec, got %q", res.ServerInfo.Name)
	}
}

func TestHandle_ListTools(t *testing.T) {
	resp := handle(executor.Request{JSONRPC: "2.0", ID: 2, Method: "tools/list"})
	var res executor.ListToolsResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(res.Tools) != 1 || res.Tools[0].Name != "shell" {
		t.Fatalf("expected a single 'shell' tool, got %+v", res.Tools)
	}
}

func TestHandle_CallTool_SuccessfulCommand(t *testing.T) {
	params, _ := json.Marshal(executor.CallToolParams{
		Name:      "shell",
		Arguments: json.RawMessage(`{"command":"echo hi"}`),
	})
	resp := handle(executor.Request{JSONRPC: "2.0", ID: 3, Method: "tools/call", Params: params})
	var res executor.CallToolResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if res.IsError {
		t.Fatalf("expected success, got error result: %+v", res)
	}
	if len(res.Content) != 1 || !strings.Contains(res.Content[0].Text, "hi") {
		t.Fatalf("expected stdout to contain 'hi', got %+v", res.Content)
	}
	if !strings.Contains(res.Content[0].Text, "Exit Code: 0") {
		t.Fatalf("expected exit code 0, got %+v", res.Content)
	}
}

func TestHandle_CallTool_FailingCommand(t *testing.T) {
	params, _ := json.Marshal(executor.CallToolParams{
		Name:      "shell",
		Arguments: json.RawMessage(`{"command":"exit 7"}`),
	})
	resp := handle(executor.Request{JSONRPC: "2.0", ID: 4, Method: "tools/call", Params: params})
	var res executor.CallToolResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected an error result for a nonzero exit code")
	}
	if !strings.Contains(res.Content[0].Text, "Exit Code: 7") {
		t.Fatalf("expected exit code 7, got %+v", res.Content)
	}
}

func TestHandle_CallTool_MissingCommand(t *testing.T) {
	params, _ := json.Marshal(executor.CallToolParams{
		Name:      "shell",
		Arguments: json.RawMessage(`{}`),
	})
	resp := handle(executor.Request{JSONRPC: "2.0", ID: 5, Method: "tools/call", Params: params})
	var res executor.CallToolResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected an error result for a missing command argument")
	}
}

func TestHandle_UnknownMethod(t *testing.T) {
	resp := handle(executor.Request{JSONRPC: "2.0", ID: 6, Method: "bogus"})
	if resp.Error == nil {
		t.Fatal("expected an error for an unknown method")
	}
}
