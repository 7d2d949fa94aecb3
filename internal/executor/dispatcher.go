package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/haasonsaas/agentrun/internal/agent"
)

// Dispatcher implements agent.ToolDispatcher over a Manager's executor
// connections: it aggregates the tool catalog on every call_model
// iteration and routes/normalizes tool calls on every call_tools
// iteration (spec.md §4.4).
//
// Routing is declarative and rebuilt at every catalog fetch (SPEC_FULL.md
// §10.7): rather than a hard-coded tool-name-to-executor switch, each
// executor connection contributes the tool names its own tools/list
// catalog advertises, and the dispatcher's routing table is the union of
// those contributions. A name collision between two executors is logged
// and resolved first-registered-wins, where "first" follows the Manager's
// configured executor order.
type Dispatcher struct {
	manager *Manager
	logger  *slog.Logger

	mu      sync.Mutex
	routing map[string]*Connection
}

func NewDispatcher(manager *Manager, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{manager: manager, logger: logger, routing: make(map[string]*Connection)}
}

// Catalog queries every executor connection for its advertised tools,
// merges them into a single list, and rebuilds the routing table used by
// the next Dispatch call. It is rebuilt on every call so that an executor
// restart (or first connection) is always reflected (spec.md §4.4, §5
// "Tool catalogs are rebuilt before each provider call").
func (d *Dispatcher) Catalog(ctx context.Context) ([]agent.ToolDefinition, error) {
	routing := make(map[string]*Connection)
	var all []agent.ToolDefinition
	for _, conn := range d.manager.Connections() {
		defs, err := conn.ListTools()
		if err != nil {
			return nil, fmt.Errorf("catalog: executor %q: %w", conn.ID(), err)
		}
		for _, def := range defs {
			if existing, ok := routing[def.Name]; ok {
				d.logger.Warn("tool name advertised by multiple executors, keeping first", "tool", def.Name, "kept", existing.ID(), "ignored", conn.ID())
				continue
			}
			routing[def.Name] = conn
		}
		all = append(all, defs...)
	}

	d.mu.Lock()
	d.routing = routing
	d.mu.Unlock()
	return all, nil
}

// Dispatch executes every pending tool call in issue order, per spec.md
// §4.4 steps 1-5. An individual call's failure never aborts the batch —
// it is folded into a failure-status ToolResult instead.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []agent.ToolCallRequest) ([]agent.ToolResult, error) {
	results := make([]agent.ToolResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, d.dispatchOne(call))
	}
	return results, nil
}

func (d *Dispatcher) dispatchOne(call agent.ToolCallRequest) agent.ToolResult {
	d.mu.Lock()
	conn, ok := d.routing[call.Name]
	d.mu.Unlock()
	if !ok {
		return agent.ToolResult{
			ToolCallID: call.ID,
			Output:     fmt.Sprintf("Error: Unknown tool name '%s'", call.Name),
			Status:     agent.ToolStatusFailure,
		}
	}

	var args json.RawMessage
	if call.Arguments != "" {
		var probe any
		if err := json.Unmarshal([]byte(call.Arguments), &probe); err != nil {
			d.logger.Warn("malformed tool call arguments, passing null", "tool", call.Name, "error", err)
			args = json.RawMessage("null")
		} else {
			args = json.RawMessage(call.Arguments)
		}
	} else {
		args = json.RawMessage("null")
	}

	text, isError, err := conn.CallTool(call.Name, args)
	if err != nil {
		return agent.ToolResult{
			ToolCallID: call.ID,
			Output:     fmt.Sprintf("Error: %s", err),
			Status:     agent.ToolStatusFailure,
		}
	}

	status := agent.ToolStatusSuccess
	if isError {
		status = agent.ToolStatusFailure
	}
	return agent.ToolResult{ToolCallID: call.ID, Output: normalizeOutput(text), Status: status}
}

// normalizeOutput implements spec.md §4.4 step 4's reply normalization.
// The executor protocol in this repo already reduces content to the
// first text item (Connection.CallTool), so the only remaining cases are
// a plain string, empty, or a JSON-shaped string needing re-interpretation
// as a structured value (e.g. when an executor embeds a JSON array/object/
// null as text rather than emitting a `text` field directly).
func normalizeOutput(text string) string {
	if text == "" {
		return "<no output>"
	}

	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return text
	}

	switch v := value.(type) {
	case string:
		return v
	case map[string]any:
		if s, ok := v["text"].(string); ok {
			return s
		}
	case []any:
		if len(v) == 0 {
			return "<empty result>"
		}
	case nil:
		return "<no output>"
	}

	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return text
	}
	return string(pretty)
}

var _ agent.ToolDispatcher = (*Dispatcher)(nil)
