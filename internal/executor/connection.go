package executor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/haasonsaas/agentrun/internal/agent"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const protocolVersion = "2024-11-05"

// Config is the launch configuration for one executor subprocess
// (spec.md §3 "Agent config": "map of executor identifier → {launch
// command, arguments}").
type Config struct {
	ID      string
	Command string
	Args    []string
	Env     map[string]string
	WorkDir string
	Timeout time.Duration
}

// Connection owns one executor subprocess. It is constructed without
// spawning (spec.md §4.5 "Construct: store launch command and arguments;
// do NOT spawn") and lazily connects on first use. mu serializes the
// spawn/handshake in ensureConnected and Close; the requests themselves
// (ListTools, CallTool, ReadResource) are not held under mu, so concurrent
// calls on one Connection may overlap, and the transport matches each
// reply to its request by id.
type Connection struct {
	config Config
	logger *slog.Logger

	mu        sync.Mutex
	transport *stdioTransport
	connected bool
}

func NewConnection(cfg Config, logger *slog.Logger) *Connection {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connection{config: cfg, logger: logger.With("executor", cfg.ID)}
}

func (c *Connection) ID() string { return c.config.ID }

// ensureConnected spawns the subprocess and performs the initialize
// handshake on first call; subsequent calls are no-ops (spec.md §4.5).
func (c *Connection) ensureConnected() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return nil
	}

	c.transport = newStdioTransport(c.config.Command, c.config.Args, c.config.Env, c.config.WorkDir, c.config.Timeout, c.logger)
	if err := c.transport.start(); err != nil {
		return fmt.Errorf("start executor %q: %w", c.config.ID, err)
	}

	result, err := c.transport.call("initialize", InitializeParams{
		ProtocolVersion: protocolVersion,
		ClientInfo:      ClientInfo{Name: "agentrun", Version: "1.0.0"},
	})
	if err != nil {
		c.transport.close()
		return fmt.Errorf("initialize executor %q: %w", c.config.ID, err)
	}
	var initResult InitializeResult
	if len(result) > 0 {
		_ = json.Unmarshal(result, &initResult)
	}
	c.logger.Info("executor handshake complete", "server", initResult.ServerInfo.Name, "protocol", initResult.ProtocolVersion)

	c.connected = true
	return nil
}

// ListTools returns the executor's advertised tool catalog, converted to
// the agent package's common ToolDefinition schema.
func (c *Connection) ListTools() ([]agent.ToolDefinition, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}
	result, err := c.transport.call("tools/list", nil)
	if err != nil {
		return nil, fmt.Errorf("list tools on executor %q: %w", c.config.ID, err)
	}
	var parsed ListToolsResult
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("parse tools/list reply from %q: %w", c.config.ID, err)
	}

	defs := make([]agent.ToolDefinition, 0, len(parsed.Tools))
	for _, td := range parsed.Tools {
		params := toolParameterSchemaFromRaw(td.InputSchema)
		if err := validateToolSchema(td, params); err != nil {
			c.logger.Warn("dropping tool with invalid parameter schema", "tool", td.Name, "error", err)
			continue
		}
		defs = append(defs, agent.ToolDefinition{
			Name:        td.Name,
			Description: td.Description,
			Parameters:  params,
		})
	}
	return defs, nil
}

// validateToolSchema rejects a tool definition whose declared input schema
// is not a well-formed JSON Schema document (compiled via
// santhosh-tekuri/jsonschema/v5) or whose required-list references a
// property that does not exist — checks the wire protocol's loosely typed
// json.RawMessage can't catch on its own.
func validateToolSchema(td ToolDescriptor, params agent.ToolParameterSchema) error {
	if len(td.InputSchema) > 0 {
		if _, err := jsonschema.CompileString(td.Name+".schema.json", string(td.InputSchema)); err != nil {
			return fmt.Errorf("invalid json schema: %w", err)
		}
	}
	for _, name := range params.Required {
		if _, ok := params.Properties[name]; !ok {
			return fmt.Errorf("required property %q is not declared in properties", name)
		}
	}
	return nil
}

// CallTool issues a tools/call request and returns the first text content
// item, per spec.md §4.5 ("return the response's content ... only the
// first text item is used").
func (c *Connection) CallTool(name string, arguments json.RawMessage) (string, bool, error) {
	if err := c.ensureConnected(); err != nil {
		return "", false, err
	}
	result, err := c.transport.call("tools/call", CallToolParams{Name: name, Arguments: arguments})
	if err != nil {
		return "", false, err
	}
	var parsed CallToolResult
	if err := json.Unmarshal(result, &parsed); err != nil {
		return "", false, fmt.Errorf("parse tools/call reply from %q: %w", c.config.ID, err)
	}
	for _, item := range parsed.Content {
		if item.Type == "text" {
			return item.Text, parsed.IsError, nil
		}
	}
	return "", parsed.IsError, nil
}

// ReadResource issues a resources/read request and returns the first
// text content item.
func (c *Connection) ReadResource(uri string) (string, error) {
	if err := c.ensureConnected(); err != nil {
		return "", err
	}
	result, err := c.transport.call("resources/read", ReadResourceParams{URI: uri})
	if err != nil {
		return "", err
	}
	var parsed ReadResourceResult
	if err := json.Unmarshal(result, &parsed); err != nil {
		return "", fmt.Errorf("parse resources/read reply from %q: %w", c.config.ID, err)
	}
	for _, item := range parsed.Contents {
		if item.Type == "text" {
			return item.Text, nil
		}
	}
	return "", nil
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transport == nil {
		return nil
	}
	return c.transport.close()
}

func toolParameterSchemaFromRaw(raw json.RawMessage) agent.ToolParameterSchema {
	var schema agent.ToolParameterSchema
	if len(raw) == 0 {
		schema.Type = "object"
		return schema
	}
	if err := json.Unmarshal(raw, &schema); err != nil {
		schema = agent.ToolParameterSchema{Type: "object"}
	}
	if schema.Type == "" {
		schema.Type = "object"
	}
	return schema
}
