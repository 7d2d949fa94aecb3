// Command shellexec is a reference tool executor: a stdio subprocess
// speaking this repository's JSON-RPC-shaped executor protocol
// (internal/executor/protocol.go), advertising a single "shell" tool that
// runs a command through /bin/sh -c, grounded on
// original_source/volition-shell-server/src/main.rs's ShellServer.
//
// Usage as a configured executor:
//
//	executors:
//	  shell:
//	    command: shellexec
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/haasonsaas/agentrun/internal/executor"
)

const protocolVersion = "2024-11-05"

var shellToolSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"command": {"type": "string", "description": "The shell command to execute."},
		"workdir": {"type": "string", "description": "Optional working directory."}
	},
	"required": ["command"]
}`)

func main() {
	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		var req executor.Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			fmt.Fprintf(os.Stderr, "shellexec: malformed request: %v\n", err)
			continue
		}
		resp := handle(req)
		payload, err := json.Marshal(resp)
		if err != nil {
			fmt.Fprintf(os.Stderr, "shellexec: marshal response: %v\n", err)
			continue
		}
		out.Write(payload)
		out.WriteByte('\n')
		out.Flush()
	}
}

func handle(req executor.Request) executor.Response {
	switch req.Method {
	case "initialize":
		return result(req.ID, executor.InitializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      executor.ServerInfo{Name: "shellexec", Version: "1.0.0"},
		})
	case "tools/list":
		return result(req.ID, executor.ListToolsResult{
			Tools: []executor.ToolDescriptor{
				{Name: "shell", Description: "Executes a shell command.", InputSchema: shellToolSchema},
			},
		})
	case "tools/call":
		return handleCallTool(req)
	default:
		return errorResponse(req.ID, -32601, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func handleCallTool(req executor.Request) executor.Response {
	var params executor.CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, -32602, "invalid params")
	}
	if params.Name != "shell" {
		return errorResponse(req.ID, -32601, fmt.Sprintf("unknown tool: %s", params.Name))
	}

	var args struct {
		Command string `json:"command"`
		Workdir string `json:"workdir"`
	}
	if err := json.Unmarshal(params.Arguments, &args); err != nil || strings.TrimSpace(args.Command) == "" {
		return result(req.ID, executor.CallToolResult{
			Content: []executor.ContentItem{{Type: "text", Text: "missing 'command' argument"}},
			IsError: true,
		})
	}

	text, isError := runShellCommand(args.Command, args.Workdir)
	return result(req.ID, executor.CallToolResult{
		Content: []executor.ContentItem{{Type: "text", Text: text}},
		IsError: isError,
	})
}

// runShellCommand runs command through /bin/sh -c and formats stdout,
// stderr, and exit code the way the original volition shell server does.
func runShellCommand(command, workdir string) (string, bool) {
	cmd := exec.Command("/bin/sh", "-c", command)
	if workdir != "" {
		cmd.Dir = workdir
	}
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return fmt.Sprintf("Failed to execute command %q: %v", command, err), true
		}
	}

	text := fmt.Sprintf("Exit Code: %d\n--- STDOUT ---\n%s\n--- STDERR ---\n%s", exitCode, stdout.String(), stderr.String())
	return text, exitCode != 0
}

func result(id int64, v any) executor.Response {
	payload, err := json.Marshal(v)
	if err != nil {
		return errorResponse(id, -32603, "internal error")
	}
	return executor.Response{JSONRPC: "2.0", ID: id, Result: payload}
}

func errorResponse(id int64, code int, message string) executor.Response {
	return executor.Response{JSONRPC: "2.0", ID: id, Error: &executor.RPCError{Code: code, Message: message}}
}
