package agent

import "fmt"

// AgentState is the mutable structure threaded through a single run: the
// ordered message list plus any tool calls the model most recently
// requested that the loop has not yet executed.
//
// Only a Strategy is permitted to mutate AgentState; the loop treats it as
// an opaque value it passes to the strategy and back.
type AgentState struct {
	Messages []Message

	// PendingToolCalls is non-empty only in the transition between
	// receiving an assistant reply that requested tools and dispatching
	// them. It is cleared before the next model call.
	PendingToolCalls []ToolCallRequest
}

// NewAgentState builds the initial state for a turn: an optional system
// prompt, optional prior history, and a fresh user message.
func NewAgentState(systemPrompt string, history []Message, userMessage string) *AgentState {
	messages := make([]Message, 0, len(history)+2)
	if len(history) > 0 {
		messages = append(messages, history...)
	} else if systemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, Message{Role: RoleUser, Content: userMessage})
	return &AgentState{Messages: messages}
}

// AddMessage appends a message to the conversation.
func (s *AgentState) AddMessage(m Message) {
	s.Messages = append(s.Messages, m)
}

// SetPendingToolCalls records the tool calls the model just requested.
func (s *AgentState) SetPendingToolCalls(calls []ToolCallRequest) {
	s.PendingToolCalls = calls
}

// ClearPendingToolCalls empties the pending list, as required before the
// next model call.
func (s *AgentState) ClearPendingToolCalls() {
	s.PendingToolCalls = nil
}

// AppendToolResults appends one RoleTool message per result, in order, and
// clears the pending tool calls — the helper the loop relies on the
// strategy to use after a call_tools action (spec.md §4.1).
func (s *AgentState) AppendToolResults(results []ToolResult) {
	for _, r := range results {
		s.Messages = append(s.Messages, Message{
			Role:       RoleTool,
			Content:    r.Output,
			ToolCallID: r.ToolCallID,
		})
	}
	s.ClearPendingToolCalls()
}

// Validate checks the invariants from spec.md §3 on the current state.
// AgentLoop.Run does not call it; it is O(n) over the message history.
func (s *AgentState) Validate() error {
	seenToolCallIDs := map[string]bool{}
	for i, m := range s.Messages {
		if m.Role == RoleSystem && i != 0 {
			return fmt.Errorf("agent: system message at index %d, must be index 0", i)
		}
		if m.Role == RoleAssistant {
			for _, tc := range m.ToolCalls {
				seenToolCallIDs[tc.ID] = true
			}
		}
		if m.Role == RoleTool {
			if m.ToolCallID == "" {
				return fmt.Errorf("agent: tool message at index %d missing tool_call_id", i)
			}
			if !seenToolCallIDs[m.ToolCallID] {
				return fmt.Errorf("agent: tool message at index %d references unknown tool_call_id %q", i, m.ToolCallID)
			}
		}
	}
	return nil
}
