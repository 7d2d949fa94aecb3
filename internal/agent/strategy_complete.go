package agent

import "log/slog"

// CompleteTask is the base strategy: call the model, execute any requested
// tools, feed results back, repeat until the model stops requesting tools.
// Grounded on the original's volition-core/src/strategies (CompleteTask is
// this repository's name for what the Rust original calls the default,
// tool-call-driven strategy loop embedded directly in its agent.rs).
type CompleteTask struct {
	logger *slog.Logger
}

// NewCompleteTask builds a CompleteTask strategy. A nil logger defaults to
// slog.Default().
func NewCompleteTask(logger *slog.Logger) *CompleteTask {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompleteTask{logger: logger}
}

func (s *CompleteTask) Name() string { return "CompleteTask" }

func (s *CompleteTask) InitializeInteraction(state *AgentState) (NextAction, error) {
	return CallModel(state), nil
}

func (s *CompleteTask) ProcessApiResponse(state *AgentState, resp ApiResponse) (NextAction, error) {
	if len(resp.Choices) == 0 {
		return NextAction{}, &ApiError{Message: "api response had no choices"}
	}
	choice := resp.Choices[0]
	state.AddMessage(choice.Message)

	hasToolCalls := len(choice.Message.ToolCalls) > 0

	switch choice.FinishReason {
	case FinishToolCalls:
		if !hasToolCalls {
			s.logger.Warn("finish reason indicated tool calls but none were present", "strategy", s.Name())
			return Completed("", state), nil
		}
		state.SetPendingToolCalls(choice.Message.ToolCalls)
		return CallTools(state), nil
	default:
		// stop, max_tokens, length, and any unrecognized non-empty finish
		// reason are all treated as completion (spec.md §4.2), unless the
		// message nonetheless carried tool calls (some providers report a
		// generic "stop" alongside tool_calls).
		if hasToolCalls {
			state.SetPendingToolCalls(choice.Message.ToolCalls)
			return CallTools(state), nil
		}
		return Completed(choice.Message.Content, state), nil
	}
}

func (s *CompleteTask) ProcessToolResults(state *AgentState, results []ToolResult) (NextAction, error) {
	state.AppendToolResults(results)
	return CallModel(state), nil
}

func (s *CompleteTask) ProcessDelegationResult(state *AgentState, _ DelegationResult) (NextAction, error) {
	return NextAction{}, &StrategyError{Strategy: s.Name(), Message: "CompleteTask does not delegate"}
}
