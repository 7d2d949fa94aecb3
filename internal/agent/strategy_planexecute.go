package agent

import "log/slog"

type planExecutePhase int

const (
	phasePlanning planExecutePhase = iota
	phaseExecution
	phaseCompleted
)

// PlanExecute is a two-phase strategy recovered from the original
// implementation (SPEC_FULL.md §10.3, grounded on
// original_source/volition-agent-core/src/strategies/plan_execute.rs): it
// first asks the model for a step-by-step plan using a dedicated planning
// instruction, then asks it to execute that plan with tools, completing
// once the execution phase stops requesting tool calls.
//
// Unlike the original, which could route the planning and execution
// phases to distinct provider configurations (planning_provider /
// execution_provider), this strategy always uses the single current
// provider the agent loop was constructed with — this repository's Agent
// config has no per-phase provider concept.
type PlanExecute struct {
	logger *slog.Logger
	phase  planExecutePhase
	plan   string
}

// NewPlanExecute builds a PlanExecute strategy. A nil logger defaults to
// slog.Default().
func NewPlanExecute(logger *slog.Logger) *PlanExecute {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanExecute{logger: logger, phase: phasePlanning}
}

func (s *PlanExecute) Name() string { return "PlanExecute" }

func (s *PlanExecute) InitializeInteraction(state *AgentState) (NextAction, error) {
	s.phase = phasePlanning

	var currentTask string
	for i := len(state.Messages) - 1; i >= 0; i-- {
		if state.Messages[i].Role == RoleUser {
			currentTask = state.Messages[i].Content
			break
		}
	}
	if currentTask == "" {
		return NextAction{}, &StrategyError{Strategy: s.Name(), Message: "no user task message found in state"}
	}

	// Phase instructions ride along on a RoleUser message rather than a
	// second RoleSystem one: state.Validate() (state.go:70) only permits
	// system at index 0, and a mid-conversation phase switch is not that.
	state.AddMessage(Message{
		Role: RoleUser,
		Content: "You are a planning assistant. Create a concise, step-by-step plan to accomplish the user's task. " +
			"Output ONLY the plan steps.\n\nCreate a plan for this task: " + currentTask,
	})
	state.ClearPendingToolCalls()
	return CallModel(state), nil
}

func (s *PlanExecute) ProcessApiResponse(state *AgentState, resp ApiResponse) (NextAction, error) {
	if len(resp.Choices) == 0 {
		return NextAction{}, &ApiError{Message: "api response had no choices"}
	}
	choice := resp.Choices[0]
	state.AddMessage(choice.Message)

	switch s.phase {
	case phasePlanning:
		if choice.Message.Content == "" {
			return NextAction{}, &ApiError{Message: "planning response content was empty"}
		}
		s.plan = choice.Message.Content
		s.logger.Info("generated plan", "strategy", s.Name(), "plan", s.plan)
		s.phase = phaseExecution

		state.AddMessage(Message{
			Role: RoleUser,
			Content: "You are an execution assistant. Execute the given plan step-by-step using the available tools. " +
				"Request tool calls as needed.\n\nExecute this plan:\n---\n" + s.plan + "\n---",
		})
		state.ClearPendingToolCalls()
		return CallModel(state), nil

	case phaseExecution:
		if len(choice.Message.ToolCalls) > 0 {
			state.SetPendingToolCalls(choice.Message.ToolCalls)
			return CallTools(state), nil
		}
		s.phase = phaseCompleted
		final := choice.Message.Content
		if final == "" {
			final = "Execution complete."
		}
		return Completed(final, state), nil

	default:
		return NextAction{}, &StrategyError{Strategy: s.Name(), Message: "received api response after completion"}
	}
}

func (s *PlanExecute) ProcessToolResults(state *AgentState, results []ToolResult) (NextAction, error) {
	if s.phase != phaseExecution {
		return NextAction{}, &StrategyError{Strategy: s.Name(), Message: "received tool results outside of execution phase"}
	}
	state.AppendToolResults(results)
	return CallModel(state), nil
}

func (s *PlanExecute) ProcessDelegationResult(state *AgentState, _ DelegationResult) (NextAction, error) {
	return NextAction{}, &StrategyError{Strategy: s.Name(), Message: "delegation not supported by PlanExecute"}
}
