package agent

// Strategy is the pluggable decision object described in spec.md §4.2.
// A strategy is the only component permitted to mutate AgentState; the
// loop treats returned NextAction values as instructions and nothing more.
type Strategy interface {
	// InitializeInteraction is called once at the start of a turn.
	InitializeInteraction(state *AgentState) (NextAction, error)

	// ProcessApiResponse is called after a call_model action completes.
	ProcessApiResponse(state *AgentState, resp ApiResponse) (NextAction, error)

	// ProcessToolResults is called after a call_tools action completes.
	ProcessToolResults(state *AgentState, results []ToolResult) (NextAction, error)

	// ProcessDelegationResult is called after a delegate action completes.
	// Since delegation is currently unreachable (SPEC_FULL.md §10.9), no
	// shipped strategy needs to implement more than returning an error
	// here, but the method exists so a future delegating strategy can.
	ProcessDelegationResult(state *AgentState, result DelegationResult) (NextAction, error)

	// Name identifies the strategy, e.g. for logging.
	Name() string
}
