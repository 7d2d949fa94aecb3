package agent

// Conversation wraps an inner Strategy and preserves multi-turn history
// across separate AgentLoop.Run calls (spec.md §4.2). The inner strategy
// always sees exactly the state it would see in a single-turn run; only
// Conversation is aware that runs repeat.
type Conversation struct {
	inner   Strategy
	history []Message
	started bool
}

// NewConversation wraps inner in a history-preserving decorator.
func NewConversation(inner Strategy) *Conversation {
	return &Conversation{inner: inner}
}

func (c *Conversation) Name() string { return "Conversation(" + c.inner.Name() + ")" }

func (c *Conversation) InitializeInteraction(state *AgentState) (NextAction, error) {
	if !c.started {
		// First turn: the state as constructed (system prompt + initial
		// user message) becomes the seed history.
		c.history = append([]Message(nil), state.Messages...)
		c.started = true
	} else {
		// The caller appended the new turn's user message onto state.Messages
		// before calling in; capture it, splice the stored history back in,
		// then re-append it, mirroring the original's
		// state.messages.last() + history + last() sequence.
		var newest Message
		if n := len(state.Messages); n > 0 {
			newest = state.Messages[n-1]
		}
		state.Messages = append(append([]Message(nil), c.history...), newest)
	}
	action, err := c.inner.InitializeInteraction(state)
	c.sync(state)
	return action, err
}

func (c *Conversation) ProcessApiResponse(state *AgentState, resp ApiResponse) (NextAction, error) {
	action, err := c.inner.ProcessApiResponse(state, resp)
	c.sync(state)
	return action, err
}

func (c *Conversation) ProcessToolResults(state *AgentState, results []ToolResult) (NextAction, error) {
	action, err := c.inner.ProcessToolResults(state, results)
	c.sync(state)
	return action, err
}

func (c *Conversation) ProcessDelegationResult(state *AgentState, result DelegationResult) (NextAction, error) {
	action, err := c.inner.ProcessDelegationResult(state, result)
	c.sync(state)
	return action, err
}

// sync copies state.Messages back into the accumulated history.
func (c *Conversation) sync(state *AgentState) {
	c.history = append([]Message(nil), state.Messages...)
}
