package agent

import (
	"context"
	"log/slog"
)

// DefaultMaxIterations is the default iteration ceiling (spec.md §4.1).
const DefaultMaxIterations = 20

// ModelClient is the loop's view of a provider: send the conversation plus
// the current tool catalog, get back an Api response. Concrete
// implementations live in internal/providers.
type ModelClient interface {
	GetCompletion(ctx context.Context, messages []Message, tools []ToolDefinition) (ApiResponse, error)
}

// ToolDispatcher is the loop's view of the tool catalog and executor
// dispatch described in spec.md §4.4. Concrete implementations live in
// internal/executor.
type ToolDispatcher interface {
	// Catalog returns the union of tool definitions advertised by every
	// live executor, rebuilt fresh on every call (spec.md §4.4, §5
	// ordering guarantee (iii)).
	Catalog(ctx context.Context) ([]ToolDefinition, error)

	// Dispatch executes calls in the order given and returns one result
	// per call in the same order. An individual failure (unknown tool,
	// malformed arguments, executor error) never aborts the batch.
	Dispatch(ctx context.Context, calls []ToolCallRequest) ([]ToolResult, error)
}

// AgentLoop owns the state, strategy, provider client, and tool dispatcher
// for one agent, and drives runs of the state machine in spec.md §4.1.
type AgentLoop struct {
	Strategy      Strategy
	Model         ModelClient
	Tools         ToolDispatcher
	MaxIterations int
	Logger        *slog.Logger
}

// NewAgentLoop constructs a loop. maxIterations <= 0 uses DefaultMaxIterations.
func NewAgentLoop(strategy Strategy, model ModelClient, tools ToolDispatcher, maxIterations int, logger *slog.Logger) *AgentLoop {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentLoop{
		Strategy:      strategy,
		Model:         model,
		Tools:         tools,
		MaxIterations: maxIterations,
		Logger:        logger,
	}
}

// Run drives one turn of the state machine to completion. It returns the
// final assistant message and the (always non-nil) resulting state, even
// on error, so the caller may persist, truncate, or resume.
func (l *AgentLoop) Run(ctx context.Context, state *AgentState) (string, *AgentState, error) {
	action, err := l.Strategy.InitializeInteraction(state)
	if err != nil {
		return "", state, err
	}

	iteration := 0
	for {
		switch action.Kind {
		case ActionCallModel:
			if iteration >= l.MaxIterations {
				return "", state, &IterationLimitError{Limit: l.MaxIterations, State: state}
			}
			iteration++

			if err := ctx.Err(); err != nil {
				return "", state, err
			}
			catalog, err := l.Tools.Catalog(ctx)
			if err != nil {
				return "", state, &ExecutorError{Message: "failed to build tool catalog", Cause: err}
			}
			resp, err := l.Model.GetCompletion(ctx, action.State.Messages, catalog)
			if err != nil {
				return "", state, err
			}
			action, err = l.Strategy.ProcessApiResponse(action.State, resp)
			if err != nil {
				return "", state, err
			}

		case ActionCallTools:
			if err := ctx.Err(); err != nil {
				return "", state, err
			}
			if len(action.State.PendingToolCalls) == 0 {
				return "", state, &StrategyError{Strategy: l.Strategy.Name(), Message: "call_tools requested with no pending tool calls"}
			}
			results, err := l.Tools.Dispatch(ctx, action.State.PendingToolCalls)
			if err != nil {
				return "", state, &ExecutorError{Message: "tool dispatch failed", Cause: err}
			}
			action, err = l.Strategy.ProcessToolResults(action.State, results)
			if err != nil {
				return "", state, err
			}

		case ActionDelegate:
			goal := ""
			if action.Task != nil {
				goal = action.Task.Goal
			}
			return "", state, &DelegationError{Goal: goal}

		case ActionCompleted:
			return action.Message, action.FinalState, nil

		default:
			return "", state, &StrategyError{Strategy: l.Strategy.Name(), Message: "unknown next action kind"}
		}
	}
}
