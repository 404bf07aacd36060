package core

import "context"

// ToolContext is the constrained surface handed to tool implementations by
// the invocation bridge. It correlates the execution with the originating
// model request via the function call ID and exposes the run's cancellation
// context. Tools must not reach back into the loop; side effects belong to
// external systems.
type ToolContext struct {
	ctx    context.Context
	runID  string
	callID string
	agent  string
	turn   int
}

// NewToolContext binds a tool invocation to its run, originating call ID and
// active agent.
func NewToolContext(ctx context.Context, runID, callID, agent string, turn int) *ToolContext {
	return &ToolContext{ctx: ctx, runID: runID, callID: callID, agent: agent, turn: turn}
}

// Context returns the cancellation context for the invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// RunID returns the identifier of the owning run.
func (tc *ToolContext) RunID() string { return tc.runID }

// CallID returns the function call identifier assigned by the model,
// re-associating the result with its originating request.
func (tc *ToolContext) CallID() string { return tc.callID }

// AgentName returns the name of the agent whose turn requested the call.
func (tc *ToolContext) AgentName() string { return tc.agent }

// Turn returns the turn index at which the call was requested.
func (tc *ToolContext) Turn() int { return tc.turn }
