package runner

import (
	"context"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/model"
)

// Hooks are optional lifecycle observers invoked synchronously at fixed points
// of a run. Nil fields are skipped. Hooks observe; they cannot alter control
// flow, so implementations should be fast and must not panic.
type Hooks struct {
	// OnRunStart fires once, after agent resolution succeeds.
	OnRunStart func(ctx context.Context, runID, agent, input string)

	// OnModelCall fires before each model call.
	OnModelCall func(ctx context.Context, agent string, turn int)

	// OnModelResponse fires after each successful model call with the final
	// response chunk.
	OnModelResponse func(ctx context.Context, agent string, turn int, resp model.Response)

	// OnToolCall fires before each tool invocation.
	OnToolCall func(ctx context.Context, agent, tool, callID string)

	// OnToolResult fires after each tool invocation completes.
	OnToolResult func(ctx context.Context, agent, tool, callID string, result any, err error)

	// OnHandoff fires when control transfers between agents.
	OnHandoff func(ctx context.Context, from, to string, turn int)

	// OnGuardrailDecision fires once per guardrail decision, in declaration order.
	OnGuardrailDecision func(ctx context.Context, decision core.GuardrailDecision)

	// OnRunEnd fires once with the terminal result, regardless of outcome.
	OnRunEnd func(ctx context.Context, result *RunResult)
}

func (h Hooks) runStart(ctx context.Context, runID, agent, input string) {
	if h.OnRunStart != nil {
		h.OnRunStart(ctx, runID, agent, input)
	}
}

func (h Hooks) modelCall(ctx context.Context, agent string, turn int) {
	if h.OnModelCall != nil {
		h.OnModelCall(ctx, agent, turn)
	}
}

func (h Hooks) modelResponse(ctx context.Context, agent string, turn int, resp model.Response) {
	if h.OnModelResponse != nil {
		h.OnModelResponse(ctx, agent, turn, resp)
	}
}

func (h Hooks) toolCall(ctx context.Context, agent, tool, callID string) {
	if h.OnToolCall != nil {
		h.OnToolCall(ctx, agent, tool, callID)
	}
}

func (h Hooks) toolResult(ctx context.Context, agent, tool, callID string, result any, err error) {
	if h.OnToolResult != nil {
		h.OnToolResult(ctx, agent, tool, callID, result, err)
	}
}

func (h Hooks) handoff(ctx context.Context, from, to string, turn int) {
	if h.OnHandoff != nil {
		h.OnHandoff(ctx, from, to, turn)
	}
}

func (h Hooks) guardrailDecision(ctx context.Context, decision core.GuardrailDecision) {
	if h.OnGuardrailDecision != nil {
		h.OnGuardrailDecision(ctx, decision)
	}
}

func (h Hooks) runEnd(ctx context.Context, result *RunResult) {
	if h.OnRunEnd != nil {
		h.OnRunEnd(ctx, result)
	}
}
