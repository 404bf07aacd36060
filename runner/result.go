package runner

import (
	"encoding/json"

	"github.com/hupe1980/agentrun/core"
)

// RunResult is the terminal outcome of one run. It is always produced, even
// for blocked and failed runs, so callers can inspect the transcript and
// audit records regardless of how the run ended.
type RunResult struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// Status is the terminal state: completed, blocked or failed.
	Status core.RunStatus `json:"status"`

	// FinalOutput is the accepted final text, empty unless Status is completed.
	FinalOutput string `json:"final_output,omitempty"`

	// StructuredOutput is the validated payload for agents with an output
	// schema, nil otherwise.
	StructuredOutput map[string]any `json:"structured_output,omitempty"`

	// Transcript holds every item recorded during the run, in order.
	Transcript []core.Item `json:"transcript"`

	// GuardrailDecisions is the audit trail of every guardrail evaluation.
	GuardrailDecisions []core.GuardrailDecision `json:"guardrail_decisions,omitempty"`

	// Handoffs lists control transfers in occurrence order.
	Handoffs []core.HandoffRecord `json:"handoffs,omitempty"`

	// ToolInvocations lists every tool dispatch with its outcome.
	ToolInvocations []core.ToolInvocationRecord `json:"tool_invocations,omitempty"`

	// Turns is the number of model calls issued.
	Turns int `json:"turns"`

	// LastAgent names the agent that held control when the run ended.
	LastAgent string `json:"last_agent"`

	// Err is set when Status is failed; match with errors.Is / errors.As.
	Err error `json:"-"`
}

// DecodeOutput unmarshals the structured output into target, a pointer to a
// struct mirroring the agent's output schema. Returns an error when the run
// produced no structured output.
func (r *RunResult) DecodeOutput(target any) error {
	if r.StructuredOutput == nil {
		return &core.OutputValidationError{Raw: r.FinalOutput, Violation: "run produced no structured output"}
	}
	buf, err := json.Marshal(r.StructuredOutput)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, target)
}
