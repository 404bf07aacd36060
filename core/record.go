package core

// GuardrailPhase distinguishes pre-call input checks from post-call output checks.
type GuardrailPhase string

const (
	// GuardrailInput marks a check evaluated against caller input before any model call.
	GuardrailInput GuardrailPhase = "input"
	// GuardrailOutput marks a check evaluated against final content after validation.
	GuardrailOutput GuardrailPhase = "output"
)

// GuardrailDecision is the outcome of a single guardrail invocation. It is
// created once per invocation, appended to the run's audit trail and never
// mutated afterwards. Tripwire true means the phase is blocked regardless of
// what the other guardrails decided.
type GuardrailDecision struct {
	Guardrail string         `json:"guardrail"`
	Phase     GuardrailPhase `json:"phase"`
	Tripwire  bool           `json:"tripwire"`
	Rationale string         `json:"rationale,omitempty"`
	Turn      int            `json:"turn"`
}

// ToolInvocationRecord captures one tool dispatch end to end: the request as
// received from the model and the result (or error) produced by the bridge.
// Immutable after creation.
type ToolInvocationRecord struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	Turn      int    `json:"turn"`
}

// HandoffRecord captures a control transfer between agents, used for audit
// and for the handoff depth guard.
type HandoffRecord struct {
	From string `json:"from"`
	To   string `json:"to"`
	Turn int    `json:"turn"`
}
