package core

// RunStatus describes where a run is in its lifecycle. Completed, Blocked and
// Failed are terminal; Blocked is a deliberate guardrail outcome, distinct
// from failure.
type RunStatus int

const (
	// RunPending means the run has been created but the loop has not started.
	RunPending RunStatus = iota
	// RunRunning means the loop is actively driving turns.
	RunRunning
	// RunCompleted means the run produced final content that passed validation and guardrails.
	RunCompleted
	// RunBlocked means a guardrail tripwire stopped the run.
	RunBlocked
	// RunFailed means the state machine could not continue (limits, validation, protocol, cancellation).
	RunFailed
)

// String returns the human-readable status name.
func (s RunStatus) String() string {
	switch s {
	case RunPending:
		return "pending"
	case RunRunning:
		return "running"
	case RunCompleted:
		return "completed"
	case RunBlocked:
		return "blocked"
	case RunFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is one of the three end states.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunBlocked || s == RunFailed
}
