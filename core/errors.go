package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for loop guards and cancellation. Match with errors.Is.
var (
	// ErrMaxTurnsExceeded signals that the per-run model call budget ran out
	// before the model produced final content.
	ErrMaxTurnsExceeded = errors.New("max turns exceeded")

	// ErrMaxHandoffsExceeded signals that the per-run handoff depth limit was hit.
	ErrMaxHandoffsExceeded = errors.New("max handoffs exceeded")

	// ErrCancelled signals that the caller cancelled the run at an await point.
	ErrCancelled = errors.New("run cancelled")
)

// ConfigurationError reports invalid agent or tool wiring detected at
// construction time. It is fatal: the misconfigured agent is never returned.
type ConfigurationError struct {
	Agent  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Agent == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error in agent %q: %s", e.Agent, e.Reason)
}

// UnresolvedHandoffError reports a handoff reference that could not be bound
// to a constructed agent before the run's first turn.
type UnresolvedHandoffError struct {
	Agent  string // agent declaring the reference
	Target string // unresolved name
}

// Error implements the error interface.
func (e *UnresolvedHandoffError) Error() string {
	return fmt.Sprintf("agent %q declares handoff to %q which is not resolvable", e.Agent, e.Target)
}

// UnauthorizedHandoffError reports a handoff directive naming an agent that
// is not a member of the source agent's declared handoff set. It fails the run.
type UnauthorizedHandoffError struct {
	From   string
	Target string
}

// Error implements the error interface.
func (e *UnauthorizedHandoffError) Error() string {
	return fmt.Sprintf("agent %q requested handoff to %q outside its handoff set", e.From, e.Target)
}

// OutputValidationError reports final model output that did not satisfy the
// agent's declared output schema. Raw preserves the unmodified model text for
// diagnosis; Violation names the specific failure (unparsable payload,
// missing field, type mismatch).
type OutputValidationError struct {
	Raw       string
	Violation string
	Err       error
}

// Error implements the error interface.
func (e *OutputValidationError) Error() string {
	return fmt.Sprintf("output validation failed: %s", e.Violation)
}

// Unwrap exposes the underlying validator error, if any.
func (e *OutputValidationError) Unwrap() error { return e.Err }

// ProtocolViolationError reports a model response the loop refuses to act on,
// such as a malformed handoff directive or, under strict turn policy, a
// response mixing a handoff with tool calls.
type ProtocolViolationError struct {
	Agent  string
	Reason string
}

// Error implements the error interface.
func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation from agent %q: %s", e.Agent, e.Reason)
}
