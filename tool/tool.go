// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities (APIs, computations, side effects) with
// schema-validated arguments and consistent error handling.
package tool

import (
	"fmt"

	"github.com/hupe1980/agentrun/core"
)

// TransferToolName is the reserved function name used by the runtime to
// carry handoff directives over the provider's tool calling channel. Agents
// must not register a tool under this name.
const TransferToolName = "transfer_to_agent"

// Error codes attached to ToolError for uniform downstream handling.
const (
	CodeUnknownTool     = "UNKNOWN_TOOL"
	CodeValidationError = "VALIDATION_ERROR"
	CodeExecutionError  = "EXECUTION_ERROR"
)

// Tool defines a named, schema-typed capability the model may request
// invocation of.
//
// Implementations should:
//   - Provide clear, descriptive names and descriptions; the model reads the
//     description to decide when to call the tool
//   - Define a JSON Schema for parameters
//   - Be safe for concurrent use; a tool definition is shared read-only
//     across runs and must never mutate the agent it is attached to
type Tool interface {
	// Name returns the unique identifier the model addresses this tool by.
	Name() string

	// Description returns a human-readable description consumed by the model.
	Description() string

	// Parameters returns a JSON Schema object describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with already-decoded arguments. Errors are
	// surfaced into the transcript as tool-error results, never as run
	// failures.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ToolError represents a failure local to one tool invocation.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
