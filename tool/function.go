package tool

import (
	"encoding/json"
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/internal/schema"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a
// runtime tool. It validates model-supplied arguments against the declared
// JSON Schema before execution and normalizes failures into *ToolError with
// consistent codes:
//
//	VALIDATION_ERROR -> schema / argument mismatch
//	EXECUTION_ERROR  -> underlying function returned an error (non-ToolError)
//	(custom codes preserved if the function returns *ToolError directly)
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use by multiple goroutines.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(toolCtx *core.ToolContext, args map[string]any) (any, error)

	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
}

// NewFunctionTool constructs a FunctionTool from an explicit schema and function.
//
// Example:
//
//	sumTool := NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []any{"a", "b"},
//	  },
//	  func(_ *core.ToolContext, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct type
// via reflection. Field descriptions come from `jsonschema` struct tags.
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) (*FunctionTool, error) {
	params, err := schema.Reflect(structType)
	if err != nil {
		return nil, fmt.Errorf("reflect parameter schema for tool %s: %w", name, err)
	}
	return NewFunctionTool(name, description, params, fn), nil
}

// Name returns the unique tool name used in function call declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON Schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates the provided args against the declared schema then invokes
// the underlying function. The function receives the same normalized argument
// shapes the validator approved, so a schema-valid call never trips over a
// typed Go value the caller passed directly. Validation or execution failures
// are wrapped (or passed through) as *ToolError.
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	t.compileOnce.Do(func() {
		t.compiled, t.compileErr = schema.Compile(t.parameters)
	})
	if t.compileErr != nil {
		return nil, NewToolError(t.name, fmt.Sprintf("invalid parameter schema: %v", t.compileErr), CodeValidationError)
	}

	normalized := normalize(args)
	if err := t.compiled.Validate(normalized); err != nil {
		return nil, NewToolError(t.name, fmt.Sprintf("parameter validation failed: %v", err), CodeValidationError)
	}
	if m, ok := normalized.(map[string]any); ok {
		args = m
	}

	result, err := t.fn(toolCtx, args)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok {
			return nil, toolErr
		}
		return nil, NewToolError(t.name, err.Error(), CodeExecutionError)
	}

	return result, nil
}

// normalize round-trips argument values through JSON so the validator sees
// the decoded shapes it expects (float64 numbers, []any, map[string]any)
// even when a caller passed typed Go values directly.
func normalize(args map[string]any) any {
	raw, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return args
	}
	return v
}
