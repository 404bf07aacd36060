// Package model defines the provider-neutral contract between the execution
// loop and language model backends. Adapters (see the openai and anthropic
// subpackages) translate the normalized Request/Response structures into
// vendor APIs; the loop never branches on a provider.
package model

import (
	"context"

	"github.com/hupe1980/agentrun/core"
)

// ToolCall represents a function call request surfaced by a model provider,
// unified across vendors so downstream logic needs no per-provider branching.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by the execution loop.
// Items is the accumulated transcript; Instructions is the active agent's
// behavior-shaping prefix. OutputSchema, when set, asks the provider to steer
// the model toward schema-conforming JSON; conformance is still verified by
// the output validator afterwards.
type Request struct {
	Instructions string
	Items        []core.Item
	Tools        []ToolDefinition
	OutputSchema map[string]any
	Stream       bool
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model. Partial chunks
// carry incremental text in TextDelta; the terminal chunk carries the full
// accumulated Text plus any tool call requests, in the order the model
// produced them.
type Response struct {
	Partial      bool        `json:"partial"`
	TextDelta    string      `json:"text_delta,omitempty"`
	Text         string      `json:"text,omitempty"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason,omitempty"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by the execution loop to drive
// generation. Generate returns a response channel (zero or more partial
// chunks followed by exactly one final chunk) and an error channel carrying
// at most one terminal error; both are closed when generation ends.
// Implementations must respect ctx cancellation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}
