// Package agent defines the agent data model: an immutable bundle of
// identity, instructions, model binding, tool set, handoff targets, guardrail
// lists and an optional structured output schema. Construction validates the
// configuration; after New returns, an Agent never changes, so it is safe to
// share across concurrent runs.
package agent

import (
	"fmt"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/guardrail"
	"github.com/hupe1980/agentrun/internal/schema"
	"github.com/hupe1980/agentrun/model"
	"github.com/hupe1980/agentrun/tool"
)

// Options configure an Agent at construction time.
type Options struct {
	// Instructions is the system prompt, static or provider-backed.
	Instructions Instruction
	// Description summarizes the agent's purpose; surfaced to peer agents
	// when this agent is a handoff target.
	Description string
	// Tools the agent may invoke. Names must be unique and must not collide
	// with the reserved transfer tool.
	Tools []tool.Tool
	// Handoffs lists the delegation targets this agent may transfer to.
	Handoffs []Handoff
	// InputGuardrails run against caller input before the first model call.
	InputGuardrails []guardrail.Guardrail
	// OutputGuardrails run against the final output before completion.
	OutputGuardrails []guardrail.Guardrail
	// OutputSchema, when set, makes the agent's final output structured:
	// it must be a single JSON object validating against this schema.
	OutputSchema map[string]any
	// OutputType is a convenience alternative to OutputSchema: a struct
	// value whose reflected JSON schema becomes the output schema.
	OutputType any
}

// Agent is an immutable agent definition bound to one model.
type Agent struct {
	name             string
	description      string
	instructions     Instruction
	m                model.Model
	tools            []tool.Tool
	toolsByName      map[string]tool.Tool
	handoffs         []Handoff
	inputGuardrails  []guardrail.Guardrail
	outputGuardrails []guardrail.Guardrail
	outputSchema     map[string]any
}

// New constructs and validates an Agent. The returned agent is immutable.
func New(name string, m model.Model, optFns ...func(o *Options)) (*Agent, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if name == "" {
		return nil, &core.ConfigurationError{Agent: name, Reason: "agent name must not be empty"}
	}
	if m == nil {
		return nil, &core.ConfigurationError{Agent: name, Reason: "agent requires a model"}
	}

	toolsByName := make(map[string]tool.Tool, len(opts.Tools))
	for _, t := range opts.Tools {
		if t.Name() == tool.TransferToolName {
			return nil, &core.ConfigurationError{
				Agent:  name,
				Reason: fmt.Sprintf("tool name %q is reserved for handoffs", tool.TransferToolName),
			}
		}
		if _, exists := toolsByName[t.Name()]; exists {
			return nil, &core.ConfigurationError{
				Agent:  name,
				Reason: fmt.Sprintf("duplicate tool name %q", t.Name()),
			}
		}
		toolsByName[t.Name()] = t
	}

	seen := make(map[string]struct{}, len(opts.Handoffs))
	for _, h := range opts.Handoffs {
		if h.Name() == "" {
			return nil, &core.ConfigurationError{Agent: name, Reason: "handoff target name must not be empty"}
		}
		if _, exists := seen[h.Name()]; exists {
			return nil, &core.ConfigurationError{
				Agent:  name,
				Reason: fmt.Sprintf("duplicate handoff target %q", h.Name()),
			}
		}
		seen[h.Name()] = struct{}{}
	}

	outputSchema := opts.OutputSchema
	if opts.OutputType != nil {
		if outputSchema != nil {
			return nil, &core.ConfigurationError{Agent: name, Reason: "OutputSchema and OutputType are mutually exclusive"}
		}
		sm, err := schema.Reflect(opts.OutputType)
		if err != nil {
			return nil, &core.ConfigurationError{Agent: name, Reason: fmt.Sprintf("reflect output type: %v", err)}
		}
		outputSchema = sm
	}
	if outputSchema != nil {
		if _, err := schema.Compile(outputSchema); err != nil {
			return nil, &core.ConfigurationError{Agent: name, Reason: fmt.Sprintf("output schema does not compile: %v", err)}
		}
	}

	return &Agent{
		name:             name,
		description:      opts.Description,
		instructions:     opts.Instructions,
		m:                m,
		tools:            append([]tool.Tool(nil), opts.Tools...),
		toolsByName:      toolsByName,
		handoffs:         append([]Handoff(nil), opts.Handoffs...),
		inputGuardrails:  append([]guardrail.Guardrail(nil), opts.InputGuardrails...),
		outputGuardrails: append([]guardrail.Guardrail(nil), opts.OutputGuardrails...),
		outputSchema:     outputSchema,
	}, nil
}

// Name returns the agent's unique name.
func (a *Agent) Name() string { return a.name }

// Description returns the agent's purpose summary.
func (a *Agent) Description() string { return a.description }

// Instructions returns the agent's instruction union.
func (a *Agent) Instructions() Instruction { return a.instructions }

// Model returns the model the agent is bound to.
func (a *Agent) Model() model.Model { return a.m }

// Tools returns a copy of the agent's tool set.
func (a *Agent) Tools() []tool.Tool {
	return append([]tool.Tool(nil), a.tools...)
}

// Tool looks up a tool by name.
func (a *Agent) Tool(name string) (tool.Tool, bool) {
	t, ok := a.toolsByName[name]
	return t, ok
}

// Handoffs returns a copy of the agent's declared handoff targets.
func (a *Agent) Handoffs() []Handoff {
	return append([]Handoff(nil), a.handoffs...)
}

// HandoffNames returns the names of all declared handoff targets.
func (a *Agent) HandoffNames() []string {
	names := make([]string, len(a.handoffs))
	for i, h := range a.handoffs {
		names[i] = h.Name()
	}
	return names
}

// CanHandoffTo reports whether the named agent is a declared handoff target.
func (a *Agent) CanHandoffTo(name string) bool {
	for _, h := range a.handoffs {
		if h.Name() == name {
			return true
		}
	}
	return false
}

// InputGuardrails returns the guardrails applied to caller input.
func (a *Agent) InputGuardrails() []guardrail.Guardrail {
	return append([]guardrail.Guardrail(nil), a.inputGuardrails...)
}

// OutputGuardrails returns the guardrails applied to final output.
func (a *Agent) OutputGuardrails() []guardrail.Guardrail {
	return append([]guardrail.Guardrail(nil), a.outputGuardrails...)
}

// OutputSchema returns the structured output schema, or nil for free text.
func (a *Agent) OutputSchema() map[string]any { return a.outputSchema }
