// Package guardrail implements the safety check subsystem: independent
// evaluations that produce allow/block decisions for caller input (pre-call)
// or final output (post-call). A guardrail is any capability with an
// evaluate-content-to-decision signature; rule-based checks and nested
// model-backed classifiers are both ordinary implementations.
package guardrail

import (
	"context"

	"github.com/hupe1980/agentrun/core"
)

// Guardrail is an independent check producing an allow/block decision for a
// piece of content. Implementations must be side-effect-free with respect to
// the run and safe for concurrent use; the evaluator runs guardrails of one
// phase in parallel.
type Guardrail interface {
	// Name identifies the guardrail in decisions and logs.
	Name() string

	// Evaluate inspects content and returns a decision. The returned
	// decision's Guardrail, Phase and Turn fields are filled in by the
	// evaluator; implementations only set Tripwire and Rationale.
	Evaluate(ctx context.Context, content string) (core.GuardrailDecision, error)
}

// Func adapts an ordinary function into a Guardrail. The function returns
// the tripwire flag and a rationale.
type Func struct {
	name string
	fn   func(ctx context.Context, content string) (bool, string, error)
}

// NewFunc constructs a rule-based guardrail from a function.
func NewFunc(name string, fn func(ctx context.Context, content string) (bool, string, error)) *Func {
	return &Func{name: name, fn: fn}
}

// Name implements Guardrail.
func (f *Func) Name() string { return f.name }

// Evaluate implements Guardrail.
func (f *Func) Evaluate(ctx context.Context, content string) (core.GuardrailDecision, error) {
	tripwire, rationale, err := f.fn(ctx, content)
	if err != nil {
		return core.GuardrailDecision{}, err
	}
	return core.GuardrailDecision{Tripwire: tripwire, Rationale: rationale}, nil
}
