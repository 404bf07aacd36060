package guardrail

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/internal/schema"
	"github.com/hupe1980/agentrun/model"
	"github.com/hupe1980/agentrun/output"
)

// verdict is the structured decision the classifier model must return.
type verdict struct {
	Flagged   bool   `json:"flagged" jsonschema:"description=True if the content violates the policy"`
	Reasoning string `json:"reasoning" jsonschema:"description=Short explanation of the decision"`
}

// Classifier is a guardrail backed by a nested model classification: the
// content under check is sent to a (typically lightweight) model with
// moderation instructions and the structured verdict decides the tripwire.
// It is the Go rendering of a guardrail-as-nested-agent; the evaluator treats
// it like any other Guardrail.
type Classifier struct {
	name         string
	instructions string
	m            model.Model
	schemaMap    map[string]any
}

// NewClassifier constructs a classifier guardrail. Instructions describe the
// policy the model enforces; the structured verdict shape is fixed.
func NewClassifier(name, instructions string, m model.Model) (*Classifier, error) {
	sm, err := schema.Reflect(verdict{})
	if err != nil {
		return nil, fmt.Errorf("reflect verdict schema: %w", err)
	}
	return &Classifier{name: name, instructions: instructions, m: m, schemaMap: sm}, nil
}

// Name implements Guardrail.
func (c *Classifier) Name() string { return c.name }

// Evaluate implements Guardrail by running one nested model call and
// validating its structured verdict.
func (c *Classifier) Evaluate(ctx context.Context, content string) (core.GuardrailDecision, error) {
	req := model.Request{
		Instructions: c.instructions,
		Items: []core.Item{
			core.MessageItem{Role: core.RoleUser, Text: content},
		},
		OutputSchema: c.schemaMap,
	}

	respCh, errCh := c.m.Generate(ctx, req)

	var final *model.Response
	for {
		select {
		case <-ctx.Done():
			return core.GuardrailDecision{}, ctx.Err()
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
			} else if !resp.Partial {
				r := resp
				final = &r
			}
		case err, ok := <-errCh:
			if ok && err != nil {
				return core.GuardrailDecision{}, fmt.Errorf("classifier model call: %w", err)
			}
			errCh = nil
		}
		if respCh == nil && errCh == nil {
			break
		}
	}

	if final == nil {
		return core.GuardrailDecision{}, fmt.Errorf("classifier produced no final response")
	}

	var v verdict
	if err := output.Into(final.Text, c.schemaMap, &v); err != nil {
		return core.GuardrailDecision{}, fmt.Errorf("classifier verdict invalid: %w", err)
	}

	return core.GuardrailDecision{Tripwire: v.Flagged, Rationale: v.Reasoning}, nil
}
