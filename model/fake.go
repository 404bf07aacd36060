package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentrun/core"
)

// FakeStep is one scripted model turn. Exactly one of Text or ToolCalls
// should be meaningful; a step may carry both to exercise mixed-response
// policies.
type FakeStep struct {
	Text      string
	ToolCalls []ToolCall
	Err       error
}

// FakeModel is a scripted in-memory Model for tests and examples. Each
// Generate call consumes the next step; once the script is exhausted the last
// step repeats, which makes runaway-loop scenarios easy to express with a
// single tool-calling step.
type FakeModel struct {
	info  Info
	steps []FakeStep

	mu       sync.Mutex
	next     int
	requests []Request
}

// NewFakeModel constructs a FakeModel that plays back the given steps.
func NewFakeModel(steps ...FakeStep) *FakeModel {
	return &FakeModel{
		info:  Info{Name: "fake", Provider: "fake", SupportsTools: true},
		steps: steps,
	}
}

// Requests returns a copy of every Request seen so far, in call order.
func (m *FakeModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns how many times Generate was invoked.
func (m *FakeModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Generate implements Model; emits optional streaming text chunks then the
// scripted final response.
func (m *FakeModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	idx := m.next
	if idx >= len(m.steps) {
		idx = len(m.steps) - 1
	} else {
		m.next++
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		if idx < 0 {
			errCh <- fmt.Errorf("fake model has no scripted steps")
			return
		}

		step := m.steps[idx]
		if step.Err != nil {
			errCh <- step.Err
			return
		}

		if req.Stream && step.Text != "" {
			for _, r := range step.Text {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, TextDelta: string(r)}:
				}
			}
		}

		final := Response{
			Text:         step.Text,
			ToolCalls:    step.ToolCalls,
			FinishReason: "stop",
		}
		if len(step.ToolCalls) > 0 {
			final.FinishReason = "tool_calls"
		}

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- final:
		}
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *FakeModel) Info() Info { return m.info }

// Transfer builds the reserved handoff tool call targeting the named agent,
// for use in scripted steps.
func Transfer(target string) ToolCall {
	return ToolCall{
		ID:        core.NewID(),
		Name:      "transfer_to_agent",
		Arguments: fmt.Sprintf(`{"agent":%q}`, target),
	}
}
