package runner

import (
	"context"

	"github.com/hupe1980/agentrun/core"
)

// EventType discriminates stream events.
type EventType string

const (
	// EventRunStarted is emitted once, before the first model call.
	EventRunStarted EventType = "run.started"
	// EventMessageDelta carries an incremental chunk of assistant text.
	EventMessageDelta EventType = "message.delta"
	// EventToolCalled is emitted when a tool invocation begins.
	EventToolCalled EventType = "tool.called"
	// EventToolReturned is emitted when a tool invocation completes.
	EventToolReturned EventType = "tool.returned"
	// EventHandoff is emitted when control transfers between agents.
	EventHandoff EventType = "handoff"
	// EventGuardrailDecision is emitted once per guardrail decision.
	EventGuardrailDecision EventType = "guardrail.decision"
	// EventRunCompleted is the terminal event carrying the final result.
	EventRunCompleted EventType = "run.completed"
)

// Event is one entry of a streamed run. Exactly one payload field matching
// Type is populated; RunID, Agent and Turn are always set.
type Event struct {
	Type  EventType `json:"type"`
	RunID string    `json:"run_id"`
	Agent string    `json:"agent,omitempty"`
	Turn  int       `json:"turn"`

	TextDelta  string                  `json:"text_delta,omitempty"`
	ToolCall   *core.ToolCallItem      `json:"tool_call,omitempty"`
	ToolResult *core.ToolResultItem    `json:"tool_result,omitempty"`
	Handoff    *core.HandoffRecord     `json:"handoff,omitempty"`
	Guardrail  *core.GuardrailDecision `json:"guardrail,omitempty"`
	Result     *RunResult              `json:"result,omitempty"`
}

// Stream is the handle returned by RunStreamed: a finite, ordered event
// sequence followed by exactly one terminal result. Events must be consumed;
// an unread stream blocks the run once the buffer fills, until the run
// context is cancelled. A stream is not restartable.
type Stream struct {
	events chan Event
	done   chan struct{}

	result *RunResult
	err    error
}

func newStream(buffer int) *Stream {
	if buffer <= 0 {
		buffer = 64
	}
	return &Stream{
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
}

// Events returns the event channel. It is closed after the terminal
// run.completed event has been delivered.
func (s *Stream) Events() <-chan Event { return s.events }

// Result blocks until the run ends and returns the terminal result. Safe to
// call whether or not the events channel was drained first.
func (s *Stream) Result() (*RunResult, error) {
	<-s.done
	return s.result, s.err
}

// emit delivers an event, blocking until the consumer reads or the run
// context ends. An abandoned stream therefore never wedges the run: once the
// context is cancelled, undeliverable events are dropped and the run winds
// down through its normal cancellation path.
func (s *Stream) emit(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

// finish records the terminal result and closes the stream.
func (s *Stream) finish(result *RunResult, err error) {
	s.result = result
	s.err = err
	close(s.done)
	close(s.events)
}
