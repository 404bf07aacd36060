// Package core defines the shared data model of the agent execution runtime:
// transcript items, audit records, run statuses, the error taxonomy and
// identifier generation. It has no dependency on the execution loop or on any
// model provider so every other package can import it freely.
package core

import "github.com/google/uuid"

// NewID generates a unique identifier for runs, tool calls and stream events.
func NewID() string { return uuid.NewString() }
