package core

// Transcript is the ordered record of everything that happened during one
// run: messages, tool calls and results, handoff markers. Items are strictly
// ordered and appended exactly once; the turn counter increases monotonically
// with each model call and doubles as the loop-termination guard.
//
// A Transcript is owned exclusively by the execution loop of a single run and
// is not safe for concurrent mutation. Items() returns a defensive copy for
// safe hand-out to callers after completion.
type Transcript struct {
	items []Item
	turn  int
}

// NewTranscript creates an empty transcript at turn zero.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append adds an item to the end of the transcript.
func (t *Transcript) Append(items ...Item) {
	t.items = append(t.items, items...)
}

// Items returns a copy of all recorded items in order.
func (t *Transcript) Items() []Item {
	out := make([]Item, len(t.items))
	copy(out, t.items)
	return out
}

// Len returns the number of recorded items.
func (t *Transcript) Len() int { return len(t.items) }

// Turn returns the number of model calls issued so far.
func (t *Transcript) Turn() int { return t.turn }

// AdvanceTurn increments the turn counter and returns the new value.
// Called once per model call by the execution loop.
func (t *Transcript) AdvanceTurn() int {
	t.turn++
	return t.turn
}
