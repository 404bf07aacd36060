package core

// Message roles used throughout the transcript.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Item represents one entry of a run's transcript. Concrete item types
// implement the unexported isItem marker enabling a closed set, so the
// execution loop can match exhaustively over every shape a turn may produce.
type Item interface{ isItem() }

// MessageItem is a role-attributed text message (caller input, agent output
// or an injected system note).
type MessageItem struct {
	Role  string `json:"role"`
	Text  string `json:"text"`
	Agent string `json:"agent,omitempty"` // authoring agent, empty for caller input
	Turn  int    `json:"turn"`
}

// isItem implements the Item interface for MessageItem.
func (MessageItem) isItem() {}

// ToolCallItem records a tool invocation requested by the model.
type ToolCallItem struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"` // serialized JSON as received from the model
	Agent     string `json:"agent"`
	Turn      int    `json:"turn"`
}

// isItem implements the Item interface for ToolCallItem.
func (ToolCallItem) isItem() {}

// ToolResultItem records the outcome of a previously requested tool call.
// Exactly one result item exists per call item, matched by CallID. Error is
// the surfaced failure message when the invocation did not produce a result;
// it is fed back into the model's context so it can self-correct.
type ToolResultItem struct {
	CallID string `json:"call_id"`
	Name   string `json:"name"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	Agent  string `json:"agent"`
	Turn   int    `json:"turn"`
}

// isItem implements the Item interface for ToolResultItem.
func (ToolResultItem) isItem() {}

// HandoffItem marks a control transfer between agents. It is an audit
// marker: providers never see it, the transcript before and after it is
// continuous for the destination agent.
type HandoffItem struct {
	From string `json:"from"`
	To   string `json:"to"`
	Turn int    `json:"turn"`
}

// isItem implements the Item interface for HandoffItem.
func (HandoffItem) isItem() {}
