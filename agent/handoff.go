package agent

// Handoff declares a permitted delegation target. Because agents may
// reference each other mutually while remaining immutable after
// construction, a Handoff can hold either a resolved *Agent or just the
// target's name; name-only references are resolved against a registry when a
// run starts.
type Handoff struct {
	target *Agent
	name   string
}

// HandoffTo declares a handoff to an already constructed agent.
func HandoffTo(target *Agent) Handoff { return Handoff{target: target, name: target.Name()} }

// HandoffRef declares a handoff by agent name, resolved at run start.
func HandoffRef(name string) Handoff { return Handoff{name: name} }

// Name returns the target agent's name.
func (h Handoff) Name() string { return h.name }

// Resolved returns the target agent, or nil for a name-only reference.
func (h Handoff) Resolved() *Agent { return h.target }
