package agent

import "context"

// Provider supplies dynamic instruction text at run time. Implementations can
// derive instructions from the environment, time of day, per-run state, etc.
type Provider interface {
	Instructions(ctx context.Context) (string, error)
}

// ProviderFunc is a functional adapter to allow ordinary functions to be used
// as Providers.
type ProviderFunc func(ctx context.Context) (string, error)

// Instructions implements Provider.
func (f ProviderFunc) Instructions(ctx context.Context) (string, error) { return f(ctx) }

// Instruction represents either a static instruction string or a dynamic
// provider. This mirrors a union of string | provider in a Go-idiomatic way.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(ctx context.Context) (string, error)) Instruction {
	return Instruction{provider: ProviderFunc(f)}
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(ctx context.Context) (string, error) {
	if i.provider != nil {
		return i.provider.Instructions(ctx)
	}
	return i.text, nil
}
