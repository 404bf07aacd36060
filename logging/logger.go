// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. RunLogger adds run-scoped context and domain helpers for
// model calls, tool invocations, guardrail decisions and handoffs.
package logging

import (
	"log/slog"
	"time"
)

// Logger defines the minimal structured logging interface used by the runtime.
// Args follow the slog convention of alternating keys and values.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// RunLogger wraps a Logger with run-scoped attributes (run ID, active agent)
// that are attached to every entry. Copies returned by With* methods share
// the underlying logger; a nil logger is substituted with NoOpLogger.
type RunLogger struct {
	logger Logger
	runID  string
	agent  string
}

// NewRunLogger constructs a RunLogger bound to a run identifier.
func NewRunLogger(l Logger, runID string) *RunLogger {
	if l == nil {
		l = NoOpLogger{}
	}
	return &RunLogger{logger: l, runID: runID}
}

// WithAgent returns a copy scoped to the named active agent.
func (r *RunLogger) WithAgent(name string) *RunLogger {
	c := *r
	c.agent = name
	return &c
}

// Logger returns the underlying logger.
func (r *RunLogger) Logger() Logger { return r.logger }

func (r *RunLogger) attrs(args []any) []any {
	base := []any{"run_id", r.runID}
	if r.agent != "" {
		base = append(base, "agent", r.agent)
	}
	return append(base, args...)
}

// Debug logs at debug level with run context attached.
func (r *RunLogger) Debug(msg string, args ...any) { r.logger.Debug(msg, r.attrs(args)...) }

// Info logs at info level with run context attached.
func (r *RunLogger) Info(msg string, args ...any) { r.logger.Info(msg, r.attrs(args)...) }

// Warn logs at warn level with run context attached.
func (r *RunLogger) Warn(msg string, args ...any) { r.logger.Warn(msg, r.attrs(args)...) }

// Error logs at error level with run context attached.
func (r *RunLogger) Error(msg string, args ...any) { r.logger.Error(msg, r.attrs(args)...) }

// LogModelCall records model call latency and success.
func (r *RunLogger) LogModelCall(provider, model string, turn int, dur time.Duration, err error) {
	if err != nil {
		r.Error("model.call.failed", "provider", provider, "model", model, "turn", turn, "duration_ms", dur.Milliseconds(), "error", err.Error())
		return
	}
	r.Info("model.call.completed", "provider", provider, "model", model, "turn", turn, "duration_ms", dur.Milliseconds())
}

// LogToolCall records execution details for a tool invocation.
func (r *RunLogger) LogToolCall(tool, callID string, dur time.Duration, err error) {
	if err != nil {
		r.Warn("tool.call.failed", "tool", tool, "call_id", callID, "duration_ms", dur.Milliseconds(), "error", err.Error())
		return
	}
	r.Info("tool.call.completed", "tool", tool, "call_id", callID, "duration_ms", dur.Milliseconds())
}

// LogGuardrail records a guardrail decision.
func (r *RunLogger) LogGuardrail(name, phase string, tripwire bool, rationale string) {
	if tripwire {
		r.Warn("guardrail.tripwire", "guardrail", name, "phase", phase, "rationale", rationale)
		return
	}
	r.Debug("guardrail.allow", "guardrail", name, "phase", phase)
}

// LogHandoff records a control transfer between agents.
func (r *RunLogger) LogHandoff(from, to string, turn int) {
	r.Info("handoff", "from", from, "to", to, "turn", turn)
}
