// Package runner implements the turn-taking execution loop that drives an
// agent run: model calls, tool dispatch, handoff transfers, guardrail
// evaluation and structured output validation, with strict per-run limits.
// A Runner holds configuration only; every run is self-contained, so one
// Runner serves concurrent runs safely.
package runner

import (
	"context"

	"github.com/hupe1980/agentrun/agent"
	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/guardrail"
	"github.com/hupe1980/agentrun/logging"
)

// Options holds configuration overrides passed to New().
type Options struct {
	// MaxTurns caps model calls per run; exceeding it fails the run.
	MaxTurns int
	// MaxHandoffs caps control transfers per run; exceeding it fails the run.
	MaxHandoffs int
	// MaxParallelTools bounds concurrent tool executions within one turn.
	MaxParallelTools int
	// StrictTurns makes a response mixing a handoff with tool calls a
	// protocol violation. Default policy: the handoff wins and the turn's
	// tool calls are discarded.
	StrictTurns bool
	// GuardrailsConcurrent races input guardrails against the first model
	// call instead of completing them first. A tripwire cancels the
	// in-flight call; its answer is never used.
	GuardrailsConcurrent bool
	// GuardrailFailurePolicy decides how a guardrail's own failure is
	// treated. Defaults to fail-open with a logged warning.
	GuardrailFailurePolicy guardrail.FailurePolicy
	// Agents registers additional agents for resolving name-only handoff
	// references that are not reachable from the starting agent.
	Agents []*agent.Agent
	// Hooks are optional lifecycle observers.
	Hooks Hooks
	// Logger receives structured run logs. Defaults to NoOpLogger.
	Logger logging.Logger
	// StreamBufferSize sets event channel buffering for RunStreamed.
	StreamBufferSize int
}

// Runner executes agent runs. Construct once, share across goroutines.
type Runner struct {
	maxTurns         int
	maxHandoffs      int
	maxParallelTools int
	strictTurns      bool
	concurrentInput  bool
	registry         map[string]*agent.Agent
	hooks            Hooks
	logger           logging.Logger
	streamBuffer     int
	evaluator        *guardrail.Evaluator
}

// New constructs a Runner with optional overrides.
func New(optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxTurns:         10,
		MaxHandoffs:      5,
		MaxParallelTools: 4,
		Logger:           logging.NoOpLogger{},
		StreamBufferSize: 64,
	}

	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.MaxParallelTools <= 0 {
		opts.MaxParallelTools = 4
	}

	registry := make(map[string]*agent.Agent, len(opts.Agents))
	for _, a := range opts.Agents {
		registry[a.Name()] = a
	}

	return &Runner{
		maxTurns:         opts.MaxTurns,
		maxHandoffs:      opts.MaxHandoffs,
		maxParallelTools: opts.MaxParallelTools,
		strictTurns:      opts.StrictTurns,
		concurrentInput:  opts.GuardrailsConcurrent,
		registry:         registry,
		hooks:            opts.Hooks,
		logger:           opts.Logger,
		streamBuffer:     opts.StreamBufferSize,
		evaluator: guardrail.NewEvaluator(func(o *guardrail.EvaluatorOptions) {
			o.FailurePolicy = opts.GuardrailFailurePolicy
			o.Logger = opts.Logger
		}),
	}
}

// Run executes a run to completion and blocks until it ends. The result is
// always non-nil; the returned error mirrors result.Err (nil for completed
// and blocked runs).
func (r *Runner) Run(ctx context.Context, start *agent.Agent, input string) (*RunResult, error) {
	result := r.execute(ctx, start, input, nil)
	return result, result.Err
}

// RunAsync starts the run in a goroutine and returns a result channel and an
// error channel, each delivering at most one value before closing.
func (r *Runner) RunAsync(ctx context.Context, start *agent.Agent, input string) (<-chan *RunResult, <-chan error) {
	resultCh := make(chan *RunResult, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(resultCh)
		defer close(errCh)

		result := r.execute(ctx, start, input, nil)
		if result.Err != nil {
			errCh <- result.Err
		}
		resultCh <- result
	}()

	return resultCh, errCh
}

// RunStreamed starts the run and returns a Stream delivering ordered events
// as execution progresses, terminated by a run.completed event. The caller
// must consume the stream; delivery is backpressured.
func (r *Runner) RunStreamed(ctx context.Context, start *agent.Agent, input string) *Stream {
	stream := newStream(r.streamBuffer)

	go func() {
		result := r.execute(ctx, start, input, stream)
		stream.emit(ctx, Event{
			Type:   EventRunCompleted,
			RunID:  result.RunID,
			Agent:  result.LastAgent,
			Turn:   result.Turns,
			Result: result,
		})
		stream.finish(result, result.Err)
	}()

	return stream
}

// resolveAgents walks the handoff graph reachable from start, binding
// name-only references against discovered agents and the registry. Every
// reference must resolve before the first turn.
func (r *Runner) resolveAgents(start *agent.Agent) (map[string]*agent.Agent, error) {
	agents := make(map[string]*agent.Agent)
	for name, a := range r.registry {
		agents[name] = a
	}
	agents[start.Name()] = start

	queue := []*agent.Agent{start}
	visited := map[string]struct{}{start.Name(): {}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, h := range current.Handoffs() {
			target := h.Resolved()
			if target == nil {
				var ok bool
				target, ok = agents[h.Name()]
				if !ok {
					return nil, &core.UnresolvedHandoffError{Agent: current.Name(), Target: h.Name()}
				}
			}
			agents[target.Name()] = target
			if _, seen := visited[target.Name()]; !seen {
				visited[target.Name()] = struct{}{}
				queue = append(queue, target)
			}
		}
	}

	return agents, nil
}
