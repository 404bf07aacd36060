package guardrail

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/logging"
)

// FailurePolicy decides how the evaluator treats a guardrail whose own
// evaluation errors out (as opposed to deciding to block).
type FailurePolicy int

const (
	// FailOpen records a non-blocking allow with a logged warning. Chosen as
	// the default so a flaky safety check cannot collapse availability.
	FailOpen FailurePolicy = iota
	// FailClosed converts a guardrail failure into a tripwire.
	FailClosed
)

// Outcome aggregates one phase evaluation: every decision produced plus the
// combined block flag (logical OR over tripwires).
type Outcome struct {
	Decisions []core.GuardrailDecision
	Blocked   bool
}

// EvaluatorOptions configure an Evaluator.
type EvaluatorOptions struct {
	// FailurePolicy applied when a guardrail's own evaluation errors out.
	FailurePolicy FailurePolicy
	// Logger receives warnings for failed guardrails. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Evaluator runs every guardrail declared for a phase concurrently and
// combines their decisions. It never finalizes a phase on partial results:
// all pending decisions are awaited even after the first tripwire (callers
// that race the evaluator against a model call may still cancel that call
// early via FirstTripwire).
type Evaluator struct {
	policy FailurePolicy
	logger logging.Logger
}

// NewEvaluator constructs an Evaluator with optional overrides.
func NewEvaluator(optFns ...func(o *EvaluatorOptions)) *Evaluator {
	opts := EvaluatorOptions{
		FailurePolicy: FailOpen,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Evaluator{policy: opts.FailurePolicy, logger: opts.Logger}
}

// Evaluate runs all guardrails against content for the given phase and turn.
// Decisions are returned in guardrail declaration order regardless of
// completion order. The returned error is non-nil only for context
// cancellation; individual guardrail failures are absorbed per the policy.
//
// firstTripwire, when non-nil, is closed as soon as any guardrail trips,
// letting the caller cancel a concurrently running model call before the
// remaining decisions arrive.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	phase core.GuardrailPhase,
	turn int,
	content string,
	guardrails []Guardrail,
	firstTripwire chan<- struct{},
) (*Outcome, error) {
	if len(guardrails) == 0 {
		return &Outcome{}, nil
	}

	decisions := make([]core.GuardrailDecision, len(guardrails))
	tripped := make(chan struct{}, len(guardrails))

	g := new(errgroup.Group)
	for i, gr := range guardrails {
		g.Go(func() error {
			d, err := gr.Evaluate(ctx, content)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				d = e.failureDecision(gr.Name(), phase, err)
			}
			d.Guardrail = gr.Name()
			d.Phase = phase
			d.Turn = turn
			decisions[i] = d
			if d.Tripwire {
				tripped <- struct{}{}
			}
			return nil
		})
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- g.Wait() }()

	signalled := false
	for {
		select {
		case <-tripped:
			if !signalled && firstTripwire != nil {
				close(firstTripwire)
				signalled = true
			}
		case err := <-waitErr:
			if err != nil {
				return nil, err
			}
			outcome := &Outcome{Decisions: decisions}
			for _, d := range decisions {
				if d.Tripwire {
					outcome.Blocked = true
				}
			}
			if outcome.Blocked && !signalled && firstTripwire != nil {
				close(firstTripwire)
			}
			return outcome, nil
		}
	}
}

// failureDecision converts a guardrail's own failure into a decision per the
// configured policy.
func (e *Evaluator) failureDecision(name string, phase core.GuardrailPhase, err error) core.GuardrailDecision {
	if e.policy == FailClosed {
		e.logger.Warn("guardrail.failed.blocking", "guardrail", name, "phase", string(phase), "error", err.Error())
		return core.GuardrailDecision{Tripwire: true, Rationale: "guardrail evaluation failed: " + err.Error()}
	}
	e.logger.Warn("guardrail.failed.allowing", "guardrail", name, "phase", string(phase), "error", err.Error())
	return core.GuardrailDecision{Tripwire: false, Rationale: "guardrail evaluation failed (fail-open): " + err.Error()}
}
