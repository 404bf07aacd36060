// Package agentrun provides a high-level façade over the execution runtime
// enabling rapid construction of agent applications. Most programs interact
// with this package by:
//  1. Defining agents via agent.New (model binding, tools, handoffs, guardrails)
//  2. Invoking them through Run (blocking) or RunStreamed (ordered event stream)
//
// The façade delegates orchestration to runner.Runner while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a structured logger and
// tuned limits via the runner options.
package agentrun

import (
	"context"

	"github.com/hupe1980/agentrun/agent"
	"github.com/hupe1980/agentrun/runner"
)

// Run executes a run to completion with default runner settings.
func Run(ctx context.Context, start *agent.Agent, input string, optFns ...func(o *runner.Options)) (*runner.RunResult, error) {
	return runner.New(optFns...).Run(ctx, start, input)
}

// RunStreamed starts a run with default runner settings and returns its
// event stream. The caller must consume the stream.
func RunStreamed(ctx context.Context, start *agent.Agent, input string, optFns ...func(o *runner.Options)) *runner.Stream {
	return runner.New(optFns...).RunStreamed(ctx, start, input)
}
