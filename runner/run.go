package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentrun/agent"
	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/guardrail"
	"github.com/hupe1980/agentrun/logging"
	"github.com/hupe1980/agentrun/model"
	"github.com/hupe1980/agentrun/output"
	"github.com/hupe1980/agentrun/tool"
)

// execution holds the mutable state of one run. It is confined to the
// goroutine driving the run; nothing here is shared.
type execution struct {
	r      *Runner
	runID  string
	log    *logging.RunLogger
	stream *Stream

	agents     map[string]*agent.Agent
	active     *agent.Agent
	input      string
	transcript *core.Transcript
	decisions  []core.GuardrailDecision
	handoffs   []core.HandoffRecord
	toolRecs   []core.ToolInvocationRecord
}

// evalResult pairs a guardrail phase outcome with its error for channel delivery.
type evalResult struct {
	outcome *guardrail.Outcome
	err     error
}

func (r *Runner) execute(ctx context.Context, start *agent.Agent, input string, stream *Stream) *RunResult {
	runID := core.NewID()

	e := &execution{
		r:          r,
		runID:      runID,
		log:        logging.NewRunLogger(r.logger, runID),
		stream:     stream,
		input:      input,
		transcript: core.NewTranscript(),
	}

	result := e.run(ctx, start)
	r.hooks.runEnd(ctx, result)
	return result
}

func (e *execution) run(ctx context.Context, start *agent.Agent) *RunResult {
	if start == nil {
		return e.finish(core.RunFailed, "", nil, &core.ConfigurationError{Reason: "starting agent must not be nil"})
	}
	e.active = start
	e.log = e.log.WithAgent(start.Name())

	agents, err := e.r.resolveAgents(start)
	if err != nil {
		return e.finish(core.RunFailed, "", nil, err)
	}
	e.agents = agents

	e.transcript.Append(core.MessageItem{Role: core.RoleUser, Text: e.input, Turn: 0})

	e.r.hooks.runStart(ctx, e.runID, start.Name(), e.input)
	e.emit(ctx, Event{Type: EventRunStarted, RunID: e.runID, Agent: start.Name()})
	e.log.Info("run.started")

	// Input guardrails: sequential by default, raced against the first model
	// call when configured. The race never finalizes on partial results; a
	// tripwire cancels the in-flight call so its answer is discarded unseen.
	var (
		inputOutcomeCh chan evalResult
		firstModelCtx  context.Context
	)
	if inputGs := start.InputGuardrails(); len(inputGs) > 0 {
		if e.r.concurrentInput {
			firstTrip := make(chan struct{})
			modelCtx, cancelModel := context.WithCancel(ctx)
			defer cancelModel()
			firstModelCtx = modelCtx

			inputOutcomeCh = make(chan evalResult, 1)
			go func() {
				o, evalErr := e.r.evaluator.Evaluate(ctx, core.GuardrailInput, 0, e.input, inputGs, firstTrip)
				inputOutcomeCh <- evalResult{outcome: o, err: evalErr}
			}()
			go func() {
				select {
				case <-firstTrip:
					cancelModel()
				case <-ctx.Done():
				}
			}()
		} else {
			o, evalErr := e.r.evaluator.Evaluate(ctx, core.GuardrailInput, 0, e.input, inputGs, nil)
			if evalErr != nil {
				return e.finish(core.RunFailed, "", nil, fmt.Errorf("input guardrails: %w", core.ErrCancelled))
			}
			e.recordDecisions(ctx, o.Decisions)
			if o.Blocked {
				return e.finish(core.RunBlocked, "", nil, nil)
			}
		}
	}

	for {
		if ctx.Err() != nil {
			return e.finish(core.RunFailed, "", nil, core.ErrCancelled)
		}
		if e.transcript.Turn() >= e.r.maxTurns {
			return e.finish(core.RunFailed, "", nil, core.ErrMaxTurnsExceeded)
		}
		turn := e.transcript.AdvanceTurn()

		instructions, err := e.active.Instructions().Resolve(ctx)
		if err != nil {
			return e.finish(core.RunFailed, "", nil, fmt.Errorf("resolve instructions for agent %q: %w", e.active.Name(), err))
		}

		req := model.Request{
			Instructions: instructions,
			Items:        e.transcript.Items(),
			Tools:        e.toolDefinitions(),
			OutputSchema: e.active.OutputSchema(),
			Stream:       e.stream != nil,
		}

		callCtx := ctx
		if turn == 1 && firstModelCtx != nil {
			callCtx = firstModelCtx
		}

		e.r.hooks.modelCall(ctx, e.active.Name(), turn)
		resp, genErr := e.generate(callCtx, turn, req)

		if turn == 1 && inputOutcomeCh != nil {
			ev := <-inputOutcomeCh
			if ev.err != nil {
				return e.finish(core.RunFailed, "", nil, fmt.Errorf("input guardrails: %w", core.ErrCancelled))
			}
			e.recordDecisions(ctx, ev.outcome.Decisions)
			if ev.outcome.Blocked {
				return e.finish(core.RunBlocked, "", nil, nil)
			}
		}

		if genErr != nil {
			if ctx.Err() != nil {
				return e.finish(core.RunFailed, "", nil, core.ErrCancelled)
			}
			return e.finish(core.RunFailed, "", nil, fmt.Errorf("model call failed: %w", genErr))
		}
		e.r.hooks.modelResponse(ctx, e.active.Name(), turn, resp)

		transfers, regular := splitToolCalls(resp.ToolCalls)

		switch {
		case len(transfers) > 0:
			if done := e.handleHandoff(ctx, turn, transfers, regular); done != nil {
				return done
			}

		case len(regular) > 0:
			if err := e.dispatchTools(ctx, turn, regular); err != nil {
				return e.finish(core.RunFailed, "", nil, err)
			}

		default:
			return e.handleFinal(ctx, turn, resp.Text)
		}
	}
}

// generate drives one model call, forwarding streaming deltas and returning
// the final response chunk.
func (e *execution) generate(ctx context.Context, turn int, req model.Request) (model.Response, error) {
	info := e.active.Model().Info()
	started := time.Now()

	respCh, errCh := e.active.Model().Generate(ctx, req)

	var final *model.Response
	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if resp.Partial {
				if resp.TextDelta != "" {
					e.emit(ctx, Event{Type: EventMessageDelta, RunID: e.runID, Agent: e.active.Name(), Turn: turn, TextDelta: resp.TextDelta})
				}
				continue
			}
			r := resp
			final = &r
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				e.log.LogModelCall(info.Provider, info.Name, turn, time.Since(started), err)
				return model.Response{}, err
			}
		}
	}

	if final == nil {
		err := &core.ProtocolViolationError{Agent: e.active.Name(), Reason: "model produced no final response"}
		e.log.LogModelCall(info.Provider, info.Name, turn, time.Since(started), err)
		return model.Response{}, err
	}

	e.log.LogModelCall(info.Provider, info.Name, turn, time.Since(started), nil)
	return *final, nil
}

// handleHandoff processes a transfer directive. Returns a terminal result on
// failure, nil to continue the loop under the new agent.
func (e *execution) handleHandoff(ctx context.Context, turn int, transfers, regular []model.ToolCall) *RunResult {
	if len(regular) > 0 && e.r.strictTurns {
		return e.finish(core.RunFailed, "", nil, &core.ProtocolViolationError{
			Agent:  e.active.Name(),
			Reason: "response mixes a handoff with tool calls",
		})
	}
	if len(transfers) > 1 && e.r.strictTurns {
		return e.finish(core.RunFailed, "", nil, &core.ProtocolViolationError{
			Agent:  e.active.Name(),
			Reason: "response carries multiple handoff directives",
		})
	}

	target, err := parseTransferTarget(transfers[0].Arguments)
	if err != nil {
		return e.finish(core.RunFailed, "", nil, &core.ProtocolViolationError{
			Agent:  e.active.Name(),
			Reason: fmt.Sprintf("malformed handoff directive: %v", err),
		})
	}

	if !e.active.CanHandoffTo(target) {
		return e.finish(core.RunFailed, "", nil, &core.UnauthorizedHandoffError{From: e.active.Name(), Target: target})
	}
	if len(e.handoffs) >= e.r.maxHandoffs {
		return e.finish(core.RunFailed, "", nil, core.ErrMaxHandoffsExceeded)
	}

	next, ok := e.agents[target]
	if !ok {
		// resolveAgents guarantees membership for declared targets
		return e.finish(core.RunFailed, "", nil, &core.UnresolvedHandoffError{Agent: e.active.Name(), Target: target})
	}

	rec := core.HandoffRecord{From: e.active.Name(), To: target, Turn: turn}
	e.handoffs = append(e.handoffs, rec)
	e.transcript.Append(core.HandoffItem{From: rec.From, To: rec.To, Turn: turn})

	e.log.LogHandoff(rec.From, rec.To, turn)
	e.r.hooks.handoff(ctx, rec.From, rec.To, turn)
	e.emit(ctx, Event{Type: EventHandoff, RunID: e.runID, Agent: rec.To, Turn: turn, Handoff: &rec})

	e.active = next
	e.log = e.log.WithAgent(target)
	return nil
}

// dispatchTools runs the turn's tool calls with bounded parallelism, records
// results in request order and feeds them back into the transcript. Tool
// failures never fail the run; only cancellation does.
func (e *execution) dispatchTools(ctx context.Context, turn int, calls []model.ToolCall) error {
	agentName := e.active.Name()

	for _, tc := range calls {
		item := core.ToolCallItem{CallID: tc.ID, Name: tc.Name, Arguments: tc.Arguments, Agent: agentName, Turn: turn}
		e.transcript.Append(item)
		e.r.hooks.toolCall(ctx, agentName, tc.Name, tc.ID)
		e.emit(ctx, Event{Type: EventToolCalled, RunID: e.runID, Agent: agentName, Turn: turn, ToolCall: &item})
	}

	type outcome struct {
		result any
		err    error
	}
	outcomes := make([]outcome, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.r.maxParallelTools)
	for i, tc := range calls {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			res, err := e.invokeTool(gctx, turn, tc)
			outcomes[i] = outcome{result: res, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.ErrCancelled
	}

	for i, tc := range calls {
		o := outcomes[i]
		item := core.ToolResultItem{CallID: tc.ID, Name: tc.Name, Agent: agentName, Turn: turn}
		rec := core.ToolInvocationRecord{CallID: tc.ID, Name: tc.Name, Arguments: tc.Arguments, Turn: turn}
		if o.err != nil {
			item.Error = o.err.Error()
			rec.Error = o.err.Error()
		} else {
			item.Result = o.result
			rec.Result = o.result
		}
		e.transcript.Append(item)
		e.toolRecs = append(e.toolRecs, rec)
		e.r.hooks.toolResult(ctx, agentName, tc.Name, tc.ID, o.result, o.err)
		e.emit(ctx, Event{Type: EventToolReturned, RunID: e.runID, Agent: agentName, Turn: turn, ToolResult: &item})
	}

	return nil
}

// invokeTool executes one tool call: lookup, argument decoding and schema
// validation, then the tool body with panic containment.
func (e *execution) invokeTool(ctx context.Context, turn int, tc model.ToolCall) (result any, err error) {
	t, ok := e.active.Tool(tc.Name)
	if !ok {
		return nil, tool.NewToolError(tc.Name, "unknown tool", tool.CodeUnknownTool)
	}

	args := map[string]any{}
	if strings.TrimSpace(tc.Arguments) != "" {
		if jsonErr := json.Unmarshal([]byte(tc.Arguments), &args); jsonErr != nil {
			return nil, tool.NewToolError(tc.Name, fmt.Sprintf("arguments are not valid JSON: %v", jsonErr), tool.CodeValidationError)
		}
	}

	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = tool.NewToolError(tc.Name, fmt.Sprintf("panic during execution: %v", p), tool.CodeExecutionError)
		}
	}()

	started := time.Now()
	toolCtx := core.NewToolContext(ctx, e.runID, tc.ID, e.active.Name(), turn)
	result, err = t.Call(toolCtx, args)
	e.log.LogToolCall(tc.Name, tc.ID, time.Since(started), err)
	return result, err
}

// handleFinal validates structured output, runs output guardrails and
// produces the terminal result for a content-bearing response.
func (e *execution) handleFinal(ctx context.Context, turn int, text string) *RunResult {
	e.transcript.Append(core.MessageItem{Role: core.RoleAssistant, Text: text, Agent: e.active.Name(), Turn: turn})

	var structured map[string]any
	if schema := e.active.OutputSchema(); schema != nil {
		obj, err := output.Validate(text, schema)
		if err != nil {
			return e.finish(core.RunFailed, "", nil, err)
		}
		structured = obj
	}

	if outputGs := e.active.OutputGuardrails(); len(outputGs) > 0 {
		o, err := e.r.evaluator.Evaluate(ctx, core.GuardrailOutput, turn, text, outputGs, nil)
		if err != nil {
			return e.finish(core.RunFailed, "", nil, fmt.Errorf("output guardrails: %w", core.ErrCancelled))
		}
		e.recordDecisions(ctx, o.Decisions)
		if o.Blocked {
			return e.finish(core.RunBlocked, "", nil, nil)
		}
	}

	return e.finish(core.RunCompleted, text, structured, nil)
}

func (e *execution) recordDecisions(ctx context.Context, decisions []core.GuardrailDecision) {
	for _, d := range decisions {
		e.decisions = append(e.decisions, d)
		e.log.LogGuardrail(d.Guardrail, string(d.Phase), d.Tripwire, d.Rationale)
		e.r.hooks.guardrailDecision(ctx, d)
		dc := d
		e.emit(ctx, Event{Type: EventGuardrailDecision, RunID: e.runID, Agent: e.active.Name(), Turn: d.Turn, Guardrail: &dc})
	}
}

// toolDefinitions exposes the active agent's tools to the model, plus the
// reserved transfer tool whenever the agent has handoff targets.
func (e *execution) toolDefinitions() []model.ToolDefinition {
	tools := e.active.Tools()
	defs := make([]model.ToolDefinition, 0, len(tools)+1)
	for _, t := range tools {
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	if names := e.active.HandoffNames(); len(names) > 0 {
		defs = append(defs, transferToolDefinition(names, e.agents))
	}
	return defs
}

func transferToolDefinition(names []string, agents map[string]*agent.Agent) model.ToolDefinition {
	var sb strings.Builder
	sb.WriteString("Transfer the conversation to another agent. Available agents:")
	for _, name := range names {
		sb.WriteString(" ")
		sb.WriteString(name)
		if a, ok := agents[name]; ok && a.Description() != "" {
			sb.WriteString(" (")
			sb.WriteString(a.Description())
			sb.WriteString(")")
		}
		sb.WriteString(";")
	}

	enum := make([]any, len(names))
	for i, name := range names {
		enum[i] = name
	}

	return model.ToolDefinition{
		Name:        tool.TransferToolName,
		Description: sb.String(),
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"agent": map[string]any{
					"type":        "string",
					"description": "Name of the agent to transfer to",
					"enum":        enum,
				},
			},
			"required":             []any{"agent"},
			"additionalProperties": false,
		},
	}
}

// splitToolCalls partitions a response's calls into transfer directives and
// regular tool calls, preserving order within each group.
func splitToolCalls(calls []model.ToolCall) (transfers, regular []model.ToolCall) {
	for _, tc := range calls {
		if tc.Name == tool.TransferToolName {
			transfers = append(transfers, tc)
		} else {
			regular = append(regular, tc)
		}
	}
	return transfers, regular
}

func parseTransferTarget(arguments string) (string, error) {
	var directive struct {
		Agent string `json:"agent"`
	}
	if err := json.Unmarshal([]byte(arguments), &directive); err != nil {
		return "", err
	}
	if directive.Agent == "" {
		return "", fmt.Errorf("missing agent name")
	}
	return directive.Agent, nil
}

func (e *execution) emit(ctx context.Context, ev Event) {
	if e.stream != nil {
		e.stream.emit(ctx, ev)
	}
}

func (e *execution) finish(status core.RunStatus, finalOutput string, structured map[string]any, err error) *RunResult {
	result := &RunResult{
		RunID:              e.runID,
		Status:             status,
		FinalOutput:        finalOutput,
		StructuredOutput:   structured,
		Transcript:         e.transcript.Items(),
		GuardrailDecisions: e.decisions,
		Handoffs:           e.handoffs,
		ToolInvocations:    e.toolRecs,
		Turns:              e.transcript.Turn(),
		Err:                err,
	}
	if e.active != nil {
		result.LastAgent = e.active.Name()
	}

	switch status {
	case core.RunCompleted:
		e.log.Info("run.completed", "turns", result.Turns)
	case core.RunBlocked:
		e.log.Warn("run.blocked", "turns", result.Turns)
	default:
		e.log.Error("run.failed", "turns", result.Turns, "error", errString(err))
	}

	return result
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
