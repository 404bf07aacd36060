package runner

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrun/agent"
	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/guardrail"
	"github.com/hupe1980/agentrun/model"
	"github.com/hupe1980/agentrun/tool"
)

func weatherTool() tool.Tool {
	return tool.NewFunctionTool(
		"get_weather",
		"Fetch the current weather for a city.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{"type": "string"},
			},
			"required":             []any{"city"},
			"additionalProperties": false,
		},
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			return "Sunny in " + args["city"].(string) + ", 31°C", nil
		},
	)
}

func mustAgent(t *testing.T, name string, m model.Model, optFns ...func(o *agent.Options)) *agent.Agent {
	t.Helper()
	a, err := agent.New(name, m, optFns...)
	require.NoError(t, err)
	return a
}

func allowGuardrail(name string) guardrail.Guardrail {
	return guardrail.NewFunc(name, func(_ context.Context, _ string) (bool, string, error) {
		return false, "", nil
	})
}

func blockGuardrail(name, rationale string) guardrail.Guardrail {
	return guardrail.NewFunc(name, func(_ context.Context, _ string) (bool, string, error) {
		return true, rationale, nil
	})
}

func TestRun_Basic(t *testing.T) {
	m := model.NewFakeModel(model.FakeStep{Text: "Hello! How can I help?"})
	assistant := mustAgent(t, "Assistant", m)

	result, err := New().Run(context.Background(), assistant, "Hi")
	require.NoError(t, err)

	assert.Equal(t, core.RunCompleted, result.Status)
	assert.Equal(t, "Hello! How can I help?", result.FinalOutput)
	assert.Equal(t, 1, result.Turns)
	assert.Equal(t, "Assistant", result.LastAgent)
	assert.NotEmpty(t, result.RunID)

	require.Len(t, result.Transcript, 2)
	assert.Equal(t, "Hi", result.Transcript[0].(core.MessageItem).Text)
	assert.Equal(t, core.RoleAssistant, result.Transcript[1].(core.MessageItem).Role)
}

func TestRun_ToolRoundTrip(t *testing.T) {
	m := model.NewFakeModel(
		model.FakeStep{ToolCalls: []model.ToolCall{
			{ID: "call-1", Name: "get_weather", Arguments: `{"city":"Lahore"}`},
		}},
		model.FakeStep{Text: "It is sunny in Lahore at 31°C."},
	)
	forecaster := mustAgent(t, "WeatherAgent", m, func(o *agent.Options) {
		o.Tools = []tool.Tool{weatherTool()}
	})

	result, err := New().Run(context.Background(), forecaster, "What's the weather in Lahore?")
	require.NoError(t, err)

	assert.Equal(t, core.RunCompleted, result.Status)
	assert.Equal(t, 2, result.Turns)

	require.Len(t, result.ToolInvocations, 1)
	rec := result.ToolInvocations[0]
	assert.Equal(t, "call-1", rec.CallID)
	assert.Equal(t, "get_weather", rec.Name)
	assert.Equal(t, "Sunny in Lahore, 31°C", rec.Result)
	assert.Empty(t, rec.Error)

	// Second model call must see the tool result in its context.
	reqs := m.Requests()
	require.Len(t, reqs, 2)
	var sawResult bool
	for _, item := range reqs[1].Items {
		if res, ok := item.(core.ToolResultItem); ok {
			sawResult = true
			assert.Equal(t, "call-1", res.CallID)
			assert.Equal(t, "Sunny in Lahore, 31°C", res.Result)
		}
	}
	assert.True(t, sawResult)

	// The tool definition was exposed to the model.
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, "get_weather", reqs[0].Tools[0].Name)
}

func TestRun_UnknownToolContinues(t *testing.T) {
	m := model.NewFakeModel(
		model.FakeStep{ToolCalls: []model.ToolCall{
			{ID: "call-1", Name: "bogus_tool", Arguments: `{}`},
		}},
		model.FakeStep{Text: "Sorry, I cannot do that."},
	)
	assistant := mustAgent(t, "Assistant", m)

	result, err := New().Run(context.Background(), assistant, "Do something odd")
	require.NoError(t, err)

	assert.Equal(t, core.RunCompleted, result.Status)
	require.Len(t, result.ToolInvocations, 1)
	assert.Contains(t, result.ToolInvocations[0].Error, tool.CodeUnknownTool)

	var resultItem core.ToolResultItem
	for _, item := range result.Transcript {
		if res, ok := item.(core.ToolResultItem); ok {
			resultItem = res
		}
	}
	assert.Contains(t, resultItem.Error, "unknown tool")
}

func TestRun_ToolPanicContained(t *testing.T) {
	panicky := tool.NewFunctionTool("explode", "always panics", map[string]any{"type": "object"},
		func(_ *core.ToolContext, _ map[string]any) (any, error) {
			panic("boom")
		})

	m := model.NewFakeModel(
		model.FakeStep{ToolCalls: []model.ToolCall{{ID: "call-1", Name: "explode", Arguments: `{}`}}},
		model.FakeStep{Text: "That tool is broken."},
	)
	assistant := mustAgent(t, "Assistant", m, func(o *agent.Options) {
		o.Tools = []tool.Tool{panicky}
	})

	result, err := New().Run(context.Background(), assistant, "go")
	require.NoError(t, err)

	assert.Equal(t, core.RunCompleted, result.Status)
	require.Len(t, result.ToolInvocations, 1)
	assert.Contains(t, result.ToolInvocations[0].Error, "panic")
}

func TestRun_Handoff(t *testing.T) {
	urduModel := model.NewFakeModel(model.FakeStep{Text: "میں ٹھیک ہوں، شکریہ"})
	urduAgent := mustAgent(t, "UrduAgent", urduModel, func(o *agent.Options) {
		o.Instructions = agent.NewInstructionFromText("You only speak Urdu.")
	})

	triageModel := model.NewFakeModel(model.FakeStep{
		ToolCalls: []model.ToolCall{model.Transfer("UrduAgent")},
	})
	triage := mustAgent(t, "TriageAgent", triageModel, func(o *agent.Options) {
		o.Instructions = agent.NewInstructionFromText("Route by language.")
		o.Handoffs = []agent.Handoff{agent.HandoffTo(urduAgent)}
	})

	result, err := New().Run(context.Background(), triage, "آپ کیسے ہیں؟")
	require.NoError(t, err)

	assert.Equal(t, core.RunCompleted, result.Status)
	assert.Equal(t, "UrduAgent", result.LastAgent)
	assert.Equal(t, "میں ٹھیک ہوں، شکریہ", result.FinalOutput)

	require.Len(t, result.Handoffs, 1)
	assert.Equal(t, core.HandoffRecord{From: "TriageAgent", To: "UrduAgent", Turn: 1}, result.Handoffs[0])

	var sawMarker bool
	for _, item := range result.Transcript {
		if _, ok := item.(core.HandoffItem); ok {
			sawMarker = true
		}
	}
	assert.True(t, sawMarker)

	// The destination agent runs with its own instructions but the original
	// caller input intact.
	urduReqs := urduModel.Requests()
	require.Len(t, urduReqs, 1)
	assert.Equal(t, "You only speak Urdu.", urduReqs[0].Instructions)
	assert.Equal(t, "آپ کیسے ہیں؟", urduReqs[0].Items[0].(core.MessageItem).Text)

	// The triage model was offered the transfer tool.
	triageReqs := triageModel.Requests()
	require.Len(t, triageReqs[0].Tools, 1)
	assert.Equal(t, tool.TransferToolName, triageReqs[0].Tools[0].Name)
}

func TestRun_UnauthorizedHandoff(t *testing.T) {
	peer := mustAgent(t, "Peer", model.NewFakeModel(model.FakeStep{Text: "hi"}))

	m := model.NewFakeModel(model.FakeStep{
		ToolCalls: []model.ToolCall{model.Transfer("Stranger")},
	})
	triage := mustAgent(t, "TriageAgent", m, func(o *agent.Options) {
		o.Handoffs = []agent.Handoff{agent.HandoffTo(peer)}
	})

	result, err := New().Run(context.Background(), triage, "go")
	require.Error(t, err)

	assert.Equal(t, core.RunFailed, result.Status)
	var handoffErr *core.UnauthorizedHandoffError
	require.ErrorAs(t, result.Err, &handoffErr)
	assert.Equal(t, "TriageAgent", handoffErr.From)
	assert.Equal(t, "Stranger", handoffErr.Target)
	assert.Empty(t, result.Handoffs)
}

func TestRun_UnresolvedHandoffRef(t *testing.T) {
	m := model.NewFakeModel(model.FakeStep{Text: "hi"})
	triage := mustAgent(t, "TriageAgent", m, func(o *agent.Options) {
		o.Handoffs = []agent.Handoff{agent.HandoffRef("Ghost")}
	})

	result, err := New().Run(context.Background(), triage, "go")
	require.Error(t, err)

	assert.Equal(t, core.RunFailed, result.Status)
	var refErr *core.UnresolvedHandoffError
	require.ErrorAs(t, result.Err, &refErr)
	assert.Equal(t, "Ghost", refErr.Target)
	assert.Equal(t, 0, m.Calls(), "no model call before resolution")
}

func TestRun_LazyRefResolvesViaRegistry(t *testing.T) {
	specialistModel := model.NewFakeModel(model.FakeStep{Text: "resolved"})
	specialist := mustAgent(t, "Specialist", specialistModel)

	triageModel := model.NewFakeModel(model.FakeStep{
		ToolCalls: []model.ToolCall{model.Transfer("Specialist")},
	})
	triage := mustAgent(t, "TriageAgent", triageModel, func(o *agent.Options) {
		o.Handoffs = []agent.Handoff{agent.HandoffRef("Specialist")}
	})

	r := New(func(o *Options) {
		o.Agents = []*agent.Agent{specialist}
	})

	result, err := r.Run(context.Background(), triage, "go")
	require.NoError(t, err)
	assert.Equal(t, core.RunCompleted, result.Status)
	assert.Equal(t, "Specialist", result.LastAgent)
	assert.Equal(t, "resolved", result.FinalOutput)
}

func TestRun_MaxTurns(t *testing.T) {
	// A single tool-calling step repeats forever, simulating a runaway loop.
	m := model.NewFakeModel(model.FakeStep{ToolCalls: []model.ToolCall{
		{ID: "call-1", Name: "get_weather", Arguments: `{"city":"Lahore"}`},
	}})
	assistant := mustAgent(t, "Assistant", m, func(o *agent.Options) {
		o.Tools = []tool.Tool{weatherTool()}
	})

	r := New(func(o *Options) {
		o.MaxTurns = 3
	})

	result, err := r.Run(context.Background(), assistant, "loop forever")
	require.Error(t, err)

	assert.Equal(t, core.RunFailed, result.Status)
	assert.ErrorIs(t, result.Err, core.ErrMaxTurnsExceeded)
	assert.Equal(t, 3, result.Turns)
	assert.Equal(t, 3, m.Calls())
	assert.Len(t, result.ToolInvocations, 3, "every completed turn is recorded")
}

func TestRun_MaxHandoffs(t *testing.T) {
	modelA := model.NewFakeModel(model.FakeStep{ToolCalls: []model.ToolCall{model.Transfer("B")}})
	modelB := model.NewFakeModel(model.FakeStep{ToolCalls: []model.ToolCall{model.Transfer("A")}})

	a := mustAgent(t, "A", modelA, func(o *agent.Options) {
		o.Handoffs = []agent.Handoff{agent.HandoffRef("B")}
	})
	b := mustAgent(t, "B", modelB, func(o *agent.Options) {
		o.Handoffs = []agent.Handoff{agent.HandoffRef("A")}
	})

	r := New(func(o *Options) {
		o.Agents = []*agent.Agent{a, b}
	})

	result, err := r.Run(context.Background(), a, "ping pong")
	require.Error(t, err)

	assert.Equal(t, core.RunFailed, result.Status)
	assert.ErrorIs(t, result.Err, core.ErrMaxHandoffsExceeded)
	assert.Len(t, result.Handoffs, 5)
}

func TestRun_InputGuardrailBlocks(t *testing.T) {
	m := model.NewFakeModel(model.FakeStep{Text: "should never be used"})
	tutor := mustAgent(t, "MathTutor", m, func(o *agent.Options) {
		o.InputGuardrails = []guardrail.Guardrail{blockGuardrail("topic_check", "not a math question")}
	})

	result, err := New().Run(context.Background(), tutor, "Write me a poem.")
	require.NoError(t, err)

	assert.Equal(t, core.RunBlocked, result.Status)
	assert.Empty(t, result.FinalOutput)
	assert.Equal(t, 0, m.Calls(), "sequential mode never calls the model")

	require.Len(t, result.GuardrailDecisions, 1)
	d := result.GuardrailDecisions[0]
	assert.Equal(t, "topic_check", d.Guardrail)
	assert.Equal(t, core.GuardrailInput, d.Phase)
	assert.True(t, d.Tripwire)
	assert.Equal(t, "not a math question", d.Rationale)
}

func TestRun_InputGuardrailConcurrent(t *testing.T) {
	t.Run("tripwire discards the model answer", func(t *testing.T) {
		m := model.NewFakeModel(model.FakeStep{Text: "discarded answer"})
		tutor := mustAgent(t, "MathTutor", m, func(o *agent.Options) {
			o.InputGuardrails = []guardrail.Guardrail{blockGuardrail("topic_check", "off topic")}
		})

		r := New(func(o *Options) {
			o.GuardrailsConcurrent = true
		})

		result, err := r.Run(context.Background(), tutor, "Write me a poem.")
		require.NoError(t, err)

		assert.Equal(t, core.RunBlocked, result.Status)
		assert.Empty(t, result.FinalOutput)
	})

	t.Run("allow proceeds to completion", func(t *testing.T) {
		m := model.NewFakeModel(model.FakeStep{Text: "x^2 has derivative 2x"})
		tutor := mustAgent(t, "MathTutor", m, func(o *agent.Options) {
			o.InputGuardrails = []guardrail.Guardrail{allowGuardrail("topic_check")}
		})

		r := New(func(o *Options) {
			o.GuardrailsConcurrent = true
		})

		result, err := r.Run(context.Background(), tutor, "Derivative of x^2?")
		require.NoError(t, err)

		assert.Equal(t, core.RunCompleted, result.Status)
		assert.Equal(t, "x^2 has derivative 2x", result.FinalOutput)
		require.Len(t, result.GuardrailDecisions, 1)
		assert.False(t, result.GuardrailDecisions[0].Tripwire)
	})
}

func TestRun_OutputGuardrailBlocks(t *testing.T) {
	m := model.NewFakeModel(model.FakeStep{Text: "confidential data"})
	assistant := mustAgent(t, "Assistant", m, func(o *agent.Options) {
		o.OutputGuardrails = []guardrail.Guardrail{blockGuardrail("leak_check", "contains confidential data")}
	})

	result, err := New().Run(context.Background(), assistant, "tell me secrets")
	require.NoError(t, err)

	assert.Equal(t, core.RunBlocked, result.Status)
	assert.Empty(t, result.FinalOutput, "blocked output is withheld")

	require.Len(t, result.GuardrailDecisions, 1)
	assert.Equal(t, core.GuardrailOutput, result.GuardrailDecisions[0].Phase)

	// The transcript still records what the model produced.
	last := result.Transcript[len(result.Transcript)-1].(core.MessageItem)
	assert.Equal(t, "confidential data", last.Text)
}

func TestRun_StructuredOutput(t *testing.T) {
	type movieInfo struct {
		Title string `json:"title"`
		Year  int    `json:"year"`
	}

	t.Run("conforming payload", func(t *testing.T) {
		m := model.NewFakeModel(model.FakeStep{
			Text: "```json\n{\"title\":\"Inception\",\"year\":2010}\n```",
		})
		critic := mustAgent(t, "Critic", m, func(o *agent.Options) {
			o.OutputType = movieInfo{}
		})

		result, err := New().Run(context.Background(), critic, "Tell me about Inception")
		require.NoError(t, err)

		assert.Equal(t, core.RunCompleted, result.Status)
		require.NotNil(t, result.StructuredOutput)
		assert.Equal(t, "Inception", result.StructuredOutput["title"])

		var info movieInfo
		require.NoError(t, result.DecodeOutput(&info))
		assert.Equal(t, 2010, info.Year)

		// The schema rides on the model request.
		assert.NotNil(t, m.Requests()[0].OutputSchema)
	})

	t.Run("missing year fails the run", func(t *testing.T) {
		m := model.NewFakeModel(model.FakeStep{Text: `{"title":"Inception"}`})
		critic := mustAgent(t, "Critic", m, func(o *agent.Options) {
			o.OutputType = movieInfo{}
		})

		result, err := New().Run(context.Background(), critic, "Tell me about Inception")
		require.Error(t, err)

		assert.Equal(t, core.RunFailed, result.Status)
		var vErr *core.OutputValidationError
		require.ErrorAs(t, result.Err, &vErr)
		assert.Equal(t, `{"title":"Inception"}`, vErr.Raw)
		assert.Contains(t, vErr.Violation, "year")

		// Transcript keeps the rejected answer for diagnosis.
		last := result.Transcript[len(result.Transcript)-1].(core.MessageItem)
		assert.Equal(t, `{"title":"Inception"}`, last.Text)
	})
}

func TestRun_MixedHandoffAndToolCalls(t *testing.T) {
	newMixedSetup := func(t *testing.T) (*agent.Agent, *model.FakeModel) {
		specialist := mustAgent(t, "Specialist", model.NewFakeModel(model.FakeStep{Text: "handled"}))
		m := model.NewFakeModel(model.FakeStep{ToolCalls: []model.ToolCall{
			model.Transfer("Specialist"),
			{ID: "call-1", Name: "get_weather", Arguments: `{"city":"Lahore"}`},
		}})
		triage := mustAgent(t, "TriageAgent", m, func(o *agent.Options) {
			o.Tools = []tool.Tool{weatherTool()}
			o.Handoffs = []agent.Handoff{agent.HandoffTo(specialist)}
		})
		return triage, m
	}

	t.Run("default policy: handoff wins, tool calls discarded", func(t *testing.T) {
		triage, _ := newMixedSetup(t)

		result, err := New().Run(context.Background(), triage, "go")
		require.NoError(t, err)

		assert.Equal(t, core.RunCompleted, result.Status)
		assert.Equal(t, "Specialist", result.LastAgent)
		assert.Len(t, result.Handoffs, 1)
		assert.Empty(t, result.ToolInvocations)
	})

	t.Run("strict turns: protocol violation", func(t *testing.T) {
		triage, _ := newMixedSetup(t)

		r := New(func(o *Options) {
			o.StrictTurns = true
		})

		result, err := r.Run(context.Background(), triage, "go")
		require.Error(t, err)

		assert.Equal(t, core.RunFailed, result.Status)
		var pvErr *core.ProtocolViolationError
		require.ErrorAs(t, result.Err, &pvErr)
		assert.Equal(t, "TriageAgent", pvErr.Agent)
	})
}

func TestRun_Cancelled(t *testing.T) {
	m := model.NewFakeModel(model.FakeStep{Text: "never"})
	assistant := mustAgent(t, "Assistant", m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New().Run(ctx, assistant, "hi")
	require.Error(t, err)

	assert.Equal(t, core.RunFailed, result.Status)
	assert.ErrorIs(t, result.Err, core.ErrCancelled)
}

// silentModel closes both channels without ever producing a final chunk,
// breaking the Generate contract.
type silentModel struct{}

func (silentModel) Generate(_ context.Context, _ model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response)
	errCh := make(chan error)
	close(respCh)
	close(errCh)
	return respCh, errCh
}

func (silentModel) Info() model.Info {
	return model.Info{Name: "silent", Provider: "fake"}
}

func TestRun_NoFinalResponse(t *testing.T) {
	assistant := mustAgent(t, "Assistant", silentModel{})

	result, err := New().Run(context.Background(), assistant, "hi")
	require.Error(t, err)

	assert.Equal(t, core.RunFailed, result.Status)
	var pvErr *core.ProtocolViolationError
	require.ErrorAs(t, result.Err, &pvErr)
	assert.Equal(t, "Assistant", pvErr.Agent)
	assert.Contains(t, pvErr.Reason, "no final response")
}

func TestRunAsync(t *testing.T) {
	m := model.NewFakeModel(model.FakeStep{Text: "async answer"})
	assistant := mustAgent(t, "Assistant", m)

	resultCh, errCh := New().RunAsync(context.Background(), assistant, "hi")

	result := <-resultCh
	require.NotNil(t, result)
	assert.Equal(t, core.RunCompleted, result.Status)
	assert.Equal(t, "async answer", result.FinalOutput)
	assert.NoError(t, <-errCh)
}

func TestRunStreamed(t *testing.T) {
	t.Run("text deltas arrive in order", func(t *testing.T) {
		m := model.NewFakeModel(model.FakeStep{Text: "Hello!"})
		assistant := mustAgent(t, "Assistant", m)

		stream := New().RunStreamed(context.Background(), assistant, "hi")

		var events []Event
		for ev := range stream.Events() {
			events = append(events, ev)
		}

		require.NotEmpty(t, events)
		assert.Equal(t, EventRunStarted, events[0].Type)
		assert.Equal(t, EventRunCompleted, events[len(events)-1].Type)

		var text strings.Builder
		for _, ev := range events {
			if ev.Type == EventMessageDelta {
				text.WriteString(ev.TextDelta)
			}
		}
		assert.Equal(t, "Hello!", text.String())

		result, err := stream.Result()
		require.NoError(t, err)
		assert.Equal(t, "Hello!", result.FinalOutput)
		assert.Same(t, result, events[len(events)-1].Result)
	})

	t.Run("tool and handoff events", func(t *testing.T) {
		specialistModel := model.NewFakeModel(model.FakeStep{Text: "done"})
		specialist := mustAgent(t, "Specialist", specialistModel)

		m := model.NewFakeModel(
			model.FakeStep{ToolCalls: []model.ToolCall{
				{ID: "call-1", Name: "get_weather", Arguments: `{"city":"Lahore"}`},
			}},
			model.FakeStep{ToolCalls: []model.ToolCall{model.Transfer("Specialist")}},
		)
		triage := mustAgent(t, "TriageAgent", m, func(o *agent.Options) {
			o.Tools = []tool.Tool{weatherTool()}
			o.Handoffs = []agent.Handoff{agent.HandoffTo(specialist)}
		})

		stream := New().RunStreamed(context.Background(), triage, "go")

		counts := map[EventType]int{}
		for ev := range stream.Events() {
			counts[ev.Type]++
		}

		assert.Equal(t, 1, counts[EventRunStarted])
		assert.Equal(t, 1, counts[EventToolCalled])
		assert.Equal(t, 1, counts[EventToolReturned])
		assert.Equal(t, 1, counts[EventHandoff])
		assert.Equal(t, 1, counts[EventRunCompleted])

		result, err := stream.Result()
		require.NoError(t, err)
		assert.Equal(t, core.RunCompleted, result.Status)
	})

	t.Run("abandoned stream unblocks on cancellation", func(t *testing.T) {
		// A tool-calling step repeats forever; the stream is never consumed,
		// so the tiny buffer fills and event delivery backs up.
		m := model.NewFakeModel(model.FakeStep{ToolCalls: []model.ToolCall{
			{ID: "call-1", Name: "get_weather", Arguments: `{"city":"Lahore"}`},
		}})
		assistant := mustAgent(t, "Assistant", m, func(o *agent.Options) {
			o.Tools = []tool.Tool{weatherTool()}
		})

		r := New(func(o *Options) {
			o.MaxTurns = 1000
			o.StreamBufferSize = 1
		})

		ctx, cancel := context.WithCancel(context.Background())
		stream := r.RunStreamed(ctx, assistant, "loop forever")

		time.Sleep(20 * time.Millisecond)
		cancel()

		type terminal struct {
			result *RunResult
			err    error
		}
		done := make(chan terminal, 1)
		go func() {
			result, err := stream.Result()
			done <- terminal{result: result, err: err}
		}()

		select {
		case fin := <-done:
			require.Error(t, fin.err)
			assert.ErrorIs(t, fin.err, core.ErrCancelled)
			assert.Equal(t, core.RunFailed, fin.result.Status)
		case <-time.After(2 * time.Second):
			t.Fatal("run did not terminate after cancellation")
		}
	})
}

func TestRun_Hooks(t *testing.T) {
	m := model.NewFakeModel(
		model.FakeStep{ToolCalls: []model.ToolCall{
			{ID: "call-1", Name: "get_weather", Arguments: `{"city":"Lahore"}`},
		}},
		model.FakeStep{Text: "sunny"},
	)
	forecaster := mustAgent(t, "WeatherAgent", m, func(o *agent.Options) {
		o.Tools = []tool.Tool{weatherTool()}
	})

	var starts, modelCalls, toolCalls, toolResults, ends int
	var endStatus core.RunStatus

	r := New(func(o *Options) {
		o.Hooks = Hooks{
			OnRunStart:   func(_ context.Context, _, _, _ string) { starts++ },
			OnModelCall:  func(_ context.Context, _ string, _ int) { modelCalls++ },
			OnToolCall:   func(_ context.Context, _, _, _ string) { toolCalls++ },
			OnToolResult: func(_ context.Context, _, _, _ string, _ any, _ error) { toolResults++ },
			OnRunEnd: func(_ context.Context, result *RunResult) {
				ends++
				endStatus = result.Status
			},
		}
	})

	_, err := r.Run(context.Background(), forecaster, "weather?")
	require.NoError(t, err)

	assert.Equal(t, 1, starts)
	assert.Equal(t, 2, modelCalls)
	assert.Equal(t, 1, toolCalls)
	assert.Equal(t, 1, toolResults)
	assert.Equal(t, 1, ends)
	assert.Equal(t, core.RunCompleted, endStatus)
}

func TestRun_NilAgent(t *testing.T) {
	result, err := New().Run(context.Background(), nil, "hi")
	require.Error(t, err)

	assert.Equal(t, core.RunFailed, result.Status)
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, result.Err, &cfgErr)
}
