// Package openai provides an implementation of model.Model using the OpenAI
// Chat Completions API (including streaming + function/tool calling). It
// adapts the normalized Request/Response structures into the SDK's message
// format and back.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/model"
)

// aggCall aggregates partial tool call streaming deltas (id, name, arguments)
// allowing reconstruction of complete calls when the finish reason arrives.
type aggCall struct{ id, name, args string }

// Options configure the OpenAI model adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	client := openai.NewClient()
	return NewModelFromClient(&client, optFns...)
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Generate implements unified streaming / non-streaming generation.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		params := m.buildParams(req, buildMessages(req))
		if req.Stream {
			m.handleStreaming(ctx, params, out, errCh)
			return
		}
		m.handleNonStreaming(ctx, params, out, errCh)
	}()
	return out, errCh
}

// buildMessages converts transcript items into OpenAI chat messages.
// Consecutive tool call items collapse into one assistant message; result
// items become tool messages matched by call ID; handoff markers are audit
// entries the provider never sees.
func buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion

	if instructions := systemText(req); instructions != "" {
		messages = append(messages, openai.SystemMessage(instructions))
	}

	var pendingCalls []openai.ChatCompletionMessageToolCallParam
	flushCalls := func() {
		if len(pendingCalls) == 0 {
			return
		}
		messages = append(messages, openai.ChatCompletionMessageParamUnion{
			OfAssistant: &openai.ChatCompletionAssistantMessageParam{
				Role:      "assistant",
				ToolCalls: pendingCalls,
			},
		})
		pendingCalls = nil
	}

	for _, item := range req.Items {
		switch it := item.(type) {
		case core.MessageItem:
			flushCalls()
			switch it.Role {
			case core.RoleSystem:
				messages = append(messages, openai.SystemMessage(it.Text))
			case core.RoleAssistant:
				messages = append(messages, openai.AssistantMessage(it.Text))
			default:
				messages = append(messages, openai.UserMessage(it.Text))
			}
		case core.ToolCallItem:
			pendingCalls = append(pendingCalls, openai.ChatCompletionMessageToolCallParam{
				ID:   it.CallID,
				Type: "function",
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      it.Name,
					Arguments: it.Arguments,
				},
			})
		case core.ToolResultItem:
			flushCalls()
			messages = append(messages, openai.ToolMessage(resultText(it), it.CallID))
		case core.HandoffItem:
			// audit marker only
		}
	}
	flushCalls()

	return messages
}

// systemText combines the agent instructions with the structured output
// directive when a schema is set.
func systemText(req model.Request) string {
	if req.OutputSchema == nil {
		return req.Instructions
	}
	schemaJSON, err := json.Marshal(req.OutputSchema)
	if err != nil {
		return req.Instructions
	}
	var sb strings.Builder
	sb.WriteString(req.Instructions)
	if sb.Len() > 0 {
		sb.WriteString("\n\n")
	}
	sb.WriteString("Respond with a single JSON object conforming to this JSON Schema, with no surrounding prose:\n")
	sb.Write(schemaJSON)
	return sb.String()
}

// resultText serializes a tool result (or error) for the tool message body.
func resultText(it core.ToolResultItem) string {
	if it.Error != "" {
		return fmt.Sprintf(`{"error":%q}`, it.Error)
	}
	if s, ok := it.Result.(string); ok {
		return s
	}
	buf, err := json.Marshal(it.Result)
	if err != nil {
		return fmt.Sprintf("%v", it.Result)
	}
	return string(buf)
}

// buildParams assembles the OpenAI request parameters including tool definitions.
func (m *Model) buildParams(
	req model.Request,
	messages []openai.ChatCompletionMessageParamUnion,
) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}
	if len(req.Tools) == 0 {
		return params
	}
	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Name,
				Description: openai.String(tdef.Description),
				Parameters:  tdef.Parameters,
			},
		}
	}
	params.Tools = tools
	return params
}

// handleStreaming processes streaming responses and forwards partial / final chunks.
func (m *Model) handleStreaming(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
	out chan<- model.Response,
	errCh chan<- error,
) {
	stream := m.client.Chat.Completions.NewStreaming(ctx, params)

	var textBuilder strings.Builder
	toolAgg := map[int64]*aggCall{}
	var toolOrder []int64

	for stream.Next() {
		ck := stream.Current()
		for _, ch := range ck.Choices {
			if ch.Delta.Content != "" {
				textBuilder.WriteString(ch.Delta.Content)
				out <- model.Response{Partial: true, TextDelta: ch.Delta.Content}
			}
			for _, tc := range ch.Delta.ToolCalls {
				ac, ok := toolAgg[tc.Index]
				if !ok {
					ac = &aggCall{}
					toolAgg[tc.Index] = ac
					toolOrder = append(toolOrder, tc.Index)
				}
				if tc.ID != "" {
					ac.id = tc.ID
				}
				if tc.Function.Name != "" {
					ac.name = tc.Function.Name
				}
				if tc.Function.Arguments != "" {
					ac.args += tc.Function.Arguments
				}
			}
			if ch.FinishReason != "" {
				final := model.Response{
					Text:         textBuilder.String(),
					FinishReason: ch.FinishReason,
				}
				for _, idx := range toolOrder {
					ac := toolAgg[idx]
					final.ToolCalls = append(final.ToolCalls, model.ToolCall{
						ID:        ac.id,
						Name:      ac.name,
						Arguments: ac.args,
					})
				}
				out <- final
			}
		}
	}
	if err := stream.Err(); err != nil {
		errCh <- fmt.Errorf("openai streaming error: %w", err)
	}
}

// handleNonStreaming processes a normal (non-streaming) completion.
func (m *Model) handleNonStreaming(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
	out chan<- model.Response,
	errCh chan<- error,
) {
	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		errCh <- fmt.Errorf("openai api error: %w", err)
		return
	}
	if len(resp.Choices) == 0 {
		errCh <- fmt.Errorf("no choices returned")
		return
	}
	ch0 := resp.Choices[0]

	final := model.Response{
		Text:         ch0.Message.Content,
		FinishReason: ch0.FinishReason,
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	for _, tc := range ch0.Message.ToolCalls {
		final.ToolCalls = append(final.ToolCalls, model.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	out <- final
}

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
	}
}
