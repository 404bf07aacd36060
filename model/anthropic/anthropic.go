// Package anthropic provides a model wrapper for the Anthropic Claude API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/model"
)

// Options configures the Anthropic model adapter (temperature, model id,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Model wraps the Anthropic Messages API behind the generic model.Model interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// NewModel creates a new Anthropic model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Model{
		client: &client,
		opts:   opts,
	}
}

// NewModelFromClient creates a new Anthropic model from an existing client.
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{
		client: client,
		opts:   opts,
	}
}

// Generate implements unified generation over the Messages API.
//
// TODO: wire native streaming events; stream requests currently degrade to a
// single partial chunk followed by the final response.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := anthropic.MessageNewParams{
			Model:       m.opts.Model,
			Messages:    m.buildMessages(req.Items),
			MaxTokens:   m.opts.MaxTokens,
			Temperature: anthropic.Float(m.opts.Temperature),
		}

		if system := systemText(req); system != "" {
			params.System = []anthropic.TextBlockParam{{Text: system}}
		}

		if len(req.Tools) > 0 {
			params.Tools = m.buildTools(req.Tools)
		}

		resp, err := m.client.Messages.New(ctx, params)
		if err != nil {
			errCh <- fmt.Errorf("anthropic api error: %w", err)
			return
		}

		final := model.Response{FinishReason: "stop"}
		if resp.StopReason != "" {
			final.FinishReason = string(resp.StopReason)
		}
		final.Usage = &model.TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		}

		var textBuilder strings.Builder
		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				textBuilder.WriteString(block.AsText().Text)
			case "tool_use":
				toolBlock := block.AsToolUse()
				args := ""
				if toolBlock.Input != nil {
					if argsBytes, err := json.Marshal(toolBlock.Input); err == nil {
						args = string(argsBytes)
					}
				}
				final.ToolCalls = append(final.ToolCalls, model.ToolCall{
					ID:        toolBlock.ID,
					Name:      toolBlock.Name,
					Arguments: args,
				})
			}
		}
		final.Text = textBuilder.String()

		if req.Stream && final.Text != "" {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- model.Response{Partial: true, TextDelta: final.Text}:
			}
		}

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case out <- final:
		}
	}()

	return out, errCh
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

// buildMessages converts transcript items to Anthropic message format.
// Consecutive tool call items collapse into one assistant message; tool
// results ride in a user message as tool_result blocks, per the Messages API
// contract. Handoff markers are audit entries the provider never sees.
func (m *Model) buildMessages(items []core.Item) []anthropic.MessageParam {
	var messages []anthropic.MessageParam

	var pendingCalls []anthropic.ContentBlockParamUnion
	var pendingResults []anthropic.ContentBlockParamUnion
	flushCalls := func() {
		if len(pendingCalls) > 0 {
			messages = append(messages, anthropic.NewAssistantMessage(pendingCalls...))
			pendingCalls = nil
		}
	}
	flushResults := func() {
		if len(pendingResults) > 0 {
			messages = append(messages, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, item := range items {
		switch it := item.(type) {
		case core.MessageItem:
			if it.Role == core.RoleSystem {
				continue // handled via params.System
			}
			flushCalls()
			flushResults()
			if it.Text == "" {
				continue
			}
			if it.Role == core.RoleAssistant {
				messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(it.Text)))
			} else {
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(it.Text)))
			}
		case core.ToolCallItem:
			flushResults()
			var input interface{}
			if it.Arguments != "" {
				if err := json.Unmarshal([]byte(it.Arguments), &input); err != nil {
					input = it.Arguments // fallback to string
				}
			}
			pendingCalls = append(pendingCalls, anthropic.NewToolUseBlock(it.CallID, input, it.Name))
		case core.ToolResultItem:
			flushCalls()
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(it.CallID, resultText(it), it.Error != ""))
		case core.HandoffItem:
			// audit marker only
		}
	}
	flushCalls()
	flushResults()

	return messages
}

// resultText serializes a tool result (or error) for the tool_result block body.
func resultText(it core.ToolResultItem) string {
	if it.Error != "" {
		return it.Error
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

// buildTools converts tool definitions to Anthropic tool format.
func (m *Model) buildTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	anthropicTools := make([]anthropic.ToolUnionParam, len(tools))

	for i, t := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}

		if t.Parameters != nil {
			if properties, exists := t.Parameters["properties"]; exists {
				inputSchema.Properties = properties
			}
			if required, exists := t.Parameters["required"]; exists {
				switch req := required.(type) {
				case []string:
					inputSchema.Required = req
				case []interface{}:
					var reqStrings []string
					for _, r := range req {
						if s, ok := r.(string); ok {
							reqStrings = append(reqStrings, s)
						}
					}
					inputSchema.Required = reqStrings
				}
			}
		}

		anthropicTools[i] = anthropic.ToolUnionParamOfTool(inputSchema, t.Name)
	}

	return anthropicTools
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          string(m.opts.Model),
		Provider:      "anthropic",
		SupportsTools: true,
	}
}
