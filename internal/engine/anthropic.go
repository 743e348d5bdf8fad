package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/clipforge/clipforge/internal/tools"
)

type anthropicBackend struct {
	client anthropic.Client
	opts   BackendOptions
}

func (b *anthropicBackend) Complete(ctx context.Context, system string, user string) (*Completion, error) {
	if b == nil {
		return nil, errors.New("nil backend")
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(strings.TrimSpace(b.opts.Model)),
		MaxTokens:   int64(b.opts.MaxOutputTokens),
		Temperature: anthropic.Float(b.opts.Temperature),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	msg, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}
	return &Completion{
		Text:         collectAnthropicText(msg),
		FinishReason: mapAnthropicStop(msg.StopReason),
		Usage: Usage{
			PromptTokens:     msg.Usage.InputTokens,
			CompletionTokens: msg.Usage.OutputTokens,
		},
	}, nil
}

func (b *anthropicBackend) Chat(ctx context.Context, messages []Message, defs []tools.Definition) (*Turn, error) {
	if b == nil {
		return nil, errors.New("nil backend")
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(strings.TrimSpace(b.opts.Model)),
		MaxTokens: int64(b.opts.MaxOutputTokens),
		Messages:  buildAnthropicMessages(messages),
	}
	if system := collectSystemText(messages); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(defs) > 0 {
		params.Tools = buildAnthropicTools(defs)
	}

	msg, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	turn := &Turn{
		Text:         collectAnthropicText(msg),
		FinishReason: mapAnthropicStop(msg.StopReason),
		Usage: Usage{
			PromptTokens:     msg.Usage.InputTokens,
			CompletionTokens: msg.Usage.OutputTokens,
		},
	}
	for _, block := range msg.Content {
		tu, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok {
			continue
		}
		args := json.RawMessage(tu.Input)
		if len(strings.TrimSpace(string(args))) == 0 {
			args = json.RawMessage("{}")
		}
		turn.ToolCalls = append(turn.ToolCalls, ToolCall{ID: tu.ID, Name: tu.Name, Arguments: args})
	}
	if len(turn.ToolCalls) > 0 {
		turn.FinishReason = FinishToolCalls
	}
	return turn, nil
}

// buildAnthropicMessages converts the generic transcript. System messages
// are excluded here; the caller hoists them into the system parameter.
func buildAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolCalls)+1)
			if strings.TrimSpace(msg.Content) != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, call.Arguments, call.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		case RoleTool:
			out = append(out, anthropic.NewUserMessage(anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, msg.IsError)))
		}
	}
	return out
}

func buildAnthropicTools(defs []tools.Definition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		if strings.TrimSpace(def.Name) == "" {
			continue
		}
		required, _ := def.Schema["required"].([]string)
		param := anthropic.ToolParam{
			Name:        def.Name,
			Description: anthropic.String(def.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Type:       "object",
				Properties: def.Schema["properties"],
				Required:   required,
			},
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &param})
	}
	return out
}

func collectSystemText(messages []Message) string {
	parts := make([]string, 0, 1)
	for _, msg := range messages {
		if msg.Role != RoleSystem {
			continue
		}
		if txt := strings.TrimSpace(msg.Content); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, "\n\n")
}

func collectAnthropicText(msg *anthropic.Message) string {
	if msg == nil {
		return ""
	}
	parts := make([]string, 0, len(msg.Content))
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "")
}

func mapAnthropicStop(reason anthropic.StopReason) string {
	switch reason {
	case anthropic.StopReasonMaxTokens:
		return FinishLength
	case anthropic.StopReasonToolUse:
		return FinishToolCalls
	default:
		return FinishStop
	}
}
