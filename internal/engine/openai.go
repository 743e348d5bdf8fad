package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	openai "github.com/openai/openai-go"

	"github.com/clipforge/clipforge/internal/tools"
)

type openAIBackend struct {
	client openai.Client
	opts   BackendOptions
}

func (b *openAIBackend) Complete(ctx context.Context, system string, user string) (*Completion, error) {
	if b == nil {
		return nil, errors.New("nil backend")
	}
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(strings.TrimSpace(b.opts.Model)),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxTokens:   openai.Int(int64(b.opts.MaxOutputTokens)),
		Temperature: openai.Float(b.opts.Temperature),
	}
	completion, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("empty completion response")
	}
	choice := completion.Choices[0]
	return &Completion{
		Text:         choice.Message.Content,
		FinishReason: mapOpenAIFinish(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
		},
	}, nil
}

func (b *openAIBackend) Chat(ctx context.Context, messages []Message, defs []tools.Definition) (*Turn, error) {
	if b == nil {
		return nil, errors.New("nil backend")
	}
	params := openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(strings.TrimSpace(b.opts.Model)),
		Messages:  buildOpenAIMessages(messages),
		MaxTokens: openai.Int(int64(b.opts.MaxOutputTokens)),
	}
	if len(defs) > 0 {
		params.Tools = buildOpenAITools(defs)
	}

	completion, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("empty completion response")
	}
	choice := completion.Choices[0]

	turn := &Turn{
		Text:         choice.Message.Content,
		FinishReason: mapOpenAIFinish(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		args := strings.TrimSpace(tc.Function.Arguments)
		if args == "" {
			args = "{}"
		}
		turn.ToolCalls = append(turn.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(args),
		})
	}
	if len(turn.ToolCalls) > 0 {
		turn.FinishReason = FinishToolCalls
	}
	return turn, nil
}

func buildOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if strings.TrimSpace(msg.Content) != "" {
				assistant.Content.OfString = openai.String(msg.Content)
			}
			for _, call := range msg.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: call.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: string(call.Arguments),
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}
	return out
}

func buildOpenAITools(defs []tools.Definition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		if strings.TrimSpace(def.Name) == "" {
			continue
		}
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  openai.FunctionParameters(def.Schema),
			},
		})
	}
	return out
}

func mapOpenAIFinish(reason string) string {
	switch strings.ToLower(strings.TrimSpace(reason)) {
	case "length":
		return FinishLength
	case "tool_calls":
		return FinishToolCalls
	default:
		return FinishStop
	}
}
