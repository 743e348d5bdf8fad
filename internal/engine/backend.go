// Package engine orchestrates the three completion strategies over the
// clipboard snapshot: local streaming, cloud one-shot, and the agent
// tool-calling loop.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"

	"github.com/clipforge/clipforge/internal/tools"
)

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Normalized finish reasons shared across providers.
const (
	FinishStop      = "stop"
	FinishLength    = "length"
	FinishToolCalls = "tool_calls"
)

// ToolCall is a backend-requested tool invocation.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Message is one provider-agnostic chat message.
type Message struct {
	Role    Role
	Content string

	// ToolCalls is set on assistant messages requesting tool invocations.
	ToolCalls []ToolCall

	// ToolCallID links a tool message to the call it answers.
	ToolCallID string
	IsError    bool
}

// Usage is the token accounting for one backend call.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

// Completion is the outcome of a one-shot call.
type Completion struct {
	Text         string
	FinishReason string
	Usage        Usage
}

// Turn is one backend reply inside a chat conversation.
type Turn struct {
	Text         string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        Usage
}

// Backend is the remote (or simulated) chat-completion contract. Both
// methods are synchronous and honor ctx cancellation through the transport.
type Backend interface {
	// Complete runs a single prompt-in, text-out call.
	Complete(ctx context.Context, system string, user string) (*Completion, error)

	// Chat runs one conversation turn with the tool catalogue advertised.
	Chat(ctx context.Context, messages []Message, defs []tools.Definition) (*Turn, error)
}

// BackendOptions configures a provider-backed Backend.
type BackendOptions struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float64
	MaxOutputTokens int
}

// NewBackend constructs the backend for provider ("openai", "anthropic" or
// "simulated").
func NewBackend(provider string, opts BackendOptions) (Backend, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	switch provider {
	case "simulated":
		return NewSimulatedBackend(), nil
	case "openai", "anthropic":
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}

	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("missing provider api key")
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, errors.New("missing model")
	}
	if opts.MaxOutputTokens <= 0 {
		return nil, errors.New("missing max output tokens")
	}

	switch provider {
	case "openai":
		copts := []ooption.RequestOption{ooption.WithAPIKey(strings.TrimSpace(opts.APIKey))}
		if strings.TrimSpace(opts.BaseURL) != "" {
			copts = append(copts, ooption.WithBaseURL(strings.TrimSpace(opts.BaseURL)))
		}
		return &openAIBackend{client: openai.NewClient(copts...), opts: opts}, nil
	default:
		copts := []aoption.RequestOption{aoption.WithAPIKey(strings.TrimSpace(opts.APIKey))}
		if strings.TrimSpace(opts.BaseURL) != "" {
			copts = append(copts, aoption.WithBaseURL(strings.TrimSpace(opts.BaseURL)))
		}
		return &anthropicBackend{client: anthropic.NewClient(copts...), opts: opts}, nil
	}
}

// statusFromError extracts the remote HTTP status from a structured provider
// rejection. Anything else (network, parsing, unexpected) is a local error.
func statusFromError(err error) int {
	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return oaErr.StatusCode
	}
	var anErr *anthropic.Error
	if errors.As(err, &anErr) {
		return anErr.StatusCode
	}
	return StatusLocalError
}
