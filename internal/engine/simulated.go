package engine

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/tools"
)

// SimulatedBackend is a deterministic offline stand-in for a remote chat
// backend: one-shot calls echo the clipboard content back, and chat calls
// inspect the formats once and then finish. It keeps the full pipeline
// exercisable in development without a key.
type SimulatedBackend struct{}

func NewSimulatedBackend() *SimulatedBackend {
	return &SimulatedBackend{}
}

func (b *SimulatedBackend) Complete(_ context.Context, _ string, user string) (*Completion, error) {
	content := user
	if _, after, ok := strings.Cut(user, "Clipboard Content:"); ok {
		content = after
	}
	if before, _, ok := strings.Cut(content, "\nOutput:"); ok {
		content = before
	}
	content = strings.TrimSpace(content)
	return &Completion{
		Text:         content,
		FinishReason: FinishStop,
		Usage: Usage{
			PromptTokens:     int64(len(strings.Fields(user))),
			CompletionTokens: int64(len(strings.Fields(content))),
		},
	}, nil
}

func (b *SimulatedBackend) Chat(_ context.Context, messages []Message, defs []tools.Definition) (*Turn, error) {
	lastToolResult := ""
	sawToolResult := false
	for _, msg := range messages {
		if msg.Role == RoleTool {
			sawToolResult = true
			lastToolResult = msg.Content
		}
	}

	if !sawToolResult && hasTool(defs, tools.ToolGetClipboardFormats) {
		return &Turn{
			FinishReason: FinishToolCalls,
			ToolCalls: []ToolCall{{
				ID:        "sim_" + uuid.NewString(),
				Name:      tools.ToolGetClipboardFormats,
				Arguments: json.RawMessage("{}"),
			}},
		}, nil
	}

	text := "Clipboard checked; no changes were made."
	if strings.TrimSpace(lastToolResult) != "" {
		text = "Clipboard formats: " + strings.TrimSpace(lastToolResult)
	}
	return &Turn{Text: text, FinishReason: FinishStop}, nil
}

func hasTool(defs []tools.Definition, name string) bool {
	for _, d := range defs {
		if d.Name == name {
			return true
		}
	}
	return false
}
