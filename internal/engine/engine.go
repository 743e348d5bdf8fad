package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/clipforge/clipforge/internal/clipboard"
	"github.com/clipforge/clipforge/internal/slm"
	"github.com/clipforge/clipforge/internal/telemetry"
	"github.com/clipforge/clipforge/internal/tools"
)

// Completion result statuses. Remote rejections carry their own HTTP status.
const (
	StatusOK         = 200
	StatusLocalError = -1
)

// Result is the outcome of a one-shot completion.
type Result struct {
	Text      string
	Status    int
	Usage     *Usage
	Truncated bool
}

func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Options configures an Engine.
type Options struct {
	Logger *slog.Logger

	// Provider selects the backend when Backend is nil: openai, anthropic
	// or simulated.
	Provider string
	APIKey   string
	BaseURL  string
	Model    string

	Temperature     float64
	MaxOutputTokens int
	MaxToolRounds   int

	// Backend overrides provider-based construction. Used for the offline
	// simulated path and in tests.
	Backend Backend

	// Runner is the local inference backend for the streaming strategy.
	// Optional; local streaming fails with an error when absent.
	Runner slm.Runner

	Snapshot *clipboard.Snapshot
	Files    tools.FileArea
	Sink     telemetry.Sink
}

// Engine owns the three completion strategies and the single-active-stream
// policy. It also implements the tool surface's Completer so the agent can
// delegate text transformations back to the one-shot strategy.
type Engine struct {
	log     *slog.Logger
	model   string
	rounds  int
	runner  slm.Runner
	surface *tools.Surface
	sink    telemetry.Sink

	// newBackend rebuilds the backend on SetAPIKey; nil when the backend
	// is injected or keyless.
	newBackend func(apiKey string) (Backend, error)

	mu      sync.Mutex
	backend Backend
	active  *StreamingSession
}

func New(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Snapshot == nil {
		return nil, errors.New("missing snapshot")
	}
	sink := opts.Sink
	if sink == nil {
		sink = telemetry.NopSink{}
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = 2000
	}
	rounds := opts.MaxToolRounds
	if rounds <= 0 {
		rounds = 10
	}

	e := &Engine{
		log:    logger,
		model:  strings.TrimSpace(opts.Model),
		rounds: rounds,
		runner: opts.Runner,
		sink:   sink,
	}

	surface, err := tools.NewSurface(logger, opts.Snapshot, opts.Files, e)
	if err != nil {
		return nil, err
	}
	e.surface = surface

	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	switch {
	case opts.Backend != nil:
		e.backend = opts.Backend
	case provider == "simulated":
		e.backend = NewSimulatedBackend()
	default:
		backendOpts := BackendOptions{
			BaseURL:         opts.BaseURL,
			Model:           opts.Model,
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxOutputTokens,
		}
		e.newBackend = func(apiKey string) (Backend, error) {
			bo := backendOpts
			bo.APIKey = apiKey
			return NewBackend(provider, bo)
		}
		if key := strings.TrimSpace(opts.APIKey); key != "" {
			backend, err := e.newBackend(key)
			if err != nil {
				return nil, err
			}
			e.backend = backend
		}
	}

	return e, nil
}

// Surface exposes the tool catalogue for direct invocation by the host.
func (e *Engine) Surface() *tools.Surface {
	if e == nil {
		return nil
	}
	return e.surface
}

// Enabled reports whether a completion backend is available. Absence of a
// credential is a state, not an error; callers check this before any call.
func (e *Engine) Enabled() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backend != nil
}

// SetAPIKey replaces the backend credential at runtime. An empty key
// disables the engine.
func (e *Engine) SetAPIKey(apiKey string) error {
	if e == nil {
		return errors.New("nil engine")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.newBackend == nil {
		return errors.New("backend does not use an api key")
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		e.backend = nil
		return nil
	}
	backend, err := e.newBackend(apiKey)
	if err != nil {
		return err
	}
	e.backend = backend
	return nil
}

func (e *Engine) currentBackend() Backend {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backend
}

// RunCloudCompletion executes the one-shot strategy: a single deterministic
// call over the given clipboard text. It never returns an error; failures
// are folded into the result status.
func (e *Engine) RunCloudCompletion(ctx context.Context, instructions string, text string) Result {
	if e == nil {
		return Result{Status: StatusLocalError}
	}
	backend := e.currentBackend()
	if backend == nil {
		e.log.Warn("completion requested without a configured backend")
		return Result{Status: StatusLocalError}
	}

	comp, err := backend.Complete(ctx, reformatSystemPrompt, cloudUserPrompt(instructions, text))
	if err != nil {
		status := statusFromError(err)
		e.log.Error("cloud completion failed", "status", status, "error", err)
		e.sink.Emit(telemetry.Event{Kind: telemetry.KindError, Model: e.model, Error: err.Error()})
		return Result{Status: status}
	}

	res := Result{
		Text:   comp.Text,
		Status: StatusOK,
		Usage:  &Usage{PromptTokens: comp.Usage.PromptTokens, CompletionTokens: comp.Usage.CompletionTokens},
	}
	if comp.FinishReason == FinishLength {
		// Truncation is diagnostic, not a failure: the partial output is
		// still usable clipboard content.
		res.Truncated = true
		e.log.Warn("completion truncated by output token limit", "model", e.model)
		e.sink.Emit(telemetry.Event{Kind: telemetry.KindTruncated, Model: e.model})
	}
	e.sink.Emit(telemetry.Event{
		Kind:             telemetry.KindCompletion,
		Model:            e.model,
		PromptTokens:     comp.Usage.PromptTokens,
		CompletionTokens: comp.Usage.CompletionTokens,
	})
	return res
}

// Complete adapts the one-shot strategy to the tool surface contract.
func (e *Engine) Complete(ctx context.Context, instructions string, text string) (string, error) {
	res := e.RunCloudCompletion(ctx, instructions, text)
	if !res.OK() {
		return "", fmt.Errorf("completion failed (status %d)", res.Status)
	}
	return res.Text, nil
}

// RunAgentCompletion drives the bounded tool-calling loop. The returned
// string is untrusted conversational text: loop failures are reported as
// the answer itself rather than propagated.
func (e *Engine) RunAgentCompletion(ctx context.Context, instructions string) string {
	if e == nil {
		return "engine unavailable"
	}
	backend := e.currentBackend()
	if backend == nil {
		e.log.Warn("agent completion requested without a configured backend")
		return "no completion backend configured"
	}

	// Each invocation starts a fresh conversation; nothing carries over
	// from earlier calls.
	history := []Message{
		{Role: RoleSystem, Content: agentSystemPrompt},
		{Role: RoleUser, Content: instructions},
	}
	defs := e.surface.Definitions()
	var usage Usage

	for round := 0; round < e.rounds; round++ {
		turn, err := backend.Chat(ctx, history, defs)
		if err != nil {
			e.log.Error("agent turn failed", "round", round, "error", err)
			e.sink.Emit(telemetry.Event{Kind: telemetry.KindError, Model: e.model, Error: err.Error()})
			return err.Error()
		}
		usage.PromptTokens += turn.Usage.PromptTokens
		usage.CompletionTokens += turn.Usage.CompletionTokens

		if len(turn.ToolCalls) == 0 {
			e.sink.Emit(telemetry.Event{
				Kind:             telemetry.KindCompletion,
				Model:            e.model,
				PromptTokens:     usage.PromptTokens,
				CompletionTokens: usage.CompletionTokens,
			})
			return turn.Text
		}

		history = append(history, Message{Role: RoleAssistant, Content: turn.Text, ToolCalls: turn.ToolCalls})
		for _, call := range turn.ToolCalls {
			out, err := e.surface.Invoke(ctx, call.Name, call.Arguments)
			content := out
			isError := false
			if err != nil {
				content = err.Error()
				isError = true
			}
			history = append(history, Message{
				Role:       RoleTool,
				Content:    content,
				ToolCallID: call.ID,
				IsError:    isError,
			})
		}
	}

	e.log.Warn("agent loop hit the tool call round limit", "rounds", e.rounds)
	e.sink.Emit(telemetry.Event{Kind: telemetry.KindAgentLimit, Model: e.model})
	return fmt.Sprintf("the request was stopped after %d tool call rounds without completing", e.rounds)
}
