// Package tools is the fixed catalogue of clipboard operations advertised
// to a tool-calling chat backend and invocable directly by the host.
//
// The catalogue is an explicit registry keyed by stable string names; there
// is no reflection-based dispatch. Every tool reads the snapshot fresh at
// call time and writes back through the snapshot mutators only, with the
// mutation performed as the last step so a failing transformation leaves
// the snapshot untouched.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clipforge/clipforge/internal/clipboard"
	"github.com/clipforge/clipforge/internal/convert"
)

const (
	ToolGetClipboardFormats = "get_clipboard_formats"
	ToolTransformToJSON     = "transform_to_json"
	ToolTransformWithAI     = "transform_text_with_custom_instructions"
	ToolTransformToFile     = "transform_to_file"
)

// Completer runs a one-shot text transformation; the agent delegates the
// transform_text_with_custom_instructions tool to it.
type Completer interface {
	Complete(ctx context.Context, instructions string, text string) (string, error)
}

// FileArea materializes snapshot content to disk for paste-as-file.
type FileArea interface {
	WriteText(content string) (string, error)
	WriteImage(img *clipboard.Bitmap) (string, error)
}

// Definition describes one tool to a chat backend.
type Definition struct {
	Name        string
	Description string

	// Schema is the JSON Schema for the tool's arguments object.
	Schema map[string]any
}

type handlerFunc func(ctx context.Context, args json.RawMessage) (string, error)

// Surface is the tool registry bound to one snapshot.
type Surface struct {
	log       *slog.Logger
	snap      *clipboard.Snapshot
	files     FileArea
	completer Completer

	defs     []Definition
	handlers map[string]handlerFunc
}

// NewSurface builds the catalogue over snap. files and completer may be nil;
// the tools that need them fail at call time with a descriptive error, which
// the agent loop feeds back to the backend as a tool result.
func NewSurface(logger *slog.Logger, snap *clipboard.Snapshot, files FileArea, completer Completer) (*Surface, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if snap == nil {
		return nil, errors.New("missing snapshot")
	}

	s := &Surface{
		log:       logger,
		snap:      snap,
		files:     files,
		completer: completer,
		handlers:  make(map[string]handlerFunc),
	}

	emptySchema := map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}

	s.register(Definition{
		Name:        ToolGetClipboardFormats,
		Description: "Gets the list of data formats currently available on the clipboard.",
		Schema:      emptySchema,
	}, s.getFormats)
	s.register(Definition{
		Name:        ToolTransformToJSON,
		Description: "Transforms the clipboard text from XML or CSV to JSON.",
		Schema:      emptySchema,
	}, s.transformToJSON)
	s.register(Definition{
		Name:        ToolTransformWithAI,
		Description: "Transforms the clipboard text using AI with the given custom instructions.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"instructions": map[string]any{
					"type":        "string",
					"description": "The instructions describing how to transform the clipboard text.",
				},
			},
			"required": []string{"instructions"},
		},
	}, s.transformWithAI)
	s.register(Definition{
		Name:        ToolTransformToFile,
		Description: "Writes the clipboard text or image to a file and puts a reference to that file on the clipboard.",
		Schema:      emptySchema,
	}, s.transformToFile)

	return s, nil
}

func (s *Surface) register(def Definition, h handlerFunc) {
	s.defs = append(s.defs, def)
	s.handlers[def.Name] = h
}

// Definitions returns the catalogue in registration order.
func (s *Surface) Definitions() []Definition {
	if s == nil {
		return nil
	}
	return append([]Definition(nil), s.defs...)
}

// Invoke dispatches one tool call by name. The returned string is the tool
// result content to feed back into the conversation.
func (s *Surface) Invoke(ctx context.Context, name string, args json.RawMessage) (string, error) {
	if s == nil {
		return "", errors.New("nil tool surface")
	}
	name = strings.TrimSpace(name)
	h, ok := s.handlers[name]
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	s.log.Debug("tool call", "tool", name)
	out, err := h(ctx, args)
	if err != nil {
		s.log.Warn("tool call failed", "tool", name, "error", err)
		return "", err
	}
	return out, nil
}

func (s *Surface) getFormats(ctx context.Context, _ json.RawMessage) (string, error) {
	_ = ctx
	return s.formatsJSON()
}

func (s *Surface) transformToJSON(ctx context.Context, _ json.RawMessage) (string, error) {
	_ = ctx
	text, ok := s.snap.Text()
	if !ok {
		return "", errors.New("no text on the clipboard")
	}
	out, err := convert.ToJSON(text)
	if err != nil {
		return "", err
	}
	s.snap.SetText(out)
	return s.formatsJSON()
}

type transformWithAIArgs struct {
	Instructions string `json:"instructions"`
}

func (s *Surface) transformWithAI(ctx context.Context, args json.RawMessage) (string, error) {
	if s.completer == nil {
		return "", errors.New("no completion backend configured")
	}
	var in transformWithAIArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return "", fmt.Errorf("parse tool arguments: %w", err)
		}
	}
	instr := strings.TrimSpace(in.Instructions)
	if instr == "" {
		return "", errors.New("missing instructions")
	}
	text, ok := s.snap.Text()
	if !ok {
		return "", errors.New("no text on the clipboard")
	}
	out, err := s.completer.Complete(ctx, instr, text)
	if err != nil {
		return "", err
	}
	s.snap.SetText(out)
	return s.formatsJSON()
}

// transformToFile prefers text over image when both are present. Html and
// file content are not directly file-exportable.
func (s *Surface) transformToFile(ctx context.Context, _ json.RawMessage) (string, error) {
	_ = ctx
	if text, ok := s.snap.Text(); ok {
		path, err := s.writeText(text)
		if err != nil {
			return "", err
		}
		s.snap.SetStorageItems([]clipboard.FileRef{{Path: path, Kind: clipboard.FileKindFile}})
		return s.formatsJSON()
	}
	if img, ok := s.snap.Image(); ok {
		path, err := s.writeImage(img)
		if err != nil {
			return "", err
		}
		s.snap.SetStorageItems([]clipboard.FileRef{{Path: path, Kind: clipboard.FileKindFile}})
		return s.formatsJSON()
	}
	return "", errors.New("no text or image on the clipboard")
}

func (s *Surface) writeText(text string) (string, error) {
	if s.files == nil {
		return "", errors.New("no file area configured")
	}
	return s.files.WriteText(text)
}

func (s *Surface) writeImage(img *clipboard.Bitmap) (string, error) {
	if s.files == nil {
		return "", errors.New("no file area configured")
	}
	return s.files.WriteImage(img)
}

func (s *Surface) formatsJSON() (string, error) {
	b, err := json.Marshal(s.snap.FormatKinds())
	if err != nil {
		return "", err
	}
	return string(b), nil
}
