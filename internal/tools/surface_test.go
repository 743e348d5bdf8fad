package tools

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clipforge/clipforge/internal/clipboard"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

type stubCompleter struct {
	out string
	err error

	gotInstructions string
	gotText         string
}

func (c *stubCompleter) Complete(_ context.Context, instructions string, text string) (string, error) {
	c.gotInstructions = instructions
	c.gotText = text
	if c.err != nil {
		return "", c.err
	}
	return c.out, nil
}

func newTestSurface(t *testing.T, snap *clipboard.Snapshot, completer Completer) *Surface {
	t.Helper()
	s, err := NewSurface(testLogger(), snap, NewTempFileArea(t.TempDir()), completer)
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}
	return s
}

func TestSurface_Catalogue(t *testing.T) {
	t.Parallel()

	s := newTestSurface(t, clipboard.NewSnapshot(), nil)
	defs := s.Definitions()
	want := []string{
		ToolGetClipboardFormats,
		ToolTransformToJSON,
		ToolTransformWithAI,
		ToolTransformToFile,
	}
	if len(defs) != len(want) {
		t.Fatalf("definitions=%d, want %d", len(defs), len(want))
	}
	for i, d := range defs {
		if d.Name != want[i] {
			t.Fatalf("definitions[%d]=%q, want %q", i, d.Name, want[i])
		}
		if strings.TrimSpace(d.Description) == "" {
			t.Fatalf("tool %q has no description", d.Name)
		}
		if d.Schema["type"] != "object" {
			t.Fatalf("tool %q schema type=%v", d.Name, d.Schema["type"])
		}
	}
}

func TestSurface_GetClipboardFormats(t *testing.T) {
	t.Parallel()

	snap := clipboard.NewSnapshot()
	snap.SetText("hello")
	snap.SetImage(&clipboard.Bitmap{Pix: make([]byte, 4), Width: 1, Height: 1, Stride: 4})

	s := newTestSurface(t, snap, nil)
	out, err := s.Invoke(context.Background(), ToolGetClipboardFormats, nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	var kinds []string
	if err := json.Unmarshal([]byte(out), &kinds); err != nil {
		t.Fatalf("result not JSON: %v", err)
	}
	if len(kinds) != 2 || kinds[0] != "Text" || kinds[1] != "Image" {
		t.Fatalf("kinds=%v, want [Text Image]", kinds)
	}
}

func TestSurface_TransformToJSON(t *testing.T) {
	t.Parallel()

	snap := clipboard.NewSnapshot()
	snap.SetText("a,b\n1,2\n")

	s := newTestSurface(t, snap, nil)
	if _, err := s.Invoke(context.Background(), ToolTransformToJSON, nil); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	text, _ := snap.Text()
	if !strings.Contains(text, `"a": "1"`) {
		t.Fatalf("text=%q, want JSON object rows", text)
	}
}

func TestSurface_TransformToJSON_FailureLeavesSnapshot(t *testing.T) {
	t.Parallel()

	snap := clipboard.NewSnapshot()
	snap.SetText("just a sentence, nothing tabular")

	s := newTestSurface(t, snap, nil)
	if _, err := s.Invoke(context.Background(), ToolTransformToJSON, nil); err == nil {
		t.Fatalf("Invoke on prose succeeded")
	}
	text, _ := snap.Text()
	if text != "just a sentence, nothing tabular" {
		t.Fatalf("text=%q, want original preserved", text)
	}
}

func TestSurface_TransformWithAI(t *testing.T) {
	t.Parallel()

	snap := clipboard.NewSnapshot()
	snap.SetText("hola")
	completer := &stubCompleter{out: "hello"}

	s := newTestSurface(t, snap, completer)
	args := json.RawMessage(`{"instructions":"translate to English"}`)
	if _, err := s.Invoke(context.Background(), ToolTransformWithAI, args); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if completer.gotInstructions != "translate to English" || completer.gotText != "hola" {
		t.Fatalf("completer saw instr=%q text=%q", completer.gotInstructions, completer.gotText)
	}
	if text, _ := snap.Text(); text != "hello" {
		t.Fatalf("text=%q, want %q", text, "hello")
	}
}

func TestSurface_TransformWithAI_BackendFailureLeavesSnapshot(t *testing.T) {
	t.Parallel()

	snap := clipboard.NewSnapshot()
	snap.SetText("original")

	s := newTestSurface(t, snap, &stubCompleter{err: errors.New("backend down")})
	args := json.RawMessage(`{"instructions":"anything"}`)
	if _, err := s.Invoke(context.Background(), ToolTransformWithAI, args); err == nil {
		t.Fatalf("Invoke with failing backend succeeded")
	}
	if text, _ := snap.Text(); text != "original" {
		t.Fatalf("text=%q, want original preserved", text)
	}
}

func TestSurface_TransformToFile_PrefersText(t *testing.T) {
	t.Parallel()

	snap := clipboard.NewSnapshot()
	snap.SetText("file me")
	snap.SetImage(&clipboard.Bitmap{Pix: make([]byte, 4), Width: 1, Height: 1, Stride: 4})

	s := newTestSurface(t, snap, nil)
	if _, err := s.Invoke(context.Background(), ToolTransformToFile, nil); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	items, ok := snap.StorageItems()
	if !ok || len(items) != 1 {
		t.Fatalf("items=%v ok=%v, want one file ref", items, ok)
	}
	if filepath.Base(items[0].Path) != "clipboard.txt" {
		t.Fatalf("path=%q, want clipboard.txt", items[0].Path)
	}
	b, err := os.ReadFile(items[0].Path)
	if err != nil || string(b) != "file me" {
		t.Fatalf("file content=%q err=%v", b, err)
	}
}

func TestSurface_TransformToFile_ImageOnly(t *testing.T) {
	t.Parallel()

	snap := clipboard.NewSnapshot()
	snap.SetImage(&clipboard.Bitmap{Pix: make([]byte, 16), Width: 2, Height: 2, Stride: 8})

	s := newTestSurface(t, snap, nil)
	if _, err := s.Invoke(context.Background(), ToolTransformToFile, nil); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	items, ok := snap.StorageItems()
	if !ok || len(items) != 1 {
		t.Fatalf("items=%v ok=%v, want one file ref", items, ok)
	}
	if filepath.Base(items[0].Path) != "clipboard.png" {
		t.Fatalf("path=%q, want clipboard.png", items[0].Path)
	}
	if fi, err := os.Stat(items[0].Path); err != nil || fi.Size() == 0 {
		t.Fatalf("stat png: fi=%v err=%v", fi, err)
	}
}

func TestSurface_TransformToFile_RepeatedCallsReuseSamePath(t *testing.T) {
	t.Parallel()

	snap := clipboard.NewSnapshot()
	snap.SetText("same payload")

	s := newTestSurface(t, snap, nil)
	if _, err := s.Invoke(context.Background(), ToolTransformToFile, nil); err != nil {
		t.Fatalf("first Invoke: %v", err)
	}
	first, ok := snap.StorageItems()
	if !ok || len(first) != 1 {
		t.Fatalf("items=%v ok=%v after first call", first, ok)
	}

	if _, err := s.Invoke(context.Background(), ToolTransformToFile, nil); err != nil {
		t.Fatalf("second Invoke: %v", err)
	}
	second, _ := snap.StorageItems()
	if len(second) != 1 || second[0].Path != first[0].Path {
		t.Fatalf("paths differ across calls: %q vs %q", first[0].Path, second[0].Path)
	}
	b, err := os.ReadFile(second[0].Path)
	if err != nil || string(b) != "same payload" {
		t.Fatalf("file content=%q err=%v", b, err)
	}
}

func TestSurface_UnknownTool(t *testing.T) {
	t.Parallel()

	s := newTestSurface(t, clipboard.NewSnapshot(), nil)
	if _, err := s.Invoke(context.Background(), "open_browser", nil); err == nil {
		t.Fatalf("unknown tool succeeded")
	}
}
