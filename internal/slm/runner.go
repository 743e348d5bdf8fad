// Package slm hosts the local small-language-model backend used by the
// local streaming completion strategy.
//
// The runner contract is intentionally narrow: explicit async warm-up, a
// lazy finite stream of text fragments per inference, and a Close for
// releasing model memory at shutdown. The stream is single-use and not
// restartable.
package slm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
)

// Runner is the local inference backend.
type Runner interface {
	// Initialize performs the model warm-up. It must be called once before
	// the first InferStreaming call.
	Initialize(ctx context.Context) error

	// InferStreaming starts one inference and returns a channel of text
	// fragments. The channel is closed when the sequence ends or ctx is
	// cancelled; fragments already in flight after cancellation are dropped.
	InferStreaming(ctx context.Context, prompt string) (<-chan string, error)

	Close() error
}

// minAvailableBytes is the warm-up floor: loading even a small quantized
// model under this much free memory tends to take the host down with it.
const minAvailableBytes = 512 << 20

// checkMemory verifies the host has headroom for model load and logs it.
func checkMemory(ctx context.Context, logger *slog.Logger, minBytes uint64) error {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		// Memory stats are advisory; proceed when the probe itself fails.
		logger.Warn("memory probe failed", "error", err)
		return nil
	}
	logger.Info("local model warm-up", "available_mb", vm.Available>>20, "total_mb", vm.Total>>20)
	if vm.Available < minBytes {
		return fmt.Errorf("insufficient memory for local model: %d MiB available, need %d MiB", vm.Available>>20, minBytes>>20)
	}
	return nil
}

// SimulatedRunner is an offline runner that streams the clipboard content
// back in word-sized fragments after a fixed preamble. It stands in for a
// real on-device model in development and tests.
type SimulatedRunner struct {
	log *slog.Logger

	// Delay paces fragment delivery; zero means no pacing.
	Delay time.Duration

	initialized bool
	closed      bool
}

// NewSimulatedRunner returns an uninitialized simulated runner.
func NewSimulatedRunner(logger *slog.Logger) *SimulatedRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &SimulatedRunner{log: logger}
}

func (r *SimulatedRunner) Initialize(ctx context.Context) error {
	if r == nil {
		return errors.New("nil runner")
	}
	if r.closed {
		return errors.New("runner closed")
	}
	if err := checkMemory(ctx, r.log, minAvailableBytes); err != nil {
		return err
	}
	r.initialized = true
	return nil
}

func (r *SimulatedRunner) InferStreaming(ctx context.Context, prompt string) (<-chan string, error) {
	if r == nil {
		return nil, errors.New("nil runner")
	}
	if !r.initialized {
		return nil, errors.New("runner not initialized")
	}
	if r.closed {
		return nil, errors.New("runner closed")
	}

	fragments := simulateFragments(prompt)
	out := make(chan string)
	go func() {
		defer close(out)
		for _, frag := range fragments {
			// Cancellation wins over a ready receiver.
			select {
			case <-ctx.Done():
				return
			default:
			}
			if r.Delay > 0 {
				select {
				case <-time.After(r.Delay):
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- frag:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (r *SimulatedRunner) Close() error {
	if r == nil {
		return nil
	}
	r.closed = true
	r.initialized = false
	return nil
}

// simulateFragments echoes the user content section of the prompt as
// word fragments, approximating token-at-a-time decoding.
func simulateFragments(prompt string) []string {
	content := prompt
	if _, after, ok := strings.Cut(prompt, "Clipboard Content:"); ok {
		content = after
	}
	if before, _, ok := strings.Cut(content, "<|end|>"); ok {
		content = before
	}
	words := strings.Fields(content)
	if len(words) == 0 {
		return nil
	}
	out := make([]string, 0, len(words))
	for i, w := range words {
		if i == 0 {
			out = append(out, w)
			continue
		}
		out = append(out, " "+w)
	}
	return out
}
