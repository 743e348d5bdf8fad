package engine

import (
	"context"
	"errors"
	"sync"
)

// StreamingSession is one local-streaming completion in flight. Sessions are
// single-use: superseding a session cancels it, and a cancelled session is
// never restarted.
//
// Each update carries the text accumulated before the newest delta, one
// delta behind the internal state, so a subscriber can diff against what it
// already rendered.
type StreamingSession struct {
	updates chan string
	done    chan struct{}
	cancel  context.CancelFunc

	mu     sync.Mutex
	result string
}

// Updates returns the notification stream. The channel is closed when the
// session finishes or is cancelled; no update is delivered after that.
func (s *StreamingSession) Updates() <-chan string {
	return s.updates
}

// Cancel requests cooperative cancellation. The session still finishes with
// whatever text was accumulated; cancelling is never an error.
func (s *StreamingSession) Cancel() {
	if s == nil {
		return
	}
	s.cancel()
}

// Wait blocks until the session finishes and returns the full accumulated
// text (partial if the session was cancelled).
func (s *StreamingSession) Wait() string {
	if s == nil {
		return ""
	}
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func (s *StreamingSession) finish(result string) {
	s.mu.Lock()
	s.result = result
	s.mu.Unlock()
	close(s.updates)
	close(s.done)
}

// RunLocalStreaming starts the local streaming strategy. At most one stream
// is active per engine: starting a new one cancels the previous session
// first, and any of its deltas still in flight are discarded.
func (e *Engine) RunLocalStreaming(ctx context.Context, instructions string, text string) (*StreamingSession, error) {
	if e == nil {
		return nil, errors.New("nil engine")
	}
	if e.runner == nil {
		return nil, errors.New("no local inference backend configured")
	}

	sctx, cancel := context.WithCancel(ctx)
	sess := &StreamingSession{
		updates: make(chan string, 16),
		done:    make(chan struct{}),
		cancel:  cancel,
	}

	e.mu.Lock()
	if e.active != nil {
		e.active.Cancel()
	}
	e.active = sess
	e.mu.Unlock()

	stream, err := e.runner.InferStreaming(sctx, localPrompt(instructions, text))
	if err != nil {
		cancel()
		e.mu.Lock()
		if e.active == sess {
			e.active = nil
		}
		e.mu.Unlock()
		return nil, err
	}

	go e.consumeStream(sctx, sess, stream)
	return sess, nil
}

func (e *Engine) consumeStream(ctx context.Context, sess *StreamingSession, stream <-chan string) {
	acc := ""
	defer func() {
		sess.finish(acc)
		e.mu.Lock()
		if e.active == sess {
			e.active = nil
		}
		e.mu.Unlock()
		sess.cancel()
	}()

	for {
		// Cancellation wins over a ready delta.
		select {
		case <-ctx.Done():
			return
		default:
		}
		select {
		case <-ctx.Done():
			return
		case delta, ok := <-stream:
			if !ok {
				return
			}
			// A cancel that raced the receive still wins; the delta is
			// dropped rather than folded into the result.
			select {
			case <-ctx.Done():
				return
			default:
			}
			// Notify with the pre-delta accumulated text; the newest delta
			// lands in the next notification (or the final result).
			select {
			case sess.updates <- acc:
			case <-ctx.Done():
				return
			}
			acc += delta
		}
	}
}
