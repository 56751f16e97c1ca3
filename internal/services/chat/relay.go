// File: internal/services/chat/relay.go
package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/iyunix/go-voicechat/internal/domain"
	"github.com/iyunix/go-voicechat/internal/metrics"
	"github.com/iyunix/go-voicechat/internal/services/ai"
)

// ChunkTypeError marks the terminal event of a failed stream.
const ChunkTypeError = "error"

// Event is one line of the response stream.
type Event struct {
	ChunkType string `json:"chunkType"`
	Content   string `json:"content"`
}

// Stream outcomes, as recorded in metrics.
const (
	outcomeCompleted  = "completed"
	outcomeUpstream   = "upstream_error"
	outcomeClientGone = "client_gone"
	outcomeSaveFailed = "save_failed"
)

// upstreamError marks a failure reading from the provider, as opposed to a
// failure writing to the client.
type upstreamError struct{ err error }

func (e *upstreamError) Error() string { return e.err.Error() }
func (e *upstreamError) Unwrap() error { return e.err }

// StreamRelay forwards a provider token stream to the client as it arrives
// and stores the accumulated text once the stream has ended normally.
type StreamRelay struct {
	config       *Config
	orchestrator *Orchestrator
	logger       Logger
}

func NewStreamRelay(config *Config, orchestrator *Orchestrator, logger Logger) *StreamRelay {
	return &StreamRelay{
		config:       config,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Stream relays the reply to userMessage through w. On success it returns
// the stored assistant message. On any failure nothing is stored; if the
// client is still connected it receives one terminal error event.
func (r *StreamRelay) Stream(ctx context.Context, userID uint, userMessage *domain.Message, w EventWriter) (*domain.Message, error) {
	history, err := r.orchestrator.BuildContext(ctx, userID, userMessage)
	if err != nil {
		r.fail(w, outcomeUpstream)
		return nil, NewStreamingError("failed to build context", err)
	}

	stream, err := r.orchestrator.OpenStream(ctx, history)
	if err != nil {
		r.logger.Warn("failed to open AI stream", "chat_id", userMessage.ChatID, "error", err)
		r.fail(w, outcomeUpstream)
		return nil, NewStreamingError("failed to open stream", err)
	}

	text, err := r.Relay(ctx, stream, w)
	if err != nil {
		var upErr *upstreamError
		if errors.As(err, &upErr) {
			r.logger.Warn("AI stream failed", "chat_id", userMessage.ChatID, "error", upErr.err)
			r.fail(w, outcomeUpstream)
			return nil, NewStreamingError("upstream stream failed", upErr.err)
		}
		r.logger.Info("client left during stream", "chat_id", userMessage.ChatID, "error", err)
		metrics.RecordStream(outcomeClientGone)
		return nil, NewStreamingError("client disconnected", err)
	}

	saved, err := r.orchestrator.SaveAssistantMessage(ctx, userMessage.ChatID, text)
	if err != nil {
		r.fail(w, outcomeSaveFailed)
		return nil, err
	}
	metrics.RecordStream(outcomeCompleted)
	return saved, nil
}

// Relay drains stream into w and returns the concatenated text chunks. A
// producer goroutine reads the provider into a bounded queue while the
// caller's goroutine writes; either side failing stops the other. The stream
// is always closed before Relay returns.
func (r *StreamRelay) Relay(ctx context.Context, stream ai.ChunkStream, w EventWriter) (string, error) {
	var closeOnce sync.Once
	closeStream := func() {
		closeOnce.Do(func() {
			if err := stream.Close(); err != nil {
				r.logger.Debug("closing AI stream", "error", err)
			}
		})
	}
	defer closeStream()

	g, gctx := errgroup.WithContext(ctx)

	// A blocked Recv only returns once the upstream connection is closed.
	stop := context.AfterFunc(gctx, closeStream)
	defer stop()

	chunks := make(chan ai.Chunk, r.config.StreamBuffer)

	g.Go(func() error {
		defer close(chunks)
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return &upstreamError{err: err}
			}
			select {
			case chunks <- chunk:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	var text strings.Builder
	g.Go(func() error {
		for chunk := range chunks {
			if chunk.Kind == ai.ChunkText {
				text.WriteString(chunk.Text)
			}
			metrics.RecordStreamChunk(string(chunk.Kind))
			if err := w.WriteEvent(Event{ChunkType: string(chunk.Kind), Content: chunk.Text}); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return "", err
	}
	return text.String(), nil
}

func (r *StreamRelay) fail(w EventWriter, outcome string) {
	metrics.RecordStream(outcome)
	if err := w.WriteEvent(Event{ChunkType: ChunkTypeError, Content: r.config.StreamFailureText}); err != nil {
		r.logger.Debug("could not deliver stream error event", "error", err)
	}
}
