package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	chatrepo "github.com/iyunix/go-voicechat/internal/repository/chat"
	"github.com/iyunix/go-voicechat/internal/repository/message"
	"github.com/iyunix/go-voicechat/internal/services/ai"
	"github.com/iyunix/go-voicechat/internal/testutil"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

// fakeGateway records the history it receives and replays canned output.
type fakeGateway struct {
	mu        sync.Mutex
	histories [][]ai.Turn

	reply       string
	completeErr error
	onComplete  func()

	chunks    []ai.Chunk
	streamErr error // returned by Recv after all chunks
	openErr   error
	block     bool // streams block after their chunks until closed
	stream    *fakeStream
}

func (g *fakeGateway) record(history []ai.Turn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.histories = append(g.histories, append([]ai.Turn(nil), history...))
}

func (g *fakeGateway) lastHistory() []ai.Turn {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.histories) == 0 {
		return nil
	}
	return g.histories[len(g.histories)-1]
}

func (g *fakeGateway) Complete(ctx context.Context, history []ai.Turn) (string, error) {
	g.record(history)
	if g.onComplete != nil {
		g.onComplete()
	}
	if g.completeErr != nil {
		return "", g.completeErr
	}
	return g.reply, nil
}

func (g *fakeGateway) CompleteStream(ctx context.Context, history []ai.Turn) (ai.ChunkStream, error) {
	g.record(history)
	if g.openErr != nil {
		return nil, g.openErr
	}
	g.stream = newFakeStream(g.chunks, g.streamErr)
	g.stream.block = g.block
	return g.stream, nil
}

func (g *fakeGateway) Transcribe(ctx context.Context, audio io.Reader, filename string) (*ai.Transcription, error) {
	return nil, errors.New("not used")
}

type fakeStream struct {
	chunks []ai.Chunk
	err    error

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	block  bool // block after the chunks until closed
}

func newFakeStream(chunks []ai.Chunk, err error) *fakeStream {
	return &fakeStream{chunks: chunks, err: err, done: make(chan struct{})}
}

func (s *fakeStream) Recv() (ai.Chunk, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ai.Chunk{}, errors.New("stream closed")
	}
	if len(s.chunks) > 0 {
		c := s.chunks[0]
		s.chunks = s.chunks[1:]
		s.mu.Unlock()
		return c, nil
	}
	s.mu.Unlock()

	if s.block {
		<-s.done
		return ai.Chunk{}, errors.New("stream closed")
	}
	if s.err != nil {
		return ai.Chunk{}, s.err
	}
	return ai.Chunk{}, io.EOF
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// recordingWriter collects events; it fails once failAfter events were
// written when failAfter > 0.
type recordingWriter struct {
	mu        sync.Mutex
	events    []Event
	failAfter int
}

func (w *recordingWriter) WriteEvent(e Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failAfter > 0 && len(w.events) >= w.failAfter {
		return errors.New("broken pipe")
	}
	w.events = append(w.events, e)
	return nil
}

func (w *recordingWriter) textContent() string {
	var b strings.Builder
	for _, e := range w.events {
		if e.ChunkType == string(ai.ChunkText) {
			b.WriteString(e.Content)
		}
	}
	return b.String()
}

type fixture struct {
	db           *gorm.DB
	config       *Config
	chatRepo     chatrepo.ChatRepository
	messageRepo  message.MessageRepository
	gateway      *fakeGateway
	orchestrator *Orchestrator
	relay        *StreamRelay
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	cfg := DefaultConfig()
	gw := &fakeGateway{}
	chats := chatrepo.NewChatRepository(db)
	messages := message.NewMessageRepository(db)
	orch := NewOrchestrator(cfg, chats, messages, gw, nopLogger{})
	return &fixture{
		db:           db,
		config:       cfg,
		chatRepo:     chats,
		messageRepo:  messages,
		gateway:      gw,
		orchestrator: orch,
		relay:        NewStreamRelay(cfg, orch, nopLogger{}),
	}
}

func (f *fixture) messageCount(t *testing.T, chatID uint) int64 {
	t.Helper()
	n, err := f.messageRepo.CountByChatID(context.Background(), chatID)
	require.NoError(t, err)
	return n
}
