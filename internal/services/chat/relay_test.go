package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-voicechat/internal/services/ai"
	"github.com/iyunix/go-voicechat/internal/testutil"
)

func TestStreamPersistsConcatenatedText(t *testing.T) {
	f := newFixture(t)
	f.gateway.chunks = []ai.Chunk{
		{Kind: ai.ChunkThinking, Text: "let me think"},
		{Kind: ai.ChunkText, Text: "Hel"},
		{Kind: ai.ChunkText, Text: "lo, "},
		{Kind: ai.ChunkText, Text: "world"},
		{Kind: ai.ChunkMeta, Text: "finish_reason=stop"},
	}
	chat := testutil.SeedChat(t, f.db, owner, "stream")
	current := testutil.SeedMessage(t, f.db, chat.ID, owner, "hi")
	w := &recordingWriter{}

	saved, err := f.relay.Stream(context.Background(), owner, current, w)
	require.NoError(t, err)

	require.Len(t, w.events, 5)
	assert.Equal(t, Event{ChunkType: "thinking", Content: "let me think"}, w.events[0])
	assert.Equal(t, Event{ChunkType: "meta", Content: "finish_reason=stop"}, w.events[4])

	assert.Equal(t, "Hello, world", w.textContent())
	assert.Equal(t, w.textContent(), saved.Content)
	assert.Nil(t, saved.UserID)
	assert.EqualValues(t, 2, f.messageCount(t, chat.ID))
	assert.True(t, f.gateway.stream.isClosed())
}

func TestStreamUpstreamFailureEmitsErrorAndStoresNothing(t *testing.T) {
	f := newFixture(t)
	f.gateway.chunks = []ai.Chunk{{Kind: ai.ChunkText, Text: "partial"}}
	f.gateway.streamErr = ai.NewStreamError("stream receive error", errors.New("connection reset"))
	chat := testutil.SeedChat(t, f.db, owner, "broken")
	current := testutil.SeedMessage(t, f.db, chat.ID, owner, "hi")
	w := &recordingWriter{}

	saved, err := f.relay.Stream(context.Background(), owner, current, w)
	require.Error(t, err)
	assert.Nil(t, saved)
	assert.True(t, IsErrorType(err, ErrTypeStreaming))

	require.Len(t, w.events, 2)
	assert.Equal(t, Event{ChunkType: "text", Content: "partial"}, w.events[0])
	assert.Equal(t, Event{ChunkType: ChunkTypeError, Content: "Stream failed"}, w.events[1])
	assert.EqualValues(t, 1, f.messageCount(t, chat.ID), "no assistant message after a failed stream")
}

func TestStreamOpenFailureEmitsErrorEvent(t *testing.T) {
	f := newFixture(t)
	f.gateway.openErr = ai.NewProviderError("streaming", "bad key", nil)
	chat := testutil.SeedChat(t, f.db, owner, "no-open")
	current := testutil.SeedMessage(t, f.db, chat.ID, owner, "hi")
	w := &recordingWriter{}

	_, err := f.relay.Stream(context.Background(), owner, current, w)
	require.Error(t, err)
	assert.Equal(t, []Event{{ChunkType: ChunkTypeError, Content: "Stream failed"}}, w.events)
	assert.EqualValues(t, 1, f.messageCount(t, chat.ID))
}

func TestStreamClientDisconnectStopsUpstreamAndStoresNothing(t *testing.T) {
	f := newFixture(t)
	f.gateway.chunks = []ai.Chunk{
		{Kind: ai.ChunkText, Text: "a"},
		{Kind: ai.ChunkText, Text: "b"},
		{Kind: ai.ChunkText, Text: "c"},
	}
	f.gateway.block = true
	chat := testutil.SeedChat(t, f.db, owner, "gone")
	current := testutil.SeedMessage(t, f.db, chat.ID, owner, "hi")
	w := &recordingWriter{failAfter: 1}

	done := make(chan error, 1)
	go func() {
		_, err := f.relay.Stream(context.Background(), owner, current, w)
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, IsErrorType(err, ErrTypeStreaming))
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not stop after the client write failed")
	}
	assert.True(t, f.gateway.stream.isClosed())
	assert.Len(t, w.events, 1)
	assert.EqualValues(t, 1, f.messageCount(t, chat.ID), "partial replies are not stored")
}

func TestRelayStopsWhenContextCancelled(t *testing.T) {
	f := newFixture(t)
	stream := newFakeStream(nil, nil)
	stream.block = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.relay.Relay(ctx, stream, &recordingWriter{})
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not stop after cancellation")
	}
	assert.True(t, stream.isClosed())
}

func TestRelayBufferSmallerThanStream(t *testing.T) {
	f := newFixture(t)
	f.config.StreamBuffer = 1

	chunks := make([]ai.Chunk, 50)
	want := ""
	for i := range chunks {
		chunks[i] = ai.Chunk{Kind: ai.ChunkText, Text: string(rune('a' + i%26))}
		want += chunks[i].Text
	}
	w := &recordingWriter{}

	text, err := f.relay.Relay(context.Background(), newFakeStream(chunks, nil), w)
	require.NoError(t, err)
	assert.Equal(t, want, text)
	assert.Len(t, w.events, 50)
}
