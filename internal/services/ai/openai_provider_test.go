package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOpenAI records chat requests and serves canned responses for the
// endpoints the gateway calls.
type fakeOpenAI struct {
	mu           sync.Mutex
	chatRequests []map[string]any

	completion    string
	language      string
	chatStatus    int
	chatBody      string
	streamFrames  []string
	frameDelay    time.Duration
	transcription string
	audioStatus   int
	audioBody     string
}

func (f *fakeOpenAI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.chatRequests = append(f.chatRequests, body)
		f.mu.Unlock()

		if stream, _ := body["stream"].(bool); stream {
			w.Header().Set("Content-Type", "text/event-stream")
			for _, frame := range f.streamFrames {
				fmt.Fprintf(w, "data: %s\n\n", frame)
				if f.frameDelay > 0 {
					w.(http.Flusher).Flush()
					time.Sleep(f.frameDelay)
				}
			}
			fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}

		if f.chatStatus != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.chatStatus)
			fmt.Fprint(w, f.chatBody)
			return
		}

		content := f.completion
		messages, _ := body["messages"].([]any)
		if len(messages) > 0 {
			first, _ := messages[0].(map[string]any)
			if first["content"] == languageDetectionPrompt {
				content = f.language
			}
		}
		writeCompletion(w, content)
	})
	mux.HandleFunc("/v1/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "text", r.FormValue("response_format"))

		if f.audioStatus != 0 && f.audioStatus != http.StatusOK {
			w.WriteHeader(f.audioStatus)
			fmt.Fprint(w, f.audioBody)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, f.transcription)
	})
	return mux
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   "gpt-3.5-turbo",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
}

func newTestGateway(t *testing.T, fake *fakeOpenAI) *OpenAIGateway {
	t.Helper()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = server.URL + "/v1"
	cfg.Timeout = 5 * time.Second

	gw, err := NewOpenAIGateway(cfg)
	require.NoError(t, err)
	return gw
}

func TestNewOpenAIGatewayRequiresKey(t *testing.T) {
	_, err := NewOpenAIGateway(DefaultConfig())
	require.Error(t, err)

	var aiErr *AIError
	require.True(t, errors.As(err, &aiErr))
	assert.Equal(t, ErrTypeConfig, aiErr.Type)
}

func TestCompleteSendsSystemPromptAndHistory(t *testing.T) {
	fake := &fakeOpenAI{completion: "Bonjour!"}
	gw := newTestGateway(t, fake)

	reply, err := gw.Complete(t.Context(), []Turn{
		{Role: RoleUser, Text: "hi"},
		{Role: RoleAssistant, Text: "hello"},
		{Role: RoleUser, Text: "say it in french"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour!", reply)

	require.Len(t, fake.chatRequests, 1)
	messages := fake.chatRequests[0]["messages"].([]any)
	require.Len(t, messages, 4)

	roles := make([]string, len(messages))
	for i, m := range messages {
		roles[i] = m.(map[string]any)["role"].(string)
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
	assert.Equal(t, DefaultSystemPrompt, messages[0].(map[string]any)["content"])
	assert.Equal(t, "gpt-3.5-turbo", fake.chatRequests[0]["model"])
}

func TestCompleteReportsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = server.URL
	gw, err := NewOpenAIGateway(cfg)
	require.NoError(t, err)

	_, err = gw.Complete(t.Context(), []Turn{{Role: RoleUser, Text: "hi"}})
	require.Error(t, err)

	var aiErr *AIError
	require.True(t, errors.As(err, &aiErr))
	assert.Equal(t, ErrTypeRateLimit, aiErr.Type)
	assert.Equal(t, http.StatusTooManyRequests, aiErr.Code)
	assert.Contains(t, aiErr.Error(), "slow down")
}

func TestCompleteStreamYieldsChunksInOrder(t *testing.T) {
	fake := &fakeOpenAI{streamFrames: []string{
		`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"role":"assistant","reasoning_content":"hmm"}}]}`,
		`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"Hel"}}]}`,
		`{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"lo"},"finish_reason":"stop"}]}`,
		`{"id":"1","object":"chat.completion.chunk","choices":[],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`,
	}}
	gw := newTestGateway(t, fake)

	stream, err := gw.CompleteStream(t.Context(), []Turn{{Role: RoleUser, Text: "hi"}})
	require.NoError(t, err)
	defer stream.Close()

	var chunks []Chunk
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}

	require.Len(t, chunks, 5)
	assert.Equal(t, Chunk{Kind: ChunkThinking, Text: "hmm"}, chunks[0])
	assert.Equal(t, Chunk{Kind: ChunkText, Text: "Hel"}, chunks[1])
	assert.Equal(t, Chunk{Kind: ChunkText, Text: "lo"}, chunks[2])
	assert.Equal(t, Chunk{Kind: ChunkMeta, Text: "finish_reason=stop"}, chunks[3])
	assert.Equal(t, ChunkMeta, chunks[4].Kind)
	assert.Contains(t, chunks[4].Text, "total_tokens=5")

	// Recv after the end keeps reporting EOF.
	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)

	assert.Equal(t, true, fake.chatRequests[0]["stream"])
}

func TestTranscribeDetectsLanguage(t *testing.T) {
	fake := &fakeOpenAI{transcription: "  Salama tompoko  \n", language: " MG. "}
	gw := newTestGateway(t, fake)

	result, err := gw.Transcribe(t.Context(), strings.NewReader("fake-audio"), "note.m4a")
	require.NoError(t, err)
	assert.Equal(t, "Salama tompoko", result.Text)
	assert.Equal(t, "mg", result.LanguageCode)

	require.Len(t, fake.chatRequests, 1)
	detect := fake.chatRequests[0]
	temperature, ok := detect["temperature"].(float64)
	require.True(t, ok, "temperature must be sent explicitly")
	assert.InDelta(t, 0, temperature, 1e-6)

	messages := detect["messages"].([]any)
	assert.Equal(t, "Salama tompoko", messages[1].(map[string]any)["content"])
}

func TestTranscribeKeepsTextWhenLanguageDetectionFails(t *testing.T) {
	fake := &fakeOpenAI{
		transcription: "bonjour tout le monde",
		chatStatus:    http.StatusBadRequest,
		chatBody:      `{"error":{"message":"model not found","type":"invalid_request_error"}}`,
	}
	gw := newTestGateway(t, fake)

	result, err := gw.Transcribe(t.Context(), strings.NewReader("fake-audio"), "note.m4a")
	require.NoError(t, err)
	assert.Equal(t, "bonjour tout le monde", result.Text)
	assert.Empty(t, result.LanguageCode)
	assert.Len(t, fake.chatRequests, 1)
}

func TestStreamOutlivesCallTimeout(t *testing.T) {
	frame := `{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"x"}}]}`
	fake := &fakeOpenAI{streamFrames: []string{frame, frame, frame}, frameDelay: 60 * time.Millisecond}
	gw := newTestGateway(t, fake)
	gw.config.Timeout = 50 * time.Millisecond
	gw.config.StreamTimeout = 5 * time.Second

	stream, err := gw.CompleteStream(t.Context(), []Turn{{Role: RoleUser, Text: "hi"}})
	require.NoError(t, err)
	defer stream.Close()

	var text strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		text.WriteString(chunk.Text)
	}
	assert.Equal(t, "xxx", text.String())
}

func TestStreamTimeoutEndsLongGeneration(t *testing.T) {
	frame := `{"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"x"}}]}`
	fake := &fakeOpenAI{streamFrames: []string{frame, frame, frame, frame}, frameDelay: 100 * time.Millisecond}
	gw := newTestGateway(t, fake)
	gw.config.Timeout = 50 * time.Millisecond
	gw.config.StreamTimeout = 150 * time.Millisecond

	stream, err := gw.CompleteStream(t.Context(), []Turn{{Role: RoleUser, Text: "hi"}})
	require.NoError(t, err)
	defer stream.Close()

	for {
		_, err = stream.Recv()
		if err != nil {
			break
		}
	}
	var aiErr *AIError
	require.ErrorAs(t, err, &aiErr)
	assert.Equal(t, ErrTypeStream, aiErr.Type)
}

func TestTranscribeFailureIncludesUpstreamBody(t *testing.T) {
	fake := &fakeOpenAI{audioStatus: http.StatusInternalServerError, audioBody: "Error"}
	gw := newTestGateway(t, fake)

	_, err := gw.Transcribe(t.Context(), strings.NewReader("fake-audio"), "note.m4a")
	require.Error(t, err)
	assert.True(t, IsTranscriptionError(err))
	assert.Contains(t, err.Error(), "Transcription failed: Error")

	var aiErr *AIError
	require.True(t, errors.As(err, &aiErr))
	assert.Equal(t, http.StatusInternalServerError, aiErr.Code)
	assert.Empty(t, fake.chatRequests, "no language detection after a failed transcription")
}

func TestNormalizeLanguageCode(t *testing.T) {
	cases := map[string]string{
		"en":       "en",
		" FR\n":    "fr",
		`"es"`:     "es",
		"de.":      "de",
		"english":  "en",
		"":         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeLanguageCode(in), "input %q", in)
	}
}
