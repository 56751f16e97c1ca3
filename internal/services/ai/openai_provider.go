// File: internal/services/ai/openai_provider.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// zeroTemperature is the smallest value go-openai does not drop as "unset".
const zeroTemperature = math.SmallestNonzeroFloat32

type OpenAIGateway struct {
	config *Config
	client *openai.Client
}

// NewOpenAIGateway builds a Gateway for any OpenAI-compatible endpoint.
func NewOpenAIGateway(config *Config) (*OpenAIGateway, error) {
	if config == nil {
		return nil, NewConfigError("config is nil")
	}
	if err := config.Validate(); err != nil {
		return nil, NewConfigError(err.Error())
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}

	return &OpenAIGateway{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
	}, nil
}

func (g *OpenAIGateway) Complete(ctx context.Context, history []Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, g.chatRequest(history))
	if err != nil {
		return "", g.providerError("completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", &AIError{
			Type:      ErrTypeProvider,
			Operation: "completion",
			Message:   "empty completion response",
		}
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteStream opens a token stream. Timeout bounds opening it;
// StreamTimeout bounds the whole generation.
func (g *OpenAIGateway) CompleteStream(ctx context.Context, history []Turn) (ChunkStream, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.StreamTimeout)

	req := g.chatRequest(history)
	req.Stream = true
	req.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	openTimer := time.AfterFunc(g.config.Timeout, cancel)
	stream, err := g.client.CreateChatCompletionStream(ctx, req)
	if !openTimer.Stop() && err == nil {
		// The open deadline fired just as the stream opened.
		stream.Close()
		err = context.DeadlineExceeded
	}
	if err != nil {
		cancel()
		return nil, g.providerError("streaming", err)
	}
	return &openAIChunkStream{stream: stream, cancel: cancel}, nil
}

// Transcribe converts audio to text, then asks the chat model for the
// text's language code.
func (g *OpenAIGateway) Transcribe(ctx context.Context, audio io.Reader, filename string) (*Transcription, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	resp, err := g.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    g.config.TranscriptionModel,
		Reader:   audio,
		FilePath: filename,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		code, body := upstreamDetail(err)
		return nil, NewTranscriptionError(code, body, err)
	}

	// The text is kept when language detection fails; the caller picks a
	// default for an empty code.
	text := strings.TrimSpace(resp.Text)
	language, err := g.detectLanguage(ctx, text)
	if err != nil {
		log.Printf("[OpenAIGateway] language detection failed, returning text without language: %v", err)
		language = ""
	}
	return &Transcription{Text: text, LanguageCode: language}, nil
}

func (g *OpenAIGateway) detectLanguage(ctx context.Context, text string) (string, error) {
	model := g.config.LanguageModel
	if model == "" {
		model = g.config.ChatModel
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: languageDetectionPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: zeroTemperature,
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", g.providerError("language_detection", err)
	}
	if len(resp.Choices) == 0 {
		return "", &AIError{
			Type:      ErrTypeProvider,
			Operation: "language_detection",
			Message:   "empty language detection response",
		}
	}
	return normalizeLanguageCode(resp.Choices[0].Message.Content), nil
}

func (g *OpenAIGateway) chatRequest(history []Turn) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	if g.config.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: g.config.SystemPrompt,
		})
	}
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}

	return openai.ChatCompletionRequest{
		Model:       g.config.ChatModel,
		Messages:    messages,
		Temperature: g.config.Temperature,
	}
}

func (g *OpenAIGateway) providerError(operation string, err error) *AIError {
	code, body := upstreamDetail(err)
	aiErr := NewProviderError(operation, body, err)
	aiErr.Code = code
	if code == http.StatusTooManyRequests {
		aiErr.Type = ErrTypeRateLimit
	}
	return aiErr
}

// upstreamDetail extracts the HTTP status and the response body (or the
// decoded API message) from a go-openai error.
func upstreamDetail(err error) (int, string) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, apiErr.Message
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if len(reqErr.Body) > 0 {
			return reqErr.HTTPStatusCode, strings.TrimSpace(string(reqErr.Body))
		}
		return reqErr.HTTPStatusCode, reqErr.Error()
	}
	return 0, err.Error()
}

func normalizeLanguageCode(raw string) string {
	code := strings.ToLower(strings.TrimSpace(raw))
	code = strings.Trim(code, "\"'`.")
	if len(code) > 2 {
		code = code[:2]
	}
	return code
}

// openAIChunkStream adapts a go-openai stream to ChunkStream. One upstream
// frame may carry both a delta and the finish reason, so decoded chunks are
// queued.
type openAIChunkStream struct {
	stream  *openai.ChatCompletionStream
	cancel  context.CancelFunc
	pending []Chunk
	done    bool

	closeOnce sync.Once
}

func (s *openAIChunkStream) Recv() (Chunk, error) {
	for len(s.pending) == 0 {
		if s.done {
			return Chunk{}, io.EOF
		}

		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			continue
		}
		if err != nil {
			s.done = true
			return Chunk{}, NewStreamError("stream receive error", err)
		}
		s.pending = append(s.pending, decodeFrame(resp)...)
	}

	chunk := s.pending[0]
	s.pending = s.pending[1:]
	return chunk, nil
}

func (s *openAIChunkStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.stream.Close()
		s.cancel()
	})
	return err
}

func decodeFrame(resp openai.ChatCompletionStreamResponse) []Chunk {
	var chunks []Chunk
	for _, choice := range resp.Choices {
		if choice.Delta.ReasoningContent != "" {
			chunks = append(chunks, Chunk{Kind: ChunkThinking, Text: choice.Delta.ReasoningContent})
		}
		if choice.Delta.Content != "" {
			chunks = append(chunks, Chunk{Kind: ChunkText, Text: choice.Delta.Content})
		}
		if choice.FinishReason != "" {
			chunks = append(chunks, Chunk{Kind: ChunkMeta, Text: "finish_reason=" + string(choice.FinishReason)})
		}
	}
	if resp.Usage != nil {
		chunks = append(chunks, Chunk{
			Kind: ChunkMeta,
			Text: fmt.Sprintf("prompt_tokens=%d completion_tokens=%d total_tokens=%d",
				resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens),
		})
	}
	return chunks
}
