// File: internal/services/ai/interface.go
package ai

import (
	"context"
	"io"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the history sent to the provider.
type Turn struct {
	Role Role
	Text string
}

type ChunkKind string

const (
	ChunkText     ChunkKind = "text"
	ChunkThinking ChunkKind = "thinking"
	ChunkMeta     ChunkKind = "meta"
)

// Chunk is one element of a completion stream.
type Chunk struct {
	Kind ChunkKind
	Text string
}

// ChunkStream is a finite, non-restartable sequence of chunks. Recv blocks
// until the upstream emits the next chunk; it returns io.EOF on normal end
// and any other error when the stream broke. Close must always be called and
// may run concurrently with a blocked Recv to abort it.
type ChunkStream interface {
	Recv() (Chunk, error)
	Close() error
}

type Transcription struct {
	Text         string
	LanguageCode string
}

// Gateway is the boundary to the remote completion/transcription provider.
// Provider implementations send one upstream request per call and do not
// retry; callers decide how to degrade, or wrap one with WithRetry.
type Gateway interface {
	Complete(ctx context.Context, history []Turn) (string, error)
	CompleteStream(ctx context.Context, history []Turn) (ChunkStream, error)
	Transcribe(ctx context.Context, audio io.Reader, filename string) (*Transcription, error)
}
