package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerWritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLoggerFrom(zap.New(core)).With("chat_id", uint(7))

	logger.Info("reply stored", "message_id", uint(42))
	logger.Warn("stream ended", "outcome", "client_gone")
	logger.Debug("chunk", "kind", "text")
	logger.Error("save failed", "error", "boom")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "reply stored", entries[0].Message)
	assert.Equal(t, map[string]interface{}{"chat_id": uint64(7), "message_id": uint64(42)}, entries[0].ContextMap())
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestNewZapLogger(t *testing.T) {
	logger, err := NewZapLogger("go-voicechat", true, "warn")
	require.NoError(t, err)
	logger.Info("dropped below warn")
	logger.Sync()
}
