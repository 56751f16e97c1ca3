package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	relPath, err := store.Save(ctx, AudioDir, ".M4A", strings.NewReader("voice"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(relPath, AudioDir+"/"))
	assert.True(t, strings.HasSuffix(relPath, ".m4a"))

	f, err := store.Open(ctx, relPath)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, "voice", string(data))

	require.NoError(t, store.Delete(ctx, relPath))
	_, err = store.Open(ctx, relPath)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.Delete(ctx, relPath), "deleting a missing blob is not an error")
}

func TestLocalStoreRejectsEscapingPaths(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	outside := filepath.Join(filepath.Dir(root), "outside.txt")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))
	t.Cleanup(func() { _ = os.Remove(outside) })

	for _, p := range []string{"", "..", "../outside.txt", "audio_messages/../../outside.txt", "/etc/passwd", `audio_messages\..\x`} {
		t.Run(p, func(t *testing.T) {
			_, err := store.Open(context.Background(), p)
			assert.ErrorIs(t, err, ErrInvalidPath)
			assert.ErrorIs(t, store.Delete(context.Background(), p), ErrInvalidPath)
		})
	}
	assert.FileExists(t, outside)
}

func TestLocalStoreSizeLimit(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)
	store.maxBytes = 4

	_, err = store.Save(context.Background(), AudioDir, ".m4a", bytes.NewReader([]byte("12345")))
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(filepath.Join(root, AudioDir))
	require.NoError(t, err)
	assert.Empty(t, entries, "oversized uploads are removed")

	_, err = store.Save(context.Background(), AudioDir, ".m4a", bytes.NewReader([]byte("1234")))
	assert.NoError(t, err)
}

func TestSanitizeExt(t *testing.T) {
	tests := map[string]string{
		".m4a":        ".m4a",
		"MP3":         ".mp3",
		"":            "",
		".tar.gz":     "",
		".toolongext": "",
		"./x":         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeExt(in), in)
	}
}

func TestSniffExtension(t *testing.T) {
	wav := append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 64)...)

	ext, replay, err := SniffExtension(bytes.NewReader(wav))
	require.NoError(t, err)
	assert.Equal(t, ".wav", ext)

	data, err := io.ReadAll(replay)
	require.NoError(t, err)
	assert.Equal(t, wav, data, "the sniffed bytes are replayed")
}
