// File: internal/storage/local.go
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// AudioDir is the directory recorded audio uploads are stored under.
const AudioDir = "audio_messages"

// MaxAudioBytes caps a single audio upload (10 MiB).
const MaxAudioBytes = 10 << 20

// sniffLen is how much of an upload is inspected to detect its type.
const sniffLen = 3072

var (
	ErrInvalidPath = errors.New("invalid blob path")
	ErrTooLarge    = errors.New("blob exceeds size limit")
	ErrNotFound    = errors.New("blob not found")
)

// BlobStore keeps uploaded files addressed by a relative, slash-separated path.
type BlobStore interface {
	Save(ctx context.Context, dir, ext string, r io.Reader) (string, error)
	Open(ctx context.Context, relPath string) (io.ReadCloser, error)
	Delete(ctx context.Context, relPath string) error
}

// LocalStore is a BlobStore on the local filesystem.
type LocalStore struct {
	root     string
	maxBytes int64
}

func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{root: abs, maxBytes: MaxAudioBytes}, nil
}

// Save writes r to dir/<uuid><ext> and returns that relative path.
func (s *LocalStore) Save(ctx context.Context, dir, ext string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext = sanitizeExt(ext)
	relPath := path.Join(dir, uuid.NewString()+ext)
	full, err := s.resolve(relPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create blob dir: %w", err)
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}

	// Read one byte past the limit to detect oversized uploads.
	n, copyErr := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	closeErr := f.Close()
	if copyErr == nil && n > s.maxBytes {
		copyErr = ErrTooLarge
	}
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(full)
		return "", copyErr
	}
	return relPath, nil
}

func (s *LocalStore) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	full, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete removes the blob. Missing blobs are not an error.
func (s *LocalStore) Delete(ctx context.Context, relPath string) error {
	full, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// resolve maps a relative blob path into the store root, rejecting anything
// that would escape it.
func (s *LocalStore) resolve(relPath string) (string, error) {
	if relPath == "" || strings.Contains(relPath, "\\") || path.IsAbs(relPath) {
		return "", ErrInvalidPath
	}
	clean := path.Clean(relPath)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidPath
	}
	full := filepath.Join(s.root, filepath.FromSlash(clean))
	if !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return full, nil
}

func sanitizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" || len(ext) > 8 {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return "." + ext
}

// SniffExtension detects the file extension from the content of r. The
// returned reader replays the inspected bytes followed by the rest of r.
func SniffExtension(r io.Reader) (string, io.Reader, error) {
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	header = header[:n]
	return mimetype.Detect(header).Extension(), io.MultiReader(bytes.NewReader(header), r), nil
}
