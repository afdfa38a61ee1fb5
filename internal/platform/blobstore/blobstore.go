// Package blobstore stores raw document content. Metadata lives in the
// document table; this package only deals in bytes keyed by document ID.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

var ErrBlobNotFound = errors.New("blob not found")

// keyPattern guards against path traversal through document IDs.
var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// Store is the contract for blob content backends.
type Store interface {
	// Put writes the content for a key and returns the byte count and the
	// hex SHA-256 of what was written.
	Put(ctx context.Context, key string, content io.Reader) (int64, string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// FileStore keeps blobs as files under a root directory, sharded by the
// first two characters of the key to keep directories small.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("creating blob root: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) path(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	shard := key
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(s.root, shard, key), nil
}

func (s *FileStore) Put(_ context.Context, key string, content io.Reader) (int64, string, error) {
	path, err := s.path(key)
	if err != nil {
		return 0, "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return 0, "", fmt.Errorf("creating shard dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return 0, "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), content)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, "", fmt.Errorf("writing blob: %w", err)
	}

	// Rename is atomic within the shard directory, so a concurrent reader
	// never observes a half-written blob.
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, "", fmt.Errorf("finalizing blob: %w", err)
	}
	return size, fmt.Sprintf("%x", h.Sum(nil)), nil
}

func (s *FileStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("opening blob: %w", err)
	}
	return f, nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrBlobNotFound
		}
		return fmt.Errorf("removing blob: %w", err)
	}
	return nil
}

// MemoryStore is a thread-safe in-memory Store for tests and development.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, key string, content io.Reader) (int64, string, error) {
	if !keyPattern.MatchString(key) {
		return 0, "", fmt.Errorf("invalid blob key %q", key)
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return 0, "", fmt.Errorf("reading content: %w", err)
	}
	s.mu.Lock()
	s.blobs[key] = data
	s.mu.Unlock()
	return int64(len(data)), fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, key)
	return nil
}
