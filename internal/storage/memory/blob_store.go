// Package memory keeps report artifacts in memory for development and tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/crawl-reports/internal/artifact"
)

type blob struct {
	data    []byte
	updated time.Time
}

// BlobStore stores artifacts in memory.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		blobs: make(map[string]blob),
	}
}

// Put stores a copy of data under name and returns a memory:// URI.
func (s *BlobStore) Put(name string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[name] = blob{data: append([]byte(nil), data...), updated: time.Now()}
	return fmt.Sprintf("memory://%s", name)
}

// PutObject reads r fully and stores it under name.
func (s *BlobStore) PutObject(_ context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read data from reader: %w", err)
	}
	return s.Put(name, data), nil
}

// List returns objects whose name starts with prefix, sorted by name.
func (s *BlobStore) List(_ context.Context, prefix string) ([]artifact.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]artifact.Object, 0, len(s.blobs))
	for name, b := range s.blobs {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		out = append(out, artifact.Object{Name: name, Size: int64(len(b.data)), Updated: b.updated})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Open returns a reader over the stored bytes.
func (s *BlobStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: memory://%s", artifact.ErrNotFound, name)
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}
