// Package artifact adapts object storage into the record store the report
// engine reads from: it lists a category's artifacts and decodes them into
// tables.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-reports/internal/report"
)

var (
	// ErrStorageUnavailable wraps backend failures other than a missing object.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrNotFound is returned when an artifact does not exist.
	ErrNotFound = errors.New("artifact not found")
)

// Object describes one stored blob.
type Object struct {
	Name    string
	Size    int64
	Updated time.Time
}

// Blobs is the object storage surface the store needs.
type Blobs interface {
	List(ctx context.Context, prefix string) ([]Object, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Store lists and fetches report artifacts.
type Store interface {
	ListIdentifiers(ctx context.Context, category report.Category) ([]string, error)
	Fetch(ctx context.Context, identifier string) (*report.Table, error)
}

// Config controls which objects count as artifacts.
type Config struct {
	// Prefix is prepended to every category prefix, e.g. "reports/".
	Prefix string
	// Suffixes lists accepted object name endings. Defaults to ".csv.gz" and ".csv".
	Suffixes []string
}

// BlobStore implements Store on top of Blobs.
type BlobStore struct {
	blobs    Blobs
	prefix   string
	suffixes []string
	logger   *zap.Logger
}

// NewStore builds a BlobStore.
func NewStore(blobs Blobs, cfg Config, logger *zap.Logger) *BlobStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	suffixes := cfg.Suffixes
	if len(suffixes) == 0 {
		suffixes = []string{".csv.gz", ".csv"}
	}
	return &BlobStore{
		blobs:    blobs,
		prefix:   cfg.Prefix,
		suffixes: suffixes,
		logger:   logger,
	}
}

// ListIdentifiers returns the sorted artifact names for category.
func (s *BlobStore) ListIdentifiers(ctx context.Context, category report.Category) ([]string, error) {
	prefix := category.Prefix
	if s.prefix != "" {
		prefix = path.Join(s.prefix, category.Prefix)
	}
	objects, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s artifacts: %w", category.Name, err)
	}
	ids := make([]string, 0, len(objects))
	for _, obj := range objects {
		if !s.accepts(obj.Name) {
			continue
		}
		ids = append(ids, obj.Name)
	}
	sort.Strings(ids)
	s.logger.Debug("listed artifacts",
		zap.String("category", category.Name),
		zap.String("prefix", prefix),
		zap.Int("objects", len(objects)),
		zap.Int("artifacts", len(ids)),
	)
	return ids, nil
}

// Fetch downloads and decodes one artifact.
func (s *BlobStore) Fetch(ctx context.Context, identifier string) (*report.Table, error) {
	rc, err := s.blobs.Open(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", identifier, err)
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			s.logger.Warn("close artifact reader failed", zap.String("artifact", identifier), zap.Error(cerr))
		}
	}()
	table, err := Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", identifier, err)
	}
	s.logger.Debug("fetched artifact", zap.String("artifact", identifier), zap.Int("rows", table.Len()))
	return table, nil
}

func (s *BlobStore) accepts(name string) bool {
	for _, suffix := range s.suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
