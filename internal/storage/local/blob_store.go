// Package local serves report artifacts from a directory tree.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/crawl-reports/internal/artifact"
)

// Config captures the parameters for the local filesystem blob store.
type Config struct {
	// BaseDir is the root directory artifacts are read from.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// BlobStore reads artifacts from the local filesystem. Object names are
// slash-separated paths relative to BaseDir.
type BlobStore struct {
	baseDir string
}

// New creates a local filesystem-backed blob store.
func New(cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}
	return &BlobStore{
		baseDir: filepath.Clean(cfg.BaseDir),
	}, nil
}

// List walks BaseDir and returns the regular files whose relative name
// starts with prefix.
func (s *BlobStore) List(ctx context.Context, prefix string) ([]artifact.Object, error) {
	var out []artifact.Object
	err := filepath.WalkDir(s.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, artifact.Object{Name: name, Size: info.Size(), Updated: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %v", artifact.ErrStorageUnavailable, s.baseDir, err)
	}
	return out, nil
}

// Open opens one artifact for reading.
func (s *BlobStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: empty name", artifact.ErrNotFound)
	}
	fullPath := filepath.Clean(filepath.Join(s.baseDir, filepath.FromSlash(name)))
	if !strings.HasPrefix(fullPath, s.baseDir+string(filepath.Separator)) {
		return nil, fmt.Errorf("path traversal detected: %s", name)
	}
	// #nosec G304 -- path is confined to baseDir above.
	f, err := os.Open(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", artifact.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", artifact.ErrStorageUnavailable, name, err)
	}
	return f, nil
}
