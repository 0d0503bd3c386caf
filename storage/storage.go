// Package storage resolves dataset asset paths to readable objects, either on
// local disk or in S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotExist is returned when an asset is missing from its store.
var ErrNotExist = errors.New("storage: object does not exist")

// Store opens dataset assets by path.
type Store interface {
	// Open returns a reader for the asset. Missing assets yield an error
	// wrapping ErrNotExist.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists reports whether the asset can be opened.
	Exists(ctx context.Context, path string) bool
}

// Local reads assets from the filesystem. Relative paths are resolved
// against Root when it is set.
type Local struct {
	Root string
}

func (l Local) resolve(path string) string {
	if l.Root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.Root, path)
}

// Open opens the named file.
func (l Local) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(l.resolve(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
		}
		return nil, err
	}
	return f, nil
}

// Exists reports whether the named file exists.
func (l Local) Exists(_ context.Context, path string) bool {
	_, err := os.Stat(l.resolve(path))
	return err == nil
}

// Router sends s3:// paths to Remote and everything else to Local.
type Router struct {
	Local  Store
	Remote Store
}

func (r Router) pick(path string) (Store, error) {
	if IsS3(path) {
		if r.Remote == nil {
			return nil, fmt.Errorf("no S3 store configured for %s", path)
		}
		return r.Remote, nil
	}
	if r.Local == nil {
		return Local{}, nil
	}
	return r.Local, nil
}

// Open opens path in the store that owns it.
func (r Router) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	s, err := r.pick(path)
	if err != nil {
		return nil, err
	}
	return s.Open(ctx, path)
}

// Exists reports whether path exists in the store that owns it.
func (r Router) Exists(ctx context.Context, path string) bool {
	s, err := r.pick(path)
	if err != nil {
		return false
	}
	return s.Exists(ctx, path)
}

// IsS3 reports whether path is an s3:// URL.
func IsS3(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// ReadFile reads a whole asset into memory.
func ReadFile(ctx context.Context, s Store, path string) ([]byte, error) {
	rc, err := s.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
