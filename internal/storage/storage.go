// Package storage persists grading artifacts: homework PDFs, answer keys,
// per-student reports and class reports.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an artifact does not exist at the given path.
var ErrNotFound = errors.New("artifact not found")

// FileStore reads and writes artifacts addressed by slash separated relative paths.
type FileStore interface {
	Write(ctx context.Context, path string, data []byte) error
	Read(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
}
