package storage

import (
	"context"
	"io/fs"
	"time"
)

// FileInfo represents metadata about a file or directory
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
	IsDir   bool
	Mode    fs.FileMode
}

// Backend defines the primitive filesystem calls the operation engine
// consumes. Paths are absolute. Errors are surfaced as opaque,
// displayable values; the engine converts them to typed outcomes.
type Backend interface {
	// Stat returns metadata for the given path
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Exists checks if a file or directory exists
	Exists(ctx context.Context, path string) (bool, error)

	// List returns the contents of a directory tree recursively, in a
	// stable, deterministic order
	List(ctx context.Context, path string) ([]FileInfo, error)

	// Copy duplicates src at dst. Directories are copied recursively,
	// preserving permissions and modification times best-effort.
	Copy(ctx context.Context, src, dst string) error

	// Rename moves src to dst in a single step. It fails when src and
	// dst are on different devices; callers fall back to Copy+Remove.
	Rename(ctx context.Context, src, dst string) error

	// Remove deletes a file or directory tree permanently
	Remove(ctx context.Context, path string) error

	// Mkdir creates a directory and any missing parents
	Mkdir(ctx context.Context, path string) error

	// CreateFile creates an empty file, failing if the path exists
	CreateFile(ctx context.Context, path string) error

	// SetExecutable adds the execute bits to a file, preserving the
	// remaining mode bits
	SetExecutable(ctx context.Context, path string) error
}
