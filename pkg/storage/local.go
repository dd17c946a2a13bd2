package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sdejongh/filenorris/pkg/ratelimit"
)

// DefaultBufferSize is the buffer size used for file copies when none
// is configured
const DefaultBufferSize = 64 * 1024

// Local is the local filesystem backend
type Local struct {
	bufferSize int
	limiter    *ratelimit.Limiter
}

// NewLocal creates a new local filesystem backend
func NewLocal() *Local {
	return &Local{bufferSize: DefaultBufferSize}
}

// NewLocalWithBufferSize creates a local backend with an explicit copy
// buffer size
func NewLocalWithBufferSize(bufferSize int) *Local {
	if bufferSize < 1024 {
		bufferSize = DefaultBufferSize
	}
	return &Local{bufferSize: bufferSize}
}

// NewLocalWithLimits creates a local backend with an explicit copy
// buffer size and a bandwidth cap in bytes per second; a non-positive
// cap means unlimited
func NewLocalWithLimits(bufferSize int, bytesPerSecond int64) *Local {
	l := NewLocalWithBufferSize(bufferSize)
	l.limiter = ratelimit.NewLimiter(bytesPerSecond)
	return l
}

// Stat returns file metadata
func (l *Local) Stat(ctx context.Context, path string) (*FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return &FileInfo{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
		Mode:    info.Mode(),
	}, nil
}

// Exists checks if a file or directory exists
func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check existence of %s: %w", path, err)
}

// List returns all entries under path recursively. filepath.WalkDir
// visits entries in lexical order, which keeps the result deterministic.
func (l *Local) List(ctx context.Context, path string) ([]FileInfo, error) {
	var files []FileInfo

	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Check context cancellation between entries
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		files = append(files, FileInfo{
			Path:    p,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   info.IsDir(),
			Mode:    info.Mode(),
		})

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}

	return files, nil
}

// Copy duplicates src at dst, recursing into directories
func (l *Local) Copy(ctx context.Context, src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat source %s: %w", src, err)
	}

	if info.IsDir() {
		return l.copyDir(ctx, src, dst, info)
	}
	return l.copyFile(ctx, src, dst, info)
}

func (l *Local) copyDir(ctx context.Context, src, dst string, info os.FileInfo) error {
	if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dst, err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", src, err)
	}

	for _, entry := range entries {
		// Check context cancellation between entries
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		srcEntry := filepath.Join(src, entry.Name())
		dstEntry := filepath.Join(dst, entry.Name())

		entryInfo, err := entry.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", srcEntry, err)
		}

		if entry.IsDir() {
			if err := l.copyDir(ctx, srcEntry, dstEntry, entryInfo); err != nil {
				return err
			}
		} else {
			if err := l.copyFile(ctx, srcEntry, dstEntry, entryInfo); err != nil {
				return err
			}
		}
	}

	// Preserve the directory's modification time after its contents settle
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("failed to set modification time on %s: %w", dst, err)
	}

	return nil
}

func (l *Local) copyFile(ctx context.Context, src, dst string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	buf := make([]byte, l.bufferSize)
	if _, err := io.CopyBuffer(out, ratelimit.NewReader(ctx, in, l.limiter), buf); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}

	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("failed to set modification time on %s: %w", dst, err)
	}

	return nil
}

// Rename moves src to dst in a single step
func (l *Local) Rename(ctx context.Context, src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", src, dst, err)
	}
	return nil
}

// Remove deletes a file or directory tree permanently
func (l *Local) Remove(ctx context.Context, path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// Mkdir creates a directory and all necessary parents
func (l *Local) Mkdir(ctx context.Context, path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// CreateFile creates an empty file, failing if the path already exists
func (l *Local) CreateFile(ctx context.Context, path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	return f.Close()
}

// SetExecutable adds the execute bits to a file for every class that
// already has the read bit
func (l *Local) SetExecutable(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	mode := info.Mode().Perm()
	exec := mode>>2&0111 | 0100
	if err := os.Chmod(path, mode|exec); err != nil {
		return fmt.Errorf("failed to set executable on %s: %w", path, err)
	}
	return nil
}
