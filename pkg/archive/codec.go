// Package archive wraps the archive container formats the operation
// engine can produce and consume. The engine delegates all byte-level
// work here; its own responsibility stays limited to destination
// conflict handling and the distinguished password failure modes.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sdejongh/filenorris/pkg/models"
)

var (
	// ErrPasswordRequired indicates the archive is encrypted and no
	// password was supplied
	ErrPasswordRequired = errors.New("archive password required")

	// ErrWrongPassword indicates the supplied password did not unlock
	// the archive
	ErrWrongPassword = errors.New("archive password incorrect")

	// ErrPasswordUnsupported indicates the format cannot carry a
	// password
	ErrPasswordUnsupported = errors.New("archive format does not support passwords")
)

// Codec compresses and extracts one archive container format
type Codec interface {
	// Compress packs the given paths into a new archive at archivePath.
	// An empty password produces an unprotected archive.
	Compress(ctx context.Context, paths []string, archivePath, password string) error

	// Extract unpacks the archive into destDir, creating it if needed.
	// A single top-level directory shared by every entry is stripped so
	// the contents land directly in destDir. Returns ErrPasswordRequired
	// or ErrWrongPassword for protected archives the password cannot
	// unlock.
	Extract(ctx context.Context, archivePath, destDir, password string) error

	// Root reports the single top-level directory every entry lives
	// under, or "" when the archive has no common root
	Root(ctx context.Context, archivePath string) (string, error)
}

// ForFormat returns the codec for an archive format
func ForFormat(format models.ArchiveFormat) (Codec, error) {
	switch format {
	case models.ArchiveZip:
		return &ZipCodec{}, nil
	case models.ArchiveTarGz:
		return &TarGzCodec{}, nil
	}
	return nil, fmt.Errorf("unsupported archive format %q", format)
}

// ForPath returns the codec matching a file name's extension
func ForPath(path string) (Codec, error) {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".zip"):
		return &ZipCodec{}, nil
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return &TarGzCodec{}, nil
	}
	return nil, fmt.Errorf("unrecognized archive extension in %q", filepath.Base(path))
}

// Stem returns the archive file name with its archive extension removed,
// used to name the directory an archive extracts into
func Stem(path string) string {
	name := filepath.Base(path)
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"):
		return name[:len(name)-len(".tar.gz")]
	case strings.HasSuffix(lower, ".tgz"), strings.HasSuffix(lower, ".zip"):
		return name[:len(name)-4]
	}
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}

// rootTracker folds archive entry names into the single top-level
// directory they all share. A top-level file, or entries under
// differing first segments, means there is no common root.
type rootTracker struct {
	root  string
	multi bool
}

func (t *rootTracker) add(name string, isDir bool) {
	name = strings.Trim(name, "/")
	if name == "" {
		return
	}
	first, _, nested := strings.Cut(name, "/")
	if !nested && !isDir {
		t.multi = true
		return
	}
	switch {
	case t.root == "":
		t.root = first
	case t.root != first:
		t.multi = true
	}
}

func (t *rootTracker) single() string {
	if t.multi {
		return ""
	}
	return t.root
}

// stripRoot removes a shared top-level directory from an entry name.
// The root entry itself maps to ".", meaning destDir.
func stripRoot(name, root string) string {
	if root == "" {
		return name
	}
	rest := strings.TrimPrefix(strings.Trim(name, "/"), root)
	rest = strings.TrimPrefix(rest, "/")
	if rest == "" {
		return "."
	}
	return rest
}
