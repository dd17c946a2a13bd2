package models

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/sdejongh/filenorris/internal/platform"
)

// OperationID is an opaque, strictly increasing identifier for an operation.
// IDs are issued by the registry at submission time and are never reused
// within a process lifetime.
type OperationID int64

// Kind identifies the variant of an Operation
type Kind string

const (
	// KindCopy copies paths into a destination directory
	KindCopy Kind = "copy"
	// KindMove moves paths into a destination directory
	KindMove Kind = "move"
	// KindDelete moves paths to the trash
	KindDelete Kind = "delete"
	// KindRestore restores trash entries to their original locations
	KindRestore Kind = "restore"
	// KindEmptyTrash permanently purges every trash entry
	KindEmptyTrash Kind = "empty_trash"
	// KindCompress packs paths into an archive
	KindCompress Kind = "compress"
	// KindExtract unpacks archives into a destination directory
	KindExtract Kind = "extract"
	// KindNewFile creates an empty file
	KindNewFile Kind = "new_file"
	// KindNewFolder creates an empty directory
	KindNewFolder Kind = "new_folder"
	// KindRename renames a single path
	KindRename Kind = "rename"
	// KindSetExecutableAndLaunch marks a file executable and launches it
	KindSetExecutableAndLaunch Kind = "set_executable_and_launch"
)

// ArchiveFormat identifies a supported archive container
type ArchiveFormat string

const (
	// ArchiveZip is a zip archive, optionally password-protected
	ArchiveZip ArchiveFormat = "zip"
	// ArchiveTarGz is a gzip-compressed tarball (no password support)
	ArchiveTarGz ArchiveFormat = "targz"
)

// TrashEntry is an opaque reference to an item moved to the trash,
// sufficient to restore it later
type TrashEntry struct {
	// ID uniquely identifies the entry within the trash store
	ID string `yaml:"id"`

	// OriginalPath is the absolute path the item was trashed from
	OriginalPath string `yaml:"original_path"`

	// DeletedAt is when the item entered the trash
	DeletedAt time.Time `yaml:"deleted_at"`
}

// Operation is an immutable description of one requested filesystem
// mutation. It is a closed tagged union: Kind selects the variant and
// determines which of the remaining fields are meaningful. All mutable
// execution state lives elsewhere; an Operation is fully determined at
// construction.
type Operation struct {
	// Kind selects the variant
	Kind Kind

	// Paths are the source paths (Copy, Move, Delete, Compress, Extract)
	Paths []string

	// To is the destination: a directory for Copy/Move/Extract, the
	// archive path for Compress, the new path for Rename
	To string

	// From is the path being renamed (Rename only)
	From string

	// Path is the single target path (NewFile, NewFolder,
	// SetExecutableAndLaunch)
	Path string

	// Items are the trash entries to restore (Restore only)
	Items []TrashEntry

	// Format is the archive container to produce (Compress only)
	Format ArchiveFormat

	// Password protects or unlocks an archive; empty means none
	// (Compress, Extract)
	Password string
}

// NewCopy describes copying paths into the directory to
func NewCopy(paths []string, to string) Operation {
	return Operation{Kind: KindCopy, Paths: normPaths(paths), To: normPath(to)}
}

// NewMove describes moving paths into the directory to
func NewMove(paths []string, to string) Operation {
	return Operation{Kind: KindMove, Paths: normPaths(paths), To: normPath(to)}
}

// NewDelete describes moving paths to the trash
func NewDelete(paths []string) Operation {
	return Operation{Kind: KindDelete, Paths: normPaths(paths)}
}

// NewRestore describes restoring trash entries to their original locations
func NewRestore(items []TrashEntry) Operation {
	return Operation{Kind: KindRestore, Items: append([]TrashEntry(nil), items...)}
}

// NewEmptyTrash describes purging every entry from the trash
func NewEmptyTrash() Operation {
	return Operation{Kind: KindEmptyTrash}
}

// NewCompress describes packing paths into the archive at to.
// An empty password produces an unprotected archive.
func NewCompress(paths []string, to string, format ArchiveFormat, password string) Operation {
	return Operation{
		Kind:     KindCompress,
		Paths:    normPaths(paths),
		To:       normPath(to),
		Format:   format,
		Password: password,
	}
}

// NewExtract describes unpacking the given archives into the directory to
func NewExtract(paths []string, to string, password string) Operation {
	return Operation{
		Kind:     KindExtract,
		Paths:    normPaths(paths),
		To:       normPath(to),
		Password: password,
	}
}

// NewFile describes creating an empty file at path
func NewFile(path string) Operation {
	return Operation{Kind: KindNewFile, Path: normPath(path)}
}

// NewFolder describes creating an empty directory at path
func NewFolder(path string) Operation {
	return Operation{Kind: KindNewFolder, Path: normPath(path)}
}

// NewRename describes renaming from to to
func NewRename(from, to string) Operation {
	return Operation{Kind: KindRename, From: normPath(from), To: normPath(to)}
}

// NewSetExecutableAndLaunch describes marking path executable and launching it
func NewSetExecutableAndLaunch(path string) Operation {
	return Operation{Kind: KindSetExecutableAndLaunch, Path: normPath(path)}
}

// normPath cleans a caller-supplied path, leaving the empty string
// alone so validation still catches it
func normPath(p string) string {
	if p == "" {
		return ""
	}
	return platform.NormalizePath(p)
}

func normPaths(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = normPath(p)
	}
	return out
}

// Clone returns a deep copy of the operation
func (op Operation) Clone() Operation {
	c := op
	c.Paths = append([]string(nil), op.Paths...)
	c.Items = append([]TrashEntry(nil), op.Items...)
	return c
}

// ProgressWorthy reports whether the operation contributes to the
// aggregate progress notification. Trivial single-step kinds are
// tracked but excluded from the aggregate.
func (op Operation) ProgressWorthy() bool {
	switch op.Kind {
	case KindCopy, KindMove, KindDelete, KindRestore, KindEmptyTrash, KindCompress, KindExtract:
		return true
	}
	return false
}

// ConflictCapable reports whether the operation can encounter destination
// naming conflicts and therefore participates in the conflict protocol
func (op Operation) ConflictCapable() bool {
	switch op.Kind {
	case KindCopy, KindMove, KindRestore, KindCompress, KindExtract:
		return true
	}
	return false
}

// Validate checks that the operation carries the fields its kind
// requires and that every path can name a filesystem object
func (op Operation) Validate() error {
	for _, p := range op.Paths {
		if err := platform.ValidatePath(p); err != nil {
			return &ValidationError{Field: "Paths", Message: err.Error()}
		}
	}

	switch op.Kind {
	case KindCopy, KindMove:
		if len(op.Paths) == 0 {
			return &ValidationError{Field: "Paths", Message: "at least one source path is required"}
		}
		if op.To == "" {
			return &ValidationError{Field: "To", Message: "destination directory is required"}
		}
	case KindDelete:
		if len(op.Paths) == 0 {
			return &ValidationError{Field: "Paths", Message: "at least one path is required"}
		}
	case KindRestore:
		if len(op.Items) == 0 {
			return &ValidationError{Field: "Items", Message: "at least one trash entry is required"}
		}
	case KindEmptyTrash:
		// no inputs
	case KindCompress:
		if len(op.Paths) == 0 {
			return &ValidationError{Field: "Paths", Message: "at least one source path is required"}
		}
		if op.To == "" {
			return &ValidationError{Field: "To", Message: "archive path is required"}
		}
		if op.Format == "" {
			return &ValidationError{Field: "Format", Message: "archive format is required"}
		}
	case KindExtract:
		if len(op.Paths) == 0 {
			return &ValidationError{Field: "Paths", Message: "at least one archive path is required"}
		}
		if op.To == "" {
			return &ValidationError{Field: "To", Message: "destination directory is required"}
		}
	case KindNewFile, KindNewFolder, KindSetExecutableAndLaunch:
		if op.Path == "" {
			return &ValidationError{Field: "Path", Message: "path is required"}
		}
	case KindRename:
		if op.From == "" {
			return &ValidationError{Field: "From", Message: "source path is required"}
		}
		if op.To == "" {
			return &ValidationError{Field: "To", Message: "target path is required"}
		}
	default:
		return &ValidationError{Field: "Kind", Message: fmt.Sprintf("unknown operation kind %q", op.Kind)}
	}
	return nil
}

// Describe returns a short human-readable summary of the operation
func (op Operation) Describe() string {
	switch op.Kind {
	case KindCopy:
		return fmt.Sprintf("Copy %s to %s", countItems(len(op.Paths)), op.To)
	case KindMove:
		return fmt.Sprintf("Move %s to %s", countItems(len(op.Paths)), op.To)
	case KindDelete:
		return fmt.Sprintf("Move %s to trash", countItems(len(op.Paths)))
	case KindRestore:
		return fmt.Sprintf("Restore %s from trash", countItems(len(op.Items)))
	case KindEmptyTrash:
		return "Empty trash"
	case KindCompress:
		return fmt.Sprintf("Compress %s into %s", countItems(len(op.Paths)), filepath.Base(op.To))
	case KindExtract:
		return fmt.Sprintf("Extract %s to %s", countItems(len(op.Paths)), op.To)
	case KindNewFile:
		return fmt.Sprintf("Create file %s", filepath.Base(op.Path))
	case KindNewFolder:
		return fmt.Sprintf("Create folder %s", filepath.Base(op.Path))
	case KindRename:
		return fmt.Sprintf("Rename %s to %s", filepath.Base(op.From), filepath.Base(op.To))
	case KindSetExecutableAndLaunch:
		return fmt.Sprintf("Launch %s", filepath.Base(op.Path))
	}
	return string(op.Kind)
}

func countItems(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
