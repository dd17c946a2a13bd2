package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/sdejongh/filenorris/pkg/models"
)

// LocalTrash is a directory-backed trash store. Content lives under
// <root>/files/<id> and a per-entry metadata record under
// <root>/info/<id>.yaml, so entries survive process restarts and can be
// re-resolved by original path.
type LocalTrash struct {
	root    string
	backend *Local
}

// trashRecord is the on-disk metadata for one entry
type trashRecord struct {
	ID           string    `yaml:"id"`
	OriginalPath string    `yaml:"original_path"`
	DeletedAt    time.Time `yaml:"deleted_at"`
}

// DefaultTrashDir returns the trash location inside the user's XDG data
// directory
func DefaultTrashDir() string {
	return filepath.Join(xdg.DataHome, "filenorris", "trash")
}

// NewLocalTrash creates a trash store rooted at dir, creating the
// layout if needed. An empty dir selects DefaultTrashDir.
func NewLocalTrash(dir string) (*LocalTrash, error) {
	if dir == "" {
		dir = DefaultTrashDir()
	}

	for _, sub := range []string{"files", "info"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0700); err != nil {
			return nil, fmt.Errorf("failed to create trash directory: %w", err)
		}
	}

	return &LocalTrash{root: dir, backend: NewLocal()}, nil
}

// Trash moves path into the store and returns its entry handle
func (t *LocalTrash) Trash(ctx context.Context, path string) (models.TrashEntry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return models.TrashEntry{}, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	if _, err := os.Lstat(abs); err != nil {
		return models.TrashEntry{}, fmt.Errorf("failed to trash %s: %w", abs, err)
	}

	entry := models.TrashEntry{
		ID:           uuid.NewString(),
		OriginalPath: abs,
		DeletedAt:    time.Now().UTC(),
	}

	// Write the metadata record first so a crash mid-move never leaves
	// orphaned content without a record
	if err := t.writeRecord(entry); err != nil {
		return models.TrashEntry{}, err
	}

	stored := t.filePath(entry.ID)
	if err := t.moveAcrossDevices(ctx, abs, stored); err != nil {
		os.Remove(t.infoPath(entry.ID))
		return models.TrashEntry{}, fmt.Errorf("failed to trash %s: %w", abs, err)
	}

	return entry, nil
}

// Restore moves the entry's content to dst and drops the entry
func (t *LocalTrash) Restore(ctx context.Context, entry models.TrashEntry, dst string) error {
	stored := t.filePath(entry.ID)
	if _, err := os.Lstat(stored); err != nil {
		return fmt.Errorf("trash entry %s not found: %w", entry.ID, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", dst, err)
	}

	if err := t.moveAcrossDevices(ctx, stored, dst); err != nil {
		return fmt.Errorf("failed to restore %s: %w", entry.OriginalPath, err)
	}

	if err := os.Remove(t.infoPath(entry.ID)); err != nil {
		return fmt.Errorf("failed to drop trash record %s: %w", entry.ID, err)
	}

	return nil
}

// List returns every entry ordered by deletion time, oldest first
func (t *LocalTrash) List(ctx context.Context) ([]models.TrashEntry, error) {
	infos, err := os.ReadDir(filepath.Join(t.root, "info"))
	if err != nil {
		return nil, fmt.Errorf("failed to read trash index: %w", err)
	}

	var entries []models.TrashEntry
	for _, info := range infos {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if info.IsDir() || !strings.HasSuffix(info.Name(), ".yaml") {
			continue
		}

		record, err := t.readRecord(filepath.Join(t.root, "info", info.Name()))
		if err != nil {
			return nil, err
		}

		entries = append(entries, models.TrashEntry{
			ID:           record.ID,
			OriginalPath: record.OriginalPath,
			DeletedAt:    record.DeletedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].DeletedAt.Equal(entries[j].DeletedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].DeletedAt.Before(entries[j].DeletedAt)
	})

	return entries, nil
}

// Purge permanently deletes the entry and its content
func (t *LocalTrash) Purge(ctx context.Context, entry models.TrashEntry) error {
	if err := os.RemoveAll(t.filePath(entry.ID)); err != nil {
		return fmt.Errorf("failed to purge trash entry %s: %w", entry.ID, err)
	}
	if err := os.Remove(t.infoPath(entry.ID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to drop trash record %s: %w", entry.ID, err)
	}
	return nil
}

func (t *LocalTrash) filePath(id string) string {
	return filepath.Join(t.root, "files", id)
}

func (t *LocalTrash) infoPath(id string) string {
	return filepath.Join(t.root, "info", id+".yaml")
}

func (t *LocalTrash) writeRecord(entry models.TrashEntry) error {
	record := trashRecord{
		ID:           entry.ID,
		OriginalPath: entry.OriginalPath,
		DeletedAt:    entry.DeletedAt,
	}

	data, err := yaml.Marshal(&record)
	if err != nil {
		return fmt.Errorf("failed to marshal trash record: %w", err)
	}

	if err := os.WriteFile(t.infoPath(entry.ID), data, 0600); err != nil {
		return fmt.Errorf("failed to write trash record: %w", err)
	}

	return nil
}

func (t *LocalTrash) readRecord(path string) (*trashRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trash record: %w", err)
	}

	var record trashRecord
	if err := yaml.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse trash record %s: %w", path, err)
	}

	return &record, nil
}

// moveAcrossDevices renames when possible and falls back to copy+remove
// when src and dst live on different filesystems
func (t *LocalTrash) moveAcrossDevices(ctx context.Context, src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := t.backend.Copy(ctx, src, dst); err != nil {
		return err
	}
	return os.RemoveAll(src)
}
