package storage

import (
	"context"

	"github.com/sdejongh/filenorris/pkg/models"
)

// Trash defines the trash store the operation engine consumes. Entries
// are addressed by opaque handles; handles are not guaranteed stable
// across process restarts, so callers that need to find an entry later
// re-resolve it by original path via List.
type Trash interface {
	// Trash moves path into the store and returns its entry handle
	Trash(ctx context.Context, path string) (models.TrashEntry, error)

	// Restore moves the entry's content to dst and removes the entry
	// from the store
	Restore(ctx context.Context, entry models.TrashEntry, dst string) error

	// List returns every entry in the store, ordered by deletion time
	// from oldest to newest (ties broken by entry id)
	List(ctx context.Context) ([]models.TrashEntry, error)

	// Purge permanently deletes the entry and its content
	Purge(ctx context.Context, entry models.TrashEntry) error
}
