package ops

import (
	"context"

	"github.com/sdejongh/filenorris/pkg/models"
)

// UndoDelete reverses a just-completed Delete. Trash entry handles are
// not retained across the completion toast's lifetime, so the trash
// store is re-scanned and entries are matched by recorded original path.
// When several entries share a path (the file was deleted, recreated and
// deleted again) the most recently trashed one wins. A Restore operation
// covering exactly the matches is submitted and its id returned.
func (r *Registry) UndoDelete(ctx context.Context, recentlyDeleted []string) (models.OperationID, error) {
	entries, err := r.trash.List(ctx)
	if err != nil {
		return 0, err
	}

	wanted := make(map[string]bool, len(recentlyDeleted))
	for _, path := range recentlyDeleted {
		wanted[path] = true
	}

	// List is ordered oldest to newest, so the last match per path is
	// the most recent
	best := make(map[string]models.TrashEntry)
	for _, entry := range entries {
		if wanted[entry.OriginalPath] {
			best[entry.OriginalPath] = entry
		}
	}

	// Keep the caller's path order for deterministic restore order
	items := make([]models.TrashEntry, 0, len(best))
	for _, path := range recentlyDeleted {
		if entry, ok := best[path]; ok {
			items = append(items, entry)
			delete(best, path)
		}
	}

	if len(items) == 0 {
		return 0, ErrNothingToRestore
	}

	return r.Submit(models.NewRestore(items))
}
