package ops

import (
	"context"
	"fmt"

	"github.com/sdejongh/filenorris/pkg/logging"
	"github.com/sdejongh/filenorris/pkg/models"
)

// runDelete moves each path to the trash, collecting the entry handles
// for later undo. The first failure fails the whole operation; remaining
// paths are left untouched.
func (e *Executor) runDelete(ctx context.Context, op models.Operation, ctrl *Controller) (*Result, error) {
	total := len(op.Paths)
	result := &Result{}

	for i, path := range op.Paths {
		if err := ctrl.await(); err != nil {
			return nil, err
		}
		ctrl.setPhase(fmt.Sprintf("Moving to trash, item %d of %d", i+1, total))

		entry, err := e.trash.Trash(ctx, path)
		if err != nil {
			return nil, &OpError{Path: path, Err: err}
		}

		e.logger.Debug(ctx, "trashed", logging.Fields{"path": path, "entry": entry.ID})
		result.Trashed = append(result.Trashed, entry)
		ctrl.setProgress(itemProgress(i+1, total))
	}

	ctrl.setPhase("Done")
	result.Summary = fmt.Sprintf("Moved %s to trash", countItems(total))
	return result, nil
}

// runEmptyTrash purges every entry in listing order
func (e *Executor) runEmptyTrash(ctx context.Context, ctrl *Controller) (*Result, error) {
	if err := ctrl.await(); err != nil {
		return nil, err
	}
	ctrl.setPhase("Scanning trash")

	entries, err := e.trash.List(ctx)
	if err != nil {
		return nil, &OpError{Path: "trash", Err: err}
	}

	total := len(entries)
	for i, entry := range entries {
		if err := ctrl.await(); err != nil {
			return nil, err
		}
		ctrl.setPhase(fmt.Sprintf("Emptying trash, item %d of %d", i+1, total))

		if err := e.trash.Purge(ctx, entry); err != nil {
			return nil, &OpError{Path: entry.OriginalPath, Err: err}
		}
		ctrl.setProgress(itemProgress(i+1, total))
	}

	ctrl.setProgress(1)
	ctrl.setPhase("Done")
	return &Result{Summary: fmt.Sprintf("Emptied trash (%s)", countItems(total))}, nil
}
