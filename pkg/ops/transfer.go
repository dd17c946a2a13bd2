package ops

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"syscall"

	"github.com/sdejongh/filenorris/pkg/logging"
	"github.com/sdejongh/filenorris/pkg/models"
)

// runTransfer is the shared item loop for Copy and Move. Items are the
// operation's top-level source paths, processed in submission order;
// directories transfer recursively as one item.
func (e *Executor) runTransfer(ctx context.Context, op models.Operation, ctrl *Controller, conflicts *conflictResolver, move bool) (*Result, error) {
	verb := "Copying"
	if move {
		verb = "Moving"
	}

	total := len(op.Paths)
	result := &Result{}

	for i, src := range op.Paths {
		if err := ctrl.await(); err != nil {
			return nil, err
		}
		ctrl.setPhase(fmt.Sprintf("%s item %d of %d", verb, i+1, total))

		dst := filepath.Join(op.To, filepath.Base(src))
		finalDst, skip, err := e.negotiateDestination(ctx, ctrl, conflicts, src, dst, destinationsFor(op.Paths[i+1:], op.To))
		if err != nil {
			return nil, err
		}
		if skip {
			result.Selection.Ignore(dst)
			ctrl.setProgress(itemProgress(i+1, total))
			continue
		}
		if finalDst != dst {
			// Keep-both left the existing destination untouched
			result.Selection.Ignore(dst)
		}

		if move {
			err = e.moveItem(ctx, src, finalDst)
		} else {
			err = e.fs.Copy(ctx, src, finalDst)
		}
		if err != nil {
			return nil, &OpError{Path: src, Err: err}
		}

		result.Selection.Select(finalDst)
		ctrl.setProgress(itemProgress(i+1, total))
	}

	ctrl.setPhase("Done")
	result.Summary = fmt.Sprintf("%s %s to %s", pastTense(verb), countItems(len(result.Selection.Selected)), op.To)
	return result, nil
}

// moveItem renames and falls back to copy+remove across devices
func (e *Executor) moveItem(ctx context.Context, src, dst string) error {
	err := e.fs.Rename(ctx, src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	e.logger.Debug(ctx, "cross-device move, falling back to copy",
		logging.Fields{"src": src, "dst": dst})

	if err := e.fs.Copy(ctx, src, dst); err != nil {
		return err
	}
	return e.fs.Remove(ctx, src)
}

// runRestore moves trash entries back to their original locations,
// following the same conflict protocol as Copy
func (e *Executor) runRestore(ctx context.Context, op models.Operation, ctrl *Controller, conflicts *conflictResolver) (*Result, error) {
	total := len(op.Items)
	result := &Result{}

	for i, entry := range op.Items {
		if err := ctrl.await(); err != nil {
			return nil, err
		}
		ctrl.setPhase(fmt.Sprintf("Restoring item %d of %d", i+1, total))

		dst := entry.OriginalPath
		finalDst, skip, err := e.negotiateDestination(ctx, ctrl, conflicts, entry.OriginalPath, dst, originalsOf(op.Items[i+1:]))
		if err != nil {
			return nil, err
		}
		if skip {
			result.Selection.Ignore(dst)
			ctrl.setProgress(itemProgress(i+1, total))
			continue
		}
		if finalDst != dst {
			// Keep-both left the file at the original path untouched
			result.Selection.Ignore(dst)
		}

		if err := e.trash.Restore(ctx, entry, finalDst); err != nil {
			return nil, &OpError{Path: entry.OriginalPath, Err: err}
		}

		result.Selection.Select(finalDst)
		ctrl.setProgress(itemProgress(i+1, total))
	}

	ctrl.setPhase("Done")
	result.Summary = fmt.Sprintf("Restored %s from trash", countItems(len(result.Selection.Selected)))
	return result, nil
}

func destinationsFor(paths []string, to string) []string {
	dsts := make([]string, len(paths))
	for i, p := range paths {
		dsts[i] = filepath.Join(to, filepath.Base(p))
	}
	return dsts
}

func originalsOf(items []models.TrashEntry) []string {
	paths := make([]string, len(items))
	for i, entry := range items {
		paths[i] = entry.OriginalPath
	}
	return paths
}

func pastTense(verb string) string {
	switch verb {
	case "Copying":
		return "Copied"
	case "Moving":
		return "Moved"
	}
	return verb
}

func countItems(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}
