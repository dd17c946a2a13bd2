package ops

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sdejongh/filenorris/pkg/archive"
	"github.com/sdejongh/filenorris/pkg/models"
)

// runCompress packs the operation's paths into one archive. The only
// conflict candidate is the archive path itself.
func (e *Executor) runCompress(ctx context.Context, op models.Operation, ctrl *Controller, conflicts *conflictResolver) (*Result, error) {
	codec, err := archive.ForFormat(op.Format)
	if err != nil {
		return nil, &OpError{Path: op.To, Err: err}
	}

	if err := ctrl.await(); err != nil {
		return nil, err
	}

	result := &Result{}
	finalDst, skip, err := e.negotiateDestination(ctx, ctrl, conflicts, op.To, op.To, nil)
	if err != nil {
		return nil, err
	}
	if skip {
		result.Selection.Ignore(op.To)
		ctrl.setProgress(1)
		ctrl.setPhase("Done")
		result.Summary = "Compression skipped"
		return result, nil
	}
	if finalDst != op.To {
		// Keep-both left the existing archive untouched
		result.Selection.Ignore(op.To)
	}

	ctrl.setPhase(fmt.Sprintf("Compressing %s into %s", countItems(len(op.Paths)), filepath.Base(finalDst)))

	if err := codec.Compress(ctx, op.Paths, finalDst, op.Password); err != nil {
		return nil, &OpError{Path: finalDst, Err: err}
	}

	result.Selection.Select(finalDst)
	ctrl.setProgress(1)
	ctrl.setPhase("Done")
	result.Summary = fmt.Sprintf("Compressed %s into %s", countItems(len(op.Paths)), filepath.Base(finalDst))
	return result, nil
}

// runExtract unpacks each archive into a directory named after it under
// the destination. A protected archive the password cannot unlock is the
// distinguished recoverable failure, not a generic I/O error.
func (e *Executor) runExtract(ctx context.Context, op models.Operation, ctrl *Controller, conflicts *conflictResolver) (*Result, error) {
	total := len(op.Paths)
	result := &Result{}

	for i, archivePath := range op.Paths {
		if err := ctrl.await(); err != nil {
			return nil, err
		}
		ctrl.setPhase(fmt.Sprintf("Extracting item %d of %d", i+1, total))

		codec, err := archive.ForPath(archivePath)
		if err != nil {
			return nil, &OpError{Path: archivePath, Err: err}
		}

		dst := filepath.Join(op.To, archive.Stem(archivePath))
		if root, rerr := codec.Root(ctx, archivePath); rerr == nil && root != "" {
			// Extract strips a shared top-level directory, so name the
			// destination after it rather than the archive file
			dst = filepath.Join(op.To, root)
		}
		finalDst, skip, err := e.negotiateDestination(ctx, ctrl, conflicts, archivePath, dst, extractDestinations(op.Paths[i+1:], op.To))
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

		if err := e.fs.Mkdir(ctx, finalDst); err != nil {
			return nil, &OpError{Path: finalDst, Err: err}
		}

		if err := codec.Extract(ctx, archivePath, finalDst, op.Password); err != nil {
			if errors.Is(err, archive.ErrPasswordRequired) || errors.Is(err, archive.ErrWrongPassword) {
				return nil, &PasswordError{Archive: archivePath, Err: err}
			}
			return nil, &OpError{Path: archivePath, Err: err}
		}

		result.Selection.Select(finalDst)
		ctrl.setProgress(itemProgress(i+1, total))
	}

	ctrl.setPhase("Done")
	result.Summary = fmt.Sprintf("Extracted %s to %s", countItems(total), op.To)
	return result, nil
}

func extractDestinations(archives []string, to string) []string {
	dsts := make([]string, len(archives))
	for i, p := range archives {
		dsts[i] = filepath.Join(to, archive.Stem(p))
	}
	return dsts
}
