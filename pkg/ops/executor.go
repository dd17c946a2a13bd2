package ops

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sdejongh/filenorris/pkg/logging"
	"github.com/sdejongh/filenorris/pkg/models"
	"github.com/sdejongh/filenorris/pkg/storage"
)

// defaultKeepBothLimit caps the numeric suffix tried when synthesizing
// a keep-both destination name
const defaultKeepBothLimit = 1000

// Result is what a successful operation hands back to the issuer
type Result struct {
	// Selection drives post-operation UI selection reconciliation
	Selection models.OperationSelection

	// Trashed are the entries a Delete collected, needed for undo
	Trashed []models.TrashEntry

	// Summary is a short human-readable completion message
	Summary string
}

// Executor performs the filesystem or archive mutation one operation
// describes, honoring its controller before every step and negotiating
// destination conflicts through the conflict resolver
type Executor struct {
	fs            storage.Backend
	trash         storage.Trash
	launcher      Launcher
	logger        logging.Logger
	keepBothLimit int
}

// NewExecutor creates an executor over the given collaborators. Nil
// launcher and logger select the defaults.
func NewExecutor(fs storage.Backend, trash storage.Trash, launcher Launcher, logger logging.Logger) *Executor {
	if launcher == nil {
		launcher = ExecLauncher{}
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Executor{
		fs:            fs,
		trash:         trash,
		launcher:      launcher,
		logger:        logger,
		keepBothLimit: defaultKeepBothLimit,
	}
}

// Run executes op to completion. It returns ErrCancelled when the user
// stopped the operation, a *PasswordError when an archive needs a
// password, and a *OpError for hard failures. Partially transferred
// destinations are left as-is; there is no rollback.
func (e *Executor) Run(ctx context.Context, op models.Operation, ctrl *Controller, conflicts *conflictResolver) (*Result, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	switch op.Kind {
	case models.KindCopy:
		return e.runTransfer(ctx, op, ctrl, conflicts, false)
	case models.KindMove:
		return e.runTransfer(ctx, op, ctrl, conflicts, true)
	case models.KindDelete:
		return e.runDelete(ctx, op, ctrl)
	case models.KindRestore:
		return e.runRestore(ctx, op, ctrl, conflicts)
	case models.KindEmptyTrash:
		return e.runEmptyTrash(ctx, ctrl)
	case models.KindCompress:
		return e.runCompress(ctx, op, ctrl, conflicts)
	case models.KindExtract:
		return e.runExtract(ctx, op, ctrl, conflicts)
	case models.KindNewFile, models.KindNewFolder, models.KindRename, models.KindSetExecutableAndLaunch:
		return e.runSingle(ctx, op, ctrl)
	}

	// Validate rejects unknown kinds; reaching here is a programmer error
	panic(fmt.Sprintf("ops: unhandled operation kind %q", op.Kind))
}

// negotiateDestination applies the conflict protocol to one intended
// destination. It returns the (possibly re-synthesized) destination to
// write, or skip=true when the item must be left alone. remaining are
// the destinations the operation still intends after this one; they
// feed the request's MoreConflicts flag.
func (e *Executor) negotiateDestination(ctx context.Context, ctrl *Controller, conflicts *conflictResolver, src, dst string, remaining []string) (finalDst string, skip bool, err error) {
	exists, err := e.fs.Exists(ctx, dst)
	if err != nil {
		return "", false, &OpError{Path: dst, Err: err}
	}
	if !exists {
		return dst, false, nil
	}

	prev := ctrl.currentPhase()
	ctrl.setPhase("Waiting for conflict decision")
	choice, err := conflicts.ask(ctrl, models.ConflictRequest{
		Source:        src,
		Dest:          dst,
		MoreConflicts: e.anyExists(ctx, remaining),
	})
	if err != nil {
		return "", false, err
	}
	ctrl.setPhase(prev)

	e.logger.Debug(ctx, "conflict resolved", logging.Fields{"dest": dst, "choice": string(choice)})

	switch choice {
	case models.ChoiceReplace:
		if err := e.fs.Remove(ctx, dst); err != nil {
			return "", false, &OpError{Path: dst, Err: err}
		}
		return dst, false, nil
	case models.ChoiceSkip:
		return "", true, nil
	case models.ChoiceKeepBoth:
		alt, err := e.keepBothPath(ctx, dst)
		if err != nil {
			return "", false, err
		}
		return alt, false, nil
	case models.ChoiceCancel:
		// Cancelling the dialog cancels the whole operation
		ctrl.Cancel()
		return "", false, ErrCancelled
	}

	return "", false, &OpError{Path: dst, Err: fmt.Errorf("unknown conflict choice %q", choice)}
}

// keepBothPath synthesizes a deterministic disambiguated sibling of dst:
// the smallest "name (N).ext" whose path does not exist at request time
func (e *Executor) keepBothPath(ctx context.Context, dst string) (string, error) {
	dir := filepath.Dir(dst)
	name := filepath.Base(dst)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 1; i <= e.keepBothLimit; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		exists, err := e.fs.Exists(ctx, candidate)
		if err != nil {
			return "", &OpError{Path: candidate, Err: err}
		}
		if !exists {
			return candidate, nil
		}
	}

	return "", &OpError{Path: dst, Err: fmt.Errorf("no free name after %d attempts", e.keepBothLimit)}
}

// anyExists reports whether any of the given destinations currently
// exists; probe errors count as non-existing since the transfer itself
// will surface them
func (e *Executor) anyExists(ctx context.Context, dsts []string) bool {
	for _, dst := range dsts {
		if exists, err := e.fs.Exists(ctx, dst); err == nil && exists {
			return true
		}
	}
	return false
}

func itemProgress(done, total int) float64 {
	if total == 0 {
		return 1
	}
	return float64(done) / float64(total)
}
