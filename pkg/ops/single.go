package ops

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sdejongh/filenorris/pkg/models"
)

// Launcher starts a program detached from the engine. It exists as an
// interface so tests can observe launches without spawning processes.
type Launcher interface {
	Launch(ctx context.Context, path string) error
}

// ExecLauncher launches programs through os/exec, detached: the engine
// neither waits for nor supervises the child
type ExecLauncher struct{}

// Launch starts path as a new process in its own directory
func (ExecLauncher) Launch(ctx context.Context, path string) error {
	cmd := exec.Command(path)
	cmd.Dir = filepath.Dir(path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch %s: %w", path, err)
	}
	return cmd.Process.Release()
}

// runSingle handles the single-step kinds. The issuer validates name
// availability before submission; these can still fail on races when a
// path appears between validation and execution.
func (e *Executor) runSingle(ctx context.Context, op models.Operation, ctrl *Controller) (*Result, error) {
	if err := ctrl.await(); err != nil {
		return nil, err
	}

	result := &Result{Summary: op.Describe()}

	switch op.Kind {
	case models.KindNewFile:
		ctrl.setPhase("Creating file")
		if err := e.fs.CreateFile(ctx, op.Path); err != nil {
			return nil, &OpError{Path: op.Path, Err: err}
		}
		result.Selection.Select(op.Path)

	case models.KindNewFolder:
		ctrl.setPhase("Creating folder")
		exists, err := e.fs.Exists(ctx, op.Path)
		if err != nil {
			return nil, &OpError{Path: op.Path, Err: err}
		}
		if exists {
			return nil, &OpError{Path: op.Path, Err: os.ErrExist}
		}
		if err := e.fs.Mkdir(ctx, op.Path); err != nil {
			return nil, &OpError{Path: op.Path, Err: err}
		}
		result.Selection.Select(op.Path)

	case models.KindRename:
		ctrl.setPhase("Renaming")
		exists, err := e.fs.Exists(ctx, op.To)
		if err != nil {
			return nil, &OpError{Path: op.To, Err: err}
		}
		if exists {
			return nil, &OpError{Path: op.To, Err: os.ErrExist}
		}
		if err := e.moveItem(ctx, op.From, op.To); err != nil {
			return nil, &OpError{Path: op.From, Err: err}
		}
		result.Selection.Select(op.To)

	case models.KindSetExecutableAndLaunch:
		ctrl.setPhase("Launching")
		if err := e.fs.SetExecutable(ctx, op.Path); err != nil {
			return nil, &OpError{Path: op.Path, Err: err}
		}
		if err := e.launcher.Launch(ctx, op.Path); err != nil {
			return nil, &OpError{Path: op.Path, Err: err}
		}
		result.Selection.Select(op.Path)
	}

	ctrl.setProgress(1)
	ctrl.setPhase("Done")
	return result, nil
}
