// Package ops implements the operation execution engine: independently
// cancellable, pausable, progress-reporting filesystem operations with
// asynchronous conflict negotiation between the running task and the
// issuing UI.
package ops

import (
	"errors"
	"fmt"
)

// ErrCancelled marks an operation stopped by the user. It is not a
// failure: the issuer must not raise error dialogs or retry logic for it.
var ErrCancelled = errors.New("operation cancelled by user")

// ErrNothingToRestore is returned by undo-delete reconciliation when no
// trash entry matches the recently deleted paths
var ErrNothingToRestore = errors.New("no trash entries match the recently deleted paths")

// PasswordError is the recoverable, input-needed failure: an archive
// required a password it wasn't given, or the given one was wrong. The
// issuer re-prompts and resubmits the same operation with a password
// rather than reporting a dead end.
type PasswordError struct {
	// Archive is the path of the archive that needs a password
	Archive string
	// Err is the underlying codec error
	Err error
}

func (e *PasswordError) Error() string {
	return fmt.Sprintf("archive %s: %v", e.Archive, e.Err)
}

func (e *PasswordError) Unwrap() error {
	return e.Err
}

// IsPasswordError reports whether err is the distinguished
// password-required failure
func IsPasswordError(err error) bool {
	var pe *PasswordError
	return errors.As(err, &pe)
}

// OpError is a hard failure: an I/O or codec error on a specific path.
// The operation moves to failed and is retryable only by resubmission.
type OpError struct {
	// Path is the offending path
	Path string
	// Err is the underlying error
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
