package models

// ConflictChoice is the user's decision for a single naming conflict
type ConflictChoice string

const (
	// ChoiceReplace overwrites the existing destination item
	ChoiceReplace ConflictChoice = "replace"
	// ChoiceSkip leaves the destination untouched and advances
	ChoiceSkip ConflictChoice = "skip"
	// ChoiceKeepBoth writes the incoming item under a synthesized name
	ChoiceKeepBoth ConflictChoice = "keep_both"
	// ChoiceCancel aborts the whole operation
	ChoiceCancel ConflictChoice = "cancel"
)

// ConflictRequest is raised by a running operation when a destination
// path it intends to write already exists. Exactly one request may be
// outstanding per operation at any time.
type ConflictRequest struct {
	// Source is the incoming item
	Source string

	// Dest is the existing destination item
	Dest string

	// MoreConflicts reports whether, at request time, at least one more
	// item in this operation would also conflict
	MoreConflicts bool
}

// ConflictResponse is the issuer's answer to a ConflictRequest
type ConflictResponse struct {
	// Choice is the decision for this conflict
	Choice ConflictChoice

	// ApplyToAll makes the choice sticky for the remainder of the
	// operation; meaningful for Replace and Skip only
	ApplyToAll bool
}

// Sticky reports whether the response should be cached and applied to
// every subsequent conflict within the same operation
func (r ConflictResponse) Sticky() bool {
	if !r.ApplyToAll {
		return false
	}
	return r.Choice == ChoiceReplace || r.Choice == ChoiceSkip
}
