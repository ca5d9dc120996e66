package domain

import "time"

// ChangeKind tags what attribute a TransitionRecord describes.
type ChangeKind string

const (
	// ChangeStatus records an availability status change.
	ChangeStatus ChangeKind = "status"

	// The following kinds are recorded by metadata refreshes.
	ChangeVersion      ChangeKind = "version"
	ChangeName         ChangeKind = "name"
	ChangeIcon         ChangeKind = "icon"
	ChangeReleaseNotes ChangeKind = "release_notes"
	ChangeDescription  ChangeKind = "description"
)

// TransitionRecord is an append-only audit entry owned by a TrackedItem.
// Records are created only inside a successful commit and never mutated.
type TransitionRecord struct {
	// ID uniquely identifies the record.
	ID string

	// ItemKey is the owning item.
	ItemKey ItemKey

	// At is when the change was committed.
	At time.Time

	// Kind tags the changed attribute.
	Kind ChangeKind

	// OldValue is the previous value.
	OldValue string

	// NewValue is the committed value.
	NewValue string
}
