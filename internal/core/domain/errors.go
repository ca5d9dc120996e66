package domain

import "errors"

// Sentinel errors shared by services and adapters. Wrap them with %w and
// match with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")

	// ErrNoCheckURL means the item has no listing URL to probe.
	ErrNoCheckURL = errors.New("no resolvable check URL")

	// ErrRefreshInProgress rejects a second bulk or single refresh while one
	// is still running.
	ErrRefreshInProgress = errors.New("refresh in progress")

	// ErrCommitFailed means the transaction was rolled back and nothing
	// was written.
	ErrCommitFailed = errors.New("commit failed")
)
