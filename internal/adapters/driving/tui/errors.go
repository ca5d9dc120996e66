package tui

import "errors"

// ErrMissingRefresher is returned when the bulk refresher is not provided.
var ErrMissingRefresher = errors.New("tui: bulk refresher is required")

// ErrMissingSummaries is returned when no summary channel is provided.
var ErrMissingSummaries = errors.New("tui: summary channel is required")
