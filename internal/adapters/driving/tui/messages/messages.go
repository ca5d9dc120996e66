// Package messages defines Bubbletea message types for the refresh view.
package messages

import (
	"time"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
)

// ProgressTick asks the view to poll the orchestrator's progress.
type ProgressTick struct {
	At time.Time
}

// RunFinished carries the run's summary back to the view.
// OK is false when the summary channel closed without a value.
type RunFinished struct {
	Summary domain.CycleSummary
	OK      bool
}
