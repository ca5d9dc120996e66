package driving

import (
	"context"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
)

// SchedulerStatus reports the persisted state of unattended refreshes.
type SchedulerStatus interface {
	// Task returns the background refresh task, or nil if it never ran.
	Task(ctx context.Context) (*domain.ScheduledTask, error)

	// History returns recent background runs, most recent first.
	History(ctx context.Context, limit int) ([]domain.TaskResult, error)
}
