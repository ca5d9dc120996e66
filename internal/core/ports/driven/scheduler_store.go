package driven

import (
	"context"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
)

// SchedulerStore persists the unattended refresh task and its run history,
// so the next due time survives restarts of the daemon.
type SchedulerStore interface {
	// GetTask returns the task with taskID, or nil when it was never saved.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	// ListTasks returns every saved task ordered by ID.
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask upserts task by ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	// RecordResult appends one finished run.
	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// GetTaskHistory returns up to limit runs of taskID, newest first.
	GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory drops all but the newest keep runs of each task.
	PruneHistory(ctx context.Context, keep int) error
}
