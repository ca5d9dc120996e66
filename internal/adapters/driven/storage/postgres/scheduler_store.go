package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driven"
)

type schedulerStore struct {
	pool *pgxpool.Pool
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

const (
	selectTasks = `SELECT id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled
		FROM scheduled_tasks`

	upsertTask = `INSERT INTO scheduled_tasks
			(id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled)
		VALUES (@id, @name, @interval, @last_run, @next_run, @last_error, @last_success, @enabled)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			interval_seconds = EXCLUDED.interval_seconds,
			last_run = EXCLUDED.last_run,
			next_run = EXCLUDED.next_run,
			last_error = EXCLUDED.last_error,
			last_success = EXCLUDED.last_success,
			enabled = EXCLUDED.enabled`

	// Column order matches the fields of domain.TaskResult.
	selectRuns = `SELECT task_id, started_at, ended_at, success, error, items_processed
		FROM task_results WHERE task_id = $1
		ORDER BY started_at DESC, id DESC LIMIT $2`
)

func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	rows, _ := s.pool.Query(ctx, selectTasks+" WHERE id = $1", taskID)
	task, err := pgx.CollectOneRow(rows, scanTask)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("loading task %s: %w", taskID, err)
	}
	return &task, nil
}

func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, _ := s.pool.Query(ctx, selectTasks+" ORDER BY id")
	tasks, err := pgx.CollectRows(rows, scanTask)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx, upsertTask, pgx.NamedArgs{
		"id":           task.ID,
		"name":         task.Name,
		"interval":     int64(task.Interval / time.Second),
		"last_run":     nullableTime(task.LastRun),
		"next_run":     nullableTime(task.NextRun),
		"last_error":   task.LastError,
		"last_success": nullableTime(task.LastSuccess),
		"enabled":      task.Enabled,
	})
	if err != nil {
		return fmt.Errorf("saving task %s: %w", task.ID, err)
	}
	return nil
}

func (s *schedulerStore) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil {
		return domain.ErrInvalidInput
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO task_results (task_id, started_at, ended_at, success, error, items_processed)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		result.TaskID, result.StartedAt.UTC(), result.EndedAt.UTC(),
		result.Success, result.Error, result.ItemsProcessed)
	if err != nil {
		return fmt.Errorf("recording run of %s: %w", result.TaskID, err)
	}
	return nil
}

func (s *schedulerStore) GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	rows, _ := s.pool.Query(ctx, selectRuns, taskID, limit)
	runs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[domain.TaskResult])
	if err != nil {
		return nil, fmt.Errorf("loading run history: %w", err)
	}
	return runs, nil
}

// PruneHistory keeps the newest keep runs of each task.
func (s *schedulerStore) PruneHistory(ctx context.Context, keep int) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM task_results t
		USING (
			SELECT id, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY started_at DESC, id DESC) AS rn
			FROM task_results
		) ranked
		WHERE t.id = ranked.id AND ranked.rn > $1`, keep)
	if err != nil {
		return fmt.Errorf("pruning run history: %w", err)
	}
	return nil
}

func scanTask(row pgx.CollectableRow) (domain.ScheduledTask, error) {
	var (
		task                          domain.ScheduledTask
		seconds                       int64
		lastRun, nextRun, lastSuccess *time.Time
	)
	err := row.Scan(&task.ID, &task.Name, &seconds, &lastRun, &nextRun, &task.LastError, &lastSuccess, &task.Enabled)
	if err != nil {
		return task, err
	}
	task.Interval = time.Duration(seconds) * time.Second
	task.LastRun = derefTime(lastRun)
	task.NextRun = derefTime(nextRun)
	task.LastSuccess = derefTime(lastSuccess)
	return task, nil
}

// derefTime maps NULL back to the zero time.
func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
