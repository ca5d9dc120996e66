package sqlite

import (
	"context"
	"database/sql"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driven"
)

func openSchedulerStore(t *testing.T) driven.SchedulerStore {
	t.Helper()
	store, cleanup := setupTestStore(t)
	t.Cleanup(cleanup)
	return store.SchedulerStore()
}

func TestSchedulerStore_TaskRoundTrip(t *testing.T) {
	tasks := openSchedulerStore(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 123, time.UTC)

	missing, err := tasks.GetTask(ctx, domain.TaskIDBackgroundRefresh)
	require.NoError(t, err)
	assert.Nil(t, missing)

	want := domain.ScheduledTask{
		ID:          domain.TaskIDBackgroundRefresh,
		Name:        "Background Refresh",
		Interval:    6 * time.Hour,
		Enabled:     true,
		LastRun:     at.Add(-30 * time.Minute),
		LastSuccess: at.Add(-29 * time.Minute),
		NextRun:     at.Add(6 * time.Hour),
	}
	require.NoError(t, tasks.SaveTask(ctx, &want))

	got, err := tasks.GetTask(ctx, want.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Interval, got.Interval)
	assert.True(t, got.Enabled)
	assert.Empty(t, got.LastError)
	assert.True(t, want.LastRun.Equal(got.LastRun))
	assert.True(t, want.LastSuccess.Equal(got.LastSuccess))
	assert.True(t, want.NextRun.Equal(got.NextRun))

	// Saving again updates in place and clears times back to NULL.
	want.LastError = "budget expired"
	want.Enabled = false
	want.NextRun = time.Time{}
	require.NoError(t, tasks.SaveTask(ctx, &want))

	got, err = tasks.GetTask(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, "budget expired", got.LastError)
	assert.False(t, got.Enabled)
	assert.True(t, got.NextRun.IsZero())

	all, err := tasks.ListTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSchedulerStore_NewTaskIsDue(t *testing.T) {
	tasks := openSchedulerStore(t)
	ctx := context.Background()

	require.NoError(t, tasks.SaveTask(ctx, &domain.ScheduledTask{ID: "fresh", Name: "Fresh", Interval: time.Hour, Enabled: true}))

	got, err := tasks.GetTask(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, got.LastRun.IsZero())
	assert.True(t, got.LastSuccess.IsZero())
	assert.True(t, got.Due(time.Now()))
}

func TestSchedulerStore_RejectsNil(t *testing.T) {
	tasks := openSchedulerStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, tasks.SaveTask(ctx, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, tasks.RecordResult(ctx, nil), domain.ErrInvalidInput)
}

func TestSchedulerStore_ListTasks(t *testing.T) {
	tasks := openSchedulerStore(t)
	ctx := context.Background()

	all, err := tasks.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	for _, id := range []string{"b-task", "a-task"} {
		require.NoError(t, tasks.SaveTask(ctx, &domain.ScheduledTask{ID: id, Name: id, Interval: time.Minute}))
	}

	all, err = tasks.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a-task", all[0].ID)
	assert.Equal(t, "b-task", all[1].ID)
}

func TestSchedulerStore_History(t *testing.T) {
	tasks := openSchedulerStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// Sub-second starts must still come back newest first.
	offsets := []time.Duration{0, 500 * time.Millisecond, 2 * time.Second}
	for i, off := range offsets {
		run := domain.TaskResult{
			TaskID:         domain.TaskIDBackgroundRefresh,
			StartedAt:      base.Add(off),
			EndedAt:        base.Add(off + time.Second),
			Success:        i != 1,
			ItemsProcessed: i + 1,
		}
		if !run.Success {
			run.Error = "context deadline exceeded"
		}
		require.NoError(t, tasks.RecordResult(ctx, &run))
	}

	runs, err := tasks.GetTaskHistory(ctx, domain.TaskIDBackgroundRefresh, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for i, off := range []time.Duration{2 * time.Second, 500 * time.Millisecond, 0} {
		assert.True(t, base.Add(off).Equal(runs[i].StartedAt), "run %d", i)
	}
	assert.Equal(t, 3, runs[0].ItemsProcessed)
	assert.False(t, runs[1].Success)
	assert.Equal(t, "context deadline exceeded", runs[1].Error)
	assert.Empty(t, runs[2].Error)

	limited, err := tasks.GetTaskHistory(ctx, domain.TaskIDBackgroundRefresh, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	other, err := tasks.GetTaskHistory(ctx, "other", 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSchedulerStore_PruneHistoryPerTask(t *testing.T) {
	tasks := openSchedulerStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for _, id := range []string{"task-a", "task-b"} {
		for i := range 5 {
			start := base.Add(time.Duration(i) * time.Minute)
			require.NoError(t, tasks.RecordResult(ctx, &domain.TaskResult{
				TaskID: id, StartedAt: start, EndedAt: start, Error: strconv.Itoa(i),
			}))
		}
	}

	require.NoError(t, tasks.PruneHistory(ctx, 2))

	for _, id := range []string{"task-a", "task-b"} {
		runs, err := tasks.GetTaskHistory(ctx, id, 10)
		require.NoError(t, err)
		require.Len(t, runs, 2, id)
		assert.Equal(t, "4", runs[0].Error)
		assert.Equal(t, "3", runs[1].Error)
	}
}

func TestNullTime(t *testing.T) {
	assert.False(t, nullTime(time.Time{}).Valid)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 5, time.UTC)
	got := nullTime(ts)
	assert.True(t, got.Valid)
	assert.Equal(t, "2024-05-01T12:00:00.000000005Z", got.String)
	assert.True(t, parseNullableTime(got).Equal(ts))
}

func TestParseNullableTime_Invalid(t *testing.T) {
	assert.True(t, parseNullableTime(sql.NullString{}).IsZero())
	assert.True(t, parseNullableTime(sql.NullString{String: "yesterday", Valid: true}).IsZero())
	assert.Nil(t, parseTimePtr(sql.NullString{}))
}
