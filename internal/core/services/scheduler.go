package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driven"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driving"
	"github.com/appwatch-labs/appwatch/internal/logger"
)

var (
	_ driving.Scheduler       = (*Scheduler)(nil)
	_ driving.SchedulerStatus = (*SchedulerStatus)(nil)
	_ driven.RefreshScheduler = (*TaskRescheduler)(nil)
)

const backgroundTaskName = "Background Refresh"

// ErrSchedulerRunning is returned by Start while another Start is active.
var ErrSchedulerRunning = errors.New("scheduler already running")

// taskRunner performs one run of a task and reports how many items it
// processed.
type taskRunner func(ctx context.Context) (int, error)

// Scheduler plays the part of the OS background scheduler. It polls the
// persisted tasks, grants each due run its budget as a context deadline
// and records the outcome. The run itself asks for its next slot through
// TaskRescheduler.
type Scheduler struct {
	config  domain.SchedulerConfig
	store   driven.SchedulerStore
	runners map[string]taskRunner
	tick    time.Duration
	now     func() time.Time

	mu      sync.Mutex
	stop    chan struct{}
	running map[string]bool
	wg      sync.WaitGroup
}

// NewScheduler wires the background refresh task. background may be nil,
// in which case due runs succeed without doing anything.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	background driving.BackgroundRefresher,
) *Scheduler {
	s := &Scheduler{
		config:  config,
		store:   store,
		tick:    time.Minute,
		now:     time.Now,
		running: make(map[string]bool),
	}
	s.runners = map[string]taskRunner{
		domain.TaskIDBackgroundRefresh: s.backgroundRunner(background),
	}
	return s
}

// Start registers the configured tasks and polls for due ones every tick
// until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return ErrSchedulerRunning
	}
	stop := make(chan struct{})
	s.stop = stop
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.stop == stop {
			s.stop = nil
		}
		s.mu.Unlock()
	}()

	if !s.config.Enabled {
		logger.Info("scheduler: disabled by configuration")
	}
	if err := s.register(ctx, domain.TaskIDBackgroundRefresh, backgroundTaskName); err != nil {
		logger.Warn("scheduler: registering %s: %v", domain.TaskIDBackgroundRefresh, err)
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		s.poll(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case <-ticker.C:
		}
	}
}

// Stop ends the polling loop and waits for in-flight runs. It is a no-op
// when the scheduler is not running.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// register saves the task with its configured interval and enabled flag.
// A task seen for the first time is due at once. Changing the interval
// pushes the next run out by the new interval.
func (s *Scheduler) register(ctx context.Context, id, name string) error {
	cfg := s.config.GetTaskConfig(id)
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	switch {
	case task == nil:
		task = &domain.ScheduledTask{ID: id, Name: name, Interval: cfg.Interval, NextRun: s.now()}
	case task.Interval != cfg.Interval:
		task.Interval = cfg.Interval
		task.NextRun = s.now().Add(cfg.Interval)
	}
	task.Enabled = s.config.Enabled && cfg.Enabled
	return s.store.SaveTask(ctx, task)
}

// poll starts every due task that is not already running.
func (s *Scheduler) poll(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: listing tasks: %v", err)
		return
	}
	now := s.now()
	for _, task := range tasks {
		if task.Due(now) {
			s.launch(ctx, task)
		}
	}
}

func (s *Scheduler) launch(ctx context.Context, task domain.ScheduledTask) {
	run, ok := s.runners[task.ID]
	if !ok {
		logger.Warn("scheduler: no runner for task %s", task.ID)
		return
	}

	s.mu.Lock()
	if s.running[task.ID] {
		s.mu.Unlock()
		return
	}
	s.running[task.ID] = true
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.running, task.ID)
			s.mu.Unlock()
		}()
		s.record(ctx, task, run)
	}()
}

// record runs the task and persists its outcome. A NextRun the run set
// for itself is kept; otherwise the task is pushed out by its interval.
func (s *Scheduler) record(ctx context.Context, task domain.ScheduledTask, run taskRunner) {
	result := domain.TaskResult{TaskID: task.ID, StartedAt: s.now()}
	processed, err := run(ctx)
	result.EndedAt = s.now()
	result.ItemsProcessed = processed
	result.Success = err == nil

	if latest, getErr := s.store.GetTask(ctx, task.ID); getErr == nil && latest != nil {
		task = *latest
	}
	if !task.NextRun.After(result.StartedAt) {
		task.NextRun = result.EndedAt.Add(task.Interval)
	}
	task.LastRun = result.StartedAt
	task.LastError = ""
	if err != nil {
		result.Error = err.Error()
		task.LastError = result.Error
	} else {
		task.LastSuccess = result.EndedAt
	}

	if err := s.store.SaveTask(ctx, &task); err != nil {
		logger.Warn("scheduler: saving task %s: %v", task.ID, err)
	}
	if err := s.store.RecordResult(ctx, &result); err != nil {
		logger.Warn("scheduler: recording run of %s: %v", task.ID, err)
	}
	if err := s.store.PruneHistory(ctx, domain.TaskHistoryRetention); err != nil {
		logger.Warn("scheduler: pruning history: %v", err)
	}
}

// backgroundRunner grants each background cycle the configured budget.
func (s *Scheduler) backgroundRunner(background driving.BackgroundRefresher) taskRunner {
	return func(ctx context.Context) (int, error) {
		if background == nil {
			return 0, nil
		}
		budget := s.config.GetTaskConfig(domain.TaskIDBackgroundRefresh).Budget
		if budget <= 0 {
			budget = domain.DefaultBackgroundBudget
		}
		ctx, cancel := context.WithTimeout(ctx, budget)
		defer cancel()

		summary, err := background.RunCycle(ctx)
		return summary.Checked, err
	}
}

// TaskRescheduler requests the next run of a persisted task by moving its
// NextRun forward. It is the RefreshScheduler seen by the background cycle.
type TaskRescheduler struct {
	store  driven.SchedulerStore
	taskID string
	now    func() time.Time
}

// NewTaskRescheduler creates a rescheduler for the background refresh task.
func NewTaskRescheduler(store driven.SchedulerStore) *TaskRescheduler {
	return &TaskRescheduler{
		store:  store,
		taskID: domain.TaskIDBackgroundRefresh,
		now:    time.Now,
	}
}

// ScheduleNext sets the task's next run to notBefore from now, creating the
// task if it was never scheduled.
func (r *TaskRescheduler) ScheduleNext(ctx context.Context, notBefore time.Duration) error {
	task, err := r.store.GetTask(ctx, r.taskID)
	if err != nil {
		return err
	}
	if task == nil {
		task = &domain.ScheduledTask{
			ID:       r.taskID,
			Name:     backgroundTaskName,
			Interval: notBefore,
			Enabled:  true,
		}
	}
	task.NextRun = r.now().Add(notBefore)
	return r.store.SaveTask(ctx, task)
}

// SchedulerStatus reports the persisted background refresh state.
type SchedulerStatus struct {
	store driven.SchedulerStore
}

// NewSchedulerStatus creates a status reader over store.
func NewSchedulerStatus(store driven.SchedulerStore) *SchedulerStatus {
	return &SchedulerStatus{store: store}
}

// Task returns the background refresh task, or nil if it was never scheduled.
func (s *SchedulerStatus) Task(ctx context.Context) (*domain.ScheduledTask, error) {
	return s.store.GetTask(ctx, domain.TaskIDBackgroundRefresh)
}

// History returns recent background runs, most recent first.
func (s *SchedulerStatus) History(ctx context.Context, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		limit = domain.TaskHistoryRetention
	}
	return s.store.GetTaskHistory(ctx, domain.TaskIDBackgroundRefresh, limit)
}
