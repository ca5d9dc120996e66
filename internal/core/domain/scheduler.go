package domain

import "time"

// TaskIDBackgroundRefresh identifies the unattended refresh task.
const TaskIDBackgroundRefresh = "background-refresh"

const (
	// DefaultBackgroundInterval is the earliest-begin delay requested after each run.
	DefaultBackgroundInterval = 6 * time.Hour

	// DefaultBackgroundBudget is the execution window granted to one run.
	DefaultBackgroundBudget = 30 * time.Second

	// TaskHistoryRetention caps the stored runs per task.
	TaskHistoryRetention = 100
)

// ScheduledTask is the persisted state of a recurring unattended task.
// Zero times mean "never".
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	LastRun     time.Time
	LastSuccess time.Time
	LastError   string

	// NextRun is the earliest time the task may begin again. The platform
	// may start it later, never earlier.
	NextRun time.Time
}

// Due reports whether the task should run at now.
func (t *ScheduledTask) Due(now time.Time) bool {
	if !t.Enabled {
		return false
	}
	return t.NextRun.IsZero() || !t.NextRun.After(now)
}

// TaskResult is one entry in a task's run log. Success is false when the
// run failed or used up its budget before finishing.
type TaskResult struct {
	TaskID         string
	StartedAt      time.Time
	EndedAt        time.Time
	Success        bool
	Error          string
	ItemsProcessed int
}

// TaskConfig tunes a single task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
	Budget   time.Duration
}

// SchedulerConfig is the scheduler's master switch plus per-task settings
// keyed by task ID.
type SchedulerConfig struct {
	Enabled     bool
	TaskConfigs map[string]TaskConfig
}

// GetTaskConfig returns the settings for taskID, or the zero TaskConfig
// when the task is unknown.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig enables the background refresh at its default
// interval and budget.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDBackgroundRefresh: {
				Enabled:  true,
				Interval: DefaultBackgroundInterval,
				Budget:   DefaultBackgroundBudget,
			},
		},
	}
}
