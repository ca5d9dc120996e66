package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSchedulerConfig(t *testing.T) {
	config := DefaultSchedulerConfig()

	assert.True(t, config.Enabled)
	assert.Len(t, config.TaskConfigs, 1)

	bg := config.TaskConfigs[TaskIDBackgroundRefresh]
	assert.True(t, bg.Enabled)
	assert.Equal(t, 6*time.Hour, bg.Interval)
	assert.Equal(t, 30*time.Second, bg.Budget)
}

func TestSchedulerConfig_GetTaskConfig_NilMap(t *testing.T) {
	config := SchedulerConfig{Enabled: true}

	cfg := config.GetTaskConfig("any-task")
	assert.False(t, cfg.Enabled)
	assert.Equal(t, time.Duration(0), cfg.Interval)
}

func TestScheduledTask_Due(t *testing.T) {
	now := time.Now()

	task := ScheduledTask{Enabled: true}
	assert.True(t, task.Due(now), "zero NextRun is due")

	task.NextRun = now.Add(time.Minute)
	assert.False(t, task.Due(now))

	task.NextRun = now
	assert.True(t, task.Due(now))

	task.Enabled = false
	task.NextRun = now.Add(-time.Hour)
	assert.False(t, task.Due(now))
}
