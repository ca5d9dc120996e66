package domain

import "time"

// Store drivers.
const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Engine defaults.
const (
	// DefaultProbeTimeout bounds one availability probe.
	DefaultProbeTimeout = 15 * time.Second

	// DefaultProbeRate is the sustained probe rate against the store host.
	DefaultProbeRate = 1.0

	// DefaultMaxConcurrency is the bulk refresh in-flight ceiling. One keeps
	// bulk passes strictly sequential.
	DefaultMaxConcurrency = 1

	// DefaultServerAddr is the listen address of the HTTP reporting surface.
	DefaultServerAddr = ":8080"
)

// EngineConfig holds the tunables of the polling engine and its adapters.
type EngineConfig struct {
	// ProbeBaseURL is the listing host used to build check URLs.
	ProbeBaseURL string

	// ProbeTimeout bounds each probe.
	ProbeTimeout time.Duration

	// ProbeRequestsPerSecond paces outbound probes. Zero disables pacing.
	ProbeRequestsPerSecond float64

	// MaxConcurrency is the bulk refresh worker count.
	MaxConcurrency int

	// Scheduler configures the unattended refresh task.
	Scheduler SchedulerConfig

	// StoreDriver selects the persistent store.
	StoreDriver string

	// StorePath is the sqlite data directory.
	StorePath string

	// StoreDSN is the postgres connection string.
	StoreDSN string

	// NotifyWebhookURL receives ban notifications when set.
	NotifyWebhookURL string

	// ServerAddr is the HTTP listen address for serve.
	ServerAddr string
}

// DefaultEngineConfig returns the configuration used when no file overrides it.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		ProbeBaseURL:           DefaultStoreBaseURL,
		ProbeTimeout:           DefaultProbeTimeout,
		ProbeRequestsPerSecond: DefaultProbeRate,
		MaxConcurrency:         DefaultMaxConcurrency,
		Scheduler:              DefaultSchedulerConfig(),
		StoreDriver:            StoreDriverSQLite,
		ServerAddr:             DefaultServerAddr,
	}
}

// BackgroundTask returns the background refresh task configuration.
func (c *EngineConfig) BackgroundTask() TaskConfig {
	return c.Scheduler.GetTaskConfig(TaskIDBackgroundRefresh)
}
