package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driven"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyProbeBaseURL      = "probe.base_url"
	keyProbeTimeout      = "probe.timeout"
	keyProbeRate         = "probe.requests_per_second"
	keyMaxConcurrency    = "refresh.max_concurrency"
	keySchedulerEnabled  = "scheduler.enabled"
	keyBackgroundEnabled = "background.enabled"
	keyBackgroundEvery   = "background.interval"
	keyBackgroundBudget  = "background.budget"
	keyStoreDriver       = "store.driver"
	keyStorePath         = "store.path"
	keyStoreDSN          = "store.dsn"
	keyNotifyWebhook     = "notify.webhook_url"
	keyServerAddr        = "server.addr"
)

// keyKind is how a config value is parsed from the command line.
type keyKind int

const (
	kindString keyKind = iota
	kindDuration
	kindInt
	kindFloat
	kindBool
)

// settingKeys lists supported keys in display order.
var settingKeys = []struct {
	name string
	kind keyKind
}{
	{keyProbeBaseURL, kindString},
	{keyProbeTimeout, kindDuration},
	{keyProbeRate, kindFloat},
	{keyMaxConcurrency, kindInt},
	{keySchedulerEnabled, kindBool},
	{keyBackgroundEnabled, kindBool},
	{keyBackgroundEvery, kindDuration},
	{keyBackgroundBudget, kindDuration},
	{keyStoreDriver, kindString},
	{keyStorePath, kindString},
	{keyStoreDSN, kindString},
	{keyNotifyWebhook, kindString},
	{keyServerAddr, kindString},
}

// SettingsService reads and writes engine settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// LoadEngineConfig returns the engine configuration held by configStore.
func LoadEngineConfig(configStore driven.ConfigStore) domain.EngineConfig {
	return NewSettingsService(configStore).EngineConfig()
}

// EngineConfig returns the effective engine configuration.
func (s *SettingsService) EngineConfig() domain.EngineConfig {
	cfg := domain.DefaultEngineConfig()

	cfg.ProbeBaseURL = s.getString(keyProbeBaseURL, cfg.ProbeBaseURL)
	cfg.ProbeTimeout = s.getDuration(keyProbeTimeout, cfg.ProbeTimeout)
	cfg.ProbeRequestsPerSecond = s.getFloat(keyProbeRate, cfg.ProbeRequestsPerSecond)
	cfg.MaxConcurrency = s.getInt(keyMaxConcurrency, cfg.MaxConcurrency)
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = domain.DefaultMaxConcurrency
	}
	cfg.Scheduler = s.GetSchedulerConfig()
	cfg.StoreDriver = s.getStoreDriver(cfg.StoreDriver)
	cfg.StorePath = s.configStore.GetString(keyStorePath)
	cfg.StoreDSN = s.configStore.GetString(keyStoreDSN)
	cfg.NotifyWebhookURL = s.configStore.GetString(keyNotifyWebhook)
	cfg.ServerAddr = s.getString(keyServerAddr, cfg.ServerAddr)

	return cfg
}

// GetSchedulerConfig returns the scheduler configuration.
// Returns default configuration if nothing is configured.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	defaults := domain.DefaultSchedulerConfig()

	defaults.Enabled = s.getBool(keySchedulerEnabled, defaults.Enabled)

	taskCfg := defaults.TaskConfigs[domain.TaskIDBackgroundRefresh]
	taskCfg.Enabled = s.getBool(keyBackgroundEnabled, taskCfg.Enabled)
	taskCfg.Interval = s.getDuration(keyBackgroundEvery, taskCfg.Interval)
	taskCfg.Budget = s.getDuration(keyBackgroundBudget, taskCfg.Budget)
	defaults.TaskConfigs[domain.TaskIDBackgroundRefresh] = taskCfg

	return defaults
}

// Get returns the raw stored value of a known key.
func (s *SettingsService) Get(key string) (any, bool, error) {
	if _, ok := lookupKey(key); !ok {
		return nil, false, fmt.Errorf("%w: unknown config key %q", domain.ErrInvalidInput, key)
	}
	val, ok := s.configStore.Get(key)
	return val, ok, nil
}

// Set parses and stores value under key.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := lookupKey(key)
	if !ok {
		return fmt.Errorf("%w: unknown config key %q", domain.ErrInvalidInput, key)
	}

	var parsed any
	switch kind {
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: %s must be a positive duration", domain.ErrInvalidInput, key)
		}
		parsed = d.String()
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidInput, key)
		}
		parsed = int64(n)
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidInput, key)
		}
		parsed = f
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		parsed = b
	default:
		if key == keyStoreDriver && !validStoreDriver(value) {
			return fmt.Errorf("%w: unknown store driver %q", domain.ErrInvalidInput, value)
		}
		parsed = value
	}

	return s.configStore.Set(key, parsed)
}

// Keys lists every supported key.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKeys))
	for _, k := range settingKeys {
		keys = append(keys, k.name)
	}
	return keys
}

// Path returns the config file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

func lookupKey(key string) (keyKind, bool) {
	for _, k := range settingKeys {
		if k.name == key {
			return k.kind, true
		}
	}
	return 0, false
}

func validStoreDriver(driver string) bool {
	switch driver {
	case domain.StoreDriverSQLite, domain.StoreDriverPostgres, domain.StoreDriverMemory:
		return true
	default:
		return false
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal
	}
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return defaultVal
	}
}

// getDuration reads a duration string like "45m" or "6h".
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getStoreDriver(defaultVal string) string {
	driver := strings.ToLower(s.configStore.GetString(keyStoreDriver))
	if !validStoreDriver(driver) {
		return defaultVal
	}
	return driver
}
