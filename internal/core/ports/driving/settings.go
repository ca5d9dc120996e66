package driving

import "github.com/appwatch-labs/appwatch/internal/core/domain"

// SettingsService manages engine settings stored in the config file.
type SettingsService interface {
	// EngineConfig returns the effective engine configuration, with defaults
	// for every key that is unset or invalid.
	EngineConfig() domain.EngineConfig

	// Get returns the raw value of a known key.
	// Returns domain.ErrInvalidInput for unknown keys.
	Get(key string) (any, bool, error)

	// Set parses value for a known key and persists it.
	// Returns domain.ErrInvalidInput for unknown keys or unparsable values.
	Set(key, value string) error

	// Keys lists every supported key in display order.
	Keys() []string

	// Path returns the config file path.
	Path() string
}
