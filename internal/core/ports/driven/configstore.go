package driven

import "context"

// ConfigStore holds engine settings as flat dot-separated keys such as
// "probe.timeout". Typed getters return the zero value for missing keys and
// for values of another type.
type ConfigStore interface {
	// Get returns the raw value and whether the key is set.
	Get(key string) (any, bool)

	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool

	// Set stores value under key and persists it before returning.
	Set(key string, value any) error

	// Path locates the backing file, for display.
	Path() string

	// Watch reloads the configuration whenever it changes on storage and
	// calls onChange after each successful reload. Blocks until ctx is done.
	Watch(ctx context.Context, onChange func()) error
}
