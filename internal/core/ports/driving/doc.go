// Package driving holds the use-case interfaces the CLI, TUI and HTTP API
// call into. internal/core/services implements every one of them.
package driving
