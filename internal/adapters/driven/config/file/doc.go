// Package file provides the TOML-backed configuration store.
//
// Keys are exposed in dot notation ("probe.timeout") and written back as
// nested TOML tables. Watch reloads the file when it changes on disk so a
// long-running daemon or server picks up edits without a restart.
package file
