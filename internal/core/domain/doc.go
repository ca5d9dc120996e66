// Package domain holds appwatch's core types: tracked listings, their
// persisted status, probe outcomes, transition records and refresh
// summaries, along with configuration and scheduler state.
//
// Only the standard library may be imported here. Every other package
// depends on domain and never the reverse.
package domain
