// Package sqlite provides the default SQLite-based implementation of the
// item and scheduler stores.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Both stores share one database:
//
//   - ItemStore: tracked items and their transition history
//   - SchedulerStore: background task state and run history
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.appwatch/data/appwatch.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. Writes are serialised through a
// single connection, which makes each Transact call atomic with respect to
// every other writer in the process.
package sqlite
