// Package driven lists what the core needs from the outside world.
//
// ItemStore, StatusProbe, RefreshScheduler, SchedulerStore and ConfigStore
// must be supplied. Notifier and CatalogLookup may be nil: bans are then
// only logged, and adding items is unavailable.
//
// Adapters under internal/adapters/driven implement these. This package
// imports domain and nothing else from the module.
package driven
