// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The polling engine lives here: TransitionCommitter owns the status state
// machine, Checker runs one probe-and-commit step, and RefreshOrchestrator,
// SingleItemUpdater and BackgroundRefreshCycle are thin drivers over it.
package services
