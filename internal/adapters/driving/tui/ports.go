// Package tui renders a live progress view for bulk refresh runs.
// It is a driving adapter used by the CLI when stdout is a terminal.
package tui

import (
	"github.com/appwatch-labs/appwatch/internal/core/ports/driving"
)

// Ports aggregates the driving ports the view needs.
type Ports struct {
	// Refresh reports progress of and cancels the current run.
	Refresh driving.BulkRefresher
}

// NewPorts creates a new Ports aggregate.
func NewPorts(refresh driving.BulkRefresher) *Ports {
	return &Ports{Refresh: refresh}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Refresh == nil {
		return ErrMissingRefresher
	}
	return nil
}
