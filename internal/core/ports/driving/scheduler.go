package driving

import "context"

// Scheduler runs the unattended refresh whenever it is due and grants each
// run a bounded execution window.
type Scheduler interface {
	// Start polls for due tasks until ctx is done. A second concurrent Start
	// fails.
	Start(ctx context.Context) error

	// Stop ends the polling loop and waits for an in-flight run to return.
	Stop() error
}
