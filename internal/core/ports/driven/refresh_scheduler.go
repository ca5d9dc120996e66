package driven

import (
	"context"
	"time"
)

// RefreshScheduler requests the next unattended refresh invocation.
type RefreshScheduler interface {
	// ScheduleNext asks for the next invocation no earlier than notBefore from now.
	ScheduleNext(ctx context.Context, notBefore time.Duration) error
}
