package driven

import "context"

// Notifier delivers a ban notification for an item. Delivery is best-effort;
// callers log and swallow errors.
type Notifier interface {
	Notify(ctx context.Context, itemName string) error
}
