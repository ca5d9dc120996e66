package driving

import (
	"context"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
)

// ItemService manages the tracked item list outside the polling engine.
type ItemService interface {
	// Add resolves listing references, looks up their metadata and starts
	// tracking them. Already-tracked keys are reported in the result.
	Add(ctx context.Context, refs []string, ownership domain.Ownership) (*AddResult, error)

	// Get retrieves one item.
	Get(ctx context.Context, key domain.ItemKey) (*domain.TrackedItem, error)

	// List returns items matching filter.
	List(ctx context.Context, filter domain.ItemFilter) ([]domain.TrackedItem, error)

	// Remove stops tracking an item.
	Remove(ctx context.Context, key domain.ItemKey) error

	// SetOwnership changes an item's ownership class.
	SetOwnership(ctx context.Context, key domain.ItemKey, ownership domain.Ownership) error

	// History returns the item's transition records, most recent first.
	History(ctx context.Context, key domain.ItemKey, limit int) ([]domain.TransitionRecord, error)
}

// AddResult reports what Add did per reference.
type AddResult struct {
	// Added lists newly tracked items.
	Added []domain.TrackedItem

	// Existing lists keys that were already tracked.
	Existing []domain.ItemKey

	// Failed maps references to the reason they could not be added.
	Failed map[string]error
}
