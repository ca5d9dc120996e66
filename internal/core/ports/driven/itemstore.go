package driven

import (
	"context"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
)

// ItemStore persists tracked items and their transition history.
type ItemStore interface {
	// Get retrieves an item by key.
	// Returns domain.ErrNotFound if the item does not exist.
	Get(ctx context.Context, key domain.ItemKey) (*domain.TrackedItem, error)

	// List returns items matching the filter, ordered by key.
	List(ctx context.Context, filter domain.ItemFilter) ([]domain.TrackedItem, error)

	// Save creates or replaces an item. Used by ingestion, never by the engine.
	Save(ctx context.Context, item domain.TrackedItem) error

	// Delete removes an item and its history.
	Delete(ctx context.Context, key domain.ItemKey) error

	// Transact runs fn against the item inside one transaction. When fn
	// returns nil, the item's fields and every appended record are committed
	// together. When fn or the commit fails, nothing is written.
	// Returns domain.ErrNotFound if the item does not exist.
	Transact(ctx context.Context, key domain.ItemKey, fn func(tx ItemTx) error) error

	// Transitions returns the item's records, most recent first.
	// A limit of zero or less returns all records.
	Transitions(ctx context.Context, key domain.ItemKey, limit int) ([]domain.TransitionRecord, error)
}

// ItemTx is the view of one item inside a Transact call.
type ItemTx interface {
	// Item returns the item as loaded within the transaction. Mutations
	// are persisted on commit.
	Item() *domain.TrackedItem

	// Append adds an audit record to the item.
	Append(record domain.TransitionRecord) error
}
