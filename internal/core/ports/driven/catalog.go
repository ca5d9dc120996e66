package driven

import (
	"context"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
)

// CatalogLookup fetches listing metadata. It is used only when items are added.
type CatalogLookup interface {
	// Lookup returns metadata for a track id in a region.
	// Returns domain.ErrNotFound if the listing does not exist in that region.
	Lookup(ctx context.Context, trackID int64, country string) (*domain.CatalogEntry, error)
}
