package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driven"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driving"
	"github.com/appwatch-labs/appwatch/internal/logger"
)

// Ensure ItemService implements the interface.
var _ driving.ItemService = (*ItemService)(nil)

// ItemService manages the tracked item list.
type ItemService struct {
	store          driven.ItemStore
	catalog        driven.CatalogLookup
	defaultCountry string
	now            func() time.Time
}

// NewItemService creates an item service. defaultCountry is used for
// references without a region; empty selects domain.DefaultCountry.
func NewItemService(store driven.ItemStore, catalog driven.CatalogLookup, defaultCountry string) *ItemService {
	if defaultCountry == "" {
		defaultCountry = domain.DefaultCountry
	}
	return &ItemService{
		store:          store,
		catalog:        catalog,
		defaultCountry: defaultCountry,
		now:            time.Now,
	}
}

// Add resolves each reference, looks up its listing metadata and starts
// tracking it as a live item. Per-reference failures are collected in the
// result; the returned error is reserved for unusable input.
func (s *ItemService) Add(ctx context.Context, refs []string, ownership domain.Ownership) (*driving.AddResult, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: no listing references", domain.ErrInvalidInput)
	}
	if s.catalog == nil {
		return nil, errors.New("catalog lookup not configured")
	}

	result := &driving.AddResult{Failed: make(map[string]error)}
	seen := make(map[domain.ItemKey]bool)

	for _, ref := range refs {
		key, err := domain.ParseListingRef(ref, s.defaultCountry)
		if err != nil {
			result.Failed[ref] = err
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		_, err = s.store.Get(ctx, key)
		switch {
		case err == nil:
			result.Existing = append(result.Existing, key)
			continue
		case !errors.Is(err, domain.ErrNotFound):
			result.Failed[ref] = err
			continue
		}

		entry, err := s.catalog.Lookup(ctx, key.TrackID, key.Country)
		if err != nil {
			logger.Warn("add %s: lookup failed: %v", key, err)
			result.Failed[ref] = err
			continue
		}

		item := domain.NewTrackedItem(key, *entry, ownership, s.now())
		if err := s.store.Save(ctx, item); err != nil {
			result.Failed[ref] = fmt.Errorf("save %s: %w", key, err)
			continue
		}

		logger.Info("tracking %s (%s) as %s", item.Name, key, item.Ownership)
		result.Added = append(result.Added, item)
	}

	return result, nil
}

// Get retrieves one item.
func (s *ItemService) Get(ctx context.Context, key domain.ItemKey) (*domain.TrackedItem, error) {
	return s.store.Get(ctx, key)
}

// List returns items matching filter.
func (s *ItemService) List(ctx context.Context, filter domain.ItemFilter) ([]domain.TrackedItem, error) {
	return s.store.List(ctx, filter)
}

// Remove stops tracking an item and drops its history.
func (s *ItemService) Remove(ctx context.Context, key domain.ItemKey) error {
	if _, err := s.store.Get(ctx, key); err != nil {
		return err
	}
	return s.store.Delete(ctx, key)
}

// SetOwnership changes an item's ownership class. The change goes through
// the item's transaction so it cannot overwrite a concurrent status commit.
func (s *ItemService) SetOwnership(ctx context.Context, key domain.ItemKey, ownership domain.Ownership) error {
	if ownership != domain.OwnershipSelf && ownership != domain.OwnershipCompetitor {
		return fmt.Errorf("%w: unknown ownership %q", domain.ErrInvalidInput, ownership)
	}
	return s.store.Transact(ctx, key, func(tx driven.ItemTx) error {
		tx.Item().Ownership = ownership
		return nil
	})
}

// History returns the item's transition records, most recent first.
func (s *ItemService) History(ctx context.Context, key domain.ItemKey, limit int) ([]domain.TransitionRecord, error) {
	if _, err := s.store.Get(ctx, key); err != nil {
		return nil, err
	}
	return s.store.Transitions(ctx, key, limit)
}
