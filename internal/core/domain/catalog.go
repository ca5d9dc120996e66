package domain

import "time"

// CatalogEntry is listing metadata returned by the catalog lookup at ingestion.
type CatalogEntry struct {
	TrackID          int64
	Name             string
	BundleID         string
	Version          string
	SellerName       string
	Genre            string
	ReleaseNotes     string
	Description      string
	IconURL          string
	ScreenshotURLs   []string
	LastReleaseDate  time.Time
	FirstReleaseDate *time.Time
}

// NewTrackedItem builds a fresh live item from catalog metadata.
func NewTrackedItem(key ItemKey, entry CatalogEntry, ownership Ownership, now time.Time) TrackedItem {
	if ownership == "" {
		ownership = OwnershipCompetitor
	}
	name := entry.Name
	if name == "" {
		name = "N/A"
	}
	version := entry.Version
	if version == "" {
		version = "N/A"
	}
	released := entry.LastReleaseDate
	if released.IsZero() {
		released = now
	}
	return TrackedItem{
		Key:              key,
		Name:             name,
		Version:          version,
		IconURL:          entry.IconURL,
		SellerName:       entry.SellerName,
		Genre:            entry.Genre,
		ReleaseNotes:     entry.ReleaseNotes,
		LastReleaseDate:  released,
		FirstReleaseDate: entry.FirstReleaseDate,
		DateAdded:        now,
		Status:           StatusLive,
		Ownership:        ownership,
	}
}
