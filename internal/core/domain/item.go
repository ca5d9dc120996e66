package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DefaultStoreBaseURL is the public App Store web host used to build listing URLs.
const DefaultStoreBaseURL = "https://apps.apple.com"

// Status represents the last committed availability of a listing.
type Status string

const (
	// StatusLive indicates the listing page is publicly reachable.
	StatusLive Status = "live"

	// StatusRemoved indicates the listing page returned 404 (the app was banned or pulled).
	StatusRemoved Status = "removed"

	// StatusUnavailable indicates the availability could not be determined.
	StatusUnavailable Status = "unavailable"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusLive, StatusRemoved, StatusUnavailable:
		return true
	default:
		return false
	}
}

// ParseStatus converts a string to a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
	}
	return st, nil
}

// Ownership determines whether an item is eligible for unattended background checks.
type Ownership string

const (
	// OwnershipSelf marks the user's own apps. Only these are polled in the background.
	OwnershipSelf Ownership = "self"

	// OwnershipCompetitor marks apps that are only checked interactively.
	OwnershipCompetitor Ownership = "competitor"
)

// String returns the string representation of the ownership class.
func (o Ownership) String() string {
	return string(o)
}

// ParseOwnership converts a string to an Ownership.
// "mine" is accepted as an alias for self.
func ParseOwnership(s string) (Ownership, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "self", "mine":
		return OwnershipSelf, nil
	case "competitor":
		return OwnershipCompetitor, nil
	default:
		return "", fmt.Errorf("%w: unknown ownership %q", ErrInvalidInput, s)
	}
}

// ItemKey is the compound identity of a tracked listing.
type ItemKey struct {
	// TrackID is the upstream numeric App Store id.
	TrackID int64

	// Country is the lowercase two-letter storefront region.
	Country string
}

// NewItemKey builds a key, normalising the country code.
func NewItemKey(trackID int64, country string) ItemKey {
	return ItemKey{TrackID: trackID, Country: strings.ToLower(strings.TrimSpace(country))}
}

// String returns the persisted form "<trackId>-<country>".
func (k ItemKey) String() string {
	return fmt.Sprintf("%d-%s", k.TrackID, k.Country)
}

// IsZero reports whether the key is unset.
func (k ItemKey) IsZero() bool {
	return k.TrackID == 0 && k.Country == ""
}

// ParseItemKey parses the "<trackId>-<country>" form.
func ParseItemKey(s string) (ItemKey, error) {
	idPart, country, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok || country == "" {
		return ItemKey{}, fmt.Errorf("%w: item key %q", ErrInvalidInput, s)
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return ItemKey{}, fmt.Errorf("%w: item key %q", ErrInvalidInput, s)
	}
	return NewItemKey(id, country), nil
}

// TrackedItem is one monitored App Store listing.
type TrackedItem struct {
	// Key is the compound identity. Immutable once created.
	Key ItemKey

	// Name is the display name of the app.
	Name string

	// Version is the last known version string.
	Version string

	// IconURL references the app icon.
	IconURL string

	// SellerName is the publisher shown on the listing.
	SellerName string

	// Genre is the primary genre name.
	Genre string

	// ReleaseNotes holds the notes of the current version.
	ReleaseNotes string

	// LastReleaseDate is the release date of the current version.
	LastReleaseDate time.Time

	// FirstReleaseDate is the release date of the first version, if known.
	FirstReleaseDate *time.Time

	// DateAdded is when the item started being tracked.
	DateAdded time.Time

	// Status is the last committed availability.
	Status Status

	// LastCheckedAt is when the item was last probed and committed.
	LastCheckedAt *time.Time

	// BanDate is set when the item transitions into removed and cleared when it
	// transitions back to live.
	BanDate *time.Time

	// Ownership determines background polling eligibility.
	Ownership Ownership
}

// CheckURL returns the canonical listing URL probed for this item.
// If base is empty, DefaultStoreBaseURL is used.
func (i *TrackedItem) CheckURL(base string) (string, error) {
	if i.Key.TrackID <= 0 || i.Key.Country == "" {
		return "", ErrNoCheckURL
	}
	if base == "" {
		base = DefaultStoreBaseURL
	}
	base = strings.TrimRight(base, "/")
	return fmt.Sprintf("%s/%s/app/%s/id%d", base, i.Key.Country, slugify(i.Name), i.Key.TrackID), nil
}

// EligibleForBackground reports whether unattended polling should check this item.
func (i *TrackedItem) EligibleForBackground() bool {
	return i.Ownership == OwnershipSelf && i.Status == StatusLive
}

// slugify lowercases name and joins its alphanumeric runs with '-'.
func slugify(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, "-")
}

// ItemFilter restricts item listings. Zero values match everything.
type ItemFilter struct {
	// Ownership restricts to one ownership class.
	Ownership Ownership

	// Status restricts to one status.
	Status Status
}

// Matches reports whether item satisfies the filter.
func (f ItemFilter) Matches(item *TrackedItem) bool {
	if f.Ownership != "" && item.Ownership != f.Ownership {
		return false
	}
	if f.Status != "" && item.Status != f.Status {
		return false
	}
	return true
}

// BackgroundFilter selects items eligible for unattended polling.
func BackgroundFilter() ItemFilter {
	return ItemFilter{Ownership: OwnershipSelf, Status: StatusLive}
}
