// Package catalog implements listing metadata lookup against the iTunes
// Search API. It is used when items are added, never by the polling engine.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
	"github.com/appwatch-labs/appwatch/internal/core/ports/driven"
	"github.com/appwatch-labs/appwatch/internal/logger"
)

// Verify interface compliance at compile time.
var _ driven.CatalogLookup = (*ITunesLookup)(nil)

// DefaultBaseURL is the iTunes Search API host.
const DefaultBaseURL = "https://itunes.apple.com"

const (
	defaultTimeout  = 15 * time.Second
	maxResponseSize = 4 << 20
)

// lookupResponse mirrors the lookup endpoint's JSON body.
type lookupResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []lookupResult `json:"results"`
}

type lookupResult struct {
	TrackID                   int64    `json:"trackId"`
	TrackName                 string   `json:"trackName"`
	BundleID                  string   `json:"bundleId"`
	Version                   string   `json:"version"`
	CurrentVersionReleaseDate string   `json:"currentVersionReleaseDate"`
	ReleaseDate               string   `json:"releaseDate"`
	ReleaseNotes              string   `json:"releaseNotes"`
	Description               string   `json:"description"`
	SellerName                string   `json:"sellerName"`
	PrimaryGenreName          string   `json:"primaryGenreName"`
	ArtworkURL512             string   `json:"artworkUrl512"`
	ScreenshotURLs            []string `json:"screenshotUrls"`
	IPadScreenshotURLs        []string `json:"ipadScreenshotUrls"`
}

// ITunesLookup fetches app metadata by track id and storefront.
type ITunesLookup struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
}

// NewITunesLookup creates a lookup client. An empty baseURL selects
// DefaultBaseURL.
func NewITunesLookup(baseURL string) *ITunesLookup {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &ITunesLookup{
		client:  &http.Client{},
		baseURL: baseURL,
		timeout: defaultTimeout,
	}
}

// Lookup returns metadata for trackID in country.
// Returns domain.ErrNotFound if the app is not offered in that storefront.
func (l *ITunesLookup) Lookup(ctx context.Context, trackID int64, country string) (*domain.CatalogEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("id", strconv.FormatInt(trackID, 10))
	query.Set("country", country)
	query.Set("entity", "software")
	endpoint := l.baseURL + "/lookup?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	logger.Debug("catalog lookup %s", endpoint)
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup %d in %s: %w", trackID, country, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("lookup %d in %s: server returned %d", trackID, country, resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}

	if body.ResultCount == 0 || len(body.Results) == 0 {
		return nil, fmt.Errorf("%w: app %d is not available in %q", domain.ErrNotFound, trackID, country)
	}

	entry := toEntry(body.Results[0])
	return &entry, nil
}

// toEntry converts a lookup result to domain metadata.
func toEntry(r lookupResult) domain.CatalogEntry {
	entry := domain.CatalogEntry{
		TrackID:      r.TrackID,
		Name:         r.TrackName,
		BundleID:     r.BundleID,
		Version:      r.Version,
		SellerName:   r.SellerName,
		Genre:        r.PrimaryGenreName,
		ReleaseNotes: r.ReleaseNotes,
		Description:  r.Description,
		IconURL:      r.ArtworkURL512,
	}

	entry.ScreenshotURLs = append(entry.ScreenshotURLs, r.ScreenshotURLs...)
	entry.ScreenshotURLs = append(entry.ScreenshotURLs, r.IPadScreenshotURLs...)

	if t, ok := parseDate(r.CurrentVersionReleaseDate); ok {
		entry.LastReleaseDate = t
	}
	if t, ok := parseDate(r.ReleaseDate); ok {
		entry.FirstReleaseDate = &t
	}
	return entry
}

// parseDate parses the API's ISO 8601 timestamps.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
