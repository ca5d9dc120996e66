package domain

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultCountry is used when a listing reference carries no region.
const DefaultCountry = "us"

var listingURLPattern = regexp.MustCompile(`(?i)/([a-z]{2}/)?app/.*/id(\d+)`)

// ParseListingRef resolves an App Store listing URL or a bare numeric id to a key.
// Region-less references use defaultCountry, or DefaultCountry when empty.
func ParseListingRef(ref, defaultCountry string) (ItemKey, error) {
	ref = strings.TrimSpace(ref)
	if defaultCountry == "" {
		defaultCountry = DefaultCountry
	}

	m := listingURLPattern.FindStringSubmatch(ref)
	if m == nil {
		id, err := strconv.ParseInt(strings.TrimPrefix(strings.ToLower(ref), "id"), 10, 64)
		if err != nil || id <= 0 {
			return ItemKey{}, fmt.Errorf("%w: not an App Store link or id: %q", ErrInvalidInput, ref)
		}
		return NewItemKey(id, defaultCountry), nil
	}

	id, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil || id <= 0 {
		return ItemKey{}, fmt.Errorf("%w: bad track id in %q", ErrInvalidInput, ref)
	}

	country := defaultCountry
	if m[1] != "" {
		country = strings.TrimSuffix(m[1], "/")
	}
	return NewItemKey(id, country), nil
}

// ParseListingRefs parses one reference per line, skipping blanks and
// dropping duplicates. Lines that fail to parse are returned as errors
// alongside the keys that did parse.
func ParseListingRefs(text, defaultCountry string) ([]ItemKey, []error) {
	var keys []ItemKey
	var errs []error
	seen := make(map[ItemKey]struct{})

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, err := ParseListingRef(line, defaultCountry)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys, errs
}
