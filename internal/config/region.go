package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// NormalizeRegion canonicalizes an ISO 3166-1 region code ("us", "USA" and
// "840" all become "US"). Macro regions such as "EU" or "001" are rejected
// because watch-provider data is only published per country.
func NormalizeRegion(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("region must not be empty")
	}
	region, err := language.ParseRegion(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid region %q: %w", trimmed, err)
	}
	if !region.IsCountry() {
		return "", fmt.Errorf("region %q is not a country", trimmed)
	}
	return region.String(), nil
}
