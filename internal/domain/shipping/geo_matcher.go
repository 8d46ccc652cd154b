package shipping

import (
	"strings"
	"unicode"

	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// diacriticStripper removes combining marks after NFD decomposition, so
// "Kadıköy" and "kadikoy" fold to the same key.
var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldLocale lowercases and strips diacritics for comparison. The Turkish
// dotted/dotless i pair does not survive generic case mapping, so it is
// rewritten first.
func foldLocale(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("İ", "i", "I", "i", "ı", "i").Replace(s)
	s = strings.ToLower(s)
	if out, _, err := transform.String(diacriticStripper, s); err == nil {
		return out
	}
	return s
}

// equalFoldTurkish compares two place names case-insensitively with
// Turkish-aware diacritic folding
func equalFoldTurkish(a, b string) bool {
	return foldLocale(a) == foldLocale(b)
}

// GeoMatcher tests whether an address falls inside a zone definition. A
// zone matches when every populated membership list is satisfied; an empty
// list is a wildcard for its dimension.
type GeoMatcher struct{}

// NewGeoMatcher creates a new geo matcher
func NewGeoMatcher() *GeoMatcher {
	return &GeoMatcher{}
}

// Matches reports whether the address satisfies all populated membership
// lists of the zone. A zone with every list empty matches everything.
func (m *GeoMatcher) Matches(zone *Zone, address valueobject.Address) bool {
	if len(zone.Countries) > 0 && !containsFold(zone.Countries, address.CountryCode(), strings.EqualFold) {
		return false
	}
	if len(zone.Regions) > 0 && !containsFold(zone.Regions, address.Region(), equalFoldTurkish) {
		return false
	}
	if len(zone.Cities) > 0 && !containsFold(zone.Cities, address.City(), equalFoldTurkish) {
		return false
	}
	if len(zone.PostalCodes) > 0 || len(zone.PostalCodeRanges) > 0 {
		if !m.matchesPostal(zone, address.PostalCode()) {
			return false
		}
	}
	return true
}

// matchesPostal is satisfied by an exact postal code entry or by falling
// inside at least one range
func (m *GeoMatcher) matchesPostal(zone *Zone, code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	for _, entry := range zone.PostalCodes {
		if strings.EqualFold(strings.TrimSpace(entry), code) {
			return true
		}
	}
	for _, r := range zone.PostalCodeRanges {
		if r.Contains(code) {
			return true
		}
	}
	return false
}

// Specificity scores how narrowly a zone is defined. Narrower dimensions
// weigh more, so a postal-code zone always outranks a country zone no
// matter how many countries the latter lists. A catch-all scores zero.
func (m *GeoMatcher) Specificity(zone *Zone) int {
	score := 0
	if len(zone.Countries) > 0 {
		score += 1
	}
	if len(zone.Regions) > 0 {
		score += 2
	}
	if len(zone.Cities) > 0 {
		score += 4
	}
	if len(zone.PostalCodes) > 0 || len(zone.PostalCodeRanges) > 0 {
		score += 8
	}
	return score
}

func containsFold(list StringList, value string, eq func(a, b string) bool) bool {
	for _, entry := range list {
		if eq(entry, value) {
			return true
		}
	}
	return false
}
