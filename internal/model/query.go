package model

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// SearchType is the establishment category a user searches for.
type SearchType string

const (
	SearchTypeRestaurants SearchType = "restaurants"
	SearchTypeCafes       SearchType = "cafes"
	SearchTypeBakery      SearchType = "bakery"
)

// SearchTypes lists every supported type in display order.
var SearchTypes = []SearchType{SearchTypeRestaurants, SearchTypeCafes, SearchTypeBakery}

// ParseSearchType validates a raw type parameter. Empty means restaurants.
func ParseSearchType(raw string) (SearchType, error) {
	switch t := SearchType(strings.ToLower(strings.TrimSpace(raw))); t {
	case "":
		return SearchTypeRestaurants, nil
	case SearchTypeRestaurants, SearchTypeCafes, SearchTypeBakery:
		return t, nil
	default:
		return "", eris.Errorf("unsupported type %q", raw)
	}
}

// ProviderType is the places provider category tag for t.
func (t SearchType) ProviderType() string {
	switch t {
	case SearchTypeRestaurants:
		return "restaurant"
	case SearchTypeCafes:
		return "cafe"
	case SearchTypeBakery:
		return "bakery"
	default:
		return ""
	}
}

// Plural is the human-readable plural used in provider queries and prompts.
func (t SearchType) Plural() string {
	switch t {
	case SearchTypeRestaurants:
		return "restaurants"
	case SearchTypeCafes:
		return "cafes"
	case SearchTypeBakery:
		return "bakeries"
	default:
		return "establishments"
	}
}

// SearchQuery is one logical search request. Coordinates take priority over
// City when both are set.
type SearchQuery struct {
	Type        SearchType
	City        string
	Country     string
	Coordinates *Coordinates
}

// ByCoordinates reports whether the query is addressed by position.
func (q SearchQuery) ByCoordinates() bool {
	return q.Coordinates != nil
}

// Validate checks that the query carries at least one addressing mode and
// that coordinates are within range.
func (q SearchQuery) Validate() error {
	if _, err := ParseSearchType(string(q.Type)); err != nil {
		return err
	}
	if q.Coordinates != nil {
		c := q.Coordinates
		if !finite(c.Lat) || !finite(c.Lng) {
			return eris.Errorf("coordinates are not finite: %f,%f", c.Lat, c.Lng)
		}
		if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
			return eris.Errorf("coordinates out of range: %f,%f", c.Lat, c.Lng)
		}
		return nil
	}
	if strings.TrimSpace(q.City) == "" {
		return eris.New("a city or both lat and lon are required")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Location describes the query's location for messages and logs.
func (q SearchQuery) Location() string {
	if q.Coordinates != nil {
		if q.City != "" {
			return fmt.Sprintf("%s (%.5f,%.5f)", q.City, q.Coordinates.Lat, q.Coordinates.Lng)
		}
		return fmt.Sprintf("%.5f,%.5f", q.Coordinates.Lat, q.Coordinates.Lng)
	}
	if q.Country != "" {
		return q.City + ", " + q.Country
	}
	return q.City
}

// CacheEntry is one stored search result. Entries are append-only.
type CacheEntry struct {
	ID          string
	LocationKey string
	Type        SearchType
	Coordinates *Coordinates
	Payload     []byte
	CreatedAt   time.Time
}
