package model

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// BusinessStatusOperational is the only provider business status retained.
const BusinessStatusOperational = "OPERATIONAL"

// UnknownDistanceKM sorts establishments without a distance after every
// measured one.
const UnknownDistanceKM = 999.0

// GFStatus is the gluten-free suitability tier assigned to an establishment.
type GFStatus string

const (
	GFStatusDedicated GFStatus = "Dedicated GF"
	GFStatusOffers    GFStatus = "Offers GF"
	GFStatusUnclear   GFStatus = "Status Unclear"
)

// Rank orders tiers by confidence (lower sorts first). Unknown values rank last.
func (s GFStatus) Rank() int {
	switch s {
	case GFStatusDedicated:
		return 0
	case GFStatusOffers:
		return 1
	case GFStatusUnclear:
		return 2
	default:
		return 3
	}
}

// Valid reports whether s is one of the three known tiers.
func (s GFStatus) Valid() bool {
	return s.Rank() < 3
}

// ParseGFStatus maps a label produced by the classifier (or an older stored
// payload) onto a tier. Matching is case-insensitive and tolerates the
// label variants earlier prompt formats used.
func ParseGFStatus(label string) (GFStatus, bool) {
	l := strings.ToLower(strings.TrimSpace(label))
	l = strings.Trim(l, "[]()'\" ")
	switch l {
	case "dedicated gf", "dedicated", "dedicated gluten-free", "dedicated gluten free":
		return GFStatusDedicated, true
	case "offers gf", "offers gf menu", "offers gf options", "gf menu options", "offers":
		return GFStatusOffers, true
	case "status unclear", "unclear", "unclear - verify directly", "unclear – verify directly":
		return GFStatusUnclear, true
	}
	return "", false
}

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Establishment is one place returned by the places search, optionally
// enriched with distance and gluten-free status.
type Establishment struct {
	PlaceID        string       `json:"place_id"`
	Name           string       `json:"name"`
	Address        string       `json:"address"`
	Rating         *float64     `json:"rating,omitempty"`
	RatingCount    int          `json:"user_ratings_total"`
	Types          []string     `json:"types"`
	BusinessStatus string       `json:"business_status"`
	Coordinates    *Coordinates `json:"coordinates,omitempty"`
	DistanceKM     *float64     `json:"distance,omitempty"`
	GFStatus       GFStatus     `json:"gf_status,omitempty"`
}

// MarshalPayload serializes an establishment list for cache storage.
func MarshalPayload(places []Establishment) ([]byte, error) {
	if places == nil {
		places = []Establishment{}
	}
	data, err := json.Marshal(places)
	if err != nil {
		return nil, eris.Wrap(err, "model: marshal payload")
	}
	return data, nil
}

// UnmarshalPayload decodes a stored establishment list.
func UnmarshalPayload(data []byte) ([]Establishment, error) {
	var places []Establishment
	if err := json.Unmarshal(data, &places); err != nil {
		return nil, eris.Wrap(err, "model: unmarshal payload")
	}
	return places, nil
}
