// Package store persists search cache rows and user feedback in Postgres
// or SQLite.
package store

import (
	"context"
	"sort"
	"time"

	"github.com/sells-group/gfscout/internal/geo"
	"github.com/sells-group/gfscout/internal/model"
)

// DefaultLimit bounds the rows returned by a single lookup.
const DefaultLimit = 50

// CityFilter selects city-keyed cache rows.
type CityFilter struct {
	Key       string // normalized city
	Type      model.SearchType
	Since     time.Time // rows created before Since are stale
	Substring bool      // match rows whose key contains Key
	Limit     int
}

// NearFilter selects coordinate-tagged cache rows within RadiusKM.
type NearFilter struct {
	Lat, Lng float64
	RadiusKM float64
	Type     model.SearchType
	Since    time.Time
	Limit    int
}

// Store defines the persistence interface for cached searches and feedback.
type Store interface {
	// Search cache. Rows are append-only.
	InsertSearches(ctx context.Context, entries []model.CacheEntry) (int64, error)
	// FindByCity returns matching rows, most recent first.
	FindByCity(ctx context.Context, f CityFilter) ([]model.CacheEntry, error)
	// FindNear returns rows within the radius, nearest first, ties most recent first.
	FindNear(ctx context.Context, f NearFilter) ([]model.CacheEntry, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)

	// Feedback
	InsertFeedback(ctx context.Context, fb model.Feedback) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	return n
}

// withinRadius keeps candidates inside the radius and orders them nearest
// first. Candidates must arrive most recent first so equal distances keep
// recency order.
func withinRadius(candidates []model.CacheEntry, f NearFilter) []model.CacheEntry {
	type scored struct {
		entry model.CacheEntry
		km    float64
	}
	var hits []scored
	for _, c := range candidates {
		if c.Coordinates == nil {
			continue
		}
		d := geo.Distance(f.Lat, f.Lng, c.Coordinates.Lat, c.Coordinates.Lng)
		if d <= f.RadiusKM {
			hits = append(hits, scored{entry: c, km: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].km < hits[j].km })

	out := make([]model.CacheEntry, len(hits))
	for i, h := range hits {
		out[i] = h.entry
	}
	if len(out) > limitOrDefault(f.Limit) {
		out = out[:limitOrDefault(f.Limit)]
	}
	return out
}

// fillDefaults assigns an id and creation time to entries missing them.
func fillDefaults(entries []model.CacheEntry, newID func() string, now time.Time) []model.CacheEntry {
	out := make([]model.CacheEntry, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			e.ID = newID()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		out[i] = e
	}
	return out
}

func coordArgs(c *model.Coordinates) (lat, lng *float64) {
	if c == nil {
		return nil, nil
	}
	la, ln := c.Lat, c.Lng
	return &la, &ln
}

func coordsFrom(lat, lng *float64) *model.Coordinates {
	if lat == nil || lng == nil {
		return nil
	}
	return &model.Coordinates{Lat: *lat, Lng: *lng}
}
