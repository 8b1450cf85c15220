// Package places turns Google Places search results into the operational,
// deduplicated establishment list the classifier works on.
package places

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/gfscout/internal/config"
	"github.com/sells-group/gfscout/internal/geo"
	"github.com/sells-group/gfscout/internal/model"
	"github.com/sells-group/gfscout/pkg/google"
)

const (
	defaultMaxPages   = 2
	defaultMaxResults = 20

	// nearbyKeyword narrows proximity searches to places mentioning gluten free.
	nearbyKeyword = "gluten free"
)

// Fetcher queries the places provider for one SearchQuery.
type Fetcher struct {
	client     google.Client
	maxPages   int
	maxResults int
	pageDelay  time.Duration
}

// NewFetcher creates a Fetcher. Zero page and result limits fall back to two
// pages and twenty results. The page delay is used as given; the provider
// rejects a continuation token requested too soon, so production configs
// keep it near two seconds.
func NewFetcher(client google.Client, cfg config.GoogleConfig) *Fetcher {
	f := &Fetcher{
		client:     client,
		maxPages:   cfg.MaxPages,
		maxResults: cfg.MaxResults,
		pageDelay:  time.Duration(cfg.PageDelayMS) * time.Millisecond,
	}
	if f.maxPages <= 0 {
		f.maxPages = defaultMaxPages
	}
	if f.maxResults <= 0 {
		f.maxResults = defaultMaxResults
	}
	if f.pageDelay < 0 {
		f.pageDelay = 0
	}
	return f
}

// TextQuery returns the provider query text for a city search.
func TextQuery(q model.SearchQuery) string {
	loc := q.City
	if q.Country != "" {
		loc = fmt.Sprintf("%s, %s", q.City, q.Country)
	}
	return fmt.Sprintf("gluten-free %s in %s", q.Type.Plural(), loc)
}

// Fetch runs the search and returns at most maxResults establishments. It
// never fails: provider errors end pagination and whatever was accumulated
// is returned.
func (f *Fetcher) Fetch(ctx context.Context, q model.SearchQuery) []model.Establishment {
	log := zap.L().With(
		zap.String("type", string(q.Type)),
		zap.String("location", q.Location()),
	)

	pageToken := ""
	var raw []google.PlaceResult

	for page := 0; page < f.maxPages; page++ {
		if page > 0 {
			if !sleepCtx(ctx, f.pageDelay) {
				log.Warn("places: context done between pages", zap.Int("page", page))
				break
			}
		}

		resp, err := f.search(ctx, q, pageToken)
		if err != nil {
			log.Warn("places: search failed", zap.Int("page", page), zap.Error(err))
			break
		}
		if resp.Status == google.StatusZeroResults {
			break
		}
		if resp.Status != google.StatusOK {
			log.Warn("places: provider status",
				zap.String("status", resp.Status),
				zap.String("error_message", resp.ErrorMessage),
				zap.Int("page", page),
			)
			break
		}

		raw = append(raw, resp.Results...)

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	out := Collect(raw, q.Coordinates)
	if len(out) > f.maxResults {
		out = out[:f.maxResults]
	}

	log.Debug("places: fetched", zap.Int("raw", len(raw)), zap.Int("kept", len(out)))
	return out
}

func (f *Fetcher) search(ctx context.Context, q model.SearchQuery, pageToken string) (*google.SearchResponse, error) {
	if q.ByCoordinates() {
		return f.client.NearbySearch(ctx, google.NearbySearchRequest{
			Lat:       q.Coordinates.Lat,
			Lng:       q.Coordinates.Lng,
			Type:      q.Type.ProviderType(),
			Keyword:   nearbyKeyword,
			PageToken: pageToken,
		})
	}
	return f.client.TextSearch(ctx, google.TextSearchRequest{
		Query:     TextQuery(q),
		Type:      q.Type.ProviderType(),
		PageToken: pageToken,
	})
}

// Collect filters, deduplicates and orders raw provider results. Only
// operational places with an id survive and the first occurrence of an id
// wins. With an origin, distances are attached and the result is sorted
// nearest first; otherwise provider order is kept.
func Collect(raw []google.PlaceResult, origin *model.Coordinates) []model.Establishment {
	seen := make(map[string]struct{}, len(raw))
	out := make([]model.Establishment, 0, len(raw))

	for _, r := range raw {
		if r.PlaceID == "" || r.BusinessStatus != model.BusinessStatusOperational {
			continue
		}
		if _, dup := seen[r.PlaceID]; dup {
			continue
		}
		seen[r.PlaceID] = struct{}{}

		e := model.Establishment{
			PlaceID:        r.PlaceID,
			Name:           r.Name,
			Address:        r.Address(),
			Rating:         r.Rating,
			RatingCount:    r.UserRatingsTotal,
			Types:          r.Types,
			BusinessStatus: r.BusinessStatus,
		}
		if loc := r.Geometry.Location; loc != nil {
			e.Coordinates = &model.Coordinates{Lat: loc.Lat, Lng: loc.Lng}
			if origin != nil {
				d := geo.Distance(origin.Lat, origin.Lng, loc.Lat, loc.Lng)
				e.DistanceKM = &d
			}
		}
		out = append(out, e)
	}

	if origin != nil {
		sort.SliceStable(out, func(i, j int) bool {
			return distanceOrMax(out[i]) < distanceOrMax(out[j])
		})
	}
	return out
}

func distanceOrMax(e model.Establishment) float64 {
	if e.DistanceKM == nil {
		return model.UnknownDistanceKM
	}
	return *e.DistanceKM
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
