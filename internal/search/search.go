// Package search runs one gluten-free search end to end: cache, places
// fetch, classification, merge, and the background cache write.
package search

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gfscout/internal/enrich"
	"github.com/sells-group/gfscout/internal/model"
)

// Errors surfaced to callers. Everything else is internal.
var (
	ErrValidation = eris.New("invalid request")
	ErrNotFound   = eris.New("not found")
	ErrTimeout    = eris.New("request timed out")
)

// Fetcher returns operational establishments for a query.
type Fetcher interface {
	Fetch(ctx context.Context, q model.SearchQuery) []model.Establishment
}

// Classifier maps place ids to tiers. Failures yield an empty map.
type Classifier interface {
	Classify(ctx context.Context, places []model.Establishment, q model.SearchQuery) map[string]model.GFStatus
}

// Cache serves fresh results and accepts new ones without blocking.
type Cache interface {
	Lookup(ctx context.Context, q model.SearchQuery) ([]model.Establishment, bool)
	Store(q model.SearchQuery, places []model.Establishment)
}

// Service wires the search pipeline together.
type Service struct {
	fetcher    Fetcher
	classifier Classifier
	cache      Cache
}

// NewService creates a Service.
func NewService(f Fetcher, c Classifier, cache Cache) *Service {
	return &Service{fetcher: f, classifier: c, cache: cache}
}

// Search returns the ranked establishments for q. A cache hit skips the
// fetch and classification entirely. An empty, non-nil result means every
// place was filtered out.
func (s *Service) Search(ctx context.Context, q model.SearchQuery) ([]model.Establishment, error) {
	if err := q.Validate(); err != nil {
		return nil, eris.Wrap(ErrValidation, err.Error())
	}
	log := zap.L().With(zap.String("type", string(q.Type)), zap.String("location", q.Location()))

	if places, ok := s.cache.Lookup(ctx, q); ok {
		log.Info("search: cache hit", zap.Int("places", len(places)))
		return places, nil
	}

	places := s.fetcher.Fetch(ctx, q)
	if err := timedOut(ctx); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "no %s found in %s", q.Type.Plural(), q.Location())
	}

	statuses := s.classifier.Classify(ctx, places, q)
	if err := timedOut(ctx); err != nil {
		return nil, err
	}

	merged := enrich.Merge(places, statuses)
	log.Info("search: enriched",
		zap.Int("fetched", len(places)),
		zap.Int("classified", len(statuses)),
		zap.Int("returned", len(merged)),
	)

	if len(merged) > 0 {
		s.cache.Store(q, merged)
	}
	return merged, nil
}

func timedOut(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return eris.Wrap(ErrTimeout, "search deadline exceeded")
	}
	if ctx.Err() != nil {
		return eris.Wrap(ctx.Err(), "search: canceled")
	}
	return nil
}
