// Package cache fronts the search store: lookups that never fail the
// caller, and fire-and-forget writes drained by a background writer.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gfscout/internal/config"
	"github.com/sells-group/gfscout/internal/geo"
	"github.com/sells-group/gfscout/internal/model"
	"github.com/sells-group/gfscout/internal/resilience"
	"github.com/sells-group/gfscout/internal/store"
)

const (
	defaultFreshness    = 7 * 24 * time.Hour
	defaultRadiusKM     = 0.5
	defaultQueueSize    = 64
	defaultWriteTimeout = 10 * time.Second
	maxBatch            = 16
)

// Gate decides cache hits and persists fresh results out of band.
type Gate struct {
	store        store.Store
	freshness    time.Duration
	radiusKM     float64
	substring    bool
	writeTimeout time.Duration
	retry        resilience.RetryConfig
	now          func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan model.CacheEntry
	done   chan struct{}
}

// Option configures a Gate.
type Option func(*Gate)

// WithFreshness sets the maximum age of a usable entry.
func WithFreshness(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.freshness = d
		}
	}
}

// WithRadiusMeters sets the coordinate match radius.
func WithRadiusMeters(m int) Option {
	return func(g *Gate) {
		if m > 0 {
			g.radiusKM = float64(m) / 1000
		}
	}
}

// WithSubstringMatch makes city lookups match keys containing the query.
func WithSubstringMatch(on bool) Option {
	return func(g *Gate) { g.substring = on }
}

// WithQueueSize sets how many writes may be pending before new ones are dropped.
func WithQueueSize(n int) Option {
	return func(g *Gate) {
		if n > 0 {
			g.queue = make(chan model.CacheEntry, n)
		}
	}
}

// WithWriteTimeout bounds each background write, retries included.
func WithWriteTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.writeTimeout = d
		}
	}
}

// WithRetry overrides the write retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(g *Gate) { g.retry = cfg }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// New creates a Gate and starts its writer. Call Close to drain pending writes.
func New(st store.Store, opts ...Option) *Gate {
	g := &Gate{
		store:        st,
		freshness:    defaultFreshness,
		radiusKM:     defaultRadiusKM,
		writeTimeout: defaultWriteTimeout,
		retry:        resilience.DefaultRetryConfig(),
		now:          time.Now,
		queue:        make(chan model.CacheEntry, defaultQueueSize),
		done:         make(chan struct{}),
	}
	for _, o := range opts {
		o(g)
	}
	if g.retry.OnRetry == nil {
		g.retry.OnRetry = resilience.RetryLogger("cache", "insert_searches")
	}

	go g.writer()
	return g
}

// NewFromConfig builds a Gate from the cache config section.
func NewFromConfig(st store.Store, cfg config.CacheConfig) *Gate {
	return New(st,
		WithFreshness(time.Duration(cfg.FreshnessDays)*24*time.Hour),
		WithRadiusMeters(cfg.RadiusMeters),
		WithSubstringMatch(cfg.CityMatch == config.CityMatchSubstring),
		WithQueueSize(cfg.WriteQueue),
		WithWriteTimeout(time.Duration(cfg.WriteTimeoutSecs)*time.Second),
	)
}

// Lookup returns a fresh cached payload for q. Storage errors and malformed
// rows count as misses.
func (g *Gate) Lookup(ctx context.Context, q model.SearchQuery) ([]model.Establishment, bool) {
	log := zap.L().With(zap.String("type", string(q.Type)), zap.String("location", q.Location()))
	since := g.now().Add(-g.freshness)

	var (
		rows []model.CacheEntry
		err  error
	)
	if q.ByCoordinates() {
		rows, err = g.store.FindNear(ctx, store.NearFilter{
			Lat:      q.Coordinates.Lat,
			Lng:      q.Coordinates.Lng,
			RadiusKM: g.radiusKM,
			Type:     q.Type,
			Since:    since,
		})
	} else {
		rows, err = g.store.FindByCity(ctx, store.CityFilter{
			Key:       geo.NormalizeCity(q.City),
			Type:      q.Type,
			Since:     since,
			Substring: g.substring,
		})
	}
	if err != nil {
		log.Warn("cache: lookup failed, treating as miss", zap.Error(err))
		return nil, false
	}

	for _, row := range rows {
		places, err := model.UnmarshalPayload(row.Payload)
		if err != nil {
			log.Warn("cache: skipping malformed row", zap.String("id", row.ID), zap.Error(err))
			continue
		}
		if len(places) == 0 {
			continue
		}
		log.Debug("cache: hit", zap.String("id", row.ID), zap.Int("places", len(places)))
		return places, true
	}

	log.Debug("cache: miss")
	return nil, false
}

// Store queues places for persistence and returns immediately. Empty
// payloads are ignored; a full queue drops the write.
func (g *Gate) Store(q model.SearchQuery, places []model.Establishment) {
	if len(places) == 0 {
		return
	}
	payload, err := model.MarshalPayload(places)
	if err != nil {
		zap.L().Warn("cache: encode payload", zap.Error(err))
		return
	}
	entry := model.CacheEntry{
		LocationKey: LocationKey(q),
		Type:        q.Type,
		Coordinates: q.Coordinates,
		Payload:     payload,
		CreatedAt:   g.now().UTC(),
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		zap.L().Warn("cache: store after close", zap.String("key", entry.LocationKey))
		return
	}
	select {
	case g.queue <- entry:
	default:
		zap.L().Warn("cache: write queue full, dropping entry",
			zap.String("key", entry.LocationKey), zap.String("type", string(q.Type)))
	}
}

// Close stops accepting writes and waits for queued ones to finish or ctx
// to end.
func (g *Gate) Close(ctx context.Context) error {
	g.mu.Lock()
	if !g.closed {
		g.closed = true
		close(g.queue)
	}
	g.mu.Unlock()

	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "cache: drain writes")
	}
}

// LocationKey is the row key for q: the normalized city when present,
// otherwise the coordinate cell.
func LocationKey(q model.SearchQuery) string {
	if key := geo.NormalizeCity(q.City); key != "" {
		return key
	}
	if q.Coordinates != nil {
		return geo.CellKey(q.Coordinates.Lat, q.Coordinates.Lng)
	}
	return ""
}

func (g *Gate) writer() {
	defer close(g.done)

	for entry := range g.queue {
		batch := []model.CacheEntry{entry}
	collect:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-g.queue:
				if !ok {
					break collect
				}
				batch = append(batch, next)
			default:
				break collect
			}
		}
		g.write(batch)
	}
}

func (g *Gate) write(batch []model.CacheEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), g.writeTimeout)
	defer cancel()

	n, err := resilience.DoVal(ctx, g.retry, func(ctx context.Context) (int64, error) {
		return g.store.InsertSearches(ctx, batch)
	})
	if err != nil {
		zap.L().Error("cache: write failed", zap.Int("entries", len(batch)), zap.Error(err))
		return
	}
	zap.L().Debug("cache: stored", zap.Int64("rows", n))
}
