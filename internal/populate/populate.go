// Package populate seeds the search cache by driving a running gfscout
// server through every city and establishment type.
package populate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/gfscout/internal/config"
	"github.com/sells-group/gfscout/internal/fetcher"
	"github.com/sells-group/gfscout/internal/model"
)

// Archiver stores a copy of each successful search payload.
type Archiver interface {
	Put(ctx context.Context, city string, typ model.SearchType, payload []byte) (bool, error)
}

// Summary counts what a run did.
type Summary struct {
	Cities         int
	CitiesResolved int
	Searches       int
	Failed         int
	Empty          int
	Places         int
	Archived       int
	FailedCities   []string
	Duration       time.Duration
}

// Runner walks cities against the server API.
type Runner struct {
	fetcher     fetcher.Fetcher
	baseURL     string
	types       []model.SearchType
	concurrency int
	cityPause   time.Duration
	archive     Archiver
}

// Option configures a Runner.
type Option func(*Runner)

// WithTypes limits the establishment types searched per city.
func WithTypes(types ...model.SearchType) Option {
	return func(r *Runner) {
		if len(types) > 0 {
			r.types = types
		}
	}
}

// WithConcurrency sets how many types of one city run at once.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithCityPause sets the wait between cities. Zero disables it.
func WithCityPause(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.cityPause = d
		}
	}
}

// WithArchive writes each successful payload to a.
func WithArchive(a Archiver) Option {
	return func(r *Runner) { r.archive = a }
}

// New creates a Runner that calls the server at baseURL through f.
func New(f fetcher.Fetcher, baseURL string, opts ...Option) *Runner {
	r := &Runner{
		fetcher:     f,
		baseURL:     strings.TrimRight(baseURL, "/"),
		types:       model.SearchTypes,
		concurrency: 3,
		cityPause:   5 * time.Second,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// NewFromConfig builds a rate-limited Runner from the populate config.
// archive may be nil. opts apply after the config.
func NewFromConfig(cfg config.PopulateConfig, archive Archiver, opts ...Option) (*Runner, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Host == "" {
		return nil, eris.Errorf("populate: invalid base url %q", cfg.BaseURL)
	}

	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent: "gfscout-populate/1.0",
		Timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
		AdaptiveLimiters: map[string]*fetcher.AdaptiveLimiter{
			u.Host: fetcher.NewAdaptiveLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		},
	})

	base := []Option{
		WithConcurrency(cfg.Concurrency),
		WithCityPause(time.Duration(cfg.CityPauseSecs) * time.Second),
	}
	if archive != nil {
		base = append(base, WithArchive(archive))
	}
	return New(f, cfg.BaseURL, append(base, opts...)...), nil
}

// Run processes cities in order. Per-city and per-search failures are
// logged and counted; only cancellation stops the run early.
func (r *Runner) Run(ctx context.Context, cities []City) (Summary, error) {
	start := time.Now()
	sum := Summary{Cities: len(cities)}

	for i, city := range cities {
		if err := ctx.Err(); err != nil {
			sum.Duration = time.Since(start)
			return sum, eris.Wrap(err, "populate: canceled")
		}

		log := zap.L().With(zap.String("city", city.Query()), zap.Int("index", i+1), zap.Int("total", len(cities)))

		coords, err := r.resolve(ctx, city)
		if err != nil {
			log.Warn("populate: resolve failed, skipping city", zap.Error(err))
			sum.FailedCities = append(sum.FailedCities, city.Query())
		} else {
			sum.CitiesResolved++
			r.searchCity(ctx, log, city, coords, &sum)
		}

		if i < len(cities)-1 {
			r.pause(ctx)
		}
	}

	sum.Duration = time.Since(start)
	zap.L().Info("populate: finished",
		zap.Int("cities", sum.Cities),
		zap.Int("resolved", sum.CitiesResolved),
		zap.Int("searches", sum.Searches),
		zap.Int("failed", sum.Failed),
		zap.Int("empty", sum.Empty),
		zap.Int("places", sum.Places),
		zap.Int("archived", sum.Archived),
		zap.Duration("duration", sum.Duration),
	)
	if err := ctx.Err(); err != nil {
		return sum, eris.Wrap(err, "populate: canceled")
	}
	return sum, nil
}

func (r *Runner) resolve(ctx context.Context, city City) (model.Coordinates, error) {
	body, err := r.fetcher.Download(ctx, r.baseURL+"/find-city-coordinates?"+url.Values{"city": {city.Query()}}.Encode())
	if err != nil {
		return model.Coordinates{}, eris.Wrap(err, "populate: find city coordinates")
	}
	defer body.Close() //nolint:errcheck

	coords, err := fetcher.DecodeJSONObject[model.Coordinates](body)
	if err != nil {
		return model.Coordinates{}, eris.Wrap(err, "populate: decode coordinates")
	}
	return *coords, nil
}

func (r *Runner) searchCity(ctx context.Context, log *zap.Logger, city City, coords model.Coordinates, sum *Summary) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, typ := range r.types {
		g.Go(func() error {
			places, payload, err := r.search(gctx, city, coords, typ)

			mu.Lock()
			defer mu.Unlock()
			sum.Searches++

			var se *fetcher.StatusError
			switch {
			case errors.As(err, &se) && se.StatusCode == http.StatusNotFound:
				sum.Empty++
				log.Info("populate: no results", zap.String("type", string(typ)))
				return nil
			case err != nil:
				sum.Failed++
				log.Warn("populate: search failed", zap.String("type", string(typ)), zap.Error(err))
				return nil
			}

			sum.Places += places
			log.Info("populate: search cached", zap.String("type", string(typ)), zap.Int("places", places))

			if r.archive != nil {
				written, err := r.archive.Put(gctx, city.Query(), typ, payload)
				if err != nil {
					log.Warn("populate: archive failed", zap.String("type", string(typ)), zap.Error(err))
				} else if written {
					sum.Archived++
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Runner) search(ctx context.Context, city City, coords model.Coordinates, typ model.SearchType) (int, []byte, error) {
	params := url.Values{
		"type": {string(typ)},
		"city": {city.Name},
		"lat":  {strconv.FormatFloat(coords.Lat, 'f', -1, 64)},
		"lon":  {strconv.FormatFloat(coords.Lng, 'f', -1, 64)},
	}
	if city.Country != "" {
		params.Set("country", city.Country)
	}

	body, err := r.fetcher.Download(ctx, r.baseURL+"/get-restaurants?"+params.Encode())
	if err != nil {
		return 0, nil, err
	}
	defer body.Close() //nolint:errcheck

	payload, err := io.ReadAll(body)
	if err != nil {
		return 0, nil, eris.Wrap(err, "populate: read search response")
	}

	var resp struct {
		RawData []json.RawMessage `json:"raw_data"`
	}
	if err := json.Unmarshal(payload, &resp); err != nil {
		return 0, nil, eris.Wrap(err, "populate: decode search response")
	}
	return len(resp.RawData), payload, nil
}

func (r *Runner) pause(ctx context.Context) {
	if r.cityPause <= 0 {
		return
	}
	t := time.NewTimer(r.cityPause)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
