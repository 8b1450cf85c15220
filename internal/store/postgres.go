package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/gfscout/internal/db"
	"github.com/sells-group/gfscout/internal/geo"
	"github.com/sells-group/gfscout/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const searchColumns = `id, location_key, search_type, latitude, longitude, payload, created_at`

// nearCandidateLimit bounds the bounding-box prefilter before the exact
// radius check.
const nearCandidateLimit = 200

const (
	sqlInsertSearch   = `INSERT INTO search_cache (` + searchColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	sqlFindCityExact  = `SELECT ` + searchColumns + ` FROM search_cache WHERE location_key = $1 AND search_type = $2 AND created_at >= $3 ORDER BY created_at DESC LIMIT $4`
	sqlFindCityLike   = `SELECT ` + searchColumns + ` FROM search_cache WHERE strpos(location_key, $1) > 0 AND location_key NOT LIKE 'geo:%' AND search_type = $2 AND created_at >= $3 ORDER BY created_at DESC LIMIT $4`
	sqlFindNear       = `SELECT ` + searchColumns + ` FROM search_cache WHERE search_type = $1 AND created_at >= $2 AND latitude BETWEEN $3 AND $4 AND (longitude BETWEEN $5 AND $6 OR longitude BETWEEN $7 AND $8) ORDER BY created_at DESC LIMIT $9`
	sqlDeleteExpired  = `DELETE FROM search_cache WHERE created_at < $1`
	sqlInsertFeedback = `INSERT INTO feedback (id, content, created_at) VALUES ($1, $2, $3)`
)

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"insert_search":   sqlInsertSearch,
	"find_city_exact": sqlFindCityExact,
	"find_city_like":  sqlFindCityLike,
	"find_near":       sqlFindNear,
	"insert_feedback": sqlInsertFeedback,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS search_cache (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	location_key TEXT NOT NULL,
	search_type  TEXT NOT NULL,
	latitude     DOUBLE PRECISION,
	longitude    DOUBLE PRECISION,
	payload      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_search_cache_key ON search_cache(location_key, search_type, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_search_cache_coords ON search_cache(search_type, latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_search_cache_created_at ON search_cache(created_at);

CREATE TABLE IF NOT EXISTS feedback (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// InsertSearches writes one row per entry. A single entry is a plain insert;
// larger batches use COPY.
func (s *PostgresStore) InsertSearches(ctx context.Context, entries []model.CacheEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	entries = fillDefaults(entries, uuid.NewString, time.Now().UTC())

	if len(entries) == 1 {
		e := entries[0]
		lat, lng := coordArgs(e.Coordinates)
		tag, err := s.pool.Exec(ctx, sqlInsertSearch,
			e.ID, e.LocationKey, string(e.Type), lat, lng, e.Payload, e.CreatedAt)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: insert search %s", e.LocationKey)
		}
		return tag.RowsAffected(), nil
	}

	rows := make([][]any, len(entries))
	for i, e := range entries {
		lat, lng := coordArgs(e.Coordinates)
		rows[i] = []any{e.ID, e.LocationKey, string(e.Type), lat, lng, e.Payload, e.CreatedAt}
	}
	n, err := db.CopyFrom(ctx, s.pool, "search_cache",
		[]string{"id", "location_key", "search_type", "latitude", "longitude", "payload", "created_at"}, rows)
	return n, eris.Wrap(err, "postgres: insert searches")
}

func (s *PostgresStore) FindByCity(ctx context.Context, f CityFilter) ([]model.CacheEntry, error) {
	query := sqlFindCityExact
	if f.Substring {
		query = sqlFindCityLike
	}
	rows, err := s.pool.Query(ctx, query, f.Key, string(f.Type), f.Since, limitOrDefault(f.Limit))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find by city %s", f.Key)
	}
	return collectEntries(rows)
}

func (s *PostgresStore) FindNear(ctx context.Context, f NearFilter) ([]model.CacheEntry, error) {
	box := geo.BoundingBox(f.Lat, f.Lng, f.RadiusKM)
	west, east := box.LonRanges()
	rows, err := s.pool.Query(ctx, sqlFindNear,
		string(f.Type), f.Since, box.MinLat, box.MaxLat,
		west[0], west[1], east[0], east[1], nearCandidateLimit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find near")
	}
	candidates, err := collectEntries(rows)
	if err != nil {
		return nil, err
	}
	return withinRadius(candidates, f), nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, sqlDeleteExpired, before)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) InsertFeedback(ctx context.Context, fb model.Feedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, sqlInsertFeedback, fb.ID, fb.Content, fb.CreatedAt)
	return eris.Wrap(err, "postgres: insert feedback")
}

func collectEntries(rows pgx.Rows) ([]model.CacheEntry, error) {
	defer rows.Close()

	var out []model.CacheEntry
	for rows.Next() {
		var (
			e        model.CacheEntry
			typ      string
			lat, lng *float64
		)
		if err := rows.Scan(&e.ID, &e.LocationKey, &typ, &lat, &lng, &e.Payload, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan search")
		}
		e.Type = model.SearchType(typ)
		e.Coordinates = coordsFrom(lat, lng)
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate searches")
}
