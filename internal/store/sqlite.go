package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/gfscout/internal/geo"
	"github.com/sells-group/gfscout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Timestamps are
// stored as unix milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS search_cache (
	id           TEXT PRIMARY KEY,
	location_key TEXT NOT NULL,
	search_type  TEXT NOT NULL,
	latitude     REAL,
	longitude    REAL,
	payload      TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_cache_key ON search_cache(location_key, search_type, created_at);
CREATE INDEX IF NOT EXISTS idx_search_cache_coords ON search_cache(search_type, latitude, longitude);
CREATE INDEX IF NOT EXISTS idx_search_cache_created_at ON search_cache(created_at);

CREATE TABLE IF NOT EXISTS feedback (
	id         TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

const sqliteColumns = `id, location_key, search_type, latitude, longitude, payload, created_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertSearches writes all entries in one transaction.
func (s *SQLiteStore) InsertSearches(ctx context.Context, entries []model.CacheEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	entries = fillDefaults(entries, uuid.NewString, time.Now().UTC())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert searches")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO search_cache (`+sqliteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert search")
	}
	defer stmt.Close() //nolint:errcheck

	for _, e := range entries {
		lat, lng := coordArgs(e.Coordinates)
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.LocationKey, string(e.Type), lat, lng, string(e.Payload), e.CreatedAt.UnixMilli(),
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert search %s", e.LocationKey)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert searches")
	}
	return int64(len(entries)), nil
}

func (s *SQLiteStore) FindByCity(ctx context.Context, f CityFilter) ([]model.CacheEntry, error) {
	match := `location_key = ?`
	if f.Substring {
		match = `instr(location_key, ?) > 0 AND location_key NOT LIKE 'geo:%'`
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteColumns+` FROM search_cache WHERE `+match+
			` AND search_type = ? AND created_at >= ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		f.Key, string(f.Type), f.Since.UnixMilli(), limitOrDefault(f.Limit),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find by city %s", f.Key)
	}
	return scanSQLiteEntries(rows)
}

func (s *SQLiteStore) FindNear(ctx context.Context, f NearFilter) ([]model.CacheEntry, error) {
	box := geo.BoundingBox(f.Lat, f.Lng, f.RadiusKM)
	west, east := box.LonRanges()
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteColumns+` FROM search_cache
		 WHERE search_type = ? AND created_at >= ?
		   AND latitude BETWEEN ? AND ?
		   AND (longitude BETWEEN ? AND ? OR longitude BETWEEN ? AND ?)
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		string(f.Type), f.Since.UnixMilli(), box.MinLat, box.MaxLat,
		west[0], west[1], east[0], east[1], nearCandidateLimit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find near")
	}
	candidates, err := scanSQLiteEntries(rows)
	if err != nil {
		return nil, err
	}
	return withinRadius(candidates, f), nil
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM search_cache WHERE created_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: delete expired rows affected")
}

func (s *SQLiteStore) InsertFeedback(ctx context.Context, fb model.Feedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, content, created_at) VALUES (?, ?, ?)`,
		fb.ID, fb.Content, fb.CreatedAt.UnixMilli(),
	)
	return eris.Wrap(err, "sqlite: insert feedback")
}

func scanSQLiteEntries(rows *sql.Rows) ([]model.CacheEntry, error) {
	defer rows.Close() //nolint:errcheck

	var out []model.CacheEntry
	for rows.Next() {
		var (
			e        model.CacheEntry
			typ      string
			lat, lng sql.NullFloat64
			payload  string
			created  int64
		)
		if err := rows.Scan(&e.ID, &e.LocationKey, &typ, &lat, &lng, &payload, &created); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan search")
		}
		e.Type = model.SearchType(typ)
		if lat.Valid && lng.Valid {
			e.Coordinates = &model.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
		}
		e.Payload = []byte(payload)
		e.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate searches")
}
