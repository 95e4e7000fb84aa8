// Package postgis stores resolved store locations in PostgreSQL/PostGIS and
// answers viewport queries with a GIST-indexed envelope search.
package postgis

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/kass/go-store-map/pkg/models"
)

const (
	srid      = 4326
	batchSize = 1000
)

// Store is a PostGIS-backed location store
type Store struct {
	db *sql.DB
}

// Open connects to the database at dsn
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: open")
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "postgis: ping")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{db: db}, nil
}

// InitSchema creates the stores table if needed
func (s *Store) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis;`,
		`CREATE TABLE IF NOT EXISTS stores (
			key      TEXT PRIMARY KEY,
			title    TEXT NOT NULL DEFAULT '',
			address  TEXT NOT NULL DEFAULT '',
			icon     TEXT NOT NULL DEFAULT '',
			content  TEXT NOT NULL DEFAULT '',
			location GEOMETRY(POINT, 4326) NOT NULL
		);`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return eris.Wrapf(err, "postgis: exec %q", query)
		}
	}
	return nil
}

// CreateSpatialIndex creates a GIST index on the location column
func (s *Store) CreateSpatialIndex(ctx context.Context) error {
	start := time.Now()
	if _, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_stores_location ON stores USING GIST(location);`); err != nil {
		return eris.Wrap(err, "postgis: create spatial index")
	}
	if _, err := s.db.ExecContext(ctx, `ANALYZE stores;`); err != nil {
		return eris.Wrap(err, "postgis: analyze")
	}
	zap.L().Debug("postgis: spatial index ready", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// UpsertRecords writes the resolved records, replacing rows with the same
// key. Unresolved records are skipped. It returns the number written.
func (s *Store) UpsertRecords(ctx context.Context, records []*models.LocationRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "postgis: begin")
	}

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, eris.Wrap(err, "postgis: prepare upsert")
	}

	written := 0
	for _, rec := range records {
		pos, ok := rec.Position()
		if !ok {
			continue
		}

		point, err := pointEWKB(pos)
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return written, err
		}

		if _, err := stmt.ExecContext(ctx, rec.Key, rec.Title, rec.Address, rec.Icon, rec.Content, point); err != nil {
			tx.Rollback() //nolint:errcheck
			return written, eris.Wrapf(err, "postgis: upsert %s", rec.Key)
		}
		written++

		// Commit batch
		if written%batchSize == 0 {
			if err := tx.Commit(); err != nil {
				return written, eris.Wrap(err, "postgis: commit batch")
			}
			if tx, err = s.db.BeginTx(ctx, nil); err != nil {
				return written, eris.Wrap(err, "postgis: begin batch")
			}
			if stmt, err = tx.PrepareContext(ctx, upsertSQL); err != nil {
				tx.Rollback() //nolint:errcheck
				return written, eris.Wrap(err, "postgis: prepare upsert")
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return written, eris.Wrap(err, "postgis: commit")
	}
	return written, nil
}

const upsertSQL = `
	INSERT INTO stores (key, title, address, icon, content, location)
	VALUES ($1, $2, $3, $4, $5, ST_GeomFromEWKB($6))
	ON CONFLICT (key) DO UPDATE SET
		title = EXCLUDED.title,
		address = EXCLUDED.address,
		icon = EXCLUDED.icon,
		content = EXCLUDED.content,
		location = EXCLUDED.location
`

const viewportSQL = `
	SELECT key, title, address, icon, content, ST_Y(location) AS lat, ST_X(location) AS lng
	FROM stores
	WHERE location && ST_MakeEnvelope($1, $2, $3, $4, 4326)
	ORDER BY key
`

// QueryViewport returns the stored records strictly inside bounds. A viewport
// crossing the antimeridian is queried as two envelopes.
func (s *Store) QueryViewport(ctx context.Context, bounds models.ViewportBounds) ([]*models.LocationRecord, error) {
	seen := make(map[string]bool)
	var results []*models.LocationRecord

	for _, box := range bounds.Boxes() {
		rows, err := s.db.QueryContext(ctx, viewportSQL, envelopeArgs(box)...)
		if err != nil {
			return nil, eris.Wrap(err, "postgis: query viewport")
		}

		for rows.Next() {
			rec := &models.LocationRecord{}
			var lat, lng float64
			if err := rows.Scan(&rec.Key, &rec.Title, &rec.Address, &rec.Icon, &rec.Content, &lat, &lng); err != nil {
				rows.Close() //nolint:errcheck
				return nil, eris.Wrap(err, "postgis: scan row")
			}
			if seen[rec.Key] || !bounds.Contains(lat, lng) {
				continue
			}
			seen[rec.Key] = true
			rec.SetPosition(lat, lng)
			results = append(results, rec)
		}

		err = rows.Err()
		rows.Close() //nolint:errcheck
		if err != nil {
			return nil, eris.Wrap(err, "postgis: rows")
		}
	}

	return results, nil
}

// Count returns the number of stored locations
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stores").Scan(&count); err != nil {
		return 0, eris.Wrap(err, "postgis: count")
	}
	return count, nil
}

// Stats returns database and table sizes
func (s *Store) Stats(ctx context.Context) (map[string]any, error) {
	stats := make(map[string]any)

	var dbSize string
	err := s.db.QueryRowContext(ctx, `SELECT pg_size_pretty(pg_database_size(current_database()))`).Scan(&dbSize)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: database size")
	}
	stats["database_size"] = dbSize

	var tableSize, indexSize string
	err = s.db.QueryRowContext(ctx, `
		SELECT
			pg_size_pretty(pg_total_relation_size('stores')),
			pg_size_pretty(pg_indexes_size('stores'))
	`).Scan(&tableSize, &indexSize)
	if err != nil {
		// Table might not exist yet
		tableSize, indexSize = "0 bytes", "0 bytes"
	}
	stats["table_size"] = tableSize
	stats["index_size"] = indexSize

	count, _ := s.Count(ctx)
	stats["row_count"] = count

	return stats, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// envelopeArgs orders a box as ST_MakeEnvelope expects: xmin, ymin, xmax, ymax
func envelopeArgs(box models.BoundingBox) []any {
	return []any{box.BottomLeft.Lng, box.BottomLeft.Lat, box.TopRight.Lng, box.TopRight.Lat}
}

// pointEWKB encodes pos as an SRID 4326 point, x = longitude
func pointEWKB(pos models.Location) ([]byte, error) {
	p := geom.NewPointFlat(geom.XY, []float64{pos.Lng, pos.Lat}).SetSRID(srid)
	data, err := ewkb.Marshal(p, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: encode point")
	}
	return data, nil
}
