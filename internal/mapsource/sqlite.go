package mapsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/gravitas-games/hexgrid/internal/grid"
	"github.com/gravitas-games/hexgrid/internal/hecs"
)

// ErrNoMap is returned when the backing store has no map published.
var ErrNoMap = errors.New("no map published")

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS map_meta (
	id        INTEGER PRIMARY KEY CHECK (id = 1),
	row_count INTEGER NOT NULL,
	col_count INTEGER NOT NULL,
	iteration INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS tiles (
	a        INTEGER NOT NULL,
	r        INTEGER NOT NULL,
	c        INTEGER NOT NULL,
	asset_id INTEGER NOT NULL,
	rotation INTEGER NOT NULL,
	boundary INTEGER NOT NULL,
	PRIMARY KEY (a, r, c)
);
`

// SQLite is a map source stored in a SQLite database. Publish replaces the
// tile list and bumps the iteration in one transaction.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create map schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// SetDimensions declares the map size, creating the map if needed.
func (s *SQLite) SetDimensions(ctx context.Context, rows, cols int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO map_meta (id, row_count, col_count, iteration) VALUES (1, ?, ?, 0)
		 ON CONFLICT(id) DO UPDATE SET row_count = excluded.row_count, col_count = excluded.col_count`,
		rows, cols)
	return err
}

// Publish replaces the tile list and increments the iteration.
func (s *SQLite) Publish(ctx context.Context, tiles []grid.TileInfo) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tiles`); err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO tiles (a, r, c, asset_id, rotation, boundary) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for _, t := range tiles {
		if _, err := stmt.ExecContext(ctx, t.Cell.A, t.Cell.R, t.Cell.C, t.AssetID, t.RotationDegrees, int(t.Boundary.Mask())); err != nil {
			return 0, err
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE map_meta SET iteration = iteration + 1 WHERE id = 1`)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrNoMap
	}
	var iteration int
	if err := tx.QueryRowContext(ctx, `SELECT iteration FROM map_meta WHERE id = 1`).Scan(&iteration); err != nil {
		return 0, err
	}
	return iteration, tx.Commit()
}

func (s *SQLite) GetMapDimensions(ctx context.Context) (int, int, error) {
	var rows, cols int
	err := s.db.QueryRowContext(ctx, `SELECT row_count, col_count FROM map_meta WHERE id = 1`).Scan(&rows, &cols)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrNoMap
	}
	return rows, cols, err
}

func (s *SQLite) GetMapIteration(ctx context.Context) (int, error) {
	return queryIteration(ctx, s.db)
}

func (s *SQLite) GetTileList(ctx context.Context) ([]grid.TileInfo, error) {
	return queryTiles(ctx, s.db)
}

// GetSnapshot reads the iteration and tile list inside one transaction.
func (s *SQLite) GetSnapshot(ctx context.Context) (int, []grid.TileInfo, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	iteration, err := queryIteration(ctx, tx)
	if err != nil {
		return 0, nil, err
	}
	tiles, err := queryTiles(ctx, tx)
	if err != nil {
		return 0, nil, err
	}
	return iteration, tiles, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryIteration(ctx context.Context, q querier) (int, error) {
	var iteration int
	err := q.QueryRowContext(ctx, `SELECT iteration FROM map_meta WHERE id = 1`).Scan(&iteration)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoMap
	}
	return iteration, err
}

func queryTiles(ctx context.Context, q querier) ([]grid.TileInfo, error) {
	rows, err := q.QueryContext(ctx, `SELECT a, r, c, asset_id, rotation, boundary FROM tiles ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tiles := []grid.TileInfo{}
	for rows.Next() {
		var t grid.TileInfo
		var mask int
		if err := rows.Scan(&t.Cell.A, &t.Cell.R, &t.Cell.C, &t.AssetID, &t.RotationDegrees, &mask); err != nil {
			return nil, err
		}
		t.Boundary = hecs.Boundary(mask)
		tiles = append(tiles, t)
	}
	return tiles, rows.Err()
}
