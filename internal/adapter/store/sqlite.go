package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cwmauze/genesys-waypoint-tools/internal/domain"

	_ "modernc.org/sqlite"
)

var sqliteSchema = []string{
	`CREATE TABLE waypoints (
		id TEXT NOT NULL,
		name TEXT,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		elev TEXT,
		type TEXT NOT NULL,
		descr TEXT
	);`,
	`CREATE TABLE obstacles (
		id TEXT NOT NULL,
		state TEXT,
		city TEXT,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		agl INTEGER NOT NULL
	);`,
}

var sqliteIndexes = []string{
	"CREATE INDEX idx_waypoints_id ON waypoints (id, type);",
	"CREATE INDEX idx_obstacles_state ON obstacles (state);",
}

// ExportSQLite builds a database at path holding the given waypoints and
// obstacles. The database is built under a temp name and swapped in on
// success, so a failed export leaves the previous file intact.
func ExportSQLite(ctx context.Context, path string, waypoints []domain.Waypoint, obstacles []domain.Obstacle) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create db directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "faadb-*.dbtmp")
	if err != nil {
		return fmt.Errorf("store: create temp db: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	db, err := sql.Open("sqlite", tmpPath+"?_pragma=journal_mode(OFF)&_pragma=synchronous(OFF)")
	if err != nil {
		return fmt.Errorf("store: open sqlite: %w", err)
	}
	defer db.Close()

	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: create table: %w", err)
		}
	}
	if err := insertAll(ctx, db, waypoints, obstacles); err != nil {
		return err
	}
	for _, idx := range sqliteIndexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("store: create index: %w", err)
		}
	}

	if err := db.Close(); err != nil {
		return fmt.Errorf("store: close sqlite: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("store: remove old db: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("store: replace db: %w", err)
	}
	return nil
}

func insertAll(ctx context.Context, db *sql.DB, waypoints []domain.Waypoint, obstacles []domain.Obstacle) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	wp, err := tx.PrepareContext(ctx, "INSERT INTO waypoints (id, name, lat, lon, elev, type, descr) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("store: prepare waypoints: %w", err)
	}
	defer wp.Close()
	for _, w := range waypoints {
		if _, err := wp.ExecContext(ctx, w.ID, w.Name, w.Lat, w.Lon, w.Elev, w.Type, w.Desc); err != nil {
			return fmt.Errorf("store: insert waypoint %s: %w", w.ID, err)
		}
	}

	ob, err := tx.PrepareContext(ctx, "INSERT INTO obstacles (id, state, city, lat, lon, agl) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("store: prepare obstacles: %w", err)
	}
	defer ob.Close()
	for _, o := range obstacles {
		if _, err := ob.ExecContext(ctx, o.ID, o.State, o.City, o.Lat, o.Lon, o.AGL); err != nil {
			return fmt.Errorf("store: insert obstacle %s: %w", o.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}
