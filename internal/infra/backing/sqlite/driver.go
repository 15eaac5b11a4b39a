// Package sqlite stores backing slots as rows of a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// DefaultPath is used when no path is configured.
const DefaultPath = "boardhouse.db"

// Schema is the DDL applied when the database is opened.
//
//go:embed schema.sql
var Schema string

// Driver persists each slot as one `state` row keyed by bucket.
type Driver struct {
	db   *sql.DB
	path string
}

// Open creates (or reopens) the database at path.
func Open(ctx context.Context, path string) (*Driver, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection; SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Driver{db: db, path: path}, nil
}

// Name identifies the driver.
func (d *Driver) Name() string { return "sqlite" }

// Path returns the database file path.
func (d *Driver) Path() string { return d.path }

// DB exposes the handle for tests.
func (d *Driver) DB() *sql.DB { return d.db }

// Read returns the payload stored under bucket.
func (d *Driver) Read(ctx context.Context, bucket string) ([]byte, bool, error) {
	var payload []byte
	err := d.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = ?`, bucket).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %s: %w", bucket, err)
	}
	return payload, true, nil
}

// Write upserts the payload under bucket.
func (d *Driver) Write(ctx context.Context, bucket string, payload []byte) error {
	if _, err := d.db.ExecContext(ctx,
		`INSERT INTO state(bucket, payload) VALUES(?, ?) ON CONFLICT(bucket) DO UPDATE SET payload = excluded.payload`,
		bucket, payload); err != nil {
		return fmt.Errorf("upsert %s: %w", bucket, err)
	}
	return nil
}

// Delete removes bucket.
func (d *Driver) Delete(ctx context.Context, bucket string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM state WHERE bucket = ?`, bucket); err != nil {
		return fmt.Errorf("delete %s: %w", bucket, err)
	}
	return nil
}

// Close closes the database.
func (d *Driver) Close() error { return d.db.Close() }
