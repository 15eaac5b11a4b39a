// Package postgres stores backing slots as JSONB rows in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	driverName = "pgx"
	// DefaultDSN is used when no DSN is configured.
	DefaultDSN = "postgres://localhost/boardhouse?sslmode=disable"
)

// Schema is the DDL applied by NewWithDB.
//
//go:embed schema.sql
var Schema string

// Driver persists each slot as one `state` row keyed by bucket.
type Driver struct {
	db *sql.DB
}

// Open connects to dsn, pings, and ensures the state table exists.
func Open(ctx context.Context, dsn string) (*Driver, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewWithDB(ctx, db)
}

// NewWithDB wraps an existing handle and ensures the state table exists.
func NewWithDB(ctx context.Context, db *sql.DB) (*Driver, error) {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return nil, fmt.Errorf("ensure state table: %w", err)
	}
	return &Driver{db: db}, nil
}

// Name identifies the driver.
func (d *Driver) Name() string { return "postgres" }

// Read returns the payload stored under bucket.
func (d *Driver) Read(ctx context.Context, bucket string) ([]byte, bool, error) {
	var payload []byte
	err := d.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = $1`, bucket).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %s: %w", bucket, err)
	}
	return payload, true, nil
}

// Write upserts the payload under bucket inside a transaction.
func (d *Driver) Write(ctx context.Context, bucket string, payload []byte) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO state(bucket, payload) VALUES($1, $2) ON CONFLICT(bucket) DO UPDATE SET payload = EXCLUDED.payload`,
		bucket, payload); err != nil {
		return fmt.Errorf("upsert %s: %w", bucket, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Delete removes bucket.
func (d *Driver) Delete(ctx context.Context, bucket string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM state WHERE bucket = $1`, bucket); err != nil {
		return fmt.Errorf("delete %s: %w", bucket, err)
	}
	return nil
}

// Close closes the database.
func (d *Driver) Close() error { return d.db.Close() }
