// Package blob is the only entry point to the object-store drivers. Callers
// depend on blob.Store and construct it through Open or the New* helpers.
package blob

import (
	"context"
	"fmt"

	"boardhouse/internal/blob/core"
	"boardhouse/internal/infra/blob/fs"
	"boardhouse/internal/infra/blob/memory"
	infraS3 "boardhouse/internal/infra/blob/s3"
)

type (
	Driver           = core.Driver
	PutOptions       = core.PutOptions
	SignedURLOptions = core.SignedURLOptions
	Info             = core.Info
	Store            = core.Store
	S3Config         = infraS3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrNotFound    = core.ErrNotFound
	ErrExists      = core.ErrExists
)

// Config selects and configures a driver.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open builds the configured store. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

// NewFilesystem returns a directory-backed store.
func NewFilesystem(root string) (Store, error) { return fs.New(root) }

// NewMemory returns an in-process store.
func NewMemory() Store { return memory.New() }

// NewS3 returns a bucket-backed store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) { return infraS3.New(ctx, cfg) }

// NewMockS3ForTests returns an S3 store over a fake in-memory transport.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
