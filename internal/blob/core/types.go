// Package core defines the object-store abstraction shared by the blob
// drivers. Higher layers depend on internal/blob, never on a driver package.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete object store implementation.
type Driver string

const (
	// DriverFilesystem stores objects as files under a root directory.
	DriverFilesystem Driver = "fs"
	// DriverS3 targets an S3 / MinIO compatible bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps objects in process memory.
	DriverMemory Driver = "memory"
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
	// Overwrite replaces an existing object instead of failing with ErrExists.
	Overwrite bool
}

// SignedURLOptions holds options for generating a pre-signed URL.
type SignedURLOptions struct {
	Method string        // only GET is supported
	Expiry time.Duration // default 15m
}

// Info describes a stored object.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store is a minimal S3-shaped object store.
type Store interface {
	// Put stores r at key. It fails with ErrExists when key is present and
	// opts.Overwrite is false.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get returns the object and its metadata; ErrNotFound when missing.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Head returns metadata only; ErrNotFound when missing.
	Head(ctx context.Context, key string) (Info, error)
	// Delete removes key, returning false when it did not exist.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns objects under prefix sorted by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	// PresignURL returns a time-limited GET URL or ErrUnsupported.
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

var (
	// ErrUnsupported is returned when a driver lacks an optional capability.
	ErrUnsupported = errors.New("blob: unsupported operation")
	// ErrNotFound is returned for missing keys.
	ErrNotFound = errors.New("blob: not found")
	// ErrExists is returned by create-only puts on an existing key.
	ErrExists = errors.New("blob: already exists")
)

// CloneMetadata copies a metadata map.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
