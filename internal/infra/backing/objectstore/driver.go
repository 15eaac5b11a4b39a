// Package objectstore keeps backing slots as JSON objects in a blob store,
// one object per slot under a common prefix.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"boardhouse/internal/blob"
)

// DefaultPrefix is the key prefix for slot objects.
const DefaultPrefix = "slots/"

// Driver maps slot names to objects `<prefix><bucket>.json`.
type Driver struct {
	store  blob.Store
	prefix string
}

// New wraps store; an empty prefix uses DefaultPrefix.
func New(store blob.Store, prefix string) *Driver {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Driver{store: store, prefix: prefix}
}

// Name identifies the driver and the object store beneath it.
func (d *Driver) Name() string { return "objectstore/" + string(d.store.Driver()) }

func (d *Driver) key(bucket string) string { return d.prefix + bucket + ".json" }

// Read fetches the slot object.
func (d *Driver) Read(ctx context.Context, bucket string) ([]byte, bool, error) {
	_, rc, err := d.store.Get(ctx, d.key(bucket))
	if errors.Is(err, blob.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", bucket, err)
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", bucket, err)
	}
	return b, true, nil
}

// Write overwrites the slot object.
func (d *Driver) Write(ctx context.Context, bucket string, payload []byte) error {
	_, err := d.store.Put(ctx, d.key(bucket), bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Overwrite:   true,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", bucket, err)
	}
	return nil
}

// Delete removes the slot object.
func (d *Driver) Delete(ctx context.Context, bucket string) error {
	if _, err := d.store.Delete(ctx, d.key(bucket)); err != nil {
		return fmt.Errorf("delete %s: %w", bucket, err)
	}
	return nil
}

// Close is a no-op; the object store owns no handles.
func (d *Driver) Close() error { return nil }
