// Package memory keeps backing slots in process memory.
package memory

import (
	"context"
	"sync"
)

// Driver stores slot payloads in a map.
type Driver struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// New returns an empty driver.
func New() *Driver { return &Driver{slots: make(map[string][]byte)} }

// Name identifies the driver.
func (d *Driver) Name() string { return "memory" }

// Read returns a copy of the payload stored under bucket.
func (d *Driver) Read(_ context.Context, bucket string) ([]byte, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.slots[bucket]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

// Write replaces the payload under bucket.
func (d *Driver) Write(_ context.Context, bucket string, payload []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slots[bucket] = append([]byte(nil), payload...)
	return nil
}

// Delete removes bucket.
func (d *Driver) Delete(_ context.Context, bucket string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.slots, bucket)
	return nil
}

// Close is a no-op.
func (d *Driver) Close() error { return nil }
