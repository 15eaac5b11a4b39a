// Package backing provides the durable slots shared by the emulated
// services: the document tree, the credential index, blob records and the
// session pointer. Each slot holds one JSON document.
package backing

import (
	"context"
	"encoding/json"
	"fmt"

	"boardhouse/internal/blob"
	"boardhouse/internal/infra/backing/memory"
	"boardhouse/internal/infra/backing/objectstore"
	"boardhouse/internal/infra/backing/postgres"
	"boardhouse/internal/infra/backing/sqlite"
	"boardhouse/internal/platform"
)

// Slot names one persisted document.
type Slot string

const (
	SlotTree        Slot = "tree"
	SlotCredentials Slot = "credentials"
	SlotBlobs       Slot = "blobs"
	SlotSession     Slot = "session"
)

// AllSlots lists every slot in a stable order.
var AllSlots = []Slot{SlotTree, SlotCredentials, SlotBlobs, SlotSession}

// Driver is a durable key-value medium for slot payloads.
type Driver interface {
	Name() string
	Read(ctx context.Context, bucket string) ([]byte, bool, error)
	Write(ctx context.Context, bucket string, payload []byte) error
	Delete(ctx context.Context, bucket string) error
	Close() error
}

// DriverKind selects a Driver implementation.
type DriverKind string

const (
	DriverMemory   DriverKind = "memory"   // process memory, lost on exit
	DriverSQLite   DriverKind = "sqlite"   // embedded sqlite file
	DriverPostgres DriverKind = "postgres" // PostgreSQL server
	DriverBlob     DriverKind = "blob"     // objects in an internal/blob store
)

// Config selects and configures the driver.
type Config struct {
	Driver      DriverKind
	SQLitePath  string
	PostgresDSN string
	Blob        blob.Config
	BlobPrefix  string
}

// Open builds the configured driver. An empty kind means sqlite.
func Open(ctx context.Context, cfg Config) (Driver, error) {
	switch cfg.Driver {
	case DriverMemory:
		return memory.New(), nil
	case "", DriverSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	case DriverPostgres:
		return postgres.Open(ctx, cfg.PostgresDSN)
	case DriverBlob:
		store, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			return nil, fmt.Errorf("open slot object store: %w", err)
		}
		return objectstore.New(store, cfg.BlobPrefix), nil
	default:
		return nil, fmt.Errorf("unknown backing driver %q", cfg.Driver)
	}
}

// NewMemory returns an in-process driver.
func NewMemory() Driver { return memory.New() }

// NewObjectStore returns a driver keeping slots in store.
func NewObjectStore(store blob.Store, prefix string) Driver { return objectstore.New(store, prefix) }

// Slots layers best-effort JSON semantics over a Driver: read failures are
// reported as absent and write failures become no-ops. Every swallowed
// failure is logged at warn level.
type Slots struct {
	driver Driver
	log    platform.Logger
}

// NewSlots wraps driver. A nil logger discards warnings.
func NewSlots(driver Driver, log platform.Logger) *Slots {
	if log == nil {
		log = platform.NoopLogger{}
	}
	return &Slots{driver: driver, log: log}
}

// Driver returns the wrapped driver.
func (s *Slots) Driver() Driver { return s.driver }

// Load decodes slot into dst and reports whether a usable document was found.
func (s *Slots) Load(ctx context.Context, slot Slot, dst any) bool {
	payload, ok, err := s.driver.Read(ctx, string(slot))
	if err != nil {
		s.log.Warn("backing read failed", "slot", slot, "driver", s.driver.Name(), "error", err)
		return false
	}
	if !ok || len(payload) == 0 {
		return false
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		s.log.Warn("backing slot undecodable", "slot", slot, "driver", s.driver.Name(), "error", err)
		return false
	}
	s.log.Debug("backing slot loaded", "slot", slot, "bytes", len(payload))
	return true
}

// Save encodes v into slot.
func (s *Slots) Save(ctx context.Context, slot Slot, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.log.Warn("backing encode failed", "slot", slot, "error", err)
		return
	}
	if err := s.driver.Write(ctx, string(slot), payload); err != nil {
		s.log.Warn("backing write failed", "slot", slot, "driver", s.driver.Name(), "error", err)
	}
}

// Clear deletes slot.
func (s *Slots) Clear(ctx context.Context, slot Slot) {
	if err := s.driver.Delete(ctx, string(slot)); err != nil {
		s.log.Warn("backing delete failed", "slot", slot, "driver", s.driver.Name(), "error", err)
	}
}

// Close closes the driver.
func (s *Slots) Close() error { return s.driver.Close() }
