// Package keys mints the time-ordered identifiers used for appended children
// and account owner keys.
package keys

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces ULID strings. Keys minted within the same millisecond by
// one Generator sort in creation order.
type Generator struct {
	mu      sync.Mutex
	now     func() time.Time
	entropy io.Reader
}

// New returns a generator reading time from now (time.Now when nil).
func New(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now, entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Next returns a fresh key.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(g.now()), g.entropy)
	if err != nil {
		// Monotonic entropy overflowed inside one millisecond.
		return ulid.Make().String()
	}
	return id.String()
}
