package docstore

import (
	"fmt"
	"sync"
	"sync/atomic"

	"boardhouse/internal/tree"
)

// Unsubscribe removes a subscription. Calling it more than once is harmless.
type Unsubscribe func()

type subscription struct {
	id      uint64
	target  Ref
	onValue func(Snapshot)
	onError func(error)
	active  atomic.Bool
}

// hub is the registry of live subscriptions in registration order.
type hub struct {
	mu   sync.Mutex
	next uint64
	subs []*subscription
}

func (h *hub) add(target Ref, onValue func(Snapshot), onError func(error)) *subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	sub := &subscription{id: h.next, target: target, onValue: onValue, onError: onError}
	sub.active.Store(true)
	h.subs = append(h.subs, sub)
	return sub
}

func (h *hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, sub := range h.subs {
		if sub.id == id {
			sub.active.Store(false)
			h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
			return
		}
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// observers returns the subscriptions whose target overlaps path.
func (h *hub) observers(path string) []*subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*subscription
	for _, sub := range h.subs {
		if overlaps(sub.target.Path(), path) {
			out = append(out, sub)
		}
	}
	return out
}

// overlaps reports whether a change at one path can affect a reader of the
// other: either path is empty or one is a segment-wise prefix of the other.
func overlaps(target, changed string) bool {
	return target == "" || changed == "" ||
		tree.IsPrefix(target, changed) || tree.IsPrefix(changed, target)
}

// deliver evaluates sub against the store and invokes its callbacks. Panics
// from evaluation or from the callback are reported to onError.
func (s *Store) deliver(sub *subscription) {
	if !sub.active.Load() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.fail(sub, fmt.Errorf("docstore: subscriber on %s panicked: %v", sub.target, r))
		}
	}()
	snap, err := s.evaluate(sub.target)
	if err != nil {
		s.fail(sub, err)
		return
	}
	sub.onValue(snap)
}

func (s *Store) fail(sub *subscription, err error) {
	if sub.onError == nil {
		s.in.Logger.Warn("subscription error dropped", "path", sub.target.String(), "error", err)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.in.Logger.Warn("subscription error handler panicked", "path", sub.target.String(), "panic", r)
		}
	}()
	sub.onError(err)
}

// notify re-delivers every subscription overlapping path, synchronously and
// in registration order. It must be called without s.mu held.
func (s *Store) notify(path string) {
	for _, sub := range s.hub.observers(path) {
		s.deliver(sub)
	}
}
