// Package docstore implements the emulated real-time document database: a
// single tree addressed by slash-delimited paths with whole-value writes,
// shallow merges, removal, single-equality queries and live subscriptions.
//
// The tree is loaded from the backing tree slot when the store opens and
// written back after every mutation. Subscribers are notified synchronously
// on the mutating goroutine once the store lock has been released.
package docstore

import (
	"context"
	"errors"
	"sync"

	"boardhouse/internal/backing"
	"boardhouse/internal/keys"
	"boardhouse/internal/platform"
	"boardhouse/internal/tree"
)

// ErrNotMap is returned by Update when the partial value is not a map.
var ErrNotMap = errors.New("docstore: update value must be a map")

// Store owns the document tree.
type Store struct {
	mu    sync.Mutex
	root  tree.Value
	slots *backing.Slots
	keys  *keys.Generator
	hub   hub
	in    platform.Instruments
}

// Open loads the tree from slots. A missing or unreadable slot starts an
// empty tree. A nil slots keeps the tree in memory only.
func Open(ctx context.Context, slots *backing.Slots, opts ...platform.Option) *Store {
	in := platform.NewInstruments(opts...)
	s := &Store{
		root:  tree.FromMap(tree.NewMap()),
		slots: slots,
		keys:  keys.New(in.Clock.Now),
		in:    in,
	}
	if slots != nil {
		var loaded tree.Value
		if slots.Load(ctx, backing.SlotTree, &loaded) && loaded.Kind() == tree.KindMap {
			s.root = loaded
		}
	}
	return s
}

// Ref returns a plain ref to path.
func (s *Store) Ref(path string) Ref { return NewRef(path) }

// Set replaces the value at ref.
func (s *Store) Set(ctx context.Context, ref Ref, v tree.Value) error {
	return s.mutate(ctx, "docstore.set", ref, func(root tree.Value) tree.Value {
		return tree.Assign(root, ref.Path(), v.Clone())
	})
}

// Update merges the top-level keys of partial into the map at ref, keeping
// keys partial does not mention.
func (s *Store) Update(ctx context.Context, ref Ref, partial tree.Value) error {
	m, ok := partial.AsMap()
	if !ok {
		return ErrNotMap
	}
	m = m.Clone()
	return s.mutate(ctx, "docstore.update", ref, func(root tree.Value) tree.Value {
		return tree.Merge(root, ref.Path(), m)
	})
}

// Remove deletes the subtree at ref.
func (s *Store) Remove(ctx context.Context, ref Ref) error {
	return s.mutate(ctx, "docstore.remove", ref, func(root tree.Value) tree.Value {
		return tree.Erase(root, ref.Path())
	})
}

// Push returns a ref to a new child of ref under a fresh time-ordered key.
// Nothing is written.
func (s *Store) Push(ref Ref) Ref {
	return ref.Base().Child(s.keys.Next())
}

// PushValue writes v under a fresh child of ref and returns the child.
func (s *Store) PushValue(ctx context.Context, ref Ref, v tree.Value) (Ref, error) {
	child := s.Push(ref)
	return child, s.Set(ctx, child, v)
}

// Get reads ref, evaluating its query when it carries one.
func (s *Store) Get(ctx context.Context, ref Ref) (Snapshot, error) {
	var snap Snapshot
	err := s.in.Run(ctx, "docstore.get", func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		snap, err = s.evaluate(ref)
		return err
	})
	return snap, err
}

// Subscribe delivers the current value of ref to onValue before returning and
// again after every overlapping mutation. onError, when set, receives
// evaluation failures and panics raised by onValue.
func (s *Store) Subscribe(ref Ref, onValue func(Snapshot), onError func(error)) Unsubscribe {
	sub := s.hub.add(ref, onValue, onError)
	s.in.Logger.Debug("subscription added", "path", ref.String(), "query", ref.IsQuery())
	s.deliver(sub)
	var once sync.Once
	return func() {
		once.Do(func() {
			s.hub.remove(sub.id)
			s.in.Logger.Debug("subscription removed", "path", ref.String())
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (s *Store) Subscribers() int { return s.hub.len() }

func (s *Store) evaluate(ref Ref) (Snapshot, error) {
	s.mu.Lock()
	v, ok := ref.evaluate(s.root)
	snap := newSnapshot(ref, v, ok)
	s.mu.Unlock()
	return snap, nil
}

// mutate applies fn to the tree under the lock, persists the result and then
// notifies observers of ref's base path.
func (s *Store) mutate(ctx context.Context, op string, ref Ref, fn func(tree.Value) tree.Value) error {
	path := ref.Path()
	err := s.in.Run(ctx, op, func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.root = fn(s.root)
		if s.slots != nil {
			s.slots.Save(ctx, backing.SlotTree, s.root)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.in.Logger.Debug("document mutated", "op", op, "path", ref.String())
	s.notify(path)
	return nil
}
