package docstore

import "boardhouse/internal/tree"

// Snapshot is an immutable read result. It owns a private copy of the value
// so later writes to the store never show through.
type Snapshot struct {
	ref    Ref
	val    tree.Value
	exists bool
}

func newSnapshot(ref Ref, v tree.Value, found bool) Snapshot {
	if !found || v.IsNull() {
		return Snapshot{ref: ref}
	}
	return Snapshot{ref: ref, val: v.Clone(), exists: true}
}

// Exists reports whether the read found a non-null value.
func (s Snapshot) Exists() bool { return s.exists }

// Val returns a copy of the value; null when absent.
func (s Snapshot) Val() tree.Value { return s.val.Clone() }

// Key returns the key of the ref that produced the snapshot.
func (s Snapshot) Key() string { return s.ref.Key() }

// Ref returns the ref that produced the snapshot.
func (s Snapshot) Ref() Ref { return s.ref }

// Child returns the snapshot of path below this one.
func (s Snapshot) Child(path string) Snapshot {
	v, ok := tree.Resolve(s.val, path)
	return newSnapshot(s.ref.Base().Child(path), v, ok && s.exists)
}

// NumChildren returns the number of direct children of a map value.
func (s Snapshot) NumChildren() int {
	if m, ok := s.val.AsMap(); ok {
		return m.Len()
	}
	return 0
}

// ForEach visits direct children in key order until fn returns false.
func (s Snapshot) ForEach(fn func(child Snapshot) bool) {
	m, ok := s.val.AsMap()
	if !ok {
		return
	}
	base := s.ref.Base()
	m.Range(func(key string, v tree.Value) bool {
		return fn(newSnapshot(base.Child(key), v, true))
	})
}
