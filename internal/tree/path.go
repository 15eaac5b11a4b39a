package tree

import "strings"

// Normalize strips leading and trailing slashes.
func Normalize(path string) string {
	return strings.Trim(path, "/")
}

// Segments splits a path on "/" and drops empty segments.
func Segments(path string) []string {
	parts := strings.Split(Normalize(path), "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Join returns the canonical path for segs.
func Join(segs ...string) string {
	return strings.Join(Segments(strings.Join(segs, "/")), "/")
}

// LastSegment returns the final segment of path.
func LastSegment(path string) (string, bool) {
	segs := Segments(path)
	if len(segs) == 0 {
		return "", false
	}
	return segs[len(segs)-1], true
}

// IsPrefix reports whether every segment of prefix leads path.
func IsPrefix(prefix, path string) bool {
	ps, ts := Segments(prefix), Segments(path)
	if len(ps) > len(ts) {
		return false
	}
	for i := range ps {
		if ps[i] != ts[i] {
			return false
		}
	}
	return true
}

// Resolve returns the node at path. A missing or non-map intermediate node
// yields absent; the empty path yields root.
func Resolve(root Value, path string) (Value, bool) {
	cur := root
	for _, seg := range Segments(path) {
		m, ok := cur.AsMap()
		if !ok {
			return Value{}, false
		}
		next, ok := m.Get(seg)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Assign stores v at path and returns the resulting root. Intermediate nodes
// that are missing or not maps are replaced by empty maps. Assigning the empty
// path replaces the whole root, with an empty map standing in for falsy v.
func Assign(root Value, path string, v Value) Value {
	segs := Segments(path)
	if len(segs) == 0 {
		if v.Falsy() {
			return FromMap(NewMap())
		}
		return v
	}
	if root.kind != KindMap {
		root = FromMap(NewMap())
	}
	cur := root.m
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur.Get(seg)
		if !ok || next.kind != KindMap {
			next = FromMap(NewMap())
			cur.Set(seg, next)
		}
		cur = next.m
	}
	cur.Set(segs[len(segs)-1], v)
	return root
}

// Merge shallow-merges partial over the map at path (or an empty map when the
// node is absent or not a map) and writes the result back.
func Merge(root Value, path string, partial *Map) Value {
	merged := NewMap()
	if cur, ok := Resolve(root, path); ok {
		if m, ok := cur.AsMap(); ok {
			merged = m
		}
	}
	partial.Range(func(k string, v Value) bool {
		merged.Set(k, v)
		return true
	})
	return Assign(root, path, FromMap(merged))
}

// Erase deletes the node at path. It is a no-op when any intermediate node is
// absent. Erasing the empty path yields an empty map.
func Erase(root Value, path string) Value {
	segs := Segments(path)
	if len(segs) == 0 {
		return FromMap(NewMap())
	}
	parent, ok := Resolve(root, strings.Join(segs[:len(segs)-1], "/"))
	if !ok {
		return root
	}
	if m, ok := parent.AsMap(); ok {
		m.Delete(segs[len(segs)-1])
	}
	return root
}
