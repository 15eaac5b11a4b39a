// Package tree implements the document tree value model and the path
// accessors used to read and mutate it.
//
// A Value is a recursive tagged union: null, bool, number, string, list or
// ordered map. Maps keep insertion order so encoded documents are stable
// across load/save cycles.
package tree

import (
	"fmt"
	"math"
)

// Kind identifies the concrete variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a node of the document tree. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	list []Value
	m    *Map
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a float64.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Int wraps an integer as a number.
func Int(n int64) Value { return Value{kind: KindNumber, n: float64(n)} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// List wraps the supplied elements.
func List(items ...Value) Value {
	return Value{kind: KindList, list: append([]Value(nil), items...)}
}

// FromMap wraps a map. A nil map becomes an empty map.
func FromMap(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, m: m}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the numeric payload.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsString returns the string payload.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsList returns the list elements. The returned slice is shared with v.
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// AsMap returns the map payload. The returned map is shared with v.
func (v Value) AsMap() (*Map, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m, true
}

// Falsy mirrors the loose truthiness used by callers that replace the whole
// tree: null, false, 0, NaN and "" are falsy; lists and maps never are.
func (v Value) Falsy() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return !v.b
	case KindNumber:
		return v.n == 0 || math.IsNaN(v.n)
	case KindString:
		return v.s == ""
	default:
		return false
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		out := make([]Value, len(v.list))
		for i, item := range v.list {
			out[i] = item.Clone()
		}
		return Value{kind: KindList, list: out}
	case KindMap:
		return Value{kind: KindMap, m: v.m.Clone()}
	default:
		return v
	}
}

// Equal reports deep structural equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(o.m)
	}
	return false
}

// StrictEqual is the equality used by query filters: scalars compare by kind
// and payload, lists and maps never match.
func (v Value) StrictEqual(o Value) bool {
	if v.kind == KindList || v.kind == KindMap {
		return false
	}
	return v.Equal(o)
}

// Map is an insertion-ordered string-keyed mapping of Values.
type Map struct {
	keys []string
	vals map[string]Value
}

// NewMap returns an empty map.
func NewMap() *Map { return &Map{vals: make(map[string]Value)} }

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.vals[key]
	return v, ok
}

// Set stores v under key, appending key when new.
func (m *Map) Set(key string, v Value) *Map {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
	return m
}

// Delete removes key and reports whether it was present.
func (m *Map) Delete(key string) bool {
	if _, ok := m.vals[key]; !ok {
		return false
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Range calls fn for each entry in insertion order until fn returns false.
func (m *Map) Range(fn func(key string, v Value) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.vals[k]) {
			return
		}
	}
}

// Clone returns a deep copy of m.
func (m *Map) Clone() *Map {
	out := NewMap()
	if m == nil {
		return out
	}
	out.keys = make([]string, len(m.keys))
	copy(out.keys, m.keys)
	for k, v := range m.vals {
		out.vals[k] = v.Clone()
	}
	return out
}

// Equal reports key-set and per-key deep equality. Order is not compared.
func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	if m == nil || o == nil {
		return true
	}
	for k, v := range m.vals {
		ov, ok := o.vals[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
