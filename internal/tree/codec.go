package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/tidwall/gjson"
)

// MarshalJSON encodes v, writing map entries in insertion order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			buf.WriteString("null")
			return nil
		}
		b, err := json.Marshal(v.n)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindString:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		for i, k := range v.m.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := v.m.vals[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("tree: cannot encode %s", v.kind)
	}
	return nil
}

// UnmarshalJSON decodes data into v, keeping object keys in document order.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Parse decodes a JSON document into a Value.
func Parse(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return Value{}, fmt.Errorf("tree: invalid json")
	}
	return fromResult(gjson.ParseBytes(data)), nil
}

// MustParse is Parse for literals in tests and seed data; it panics on error.
func MustParse(s string) Value {
	v, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

func fromResult(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return Null()
	case gjson.False:
		return Bool(false)
	case gjson.True:
		return Bool(true)
	case gjson.Number:
		return Number(r.Num)
	case gjson.String:
		return String(r.Str)
	case gjson.JSON:
		if r.IsArray() {
			items := make([]Value, 0)
			r.ForEach(func(_, item gjson.Result) bool {
				items = append(items, fromResult(item))
				return true
			})
			return Value{kind: KindList, list: items}
		}
		m := NewMap()
		r.ForEach(func(key, item gjson.Result) bool {
			m.Set(key.Str, fromResult(item))
			return true
		})
		return FromMap(m)
	}
	return Null()
}

// FromAny converts plain Go values (as produced by encoding/json or written
// by hand) into a Value. Map keys are inserted in lexical order.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t.Clone(), nil
	case *Map:
		return FromMap(t.Clone()), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("tree: number %q: %w", t, err)
		}
		return Number(f), nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return Value{kind: KindList, list: items}, nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			v, err := FromAny(t[k])
			if err != nil {
				return Value{}, err
			}
			m.Set(k, v)
		}
		return FromMap(m), nil
	default:
		return Value{}, fmt.Errorf("tree: unsupported type %T", x)
	}
}

// ToAny converts v into plain Go values (nil, bool, float64, string, []any,
// map[string]any).
func (v Value) ToAny() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.ToAny()
		}
		return out
	case KindMap:
		out := make(map[string]any, v.m.Len())
		v.m.Range(func(k string, item Value) bool {
			out[k] = item.ToAny()
			return true
		})
		return out
	default:
		return nil
	}
}

// Object builds a map value from alternating key/value pairs. Values are
// converted with FromAny and the function panics on unsupported types, so it
// is meant for literals.
func Object(pairs ...any) Value {
	if len(pairs)%2 != 0 {
		panic("tree: Object requires key/value pairs")
	}
	m := NewMap()
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("tree: Object key %v is not a string", pairs[i]))
		}
		v, err := FromAny(pairs[i+1])
		if err != nil {
			panic(err)
		}
		m.Set(key, v)
	}
	return FromMap(m)
}
