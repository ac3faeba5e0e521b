// Package payload provides a tagged value type for schema-less case data
// (submission field maps, rule inputs) with a dotted-path accessor that
// degrades to a documented default instead of erroring on missing segments.
package payload

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind identifies the dynamic type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

// Value is an immutable tagged union over the JSON value types.
// The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []Value
	m    map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number wraps a float64.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool wraps a bool.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List wraps a slice of values.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Map wraps a map of values.
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

// FromAny converts a decoded-JSON interface value (string, float64, bool,
// nil, []any, map[string]any) into a Value. Unrecognized types become null.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Null()
		}
		return Number(f)
	case []any:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			items = append(items, FromAny(item))
		}
		return Value{kind: KindList, list: items}
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, item := range t {
			m[k] = FromAny(item)
		}
		return Map(m)
	default:
		return Null()
	}
}

// FromJSON parses raw JSON into a Value. Invalid JSON yields null.
func FromJSON(data []byte) Value {
	if len(data) == 0 {
		return Null()
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return Null()
	}
	return FromAny(v)
}

// Kind returns the dynamic type of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string content, or def for non-string values.
func (v Value) Str(def string) string {
	if v.kind != KindString {
		return def
	}
	return v.str
}

// Num returns the numeric content, or def for non-number values.
func (v Value) Num(def float64) float64 {
	if v.kind != KindNumber {
		return def
	}
	return v.num
}

// Boolean returns the bool content, or def for non-bool values.
func (v Value) Boolean(def bool) bool {
	if v.kind != KindBool {
		return def
	}
	return v.b
}

// Len returns the number of elements for lists and maps, 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.m)
	default:
		return 0
	}
}

// Items returns the list elements, or nil for non-lists.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Keys returns the map keys in unspecified order, or nil for non-maps.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	return keys
}

// Get returns the map entry for key, or null if absent or not a map.
func (v Value) Get(key string) Value {
	if v.kind != KindMap {
		return Null()
	}
	return v.m[key]
}

// Index returns the i-th list element, or null if out of range or not a list.
func (v Value) Index(i int) Value {
	if v.kind != KindList || i < 0 || i >= len(v.list) {
		return Null()
	}
	return v.list[i]
}

// At resolves a dotted path (e.g. "submission.fields.dea_registration" or
// "attachments.0.class") against the value. Numeric segments index into
// lists. Any missing segment yields null; At never errors.
func (v Value) At(path string) Value {
	if path == "" {
		return v
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		switch cur.kind {
		case KindMap:
			cur = cur.m[seg]
		case KindList:
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return Null()
			}
			cur = cur.Index(idx)
		default:
			return Null()
		}
	}
	return cur
}

// ToAny converts the value back to plain interface form for JSON encoding.
func (v Value) ToAny() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, 0, len(v.list))
		for _, item := range v.list {
			out = append(out, item.ToAny())
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.ToAny()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON encodes the value as plain JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToAny())
}

// UnmarshalJSON decodes plain JSON into the value.
func (v *Value) UnmarshalJSON(data []byte) error {
	*v = FromJSON(data)
	return nil
}
