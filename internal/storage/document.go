package storage

import (
	"fmt"
	"slices"
)

// Document is a nested key/value tree read from or written to a single file.
// Sections are Documents; leaves are scalars or lists of maps.
type Document map[string]any

func NewDocument() Document {
	return Document{}
}

// Set stores v under key. A nil value removes the key.
func (d Document) Set(key string, v any) {
	if v == nil {
		delete(d, key)
		return
	}
	d[key] = v
}

// IsSet reports whether key holds a value.
func (d Document) IsSet(key string) bool {
	_, ok := d[key]
	return ok
}

// Section returns the child document at key, replacing any non-section value.
func (d Document) Section(key string) Document {
	if child, ok := d.Child(key); ok {
		d[key] = child
		return child
	}
	child := Document{}
	d[key] = child
	return child
}

// Child returns the child document at key without creating it.
func (d Document) Child(key string) (Document, bool) {
	return asDocument(d[key])
}

// Keys returns the document's keys in sorted order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (d Document) IsString(key string) bool {
	_, ok := d[key].(string)
	return ok
}

func (d Document) IsBool(key string) bool {
	_, ok := d[key].(bool)
	return ok
}

func (d Document) String(key string, def string) string {
	if s, ok := d[key].(string); ok {
		return s
	}
	return def
}

func (d Document) Bool(key string, def bool) bool {
	if b, ok := d[key].(bool); ok {
		return b
	}
	return def
}

// Int64 returns the integer at key. Floats are truncated.
func (d Document) Int64(key string, def int64) int64 {
	switch v := d[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	}
	return def
}

// Float64 returns the number at key. Integers are widened.
func (d Document) Float64(key string, def float64) float64 {
	switch v := d[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	}
	return def
}

// MapList returns the map entries of the list at key. Entries that are not
// maps are dropped.
func (d Document) MapList(key string) []map[string]any {
	list, ok := d[key].([]any)
	if !ok {
		if typed, ok := d[key].([]map[string]any); ok {
			return typed
		}
		return nil
	}

	var out []map[string]any
	for _, v := range list {
		if m, ok := asDocument(v); ok {
			out = append(out, m)
		}
	}
	return out
}

func asDocument(v any) (Document, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case map[string]any:
		return Document(m), true
	case map[any]any:
		return Document(normalize(m).(map[string]any)), true
	}
	return nil, false
}

// normalize converts decoded maps with non-string keys into string keyed maps
// so callers only ever see map[string]any.
func normalize(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case Document:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return map[string]any(t)
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	}
	return v
}
