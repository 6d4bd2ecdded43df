package wire

import (
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Document is an ordered field mapping decoded from a frame.
// Nested documents decode as bson.D and arrays as bson.A.
type Document bson.D

// Lookup returns the value stored under key.
func (d Document) Lookup(key string) (any, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Keys returns field names in wire order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for _, e := range d {
		keys = append(keys, e.Key)
	}
	return keys
}

// Map converts the document, recursively, into plain Go maps and slices.
func (d Document) Map() map[string]any {
	out := make(map[string]any, len(d))
	for _, e := range d {
		out[e.Key] = plain(e.Value)
	}
	return out
}

func plain(v any) any {
	switch t := v.(type) {
	case bson.D:
		return Document(t).Map()
	case bson.A:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plain(item)
		}
		return out
	default:
		return v
	}
}

// String returns the string stored under key.
func (d Document) String(key string) (string, error) {
	v, ok := d.Lookup(key)
	if !ok {
		return "", fmt.Errorf("field %q missing", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q is %T, not string", key, v)
	}
	return s, nil
}

// Bool returns the boolean stored under key.
func (d Document) Bool(key string) (bool, error) {
	v, ok := d.Lookup(key)
	if !ok {
		return false, fmt.Errorf("field %q missing", key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("field %q is %T, not bool", key, v)
	}
	return b, nil
}

// Int32 returns the integer stored under key. LabVIEW may send error codes as
// int32, int64 or double depending on the wiring of the listener VI.
func (d Document) Int32(key string) (int32, error) {
	v, ok := d.Lookup(key)
	if !ok {
		return 0, fmt.Errorf("field %q missing", key)
	}
	switch n := v.(type) {
	case int32:
		return n, nil
	case int64:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return 0, fmt.Errorf("field %q value %d overflows int32", key, n)
		}
		return int32(n), nil
	case float64:
		if n != math.Trunc(n) || n < math.MinInt32 || n > math.MaxInt32 {
			return 0, fmt.Errorf("field %q value %v is not an int32", key, n)
		}
		return int32(n), nil
	default:
		return 0, fmt.Errorf("field %q is %T, not an integer", key, v)
	}
}
