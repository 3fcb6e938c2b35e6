// Package codec implements the canonical, content-addressed JSON encoding
// that every persisted hash in docindex derives from.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Value is a sealed interface representing the constrained set of JSON
// value types that may participate in canonical encoding. There is no
// float variant: every numeric quantity the engine hashes is an integer,
// and admitting floats would make canonical encoding platform-dependent.
type Value interface {
	value()
}

// Null represents JSON null. It exists only for round-tripping stored
// data; Marshal rejects it; canonical hashes never contain it.
type Null struct{}

func (Null) value() {}

// String represents a JSON string value.
type String string

func (String) value() {}

// Int represents a JSON integer value, always int64.
type Int int64

func (Int) value() {}

// Bool represents a JSON boolean value.
type Bool bool

func (Bool) value() {}

// Array represents an ordered sequence of Values.
type Array []Value

func (Array) value() {}

// Object represents a string-keyed map of Values. Iteration order is
// undefined; use SortedKeys for deterministic traversal.
type Object map[string]Value

func (Object) value() {}

// S is shorthand for constructing a String value.
func S(s string) String { return String(s) }

// I is shorthand for constructing an Int value.
func I(n int64) Int { return Int(n) }

// B is shorthand for constructing a Bool value.
func B(b bool) Bool { return Bool(b) }

// SortedKeys returns the object's keys in byte (UTF-8) order, the order
// used by canonical encoding.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	// insertion sort is fine; objects in this domain are small (entry
	// lists, manifests), and we avoid importing sort twice across files
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// FromAny converts a plain Go value (as produced by encoding/json
// unmarshaling into `any`, or hand-built maps/slices) into a Value tree.
// Floats and nil are rejected.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("codec: null is forbidden")
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case bool:
		return Bool(val), nil
	case json.Number:
		if strings.ContainsAny(string(val), ".eE") {
			return nil, fmt.Errorf("codec: floats are forbidden: %s", val)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("codec: number out of int64 range: %s", val)
		}
		return Int(n), nil
	case float64, float32:
		return nil, fmt.Errorf("codec: floats are forbidden: %v", val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			v, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("codec: index %d: %w", i, err)
			}
			arr[i] = v
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			v, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("codec: key %q: %w", k, err)
			}
			obj[k] = v
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("codec: unsupported type %T", v)
	}
}

// ParseStrict decodes JSON bytes into a Value tree, rejecting floats and
// null anywhere in the document. Use this for external input (tool
// arguments, stored manifests) headed for canonical hashing.
func ParseStrict(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("codec: parse: %w", err)
	}
	return FromAny(raw)
}
