package cmn

import (
	jsoniter "github.com/json-iterator/go"
)

// JSON is configured once and reused everywhere an adapter needs to
// encode/decode, matching the teacher's own `cmn/config.go` preference for
// json-iterator over the standard library's encoding/json.
var JSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Value is a tagged variant over the JSON data model — string, number,
// bool, null, array, or map — used internally wherever an adapter needs to
// walk a heterogeneous payload (DynamoDB items, ASL state definitions,
// event `detail` objects) without committing to a concrete Go struct.
// Adapters decode into and encode out of Value at their boundary; nothing
// in the storage engine or ASL interpreter depends on a specific adapter's
// request/response struct.
type Value struct {
	raw interface{}
}

// NewValue wraps an already-decoded interface{} (as produced by
// jsoniter.Unmarshal into `interface{}`) as a Value.
func NewValue(raw interface{}) Value { return Value{raw: raw} }

// ParseValue decodes a JSON byte string into a Value.
func ParseValue(data []byte) (Value, error) {
	var raw interface{}
	if len(data) == 0 {
		return Value{}, nil
	}
	if err := JSON.Unmarshal(data, &raw); err != nil {
		return Value{}, ErrInvalidArgument("invalid JSON: " + err.Error())
	}
	return Value{raw: raw}, nil
}

func (v Value) IsNull() bool { return v.raw == nil }

func (v Value) Raw() interface{} { return v.raw }

func (v Value) String() (string, bool) {
	s, ok := v.raw.(string)
	return s, ok
}

func (v Value) Number() (float64, bool) {
	switch n := v.raw.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func (v Value) Bool() (bool, bool) {
	b, ok := v.raw.(bool)
	return b, ok
}

func (v Value) Array() ([]Value, bool) {
	arr, ok := v.raw.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]Value, len(arr))
	for i, e := range arr {
		out[i] = Value{raw: e}
	}
	return out, true
}

func (v Value) Map() (map[string]Value, bool) {
	m, ok := v.raw.(map[string]interface{})
	if !ok {
		return nil, false
	}
	out := make(map[string]Value, len(m))
	for k, e := range m {
		out[k] = Value{raw: e}
	}
	return out, true
}

// Get looks up a key in a map Value; returns the zero Value and false if
// this Value isn't a map or the key is absent.
func (v Value) Get(key string) (Value, bool) {
	m, ok := v.Map()
	if !ok {
		return Value{}, false
	}
	child, ok := m[key]
	return child, ok
}

// MarshalJSON lets Value round-trip through jsoniter/encoding-json alike.
func (v Value) MarshalJSON() ([]byte, error) { return JSON.Marshal(v.raw) }

func (v *Value) UnmarshalJSON(data []byte) error {
	return JSON.Unmarshal(data, &v.raw)
}
