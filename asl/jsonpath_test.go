package asl

import (
	"reflect"
	"testing"
)

func TestGet(t *testing.T) {
	data := map[string]interface{}{
		"order": map[string]interface{}{
			"id":     "o-1",
			"amount": 42.5,
		},
		"status": "PLACED",
	}

	cases := []struct {
		name    string
		path    string
		wantVal interface{}
		wantOK  bool
	}{
		{"root", "$", data, true},
		{"empty path is root", "", data, true},
		{"top-level field", "$.status", "PLACED", true},
		{"nested field", "$.order.id", "o-1", true},
		{"nested numeric field", "$.order.amount", 42.5, true},
		{"missing top-level field", "$.nope", nil, false},
		{"missing nested field", "$.order.nope", nil, false},
		{"path into a non-map", "$.status.nope", nil, false},
		{"unsupported path form", "status", nil, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := get(c.path, data)
			if ok != c.wantOK {
				t.Fatalf("get(%q): ok = %v, want %v", c.path, ok, c.wantOK)
			}
			if ok && !reflect.DeepEqual(got, c.wantVal) {
				t.Fatalf("get(%q) = %v, want %v", c.path, got, c.wantVal)
			}
		})
	}
}

func TestSet(t *testing.T) {
	t.Run("root path replaces the whole value", func(t *testing.T) {
		got := set("$", map[string]interface{}{"a": 1}, "replacement")
		if got != "replacement" {
			t.Fatalf("set($) = %v, want replacement", got)
		}
	})

	t.Run("top-level field is set on a copy", func(t *testing.T) {
		orig := map[string]interface{}{"a": 1}
		got := set("$.b", orig, 2)

		gotMap, ok := got.(map[string]interface{})
		if !ok {
			t.Fatalf("set($.b) did not return a map: %v", got)
		}
		if gotMap["a"] != 1 || gotMap["b"] != 2 {
			t.Fatalf("set($.b) = %v, want a=1 b=2", gotMap)
		}
		if _, ok := orig["b"]; ok {
			t.Fatalf("set mutated the original map: %v", orig)
		}
	})

	t.Run("nested path creates intermediate maps", func(t *testing.T) {
		got := set("$.order.id", map[string]interface{}{}, "o-2")
		gotMap := got.(map[string]interface{})
		order, ok := gotMap["order"].(map[string]interface{})
		if !ok {
			t.Fatalf("set($.order.id) did not create nested map: %v", gotMap)
		}
		if order["id"] != "o-2" {
			t.Fatalf("set($.order.id) = %v, want id=o-2", order)
		}
	})

	t.Run("nil data with a field path builds a fresh map", func(t *testing.T) {
		got := set("$.a", nil, 1)
		gotMap, ok := got.(map[string]interface{})
		if !ok || gotMap["a"] != 1 {
			t.Fatalf("set($.a, nil) = %v, want map with a=1", got)
		}
	})

	t.Run("unsupported path form returns data unchanged", func(t *testing.T) {
		orig := map[string]interface{}{"a": 1}
		got := set("a", orig, 2)
		if !reflect.DeepEqual(got, orig) {
			t.Fatalf("set(a) = %v, want unchanged %v", got, orig)
		}
	})
}
