// Package asl implements the Amazon States Language interpreter: Pass,
// Task, Choice, Wait, Succeed, Fail, Parallel, and Map states over a JSON
// input/output value, per spec.md §4.3.
package asl

import "strings"

// get resolves a JSONPath expression against data. Only "$" and
// "$.dotted.path" are supported (no wildcards, no filters, no array
// indexing) per spec.md §4.3 "JSONPath supports $, $.<dotted.path>".
// Missing paths return (nil, false) — "no value", which Choice rules
// evaluate as false rather than erroring.
func get(path string, data interface{}) (interface{}, bool) {
	if path == "" || path == "$" {
		return data, true
	}
	if !strings.HasPrefix(path, "$.") {
		return nil, false
	}
	cur := data
	for _, segment := range strings.Split(path[2:], ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[segment]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// set writes value at path into a copy of data rooted at "$" (ResultPath
// merge semantics, spec.md §4.3 "Pass transforms"). path "$" replaces data
// wholesale; "$.field" sets/overwrites one top-level key. Deeper paths are
// supported by walking and creating intermediate maps as needed.
func set(path string, data interface{}, value interface{}) interface{} {
	if path == "" || path == "$" {
		return value
	}
	if !strings.HasPrefix(path, "$.") {
		return data
	}
	root, ok := data.(map[string]interface{})
	if !ok || root == nil {
		root = map[string]interface{}{}
	} else {
		root = cloneMap(root)
	}
	segments := strings.Split(path[2:], ".")
	cur := root
	for i, seg := range segments {
		if i == len(segments)-1 {
			cur[seg] = value
			break
		}
		next, ok := cur[seg].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			cur[seg] = next
		} else {
			next = cloneMap(next)
			cur[seg] = next
		}
		cur = next
	}
	return root
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
