// Package events implements the EventBridge-style pattern matcher and
// fan-out dispatcher described in spec.md §4.4.
package events

import (
	"sync"

	"github.com/OneOfOne/xxhash"

	"github.com/NVIDIA/cloudemu/cmn"
)

// Event is one published entry, matched against rule patterns and handed
// to dispatch targets.
type Event struct {
	Source     string
	DetailType string
	Detail     cmn.Value
	Time       string
	Resources  []string
}

// Pattern is a decoded event_pattern document: each key maps to a JSON
// array of permitted literals (spec.md §4.4). Only "source" and
// "detail-type" are interpreted structurally; any other top-level key is
// treated as a nested-detail match against the event's Detail object, the
// extension spec.md §4.4 allows ("Detail-object matching ... is
// permitted").
type Pattern map[string][]interface{}

// Match reports whether ev satisfies pattern, per spec.md §4.4:
//   - if pattern names "source" and/or "detail-type", the event's
//     corresponding field must equal one of the listed values (any-of);
//   - if neither key is present, the rule matches every event;
//   - any other top-level key is matched against the same-named field of
//     the event's Detail object, any-of, the same way.
func Match(pattern Pattern, ev Event) bool {
	if vals, ok := pattern["source"]; ok {
		if !anyOfString(vals, ev.Source) {
			return false
		}
	}
	if vals, ok := pattern["detail-type"]; ok {
		if !anyOfString(vals, ev.DetailType) {
			return false
		}
	}
	detail, isMap := ev.Detail.Raw().(map[string]interface{})
	for key, vals := range pattern {
		if key == "source" || key == "detail-type" {
			continue
		}
		if !isMap {
			return false
		}
		fieldVal, present := detail[key]
		if !present || !anyOfValue(vals, fieldVal) {
			return false
		}
	}
	return true
}

func anyOfString(vals []interface{}, s string) bool {
	for _, v := range vals {
		if str, ok := v.(string); ok && str == s {
			return true
		}
	}
	return false
}

func anyOfValue(vals []interface{}, v interface{}) bool {
	for _, want := range vals {
		if want == v {
			return true
		}
	}
	return false
}

// PatternCache decodes a rule's raw event_pattern JSON on first sight and
// remembers it keyed by an xxhash fingerprint of the raw text, so repeated
// RecordEvent calls against an unchanged rule set skip re-unmarshaling the
// same pattern document every time (SPEC_FULL.md §4.4: "a cache, not a
// correctness mechanism — a hash collision only costs a redundant JSON
// re-check").
type PatternCache struct {
	mu      sync.Mutex
	entries map[uint64]cacheEntry
}

type cacheEntry struct {
	raw     string
	pattern Pattern
}

func NewPatternCache() *PatternCache {
	return &PatternCache{entries: make(map[uint64]cacheEntry)}
}

// Decode returns the Pattern for raw JSON text, using the cache when the
// fingerprint hits and the stored raw text still matches verbatim (the
// fallback re-decode on a stored-text mismatch is what makes a hash
// collision merely expensive, never incorrect).
func (c *PatternCache) Decode(raw string) (Pattern, error) {
	if raw == "" {
		return nil, nil
	}
	fp := fingerprint(raw)

	c.mu.Lock()
	if e, ok := c.entries[fp]; ok && e.raw == raw {
		c.mu.Unlock()
		return e.pattern, nil
	}
	c.mu.Unlock()

	var p Pattern
	if err := cmn.JSON.UnmarshalFromString(raw, &p); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[fp] = cacheEntry{raw: raw, pattern: p}
	c.mu.Unlock()
	return p, nil
}

func fingerprint(raw string) uint64 {
	h := xxhash.New64()
	h.WriteString(raw)
	return h.Sum64()
}
