package db

import (
	"strings"
)

// Record is a single structured value stored in an object store.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Lookup resolves a key path against the record.
// A key path is a field name or a dot separated path into nested maps (e.g. "address.city").
func (r Record) Lookup(keyPath string) (any, bool) {
	if keyPath == "" {
		return nil, false
	}
	var cur any = map[string]any(r)
	for _, part := range strings.Split(keyPath, ".") {
		switch m := cur.(type) {
		case map[string]any:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		case Record:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}
