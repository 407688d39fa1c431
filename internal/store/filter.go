package store

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/tidwall/gjson"
)

// Filter is an AND of exact equality checks. A dot in a key steps into a
// nested object, so "opponent1.id" matches a nested field; every other
// character is taken literally. A nil value matches a missing or null field.
type Filter map[string]any

func (f Filter) Match(doc []byte) bool {
	for path, want := range f {
		normalized, ok := normalize(want)
		if !ok {
			return false
		}
		got := gjson.GetBytes(doc, fieldPath(path))
		if !got.Exists() || got.Type == gjson.Null {
			if normalized != nil {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(got.Value(), normalized) {
			return false
		}
	}
	return true
}

// fieldPath escapes each dot separated part of key, so wildcards and queries
// in a key never reach gjson as syntax.
func fieldPath(key string) string {
	parts := strings.Split(key, ".")
	for i, part := range parts {
		parts[i] = gjson.Escape(part)
	}
	return strings.Join(parts, ".")
}

// normalize puts a Go value in the shape gjson decodes JSON into.
func normalize(v any) (any, bool) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

func (s *Store) where(ctx context.Context, table Table, filter Filter) ([]Row, error) {
	if id, ok := filter["id"].(int); ok && len(filter) == 1 {
		row, err := s.row(ctx, table, id)
		if err != nil || row == nil {
			return nil, err
		}
		return []Row{*row}, nil
	}

	rows, err := s.backend.Rows(ctx, table)
	if err != nil {
		return nil, err
	}
	var out []Row
	for _, row := range rows {
		if filter.Match(row.Data) {
			out = append(out, row)
		}
	}
	return out, nil
}
