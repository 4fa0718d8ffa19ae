package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// MaxInValues is the largest value set accepted by an In filter. Queries over
// wider audiences must be issued in chunks of at most this size.
const MaxInValues = 10

// Op identifies a filter comparison.
type Op string

const (
	// OpEqual matches documents whose field equals the filter value.
	OpEqual Op = "=="
	// OpIn matches documents whose field equals any of the filter values.
	OpIn Op = "in"
)

// Filter restricts a query to documents matching a single field predicate.
// For OpIn the Value must be a []string of at most MaxInValues entries.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query describes a filtered, optionally ordered and limited collection scan.
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Document is a single schemaless record.
type Document struct {
	ID   string
	Data map[string]any
}

// DocumentStore is the persistence collaborator for all Reelmates records.
// Implementations must make every individual write idempotent: Set, Update
// deltas, and Delete may be blindly retried after a transport failure.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	// Set creates or replaces a document. With merge, only the provided
	// fields are written and the rest of the document is preserved.
	Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error
	// Update applies field deltas to an existing document. A delta is a
	// scalar replacement, an ArrayUnion, or an ArrayRemove.
	Update(ctx context.Context, collection, id string, deltas map[string]any) error
	// Add inserts a document under a freshly assigned id.
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)
	Delete(ctx context.Context, collection, id string) error
}

type arrayUnion struct{ values []any }

type arrayRemove struct{ values []any }

// ArrayUnion is an Update delta adding values to a set-valued field. Values
// already present are left alone, so the delta is idempotent.
func ArrayUnion(values ...any) any { return arrayUnion{values: values} }

// ArrayRemove is an Update delta removing values from a set-valued field. It
// is a no-op for values not present.
func ArrayRemove(values ...any) any { return arrayRemove{values: values} }

// timeLayout pads fractional seconds to a fixed width so that the textual
// order of stored timestamps matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// NormalizeFields round-trips the fields through JSON so that every binding
// stores the same shapes (float64 numbers, []any slices, string timestamps).
func NormalizeFields(fields map[string]any) (map[string]any, error) {
	prepared := make(map[string]any, len(fields))
	for k, v := range fields {
		prepared[k] = normalizeValue(v)
	}

	raw, err := json.Marshal(prepared)
	if err != nil {
		return nil, fmt.Errorf("normalize fields: %w", err)
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("normalize fields: %w", err)
	}
	return out, nil
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(timeLayout)
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case map[string][]string:
		out := make(map[string]any, len(t))
		for k, vs := range t {
			out[k] = normalizeValue(vs)
		}
		return out
	default:
		return v
	}
}

// ApplyDeltas mutates a normalized document in place. Shared by the memory
// binding and the Postgres binding's read-modify-write path.
func ApplyDeltas(data map[string]any, deltas map[string]any) error {
	for field, delta := range deltas {
		switch d := delta.(type) {
		case arrayUnion:
			current := toAnySlice(data[field])
			for _, v := range d.values {
				nv := normalizeValue(v)
				if !containsValue(current, nv) {
					current = append(current, nv)
				}
			}
			data[field] = current
		case arrayRemove:
			current := toAnySlice(data[field])
			kept := current[:0]
			for _, existing := range current {
				removed := false
				for _, v := range d.values {
					if equalValues(existing, normalizeValue(v)) {
						removed = true
						break
					}
				}
				if !removed {
					kept = append(kept, existing)
				}
			}
			data[field] = append([]any{}, kept...)
		default:
			normalized, err := NormalizeFields(map[string]any{field: delta})
			if err != nil {
				return err
			}
			data[field] = normalized[field]
		}
	}
	return nil
}

func toAnySlice(v any) []any {
	if v == nil {
		return nil
	}
	if s, ok := v.([]any); ok {
		return append([]any{}, s...)
	}
	return nil
}

func containsValue(s []any, v any) bool {
	for _, e := range s {
		if equalValues(e, v) {
			return true
		}
	}
	return false
}

func equalValues(a, b any) bool {
	return textValue(a) == textValue(b)
}

// textValue renders a value the way the Postgres binding's `data->>field`
// does, so both bindings compare filters identically.
func textValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.UTC().Format(timeLayout)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}

// Time parses a stored timestamp field, returning the zero time when the
// field is absent or malformed.
func (d Document) Time(field string) time.Time {
	s, _ := d.Data[field].(string)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// String returns a string field, or "" when absent.
func (d Document) String(field string) string {
	s, _ := d.Data[field].(string)
	return s
}

// Bool returns a boolean field, or false when absent.
func (d Document) Bool(field string) bool {
	b, _ := d.Data[field].(bool)
	return b
}

// Int returns a numeric field truncated to an int, or 0 when absent.
func (d Document) Int(field string) int {
	f, _ := d.Data[field].(float64)
	return int(f)
}

// Float returns a numeric field, or 0 when absent.
func (d Document) Float(field string) float64 {
	f, _ := d.Data[field].(float64)
	return f
}

// StringSlice returns a set-valued field as strings, skipping entries of any
// other type.
func (d Document) StringSlice(field string) []string {
	raw, _ := d.Data[field].([]any)
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// StringSets returns a map field whose values are string sets, such as the
// per-emoji reaction membership on a video.
func (d Document) StringSets(field string) map[string][]string {
	raw, _ := d.Data[field].(map[string]any)
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string][]string, len(raw))
	for k, v := range raw {
		entries, _ := v.([]any)
		set := make([]string, 0, len(entries))
		for _, e := range entries {
			if s, ok := e.(string); ok {
				set = append(set, s)
			}
		}
		out[k] = set
	}
	return out
}
