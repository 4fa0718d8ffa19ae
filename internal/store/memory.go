package store

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// MemoryStore implements DocumentStore with in-process maps. It backs tests
// and local development; behaviour mirrors the Postgres binding, including
// the In filter limit and textual comparison semantics.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string]map[string]map[string]any
	order map[string][]string
}

// NewMemoryStore returns an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  make(map[string]map[string]map[string]any),
		order: make(map[string][]string),
	}
}

// Get retrieves a document by id.
func (s *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Data: copyData(data)}, nil
}

// Query scans a collection applying filters, ordering, and limit. Documents
// with equal ordering keys keep insertion order.
func (s *MemoryStore) Query(_ context.Context, collection string, q Query) ([]Document, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Document
	for _, id := range s.order[collection] {
		data, ok := s.docs[collection][id]
		if !ok {
			continue
		}
		if matchesFilters(data, q.Filters) {
			out = append(out, Document{ID: id, Data: copyData(data)})
		}
	}

	if q.OrderBy != "" {
		field := q.OrderBy
		sort.SliceStable(out, func(i, j int) bool {
			a := textValue(out[i].Data[field])
			b := textValue(out[j].Data[field])
			if q.Descending {
				return a > b
			}
			return a < b
		})
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Set creates or replaces a document, merging fields when requested.
func (s *MemoryStore) Set(_ context.Context, collection, id string, fields map[string]any, merge bool) error {
	normalized, err := NormalizeFields(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.docs[collection][id]
	if !ok {
		s.insertLocked(collection, id, normalized)
		return nil
	}

	if !merge {
		s.docs[collection][id] = normalized
		return nil
	}
	for k, v := range normalized {
		existing[k] = v
	}
	return nil
}

// Update applies deltas to an existing document.
func (s *MemoryStore) Update(_ context.Context, collection, id string, deltas map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.docs[collection][id]
	if !ok {
		return ErrNotFound
	}
	return ApplyDeltas(data, deltas)
}

// Add inserts a document under a fresh id.
func (s *MemoryStore) Add(_ context.Context, collection string, fields map[string]any) (string, error) {
	normalized, err := NormalizeFields(fields)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(collection, id, normalized)
	return id, nil
}

// Delete removes a document. Deleting a missing document reports ErrNotFound.
func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[collection][id]; !ok {
		return ErrNotFound
	}
	delete(s.docs[collection], id)
	return nil
}

// Len reports the number of documents in a collection. Useful for tests.
func (s *MemoryStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[collection])
}

func (s *MemoryStore) insertLocked(collection, id string, data map[string]any) {
	if s.docs[collection] == nil {
		s.docs[collection] = make(map[string]map[string]any)
	}
	s.docs[collection][id] = data
	s.order[collection] = append(s.order[collection], id)
}

func validateQuery(q Query) error {
	if q.OrderBy != "" && !fieldNamePattern.MatchString(q.OrderBy) {
		return fmt.Errorf("%w: %q", ErrInvalidField, q.OrderBy)
	}
	for _, f := range q.Filters {
		if !fieldNamePattern.MatchString(f.Field) {
			return fmt.Errorf("%w: %q", ErrInvalidField, f.Field)
		}
		if f.Op == OpIn {
			values, ok := f.Value.([]string)
			if !ok {
				return fmt.Errorf("in filter on %q requires a []string value", f.Field)
			}
			if len(values) > MaxInValues {
				return fmt.Errorf("%w: %d values on %q", ErrTooManyValues, len(values), f.Field)
			}
		}
	}
	return nil
}

func matchesFilters(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		switch f.Op {
		case OpIn:
			values, _ := f.Value.([]string)
			matched := false
			for _, v := range values {
				if textValue(data[f.Field]) == v {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		default:
			if textValue(data[f.Field]) != textValue(normalizeValue(f.Value)) {
				return false
			}
		}
	}
	return true
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyData(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
