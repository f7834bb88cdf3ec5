package memory

import (
	"context"
	"sync"

	"completion-service/internal/domain"
)

// FieldStore is an in-memory implementation of app.FieldStore.
type FieldStore struct {
	mu     sync.RWMutex
	fields map[domain.BlockKey]map[string]string
}

func NewFieldStore() *FieldStore {
	return &FieldStore{
		fields: make(map[domain.BlockKey]map[string]string),
	}
}

func (s *FieldStore) LoadFields(_ context.Context, key domain.BlockKey) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.fields[key]))
	for name, value := range s.fields[key] {
		out[name] = value
	}
	return out, nil
}

// SaveFields replaces the stored field set for key.
func (s *FieldStore) SaveFields(_ context.Context, key domain.BlockKey, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make(map[string]string, len(fields))
	for name, value := range fields {
		stored[name] = value
	}
	s.fields[key] = stored
	return nil
}

// Delete drops a learner's fields.
func (s *FieldStore) Delete(key domain.BlockKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fields, key)
}
