package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driven"
)

// Ensure MockExportStore implements ExportStore
var _ driven.ExportStore = (*MockExportStore)(nil)

// MockExportStore is an in-memory ExportStore
type MockExportStore struct {
	mu      sync.RWMutex
	exports map[string]*domain.Export

	SaveErr error
}

// NewMockExportStore creates a new MockExportStore
func NewMockExportStore() *MockExportStore {
	return &MockExportStore{
		exports: make(map[string]*domain.Export),
	}
}

func (m *MockExportStore) Save(ctx context.Context, export *domain.Export) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *export
	m.exports[export.ID] = &c
	return nil
}

func (m *MockExportStore) Get(ctx context.Context, id string) (*domain.Export, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exports[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *e
	return &c, nil
}

func (m *MockExportStore) ListByIndex(ctx context.Context, indexName string, limit int) ([]*domain.Export, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.Export
	for _, e := range m.exports {
		if e.IndexName == indexName {
			result = append(result, e.Summary())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
