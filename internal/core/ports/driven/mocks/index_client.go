package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driven"
)

// Ensure MockIndexClient implements IndexClient
var _ driven.IndexClient = (*MockIndexClient)(nil)

// MockIndexClient is an in-memory stand-in for the hosted search backend.
// It keeps records in arrival order, paginates like the backend and rejects
// addObject for an existing objectID.
type MockIndexClient struct {
	mu       sync.RWMutex
	indices  map[string][]domain.Record
	nextTask int64

	// SearchCalls records every Search call in order (for test assertions)
	SearchCalls []SearchCall

	// Custom behavior hooks (optional)
	SearchFn      func(indexName string, query domain.SearchQuery) (*domain.Page, error)
	BatchFn       func(indexName string, ops []domain.BatchOperation) (*domain.BatchResult, error)
	HealthCheckFn func() error
}

// SearchCall captures one Search invocation
type SearchCall struct {
	IndexName string
	Query     domain.SearchQuery
}

// NewMockIndexClient creates a new MockIndexClient
func NewMockIndexClient() *MockIndexClient {
	return &MockIndexClient{
		indices: make(map[string][]domain.Record),
	}
}

func (m *MockIndexClient) Search(ctx context.Context, indexName string, query domain.SearchQuery) (*domain.Page, error) {
	m.mu.Lock()
	m.SearchCalls = append(m.SearchCalls, SearchCall{IndexName: indexName, Query: query})
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.SearchFn != nil {
		return m.SearchFn(indexName, query)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.search(indexName, query), nil
}

func (m *MockIndexClient) search(indexName string, query domain.SearchQuery) *domain.Page {
	hitsPerPage := query.HitsPerPage
	if hitsPerPage <= 0 {
		hitsPerPage = 20
	}

	var matched []domain.Record
	for _, r := range m.indices[indexName] {
		if matches(r, query.Query) {
			matched = append(matched, r)
		}
	}

	nbPages := (len(matched) + hitsPerPage - 1) / hitsPerPage
	start := query.Page * hitsPerPage
	hits := []domain.Record{}
	if start < len(matched) {
		end := start + hitsPerPage
		if end > len(matched) {
			end = len(matched)
		}
		hits = append(hits, matched[start:end]...)
	}

	return &domain.Page{
		Index:       indexName,
		Hits:        hits,
		Page:        query.Page,
		NbPages:     nbPages,
		NbHits:      len(matched),
		HitsPerPage: hitsPerPage,
		Query:       query.Query,
	}
}

func matches(r domain.Record, q string) bool {
	if q == "" {
		return true
	}
	q = strings.ToLower(q)
	for _, v := range r {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), q) {
			return true
		}
	}
	return false
}

func (m *MockIndexClient) MultiSearch(ctx context.Context, queries []domain.IndexedQuery) ([]*domain.Page, error) {
	results := make([]*domain.Page, 0, len(queries))
	for _, q := range queries {
		page, err := m.Search(ctx, q.IndexName, q.SearchQuery)
		if err != nil {
			return nil, err
		}
		results = append(results, page)
	}
	return results, nil
}

func (m *MockIndexClient) Batch(ctx context.Context, indexName string, ops []domain.BatchOperation) (*domain.BatchResult, error) {
	if m.BatchFn != nil {
		return m.BatchFn(indexName, ops)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// The backend validates the whole batch before applying any of it
	for _, op := range ops {
		if op.Action == domain.ActionAddObject {
			if id := op.Body.ObjectID(); id != "" && m.position(indexName, id) >= 0 {
				return nil, fmt.Errorf("object %s: %w", id, domain.ErrAlreadyExists)
			}
		}
	}

	result := &domain.BatchResult{ObjectIDs: make([]string, 0, len(ops))}
	for _, op := range ops {
		id := op.Body.ObjectID()
		switch op.Action {
		case domain.ActionAddObject:
			if id == "" {
				id = domain.GenerateID()
			}
			m.indices[indexName] = append(m.indices[indexName], withID(op.Body, id))
		case domain.ActionUpdateObject:
			if i := m.position(indexName, id); i >= 0 {
				m.indices[indexName][i] = withID(op.Body, id)
			} else {
				m.indices[indexName] = append(m.indices[indexName], withID(op.Body, id))
			}
		case domain.ActionPartialUpdateObject:
			if i := m.position(indexName, id); i >= 0 {
				merged := withID(m.indices[indexName][i], id)
				for k, v := range op.Body {
					merged[k] = v
				}
				m.indices[indexName][i] = merged
			} else {
				m.indices[indexName] = append(m.indices[indexName], withID(op.Body, id))
			}
		case domain.ActionDeleteObject:
			if i := m.position(indexName, id); i >= 0 {
				records := m.indices[indexName]
				m.indices[indexName] = append(records[:i:i], records[i+1:]...)
			}
		default:
			return nil, fmt.Errorf("unknown action %q: %w", op.Action, domain.ErrInvalidInput)
		}
		result.ObjectIDs = append(result.ObjectIDs, id)
	}

	m.nextTask++
	result.TaskID = m.nextTask
	return result, nil
}

func (m *MockIndexClient) position(indexName, id string) int {
	for i, r := range m.indices[indexName] {
		if r.ObjectID() == id {
			return i
		}
	}
	return -1
}

func withID(r domain.Record, id string) domain.Record {
	c := make(domain.Record, len(r)+1)
	for k, v := range r {
		c[k] = v
	}
	c[domain.ObjectIDField] = id
	return c
}

func (m *MockIndexClient) SearchFacetValues(ctx context.Context, indexName, facet string, query domain.FacetValuesQuery) (*domain.FacetValues, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := strings.ToLower(query.FacetQuery)
	counts := make(map[string]int)
	for _, r := range m.indices[indexName] {
		v, ok := r[facet].(string)
		if !ok || !strings.HasPrefix(strings.ToLower(v), prefix) {
			continue
		}
		counts[v]++
	}

	hits := make([]domain.FacetHit, 0, len(counts))
	for v, c := range counts {
		hits = append(hits, domain.FacetHit{Value: v, Highlighted: v, Count: c})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Count != hits[j].Count {
			return hits[i].Count > hits[j].Count
		}
		return hits[i].Value < hits[j].Value
	})
	if query.MaxFacetHits > 0 && len(hits) > query.MaxFacetHits {
		hits = hits[:query.MaxFacetHits]
	}

	return &domain.FacetValues{FacetHits: hits, ExhaustiveFacetsCount: true}, nil
}

func (m *MockIndexClient) Recommendations(ctx context.Context, requests []domain.RecommendationRequest) ([]*domain.RecommendationResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]*domain.RecommendationResult, 0, len(requests))
	for _, req := range requests {
		hits := []domain.Record{}
		for _, r := range m.indices[req.IndexName] {
			if r.ObjectID() == req.ObjectID {
				continue
			}
			if req.MaxRecommendations > 0 && len(hits) >= req.MaxRecommendations {
				break
			}
			hits = append(hits, r)
		}
		results = append(results, &domain.RecommendationResult{Hits: hits})
	}
	return results, nil
}

func (m *MockIndexClient) HealthCheck(ctx context.Context) error {
	if m.HealthCheckFn != nil {
		return m.HealthCheckFn()
	}
	return nil
}

// Helper methods for testing

// Seed appends records to an index in order
func (m *MockIndexClient) Seed(indexName string, records ...domain.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indices[indexName] = append(m.indices[indexName], records...)
}

// Records returns a copy of the records of an index in arrival order
func (m *MockIndexClient) Records(indexName string) []domain.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Record(nil), m.indices[indexName]...)
}

// Get returns one record by objectID, or nil
func (m *MockIndexClient) Get(indexName, id string) domain.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.position(indexName, id); i >= 0 {
		return m.indices[indexName][i]
	}
	return nil
}

func (m *MockIndexClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indices = make(map[string][]domain.Record)
	m.SearchCalls = nil
}
