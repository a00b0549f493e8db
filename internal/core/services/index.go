package services

import (
	"context"
	"log/slog"

	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driving"
)

// Ensure indexService implements IndexService
var _ driving.IndexService = (*indexService)(nil)

const (
	// DefaultExportPageSize is the page size used when paging through a whole index
	DefaultExportPageSize = 1000

	// maxExportPageSize is the largest page the backend serves
	maxExportPageSize = 1000
)

// indexService implements the IndexService interface on top of an IndexClient
type indexService struct {
	client driven.IndexClient
	logger *slog.Logger
}

// NewIndexService creates a new IndexService.
// The client is created once at startup and shared for the process lifetime.
func NewIndexService(client driven.IndexClient, logger *slog.Logger) driving.IndexService {
	if logger == nil {
		logger = slog.Default()
	}
	return &indexService{
		client: client,
		logger: logger,
	}
}

// Search queries a single index
func (s *indexService) Search(ctx context.Context, indexName string, query domain.SearchQuery) (*domain.Page, error) {
	return s.client.Search(ctx, indexName, query)
}

// SearchSorted queries the replica index for sortOption
func (s *indexService) SearchSorted(ctx context.Context, indexName string, sortOption domain.SortOption, query domain.SearchQuery) (*domain.Page, error) {
	return s.client.Search(ctx, domain.MapSortOption(indexName, sortOption), query)
}

// FetchAllRecords requests fixed-size pages starting at 0 until the backend
// reports the last page. Pages are fetched one after another.
func (s *indexService) FetchAllRecords(ctx context.Context, indexName string, pageSizeHint int) ([]domain.Record, int, error) {
	pageSize := pageSizeHint
	if pageSize <= 0 || pageSize > maxExportPageSize {
		pageSize = DefaultExportPageSize
	}

	records := []domain.Record{}
	nbPages := 0
	for page := 0; ; page++ {
		resp, err := s.client.Search(ctx, indexName, domain.SearchQuery{
			Page:        page,
			HitsPerPage: pageSize,
		})
		if err != nil {
			return nil, 0, err
		}

		records = append(records, resp.Hits...)
		nbPages = resp.NbPages

		s.logger.Debug("fetched index page",
			"index", indexName,
			"page", page,
			"nb_pages", nbPages,
			"hits", len(resp.Hits),
		)

		if resp.IsLast() {
			break
		}
	}

	return records, nbPages, nil
}

// CreateOrUpdate replaces records, creating the missing ones
func (s *indexService) CreateOrUpdate(ctx context.Context, indexName string, records []domain.Record) (*domain.BatchResult, error) {
	return s.client.Batch(ctx, indexName, operations(domain.ActionUpdateObject, records))
}

// BatchUpdate merges the given attributes into existing records
func (s *indexService) BatchUpdate(ctx context.Context, indexName string, records []domain.Record) (*domain.BatchResult, error) {
	return s.client.Batch(ctx, indexName, operations(domain.ActionPartialUpdateObject, records))
}

// Delete removes records by objectID
func (s *indexService) Delete(ctx context.Context, indexName string, objectIDs []string) (*domain.BatchResult, error) {
	records := make([]domain.Record, len(objectIDs))
	for i, id := range objectIDs {
		records[i] = domain.Record{domain.ObjectIDField: id}
	}
	return s.client.Batch(ctx, indexName, operations(domain.ActionDeleteObject, records))
}

// Create adds one record. Rejecting an existing objectID is the backend's call.
func (s *indexService) Create(ctx context.Context, indexName string, record domain.Record) (*domain.BatchResult, error) {
	return s.client.Batch(ctx, indexName, operations(domain.ActionAddObject, []domain.Record{record}))
}

// MultiSearch runs several queries; result i answers query i
func (s *indexService) MultiSearch(ctx context.Context, queries []domain.IndexedQuery) ([]*domain.Page, error) {
	return s.client.MultiSearch(ctx, queries)
}

// GetRecommendations fetches recommendations for each request
func (s *indexService) GetRecommendations(ctx context.Context, requests []domain.RecommendationRequest) ([]*domain.RecommendationResult, error) {
	return s.client.Recommendations(ctx, requests)
}

// GetFacetValues searches the values of one facet
func (s *indexService) GetFacetValues(ctx context.Context, indexName, facet string, query domain.FacetValuesQuery) (*domain.FacetValues, error) {
	return s.client.SearchFacetValues(ctx, indexName, facet, query)
}

func operations(action domain.BatchAction, records []domain.Record) []domain.BatchOperation {
	ops := make([]domain.BatchOperation, len(records))
	for i, r := range records {
		ops[i] = domain.BatchOperation{Action: action, Body: r}
	}
	return ops
}
