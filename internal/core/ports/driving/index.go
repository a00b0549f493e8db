package driving

import (
	"context"

	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
)

// IndexService is the typed surface over remote index operations.
// Backend errors are returned unchanged; nothing here retries.
type IndexService interface {
	// Search queries a single index
	Search(ctx context.Context, indexName string, query domain.SearchQuery) (*domain.Page, error)

	// SearchSorted queries the replica serving sortOption (or indexName itself for unknown options)
	SearchSorted(ctx context.Context, indexName string, sortOption domain.SortOption, query domain.SearchQuery) (*domain.Page, error)

	// FetchAllRecords pages through the whole index in arrival order.
	// Returns the records and the backend-reported page count.
	FetchAllRecords(ctx context.Context, indexName string, pageSizeHint int) ([]domain.Record, int, error)

	// CreateOrUpdate replaces records, creating those that do not exist
	CreateOrUpdate(ctx context.Context, indexName string, records []domain.Record) (*domain.BatchResult, error)

	// BatchUpdate merges attributes into existing records
	BatchUpdate(ctx context.Context, indexName string, records []domain.Record) (*domain.BatchResult, error)

	// Delete removes records by objectID
	Delete(ctx context.Context, indexName string, objectIDs []string) (*domain.BatchResult, error)

	// Create adds one record; the backend rejects an existing objectID
	Create(ctx context.Context, indexName string, record domain.Record) (*domain.BatchResult, error)

	// MultiSearch runs several queries; result i answers query i
	MultiSearch(ctx context.Context, queries []domain.IndexedQuery) ([]*domain.Page, error)

	// GetRecommendations fetches recommendations, one result per request
	GetRecommendations(ctx context.Context, requests []domain.RecommendationRequest) ([]*domain.RecommendationResult, error)

	// GetFacetValues searches the values of one facet
	GetFacetValues(ctx context.Context, indexName, facet string, query domain.FacetValuesQuery) (*domain.FacetValues, error)
}
