package driven

import (
	"context"

	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
)

// IndexClient talks to the hosted search/indexing API.
// Implementations return backend failures wrapped around the domain
// sentinels (ErrUnauthorized, ErrNotFound, ErrRateLimited, ...) and never retry.
type IndexClient interface {
	// Search runs a query against a single index
	Search(ctx context.Context, indexName string, query domain.SearchQuery) (*domain.Page, error)

	// MultiSearch runs several queries in one round trip.
	// The result at position i answers queries[i].
	MultiSearch(ctx context.Context, queries []domain.IndexedQuery) ([]*domain.Page, error)

	// Batch applies write operations to an index
	Batch(ctx context.Context, indexName string, ops []domain.BatchOperation) (*domain.BatchResult, error)

	// SearchFacetValues searches the values of one facet
	SearchFacetValues(ctx context.Context, indexName, facet string, query domain.FacetValuesQuery) (*domain.FacetValues, error)

	// Recommendations fetches one result per request, in request order
	Recommendations(ctx context.Context, requests []domain.RecommendationRequest) ([]*domain.RecommendationResult, error)

	// HealthCheck verifies the backend is reachable with the configured credentials
	HealthCheck(ctx context.Context) error
}
