package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driven/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProducts(client *mocks.MockIndexClient, index string, n int) {
	for i := 0; i < n; i++ {
		client.Seed(index, domain.Record{
			"objectID": fmt.Sprintf("sku-%05d", i),
			"name":     fmt.Sprintf("Product %d", i),
		})
	}
}

func TestIndexService_FetchAllRecords(t *testing.T) {
	tests := []struct {
		name      string
		records   int
		pageSize  int
		wantPages int
	}{
		{"empty index", 0, 1000, 0},
		{"single record", 1, 1000, 1},
		{"just under a page", 999, 1000, 1},
		{"exactly one page", 1000, 1000, 1},
		{"one over a page", 1001, 1000, 2},
		{"several pages", 2500, 1000, 3},
		{"small pages", 25, 10, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mocks.NewMockIndexClient()
			seedProducts(client, "products", tt.records)
			svc := NewIndexService(client, nil)

			records, pages, err := svc.FetchAllRecords(context.Background(), "products", tt.pageSize)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPages, pages)
			require.Len(t, records, tt.records)
			assert.NotNil(t, records, "empty index should yield an empty, non-nil slice")
			for i, r := range records {
				if r.ObjectID() != fmt.Sprintf("sku-%05d", i) {
					t.Fatalf("record %d out of order: %s", i, r.ObjectID())
				}
			}
		})
	}
}

func TestIndexService_FetchAllRecords_RequestsPagesSequentially(t *testing.T) {
	client := mocks.NewMockIndexClient()
	seedProducts(client, "products", 2500)
	svc := NewIndexService(client, nil)

	_, _, err := svc.FetchAllRecords(context.Background(), "products", 0)
	require.NoError(t, err)

	require.Len(t, client.SearchCalls, 3)
	for i, call := range client.SearchCalls {
		assert.Equal(t, "products", call.IndexName)
		assert.Equal(t, i, call.Query.Page)
		assert.Equal(t, DefaultExportPageSize, call.Query.HitsPerPage)
		assert.Empty(t, call.Query.Query)
	}
}

func TestIndexService_FetchAllRecords_EmptyIndexMakesOneRequest(t *testing.T) {
	client := mocks.NewMockIndexClient()
	svc := NewIndexService(client, nil)

	records, pages, err := svc.FetchAllRecords(context.Background(), "empty", 1000)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 0, pages)
	assert.Len(t, client.SearchCalls, 1)
}

func TestIndexService_FetchAllRecords_PageSizePolicy(t *testing.T) {
	tests := []struct {
		hint int
		want int
	}{
		{0, 1000},
		{-5, 1000},
		{250, 250},
		{5000, 1000},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("hint_%d", tt.hint), func(t *testing.T) {
			client := mocks.NewMockIndexClient()
			svc := NewIndexService(client, nil)

			_, _, err := svc.FetchAllRecords(context.Background(), "products", tt.hint)
			require.NoError(t, err)
			require.NotEmpty(t, client.SearchCalls)
			assert.Equal(t, tt.want, client.SearchCalls[0].Query.HitsPerPage)
		})
	}
}

func TestIndexService_FetchAllRecords_ErrorSurfacesUnchanged(t *testing.T) {
	backendErr := fmt.Errorf("search products: %w", domain.ErrRateLimited)
	client := mocks.NewMockIndexClient()
	client.SearchFn = func(indexName string, query domain.SearchQuery) (*domain.Page, error) {
		if query.Page == 1 {
			return nil, backendErr
		}
		return &domain.Page{Hits: []domain.Record{{"objectID": "a"}}, Page: query.Page, NbPages: 3}, nil
	}
	svc := NewIndexService(client, nil)

	records, pages, err := svc.FetchAllRecords(context.Background(), "products", 1)

	assert.Same(t, backendErr, err)
	assert.True(t, errors.Is(err, domain.ErrRateLimited))
	assert.Nil(t, records)
	assert.Zero(t, pages)
	assert.Len(t, client.SearchCalls, 2, "no retry after a failed page")
}

func TestIndexService_Search_PassThrough(t *testing.T) {
	client := mocks.NewMockIndexClient()
	client.Seed("products", domain.Record{"objectID": "1", "name": "Desk lamp"}, domain.Record{"objectID": "2", "name": "Chair"})
	svc := NewIndexService(client, nil)

	page, err := svc.Search(context.Background(), "products", domain.SearchQuery{Query: "lamp"})
	require.NoError(t, err)
	require.Len(t, page.Hits, 1)
	assert.Equal(t, "1", page.Hits[0].ObjectID())

	client.SearchFn = func(string, domain.SearchQuery) (*domain.Page, error) {
		return nil, domain.ErrUnauthorized
	}
	_, err = svc.Search(context.Background(), "products", domain.SearchQuery{})
	assert.Same(t, domain.ErrUnauthorized, err)
}

func TestIndexService_SearchSorted(t *testing.T) {
	tests := []struct {
		sort      domain.SortOption
		wantIndex string
	}{
		{"minPrice:asc", "products_price_asc"},
		{"avgRating:desc", "products_rating_desc"},
		{"bogus:asc", "products"},
	}

	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			client := mocks.NewMockIndexClient()
			svc := NewIndexService(client, nil)

			_, err := svc.SearchSorted(context.Background(), "products", tt.sort, domain.SearchQuery{Query: "x"})
			require.NoError(t, err)
			require.Len(t, client.SearchCalls, 1)
			assert.Equal(t, tt.wantIndex, client.SearchCalls[0].IndexName)
		})
	}
}

func TestIndexService_MultiSearch_PreservesOrder(t *testing.T) {
	client := mocks.NewMockIndexClient()
	client.Seed("products", domain.Record{"objectID": "p1", "name": "Lamp"})
	client.Seed("posts", domain.Record{"objectID": "b1", "title": "Lamp review"}, domain.Record{"objectID": "b2", "title": "Chairs"})
	svc := NewIndexService(client, nil)

	queries := []domain.IndexedQuery{
		{IndexName: "posts", SearchQuery: domain.SearchQuery{Query: "chairs"}},
		{IndexName: "products", SearchQuery: domain.SearchQuery{Query: "lamp"}},
		{IndexName: "posts", SearchQuery: domain.SearchQuery{Query: "lamp"}},
	}

	pages, err := svc.MultiSearch(context.Background(), queries)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, "b2", pages[0].Hits[0].ObjectID())
	assert.Equal(t, "p1", pages[1].Hits[0].ObjectID())
	assert.Equal(t, "b1", pages[2].Hits[0].ObjectID())
}

func TestIndexService_Create_DoesNotOverwrite(t *testing.T) {
	client := mocks.NewMockIndexClient()
	client.Seed("products", domain.Record{"objectID": "sku-1", "name": "Original"})
	svc := NewIndexService(client, nil)

	_, err := svc.Create(context.Background(), "products", domain.Record{"objectID": "sku-1", "name": "Replacement"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))
	assert.Equal(t, "Original", client.Get("products", "sku-1")["name"])
	assert.Len(t, client.Records("products"), 1)
}

func TestIndexService_Create_New(t *testing.T) {
	client := mocks.NewMockIndexClient()
	svc := NewIndexService(client, nil)

	res, err := svc.Create(context.Background(), "products", domain.Record{"objectID": "sku-9", "name": "New"})
	require.NoError(t, err)
	assert.Equal(t, []string{"sku-9"}, res.ObjectIDs)
	assert.Equal(t, "New", client.Get("products", "sku-9")["name"])
}

func TestIndexService_WriteOperations(t *testing.T) {
	client := mocks.NewMockIndexClient()
	client.Seed("products",
		domain.Record{"objectID": "1", "name": "Lamp", "price": 10.0},
		domain.Record{"objectID": "2", "name": "Chair", "price": 40.0},
	)
	svc := NewIndexService(client, nil)
	ctx := context.Background()

	_, err := svc.CreateOrUpdate(ctx, "products", []domain.Record{
		{"objectID": "1", "name": "Desk lamp"},
		{"objectID": "3", "name": "Table"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Desk lamp", client.Get("products", "1")["name"])
	assert.NotContains(t, client.Get("products", "1"), "price", "full update replaces the record")
	assert.NotNil(t, client.Get("products", "3"))

	_, err = svc.BatchUpdate(ctx, "products", []domain.Record{{"objectID": "2", "price": 35.0}})
	require.NoError(t, err)
	assert.Equal(t, "Chair", client.Get("products", "2")["name"])
	assert.Equal(t, 35.0, client.Get("products", "2")["price"])

	res, err := svc.Delete(ctx, "products", []string{"1", "3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, res.ObjectIDs)
	assert.Nil(t, client.Get("products", "1"))
	assert.Len(t, client.Records("products"), 1)
}

func TestIndexService_FacetsAndRecommendations(t *testing.T) {
	client := mocks.NewMockIndexClient()
	client.Seed("products",
		domain.Record{"objectID": "1", "category": "Lighting"},
		domain.Record{"objectID": "2", "category": "Lighting"},
		domain.Record{"objectID": "3", "category": "Living room"},
	)
	svc := NewIndexService(client, nil)
	ctx := context.Background()

	facets, err := svc.GetFacetValues(ctx, "products", "category", domain.FacetValuesQuery{FacetQuery: "li"})
	require.NoError(t, err)
	require.Len(t, facets.FacetHits, 2)
	assert.Equal(t, domain.FacetHit{Value: "Lighting", Highlighted: "Lighting", Count: 2}, facets.FacetHits[0])

	recs, err := svc.GetRecommendations(ctx, []domain.RecommendationRequest{
		{IndexName: "products", Model: domain.ModelRelatedProducts, ObjectID: "1", MaxRecommendations: 1},
		{IndexName: "products", Model: domain.ModelTrendingItems},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Len(t, recs[0].Hits, 1)
	assert.Equal(t, "2", recs[0].Hits[0].ObjectID())
	assert.Len(t, recs[1].Hits, 3)
}

type product struct {
	ObjectID string  `json:"objectID"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
}

func TestDecodeHits(t *testing.T) {
	page := &domain.Page{Hits: []domain.Record{
		{"objectID": "1", "name": "Lamp", "price": 12.5, "extra": true},
		{"objectID": "2", "name": "Chair"},
	}}

	products, err := DecodeHits[product](page)
	require.NoError(t, err)
	assert.Equal(t, []product{
		{ObjectID: "1", Name: "Lamp", Price: 12.5},
		{ObjectID: "2", Name: "Chair"},
	}, products)

	empty, err := DecodeHits[product](nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDecodeRecords_ShapeMismatch(t *testing.T) {
	_, err := DecodeRecords[product]([]domain.Record{{"objectID": "1", "price": "cheap"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode record 0 (1)")
}
