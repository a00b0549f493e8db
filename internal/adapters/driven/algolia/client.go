package algolia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/algolia/algoliasearch-client-go/v4/algolia/call"
	"github.com/algolia/algoliasearch-client-go/v4/algolia/recommend"
	"github.com/algolia/algoliasearch-client-go/v4/algolia/search"
	"github.com/algolia/algoliasearch-client-go/v4/algolia/transport"

	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.IndexClient = (*Client)(nil)

// Client implements driven.IndexClient on top of the Algolia Go SDK
type Client struct {
	search    *search.APIClient
	recommend *recommend.APIClient

	// initErr is returned by every call when the client could not be built
	initErr error
}

// Config holds connection configuration
type Config struct {
	Credentials domain.Credentials

	// ReadURL overrides the hosts serving search, facet and recommendation
	// calls. Empty keeps the SDK's hosted endpoints.
	ReadURL string

	// WriteURL overrides the host serving batch writes (defaults to ReadURL)
	WriteURL string

	// Timeout for HTTP requests
	Timeout time.Duration
}

// DefaultConfig returns a configuration using the hosted endpoints
func DefaultConfig(creds domain.Credentials) Config {
	return Config{
		Credentials: creds,
		Timeout:     30 * time.Second,
	}
}

// NewClient creates a new Algolia-backed IndexClient.
// Credentials are not validated locally: missing ones fail every call
// with ErrUnauthorized, as the backend would.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Credentials.AppID == "" || cfg.Credentials.APIKey == "" {
		return &Client{
			initErr: fmt.Errorf("%w: missing application id or api key", domain.ErrUnauthorized),
		}, nil
	}

	hosts, err := statefulHosts(cfg.ReadURL, cfg.WriteURL)
	if err != nil {
		return nil, err
	}
	base := transport.Configuration{
		AppID:        cfg.Credentials.AppID,
		ApiKey:       cfg.Credentials.APIKey,
		Hosts:        hosts,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}

	searchClient, err := search.NewClientWithConfig(search.SearchConfiguration{Configuration: base})
	if err != nil {
		return nil, fmt.Errorf("create search client: %w", err)
	}
	recommendClient, err := recommend.NewClientWithConfig(recommend.RecommendConfiguration{Configuration: base})
	if err != nil {
		return nil, fmt.Errorf("create recommend client: %w", err)
	}

	return &Client{search: searchClient, recommend: recommendClient}, nil
}

// statefulHosts turns the URL overrides into SDK hosts.
// No overrides means nil, which selects the SDK defaults.
func statefulHosts(readURL, writeURL string) ([]transport.StatefulHost, error) {
	if readURL == "" {
		return nil, nil
	}
	if writeURL == "" || writeURL == readURL {
		host, err := statefulHost(readURL, call.IsReadWrite)
		if err != nil {
			return nil, err
		}
		return []transport.StatefulHost{host}, nil
	}

	read, err := statefulHost(readURL, call.IsRead)
	if err != nil {
		return nil, err
	}
	write, err := statefulHost(writeURL, call.IsWrite)
	if err != nil {
		return nil, err
	}
	return []transport.StatefulHost{read, write}, nil
}

func statefulHost(raw string, accept func(call.Kind) bool) (transport.StatefulHost, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return transport.StatefulHost{}, fmt.Errorf("%w: invalid algolia host %q", domain.ErrInvalidInput, raw)
	}
	return transport.NewStatefulHost(u.Scheme, u.Host, accept), nil
}

// Search runs a query against a single index
func (c *Client) Search(ctx context.Context, indexName string, query domain.SearchQuery) (*domain.Page, error) {
	if err := c.ready(indexName); err != nil {
		return nil, fmt.Errorf("search %s: %w", indexName, err)
	}

	var params search.SearchParamsObject
	if err := convert(query, &params); err != nil {
		return nil, fmt.Errorf("search %s: %w", indexName, err)
	}

	resp, err := c.search.SearchSingleIndex(
		c.search.NewApiSearchSingleIndexRequest(indexName).
			WithSearchParams(search.SearchParamsObjectAsSearchParams(&params)),
		search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", indexName, translate(ctx, err))
	}

	var page domain.Page
	if err := convert(resp, &page); err != nil {
		return nil, fmt.Errorf("search %s: %w", indexName, err)
	}
	return normalizePage(&page, indexName), nil
}

// MultiSearch runs several queries in one round trip
func (c *Client) MultiSearch(ctx context.Context, queries []domain.IndexedQuery) ([]*domain.Page, error) {
	if err := c.ready(); err != nil {
		return nil, fmt.Errorf("multi search: %w", err)
	}

	requests := make([]search.SearchQuery, len(queries))
	for i, q := range queries {
		if q.IndexName == "" {
			return nil, fmt.Errorf("multi search: %w: query %d has no index", domain.ErrInvalidInput, i)
		}
		var hits search.SearchForHits
		if err := convert(q, &hits); err != nil {
			return nil, fmt.Errorf("multi search: %w", err)
		}
		requests[i] = *search.SearchForHitsAsSearchQuery(&hits)
	}
	params := search.NewEmptySearchMethodParams().
		SetRequests(requests).
		SetStrategy(search.SearchStrategy("none"))

	resp, err := c.search.Search(c.search.NewApiSearchRequest(params), search.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("multi search: %w", translate(ctx, err))
	}

	var results struct {
		Results []domain.Page `json:"results"`
	}
	if err := convert(resp, &results); err != nil {
		return nil, fmt.Errorf("multi search: %w", err)
	}
	if len(results.Results) != len(queries) {
		return nil, fmt.Errorf("multi search: expected %d result sets, got %d", len(queries), len(results.Results))
	}

	// Results are positional: result i answers queries[i]
	pages := make([]*domain.Page, len(queries))
	for i := range results.Results {
		pages[i] = normalizePage(&results.Results[i], queries[i].IndexName)
	}
	return pages, nil
}

// Batch applies write operations to an index
func (c *Client) Batch(ctx context.Context, indexName string, ops []domain.BatchOperation) (*domain.BatchResult, error) {
	if err := c.ready(indexName); err != nil {
		return nil, fmt.Errorf("batch %s: %w", indexName, err)
	}

	if ops == nil {
		ops = []domain.BatchOperation{}
	}
	var params search.BatchWriteParams
	if err := convert(map[string]any{"requests": ops}, &params); err != nil {
		return nil, fmt.Errorf("batch %s: %w", indexName, err)
	}

	resp, err := c.search.Batch(c.search.NewApiBatchRequest(indexName, &params), search.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", indexName, translate(ctx, err))
	}

	var result domain.BatchResult
	if err := convert(resp, &result); err != nil {
		return nil, fmt.Errorf("batch %s: %w", indexName, err)
	}
	if result.ObjectIDs == nil {
		result.ObjectIDs = []string{}
	}
	return &result, nil
}

// SearchFacetValues searches the values of one facet
func (c *Client) SearchFacetValues(ctx context.Context, indexName, facet string, query domain.FacetValuesQuery) (*domain.FacetValues, error) {
	if err := c.ready(indexName, facet); err != nil {
		return nil, fmt.Errorf("facet values %s.%s: %w", indexName, facet, err)
	}

	body := map[string]any{"facetQuery": query.FacetQuery}
	if query.MaxFacetHits > 0 {
		body["maxFacetHits"] = query.MaxFacetHits
	}
	if query.Filters != "" {
		body["params"] = url.Values{"filters": {query.Filters}}.Encode()
	}
	var req search.SearchForFacetValuesRequest
	if err := convert(body, &req); err != nil {
		return nil, fmt.Errorf("facet values %s.%s: %w", indexName, facet, err)
	}

	resp, err := c.search.SearchForFacetValues(
		c.search.NewApiSearchForFacetValuesRequest(indexName, facet).WithSearchForFacetValuesRequest(&req),
		search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("facet values %s.%s: %w", indexName, facet, translate(ctx, err))
	}

	var values domain.FacetValues
	if err := convert(resp, &values); err != nil {
		return nil, fmt.Errorf("facet values %s.%s: %w", indexName, facet, err)
	}
	if values.FacetHits == nil {
		values.FacetHits = []domain.FacetHit{}
	}
	return &values, nil
}

// Recommendations fetches one result per request, in request order
func (c *Client) Recommendations(ctx context.Context, requests []domain.RecommendationRequest) ([]*domain.RecommendationResult, error) {
	if err := c.ready(); err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}

	var params recommend.GetRecommendationsParams
	if err := convert(map[string]any{"requests": requests}, &params); err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}

	resp, err := c.recommend.GetRecommendations(
		c.recommend.NewApiGetRecommendationsRequest(&params),
		recommend.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("recommendations: %w", translate(ctx, err))
	}

	var results struct {
		Results []*domain.RecommendationResult `json:"results"`
	}
	if err := convert(resp, &results); err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}
	for _, r := range results.Results {
		if r.Hits == nil {
			r.Hits = []domain.Record{}
		}
	}
	return results.Results, nil
}

// HealthCheck lists one index to verify reachability and credentials
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return fmt.Errorf("algolia health check failed: %w", err)
	}

	_, err := c.search.ListIndices(
		c.search.NewApiListIndicesRequest().WithPage(0).WithHitsPerPage(1),
		search.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("algolia health check failed: %w", translate(ctx, err))
	}
	return nil
}

// ready reports the construction error, or rejects empty path segments
// before they reach the SDK.
func (c *Client) ready(segments ...string) error {
	if c.initErr != nil {
		return c.initErr
	}
	for _, s := range segments {
		if s == "" {
			return fmt.Errorf("%w: empty index or facet name", domain.ErrInvalidInput)
		}
	}
	return nil
}

func normalizePage(page *domain.Page, indexName string) *domain.Page {
	if page.Hits == nil {
		page.Hits = []domain.Record{}
	}
	if page.Index == "" {
		page.Index = indexName
	}
	return page
}

// convert moves a value between domain and SDK models through their JSON form
func convert(from, to any) error {
	data, err := json.Marshal(from)
	if err != nil {
		return fmt.Errorf("encode %T: %w", from, err)
	}
	if err := json.Unmarshal(data, to); err != nil {
		return fmt.Errorf("%w: decode %T: %w", domain.ErrInvalidInput, to, err)
	}
	return nil
}

// translate maps an SDK failure onto the domain sentinels, keeping the backend message
func translate(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if status, message, ok := apiErrorStatus(err); ok {
		return statusError(status, message)
	}

	// Network failures and exhausted hosts
	return fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, err)
}

// apiErrorStatus extracts the HTTP status of an error answered by the backend
func apiErrorStatus(err error) (int, string, bool) {
	var searchErr *search.APIError
	if errors.As(err, &searchErr) {
		return searchErr.Status, searchErr.Message, true
	}
	var searchVal search.APIError
	if errors.As(err, &searchVal) {
		return searchVal.Status, searchVal.Message, true
	}
	var recommendErr *recommend.APIError
	if errors.As(err, &recommendErr) {
		return recommendErr.Status, recommendErr.Message, true
	}
	var recommendVal recommend.APIError
	if errors.As(err, &recommendVal) {
		return recommendVal.Status, recommendVal.Message, true
	}
	return 0, "", false
}

func statusError(status int, message string) error {
	var sentinel error
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		sentinel = domain.ErrUnauthorized
	case status == http.StatusNotFound:
		sentinel = domain.ErrNotFound
	case status == http.StatusConflict:
		sentinel = domain.ErrAlreadyExists
	case status == http.StatusTooManyRequests:
		sentinel = domain.ErrRateLimited
	case status >= 500:
		sentinel = domain.ErrServiceUnavailable
	case status == http.StatusBadRequest:
		sentinel = domain.ErrInvalidInput
	default:
		sentinel = errors.New("unexpected status")
	}

	return fmt.Errorf("%w: %d %s - %s", sentinel, status, http.StatusText(status), message)
}
