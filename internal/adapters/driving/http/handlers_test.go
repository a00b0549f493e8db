package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-catalog/internal/core/services"
	"github.com/custodia-labs/sercha-catalog/internal/exportfmt"
)

const (
	adminToken  = "admin-token"
	readerToken = "reader-token"
)

// mockAuthService accepts two fixed tokens unless validateTokenFn is set
type mockAuthService struct {
	issueTokenFn    func(ctx context.Context, req domain.TokenRequest) (*domain.TokenResponse, error)
	validateTokenFn func(ctx context.Context, token string) (*domain.AuthContext, error)
}

func (m *mockAuthService) IssueToken(ctx context.Context, req domain.TokenRequest) (*domain.TokenResponse, error) {
	if m.issueTokenFn != nil {
		return m.issueTokenFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	switch token {
	case adminToken:
		return &domain.AuthContext{ClientID: "ops", Role: domain.RoleAdmin}, nil
	case readerToken:
		return &domain.AuthContext{ClientID: "storefront", Role: domain.RoleReader}, nil
	case "expired":
		return nil, domain.ErrTokenExpired
	default:
		return nil, domain.ErrTokenInvalid
	}
}

type testServer struct {
	server  *Server
	client  *mocks.MockIndexClient
	exports driving.ExportService
	store   *mocks.MockExportStore
	queue   *mocks.MockTaskQueue
	auth    *mockAuthService
	logs    *bytes.Buffer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		client: mocks.NewMockIndexClient(),
		store:  mocks.NewMockExportStore(),
		queue:  mocks.NewMockTaskQueue(),
		auth:   &mockAuthService{},
		logs:   &bytes.Buffer{},
	}
	logger := slog.New(slog.NewTextHandler(ts.logs, nil))
	indexes := services.NewIndexService(ts.client, logger)
	ts.exports = services.NewExportService(services.ExportServiceConfig{
		Indexes:   indexes,
		Store:     ts.store,
		TaskQueue: ts.queue,
		Lock:      mocks.NewMockDistributedLock(),
		Logger:    logger,
		PageSize:  10,
	})

	cfg := DefaultConfig()
	cfg.Version = "1.2.3"
	cfg.Logger = logger
	ts.server = NewServer(cfg, Services{
		Auth:   ts.auth,
		Index:  indexes,
		Export: ts.exports,
	}, map[string]Pinger{
		"search": PingFunc(ts.client.HealthCheck),
		"queue":  ts.queue,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func seed(client *mocks.MockIndexClient, index string, n int) {
	for i := 0; i < n; i++ {
		client.Seed(index, domain.Record{
			"objectID": string(rune('a'+i%26)) + string(rune('0'+i/26)),
			"name":     "product",
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[StatusResponse](t, rec).Status)

	rec = ts.do(t, "GET", "/version", "", nil)
	assert.Equal(t, "1.2.3", decode[VersionResponse](t, rec).Version)

	rec = ts.do(t, "GET", "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	ready := decode[ReadyResponse](t, rec)
	assert.Equal(t, "ok", ready.Checks["search"])
	assert.Equal(t, "ok", ready.Checks["queue"])
}

func TestReady_DependencyDown(t *testing.T) {
	ts := newTestServer(t)
	ts.client.HealthCheckFn = func() error { return domain.ErrServiceUnavailable }

	rec := ts.do(t, "GET", "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	ready := decode[ReadyResponse](t, rec)
	assert.Equal(t, "unavailable", ready.Checks["search"])
	assert.Equal(t, "ok", ready.Checks["queue"])
}

func TestIssueToken(t *testing.T) {
	ts := newTestServer(t)
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	ts.auth.issueTokenFn = func(ctx context.Context, req domain.TokenRequest) (*domain.TokenResponse, error) {
		switch {
		case req.ClientID == "" || req.ClientSecret == "":
			return nil, domain.ErrInvalidInput
		case req.ClientSecret != "s3cret":
			return nil, domain.ErrInvalidCredentials
		}
		return &domain.TokenResponse{Token: "jwt", ExpiresAt: expires, Role: domain.RoleAdmin}, nil
	}

	rec := ts.do(t, "POST", "/api/v1/auth/token", "", domain.TokenRequest{ClientID: "ops", ClientSecret: "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[domain.TokenResponse](t, rec)
	assert.Equal(t, "jwt", resp.Token)
	assert.True(t, expires.Equal(resp.ExpiresAt))

	rec = ts.do(t, "POST", "/api/v1/auth/token", "", domain.TokenRequest{ClientID: "ops", ClientSecret: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, "POST", "/api/v1/auth/token", "", domain.TokenRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest("POST", "/api/v1/auth/token", bytes.NewBufferString("{not json"))
	raw := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)
	body := SearchRequest{}

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"invalid token", "garbage", http.StatusUnauthorized},
		{"expired token", "expired", http.StatusUnauthorized},
		{"reader", readerToken, http.StatusOK},
		{"admin", adminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, "POST", "/api/v1/indexes/products/search", tt.token, body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAdminRequired(t *testing.T) {
	ts := newTestServer(t)

	routes := []struct {
		method, path string
		body         any
	}{
		{"GET", "/api/v1/indexes/products/records", nil},
		{"POST", "/api/v1/indexes/products/records", domain.Record{"objectID": "1"}},
		{"PUT", "/api/v1/indexes/products/records", RecordsRequest{}},
		{"PATCH", "/api/v1/indexes/products/records", RecordsRequest{}},
		{"DELETE", "/api/v1/indexes/products/records", DeleteRecordsRequest{}},
		{"POST", "/api/v1/indexes/products/exports", nil},
		{"GET", "/api/v1/indexes/products/exports", nil},
		{"GET", "/api/v1/exports/abc", nil},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := ts.do(t, rt.method, rt.path, readerToken, rt.body)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t)
	seed(ts.client, "products", 3)

	rec := ts.do(t, "POST", "/api/v1/indexes/products/search", readerToken, SearchRequest{
		SearchQuery: domain.SearchQuery{HitsPerPage: 2},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	page := decode[domain.Page](t, rec)
	assert.Len(t, page.Hits, 2)
	assert.Equal(t, 2, page.NbPages)
	assert.Equal(t, 3, page.NbHits)
}

func TestSearch_SortRoutesToReplica(t *testing.T) {
	tests := []struct {
		sort string
		want string
	}{
		{"minPrice:asc", "products_price_asc"},
		{"createdAt:desc", "products_newest"},
		{"price:sideways", "products"},
		{"", "products"},
	}

	for _, tt := range tests {
		t.Run(tt.sort, func(t *testing.T) {
			ts := newTestServer(t)

			rec := ts.do(t, "POST", "/api/v1/indexes/products/search", readerToken, SearchRequest{Sort: tt.sort})
			require.Equal(t, http.StatusOK, rec.Code)

			require.Len(t, ts.client.SearchCalls, 1)
			assert.Equal(t, tt.want, ts.client.SearchCalls[0].IndexName)
		})
	}
}

func TestSearch_UnknownSortFallsBackToPrimary(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/v1/indexes/products/search", readerToken, SearchRequest{Sort: "price:sideways"})
	require.Equal(t, http.StatusOK, rec.Code)

	logs := ts.logs.String()
	assert.Contains(t, logs, "unknown sort option")
	for _, opt := range domain.SortOptions() {
		assert.Contains(t, logs, string(opt))
	}
}

func TestSearch_BackendErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"bad credentials", domain.ErrUnauthorized, http.StatusBadGateway},
		{"unavailable", domain.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"invalid query", domain.ErrInvalidInput, http.StatusBadRequest},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.client.SearchFn = func(string, domain.SearchQuery) (*domain.Page, error) {
				return nil, tt.err
			}

			rec := ts.do(t, "POST", "/api/v1/indexes/products/search", readerToken, SearchRequest{})
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestMultiSearch(t *testing.T) {
	ts := newTestServer(t)
	seed(ts.client, "products", 2)
	seed(ts.client, "articles", 5)

	rec := ts.do(t, "POST", "/api/v1/search/multi", readerToken, MultiSearchRequest{
		Requests: []domain.IndexedQuery{
			{IndexName: "articles"},
			{IndexName: "products"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[MultiSearchResponse](t, rec)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 5, resp.Results[0].NbHits)
	assert.Equal(t, 2, resp.Results[1].NbHits)

	rec = ts.do(t, "POST", "/api/v1/search/multi", readerToken, MultiSearchRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, "POST", "/api/v1/search/multi", readerToken, MultiSearchRequest{
		Requests: []domain.IndexedQuery{{}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFetchAllRecords(t *testing.T) {
	ts := newTestServer(t)
	seed(ts.client, "products", 25)

	rec := ts.do(t, "GET", "/api/v1/indexes/products/records?pageSize=10", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[RecordsResponse](t, rec)
	assert.Equal(t, 25, resp.NbRecords)
	assert.Len(t, resp.Records, 25)
	assert.Equal(t, 3, resp.NbPages)
	assert.Len(t, ts.client.SearchCalls, 3)

	rec = ts.do(t, "GET", "/api/v1/indexes/products/records?pageSize=ten", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordWrites(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/v1/indexes/products/records", adminToken, domain.Record{"objectID": "1", "name": "shoe"})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Create never overwrites
	rec = ts.do(t, "POST", "/api/v1/indexes/products/records", adminToken, domain.Record{"objectID": "1", "name": "boot"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "shoe", ts.client.Get("products", "1")["name"])

	rec = ts.do(t, "PUT", "/api/v1/indexes/products/records", adminToken, RecordsRequest{
		Records: []domain.Record{{"objectID": "1", "name": "boot"}, {"objectID": "2", "name": "sandal"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"1", "2"}, decode[domain.BatchResult](t, rec).ObjectIDs)
	assert.Equal(t, "boot", ts.client.Get("products", "1")["name"])

	rec = ts.do(t, "PATCH", "/api/v1/indexes/products/records", adminToken, RecordsRequest{
		Records: []domain.Record{{"objectID": "2", "color": "red"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sandal", ts.client.Get("products", "2")["name"])
	assert.Equal(t, "red", ts.client.Get("products", "2")["color"])

	rec = ts.do(t, "DELETE", "/api/v1/indexes/products/records", adminToken, DeleteRecordsRequest{ObjectIDs: []string{"1"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, ts.client.Get("products", "1"))
	assert.Len(t, ts.client.Records("products"), 1)
}

func TestCreateRecord_NullBody(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/v1/indexes/products/records", bytes.NewBufferString("null"))
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFacetValuesAndRecommendations(t *testing.T) {
	ts := newTestServer(t)
	ts.client.Seed("products",
		domain.Record{"objectID": "1", "brand": "acme"},
		domain.Record{"objectID": "2", "brand": "acme"},
		domain.Record{"objectID": "3", "brand": "apex"},
	)

	rec := ts.do(t, "POST", "/api/v1/indexes/products/facets/brand/query", readerToken, domain.FacetValuesQuery{FacetQuery: "ac"})
	require.Equal(t, http.StatusOK, rec.Code)
	values := decode[domain.FacetValues](t, rec)
	require.Len(t, values.FacetHits, 1)
	assert.Equal(t, "acme", values.FacetHits[0].Value)
	assert.Equal(t, 2, values.FacetHits[0].Count)

	rec = ts.do(t, "POST", "/api/v1/recommendations", readerToken, RecommendationsRequest{
		Requests: []domain.RecommendationRequest{
			{IndexName: "products", Model: domain.ModelRelatedProducts, ObjectID: "1", MaxRecommendations: 1},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	recs := decode[RecommendationsResponse](t, rec)
	require.Len(t, recs.Results, 1)
	assert.Len(t, recs.Results[0].Hits, 1)

	rec = ts.do(t, "POST", "/api/v1/recommendations", readerToken, RecommendationsRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExports(t *testing.T) {
	ts := newTestServer(t)
	seed(ts.client, "products", 12)

	rec := ts.do(t, "POST", "/api/v1/indexes/products/exports", adminToken, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	started := decode[domain.Export](t, rec)
	assert.Equal(t, domain.ExportStatusPending, started.Status)
	assert.Equal(t, "ops", started.RequestedBy)
	assert.Equal(t, 1, ts.queue.Pending())

	// Not downloadable until it has run
	rec = ts.do(t, "GET", "/api/v1/exports/"+started.ID+"/download", adminToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	_, err := ts.exports.RunExport(context.Background(), started.ID)
	require.NoError(t, err)

	rec = ts.do(t, "GET", "/api/v1/exports/"+started.ID, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[domain.Export](t, rec)
	assert.Equal(t, domain.ExportStatusCompleted, got.Status)
	assert.Equal(t, 12, got.RecordCount)
	assert.Equal(t, 2, got.PageCount)
	assert.Nil(t, got.Records)

	rec = ts.do(t, "GET", "/api/v1/indexes/products/exports?limit=5", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Export](t, rec), 1)

	rec = ts.do(t, "GET", "/api/v1/exports/missing", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadExport(t *testing.T) {
	ts := newTestServer(t)
	seed(ts.client, "products", 3)

	export, err := ts.exports.StartExport(context.Background(), "products", "ops")
	require.NoError(t, err)
	_, err = ts.exports.RunExport(context.Background(), export.ID)
	require.NoError(t, err)

	rec := ts.do(t, "GET", "/api/v1/exports/"+export.ID+"/download", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	records, err := exportfmt.Read(rec.Body, exportfmt.FormatJSON)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	rec = ts.do(t, "GET", "/api/v1/exports/"+export.ID+"/download?format=yaml", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".yaml")
	records, err = exportfmt.Read(rec.Body, exportfmt.FormatYAML)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	rec = ts.do(t, "GET", "/api/v1/exports/"+export.ID+"/download?format=xml", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartExport_QueueDown(t *testing.T) {
	ts := newTestServer(t)
	ts.queue.EnqueueErr = errors.New("redis down")

	rec := ts.do(t, "POST", "/api/v1/indexes/products/exports", adminToken, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
