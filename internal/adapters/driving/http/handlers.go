package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
	"github.com/custodia-labs/sercha-catalog/internal/exportfmt"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 10 << 20

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// ReadyResponse reports each dependency checked by /ready
// @Description Readiness with per-dependency status
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks,omitempty"`
}

// SearchRequest is a single-index query with an optional sort option
// @Description Search query; sort is one of minPrice:asc, minPrice:desc, avgRating:asc, avgRating:desc, createdAt:desc
type SearchRequest struct {
	domain.SearchQuery
	Sort string `json:"sort,omitempty" example:"minPrice:asc"`
}

// MultiSearchRequest holds queries against several indexes
type MultiSearchRequest struct {
	Requests []domain.IndexedQuery `json:"requests"`
}

// MultiSearchResponse holds one page per request, in request order
type MultiSearchResponse struct {
	Results []*domain.Page `json:"results"`
}

// RecordsRequest carries records for bulk writes
type RecordsRequest struct {
	Records []domain.Record `json:"records"`
}

// DeleteRecordsRequest lists the objectIDs to delete
type DeleteRecordsRequest struct {
	ObjectIDs []string `json:"objectIDs"`
}

// RecordsResponse is the full content of an index
type RecordsResponse struct {
	Index     string          `json:"index"`
	Records   []domain.Record `json:"records"`
	NbRecords int             `json:"nbRecords"`
	NbPages   int             `json:"nbPages"`
}

// RecommendationsRequest holds recommendation requests
type RecommendationsRequest struct {
	Requests []domain.RecommendationRequest `json:"requests"`
}

// RecommendationsResponse holds one result per request, in request order
type RecommendationsResponse struct {
	Results []*domain.RecommendationResult `json:"results"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the liveness of the API process
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the search backend, database and queue
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string, len(s.readiness))}
	status := http.StatusOK
	for name, p := range s.readiness {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", "dependency", name, "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// Auth endpoints

// handleIssueToken godoc
// @Summary      Issue API token
// @Description  Exchange client credentials for a bearer token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.TokenRequest  true  "Client credentials"
// @Success      200      {object}  domain.TokenResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid credentials"
// @Router       /auth/token [post]
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req domain.TokenRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := s.authService.IssueToken(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "client_id and client_secret are required")
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			s.logger.Error("issue token failed", "error", err)
			writeError(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Search endpoints

// handleSearch godoc
// @Summary      Search an index
// @Description  Query one index. A known sort option routes the query to its replica; unknown options query the primary index.
// @Tags         Search
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        index    path      string         true  "Index name"
// @Param        request  body      SearchRequest  true  "Query"
// @Success      200      {object}  domain.Page
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      502      {object}  ErrorResponse  "Search backend error"
// @Router       /indexes/{index}/search [post]
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	index := r.PathValue("index")

	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var (
		page *domain.Page
		err  error
	)
	if req.Sort != "" {
		if _, known := domain.ParseSortOption(req.Sort); !known {
			s.logger.Warn("unknown sort option, querying primary index",
				"index", index,
				"sort", req.Sort,
				"supported", domain.SortOptions(),
			)
		}
		page, err = s.indexService.SearchSorted(r.Context(), index, domain.SortOption(req.Sort), req.SearchQuery)
	} else {
		page, err = s.indexService.Search(r.Context(), index, req.SearchQuery)
	}
	if err != nil {
		s.writeServiceError(w, err, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// handleMultiSearch godoc
// @Summary      Search several indexes
// @Description  Run several queries in one round trip; results are returned in request order
// @Tags         Search
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      MultiSearchRequest  true  "Queries"
// @Success      200      {object}  MultiSearchResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Router       /search/multi [post]
func (s *Server) handleMultiSearch(w http.ResponseWriter, r *http.Request) {
	var req MultiSearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Requests) == 0 {
		writeError(w, http.StatusBadRequest, "at least one request is required")
		return
	}
	for i, q := range req.Requests {
		if q.IndexName == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("requests[%d]: indexName is required", i))
			return
		}
	}

	pages, err := s.indexService.MultiSearch(r.Context(), req.Requests)
	if err != nil {
		s.writeServiceError(w, err, "multi search failed")
		return
	}

	writeJSON(w, http.StatusOK, MultiSearchResponse{Results: pages})
}

// handleFacetValues godoc
// @Summary      Search facet values
// @Description  Find values of a facet matching a prefix
// @Tags         Search
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        index    path      string                   true  "Index name"
// @Param        facet    path      string                   true  "Facet attribute"
// @Param        request  body      domain.FacetValuesQuery  true  "Facet query"
// @Success      200      {object}  domain.FacetValues
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Router       /indexes/{index}/facets/{facet}/query [post]
func (s *Server) handleFacetValues(w http.ResponseWriter, r *http.Request) {
	var req domain.FacetValuesQuery
	if !decodeBody(w, r, &req) {
		return
	}

	values, err := s.indexService.GetFacetValues(r.Context(), r.PathValue("index"), r.PathValue("facet"), req)
	if err != nil {
		s.writeServiceError(w, err, "facet search failed")
		return
	}

	writeJSON(w, http.StatusOK, values)
}

// handleRecommendations godoc
// @Summary      Get recommendations
// @Description  Fetch recommendations; results are returned in request order
// @Tags         Search
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      RecommendationsRequest  true  "Recommendation requests"
// @Success      200      {object}  RecommendationsResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Router       /recommendations [post]
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req RecommendationsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Requests) == 0 {
		writeError(w, http.StatusBadRequest, "at least one request is required")
		return
	}

	results, err := s.indexService.GetRecommendations(r.Context(), req.Requests)
	if err != nil {
		s.writeServiceError(w, err, "recommendations failed")
		return
	}

	writeJSON(w, http.StatusOK, RecommendationsResponse{Results: results})
}

// Record endpoints

// handleFetchAllRecords godoc
// @Summary      Read a whole index
// @Description  Page through every record of the index (admin only). Use exports for large indexes.
// @Tags         Records
// @Produce      json
// @Security     BearerAuth
// @Param        index     path      string  true   "Index name"
// @Param        pageSize  query     int     false  "Page size (max 1000)"
// @Success      200       {object}  RecordsResponse
// @Failure      403       {object}  ErrorResponse  "Forbidden - admin only"
// @Router       /indexes/{index}/records [get]
func (s *Server) handleFetchAllRecords(w http.ResponseWriter, r *http.Request) {
	index := r.PathValue("index")

	pageSize := 0
	if v := r.URL.Query().Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "pageSize must be an integer")
			return
		}
		pageSize = n
	}

	records, nbPages, err := s.indexService.FetchAllRecords(r.Context(), index, pageSize)
	if err != nil {
		s.writeServiceError(w, err, "failed to read index")
		return
	}

	writeJSON(w, http.StatusOK, RecordsResponse{
		Index:     index,
		Records:   records,
		NbRecords: len(records),
		NbPages:   nbPages,
	})
}

// handleCreateRecord godoc
// @Summary      Create a record
// @Description  Add one record; fails if the objectID already exists (admin only)
// @Tags         Records
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        index    path      string         true  "Index name"
// @Param        request  body      domain.Record  true  "Record"
// @Success      201      {object}  domain.BatchResult
// @Failure      409      {object}  ErrorResponse  "Record already exists"
// @Router       /indexes/{index}/records [post]
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var record domain.Record
	if !decodeBody(w, r, &record) {
		return
	}
	if record == nil {
		writeError(w, http.StatusBadRequest, "record is required")
		return
	}

	result, err := s.indexService.Create(r.Context(), r.PathValue("index"), record)
	if err != nil {
		s.writeServiceError(w, err, "failed to create record")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// handleCreateOrUpdateRecords godoc
// @Summary      Replace records
// @Description  Create or fully replace records by objectID (admin only)
// @Tags         Records
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        index    path      string          true  "Index name"
// @Param        request  body      RecordsRequest  true  "Records"
// @Success      200      {object}  domain.BatchResult
// @Router       /indexes/{index}/records [put]
func (s *Server) handleCreateOrUpdateRecords(w http.ResponseWriter, r *http.Request) {
	var req RecordsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.indexService.CreateOrUpdate(r.Context(), r.PathValue("index"), req.Records)
	if err != nil {
		s.writeServiceError(w, err, "failed to write records")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handlePartialUpdateRecords godoc
// @Summary      Update record attributes
// @Description  Merge attributes into existing records (admin only)
// @Tags         Records
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        index    path      string          true  "Index name"
// @Param        request  body      RecordsRequest  true  "Partial records"
// @Success      200      {object}  domain.BatchResult
// @Router       /indexes/{index}/records [patch]
func (s *Server) handlePartialUpdateRecords(w http.ResponseWriter, r *http.Request) {
	var req RecordsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.indexService.BatchUpdate(r.Context(), r.PathValue("index"), req.Records)
	if err != nil {
		s.writeServiceError(w, err, "failed to update records")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleDeleteRecords godoc
// @Summary      Delete records
// @Description  Delete records by objectID (admin only)
// @Tags         Records
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        index    path      string                true  "Index name"
// @Param        request  body      DeleteRecordsRequest  true  "Object IDs"
// @Success      200      {object}  domain.BatchResult
// @Router       /indexes/{index}/records [delete]
func (s *Server) handleDeleteRecords(w http.ResponseWriter, r *http.Request) {
	var req DeleteRecordsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.indexService.Delete(r.Context(), r.PathValue("index"), req.ObjectIDs)
	if err != nil {
		s.writeServiceError(w, err, "failed to delete records")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Export endpoints

// handleStartExport godoc
// @Summary      Start an export
// @Description  Queue a background export of the whole index (admin only)
// @Tags         Exports
// @Produce      json
// @Security     BearerAuth
// @Param        index  path      string  true  "Index name"
// @Success      202    {object}  domain.Export
// @Failure      503    {object}  ErrorResponse  "Queue unavailable"
// @Router       /indexes/{index}/exports [post]
func (s *Server) handleStartExport(w http.ResponseWriter, r *http.Request) {
	requestedBy := ""
	if authCtx := GetAuthContext(r.Context()); authCtx != nil {
		requestedBy = authCtx.ClientID
	}

	export, err := s.exportService.StartExport(r.Context(), r.PathValue("index"), requestedBy)
	if err != nil {
		s.writeServiceError(w, err, "failed to start export")
		return
	}

	writeJSON(w, http.StatusAccepted, export)
}

// handleListExports godoc
// @Summary      List exports
// @Description  Recent exports of an index, newest first, without records (admin only)
// @Tags         Exports
// @Produce      json
// @Security     BearerAuth
// @Param        index  path      string  true   "Index name"
// @Param        limit  query     int     false  "Max results (default 20, max 100)"
// @Success      200    {array}   domain.Export
// @Router       /indexes/{index}/exports [get]
func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	exports, err := s.exportService.ListExports(r.Context(), r.PathValue("index"), limit)
	if err != nil {
		s.writeServiceError(w, err, "failed to list exports")
		return
	}

	writeJSON(w, http.StatusOK, exports)
}

// handleGetExport godoc
// @Summary      Get export status
// @Description  Status and counters of one export, without records (admin only)
// @Tags         Exports
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Export ID"
// @Success      200  {object}  domain.Export
// @Failure      404  {object}  ErrorResponse  "Export not found"
// @Router       /exports/{id} [get]
func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	export, err := s.exportService.GetExport(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err, "failed to get export")
		return
	}

	writeJSON(w, http.StatusOK, export.Summary())
}

// handleDownloadExport godoc
// @Summary      Download export records
// @Description  Records of a completed export as JSON or YAML (admin only)
// @Tags         Exports
// @Produce      json
// @Produce      application/yaml
// @Security     BearerAuth
// @Param        id      path      string  true   "Export ID"
// @Param        format  query     string  false  "json (default) or yaml"
// @Success      200     {array}   domain.Record
// @Failure      404     {object}  ErrorResponse  "Export not found"
// @Failure      409     {object}  ErrorResponse  "Export not completed"
// @Router       /exports/{id}/download [get]
func (s *Server) handleDownloadExport(w http.ResponseWriter, r *http.Request) {
	format, err := exportfmt.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	export, err := s.exportService.GetExport(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err, "failed to get export")
		return
	}
	if export.Status != domain.ExportStatusCompleted {
		writeError(w, http.StatusConflict, fmt.Sprintf("export is %s", export.Status))
		return
	}

	contentType := "application/json"
	if format == exportfmt.FormatYAML {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s-%s.%s"`, export.IndexName, export.ID, format.Extension()))
	w.WriteHeader(http.StatusOK)

	if err := exportfmt.Write(w, format, export.Records); err != nil {
		s.logger.Error("write export failed", "export_id", export.ID, "error", err)
	}
}

// Helpers

// writeServiceError maps domain errors to HTTP statuses.
// Client errors carry the error text; server errors use fallback.
func (s *Server) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrExportInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "search backend rate limit reached")
	case errors.Is(err, domain.ErrUnauthorized):
		s.logger.Error(fallback, "error", err)
		writeError(w, http.StatusBadGateway, "search backend rejected the configured credentials")
	case errors.Is(err, domain.ErrServiceUnavailable):
		s.logger.Error(fallback, "error", err)
		writeError(w, http.StatusServiceUnavailable, "search backend unavailable")
	default:
		s.logger.Error(fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// decodeBody decodes a JSON body into v, writing a 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
