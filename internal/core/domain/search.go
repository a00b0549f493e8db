package domain

// Record is an opaque backend object keyed by its objectID.
// Field names and values are owned by whoever indexed the record.
type Record map[string]any

// ObjectIDField is the attribute the backend uses as the record key
const ObjectIDField = "objectID"

// ObjectID returns the record identifier, or "" when absent or not a string
func (r Record) ObjectID() string {
	id, _ := r[ObjectIDField].(string)
	return id
}

// SearchQuery holds the parameters forwarded to a single-index search
type SearchQuery struct {
	Query                string   `json:"query"`
	Page                 int      `json:"page,omitempty"`
	HitsPerPage          int      `json:"hitsPerPage,omitempty"`
	Filters              string   `json:"filters,omitempty"`
	FacetFilters         []string `json:"facetFilters,omitempty"`
	NumericFilters       []string `json:"numericFilters,omitempty"`
	Facets               []string `json:"facets,omitempty"`
	AttributesToRetrieve []string `json:"attributesToRetrieve,omitempty"`
}

// IndexedQuery pairs a query with the index it targets (multi-search entry)
type IndexedQuery struct {
	IndexName string `json:"indexName"`
	SearchQuery
}

// Page is one bounded batch of hits plus the backend's pagination state
type Page struct {
	Index            string                    `json:"index,omitempty"`
	Hits             []Record                  `json:"hits"`
	Page             int                       `json:"page"`
	NbPages          int                       `json:"nbPages"`
	NbHits           int                       `json:"nbHits"`
	HitsPerPage      int                       `json:"hitsPerPage"`
	Query            string                    `json:"query"`
	Facets           map[string]map[string]int `json:"facets,omitempty"`
	ProcessingTimeMS int                       `json:"processingTimeMS"`
}

// IsLast reports whether no page follows this one.
// An empty index reports zero pages, so its first page is also the last.
func (p *Page) IsLast() bool {
	return p.Page+1 >= p.NbPages
}

// FacetValuesQuery searches the values of a single facet
type FacetValuesQuery struct {
	FacetQuery   string `json:"facetQuery"`
	Filters      string `json:"filters,omitempty"`
	MaxFacetHits int    `json:"maxFacetHits,omitempty"`
}

// FacetHit is one facet value with its occurrence count
type FacetHit struct {
	Value       string `json:"value"`
	Highlighted string `json:"highlighted"`
	Count       int    `json:"count"`
}

// FacetValues is the backend answer to a facet value lookup
type FacetValues struct {
	FacetHits             []FacetHit `json:"facetHits"`
	ExhaustiveFacetsCount bool       `json:"exhaustiveFacetsCount"`
	ProcessingTimeMS      int        `json:"processingTimeMS"`
}

// RecommendationModel selects the backend recommendation strategy
type RecommendationModel string

const (
	ModelRelatedProducts RecommendationModel = "related-products"
	ModelBoughtTogether  RecommendationModel = "bought-together"
	ModelTrendingItems   RecommendationModel = "trending-items"
	ModelLookingSimilar  RecommendationModel = "looking-similar"
)

// RecommendationRequest asks for recommendations around one object
type RecommendationRequest struct {
	IndexName          string              `json:"indexName"`
	Model              RecommendationModel `json:"model"`
	ObjectID           string              `json:"objectID,omitempty"`
	Threshold          int                 `json:"threshold"`
	MaxRecommendations int                 `json:"maxRecommendations,omitempty"`
}

// RecommendationResult holds the hits for one RecommendationRequest
type RecommendationResult struct {
	Hits             []Record `json:"hits"`
	ProcessingTimeMS int      `json:"processingTimeMS"`
}

// BatchAction is a write primitive understood by the backend batch endpoint
type BatchAction string

const (
	ActionAddObject           BatchAction = "addObject"
	ActionUpdateObject        BatchAction = "updateObject"
	ActionPartialUpdateObject BatchAction = "partialUpdateObject"
	ActionDeleteObject        BatchAction = "deleteObject"
)

// BatchOperation is one action in a batch write
type BatchOperation struct {
	Action BatchAction `json:"action"`
	Body   Record      `json:"body"`
}

// BatchResult is the backend acknowledgement of a batch write
type BatchResult struct {
	TaskID    int64    `json:"taskID"`
	ObjectIDs []string `json:"objectIDs"`
}
