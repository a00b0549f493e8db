package domain

import "time"

// ExportStatus is the lifecycle state of an index export
type ExportStatus string

const (
	ExportStatusPending   ExportStatus = "pending"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusCompleted ExportStatus = "completed"
	ExportStatusFailed    ExportStatus = "failed"
)

// Export is a full snapshot of one index, pulled page by page
type Export struct {
	ID          string       `json:"id"`
	IndexName   string       `json:"index_name"`
	Status      ExportStatus `json:"status"`
	RequestedBy string       `json:"requested_by"`
	RecordCount int          `json:"record_count"`
	PageCount   int          `json:"page_count"`
	Records     []Record     `json:"records,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// NewExport creates a pending export for indexName
func NewExport(indexName, requestedBy string) *Export {
	return &Export{
		ID:          GenerateID(),
		IndexName:   indexName,
		Status:      ExportStatusPending,
		RequestedBy: requestedBy,
		CreatedAt:   time.Now(),
	}
}

// MarkRunning records that a worker picked the export up
func (e *Export) MarkRunning() {
	now := time.Now()
	e.Status = ExportStatusRunning
	e.StartedAt = &now
	e.Error = ""
}

// MarkCompleted stores the snapshot
func (e *Export) MarkCompleted(records []Record, pageCount int) {
	now := time.Now()
	e.Status = ExportStatusCompleted
	e.Records = records
	e.RecordCount = len(records)
	e.PageCount = pageCount
	e.CompletedAt = &now
}

// MarkFailed records the error that stopped the export
func (e *Export) MarkFailed(err string) {
	now := time.Now()
	e.Status = ExportStatusFailed
	e.Error = err
	e.CompletedAt = &now
}

// IsTerminal reports whether the export has completed or failed
func (e *Export) IsTerminal() bool {
	return e.Status == ExportStatusCompleted || e.Status == ExportStatusFailed
}

// Summary returns a copy without the record payload
func (e *Export) Summary() *Export {
	c := *e
	c.Records = nil
	return &c
}
