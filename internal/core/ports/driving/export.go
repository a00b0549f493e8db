package driving

import (
	"context"

	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
)

// ExportService runs full-index exports in the background
type ExportService interface {
	// StartExport records a pending export and queues it for a worker
	StartExport(ctx context.Context, indexName, requestedBy string) (*domain.Export, error)

	// GetExport returns an export including its records
	GetExport(ctx context.Context, id string) (*domain.Export, error)

	// ListExports returns recent exports of an index, newest first, without records
	ListExports(ctx context.Context, indexName string, limit int) ([]*domain.Export, error)

	// RunExport performs the export (worker side)
	RunExport(ctx context.Context, id string) (*domain.Export, error)

	// FailExport records a final failure once the export's task has no
	// attempts left. Exports already completed or failed are returned as is.
	FailExport(ctx context.Context, id, reason string) (*domain.Export, error)
}
