package driven

import (
	"context"

	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
)

// ExportStore persists export jobs and their snapshots
type ExportStore interface {
	// Save creates or updates an export, including its records
	Save(ctx context.Context, export *domain.Export) error

	// Get retrieves an export with its records
	Get(ctx context.Context, id string) (*domain.Export, error)

	// ListByIndex returns the newest exports for an index, without records
	ListByIndex(ctx context.Context, indexName string, limit int) ([]*domain.Export, error)
}
