package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ExportStore = (*ExportStore)(nil)

// ExportStore implements driven.ExportStore using PostgreSQL.
// Snapshot records are kept in a JSONB column.
type ExportStore struct {
	db *DB
}

// NewExportStore creates a new ExportStore
func NewExportStore(db *DB) *ExportStore {
	return &ExportStore{db: db}
}

// Save upserts an export by ID
func (s *ExportStore) Save(ctx context.Context, export *domain.Export) error {
	var records []byte
	if export.Records != nil {
		var err error
		records, err = json.Marshal(export.Records)
		if err != nil {
			return fmt.Errorf("marshal records: %w", err)
		}
	}

	query := `
		INSERT INTO exports (
			id, index_name, status, requested_by, record_count, page_count,
			records, error, created_at, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			record_count = EXCLUDED.record_count,
			page_count = EXCLUDED.page_count,
			records = EXCLUDED.records,
			error = EXCLUDED.error,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		export.ID,
		export.IndexName,
		export.Status,
		export.RequestedBy,
		export.RecordCount,
		export.PageCount,
		records,
		export.Error,
		export.CreatedAt,
		nullTime(export.StartedAt),
		nullTime(export.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("save export %s: %w", export.ID, err)
	}
	return nil
}

// Get retrieves an export with its records
func (s *ExportStore) Get(ctx context.Context, id string) (*domain.Export, error) {
	query := `
		SELECT id, index_name, status, requested_by, record_count, page_count,
			   records, error, created_at, started_at, completed_at
		FROM exports
		WHERE id = $1
	`

	var export domain.Export
	var records []byte
	var startedAt, completedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&export.ID,
		&export.IndexName,
		&export.Status,
		&export.RequestedBy,
		&export.RecordCount,
		&export.PageCount,
		&records,
		&export.Error,
		&export.CreatedAt,
		&startedAt,
		&completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get export %s: %w", id, err)
	}

	if export.Records, err = decodeRecords(records); err != nil {
		return nil, err
	}
	export.StartedAt = timePtr(startedAt)
	export.CompletedAt = timePtr(completedAt)

	return &export, nil
}

// decodeRecords reads the records column. SQL NULL stays nil so unfinished
// exports keep no snapshot; an empty array is an empty, non-nil snapshot.
func decodeRecords(raw []byte) ([]domain.Record, error) {
	if raw == nil {
		return nil, nil
	}
	records := []domain.Record{}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("unmarshal records: %w", err)
	}
	return records, nil
}

// ListByIndex returns the newest exports for an index without their records
func (s *ExportStore) ListByIndex(ctx context.Context, indexName string, limit int) ([]*domain.Export, error) {
	query := `
		SELECT id, index_name, status, requested_by, record_count, page_count,
			   error, created_at, started_at, completed_at
		FROM exports
		WHERE index_name = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, indexName, limit)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	exports := make([]*domain.Export, 0)
	for rows.Next() {
		var export domain.Export
		var startedAt, completedAt sql.NullTime
		if err := rows.Scan(
			&export.ID,
			&export.IndexName,
			&export.Status,
			&export.RequestedBy,
			&export.RecordCount,
			&export.PageCount,
			&export.Error,
			&export.CreatedAt,
			&startedAt,
			&completedAt,
		); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		export.StartedAt = timePtr(startedAt)
		export.CompletedAt = timePtr(completedAt)
		exports = append(exports, &export)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exports: %w", err)
	}

	return exports, nil
}
