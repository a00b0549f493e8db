package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driving"
)

// Ensure exportService implements ExportService
var _ driving.ExportService = (*exportService)(nil)

const (
	defaultExportLockTTL = 30 * time.Minute
	defaultListLimit     = 20
	maxListLimit         = 100
)

// ExportServiceConfig holds dependencies for the export service
type ExportServiceConfig struct {
	Indexes   driving.IndexService
	Store     driven.ExportStore
	TaskQueue driven.TaskQueue
	Lock      driven.DistributedLock
	Logger    *slog.Logger

	// PageSize is passed to FetchAllRecords (0 uses the default policy)
	PageSize int

	// LockTTL bounds how long one export may hold its index lock
	LockTTL time.Duration
}

// exportService implements the ExportService interface
type exportService struct {
	indexes   driving.IndexService
	store     driven.ExportStore
	taskQueue driven.TaskQueue
	lock      driven.DistributedLock
	logger    *slog.Logger
	pageSize  int
	lockTTL   time.Duration
}

// NewExportService creates a new ExportService
func NewExportService(cfg ExportServiceConfig) driving.ExportService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultExportLockTTL
	}
	return &exportService{
		indexes:   cfg.Indexes,
		store:     cfg.Store,
		taskQueue: cfg.TaskQueue,
		lock:      cfg.Lock,
		logger:    logger,
		pageSize:  cfg.PageSize,
		lockTTL:   lockTTL,
	}
}

// StartExport records a pending export and queues it
func (s *exportService) StartExport(ctx context.Context, indexName, requestedBy string) (*domain.Export, error) {
	if indexName == "" {
		return nil, domain.ErrInvalidInput
	}

	export := domain.NewExport(indexName, requestedBy)
	if err := s.store.Save(ctx, export); err != nil {
		return nil, fmt.Errorf("save export: %w", err)
	}

	if err := s.taskQueue.Enqueue(ctx, domain.NewExportTask(export.ID, indexName)); err != nil {
		export.MarkFailed("enqueue failed: " + err.Error())
		_ = s.store.Save(ctx, export)
		return nil, fmt.Errorf("enqueue export: %w", err)
	}

	s.logger.Info("export queued", "export_id", export.ID, "index", indexName, "requested_by", requestedBy)
	return export, nil
}

// GetExport returns an export including its records
func (s *exportService) GetExport(ctx context.Context, id string) (*domain.Export, error) {
	return s.store.Get(ctx, id)
}

// ListExports returns recent exports of an index
func (s *exportService) ListExports(ctx context.Context, indexName string, limit int) ([]*domain.Export, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.store.ListByIndex(ctx, indexName, limit)
}

// RunExport pulls every record of the export's index and stores the snapshot.
// Completed exports are returned untouched so redelivered tasks are harmless.
func (s *exportService) RunExport(ctx context.Context, id string) (*domain.Export, error) {
	export, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if export.Status == domain.ExportStatusCompleted {
		return export, nil
	}

	lockName := "export:" + export.IndexName
	acquired, err := s.lock.Acquire(ctx, lockName, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire export lock: %w", err)
	}
	if !acquired {
		return nil, domain.ErrExportInProgress
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), lockName); err != nil {
			s.logger.Warn("failed to release export lock", "lock", lockName, "error", err)
		}
	}()

	logger := s.logger.With("export_id", export.ID, "index", export.IndexName)
	logger.Info("export started")
	start := time.Now()

	export.MarkRunning()
	if err := s.store.Save(ctx, export); err != nil {
		return nil, fmt.Errorf("save export: %w", err)
	}

	// The lock is extended while the fetch runs; losing it cancels the fetch
	fetchCtx, cancelFetch := context.WithCancelCause(ctx)
	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)
		s.extendLock(fetchCtx, cancelFetch, lockName, logger)
	}()

	records, pages, err := s.indexes.FetchAllRecords(fetchCtx, export.IndexName, s.pageSize)
	if err != nil && ctx.Err() == nil {
		if cause := context.Cause(fetchCtx); cause != nil {
			err = cause
		}
	}
	cancelFetch(nil)
	<-heartbeatDone

	if err != nil {
		export.MarkFailed(err.Error())
		if saveErr := s.store.Save(context.WithoutCancel(ctx), export); saveErr != nil {
			logger.Error("failed to record export failure", "error", saveErr)
		}
		logger.Error("export failed", "error", err, "duration", time.Since(start))
		return export, err
	}

	export.MarkCompleted(records, pages)
	if err := s.store.Save(ctx, export); err != nil {
		return nil, fmt.Errorf("save export: %w", err)
	}

	logger.Info("export completed",
		"records", export.RecordCount,
		"pages", export.PageCount,
		"duration", time.Since(start),
	)
	return export, nil
}

// extendLock renews the export lock every third of its TTL until ctx ends.
// A failed renewal cancels the export through lost.
func (s *exportService) extendLock(ctx context.Context, lost context.CancelCauseFunc, lockName string, logger *slog.Logger) {
	interval := s.lockTTL / 3
	if interval <= 0 {
		interval = s.lockTTL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.lock.Extend(ctx, lockName, s.lockTTL); err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error("export lock lost", "lock", lockName, "error", err)
				lost(fmt.Errorf("extend export lock: %w", err))
				return
			}
		}
	}
}

// FailExport marks an export failed after its task ran out of attempts
func (s *exportService) FailExport(ctx context.Context, id, reason string) (*domain.Export, error) {
	export, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if export.IsTerminal() {
		return export, nil
	}

	export.MarkFailed(reason)
	if err := s.store.Save(ctx, export); err != nil {
		return nil, fmt.Errorf("save export: %w", err)
	}

	s.logger.Warn("export abandoned", "export_id", export.ID, "index", export.IndexName, "reason", reason)
	return export, nil
}
