package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driven"
)

// idlePause spaces out polls when a queue returns immediately with no task
const idlePause = 100 * time.Millisecond

// Exporter runs one export to completion. Satisfied by driving.ExportService.
type Exporter interface {
	RunExport(ctx context.Context, id string) (*domain.Export, error)
	FailExport(ctx context.Context, id, reason string) (*domain.Export, error)
}

// Worker processes tasks from the task queue.
// Each export_index task runs one export through the Exporter.
type Worker struct {
	taskQueue driven.TaskQueue
	exporter  Exporter
	logger    *slog.Logger

	concurrency    int
	dequeueTimeout int // seconds

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	TaskQueue      driven.TaskQueue
	Exporter       Exporter
	Logger         *slog.Logger
	Concurrency    int // Number of concurrent task processors
	DequeueTimeout int // Seconds to wait for a task before checking again
}

// NewWorker creates a new task worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	return &Worker{
		taskQueue:      cfg.TaskQueue,
		exporter:       cfg.Exporter,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
	}
}

// Start launches the processing goroutines and returns.
// They run until Stop is called or ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop signals the goroutines and waits for in-flight tasks to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	doneCh := w.doneCh
	w.mu.Unlock()

	<-doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	w.mu.RLock()
	doneCh := w.doneCh
	w.mu.RUnlock()
	if doneCh != nil {
		<-doneCh
	}
}

func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Debug("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
		}

		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue task", "error", err)
			w.pause(ctx, time.Second)
			continue
		}

		if task == nil {
			w.pause(ctx, idlePause)
			continue
		}

		w.processTask(ctx, task, logger)
	}
}

func (w *Worker) pause(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// errPermanent marks failures that retrying cannot fix
var errPermanent = errors.New("permanent task failure")

// processTask runs one task and acks or nacks it.
// Permanent failures are acked so they leave the queue.
func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type, "attempt", task.Attempts)
	logger.Info("processing task")

	startTime := time.Now()
	var err error

	switch task.Type {
	case domain.TaskTypeExportIndex:
		err = w.handleExportIndex(ctx, task)
	default:
		err = fmt.Errorf("%w: unknown task type %s", errPermanent, task.Type)
	}

	duration := time.Since(startTime)

	switch {
	case err == nil:
		logger.Info("task completed", "duration", duration)
		if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
			logger.Error("failed to ack task", "ack_error", ackErr)
		}
	case errors.Is(err, errPermanent):
		logger.Error("task dropped", "duration", duration, "error", err)
		if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
			logger.Error("failed to ack task", "ack_error", ackErr)
		}
	default:
		logger.Error("task failed", "duration", duration, "error", err)
		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack task", "nack_error", nackErr)
		}
	}
}

// handleExportIndex runs the export named in the task payload
func (w *Worker) handleExportIndex(ctx context.Context, task *domain.Task) error {
	exportID := task.ExportID()
	if exportID == "" {
		return fmt.Errorf("%w: export_id not found in task payload", errPermanent)
	}

	export, err := w.exporter.RunExport(ctx, exportID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: export %s: %v", errPermanent, exportID, err)
		}
		// The queue drops the task on this nack, so settle the export now
		if !task.CanRetry() {
			if _, failErr := w.exporter.FailExport(ctx, exportID, err.Error()); failErr != nil {
				w.logger.Error("failed to mark export failed", "export_id", exportID, "error", failErr)
			}
		}
		return err
	}

	w.logger.Info("export finished",
		"export_id", export.ID,
		"index", export.IndexName,
		"records", export.RecordCount,
		"pages", export.PageCount,
	)
	return nil
}

// Health is the worker's health snapshot.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{Running: running}
	if err := w.taskQueue.Ping(ctx); err != nil {
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}
	return health
}
