package worker

import (
	"context"
	"sync"
	"time"

	"github.com/joacominatel/peerpods/internal/domain"
	"github.com/joacominatel/peerpods/internal/infrastructure/logging"
)

// MetricsRecorder abstracts prometheus metrics for the ingestion worker.
type MetricsRecorder interface {
	RecordActivityIngested(eventType string)
	SetBufferSize(size int)
}

// ActivityIngestionConfig holds configuration for the ingestion worker.
type ActivityIngestionConfig struct {
	// BufferSize is the capacity of the event channel.
	BufferSize int

	// BatchSize is the number of events to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time a partial batch waits.
	FlushInterval time.Duration

	WorkerCount int
}

// DefaultActivityIngestionConfig returns the production defaults.
func DefaultActivityIngestionConfig() ActivityIngestionConfig {
	return ActivityIngestionConfig{
		BufferSize:    5000,
		BatchSize:     100,
		FlushInterval: 500 * time.Millisecond,
		WorkerCount:   2,
	}
}

// ActivityIngestionWorker persists activity events from a buffered channel in batches.
type ActivityIngestionWorker struct {
	eventChan chan *domain.ActivityEvent
	repo      domain.ActivityEventRepository
	config    ActivityIngestionConfig
	logger    *logging.Logger
	metrics   MetricsRecorder

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

// NewActivityIngestionWorker creates a new ingestion worker.
func NewActivityIngestionWorker(
	repo domain.ActivityEventRepository,
	config ActivityIngestionConfig,
	logger *logging.Logger,
) *ActivityIngestionWorker {
	if config.BatchSize <= 0 {
		config.BatchSize = 1
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = time.Second
	}

	return &ActivityIngestionWorker{
		eventChan: make(chan *domain.ActivityEvent, config.BufferSize),
		repo:      repo,
		config:    config,
		logger:    logger.WithComponent("activity_ingestion_worker"),
		stopped:   make(chan struct{}),
	}
}

// WithMetrics sets the metrics recorder.
func (w *ActivityIngestionWorker) WithMetrics(m MetricsRecorder) *ActivityIngestionWorker {
	w.metrics = m
	return w
}

// EventChannel returns the channel use cases push events into.
func (w *ActivityIngestionWorker) EventChannel() chan<- *domain.ActivityEvent {
	return w.eventChan
}

// Start begins the worker goroutines.
func (w *ActivityIngestionWorker) Start(ctx context.Context) {
	w.logger.Info("activity ingestion worker starting",
		"buffer_size", w.config.BufferSize,
		"batch_size", w.config.BatchSize,
		"flush_interval", w.config.FlushInterval.String(),
		"worker_count", w.config.WorkerCount,
	)

	for i := range w.config.WorkerCount {
		w.wg.Add(1)
		go w.runWorker(ctx, i)
	}
}

// Stop closes the channel and waits until every queued event is flushed.
// nothing may be sent on EventChannel after Stop.
func (w *ActivityIngestionWorker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("activity ingestion worker stopping, draining buffer")
		close(w.eventChan)
		w.wg.Wait()
		close(w.stopped)
		w.logger.Info("activity ingestion worker stopped")
	})
}

// Stopped returns a channel that closes when the worker has fully stopped.
func (w *ActivityIngestionWorker) Stopped() <-chan struct{} {
	return w.stopped
}

// QueueSize returns the number of events waiting in the buffer.
func (w *ActivityIngestionWorker) QueueSize() int {
	return len(w.eventChan)
}

func (w *ActivityIngestionWorker) runWorker(ctx context.Context, workerID int) {
	defer w.wg.Done()

	batch := make([]*domain.ActivityEvent, 0, w.config.BatchSize)
	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		w.flushBatch(ctx, batch, workerID)
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-w.eventChan:
			if !ok {
				flush(ctx)
				w.logger.Debug("worker exiting after drain", "worker_id", workerID)
				return
			}

			batch = append(batch, event)
			if len(batch) >= w.config.BatchSize {
				flush(ctx)
			}

		case <-ticker.C:
			flush(ctx)

		case <-ctx.Done():
			// ctx is gone, the last flush gets its own deadline
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			flush(flushCtx)
			cancel()
			w.logger.Debug("worker exiting on context cancel", "worker_id", workerID)
			return
		}
	}
}

func (w *ActivityIngestionWorker) flushBatch(ctx context.Context, batch []*domain.ActivityEvent, workerID int) {
	start := time.Now()
	err := w.repo.SaveBatch(ctx, batch)
	duration := time.Since(start)

	if err != nil {
		w.logger.Error("batch save failed",
			"worker_id", workerID,
			"batch_size", len(batch),
			"error", err.Error(),
			"duration_ms", duration.Milliseconds(),
		)
		return
	}

	if w.metrics != nil {
		for _, event := range batch {
			w.metrics.RecordActivityIngested(event.EventType().String())
		}
		w.metrics.SetBufferSize(len(w.eventChan))
	}

	w.logger.Debug("batch flushed",
		"worker_id", workerID,
		"batch_size", len(batch),
		"duration_ms", duration.Milliseconds(),
	)
}

// IngestionStats is a snapshot of the worker's queue.
type IngestionStats struct {
	QueueSize   int
	BufferSize  int
	WorkerCount int
}

// Stats returns current worker statistics.
func (w *ActivityIngestionWorker) Stats() IngestionStats {
	return IngestionStats{
		QueueSize:   len(w.eventChan),
		BufferSize:  w.config.BufferSize,
		WorkerCount: w.config.WorkerCount,
	}
}
