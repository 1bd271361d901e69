package worker

import (
	"context"
	"sync"
	"time"

	"github.com/joacominatel/peerpods/internal/domain"
	"github.com/joacominatel/peerpods/internal/infrastructure/logging"
	"github.com/joacominatel/peerpods/internal/infrastructure/messaging"
)

// Publisher delivers partnership notifications. *messaging.NATSClient satisfies it.
type Publisher interface {
	PublishPartnershipFormed(event messaging.PartnershipFormed) error
}

// PartnershipNotifierConfig holds configuration for the notifier.
type PartnershipNotifierConfig struct {
	BufferSize  int
	WorkerCount int

	// MaxAttempts is how many times one event is published before it's dropped.
	MaxAttempts int
	RetryDelay  time.Duration
}

// DefaultPartnershipNotifierConfig returns the production defaults.
func DefaultPartnershipNotifierConfig() PartnershipNotifierConfig {
	return PartnershipNotifierConfig{
		BufferSize:  1000,
		WorkerCount: 2,
		MaxAttempts: 3,
		RetryDelay:  200 * time.Millisecond,
	}
}

// PartnershipNotifier publishes partnership-formed events off the request path.
type PartnershipNotifier struct {
	events    chan messaging.PartnershipFormed
	publisher Publisher
	config    PartnershipNotifierConfig
	logger    *logging.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

// NewPartnershipNotifier creates a notifier publishing through publisher.
func NewPartnershipNotifier(publisher Publisher, config PartnershipNotifierConfig, logger *logging.Logger) *PartnershipNotifier {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}

	return &PartnershipNotifier{
		events:    make(chan messaging.PartnershipFormed, config.BufferSize),
		publisher: publisher,
		config:    config,
		logger:    logger.WithComponent("partnership_notifier"),
		stopped:   make(chan struct{}),
	}
}

// Start begins the worker goroutines.
func (n *PartnershipNotifier) Start(ctx context.Context) {
	n.logger.Info("partnership notifier starting",
		"buffer_size", n.config.BufferSize,
		"worker_count", n.config.WorkerCount,
	)

	for i := range n.config.WorkerCount {
		n.wg.Add(1)
		go n.runWorker(ctx, i)
	}
}

// Stop drains queued notifications and waits for the workers.
func (n *PartnershipNotifier) Stop() {
	n.stopOnce.Do(func() {
		n.logger.Info("partnership notifier stopping, draining buffer")
		close(n.events)
		n.wg.Wait()
		close(n.stopped)
		n.logger.Info("partnership notifier stopped")
	})
}

// Stopped returns a channel that closes when the notifier has fully stopped.
func (n *PartnershipNotifier) Stopped() <-chan struct{} {
	return n.stopped
}

// NotifyPartnershipFormed queues one notification per participant.
// returns false when the buffer was full and notifications were dropped.
func (n *PartnershipNotifier) NotifyPartnershipFormed(ctx context.Context, p *domain.Partnership, reasons []string) bool {
	queued := true
	for _, event := range messaging.PartnershipFormedEvents(p, reasons) {
		select {
		case n.events <- event:
		case <-ctx.Done():
			return false
		default:
			n.logger.Warn("notification buffer full, event dropped",
				"partnership_id", event.PartnershipID,
				"user_id", event.UserID,
			)
			queued = false
		}
	}
	return queued
}

func (n *PartnershipNotifier) runWorker(ctx context.Context, workerID int) {
	defer n.wg.Done()

	for {
		select {
		case event, ok := <-n.events:
			if !ok {
				n.logger.Debug("worker exiting after drain", "worker_id", workerID)
				return
			}
			n.publish(ctx, event, workerID)

		case <-ctx.Done():
			n.logger.Debug("worker exiting on context cancel", "worker_id", workerID)
			return
		}
	}
}

func (n *PartnershipNotifier) publish(ctx context.Context, event messaging.PartnershipFormed, workerID int) {
	var err error
	for attempt := 1; attempt <= n.config.MaxAttempts; attempt++ {
		if err = n.publisher.PublishPartnershipFormed(event); err == nil {
			n.logger.Debug("partnership notification published",
				"worker_id", workerID,
				"partnership_id", event.PartnershipID,
				"user_id", event.UserID,
				"attempt", attempt,
			)
			return
		}

		if attempt < n.config.MaxAttempts {
			select {
			case <-time.After(n.config.RetryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return
			}
		}
	}

	n.logger.Error("partnership notification failed",
		"worker_id", workerID,
		"partnership_id", event.PartnershipID,
		"user_id", event.UserID,
		"attempts", n.config.MaxAttempts,
		"error", err.Error(),
	)
}
