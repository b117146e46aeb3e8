package intent_reaper

import (
	"context"
	"time"

	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
	"github.com/chainvest-service/chainvest_service/internal/domain/services/ledger"
	"github.com/chainvest-service/chainvest_service/pkg/logger"
)

// Worker fails pending intents that outlived their tracking deadline.
// It is the durable backstop behind the in-process pollers: intents whose
// poller died with the process still expire on schedule.
type Worker struct {
	ledger        *ledger.Service
	deadline      time.Duration
	checkInterval time.Duration
	logger        *logger.Logger
	stopCh        chan struct{}
}

// Config holds worker configuration
type Config struct {
	Deadline      time.Duration
	CheckInterval time.Duration
}

// DefaultConfig returns default worker configuration
func DefaultConfig() *Config {
	return &Config{
		Deadline:      entities.IntentTimeoutMinutes * time.Minute,
		CheckInterval: 5 * time.Minute,
	}
}

// NewWorker creates a new intent reaper worker
func NewWorker(ledgerSvc *ledger.Service, config *Config, logger *logger.Logger) *Worker {
	if config == nil {
		config = DefaultConfig()
	}
	return &Worker{
		ledger:        ledgerSvc,
		deadline:      config.Deadline,
		checkInterval: config.CheckInterval,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
}

// Start begins the reaper loop
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Starting intent reaper worker",
		"deadline", w.deadline.String(),
		"check_interval", w.checkInterval.String())

	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.reap(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Intent reaper worker stopped (context cancelled)")
			return
		case <-w.stopCh:
			w.logger.Info("Intent reaper worker stopped")
			return
		case <-ticker.C:
			w.reap(ctx)
		}
	}
}

// Stop stops the worker
func (w *Worker) Stop() {
	close(w.stopCh)
}

func (w *Worker) reap(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-w.deadline)

	report, err := w.ledger.Reap(ctx, cutoff)
	if err != nil {
		w.logger.Error("Intent reap failed", "error", err)
		return
	}

	if report.FailedCount > 0 {
		w.logger.Info("Intent reap completed",
			"failed_count", report.FailedCount,
			"cutoff", cutoff.Format(time.RFC3339))
	}
}

// RunOnce runs one reap pass (for the admin endpoint and tests)
func (w *Worker) RunOnce(ctx context.Context) (*entities.ReapReport, error) {
	cutoff := time.Now().UTC().Add(-w.deadline)
	return w.ledger.Reap(ctx, cutoff)
}
