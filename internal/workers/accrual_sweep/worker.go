package accrual_sweep

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/chainvest-service/chainvest_service/internal/domain/services/accrual"
	"github.com/chainvest-service/chainvest_service/pkg/logger"
)

// Worker runs the accrual sweep on a cron schedule. The default spec fires
// at the top of every hour, matching the hourly growth quantization: running
// it more often changes nothing, running it late catches up in one pass.
type Worker struct {
	engine     *accrual.Engine
	cronSpec   string
	jobTimeout time.Duration
	cron       *cron.Cron
	logger     *logger.Logger
}

// Config holds worker configuration
type Config struct {
	CronSpec   string
	JobTimeout time.Duration
}

// DefaultConfig returns default worker configuration
func DefaultConfig() *Config {
	return &Config{
		CronSpec:   "0 * * * *",
		JobTimeout: 5 * time.Minute,
	}
}

// NewWorker creates a new accrual sweep worker
func NewWorker(engine *accrual.Engine, config *Config, logger *logger.Logger) *Worker {
	if config == nil {
		config = DefaultConfig()
	}
	return &Worker{
		engine:     engine,
		cronSpec:   config.CronSpec,
		jobTimeout: config.JobTimeout,
		cron:       cron.New(),
		logger:     logger,
	}
}

// Start schedules the sweep job
func (w *Worker) Start() error {
	_, err := w.cron.AddFunc(w.cronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
		defer cancel()

		if _, err := w.engine.SweepAll(ctx); err != nil {
			w.logger.Error("Scheduled accrual sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	w.cron.Start()
	w.logger.Info("Accrual sweep worker started", "cron_spec", w.cronSpec)
	return nil
}

// Stop halts the cron scheduler and waits for a running job to finish
func (w *Worker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
	w.logger.Info("Accrual sweep worker stopped")
}

// RunOnce triggers a single sweep (for the admin endpoint and tests)
func (w *Worker) RunOnce(ctx context.Context) error {
	_, err := w.engine.SweepAll(ctx)
	return err
}
