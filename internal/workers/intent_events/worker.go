package intent_events

import (
	"context"

	"github.com/google/uuid"

	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
	"github.com/chainvest-service/chainvest_service/internal/domain/services/ledger"
	"github.com/chainvest-service/chainvest_service/internal/domain/services/notification"
	"github.com/chainvest-service/chainvest_service/internal/domain/services/portfolio"
	"github.com/chainvest-service/chainvest_service/internal/domain/services/verifier"
	"github.com/chainvest-service/chainvest_service/pkg/logger"
)

// EmailResolver maps a user ID to a notification address. Deployments that
// keep user profiles elsewhere plug in their own resolver; the default
// resolves nothing and notifications are skipped.
type EmailResolver interface {
	EmailFor(ctx context.Context, userID uuid.UUID) string
}

type noopResolver struct{}

func (noopResolver) EmailFor(context.Context, uuid.UUID) string { return "" }

// NoopResolver returns a resolver that never finds an address
func NoopResolver() EmailResolver { return noopResolver{} }

// Worker consumes terminal verification events: it refreshes the portfolio
// read side and sends lifecycle notifications. Everything here is an effect
// of an already-committed state change, so failures are logged, never
// retried against the ledger.
type Worker struct {
	events    <-chan verifier.Event
	ledger    *ledger.Service
	portfolio *portfolio.Service
	notifier  *notification.Service
	resolver  EmailResolver
	logger    *logger.Logger
	stopCh    chan struct{}
}

// NewWorker creates a verification event consumer
func NewWorker(
	events <-chan verifier.Event,
	ledgerSvc *ledger.Service,
	portfolioSvc *portfolio.Service,
	notifier *notification.Service,
	resolver EmailResolver,
	logger *logger.Logger,
) *Worker {
	if resolver == nil {
		resolver = NoopResolver()
	}
	return &Worker{
		events:    events,
		ledger:    ledgerSvc,
		portfolio: portfolioSvc,
		notifier:  notifier,
		resolver:  resolver,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Start consumes events until stopped
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Starting verification event consumer")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Verification event consumer stopped (context cancelled)")
			return
		case <-w.stopCh:
			w.logger.Info("Verification event consumer stopped")
			return
		case event := <-w.events:
			w.handle(ctx, event)
		}
	}
}

// Stop stops the worker
func (w *Worker) Stop() {
	close(w.stopCh)
}

// PositionMatured refreshes the portfolio read side and notifies the owner
// that an investment completed. Implements the accrual maturity hook.
func (w *Worker) PositionMatured(ctx context.Context, userID uuid.UUID, position *entities.InvestmentPosition) {
	w.portfolio.Invalidate(ctx, userID)

	if email := w.resolver.EmailFor(ctx, userID); email != "" {
		w.notifier.NotifyPositionMatured(ctx, email, position.PlanName, position.TargetValueUSD)
	}
}

func (w *Worker) handle(ctx context.Context, event verifier.Event) {
	w.portfolio.Invalidate(ctx, event.UserID)

	switch event.Outcome {
	case verifier.OutcomeCompleted:
		intent, err := w.ledger.GetIntent(ctx, event.UserID, event.IntentID)
		if err != nil {
			w.logger.Error("Failed to load confirmed intent for event",
				"intent_id", event.IntentID, "error", err)
			return
		}

		account, err := w.portfolio.AccountFor(ctx, event.UserID)
		if err != nil {
			w.logger.Error("Failed to resolve account for snapshot",
				"user_id", event.UserID, "error", err)
		} else if err := w.portfolio.CaptureSnapshot(ctx, account.ID); err != nil {
			w.logger.Error("Failed to capture snapshot after confirmation",
				"account_id", account.ID, "error", err)
		}

		if email := w.resolver.EmailFor(ctx, event.UserID); email != "" {
			amount := intent.Amount
			if intent.ObservedAmount != nil {
				amount = *intent.ObservedAmount
			}
			w.notifier.NotifyDepositConfirmed(ctx, email, event.TxHash, amount, string(intent.Currency))
		}

	case verifier.OutcomeFailed:
		if email := w.resolver.EmailFor(ctx, event.UserID); email != "" {
			w.notifier.NotifyDepositFailed(ctx, email)
		}

	case verifier.OutcomeConflict:
		claimedBy := "unknown"
		if holder, err := w.ledger.FindByTxHash(ctx, event.TxHash); err == nil {
			claimedBy = holder.ID.String()
		}
		w.logger.Warn("Duplicate hash conflict, intent failed",
			"intent_id", event.IntentID, "tx_hash", event.TxHash,
			"claimed_by", claimedBy)
		w.notifier.NotifyHashConflict(ctx, event.IntentID, event.TxHash)
		if email := w.resolver.EmailFor(ctx, event.UserID); email != "" {
			w.notifier.NotifyDepositFailed(ctx, email)
		}
	}
}
