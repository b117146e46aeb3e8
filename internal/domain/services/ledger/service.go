// Package ledger owns the lifecycle of transaction intents: creation,
// the single pending -> completed transition that claims an on-chain hash,
// failure, and reaping of stale intents.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
	domainerrors "github.com/chainvest-service/chainvest_service/internal/domain/errors"
	"github.com/chainvest-service/chainvest_service/internal/infrastructure/database"
	"github.com/chainvest-service/chainvest_service/internal/infrastructure/repositories"
	"github.com/chainvest-service/chainvest_service/pkg/logger"
	"github.com/chainvest-service/chainvest_service/pkg/metrics"
)

// Crediter applies the downstream effects of a confirmed deposit inside the
// same database transaction that records the confirmation. The credit
// commits if and only if the state transition commits, so a deposit can
// never be credited twice or confirmed without its credit.
type Crediter interface {
	CreditDepositTx(ctx context.Context, tx *sqlx.Tx, intent *entities.TransactionIntent) error
}

// Service handles transaction intent operations
type Service struct {
	intentRepo *repositories.IntentRepository
	crediter   Crediter
	db         *sqlx.DB
	logger     *logger.Logger
}

// NewService creates a new ledger service
func NewService(
	intentRepo *repositories.IntentRepository,
	crediter Crediter,
	db *sqlx.DB,
	logger *logger.Logger,
) *Service {
	return &Service{
		intentRepo: intentRepo,
		crediter:   crediter,
		db:         db,
		logger:     logger,
	}
}

// CreateIntent records a new pending transaction intent
func (s *Service) CreateIntent(ctx context.Context, userID uuid.UUID, req *entities.CreateIntentRequest) (*entities.TransactionIntent, error) {
	currency := req.Currency
	if !currency.IsValid() {
		return nil, domainerrors.ValidationError("currency", "unsupported currency")
	}
	// Amount is stored as a positive magnitude regardless of the sign the
	// caller sent
	amount := req.Amount.Abs()
	if amount.IsZero() {
		return nil, domainerrors.ValidationError("amount", "amount must be a non-zero decimal")
	}
	if req.Address == "" {
		return nil, domainerrors.ValidationError("address", "deposit address is required")
	}

	intent := &entities.TransactionIntent{
		ID:          uuid.New(),
		UserID:      userID,
		Address:     req.Address,
		Currency:    currency,
		Amount:      amount,
		Status:      entities.IntentStatusPending,
		InitiatedAt: time.Now().UTC(),
	}

	if err := s.intentRepo.Create(ctx, intent); err != nil {
		return nil, err
	}

	metrics.IntentsCreatedTotal.WithLabelValues(string(currency)).Inc()
	s.logger.Info("Transaction intent created",
		"intent_id", intent.ID,
		"user_id", userID,
		"currency", currency,
		"amount", amount)

	return intent, nil
}

// GetIntent returns an intent owned by the user
func (s *Service) GetIntent(ctx context.Context, userID, intentID uuid.UUID) (*entities.TransactionIntent, error) {
	intent, err := s.intentRepo.GetByID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if intent.UserID != userID {
		return nil, domainerrors.NotFoundError("intent")
	}
	return intent, nil
}

// ListUserIntents returns a page of the user's intents, newest first
func (s *Service) ListUserIntents(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entities.TransactionIntent, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.intentRepo.ListByUser(ctx, userID, limit, offset)
}

// Confirm moves a pending intent to completed, claiming the on-chain hash,
// and credits the deposit in the same transaction. The returned bool is true
// only for the call that performed the transition and credit.
//
// The operation is idempotent: confirming an intent already completed with
// the same hash is a success without a second credit. An intent completed
// with a different hash, or already failed, is a conflict.
func (s *Service) Confirm(ctx context.Context, intentID uuid.UUID, txHash string, observedAmount decimal.Decimal, confirmedAt time.Time) (*entities.TransactionIntent, bool, error) {
	err := database.WithTransaction(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.intentRepo.MarkConfirmed(ctx, tx, intentID, txHash, observedAmount, confirmedAt); err != nil {
			return err
		}

		intent, err := s.intentRepo.GetByID(ctx, intentID)
		if err != nil {
			return err
		}
		intent.Status = entities.IntentStatusCompleted
		intent.TxHash = &txHash
		intent.ObservedAmount = &observedAmount
		intent.ConfirmedAt = &confirmedAt

		return s.crediter.CreditDepositTx(ctx, tx, intent)
	})

	if err != nil {
		if domainerrors.IsDuplicateHash(err) {
			metrics.RecordVerificationOutcome("duplicate_hash")
			return nil, false, err
		}
		// Zero rows affected: the intent left pending before we got here.
		// Re-read to distinguish idempotent replay from real conflict.
		if err == domainerrors.ErrConflict {
			intent, resolveErr := s.resolveConfirmConflict(ctx, intentID, txHash)
			return intent, false, resolveErr
		}
		return nil, false, err
	}

	metrics.RecordVerificationOutcome("completed")
	s.logger.Info("Transaction intent confirmed",
		"intent_id", intentID,
		"tx_hash", txHash,
		"observed_amount", observedAmount)

	intent, err := s.intentRepo.GetByID(ctx, intentID)
	return intent, true, err
}

func (s *Service) resolveConfirmConflict(ctx context.Context, intentID uuid.UUID, txHash string) (*entities.TransactionIntent, error) {
	intent, err := s.intentRepo.GetByID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if intent.Status == entities.IntentStatusCompleted && intent.TxHash != nil && *intent.TxHash == txHash {
		return intent, nil
	}
	if intent.Status == entities.IntentStatusFailed {
		return nil, domainerrors.ExpiredError(intentID.String())
	}
	return nil, domainerrors.ErrConflict
}

// Fail moves a pending intent to failed. Failing an already terminal intent
// is a no-op and never demotes a completed intent; the returned bool reports
// whether this call performed the transition.
func (s *Service) Fail(ctx context.Context, intentID uuid.UUID) (bool, error) {
	changed, err := s.intentRepo.MarkFailed(ctx, intentID)
	if err != nil {
		return false, err
	}

	if changed {
		metrics.RecordVerificationOutcome("failed")
		s.logger.Info("Transaction intent failed", "intent_id", intentID)
	}
	return changed, nil
}

// FindByTxHash returns the intent that claimed an on-chain hash
func (s *Service) FindByTxHash(ctx context.Context, txHash string) (*entities.TransactionIntent, error) {
	return s.intentRepo.GetByTxHash(ctx, txHash)
}

// ListPending returns all intents still awaiting verification
func (s *Service) ListPending(ctx context.Context) ([]*entities.TransactionIntent, error) {
	return s.intentRepo.ListPending(ctx)
}

// Reap fails every pending intent older than the cutoff and reports how
// many were reaped
func (s *Service) Reap(ctx context.Context, cutoff time.Time) (*entities.ReapReport, error) {
	count, err := s.intentRepo.ReapStale(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	if count > 0 {
		s.logger.Info("Reaped stale intents", "count", count, "cutoff", cutoff)
	}

	return &entities.ReapReport{
		FailedCount: int(count),
		Cutoff:      cutoff,
	}, nil
}
