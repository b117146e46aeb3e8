// Package accrual implements investment accounting: crediting verified
// deposits, opening positions against the plan catalog, and advancing
// position values through compound growth sweeps.
package accrual

import (
	"context"
	"math"
	"sync"
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

// Snapshotter captures a portfolio snapshot after balances change
type Snapshotter interface {
	CaptureSnapshot(ctx context.Context, accountID uuid.UUID) error
}

// MaturityListener is told after a position completes and its proceeds are
// credited. Listener failures never affect the sweep.
type MaturityListener interface {
	PositionMatured(ctx context.Context, userID uuid.UUID, position *entities.InvestmentPosition)
}

// Engine performs deposit credits, position opening and accrual sweeps
type Engine struct {
	positionRepo *repositories.PositionRepository
	accountRepo  *repositories.AccountRepository
	intentRepo   *repositories.IntentRepository
	db           *sqlx.DB
	catalog      *Catalog
	converter    *Converter
	snapshotter  Snapshotter
	maturity     MaturityListener
	concurrency  int
	logger       *logger.Logger
}

// NewEngine creates an accrual engine
func NewEngine(
	positionRepo *repositories.PositionRepository,
	accountRepo *repositories.AccountRepository,
	intentRepo *repositories.IntentRepository,
	db *sqlx.DB,
	catalog *Catalog,
	converter *Converter,
	concurrency int,
	log *logger.Logger,
) *Engine {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Engine{
		positionRepo: positionRepo,
		accountRepo:  accountRepo,
		intentRepo:   intentRepo,
		db:           db,
		catalog:      catalog,
		converter:    converter,
		concurrency:  concurrency,
		logger:       log,
	}
}

// SetSnapshotter wires the snapshot capturer. Set after construction to
// break the mutual dependency with the portfolio read side.
func (e *Engine) SetSnapshotter(s Snapshotter) {
	e.snapshotter = s
}

// SetMaturityListener wires the maturity notification hook
func (e *Engine) SetMaturityListener(l MaturityListener) {
	e.maturity = l
}

// Catalog returns the plan catalog
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Converter returns the USD rate converter
func (e *Engine) Converter() *Converter {
	return e.converter
}

// CreditDepositTx credits a confirmed deposit to the owner's balance inside
// the caller's transaction. Called exactly once per intent, under the same
// commit that records the confirmation.
func (e *Engine) CreditDepositTx(ctx context.Context, tx *sqlx.Tx, intent *entities.TransactionIntent) error {
	account, err := e.accountRepo.GetOrCreateByUserIDTx(ctx, tx, intent.UserID)
	if err != nil {
		return err
	}

	amount := intent.Amount
	if intent.ObservedAmount != nil {
		amount = *intent.ObservedAmount
	}

	if err := e.accountRepo.CreditBalance(ctx, tx, account.ID, intent.Currency, amount); err != nil {
		return err
	}

	e.logger.Info("Deposit credited",
		"intent_id", intent.ID,
		"account_id", account.ID,
		"currency", intent.Currency,
		"amount", amount)
	return nil
}

// OpenPosition opens an investment position funded by a completed intent.
// The operation is idempotent on the intent: a retry after a successful open
// returns the existing position instead of debiting twice.
func (e *Engine) OpenPosition(ctx context.Context, userID uuid.UUID, req *entities.CreateInvestmentRequest) (*entities.InvestmentPosition, error) {
	intent, err := e.intentRepo.GetByID(ctx, req.IntentID)
	if err != nil {
		return nil, err
	}
	if intent.UserID != userID {
		return nil, domainerrors.NotFoundError("intent")
	}
	if intent.Status != entities.IntentStatusCompleted {
		return nil, &domainerrors.DomainError{
			Err:     domainerrors.ErrIntentNotCompleted,
			Code:    "INTENT_NOT_COMPLETED",
			Message: "intent must be completed before it can fund an investment",
		}
	}

	plan, err := e.catalog.Lookup(req.PlanName)
	if err != nil {
		return nil, err
	}

	account, err := e.accountRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	principal := intent.Amount
	if intent.ObservedAmount != nil {
		principal = *intent.ObservedAmount
	}

	initialUSD, err := e.converter.ToUSD(intent.Currency, principal)
	if err != nil {
		return nil, err
	}
	initialUSD = initialUSD.Round(2)

	if initialUSD.LessThan(plan.MinAmountUSD) {
		return nil, domainerrors.ValidationError("amount", "deposit below plan minimum")
	}
	if plan.MaxAmountUSD.IsPositive() && initialUSD.GreaterThan(plan.MaxAmountUSD) {
		return nil, domainerrors.ValidationError("amount", "deposit above plan maximum")
	}

	now := time.Now().UTC()
	position := &entities.InvestmentPosition{
		ID:                uuid.New(),
		AccountID:         account.ID,
		SourceIntentID:    intent.ID,
		PlanName:          plan.Name,
		Principal:         principal,
		PrincipalCurrency: intent.Currency,
		InitialValueUSD:   initialUSD,
		CurrentValueUSD:   initialUSD,
		TargetValueUSD:    targetValue(initialUSD, plan),
		DailyGrowthRate:   dailyGrowthRate(plan),
		StartDate:         now,
		EndDate:           now.Add(time.Duration(plan.DurationDays) * 24 * time.Hour),
		Status:            entities.PositionStatusActive,
		LastUpdated:       now,
	}

	err = database.WithTransaction(ctx, e.db, func(tx *sqlx.Tx) error {
		if err := e.accountRepo.DebitBalance(ctx, tx, account.ID, intent.Currency, principal); err != nil {
			return err
		}
		if err := e.positionRepo.Create(ctx, tx, position); err != nil {
			return err
		}
		return e.positionRepo.AppendHistory(ctx, tx, position.ID, entities.ValueSample{
			Timestamp: now,
			ValueUSD:  initialUSD,
		})
	})
	if err != nil {
		if err == domainerrors.ErrConflict {
			// Intent already funds a position; return it unchanged
			return e.positionRepo.GetBySourceIntentID(ctx, intent.ID)
		}
		return nil, err
	}

	metrics.PositionsOpenedTotal.WithLabelValues(plan.Name).Inc()
	e.logger.Info("Investment position opened",
		"position_id", position.ID,
		"account_id", account.ID,
		"plan", plan.Name,
		"initial_value_usd", initialUSD,
		"target_value_usd", position.TargetValueUSD)

	if e.snapshotter != nil {
		if err := e.snapshotter.CaptureSnapshot(ctx, account.ID); err != nil {
			e.logger.Warn("Snapshot capture failed after open", "account_id", account.ID, "error", err)
		}
	}

	return position, nil
}

const positionHistoryLimit = 400

// GetPosition returns a position owned by the user, with its value history
// advanced to the current instant in memory
func (e *Engine) GetPosition(ctx context.Context, userID, positionID uuid.UUID) (*entities.InvestmentPosition, error) {
	position, err := e.positionRepo.GetByID(ctx, positionID)
	if err != nil {
		return nil, err
	}

	account, err := e.accountRepo.GetByID(ctx, position.AccountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, domainerrors.NotFoundError("position")
	}

	if position.Status == entities.PositionStatusActive {
		result := Advance(position, time.Now().UTC())
		position.CurrentValueUSD = result.Value
		position.Status = result.Status
	}

	position.History, err = e.positionRepo.ListHistory(ctx, position.ID, positionHistoryLimit)
	if err != nil {
		return nil, err
	}

	return position, nil
}

// SweepAccount advances every active position of one account and persists
// the results. Positions of a single account are always advanced serially.
func (e *Engine) SweepAccount(ctx context.Context, accountID uuid.UUID) error {
	positions, err := e.positionRepo.ListActiveByAccount(ctx, accountID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	changed := false

	for _, position := range positions {
		result := Advance(position, now)
		if result.Value.Equal(position.CurrentValueUSD) &&
			result.Status == position.Status &&
			len(result.NewSamples) == 0 {
			continue
		}

		matured := result.Status == entities.PositionStatusCompleted && position.Status == entities.PositionStatusActive

		position.CurrentValueUSD = result.Value
		position.Status = result.Status
		position.LastUpdated = now
		if result.SampledAt != nil {
			position.LastSampledAt = result.SampledAt
		}

		err := database.WithTransaction(ctx, e.db, func(tx *sqlx.Tx) error {
			if err := e.positionRepo.UpdateProgress(ctx, tx, position); err != nil {
				return err
			}
			for _, sample := range result.NewSamples {
				if err := e.positionRepo.AppendHistory(ctx, tx, position.ID, sample); err != nil {
					return err
				}
			}
			if matured {
				// Proceeds land on the USD balance when the plan matures
				return e.accountRepo.CreditBalance(ctx, tx, accountID, entities.CurrencyUSD, position.TargetValueUSD)
			}
			return nil
		})
		if err != nil {
			return err
		}

		changed = true
		if matured {
			e.logger.Info("Investment position matured",
				"position_id", position.ID,
				"account_id", accountID,
				"target_value_usd", position.TargetValueUSD)

			if e.maturity != nil {
				if account, err := e.accountRepo.GetByID(ctx, accountID); err != nil {
					e.logger.Warn("Account lookup failed for maturity notification",
						"account_id", accountID, "error", err)
				} else {
					e.maturity.PositionMatured(ctx, account.UserID, position)
				}
			}
		}
	}

	if changed && e.snapshotter != nil {
		if err := e.snapshotter.CaptureSnapshot(ctx, accountID); err != nil {
			e.logger.Warn("Snapshot capture failed after sweep", "account_id", accountID, "error", err)
		}
	}

	return nil
}

// SweepAll advances every account holding active positions. Accounts are
// swept in parallel across a bounded worker pool; each account's positions
// stay serialized within one worker. A failing account is recorded in the
// report and never aborts the batch.
func (e *Engine) SweepAll(ctx context.Context) (*entities.SweepReport, error) {
	started := time.Now().UTC()

	accountIDs, err := e.positionRepo.ListAccountIDsWithActive(ctx)
	if err != nil {
		return nil, err
	}

	report := &entities.SweepReport{
		Processed: len(accountIDs),
		Errors:    make(map[string]string),
		StartedAt: started,
	}

	jobs := make(chan uuid.UUID)
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := e.concurrency
	if workers > len(accountIDs) {
		workers = len(accountIDs)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for accountID := range jobs {
				err := e.SweepAccount(ctx, accountID)
				mu.Lock()
				if err != nil {
					report.Failed++
					report.Errors[accountID.String()] = err.Error()
				} else {
					report.Succeeded++
				}
				mu.Unlock()
			}
		}()
	}

	for _, accountID := range accountIDs {
		jobs <- accountID
	}
	close(jobs)
	wg.Wait()

	report.Duration = time.Since(started)
	metrics.SweepDuration.Observe(report.Duration.Seconds())
	metrics.SweepAccountsTotal.WithLabelValues("succeeded").Add(float64(report.Succeeded))
	metrics.SweepAccountsTotal.WithLabelValues("failed").Add(float64(report.Failed))

	e.logger.Info("Accrual sweep finished",
		"processed", report.Processed,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"duration", report.Duration)

	return report, nil
}

// dailyGrowthRate derives the per-day compound rate that turns the initial
// value into initial*(1+ROI) over the plan duration
func dailyGrowthRate(plan entities.InvestmentPlan) decimal.Decimal {
	roi, _ := plan.ROI.Float64()
	daily := math.Pow(1+roi, 1/float64(plan.DurationDays)) - 1
	return decimal.NewFromFloat(daily)
}

func targetValue(initial decimal.Decimal, plan entities.InvestmentPlan) decimal.Decimal {
	return initial.Mul(decimal.NewFromInt(1).Add(plan.ROI)).Round(2)
}
