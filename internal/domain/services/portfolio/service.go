// Package portfolio assembles the read side: cached account summaries and
// point-in-time valuation snapshots.
package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
	"github.com/chainvest-service/chainvest_service/internal/domain/services/accrual"
	"github.com/chainvest-service/chainvest_service/internal/infrastructure/cache"
	"github.com/chainvest-service/chainvest_service/internal/infrastructure/repositories"
	"github.com/chainvest-service/chainvest_service/pkg/logger"
)

const (
	summaryCacheTTL  = 30 * time.Second
	snapshotWindow   = 30 * 24 * time.Hour
	snapshotMaxCount = 30
	historyMaxCount  = 400
)

// Service builds portfolio summaries and captures valuation snapshots
type Service struct {
	accountRepo  *repositories.AccountRepository
	positionRepo *repositories.PositionRepository
	snapshotRepo *repositories.SnapshotRepository
	converter    *accrual.Converter
	cache        cache.RedisClient
	logger       *logger.Logger
}

// NewService creates a portfolio service
func NewService(
	accountRepo *repositories.AccountRepository,
	positionRepo *repositories.PositionRepository,
	snapshotRepo *repositories.SnapshotRepository,
	converter *accrual.Converter,
	cacheClient cache.RedisClient,
	log *logger.Logger,
) *Service {
	return &Service{
		accountRepo:  accountRepo,
		positionRepo: positionRepo,
		snapshotRepo: snapshotRepo,
		converter:    converter,
		cache:        cacheClient,
		logger:       log,
	}
}

// GetSummary returns the user's portfolio summary. Position values are
// advanced in memory to the current instant with the same function the
// sweep uses, so a summary read between sweeps never shows stale growth.
// Summaries are cached briefly; the cache is only an accelerator and every
// value in it is reproducible from storage.
func (s *Service) GetSummary(ctx context.Context, userID uuid.UUID) (*entities.PortfolioSummary, error) {
	cacheKey := summaryCacheKey(userID)

	var cached entities.PortfolioSummary
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	} else if err != cache.ErrCacheMiss {
		s.logger.Warn("Summary cache read failed", "user_id", userID, "error", err)
	}

	account, err := s.accountRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary, err := s.buildSummary(ctx, userID, account.ID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, summary, summaryCacheTTL); err != nil {
		s.logger.Warn("Summary cache write failed", "user_id", userID, "error", err)
	}

	return summary, nil
}

// AccountFor returns the account backing a user's portfolio, creating it
// on first use
func (s *Service) AccountFor(ctx context.Context, userID uuid.UUID) (*entities.Account, error) {
	return s.accountRepo.GetOrCreateByUserID(ctx, userID)
}

// Invalidate drops the cached summary for a user, called after any write
// that changes balances or positions
func (s *Service) Invalidate(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.Del(ctx, summaryCacheKey(userID)); err != nil {
		s.logger.Warn("Summary cache invalidation failed", "user_id", userID, "error", err)
	}
}

// CaptureSnapshot values the account right now and appends a snapshot row
func (s *Service) CaptureSnapshot(ctx context.Context, accountID uuid.UUID) error {
	valuation, err := s.value(ctx, accountID, time.Now().UTC())
	if err != nil {
		return err
	}

	snapshot := &entities.PortfolioSnapshot{
		ID:                  uuid.New(),
		AccountID:           accountID,
		Timestamp:           valuation.at,
		TotalValueUSD:       valuation.total,
		ChainValueUSD:       valuation.chain,
		CashValueUSD:        valuation.cash,
		InvestmentsValueUSD: valuation.investments,
	}

	return s.snapshotRepo.Append(ctx, snapshot)
}

type valuation struct {
	at          time.Time
	total       decimal.Decimal
	chain       decimal.Decimal
	cash        decimal.Decimal
	investments decimal.Decimal
	balances    map[entities.Currency]decimal.Decimal
	positions   []*entities.InvestmentPosition
}

// value computes the account's USD valuation at an instant: crypto balances
// at configured rates, the USD balance at par, and active positions
// advanced in memory
func (s *Service) value(ctx context.Context, accountID uuid.UUID, at time.Time) (*valuation, error) {
	balances, err := s.accountRepo.GetBalances(ctx, accountID)
	if err != nil {
		return nil, err
	}

	v := &valuation{
		at:       at,
		balances: make(map[entities.Currency]decimal.Decimal, len(balances)),
	}

	for _, balance := range balances {
		v.balances[balance.Currency] = balance.Amount

		usd, err := s.converter.ToUSD(balance.Currency, balance.Amount)
		if err != nil {
			return nil, err
		}
		if balance.Currency == entities.CurrencyUSD {
			v.cash = v.cash.Add(usd)
		} else {
			v.chain = v.chain.Add(usd)
		}
	}

	positions, err := s.positionRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	v.positions = positions

	for _, position := range positions {
		if position.Status != entities.PositionStatusActive {
			continue
		}
		result := accrual.Advance(position, at)
		position.CurrentValueUSD = result.Value
		position.Status = result.Status
		v.investments = v.investments.Add(result.Value)
	}

	v.total = v.chain.Add(v.cash).Add(v.investments).Round(2)
	v.chain = v.chain.Round(2)
	v.cash = v.cash.Round(2)
	v.investments = v.investments.Round(2)

	return v, nil
}

func (s *Service) buildSummary(ctx context.Context, userID, accountID uuid.UUID) (*entities.PortfolioSummary, error) {
	valuation, err := s.value(ctx, accountID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	summary := &entities.PortfolioSummary{
		UserID:        userID,
		TotalValueUSD: valuation.total,
		Balances:      valuation.balances,
		GeneratedAt:   valuation.at,
	}

	for _, position := range valuation.positions {
		history, err := s.positionRepo.ListHistory(ctx, position.ID, historyMaxCount)
		if err != nil {
			return nil, err
		}
		position.History = history

		switch position.Status {
		case entities.PositionStatusActive:
			summary.ActivePositions = append(summary.ActivePositions, position)
		default:
			summary.CompletedPositions = append(summary.CompletedPositions, position)
		}
	}

	snapshots, err := s.snapshotRepo.ListRecent(ctx, accountID, valuation.at.Add(-snapshotWindow), snapshotMaxCount)
	if err != nil {
		return nil, err
	}
	summary.Snapshots = snapshots

	return summary, nil
}

func summaryCacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("portfolio:summary:%s", userID)
}
