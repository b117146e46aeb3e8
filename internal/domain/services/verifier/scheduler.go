// Package verifier polls chain oracles for pending transaction intents and
// drives each one to a terminal state: completed when a qualifying transfer
// is found, failed when the tracking deadline passes first.
package verifier

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chainvest-service/chainvest_service/internal/adapters/chain"
	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
	domainerrors "github.com/chainvest-service/chainvest_service/internal/domain/errors"
	"github.com/chainvest-service/chainvest_service/pkg/logger"
)

// IntentLedger is the subset of ledger operations the scheduler drives
type IntentLedger interface {
	Confirm(ctx context.Context, intentID uuid.UUID, txHash string, observedAmount decimal.Decimal, confirmedAt time.Time) (*entities.TransactionIntent, bool, error)
	Fail(ctx context.Context, intentID uuid.UUID) (bool, error)
	ListPending(ctx context.Context) ([]*entities.TransactionIntent, error)
}

// Outcome is the terminal result of tracking an intent
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeConflict  Outcome = "conflict"
)

// Event is emitted when a tracked intent reaches a terminal state
type Event struct {
	IntentID uuid.UUID
	UserID   uuid.UUID
	Outcome  Outcome
	TxHash   string
}

const eventBufferSize = 256

// Scheduler tracks pending intents, polling the chain oracle for each at a
// fixed interval until the transfer appears or the deadline passes.
type Scheduler struct {
	ledger       IntentLedger
	oracles      *chain.Registry
	pollInterval time.Duration
	deadline     time.Duration
	logger       *logger.Logger

	mu      sync.Mutex
	pollers map[uuid.UUID]chan struct{}

	events chan Event
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler creates a verification scheduler
func NewScheduler(
	ledgerSvc IntentLedger,
	oracles *chain.Registry,
	pollInterval time.Duration,
	deadline time.Duration,
	log *logger.Logger,
) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = entities.IntentPollIntervalSeconds * time.Second
	}
	if deadline <= 0 {
		deadline = entities.IntentTimeoutMinutes * time.Minute
	}
	return &Scheduler{
		ledger:       ledgerSvc,
		oracles:      oracles,
		pollInterval: pollInterval,
		deadline:     deadline,
		logger:       log,
		pollers:      make(map[uuid.UUID]chan struct{}),
		events:       make(chan Event, eventBufferSize),
		stopCh:       make(chan struct{}),
	}
}

// Events returns the stream of terminal verification events
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

// Track starts polling for an intent. Tracking an intent that is already
// being polled, or already terminal, is a no-op.
func (s *Scheduler) Track(intent *entities.TransactionIntent) {
	if intent.Status.IsTerminal() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, polling := s.pollers[intent.ID]; polling {
		return
	}

	cancelCh := make(chan struct{})
	s.pollers[intent.ID] = cancelCh

	s.wg.Add(1)
	go s.poll(intent, cancelCh)
}

// Cancel stops polling for an intent without touching its stored state.
// The intent stays pending and the reaper eventually fails it.
func (s *Scheduler) Cancel(intentID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancelCh, ok := s.pollers[intentID]
	if !ok {
		return false
	}
	close(cancelCh)
	delete(s.pollers, intentID)
	return true
}

// ResumePending re-attaches pollers for every pending intent, called once
// at startup so intents survive process restarts
func (s *Scheduler) ResumePending(ctx context.Context) error {
	intents, err := s.ledger.ListPending(ctx)
	if err != nil {
		return err
	}

	for _, intent := range intents {
		s.Track(intent)
	}

	if len(intents) > 0 {
		s.logger.Info("Resumed tracking pending intents", "count", len(intents))
	}
	return nil
}

// VerifyNow performs a single synchronous probe for an intent and finalizes
// it if the transfer is found or the deadline already passed. Returns the
// refreshed intent. An uncertain oracle leaves the intent pending.
func (s *Scheduler) VerifyNow(ctx context.Context, intent *entities.TransactionIntent) (*entities.TransactionIntent, error) {
	if intent.Status.IsTerminal() {
		return intent, nil
	}

	done, updated, err := s.probe(ctx, intent)
	if done {
		s.Cancel(intent.ID)
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	if err != nil {
		return nil, err
	}

	// Still pending, make sure a poller is attached
	s.Track(intent)
	return intent, nil
}

// Stop halts all pollers and waits for them to exit
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Scheduler) poll(intent *entities.TransactionIntent, cancelCh chan struct{}) {
	defer s.wg.Done()
	defer s.remove(intent.ID)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), s.pollInterval)
		done, _, err := s.probe(ctx, intent)
		cancel()

		if done {
			return
		}
		if err != nil {
			// Uncertain probe, retry on the next tick
			s.logger.Debug("Oracle probe uncertain, will retry",
				"intent_id", intent.ID, "error", err)
		}

		select {
		case <-ticker.C:
		case <-cancelCh:
			return
		case <-s.stopCh:
			return
		}
	}
}

// probe runs one oracle check. It returns done=true once the intent reached
// a terminal state. A non-nil error with done=false means the oracle was
// uncertain; with done=true it carries the conflict that terminated tracking.
func (s *Scheduler) probe(ctx context.Context, intent *entities.TransactionIntent) (bool, *entities.TransactionIntent, error) {
	// The deadline is wall-clock and independent of probe outcomes: an
	// expired intent is failed without touching the oracle, so a provider
	// outage or an open breaker can never keep a poller alive forever.
	if time.Since(intent.InitiatedAt) >= s.deadline {
		return true, s.expire(ctx, intent), nil
	}

	oracle, err := s.oracles.ForCurrency(intent.Currency)
	if err != nil {
		return false, nil, err
	}

	transfer, err := oracle.FindTransfer(ctx, intent.Address, intent.Amount)
	if err != nil {
		// Never fail an intent on an uncertain probe
		return false, nil, err
	}

	if transfer != nil {
		confirmed, credited, err := s.ledger.Confirm(ctx, intent.ID, transfer.Hash, transfer.Amount, transfer.BlockTime)
		if err != nil {
			if domainerrors.IsDuplicateHash(err) {
				// Two flows raced onto the same on-chain event. Never merge:
				// fail this intent and surface the conflict for review.
				s.logger.Warn("Transfer hash already claimed, failing intent",
					"intent_id", intent.ID, "tx_hash", transfer.Hash)
				if _, failErr := s.ledger.Fail(ctx, intent.ID); failErr != nil {
					s.logger.Error("Failed to fail conflicting intent",
						"intent_id", intent.ID, "error", failErr)
				}
				intent.Status = entities.IntentStatusFailed
				s.emit(Event{
					IntentID: intent.ID,
					UserID:   intent.UserID,
					Outcome:  OutcomeConflict,
					TxHash:   transfer.Hash,
				})
				return true, intent, err
			}
			if domainerrors.IsExpired(err) {
				// Reaped while we were probing
				return true, intent, nil
			}
			return false, nil, err
		}

		if credited {
			s.emit(Event{
				IntentID: intent.ID,
				UserID:   intent.UserID,
				Outcome:  OutcomeCompleted,
				TxHash:   transfer.Hash,
			})
		}
		return true, confirmed, nil
	}

	return false, nil, nil
}

// expire fails an intent whose tracking deadline passed. A Fail that changes
// nothing means the intent was finalized elsewhere; no event is emitted then.
func (s *Scheduler) expire(ctx context.Context, intent *entities.TransactionIntent) *entities.TransactionIntent {
	changed, err := s.ledger.Fail(ctx, intent.ID)
	if err != nil {
		// The reaper is the durable backstop; stop the poller regardless
		s.logger.Error("Failed to expire intent past deadline",
			"intent_id", intent.ID, "error", err)
		return intent
	}

	intent.Status = entities.IntentStatusFailed
	if changed {
		s.emit(Event{
			IntentID: intent.ID,
			UserID:   intent.UserID,
			Outcome:  OutcomeFailed,
		})
	}
	return intent
}

func (s *Scheduler) emit(event Event) {
	select {
	case s.events <- event:
	default:
		s.logger.Warn("Verification event buffer full, dropping event",
			"intent_id", event.IntentID, "outcome", event.Outcome)
	}
}

func (s *Scheduler) remove(intentID uuid.UUID) {
	s.mu.Lock()
	delete(s.pollers, intentID)
	s.mu.Unlock()
}
