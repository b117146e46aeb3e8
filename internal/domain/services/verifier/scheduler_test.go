package verifier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainvest-service/chainvest_service/internal/adapters/chain"
	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
	domainerrors "github.com/chainvest-service/chainvest_service/internal/domain/errors"
	"github.com/chainvest-service/chainvest_service/pkg/logger"
)

// fakeOracle returns a scripted result for every probe
type fakeOracle struct {
	mu       sync.Mutex
	transfer *chain.Transfer
	err      error
	probes   int
}

func (f *fakeOracle) FindTransfer(ctx context.Context, address string, minAmount decimal.Decimal) (*chain.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	return f.transfer, f.err
}

func (f *fakeOracle) probeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}

// fakeLedger records the terminal transitions the scheduler drives
type fakeLedger struct {
	mu     sync.Mutex
	failed []uuid.UUID
	noop   bool
}

func (f *fakeLedger) Confirm(ctx context.Context, intentID uuid.UUID, txHash string, observedAmount decimal.Decimal, confirmedAt time.Time) (*entities.TransactionIntent, bool, error) {
	return nil, false, nil
}

func (f *fakeLedger) Fail(ctx context.Context, intentID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, intentID)
	return !f.noop, nil
}

func (f *fakeLedger) ListPending(ctx context.Context) ([]*entities.TransactionIntent, error) {
	return nil, nil
}

func (f *fakeLedger) failCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.failed)
}

func testScheduler(oracle chain.Oracle) *Scheduler {
	return testSchedulerWithLedger(nil, oracle, time.Hour, time.Hour)
}

func testSchedulerWithLedger(led IntentLedger, oracle chain.Oracle, pollInterval, deadline time.Duration) *Scheduler {
	registry := chain.NewRegistry()
	registry.Register(entities.CurrencyBTC, oracle)
	log := logger.New("error", "test")
	return NewScheduler(led, registry, pollInterval, deadline, log)
}

func pendingIntent() *entities.TransactionIntent {
	return &entities.TransactionIntent{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Address:     "bc1qexample",
		Currency:    entities.CurrencyBTC,
		Amount:      decimal.NewFromFloat(0.1),
		Status:      entities.IntentStatusPending,
		InitiatedAt: time.Now().UTC(),
	}
}

func TestTrackIgnoresTerminalIntents(t *testing.T) {
	s := testScheduler(&fakeOracle{})
	defer s.Stop()

	intent := pendingIntent()
	intent.Status = entities.IntentStatusCompleted

	s.Track(intent)
	assert.False(t, s.Cancel(intent.ID), "no poller should exist for a terminal intent")
}

func TestTrackAndCancel(t *testing.T) {
	s := testScheduler(&fakeOracle{})
	defer s.Stop()

	intent := pendingIntent()
	s.Track(intent)

	assert.True(t, s.Cancel(intent.ID))
	assert.False(t, s.Cancel(intent.ID), "second cancel should report nothing to stop")
}

func TestTrackIsIdempotent(t *testing.T) {
	s := testScheduler(&fakeOracle{})
	defer s.Stop()

	intent := pendingIntent()
	s.Track(intent)
	s.Track(intent)

	assert.True(t, s.Cancel(intent.ID))
	assert.False(t, s.Cancel(intent.ID), "double track must not register two pollers")
}

func TestVerifyNowReturnsTerminalIntentUnchanged(t *testing.T) {
	oracle := &fakeOracle{}
	s := testScheduler(oracle)
	defer s.Stop()

	intent := pendingIntent()
	intent.Status = entities.IntentStatusFailed

	got, err := s.VerifyNow(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, intent, got)
	assert.Zero(t, oracle.probeCount(), "terminal intents never reach the oracle")
}

func TestVerifyNowUncertainOracleLeavesIntentPending(t *testing.T) {
	oracle := &fakeOracle{err: domainerrors.OracleUncertainError(assert.AnError)}
	s := testScheduler(oracle)
	defer s.Stop()

	intent := pendingIntent()
	_, err := s.VerifyNow(context.Background(), intent)
	require.Error(t, err)
	assert.True(t, domainerrors.IsOracleUncertain(err))
	assert.Equal(t, entities.IntentStatusPending, intent.Status,
		"an uncertain probe must never fail the intent")
}

func TestVerifyNowNoTransferAttachesPoller(t *testing.T) {
	oracle := &fakeOracle{}
	s := testScheduler(oracle)
	defer s.Stop()

	intent := pendingIntent()
	got, err := s.VerifyNow(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, entities.IntentStatusPending, got.Status)
	assert.GreaterOrEqual(t, oracle.probeCount(), 1)

	assert.True(t, s.Cancel(intent.ID), "a background poller should now be tracking the intent")
}

func TestVerifyNowRejectsUnregisteredCurrency(t *testing.T) {
	s := testScheduler(&fakeOracle{})
	defer s.Stop()

	intent := pendingIntent()
	intent.Currency = entities.CurrencyUSDT

	_, err := s.VerifyNow(context.Background(), intent)
	assert.Error(t, err)
}

func TestStopTerminatesPollers(t *testing.T) {
	s := testScheduler(&fakeOracle{})

	for i := 0; i < 5; i++ {
		s.Track(pendingIntent())
	}

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not terminate pollers")
	}
}

func TestDeadlineFiresWhileOracleUncertain(t *testing.T) {
	oracle := &fakeOracle{err: domainerrors.OracleUncertainError(assert.AnError)}
	led := &fakeLedger{}
	s := testSchedulerWithLedger(led, oracle, 10*time.Millisecond, time.Minute)
	defer s.Stop()

	intent := pendingIntent()
	intent.InitiatedAt = time.Now().UTC().Add(-2 * time.Minute)
	s.Track(intent)

	require.Eventually(t, func() bool { return led.failCount() == 1 },
		2*time.Second, 5*time.Millisecond,
		"the deadline must fail the intent even though every probe would be uncertain")
	assert.Eventually(t, func() bool { return !s.Cancel(intent.ID) },
		2*time.Second, 5*time.Millisecond,
		"the poller must deregister once the deadline fires")
	assert.Zero(t, oracle.probeCount(), "expired intents never reach the oracle")

	select {
	case event := <-s.Events():
		assert.Equal(t, intent.ID, event.IntentID)
		assert.Equal(t, OutcomeFailed, event.Outcome)
	case <-time.After(time.Second):
		t.Fatal("expected a failed event for the expired intent")
	}
}

func TestVerifyNowFailsExpiredIntent(t *testing.T) {
	oracle := &fakeOracle{}
	led := &fakeLedger{}
	s := testSchedulerWithLedger(led, oracle, time.Hour, time.Minute)
	defer s.Stop()

	intent := pendingIntent()
	intent.InitiatedAt = time.Now().UTC().Add(-2 * time.Minute)

	got, err := s.VerifyNow(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, entities.IntentStatusFailed, got.Status)
	assert.Equal(t, 1, led.failCount())
	assert.Zero(t, oracle.probeCount())
	assert.False(t, s.Cancel(intent.ID), "no poller should remain for an expired intent")
}

func TestExpireEmitsNothingWhenFinalizedElsewhere(t *testing.T) {
	oracle := &fakeOracle{}
	led := &fakeLedger{noop: true}
	s := testSchedulerWithLedger(led, oracle, time.Hour, time.Minute)
	defer s.Stop()

	intent := pendingIntent()
	intent.InitiatedAt = time.Now().UTC().Add(-2 * time.Minute)

	_, err := s.VerifyNow(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, 1, led.failCount())
	assert.Empty(t, s.events, "a no-op fail means another flow finalized the intent first")
}

func TestEmitDropsWhenBufferFull(t *testing.T) {
	s := testScheduler(&fakeOracle{})
	defer s.Stop()

	for i := 0; i < eventBufferSize+10; i++ {
		s.emit(Event{IntentID: uuid.New(), Outcome: OutcomeCompleted})
	}

	// The buffer holds exactly eventBufferSize events, the rest are dropped
	assert.Len(t, s.events, eventBufferSize)
}
