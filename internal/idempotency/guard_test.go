package idempotency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/payment-core/internal/apperrors"
	"github.com/akylbek/payment-system/payment-core/internal/models"
	"github.com/akylbek/payment-system/payment-core/internal/repository"
)

type fixture struct {
	store   *repository.MemoryIdempotencyStore
	ledger  *repository.MemoryPaymentRepository
	guard   *Guard
	creates int32
}

func newFixture() *fixture {
	f := &fixture{
		store:  repository.NewMemoryIdempotencyStore(time.Hour),
		ledger: repository.NewMemoryPaymentRepository(),
	}
	f.guard = NewGuard(f.store, f.ledger)
	return f
}

func (f *fixture) create(delay time.Duration) CreateFunc {
	return func(ctx context.Context, id string) (*models.Payment, error) {
		atomic.AddInt32(&f.creates, 1)
		time.Sleep(delay)
		p := &models.Payment{ID: id, Status: models.StatusInitiated, Currency: models.CurrencyEUR, AmountMinor: 1}
		return p, f.ledger.Create(ctx, p)
	}
}

func TestGetOrCreateReplaysSameKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, outcome, err := f.guard.GetOrCreate(ctx, "k1", "fp", f.create(0))
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)

	second, outcome, err := f.guard.GetOrCreate(ctx, "k1", "fp", f.create(0))
	require.NoError(t, err)
	assert.Equal(t, Replayed, outcome)
	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 1, f.creates)
}

func TestGetOrCreateConflictOnDifferentFingerprint(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, _, err := f.guard.GetOrCreate(ctx, "k1", "fp-a", f.create(0))
	require.NoError(t, err)

	_, _, err = f.guard.GetOrCreate(ctx, "k1", "fp-b", f.create(0))
	assert.ErrorIs(t, err, apperrors.ErrIdempotencyConflict)
	assert.EqualValues(t, 1, f.creates)
}

func TestGetOrCreateConcurrentSameKeyCreatesOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	const callers = 64
	var (
		wg      sync.WaitGroup
		ids     = make([]string, callers)
		created int32
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, outcome, err := f.guard.GetOrCreate(ctx, "k1", "fp", f.create(5*time.Millisecond))
			if assert.NoError(t, err) {
				ids[i] = p.ID
				if outcome == Created {
					atomic.AddInt32(&created, 1)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, f.creates)
	assert.EqualValues(t, 1, created)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	all, err := f.ledger.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetOrCreateAcrossProcessesSharingStores(t *testing.T) {
	f := newFixture()
	other := NewGuard(f.store, f.ledger)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]string, 2)
	for i, g := range []*Guard{f.guard, other} {
		wg.Add(1)
		go func(i int, g *Guard) {
			defer wg.Done()
			p, _, err := g.GetOrCreate(ctx, "k1", "fp", f.create(30*time.Millisecond))
			if assert.NoError(t, err) {
				results[i] = p.ID
			}
		}(i, g)
	}
	wg.Wait()

	assert.EqualValues(t, 1, f.creates)
	assert.Equal(t, results[0], results[1])
}

func TestGetOrCreateReleasesKeyWhenCreateFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	boom := errors.New("ledger unavailable")

	_, _, err := f.guard.GetOrCreate(ctx, "k1", "fp", func(context.Context, string) (*models.Payment, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = f.store.Get(ctx, "k1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	p, outcome, err := f.guard.GetOrCreate(ctx, "k1", "fp", f.create(0))
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)
	assert.NotEmpty(t, p.ID)
}

func TestGetOrCreateTakesOverClaimWithoutPayment(t *testing.T) {
	f := newFixture()
	f.guard.MaxWait = 30 * time.Millisecond
	ctx := context.Background()

	_, claimed, err := f.store.Claim(ctx, models.IdempotencyRecord{
		Key: "k1", PaymentID: "never-written", Fingerprint: "fp", CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.True(t, claimed)

	p, outcome, err := f.guard.GetOrCreate(ctx, "k1", "fp", f.create(0))
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)
	assert.NotEqual(t, "never-written", p.ID)
	assert.EqualValues(t, 1, f.creates)

	rec, err := f.store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, rec.PaymentID)

	again, outcome, err := f.guard.GetOrCreate(ctx, "k1", "fp", f.create(0))
	require.NoError(t, err)
	assert.Equal(t, Replayed, outcome)
	assert.Equal(t, p.ID, again.ID)
	assert.EqualValues(t, 1, f.creates)
}

func TestGetOrCreateOrphanedClaimStillConflictsOnDifferentBody(t *testing.T) {
	f := newFixture()
	f.guard.MaxWait = 30 * time.Millisecond
	ctx := context.Background()

	_, _, err := f.store.Claim(ctx, models.IdempotencyRecord{
		Key: "k1", PaymentID: "never-written", Fingerprint: "fp-a", CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	_, _, err = f.guard.GetOrCreate(ctx, "k1", "fp-b", f.create(0))
	assert.ErrorIs(t, err, apperrors.ErrIdempotencyConflict)
	assert.EqualValues(t, 0, f.creates)
}

func TestGetOrCreateSurvivesFirstCallerCancelling(t *testing.T) {
	f := newFixture()
	first, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	slow := func(ctx context.Context, id string) (*models.Payment, error) {
		close(started)
		<-release
		return f.create(0)(ctx, id)
	}

	firstErr := make(chan error, 1)
	go func() {
		_, _, err := f.guard.GetOrCreate(first, "k1", "fp", slow)
		firstErr <- err
	}()
	<-started

	type outcome struct {
		p   *models.Payment
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		p, _, err := f.guard.GetOrCreate(context.Background(), "k1", "fp", f.create(0))
		second <- outcome{p, err}
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)

	got := <-second
	require.NoError(t, got.err)
	assert.EqualValues(t, 1, f.creates)
	stored, err := f.ledger.GetByID(context.Background(), got.p.ID)
	require.NoError(t, err)
	assert.Equal(t, got.p.ID, stored.ID)
}

// commitTx stands in for a database transaction and records its use
type commitTx struct {
	calls int32
}

func (c *commitTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	atomic.AddInt32(&c.calls, 1)
	return fn(ctx)
}

func TestGetOrCreateUsesTransactorForClaimAndCreate(t *testing.T) {
	f := newFixture()
	tx := &commitTx{}
	f.guard.WithTransactor(tx)
	ctx := context.Background()

	first, outcome, err := f.guard.GetOrCreate(ctx, "k1", "fp", f.create(0))
	require.NoError(t, err)
	assert.Equal(t, Created, outcome)
	assert.EqualValues(t, 1, tx.calls)

	second, outcome, err := f.guard.GetOrCreate(ctx, "k1", "fp", f.create(0))
	require.NoError(t, err)
	assert.Equal(t, Replayed, outcome)
	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 1, tx.calls, "replays read the key outside a transaction")
}

func TestFingerprint(t *testing.T) {
	req := models.CreatePaymentRequest{
		ExternalID:     "ext",
		DebtorIBAN:     "SE4550000000058398257466",
		CreditorIBAN:   "DE89370400440532013000",
		Currency:       "EUR",
		AmountMinor:    100,
		IdempotencyKey: "k1",
	}
	same := req
	same.IdempotencyKey = "k2"
	assert.Equal(t, Fingerprint(req), Fingerprint(same), "the key is not part of the body")

	changed := req
	changed.AmountMinor = 101
	assert.NotEqual(t, Fingerprint(req), Fingerprint(changed))
	assert.Len(t, Fingerprint(req), 64)
}
