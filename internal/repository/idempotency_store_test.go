package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/payment-core/internal/apperrors"
	"github.com/akylbek/payment-system/payment-core/internal/interfaces"
	"github.com/akylbek/payment-system/payment-core/internal/models"
)

var (
	_ interfaces.IdempotencyStore = (*MemoryIdempotencyStore)(nil)
	_ interfaces.IdempotencyStore = (*IdempotencyRepository)(nil)
	_ interfaces.IdempotencyStore = (*RedisIdempotencyStore)(nil)
	_ interfaces.PaymentRepository = (*MemoryPaymentRepository)(nil)
	_ interfaces.PaymentRepository = (*PaymentRepository)(nil)
)

func record(key, paymentID string, at time.Time) models.IdempotencyRecord {
	return models.IdempotencyRecord{Key: key, PaymentID: paymentID, Fingerprint: "fp-" + paymentID, CreatedAt: at}
}

// exercises the behaviour every store must share
func testIdempotencyStoreContract(t *testing.T, store interfaces.IdempotencyStore) {
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := store.Get(ctx, "k1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	rec, created, err := store.Claim(ctx, record("k1", "p1", now))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "p1", rec.PaymentID)

	rec, created, err = store.Claim(ctx, record("k1", "p2", now))
	require.NoError(t, err)
	assert.False(t, created, "second claim must not win")
	assert.Equal(t, "p1", rec.PaymentID)
	assert.Equal(t, "fp-p1", rec.Fingerprint)

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.PaymentID)

	require.NoError(t, store.Release(ctx, "k1", "p2"))
	_, err = store.Get(ctx, "k1")
	require.NoError(t, err, "release by a non-owner is a no-op")

	require.NoError(t, store.Release(ctx, "k1", "p1"))
	_, err = store.Get(ctx, "k1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, created, err = store.Claim(ctx, record("k1", "p3", now))
	require.NoError(t, err)
	assert.True(t, created, "a released key can be claimed again")
}

func TestMemoryIdempotencyStore(t *testing.T) {
	testIdempotencyStoreContract(t, NewMemoryIdempotencyStore(time.Hour))
}

func TestMemoryIdempotencyStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryIdempotencyStore(time.Hour)
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, created, err := store.Claim(ctx, record("k1", "p1", now))
	require.NoError(t, err)
	require.True(t, created)

	now = now.Add(59 * time.Minute)
	_, err = store.Get(ctx, "k1")
	require.NoError(t, err, "still inside the retention window")

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "k1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	rec, created, err := store.Claim(ctx, record("k1", "p2", now))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "p2", rec.PaymentID)
}

func TestRedisIdempotencyStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	testIdempotencyStoreContract(t, NewRedisIdempotencyStore(client, time.Hour))
}

func TestRedisIdempotencyStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewRedisIdempotencyStore(client, time.Minute)
	ctx := context.Background()

	_, created, err := store.Claim(ctx, record("k1", "p1", time.Now()))
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, time.Minute, mr.TTL(idempotencyKeyPrefix+"k1"))

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, "k1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

var idempotencyColumns = []string{"key", "payment_id", "fingerprint", "created_at"}

func TestIdempotencyRepositoryClaim(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewIdempotencyRepository(db, time.Hour)
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO idempotency_keys (.+) ON CONFLICT \(key\) DO UPDATE`).
		WithArgs("k1", "p1", "fp-p1", now, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(idempotencyColumns).AddRow("k1", "p1", "fp-p1", now))

	rec, created, err := repo.Claim(ctx, record("k1", "p1", now))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "p1", rec.PaymentID)

	// live conflict: the upsert returns nothing and the existing row is read back
	mock.ExpectQuery(`INSERT INTO idempotency_keys`).
		WithArgs("k1", "p2", "fp-p2", now, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(idempotencyColumns))
	mock.ExpectQuery(`SELECT key, payment_id, fingerprint, created_at FROM idempotency_keys WHERE key = \$1`).
		WithArgs("k1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(idempotencyColumns).AddRow("k1", "p1", "fp-p1", now))

	rec, created, err = repo.Claim(ctx, record("k1", "p2", now))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "p1", rec.PaymentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRepositoryGetAndRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewIdempotencyRepository(db, time.Hour)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT (.+) FROM idempotency_keys`).
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(idempotencyColumns))
	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	mock.ExpectExec(`DELETE FROM idempotency_keys WHERE key = \$1 AND payment_id = \$2`).
		WithArgs("k1", "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Release(ctx, "k1", "p1"))

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS idempotency_keys`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.InitDB())
	assert.NoError(t, mock.ExpectationsWereMet())
}
