package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akylbek/payment-system/payment-core/internal/apperrors"
	"github.com/akylbek/payment-system/payment-core/internal/models"
)

// IdempotencyRepository stores idempotency keys in PostgreSQL next to the ledger
type IdempotencyRepository struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewIdempotencyRepository(db *sql.DB, ttl time.Duration) *IdempotencyRepository {
	return &IdempotencyRepository{db: db, ttl: ttl, now: time.Now}
}

func (r *IdempotencyRepository) InitDB() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS idempotency_keys (
		key VARCHAR(255) PRIMARY KEY,
		payment_id VARCHAR(64) NOT NULL,
		fingerprint VARCHAR(64) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`)
	return err
}

func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	err := conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT key, payment_id, fingerprint, created_at
		FROM idempotency_keys WHERE key = $1 AND created_at > $2
	`, key, r.now().Add(-r.ttl)).Scan(&rec.Key, &rec.PaymentID, &rec.Fingerprint, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("idempotency key %s: %w", key, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Claim inserts the record, or takes over a row whose retention window has passed.
// The primary key makes concurrent claims across processes resolve to one winner.
func (r *IdempotencyRepository) Claim(ctx context.Context, rec models.IdempotencyRecord) (*models.IdempotencyRecord, bool, error) {
	var stored models.IdempotencyRecord
	err := conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO idempotency_keys (key, payment_id, fingerprint, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET payment_id = EXCLUDED.payment_id, fingerprint = EXCLUDED.fingerprint, created_at = EXCLUDED.created_at
		WHERE idempotency_keys.created_at <= $5
		RETURNING key, payment_id, fingerprint, created_at
	`, rec.Key, rec.PaymentID, rec.Fingerprint, rec.CreatedAt, r.now().Add(-r.ttl)).
		Scan(&stored.Key, &stored.PaymentID, &stored.Fingerprint, &stored.CreatedAt)
	if err == nil {
		return &stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("claim idempotency key %s: %w", rec.Key, err)
	}

	existing, err := r.Get(ctx, rec.Key)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *IdempotencyRepository) Release(ctx context.Context, key, paymentID string) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`DELETE FROM idempotency_keys WHERE key = $1 AND payment_id = $2`, key, paymentID)
	return err
}
