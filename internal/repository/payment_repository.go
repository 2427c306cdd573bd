package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/akylbek/payment-system/payment-core/internal/apperrors"
	"github.com/akylbek/payment-system/payment-core/internal/models"
)

const paymentColumns = `id, external_id, end_to_end_id, debtor_iban, creditor_iban, currency,
	amount_minor, status, status_reason, scheduled_next_business_day, requested_execution_date,
	created_at, updated_at`

// PaymentRepository is the PostgreSQL-backed payment ledger
type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS payments (
			seq BIGSERIAL UNIQUE,
			id VARCHAR(64) PRIMARY KEY,
			external_id VARCHAR(255) NOT NULL,
			end_to_end_id VARCHAR(64) NOT NULL UNIQUE,
			debtor_iban VARCHAR(34) NOT NULL,
			creditor_iban VARCHAR(34) NOT NULL,
			currency CHAR(3) NOT NULL,
			amount_minor BIGINT NOT NULL CHECK (amount_minor > 0),
			status VARCHAR(16) NOT NULL,
			status_reason VARCHAR(16) NOT NULL DEFAULT '',
			scheduled_next_business_day BOOLEAN NOT NULL,
			requested_execution_date VARCHAR(10) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, p.ID, p.ExternalID, p.EndToEndID, p.DebtorIBAN, p.CreditorIBAN, p.Currency,
		p.AmountMinor, p.Status, p.StatusReason, p.ScheduledNextBusinessDay, p.RequestedExecutionDate,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment %s: %w", p.ID, err)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PaymentRepository) ListAll(ctx context.Context) ([]models.Payment, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

func (r *PaymentRepository) ListByStatus(ctx context.Context, statuses ...models.PaymentStatus) ([]models.Payment, error) {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE status = ANY($1) ORDER BY seq`, pq.Array(values))
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

// TransitionStatus moves a payment forward only if it is still in from; the
// whole row comes back from the same statement so readers never see a torn state.
func (r *PaymentRepository) TransitionStatus(ctx context.Context, id string, from, to models.PaymentStatus, reason string, at time.Time) (*models.Payment, error) {
	if !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w from %s to %s for payment %s", apperrors.ErrInvalidTransition, from, to, id)
	}

	row := conn(ctx, r.db).QueryRowContext(ctx, `
		UPDATE payments
		SET status = $1, status_reason = $2, updated_at = $3
		WHERE id = $4 AND status = $5
		RETURNING `+paymentColumns,
		to, reason, at, id, from)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w from %s to %s for payment %s", apperrors.ErrInvalidTransition, from, to, id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.ExternalID, &p.EndToEndID, &p.DebtorIBAN, &p.CreditorIBAN, &p.Currency,
		&p.AmountMinor, &p.Status, &p.StatusReason, &p.ScheduledNextBusinessDay, &p.RequestedExecutionDate,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPayments(rows *sql.Rows) ([]models.Payment, error) {
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}
