package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/akylbek/payment-system/payment-core/internal/apperrors"
	"github.com/akylbek/payment-system/payment-core/internal/interfaces"
	"github.com/akylbek/payment-system/payment-core/internal/models"
	"github.com/akylbek/payment-system/payment-core/internal/telemetry"
)

// CreateFunc creates the payment with the id reserved for the key
type CreateFunc func(ctx context.Context, paymentID string) (*models.Payment, error)

// Outcome tells the caller whether its request created the payment
type Outcome int

const (
	Created Outcome = iota
	Replayed
)

// Guard guarantees at most one payment per idempotency key.
//
// Same-key callers inside this process are collapsed by singleflight; callers
// in other processes meet at the store's atomic Claim. A loser whose winner has
// claimed the key but not yet written the payment waits for it with backoff.
// A claim whose payment never appears within MaxWait is released and taken over.
type Guard struct {
	store  interfaces.IdempotencyStore
	ledger interfaces.PaymentReader
	tx     interfaces.Transactor
	group  singleflight.Group
	now    func() time.Time
	newID  func() string

	// MaxWait bounds how long a loser waits for the winner's ledger write
	MaxWait time.Duration
	// FlightTimeout bounds the shared work done for one key, independent of
	// any single caller's context
	FlightTimeout time.Duration
}

func NewGuard(store interfaces.IdempotencyStore, ledger interfaces.PaymentReader) *Guard {
	return &Guard{
		store:         store,
		ledger:        ledger,
		now:           time.Now,
		newID:         uuid.NewString,
		MaxWait:       2 * time.Second,
		FlightTimeout: 10 * time.Second,
	}
}

// WithTransactor makes the claim and the payment write commit together. Use it
// when the idempotency store and the ledger share one database.
func (g *Guard) WithTransactor(tx interfaces.Transactor) *Guard {
	g.tx = tx
	return g
}

type result struct {
	payment *models.Payment
	outcome Outcome
	creator *byte
}

// orphanedClaimError reports a live key whose payment is not in the ledger
type orphanedClaimError struct {
	key       string
	paymentID string
}

func (e *orphanedClaimError) Error() string {
	return fmt.Sprintf("idempotency key %s points at missing payment %s", e.key, e.paymentID)
}

// GetOrCreate returns the payment recorded for key, running create only when
// no live record exists. A repeated key whose fingerprint differs from the
// recorded one fails with apperrors.ErrIdempotencyConflict.
func (g *Guard) GetOrCreate(ctx context.Context, key, fingerprint string, create CreateFunc) (*models.Payment, Outcome, error) {
	token := new(byte)
	// different fingerprints must not share a flight, or a conflicting caller
	// would silently receive the other body's payment
	ch := g.group.DoChan(key+"\x00"+fingerprint, func() (interface{}, error) {
		// collapsed callers must not fail because the first one went away
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.FlightTimeout)
		defer cancel()
		r, err := g.getOrCreate(flightCtx, key, fingerprint, create)
		r.creator = token
		return r, err
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
	if res.Err != nil {
		return nil, 0, res.Err
	}

	r := res.Val.(result)
	p := *r.payment
	if r.creator != token {
		return &p, Replayed, nil
	}
	return &p, r.outcome, nil
}

func (g *Guard) getOrCreate(ctx context.Context, key, fingerprint string, create CreateFunc) (result, error) {
	r, err := g.claimOrReplay(ctx, key, fingerprint, create)
	var orphan *orphanedClaimError
	if !errors.As(err, &orphan) {
		return r, err
	}

	telemetry.Logger.Warn("Releasing idempotency key without a payment",
		zap.String("idempotency_key", key),
		zap.String("payment_id", orphan.paymentID),
	)
	if err := g.store.Release(ctx, key, orphan.paymentID); err != nil {
		return result{}, fmt.Errorf("release orphaned idempotency key %s: %w", key, err)
	}
	return g.claimOrReplay(ctx, key, fingerprint, create)
}

func (g *Guard) claimOrReplay(ctx context.Context, key, fingerprint string, create CreateFunc) (result, error) {
	rec, err := g.store.Get(ctx, key)
	if err == nil {
		return g.replay(ctx, rec, fingerprint)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return result{}, fmt.Errorf("lookup idempotency key: %w", err)
	}

	candidate := models.IdempotencyRecord{
		Key:         key,
		PaymentID:   g.newID(),
		Fingerprint: fingerprint,
		CreatedAt:   g.now().UTC(),
	}
	if g.tx != nil {
		return g.claimAndCreateTx(ctx, candidate, create)
	}

	rec, claimed, err := g.store.Claim(ctx, candidate)
	if err != nil {
		return result{}, err
	}
	if !claimed {
		return g.replay(ctx, rec, fingerprint)
	}

	p, err := create(ctx, candidate.PaymentID)
	if err != nil {
		if relErr := g.store.Release(ctx, key, candidate.PaymentID); relErr != nil {
			telemetry.Logger.Error("Failed to release idempotency key",
				zap.String("idempotency_key", key),
				zap.Error(relErr),
			)
		}
		return result{}, err
	}
	return result{payment: p, outcome: Created}, nil
}

// claimAndCreateTx writes the claim and the payment in one transaction, so a
// failed create leaves no claim behind.
func (g *Guard) claimAndCreateTx(ctx context.Context, candidate models.IdempotencyRecord, create CreateFunc) (result, error) {
	var (
		rec     *models.IdempotencyRecord
		claimed bool
		p       *models.Payment
	)
	err := g.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		rec, claimed, err = g.store.Claim(ctx, candidate)
		if err != nil || !claimed {
			return err
		}
		p, err = create(ctx, candidate.PaymentID)
		return err
	})
	if err != nil {
		return result{}, err
	}
	if !claimed {
		return g.replay(ctx, rec, candidate.Fingerprint)
	}
	return result{payment: p, outcome: Created}, nil
}

func (g *Guard) replay(ctx context.Context, rec *models.IdempotencyRecord, fingerprint string) (result, error) {
	if rec.Fingerprint != fingerprint {
		return result{}, fmt.Errorf("key %s: %w", rec.Key, apperrors.ErrIdempotencyConflict)
	}

	var p *models.Payment
	op := func() error {
		var err error
		p, err = g.ledger.GetByID(ctx, rec.PaymentID)
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxElapsedTime = g.MaxWait
	err := backoff.Retry(op, backoff.WithContext(b, ctx))
	if errors.Is(err, apperrors.ErrNotFound) {
		return result{}, &orphanedClaimError{key: rec.Key, paymentID: rec.PaymentID}
	}
	if err != nil {
		return result{}, fmt.Errorf("payment %s for key %s: %w", rec.PaymentID, rec.Key, err)
	}

	telemetry.Logger.Info("Idempotent replay",
		zap.String("idempotency_key", rec.Key),
		zap.String("payment_id", p.ID),
	)
	return result{payment: p, outcome: Replayed}, nil
}

// Fingerprint hashes the business fields of a create request, so retries that
// only differ in transport details still match.
func Fingerprint(req models.CreatePaymentRequest) string {
	canonical, _ := json.Marshal(struct {
		ExternalID   string `json:"externalId"`
		DebtorIBAN   string `json:"debtorIban"`
		CreditorIBAN string `json:"creditorIban"`
		Currency     string `json:"currency"`
		AmountMinor  int64  `json:"amountMinor"`
	}{req.ExternalID, req.DebtorIBAN, req.CreditorIBAN, req.Currency, req.AmountMinor})
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
