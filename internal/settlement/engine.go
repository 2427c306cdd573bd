package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-core/internal/apperrors"
	"github.com/akylbek/payment-system/payment-core/internal/interfaces"
	"github.com/akylbek/payment-system/payment-core/internal/metrics"
	"github.com/akylbek/payment-system/payment-core/internal/models"
	"github.com/akylbek/payment-system/payment-core/internal/telemetry"
)

// Engine drives payments through INITIATED -> PENDING -> ACSP|RJCT
type Engine struct {
	ledger    interfaces.PaymentRepository
	policy    Policy
	publisher interfaces.EventPublisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewEngine(
	ledger interfaces.PaymentRepository,
	policy Policy,
	publisher interfaces.EventPublisher,
	m *metrics.Metrics,
) *Engine {
	return &Engine{
		ledger:    ledger,
		policy:    policy,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
	}
}

// Accept moves an INITIATED payment to PENDING. Payments already past
// INITIATED are returned unchanged.
func (e *Engine) Accept(ctx context.Context, id string) (*models.Payment, error) {
	p, err := e.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.StatusInitiated {
		return p, nil
	}

	p, err = e.transition(ctx, p, models.StatusPending, "")
	if errors.Is(err, apperrors.ErrInvalidTransition) {
		return e.ledger.GetByID(ctx, id)
	}
	return p, err
}

// Settle brings the payment to a terminal status and returns it. Settling a
// terminal payment is a no-op, and concurrent calls agree because the policy
// is deterministic and the ledger only lets one transition through.
func (e *Engine) Settle(ctx context.Context, id string) (*models.Payment, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "settlement.Settle")
	defer span.End()

	p, err := e.Accept(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status.IsTerminal() {
		return p, nil
	}

	decision := e.policy.Decide(*p)
	if !decision.Status.IsTerminal() {
		return nil, fmt.Errorf("policy returned non-terminal status %s for payment %s", decision.Status, id)
	}

	pendingSince := p.UpdatedAt
	settled, err := e.transition(ctx, p, decision.Status, decision.Reason)
	if errors.Is(err, apperrors.ErrInvalidTransition) {
		return e.ledger.GetByID(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	e.metrics.SettlementDecisions.WithLabelValues(string(decision.Status), decision.Reason).Inc()
	e.metrics.SettlementDuration.Observe(settled.UpdatedAt.Sub(pendingSince).Seconds())
	return settled, nil
}

func (e *Engine) transition(ctx context.Context, p *models.Payment, to models.PaymentStatus, reason string) (*models.Payment, error) {
	from := p.Status
	updated, err := e.ledger.TransitionStatus(ctx, p.ID, from, to, reason, e.now().UTC())
	if err != nil {
		return nil, err
	}

	event := models.StatusChangedEvent{
		PaymentID:     updated.ID,
		EndToEndID:    updated.EndToEndID,
		State:         to,
		PreviousState: from,
		Reason:        reason,
		Timestamp:     updated.UpdatedAt,
	}
	if err := e.publisher.PublishStatusChanged(ctx, event); err != nil {
		telemetry.Logger.Warn("Failed to publish status change",
			zap.String("payment_id", updated.ID),
			zap.Error(err),
		)
	}

	telemetry.Logger.Info("Payment state transition",
		zap.String("payment_id", updated.ID),
		zap.String("from_state", string(from)),
		zap.String("to_state", string(to)),
		zap.String("reason", reason),
	)

	return updated, nil
}
