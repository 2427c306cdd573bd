package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-core/internal/apperrors"
	"github.com/akylbek/payment-system/payment-core/internal/idempotency"
	"github.com/akylbek/payment-system/payment-core/internal/interfaces"
	"github.com/akylbek/payment-system/payment-core/internal/iso20022"
	"github.com/akylbek/payment-system/payment-core/internal/metrics"
	"github.com/akylbek/payment-system/payment-core/internal/models"
	"github.com/akylbek/payment-system/payment-core/internal/scheduling"
	"github.com/akylbek/payment-system/payment-core/internal/settlement"
	"github.com/akylbek/payment-system/payment-core/internal/statement"
	"github.com/akylbek/payment-system/payment-core/internal/telemetry"
	"github.com/akylbek/payment-system/payment-core/internal/validation"
)

// PaymentService is the operation set the transport layer maps onto
type PaymentService struct {
	ledger     interfaces.PaymentRepository
	guard      *idempotency.Guard
	scheduler  *scheduling.Scheduler
	dispatcher settlement.Dispatcher
	metrics    *metrics.Metrics
	now        func() time.Time
	newID      func() string
}

func NewPaymentService(
	ledger interfaces.PaymentRepository,
	guard *idempotency.Guard,
	scheduler *scheduling.Scheduler,
	dispatcher settlement.Dispatcher,
	m *metrics.Metrics,
) *PaymentService {
	return &PaymentService{
		ledger:     ledger,
		guard:      guard,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		metrics:    m,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// CreatePayment validates req, creates at most one payment per idempotency key
// and hands new payments to settlement. Replays return the recorded payment.
func (s *PaymentService) CreatePayment(ctx context.Context, req models.CreatePaymentRequest) (*models.Payment, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "PaymentService.CreatePayment")
	defer span.End()
	span.SetAttributes(attribute.String("idempotency_key", req.IdempotencyKey))

	if err := validation.ValidateCreateRequest(req); err != nil {
		s.metrics.ValidationFailures.Inc()
		telemetry.Logger.Info("Rejected payment request",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Error(err),
		)
		return nil, err
	}

	p, outcome, err := s.guard.GetOrCreate(ctx, req.IdempotencyKey, idempotency.Fingerprint(req),
		func(ctx context.Context, id string) (*models.Payment, error) {
			return s.insert(ctx, id, req)
		})
	if errors.Is(err, apperrors.ErrIdempotencyConflict) {
		s.metrics.IdempotencyConflict.Inc()
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if outcome == idempotency.Replayed {
		s.metrics.IdempotentReplays.Inc()
	}
	span.SetAttributes(attribute.String("payment_id", p.ID))

	// a replay of a payment whose settlement never finished picks it up again
	if outcome == idempotency.Created || !p.Status.IsTerminal() {
		submitted, err := s.dispatcher.Submit(ctx, p.ID)
		if err != nil {
			telemetry.Logger.Error("Failed to submit payment for settlement",
				zap.String("payment_id", p.ID),
				zap.Error(err),
			)
			span.RecordError(err)
			return nil, err
		}
		p = submitted
	}
	return p, nil
}

func (s *PaymentService) insert(ctx context.Context, id string, req models.CreatePaymentRequest) (*models.Payment, error) {
	now := s.now().UTC()
	nextDay, executionDate := s.scheduler.Schedule(now)

	p := &models.Payment{
		ID:                       id,
		ExternalID:               req.ExternalID,
		EndToEndID:               s.newID(),
		DebtorIBAN:               req.DebtorIBAN,
		CreditorIBAN:             req.CreditorIBAN,
		Currency:                 models.Currency(req.Currency),
		AmountMinor:              req.AmountMinor,
		Status:                   models.StatusInitiated,
		ScheduledNextBusinessDay: nextDay,
		RequestedExecutionDate:   executionDate,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if err := s.ledger.Create(ctx, p); err != nil {
		return nil, err
	}

	s.metrics.PaymentsCreated.WithLabelValues(string(p.Currency)).Inc()
	telemetry.Logger.Info("Payment created",
		zap.String("payment_id", p.ID),
		zap.String("idempotency_key", req.IdempotencyKey),
		zap.String("currency", string(p.Currency)),
		zap.Int64("amount_minor", p.AmountMinor),
		zap.Bool("scheduled_next_business_day", nextDay),
	)
	return p, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	return s.ledger.GetByID(ctx, id)
}

// RenderMessage encodes one payment as kind. Status reports of undecided
// payments fail with apperrors.ErrNotYetFinal.
func (s *PaymentService) RenderMessage(ctx context.Context, id string, kind models.MessageKind) ([]byte, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "PaymentService.RenderMessage")
	defer span.End()
	span.SetAttributes(
		attribute.String("payment_id", id),
		attribute.String("message_kind", string(kind)),
	)

	p, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	out, err := iso20022.Render(kind, *p)
	if err != nil {
		telemetry.Logger.Info("Message not rendered",
			zap.String("payment_id", id),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return nil, err
	}
	s.metrics.MessagesRendered.WithLabelValues(string(kind)).Inc()
	return out, nil
}

// RenderStatement encodes a camt.053 statement over the whole ledger
func (s *PaymentService) RenderStatement(ctx context.Context) ([]byte, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "PaymentService.RenderStatement")
	defer span.End()

	payments, err := s.ledger.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	out, entries, err := statement.Render(payments, s.now())
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("entries", entries))
	s.metrics.MessagesRendered.WithLabelValues(string(models.MessageCamt053)).Inc()
	return out, nil
}
