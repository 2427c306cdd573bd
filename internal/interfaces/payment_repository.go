package interfaces

import (
	"context"
	"time"

	"github.com/akylbek/payment-system/payment-core/internal/models"
)

// PaymentReader is the read side of the ledger
type PaymentReader interface {
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	ListAll(ctx context.Context) ([]models.Payment, error)
	ListByStatus(ctx context.Context, statuses ...models.PaymentStatus) ([]models.Payment, error)
}

// PaymentRepository defines the contract for the payment ledger.
// TransitionStatus is a compare-and-set on the status: it fails with
// apperrors.ErrInvalidTransition when the stored status is not from.
type PaymentRepository interface {
	PaymentReader
	Create(ctx context.Context, payment *models.Payment) error
	TransitionStatus(ctx context.Context, id string, from, to models.PaymentStatus, reason string, at time.Time) (*models.Payment, error)
}
