package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/payment-core/internal/models"
)

// IdempotencyStore keeps key -> payment id mappings for the retention window.
type IdempotencyStore interface {
	// Get returns apperrors.ErrNotFound when no live record exists for key
	Get(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	// Claim stores rec unless a live record for rec.Key exists. It returns the
	// record that is stored after the call and whether this call created it.
	Claim(ctx context.Context, rec models.IdempotencyRecord) (*models.IdempotencyRecord, bool, error)
	// Release removes the record for key only if it still points at paymentID
	Release(ctx context.Context, key, paymentID string) error
}
