package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/payment-core/internal/models"
)

// EventPublisher delivers status changes to downstream consumers
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, event models.StatusChangedEvent) error
	Close() error
}
