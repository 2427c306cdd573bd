package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akylbek/payment-system/payment-core/internal/apperrors"
	"github.com/akylbek/payment-system/payment-core/internal/models"
)

// MemoryPaymentRepository is an in-process ledger. Writes take the lock
// exclusively; reads run in parallel and always get copies.
type MemoryPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*models.Payment
	order    []string
}

func NewMemoryPaymentRepository() *MemoryPaymentRepository {
	return &MemoryPaymentRepository{payments: make(map[string]*models.Payment)}
}

func (r *MemoryPaymentRepository) Create(_ context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.payments[p.ID]; exists {
		return fmt.Errorf("payment %s already exists", p.ID)
	}
	stored := *p
	r.payments[p.ID] = &stored
	r.order = append(r.order, p.ID)
	return nil
}

func (r *MemoryPaymentRepository) GetByID(_ context.Context, id string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, apperrors.ErrNotFound)
	}
	out := *p
	return &out, nil
}

func (r *MemoryPaymentRepository) ListAll(_ context.Context) ([]models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Payment, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.payments[id])
	}
	return out, nil
}

func (r *MemoryPaymentRepository) ListByStatus(_ context.Context, statuses ...models.PaymentStatus) ([]models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Payment
	for _, id := range r.order {
		p := r.payments[id]
		for _, s := range statuses {
			if p.Status == s {
				out = append(out, *p)
				break
			}
		}
	}
	return out, nil
}

func (r *MemoryPaymentRepository) TransitionStatus(_ context.Context, id string, from, to models.PaymentStatus, reason string, at time.Time) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, apperrors.ErrNotFound)
	}
	if p.Status != from || !from.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w from %s to %s for payment %s", apperrors.ErrInvalidTransition, from, to, id)
	}

	p.Status = to
	p.StatusReason = reason
	p.UpdatedAt = at
	out := *p
	return &out, nil
}
