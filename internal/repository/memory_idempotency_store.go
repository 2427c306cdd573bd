package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akylbek/payment-system/payment-core/internal/apperrors"
	"github.com/akylbek/payment-system/payment-core/internal/models"
)

type MemoryIdempotencyStore struct {
	mu      sync.RWMutex
	records map[string]models.IdempotencyRecord
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		records: make(map[string]models.IdempotencyRecord),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryIdempotencyStore) live(rec models.IdempotencyRecord) bool {
	return s.now().Sub(rec.CreatedAt) < s.ttl
}

func (s *MemoryIdempotencyStore) Get(_ context.Context, key string) (*models.IdempotencyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok || !s.live(rec) {
		return nil, fmt.Errorf("idempotency key %s: %w", key, apperrors.ErrNotFound)
	}
	return &rec, nil
}

func (s *MemoryIdempotencyStore) Claim(_ context.Context, rec models.IdempotencyRecord) (*models.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[rec.Key]; ok && s.live(existing) {
		return &existing, false, nil
	}
	s.records[rec.Key] = rec
	return &rec, true, nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key, paymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok && rec.PaymentID == paymentID {
		delete(s.records, key)
	}
	return nil
}
