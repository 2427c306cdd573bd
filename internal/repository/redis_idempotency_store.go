package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akylbek/payment-system/payment-core/internal/apperrors"
	"github.com/akylbek/payment-system/payment-core/internal/models"
)

const idempotencyKeyPrefix = "idempotency:"

// RedisIdempotencyStore keeps records as JSON strings expiring after the retention window
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func redisKey(key string) string {
	return idempotencyKeyPrefix + key
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	return getRecord(ctx, s.client, key)
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getRecord(ctx context.Context, c stringGetter, key string) (*models.IdempotencyRecord, error) {
	raw, err := c.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("idempotency key %s: %w", key, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var rec models.IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record %s: %w", key, err)
	}
	return &rec, nil
}

func (s *RedisIdempotencyStore) Claim(ctx context.Context, rec models.IdempotencyRecord) (*models.IdempotencyRecord, bool, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, false, err
	}

	ok, err := s.client.SetNX(ctx, redisKey(rec.Key), raw, s.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("claim idempotency key %s: %w", rec.Key, err)
	}
	if ok {
		return &rec, true, nil
	}

	existing, err := s.Get(ctx, rec.Key)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Release deletes the key inside WATCH so a record re-claimed by someone else survives.
func (s *RedisIdempotencyStore) Release(ctx context.Context, key, paymentID string) error {
	k := redisKey(key)
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		rec, err := getRecord(ctx, tx, key)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if rec.PaymentID != paymentID {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, k)
			return nil
		})
		return err
	}, k)
}
