package booking

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "idempotency:"

// IdempotencyStore is the fast path for retried reserve calls: it maps an
// Idempotency-Key header to the booking it produced, for a bounded retention
// window. The unique index on bookings.idempotency_key remains the backstop,
// so a cache miss is never a correctness problem.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		ttl:    ttl,
	}
}

// Lookup returns the booking id recorded for the key, or "" when the key is
// unknown or expired.
func (s *IdempotencyStore) Lookup(ctx context.Context, key string) (string, error) {
	bookingID, err := s.client.Get(ctx, idempotencyKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}

	return bookingID, nil
}

func (s *IdempotencyStore) Remember(ctx context.Context, key, bookingID string) error {
	return s.client.Set(ctx, idempotencyKeyPrefix+key, bookingID, s.ttl).Err()
}
