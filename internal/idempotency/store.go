package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrNotFound     = errors.New("idempotency key not found")
	ErrHashMismatch = errors.New("idempotency key body mismatch")
	ErrInProgress   = errors.New("idempotency key in progress")
)

const redisKeyPrefix = "idempotency"

// Record is a finalized response replayed for duplicate requests.
type Record struct {
	Key         string `json:"key"`
	RequestHash string `json:"hash"`
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	ContentType string `json:"content_type"`
}

// Store is a redis-backed replay cache for the Idempotency-Key request
// contract. It suppresses duplicate HTTP submissions; the ledger's own
// transaction-status gate remains the authoritative idempotency point
// for balance effects.
type Store struct {
	redis redis.Cmdable
	ttl   time.Duration
}

// NewStore creates a store over a redis client.
func NewStore(redis redis.Cmdable, ttl time.Duration) *Store {
	return &Store{redis: redis, ttl: ttl}
}

type envelope struct {
	RequestHash string `json:"hash"`
	InProgress  bool   `json:"in_progress"`
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	ContentType string `json:"content_type"`
}

// Lookup returns the finalized record for a key, ErrInProgress if the
// first request is still running, or ErrNotFound.
func (s *Store) Lookup(ctx context.Context, key, requestHash string) (*Record, error) {
	val, err := s.redis.Get(ctx, redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(val), &env); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	if env.RequestHash != requestHash {
		return nil, ErrHashMismatch
	}
	if env.InProgress {
		return nil, ErrInProgress
	}
	return &Record{
		Key:         key,
		RequestHash: env.RequestHash,
		Status:      env.Status,
		Body:        env.Body,
		ContentType: env.ContentType,
	}, nil
}

// Reserve claims a key for the current request. Returns false when some
// other request already holds it.
func (s *Store) Reserve(ctx context.Context, key, requestHash string) (bool, error) {
	payload, err := json.Marshal(envelope{RequestHash: requestHash, InProgress: true})
	if err != nil {
		return false, fmt.Errorf("encode idempotency reservation: %w", err)
	}
	ok, err := s.redis.SetNX(ctx, redisKey(key), payload, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	return ok, nil
}

// Finalize stores the response for replay and releases the reservation.
func (s *Store) Finalize(ctx context.Context, key, requestHash string, status int, body []byte, contentType string) error {
	payload, err := json.Marshal(envelope{
		RequestHash: requestHash,
		Status:      status,
		Body:        body,
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}
	if err := s.redis.Set(ctx, redisKey(key), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("finalize idempotency key: %w", err)
	}
	return nil
}

// Release drops a reservation after a failed request so the client can
// retry with the same key.
func (s *Store) Release(ctx context.Context, key string) {
	if err := s.redis.Del(ctx, redisKey(key)).Err(); err != nil {
		zap.L().Warn("idempotency release failed", zap.String("key", key), zap.Error(err))
	}
}

// WaitForCompletion polls until the in-flight holder of the key finalizes.
func (s *Store) WaitForCompletion(ctx context.Context, key, requestHash string) (*Record, error) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		rec, err := s.Lookup(ctx, key, requestHash)
		if err == nil {
			return rec, nil
		}
		if errors.Is(err, ErrInProgress) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-ticker.C:
				continue
			}
		}
		return nil, err
	}
}

func redisKey(key string) string {
	return fmt.Sprintf("%s:%s", redisKeyPrefix, key)
}
