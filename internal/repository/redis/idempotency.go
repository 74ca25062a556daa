package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemLock      = "LOCK"
	idemResPrefix = "RES:"
)

type IdemState int

const (
	// IdemStarted means the caller owns the key and must Complete or Release it.
	IdemStarted IdemState = iota
	// IdemInFlight means another request holds the key.
	IdemInFlight
	// IdemDone means a stored response is available for replay.
	IdemDone
)

// IdempotencyStore remembers the response of a request keyed by a client
// supplied Idempotency-Key. A short lock marks the request in flight; the
// response then replaces it for ttl.
type IdempotencyStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl, lockTTL time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl, lockTTL: lockTTL}
}

// Begin claims key or reports what already holds it. The payload is set only for IdemDone.
func (s *IdempotencyStore) Begin(ctx context.Context, key string) (IdemState, string, error) {
	ok, err := s.rdb.SetNX(ctx, key, idemLock, s.lockTTL).Result()
	if err != nil {
		return 0, "", err
	}
	if ok {
		return IdemStarted, "", nil
	}

	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// lock expired between SETNX and GET; let the client retry
		return IdemInFlight, "", nil
	}
	if err != nil {
		return 0, "", err
	}

	if payload, found := strings.CutPrefix(v, idemResPrefix); found {
		return IdemDone, payload, nil
	}

	return IdemInFlight, "", nil
}

// Complete stores the response so later requests with the same key replay it.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, payload string) error {
	return s.rdb.Set(ctx, key, idemResPrefix+payload, s.ttl).Err()
}

// Release drops the key after a failed request so the client may retry.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
