// Package lock provides the customer-scoped mutual exclusion that payment
// finalization requires: two payments for the same customer must not read the
// same loan snapshot concurrently, while payments for different customers
// proceed in parallel.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CustomerLocker serializes payment finalization per customer.
type CustomerLocker interface {
	// Acquire takes the customer's lock, returning a release function.
	// It returns ErrNotAcquired when another holder has it.
	Acquire(ctx context.Context, customerID uuid.UUID) (func(), error)
}

// ErrNotAcquired is returned when the lock is held elsewhere.
var ErrNotAcquired = errors.New("customer lock not acquired")

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker builds a CustomerLocker on top of Redis SET NX with the
// given lease duration. The TTL bounds how long a crashed holder can block
// the customer's payments.
func NewRedisLocker(client *redis.Client, ttl time.Duration) CustomerLocker {
	return &redisLocker{client: client, ttl: ttl}
}

// releaseScript deletes the lock only if the caller still owns it, so an
// expired lease cannot release a lock some other payment has since taken.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

func (l *redisLocker) Acquire(ctx context.Context, customerID uuid.UUID) (func(), error) {
	key := "payment-lock:" + customerID.String()
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		releaseScript.Run(releaseCtx, l.client, []string{key}, token)
	}

	return release, nil
}
