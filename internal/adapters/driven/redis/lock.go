package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// DefaultLockPrefix namespaces lock keys in a shared Redis
const DefaultLockPrefix = "catalog:lock:"

// ErrLockNotHeld is returned by Extend when another owner holds the lock or it expired
var ErrLockNotHeld = errors.New("lock not held by this instance")

// Lock implements DistributedLock with SET NX PX and an owner token.
// Only the owner that set a key may extend or delete it.
type Lock struct {
	client  *redis.Client
	prefix  string
	ownerID string
}

// NewLock creates a lock client using DefaultLockPrefix
func NewLock(client *redis.Client) *Lock {
	return NewLockWithPrefix(client, DefaultLockPrefix)
}

// NewLockWithPrefix creates a lock client with a custom key prefix
func NewLockWithPrefix(client *redis.Client, prefix string) *Lock {
	return &Lock{
		client:  client,
		prefix:  prefix,
		ownerID: newOwnerID(),
	}
}

// hostname:pid:random
func newOwnerID() string {
	hostname, _ := os.Hostname()
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), hex.EncodeToString(b))
}

func (l *Lock) key(name string) string {
	return l.prefix + name
}

// Acquire sets the lock key if absent. False means someone else holds it.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(name), l.ownerID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return ok, nil
}

// compare-and-delete
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// Release deletes the lock if this instance owns it. Releasing a lock
// that expired or belongs to someone else is a no-op.
func (l *Lock) Release(ctx context.Context, name string) error {
	err := releaseScript.Run(ctx, l.client, []string{l.key(name)}, l.ownerID).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// compare-and-pexpire
var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	end
	return 0
`)

// Extend pushes out the expiry of a lock held by this instance
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.key(name)}, l.ownerID, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("extend lock %s: %w", name, ErrLockNotHeld)
	}
	return nil
}

// Ping checks if the Redis backend is healthy
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID identifies this instance in lock values
func (l *Lock) OwnerID() string {
	return l.ownerID
}
