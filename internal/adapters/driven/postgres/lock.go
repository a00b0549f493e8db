package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-catalog/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*AdvisoryLock)(nil)

// AdvisoryLock implements DistributedLock using PostgreSQL session advisory locks.
//
// Advisory locks belong to a connection, so every held lock pins one
// connection from the pool until Release. The TTL is ignored: a lock lives
// until released or until its connection dies. Prefer the Redis lock when
// workers can be killed without closing their sockets.
type AdvisoryLock struct {
	db *DB

	mu    sync.Mutex
	conns map[string]*sql.Conn
}

// NewAdvisoryLock creates a new PostgreSQL advisory lock adapter.
func NewAdvisoryLock(db *DB) *AdvisoryLock {
	return &AdvisoryLock{
		db:    db,
		conns: make(map[string]*sql.Conn),
	}
}

// lockKey maps a lock name to the 64-bit key space of pg advisory locks (FNV-1a)
func lockKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("catalog:lock:" + name))
	return int64(h.Sum64())
}

// Acquire tries the lock without blocking.
// The name is reserved while the database is queried, so concurrent
// callers for the same name lose without waiting on the pool.
func (l *AdvisoryLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	if _, held := l.conns[name]; held {
		l.mu.Unlock()
		return false, nil
	}
	l.conns[name] = nil
	l.mu.Unlock()

	conn, err := l.tryLock(ctx, name)

	l.mu.Lock()
	defer l.mu.Unlock()
	if conn == nil {
		delete(l.conns, name)
		return false, err
	}
	l.conns[name] = conn
	return true, nil
}

// tryLock checks out a connection and takes the advisory lock on it.
// The connection is returned only when the lock was taken.
func (l *AdvisoryLock) tryLock(ctx context.Context, name string) (*sql.Conn, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", lockKey(name)).Scan(&acquired); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !acquired {
		_ = conn.Close()
		return nil, nil
	}
	return conn, nil
}

// Release unlocks on the connection that took the lock and returns it to the pool.
// Releasing a lock this instance does not hold, or is still acquiring, is a no-op.
func (l *AdvisoryLock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	conn := l.conns[name]
	if conn != nil {
		delete(l.conns, name)
	}
	l.mu.Unlock()

	if conn == nil {
		return nil
	}
	defer conn.Close()

	var released bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", lockKey(name)).Scan(&released); err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Extend is a no-op: advisory locks do not expire.
func (l *AdvisoryLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	return nil
}

// Ping checks if the PostgreSQL backend is healthy.
func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
