package distlock

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistLock is the interface for distributed locking.
// Implementations must be safe for use from a single goroutine;
// concurrent use across goroutines requires separate lock instances.
type DistLock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// NewLock creates a lock using the best available backend: Redis when a
// client is given, PostgreSQL advisory locks when a DB is given, and a
// process-local lock otherwise.
func NewLock(redisClient *redis.Client, db *sql.DB, key string, ttl time.Duration) DistLock {
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	if db != nil {
		return NewPGAdvisoryLock(db, key)
	}
	return NewLocalLock(key)
}

// PGAdvisoryLock implements DistLock using session-scoped PostgreSQL
// advisory locks. The lock belongs to one pooled connection, so the
// connection is pinned from Acquire until Release. The lock goes away if
// the connection drops.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64

	mu   sync.Mutex
	conn *sql.Conn
}

// NewPGAdvisoryLock creates a PG advisory lock with a deterministic lock ID
// derived from the given key string.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{
		db:     db,
		lockID: int64(h.Sum64()),
	}
}

// Acquire tries to acquire the advisory lock without blocking. On success
// the connection stays checked out until Release.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return false, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("advisory lock %d: %w", l.lockID, err)
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		discard(conn)
		return false, fmt.Errorf("advisory lock %d: %w", l.lockID, err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release unlocks on the pinned connection and hands it back to the pool.
// If the unlock cannot be confirmed the connection is dropped instead, which
// ends the session and with it the lock.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	conn := l.conn
	l.conn = nil

	var released bool
	err := conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID).Scan(&released)
	if err != nil || !released {
		discard(conn)
		if err == nil {
			err = errors.New("lock was not held by this session")
		}
		return fmt.Errorf("advisory unlock %d: %w", l.lockID, err)
	}
	return conn.Close()
}

// discard closes conn and removes it from the pool.
func discard(conn *sql.Conn) {
	conn.Raw(func(any) error { return driver.ErrBadConn })
	conn.Close()
}

// Refresh pushes the lock's expiry out by its original TTL when the
// backend has one. Locks without an expiry are left alone.
func Refresh(ctx context.Context, l DistLock) error {
	if r, ok := l.(interface{ Refresh(context.Context) error }); ok {
		return r.Refresh(ctx)
	}
	return nil
}

var (
	localMu   sync.Mutex
	localHeld = map[string]bool{}
)

// LocalLock is a process-wide lock keyed by name, for single-instance
// deployments running on the in-memory store.
type LocalLock struct {
	key string
}

// NewLocalLock returns a process-local lock for key.
func NewLocalLock(key string) *LocalLock {
	return &LocalLock{key: key}
}

// Acquire marks the key as held. Returns false if it already is.
func (l *LocalLock) Acquire(ctx context.Context) (bool, error) {
	localMu.Lock()
	defer localMu.Unlock()
	if localHeld[l.key] {
		return false, nil
	}
	localHeld[l.key] = true
	return true, nil
}

// Release frees the key.
func (l *LocalLock) Release(ctx context.Context) error {
	localMu.Lock()
	delete(localHeld, l.key)
	localMu.Unlock()
	return nil
}
