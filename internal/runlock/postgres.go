package runlock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
)

// AdvisoryLock locks with a session-scoped PostgreSQL advisory lock.
// The session is pinned to one pooled connection between Acquire and
// Release, and the server drops the lock if that connection dies.
type AdvisoryLock struct {
	db     *sql.DB
	lockID int64
	owned  bool

	mu   sync.Mutex
	conn *sql.Conn
}

// LockID derives the advisory lock id of a key.
func LockID(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64())
}

// NewAdvisoryLock creates a lock on key using an existing pool.
// Close does not close the pool.
func NewAdvisoryLock(db *sql.DB, key string) *AdvisoryLock {
	return &AdvisoryLock{db: db, lockID: LockID(key)}
}

func newOwnedAdvisoryLock(db *sql.DB, key string) *AdvisoryLock {
	l := NewAdvisoryLock(db, key)
	l.owned = true
	return l
}

func (l *AdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		return false, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to reserve lock connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("failed to acquire advisory lock: %w", err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}

	l.conn = conn
	return true, nil
}

func (l *AdvisoryLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return nil
	}
	conn := l.conn
	l.conn = nil
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID); err != nil {
		return fmt.Errorf("failed to release advisory lock: %w", err)
	}
	return nil
}

func (l *AdvisoryLock) Close() error {
	if !l.owned {
		return nil
	}
	return l.db.Close()
}
