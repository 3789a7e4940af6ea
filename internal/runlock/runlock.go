// Package runlock serializes bundler batches across processes.
//
// The run cursor is read at the start of a batch and written at the end, so
// two overlapping batches would select and upload the same source files.
// Callers hold a Lock for the duration of a batch.
package runlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/config"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/logger"
)

// ErrLocked is returned when another batch holds the lock.
var ErrLocked = errors.New("another batch is running")

// Lock is a non-blocking mutual exclusion lock.
type Lock interface {
	// Acquire tries to take the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)

	// Release gives the lock up if it is still held by this instance.
	Release(ctx context.Context) error

	// Close releases client resources.
	Close() error
}

// New creates the lock selected by cfg.Backend.
func New(cfg config.LockConfig) (Lock, error) {
	switch cfg.Backend {
	case config.LockNone, "":
		return None{}, nil
	case config.LockRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return newOwnedRedisLock(client, cfg.Key, cfg.TTL())
	case config.LockPostgres:
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open lock database: %w", err)
		}
		return newOwnedAdvisoryLock(db, cfg.Key), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
	}
}

// With runs fn while holding l. It returns ErrLocked without calling fn
// when the lock is taken. A failed release is logged on log, or on the
// default logger when log is nil, and does not change fn's result.
func With(ctx context.Context, l Lock, log *logger.Logger, fn func() error) error {
	if log == nil {
		log = logger.Default()
	}

	ok, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLocked
	}
	defer func() {
		if err := l.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("run lock release failed", "error", err)
		}
	}()
	return fn()
}

// None is a lock that is always free.
type None struct{}

func (None) Acquire(context.Context) (bool, error) { return true, nil }
func (None) Release(context.Context) error         { return nil }
func (None) Close() error                          { return nil }

// ttlOrDefault keeps a zero TTL from creating a lock that never expires.
func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return time.Hour
	}
	return ttl
}
