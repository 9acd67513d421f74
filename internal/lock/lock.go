// Package lock serializes work on a single key, such as an investor email,
// across concurrent requests.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/investorhub/internal/observability/metrics"
)

var (
	ErrLockTimeout = errors.New("lock_timeout")
	ErrEmptyKey    = errors.New("lock key is empty")
)

// Locker acquires an exclusive lock for key. The returned unlock func is safe
// to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type instrumented struct {
	next    Locker
	backend string
	metrics *metrics.Metrics
}

// Instrument records how long callers wait for the lock.
func Instrument(next Locker, backend string, m *metrics.Metrics) Locker {
	if m == nil {
		return next
	}
	return &instrumented{next: next, backend: backend, metrics: m}
}

func (l *instrumented) Lock(ctx context.Context, key string) (func(), error) {
	start := time.Now()
	unlock, err := l.next.Lock(ctx, key)
	l.metrics.RecordLockWait(ctx, time.Since(start), l.backend)
	return unlock, err
}
