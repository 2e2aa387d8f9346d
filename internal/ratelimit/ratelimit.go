// Package ratelimit enforces the upstream API's minimum interval between
// requests.
//
// The Aareguru operators ask integrators to poll at most once every five
// minutes. The limiter here is deliberately stronger than "no two fetches in
// the same window": the exclusion lock is held across the enforced sleep, so
// all real fetches in the process are fully serialized to at most one per
// interval, across every endpoint and city. A burst of N concurrent misses
// drains in no less than N intervals of wall-clock time.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is the process-wide request gate. One instance is constructed at
// startup and injected into every client session; see the aareguru package.
// The zero value is not usable, use New.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a limiter with the given minimum interval between requests.
// A non-positive interval disables rate limiting.
func New(interval time.Duration) *Limiter {
	return &Limiter{
		interval: interval,
		now:      time.Now,
		sleep:    sleepWithContext,
	}
}

// Acquire blocks until the caller is allowed to perform a real upstream
// fetch, then stamps the request time and returns how long it waited.
//
// The lock is held for the whole of the wait. That is what turns the limiter
// into a total order over fetches: a second caller arriving during the sleep
// queues on the mutex and then serves its own full interval.
//
// If ctx is cancelled during the wait, Acquire returns ctx.Err() without
// stamping, so the aborted slot is not charged against the next caller.
func (l *Limiter) Acquire(ctx context.Context) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var waited time.Duration
	if !l.last.IsZero() {
		elapsed := l.now().Sub(l.last)
		if wait := l.interval - elapsed; wait > 0 {
			if err := l.sleep(ctx, wait); err != nil {
				return 0, err
			}
			waited = wait
		}
	}

	l.last = l.now()
	return waited, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
