package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock drives the limiter without real sleeping: sleep advances the
// clock by the requested duration.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(interval time.Duration) (*Limiter, *fakeClock) {
	clock := newFakeClock()
	l := New(interval)
	l.now = clock.Now
	l.sleep = clock.Sleep
	return l, clock
}

func TestFirstAcquireDoesNotWait(t *testing.T) {
	l, _ := newTestLimiter(300 * time.Second)

	waited, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if waited != 0 {
		t.Errorf("first acquire should not wait, waited %v", waited)
	}
}

func TestBackToBackAcquiresAreSpacedByInterval(t *testing.T) {
	l, clock := newTestLimiter(300 * time.Second)
	ctx := context.Background()

	if _, err := l.Acquire(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := clock.Now()

	waited, err := l.Acquire(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if waited != 300*time.Second {
		t.Errorf("expected a full-interval wait, waited %v", waited)
	}
	if got := clock.Now().Sub(first); got < 300*time.Second {
		t.Errorf("second acquire completed %v after the first, want >= 300s", got)
	}
}

func TestElapsedTimeShortensTheWait(t *testing.T) {
	l, clock := newTestLimiter(300 * time.Second)
	ctx := context.Background()

	l.Acquire(ctx)
	clock.Advance(120 * time.Second)

	waited, err := l.Acquire(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if waited != 180*time.Second {
		t.Errorf("expected 180s residual wait, waited %v", waited)
	}
}

func TestIntervalAlreadyElapsed(t *testing.T) {
	l, clock := newTestLimiter(300 * time.Second)
	ctx := context.Background()

	l.Acquire(ctx)
	clock.Advance(301 * time.Second)

	waited, err := l.Acquire(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if waited != 0 {
		t.Errorf("expected no wait once the interval has passed, waited %v", waited)
	}
}

func TestZeroIntervalNeverWaits(t *testing.T) {
	l, _ := newTestLimiter(0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		waited, err := l.Acquire(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if waited != 0 {
			t.Errorf("expected no wait with interval disabled, waited %v", waited)
		}
	}
}

func TestCancellationDuringWaitDoesNotStamp(t *testing.T) {
	clock := newFakeClock()
	l := New(300 * time.Second)
	l.now = clock.Now
	l.sleep = func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}

	// Real sleep path for the first acquire (no wait needed).
	if _, err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stamped := l.last

	if _, err := l.Acquire(context.Background()); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !l.last.Equal(stamped) {
		t.Error("cancelled acquire must not update the last-request stamp")
	}
}

func TestConcurrentAcquiresSerialize(t *testing.T) {
	const n = 4
	l, clock := newTestLimiter(300 * time.Second)
	start := clock.Now()

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := l.Acquire(context.Background()); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	// n acquires back to back advance the clock by (n-1) full intervals.
	want := time.Duration(n-1) * 300 * time.Second
	if got := clock.Now().Sub(start); got != want {
		t.Errorf("expected %v of enforced waiting for %d acquires, got %v", want, n, got)
	}
}

func TestSleepWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sleepWithContext(ctx, time.Hour); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
