package worker

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Limiter paces remote calls. The cooldown is a fixed pause the batch
// driver takes between items; the optional call ceiling applies to every
// remote call, retries included.
type Limiter struct {
	cooldown time.Duration
	calls    *rate.Limiter
	sleep    SleepFunc
}

// NewLimiter creates a limiter. requestsPerSecond <= 0 disables the ceiling.
func NewLimiter(cooldown time.Duration, requestsPerSecond float64) *Limiter {
	l := &Limiter{
		cooldown: cooldown,
		sleep:    Sleep,
	}
	if requestsPerSecond > 0 {
		l.calls = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return l
}

// WithSleep replaces the sleep function, for tests
func (l *Limiter) WithSleep(sleep SleepFunc) *Limiter {
	l.sleep = sleep
	return l
}

// Cooldown pauses for the configured cooldown
func (l *Limiter) Cooldown(ctx context.Context) error {
	if l == nil || l.cooldown <= 0 {
		return nil
	}
	return l.sleep(ctx, l.cooldown)
}

// WaitCall blocks until the call ceiling admits one more remote call
func (l *Limiter) WaitCall(ctx context.Context) error {
	if l == nil || l.calls == nil {
		return nil
	}
	return l.calls.Wait(ctx)
}
