package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_Cooldown(t *testing.T) {
	sleeper := &recordingSleep{}
	limiter := NewLimiter(250*time.Millisecond, 0).WithSleep(sleeper.Sleep)

	if err := limiter.Cooldown(context.Background()); err != nil {
		t.Fatalf("cooldown failed: %v", err)
	}
	if len(sleeper.delays) != 1 || sleeper.delays[0] != 250*time.Millisecond {
		t.Errorf("unexpected delays %v", sleeper.delays)
	}
}

func TestLimiter_NoCooldown(t *testing.T) {
	sleeper := &recordingSleep{}
	limiter := NewLimiter(0, 0).WithSleep(sleeper.Sleep)

	if err := limiter.Cooldown(context.Background()); err != nil {
		t.Fatalf("cooldown failed: %v", err)
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("expected no sleep, got %v", sleeper.delays)
	}

	var nilLimiter *Limiter
	if err := nilLimiter.Cooldown(context.Background()); err != nil {
		t.Errorf("nil limiter should be a no-op: %v", err)
	}
	if err := nilLimiter.WaitCall(context.Background()); err != nil {
		t.Errorf("nil limiter should be a no-op: %v", err)
	}
}

func TestLimiter_WaitCall(t *testing.T) {
	limiter := NewLimiter(0, 20) // 20 rps, burst 1
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.WaitCall(ctx); err != nil {
			t.Fatalf("wait failed: %v", err)
		}
	}
	// first call is free, the next two wait ~50ms each
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected calls to be spaced out, took %v", elapsed)
	}
}

func TestLimiter_WaitCallCancelled(t *testing.T) {
	limiter := NewLimiter(0, 0.1)
	ctx, cancel := context.WithCancel(context.Background())

	_ = limiter.WaitCall(ctx) // consumes the burst
	cancel()
	if err := limiter.WaitCall(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); err == nil {
		t.Error("expected cancelled sleep to return an error")
	}

	start := time.Now()
	if err := Sleep(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("sleep failed: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("sleep returned early")
	}
}
