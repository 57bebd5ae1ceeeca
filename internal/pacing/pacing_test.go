package pacing

import (
	"context"
	"testing"
	"time"
)

func TestWaitFirstCallDoesNotBlock(t *testing.T) {
	s := NewScheduler(time.Second)
	var slept time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept += d
		return nil
	}

	if err := s.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if slept != 0 {
		t.Fatalf("first call should not sleep, slept %v", slept)
	}
}

func TestWaitEnforcesInterval(t *testing.T) {
	s := NewScheduler(time.Second)
	current := time.Unix(100, 0)
	s.now = func() time.Time { return current }
	var slept time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept += d
		return nil
	}

	ctx := context.Background()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	// A call 300ms later must wait the remaining 700ms.
	current = current.Add(300 * time.Millisecond)
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if slept != 700*time.Millisecond {
		t.Fatalf("expected 700ms sleep, got %v", slept)
	}

	// A call after a long gap does not wait.
	slept = 0
	current = current.Add(5 * time.Second)
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if slept != 0 {
		t.Fatalf("expected no sleep after long gap, slept %v", slept)
	}
}

func TestWaitZeroIntervalNoop(t *testing.T) {
	s := NewScheduler(0)
	for i := 0; i < 3; i++ {
		if err := s.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
}

func TestWaitHonorsCancelledContext(t *testing.T) {
	s := NewScheduler(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Wait(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
