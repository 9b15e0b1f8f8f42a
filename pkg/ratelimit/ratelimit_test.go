package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSlidingWindowAllow(t *testing.T) {
	now := time.Unix(1000, 0)
	sw := NewSlidingWindow(2, 10*time.Second)
	sw.now = func() time.Time { return now }

	if !sw.Allow() || !sw.Allow() {
		t.Fatalf("first two requests should pass")
	}
	if sw.Allow() {
		t.Fatalf("third request inside window should be denied")
	}
	if sw.Remaining() != 0 {
		t.Fatalf("remaining got=%d want=0", sw.Remaining())
	}

	now = now.Add(11 * time.Second)
	if !sw.Allow() {
		t.Fatalf("request after window should pass")
	}
	if sw.Remaining() != 1 {
		t.Fatalf("remaining got=%d want=1", sw.Remaining())
	}
}

func TestWaitHonoursContext(t *testing.T) {
	sw := NewSlidingWindow(1, time.Hour)
	if err := sw.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := sw.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestManagerUnlimited(t *testing.T) {
	m := NewManager(0, 0, time.Second)
	for i := 0; i < 100; i++ {
		if err := m.Wait(context.Background(), EndpointBets); err != nil {
			t.Fatalf("unlimited wait failed: %v", err)
		}
	}
	if err := m.Wait(context.Background(), "unknown"); err != nil {
		t.Fatalf("unknown endpoint should pass: %v", err)
	}
	var nilMgr *Manager
	if err := nilMgr.Wait(context.Background(), EndpointGrids); err != nil {
		t.Fatalf("nil manager should pass: %v", err)
	}
}
