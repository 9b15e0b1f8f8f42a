package risk

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestConsecutiveErrorsOpenBreaker(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxConsecutiveErrors: 2})
	one := decimal.NewFromInt(1)

	cb.OnError()
	if err := cb.AllowTrading(one); err != nil {
		t.Fatalf("one error should not open: %v", err)
	}
	cb.OnSuccess(one)
	cb.OnError()
	if err := cb.AllowTrading(one); err != nil {
		t.Fatalf("success should reset the counter: %v", err)
	}
	cb.OnError()
	if err := cb.AllowTrading(one); !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	// 已熔断：即使成功也保持打开，直到 Resume
	cb.OnSuccess(one)
	if err := cb.AllowTrading(one); !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Fatalf("breaker should stay halted, got %v", err)
	}
	cb.Resume()
	if err := cb.AllowTrading(one); err != nil {
		t.Fatalf("resume should allow trading: %v", err)
	}
}

func TestDailySpendLimit(t *testing.T) {
	now := time.Date(2026, 5, 1, 23, 0, 0, 0, time.Local)
	cb := NewCircuitBreaker(CircuitBreakerConfig{DailySpendLimit: decimal.NewFromInt(25)})
	cb.now = func() time.Time { return now }
	ten := decimal.NewFromInt(10)

	for i := 0; i < 2; i++ {
		if err := cb.AllowTrading(ten); err != nil {
			t.Fatalf("bet %d should be allowed: %v", i, err)
		}
		cb.OnSuccess(ten)
	}
	if err := cb.AllowTrading(ten); !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Fatalf("30 > 25 should be refused, got %v", err)
	}
	if err := cb.AllowTrading(decimal.NewFromInt(5)); err != nil {
		t.Fatalf("exactly at the limit is allowed: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if got := cb.DailySpend(); !got.IsZero() {
		t.Fatalf("spend should roll over at midnight, got %s", got)
	}
	if err := cb.AllowTrading(ten); err != nil {
		t.Fatalf("new day should allow trading: %v", err)
	}
}

func TestNilBreakerAllowsEverything(t *testing.T) {
	var cb *CircuitBreaker
	cb.OnError()
	cb.OnSuccess(decimal.NewFromInt(1))
	if err := cb.AllowTrading(decimal.NewFromInt(1e6)); err != nil {
		t.Fatalf("nil breaker: %v", err)
	}
}
