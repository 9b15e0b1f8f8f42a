package risk

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// ErrCircuitBreakerOpen 表示断路器已打开，禁止继续下注。
var ErrCircuitBreakerOpen = fmt.Errorf("circuit breaker open")

// CircuitBreakerConfig 断路器配置。
// 约定：阈值 <= 0 表示关闭对应限制。
type CircuitBreakerConfig struct {
	// MaxConsecutiveErrors 连续失败上限（远端拒绝 / 网络失败）。
	MaxConsecutiveErrors int64

	// DailySpendLimit 当日已接受下注总额上限。达到或超过时熔断。
	DailySpendLimit decimal.Decimal
}

// CircuitBreaker 连续错误计数走原子变量；当日花费是 decimal，用小锁保护。
type CircuitBreaker struct {
	halted            atomic.Bool
	consecutiveErrors atomic.Int64

	maxConsecutiveErrors atomic.Int64

	mu         sync.Mutex
	spendLimit decimal.Decimal
	dailySpend decimal.Decimal
	dayKey     int // YYYYMMDD

	now func() time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	cb := &CircuitBreaker{now: time.Now}
	cb.SetConfig(cfg)
	return cb
}

func (cb *CircuitBreaker) SetConfig(cfg CircuitBreakerConfig) {
	if cb == nil {
		return
	}
	cb.maxConsecutiveErrors.Store(cfg.MaxConsecutiveErrors)
	cb.mu.Lock()
	cb.spendLimit = cfg.DailySpendLimit
	cb.mu.Unlock()
}

// Halt 手动熔断（如人工介入或检测到严重异常）。
func (cb *CircuitBreaker) Halt() {
	if cb == nil {
		return
	}
	cb.halted.Store(true)
}

// Resume 手动恢复（会同时清空连续错误计数）。
func (cb *CircuitBreaker) Resume() {
	if cb == nil {
		return
	}
	cb.halted.Store(false)
	cb.consecutiveErrors.Store(0)
}

// AllowTrading 检查是否允许下一次下注；next 为即将下注的金额。
func (cb *CircuitBreaker) AllowTrading(next decimal.Decimal) error {
	if cb == nil {
		return nil
	}

	if cb.halted.Load() {
		return ErrCircuitBreakerOpen
	}

	maxErr := cb.maxConsecutiveErrors.Load()
	if n := cb.consecutiveErrors.Load(); maxErr > 0 && n >= maxErr {
		cb.halted.Store(true)
		return fmt.Errorf("%w: %d consecutive failures (limit %d)", ErrCircuitBreakerOpen, n, maxErr)
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.spendLimit.IsPositive() {
		cb.rollDayLocked()
		if cb.dailySpend.Add(next).GreaterThan(cb.spendLimit) {
			return fmt.Errorf("%w: daily spend %s + %s exceeds limit %s", ErrCircuitBreakerOpen, cb.dailySpend, next, cb.spendLimit)
		}
	}
	return nil
}

// OnSuccess 下注被接受后调用：清空连续错误计数并累计当日花费。
func (cb *CircuitBreaker) OnSuccess(amount decimal.Decimal) {
	if cb == nil {
		return
	}
	cb.consecutiveErrors.Store(0)
	cb.mu.Lock()
	cb.rollDayLocked()
	cb.dailySpend = cb.dailySpend.Add(amount)
	cb.mu.Unlock()
}

// OnError 在一次提交失败后调用，用于累计连续错误计数。
func (cb *CircuitBreaker) OnError() {
	if cb == nil {
		return
	}
	cb.consecutiveErrors.Add(1)
}

// DailySpend 当日已累计的花费
func (cb *CircuitBreaker) DailySpend() decimal.Decimal {
	if cb == nil {
		return decimal.Zero
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.rollDayLocked()
	return cb.dailySpend
}

func (cb *CircuitBreaker) rollDayLocked() {
	// YYYYMMDD（本地时间即可；风控用途不要求跨时区精确）
	now := cb.now()
	key := now.Year()*10000 + int(now.Month())*100 + now.Day()
	if cb.dayKey != key {
		cb.dayKey = key
		cb.dailySpend = decimal.Zero
	}
}
