package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/gridwager/internal/domain"
	"github.com/betbot/gridwager/internal/rationale"
	"github.com/betbot/gridwager/internal/risk"
	"github.com/betbot/gridwager/internal/trading"
	"github.com/betbot/gridwager/pkg/sdk/apierrors"
)

type scripted struct {
	mu     sync.Mutex
	errs   []error
	rounds []string
}

func (s *scripted) Submit(_ context.Context, o trading.Order) (*domain.BetResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds = append(s.rounds, o.Context[rationale.KeyRound])
	var err error
	if len(s.errs) > 0 {
		err, s.errs = s.errs[0], s.errs[1:]
	}
	if err != nil {
		return nil, err
	}
	return &domain.BetResult{Success: true}, nil
}

func order() trading.Order {
	return trading.Order{Asset: "BTC", Amount: decimal.NewFromInt(5), BalanceType: domain.BalanceTest}
}

func TestRunsConfiguredRounds(t *testing.T) {
	sub := &scripted{errs: []error{nil, apierrors.FromResponse(429, "", "slow"), nil}}
	var seen []int
	sum, err := New(sub, nil, Config{Rounds: 3}).Run(context.Background(), order(), func(r Round) {
		seen = append(seen, r.Number)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, []string{"1", "2", "3"}, sub.rounds)
	assert.Equal(t, 3, sum.Rounds)
	assert.Equal(t, 2, sum.Accepted)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, "10", sum.Spent.String())
}

func TestValidationErrorStopsImmediately(t *testing.T) {
	sub := &scripted{errs: []error{apierrors.Validationf("commentary", "too short")}}
	sum, err := New(sub, nil, Config{Rounds: 5}).Run(context.Background(), order(), nil)
	assert.True(t, apierrors.IsValidation(err))
	assert.Equal(t, 1, sum.Rounds)
}

func TestBreakerStopsAfterConsecutiveErrors(t *testing.T) {
	boom := apierrors.Transport(errors.New("reset"))
	sub := &scripted{errs: []error{boom, boom, boom, boom}}
	cb := risk.NewCircuitBreaker(risk.CircuitBreakerConfig{MaxConsecutiveErrors: 2})
	sum, err := New(sub, cb, Config{Rounds: 10}).Run(context.Background(), order(), nil)
	assert.ErrorIs(t, err, risk.ErrCircuitBreakerOpen)
	assert.Equal(t, 2, sum.Rounds)
}

func TestBreakerStopsAtSpendLimit(t *testing.T) {
	sub := &scripted{}
	cb := risk.NewCircuitBreaker(risk.CircuitBreakerConfig{DailySpendLimit: decimal.NewFromInt(12)})
	sum, err := New(sub, cb, Config{Rounds: 10}).Run(context.Background(), order(), nil)
	assert.ErrorIs(t, err, risk.ErrCircuitBreakerOpen)
	assert.Equal(t, 2, sum.Accepted)
}

func TestContextEndsUnboundedLoop(t *testing.T) {
	sub := &scripted{}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	sum, err := New(sub, nil, Config{Interval: 10 * time.Millisecond, FirstRound: 100}).Run(ctx, order(), nil)
	require.NoError(t, err)
	assert.Greater(t, sum.Rounds, 0)
	assert.Equal(t, "100", sub.rounds[0])
}

// cancelling 模拟请求进行中收到 Ctrl-C：网关返回带 context.Canceled 的传输错误
type cancelling struct {
	cancel context.CancelFunc
	calls  int
}

func (c *cancelling) Submit(ctx context.Context, _ trading.Order) (*domain.BetResult, error) {
	c.calls++
	c.cancel()
	return nil, apierrors.Transport(ctx.Err())
}

func TestCancelMidRequestDoesNotTripBreaker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := &cancelling{cancel: cancel}
	cb := risk.NewCircuitBreaker(risk.CircuitBreakerConfig{MaxConsecutiveErrors: 1})

	sum, err := New(sub, cb, Config{Rounds: 5}).Run(ctx, order(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sub.calls)
	assert.Equal(t, 0, sum.Failed)
	assert.NoError(t, cb.AllowTrading(decimal.NewFromInt(1)))
}

func TestRoundTimeoutCountsAsFailure(t *testing.T) {
	timeout := apierrors.Transport(context.DeadlineExceeded)
	sub := &scripted{errs: []error{timeout, nil}}
	sum, err := New(sub, nil, Config{Rounds: 2}).Run(context.Background(), order(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Rounds)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Accepted)
}
