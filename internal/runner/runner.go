package runner

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gridwager/internal/domain"
	"github.com/betbot/gridwager/internal/rationale"
	"github.com/betbot/gridwager/internal/risk"
	"github.com/betbot/gridwager/internal/trading"
	"github.com/betbot/gridwager/pkg/logger"
	"github.com/betbot/gridwager/pkg/sdk/apierrors"
)

// Submitter 单次下注（*trading.Orchestrator 实现）
type Submitter interface {
	Submit(ctx context.Context, order trading.Order) (*domain.BetResult, error)
}

// Config 循环配置
type Config struct {
	Rounds     int           // <= 0 表示一直运行到 ctx 结束
	Interval   time.Duration // 两轮之间的间隔
	FirstRound int           // {round} 的起始值，默认 1
}

// Round 单轮结果
type Round struct {
	Number int
	Result *domain.BetResult
	Err    error
}

// Summary 整个循环的汇总
type Summary struct {
	Rounds   int
	Accepted int
	Failed   int
	Spent    decimal.Decimal
}

// Runner 按固定间隔重复下注；本地校验错误或断路器打开时停止。
type Runner struct {
	sub     Submitter
	breaker *risk.CircuitBreaker
	cfg     Config
	log     *logrus.Entry
}

func New(sub Submitter, breaker *risk.CircuitBreaker, cfg Config) *Runner {
	if cfg.FirstRound <= 0 {
		cfg.FirstRound = 1
	}
	return &Runner{
		sub:     sub,
		breaker: breaker,
		cfg:     cfg,
		log:     logger.WithField("component", "runner"),
	}
}

// Run 执行循环。onRound 可为 nil。
// 返回的 error 为停止原因；ctx 结束或跑满轮数时为 nil。
func (r *Runner) Run(ctx context.Context, order trading.Order, onRound func(Round)) (Summary, error) {
	sum := Summary{Spent: decimal.Zero}

	var tickC <-chan time.Time
	if r.cfg.Interval > 0 {
		ticker := time.NewTicker(r.cfg.Interval)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for i := 0; r.cfg.Rounds <= 0 || i < r.cfg.Rounds; i++ {
		if i > 0 {
			if tickC != nil {
				select {
				case <-ctx.Done():
					return sum, nil
				case <-tickC:
				}
			} else if ctx.Err() != nil {
				return sum, nil
			}
		}
		if ctx.Err() != nil {
			return sum, nil
		}

		if err := r.breaker.AllowTrading(order.Amount); err != nil {
			r.log.WithError(err).Warn("🛑 断路器打开，停止循环")
			return sum, err
		}

		n := r.cfg.FirstRound + i
		o := order
		o.Context = order.Context.Clone()
		o.Context[rationale.KeyRound] = strconv.Itoa(n)

		res, err := r.sub.Submit(ctx, o)
		sum.Rounds++
		if onRound != nil {
			onRound(Round{Number: n, Result: res, Err: err})
		}

		switch {
		case err == nil:
			sum.Accepted++
			sum.Spent = sum.Spent.Add(order.Amount)
			r.breaker.OnSuccess(order.Amount)
		case ctx.Err() != nil:
			// 外层 ctx 结束（Ctrl-C）；单轮自身超时不在此列，按普通失败计入断路器
			return sum, nil
		case apierrors.IsValidation(err):
			// 本地错误每一轮都会重复出现，继续没有意义
			sum.Failed++
			return sum, err
		default:
			sum.Failed++
			r.breaker.OnError()
			r.log.WithError(err).WithField("round", n).Warn("本轮下注失败")
		}
	}
	return sum, nil
}
