package trading

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gridwager/internal/domain"
	"github.com/betbot/gridwager/internal/metrics"
	"github.com/betbot/gridwager/internal/rationale"
	"github.com/betbot/gridwager/internal/selector"
	"github.com/betbot/gridwager/pkg/logger"
	"github.com/betbot/gridwager/pkg/sdk/api"
	"github.com/betbot/gridwager/pkg/sdk/apierrors"
)

// Sequencer nonce 序列（*sequence.Sequencer 实现）
type Sequencer interface {
	CurrentOrInit() int64
	Advance() (int64, error)
	Reset(v int64) error
}

// Recorder 提交尝试的旁路记录（账本）。失败只记日志。
type Recorder interface {
	Record(ctx context.Context, a domain.BetAttempt) error
}

// Order 一次下注意图。Context 中的 odds/gridLevel 会被所选格子覆盖。
type Order struct {
	Asset       string
	Amount      decimal.Decimal
	BalanceType domain.BalanceType
	Strategy    selector.Strategy
	Template    string
	Context     rationale.Context
}

func (o Order) validate() error {
	if strings.TrimSpace(o.Asset) == "" {
		return apierrors.Validationf("asset", "asset is required")
	}
	if !o.Amount.IsPositive() {
		return apierrors.Validationf("amount", "amount must be greater than 0, got %s", o.Amount)
	}
	if !o.BalanceType.Valid() {
		// 真实资金池在这里被拒绝，不会走到网络
		if _, err := domain.ParseBalanceType(string(o.BalanceType)); err != nil {
			return err
		}
		return apierrors.Validationf("balanceType", "balance pool is required (allowed: %s, %s)", domain.BalanceTest, domain.BalanceBonus)
	}
	return nil
}

// Orchestrator 拉取 → 选格 → 生成评论 → 取 nonce → 提交 → 冲突恢复。
// 一个 Orchestrator 对应一个凭证；并发 Submit 由内部互斥锁串行化。
type Orchestrator struct {
	mu       sync.Mutex
	gateway  api.Gateway
	seq      Sequencer
	recorder Recorder
	now      func() time.Time
	log      *logrus.Entry
}

// Option 构造选项
type Option func(*Orchestrator)

// WithRecorder 挂载账本
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New 创建编排器
func New(gateway api.Gateway, seq Sequencer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gateway: gateway,
		seq:     seq,
		now:     time.Now,
		log:     logger.WithField("component", "trading"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit 执行一次完整的下注周期。
//
// 只有带 expectedNonce 的冲突会自动恢复一次（Reset + Advance + 重新提交）；
// 第二次冲突包装为 apierrors.ErrNonceConflictPersisted 返回。其它错误原样返回。
func (o *Orchestrator) Submit(ctx context.Context, order Order) (*domain.BetResult, error) {
	if err := order.validate(); err != nil {
		metrics.BetsSubmitted.WithLabelValues("invalid").Inc()
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	snap, err := o.gateway.FetchGrids(ctx, order.Asset)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		snap = &domain.GridSnapshot{Asset: order.Asset}
	}
	grid, err := selector.Select(snap.Grids, snap.ReferencePrice(), order.Strategy)
	if err != nil {
		metrics.BetsSubmitted.WithLabelValues("invalid").Inc()
		return nil, err
	}
	metrics.SelectedStrategy.WithLabelValues(order.Strategy.Name()).Inc()

	commentary := rationale.Render(order.Template, composeContext(order, snap, grid))
	if v := rationale.Validate(commentary); !v.Valid {
		metrics.BetsSubmitted.WithLabelValues("invalid").Inc()
		return nil, v.Err
	}
	score := rationale.Score(commentary)
	metrics.CommentaryScore.Observe(float64(score))

	req := domain.BetRequest{
		GridID:      grid.GridID,
		Amount:      order.Amount,
		BalanceType: order.BalanceType,
		Commentary:  commentary,
		Strategy:    order.Strategy.Name(),
	}

	resp, err := o.attempt(ctx, snap.Asset, &req, score)
	if conflict, ok := apierrors.AsNonceConflict(err); ok {
		metrics.NonceConflicts.Inc()
		o.log.WithFields(logrus.Fields{
			"nonce":    req.Nonce,
			"expected": conflict.ExpectedNonce,
		}).Warn("⚠️ nonce 冲突，按服务端期望值重新同步后重试一次")

		// Reset 的持久化失败不影响内存值
		_ = o.seq.Reset(conflict.ExpectedNonce)

		resp, err = o.attempt(ctx, snap.Asset, &req, score)
		if second, ok := apierrors.AsNonceConflict(err); ok {
			metrics.NonceConflicts.Inc()
			metrics.BetsSubmitted.WithLabelValues("conflict_escalated").Inc()
			o.recordOutcome(ctx, snap.Asset, req, score, domain.OutcomeEscalated, "", second)
			return nil, fmt.Errorf("%w: %w", apierrors.ErrNonceConflictPersisted, second)
		}
		if err == nil {
			metrics.BetsSubmitted.WithLabelValues("conflict_recovered").Inc()
		}
	} else if err == nil {
		metrics.BetsSubmitted.WithLabelValues("ok").Inc()
	}
	if err != nil {
		if !apierrors.IsValidation(err) && ctx.Err() == nil {
			metrics.BetsSubmitted.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}

	result := &domain.BetResult{
		Success:      true,
		OrderID:      resp.OrderID,
		Odds:         resp.Odds,
		NewBalance:   resp.NewBalance,
		QualityScore: score,
		Nonce:        req.Nonce,
		GridID:       req.GridID,
	}
	if result.Odds.IsZero() {
		if odds, perr := decimal.NewFromString(grid.Odds); perr == nil {
			result.Odds = odds
		}
	}
	if resp.QualityScore != nil {
		result.QualityScore = *resp.QualityScore
	}
	result.Tier = string(rationale.TierOf(result.QualityScore))

	o.log.WithFields(logrus.Fields{
		"order": result.OrderID,
		"grid":  result.GridID,
		"nonce": result.Nonce,
		"score": result.QualityScore,
		"tier":  result.Tier,
	}).Infof("✅ 下注成功: %s %s @ %s", req.Amount, req.BalanceType, result.Odds)
	return result, nil
}

// attempt 取一个新 nonce 并提交一次。取号前检查 ctx，避免白白消耗 nonce。
func (o *Orchestrator) attempt(ctx context.Context, asset string, req *domain.BetRequest, score int) (*api.PlaceBetResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nonce, warn := o.seq.Advance()
	if warn != nil {
		o.log.WithError(warn).Warn("nonce 持久化失败，继续使用内存值")
	}
	req.Nonce = nonce

	resp, err := o.gateway.PlaceBet(ctx, *req)
	switch {
	case err == nil:
		o.recordOutcome(ctx, asset, *req, score, domain.OutcomeAccepted, resp.OrderID, nil)
	case isConflict(err):
		o.recordOutcome(ctx, asset, *req, score, domain.OutcomeConflict, "", err)
	default:
		o.recordOutcome(ctx, asset, *req, score, domain.OutcomeRejected, "", err)
		o.log.WithError(err).WithField("nonce", nonce).Warn("❌ 下注被拒绝")
	}
	return resp, err
}

func isConflict(err error) bool {
	_, ok := apierrors.AsNonceConflict(err)
	return ok
}

func (o *Orchestrator) recordOutcome(ctx context.Context, asset string, req domain.BetRequest, score int, outcome domain.AttemptOutcome, orderID string, cause error) {
	if o.recorder == nil {
		return
	}
	a := domain.BetAttempt{
		Nonce:       req.Nonce,
		Asset:       asset,
		GridID:      req.GridID,
		Amount:      req.Amount,
		BalanceType: req.BalanceType,
		Strategy:    req.Strategy,
		Outcome:     outcome,
		OrderID:     orderID,
		Score:       score,
		Tier:        string(rationale.TierOf(score)),
		Commentary:  req.Commentary,
		CreatedAt:   o.now(),
	}
	if cause != nil {
		a.Error = cause.Error()
	}
	// 账本不受调用方取消影响
	if err := o.recorder.Record(context.WithoutCancel(ctx), a); err != nil {
		o.log.WithError(err).WithField("nonce", req.Nonce).Warn("账本写入失败")
	}
}

// composeContext 调用方上下文 + 所选格子的 odds/gridLevel；asset/price/strategy 缺省时用快照补全。
func composeContext(order Order, snap *domain.GridSnapshot, grid domain.Grid) rationale.Context {
	ctx := order.Context.Clone()
	ctx[rationale.KeyOdds] = grid.Odds
	ctx[rationale.KeyGridLevel] = grid.Level()
	if ctx[rationale.KeyAsset] == "" {
		ctx[rationale.KeyAsset] = snap.Asset
	}
	if ctx[rationale.KeyPrice] == "" && !snap.CurrentPrice.IsZero() {
		ctx[rationale.KeyPrice] = snap.CurrentPrice.String()
	}
	if ctx[rationale.KeyStrategy] == "" {
		ctx[rationale.KeyStrategy] = order.Strategy.Name()
	}
	return ctx
}
