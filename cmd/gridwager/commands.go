package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/betbot/gridwager/internal/domain"
	"github.com/betbot/gridwager/internal/journal"
	"github.com/betbot/gridwager/internal/metrics"
	"github.com/betbot/gridwager/internal/rationale"
	"github.com/betbot/gridwager/internal/runner"
	"github.com/betbot/gridwager/internal/selector"
	"github.com/betbot/gridwager/internal/server"
	"github.com/betbot/gridwager/internal/trading"
	"github.com/betbot/gridwager/pkg/config"
	"github.com/betbot/gridwager/pkg/logger"
	"github.com/betbot/gridwager/pkg/secretstore"
)

// cliOptions 不属于配置文件的一次性参数
type cliOptions struct {
	round string
}

// commandFlags 子命令参数直接覆盖到 cfg 上（优先级最高）
func commandFlags(cmd string, cfg *config.Config, opts *cliOptions) *flag.FlagSet {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	switch cmd {
	case "bet", "run", "serve":
		fs.StringVar(&cfg.Bet.Asset, "asset", cfg.Bet.Asset, "资产，例如 BTC")
		fs.StringVar(&cfg.Bet.Amount, "amount", cfg.Bet.Amount, "下注金额")
		fs.StringVar(&cfg.Bet.BalanceType, "pool", cfg.Bet.BalanceType, "资金池：test | bonus")
		fs.StringVar(&cfg.Bet.Strategy, "strategy", cfg.Bet.Strategy, "选格策略："+strings.Join(selector.Names(), " | "))
		fs.StringVar(&cfg.Bet.Template, "template", cfg.Bet.Template, "评论模板")
		fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "纸交易：不真正提交")
	}
	switch cmd {
	case "bet":
		fs.StringVar(&opts.round, "round", "1", "{round} 的值")
	case "run":
		fs.IntVar(&cfg.Runner.Rounds, "rounds", cfg.Runner.Rounds, "轮数（<=0 表示一直运行）")
		fs.IntVar(&cfg.Runner.IntervalSeconds, "interval", cfg.Runner.IntervalSeconds, "两轮间隔（秒）")
		fs.StringVar(&cfg.Runner.DailySpendLimit, "daily-limit", cfg.Runner.DailySpendLimit, "当日花费上限（空=不限）")
	case "serve":
		fs.StringVar(&cfg.ServerListen, "listen", cfg.ServerListen, "HTTP 监听地址")
	}
	return fs
}

func orderFromConfig(cfg *config.Config, round string) (trading.Order, error) {
	amount, err := cfg.BetAmount()
	if err != nil {
		return trading.Order{}, err
	}
	pool, err := domain.ParseBalanceType(cfg.Bet.BalanceType)
	if err != nil {
		return trading.Order{}, err
	}
	ctx := rationale.Context{}
	if round != "" {
		ctx[rationale.KeyRound] = round
	}
	return trading.Order{
		Asset:       strings.ToUpper(strings.TrimSpace(cfg.Bet.Asset)),
		Amount:      amount,
		BalanceType: pool,
		Strategy:    selector.Named(cfg.Bet.Strategy),
		Template:    cfg.Bet.Template,
		Context:     ctx,
	}, nil
}

func startMetrics(ctx context.Context, cfg *config.Config) {
	if cfg.MetricsListen == "" {
		return
	}
	if _, err := metrics.StartAsync(ctx, cfg.MetricsListen); err != nil {
		logger.Warnf("metrics server failed: %v", err)
	}
}

func cmdBet(ctx context.Context, a *app, opts cliOptions) error {
	order, err := orderFromConfig(a.cfg, opts.round)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout())
	defer cancel()

	res, err := a.orch.Submit(ctx, order)
	if err != nil {
		return err
	}
	fmt.Println(renderResult(res, a.cfg.DryRun))
	return nil
}

func cmdRun(ctx context.Context, a *app) error {
	startMetrics(ctx, a.cfg)
	cb, err := a.breaker()
	if err != nil {
		return err
	}
	order, err := orderFromConfig(a.cfg, "")
	if err != nil {
		return err
	}
	r := runner.New(timeoutSubmitter{a.orch, a.cfg.RequestTimeout()}, cb, runner.Config{
		Rounds:   a.cfg.Runner.Rounds,
		Interval: a.cfg.RunnerInterval(),
	})
	sum, err := r.Run(ctx, order, func(rd runner.Round) {
		fmt.Println(renderRound(rd, a.cfg.DryRun))
	})
	fmt.Println(renderSummary(sum))
	return err
}

// timeoutSubmitter 给每一轮单独加超时
type timeoutSubmitter struct {
	orch    *trading.Orchestrator
	timeout time.Duration
}

func (t timeoutSubmitter) Submit(ctx context.Context, o trading.Order) (*domain.BetResult, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.orch.Submit(ctx, o)
}

func cmdServe(ctx context.Context, a *app) error {
	startMetrics(ctx, a.cfg)
	scfg := server.Config{
		Submitter: a.orch,
		Defaults: server.Defaults{
			Asset:       a.cfg.Bet.Asset,
			Amount:      a.cfg.Bet.Amount,
			BalanceType: a.cfg.Bet.BalanceType,
			Strategy:    a.cfg.Bet.Strategy,
			Template:    a.cfg.Bet.Template,
		},
		RequestTimeout: a.cfg.RequestTimeout(),
	}
	if a.journal != nil {
		scfg.Journal = a.journal
	}
	srv, err := server.New(scfg)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              a.cfg.ServerListen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.closer.OnShutdown("http", httpSrv.Shutdown)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("gridwager api listening on %s", a.cfg.ServerListen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	logger.Infof("server stopping")
	return nil
}

func cmdNonce(a *app) error {
	fmt.Println(renderKV([][2]string{
		{"store", a.seqStore},
		{"current", fmt.Sprint(a.seq.CurrentOrInit())},
	}))
	return nil
}

func cmdScore(args []string, cfg *config.Config) error {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	file := fs.String("file", "", "从文件读取评论（- 表示 stdin）")
	if err := fs.Parse(args); err != nil {
		return err
	}

	text := strings.Join(fs.Args(), " ")
	switch *file {
	case "":
	case "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		text = string(b)
	default:
		b, err := os.ReadFile(*file)
		if err != nil {
			return err
		}
		text = string(b)
	}
	if strings.TrimSpace(text) == "" {
		// 没有输入时评估默认模板的渲染效果
		text = rationale.Render(cfg.Bet.Template, rationale.Context{rationale.KeyAsset: cfg.Bet.Asset, rationale.KeyStrategy: cfg.Bet.Strategy})
		fmt.Println(mutedStyle.Render(text))
	}
	fmt.Println(renderAssessment(rationale.Assess(text)))
	return nil
}

func cmdHistory(ctx context.Context, args []string, cfg *config.Config) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "显示条数")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.JournalPath == "" {
		return errors.New("journal_path 未配置")
	}
	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return err
	}
	defer j.Close()

	items, err := j.List(ctx, *limit)
	if err != nil {
		return err
	}
	today := time.Now()
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	st, err := j.Stats(ctx, today)
	if err != nil {
		return err
	}
	fmt.Println(renderHistory(items))
	fmt.Println(renderStats(st))
	return nil
}

func cmdSecrets(args []string, cfg *config.Config) error {
	if len(args) != 2 || args[0] != "set-api-key" {
		return errors.New("用法: gridwager secrets set-api-key <key>")
	}
	if cfg.Secrets.Path == "" {
		return errors.New("secrets.path (GRIDWAGER_SECRETS_PATH) 未配置")
	}
	s, err := openSecrets(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.SetString(secretstore.KeyAPIKey, strings.TrimSpace(args[1])); err != nil {
		return err
	}
	fmt.Println(okStyle.Render("✓ api key stored in " + cfg.Secrets.Path))
	return nil
}
