package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/betbot/gridwager/internal/journal"
	"github.com/betbot/gridwager/internal/risk"
	"github.com/betbot/gridwager/internal/sequence"
	"github.com/betbot/gridwager/internal/trading"
	"github.com/betbot/gridwager/pkg/config"
	"github.com/betbot/gridwager/pkg/logger"
	"github.com/betbot/gridwager/pkg/persistence"
	"github.com/betbot/gridwager/pkg/ratelimit"
	"github.com/betbot/gridwager/pkg/sdk/api"
	"github.com/betbot/gridwager/pkg/secretstore"
	"github.com/betbot/gridwager/pkg/shutdown"
)

// app 一次命令执行所需的全部组件
type app struct {
	cfg      *config.Config
	secrets  *secretstore.Store
	journal  *journal.Store
	seq      *sequence.Sequencer
	gateway  api.Gateway
	orch     *trading.Orchestrator
	seqStore string
	closer   *shutdown.Manager
}

func initLogger(cfg *config.Config) error {
	return logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
}

func openSecrets(cfg *config.Config) (*secretstore.Store, error) {
	if cfg.Secrets.Path == "" {
		return nil, nil
	}
	key, err := secretstore.ParseKey(cfg.Secrets.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("secrets.encryption_key: %w", err)
	}
	return secretstore.Open(secretstore.OpenOptions{Path: cfg.Secrets.Path, EncryptionKey: key})
}

// credentialID API Key 指纹，用于按凭据隔离 nonce
func credentialID(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:6])
}

// newApp 按配置装配：密钥库 → nonce 序列 → API 客户端 → 账本 → 编排器
func newApp(cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, closer: shutdown.NewManager()}

	secrets, err := openSecrets(cfg)
	if err != nil {
		return nil, fmt.Errorf("open secrets: %w", err)
	}
	if secrets != nil {
		a.secrets = secrets
		a.closer.OnShutdown("secrets", func(context.Context) error { return secrets.Close() })
	}

	if cfg.API.APIKey == "" && secrets != nil {
		v, ok, err := secrets.GetString(secretstore.KeyAPIKey)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("read api key from secrets: %w", err)
		}
		if ok {
			cfg.API.APIKey = v
		}
	}
	if cfg.API.APIKey == "" && !cfg.DryRun {
		a.Close()
		return nil, fmt.Errorf("api key not configured (GRIDWAGER_API_KEY or secrets %q)", secretstore.KeyAPIKey)
	}

	var backend sequence.Backend
	switch {
	case cfg.DryRun:
		// 纸交易不消耗真实 nonce
		a.seqStore = "memory (dry run)"
	case cfg.Sequence.Backend == config.SequenceBackendBadger:
		k := secrets.Int64("nonce:" + credentialID(cfg.API.APIKey))
		backend = k
		a.seqStore = k.Location()
	default:
		f := persistence.NewInt64File(cfg.Sequence.Path)
		backend = f
		a.seqStore = f.Location()
	}
	a.seq = sequence.New(backend)

	a.gateway = api.NewClient(api.Config{
		BaseURL:     cfg.API.BaseURL,
		APIKey:      cfg.API.APIKey,
		Timeout:     cfg.APITimeout(),
		ReadRetries: cfg.API.ReadRetries,
		Limits:      ratelimit.NewManager(cfg.API.GridsPerWindow, cfg.API.BetsPerWindow, cfg.RateWindow()),
		DryRun:      cfg.DryRun,
	})

	var opts []trading.Option
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open journal: %w", err)
		}
		a.journal = j
		a.closer.OnShutdown("journal", func(context.Context) error { return j.Close() })
		opts = append(opts, trading.WithRecorder(j))
	}
	a.orch = trading.New(a.gateway, a.seq, opts...)

	logger.WithFields(logrus.Fields{
		"api":      cfg.API.BaseURL,
		"sequence": a.seqStore,
		"journal":  cfg.JournalPath,
		"dry_run":  cfg.DryRun,
	}).Info("gridwager ready")
	return a, nil
}

func (a *app) breaker() (*risk.CircuitBreaker, error) {
	limit, err := a.cfg.DailySpendLimit()
	if err != nil {
		return nil, err
	}
	return risk.NewCircuitBreaker(risk.CircuitBreakerConfig{
		MaxConsecutiveErrors: a.cfg.Runner.MaxConsecutiveErrors,
		DailySpendLimit:      limit,
	}), nil
}

// Close 按打开的逆序释放资源
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.closer.Shutdown(ctx)
}
