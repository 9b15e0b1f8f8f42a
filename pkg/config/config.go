package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/betbot/gridwager/internal/domain"
	"github.com/betbot/gridwager/internal/selector"
)

// 序列后端
const (
	SequenceBackendFile   = "file"
	SequenceBackendBadger = "badger"
)

// DefaultTemplate 默认评论模板
const DefaultTemplate = "Round {round}: {asset} trading at {price}. Taking grid level {gridLevel} at {odds}x via {strategy}; momentum and volatility favour this range."

// APIConfig 远端 API 配置
type APIConfig struct {
	BaseURL           string `yaml:"base_url" json:"base_url"`
	APIKey            string `yaml:"api_key" json:"api_key"`
	TimeoutSeconds    int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	ReadRetries       int    `yaml:"read_retries" json:"read_retries"` // 只作用于 GET
	GridsPerWindow    int    `yaml:"grids_per_window" json:"grids_per_window"`
	BetsPerWindow     int    `yaml:"bets_per_window" json:"bets_per_window"`
	RateWindowSeconds int    `yaml:"rate_window_seconds" json:"rate_window_seconds"`
}

// SecretsConfig Badger 密钥库（可选）
type SecretsConfig struct {
	Path          string `yaml:"path" json:"path"`
	EncryptionKey string `yaml:"encryption_key" json:"encryption_key"` // 16/24/32 字节，hex 或原文
}

// SequenceConfig nonce 存储
type SequenceConfig struct {
	Backend string `yaml:"backend" json:"backend"` // file | badger
	Path    string `yaml:"path" json:"path"`       // file 后端使用
}

// BetConfig 下注默认参数
type BetConfig struct {
	Asset       string `yaml:"asset" json:"asset"`
	Amount      string `yaml:"amount" json:"amount"`
	BalanceType string `yaml:"balance_type" json:"balance_type"`
	Strategy    string `yaml:"strategy" json:"strategy"`
	Template    string `yaml:"template" json:"template"`
}

// RunnerConfig 循环下注
type RunnerConfig struct {
	Rounds               int    `yaml:"rounds" json:"rounds"`
	IntervalSeconds      int    `yaml:"interval_seconds" json:"interval_seconds"`
	MaxConsecutiveErrors int64  `yaml:"max_consecutive_errors" json:"max_consecutive_errors"`
	DailySpendLimit      string `yaml:"daily_spend_limit" json:"daily_spend_limit"` // 空或 0 表示不限
}

// LogConfig 日志
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// Config 应用配置
type Config struct {
	API                   APIConfig      `yaml:"api" json:"api"`
	Secrets               SecretsConfig  `yaml:"secrets" json:"secrets"`
	Sequence              SequenceConfig `yaml:"sequence" json:"sequence"`
	Bet                   BetConfig      `yaml:"bet" json:"bet"`
	Runner                RunnerConfig   `yaml:"runner" json:"runner"`
	JournalPath           string         `yaml:"journal_path" json:"journal_path"` // 空表示不记账
	ServerListen          string         `yaml:"server_listen" json:"server_listen"`
	MetricsListen         string         `yaml:"metrics_listen" json:"metrics_listen"` // 空表示不启动
	Log                   LogConfig      `yaml:"log" json:"log"`
	RequestTimeoutSeconds int            `yaml:"request_timeout_seconds" json:"request_timeout_seconds"`
	DryRun                bool           `yaml:"dry_run" json:"dry_run"` // 纸交易：不真正提交
}

// Default 默认配置
func Default() *Config {
	return &Config{
		API: APIConfig{
			TimeoutSeconds:    15,
			ReadRetries:       2,
			GridsPerWindow:    20,
			BetsPerWindow:     5,
			RateWindowSeconds: 10,
		},
		Sequence: SequenceConfig{
			Backend: SequenceBackendFile,
			Path:    "data/nonce.txt",
		},
		Bet: BetConfig{
			Asset:       "BTC",
			Amount:      "1",
			BalanceType: string(domain.BalanceTest),
			Strategy:    selector.Balanced,
			Template:    DefaultTemplate,
		},
		Runner: RunnerConfig{
			Rounds:               10,
			IntervalSeconds:      60,
			MaxConsecutiveErrors: 3,
		},
		JournalPath:  "data/journal.db",
		ServerListen: ":8088",
		Log: LogConfig{
			Level:      "info",
			File:       "logs/gridwager.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		RequestTimeoutSeconds: 30,
	}
}

// Load 加载配置。优先级：环境变量 > 配置文件 > 默认值。filePath 为空时只用默认值和环境变量。
func Load(filePath string) (*Config, error) {
	cfg := Default()
	if filePath != "" {
		if err := loadConfigFile(filePath, cfg); err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func loadConfigFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("解析 YAML 配置文件失败: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("解析 JSON 配置文件失败: %w", err)
		}
	default:
		return fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml, .json)", ext)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.API.BaseURL = getEnv("GRIDWAGER_API_URL", c.API.BaseURL)
	c.API.APIKey = getEnv("GRIDWAGER_API_KEY", c.API.APIKey)
	c.API.TimeoutSeconds = parseIntEnv("GRIDWAGER_API_TIMEOUT_SECONDS", c.API.TimeoutSeconds)
	c.Secrets.Path = getEnv("GRIDWAGER_SECRETS_PATH", c.Secrets.Path)
	c.Secrets.EncryptionKey = getEnv("GRIDWAGER_SECRETS_KEY", c.Secrets.EncryptionKey)
	c.Sequence.Backend = getEnv("GRIDWAGER_SEQUENCE_BACKEND", c.Sequence.Backend)
	c.Sequence.Path = getEnv("GRIDWAGER_SEQUENCE_PATH", c.Sequence.Path)
	c.Bet.Asset = getEnv("GRIDWAGER_ASSET", c.Bet.Asset)
	c.Bet.Amount = getEnv("GRIDWAGER_AMOUNT", c.Bet.Amount)
	c.Bet.BalanceType = getEnv("GRIDWAGER_BALANCE_TYPE", c.Bet.BalanceType)
	c.Bet.Strategy = getEnv("GRIDWAGER_STRATEGY", c.Bet.Strategy)
	c.JournalPath = getEnv("GRIDWAGER_JOURNAL_PATH", c.JournalPath)
	c.ServerListen = getEnv("GRIDWAGER_SERVER_LISTEN", c.ServerListen)
	c.MetricsListen = getEnv("GRIDWAGER_METRICS_LISTEN", c.MetricsListen)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
	c.DryRun = parseBoolEnv("DRY_RUN", c.DryRun)
}

// Validate 校验配置。真实资金池在这里就被拒绝。
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url (GRIDWAGER_API_URL) 未配置")
	}
	if c.API.APIKey == "" && c.Secrets.Path == "" && !c.DryRun {
		return fmt.Errorf("api.api_key (GRIDWAGER_API_KEY) 未配置，且未配置 secrets.path")
	}
	if _, err := domain.ParseBalanceType(c.Bet.BalanceType); err != nil {
		return err
	}
	if _, err := c.BetAmount(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Bet.Asset) == "" {
		return fmt.Errorf("bet.asset 不能为空")
	}
	if _, err := selector.Resolve(selector.Named(c.Bet.Strategy)); err != nil {
		return err
	}
	switch c.Sequence.Backend {
	case SequenceBackendFile:
		if c.Sequence.Path == "" {
			return fmt.Errorf("sequence.path 不能为空")
		}
	case SequenceBackendBadger:
		if c.Secrets.Path == "" {
			return fmt.Errorf("sequence.backend=badger 需要配置 secrets.path")
		}
	default:
		return fmt.Errorf("sequence.backend 只支持 %s / %s，当前为 %q", SequenceBackendFile, SequenceBackendBadger, c.Sequence.Backend)
	}
	if _, err := c.DailySpendLimit(); err != nil {
		return err
	}
	if c.API.ReadRetries < 0 {
		return fmt.Errorf("api.read_retries 不能为负数")
	}
	return nil
}

// BetAmount 解析下注金额（必须 > 0）
func (c *Config) BetAmount() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(c.Bet.Amount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("bet.amount %q 不是合法数字", c.Bet.Amount)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("bet.amount 必须大于 0，当前为 %s", d)
	}
	return d, nil
}

// DailySpendLimit 解析当日花费上限；空表示不限（返回 0）。
func (c *Config) DailySpendLimit() (decimal.Decimal, error) {
	s := strings.TrimSpace(c.Runner.DailySpendLimit)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("runner.daily_spend_limit %q 不是合法的非负数", s)
	}
	return d, nil
}

func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.API.RateWindowSeconds) * time.Second
}

func (c *Config) RunnerInterval() time.Duration {
	return time.Duration(c.Runner.IntervalSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv 解析整数环境变量
func parseIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseBoolEnv 解析布尔环境变量
func parseBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
