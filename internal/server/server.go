package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gridwager/internal/domain"
	"github.com/betbot/gridwager/internal/metrics"
	"github.com/betbot/gridwager/internal/trading"
	"github.com/betbot/gridwager/pkg/logger"
)

// Submitter 下注入口（*trading.Orchestrator）
type Submitter interface {
	Submit(ctx context.Context, order trading.Order) (*domain.BetResult, error)
}

// Lister 账本查询（*journal.Store）
type Lister interface {
	List(ctx context.Context, limit int) ([]domain.BetAttempt, error)
}

// Defaults 请求未填字段时使用的默认值（来自配置）
type Defaults struct {
	Asset       string
	Amount      string
	BalanceType string
	Strategy    string
	Template    string
}

type Config struct {
	Submitter      Submitter
	Journal        Lister // 可选
	Defaults       Defaults
	RequestTimeout time.Duration
}

type Server struct {
	cfg Config
	log *logrus.Entry
}

func New(cfg Config) (*Server, error) {
	if cfg.Submitter == nil {
		return nil, errors.New("submitter is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &Server{cfg: cfg, log: logger.WithField("component", "server")}, nil
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.GET("/strategies", s.handleStrategies)

	rat := api.Group("/rationale")
	rat.POST("/assess", s.handleAssess)
	rat.POST("/render", s.handleRender)

	bets := api.Group("/bets")
	bets.GET("", s.handleBetsList)
	bets.POST("", s.handleBetCreate)

	return r
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
			"cost":   time.Since(start).String(),
		}).Debug("http")
	}
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
