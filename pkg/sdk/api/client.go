package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/gridwager/internal/domain"
	"github.com/betbot/gridwager/pkg/logger"
	"github.com/betbot/gridwager/pkg/ratelimit"
	"github.com/betbot/gridwager/pkg/sdk/apierrors"
	sdkhttp "github.com/betbot/gridwager/pkg/sdk/http"
)

// Config API 客户端配置
type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	ReadRetries int                // 只作用于读请求；提交请求永不重试
	Limits      *ratelimit.Manager // 可选
	DryRun      bool               // 纸交易：拉取真实快照，但不真正提交
}

// Client 预测市场 API 客户端
type Client struct {
	read   *sdkhttp.Client
	write  *sdkhttp.Client
	limits *ratelimit.Manager
	dryRun bool
	log    *logrus.Entry
}

var _ Gateway = (*Client)(nil)

// NewClient 创建客户端
func NewClient(cfg Config) *Client {
	return &Client{
		read: sdkhttp.NewClient(cfg.BaseURL, sdkhttp.Options{
			Timeout:    cfg.Timeout,
			RetryCount: cfg.ReadRetries,
			APIKey:     cfg.APIKey,
		}),
		write: sdkhttp.NewClient(cfg.BaseURL, sdkhttp.Options{
			Timeout: cfg.Timeout,
			APIKey:  cfg.APIKey,
		}),
		limits: cfg.Limits,
		dryRun: cfg.DryRun,
		log:    logger.WithField("component", "api"),
	}
}

// FetchGrids 拉取指定资产当前的定价快照
func (c *Client) FetchGrids(ctx context.Context, asset string) (*domain.GridSnapshot, error) {
	if err := c.limits.Wait(ctx, ratelimit.EndpointGrids); err != nil {
		return nil, err
	}

	var snap domain.GridSnapshot
	resp, err := c.read.DoRequest(ctx, http.MethodGet, PathGrids, &sdkhttp.RequestOptions{
		Params: map[string]any{"asset": strings.ToUpper(strings.TrimSpace(asset))},
	}, &snap)
	if err != nil {
		return nil, apierrors.Transport(err)
	}
	if !resp.IsSuccess() {
		body := sdkhttp.ParseErrorBody(resp)
		return nil, apierrors.FromResponse(resp.StatusCode(), body.Code, body.Text())
	}
	c.log.Debugf("fetched %d grids for %s (price=%s)", len(snap.Grids), snap.Asset, snap.CurrentPrice)
	return &snap, nil
}

// PlaceBet 提交下注。
// 响应体带 expectedNonce 时返回 *apierrors.NonceConflictError，其它失败返回 *apierrors.RemoteError。
func (c *Client) PlaceBet(ctx context.Context, req domain.BetRequest) (*PlaceBetResponse, error) {
	if c.dryRun {
		c.log.Infof("📝 [纸交易] 模拟下注: grid=%s amount=%s pool=%s nonce=%d", req.GridID, req.Amount, req.BalanceType, req.Nonce)
		return &PlaceBetResponse{
			OrderID:    fmt.Sprintf("dry_run_%d", req.Nonce),
			NewBalance: decimal.Zero,
		}, nil
	}
	if err := c.limits.Wait(ctx, ratelimit.EndpointBets); err != nil {
		return nil, err
	}

	resp, err := c.write.DoRequest(ctx, http.MethodPost, PathBets, &sdkhttp.RequestOptions{Data: req}, nil)
	if err != nil {
		return nil, apierrors.Transport(err)
	}
	if !resp.IsSuccess() {
		body := sdkhttp.ParseErrorBody(resp)
		if body.ExpectedNonce != nil {
			return nil, &apierrors.NonceConflictError{ExpectedNonce: *body.ExpectedNonce, Message: body.Text()}
		}
		return nil, apierrors.FromResponse(resp.StatusCode(), body.Code, body.Text())
	}

	// 2xx 但响应体不可用：下注可能已被接受，不能当作成功，也不能重试
	var out PlaceBetResponse
	if err := sdkhttp.DecodeJSON(resp, &out); err != nil {
		c.log.WithError(err).Errorf("bet nonce=%d accepted with unreadable response", req.Nonce)
		return nil, &apierrors.RemoteError{Status: resp.StatusCode(), Message: "malformed bet response: " + err.Error(), Kind: apierrors.ErrRemote, Cause: err}
	}
	if strings.TrimSpace(out.OrderID) == "" {
		return nil, &apierrors.RemoteError{Status: resp.StatusCode(), Message: "bet response missing orderId", Kind: apierrors.ErrRemote}
	}
	return &out, nil
}
