package api

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/betbot/gridwager/internal/domain"
)

// API 路径
const (
	PathGrids = "/api/v1/grids"
	PathBets  = "/api/v1/bets"
)

// Gateway 交易核心依赖的远端边界：拉取定价快照 + 提交下注。
type Gateway interface {
	FetchGrids(ctx context.Context, asset string) (*domain.GridSnapshot, error)
	PlaceBet(ctx context.Context, req domain.BetRequest) (*PlaceBetResponse, error)
}

// PlaceBetResponse 下注成功响应
type PlaceBetResponse struct {
	OrderID      string          `json:"orderId"`
	Odds         decimal.Decimal `json:"odds"`
	NewBalance   decimal.Decimal `json:"newBalance"`
	QualityScore *int            `json:"qualityScore,omitempty"`
}
