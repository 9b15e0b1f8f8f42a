package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Grid 一个定价区间（bucket）：行权价区间 + 赔率 + 隐含概率。
// 所有数值字段保留服务端原始十进制字符串，提交时原样使用。
type Grid struct {
	GridID             string `json:"gridId"`
	LowerBound         string `json:"lowerBound"`
	UpperBound         string `json:"upperBound"`
	Odds               string `json:"odds"`
	ImpliedProbability string `json:"impliedProbability"`
	ExpiresAt          int64  `json:"expiresAt"` // 毫秒时间戳
}

// Level 网格层级偏移：gridId 按 "_" 分割后的第三段，缺省为 "0"。
// 例如 BTC_1765985400_3 -> "3"
func (g Grid) Level() string {
	parts := strings.Split(g.GridID, "_")
	if len(parts) < 3 || strings.TrimSpace(parts[2]) == "" {
		return "0"
	}
	return parts[2]
}

// GridSnapshot 一次拉取得到的定价快照，每个决策周期重新获取，不做修改。
type GridSnapshot struct {
	Asset        string          `json:"asset"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	Grids        []Grid          `json:"grids"`
}

// ReferencePrice 供选择器比较用的参考价。
func (s *GridSnapshot) ReferencePrice() float64 {
	if s == nil {
		return 0
	}
	return s.CurrentPrice.InexactFloat64()
}
