package domain

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/betbot/gridwager/pkg/sdk/apierrors"
)

// BalanceType 下注资金池。真实资金池不在可构造的取值之内。
type BalanceType string

const (
	BalanceTest  BalanceType = "test"
	BalanceBonus BalanceType = "bonus"
)

// realFundsPool 被禁止的真实资金池标记，仅用于识别并拒绝。
const realFundsPool = "real"

// ParseBalanceType 解析资金池标记；"real" 以及未知取值返回 ValidationError。
func ParseBalanceType(s string) (BalanceType, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch BalanceType(v) {
	case BalanceTest, BalanceBonus:
		return BalanceType(v), nil
	}
	if v == realFundsPool {
		return "", apierrors.Validationf("balanceType", "%q pool is not allowed here (allowed: %s, %s)", s, BalanceTest, BalanceBonus)
	}
	return "", apierrors.Validationf("balanceType", "unknown pool %q (allowed: %s, %s)", s, BalanceTest, BalanceBonus)
}

// Valid 检查是否为允许的资金池（零值/非法值均为 false）。
func (b BalanceType) Valid() bool {
	return b == BalanceTest || b == BalanceBonus
}

// BetRequest 一次提交的下注请求。每次提交重新构造，nonce 只用一次。
type BetRequest struct {
	GridID      string          `json:"gridId"`
	Amount      decimal.Decimal `json:"amount"`
	BalanceType BalanceType     `json:"balanceType"`
	Nonce       int64           `json:"nonce"`
	Commentary  string          `json:"commentary"`
	Strategy    string          `json:"strategy,omitempty"`
}

// BetResult 下注结果（只读）。
type BetResult struct {
	Success      bool            `json:"success"`
	OrderID      string          `json:"orderId"`
	Odds         decimal.Decimal `json:"odds"`
	NewBalance   decimal.Decimal `json:"newBalance"`
	QualityScore int             `json:"qualityScore"`
	Tier         string          `json:"tier"`
	Nonce        int64           `json:"nonce"`
	GridID       string          `json:"gridId"`
}
