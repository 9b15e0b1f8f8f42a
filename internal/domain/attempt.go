package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AttemptOutcome 一次提交尝试的结果分类
type AttemptOutcome string

const (
	OutcomeAccepted  AttemptOutcome = "accepted"
	OutcomeConflict  AttemptOutcome = "conflict"  // 服务端返回 expectedNonce
	OutcomeRejected  AttemptOutcome = "rejected"  // 其它远端拒绝 / 网络失败
	OutcomeEscalated AttemptOutcome = "escalated" // 重试后仍冲突
)

// BetAttempt 一次提交尝试（写入账本）。每个 nonce 最多对应一条记录。
type BetAttempt struct {
	ID          int64           `json:"id"`
	Nonce       int64           `json:"nonce"`
	Asset       string          `json:"asset"`
	GridID      string          `json:"gridId"`
	Amount      decimal.Decimal `json:"amount"`
	BalanceType BalanceType     `json:"balanceType"`
	Strategy    string          `json:"strategy"`
	Outcome     AttemptOutcome  `json:"outcome"`
	OrderID     string          `json:"orderId,omitempty"`
	Error       string          `json:"error,omitempty"`
	Score       int             `json:"score"`
	Tier        string          `json:"tier"`
	Commentary  string          `json:"commentary"`
	CreatedAt   time.Time       `json:"createdAt"`
}
