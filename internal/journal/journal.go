package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/betbot/gridwager/internal/domain"
)

// tsLayout 定长时间格式，保证按字符串排序即按时间排序
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// Store 下注尝试账本（sqlite）
type Store struct {
	db *sql.DB
}

// Open 打开（必要时创建）账本。path 为 ":memory:" 时使用内存库。
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("journal path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite：单连接更稳定
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`
CREATE TABLE IF NOT EXISTS bet_attempts (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  nonce INTEGER NOT NULL,
  asset TEXT NOT NULL,
  grid_id TEXT NOT NULL,
  amount TEXT NOT NULL,
  balance_type TEXT NOT NULL,
  strategy TEXT NOT NULL,
  outcome TEXT NOT NULL, -- accepted | conflict | rejected | escalated
  order_id TEXT,
  error TEXT,
  score INTEGER NOT NULL,
  tier TEXT NOT NULL,
  commentary TEXT NOT NULL,
  created_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_bet_attempts_created ON bet_attempts(created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_bet_attempts_nonce ON bet_attempts(nonce);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Record 写入一次提交尝试
func (s *Store) Record(ctx context.Context, a domain.BetAttempt) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO bet_attempts (nonce, asset, grid_id, amount, balance_type, strategy, outcome, order_id, error, score, tier, commentary, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
`, a.Nonce, a.Asset, a.GridID, a.Amount.String(), string(a.BalanceType), a.Strategy, string(a.Outcome),
		nullString(a.OrderID), nullString(a.Error), a.Score, a.Tier, a.Commentary,
		a.CreatedAt.UTC().Format(tsLayout))
	if err != nil {
		return fmt.Errorf("insert bet attempt: %w", err)
	}
	return nil
}

// List 按时间倒序返回最近的尝试
func (s *Store) List(ctx context.Context, limit int) ([]domain.BetAttempt, error) {
	if limit <= 0 || limit > 2000 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, nonce, asset, grid_id, amount, balance_type, strategy, outcome, order_id, error, score, tier, commentary, created_at
FROM bet_attempts
ORDER BY created_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BetAttempt
	for rows.Next() {
		var (
			a                 domain.BetAttempt
			amount, ts        string
			balance, outcome  string
			orderID, errorMsg sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Nonce, &a.Asset, &a.GridID, &amount, &balance, &a.Strategy, &outcome,
			&orderID, &errorMsg, &a.Score, &a.Tier, &a.Commentary, &ts); err != nil {
			return nil, err
		}
		a.Amount, _ = decimal.NewFromString(amount)
		a.BalanceType = domain.BalanceType(balance)
		a.Outcome = domain.AttemptOutcome(outcome)
		a.OrderID = orderID.String
		a.Error = errorMsg.String
		a.CreatedAt, _ = time.Parse(tsLayout, ts)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Stats 汇总：按结果计数，以及被接受的下注总额
type Stats struct {
	ByOutcome     map[domain.AttemptOutcome]int `json:"byOutcome"`
	AcceptedTotal decimal.Decimal               `json:"acceptedTotal"`
}

// Stats 统计 since 之后的尝试；since 为零值时统计全部。
func (s *Store) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT outcome, amount
FROM bet_attempts
WHERE created_at >= ?
`, since.UTC().Format(tsLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	st := &Stats{ByOutcome: make(map[domain.AttemptOutcome]int), AcceptedTotal: decimal.Zero}
	for rows.Next() {
		var outcome, amount string
		if err := rows.Scan(&outcome, &amount); err != nil {
			return nil, err
		}
		st.ByOutcome[domain.AttemptOutcome(outcome)]++
		if domain.AttemptOutcome(outcome) == domain.OutcomeAccepted {
			if d, err := decimal.NewFromString(amount); err == nil {
				st.AcceptedTotal = st.AcceptedTotal.Add(d)
			}
		}
	}
	return st, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
