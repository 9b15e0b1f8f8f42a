package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/betbot/gridwager/internal/domain"
)

// MockClient is a mock Gateway for testing
type MockClient struct {
	mu sync.Mutex

	// Response data
	Snapshot *domain.GridSnapshot
	// PlaceBetFunc 自定义提交行为；为空时返回默认成功响应
	PlaceBetFunc func(req domain.BetRequest) (*PlaceBetResponse, error)

	// Call tracking
	Calls map[string]int
	Bets  []domain.BetRequest

	// Error injection
	ErrorOnNext map[string]error
}

var _ Gateway = (*MockClient)(nil)

// NewMockClient creates a new mock gateway
func NewMockClient(snapshot *domain.GridSnapshot) *MockClient {
	return &MockClient{
		Snapshot:    snapshot,
		Calls:       make(map[string]int),
		ErrorOnNext: make(map[string]error),
	}
}

func (m *MockClient) trackCall(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[name]++
	if err, ok := m.ErrorOnNext[name]; ok {
		delete(m.ErrorOnNext, name)
		return err
	}
	return nil
}

func (m *MockClient) FetchGrids(ctx context.Context, asset string) (*domain.GridSnapshot, error) {
	if err := m.trackCall("FetchGrids"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Snapshot == nil {
		return &domain.GridSnapshot{Asset: asset}, nil
	}
	snap := *m.Snapshot
	snap.Grids = append([]domain.Grid(nil), m.Snapshot.Grids...)
	return &snap, nil
}

func (m *MockClient) PlaceBet(ctx context.Context, req domain.BetRequest) (*PlaceBetResponse, error) {
	m.mu.Lock()
	m.Bets = append(m.Bets, req)
	fn := m.PlaceBetFunc
	m.mu.Unlock()

	if err := m.trackCall("PlaceBet"); err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(req)
	}
	return &PlaceBetResponse{
		OrderID:    fmt.Sprintf("mock-order-%d", req.Nonce),
		Odds:       decimal.RequireFromString("2"),
		NewBalance: decimal.RequireFromString("1000"),
	}, nil
}

// CallCount 线程安全地读取调用次数
func (m *MockClient) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[name]
}

// PlacedBets 返回已提交请求的副本
func (m *MockClient) PlacedBets() []domain.BetRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.BetRequest(nil), m.Bets...)
}
