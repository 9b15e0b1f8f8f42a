package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/betbot/gridwager/pkg/logger"
)

// Handler 关闭处理函数
type Handler func(ctx context.Context) error

type entry struct {
	name string
	fn   Handler
}

// Manager 优雅关闭管理器：按注册的逆序依次关闭（后打开的先关闭）。
type Manager struct {
	mu      sync.Mutex
	entries []entry
	done    bool
}

// NewManager 创建新的关闭管理器
func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown 注册关闭回调
func (m *Manager) OnShutdown(name string, fn Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry{name: name, fn: fn})
}

// Shutdown 执行所有关闭回调（阻塞调用，只执行一次）。
// ctx 应该带超时；超时后剩余回调仍会被调用，但会拿到已结束的 ctx。
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return nil
	}
	m.done = true
	entries := m.entries
	m.mu.Unlock()

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if err := e.fn(ctx); err != nil {
			logger.Warnf("关闭 %s 失败: %v", e.name, err)
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
			continue
		}
		logger.Debugf("已关闭 %s", e.name)
	}
	return errors.Join(errs...)
}
