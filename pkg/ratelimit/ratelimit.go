package ratelimit

import (
	"context"
	"sync"
	"time"
)

// 端点键
const (
	EndpointGrids = "grids:get"
	EndpointBets  = "bets:post"
)

// RateLimiter 速率限制器接口
type RateLimiter interface {
	Wait(ctx context.Context) error
	Allow() bool
	Remaining() int
}

// SlidingWindow 滑动窗口速率限制器（客户端自律，不做重试）
type SlidingWindow struct {
	limit    int
	window   time.Duration
	requests []time.Time
	now      func() time.Time
	mu       sync.Mutex
}

// NewSlidingWindow 创建滑动窗口；limit <= 0 表示不限流
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{limit: limit, window: window, now: time.Now}
}

func (sw *SlidingWindow) pruneLocked(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}
	sw.requests = sw.requests[i:]
}

// Allow 检查是否允许请求（允许时占用一个名额）
func (sw *SlidingWindow) Allow() bool {
	if sw.limit <= 0 {
		return true
	}
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.pruneLocked(now)
	if len(sw.requests) >= sw.limit {
		return false
	}
	sw.requests = append(sw.requests, now)
	return true
}

// Wait 等待直到允许请求或 ctx 结束
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		if sw.Allow() {
			return nil
		}

		sw.mu.Lock()
		wait := 50 * time.Millisecond
		if len(sw.requests) > 0 {
			if d := sw.window - sw.now().Sub(sw.requests[0]); d > 0 {
				wait = d
			}
		}
		sw.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Remaining 窗口内剩余名额
func (sw *SlidingWindow) Remaining() int {
	if sw.limit <= 0 {
		return -1
	}
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.pruneLocked(sw.now())
	if r := sw.limit - len(sw.requests); r > 0 {
		return r
	}
	return 0
}

// Manager 按端点管理限流器
type Manager struct {
	limiters map[string]RateLimiter
	mu       sync.RWMutex
}

// NewManager 创建管理器；perWindow <= 0 时所有端点不限流
func NewManager(gridsPerWindow, betsPerWindow int, window time.Duration) *Manager {
	return &Manager{
		limiters: map[string]RateLimiter{
			EndpointGrids: NewSlidingWindow(gridsPerWindow, window),
			EndpointBets:  NewSlidingWindow(betsPerWindow, window),
		},
	}
}

// Set 替换某个端点的限流器
func (m *Manager) Set(endpoint string, l RateLimiter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[endpoint] = l
}

// Wait 等待指定端点；未配置的端点直接放行
func (m *Manager) Wait(ctx context.Context, endpoint string) error {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	l, ok := m.limiters[endpoint]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return l.Wait(ctx)
}
