package sequence

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/betbot/gridwager/internal/metrics"
	"github.com/betbot/gridwager/pkg/logger"
	"github.com/betbot/gridwager/pkg/persistence"
	"github.com/betbot/gridwager/pkg/sdk/apierrors"
)

// Backend 持久化后端：persistence.Int64File（默认）或 secretstore.Int64Key。
// 值不存在时 Load 返回 persistence.ErrNotExists。
type Backend interface {
	Load() (int64, error)
	Save(v int64) error
	Location() string
}

// Sequencer 单调递增的 nonce 序列。
//
// 进程内唯一的"当前值"权威：所有操作由同一把锁串行化。
// 持久化失败不致命，内存值继续生效，并以 DurabilityWarning 报告。
// 不提供跨进程锁：多个进程共享一个文件时不保证顺序。
type Sequencer struct {
	mu      sync.Mutex
	backend Backend
	now     func() time.Time

	loaded  bool
	current int64
	hasVal  bool

	log *logrus.Entry
}

// Option 构造选项
type Option func(*Sequencer)

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(s *Sequencer) { s.now = now }
}

// New 创建序列；backend 为 nil 时只在内存中计数。
func New(backend Backend, opts ...Option) *Sequencer {
	s := &Sequencer{
		backend: backend,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	loc := "memory"
	if backend != nil {
		loc = backend.Location()
	}
	s.log = logger.WithFields(logrus.Fields{"component": "sequence", "store": loc})
	return s
}

// CurrentOrInit 返回最后持久化的值；从未有过值时返回当前毫秒时间作为种子。
// 种子保存在内存中，后续调用复用同一个种子。
func (s *Sequencer) CurrentOrInit() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentOrInitLocked()
}

// Advance 原子地计算 CurrentOrInit()+1、持久化并返回。
// 这是产生提交 token 的唯一途径。返回的 error 只可能是 *apierrors.DurabilityWarning，
// 此时 token 依然有效。
func (s *Sequencer) Advance() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.currentOrInitLocked() + 1
	s.current = next
	s.hasVal = true
	return next, s.persistLocked(next)
}

// Reset 强制覆盖当前值。仅用于服务端驱动的恢复（冲突时服务端给出期望值）。
func (s *Sequencer) Reset(v int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true
	s.current = v
	s.hasVal = true
	s.log.WithField("value", v).Warn("sequence reset by server recovery")
	return s.persistLocked(v)
}

func (s *Sequencer) currentOrInitLocked() int64 {
	if !s.loaded {
		s.loaded = true
		s.loadLocked()
	}
	if !s.hasVal {
		s.current = s.now().UnixMilli()
		s.hasVal = true
		s.log.WithField("seed", s.current).Info("no prior nonce, seeded from clock")
	}
	return s.current
}

func (s *Sequencer) loadLocked() {
	if s.backend == nil {
		return
	}
	v, err := s.backend.Load()
	switch {
	case err == nil:
		s.current = v
		s.hasVal = true
	case errors.Is(err, persistence.ErrNotExists):
		// 没有历史值不是错误
	default:
		w := &apierrors.DurabilityWarning{Path: s.backend.Location(), Op: "load", Err: err}
		metrics.DurabilityWarnings.Inc()
		s.log.WithError(err).Warn(w.Error())
	}
}

func (s *Sequencer) persistLocked(v int64) error {
	if s.backend == nil {
		return nil
	}
	if err := s.backend.Save(v); err != nil {
		w := &apierrors.DurabilityWarning{Path: s.backend.Location(), Op: "save", Err: err}
		metrics.DurabilityWarnings.Inc()
		s.log.WithError(err).WithField("value", v).Warn(w.Error())
		return w
	}
	return nil
}
