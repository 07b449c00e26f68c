package checkout

import (
	"context"
	"sync"
	"time"
)

// Key 标识一个访客在某个页面区块里的流程。
type Key struct {
	Visitor   string
	PageSlug  string
	SectionID string
}

type entry struct {
	flow     *Flow
	teardown func()
	lastSeen time.Time
}

// Store 保存进行中的流程。访客离开或长时间无操作的流程会被丢弃，
// 丢弃时执行创建时登记的 teardown（例如关闭草稿自动保存）。
type Store struct {
	mu      sync.Mutex
	entries map[Key]*entry
	idle    time.Duration
	now     func() time.Time
}

// NewStore 创建 Store，idle 为 0 时不按空闲时间清理。
func NewStore(idle time.Duration) *Store {
	return &Store{
		entries: make(map[Key]*entry),
		idle:    idle,
		now:     time.Now,
	}
}

// Get 返回已存在的流程并刷新最近访问时间。
func (s *Store) Get(key Key) (*Flow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.flow, true
}

// GetOrCreate 返回已存在的流程，不存在时调用 create 创建并登记。
func (s *Store) GetOrCreate(key Key, create func() (*Flow, func(), error)) (*Flow, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.lastSeen = s.now()
		return e.flow, false, nil
	}
	flow, teardown, err := create()
	if err != nil {
		return nil, false, err
	}
	s.entries[key] = &entry{flow: flow, teardown: teardown, lastSeen: s.now()}
	return flow, true, nil
}

// Discard 移除流程并执行 teardown。
func (s *Store) Discard(key Key) bool {
	s.mu.Lock()
	e, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	s.mu.Unlock()

	if ok && e.teardown != nil {
		e.teardown()
	}
	return ok
}

// Prune 丢弃空闲超时且不在提交中的流程，返回丢弃数量。
func (s *Store) Prune() int {
	if s.idle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idle)

	s.mu.Lock()
	var stale []*entry
	for key, e := range s.entries {
		if e.lastSeen.Before(cutoff) && e.flow.State() != StateSubmitting {
			stale = append(stale, e)
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()

	for _, e := range stale {
		if e.teardown != nil {
			e.teardown()
		}
	}
	return len(stale)
}

// Run 周期性清理空闲流程，直到 ctx 结束。
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Prune()
		}
	}
}

// Len 返回进行中的流程数量。
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
