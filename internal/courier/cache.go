package courier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pagecart/internal/metrics"
	"github.com/pagecart/internal/phone"
)

type lookup struct {
	done   chan struct{}
	report Report
	err    error
}

// Cache 按规范化号码缓存查询结果，条目写入后不再失效或覆盖。
// 同一号码的并发查询共享一次网络请求。失败与无记录的结果不缓存。
type Cache struct {
	fetcher Fetcher
	timeout time.Duration

	mu       sync.Mutex
	entries  map[string]Report
	inflight map[string]*lookup
}

// NewCache 创建缓存。timeout 限制单次后台请求的时长，与调用方的 ctx 无关。
func NewCache(fetcher Fetcher, timeout time.Duration) *Cache {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Cache{
		fetcher:  fetcher,
		timeout:  timeout,
		entries:  make(map[string]Report),
		inflight: make(map[string]*lookup),
	}
}

// Lookup 返回号码的历史。ctx 结束时立即返回 ctx.Err()，
// 进行中的请求会继续完成并写入缓存，但结果不会交给已取消的调用方。
func (c *Cache) Lookup(ctx context.Context, raw string) (Report, error) {
	number, err := phone.Normalize(raw)
	if err != nil {
		return Report{}, err
	}
	if c.fetcher == nil {
		return Report{}, ErrNotConfigured
	}

	c.mu.Lock()
	if report, ok := c.entries[number]; ok {
		c.mu.Unlock()
		metrics.RecordCourierLookup("hit")
		return report, nil
	}
	call, shared := c.inflight[number]
	if !shared {
		call = &lookup{done: make(chan struct{})}
		c.inflight[number] = call
		go c.fetch(number, call)
	}
	c.mu.Unlock()

	if shared {
		metrics.RecordCourierLookup("shared")
	} else {
		metrics.RecordCourierLookup("miss")
	}

	select {
	case <-ctx.Done():
		return Report{}, ctx.Err()
	case <-call.done:
		return call.report, call.err
	}
}

// Cached 只读缓存，不触发请求。
func (c *Cache) Cached(raw string) (Report, bool) {
	number, err := phone.Normalize(raw)
	if err != nil {
		return Report{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	report, ok := c.entries[number]
	return report, ok
}

// Len 返回缓存条目数。
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) fetch(number string, call *lookup) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	report, err := c.safeFetch(ctx, number)
	if err == nil {
		report.Phone = number
	}

	c.mu.Lock()
	delete(c.inflight, number)
	if err == nil {
		if _, exists := c.entries[number]; !exists {
			c.entries[number] = report
		}
	}
	c.mu.Unlock()

	switch {
	case err == nil:
	case errors.Is(err, ErrNoHistory):
		metrics.RecordCourierLookup("absent")
	default:
		metrics.RecordCourierLookup("error")
	}

	call.report, call.err = report, err
	close(call.done)
}

func (c *Cache) safeFetch(ctx context.Context, number string) (report Report, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("courier fetch panicked: %v", rec)
		}
	}()
	return c.fetcher.Fetch(ctx, number)
}
