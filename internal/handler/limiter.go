package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitorEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// VisitorLimiter 按访客限制下单提交频率。perMinute 为 0 时不限流。
type VisitorLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitorEntry
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// NewVisitorLimiter 创建每分钟允许 perMinute 次提交的限流器。
func NewVisitorLimiter(perMinute int) *VisitorLimiter {
	l := &VisitorLimiter{
		visitors: make(map[string]*visitorEntry),
		now:      time.Now,
	}
	if perMinute > 0 {
		l.limit = rate.Every(time.Minute / time.Duration(perMinute))
		l.burst = perMinute
	}
	return l
}

// Allow 报告 key 此刻是否还能提交。
func (l *VisitorLimiter) Allow(key string) bool {
	if l == nil || l.burst == 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitorEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = l.now()
	return v.limiter.AllowN(v.lastSeen, 1)
}

// Cleanup 移除 idle 时间内没有请求的访客。
func (l *VisitorLimiter) Cleanup(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-idle)
	removed := 0
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}

// Middleware 以会话中的访客 ID 为键限流，没有访客 ID 时退回客户端 IP。
func (l *VisitorLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := visitorID(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		if !l.Allow(key) {
			c.Header("Retry-After", "60")
			respondError(c, http.StatusTooManyRequests, "too many attempts, please wait a moment")
			c.Abort()
			return
		}
		c.Next()
	}
}
