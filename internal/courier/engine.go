package courier

import (
	"context"
	"errors"

	"github.com/pagecart/internal/logging"
	"github.com/pagecart/internal/phone"
	"github.com/rs/zerolog"
)

// Assessment 是展示给后台的风险信息。Available 为 false 时 Band 恒为 none。
type Assessment struct {
	Phone     string  `json:"phone"`
	Available bool    `json:"available"`
	Band      Band    `json:"band"`
	Report    *Report `json:"report,omitempty"`
}

// Engine 组合缓存与分级阈值。
type Engine struct {
	cache      *Cache
	thresholds Thresholds
	logger     zerolog.Logger
}

// NewEngine 创建 Engine。
func NewEngine(cache *Cache, thresholds Thresholds) *Engine {
	return &Engine{cache: cache, thresholds: thresholds, logger: logging.For("courier")}
}

// SetLogger 替换日志输出，主要面向测试场景。
func (e *Engine) SetLogger(logger zerolog.Logger) {
	e.logger = logger
}

// Thresholds 返回当前阈值。
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// CachedNumbers 返回已缓存的号码数。
func (e *Engine) CachedNumbers() int {
	if e == nil || e.cache == nil {
		return 0
	}
	return e.cache.Len()
}

// Assess 查询并分级。查询失败时静默降级为 none，不阻塞下单。
func (e *Engine) Assess(ctx context.Context, raw string) Assessment {
	number, err := phone.Normalize(raw)
	if err != nil {
		return Assessment{Phone: raw, Band: BandNone}
	}
	out := Assessment{Phone: number, Band: BandNone}
	if e == nil || e.cache == nil {
		return out
	}

	report, err := e.cache.Lookup(ctx, number)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoHistory):
			e.logger.Debug().Str("phone", number).Msg("no courier history")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			e.logger.Debug().Err(err).Str("phone", number).Msg("courier lookup abandoned")
		default:
			e.logger.Warn().Err(err).Str("phone", number).Msg("courier lookup failed")
		}
		return out
	}

	out.Available = true
	out.Report = &report
	out.Band = Classify(report.Summary, e.thresholds)
	return out
}
