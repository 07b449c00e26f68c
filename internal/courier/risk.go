// Package courier 查询手机号的快递历史并据此给出风险等级。
// 查询结果按规范化后的号码缓存，风险等级是历史记录的纯函数。
package courier

import (
	"context"
	"errors"
)

var (
	// ErrNoHistory 表示服务端没有该号码的记录。
	ErrNoHistory = errors.New("no courier history for phone")
	// ErrNotConfigured 表示没有配置快递历史服务。
	ErrNotConfigured = errors.New("courier history service not configured")
)

// Record 是一组包裹统计。SuccessRatio 为 0–100 的百分比。
type Record struct {
	TotalParcels      int     `json:"totalParcels"`
	SuccessfulParcels int     `json:"successfulParcels"`
	CancelledParcels  int     `json:"cancelledParcels"`
	SuccessRatio      float64 `json:"successRatio"`
}

// CourierRecord 是单个快递公司的统计。
type CourierRecord struct {
	Name string `json:"name"`
	Record
}

// Report 是一个号码的完整历史，Summary 为各快递公司的汇总。
type Report struct {
	Phone    string          `json:"phone"`
	Summary  Record          `json:"summary"`
	Couriers []CourierRecord `json:"couriers,omitempty"`
}

// Fetcher 从外部服务读取历史。phone 已经规范化。
type Fetcher interface {
	Fetch(ctx context.Context, phone string) (Report, error)
}

// FetcherFunc 让普通函数实现 Fetcher。
type FetcherFunc func(ctx context.Context, phone string) (Report, error)

func (f FetcherFunc) Fetch(ctx context.Context, phone string) (Report, error) {
	return f(ctx, phone)
}

// Band 是风险等级。low 是正向信号，不代表风险。
type Band string

const (
	BandNone   Band = "none"
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

// Thresholds 是分级阈值，属于可调的业务参数。
type Thresholds struct {
	HighCancelled   int     `json:"highCancelled"`
	HighRatio       float64 `json:"highRatio"`
	MediumCancelled int     `json:"mediumCancelled"`
	MediumRatio     float64 `json:"mediumRatio"`
	LowRatio        float64 `json:"lowRatio"`
}

// DefaultThresholds 返回 5 / 50 / 2 / 70 / 80。
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighCancelled:   5,
		HighRatio:       50,
		MediumCancelled: 2,
		MediumRatio:     70,
		LowRatio:        80,
	}
}

// Classify 按以下优先级分级：
//
//	cancelled >= HighCancelled   或 ratio < HighRatio   → high
//	cancelled >= MediumCancelled 或 ratio < MediumRatio → medium
//	total > 0 且 ratio >= LowRatio                      → low
//	其余                                                → none
//
// 比例条件只在 total > 0 时生效，没有任何包裹的号码不会因为比例为 0 被判为高风险。
func Classify(r Record, t Thresholds) Band {
	hasParcels := r.TotalParcels > 0
	switch {
	case atLeast(r.CancelledParcels, t.HighCancelled) || (hasParcels && r.SuccessRatio < t.HighRatio):
		return BandHigh
	case atLeast(r.CancelledParcels, t.MediumCancelled) || (hasParcels && r.SuccessRatio < t.MediumRatio):
		return BandMedium
	case hasParcels && r.SuccessRatio >= t.LowRatio:
		return BandLow
	default:
		return BandNone
	}
}

// atLeast 把不大于 0 的阈值视为关闭。
func atLeast(count, threshold int) bool {
	return threshold > 0 && count >= threshold
}
