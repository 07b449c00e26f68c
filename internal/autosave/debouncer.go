// Package autosave 在访客编辑订单时于后台防抖保存草稿。
package autosave

import (
	"sync"
	"time"
)

// Timer 是 Clock.AfterFunc 返回的可取消任务。
type Timer interface {
	Stop() bool
}

// Clock 抽象定时器，测试中可以手动推进时间。
type Clock interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// RealClock 使用 time.AfterFunc。
var RealClock Clock = realClock{}

// Debouncer 只保留一个待执行任务：每次 Schedule 都会取消上一个任务并重新计时，
// 因此一串连续调用在静默期结束后只执行最后一次。
type Debouncer struct {
	mu      sync.Mutex
	clock   Clock
	window  time.Duration
	pending Timer
	seq     uint64
	stopped bool
}

// NewDebouncer 创建静默期为 window 的 Debouncer。
func NewDebouncer(window time.Duration, clock Clock) *Debouncer {
	if clock == nil {
		clock = RealClock
	}
	return &Debouncer{clock: clock, window: window}
}

// Schedule 取消尚未执行的任务，并在静默期后执行 fn。Stop 之后调用无效。
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.pending != nil {
		d.pending.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = d.clock.AfterFunc(d.window, func() {
		d.mu.Lock()
		current := !d.stopped && d.seq == seq
		if current {
			d.pending = nil
		}
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Cancel 取消尚未执行的任务，之后仍可继续 Schedule。
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

// Stop 取消尚未执行的任务并拒绝之后的 Schedule。
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

// Pending 报告是否有任务在等待。
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

func (d *Debouncer) cancelLocked() bool {
	d.seq++
	if d.pending == nil {
		return false
	}
	d.pending.Stop()
	d.pending = nil
	return true
}
