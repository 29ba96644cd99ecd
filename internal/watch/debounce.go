package watch

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler 在延迟后把回调投递到事件循环（eventloop.Loop 满足该接口）。
type Scheduler interface {
	AfterFunc(d time.Duration, task func()) clockwork.Timer
}

// Debouncer 是纯防抖：每次 Trigger 都取消并替换尚未执行的调度。
//
// 约束：
// - 只能在事件循环上调用
// - 被取消的调度永远不会执行：Timer.Stop 可能晚于投递，所以用代际号兜底
type Debouncer struct {
	sched Scheduler
	delay time.Duration

	gen     uint64
	timer   clockwork.Timer
	pending bool
}

func NewDebouncer(sched Scheduler, delay time.Duration) *Debouncer {
	return &Debouncer{sched: sched, delay: delay}
}

// Trigger 在 delay 之后执行 fn；期间再次 Trigger 会把执行继续往后推。
func (d *Debouncer) Trigger(fn func()) {
	d.Cancel()
	d.gen++
	gen := d.gen
	d.pending = true
	d.timer = d.sched.AfterFunc(d.delay, func() {
		if gen != d.gen || !d.pending {
			return
		}
		d.pending = false
		d.timer = nil
		fn()
	})
}

// Cancel 取消尚未执行的调度。
func (d *Debouncer) Cancel() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = false
}

func (d *Debouncer) Pending() bool { return d.pending }
