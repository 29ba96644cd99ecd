package watch

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// manualScheduler 是确定性的虚拟时间调度器：Advance 时在调用方 goroutine 上按时间顺序执行回调。
type manualScheduler struct {
	now    time.Duration
	timers []*manualTimer

	// lateStop 模拟“回调已投递到循环、Stop 来不及拦截”的情况。
	lateStop bool
}

type manualTimer struct {
	clockwork.Timer // 只实现 Stop

	s       *manualScheduler
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	active := !t.stopped && !t.fired
	if !t.s.lateStop {
		t.stopped = true
	}
	return active
}

func (s *manualScheduler) AfterFunc(d time.Duration, fn func()) clockwork.Timer {
	t := &manualTimer{s: s, at: s.now + d, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) Advance(d time.Duration) {
	target := s.now + d
	for {
		var next *manualTimer
		for _, t := range s.timers {
			if t.stopped || t.fired || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			break
		}
		s.now = next.at
		next.fired = true
		next.fn()
	}
	s.now = target
}
