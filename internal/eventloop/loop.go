// Package eventloop 提供单 goroutine 的任务循环：页面、索引与定时器状态只在这里被访问。
//
// 约束：
// - 所有投递的任务按 FIFO 顺序在同一个 goroutine 上执行
// - 定时器回调不会在时钟的 goroutine 上直接运行，而是投递回循环
// - 任务 panic 会被记录并吞掉，循环继续运行
// - 不要在循环内部调用 Call（会死锁）；循环内直接执行即可
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ErrStopped 表示循环已经退出，任务不会再被执行。
var ErrStopped = errors.New("event loop stopped")

type Loop struct {
	clock  clockwork.Clock
	logger *zap.Logger

	mu      sync.Mutex
	queue   []func()
	stopped bool

	wake chan struct{}
	done chan struct{}
}

func New(clock clockwork.Clock, logger *zap.Logger) *Loop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		clock:  clock,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (l *Loop) Clock() clockwork.Clock { return l.clock }

// Run 执行任务直到 ctx 结束；返回 ctx.Err()。同一个 Loop 只能 Run 一次。
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			task := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()

			l.exec(task)

			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

// Done 在 Run 返回后关闭。
func (l *Loop) Done() <-chan struct{} { return l.done }

// Post 把任务放入队尾；循环已退出时返回 false。Post 从不阻塞，可在循环内部调用。
func (l *Loop) Post(task func()) bool {
	if task == nil {
		return false
	}
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Call 投递 task 并等待其执行完成。
func (l *Loop) Call(ctx context.Context, task func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		task()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		// 退出前刚好执行完的任务仍算成功。
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	}
}

// AfterFunc 在 d 之后把 task 投递到循环。返回的 Timer.Stop 只能阻止尚未投递的回调；
// 需要精确取消语义的调用方应自行做代际检查（见 watch.Debouncer）。
func (l *Loop) AfterFunc(d time.Duration, task func()) clockwork.Timer {
	return l.clock.AfterFunc(d, func() {
		l.Post(task)
	})
}

func (l *Loop) exec(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event loop task panicked", zap.String("panic", fmt.Sprint(r)), zap.Stack("stack"))
		}
	}()
	task()
}
