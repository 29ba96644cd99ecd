// Package watch 让卡片索引跟随页面变化保持“大致新鲜”。
//
// 三条相互独立的触发路径：
// 1) 页面变更：防抖后重建
// 2) 页面 ready：立即重建；若为空则按 n × RetryBase 线性退避重试，最多 RetryMax 次
// 3) 页面 load：额外的一次性重建
package watch

import (
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/cardfinder/internal/index"
)

const (
	DefaultDebounce  = 500 * time.Millisecond
	DefaultRetryBase = time.Second
	DefaultRetryMax  = 5
)

type Config struct {
	Debounce  time.Duration
	RetryBase time.Duration
	RetryMax  int
}

func (c Config) withDefaults() Config {
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.RetryBase <= 0 {
		c.RetryBase = DefaultRetryBase
	}
	if c.RetryMax <= 0 {
		c.RetryMax = DefaultRetryMax
	}
	return c
}

// Page 是 watcher 需要的页面生命周期能力（page.Page 满足该接口）。
type Page interface {
	Observe(fn func()) (cancel func())
	OnReady(fn func())
	OnLoad(fn func())
}

// Rebuilder 是 watcher 需要的索引能力（index.Index 满足该接口）。
type Rebuilder interface {
	Rebuild(trigger index.Trigger) index.Pass
	Len() int
}

// Watcher 把页面事件接到索引重建上。
//
// 约束：
// - Start/Stop 以及所有回调都在事件循环上执行
// - Stop 之后不再发起任何重建（包括已调度的防抖与重试）
type Watcher struct {
	page   Page
	idx    Rebuilder
	sched  Scheduler
	cfg    Config
	logger *zap.Logger

	debounce *Debouncer
	cancel   func()
	stopped  bool
}

func New(page Page, idx Rebuilder, sched Scheduler, cfg Config, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &Watcher{
		page:     page,
		idx:      idx,
		sched:    sched,
		cfg:      cfg,
		logger:   logger,
		debounce: NewDebouncer(sched, cfg.Debounce),
	}
}

// Start 订阅页面事件；页面已 ready 时重试循环立即开始。
func (w *Watcher) Start() {
	w.cancel = w.page.Observe(w.onMutation)
	w.page.OnReady(func() {
		if w.stopped {
			return
		}
		w.tryExtraction(1)
	})
	w.page.OnLoad(func() {
		if w.stopped {
			return
		}
		w.idx.Rebuild(index.TriggerLoad)
	})
}

func (w *Watcher) Stop() {
	w.stopped = true
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.debounce.Cancel()
}

func (w *Watcher) onMutation() {
	if w.stopped {
		return
	}
	w.debounce.Trigger(func() {
		w.idx.Rebuild(index.TriggerMutation)
	})
}

func (w *Watcher) tryExtraction(attempt int) {
	trigger := index.TriggerRetry
	if attempt == 1 {
		trigger = index.TriggerReady
	}
	w.logger.Debug("extraction attempt", zap.Int("attempt", attempt), zap.Int("max", w.cfg.RetryMax))
	w.idx.Rebuild(trigger)

	n := w.idx.Len()
	switch {
	case n > 0:
		w.logger.Debug("cards found", zap.Int("cards", n), zap.Int("attempt", attempt))
	case attempt < w.cfg.RetryMax:
		delay := time.Duration(attempt) * w.cfg.RetryBase
		w.sched.AfterFunc(delay, func() {
			if w.stopped {
				return
			}
			w.tryExtraction(attempt + 1)
		})
	default:
		w.logger.Debug("no cards found after retries; the page might not contain cards", zap.Int("attempts", w.cfg.RetryMax))
	}
}
