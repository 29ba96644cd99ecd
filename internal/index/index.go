// Package index 持有当前卡片列表，并负责“整体重建”。
//
// 约束：
// - 非并发安全：只能在事件循环上访问
// - 每次 Rebuild 完整替换列表；调用方拿到的旧切片不会被修改
// - 文档访问通过 DocumentSource 注入，测试无需真实页面
package index

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/John-Robertt/cardfinder/internal/dom"
	"github.com/John-Robertt/cardfinder/internal/domain"
	"github.com/John-Robertt/cardfinder/internal/extract"
	"github.com/John-Robertt/cardfinder/internal/metrics"
)

// Trigger 说明一次重建是谁发起的（用于日志与指标）。
type Trigger string

const (
	TriggerMutation Trigger = "mutation"
	TriggerReady    Trigger = "ready"
	TriggerRetry    Trigger = "retry"
	TriggerLoad     Trigger = "load"
	TriggerSearch   Trigger = "search"
	TriggerDebug    Trigger = "debug"
)

// DocumentSource 提供当前文档（page.Page 满足该接口）。
type DocumentSource interface {
	Document() dom.Document
}

// Pass 是一轮重建的摘要。
type Pass struct {
	ID         string
	Trigger    Trigger
	Selector   string
	Candidates int
	Skipped    int
	Dropped    int
	Cards      int
	Duration   time.Duration
	At         time.Time
}

type Options struct {
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Clock    clockwork.Clock
	Observer Observer
}

type Index struct {
	src     DocumentSource
	x       *extract.Extractor
	logger  *zap.Logger
	metrics *metrics.Metrics
	clock   clockwork.Clock
	obs     Observer

	cards []domain.Card
	last  Pass
}

func New(src DocumentSource, x *extract.Extractor, opts Options) *Index {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	if x == nil {
		x = extract.New(opts.Logger)
	}
	return &Index{
		src:     src,
		x:       x,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		clock:   opts.Clock,
		obs:     opts.Observer,
	}
}

// Rebuild 对当前文档重新抽取并整体替换卡片列表。
func (i *Index) Rebuild(trigger Trigger) Pass {
	start := i.clock.Now()
	id := uuid.NewString()

	res := i.x.Extract(i.src.Document())
	i.cards = res.Cards

	p := Pass{
		ID:         id,
		Trigger:    trigger,
		Selector:   res.Selector,
		Candidates: res.Candidates,
		Skipped:    res.Skipped,
		Dropped:    res.Dropped,
		Cards:      len(res.Cards),
		Duration:   i.clock.Since(start),
		At:         start,
	}
	i.last = p

	i.metrics.ObserveExtraction(string(trigger), p.Cards, p.Skipped, p.Dropped, p.Duration)
	i.logger.Debug("index rebuilt",
		zap.String("pass_id", p.ID),
		zap.String("trigger", string(trigger)),
		zap.String("selector", p.Selector),
		zap.Int("candidates", p.Candidates),
		zap.Int("cards", p.Cards),
		zap.Duration("duration", p.Duration),
	)
	i.obs.OnRebuild(p)
	return p
}

// Cards 返回当前列表（只读；下一次 Rebuild 会换成新切片）。
func (i *Index) Cards() []domain.Card { return i.cards }

func (i *Index) Len() int { return len(i.cards) }

// Last 返回最近一轮重建的摘要；从未重建时为零值。
func (i *Index) Last() Pass { return i.last }

// Query 返回匹配 q 的卡片（保持列表顺序）；q 会先被规范化。
func (i *Index) Query(q string) []domain.Card {
	q = domain.NormalizeQuery(q)
	var out []domain.Card
	for _, c := range i.cards {
		if c.Matches(q) {
			out = append(out, c)
		}
	}
	return out
}
