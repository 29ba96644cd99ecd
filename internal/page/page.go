// Package page 持有“当前页面”：一份 HTML 快照及其生命周期（loading → ready → loaded）。
//
// 约束：
// - Page 非并发安全：只能在事件循环的 goroutine 上访问
// - 第一次 Replace 完成页面加载：依次触发 ready 与 load，不通知变更观察者
// - 之后的每次 Replace 都视为一次 DOM 变更，同步通知全部观察者
// - 高亮写入的样式/属性不算变更
package page

import (
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/John-Robertt/cardfinder/internal/dom"
)

// State 对应 document.readyState。
type State int

const (
	StateLoading State = iota
	StateReady
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "interactive"
	case StateLoaded:
		return "complete"
	default:
		return "loading"
	}
}

type Page struct {
	url    string
	opts   dom.Options
	logger *zap.Logger

	doc   *dom.HTMLDocument
	state State

	observers map[int]func()
	nextObs   int
	onReady   []func()
	onLoad    []func()
}

func New(url string, opts dom.Options, logger *zap.Logger) *Page {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Page{
		url:       strings.TrimSpace(url),
		opts:      opts,
		logger:    logger,
		doc:       dom.Empty(opts),
		observers: map[int]func(){},
	}
}

// Document 返回当前快照；页面加载前是空白页。
func (p *Page) Document() dom.Document { return p.doc }

func (p *Page) URL() string { return p.url }

// SetURL 更新页面地址；空串忽略。
func (p *Page) SetURL(url string) {
	if url = strings.TrimSpace(url); url != "" {
		p.url = url
	}
}

func (p *Page) State() State { return p.state }

// Ready 对应 readyState != "loading"。
func (p *Page) Ready() bool { return p.state >= StateReady }

// Replace 用 r 中的 HTML 替换当前快照。解析失败时保留旧快照。
func (p *Page) Replace(r io.Reader) error {
	doc, err := dom.Parse(r, p.opts)
	if err != nil {
		return err
	}
	p.doc = doc

	if p.state == StateLoading {
		p.state = StateReady
		p.logger.Debug("page ready", zap.String("url", p.url))
		fire(p.onReady)
		p.onReady = nil

		p.state = StateLoaded
		p.logger.Debug("page loaded", zap.String("url", p.url))
		fire(p.onLoad)
		p.onLoad = nil
		return nil
	}

	p.logger.Debug("page mutated", zap.Int("observers", len(p.observers)))
	for _, id := range p.observerIDs() {
		if fn, ok := p.observers[id]; ok {
			fn()
		}
	}
	return nil
}

// ReplaceString 是 Replace 的便捷形式。
func (p *Page) ReplaceString(html string) error {
	return p.Replace(strings.NewReader(html))
}

// Observe 订阅变更；返回的函数取消订阅（可重复调用）。
func (p *Page) Observe(fn func()) (cancel func()) {
	id := p.nextObs
	p.nextObs++
	p.observers[id] = fn
	return func() { delete(p.observers, id) }
}

// OnReady 注册 ready 回调；页面已 ready 时立即执行。
func (p *Page) OnReady(fn func()) {
	if p.Ready() {
		fn()
		return
	}
	p.onReady = append(p.onReady, fn)
}

// OnLoad 注册 load 回调；已经发生过的 load 不会重放。
func (p *Page) OnLoad(fn func()) {
	if p.state == StateLoaded {
		return
	}
	p.onLoad = append(p.onLoad, fn)
}

// HTML 序列化当前快照（包含高亮状态）。
func (p *Page) HTML() (string, error) { return p.doc.HTML() }

// ScrollTarget 返回最近一次滚动目标的路径。
func (p *Page) ScrollTarget() (string, bool) {
	el, _, ok := p.doc.ScrollTarget()
	if !ok {
		return "", false
	}
	return el.Path(), true
}

// observerIDs 按订阅顺序返回 id，保证通知顺序稳定。
func (p *Page) observerIDs() []int {
	ids := make([]int, 0, len(p.observers))
	for id := 0; id < p.nextObs; id++ {
		if _, ok := p.observers[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func fire(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}
