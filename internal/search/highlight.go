package search

import (
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/cardfinder/internal/dom"
	"github.com/John-Robertt/cardfinder/internal/index"
)

const (
	DefaultHighlightDuration = 5 * time.Second

	// HighlightAttr 标记当前被高亮的元素。
	HighlightAttr = "data-finder-highlight"

	highlightOutline = "3px solid #ff4444"
	highlightOffset  = "2px"
)

// Highlighter 负责“滚动到卡片 + 临时描边”。
//
// 约束：
// - 同一时刻最多一个元素带标记：新的高亮先清掉旧的
// - 移除定时器不会被取消；旧定时器到期时可能清掉同一元素上更新的高亮
type Highlighter struct {
	src      index.DocumentSource
	sched    Scheduler
	duration time.Duration
	logger   *zap.Logger
}

func NewHighlighter(src index.DocumentSource, sched Scheduler, d time.Duration, logger *zap.Logger) *Highlighter {
	if d <= 0 {
		d = DefaultHighlightDuration
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Highlighter{src: src, sched: sched, duration: d, logger: logger}
}

func (h *Highlighter) Highlight(el dom.Element) {
	if el == nil {
		return
	}

	for _, old := range h.src.Document().QueryAll("[" + HighlightAttr + "]") {
		old.SetStyle("outline", "")
		old.RemoveAttr(HighlightAttr)
	}

	el.ScrollIntoView(dom.ScrollOptions{Behavior: "smooth", Block: "center"})
	el.SetStyle("outline", highlightOutline)
	el.SetStyle("outline-offset", highlightOffset)
	el.SetAttr(HighlightAttr, "true")
	h.logger.Debug("highlighted card", zap.String("element", el.Path()), zap.Duration("for", h.duration))

	h.sched.AfterFunc(h.duration, func() {
		el.SetStyle("outline", "")
		el.SetStyle("outline-offset", "")
		el.RemoveAttr(HighlightAttr)
	})
}
