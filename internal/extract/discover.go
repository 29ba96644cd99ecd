package extract

import (
	"github.com/John-Robertt/cardfinder/internal/dom"
)

// minCardHeight 以下的元素通常是按钮/标签而不是案件卡片。
const minCardHeight = 50

// CardSelectors 是发现卡片的候选 selector，按顺序尝试，第一个有结果的胜出（不取并集）。
var CardSelectors = []string{
	"div.card",
	".card",
	`[class*="card"]`,
	`[class*="matter"]`,
	`[class*="item"]`,
	`[class*="task"]`,
	".kanban-card",
	".board-card",
	"[data-card]",
	`[draggable="true"]`,
	`[class*="draggable"]`,
	`[class*="tile"]`,
	`[class*="panel"]`,
	".list-group-item",
	`[role="listitem"]`,
	`[class*="grid-item"]`,
}

// skippedClasses 命中任一 class 即视为界面元素。
var skippedClasses = []string{"border-0", "select"}

func discover(doc dom.Document) ([]dom.Element, string) {
	if doc == nil {
		return nil, ""
	}
	for _, sel := range CardSelectors {
		if els := doc.QueryAll(sel); len(els) > 0 {
			return els, sel
		}
	}
	return nil, ""
}

// skipReason 返回过滤原因；空串表示保留。
func skipReason(el dom.Element) string {
	for _, c := range skippedClasses {
		if el.HasClass(c) {
			return "class:" + c
		}
	}
	if el.Style("border") == "none !important" {
		return "style:border-none"
	}
	if el.OffsetHeight() < minCardHeight {
		return "height"
	}
	if !el.HasOffsetParent() {
		return "hidden"
	}
	return ""
}
