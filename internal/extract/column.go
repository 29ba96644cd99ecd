package extract

import (
	"strings"

	"github.com/John-Robertt/cardfinder/internal/dom"
	"github.com/John-Robertt/cardfinder/internal/domain"
)

const (
	maxColumnClimb = 10
	maxParentClimb = 5
)

var columnSelectors = []string{
	".column", ".Column", ".stage", ".list", ".board-list", ".kanban-column",
	`[class*="column"]`, `[class*="stage"]`, `[class*="list"]`, `[class*="kanban"]`,
	".col", ".col-md", ".col-lg", ".col-sm", `[class*="col-"]`,
}

var columnTitleSelectors = []string{
	"h1", "h2", "h3", "h4", "h5", "h6",
	".column-title", ".stage-title", ".list-title", ".kanban-title",
	`[class*="title"]`, `[class*="header"]`, `[class*="label"]`,
	".badge", ".btn", "strong", "b",
}

// extractColumn 推断卡片所在列的名称。
//
// 顺序（固定）：
// 1) 向上最多 10 层找列容器（closest 命中自身不算）
// 2) 容器内第一个标题类元素的文本
// 3) 容器第一个子节点的文本
// 4) 向上最多 5 层，拼接各层直接文本节点
func extractColumn(card dom.Element) (string, []Attempt) {
	var attempts []Attempt

	container := findColumnContainer(card)
	attempts = append(attempts, Attempt{Step: "column", Strategy: "container", OK: container != nil})

	if container != nil {
		if name, ok := columnTitle(container); ok {
			return name, append(attempts, Attempt{Step: "column", Strategy: "container-title", OK: true})
		}
		attempts = append(attempts, Attempt{Step: "column", Strategy: "container-title"})

		if name, ok := columnFirstText(container); ok {
			return name, append(attempts, Attempt{Step: "column", Strategy: "container-first-text", OK: true})
		}
		attempts = append(attempts, Attempt{Step: "column", Strategy: "container-first-text"})
	}

	if name, ok := parentDirectText(card); ok {
		return name, append(attempts, Attempt{Step: "column", Strategy: "parent-text", OK: true})
	}
	attempts = append(attempts, Attempt{Step: "column", Strategy: "parent-text"})
	return domain.UnknownColumn, attempts
}

func findColumnContainer(card dom.Element) dom.Element {
	cur := card
	for step := 0; cur != nil && step < maxColumnClimb; step++ {
		for _, sel := range columnSelectors {
			if c := cur.Closest(sel); c != nil && !c.Equal(cur) {
				return c
			}
		}
		cur = cur.Parent()
	}
	return nil
}

func columnTitle(container dom.Element) (string, bool) {
	for _, sel := range columnTitleSelectors {
		t := container.Query(sel)
		if t == nil {
			continue
		}
		text := strings.TrimSpace(t.InnerText())
		if lenBetween(text, 0, 100) {
			// 标题恰好是 "Unknown" 时视为未解析，交给后续兜底。
			return text, text != domain.UnknownColumn
		}
	}
	return "", false
}

func columnFirstText(container dom.Element) (string, bool) {
	s, ok := container.FirstChildText()
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if !lenBetween(s, 0, 50) {
		return "", false
	}
	return s, true
}

func parentDirectText(card dom.Element) (string, bool) {
	p := card.Parent()
	for level := 0; p != nil && level < maxParentClimb; level++ {
		parts := make([]string, 0, 2)
		for _, t := range p.DirectTexts() {
			t = strings.TrimSpace(t)
			if lenBetween(t, 0, 50) {
				parts = append(parts, t)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, " "), true
		}
		p = p.Parent()
	}
	return "", false
}
