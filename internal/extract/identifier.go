package extract

import (
	"strings"

	"github.com/John-Robertt/cardfinder/internal/dom"
	"github.com/John-Robertt/cardfinder/internal/domain"
)

// 标题元素与其中的 span：看板模板把编号渲染在标题最后一个 span 里。
const (
	headingSelector     = "h5.card-title, h5, .card-title"
	headingSpanSelector = "span.ng-binding, span"
)

// idStrategy 是编号识别链上的一环；按顺序尝试，首个成功即停止。
type idStrategy struct {
	method domain.ExtractionMethod
	find   func(card dom.Element, text string) (domain.MatterID, bool)
}

var idStrategies = []idStrategy{
	{method: domain.MethodTextPattern, find: idFromText},
	{method: domain.MethodHeadingSpan, find: idFromHeadingSpan},
	{method: domain.MethodElementSearch, find: idFromDescendants},
}

// extractID 依次尝试 idStrategies，返回编号、命中的方法与尝试轨迹。
func extractID(card dom.Element, text string) (domain.MatterID, domain.ExtractionMethod, []Attempt) {
	attempts := make([]Attempt, 0, len(idStrategies))
	for _, s := range idStrategies {
		id, ok := s.find(card, text)
		attempts = append(attempts, Attempt{Step: "id", Strategy: string(s.method), OK: ok})
		if ok {
			return id, s.method, attempts
		}
	}
	return "", domain.MethodNone, attempts
}

// idFromText 在整张卡片的渲染文本中找第一个独立编号。
func idFromText(_ dom.Element, text string) (domain.MatterID, bool) {
	return domain.FindMatterID(text)
}

// idFromHeadingSpan 取标题元素最后一个 span，要求其文本整体就是编号。
func idFromHeadingSpan(card dom.Element, _ string) (domain.MatterID, bool) {
	h := card.Query(headingSelector)
	if h == nil {
		return "", false
	}
	spans := h.QueryAll(headingSpanSelector)
	if len(spans) == 0 {
		return "", false
	}
	last := strings.TrimSpace(spans[len(spans)-1].InnerText())
	if last == "" {
		return "", false
	}
	return domain.ParseMatterID(last)
}

// idFromDescendants 穷举所有后代元素，找文本整体就是编号的那个。
func idFromDescendants(card dom.Element, _ string) (domain.MatterID, bool) {
	for _, el := range card.QueryAll("*") {
		if id, ok := domain.ParseMatterID(el.InnerText()); ok {
			return id, true
		}
	}
	return "", false
}
