// Package extract 从看板页面中识别“案件卡片”，并用分层启发式抽取编号、名称与所在列。
//
// 约束：
// - 每一步都是 best-effort：找不到就落到下一条启发式或占位值，从不返回错误
// - 启发式的顺序本身就是契约（针对特定看板页面调过），不要“顺手优化”
// - Extract 是纯函数：同一文档重复抽取结果一致
package extract

import (
	"strings"

	"go.uber.org/zap"

	"github.com/John-Robertt/cardfinder/internal/dom"
	"github.com/John-Robertt/cardfinder/internal/domain"
)

// 只对前几张卡片打印完整文本，避免刷屏。
const verboseCardLimit = 5

// Attempt 记录一次启发式尝试（用于解释“为什么是这个结果”）。
type Attempt struct {
	Step     string // "id" / "name" / "column"
	Strategy string
	OK       bool
}

// Result 是一轮抽取的产物。
type Result struct {
	Cards []domain.Card

	// Selector 是命中的发现 selector；空串表示页面上没有候选。
	Selector   string
	Candidates int
	Skipped    int // 被可见性/尺寸/样式过滤掉的候选
	Dropped    int // 编号与名称都识别不到的候选
}

// Extractor 执行抽取；零值不可用，请用 New。
type Extractor struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract 扫描 doc 并返回按 DOM 顺序排列的卡片。
func (x *Extractor) Extract(doc dom.Document) Result {
	var res Result

	candidates, selector := discover(doc)
	if len(candidates) == 0 {
		x.logger.Debug("no cards found with any selector; page might still be loading")
		return res
	}
	res.Selector = selector
	res.Candidates = len(candidates)
	x.logger.Debug("found card candidates", zap.String("selector", selector), zap.Int("count", len(candidates)))

	res.Cards = make([]domain.Card, 0, len(candidates))
	for i, el := range candidates {
		if reason := skipReason(el); reason != "" {
			res.Skipped++
			x.logger.Debug("skip candidate", zap.Int("index", i+1), zap.String("reason", reason), zap.String("element", el.Path()))
			continue
		}

		card, attempts, ok := x.extractCard(el)
		if i < verboseCardLimit {
			text := cardText(el)
			x.logger.Debug("card text",
				zap.Int("index", i+1),
				zap.String("text", text),
				zap.Strings("lines", textLines(text)),
				zap.String("name", card.Name),
				zap.Any("attempts", attempts),
			)
		}
		if !ok {
			res.Dropped++
			x.logger.Debug("no matter id or name found in card",
				zap.Int("index", i+1),
				zap.String("text", truncate(cardText(el), 200)),
			)
			continue
		}

		res.Cards = append(res.Cards, card)
		x.logger.Debug("indexed card",
			zap.String("matter_id", idOrPlaceholder(card.MatterID)),
			zap.String("name", card.Name),
			zap.String("column", card.Column),
			zap.String("method", string(card.Method)),
		)
	}

	x.logger.Debug("total indexed", zap.Int("cards", len(res.Cards)))
	return res
}

// extractCard 对单个候选元素跑完整条启发式链；ok=false 表示应丢弃。
func (x *Extractor) extractCard(el dom.Element) (domain.Card, []Attempt, bool) {
	text := cardText(el)

	id, method, attempts := extractID(el, text)

	name, found, nameAttempts := extractName(el, textLines(text))
	attempts = append(attempts, nameAttempts...)
	if !found {
		if id == "" {
			return domain.Card{}, attempts, false
		}
		name = domain.UntitledName
	}

	column, colAttempts := extractColumn(el)
	attempts = append(attempts, colAttempts...)

	return domain.Card{
		MatterID: id,
		Name:     name,
		Column:   column,
		Method:   method,
		Source:   el,
	}, attempts, true
}

func cardText(el dom.Element) string {
	if t := el.InnerText(); t != "" {
		return t
	}
	return el.TextContent()
}

func idOrPlaceholder(id domain.MatterID) string {
	if id == "" {
		return "No ID"
	}
	return string(id)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
