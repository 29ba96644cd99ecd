package domain

import (
	"strings"

	"github.com/John-Robertt/cardfinder/internal/dom"
)

const (
	// UntitledName 是只识别到编号、没识别到名称时的名称。
	UntitledName = "Untitled"
	// UnknownColumn 是无法确定所在列时的列名。
	UnknownColumn = "Unknown"
)

// ExtractionMethod 记录编号是由哪条启发式得到的（仅用于诊断）。
type ExtractionMethod string

const (
	MethodNone          ExtractionMethod = ""
	MethodTextPattern   ExtractionMethod = "text-pattern-match"
	MethodHeadingSpan   ExtractionMethod = "h5-span"
	MethodElementSearch ExtractionMethod = "element-search"
)

// Card 是一次抽取得到的卡片记录。
//
// 不变量：
// - 每次抽取整体重建，Card 之间不存在跨轮次的身份
// - MatterID 与“真实名称”至少有一个存在（否则在抽取阶段已被丢弃）
type Card struct {
	MatterID MatterID
	Name     string
	Column   string
	Method   ExtractionMethod

	// Source 指向来源元素，只用于滚动/高亮；不拥有该元素。
	Source dom.Element
}

// Title 是展示用标题：优先名称，其次编号。
func (c Card) Title() string {
	if c.Name != "" {
		return c.Name
	}
	return string(c.MatterID)
}

// NormalizeQuery 把用户输入规范化为匹配用的形式（裁剪 + 小写）。
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// Matches 判断已规范化的 q 是否是编号/名称/标题任一字段的子串（大小写不敏感）。
func (c Card) Matches(q string) bool {
	return c.MatchesID(q) || c.MatchesName(q) || strings.Contains(strings.ToLower(c.Title()), q)
}

func (c Card) MatchesID(q string) bool {
	return strings.Contains(strings.ToLower(string(c.MatterID)), q)
}

func (c Card) MatchesName(q string) bool {
	return strings.Contains(strings.ToLower(c.Name), q)
}
