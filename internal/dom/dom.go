// Package dom 把“页面树”抽象为最小的查询能力，让抽取逻辑可以脱离真实浏览器测试。
//
// 约束：
// - 读接口只暴露抽取启发式真正用到的能力（文本、class、内联样式、可见性、选择器查询、父链）
// - 写接口只服务于高亮（内联样式、属性、滚动到视图）
// - 非并发安全：调用方必须保证同一文档只在一个 goroutine（事件循环）上访问
package dom

// Document 是一份页面快照的查询入口。
type Document interface {
	// QueryAll 按文档顺序返回匹配 selector 的全部元素；selector 非法时返回空。
	QueryAll(selector string) []Element
	// Query 返回第一个匹配元素；没有则返回 nil。
	Query(selector string) Element
}

// Element 是页面中的单个元素节点。
type Element interface {
	Tag() string

	// InnerText 返回“渲染后”的文本：块级元素换行、空白折叠、隐藏节点跳过。
	InnerText() string
	// TextContent 返回所有后代文本节点的原始拼接。
	TextContent() string

	HasClass(name string) bool
	Attr(name string) (string, bool)
	// Style 返回内联样式中 prop 的值（已折叠空白，保留 !important）；不存在则为空串。
	Style(prop string) string

	// OffsetHeight 是元素的渲染高度（像素）；隐藏元素为 0。
	OffsetHeight() int
	// HasOffsetParent 对应浏览器中 offsetParent != null。
	HasOffsetParent() bool

	Query(selector string) Element
	QueryAll(selector string) []Element
	// Closest 从自身开始向上查找第一个匹配 selector 的元素（含自身）。
	Closest(selector string) Element
	Parent() Element

	// FirstChildText 返回第一个子节点（任意类型）的 textContent。
	FirstChildText() (string, bool)
	// DirectTexts 返回直接子文本节点的内容（未裁剪）。
	DirectTexts() []string

	Equal(other Element) bool
	// Path 返回用于诊断/定位的 CSS 路径，例如 "body > div:nth-child(2) > div#c1"。
	Path() string

	SetStyle(prop, value string)
	SetAttr(name, value string)
	RemoveAttr(name string)
	ScrollIntoView(opts ScrollOptions)
}

// ScrollOptions 对应 scrollIntoView 的参数子集。
type ScrollOptions struct {
	Behavior string // "smooth" | "auto"
	Block    string // "center" | "start" | "end" | "nearest"
}
