package dom

import (
	"bytes"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultLineHeight 是估算渲染高度时每行文本的像素数。
const DefaultLineHeight = 20

// Options 控制快照的“布局”近似。
type Options struct {
	// LineHeight 用于没有显式高度信息时按文本行数估算 OffsetHeight；<=0 使用默认值。
	LineHeight int
}

func (o Options) lineHeight() int {
	if o.LineHeight <= 0 {
		return DefaultLineHeight
	}
	return o.LineHeight
}

// HTMLDocument 是基于 goquery 的 Document 实现（一份静态 HTML 快照）。
type HTMLDocument struct {
	root *goquery.Document
	opts Options

	scrollTarget *element
	scrollOpts   ScrollOptions
}

// Parse 解析 HTML 快照。
func Parse(r io.Reader, opts Options) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &HTMLDocument{root: doc, opts: opts}, nil
}

// ParseString 是 Parse 的便捷形式。
func ParseString(s string, opts Options) (*HTMLDocument, error) {
	return Parse(strings.NewReader(s), opts)
}

// Empty 返回空白页（about:blank），用于页面尚未加载时。
func Empty(opts Options) *HTMLDocument {
	d, err := ParseString("<html><head></head><body></body></html>", opts)
	if err != nil {
		// x/net/html 对任意输入都能产出文档；走到这里说明依赖行为变了。
		panic(err)
	}
	return d
}

func (d *HTMLDocument) QueryAll(selector string) []Element {
	return d.wrapAll(d.root.Find(selector))
}

func (d *HTMLDocument) Query(selector string) Element {
	return d.wrapFirst(d.root.Find(selector))
}

// Body 返回 <body>；解析器总会补全它。
func (d *HTMLDocument) Body() Element {
	return d.Query("body")
}

// HTML 序列化当前快照（包含高亮写入的样式与属性）。
func (d *HTMLDocument) HTML() (string, error) {
	var buf bytes.Buffer
	for _, n := range d.root.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// ScrollTarget 返回最近一次 ScrollIntoView 的目标。
func (d *HTMLDocument) ScrollTarget() (Element, ScrollOptions, bool) {
	if d.scrollTarget == nil {
		return nil, ScrollOptions{}, false
	}
	return d.scrollTarget, d.scrollOpts, true
}

func (d *HTMLDocument) wrapAll(s *goquery.Selection) []Element {
	out := make([]Element, 0, s.Length())
	for _, n := range s.Nodes {
		if n.Type != html.ElementNode {
			continue
		}
		out = append(out, &element{doc: d, n: n})
	}
	return out
}

// wrapFirst 注意返回 untyped nil，避免调用方拿到“非 nil 的空接口”。
func (d *HTMLDocument) wrapFirst(s *goquery.Selection) Element {
	for _, n := range s.Nodes {
		if n.Type == html.ElementNode {
			return &element{doc: d, n: n}
		}
	}
	return nil
}

type element struct {
	doc *HTMLDocument
	n   *html.Node
}

func (e *element) sel() *goquery.Selection {
	return e.doc.root.FindNodes(e.n)
}

func (e *element) Tag() string { return e.n.Data }

func (e *element) InnerText() string {
	if hiddenInTree(e.n) {
		// 浏览器对未渲染元素的 innerText 退化为 textContent。
		return e.TextContent()
	}
	return renderText(e.n)
}

func (e *element) TextContent() string { return e.sel().Text() }

func (e *element) HasClass(name string) bool { return e.sel().HasClass(name) }

func (e *element) Attr(name string) (string, bool) { return attr(e.n, name) }

func (e *element) Style(prop string) string {
	v, _ := styleValue(e.n, prop)
	return v
}

func (e *element) OffsetHeight() int { return offsetHeight(e.n, e.doc.opts.lineHeight()) }

func (e *element) HasOffsetParent() bool { return hasOffsetParent(e.n) }

func (e *element) Query(selector string) Element {
	return e.doc.wrapFirst(e.sel().Find(selector))
}

func (e *element) QueryAll(selector string) []Element {
	return e.doc.wrapAll(e.sel().Find(selector))
}

func (e *element) Closest(selector string) Element {
	return e.doc.wrapFirst(e.sel().Closest(selector))
}

func (e *element) Parent() Element {
	p := e.n.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return &element{doc: e.doc, n: p}
}

func (e *element) FirstChildText() (string, bool) {
	c := e.n.FirstChild
	if c == nil {
		return "", false
	}
	return nodeText(c), true
}

func (e *element) DirectTexts() []string {
	var out []string
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			out = append(out, c.Data)
		}
	}
	return out
}

func (e *element) Equal(other Element) bool {
	o, ok := other.(*element)
	return ok && o != nil && o.n == e.n
}

func (e *element) Path() string { return nodePath(e.n) }

func (e *element) SetStyle(prop, value string) { setStyleValue(e.n, prop, value) }

func (e *element) SetAttr(name, value string) { e.sel().SetAttr(name, value) }

func (e *element) RemoveAttr(name string) { e.sel().RemoveAttr(name) }

func (e *element) ScrollIntoView(opts ScrollOptions) {
	e.doc.scrollTarget = e
	e.doc.scrollOpts = opts
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// nodeText 是 Node.textContent：文本/注释节点取自身，元素取后代文本拼接。
func nodeText(n *html.Node) string {
	switch n.Type {
	case html.TextNode, html.CommentNode:
		return n.Data
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		if x.Type == html.TextNode {
			b.WriteString(x.Data)
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
