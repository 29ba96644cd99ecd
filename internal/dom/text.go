package dom

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

var blockTags = map[string]struct{}{
	"address": {}, "article": {}, "aside": {}, "blockquote": {}, "body": {},
	"dd": {}, "details": {}, "dialog": {}, "div": {}, "dl": {}, "dt": {},
	"fieldset": {}, "figcaption": {}, "figure": {}, "footer": {}, "form": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"header": {}, "hgroup": {}, "hr": {}, "html": {}, "li": {}, "main": {},
	"nav": {}, "ol": {}, "p": {}, "pre": {}, "section": {}, "summary": {},
	"table": {}, "tbody": {}, "thead": {}, "tfoot": {}, "tr": {}, "ul": {},
}

// renderText 近似浏览器的 innerText 算法：
// - 块级元素前后断行，<br> 断行，单元格之间留一个空格
// - 行内空白折叠为单个空格，行首尾空白丢弃
// - 隐藏节点（display:none / hidden / 非渲染标签）不产出文本
// 空行直接丢弃：调用方总是按“非空行”消费。
func renderText(root *html.Node) string {
	w := &textWriter{}
	w.walk(root)
	w.breakLine()
	return strings.Join(w.lines, "\n")
}

type textWriter struct {
	lines        []string
	cur          strings.Builder
	pendingSpace bool
}

func (w *textWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
		if isHidden(n) {
			return
		}
		if n.Data == "br" {
			w.breakLine()
			return
		}
	case html.DocumentNode:
	default:
		return
	}

	block := isBlock(n)
	if block {
		w.breakLine()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if block {
		w.breakLine()
	}
	if n.Type == html.ElementNode && (n.Data == "td" || n.Data == "th") && w.cur.Len() > 0 {
		w.pendingSpace = true
	}
}

func (w *textWriter) text(s string) {
	for _, r := range s {
		if unicode.IsSpace(r) {
			if w.cur.Len() > 0 {
				w.pendingSpace = true
			}
			continue
		}
		if w.pendingSpace {
			w.cur.WriteByte(' ')
			w.pendingSpace = false
		}
		w.cur.WriteRune(r)
	}
}

func (w *textWriter) breakLine() {
	if w.cur.Len() > 0 {
		w.lines = append(w.lines, w.cur.String())
		w.cur.Reset()
	}
	w.pendingSpace = false
}

func isBlock(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if d, ok := styleValue(n, "display"); ok {
		switch d {
		case "inline", "inline-block", "inline-flex", "contents":
			return false
		case "block", "flex", "grid", "list-item", "table", "table-row":
			return true
		}
	}
	_, ok := blockTags[n.Data]
	return ok
}
