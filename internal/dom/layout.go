package dom

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// 快照没有真实布局。高度的来源按优先级：
// 1) data-offset-height：抓取快照的一侧记录下的真实 offsetHeight
// 2) 内联 style 的 height（仅 px）
// 3) 渲染文本行数 × 行高
const offsetHeightAttr = "data-offset-height"

var nonRenderedTags = map[string]struct{}{
	"head": {}, "script": {}, "style": {}, "template": {}, "noscript": {},
	"title": {}, "meta": {}, "link": {},
}

func isHidden(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if _, ok := nonRenderedTags[n.Data]; ok {
		return true
	}
	if _, ok := attr(n, "hidden"); ok {
		return true
	}
	if d, ok := styleValue(n, "display"); ok && strings.HasPrefix(d, "none") {
		return true
	}
	return false
}

func hiddenInTree(n *html.Node) bool {
	for x := n; x != nil; x = x.Parent {
		if isHidden(x) {
			return true
		}
	}
	return false
}

func attached(n *html.Node) bool {
	for x := n; x != nil; x = x.Parent {
		if x.Type == html.DocumentNode {
			return true
		}
	}
	return false
}

func offsetHeight(n *html.Node, lineHeight int) int {
	if !attached(n) || hiddenInTree(n) {
		return 0
	}
	if v, ok := attr(n, offsetHeightAttr); ok {
		if h, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && h >= 0 {
			return h
		}
	}
	if v, ok := styleValue(n, "height"); ok {
		if h, ok := parsePx(v); ok {
			return h
		}
	}
	text := renderText(n)
	if text == "" {
		return 0
	}
	return (strings.Count(text, "\n") + 1) * lineHeight
}

// hasOffsetParent 对应浏览器里 offsetParent 为 null 的几种情况：
// 未挂载、自身或祖先 display:none、自身是 body/html、position:fixed。
func hasOffsetParent(n *html.Node) bool {
	if !attached(n) || hiddenInTree(n) {
		return false
	}
	if n.Data == "body" || n.Data == "html" {
		return false
	}
	if p, ok := styleValue(n, "position"); ok && strings.HasPrefix(p, "fixed") {
		return false
	}
	return true
}

func parsePx(v string) (int, bool) {
	v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "!important"))
	if !strings.HasSuffix(v, "px") {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(v, "px")), 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return int(f + 0.5), true
}

// nodePath 生成从 body 起的 CSS 路径；遇到 id 即停止向上。
func nodePath(n *html.Node) string {
	var parts []string
	for x := n; x != nil && x.Type == html.ElementNode && x.Data != "html"; x = x.Parent {
		if id, ok := attr(x, "id"); ok && strings.TrimSpace(id) != "" && !strings.ContainsAny(id, " \t\n") {
			parts = append(parts, x.Data+"#"+id)
			break
		}
		if x.Data == "body" {
			parts = append(parts, "body")
			break
		}
		parts = append(parts, fmt.Sprintf("%s:nth-child(%d)", x.Data, childIndex(x)))
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

func childIndex(n *html.Node) int {
	idx := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			idx++
		}
	}
	return idx
}
