package dom

import (
	"strings"

	"golang.org/x/net/html"
)

type decl struct {
	prop  string
	value string
}

// parseStyle 解析内联 style 属性；不做完整 CSS 语法，只认 "prop: value;" 序列。
func parseStyle(s string) []decl {
	var out []decl
	for _, part := range strings.Split(s, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.Join(strings.Fields(value), " ")
		if prop == "" {
			continue
		}
		out = append(out, decl{prop: prop, value: value})
	}
	return out
}

func formatStyle(ds []decl) string {
	parts := make([]string, 0, len(ds))
	for _, d := range ds {
		parts = append(parts, d.prop+": "+d.value)
	}
	return strings.Join(parts, "; ")
}

// styleValue 返回最后一次声明的值（与浏览器层叠一致）。
func styleValue(n *html.Node, prop string) (string, bool) {
	raw, ok := attr(n, "style")
	if !ok {
		return "", false
	}
	prop = strings.ToLower(prop)
	var (
		val   string
		found bool
	)
	for _, d := range parseStyle(raw) {
		if d.prop == prop {
			val, found = d.value, true
		}
	}
	return val, found
}

// setStyleValue 等价于 el.style[prop] = value；value 为空表示移除该声明。
func setStyleValue(n *html.Node, prop, value string) {
	prop = strings.ToLower(strings.TrimSpace(prop))
	raw, _ := attr(n, "style")
	ds := parseStyle(raw)

	out := ds[:0]
	replaced := false
	for _, d := range ds {
		if d.prop != prop {
			out = append(out, d)
			continue
		}
		if value != "" && !replaced {
			out = append(out, decl{prop: prop, value: value})
			replaced = true
		}
	}
	if value != "" && !replaced {
		out = append(out, decl{prop: prop, value: value})
	}

	if len(out) == 0 {
		removeAttr(n, "style")
		return
	}
	setAttr(n, "style", formatStyle(out))
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}
