package message

import (
	"fmt"
	"strings"
)

// Route 把消息类型绑定到 handler。
type Route struct {
	Type    string
	Handler Handler
}

// Registry 是 handler 的只读注册表（按消息类型索引）。
// 消息类型极少，map 足够。
type Registry struct {
	byType map[string]Handler
}

func NewRegistry(routes ...Route) (Registry, error) {
	byType := make(map[string]Handler, len(routes))
	for _, r := range routes {
		if r.Handler == nil {
			return Registry{}, fmt.Errorf("message handler 不能为空：%q", r.Type)
		}
		typ := normalizeType(r.Type)
		if typ == "" {
			return Registry{}, fmt.Errorf("message type 不能为空")
		}
		if _, ok := byType[typ]; ok {
			return Registry{}, fmt.Errorf("重复的 message type：%q", typ)
		}
		byType[typ] = r.Handler
	}
	return Registry{byType: byType}, nil
}

func (r Registry) Get(typ string) (Handler, bool) {
	if r.byType == nil {
		return nil, false
	}
	h, ok := r.byType[normalizeType(typ)]
	return h, ok
}

// Types 返回已注册的消息类型（无序）。
func (r Registry) Types() []string {
	out := make([]string, 0, len(r.byType))
	for t := range r.byType {
		out = append(out, t)
	}
	return out
}

func normalizeType(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}
