package message

import (
	"context"
	"testing"
)

func nopHandler(context.Context, Request, Respond) Reply { return None() }

func TestNewRegistry_Validation(t *testing.T) {
	if _, err := NewRegistry(Route{Type: "SEARCH_MATTER"}); err == nil {
		t.Fatalf("nil handler 应报错")
	}
	if _, err := NewRegistry(Route{Type: "  ", Handler: nopHandler}); err == nil {
		t.Fatalf("空类型应报错")
	}
	if _, err := NewRegistry(
		Route{Type: "search_matter", Handler: nopHandler},
		Route{Type: "SEARCH_MATTER ", Handler: nopHandler},
	); err == nil {
		t.Fatalf("规范化后重复的类型应报错")
	}
}

func TestRegistry_GetIsCaseInsensitive(t *testing.T) {
	reg, err := NewRegistry(Route{Type: TypeSearchMatter, Handler: nopHandler})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, ok := reg.Get(" search_matter "); !ok {
		t.Fatalf("应按规范化后的类型查找")
	}
	if _, ok := reg.Get("OTHER"); ok {
		t.Fatalf("未注册的类型不应命中")
	}
	if _, ok := (Registry{}).Get(TypeSearchMatter); ok {
		t.Fatalf("零值 Registry 不应命中")
	}
	if got := reg.Types(); len(got) != 1 || got[0] != TypeSearchMatter {
		t.Fatalf("Types 不正确：%v", got)
	}
}
