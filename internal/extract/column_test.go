package extract

import (
	"testing"

	"github.com/John-Robertt/cardfinder/internal/domain"
)

func TestExtractColumn(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "容器标题",
			body: `<div class="kanban-column"><h3>Active</h3><div class="card"><div>Jane Doe</div></div></div>`,
			want: "Active",
		},
		{
			name: "容器首个子节点文本",
			body: `<div class="stage">Intake<div class="card"><div>Jane Doe</div></div></div>`,
			want: "Intake",
		},
		{
			name: "标题为 Unknown 时继续兜底",
			body: `<div class="kanban-column">Later<h3>Unknown</h3><div class="card"><div>Jane Doe</div></div></div>`,
			want: "Later",
		},
		{
			name: "无容器时取祖先直接文本",
			body: `<section>Backlog<div class="card"><div>Jane Doe</div></div></section>`,
			want: "Backlog",
		},
		{
			name: "全部失败",
			body: `<div class="card"><div>Jane Doe</div></div>`,
			want: domain.UnknownColumn,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := extractColumn(firstCard(t, tc.body))
			if got != tc.want {
				t.Fatalf("期望列 %q，实际 %q", tc.want, got)
			}
		})
	}
}

func TestFindColumnContainer_SkipsSelf(t *testing.T) {
	// 卡片自身带 column class，但列容器必须是祖先。
	card := firstCard(t, `<div class="stage" id="outer"><div class="card column">x</div></div>`)

	c := findColumnContainer(card)
	if c == nil {
		t.Fatalf("期望找到列容器")
	}
	if id, _ := c.Attr("id"); id != "outer" {
		t.Fatalf("期望容器 #outer，实际 %s", c.Path())
	}
}
