package extract

import "testing"

func TestExtractName_Strategies(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		want     string
		strategy string
	}{
		{
			name:     "首行即人名",
			body:     `<div class="card"><div>Joseph N. Steiner</div><div>2020-00025</div></div>`,
			want:     "Joseph N. Steiner",
			strategy: "first-line",
		},
		{
			name:     "首行是案由标签时取编号行后的名字",
			body:     `<div class="card"><div>Medical Malpractice</div><div>2020-00025 Steiner,Joseph</div></div>`,
			want:     "Steiner,Joseph",
			strategy: "id-name-line",
		},
		{
			name:     "逗号分隔的姓名行",
			body:     `<div class="card"><div>2020-00025</div><div>Card Pinned</div><div>Steiner, Joseph</div></div>`,
			want:     "Steiner, Joseph",
			strategy: "comma-line",
		},
		{
			name:     "后代元素兜底",
			body:     `<div class="card"><div class="card-body">#42! Mary Ann Smith</div></div>`,
			want:     "#42! Mary Ann Smith",
			strategy: "descendant-text",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			card := firstCard(t, tc.body)
			got, ok, attempts := extractName(card, textLines(cardText(card)))
			if !ok || got != tc.want {
				t.Fatalf("期望 %q，实际 %q (ok=%v)", tc.want, got, ok)
			}
			last := attempts[len(attempts)-1]
			if last.Strategy != tc.strategy || !last.OK {
				t.Fatalf("期望由 %s 命中，实际 %+v", tc.strategy, attempts)
			}
		})
	}
}

func TestExtractName_CommaLineSkipsPinnedMarker(t *testing.T) {
	card := firstCard(t, `<div class="card"><div>12</div><div>Card Pinned, today</div></div>`)

	_, _, attempts := extractName(card, textLines(cardText(card)))
	for _, a := range attempts {
		if a.Strategy == "comma-line" && a.OK {
			t.Fatalf("逗号行策略不应接受置顶标记：%+v", attempts)
		}
	}
}

func TestExtractName_NothingNameLike(t *testing.T) {
	card := firstCard(t, `<div class="card"><div>42</div><div>!!</div></div>`)

	if got, ok, attempts := extractName(card, textLines(cardText(card))); ok {
		t.Fatalf("不期望识别到名字，实际 %q", got)
	} else if len(attempts) != len(nameStrategies) {
		t.Fatalf("期望尝试全部 %d 条策略，实际 %d", len(nameStrategies), len(attempts))
	}
}

func TestLenBetween_OpenInterval(t *testing.T) {
	if lenBetween("abc", 3, 100) {
		t.Fatalf("长度等于下界不应通过")
	}
	if !lenBetween("abcd", 3, 100) {
		t.Fatalf("长度 4 应通过")
	}
	if !lenBetween("张三李四", 3, 5) {
		t.Fatalf("应按字符而不是字节计数")
	}
}
