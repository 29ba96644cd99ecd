package domain

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestSearchResponse_MarshalJSON_NilMatchesAndNullMessage(t *testing.T) {
	b, err := json.Marshal(SearchResponse{TotalCards: 2})
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte(`"matches":[]`)) {
		t.Fatalf("matches 应输出为 []：%s", b)
	}
	if !bytes.Contains(b, []byte(`"message":null`)) {
		t.Fatalf("message 缺省应为 null：%s", b)
	}
	if !bytes.Contains(b, []byte(`"totalCards":2`)) {
		t.Fatalf("totalCards 不正确：%s", b)
	}
}

func TestMatchFromCard_TitlePrefersName(t *testing.T) {
	m := MatchFromCard(Card{MatterID: "2020-00025", Name: "Joseph Steiner", Column: "New", Method: MethodTextPattern})
	if m.Title != "Joseph Steiner" {
		t.Fatalf("期望标题为名称，实际 %q", m.Title)
	}

	m = MatchFromCard(Card{MatterID: "2020-00025"})
	if m.Title != "2020-00025" {
		t.Fatalf("无名称时标题应回退为编号，实际 %q", m.Title)
	}
}

func TestCard_Matches(t *testing.T) {
	c := Card{MatterID: "2020-00025", Name: "Joseph Steiner", Column: "New"}

	cases := []struct {
		q    string
		want bool
	}{
		{"2020", true},
		{"stein", true},
		{"joseph steiner", true},
		{"00025", true},
		{"doe", false},
		{"new", false}, // 列名不参与匹配
	}
	for _, tc := range cases {
		if got := c.Matches(NormalizeQuery(tc.q)); got != tc.want {
			t.Fatalf("Matches(%q)=%v，期望 %v", tc.q, got, tc.want)
		}
	}
}

func TestNormalizeQuery(t *testing.T) {
	if got := NormalizeQuery("  StEiN \n"); got != "stein" {
		t.Fatalf("期望 stein，实际 %q", got)
	}
}

func TestParseAndFindMatterID(t *testing.T) {
	if _, ok := ParseMatterID("2020-00025"); !ok {
		t.Fatalf("期望 2020-00025 合法")
	}
	if _, ok := ParseMatterID("2020-00025 Steiner"); ok {
		t.Fatalf("ParseMatterID 必须整体匹配")
	}
	if _, ok := ParseMatterID("20200-00025"); ok {
		t.Fatalf("位数不对不应匹配")
	}

	id, ok := FindMatterID("Steiner,Joseph (2020-00025) General Negligence")
	if !ok || id != "2020-00025" {
		t.Fatalf("期望找到 2020-00025，实际 %q ok=%v", id, ok)
	}
	if _, ok := FindMatterID("ref 12020-000251"); ok {
		t.Fatalf("非独立 token 不应匹配")
	}
}
